// Package gemini implements furnitron.Classifier with Google Gemini.
package gemini

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/fwojciec/furnitron"
	"google.golang.org/genai"
)

// DefaultModel is the Gemini model used when none is configured.
const DefaultModel = "gemini-2.5-flash"

const systemInstruction = `You label short text fragments scraped from furniture retailer web pages.
For each fragment answer true if it is the name of a specific furniture product
(for example "Oslo Oak Dining Table" or "Bergen Lounge Chair") and false for
anything else: navigation, prices, promotions, categories, reviews or legal text.
Answer with a JSON array of booleans, one per fragment, in the order given.`

// Ensure Classifier implements furnitron.Classifier at compile time.
var _ furnitron.Classifier = (*Classifier)(nil)

// Classifier labels candidate texts with a Gemini model using structured
// JSON output.
type Classifier struct {
	client *genai.Client
	model  string
}

// NewClassifier creates a new Classifier. An empty model selects DefaultModel.
func NewClassifier(client *genai.Client, model string) *Classifier {
	if model == "" {
		model = DefaultModel
	}
	return &Classifier{client: client, model: model}
}

// Classify asks the model for one verdict per text in a single request.
func (c *Classifier) Classify(ctx context.Context, texts []string) ([]furnitron.Label, error) {
	if len(texts) == 0 {
		return []furnitron.Label{}, nil
	}

	result, err := c.client.Models.GenerateContent(ctx, c.model,
		[]*genai.Content{genai.NewContentFromText(BuildPrompt(texts), "user")},
		BuildConfig(len(texts)),
	)
	if err != nil {
		return nil, apiError(ctx, err)
	}
	if result == nil {
		return nil, furnitron.Errorf(furnitron.EINTERNAL, "gemini returned nil result")
	}

	var verdicts []bool
	if err := json.Unmarshal([]byte(result.Text()), &verdicts); err != nil {
		return nil, furnitron.Errorf(furnitron.EINTERNAL, "decoding gemini verdicts: %v", err)
	}
	if len(verdicts) != len(texts) {
		return nil, furnitron.Errorf(furnitron.EINTERNAL, "gemini returned %d verdicts for %d texts", len(verdicts), len(texts))
	}

	labels := make([]furnitron.Label, len(verdicts))
	for i, ok := range verdicts {
		if ok {
			labels[i] = furnitron.LabelProductName
		}
	}
	return labels, nil
}

// BuildConfig returns the GenerateContentConfig for a batch of n texts.
// The response schema pins the answer to exactly n booleans.
func BuildConfig(n int) *genai.GenerateContentConfig {
	temp := float32(0)
	count := int64(n)
	return &genai.GenerateContentConfig{
		SystemInstruction: &genai.Content{
			Parts: []*genai.Part{{Text: systemInstruction}},
		},
		Temperature:      &temp,
		ResponseMIMEType: "application/json",
		ResponseSchema: &genai.Schema{
			Type:     genai.TypeArray,
			Items:    &genai.Schema{Type: genai.TypeBoolean},
			MinItems: &count,
			MaxItems: &count,
		},
	}
}

// BuildPrompt numbers the texts so the model can keep its answers aligned.
func BuildPrompt(texts []string) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Classify these %d fragments:\n", len(texts))
	for i, text := range texts {
		fmt.Fprintf(&sb, "%d. %s\n", i+1, text)
	}
	return sb.String()
}

// apiError maps a Gemini failure to an application error. Throttling and
// server errors are worth retrying; request errors are not.
func apiError(ctx context.Context, err error) error {
	if errors.Is(ctx.Err(), context.Canceled) {
		return ctx.Err()
	}
	if errors.Is(ctx.Err(), context.DeadlineExceeded) || errors.Is(err, context.DeadlineExceeded) {
		return furnitron.Errorf(furnitron.ETIMEOUT, "gemini: %v", err)
	}

	code := 0
	var apiErr genai.APIError
	var apiErrPtr *genai.APIError
	switch {
	case errors.As(err, &apiErr):
		code = apiErr.Code
	case errors.As(err, &apiErrPtr):
		code = apiErrPtr.Code
	}
	switch {
	case code == 0, code >= 500, code == http.StatusTooManyRequests:
		return furnitron.Errorf(furnitron.EUNAVAILABLE, "gemini: %v", err)
	default:
		return furnitron.Errorf(furnitron.EINVALID, "gemini: %v", err)
	}
}

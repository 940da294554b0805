package http

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"

	"github.com/fwojciec/furnitron"
)

// Ensure Classifier implements furnitron.Classifier at compile time.
var _ furnitron.Classifier = (*Classifier)(nil)

// Classifier labels texts by calling a remote model server. The server
// accepts {"texts": [...]} and answers {"predictions": [...]} with one
// 0/1 prediction per text, where 1 marks a product name.
type Classifier struct {
	client   *http.Client
	endpoint string
}

// ClassifierOption configures a Classifier.
type ClassifierOption func(*Classifier)

// WithClassifierClient sets the HTTP client. Defaults to http.DefaultClient.
func WithClassifierClient(c *http.Client) ClassifierOption {
	return func(cl *Classifier) {
		cl.client = c
	}
}

// NewClassifier creates a Classifier that posts batches to endpoint.
func NewClassifier(endpoint string, opts ...ClassifierOption) *Classifier {
	c := &Classifier{
		client:   http.DefaultClient,
		endpoint: endpoint,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type classifyRequest struct {
	Texts []string `json:"texts"`
}

type classifyResponse struct {
	Predictions []int `json:"predictions"`
}

// Classify sends texts in a single request and returns one label per text.
func (c *Classifier) Classify(ctx context.Context, texts []string) ([]furnitron.Label, error) {
	if len(texts) == 0 {
		return []furnitron.Label{}, nil
	}

	body, err := json.Marshal(classifyRequest{Texts: texts})
	if err != nil {
		return nil, furnitron.Errorf(furnitron.EINTERNAL, "encoding classify request: %v", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, furnitron.Errorf(furnitron.EINVALID, "invalid classifier endpoint %q: %v", c.endpoint, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		terr := transportError(ctx, c.endpoint, err)
		if furnitron.ErrorCode(terr) == furnitron.ENETWORK {
			return nil, furnitron.Errorf(furnitron.EUNAVAILABLE, "classifier unreachable: %v", err)
		}
		return nil, terr
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil, statusError(resp.StatusCode, c.endpoint, furnitron.EUNAVAILABLE)
	}

	var out classifyResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, furnitron.Errorf(furnitron.EINTERNAL, "decoding classify response: %v", err)
	}
	if len(out.Predictions) != len(texts) {
		return nil, furnitron.Errorf(furnitron.EINTERNAL, "classifier returned %d predictions for %d texts", len(out.Predictions), len(texts))
	}

	labels := make([]furnitron.Label, len(out.Predictions))
	for i, p := range out.Predictions {
		if p == 1 {
			labels[i] = furnitron.LabelProductName
		}
	}
	return labels, nil
}

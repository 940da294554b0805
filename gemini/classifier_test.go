package gemini_test

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/fwojciec/furnitron"
	"github.com/fwojciec/furnitron/gemini"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/genai"
)

// newClient returns a genai client whose requests go to handler.
func newClient(t *testing.T, handler http.HandlerFunc) *genai.Client {
	t.Helper()

	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	client, err := genai.NewClient(context.Background(), &genai.ClientConfig{
		APIKey:      "test-key",
		Backend:     genai.BackendGeminiAPI,
		HTTPClient:  srv.Client(),
		HTTPOptions: genai.HTTPOptions{BaseURL: srv.URL},
	})
	require.NoError(t, err)
	return client
}

func answer(text string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"candidates":[{"content":{"role":"model","parts":[{"text":`+text+`}]},"finishReason":"STOP"}]}`)
	}
}

func TestClassifier_Classify_AlignsVerdicts(t *testing.T) {
	t.Parallel()

	prompts := make(chan string, 1)
	client := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		prompts <- string(body)
		answer(`"[true, false, true]"`)(w, r)
	})

	c := gemini.NewClassifier(client, "")
	labels, err := c.Classify(context.Background(), []string{"Oslo Oak Table", "Free Shipping Today", "Bergen Lounge Chair"})

	require.NoError(t, err)
	assert.Equal(t, []furnitron.Label{
		furnitron.LabelProductName,
		furnitron.LabelOther,
		furnitron.LabelProductName,
	}, labels)

	body := <-prompts
	assert.Contains(t, body, "2. Free Shipping Today")
	assert.Contains(t, body, "application/json")
}

func TestClassifier_Classify_EmptyBatch(t *testing.T) {
	t.Parallel()

	c := gemini.NewClassifier(nil, "")
	labels, err := c.Classify(context.Background(), nil)

	require.NoError(t, err)
	assert.Empty(t, labels)
}

func TestClassifier_Classify_CountMismatchIsInternal(t *testing.T) {
	t.Parallel()

	client := newClient(t, answer(`"[true]"`))

	_, err := gemini.NewClassifier(client, "").Classify(context.Background(), []string{"a b", "c d"})

	require.Error(t, err)
	assert.Equal(t, furnitron.EINTERNAL, furnitron.ErrorCode(err))
	assert.False(t, furnitron.IsTransient(err))
}

func TestClassifier_Classify_MalformedAnswerIsInternal(t *testing.T) {
	t.Parallel()

	client := newClient(t, answer(`"yes and no"`))

	_, err := gemini.NewClassifier(client, "").Classify(context.Background(), []string{"a b"})

	assert.Equal(t, furnitron.EINTERNAL, furnitron.ErrorCode(err))
}

func TestClassifier_Classify_BadRequestIsInvalid(t *testing.T) {
	t.Parallel()

	client := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		_, _ = io.WriteString(w, `{"error":{"code":400,"message":"bad schema","status":"INVALID_ARGUMENT"}}`)
	})

	_, err := gemini.NewClassifier(client, "").Classify(context.Background(), []string{"a b"})

	require.Error(t, err)
	assert.Equal(t, furnitron.EINVALID, furnitron.ErrorCode(err))
	assert.False(t, furnitron.IsTransient(err))
}

func TestClassifier_Classify_ServerErrorIsUnavailable(t *testing.T) {
	t.Parallel()

	client := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = io.WriteString(w, `{"error":{"code":503,"message":"overloaded","status":"UNAVAILABLE"}}`)
	})

	_, err := gemini.NewClassifier(client, "").Classify(context.Background(), []string{"a b"})

	require.Error(t, err)
	assert.Equal(t, furnitron.EUNAVAILABLE, furnitron.ErrorCode(err))
	assert.True(t, furnitron.IsTransient(err))
}

func TestBuildConfig_PinsResponseShape(t *testing.T) {
	t.Parallel()

	config := gemini.BuildConfig(3)

	require.NotNil(t, config.SystemInstruction)
	assert.Equal(t, "application/json", config.ResponseMIMEType)
	require.NotNil(t, config.ResponseSchema)
	assert.Equal(t, genai.TypeArray, config.ResponseSchema.Type)
	assert.Equal(t, genai.TypeBoolean, config.ResponseSchema.Items.Type)
	assert.Equal(t, int64(3), *config.ResponseSchema.MinItems)
	assert.Equal(t, int64(3), *config.ResponseSchema.MaxItems)
	require.NotNil(t, config.Temperature)
	assert.Zero(t, *config.Temperature)
}

func TestBuildPrompt_NumbersTexts(t *testing.T) {
	t.Parallel()

	prompt := gemini.BuildPrompt([]string{"Oslo Oak Table", "Sign In"})

	lines := strings.Split(strings.TrimSpace(prompt), "\n")
	assert.Equal(t, []string{
		"Classify these 2 fragments:",
		"1. Oslo Oak Table",
		"2. Sign In",
	}, lines)
}

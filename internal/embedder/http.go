package embedder

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// maxErrorBody bounds how much of a failed response is kept for the error.
const maxErrorBody = 4 << 10

// APIError is a non-2xx reply from an embedding endpoint.
type APIError struct {
	// Provider is the backend that answered ("openai", "ollama").
	Provider string
	// Status is the HTTP status code.
	Status int
	// Message is the provider's error text, or the raw body when it had none.
	Message string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("%s embedder: HTTP %d", e.Provider, e.Status)
	}
	return fmt.Sprintf("%s embedder: HTTP %d: %s", e.Provider, e.Status, e.Message)
}

// postJSON sends body to url and decodes a 2xx reply into out. On any other
// status it returns an *APIError whose message comes from errMessage, which
// receives the raw reply body.
func postJSON(ctx context.Context, client *http.Client, provider, url string, header http.Header, body, out any, errMessage func([]byte) string) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("%s embedder: marshal request: %w", provider, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("%s embedder: create request: %w", provider, err)
	}
	for k, v := range header {
		req.Header[k] = v
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("%s embedder: request failed: %w", provider, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		msg := errMessage(raw)
		if msg == "" {
			msg = strings.TrimSpace(string(raw))
		}
		return &APIError{Provider: provider, Status: resp.StatusCode, Message: msg}
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%s embedder: decode response: %w", provider, err)
	}
	return nil
}

// checkVectors verifies one vector per input text, all of the expected size
// when dims is set.
func checkVectors(provider string, vecs [][]float32, texts, dims int) error {
	if len(vecs) != texts {
		return fmt.Errorf("%s embedder: expected %d embeddings, got %d", provider, texts, len(vecs))
	}
	for i, v := range vecs {
		if len(v) == 0 {
			return fmt.Errorf("%s embedder: embedding %d is empty", provider, i)
		}
		if dims > 0 && len(v) != dims {
			return fmt.Errorf("%s embedder: embedding %d has %d dimensions, want %d", provider, i, len(v), dims)
		}
	}
	return nil
}

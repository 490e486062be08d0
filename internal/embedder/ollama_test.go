package embedder

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestOllamaEmbedder_Request(t *testing.T) {
	t.Parallel()

	var gotPath string
	var gotReq ollamaEmbedRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		if err := json.NewDecoder(r.Body).Decode(&gotReq); err != nil {
			t.Errorf("decode request: %v", err)
		}
		_, _ = w.Write([]byte(`{"model":"nomic-embed-text","embeddings":[[0.1,0.2,0.3],[0.4,0.5,0.6]]}`))
	}))
	t.Cleanup(srv.Close)

	// A trailing slash on the host must not produce "//api/embed".
	e := NewOllamaEmbedder(&OllamaConfig{
		Host:       srv.URL + "/",
		Model:      "nomic-embed-text",
		Dimensions: 3,
		KeepAlive:  "10m",
	})
	out, err := e.Embed(context.Background(), []string{"cláusula 1", "cláusula 2"})
	if err != nil {
		t.Fatalf("Embed: %v", err)
	}

	if gotPath != "/api/embed" {
		t.Errorf("path: got %q", gotPath)
	}
	if gotReq.Model != "nomic-embed-text" || !gotReq.Truncate || gotReq.KeepAlive != "10m" {
		t.Errorf("unexpected request body: %+v", gotReq)
	}
	if len(gotReq.Input) != 2 || gotReq.Input[1] != "cláusula 2" {
		t.Errorf("input: got %q", gotReq.Input)
	}
	if len(out) != 2 || out[1][2] != 0.6 {
		t.Errorf("embeddings: got %v", out)
	}
}

func TestOllamaEmbedder_Errors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		status  int
		body    string
		dims    int
		wantErr string
	}{
		{"model not pulled", http.StatusNotFound, `{"error":"model \"nomic-embed-text\" not found, try pulling it first"}`, 0, "ollama pull"},
		{"plain text failure", http.StatusInternalServerError, "llama runner process has terminated\n", 0, "llama runner process has terminated"},
		{"count mismatch", http.StatusOK, `{"embeddings":[[1,2]]}`, 0, "expected 2 embeddings"},
		{"empty vector", http.StatusOK, `{"embeddings":[[1,2],[]]}`, 0, "embedding 1 is empty"},
		{"wrong dimensions", http.StatusOK, `{"embeddings":[[1,2],[3,4]]}`, 768, "has 2 dimensions, want 768"},
		{"undecodable success", http.StatusOK, `not json`, 0, "decode response"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			t.Cleanup(srv.Close)

			e := NewOllamaEmbedder(&OllamaConfig{Host: srv.URL, Model: "nomic-embed-text", Dimensions: tt.dims})
			_, err := e.Embed(context.Background(), []string{"a", "b"})
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("expected error containing %q, got %v", tt.wantErr, err)
			}
			var apiErr *APIError
			if isHTTPFailure := tt.status != http.StatusOK; errors.As(err, &apiErr) != isHTTPFailure {
				t.Errorf("*APIError: got %v, want %v", errors.As(err, &apiErr), isHTTPFailure)
			}
		})
	}
}

func TestOllamaEmbedder_EmptyInputSkipsRequest(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		t.Error("no request expected for an empty batch")
	}))
	t.Cleanup(srv.Close)

	out, err := NewOllamaEmbedder(&OllamaConfig{Host: srv.URL, Model: "m"}).Embed(context.Background(), nil)
	if err != nil || out != nil {
		t.Errorf("expected nil, nil, got %v, %v", out, err)
	}
}

package embedder

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"
)

// OllamaConfig holds the settings for constructing an OllamaEmbedder.
type OllamaConfig struct {
	// Host is the daemon base URL, e.g. "http://localhost:11434".
	Host string
	// Model is the embedding model, e.g. "nomic-embed-text".
	Model string
	// Dimensions, when set, is checked against every returned vector. Ollama
	// cannot resize vectors, so a mismatch means the wrong model is pulled.
	Dimensions int
	// KeepAlive is how long the daemon keeps the model loaded after a batch,
	// in Ollama duration syntax ("5m", "-1"). Empty uses the daemon default.
	KeepAlive string
	// HTTPClient overrides the default client.
	HTTPClient *http.Client
}

// OllamaEmbedder embeds text with a local Ollama daemon via POST /api/embed.
// Over-long chunks are truncated by the daemon to the model's context rather
// than failing the batch.
type OllamaEmbedder struct {
	url       string
	model     string
	dims      int
	keepAlive string
	client    *http.Client
}

// NewOllamaEmbedder constructs an OllamaEmbedder from the given config.
func NewOllamaEmbedder(cfg *OllamaConfig) *OllamaEmbedder {
	client := cfg.HTTPClient
	if client == nil {
		// First calls after a pull include model load time.
		client = &http.Client{Timeout: 5 * time.Minute}
	}
	return &OllamaEmbedder{
		url:       strings.TrimRight(cfg.Host, "/") + "/api/embed",
		model:     cfg.Model,
		dims:      cfg.Dimensions,
		keepAlive: cfg.KeepAlive,
		client:    client,
	}
}

type ollamaEmbedRequest struct {
	Model     string   `json:"model"`
	Input     []string `json:"input"`
	Truncate  bool     `json:"truncate"`
	KeepAlive string   `json:"keep_alive,omitempty"`
}

type ollamaEmbedResponse struct {
	Model      string      `json:"model"`
	Embeddings [][]float32 `json:"embeddings"`
}

// Embed returns one vector per text, in input order.
func (e *OllamaEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	var out ollamaEmbedResponse
	err := postJSON(ctx, e.client, "ollama", e.url, nil, ollamaEmbedRequest{
		Model:     e.model,
		Input:     texts,
		Truncate:  true,
		KeepAlive: e.keepAlive,
	}, &out, ollamaErrorMessage)
	if err != nil {
		return nil, err
	}
	if err := checkVectors("ollama", out.Embeddings, len(texts), e.dims); err != nil {
		return nil, err
	}
	return out.Embeddings, nil
}

// ollamaErrorMessage extracts {"error": "..."} from a failed reply. A missing
// model is reported with the pull command that fixes it.
func ollamaErrorMessage(body []byte) string {
	var e struct {
		Error string `json:"error"`
	}
	if json.Unmarshal(body, &e) != nil {
		return ""
	}
	if strings.Contains(e.Error, "not found") && strings.Contains(e.Error, "model") {
		return e.Error + " (run `ollama pull <model>` first)"
	}
	return e.Error
}

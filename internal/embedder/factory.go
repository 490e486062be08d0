package embedder

import (
	"context"
	"fmt"

	"github.com/54b3r/pdfchat-go/internal/config"
	"github.com/54b3r/pdfchat-go/internal/rag"
)

// Default embedding models per backend.
const (
	defaultOpenAIModel = "text-embedding-3-small"
	defaultGeminiModel = "text-embedding-004"
	defaultOllamaModel = "nomic-embed-text"

	defaultOpenAIBaseURL = "https://api.openai.com/v1"
)

// ModelName returns the embedding model the settings resolve to.
func ModelName(s *config.Settings) string {
	if s.EmbeddingModel != "" {
		return s.EmbeddingModel
	}
	switch s.EmbeddingProvider {
	case config.ProviderGemini:
		return defaultGeminiModel
	case config.ProviderOllama:
		return defaultOllamaModel
	default:
		return defaultOpenAIModel
	}
}

// New constructs the rag.Embedder selected by s.EmbeddingProvider. It is the
// only place the provider string is inspected; callers receive an interface
// and never branch on the provider again.
//
// A missing API key surfaces here as a *config.MissingCredentialError.
func New(ctx context.Context, s *config.Settings) (rag.Embedder, error) {
	key, err := s.APIKey(s.EmbeddingProvider)
	if err != nil {
		return nil, fmt.Errorf("embedder: %w", err)
	}
	model := ModelName(s)

	switch s.EmbeddingProvider {
	case config.ProviderOpenAI:
		baseURL := s.OpenAIBaseURL
		if baseURL == "" {
			baseURL = defaultOpenAIBaseURL
		}
		return NewOpenAIEmbedder(&OpenAIConfig{
			BaseURL:    baseURL,
			APIKey:     key,
			Model:      model,
			Dimensions: s.EmbeddingDimensions,
		}), nil

	case config.ProviderGemini:
		return NewGeminiEmbedder(ctx, &GeminiConfig{
			APIKey:     key,
			Model:      model,
			Dimensions: s.EmbeddingDimensions,
		})

	case config.ProviderOllama:
		return NewOllamaEmbedder(&OllamaConfig{
			Host:       s.OllamaHost,
			Model:      model,
			Dimensions: s.EmbeddingDimensions,
		}), nil

	default:
		return nil, fmt.Errorf("embedder: unknown backend %q: valid values are openai, gemini, ollama", s.EmbeddingProvider)
	}
}

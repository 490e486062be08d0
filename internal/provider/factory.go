package provider

import (
	"context"
	"fmt"

	"github.com/cloudwego/eino/components/model"

	"github.com/54b3r/pdfchat-go/internal/config"
)

// ConfigFromSettings resolves the chat model Config for s.LLMProvider.
// A missing API key is reported as a *config.MissingCredentialError.
func ConfigFromSettings(s *config.Settings) (*Config, error) {
	key, err := s.APIKey(s.LLMProvider)
	if err != nil {
		return nil, fmt.Errorf("provider: %w", err)
	}

	cfg := &Config{
		Backend:     s.LLMProvider,
		Model:       s.LLMModel,
		APIKey:      key,
		Temperature: s.LLMTemperature,
	}

	switch s.LLMProvider {
	case config.ProviderOpenAI:
		cfg.BaseURL = s.OpenAIBaseURL
		if cfg.Model == "" {
			cfg.Model = DefaultOpenAIModel
		}
	case config.ProviderGemini:
		if cfg.Model == "" {
			cfg.Model = DefaultGeminiModel
		}
	case config.ProviderOllama:
		cfg.BaseURL = s.OllamaHost
		if cfg.Model == "" {
			cfg.Model = DefaultOllamaModel
		}
	}

	return cfg, nil
}

// NewFromSettings constructs the chat model selected by s.LLMProvider.
func NewFromSettings(ctx context.Context, s *config.Settings) (model.BaseChatModel, error) {
	cfg, err := ConfigFromSettings(s)
	if err != nil {
		return nil, err
	}
	return New(ctx, cfg)
}

// New constructs a chat model from an explicit Config. It validates the
// config first so callers get a clear error at startup rather than on the
// first question.
func New(ctx context.Context, cfg *Config) (model.BaseChatModel, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	switch cfg.Backend {
	case config.ProviderOpenAI:
		return newOpenAI(ctx, cfg)
	case config.ProviderGemini:
		return newGemini(ctx, cfg)
	case config.ProviderOllama:
		return newOllama(ctx, cfg)
	default:
		return nil, fmt.Errorf("provider: unknown backend %q", cfg.Backend)
	}
}

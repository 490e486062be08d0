// Package provider selects and constructs the chat model that turns a filled
// prompt into an answer. Supported backends: OpenAI, Google Gemini, Ollama.
// Every backend is exposed as an eino model.BaseChatModel so the answer
// pipeline never branches on the provider.
package provider

import (
	"fmt"

	"github.com/54b3r/pdfchat-go/internal/config"
)

// Default chat models per backend.
const (
	DefaultOpenAIModel = "gpt-4o-mini"
	DefaultGeminiModel = "gemini-2.5-flash-lite"
	DefaultOllamaModel = "llama3.2"
)

// Config holds the resolved settings for one chat model backend.
type Config struct {
	// Backend identifies which inference provider to use.
	Backend config.Provider

	// Model is the model name (e.g. "gpt-4o-mini").
	Model string

	// APIKey is the credential for the selected provider. Unused for Ollama.
	APIKey string

	// BaseURL overrides the default API endpoint (OpenAI-compatible or Ollama host).
	BaseURL string

	// Temperature controls sampling. nil keeps the backend default, except
	// for OpenAI which is pinned to 0 for deterministic answers.
	Temperature *float32
}

// Validate checks the config is complete for its backend.
func (c *Config) Validate() error {
	if c.Model == "" {
		return fmt.Errorf("provider: model name is required for %s backend", c.Backend)
	}
	switch c.Backend {
	case config.ProviderOpenAI:
		if c.APIKey == "" {
			return &config.MissingCredentialError{Provider: c.Backend, EnvVar: "OPENAI_API_KEY"}
		}
	case config.ProviderGemini:
		if c.APIKey == "" {
			return &config.MissingCredentialError{Provider: c.Backend, EnvVar: "GOOGLE_API_KEY"}
		}
	case config.ProviderOllama:
		if c.BaseURL == "" {
			return fmt.Errorf("provider: OLLAMA_HOST is required for ollama backend")
		}
	default:
		return fmt.Errorf("provider: unknown backend %q: valid values are openai, gemini, ollama", c.Backend)
	}
	return nil
}

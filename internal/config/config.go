// Package config resolves pdfchat settings.
//
// Values are layered with the following precedence (highest first):
//  1. process environment
//  2. a .env file in the project root (never overrides the environment)
//  3. a YAML config file, applied as environment defaults
//  4. built-in defaults (see [FromEnv])
//
// YAML file search order:
//  1. --config CLI flag (explicit path)
//  2. PDFCHAT_CONFIG environment variable
//  3. ./.pdfchat.yaml
//  4. ~/.pdfchat/config.yaml
//
// If no file is found the system runs entirely from env vars.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// File is the top-level YAML configuration structure.
// Field names use yaml tags that mirror the env var naming (lowercase, underscored).
type File struct {
	// PDFPath is the document to ingest, relative to the project root.
	PDFPath string `yaml:"pdf_path"`

	// LLM configures the chat model provider.
	LLM LLMFile `yaml:"llm"`

	// Embedding configures the embedding provider.
	Embedding EmbeddingFile `yaml:"embedding"`

	// Credentials holds provider API keys. Prefer env vars.
	Credentials CredentialsFile `yaml:"credentials"`

	// Postgres configures the pgvector connection.
	Postgres PostgresFile `yaml:"postgres"`

	// Store selects and tunes the vector store.
	Store StoreFile `yaml:"store"`

	// Qdrant configures the alternate Qdrant vector store.
	Qdrant QdrantFile `yaml:"qdrant"`

	// Ingestion tunes chunking and embedding batches.
	Ingestion IngestionFile `yaml:"ingestion"`

	// Server configures the HTTP API.
	Server ServerFile `yaml:"server"`

	// Logging configures structured logging.
	Logging LoggingFile `yaml:"logging"`

	// Ledger configures the ingestion ledger.
	Ledger LedgerFile `yaml:"ledger"`

	// Tracing configures Langfuse tracing integration.
	Tracing TracingFile `yaml:"tracing"`
}

// LLMFile holds chat model settings.
type LLMFile struct {
	// Provider selects the backend: openai, gemini, ollama.
	Provider string `yaml:"provider"`
	// Model overrides the provider's default chat model.
	Model string `yaml:"model"`
	// Temperature controls response randomness.
	Temperature float32 `yaml:"temperature"`
	// MaxPromptTokens is the prompt size above which a warning is logged.
	MaxPromptTokens int `yaml:"max_prompt_tokens"`
}

// EmbeddingFile holds embedding provider settings.
type EmbeddingFile struct {
	// Provider selects the backend: openai, gemini, ollama.
	Provider string `yaml:"provider"`
	// Model overrides the provider's default embedding model.
	Model string `yaml:"model"`
	// Dimensions overrides the embedding vector size.
	Dimensions int `yaml:"dimensions"`
}

// CredentialsFile holds provider endpoints and keys.
type CredentialsFile struct {
	// OpenAIAPIKey is the OpenAI API key. Prefer env var OPENAI_API_KEY.
	OpenAIAPIKey string `yaml:"openai_api_key"`
	// OpenAIBaseURL overrides the OpenAI-compatible endpoint.
	OpenAIBaseURL string `yaml:"openai_base_url"`
	// GoogleAPIKey is the Gemini API key. Prefer env var GOOGLE_API_KEY.
	GoogleAPIKey string `yaml:"google_api_key"`
	// OllamaHost is the Ollama API endpoint.
	OllamaHost string `yaml:"ollama_host"`
}

// PostgresFile holds pgvector connection settings.
type PostgresFile struct {
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	DB       string `yaml:"db"`
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
}

// StoreFile holds vector store selection.
type StoreFile struct {
	// Backend is pgvector or qdrant.
	Backend string `yaml:"backend"`
	// Collection is the collection the document is written to.
	Collection string `yaml:"collection"`
	// TopK is the number of chunks retrieved per question.
	TopK int `yaml:"top_k"`
}

// QdrantFile holds Qdrant connection settings.
type QdrantFile struct {
	// Host is the Qdrant server hostname.
	Host string `yaml:"host"`
	// Port is the Qdrant gRPC port.
	Port int `yaml:"port"`
	// APIKey is the Qdrant API key. Prefer env var QDRANT_API_KEY.
	APIKey string `yaml:"api_key"`
	// TLS enables TLS for the Qdrant connection.
	TLS bool `yaml:"tls"`
}

// IngestionFile holds chunking settings.
type IngestionFile struct {
	ChunkSize      int `yaml:"chunk_size"`
	ChunkOverlap   int `yaml:"chunk_overlap"`
	EmbedBatchSize int `yaml:"embed_batch_size"`
}

// ServerFile holds HTTP server settings.
type ServerFile struct {
	// Host is the bind address.
	Host string `yaml:"host"`
	// Port is the TCP port.
	Port int `yaml:"port"`
	// APIKey is the Bearer token for API authentication. Prefer env var PDFCHAT_API_KEY.
	APIKey string `yaml:"api_key"`
	// RateLimitRPS is the sustained per-IP request rate on POST /api/ask.
	RateLimitRPS float32 `yaml:"rate_limit_rps"`
	// RateLimitBurst is the per-IP burst on POST /api/ask.
	RateLimitBurst int `yaml:"rate_limit_burst"`
}

// LoggingFile holds structured logging settings.
type LoggingFile struct {
	// Level is the minimum log level: debug, info, warn, error.
	Level string `yaml:"level"`
	// Format is the log output format: json, text.
	Format string `yaml:"format"`
}

// LedgerFile holds ingestion ledger settings.
type LedgerFile struct {
	// DBPath is the SQLite database path. Set to "disabled" to disable.
	DBPath string `yaml:"db_path"`
}

// TracingFile holds Langfuse tracing settings.
type TracingFile struct {
	// PublicKey is the Langfuse public key. Prefer env var LANGFUSE_PUBLIC_KEY.
	PublicKey string `yaml:"public_key"`
	// SecretKey is the Langfuse secret key. Prefer env var LANGFUSE_SECRET_KEY.
	SecretKey string `yaml:"secret_key"`
	// Host is the Langfuse API host.
	Host string `yaml:"host"`
}

// envMapping maps YAML config fields to their corresponding env var names.
// Only non-empty YAML values are applied; env vars always take precedence.
var envMapping = []struct {
	envKey string
	value  func(*File) string
}{
	{"PDF_PATH", func(c *File) string { return c.PDFPath }},
	{"LLM_PROVIDER", func(c *File) string { return c.LLM.Provider }},
	{"LLM_MODEL", func(c *File) string { return c.LLM.Model }},
	{"LLM_TEMPERATURE", func(c *File) string { return float32Str(c.LLM.Temperature) }},
	{"PDFCHAT_MAX_PROMPT_TOKENS", func(c *File) string { return intStr(c.LLM.MaxPromptTokens) }},
	{"EMBEDDING_PROVIDER", func(c *File) string { return c.Embedding.Provider }},
	{"EMBEDDING_MODEL", func(c *File) string { return c.Embedding.Model }},
	{"EMBEDDING_DIMENSIONS", func(c *File) string { return intStr(c.Embedding.Dimensions) }},
	{"OPENAI_API_KEY", func(c *File) string { return c.Credentials.OpenAIAPIKey }},
	{"OPENAI_BASE_URL", func(c *File) string { return c.Credentials.OpenAIBaseURL }},
	{"GOOGLE_API_KEY", func(c *File) string { return c.Credentials.GoogleAPIKey }},
	{"OLLAMA_HOST", func(c *File) string { return c.Credentials.OllamaHost }},
	{"POSTGRES_USER", func(c *File) string { return c.Postgres.User }},
	{"POSTGRES_PASSWORD", func(c *File) string { return c.Postgres.Password }},
	{"POSTGRES_DB", func(c *File) string { return c.Postgres.DB }},
	{"POSTGRES_HOST", func(c *File) string { return c.Postgres.Host }},
	{"POSTGRES_PORT", func(c *File) string { return intStr(c.Postgres.Port) }},
	{"VECTOR_STORE", func(c *File) string { return c.Store.Backend }},
	{"COLLECTION_NAME", func(c *File) string { return c.Store.Collection }},
	{"SEARCH_TOP_K", func(c *File) string { return intStr(c.Store.TopK) }},
	{"QDRANT_HOST", func(c *File) string { return c.Qdrant.Host }},
	{"QDRANT_PORT", func(c *File) string { return intStr(c.Qdrant.Port) }},
	{"QDRANT_API_KEY", func(c *File) string { return c.Qdrant.APIKey }},
	{"QDRANT_TLS", func(c *File) string { return boolStr(c.Qdrant.TLS) }},
	{"CHUNK_SIZE", func(c *File) string { return intStr(c.Ingestion.ChunkSize) }},
	{"CHUNK_OVERLAP", func(c *File) string { return intStr(c.Ingestion.ChunkOverlap) }},
	{"EMBED_BATCH_SIZE", func(c *File) string { return intStr(c.Ingestion.EmbedBatchSize) }},
	{"PDFCHAT_HOST", func(c *File) string { return c.Server.Host }},
	{"PDFCHAT_PORT", func(c *File) string { return intStr(c.Server.Port) }},
	{"PDFCHAT_API_KEY", func(c *File) string { return c.Server.APIKey }},
	{"PDFCHAT_RATE_LIMIT_RPS", func(c *File) string { return float32Str(c.Server.RateLimitRPS) }},
	{"PDFCHAT_RATE_LIMIT_BURST", func(c *File) string { return intStr(c.Server.RateLimitBurst) }},
	{"LOG_LEVEL", func(c *File) string { return c.Logging.Level }},
	{"LOG_FORMAT", func(c *File) string { return c.Logging.Format }},
	{"PDFCHAT_LEDGER_DB", func(c *File) string { return c.Ledger.DBPath }},
	{"LANGFUSE_PUBLIC_KEY", func(c *File) string { return c.Tracing.PublicKey }},
	{"LANGFUSE_SECRET_KEY", func(c *File) string { return c.Tracing.SecretKey }},
	{"LANGFUSE_HOST", func(c *File) string { return c.Tracing.Host }},
}

// LoadDotEnv loads the .env file found in root into the process environment.
// Variables already present in the environment are left untouched.
// A missing file is not an error. Returns the path loaded, or "".
func LoadDotEnv(root string, log *slog.Logger) (string, error) {
	path := filepath.Join(root, ".env")
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			log.Debug("config: no .env file found", slog.String("path", path))
			return "", nil
		}
		return "", fmt.Errorf("config: failed to load %s: %w", path, err)
	}
	log.Debug("config: loaded .env file", slog.String("path", path))
	return path, nil
}

// Load reads a YAML config file and applies non-empty values as environment
// variables. Existing env vars are never overwritten (env always wins).
// Returns the path that was loaded, or empty string if no file was found.
func Load(explicitPath string, log *slog.Logger) (string, error) {
	path := resolveConfigPath(explicitPath)
	if path == "" {
		log.Debug("config: no YAML config file found, using env vars only")
		return "", nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("config: failed to read %s: %w", path, err)
	}

	var cfg File
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return "", fmt.Errorf("config: failed to parse %s: %w", path, err)
	}

	applied := 0
	for _, m := range envMapping {
		yamlVal := m.value(&cfg)
		if yamlVal == "" {
			continue
		}
		if _, set := os.LookupEnv(m.envKey); set {
			continue
		}
		if err := os.Setenv(m.envKey, yamlVal); err != nil {
			return "", fmt.Errorf("config: failed to apply %s: %w", m.envKey, err)
		}
		applied++
	}

	log.Info("config: loaded YAML config",
		slog.String("path", path),
		slog.Int("keys_applied", applied),
	)

	return path, nil
}

// resolveConfigPath returns the first config file path that exists.
func resolveConfigPath(explicit string) string {
	if explicit != "" {
		if _, err := os.Stat(explicit); err == nil {
			return explicit
		}
		return ""
	}

	if envPath := os.Getenv("PDFCHAT_CONFIG"); envPath != "" {
		if _, err := os.Stat(envPath); err == nil {
			return envPath
		}
	}

	if _, err := os.Stat(".pdfchat.yaml"); err == nil {
		return ".pdfchat.yaml"
	}

	home, err := os.UserHomeDir()
	if err == nil {
		p := filepath.Join(home, ".pdfchat", "config.yaml")
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}

	return ""
}

// intStr converts an int to string, returning "" for zero values.
func intStr(v int) string {
	if v == 0 {
		return ""
	}
	return fmt.Sprintf("%d", v)
}

// float32Str converts a float32 to string, returning "" for zero values.
func float32Str(v float32) string {
	if v == 0 {
		return ""
	}
	return strings.TrimRight(strings.TrimRight(fmt.Sprintf("%.4f", v), "0"), ".")
}

// boolStr converts a bool to string, returning "" for false.
func boolStr(v bool) string {
	if !v {
		return ""
	}
	return "true"
}

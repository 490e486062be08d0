package config

import (
	"fmt"
	"net"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// Provider identifies an embedding or chat model backend.
type Provider string

const (
	// ProviderOpenAI uses the OpenAI API. Requires OPENAI_API_KEY.
	ProviderOpenAI Provider = "openai"
	// ProviderGemini uses the Google Gemini API. Requires GOOGLE_API_KEY.
	ProviderGemini Provider = "gemini"
	// ProviderOllama uses a local Ollama daemon. No key required.
	ProviderOllama Provider = "ollama"
)

// StoreBackend identifies the vector store implementation.
type StoreBackend string

const (
	// StorePGVector stores chunks in Postgres via the pgvector extension.
	StorePGVector StoreBackend = "pgvector"
	// StoreQdrant stores chunks in a Qdrant collection.
	StoreQdrant StoreBackend = "qdrant"
)

const (
	// DefaultPDFPath is the document ingested when PDF_PATH is unset.
	DefaultPDFPath = "document.pdf"
	// DefaultCollection is the vector store collection shared by ingest and chat.
	DefaultCollection = "pdf_documents"
	// DefaultChunkSize is the target chunk length in characters.
	DefaultChunkSize = 1000
	// DefaultChunkOverlap is the number of characters shared by consecutive chunks.
	DefaultChunkOverlap = 150
	// DefaultTopK is the number of chunks retrieved per question.
	DefaultTopK = 10
	// DefaultEmbedBatchSize is the number of texts sent per embedding request.
	DefaultEmbedBatchSize = 100
)

// Settings is the resolved runtime configuration. It is built once at
// process start by [FromEnv] and passed by reference to both pipelines.
type Settings struct {
	// ProjectRoot anchors relative paths such as PDFPath.
	ProjectRoot string

	// PDFPath is the configured document path, possibly relative.
	PDFPath string

	// EmbeddingProvider selects the embedding backend.
	EmbeddingProvider Provider
	// EmbeddingModel overrides the provider's default embedding model.
	EmbeddingModel string
	// EmbeddingDimensions overrides the provider's default vector size.
	EmbeddingDimensions int

	// LLMProvider selects the chat model backend.
	LLMProvider Provider
	// LLMModel overrides the provider's default chat model.
	LLMModel string
	// LLMTemperature is nil when unset so each provider keeps its default.
	LLMTemperature *float32
	// MaxPromptTokens is the estimated prompt size above which a warning is logged.
	MaxPromptTokens int

	// OpenAIAPIKey authenticates against OpenAI.
	OpenAIAPIKey string
	// OpenAIBaseURL overrides the OpenAI-compatible endpoint.
	OpenAIBaseURL string
	// GoogleAPIKey authenticates against the Gemini API.
	GoogleAPIKey string
	// OllamaHost is the Ollama API endpoint.
	OllamaHost string

	// Postgres holds the pgvector connection parameters.
	Postgres PostgresSettings

	// VectorStore selects the vector store backend.
	VectorStore StoreBackend
	// Collection is the collection chunks are written to and read from.
	Collection string
	// TopK is the number of chunks retrieved per question.
	TopK int

	// Qdrant holds the Qdrant connection parameters.
	Qdrant QdrantSettings

	// ChunkSize is the maximum chunk length in characters.
	ChunkSize int
	// ChunkOverlap is the number of characters shared by consecutive chunks.
	ChunkOverlap int
	// EmbedBatchSize is the number of texts sent per embedding request.
	EmbedBatchSize int
}

// PostgresSettings holds the Postgres connection parameters.
type PostgresSettings struct {
	User     string
	Password string
	DB       string
	Host     string
	Port     int
}

// ConnectionString renders the settings as
// postgresql://{user}:{password}@{host}:{port}/{db}.
func (p PostgresSettings) ConnectionString() string {
	u := url.URL{
		Scheme: "postgresql",
		User:   url.UserPassword(p.User, p.Password),
		Host:   net.JoinHostPort(p.Host, strconv.Itoa(p.Port)),
		Path:   "/" + p.DB,
	}
	return u.String()
}

// QdrantSettings holds the Qdrant connection parameters.
type QdrantSettings struct {
	Host   string
	Port   int
	APIKey string
	TLS    bool
}

// FromEnv resolves [Settings] from the environment, applying defaults for
// every unset variable. It fails only on malformed values; missing API keys
// are reported later by [Settings.APIKey] when a client is constructed.
func FromEnv() (*Settings, error) {
	s := &Settings{
		ProjectRoot:         ProjectRoot(),
		PDFPath:             getEnvOrDefault("PDF_PATH", DefaultPDFPath),
		EmbeddingModel:      os.Getenv("EMBEDDING_MODEL"),
		EmbeddingDimensions: getEnvInt("EMBEDDING_DIMENSIONS", 0),
		LLMModel:            os.Getenv("LLM_MODEL"),
		MaxPromptTokens:     getEnvInt("PDFCHAT_MAX_PROMPT_TOKENS", 0),
		OpenAIAPIKey:        os.Getenv("OPENAI_API_KEY"),
		OpenAIBaseURL:       os.Getenv("OPENAI_BASE_URL"),
		GoogleAPIKey:        os.Getenv("GOOGLE_API_KEY"),
		OllamaHost:          getEnvOrDefault("OLLAMA_HOST", "http://localhost:11434"),
		Postgres: PostgresSettings{
			User:     getEnvOrDefault("POSTGRES_USER", "postgres"),
			Password: getEnvOrDefault("POSTGRES_PASSWORD", "postgres"),
			DB:       getEnvOrDefault("POSTGRES_DB", "rag"),
			Host:     getEnvOrDefault("POSTGRES_HOST", "localhost"),
			Port:     getEnvInt("POSTGRES_PORT", 5432),
		},
		Collection: getEnvOrDefault("COLLECTION_NAME", DefaultCollection),
		TopK:       getEnvInt("SEARCH_TOP_K", DefaultTopK),
		Qdrant: QdrantSettings{
			Host:   getEnvOrDefault("QDRANT_HOST", "localhost"),
			Port:   getEnvInt("QDRANT_PORT", 6334),
			APIKey: os.Getenv("QDRANT_API_KEY"),
			TLS:    os.Getenv("QDRANT_TLS") == "true",
		},
		ChunkSize:      getEnvInt("CHUNK_SIZE", DefaultChunkSize),
		ChunkOverlap:   getEnvInt("CHUNK_OVERLAP", DefaultChunkOverlap),
		EmbedBatchSize: getEnvInt("EMBED_BATCH_SIZE", DefaultEmbedBatchSize),
	}

	var err error
	if s.EmbeddingProvider, err = parseProvider("EMBEDDING_PROVIDER"); err != nil {
		return nil, err
	}
	if s.LLMProvider, err = parseProvider("LLM_PROVIDER"); err != nil {
		return nil, err
	}

	switch backend := StoreBackend(strings.ToLower(getEnvOrDefault("VECTOR_STORE", string(StorePGVector)))); backend {
	case StorePGVector, StoreQdrant:
		s.VectorStore = backend
	default:
		return nil, fmt.Errorf("config: unsupported VECTOR_STORE %q: must be one of pgvector, qdrant", backend)
	}

	if raw := os.Getenv("LLM_TEMPERATURE"); raw != "" {
		v, err := strconv.ParseFloat(raw, 32)
		if err != nil {
			return nil, fmt.Errorf("config: invalid LLM_TEMPERATURE %q: %w", raw, err)
		}
		t := float32(v)
		s.LLMTemperature = &t
	}

	if s.ChunkSize <= 0 {
		return nil, fmt.Errorf("config: CHUNK_SIZE must be positive, got %d", s.ChunkSize)
	}
	if s.ChunkOverlap < 0 || s.ChunkOverlap >= s.ChunkSize {
		return nil, fmt.Errorf("config: CHUNK_OVERLAP must be in [0, %d), got %d", s.ChunkSize, s.ChunkOverlap)
	}
	if s.TopK <= 0 {
		return nil, fmt.Errorf("config: SEARCH_TOP_K must be positive, got %d", s.TopK)
	}

	return s, nil
}

// APIKey returns the credential required by p, or a [*MissingCredentialError]
// when it is absent. Ollama needs no key and always returns "".
func (s *Settings) APIKey(p Provider) (string, error) {
	switch p {
	case ProviderOpenAI:
		if s.OpenAIAPIKey == "" {
			return "", &MissingCredentialError{Provider: p, EnvVar: "OPENAI_API_KEY"}
		}
		return s.OpenAIAPIKey, nil
	case ProviderGemini:
		if s.GoogleAPIKey == "" {
			return "", &MissingCredentialError{Provider: p, EnvVar: "GOOGLE_API_KEY"}
		}
		return s.GoogleAPIKey, nil
	default:
		return "", nil
	}
}

// ProjectRoot returns the directory relative paths are resolved against:
// PROJECT_ROOT when set, otherwise the nearest ancestor of the working
// directory that holds a go.mod or .env file, otherwise the working directory.
func ProjectRoot() string {
	if root := os.Getenv("PROJECT_ROOT"); root != "" {
		if abs, err := filepath.Abs(root); err == nil {
			return abs
		}
		return root
	}

	wd, err := os.Getwd()
	if err != nil {
		return "."
	}
	for dir := wd; ; {
		for _, marker := range []string{"go.mod", ".env"} {
			if _, err := os.Stat(filepath.Join(dir, marker)); err == nil {
				return dir
			}
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return wd
		}
		dir = parent
	}
}

// parseProvider reads a provider env var, defaulting to openai.
func parseProvider(key string) (Provider, error) {
	p := Provider(strings.ToLower(strings.TrimSpace(getEnvOrDefault(key, string(ProviderOpenAI)))))
	switch p {
	case ProviderOpenAI, ProviderGemini, ProviderOllama:
		return p, nil
	default:
		return "", fmt.Errorf("config: unsupported %s %q: must be one of openai, gemini, ollama", key, p)
	}
}

// getEnvOrDefault returns the value of key, or fallback when unset or empty.
func getEnvOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// getEnvInt returns key parsed as an int, or fallback when unset or invalid.
func getEnvInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

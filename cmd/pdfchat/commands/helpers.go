package commands

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strconv"

	"github.com/54b3r/pdfchat-go/internal/answer"
	"github.com/54b3r/pdfchat-go/internal/config"
	"github.com/54b3r/pdfchat-go/internal/embedder"
	"github.com/54b3r/pdfchat-go/internal/ledger"
	"github.com/54b3r/pdfchat-go/internal/provider"
	"github.com/54b3r/pdfchat-go/internal/rag"
	"github.com/54b3r/pdfchat-go/internal/tracing"
)

// buildStore connects to the vector store selected by s.VectorStore. Only
// ingestion passes createSchema; query commands never issue DDL.
func buildStore(ctx context.Context, s *config.Settings, log *slog.Logger, createSchema bool) (rag.VectorStore, error) {
	switch s.VectorStore {
	case config.StoreQdrant:
		store, err := rag.NewQdrantStore(&rag.QdrantConfig{
			Host:       s.Qdrant.Host,
			Port:       s.Qdrant.Port,
			Collection: s.Collection,
			APIKey:     s.Qdrant.APIKey,
			UseTLS:     s.Qdrant.TLS,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to connect to Qdrant at %s:%d: %w", s.Qdrant.Host, s.Qdrant.Port, err)
		}
		log.Info("qdrant store ready",
			slog.String("host", s.Qdrant.Host),
			slog.Int("port", s.Qdrant.Port),
			slog.String("collection", s.Collection),
		)
		return store, nil
	default:
		store, err := rag.NewPGVectorStore(ctx, &rag.PGVectorConfig{
			ConnString:   s.Postgres.ConnectionString(),
			Collection:   s.Collection,
			CreateSchema: createSchema,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to connect to Postgres at %s:%d: %w", s.Postgres.Host, s.Postgres.Port, err)
		}
		log.Info("pgvector store ready",
			slog.String("host", s.Postgres.Host),
			slog.String("db", s.Postgres.DB),
			slog.String("collection", s.Collection),
		)
		return store, nil
	}
}

// buildEmbedder constructs the configured embedder. A missing API key
// surfaces here as a *config.MissingCredentialError.
func buildEmbedder(ctx context.Context, s *config.Settings, log *slog.Logger) (rag.Embedder, error) {
	embedder.Validate(log, s)
	emb, err := embedder.New(ctx, s)
	if err != nil {
		return nil, err
	}
	log.Info("embedder initialised",
		slog.String("provider", string(s.EmbeddingProvider)),
		slog.String("model", embedder.ModelName(s)),
	)
	return emb, nil
}

// pipeline bundles what the answering commands share.
type pipeline struct {
	answerer *answer.Answerer
	store    rag.VectorStore
	close    func()
}

// buildAnswerer wires embedder, store, and chat model into an Answerer and
// enables tracing when configured. The caller must invoke close.
func buildAnswerer(ctx context.Context, s *config.Settings, log *slog.Logger) (*pipeline, error) {
	emb, err := buildEmbedder(ctx, s, log)
	if err != nil {
		return nil, err
	}

	chatModel, err := provider.NewFromSettings(ctx, s)
	if err != nil {
		return nil, err
	}
	log.Info("chat model initialised", slog.String("provider", string(s.LLMProvider)))

	store, err := buildStore(ctx, s, log, false)
	if err != nil {
		return nil, err
	}

	warnEmbeddingMismatch(ctx, s, log)

	a, err := answer.New(answer.Config{
		Embedder:        emb,
		Store:           store,
		ChatModel:       chatModel,
		TopK:            s.TopK,
		MaxPromptTokens: s.MaxPromptTokens,
		Logger:          log,
	})
	if err != nil {
		_ = store.Close()
		return nil, err
	}

	flush := tracing.Setup(log)
	return &pipeline{
		answerer: a,
		store:    store,
		close: func() {
			flush()
			_ = store.Close()
		},
	}, nil
}

// openLedger opens the ingestion ledger. PDFCHAT_LEDGER_DB overrides the
// default path (~/.pdfchat/ledger.db); "disabled" turns it off. Failures
// disable the ledger with a warning rather than failing the command.
func openLedger(log *slog.Logger) (ledger.Ledger, func()) {
	noop := func() {}
	path := os.Getenv("PDFCHAT_LEDGER_DB")
	if path == "disabled" {
		log.Info("ledger: disabled via PDFCHAT_LEDGER_DB=disabled")
		return nil, noop
	}
	if path == "" {
		var err error
		path, err = ledger.DefaultDBPath()
		if err != nil {
			log.Warn("ledger: could not resolve default DB path, disabling", slog.Any("error", err))
			return nil, noop
		}
	}
	l, err := ledger.Open(path)
	if err != nil {
		log.Warn("ledger: failed to open, disabling", slog.Any("error", err))
		return nil, noop
	}
	log.Debug("ledger: opened", slog.String("path", path))
	return l, func() { _ = l.Close() }
}

// warnEmbeddingMismatch logs when the collection was last populated with a
// different embedding provider or model than the one now configured.
func warnEmbeddingMismatch(ctx context.Context, s *config.Settings, log *slog.Logger) {
	l, closeLedger := openLedger(log)
	defer closeLedger()
	if l == nil {
		return
	}

	run, err := l.Latest(ctx, s.Collection)
	if err != nil {
		log.Warn("ledger: lookup failed", slog.Any("error", err))
		return
	}
	if run == nil {
		log.Warn("no ingestion recorded for collection; run `pdfchat ingest` first",
			slog.String("collection", s.Collection))
		return
	}
	model := embedder.ModelName(s)
	if run.EmbeddingProvider != string(s.EmbeddingProvider) || run.EmbeddingModel != model {
		log.Warn("collection was ingested with a different embedding model; similarity scores will be meaningless",
			slog.String("collection", s.Collection),
			slog.String("ingested_provider", run.EmbeddingProvider),
			slog.String("ingested_model", run.EmbeddingModel),
			slog.String("configured_provider", string(s.EmbeddingProvider)),
			slog.String("configured_model", model),
		)
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
	n, err := strconv.Atoi(os.Getenv(key))
	if err != nil {
		return fallback
	}
	return n
}

// getEnvFloat returns key parsed as a float64, or fallback when unset or invalid.
func getEnvFloat(key string, fallback float64) float64 {
	f, err := strconv.ParseFloat(os.Getenv(key), 64)
	if err != nil {
		return fallback
	}
	return f
}

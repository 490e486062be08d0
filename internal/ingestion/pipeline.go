// Package ingestion implements the PDF ingestion pipeline. It loads a PDF,
// splits each page into overlapping chunks, embeds them in batches, and
// appends the results to the vector store collection.
// This pipeline is invoked by the `pdfchat ingest` CLI command.
package ingestion

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/google/uuid"

	"github.com/54b3r/pdfchat-go/internal/ledger"
	"github.com/54b3r/pdfchat-go/internal/rag"
)

// Config holds the configuration for the ingestion pipeline.
type Config struct {
	// Collection is recorded in the ledger for the run.
	Collection string

	// ChunkSize is the maximum number of characters per chunk.
	// Defaults to 1000 if zero.
	ChunkSize int

	// ChunkOverlap is the number of characters shared by consecutive chunks.
	// Defaults to 150 when zero and ChunkSize is also zero.
	ChunkOverlap int

	// BatchSize is the number of chunks sent per embedding request.
	// Defaults to 100 if zero.
	BatchSize int

	// EmbeddingProvider and EmbeddingModel are recorded in the ledger so
	// later queries can detect a mismatched embedder.
	EmbeddingProvider string
	EmbeddingModel    string

	// Load extracts pages from a PDF. Defaults to LoadDocument.
	Load func(path string) ([]Page, error)

	// Ledger records completed runs. Optional.
	Ledger ledger.Ledger

	// Logger receives structured pipeline events. Defaults to slog.Default().
	Logger *slog.Logger
}

// Pipeline orchestrates the load → chunk → embed → upsert flow for one PDF.
type Pipeline struct {
	embedder rag.Embedder
	store    rag.VectorStore
	cfg      *Config
	log      *slog.Logger
}

// NewPipeline constructs a Pipeline from the provided dependencies and config.
func NewPipeline(embedder rag.Embedder, store rag.VectorStore, cfg *Config) (*Pipeline, error) {
	if embedder == nil {
		return nil, fmt.Errorf("ingestion: embedder must not be nil")
	}
	if store == nil {
		return nil, fmt.Errorf("ingestion: store must not be nil")
	}
	if cfg == nil {
		cfg = &Config{}
	}
	if cfg.ChunkSize <= 0 {
		cfg.ChunkSize = 1000
		if cfg.ChunkOverlap == 0 {
			cfg.ChunkOverlap = 150
		}
	}
	if cfg.ChunkOverlap < 0 || cfg.ChunkOverlap >= cfg.ChunkSize {
		return nil, fmt.Errorf("ingestion: chunk overlap must be in [0, %d), got %d", cfg.ChunkSize, cfg.ChunkOverlap)
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 100
	}
	if cfg.Load == nil {
		cfg.Load = LoadDocument
	}
	log := cfg.Logger
	if log == nil {
		log = slog.Default()
	}

	return &Pipeline{
		embedder: embedder,
		store:    store,
		cfg:      cfg,
		log:      log.With("component", "ingestion"),
	}, nil
}

// Ingest loads, chunks, embeds, and stores the PDF at path, returning the
// number of chunks written. Any failure aborts the run; records are written
// in a single Upsert only after every chunk has been embedded.
// Re-ingesting a file appends duplicate records.
// Progress is reported via the optional progress callback.
func (p *Pipeline) Ingest(ctx context.Context, path string, progress func(msg string)) (int, error) {
	if progress == nil {
		progress = func(string) {}
	}
	start := time.Now()

	progress(fmt.Sprintf("Carregando PDF: %s", path))
	pages, err := p.cfg.Load(path)
	if err != nil {
		return 0, err
	}
	progress(fmt.Sprintf("PDF carregado. Total de páginas: %d", len(pages)))

	checksum := ""
	if p.cfg.Ledger != nil {
		checksum, err = fileChecksum(path)
		if err != nil {
			return 0, err
		}
		p.warnDuplicate(ctx, path, checksum)
	}

	chunks, err := SplitIntoChunks(pages, p.cfg.ChunkSize, p.cfg.ChunkOverlap)
	if err != nil {
		return 0, err
	}
	progress(fmt.Sprintf("Documento dividido em %d chunks", len(chunks)))
	if len(chunks) == 0 {
		p.log.Warn("no extractable text", "path", path, "pages", len(pages))
		return 0, nil
	}

	progress(fmt.Sprintf("Usando embeddings: %s", p.cfg.EmbeddingProvider))
	embeddings, err := p.EmbedChunks(ctx, chunks)
	if err != nil {
		return 0, err
	}

	docs := make([]rag.Document, len(chunks))
	for i, c := range chunks {
		docs[i] = rag.Document{
			ID:       uuid.NewString(),
			Content:  c.Text,
			Source:   path,
			Page:     c.Page,
			Metadata: map[string]any{"chunk": c.Index},
		}
	}

	progress("Salvando chunks no banco de dados...")
	if err := p.store.Upsert(ctx, docs, embeddings); err != nil {
		return 0, fmt.Errorf("ingestion: upsert failed for %s: %w", path, err)
	}

	if p.cfg.Ledger != nil {
		run := ledger.Run{
			Collection:        p.cfg.Collection,
			Source:            path,
			Checksum:          checksum,
			Chunks:            len(chunks),
			EmbeddingProvider: p.cfg.EmbeddingProvider,
			EmbeddingModel:    p.cfg.EmbeddingModel,
		}
		if err := p.cfg.Ledger.Record(ctx, run); err != nil {
			p.log.Warn("ledger record failed", "error", err)
		}
	}

	p.log.Info("ingestion complete",
		"path", path,
		"collection", p.cfg.Collection,
		"store", p.store.Name(),
		"chunks", len(chunks),
		"duration", time.Since(start).Round(time.Millisecond),
	)
	progress("Ingestão concluída com sucesso!")
	return len(chunks), nil
}

// EmbedChunks embeds chunk texts in batches of cfg.BatchSize, sequentially.
// The first provider error aborts the whole call.
func (p *Pipeline) EmbedChunks(ctx context.Context, chunks []Chunk) ([][]float32, error) {
	out := make([][]float32, 0, len(chunks))
	for start := 0; start < len(chunks); start += p.cfg.BatchSize {
		end := min(start+p.cfg.BatchSize, len(chunks))

		texts := make([]string, 0, end-start)
		for _, c := range chunks[start:end] {
			texts = append(texts, c.Text)
		}

		vecs, err := p.embedder.Embed(ctx, texts)
		if err != nil {
			return nil, fmt.Errorf("ingestion: embedding chunks %d-%d failed: %w", start, end-1, err)
		}
		if len(vecs) != len(texts) {
			return nil, fmt.Errorf("ingestion: embedder returned %d vectors for %d chunks", len(vecs), len(texts))
		}
		out = append(out, vecs...)
		p.log.Debug("embedded batch", "from", start, "to", end-1)
	}
	return out, nil
}

// warnDuplicate logs when the ledger already holds a run of this file.
func (p *Pipeline) warnDuplicate(ctx context.Context, path, checksum string) {
	prior, err := p.cfg.Ledger.FindByChecksum(ctx, p.cfg.Collection, checksum)
	if err != nil {
		p.log.Warn("ledger lookup failed", "error", err)
		return
	}
	if len(prior) == 0 {
		return
	}
	p.log.Warn("PDF already ingested into collection; chunks will be duplicated",
		"path", path,
		"collection", p.cfg.Collection,
		"previous_runs", len(prior),
		"first_ingested", prior[0].CreatedAt.Format(time.RFC3339),
	)
}

// fileChecksum returns the hex SHA-256 of the file at path.
func fileChecksum(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("ingestion: checksum %s: %w", path, err)
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", fmt.Errorf("ingestion: checksum %s: %w", path, err)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

package commands

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/54b3r/pdfchat-go/internal/embedder"
	"github.com/54b3r/pdfchat-go/internal/ingestion"
	"github.com/54b3r/pdfchat-go/internal/logging"
)

// NewIngestCmd constructs the `pdfchat ingest` command, which loads the PDF,
// chunks and embeds it, and appends the chunks to the vector store.
func NewIngestCmd() *cobra.Command {
	var pdfPath string

	cmd := &cobra.Command{
		Use:   "ingest",
		Short: "Ingest the PDF into the vector store",
		Long: `Load the PDF, split it into overlapping chunks (CHUNK_SIZE/CHUNK_OVERLAP,
default 1000/150), embed each chunk, and append the results to the
COLLECTION_NAME collection (default: pdf_documents).

Relative paths are resolved against the project root (PROJECT_ROOT, or the
nearest directory containing go.mod or .env), not the working directory.

Running ingest twice appends the chunks twice. The ingestion ledger
(PDFCHAT_LEDGER_DB) detects this and logs a warning.

Examples:
  pdfchat ingest
  pdfchat ingest --pdf docs/manual.pdf
  EMBEDDING_PROVIDER=gemini VECTOR_STORE=qdrant pdfchat ingest`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			log := logging.FromContext(ctx)
			s, err := settingsFrom(ctx)
			if err != nil {
				return err
			}

			configured := s.PDFPath
			if pdfPath != "" {
				configured = pdfPath
			}
			path, err := ingestion.ResolvePDFPath(configured, s.ProjectRoot)
			if err != nil {
				return err
			}
			if err := ingestion.CheckPDF(path); err != nil {
				return err
			}

			emb, err := buildEmbedder(ctx, s, log)
			if err != nil {
				return fmt.Errorf("ingest: %w", err)
			}

			store, err := buildStore(ctx, s, log, true)
			if err != nil {
				return fmt.Errorf("ingest: %w", err)
			}
			defer store.Close()

			l, closeLedger := openLedger(log)
			defer closeLedger()

			p, err := ingestion.NewPipeline(emb, store, &ingestion.Config{
				Collection:        s.Collection,
				ChunkSize:         s.ChunkSize,
				ChunkOverlap:      s.ChunkOverlap,
				BatchSize:         s.EmbedBatchSize,
				EmbeddingProvider: string(s.EmbeddingProvider),
				EmbeddingModel:    embedder.ModelName(s),
				Ledger:            l,
				Logger:            log,
			})
			if err != nil {
				return fmt.Errorf("ingest: failed to create pipeline: %w", err)
			}

			out := cmd.OutOrStdout()
			n, err := p.Ingest(ctx, path, func(msg string) {
				fmt.Fprintln(out, msg)
			})
			if err != nil {
				return fmt.Errorf("ingest: %w", err)
			}

			log.Debug("ingest finished", slog.Int("chunks", n), slog.String("collection", s.Collection))
			return nil
		},
	}

	cmd.Flags().StringVar(&pdfPath, "pdf", "", "PDF to ingest (overrides PDF_PATH)")

	return cmd
}

package commands

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/54b3r/pdfchat-go/internal/logging"
	"github.com/54b3r/pdfchat-go/internal/rag"
)

// NewSearchCmd constructs the `pdfchat search` command, which prints the
// ranked chunks a question retrieves without calling the chat model.
func NewSearchCmd() *cobra.Command {
	var topK int

	cmd := &cobra.Command{
		Use:   "search [question]",
		Short: "Show the chunks retrieved for a question, with scores",
		Long: `Embed the question, run the similarity search, and print each retrieved
chunk with its score and page. Useful for checking what context the model
would receive.

Examples:
  pdfchat search "prazo de entrega"
  pdfchat search --top-k 3 "multa contratual"`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			log := logging.FromContext(ctx)
			s, err := settingsFrom(ctx)
			if err != nil {
				return err
			}

			emb, err := buildEmbedder(ctx, s, log)
			if err != nil {
				return fmt.Errorf("search: %w", err)
			}
			store, err := buildStore(ctx, s, log, false)
			if err != nil {
				return fmt.Errorf("search: %w", err)
			}
			defer store.Close()

			r, err := rag.NewRetriever(emb, store, s.TopK)
			if err != nil {
				return fmt.Errorf("search: %w", err)
			}
			docs, err := r.Retrieve(ctx, strings.Join(args, " "), topK)
			if err != nil {
				return fmt.Errorf("search: %w", err)
			}

			out := cmd.OutOrStdout()
			if len(docs) == 0 {
				fmt.Fprintf(out, "no results in collection %q\n", s.Collection)
				return nil
			}
			for i, d := range docs {
				fmt.Fprintf(out, "[%d] score=%.4f page=%d\n%s\n\n", i+1, d.Score, d.Page+1, d.Content)
			}
			return nil
		},
	}

	cmd.Flags().IntVarP(&topK, "top-k", "k", 0, "Number of chunks to retrieve (default: SEARCH_TOP_K)")

	return cmd
}

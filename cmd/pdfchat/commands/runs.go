package commands

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/54b3r/pdfchat-go/internal/logging"
)

// NewRunsCmd constructs the `pdfchat runs` command, which lists recent
// ingestion runs from the ledger.
func NewRunsCmd() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "runs",
		Short: "List recent ingestion runs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			l, closeLedger := openLedger(logging.FromContext(ctx))
			defer closeLedger()
			if l == nil {
				return fmt.Errorf("runs: ledger is not available")
			}

			runs, err := l.Recent(ctx, limit)
			if err != nil {
				return fmt.Errorf("runs: %w", err)
			}

			out := cmd.OutOrStdout()
			if len(runs) == 0 {
				fmt.Fprintln(out, "no ingestion runs recorded")
				return nil
			}
			tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "WHEN\tCOLLECTION\tCHUNKS\tEMBEDDING\tSHA256\tSOURCE")
			for _, r := range runs {
				fmt.Fprintf(tw, "%s\t%s\t%d\t%s/%s\t%.12s\t%s\n",
					r.CreatedAt.Format(time.DateTime), r.Collection, r.Chunks,
					r.EmbeddingProvider, r.EmbeddingModel, r.Checksum, r.Source)
			}
			return tw.Flush()
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Maximum number of runs to list")

	return cmd
}

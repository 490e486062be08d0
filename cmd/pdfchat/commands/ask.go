package commands

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/54b3r/pdfchat-go/internal/answer"
	"github.com/54b3r/pdfchat-go/internal/logging"
)

// NewAskCmd constructs the `pdfchat ask` command, which answers a single
// question and exits.
func NewAskCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "ask [question]",
		Short: "Answer one question about the ingested PDF",
		Long: `Answer a single question and print the answer to stdout.

Unlike chat, a pipeline failure also makes the command exit non-zero, so
scripts can tell a failure from a legitimate refusal.

Examples:
  pdfchat ask "Qual é o prazo de entrega?"
  pdfchat ask What is the delivery deadline`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			log := logging.FromContext(ctx)

			question := strings.Join(args, " ")
			if strings.TrimSpace(question) == "" {
				fmt.Fprintln(cmd.OutOrStdout(), answer.PromptForInput)
				return nil
			}

			s, err := settingsFrom(ctx)
			if err != nil {
				return err
			}
			p, err := buildAnswerer(ctx, s, log)
			if err != nil {
				return fmt.Errorf("ask: %w", err)
			}
			defer p.close()

			out, err := p.answerer.Run(ctx, question)
			if err != nil {
				fmt.Fprintln(cmd.OutOrStdout(), answer.Render(err))
				if errors.Is(err, answer.ErrEmptyQuestion) {
					return nil
				}
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), out)
			return nil
		},
	}
}

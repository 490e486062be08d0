package commands

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/54b3r/pdfchat-go/internal/chat"
	"github.com/54b3r/pdfchat-go/internal/logging"
)

// NewChatCmd constructs the `pdfchat chat` command, an interactive loop that
// answers one question per line until sair/exit/quit/q or Ctrl+C.
func NewChatCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "chat",
		Short: "Ask questions about the ingested PDF interactively",
		Long: `Start an interactive session. Each line is answered from the ingested
PDF only; when the excerpts do not contain the answer the model replies
"Não tenho informações necessárias para responder sua pergunta."

Type sair, exit, quit or q (any case) or press Ctrl+C to leave.
Logs default to warn level here so they do not interleave with answers;
set LOG_LEVEL to override.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			log := logging.FromContext(ctx)

			s, err := settingsFrom(ctx)
			if err != nil {
				return err
			}
			p, err := buildAnswerer(ctx, s, log)
			if err != nil {
				return fmt.Errorf("chat: %w", err)
			}
			defer p.close()

			return chat.NewSession(cmd.InOrStdin(), cmd.OutOrStdout(), p.answerer.Answer).Run(ctx)
		},
	}
}

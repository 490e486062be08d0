// Package commands defines all Cobra CLI commands for the pdfchat binary.
package commands

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/54b3r/pdfchat-go/internal/audit"
	"github.com/54b3r/pdfchat-go/internal/config"
	"github.com/54b3r/pdfchat-go/internal/logging"
)

// settingsKey carries the resolved *config.Settings on the command context.
type settingsKey struct{}

// withSettings returns a copy of ctx carrying s.
func withSettings(ctx context.Context, s *config.Settings) context.Context {
	return context.WithValue(ctx, settingsKey{}, s)
}

// settingsFrom returns the settings resolved by the root PersistentPreRunE.
func settingsFrom(ctx context.Context) (*config.Settings, error) {
	s, ok := ctx.Value(settingsKey{}).(*config.Settings)
	if !ok || s == nil {
		return nil, fmt.Errorf("settings not resolved for this command")
	}
	return s, nil
}

// NewRootCmd constructs the root Cobra command that all subcommands attach to.
func NewRootCmd() *cobra.Command {
	// configPath holds the --config flag value for YAML config file override.
	var configPath string

	root := &cobra.Command{
		Use:   "pdfchat",
		Short: "pdfchat: ask questions about a PDF, answered only from its content",
		Long: `pdfchat ingests a PDF into a vector store (Postgres/pgvector or Qdrant)
and answers questions about it with an LLM that is instructed to use only the
retrieved excerpts.

Typical flow:
  pdfchat ingest            # once per document
  pdfchat chat              # interactive questions

Providers are selected with EMBEDDING_PROVIDER and LLM_PROVIDER
(openai, gemini, ollama). Configuration is read from the environment, a
.env file in the project root, and an optional YAML file
(~/.pdfchat/config.yaml).`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			boot := logging.New()

			dotenv, err := config.LoadDotEnv(config.ProjectRoot(), boot)
			if err != nil {
				return err
			}
			path, err := config.Load(configPath, boot)
			if err != nil {
				return err
			}

			// LOG_* may have come from .env or YAML; rebuild with the final values.
			fallback := slog.LevelInfo
			if cmd.Name() == "chat" {
				fallback = slog.LevelWarn
			}
			log := logging.NewWithDefaults(os.Stderr, fallback)
			slog.SetDefault(log)

			ctx := logging.WithLogger(cmd.Context(), log)
			cmd.SetContext(ctx)

			audit.LogCommandStart(ctx, log, cmd.Name(), audit.Sources{ConfigFile: path, DotEnv: dotenv})

			if cmd.Name() == "version" {
				return nil
			}
			s, err := config.FromEnv()
			if err != nil {
				return err
			}
			cmd.SetContext(withSettings(ctx, s))
			return nil
		},
	}

	root.PersistentFlags().StringVar(&configPath, "config", "", "Path to YAML config file (default: ~/.pdfchat/config.yaml)")

	root.AddCommand(
		NewIngestCmd(),
		NewChatCmd(),
		NewAskCmd(),
		NewSearchCmd(),
		NewServeCmd(),
		NewRunsCmd(),
		NewVersionCmd(),
	)

	return root
}

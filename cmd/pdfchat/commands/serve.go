package commands

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/54b3r/pdfchat-go/internal/logging"
	"github.com/54b3r/pdfchat-go/internal/server"
)

// NewServeCmd constructs the `pdfchat serve` command, which exposes the
// answer pipeline over HTTP.
func NewServeCmd() *cobra.Command {
	var host string
	var port int

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the pdfchat HTTP API",
		Long: `Start an HTTP server exposing:

  POST /api/ask     {"question": "..."} -> {"answer": "..."}
  GET  /api/health  liveness
  GET  /api/ready   vector store reachability
  GET  /metrics     Prometheus metrics

POST /api/ask requires "Authorization: Bearer $PDFCHAT_API_KEY" when the key is
set, and is rate limited per client IP (PDFCHAT_RATE_LIMIT_RPS,
PDFCHAT_RATE_LIMIT_BURST).

Examples:
  pdfchat serve
  pdfchat serve --port 9090`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			log := logging.FromContext(ctx)

			s, err := settingsFrom(ctx)
			if err != nil {
				return err
			}
			p, err := buildAnswerer(ctx, s, log)
			if err != nil {
				return fmt.Errorf("serve: %w", err)
			}
			defer p.close()

			if !cmd.Flags().Changed("host") {
				host = getEnvOrDefault("PDFCHAT_HOST", host)
			}
			if !cmd.Flags().Changed("port") {
				port = getEnvInt("PDFCHAT_PORT", port)
			}

			srv, err := server.New(p.answerer, &server.Config{
				Host:      host,
				Port:      port,
				Logger:    log,
				Pingers:   []server.Pinger{p.store},
				APIKey:    os.Getenv("PDFCHAT_API_KEY"),
				RateLimit: getEnvFloat("PDFCHAT_RATE_LIMIT_RPS", 0),
				RateBurst: getEnvInt("PDFCHAT_RATE_LIMIT_BURST", 0),
			})
			if err != nil {
				return fmt.Errorf("serve: failed to create server: %w", err)
			}

			return srv.Start(ctx)
		},
	}

	cmd.Flags().StringVar(&host, "host", "127.0.0.1", "Host address to bind to (env PDFCHAT_HOST)")
	cmd.Flags().IntVarP(&port, "port", "p", 8080, "TCP port to listen on (env PDFCHAT_PORT)")

	return cmd
}

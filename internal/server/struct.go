package server

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Config holds the HTTP server configuration.
type Config struct {
	// Host is the address to bind to (default: 127.0.0.1).
	Host string
	// Port is the TCP port to listen on (default: 8080).
	Port int
	// ReadTimeout is the maximum duration for reading the request.
	ReadTimeout time.Duration
	// WriteTimeout is the maximum duration for writing the response.
	WriteTimeout time.Duration
	// ShutdownTimeout is the maximum duration for a graceful shutdown.
	ShutdownTimeout time.Duration
	// AskTimeout bounds one POST /api/ask round trip (embed, search, generate).
	// Defaults to 2 minutes if zero.
	AskTimeout time.Duration
	// Logger is the structured logger used by the server and its handlers.
	// If nil, [slog.Default] is used.
	Logger *slog.Logger
	// Pingers is the ordered list of dependency checks run by GET /api/ready.
	// If empty, /api/ready returns 200 with no checks (liveness-only mode).
	Pingers []Pinger
	// RateLimit is the sustained question rate allowed per client (an IPv4
	// address or an IPv6 /64) on POST /api/ask. Defaults to 10/s if zero.
	RateLimit float64
	// RateBurst is the maximum instantaneous burst per client. Defaults to 20 if zero.
	RateBurst int
	// APIKey is the Bearer token required on POST /api/ask.
	// If empty, authentication is disabled (development mode).
	APIKey string
	// MetricsRegistry receives the server's collectors.
	// Defaults to prometheus.DefaultRegisterer.
	MetricsRegistry prometheus.Registerer
	// MetricsGatherer backs GET /metrics. Defaults to prometheus.DefaultGatherer.
	MetricsGatherer prometheus.Gatherer
}

// Answerer is the pipeline POST /api/ask delegates to.
// *answer.Answerer satisfies it; tests inject a fake.
type Answerer interface {
	// Run answers question or returns a typed pipeline error.
	Run(ctx context.Context, question string) (string, error)
}

// Server is the HTTP server that exposes the answer pipeline.
type Server struct {
	// answerer handles every POST /api/ask.
	answerer Answerer
	// cfg holds the resolved server configuration.
	cfg *Config
	// httpServer is the underlying net/http server.
	httpServer *http.Server
	// log is the structured logger for this server instance.
	log *slog.Logger
	// pingers is the ordered list of dependency checks for GET /api/ready.
	pingers []Pinger
	// metrics holds the Prometheus collectors.
	metrics *serverMetrics
}

// askRequest is the JSON body for POST /api/ask.
type askRequest struct {
	// Question is the user's natural language question.
	Question string `json:"question"`
}

// askResponse is the JSON response for POST /api/ask. Answer is always set,
// carrying the rendered error text on failure.
type askResponse struct {
	Answer string `json:"answer"`
	// Error is the pipeline error, set only on failure.
	Error string `json:"error,omitempty"`
	// Stage names the pipeline step that failed.
	Stage string `json:"stage,omitempty"`
}

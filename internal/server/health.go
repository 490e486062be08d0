package server

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/54b3r/pdfchat-go/internal/logging"
)

// pingTimeout is the maximum time allowed for each individual dependency
// check during readiness. Kept short so /api/ready responds quickly
// even when a dependency is slow rather than unreachable.
const pingTimeout = 5 * time.Second

// Pinger is the interface implemented by any dependency that can report its
// own reachability. rag.VectorStore satisfies it.
// Implementations must be safe to call from multiple goroutines.
type Pinger interface {
	// Ping checks whether the dependency is reachable within the given context.
	// Returns nil on success, a descriptive error on failure.
	Ping(ctx context.Context) error

	// Name returns a short human-readable label used in readiness responses
	// (e.g. "pgvector", "qdrant").
	Name() string
}

// readyCheck holds the per-dependency result of a readiness check.
type readyCheck struct {
	// Name is the dependency label (e.g. "pgvector").
	Name string `json:"name"`
	// OK is true when the dependency responded successfully.
	OK bool `json:"ok"`
	// Error contains the failure reason when OK is false. Empty on success.
	Error string `json:"error,omitempty"`
}

// readyResponse is the JSON body returned by GET /api/ready.
type readyResponse struct {
	// Ready is true only when every dependency check succeeded.
	Ready bool `json:"ready"`
	// Checks contains the per-dependency check results.
	Checks []readyCheck `json:"checks"`
}

// handleReady handles GET /api/ready. Each Pinger is pinged with a short
// timeout; the response is 200 when all succeed and 503 otherwise.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	log := logging.FromContext(r.Context())

	resp := readyResponse{Ready: true, Checks: make([]readyCheck, 0, len(s.pingers))}
	for _, p := range s.pingers {
		pingCtx, cancel := context.WithTimeout(r.Context(), pingTimeout)
		err := p.Ping(pingCtx)
		cancel()

		check := readyCheck{Name: p.Name(), OK: err == nil}
		if err != nil {
			check.Error = err.Error()
			resp.Ready = false
			log.Warn("readiness check failed",
				slog.String("dependency", p.Name()),
				slog.Any("error", err),
			)
		}
		resp.Checks = append(resp.Checks, check)
	}

	status := http.StatusOK
	if !resp.Ready {
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, resp, log)
}

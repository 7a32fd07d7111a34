package status

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Server exposes GET /status (JSON snapshot) and GET /metrics (prometheus)
// for the external dashboard. It is read-only and independent of the
// ingestion loop.
type Server struct {
	reporter *Reporter
	srv      *http.Server
	log      *slog.Logger
}

// NewServer builds the status listener on addr.
func NewServer(addr string, reporter *Reporter, metrics *Metrics, log *slog.Logger) *Server {
	mux := http.NewServeMux()

	s := &Server{
		reporter: reporter,
		log:      log.With("component", "status_server"),
	}
	mux.HandleFunc("GET /status", s.handleStatus)
	if metrics != nil {
		mux.Handle("GET /metrics", promhttp.HandlerFor(metrics.Registry, promhttp.HandlerOpts{}))
	}

	s.srv = &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	return s
}

// Run serves until ctx is canceled, then shuts down gracefully. A listener
// failure is reported but, like all status-side failures, must not take the
// ingestion driver down; the caller runs this in its own goroutine.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		if err := s.srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return s.srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		s.log.Error("status listener failed", "error", err)
		return err
	}
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	snap, err := s.reporter.Snapshot()
	if err != nil {
		s.log.Error("snapshot failed", "error", err)
		http.Error(w, err.Error(), http.StatusServiceUnavailable)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(snap); err != nil {
		s.log.Error("encoding snapshot", "error", err)
	}
}

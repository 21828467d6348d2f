package observability

import (
	"context"
	"net/http"
	"time"
)

// Server serves the metrics and health endpoints.
type Server struct {
	httpServer *http.Server
	addr       string
}

// NewServer creates a server for the given listen address, e.g. ":9090".
func NewServer(addr string) *Server {
	return &Server{addr: addr}
}

// Start serves /metrics, /healthz and /readyz until Shutdown. It blocks
// like http.Server.ListenAndServe.
func (s *Server) Start() error {
	mux := http.NewServeMux()

	mux.HandleFunc("/healthz", HealthHandler())
	mux.HandleFunc("/healthz/live", LivenessHandler())
	mux.HandleFunc("/readyz", ReadinessHandler())
	mux.Handle("/metrics", MetricsHandler())

	s.httpServer = &http.Server{
		Addr:         s.addr,
		Handler:      mux,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpServer != nil {
		return s.httpServer.Shutdown(ctx)
	}
	return nil
}

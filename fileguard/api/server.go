// Package api exposes the scan engine over HTTP: file submission, queue
// inspection, scan triggering, aggregate stats and option management.
package api

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"
)

// Server wraps the engine's HTTP listener.
type Server struct {
	httpServer *http.Server
}

// NewServer builds the HTTP server for the given handlers.
func NewServer(addr string, h *Handlers) *Server {
	mux := http.NewServeMux()
	SetupRoutes(mux, h)

	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]string{
			"status":  "healthy",
			"service": "scan-engine",
			"time":    time.Now().UTC().Format(time.RFC3339),
		})
	})

	return &Server{
		httpServer: &http.Server{
			Addr:         addr,
			Handler:      mux,
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 15 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
	}
}

// Start begins serving and blocks until the listener closes.
func (s *Server) Start() error {
	slog.Info("Scan engine API listening", "addr", s.httpServer.Addr)
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Shutdown drains in-flight requests and stops the listener.
func (s *Server) Shutdown(ctx context.Context) error {
	slog.Info("Shutting down scan engine API")
	return s.httpServer.Shutdown(ctx)
}

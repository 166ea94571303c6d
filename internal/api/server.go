// Package api exposes the holder tracking service over HTTP: the sync
// trigger, the paged holder query surface, health and metrics endpoints.
package api

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/defiscope/holderwatch/internal/core/domain"
	"github.com/defiscope/holderwatch/internal/query"
)

// SyncRunner triggers a reconciliation run.
type SyncRunner interface {
	Sync(ctx context.Context) (*domain.SyncResult, error)
}

// Pinger reports the health of one dependency.
type Pinger interface {
	Health(ctx context.Context) error
}

// Server serves the HTTP API.
type Server struct {
	server  *http.Server
	log     *slog.Logger
	sync    SyncRunner
	queries *query.Service
	deps    map[string]Pinger
}

// NewServer creates the API server. deps maps dependency names to health
// pingers; nil entries are allowed and skipped.
func NewServer(port int, sync SyncRunner, queries *query.Service, deps map[string]Pinger) *Server {
	mux := http.NewServeMux()
	s := &Server{
		server: &http.Server{
			Addr:              fmt.Sprintf(":%d", port),
			Handler:           mux,
			ReadHeaderTimeout: 10 * time.Second,
		},
		log:     slog.With("component", "api"),
		sync:    sync,
		queries: queries,
		deps:    deps,
	}

	mux.HandleFunc("POST /holders/sync", s.handleSync)
	mux.HandleFunc("GET /holders", s.handleList)
	mux.HandleFunc("GET /holders/{address}", s.handleGet)
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.Handle("GET /metrics", promhttp.Handler())

	return s
}

// Start starts the HTTP server and blocks until it stops.
func (s *Server) Start() error {
	s.log.Info("http server listening", "addr", s.server.Addr)
	return s.server.ListenAndServe()
}

// Stop shuts the HTTP server down gracefully.
func (s *Server) Stop(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

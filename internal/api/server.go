// Package api exposes the chat service over HTTP: one generation
// endpoint with the {data}|{error} contract, read-only thread listing,
// and health probes.
package api

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/aetherchat/aether/internal/gateway"
	"github.com/aetherchat/aether/internal/thread"
)

// Generator produces answers, satisfied by gateway.Gateway.
type Generator interface {
	Generate(ctx context.Context, question string, history []gateway.Message) gateway.Result
}

// ThreadStore is the read surface for thread endpoints, satisfied by
// thread.Store.
type ThreadStore interface {
	ListThreads(ctx context.Context, owner string) ([]thread.Thread, error)
	LoadActiveThread(ctx context.Context, owner string, ref uuid.UUID) ([]thread.Turn, error)
}

// ServerConfig configures the API server.
type ServerConfig struct {
	Logger    *slog.Logger
	Generator Generator   // required
	Threads   ThreadStore // required
	// Pool enables database readiness checks in /ready. Optional.
	Pool *pgxpool.Pool
}

// Server is the JSON API HTTP server.
type Server struct {
	mux    *http.ServeMux
	logger *slog.Logger
}

// NewServer creates a server with all routes configured.
func NewServer(cfg ServerConfig) (*Server, error) {
	if cfg.Generator == nil {
		return nil, errors.New("generator is required")
	}
	if cfg.Threads == nil {
		return nil, errors.New("thread store is required")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	ch := &chatHandler{logger: logger, generator: cfg.Generator}
	th := &threadHandler{logger: logger, store: cfg.Threads}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/chat", ch.send)
	mux.HandleFunc("GET /api/threads", th.list)
	mux.HandleFunc("GET /api/threads/{id}/turns", th.turns)

	var handler http.Handler = mux
	handler = loggingMiddleware(logger)(handler)
	handler = recoveryMiddleware(logger)(handler)

	// Health probes bypass the middleware stack.
	topMux := http.NewServeMux()
	topMux.HandleFunc("GET /health", health)
	topMux.Handle("GET /ready", readiness(cfg.Pool))
	topMux.Handle("/", handler)

	return &Server{mux: topMux, logger: logger}, nil
}

// Handler returns the server as an http.Handler.
func (s *Server) Handler() http.Handler {
	return s.mux
}

// Run serves on addr until ctx is canceled, then shuts down
// gracefully.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.mux,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		// Generation calls can be slow; give writes generous room.
		WriteTimeout: 5 * time.Minute,
		IdleTimeout:  2 * time.Minute,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("server listening", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutting down server: %w", err)
		}
		<-errCh
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("serving: %w", err)
	}
}

package httpserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"telegram-gather/internal/application"
)

type HealthReporter interface {
	Status() application.HealthStatus
}

// StatusServer exposes the health state and Prometheus metrics of the
// running agent.
type StatusServer struct {
	addr        string
	health      HealthReporter
	logger      *slog.Logger
	mux         *http.ServeMux
	rateLimiter *RateLimiter

	mu       sync.Mutex
	server   *http.Server
	listener net.Listener
}

// NewStatusServer wires GET /health and, when metrics is non-nil,
// GET /metrics.
func NewStatusServer(addr string, health HealthReporter, metrics http.Handler, logger *slog.Logger) *StatusServer {
	s := &StatusServer{
		addr:        addr,
		health:      health,
		logger:      logger,
		mux:         http.NewServeMux(),
		rateLimiter: NewRateLimiter(60, time.Minute),
	}
	s.mux.HandleFunc("GET /health", s.rateLimiter.Middleware(s.handleHealth))
	if metrics != nil {
		s.mux.Handle("GET /metrics", s.rateLimiter.Middleware(metrics.ServeHTTP))
	}
	return s
}

func (s *StatusServer) Handler() http.Handler {
	return s.mux
}

// Addr is the bound address once Start has returned.
func (s *StatusServer) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return s.addr
	}
	return s.listener.Addr().String()
}

func (s *StatusServer) Start(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.server != nil {
		return nil
	}

	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("listening on %s: %w", s.addr, err)
	}

	s.listener = ln
	s.server = &http.Server{
		Handler:           s.mux,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	srv := s.server
	go func() {
		s.logger.Info("status server starting", "addr", ln.Addr().String())
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("status server error", "error", err)
		}
	}()

	return nil
}

func (s *StatusServer) Stop(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.server == nil {
		return nil
	}

	if err := s.server.Shutdown(ctx); err != nil {
		s.logger.Warn("graceful shutdown failed, forcing close", "error", err)
		if err := s.server.Close(); err != nil {
			return fmt.Errorf("closing server: %w", err)
		}
	}

	s.server = nil
	return nil
}

func (s *StatusServer) handleHealth(w http.ResponseWriter, _ *http.Request) {
	status := s.health.Status()

	code := http.StatusOK
	if !status.Healthy {
		code = http.StatusServiceUnavailable
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(status); err != nil {
		s.logger.Debug("writing health response", "error", err)
	}
}

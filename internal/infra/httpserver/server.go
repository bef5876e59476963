// Package httpserver exposes the skill as an HTTPS endpoint the voice
// platform can call.
package httpserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"garage-skill/internal/alexa"
)

// maxBodyBytes caps request envelopes. Real ones are a few kilobytes.
const maxBodyBytes = 64 * 1024

// Processor answers one request envelope.
type Processor interface {
	Process(ctx context.Context, env *alexa.RequestEnvelope) (*alexa.ResponseEnvelope, error)
}

type Options struct {
	Addr           string
	AuthToken      string
	RateLimit      int
	RequestTimeout time.Duration
	// Registry is served on /metrics when set.
	Registry *prometheus.Registry
}

type Server struct {
	opts        Options
	processor   Processor
	logger      *slog.Logger
	mux         *http.ServeMux
	rateLimiter *RateLimiter

	mu      sync.Mutex
	server  *http.Server
	running bool
}

func New(opts Options, processor Processor, logger *slog.Logger) *Server {
	if opts.RateLimit <= 0 {
		opts.RateLimit = 30
	}
	if opts.RequestTimeout <= 0 {
		opts.RequestTimeout = 10 * time.Second
	}

	s := &Server{
		opts:        opts,
		processor:   processor,
		logger:      logger,
		mux:         http.NewServeMux(),
		rateLimiter: NewRateLimiter(opts.RateLimit, time.Minute),
	}

	s.mux.HandleFunc("POST /alexa", s.rateLimiter.Middleware(s.handleAlexa))
	s.mux.HandleFunc("GET /health", s.handleHealth)
	if opts.Registry != nil {
		s.mux.Handle("GET /metrics", promhttp.HandlerFor(opts.Registry, promhttp.HandlerOpts{}))
	}
	return s
}

func (s *Server) Handler() http.Handler {
	return s.mux
}

// Start listens in the background. Listen errors other than a clean shutdown
// are logged.
func (s *Server) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return nil
	}

	s.server = &http.Server{
		Addr:         s.opts.Addr,
		Handler:      s.mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: s.opts.RequestTimeout + 5*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		s.logger.Info("HTTP server starting", "addr", s.opts.Addr)
		if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("HTTP server error", "error", err)
		}
	}()

	s.running = true
	return nil
}

func (s *Server) Stop(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return nil
	}
	s.running = false

	if err := s.server.Shutdown(ctx); err != nil {
		s.logger.Warn("graceful shutdown failed, forcing close", "error", err)
		if err := s.server.Close(); err != nil {
			return fmt.Errorf("closing server: %w", err)
		}
	}
	return nil
}

func (s *Server) authorized(r *http.Request) bool {
	if s.opts.AuthToken == "" {
		return true
	}
	token := r.Header.Get("X-Auth-Token")
	if token == "" {
		token = r.URL.Query().Get("token")
	}
	return token == s.opts.AuthToken
}

func (s *Server) handleAlexa(w http.ResponseWriter, r *http.Request) {
	if !s.authorized(r) {
		s.logger.Warn("unauthorized alexa request", "remote_addr", r.RemoteAddr)
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	defer r.Body.Close()

	var env alexa.RequestEnvelope
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(&env); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			http.Error(w, "request too large", http.StatusRequestEntityTooLarge)
			return
		}
		http.Error(w, "invalid request envelope", http.StatusBadRequest)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), s.opts.RequestTimeout)
	defer cancel()

	resp, err := s.processor.Process(ctx, &env)
	if err != nil {
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json;charset=UTF-8")
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		s.logger.Error("writing alexa response", "error", err)
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	s.mu.Lock()
	running := s.running
	s.mu.Unlock()

	status := "ok"
	statusCode := http.StatusOK
	if !running {
		status = "not_ready"
		statusCode = http.StatusServiceUnavailable
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	fmt.Fprintf(w, `{"status":%q,"running":%t}`, status, running)
}

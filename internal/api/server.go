// Package api serves the trainer's REST API.
package api

import (
	"context"
	"log/slog"
	"net/http"
	"slices"
	"strconv"
	"time"

	"github.com/giantswarm/prompt-trainer/internal/auth"
	"github.com/giantswarm/prompt-trainer/internal/metrics"
	"github.com/giantswarm/prompt-trainer/internal/store"
	"github.com/giantswarm/prompt-trainer/internal/trainer"
)

// ModelRegistry reports which models can answer prompts.
type ModelRegistry interface {
	Models() []string
	Supports(model string) bool
}

// Options configures a Server.
type Options struct {
	Store       *store.Store
	Trainer     *trainer.Service
	Models      ModelRegistry
	Issuer      *auth.Issuer
	Version     string
	CORSOrigins []string
	// Embedding names the semantic similarity backend reported by the
	// health endpoint.
	Embedding string
}

// Server holds the REST handlers' dependencies.
type Server struct {
	store       *store.Store
	trainer     *trainer.Service
	models      ModelRegistry
	issuer      *auth.Issuer
	version     string
	corsOrigins []string
	embedding   string
}

// New creates a Server.
func New(opts Options) *Server {
	version := opts.Version
	if version == "" {
		version = "dev"
	}
	return &Server{
		store:       opts.Store,
		trainer:     opts.Trainer,
		models:      opts.Models,
		issuer:      opts.Issuer,
		version:     version,
		corsOrigins: opts.CORSOrigins,
		embedding:   opts.Embedding,
	}
}

// Handler returns the routed API with CORS and request metrics applied.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	s.route(mux, "GET /{$}", http.HandlerFunc(s.handleRoot))
	s.route(mux, "GET /api/health", http.HandlerFunc(s.handleHealth))
	s.route(mux, "POST /api/auth/register", http.HandlerFunc(s.handleRegister))
	s.route(mux, "POST /api/auth/login", http.HandlerFunc(s.handleLogin))
	s.route(mux, "GET /api/challenges", http.HandlerFunc(s.handleListChallenges))
	s.route(mux, "GET /api/challenges/{id}", http.HandlerFunc(s.handleGetChallenge))
	s.route(mux, "GET /api/models", http.HandlerFunc(s.handleModels))
	s.route(mux, "POST /api/evaluate", s.issuer.Middleware(http.HandlerFunc(s.handleEvaluate)))
	s.route(mux, "GET /api/leaderboard/{challenge_id}", http.HandlerFunc(s.handleLeaderboard))
	s.route(mux, "GET /api/user/progress", s.issuer.Middleware(http.HandlerFunc(s.handleProgress)))
	s.route(mux, "GET /api/user/stats", s.issuer.Middleware(http.HandlerFunc(s.handleStats)))
	mux.Handle("GET /metrics", metrics.Handler())
	return s.cors(mux)
}

// ListenAndServe serves the API on addr until ctx is canceled.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      120 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("REST API listening", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

// route registers h under pattern and counts its responses by status code.
func (s *Server) route(mux *http.ServeMux, pattern string, h http.Handler) {
	mux.Handle(pattern, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		start := time.Now()
		h.ServeHTTP(rec, r)
		metrics.HTTPRequests.WithLabelValues(pattern, strconv.Itoa(rec.status)).Inc()
		slog.Debug("request served",
			"method", r.Method,
			"path", r.URL.Path,
			"status", rec.status,
			"duration", time.Since(start),
		)
	}))
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// cors allows the configured origins. A "*" entry allows any origin.
func (s *Server) cors(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		if origin != "" && (slices.Contains(s.corsOrigins, "*") || slices.Contains(s.corsOrigins, origin)) {
			h := w.Header()
			h.Set("Access-Control-Allow-Origin", origin)
			h.Set("Access-Control-Allow-Credentials", "true")
			h.Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
			h.Set("Access-Control-Allow-Headers", "Authorization, Content-Type")
			h.Add("Vary", "Origin")
			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusNoContent)
				return
			}
		}
		next.ServeHTTP(w, r)
	})
}

// Package api exposes book builds and single chapter renders over HTTP.
package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/httprate"
	"github.com/patrickmn/go-cache"
	"go.uber.org/zap"

	"github.com/wilkie/gutenberg/internal/chapter"
	"github.com/wilkie/gutenberg/internal/config"
	"github.com/wilkie/gutenberg/internal/pipeline"
	"github.com/wilkie/gutenberg/internal/style"
)

// Server is the HTTP API server for gutenberg.
type Server struct {
	router       chi.Router
	orchestrator *pipeline.Orchestrator
	hyphenators  chapter.Hyphenators
	style        *style.Style
	renders      *cache.Cache // nil when render caching is off
	log          *zap.Logger
	cfg          config.Config
}

// NewServer creates and configures the HTTP server. st supplies images to
// single chapter renders and may be nil.
func NewServer(orch *pipeline.Orchestrator, hyphenators chapter.Hyphenators, st *style.Style, log *zap.Logger, cfg config.Config) *Server {
	if log == nil {
		log = zap.NewNop()
	}
	s := &Server{
		orchestrator: orch,
		hyphenators:  hyphenators,
		style:        st,
		log:          log.Named("api"),
		cfg:          cfg,
	}
	if ttl := cfg.Server.RenderCacheTTL; ttl > 0 {
		s.renders = cache.New(ttl, 2*ttl)
	}
	s.setupRoutes()
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) setupRoutes() {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(RequestLogger(s.log))

	r.Get("/health", s.handleHealth)

	r.Group(func(r chi.Router) {
		if s.cfg.Server.APIKey != "" {
			r.Use(AuthMiddleware(s.cfg.Server.APIKey))
		} else {
			s.log.Warn("No API key configured, authentication disabled")
		}
		if n := s.cfg.Server.RateLimit; n > 0 {
			r.Use(httprate.LimitByIP(n, time.Minute))
		}

		r.Post("/api/books", s.handleSubmitBook)
		r.Get("/api/books/{jobID}/status", s.handleBookStatus)
		r.Get("/api/books/{jobID}/html", s.handleBookHTML)
		r.Post("/api/render", s.handleRender)
		r.Get("/api/stats/render", s.handleRenderStats)
	})

	s.router = r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":      "ok",
		"queue_depth": s.orchestrator.QueueDepth(),
	})
}

func (s *Server) handleRenderStats(w http.ResponseWriter, r *http.Request) {
	cached := 0
	if s.renders != nil {
		cached = s.renders.ItemCount()
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"stats":          s.orchestrator.Stats().Snapshot(),
		"cached_renders": cached,
	})
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func jsonError(w http.ResponseWriter, msg string, code int) {
	writeJSON(w, code, map[string]string{"error": msg})
}

// Package api serves documents, navigation queries and ingestion over HTTP.
package api

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/dgallion1/docnav/internal/config"
	"github.com/dgallion1/docnav/internal/library"
	"github.com/dgallion1/docnav/internal/llm"
	"github.com/dgallion1/docnav/internal/metrics"
	"github.com/dgallion1/docnav/internal/navigator"
	"github.com/dgallion1/docnav/internal/pipeline"
)

// Deps are the collaborators behind the routes. LLM and Metrics may be nil.
type Deps struct {
	Library      *library.Library
	Orchestrator *pipeline.Orchestrator
	Engine       *navigator.Engine
	LLM          llm.HostedClient
	Metrics      *metrics.Metrics
}

// Server is the HTTP API server for docnav.
type Server struct {
	router chi.Router
	deps   Deps
	log    *slog.Logger
	cfg    config.Config
}

// NewServer creates and configures the HTTP server.
func NewServer(deps Deps, log *slog.Logger, cfg config.Config) *Server {
	s := &Server{
		deps: deps,
		log:  log,
		cfg:  cfg,
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
	r.Use(Instrument(s.deps.Metrics))

	// Public endpoints.
	r.Get("/health", s.handleHealth)
	if s.deps.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", s.deps.Metrics.Handler())
	}

	// Authenticated endpoints.
	r.Group(func(r chi.Router) {
		r.Use(AuthMiddleware(s.cfg.Server.APIKey, s.log))

		r.Get("/api/documents", s.handleListDocuments)
		r.Route("/api/documents/{docID}", func(r chi.Router) {
			r.Get("/", s.handleGetDocument)
			r.Delete("/", s.handleDeleteDocument)
			r.Get("/outline", s.handleOutline)
			r.Get("/sections/{sectionID}", s.handleSection)
			r.Get("/search", s.handleSearch)
			r.Post("/query", s.handleQuery)
			r.Post("/query/batch", s.handleQueryBatch)
		})

		r.Post("/api/ingest", s.handleIngest)
		r.Post("/api/ingest/batch", s.handleBatchIngest)
		r.Get("/api/ingest/{jobID}/status", s.handleIngestStatus)
		r.Get("/api/stats/llm", s.handleLLMStats)
	})

	s.router = r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":    "ok",
		"documents": s.deps.Library.Len(),
	})
}

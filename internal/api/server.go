package api

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/dgallion1/sumzero/internal/chunker"
	"github.com/dgallion1/sumzero/internal/config"
	"github.com/dgallion1/sumzero/internal/pipeline"
	"github.com/dgallion1/sumzero/internal/summarize"
)

// Server is the HTTP API server for sumzero.
type Server struct {
	router       chi.Router
	orchestrator *pipeline.Orchestrator
	stats        *summarize.Stats
	tok          chunker.Tokenizer
	log          *slog.Logger
	cfg          config.Config
}

// NewServer creates and configures the HTTP server. stats may be nil when
// no completion client is configured.
func NewServer(orch *pipeline.Orchestrator, stats *summarize.Stats, tok chunker.Tokenizer, log *slog.Logger, cfg config.Config) *Server {
	s := &Server{
		orchestrator: orch,
		stats:        stats,
		tok:          tok,
		log:          log,
		cfg:          cfg,
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

	// Public endpoints.
	r.Get("/health", s.handleHealth)

	// Authenticated endpoints.
	r.Group(func(r chi.Router) {
		r.Use(AuthMiddleware(s.cfg.SumzeroAPIKey, s.log))

		r.Post("/api/arcs", s.handleUploadArc)
		r.Get("/api/arcs/{arcID}/chapters", s.handleListChapters)
		r.Get("/api/arcs/{arcID}/plan", s.handlePlan)
		r.Post("/api/arcs/{arcID}/summaries", s.handleSubmitSummaries)

		r.Get("/api/jobs/{jobID}/status", s.handleJobStatus)
		r.Get("/api/jobs/{jobID}/chapters/{chapterID}", s.handleChapterSummary)
		r.Get("/api/jobs/{jobID}/summary", s.handleMergedSummary)

		r.Get("/api/stats/llm", s.handleLLMStats)
	})

	s.router = r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(`{"status":"ok"}`))
}

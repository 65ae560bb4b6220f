package api

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/blockdoc/blockdoc/internal/config"
	"github.com/blockdoc/blockdoc/internal/markup"
	"github.com/blockdoc/blockdoc/internal/schema"
)

// Server is the blockdoc HTTP API: the server-side halves of the editor's
// document pipeline (normalization, TOC anchoring, markdown import, link
// validation).
type Server struct {
	router   chi.Router
	reg      *schema.Registry
	parser   *markup.Parser
	renderer *markup.Renderer
	log      *slog.Logger
	cfg      config.Config
}

// NewServer creates and configures the HTTP server.
func NewServer(log *slog.Logger, cfg config.Config) *Server {
	reg := schema.New(cfg.BaseURL)
	s := &Server{
		reg:      reg,
		parser:   markup.NewParser(reg),
		renderer: markup.NewRenderer(reg),
		log:      log,
		cfg:      cfg,
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
		r.Use(AuthMiddleware(s.cfg.APIKey, s.log))

		r.Post("/api/documents/normalize", s.handleNormalize)
		r.Post("/api/documents/toc", s.handleToc)
		r.Post("/api/documents/markdown", s.handleMarkdown)
		r.Post("/api/links/validate", s.handleValidateLink)
		r.Get("/api/uploads/limits", s.handleUploadLimits)
	})

	s.router = r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(`{"status":"ok"}`))
}

package server

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/claude/wodocr/internal/ingest"
	"github.com/claude/wodocr/internal/models"
	"github.com/go-chi/chi/v5"
)

// CatalogStore is the view of the catalog the HTTP API needs.
type CatalogStore interface {
	Snapshot() models.CatalogSnapshot
	Refresh(ctx context.Context) (models.CatalogSnapshot, error)
}

// Server holds dependencies for HTTP handlers.
type Server struct {
	ingest *ingest.Provider
	store  CatalogStore
	log    *slog.Logger
	apiKey string
	whois  WhoIser
	router chi.Router
}

// New creates a new Server with all routes configured.
func New(provider *ingest.Provider, store CatalogStore, apiKey string, log *slog.Logger) *Server {
	s := &Server{
		ingest: provider,
		store:  store,
		log:    log,
		apiKey: apiKey,
		router: chi.NewRouter(),
	}
	s.routes()
	return s
}

// SetTailscale switches caller identity from the dev user to tailnet WhoIs
// lookups. Call before serving.
func (s *Server) SetTailscale(whois WhoIser) {
	s.whois = whois
}

// MountMCP serves an MCP transport at /mcp behind API key auth.
func (s *Server) MountMCP(h http.Handler) {
	s.router.With(s.identity, APIKeyAuth(s.apiKey)).Handle("/mcp", h)
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) routes() {
	s.router.Use(RequestLogging(s.log))
	s.router.Use(CORS)

	s.router.Get("/healthz", s.handleHealth)

	s.router.Route("/api/v1", func(r chi.Router) {
		r.Use(s.identity)
		r.Get("/me", s.handleMe)

		r.Route("/wod", func(r chi.Router) {
			r.Post("/parse", s.handleParse)
			r.Post("/scan", s.handleScan)
			r.Post("/match", s.handleMatch)

			// OCR calls a metered external service (API key required)
			r.With(APIKeyAuth(s.apiKey)).Post("/ocr", s.handleOCR)
		})

		r.Get("/movements", s.handleMovements)
		r.Get("/movements/resolve", s.handleResolve)
		r.With(APIKeyAuth(s.apiKey)).Post("/movements/refresh", s.handleRefresh)
	})
}

// identity picks the identity middleware at request time so SetTailscale
// may be called after New.
func (s *Server) identity(next http.Handler) http.Handler {
	dev := DevIdentity(next)
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.whois != nil {
			TailscaleIdentity(s.whois, s.log)(next).ServeHTTP(w, r)
			return
		}
		dev.ServeHTTP(w, r)
	})
}

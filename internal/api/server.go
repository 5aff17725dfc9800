// Package api provides the HTTP API server and handlers for the nixground
// gallery.
package api

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/nixground/nixground-server/internal/store/sqlite"
)

// Server holds dependencies for HTTP handlers.
type Server struct {
	store    *sqlite.Store
	services *Services
	router   *chi.Mux
	api      huma.API
	logger   *slog.Logger
}

// NewServer creates a new HTTP server with all routes configured.
// corsOrigins is a comma-separated allowlist; empty allows any origin.
func NewServer(store *sqlite.Store, services *Services, corsOrigins string, logger *slog.Logger) *Server {
	router := chi.NewRouter()

	s := &Server{
		store:    store,
		services: services,
		router:   router,
		logger:   logger,
	}

	s.setupMiddleware(corsOrigins)

	humaConfig := huma.DefaultConfig("nixground API", "1.0.0")
	s.api = humachi.New(router, humaConfig)
	RegisterErrorHandler()

	s.registerHealthRoutes()
	s.registerImageRoutes()
	s.registerUploadRoutes()
	s.registerTagRoutes()

	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// setupMiddleware configures the middleware stack.
func (s *Server) setupMiddleware(corsOrigins string) {
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(middleware.Logger)
	s.router.Use(middleware.Recoverer)
	s.router.Use(middleware.Compress(5))
	s.router.Use(cors.Handler(corsOptions(corsOrigins)))
}

// corsOptions builds the CORS policy from the configured origin allowlist.
func corsOptions(corsOrigins string) cors.Options {
	allowed := []string{"*"}
	if corsOrigins != "" {
		allowed = allowed[:0]
		for _, origin := range strings.Split(corsOrigins, ",") {
			if origin = strings.TrimSpace(origin); origin != "" {
				allowed = append(allowed, origin)
			}
		}
	}

	return cors.Options{
		AllowedOrigins:   allowed,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: false,
		MaxAge:           300,
	}
}

package admin

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"
)

// RegisterRoutes registers all admin API routes using chi router
func RegisterRoutes(mux *http.ServeMux, handlers *Handlers) {
	r := chi.NewRouter()
	r.Use(AuthMiddleware)

	r.Get("/hosts", handlers.handleHosts)
	r.Get("/status", handlers.handleStatus)
	r.Get("/stats", handlers.handleStats)

	mux.Handle("/admin", http.RedirectHandler("/admin/", http.StatusMovedPermanently))
	mux.Handle("/admin/", http.StripPrefix("/admin", r))

	log.Info().Msg("Admin endpoints enabled at /admin/*")
}

// Server hosts the admin API on its own listener
type Server struct {
	httpServer *http.Server
}

// NewServer creates an admin API server bound to the given address
func NewServer(bind string, handlers *Handlers) *Server {
	mux := http.NewServeMux()
	RegisterRoutes(mux, handlers)

	return &Server{
		httpServer: &http.Server{
			Addr:         bind,
			Handler:      mux,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 10 * time.Second,
		},
	}
}

// Start begins serving in a background goroutine
func (s *Server) Start() {
	go func() {
		log.Info().Str("bind", s.httpServer.Addr).Msg("Starting admin API")
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Msg("Admin API server failed")
		}
	}()
}

// Stop shuts the server down, waiting for in-flight requests
func (s *Server) Stop() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.httpServer.Shutdown(ctx); err != nil {
		log.Warn().Err(err).Msg("Admin API shutdown error")
	}
}

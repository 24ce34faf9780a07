package web

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog/log"

	"github.com/scilit/paperbase/internal/database"
)

// Server is the read-mostly diagnostics surface over the storage layer:
// health, schema reports and query statistics. It is operational glue, not a
// product API, and binds locally by default.
type Server struct {
	mgr       *database.Manager
	validator *database.Validator
	monitor   *database.Monitor
	port      int
	bind      string
	router    *chi.Mux
}

// NewServer wires the diagnostics routes over the given storage components.
func NewServer(mgr *database.Manager, validator *database.Validator, monitor *database.Monitor, port int, bind string) *Server {
	s := &Server{
		mgr:       mgr,
		validator: validator,
		monitor:   monitor,
		port:      port,
		bind:      bind,
		router:    chi.NewRouter(),
	}
	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	r := s.router
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.Timeout(60 * time.Second))

	r.Get("/healthz", s.handleHealth)

	r.Route("/api", func(r chi.Router) {
		r.Get("/schema/validation", s.handleSchemaValidation)
		r.Get("/schema/info", s.handleSchemaInfo)
		r.Get("/queries/report", s.handleQueryReport)
		r.Post("/queries/reset", s.handleQueryReset)
		r.Post("/maintenance/optimize", s.handleMaintenance("optimize", s.mgr.Optimize))
		r.Post("/maintenance/checkpoint", s.handleMaintenance("checkpoint", s.mgr.Checkpoint))
		r.Post("/maintenance/vacuum", s.handleMaintenance("vacuum", s.mgr.Vacuum))
		r.Post("/maintenance/integrity", s.handleMaintenance("integrity_check", s.mgr.IntegrityCheck))
	})
}

// Router exposes the handler tree, mainly for tests.
func (s *Server) Router() http.Handler {
	return s.router
}

// Start runs the HTTP server until ctx is cancelled, then shuts down
// gracefully.
func (s *Server) Start(ctx context.Context) error {
	addr := fmt.Sprintf(":%d", s.port)
	if s.bind != "" {
		addr = fmt.Sprintf("%s:%d", s.bind, s.port)
	}

	server := &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	errChan := make(chan error, 1)
	go func() {
		log.Info().Str("addr", addr).Msg("Starting diagnostics server")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errChan <- err
		}
	}()

	select {
	case <-ctx.Done():
		log.Info().Msg("Shutting down diagnostics server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	case err := <-errChan:
		return err
	}
}

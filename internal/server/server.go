// Package server provides the HTTP server and routing for the gate lab.
package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog"

	"github.com/aristath/rqlab/internal/config"
	"github.com/aristath/rqlab/internal/di"
	chartshandlers "github.com/aristath/rqlab/internal/modules/charts/handlers"
	runshandlers "github.com/aristath/rqlab/internal/modules/runs/handlers"
	simulationhandlers "github.com/aristath/rqlab/internal/modules/simulation/handlers"
)

// Config holds server configuration
type Config struct {
	Log       zerolog.Logger
	Config    *config.Config
	Container *di.Container
	Port      int
	DevMode   bool
}

// Server represents the HTTP server
type Server struct {
	router    *chi.Mux
	server    *http.Server
	log       zerolog.Logger
	cfg       *config.Config
	container *di.Container
}

// New creates a new HTTP server
func New(cfg Config) *Server {
	s := &Server{
		router:    chi.NewRouter(),
		log:       cfg.Log.With().Str("component", "server").Logger(),
		cfg:       cfg.Config,
		container: cfg.Container,
	}

	s.setupMiddleware(cfg.DevMode)
	s.setupRoutes()

	s.server = &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      s.router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 0, // SSE connections stay open
		IdleTimeout:  120 * time.Second,
	}

	return s
}

func (s *Server) setupMiddleware(devMode bool) {
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(middleware.Recoverer)

	// Permissive CORS in dev mode so a separately served frontend can talk
	// to the API; locked to same-origin otherwise.
	if devMode {
		s.router.Use(cors.Handler(cors.Options{
			AllowedOrigins: []string{"*"},
			AllowedMethods: []string{"GET", "POST", "DELETE", "OPTIONS"},
			AllowedHeaders: []string{"Accept", "Content-Type"},
			MaxAge:         300,
		}))
	}
}

func (s *Server) setupRoutes() {
	c := s.container

	simHandler := simulationhandlers.NewHandler(
		c.SimulationService,
		c.RunRepo,
		simulationhandlers.Defaults{
			NPoints:     s.cfg.DefaultSweepPoints,
			NLevels:     s.cfg.DefaultLevels,
			MaxFailures: s.cfg.MaxSweepFailures,
		},
		s.log,
	)
	runsHandler := runshandlers.NewHandler(c.RunRepo, c.EventBus, s.log)
	chartsHandler := chartshandlers.NewHandler(c.ChartsService, c.RunRepo, s.log)
	systemHandlers := NewSystemHandlers(s.cfg.DataDir, c.ResultsDB, c.BackupService, s.log)
	eventsStream := NewEventsStreamHandler(c.EventBus, s.log)

	s.router.Route("/api", func(r chi.Router) {
		simHandler.RegisterRoutes(r)
		runsHandler.RegisterRoutes(r)
		chartsHandler.RegisterRoutes(r)

		r.Get("/system/status", systemHandlers.HandleSystemStatus)
		r.Get("/system/health", systemHandlers.HandleHealth)
		r.Post("/system/backup", systemHandlers.HandleTriggerBackup)

		r.Get("/events/stream", eventsStream.ServeHTTP)
	})
}

// Start begins listening for HTTP requests
func (s *Server) Start() error {
	s.log.Info().Str("addr", s.server.Addr).Msg("HTTP server listening")
	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("http server failed: %w", err)
	}
	return nil
}

// Shutdown gracefully stops the server
func (s *Server) Shutdown(ctx context.Context) error {
	s.log.Info().Msg("Shutting down HTTP server")
	return s.server.Shutdown(ctx)
}

// Package server provides the HTTP server and routing for Quantara.
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

	"github.com/Xconmax245/Quantara/internal/config"
	"github.com/Xconmax245/Quantara/internal/database"
	"github.com/Xconmax245/Quantara/internal/events"
	"github.com/Xconmax245/Quantara/internal/modules/capital"
	capitalhandlers "github.com/Xconmax245/Quantara/internal/modules/capital/handlers"
	"github.com/Xconmax245/Quantara/internal/modules/compliance"
	compliancehandlers "github.com/Xconmax245/Quantara/internal/modules/compliance/handlers"
	"github.com/Xconmax245/Quantara/internal/modules/contracts"
	contracthandlers "github.com/Xconmax245/Quantara/internal/modules/contracts/handlers"
	"github.com/Xconmax245/Quantara/internal/modules/income"
	incomehandlers "github.com/Xconmax245/Quantara/internal/modules/income/handlers"
	"github.com/Xconmax245/Quantara/internal/modules/insurance"
	insurancehandlers "github.com/Xconmax245/Quantara/internal/modules/insurance/handlers"
	"github.com/Xconmax245/Quantara/internal/modules/risk"
	riskhandlers "github.com/Xconmax245/Quantara/internal/modules/risk/handlers"
)

// Config holds server configuration.
type Config struct {
	Log        zerolog.Logger
	Cfg        *config.Config
	ProtocolDB *database.DB
	LedgerDB   *database.DB
	CacheDB    *database.DB

	EventBus     *events.Bus
	EventArchive *events.Archive

	RiskService       *risk.Service
	IncomeService     *income.Service
	ContractService   *contracts.Service
	CapitalService    *capital.Service
	InsuranceService  *insurance.Service
	ComplianceService *compliance.Service
}

// Server is the HTTP front door for the protocol.
type Server struct {
	router *chi.Mux
	server *http.Server
	log    zerolog.Logger
	cfg    Config
}

// New creates a new HTTP server.
func New(cfg Config) *Server {
	s := &Server{
		router: chi.NewRouter(),
		log:    cfg.Log.With().Str("component", "server").Logger(),
		cfg:    cfg,
	}

	s.setupMiddleware(cfg.Cfg.DevMode)
	s.setupRoutes()

	s.server = &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Cfg.Port),
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return s
}

// Router returns the configured router. Used by handler tests.
func (s *Server) Router() chi.Router {
	return s.router
}

// setupMiddleware configures middleware.
func (s *Server) setupMiddleware(devMode bool) {
	s.router.Use(middleware.Recoverer)
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(s.loggingMiddleware)
	s.router.Use(middleware.Timeout(60 * time.Second))

	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	if !devMode {
		s.router.Use(middleware.Compress(5))
	}
}

// setupRoutes configures all routes.
func (s *Server) setupRoutes() {
	s.router.Get("/health", s.handleHealth)

	s.router.Route("/api", func(r chi.Router) {
		// Event streaming routes come before the module routes
		streamHandler := NewEventsStreamHandler(s.cfg.EventBus, s.log)
		r.Get("/events/stream", streamHandler.ServeHTTP)

		socketHandler := NewEventsSocketHandler(s.cfg.EventBus, s.log)
		r.Get("/events/ws", socketHandler.ServeHTTP)

		eventsHandler := NewEventsHandler(s.cfg.EventArchive, s.log)
		r.Get("/events", eventsHandler.HandleRecent)

		systemHandlers := NewSystemHandlers(s.log, s.cfg.Cfg.DataDir,
			s.cfg.ProtocolDB, s.cfg.LedgerDB, s.cfg.CacheDB)
		r.Route("/system", func(r chi.Router) {
			r.Get("/health", systemHandlers.HandleHealth)
			r.Get("/database/stats", systemHandlers.HandleDatabaseStats)
			r.Get("/disk", systemHandlers.HandleDiskUsage)
		})

		metricsHandler := NewMetricsHandler(s.cfg.ContractService, s.cfg.CapitalService, s.cfg.InsuranceService, s.log)
		r.Get("/metrics", metricsHandler.HandleMetrics)

		riskhandlers.NewHandler(s.cfg.RiskService, s.log).RegisterRoutes(r)
		incomehandlers.NewHandler(s.cfg.IncomeService, s.log).RegisterRoutes(r)
		contracthandlers.NewHandler(s.cfg.ContractService, s.log).RegisterRoutes(r)
		capitalhandlers.NewHandler(s.cfg.CapitalService, s.log).RegisterRoutes(r)
		insurancehandlers.NewHandler(s.cfg.InsuranceService, s.log).RegisterRoutes(r)
		compliancehandlers.NewHandler(s.cfg.ComplianceService, s.log).RegisterRoutes(r)
	})
}

// handleHealth is the liveness probe.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	fmt.Fprintf(w, `{"status":"ok","timestamp":"%s"}`, time.Now().Format(time.RFC3339))
}

// Start starts the HTTP server.
func (s *Server) Start() error {
	s.log.Info().Int("port", s.cfg.Cfg.Port).Msg("Starting HTTP server")
	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.log.Info().Msg("Shutting down HTTP server")
	return s.server.Shutdown(ctx)
}

// loggingMiddleware logs HTTP requests.
func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		s.log.Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Int("bytes", ww.BytesWritten()).
			Dur("duration_ms", time.Since(start)).
			Str("request_id", middleware.GetReqID(r.Context())).
			Msg("HTTP request")
	})
}

// Package server wires the router, middleware and routes of the API and
// manages the HTTP server lifecycle.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	_ "net/http/pprof"
	"net/netip"
	"time"

	"github.com/giygas/desprescricao-api/config"
	"github.com/giygas/desprescricao-api/handlers"
	"github.com/giygas/desprescricao-api/interfaces"
	"github.com/giygas/desprescricao-api/logging"
	"github.com/giygas/desprescricao-api/metrics"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const profilingAddr = "localhost:6060"

// Server represents the HTTP server
type Server struct {
	server  *http.Server
	router  chi.Router
	config  *config.Config
	handler interfaces.HTTPHandler
	limiter *RateLimiter
}

// NewServer creates a new server instance
func NewServer(cfg *config.Config, handler interfaces.HTTPHandler, limiter *RateLimiter) *Server {
	router := chi.NewRouter()

	if limiter == nil {
		limiter = NewRateLimiter(DefaultRefillRate, DefaultCapacity)
	}

	s := &Server{
		server: &http.Server{
			Handler:           router,
			Addr:              cfg.Address + ":" + cfg.Port,
			ReadTimeout:       15 * time.Second,
			ReadHeaderTimeout: 5 * time.Second,
			WriteTimeout:      15 * time.Second,
			IdleTimeout:       60 * time.Second,
			MaxHeaderBytes:    int(cfg.MaxHeaderSize),
		},
		router:  router,
		config:  cfg,
		handler: handler,
		limiter: limiter,
	}

	s.setupMiddleware()
	s.setupRoutes()

	return s
}

// setupMiddleware configures all middleware
func (s *Server) setupMiddleware() {
	logger := logging.DefaultLoggingService

	s.router.Use(middleware.RequestID)
	s.router.Use(RealIPMiddleware(s.trustedProxies()))
	if logger != nil && logger.Logger != nil {
		s.router.Use(logging.LoggingMiddleware(logger.Logger))
	}
	s.router.Use(metrics.Metrics)
	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins: s.config.AllowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type", "X-Request-Id"},
		ExposedHeaders: []string{
			handlers.CalculationIDHeader,
			"X-RateLimit-Limit",
			"X-RateLimit-Remaining",
			"Retry-After",
		},
		MaxAge: 300,
	}))
	s.router.Use(middleware.RedirectSlashes)
	s.router.Use(middleware.Recoverer)
	s.router.Use(RequestSizeMiddleware(s.config))
	s.router.Use(s.limiter.Middleware)
}

// trustedProxies parses the configured proxies. Config.Load already rejects
// bad entries, so a failure here only drops the proxy trust.
func (s *Server) trustedProxies() []netip.Prefix {
	prefixes, err := config.ParseTrustedProxies(s.config.TrustedProxies)
	if err != nil {
		logging.Warn("Ignoring trusted proxies", "error", err)
		return nil
	}
	return prefixes
}

// setupRoutes configures all routes
func (s *Server) setupRoutes() {
	s.router.Get("/", s.handler.Home)
	s.router.Get("/desprescrever", s.handler.Deprescribe)
	s.router.Get("/protocolos", s.handler.ListProtocols)
	s.router.Get("/health", s.handler.HealthCheck)
	s.router.Handle("/metrics", promhttp.Handler())

	s.router.NotFound(func(w http.ResponseWriter, r *http.Request) {
		respondWithJSON(w, http.StatusNotFound, map[string]string{"error": "not found"})
	})
	s.router.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		respondWithJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
	})
}

// Router exposes the configured router, mainly for tests
func (s *Server) Router() http.Handler {
	return s.router
}

// Start starts the server and blocks until it stops. A graceful shutdown
// returns nil.
func (s *Server) Start() error {
	if s.config.Env == config.EnvDevelopment {
		s.startProfilingServer()
	}

	logging.Info(fmt.Sprintf("Starting server at: %s", s.server.Addr))
	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	logging.Info("Shutting down server...")

	if err := s.server.Shutdown(ctx); err != nil {
		logging.Error("Server forced to shutdown", "error", err)
		if closeErr := s.server.Close(); closeErr != nil {
			logging.Error("Server close error", "error", closeErr)
			return closeErr
		}
		return err
	}

	logging.Info("Server shutdown complete")
	return nil
}

// startProfilingServer serves pprof on localhost in development
func (s *Server) startProfilingServer() {
	go func() {
		logging.Info("Profiling server started", "url", "http://"+profilingAddr+"/debug/pprof/")
		if err := http.ListenAndServe(profilingAddr, nil); err != nil {
			logging.Warn("Profiling server failed", "error", err)
		}
	}()
}

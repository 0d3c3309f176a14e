// Package server wires the pantry handlers into the HTTP servers.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/vyrodovalexey/pantry-tracker/internal/auth"
	"github.com/vyrodovalexey/pantry-tracker/internal/config"
	"github.com/vyrodovalexey/pantry-tracker/internal/handler"
	"github.com/vyrodovalexey/pantry-tracker/internal/inventory"
	"github.com/vyrodovalexey/pantry-tracker/internal/middleware"
	"github.com/vyrodovalexey/pantry-tracker/internal/store"
)

// Components are the application parts the server routes to.
type Components struct {
	Store         store.Store
	Controller    *inventory.Controller
	Events        *inventory.Broadcaster
	Authenticator auth.Authenticator
}

// Server represents the HTTP server and the optional probe server.
type Server struct {
	httpServer    *http.Server
	probeServer   *http.Server
	router        *mux.Router
	probeRouter   *mux.Router
	config        *config.Config
	logger        *zap.Logger
	authenticator auth.Authenticator
	wsHandler     *handler.WebSocketHandler
}

// New creates a new Server instance.
func New(cfg *config.Config, logger *zap.Logger, c Components) *Server {
	s := &Server{
		router:        mux.NewRouter().UseEncodedPath(),
		probeRouter:   mux.NewRouter(),
		config:        cfg,
		logger:        logger,
		authenticator: c.Authenticator,
	}

	s.setupMiddleware()
	s.setupRoutes(c)
	s.setupProbeRoutes(c)
	s.setupHTTPServers()

	return s
}

// setupMiddleware configures the middleware chain. Logging wraps Auth so
// request logs carry the authenticated subject.
func (s *Server) setupMiddleware() {
	s.router.Use(mux.MiddlewareFunc(middleware.Recovery(s.logger)))
	s.router.Use(mux.MiddlewareFunc(middleware.RequestID()))

	if s.config.MetricsEnabled {
		s.router.Use(mux.MiddlewareFunc(middleware.Metrics()))
	}

	s.router.Use(mux.MiddlewareFunc(middleware.Logging(s.logger)))
	s.router.Use(mux.MiddlewareFunc(middleware.Auth(s.authenticator, s.logger)))
}

// setupRoutes registers the page, API, change feed and probe routes.
func (s *Server) setupRoutes(c Components) {
	timeout := s.config.StoreTimeout

	handler.NewProbeHandler(pingerOf(c.Store), timeout, s.logger).RegisterRoutes(s.router)
	handler.NewRESTHandler(c.Controller, timeout, s.logger).RegisterRoutes(s.router)
	handler.NewPageHandler(c.Controller, timeout, s.logger).RegisterRoutes(s.router)

	s.wsHandler = handler.NewWebSocketHandler(c.Events, s.logger)
	s.wsHandler.RegisterRoutes(s.router)

	if s.config.MetricsEnabled {
		s.router.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)
	}
}

// setupProbeRoutes configures the unauthenticated probe router.
func (s *Server) setupProbeRoutes(c Components) {
	s.probeRouter.Use(mux.MiddlewareFunc(middleware.Recovery(s.logger)))

	handler.NewProbeHandler(pingerOf(c.Store), s.config.StoreTimeout, s.logger).RegisterRoutes(s.probeRouter)

	if s.config.MetricsEnabled {
		s.probeRouter.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)
	}
}

// setupHTTPServers configures the main server and, when a probe port is
// set, the probe server.
func (s *Server) setupHTTPServers() {
	s.httpServer = &http.Server{
		Addr:              s.config.Address(),
		Handler:           s.router,
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
		MaxHeaderBytes:    1 << 20, // 1 MB
	}

	if s.config.ProbePort > 0 {
		s.probeServer = &http.Server{
			Addr:              s.config.ProbeAddress(),
			Handler:           s.probeRouter,
			ReadHeaderTimeout: 5 * time.Second,
			ReadTimeout:       5 * time.Second,
			WriteTimeout:      5 * time.Second,
			IdleTimeout:       30 * time.Second,
		}
	}
}

// Start starts the probe server in the background and serves the main
// server until it is shut down.
func (s *Server) Start() error {
	if s.probeServer != nil {
		go func() {
			s.logger.Info("starting probe server", zap.String("address", s.probeServer.Addr))
			if err := s.probeServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				s.logger.Error("probe server failed", zap.Error(err))
			}
		}()
	}

	s.logger.Info("starting server",
		zap.String("address", s.config.Address()),
		zap.Bool("metrics_enabled", s.config.MetricsEnabled),
		zap.String("store_backend", s.config.StoreBackend),
		zap.Bool("auth_enabled", s.authenticator != nil),
	)

	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server listen and serve: %w", err)
	}

	return nil
}

// Shutdown closes the change feed connections, then drains both servers.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down server")

	if s.wsHandler != nil {
		s.wsHandler.CloseAllConnections()
	}

	var errs []error
	if err := s.httpServer.Shutdown(ctx); err != nil {
		errs = append(errs, fmt.Errorf("server shutdown: %w", err))
	}
	if s.probeServer != nil {
		if err := s.probeServer.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("probe server shutdown: %w", err))
		}
	}
	if len(errs) > 0 {
		return errors.Join(errs...)
	}

	s.logger.Info("server shutdown complete")
	return nil
}

// Router returns the server's router for testing purposes.
func (s *Server) Router() *mux.Router {
	return s.router
}

// ProbeRouter returns the probe router for testing purposes.
func (s *Server) ProbeRouter() *mux.Router {
	return s.probeRouter
}

// pingerOf returns the store's Pinger, or nil when it has nothing to ping.
func pingerOf(s store.Store) store.Pinger {
	if p, ok := s.(store.Pinger); ok {
		return p
	}
	return nil
}

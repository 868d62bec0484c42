// Package server provides the HTTP server setup and wiring.
package server

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	analyzerDomain "github.com/ledgerlens/ledgerlens/internal/analyzer/domain"
	analyzerTransport "github.com/ledgerlens/ledgerlens/internal/analyzer/transport"
	"github.com/ledgerlens/ledgerlens/internal/auth"
	"github.com/ledgerlens/ledgerlens/internal/config"
	"github.com/ledgerlens/ledgerlens/internal/events"
	eventsTransport "github.com/ledgerlens/ledgerlens/internal/events/transport"
	"github.com/ledgerlens/ledgerlens/internal/gas"
	"github.com/ledgerlens/ledgerlens/internal/middleware/logging"
	"github.com/ledgerlens/ledgerlens/internal/middleware/ratelimit"
	"github.com/ledgerlens/ledgerlens/internal/middleware/realip"
	"github.com/ledgerlens/ledgerlens/internal/middleware/security"
	"github.com/ledgerlens/ledgerlens/internal/observability/metrics"
	registryDomain "github.com/ledgerlens/ledgerlens/internal/registry/domain"
	registryTransport "github.com/ledgerlens/ledgerlens/internal/registry/transport"
	"github.com/ledgerlens/ledgerlens/internal/storage"
)

// Server is the HTTP server
type Server struct {
	cfg    *config.Config
	store  storage.Store
	logger *slog.Logger
	router *chi.Mux
	bus    *events.Bus
	oracle *gas.Oracle

	// Services typed via transport interfaces
	analyzerSvc analyzerTransport.Service
	registrySvc registryTransport.Service
}

// New creates a new server
func New(cfg *config.Config, store storage.Store, logger *slog.Logger) *Server {
	s := &Server{
		cfg:    cfg,
		store:  store,
		logger: logger,
		router: chi.NewRouter(),
		bus:    events.NewBus(),
		oracle: gas.NewOracle(gas.OracleConfig{
			DefaultPrice: cfg.Gas.DefaultPrice,
			SampleWindow: cfg.Gas.SampleWindow,
			Percentile:   cfg.Gas.Percentile,
		}),
	}

	// Create domain services
	analyzerImpl := analyzerDomain.NewService(store, store, s.bus, s.oracle, nil)
	registryImpl := registryDomain.NewService(store, registryDomain.NewFeePolicy(store), s.bus)

	// Wrap services with logging middleware
	s.analyzerSvc = analyzerDomain.LoggingMiddleware(logger)(analyzerImpl)
	s.registrySvc = registryDomain.LoggingMiddleware(logger)(registryImpl)

	s.setupMiddleware()
	s.setupRoutes()

	return s
}

// Handler returns the HTTP handler
func (s *Server) Handler() http.Handler {
	return s.router
}

// MetricsHandler returns the metrics HTTP handler for separate metrics server
func (s *Server) MetricsHandler() http.Handler {
	return metrics.Handler()
}

// Bus returns the in-process event bus.
func (s *Server) Bus() *events.Bus {
	return s.bus
}

// Close releases server-owned resources.
func (s *Server) Close() {
	s.bus.Close()
}

// SeedFeeState writes the configured platform fee on first start. An
// existing fee state always wins so admin updates survive restarts.
func (s *Server) SeedFeeState(ctx context.Context) error {
	fs, err := s.store.GetFeeState(ctx)
	if err != nil {
		return err
	}
	if fs.UpdatedAt != "" {
		return nil
	}
	if s.cfg.Fees.PlatformFee == "0" && s.cfg.Fees.Treasury == "" {
		return nil
	}

	payload, _ := json.Marshal(map[string]any{
		"fee":      s.cfg.Fees.PlatformFee,
		"treasury": s.cfg.Fees.Treasury,
	})
	seq, err := s.store.SetFeeState(ctx, s.cfg.Fees.PlatformFee, s.cfg.Fees.Treasury,
		storage.EventInput{Type: events.TypeFeeUpdated, Payload: payload})
	if err != nil {
		return err
	}
	s.bus.Publish(events.Event{Seq: seq, Type: events.TypeFeeUpdated, Payload: payload})
	s.logger.Info("seeded fee state", "fee", s.cfg.Fees.PlatformFee, "treasury", s.cfg.Fees.Treasury)
	return nil
}

func (s *Server) setupMiddleware() {
	// Order matters! Security middleware runs first to block malicious requests early.

	// 1. Real IP extraction (must be first to set client IP for other middleware)
	s.router.Use(realip.Middleware(realip.Config{
		TrustProxy:     s.cfg.Proxy.TrustProxy,
		TrustedProxies: s.cfg.Proxy.TrustedProxies,
	}))

	// 2. Security filter (blocks malicious patterns, bypasses health checks)
	s.router.Use(security.FilterMiddleware(s.cfg.Security.FilterEnabled))

	// 3. Body size limit
	s.router.Use(security.MaxBodySizeMiddleware(s.cfg.Security.MaxBodySizeMB))

	// 4. Rate limiting (bypasses health checks and the event feed)
	s.router.Use(ratelimit.Middleware(ratelimit.Config{
		Enabled:        s.cfg.RateLimit.Enabled,
		RequestsPerMin: s.cfg.RateLimit.RequestsPerMin,
		BurstSize:      s.cfg.RateLimit.BurstSize,
		CleanupMinutes: s.cfg.RateLimit.CleanupMinutes,
	}))

	// 5. Standard middleware
	s.router.Use(middleware.RequestID)
	s.router.Use(logging.Middleware(s.logger))
	s.router.Use(metrics.Middleware)
	s.router.Use(middleware.Recoverer)
	s.router.Use(middleware.Compress(5))

	// 6. CORS
	s.router.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Access-Control-Allow-Origin", "*")
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, PATCH, DELETE, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Accept, Authorization, Content-Type, X-API-Key")
			if r.Method == "OPTIONS" {
				w.WriteHeader(http.StatusOK)
				return
			}
			next.ServeHTTP(w, r)
		})
	})
}

func (s *Server) setupRoutes() {
	// Health checks
	s.router.Get("/health", s.handleHealth)
	s.router.Get("/healthz", s.handleHealth)
	s.router.Get("/readyz", s.handleHealth)

	// Create HTTP handlers for each domain
	analyzerHandler := analyzerTransport.NewHandler(s.analyzerSvc, s.oracle)
	registryHandler := registryTransport.NewHandler(s.registrySvc)
	eventsHandler := eventsTransport.NewHandler(s.store, s.bus, s.logger)

	// Auth middleware for admin operations
	requireAuth := func(r chi.Router) {
		if s.cfg.Auth.Type == "api-key" {
			r.Use(auth.Middleware(s.store, writeError))
		}
	}

	// API v1 routes
	s.router.Route("/api/v1", func(r chi.Router) {
		r.Get("/version", s.handleVersion)

		r.Route("/analyzer", func(r chi.Router) {
			analyzerHandler.RegisterRoutes(r)
		})

		r.Route("/registry", func(r chi.Router) {
			registryHandler.RegisterRoutes(r)
		})

		r.Route("/events", func(r chi.Router) {
			eventsHandler.RegisterRoutes(r)
		})

		// Admin operations - auth required
		r.Route("/admin", func(r chi.Router) {
			requireAuth(r)
			r.Put("/fee", s.handleSetFee)
			r.Put("/accounts/{address}", s.handleSeedAccount)
		})
	})
}

// Health check handler
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// Helper functions

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]any{
		"error": map[string]any{
			"code":    code,
			"message": message,
		},
	})
}

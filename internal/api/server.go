// internal/api/server.go
package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	apihandler "github.com/newthinker/pairdash/internal/api/handler/api"
	"github.com/newthinker/pairdash/internal/api/job"
	"github.com/newthinker/pairdash/internal/api/middleware"
	"github.com/newthinker/pairdash/internal/api/stream"
	"github.com/newthinker/pairdash/internal/metrics"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// Server represents the HTTP server for pairdash
type Server struct {
	httpServer *http.Server
	logger     *zap.Logger
	mux        *http.ServeMux
	handler    http.Handler
}

// Config holds server configuration
type Config struct {
	Host        string
	Port        int
	APIKey      string
	MetricsPath string
}

// Dependencies are the components the routes serve.
type Dependencies struct {
	Session       apihandler.SessionManager
	Strategies    apihandler.StrategyStore
	Indicators    apihandler.IndicatorSource
	Notifications apihandler.Inbox
	Journal       apihandler.TradeJournal
	Jobs          *job.Store
	Hub           *stream.Hub
	Metrics       *metrics.Registry
}

// NewServer creates a new HTTP server
func NewServer(cfg Config, deps Dependencies, logger *zap.Logger) (*Server, error) {
	if deps.Session == nil || deps.Strategies == nil || deps.Indicators == nil {
		return nil, fmt.Errorf("session, strategies and indicators are required")
	}
	if deps.Jobs == nil {
		deps.Jobs = job.NewStore(100, time.Hour)
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	mux := http.NewServeMux()
	s := &Server{
		logger: logger,
		mux:    mux,
	}
	s.setupRoutes(cfg, deps)

	// Logging must wrap metrics: the metrics middleware reads the pattern the
	// mux stores on the request it was handed.
	var h http.Handler = mux
	if deps.Metrics != nil {
		h = metrics.HTTPMiddleware(deps.Metrics)(h)
	}
	s.handler = metrics.LoggingMiddleware(logger)(h)

	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Handler:      s.handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	return s, nil
}

// setupRoutes configures all HTTP routes
func (s *Server) setupRoutes(cfg Config, deps Dependencies) {
	s.mux.HandleFunc("GET /api/health", s.handleHealth)

	if deps.Metrics != nil {
		path := cfg.MetricsPath
		if path == "" {
			path = "/metrics"
		}
		s.mux.Handle("GET "+path, promhttp.HandlerFor(deps.Metrics, promhttp.HandlerOpts{}))
	}

	api := http.NewServeMux()

	conn := apihandler.NewConnectionHandler(deps.Session, deps.Jobs)
	api.HandleFunc("GET /api/connection", conn.Get)
	api.HandleFunc("POST /api/connection/connect", conn.Connect)
	api.HandleFunc("POST /api/connection/disconnect", conn.Disconnect)
	api.HandleFunc("POST /api/connection/reconnect", conn.Reconnect)
	api.HandleFunc("POST /api/connection/refresh", conn.Refresh)

	jobs := apihandler.NewJobsHandler(deps.Jobs)
	api.HandleFunc("GET /api/jobs", jobs.List)
	api.HandleFunc("GET /api/jobs/{id}", jobs.Get)

	strategies := apihandler.NewStrategiesHandler(deps.Strategies)
	api.HandleFunc("GET /api/strategies", strategies.List)
	api.HandleFunc("POST /api/strategies", strategies.Create)
	api.HandleFunc("GET /api/strategies/defaults", strategies.Defaults)
	api.HandleFunc("GET /api/strategies/{id}", strategies.Get)
	api.HandleFunc("PUT /api/strategies/{id}", strategies.Update)
	api.HandleFunc("DELETE /api/strategies/{id}", strategies.Delete)

	indicators := apihandler.NewIndicatorsHandler(deps.Indicators)
	api.HandleFunc("GET /api/indicators", indicators.List)
	api.HandleFunc("GET /api/indicators/{id}", indicators.Get)

	if deps.Notifications != nil {
		notifications := apihandler.NewNotificationsHandler(deps.Notifications)
		api.HandleFunc("GET /api/notifications", notifications.List)
		api.HandleFunc("POST /api/notifications/read-all", notifications.MarkAllRead)
		api.HandleFunc("POST /api/notifications/{id}/read", notifications.MarkRead)
	}

	if deps.Journal != nil {
		analytics := apihandler.NewAnalyticsHandler(deps.Journal)
		api.HandleFunc("GET /api/trades", analytics.Trades)
		api.HandleFunc("POST /api/trades", analytics.AddTrade)
		api.HandleFunc("GET /api/analytics/performance", analytics.Performance)
		api.HandleFunc("GET /api/analytics/strategies", analytics.Strategies)
	}

	auth := middleware.APIKeyAuth(cfg.APIKey)
	s.mux.Handle("/api/", auth(api))
	if deps.Hub != nil {
		s.mux.Handle("GET /ws", auth(deps.Hub))
	}
}

// Handler returns the root handler with middleware applied.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Start starts the HTTP server
func (s *Server) Start() error {
	s.logger.Info("starting HTTP server", zap.String("addr", s.httpServer.Addr))
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server error: %w", err)
	}
	return nil
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down HTTP server")
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"ok"}`))
}

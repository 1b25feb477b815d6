package api

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/eshaffer321/sitebuy-backend/internal/api/handlers"
	"github.com/eshaffer321/sitebuy-backend/internal/api/middleware"
	"github.com/eshaffer321/sitebuy-backend/internal/application/invoicing"
	"github.com/eshaffer321/sitebuy-backend/internal/application/purchasing"
	"github.com/eshaffer321/sitebuy-backend/internal/application/reporting"
)

// Config holds API server configuration.
type Config struct {
	Port           int
	AllowedOrigins []string

	// RequestsPerSecond <= 0 disables rate limiting.
	RequestsPerSecond float64
	Burst             int

	// IncludePending is the forecast default when a request omits it.
	IncludePending bool
}

// DefaultConfig returns sensible defaults for the API server.
func DefaultConfig() Config {
	return Config{
		Port:              8080,
		AllowedOrigins:    []string{"http://localhost:3000", "http://localhost:5173"},
		RequestsPerSecond: 20,
		Burst:             40,
	}
}

// Services are the application services the API exposes.
type Services struct {
	Invoicing  *invoicing.Service
	Purchasing *purchasing.Service
	Forecast   *reporting.ForecastService
}

// Server is the HTTP API server.
type Server struct {
	config     Config
	router     *gin.Engine
	httpServer *http.Server
	logger     *slog.Logger
	services   Services
}

// NewServer creates a new API server.
func NewServer(cfg Config, services Services, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}

	gin.SetMode(gin.ReleaseMode)
	s := &Server{
		config:   cfg,
		router:   gin.New(),
		logger:   logger,
		services: services,
	}

	s.setupMiddleware()
	s.setupRoutes()

	return s
}

// setupMiddleware configures global middleware.
func (s *Server) setupMiddleware() {
	s.router.Use(middleware.Recovery(s.logger))
	s.router.Use(middleware.Logging(s.logger))

	corsConfig := middleware.DefaultCORSConfig()
	corsConfig.AllowedOrigins = s.config.AllowedOrigins
	s.router.Use(middleware.CORS(corsConfig))

	if s.config.RequestsPerSecond > 0 {
		s.router.Use(middleware.NewRateLimiter(s.config.RequestsPerSecond, s.config.Burst).Middleware())
	}
}

// setupRoutes configures all API routes.
func (s *Server) setupRoutes() {
	// Health check (no /api prefix - for load balancers)
	s.router.GET("/health", handlers.NewHealthHandler().Get)

	api := s.router.Group("/api")

	if s.services.Invoicing != nil {
		invoices := handlers.NewInvoicesHandler(s.services.Invoicing, s.logger)
		api.POST("/invoices", invoices.Create)
		api.POST("/invoices/sweep", invoices.Sweep)
		api.GET("/invoices/:id", invoices.Get)
		api.GET("/invoices/:id/history", invoices.History)
		api.POST("/invoices/:id/match", invoices.Match)
		api.POST("/invoices/:id/manual-match", invoices.ManualMatch)
		api.POST("/invoices/:id/pay", invoices.Pay)
		api.POST("/invoices/:id/requeue", invoices.Requeue)

		api.GET("/organizations/:id/tolerances", invoices.GetTolerance)
		api.PUT("/organizations/:id/tolerances", invoices.PutTolerance)
	}

	if s.services.Purchasing != nil {
		buying := handlers.NewPurchasingHandler(s.services.Purchasing, s.logger)
		api.POST("/purchase-orders", buying.CreatePurchaseOrder)
		api.GET("/purchase-orders/:id", buying.GetPurchaseOrder)
		api.POST("/purchase-orders/:id/status", buying.UpdateStatus)
		api.POST("/deliveries", buying.RecordDelivery)
	}

	if s.services.Forecast != nil {
		fc := handlers.NewForecastHandler(s.services.Forecast, s.config.IncludePending, s.logger)
		api.POST("/contract-estimates", fc.CreateEstimate)
		api.POST("/materials", fc.CreateMaterial)

		reports := api.Group("/reporting/contract-forecasting/:projectId")
		reports.GET("", fc.Get)
		reports.GET("/verify", fc.Verify)
		reports.GET("/export.csv", fc.ExportCSV)
		reports.GET("/export.xlsx", fc.ExportXLSX)
	}
}

// Start starts the HTTP server.
func (s *Server) Start() error {
	addr := fmt.Sprintf(":%d", s.config.Port)

	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	s.logger.Info("starting API server", "addr", addr)

	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server error: %w", err)
	}

	return nil
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down API server")

	if s.httpServer == nil {
		return nil
	}

	return s.httpServer.Shutdown(ctx)
}

// Router returns the HTTP handler for testing.
func (s *Server) Router() http.Handler {
	return s.router
}

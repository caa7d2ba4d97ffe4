// Package server sets up the HTTP server with all routes
package server

import (
	"context"
	"crypto/rand"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	_ "github.com/lib/pq" // PostgreSQL driver

	"github.com/sentinelml/sentinel/internal/config"
	"github.com/sentinelml/sentinel/internal/drift"
	"github.com/sentinelml/sentinel/internal/health"
	"github.com/sentinelml/sentinel/internal/logging"
	"github.com/sentinelml/sentinel/internal/metrics"
	"github.com/sentinelml/sentinel/internal/model"
	"github.com/sentinelml/sentinel/internal/ratelimit"
	"github.com/sentinelml/sentinel/internal/realtime"
	"github.com/sentinelml/sentinel/internal/scan"
	"github.com/sentinelml/sentinel/internal/schema"
	"github.com/sentinelml/sentinel/internal/security"
	"github.com/sentinelml/sentinel/internal/traces"
	"github.com/sentinelml/sentinel/internal/validation"
)

// -----------------------------------------------------------------------------
// Server
// -----------------------------------------------------------------------------

// Server wraps the HTTP server and dependencies
type Server struct {
	cfg          *config.Config
	schema       *schema.Schema
	models       *model.Models
	scanSvc      *scan.Service
	driftSvc     *drift.Service
	scanStore    scan.Store
	realtimeHub  *realtime.Hub
	healthReg    *health.Registry
	rateLimiter  *ratelimit.Limiter
	db           *sql.DB // nil if using in-memory audit store
	router       *gin.Engine
	httpSrv      *http.Server
	logger       *slog.Logger
	cancelRunCtx context.CancelFunc // cancels background goroutines started in Run

	// Health state
	ready   atomic.Bool
	healthy atomic.Bool
}

// Option configures the server
type Option func(*Server)

// WithLogger sets a custom logger
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

// WithModels injects pre-loaded model artifacts (for testing)
func WithModels(sc *schema.Schema, m *model.Models) Option {
	return func(s *Server) {
		s.schema = sc
		s.models = m
	}
}

// New creates a new server instance
func New(cfg *config.Config, opts ...Option) (*Server, error) {
	s := &Server{
		cfg:    cfg,
		logger: logging.New(cfg.LogLevel, "json"),
	}

	// Apply options first (may set models/logger)
	for _, opt := range opts {
		opt(s)
	}

	ctx := context.Background()

	// Load model artifacts unless injected
	if s.schema == nil || s.models == nil {
		sc, err := schema.LoadFile(cfg.SchemaPath())
		if err != nil {
			return nil, fmt.Errorf("failed to load feature schema: %w", err)
		}
		m, err := model.Load(cfg.ClassifierPath(), cfg.DetectorPath())
		if err != nil {
			return nil, fmt.Errorf("failed to load models: %w", err)
		}
		s.schema = sc
		s.models = m
		s.logger.Info("model artifacts loaded",
			"version", sc.Version,
			"features", sc.NumFeatures(),
			"dir", cfg.ModelDir,
		)
	}

	// Initialize audit storage (Postgres if DATABASE_URL set, otherwise in-memory)
	if cfg.DatabaseURL != "" {
		db, err := sql.Open("postgres", cfg.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("failed to open database: %w", err)
		}

		// Configure connection pool
		db.SetMaxOpenConns(25)
		db.SetMaxIdleConns(5)
		db.SetConnMaxLifetime(5 * time.Minute)

		if err := db.Ping(); err != nil {
			return nil, fmt.Errorf("failed to connect to database: %w", err)
		}

		s.db = db
		store := scan.NewPostgresStore(db)
		if err := store.Migrate(ctx); err != nil {
			s.logger.Warn("failed to migrate scan store", "error", err)
		}
		s.scanStore = store
		s.logger.Info("using PostgreSQL audit storage", "url", maskDSN(cfg.DatabaseURL))
	} else {
		s.scanStore = scan.NewMemoryStore()
		s.logger.Info("using in-memory audit storage (data will not persist)")
	}

	// Create realtime hub for WebSocket streaming
	s.realtimeHub = realtime.NewHub(s.logger)
	s.logger.Info("realtime streaming enabled")

	// Wire the scoring services
	s.scanSvc = scan.NewService(s.schema, s.models.Classifier).
		WithStore(s.scanStore).
		WithPublisher(s.realtimeHub)
	s.driftSvc = drift.NewService(s.models.Detector)

	// Health checkers
	s.healthReg = health.NewRegistry()
	s.healthReg.Register("schema", func(_ context.Context) health.Status {
		return health.Status{Name: "schema", Healthy: s.schema != nil, Detail: s.schema.Version}
	})
	s.healthReg.Register("classifier", func(_ context.Context) health.Status {
		return health.Status{Name: "classifier", Healthy: s.models.Classifier != nil}
	})
	s.healthReg.Register("drift_detector", func(_ context.Context) health.Status {
		return health.Status{Name: "drift_detector", Healthy: s.models.Detector != nil}
	})
	if s.db != nil {
		s.healthReg.Register("database", func(ctx context.Context) health.Status {
			st := health.Status{Name: "database", Healthy: true}
			if err := s.db.PingContext(ctx); err != nil {
				st.Healthy = false
				st.Detail = err.Error()
			}
			return st
		})
	}

	// Configure gin
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	s.router = gin.New()
	s.setupMiddleware()
	s.setupRoutes()

	s.healthy.Store(true)

	return s, nil
}

// maskDSN hides password in connection string for logging
func maskDSN(dsn string) string {
	u, err := url.Parse(dsn)
	if err != nil {
		return "***"
	}
	if u.User != nil {
		u.User = url.UserPassword(u.User.Username(), "***")
	}
	return u.String()
}

// -----------------------------------------------------------------------------
// Middleware
// -----------------------------------------------------------------------------

func (s *Server) setupMiddleware() {
	// Recovery with logging
	s.router.Use(gin.CustomRecovery(func(c *gin.Context, recovered interface{}) {
		logging.L(c.Request.Context()).Error("panic recovered",
			"error", recovered,
			"path", c.Request.URL.Path,
		)
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
			"error":   "internal_error",
			"message": "An unexpected error occurred",
		})
	}))

	// Security headers
	s.router.Use(security.HeadersMiddleware())

	// CORS (allow all origins for demo - restrict in production)
	s.router.Use(security.CORSMiddleware([]string{"*"}))

	// Request size limit (1MB)
	s.router.Use(validation.RequestSizeMiddleware(validation.MaxRequestSize))

	// Rate limiting
	rlCfg := ratelimit.DefaultConfig()
	rlCfg.RequestsPerMinute = s.cfg.RateLimitRPM
	s.rateLimiter = ratelimit.New(rlCfg)
	s.router.Use(s.rateLimiter.Middleware())

	// Prometheus metrics
	s.router.Use(metrics.Middleware())

	// Request ID
	s.router.Use(s.requestIDMiddleware())

	// Logging
	s.router.Use(s.loggingMiddleware())
}

func (s *Server) requestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		// Check for existing request ID (from load balancer, etc.)
		requestID := c.GetHeader("X-Request-ID")
		if requestID == "" {
			requestID = generateRequestID()
		}

		ctx := logging.WithRequestID(c.Request.Context(), requestID)
		ctx = logging.WithLogger(ctx, s.logger)
		c.Request = c.Request.WithContext(ctx)

		c.Header("X-Request-ID", requestID)

		c.Next()
	}
}

func (s *Server) loggingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path

		c.Next()

		latency := time.Since(start)
		status := c.Writer.Status()

		logger := logging.L(c.Request.Context())

		// Log level based on status code
		switch {
		case status >= 500:
			logger.Error("request completed",
				"method", c.Request.Method,
				"path", path,
				"status", status,
				"latency_ms", latency.Milliseconds(),
				"client_ip", c.ClientIP(),
			)
		case status >= 400:
			logger.Warn("request completed",
				"method", c.Request.Method,
				"path", path,
				"status", status,
				"latency_ms", latency.Milliseconds(),
			)
		default:
			logger.Info("request completed",
				"method", c.Request.Method,
				"path", path,
				"status", status,
				"latency_ms", latency.Milliseconds(),
			)
		}
	}
}

// -----------------------------------------------------------------------------
// Routes
// -----------------------------------------------------------------------------

func (s *Server) setupRoutes() {
	// Health & metrics endpoints
	s.router.GET("/health", s.healthHandler)
	s.router.GET("/health/live", s.livenessHandler)
	s.router.GET("/health/ready", s.readinessHandler)
	s.router.GET("/metrics", metrics.Handler())

	// Service info
	s.router.GET("/", s.infoHandler)

	// WebSocket for real-time verdict streaming
	s.router.GET("/ws", func(c *gin.Context) {
		s.realtimeHub.HandleWebSocket(c.Writer, c.Request)
	})

	// V1 API group
	v1 := s.router.Group("/v1")
	v1.POST("/scan", s.scanHandler)
	v1.POST("/drift", s.driftHandler)
	v1.GET("/schema", s.schemaHandler)
	v1.GET("/scans", s.recentScansHandler)

	// Legacy aliases kept for clients of the original deployment
	s.router.POST("/analyze", s.scanHandler)
	s.router.POST("/check_drift", s.driftHandler)
}

// -----------------------------------------------------------------------------
// Handlers
// -----------------------------------------------------------------------------

// infoHandler handles GET / with basic service info
func (s *Server) infoHandler(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"service":       "sentinel",
		"description":   "Smart contract risk scoring: deep scan and behavioral drift detection",
		"model_version": s.schema.Version,
		"endpoints": gin.H{
			"scan":    "POST /v1/scan",
			"drift":   "POST /v1/drift",
			"schema":  "GET /v1/schema",
			"scans":   "GET /v1/scans",
			"health":  "GET /health",
			"metrics": "GET /metrics",
			"ws":      "GET /ws",
		},
	})
}

// scanHandler handles POST /v1/scan
func (s *Server) scanHandler(c *gin.Context) {
	ctx := c.Request.Context()

	var record scan.RawRecord
	if err := c.ShouldBindJSON(&record); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "invalid_request",
			"message": "Request body must be a JSON object of feature values",
		})
		return
	}

	// Contract address is optional, but when present it must be valid
	if addr := record.ContractAddress(); addr != "" {
		if !validation.IsValidContractAddress(addr) {
			c.JSON(http.StatusBadRequest, gin.H{
				"error":   "invalid_address",
				"message": "contract_address must be a valid Ethereum address (0x + 40 hex chars)",
			})
			return
		}
		record["contract_address"] = validation.NormalizeContractAddress(addr)
	}

	result, err := s.scanSvc.Scan(ctx, record)
	if err != nil {
		if errors.Is(err, scan.ErrInvalidFeatureValue) {
			c.JSON(http.StatusBadRequest, gin.H{
				"error":   "invalid_feature_value",
				"message": err.Error(),
			})
			return
		}
		logging.L(ctx).Error("scan failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "internal_error",
			"message": "Scan failed",
		})
		return
	}

	c.JSON(http.StatusOK, result)
}

// driftHandler handles POST /v1/drift
func (s *Server) driftHandler(c *gin.Context) {
	ctx := c.Request.Context()

	var obs drift.Observation
	if err := c.ShouldBindJSON(&obs); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "invalid_request",
			"message": "Request body must be a JSON object of observation fields",
		})
		return
	}

	result, err := s.driftSvc.Check(ctx, obs)
	if err != nil {
		var missing *drift.MissingFieldError
		if errors.As(err, &missing) {
			c.JSON(http.StatusBadRequest, gin.H{
				"error":   "missing_field",
				"message": missing.Error(),
			})
			return
		}
		logging.L(ctx).Error("drift check failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "internal_error",
			"message": "Drift check failed",
		})
		return
	}

	if s.realtimeHub != nil {
		s.realtimeHub.PublishDrift(obs.ContractAddress(), result)
	}

	c.JSON(http.StatusOK, result)
}

// schemaHandler handles GET /v1/schema with feature schema introspection
func (s *Server) schemaHandler(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"model_version": s.schema.Version,
		"calibration":   s.schema.Calibration,
		"features":      s.schema.Features,
		"drift_fields":  drift.Fields,
	})
}

// recentScansHandler handles GET /v1/scans with the recent audit trail
func (s *Server) recentScansHandler(c *gin.Context) {
	ctx := c.Request.Context()

	limit := 50
	if raw := c.Query("limit"); raw != "" {
		if _, err := fmt.Sscanf(raw, "%d", &limit); err != nil || limit < 1 || limit > 500 {
			c.JSON(http.StatusBadRequest, gin.H{
				"error":   "invalid_limit",
				"message": "limit must be an integer between 1 and 500",
			})
			return
		}
	}

	scans, err := s.scanSvc.Recent(ctx, limit)
	if err != nil {
		logging.L(ctx).Error("failed to list scans", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "internal_error",
			"message": "Failed to list scans",
		})
		return
	}

	if scans == nil {
		scans = []*scan.Assessment{}
	}
	c.JSON(http.StatusOK, gin.H{
		"scans": scans,
		"count": len(scans),
	})
}

// healthHandler handles GET /health with per-subsystem detail
func (s *Server) healthHandler(c *gin.Context) {
	healthy, statuses := s.healthReg.CheckAll(c.Request.Context())

	status := http.StatusOK
	state := "healthy"
	if !healthy || !s.healthy.Load() {
		status = http.StatusServiceUnavailable
		state = "unhealthy"
	}

	c.JSON(status, gin.H{
		"status":        state,
		"model_version": s.schema.Version,
		"checks":        statuses,
	})
}

// livenessHandler handles GET /health/live
func (s *Server) livenessHandler(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "alive"})
}

// readinessHandler handles GET /health/ready
func (s *Server) readinessHandler(c *gin.Context) {
	if !s.ready.Load() {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "not ready"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ready"})
}

// -----------------------------------------------------------------------------
// Lifecycle
// -----------------------------------------------------------------------------

// Run starts the HTTP server with graceful shutdown
func (s *Server) Run(ctx context.Context) error {
	// Create a cancellable context for background goroutines so Shutdown() can stop them.
	runCtx, cancel := context.WithCancel(ctx)
	s.cancelRunCtx = cancel

	s.httpSrv = &http.Server{
		Addr:              ":" + s.cfg.Port,
		Handler:           s.router,
		ReadTimeout:       10 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errChan := make(chan error, 1)

	go func() {
		s.logger.Info("starting server",
			"port", s.cfg.Port,
			"model_version", s.schema.Version,
		)
		if err := s.httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- err
		}
	}()

	// Start realtime hub
	go s.realtimeHub.Run(runCtx)

	// Start DB stats collector
	if s.db != nil {
		go metrics.StartDBStatsCollector(runCtx, s.db, 15*time.Second)
	}

	// Initialize tracing
	shutdownTraces, err := traces.Init(runCtx, s.cfg.OTLPEndpoint, s.logger)
	if err != nil {
		s.logger.Warn("failed to initialize tracing", "error", err)
		shutdownTraces = func(context.Context) error { return nil }
	}

	// Mark as ready after brief delay for startup
	go func() {
		time.Sleep(100 * time.Millisecond)
		s.ready.Store(true)
		s.logger.Info("server ready")
	}()

	// Wait for shutdown signal or error
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errChan:
		return fmt.Errorf("server error: %w", err)
	case sig := <-sigChan:
		s.logger.Info("shutdown signal received", "signal", sig.String())
	case <-ctx.Done():
		s.logger.Info("context cancelled")
	}

	if err := shutdownTraces(context.Background()); err != nil {
		s.logger.Warn("trace shutdown error", "error", err)
	}

	return s.Shutdown()
}

// Shutdown gracefully stops the server
func (s *Server) Shutdown() error {
	s.ready.Store(false)
	s.logger.Info("starting graceful shutdown")

	// Cancel the context for background goroutines (hub, stats collector)
	if s.cancelRunCtx != nil {
		s.cancelRunCtx()
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := s.httpSrv.Shutdown(ctx); err != nil {
		s.logger.Error("shutdown error", "error", err)
		return err
	}

	// Stop rate limiter cleanup goroutine
	if s.rateLimiter != nil {
		s.rateLimiter.Stop()
		s.logger.Info("rate limiter stopped")
	}

	// Close database connection pool
	if s.db != nil {
		if err := s.db.Close(); err != nil {
			s.logger.Error("database close error", "error", err)
		} else {
			s.logger.Info("database connection closed")
		}
	}

	s.logger.Info("server stopped")
	return nil
}

// Router returns the gin router for testing
func (s *Server) Router() *gin.Engine {
	return s.router
}

// -----------------------------------------------------------------------------
// Helpers
// -----------------------------------------------------------------------------

func generateRequestID() string {
	bytes := make([]byte, 16)
	if _, err := rand.Read(bytes); err != nil {
		// Fallback to timestamp-based ID
		return fmt.Sprintf("%d", time.Now().UnixNano())
	}
	return hex.EncodeToString(bytes)
}

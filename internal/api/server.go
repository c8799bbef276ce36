package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"codebuild-logs/internal/api/handlers"
	"codebuild-logs/internal/config"
	"codebuild-logs/pkg/logger"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// LogsPath is the route the retrieval URL points at
const LogsPath = "/buildlogs"

// Store is the storage the server reads logs from
type Store interface {
	handlers.Store
	Ping(ctx context.Context) error
}

// Server serves copied build logs over HTTP for local use
type Server struct {
	config       *config.APIConfig
	router       *gin.Engine
	store        Store
	logger       *logger.Logger
	httpServer   *http.Server
	logsHandlers *handlers.LogsHandlers
}

// NewServer creates a new API server instance
func NewServer(cfg *config.APIConfig, store Store, logger *logger.Logger) *Server {
	// Set Gin to release mode in production
	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	server := &Server{
		config: cfg,
		store:  store,
		logger: logger,
	}

	server.logsHandlers = handlers.NewLogsHandlers(store, logger)
	server.setupRouter()

	return server
}

// Handler returns the router, for embedding or tests
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start starts the API server
func (s *Server) Start() error {
	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf(":%s", s.config.Port),
		Handler:      s.router,
		ReadTimeout:  s.config.ReadTimeout,
		WriteTimeout: s.config.WriteTimeout,
		IdleTimeout:  s.config.IdleTimeout,
	}

	s.logger.Info().Msgf("Starting API server on port %s", s.config.Port)
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("failed to start server: %w", err)
	}

	return nil
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info().Msg("Shutting down API server...")
	if s.httpServer == nil {
		return nil
	}
	return s.httpServer.Shutdown(ctx)
}

// setupRouter initializes the Gin router and routes
func (s *Server) setupRouter() {
	router := gin.New()

	router.Use(gin.Recovery())
	router.Use(s.loggerMiddleware())
	router.Use(s.corsMiddleware())

	router.GET("/health", s.handleHealthCheck)
	router.GET(LogsPath, s.logsHandlers.GetLogs)

	s.router = router
}

// Middleware functions

func (s *Server) loggerMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		raw := c.Request.URL.RawQuery

		requestID := c.GetHeader("X-Request-ID")
		if requestID == "" {
			requestID = uuid.New().String()
		}
		c.Header("X-Request-ID", requestID)

		log := s.logger.WithRequestID(requestID)
		c.Request = c.Request.WithContext(logger.WithContext(c.Request.Context(), log))

		c.Next()

		if raw != "" {
			path = path + "?" + raw
		}

		log.Info().
			Str("method", c.Request.Method).
			Str("path", path).
			Int("status", c.Writer.Status()).
			Dur("latency", time.Since(start)).
			Str("ip", c.ClientIP()).
			Str("user-agent", c.Request.UserAgent()).
			Int("body-size", c.Writer.Size()).
			Send()
	}
}

func (s *Server) corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, OPTIONS")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}

// Basic health check handler
func (s *Server) handleHealthCheck(c *gin.Context) {
	status := map[string]interface{}{
		"status":    "ok",
		"timestamp": time.Now().UTC(),
	}

	if err := s.store.Ping(c.Request.Context()); err != nil {
		status["status"] = "degraded"
		status["s3_error"] = err.Error()
	}

	c.JSON(http.StatusOK, status)
}

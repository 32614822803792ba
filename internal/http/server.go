// Package http is the HTTP adapter: it translates requests into domain
// service and chat orchestrator calls and serializes results to JSON.
package http

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host         string
	Port         int
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// Server wraps the gin router and the underlying http.Server
type Server struct {
	config     ServerConfig
	httpServer *http.Server
	router     *gin.Engine
	handlers   *Handlers
	logger     *zap.Logger
}

// NewServer creates the HTTP server and registers all routes
func NewServer(config ServerConfig, handlers *Handlers, logger *zap.Logger) *Server {
	gin.SetMode(gin.ReleaseMode)

	router := gin.New()

	s := &Server{
		config:   config,
		router:   router,
		handlers: handlers,
		logger:   logger,
	}

	s.setupMiddleware()
	s.setupRoutes()

	return s
}

func (s *Server) setupMiddleware() {
	s.router.Use(gin.Recovery())
	s.router.Use(s.loggingMiddleware())
	s.router.Use(corsMiddleware())
}

func (s *Server) setupRoutes() {
	s.router.GET("/health", s.handlers.HealthCheck)

	api := s.router.Group("/api")
	{
		api.GET("/expenses", s.handlers.ListExpenses)
		api.POST("/expenses", s.handlers.CreateExpense)
		api.GET("/expenses/stats", s.handlers.GetStats)
		api.GET("/expenses/export", s.handlers.ExportExpenses)
		api.GET("/expenses/:id", s.handlers.GetExpense)
		api.PUT("/expenses/:id", s.handlers.UpdateExpense)
		api.DELETE("/expenses/:id", s.handlers.DeleteExpense)
		api.POST("/expenses/:id/submit", s.handlers.SubmitExpense)
		api.POST("/expenses/:id/approve", s.handlers.ApproveExpense)
		api.POST("/expenses/:id/reject", s.handlers.RejectExpense)
		api.POST("/expenses/:id/receipt", s.handlers.UploadReceipt)
		api.GET("/expenses/:id/receipt", s.handlers.DownloadReceipt)

		api.GET("/categories", s.handlers.ListCategories)
		api.GET("/statuses", s.handlers.ListStatuses)
		api.GET("/users", s.handlers.ListUsers)
		api.GET("/roles", s.handlers.ListRoles)

		api.POST("/chat", s.handlers.Chat)
	}
}

// Start begins serving; it blocks until the server stops
func (s *Server) Start() error {
	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", s.config.Host, s.config.Port),
		Handler:      s.router,
		ReadTimeout:  s.config.ReadTimeout,
		WriteTimeout: s.config.WriteTimeout,
	}

	s.logger.Info("HTTP server listening", zap.String("addr", s.httpServer.Addr))
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server failed: %w", err)
	}
	return nil
}

// Shutdown gracefully stops the server
func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpServer == nil {
		return nil
	}
	return s.httpServer.Shutdown(ctx)
}

// Router exposes the gin engine for tests
func (s *Server) Router() *gin.Engine {
	return s.router
}

func (s *Server) loggingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path

		c.Next()

		s.logger.Info("HTTP request",
			zap.String("method", c.Request.Method),
			zap.String("path", path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
			zap.String("ip", c.ClientIP()),
		)
	}
}

func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}

// Package api exposes the HTTP surface: the streaming chat endpoint,
// the direct product-search endpoint, and health checks.
package api

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/shopmesh/shopmesh/internal/agent"
	"github.com/shopmesh/shopmesh/internal/auth"
	"github.com/shopmesh/shopmesh/internal/observability"
	"github.com/shopmesh/shopmesh/internal/search"
)

// RateLimitConfig holds API rate limiting configuration
type RateLimitConfig struct {
	Enabled bool    `mapstructure:"enabled"`
	RPS     float64 `mapstructure:"rps"`
	Burst   int     `mapstructure:"burst"`
}

// Config holds API server configuration
type Config struct {
	ListenAddress  string          `mapstructure:"listen_address"`
	ReadTimeout    time.Duration   `mapstructure:"read_timeout"`
	WriteTimeout   time.Duration   `mapstructure:"write_timeout"`
	IdleTimeout    time.Duration   `mapstructure:"idle_timeout"`
	EnableCORS     bool            `mapstructure:"enable_cors"`
	RequestTimeout time.Duration   `mapstructure:"request_timeout"`
	RateLimit      RateLimitConfig `mapstructure:"rate_limit"`
}

// Server is the API server
type Server struct {
	router       *gin.Engine
	server       *http.Server
	orchestrator *agent.Orchestrator
	engine       *search.Engine
	resolver     *auth.Resolver
	config       Config
	logger       observability.Logger
}

// NewServer creates and wires the API server
func NewServer(orchestrator *agent.Orchestrator, engine *search.Engine, resolver *auth.Resolver, cfg Config, logger observability.Logger) *Server {
	if logger == nil {
		logger = observability.NewNoopLogger()
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = agent.DefaultRequestTimeout
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(RequestLogger(logger))

	if cfg.EnableCORS {
		router.Use(CORSMiddleware())
	}
	if cfg.RateLimit.Enabled {
		router.Use(RateLimiter(cfg.RateLimit))
	}

	s := &Server{
		router:       router,
		orchestrator: orchestrator,
		engine:       engine,
		resolver:     resolver,
		config:       cfg,
		logger:       logger,
		server: &http.Server{
			Addr:         cfg.ListenAddress,
			Handler:      router,
			ReadTimeout:  cfg.ReadTimeout,
			WriteTimeout: cfg.WriteTimeout,
			IdleTimeout:  cfg.IdleTimeout,
		},
	}

	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	s.router.GET("/healthz", s.handleHealth)

	v1 := s.router.Group("/api/v1")
	v1.Use(CallerContextMiddleware(s.resolver))
	{
		v1.POST("/chat", s.handleChat)
		v1.GET("/products/search", s.handleProductSearch)
	}
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// Start begins listening for requests
func (s *Server) Start() error {
	s.logger.Info("api server listening", map[string]interface{}{
		"address": s.config.ListenAddress,
	})
	return s.server.ListenAndServe()
}

// Shutdown gracefully stops the server
func (s *Server) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

// Router exposes the gin engine. Used by tests.
func (s *Server) Router() *gin.Engine {
	return s.router
}

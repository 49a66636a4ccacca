package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	lru "github.com/hashicorp/golang-lru"
	"golang.org/x/time/rate"

	"github.com/shopmesh/shopmesh/internal/auth"
	"github.com/shopmesh/shopmesh/internal/models"
	"github.com/shopmesh/shopmesh/internal/observability"
)

// callerContextKey is the gin context key holding the resolved caller
const callerContextKey = "callerContext"

// RequestLogger middleware logs HTTP requests
func RequestLogger(logger observability.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path

		c.Next()

		logger.Info("request", map[string]interface{}{
			"client_ip": c.ClientIP(),
			"status":    c.Writer.Status(),
			"latency":   time.Since(start).String(),
			"method":    c.Request.Method,
			"path":      path,
		})

		if len(c.Errors) > 0 {
			logger.Error("request errors", map[string]interface{}{
				"path":   path,
				"errors": c.Errors.String(),
			})
		}
	}
}

// CORSMiddleware enables cross-origin requests from the storefront UI.
// The request's Origin is echoed back rather than a wildcard: browsers
// refuse Allow-Origin "*" on credentialed requests, and the session
// cookie makes every authenticated request credentialed.
func CORSMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if origin := c.Request.Header.Get("Origin"); origin != "" {
			c.Writer.Header().Set("Access-Control-Allow-Origin", origin)
			c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
			c.Writer.Header().Set("Vary", "Origin")
		}
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}

// rateLimiterCacheSize bounds the number of per-IP limiters held at once
const rateLimiterCacheSize = 4096

// RateLimiter limits requests per client IP. Limiter state is held in
// an LRU cache so client-IP cardinality cannot grow it without bound.
func RateLimiter(cfg RateLimitConfig) gin.HandlerFunc {
	if cfg.RPS <= 0 {
		cfg.RPS = 10
	}
	if cfg.Burst <= 0 {
		cfg.Burst = 20
	}

	limiters, _ := lru.New(rateLimiterCacheSize)

	limiterFor := func(ip string) *rate.Limiter {
		if v, ok := limiters.Get(ip); ok {
			return v.(*rate.Limiter)
		}
		l := rate.NewLimiter(rate.Limit(cfg.RPS), cfg.Burst)
		limiters.Add(ip, l)
		return l
	}

	return func(c *gin.Context) {
		if !limiterFor(c.ClientIP()).Allow() {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error": "rate limit exceeded",
			})
			return
		}
		c.Next()
	}
}

// CallerContextMiddleware resolves the caller identity once per request
// and stores it on the gin context for handlers to consume.
func CallerContextMiddleware(resolver *auth.Resolver) gin.HandlerFunc {
	return func(c *gin.Context) {
		caller := resolver.Resolve(c.Request.Context(), c.Request)
		c.Set(callerContextKey, caller)
		c.Next()
	}
}

// callerFrom retrieves the resolved caller, defaulting to anonymous
func callerFrom(c *gin.Context) models.CallerContext {
	if v, ok := c.Get(callerContextKey); ok {
		if caller, ok := v.(models.CallerContext); ok {
			return caller
		}
	}
	return models.Anonymous()
}

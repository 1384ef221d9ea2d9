package main

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/jmerrifield20/anchorlog/internal/auditlog/handler"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

// routeRegistrar mounts a handler's routes under /api/v1.
type routeRegistrar interface {
	Register(rg *gin.RouterGroup)
}

// newRouter assembles the middleware chain and mounts /health, /metrics and
// every registrar under /api/v1. Logging and metrics run ahead of the rate
// limiter so rejected requests are still recorded.
func newRouter(ctx context.Context, logger *zap.Logger, health *handler.LogHandler, routes ...routeRegistrar) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())

	corsOrigins := viper.GetStringSlice("server.cors_origins")
	router.Use(cors.New(cors.Config{
		AllowOrigins:     corsOrigins,
		AllowMethods:     []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", "Accept"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: !containsWildcard(corsOrigins),
		MaxAge:           12 * time.Hour,
	}))

	// Request body size limit (1 MB)
	router.Use(func(c *gin.Context) {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, 1<<20)
		c.Next()
	})

	router.Use(requestLogger(logger))
	router.Use(handler.PrometheusMiddleware())
	rps := viper.GetInt("server.rate_limit_rps")
	router.Use(handler.RateLimiter(ctx, rps, rps*2))

	health.RegisterHealth(router)
	router.GET("/metrics", handler.MetricsHandler())

	v1 := router.Group("/api/v1")
	for _, r := range routes {
		r.Register(v1)
	}
	return router
}

// containsWildcard returns true if origins includes "*".
func containsWildcard(origins []string) bool {
	for _, o := range origins {
		if strings.TrimSpace(o) == "*" {
			return true
		}
	}
	return false
}

// requestLogger returns a Gin middleware that logs each request with zap.
func requestLogger(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.Info("request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
			zap.String("client_ip", c.ClientIP()),
		)
	}
}

// Package api implements the read-only operational HTTP surface:
// liveness, per-source fetch status, and the latest pipeline run.
package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/jonesrussell/gamesync/internal/logger"
)

// NewRouter creates the Gin router with all ops routes. Gin runs in
// release mode with its default logging disabled; requests are logged
// through the shared logger instead.
func NewRouter(h *Handler, log logger.Interface) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(loggingMiddleware(log))

	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	v1 := router.Group("/api/v1")
	v1.GET("/status", h.Status)
	v1.GET("/runs", h.Runs)
	v1.GET("/runs/latest", h.LatestRun)

	return router
}

// loggingMiddleware logs each request after it completes.
func loggingMiddleware(log logger.Interface) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path

		c.Next()

		log.Debug("HTTP request",
			"method", c.Request.Method,
			"path", path,
			"status", c.Writer.Status(),
			"latency", time.Since(start),
		)
	}
}

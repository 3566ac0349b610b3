// Package api serves the event store over JSON HTTP.
package api

import (
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/campushub/campushub/internal/logger"
)

// NewRouter wires the handler's routes under /v1
func NewRouter(h *Handler) *gin.Engine {
	app := gin.New()

	app.Use(gin.Recovery())
	app.Use(LoggingMiddleware(h.log, h.metrics))
	app.Use(cors.Default())

	app.GET("/healthz", h.Health)

	apiGroup := app.Group("/v1")

	apiGroup.GET("/events", h.ListEvents)
	apiGroup.POST("/events", h.CreateEvent)
	apiGroup.GET("/events/:id", h.GetEvent)
	apiGroup.PUT("/events/:id", h.UpdateEvent)
	apiGroup.DELETE("/events/:id", h.DeleteEvent)
	apiGroup.POST("/events/:id/register", h.Register)
	apiGroup.GET("/events/:id/ics", h.EventCalendar)
	apiGroup.GET("/export.csv", h.ExportCSV)
	apiGroup.POST("/import", h.ImportCSV)
	apiGroup.GET("/metrics", h.Metrics)

	return app
}

// LoggingMiddleware logs one line per request and times it under http.<method>
func LoggingMiddleware(log *logger.Logger, metrics *logger.Metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		elapsed := time.Since(start)

		status := c.Writer.Status()
		fields := logger.Fields{
			"method":      c.Request.Method,
			"path":        c.FullPath(),
			"status":      status,
			"duration_ms": elapsed.Milliseconds(),
		}

		metrics.RecordTiming("http."+c.Request.Method, elapsed)
		switch {
		case status >= 500:
			metrics.IncrCounter("http.5xx")
			log.Warn("request failed", fields)
		case status >= 400:
			metrics.IncrCounter("http.4xx")
			log.Info("request rejected", fields)
		default:
			log.Debug("request served", fields)
		}
	}
}

package middleware

import (
	"smart_bin/internal/metrics" // Prometheus collectors
	"time"                       // Request latency

	"github.com/gin-gonic/gin"   // Gin web framework
	"github.com/sirupsen/logrus" // Logging library
)

// RequestLogger logs every request with logrus and feeds the HTTP metrics
func RequestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now() // Request start time
		c.Next()            // Run the handlers
		latency := time.Since(start)
		status := c.Writer.Status()
		route := c.FullPath() // Route pattern keeps label cardinality bounded
		metrics.ObserveHTTPRequest(c.Request.Method, route, status, latency)
		entry := logrus.WithFields(logrus.Fields{
			"method":    c.Request.Method,   // HTTP method
			"path":      c.Request.URL.Path, // Requested path
			"status":    status,             // Response status
			"latency":   latency.String(),   // Handling time
			"client_ip": c.ClientIP(),       // Caller address
		})
		switch {
		case status >= 500:
			entry.Error("HTTP request")
		case status >= 400:
			entry.Warn("HTTP request")
		default:
			entry.Info("HTTP request")
		}
	}
}

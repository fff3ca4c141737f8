package middleware

import (
	"net/http"
	"runtime/debug"
	"strconv"
	"time"

	"mpesa_bridge/internal/metrics"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// Logger logs one line per request and counts it by route and status
func Logger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched" // Keeps 404 probes from blowing up label cardinality
		}
		status := c.Writer.Status()
		metrics.HTTPRequestsTotal.WithLabelValues(c.Request.Method, route, strconv.Itoa(status)).Inc()

		entry := logrus.WithFields(logrus.Fields{
			"request_id": c.GetString(CtxKeyRequestID),
			"method":     c.Request.Method,
			"path":       c.Request.URL.Path,
			"status":     status,
			"latency":    time.Since(start).String(),
			"client_ip":  c.ClientIP(),
		})
		switch {
		case status >= http.StatusInternalServerError:
			entry.Error("Request failed")
		case status >= http.StatusBadRequest:
			entry.Warn("Request rejected")
		default:
			entry.Info("Request handled")
		}
	}
}

// Recover turns a handler panic into a 500 envelope
func Recover() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if err := recover(); err != nil {
				logrus.WithFields(logrus.Fields{
					"request_id": c.GetString(CtxKeyRequestID),
					"method":     c.Request.Method,
					"path":       c.Request.URL.Path,
					"panic":      err,
					"stack":      string(debug.Stack()),
				}).Error("HTTP panic")
				c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"success": false, "error": "Internal server error"})
			}
		}()
		c.Next()
	}
}

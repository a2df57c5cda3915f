// Package middleware provides the engine's gin middleware: request ids
// for log correlation and Prometheus instrumentation.
package middleware

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/emerginginv/trace-aid-sub011/internal/metrics"
)

// Metrics records request count, latency, and in-flight gauge per route.
// The /metrics endpoint itself is not instrumented. Routes are labelled
// by their gin template, not the raw URL, so batch ids don't explode
// cardinality.
func Metrics() gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.FullPath() == "/metrics" {
			c.Next()
			return
		}

		start := time.Now()
		metrics.HTTPRequestsInFlight.Inc()
		defer metrics.HTTPRequestsInFlight.Dec()

		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		status := strconv.Itoa(c.Writer.Status())

		metrics.HTTPRequestsTotal.WithLabelValues(c.Request.Method, route, status).Inc()
		metrics.HTTPRequestDuration.WithLabelValues(c.Request.Method, route).Observe(time.Since(start).Seconds())
	}
}

package middleware

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/MW-Studio-Dev/inmosite-edge/internal/metrics"
)

// Metrics records request totals and latency.
func Metrics() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		duration := float64(time.Since(start).Milliseconds())
		metrics.RequestLatency.WithLabelValues(c.Request.Method).Observe(duration)
		metrics.RequestTotal.WithLabelValues(
			c.Request.Method,
			metrics.StatusClass(c.Writer.Status()),
		).Inc()
	}
}

// File: backend/services/impersonation-service/internal/handler/http/middleware/metrics.go
package middleware

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/solstice-labs/crm_platform/backend/services/impersonation-service/internal/utils/metrics"
)

// MetricsMiddleware records request counters and latency.
func MetricsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		duration := time.Since(start).Seconds()

		statusCode := strconv.Itoa(c.Writer.Status())
		metrics.RequestsTotal.WithLabelValues(statusCode).Inc()
		metrics.RequestDuration.Observe(duration)
	}
}

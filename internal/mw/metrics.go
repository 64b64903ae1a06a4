package mw

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"techtrack-backend/internal/metrics"
)

// Metrics records a latency observation for every served request, labeled by
// the route pattern (not the raw path, which would explode cardinality on
// item ids).
func Metrics() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		metrics.ObserveRequest(route, c.Request.Method, strconv.Itoa(c.Writer.Status()), time.Since(start))
	}
}

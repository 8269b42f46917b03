package middleware

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/wms-platform/fulfillment-service/pkg/metrics"
)

// MetricsMiddleware records a duration sample and a request count for every
// call, labelled by route pattern rather than raw path so label cardinality
// stays bounded. Operational endpoints are not recorded.
func MetricsMiddleware(m *metrics.Metrics) gin.HandlerFunc {
	skip := map[string]struct{}{
		"/metrics": {},
		"/health":  {},
		"/ready":   {},
	}

	return func(c *gin.Context) {
		if _, ok := skip[c.Request.URL.Path]; ok {
			c.Next()
			return
		}

		m.IncrementHTTPRequestsInFlight()
		defer m.DecrementHTTPRequestsInFlight()

		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = c.Request.URL.Path
		}
		m.RecordHTTPRequest(c.Request.Method, route, c.Writer.Status(), time.Since(start))
	}
}

// MetricsEndpoint serves the Prometheus scrape endpoint.
func MetricsEndpoint(m *metrics.Metrics) gin.HandlerFunc {
	handler := m.Handler()
	return func(c *gin.Context) {
		handler.ServeHTTP(c.Writer, c.Request)
	}
}

package resources

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// HTTPMetrics records request counts, latency and declared body size per route.
type HTTPMetrics struct {
	requests metric.Int64Counter
	inFlight metric.Int64UpDownCounter
	duration metric.Float64Histogram
	bodySize metric.Int64Histogram
}

func NewHTTPMetrics(provider metric.MeterProvider, name string) *HTTPMetrics {
	meter := provider.Meter(name)

	m := new(HTTPMetrics)
	m.requests, _ = meter.Int64Counter("http.server.requests",
		metric.WithDescription("HTTP requests by route and status"))
	m.inFlight, _ = meter.Int64UpDownCounter("http.server.active_requests",
		metric.WithDescription("HTTP requests being served"))
	m.duration, _ = meter.Float64Histogram("http.server.duration.ms",
		metric.WithDescription("HTTP request duration in milliseconds"), metric.WithUnit("ms"))
	m.bodySize, _ = meter.Int64Histogram("http.server.request.size",
		metric.WithDescription("Declared request body size"), metric.WithUnit("By"))

	return m
}

func (m *HTTPMetrics) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		start := time.Now()

		m.inFlight.Add(ctx, 1)
		defer m.inFlight.Add(ctx, -1)

		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}

		status := c.Writer.Status()
		attrs := metric.WithAttributes(
			attribute.String("http.route", route),
			attribute.String("http.method", c.Request.Method),
			attribute.Int("http.status_code", status),
			attribute.String("http.status_class", strconv.Itoa(status/100)+"xx"),
		)

		m.requests.Add(ctx, 1, attrs)
		m.duration.Record(ctx, float64(time.Since(start).Microseconds())/1000, attrs)

		if c.Request.ContentLength > 0 {
			m.bodySize.Record(ctx, c.Request.ContentLength, attrs)
		}
	}
}

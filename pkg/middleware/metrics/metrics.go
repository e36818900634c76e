package metrics

import (
	"time"

	"github.com/chirpnet/chirp/pkg/observability/metrics"
	"github.com/chirpnet/chirp/pkg/server/router"
)

// Metrics creates middleware that records Prometheus metrics for HTTP
// requests: duration histogram, request counter and in-flight gauge.
func Metrics() router.MiddlewareFunc {
	return func(next router.HandlerFunc) router.HandlerFunc {
		return func(c router.Context) error {
			metrics.IncrementInFlight()
			defer metrics.DecrementInFlight()

			start := time.Now()
			err := next(c)

			metrics.RecordHTTPMetrics(
				c.Request().Method,
				c.Request().URL.Path,
				c.Response().Status(),
				time.Since(start),
			)

			return err
		}
	}
}

package logging

import (
	"time"

	"github.com/chirpnet/chirp/pkg/middleware/requestid"
	"github.com/chirpnet/chirp/pkg/observability/logger"
	"github.com/chirpnet/chirp/pkg/server/router"
)

// Logging creates middleware that logs each HTTP request with structured
// fields: request ID, method, path, status, duration and any handler error.
func Logging(log logger.Logger) router.MiddlewareFunc {
	return func(next router.HandlerFunc) router.HandlerFunc {
		return func(c router.Context) error {
			start := time.Now()

			err := next(c)

			fields := []any{
				"request_id", requestid.GetRequestID(c.Request().Context()),
				"method", c.Request().Method,
				"path", c.Request().URL.Path,
				"status", c.Response().Status(),
				"duration_ms", float64(time.Since(start).Microseconds()) / 1000.0,
				"remote_addr", c.Request().RemoteAddr,
			}
			if err != nil {
				fields = append(fields, "error", err.Error())
				log.Error("http request", fields...)
				return err
			}

			log.Info("http request", fields...)
			return nil
		}
	}
}

package ratelimit

import (
	"net"
	"net/http"
	"sync"

	"github.com/chirpnet/chirp/pkg/server/router"
	"golang.org/x/time/rate"
)

// RateLimiter is the contract for rate limiting implementations.
// Implementations must be safe for concurrent use.
type RateLimiter interface {
	// Allow reports whether a request for the given key is within limits.
	Allow(key string) bool
}

// TokenBucketLimiter implements per-key token bucket rate limiting.
type TokenBucketLimiter struct {
	limiters sync.Map // map[string]*rate.Limiter
	rate     rate.Limit
	burst    int
}

// NewTokenBucketLimiter creates a limiter allowing requestsPerSecond on
// average with bursts up to burst.
func NewTokenBucketLimiter(requestsPerSecond int, burst int) *TokenBucketLimiter {
	return &TokenBucketLimiter{
		rate:  rate.Limit(requestsPerSecond),
		burst: burst,
	}
}

// Allow reports whether a request for key is within rate limits.
func (l *TokenBucketLimiter) Allow(key string) bool {
	if limiter, ok := l.limiters.Load(key); ok {
		return limiter.(*rate.Limiter).Allow()
	}
	limiter, _ := l.limiters.LoadOrStore(key, rate.NewLimiter(l.rate, l.burst))
	return limiter.(*rate.Limiter).Allow()
}

// Config defines rate limiting middleware options.
type Config struct {
	// KeyFunc extracts the rate limiting key from the request. Defaults
	// to the client IP when nil.
	KeyFunc func(router.Context) string
}

// RateLimit creates middleware that rejects requests exceeding the limit
// with HTTP 429 and a Retry-After header.
func RateLimit(limiter RateLimiter, cfg Config) router.MiddlewareFunc {
	keyFunc := cfg.KeyFunc
	if keyFunc == nil {
		keyFunc = ClientIP
	}

	return func(next router.HandlerFunc) router.HandlerFunc {
		return func(c router.Context) error {
			if !limiter.Allow(keyFunc(c)) {
				c.Response().Header().Set("Retry-After", "1")
				return c.JSON(http.StatusTooManyRequests, map[string]interface{}{
					"error": "rate limit exceeded",
				})
			}
			return next(c)
		}
	}
}

// ClientIP extracts the client IP from the request, stripping the port.
func ClientIP(c router.Context) string {
	addr := c.Request().RemoteAddr
	if host, _, err := net.SplitHostPort(addr); err == nil {
		return host
	}
	return addr
}

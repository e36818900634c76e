package ratelimit

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/chirpnet/chirp/pkg/server/router"
	ginrouter "github.com/chirpnet/chirp/pkg/server/router/gin"
)

func TestTokenBucketLimiter_EnforcesBurst(t *testing.T) {
	limiter := NewTokenBucketLimiter(1, 3)

	allowed := 0
	for i := 0; i < 10; i++ {
		if limiter.Allow("client-a") {
			allowed++
		}
	}
	if allowed != 3 {
		t.Fatalf("allowed = %d, want burst of 3", allowed)
	}

	// Independent keys keep independent buckets.
	if !limiter.Allow("client-b") {
		t.Fatal("fresh key should be allowed")
	}
}

func TestRateLimit_Returns429WhenExceeded(t *testing.T) {
	limiter := NewTokenBucketLimiter(1, 1)

	r := ginrouter.NewRouter()
	r.POST("/tweets", func(c router.Context) error {
		return c.String(http.StatusCreated, "ok")
	}, RateLimit(limiter, Config{KeyFunc: func(router.Context) string { return "fixed" }}))

	first := httptest.NewRecorder()
	r.ServeHTTP(first, httptest.NewRequest(http.MethodPost, "/tweets", nil))
	if first.Code != http.StatusCreated {
		t.Fatalf("first request = %d, want 201", first.Code)
	}

	second := httptest.NewRecorder()
	r.ServeHTTP(second, httptest.NewRequest(http.MethodPost, "/tweets", nil))
	if second.Code != http.StatusTooManyRequests {
		t.Fatalf("second request = %d, want 429", second.Code)
	}
	if second.Header().Get("Retry-After") == "" {
		t.Fatal("expected Retry-After header")
	}
}

func TestClientIP_StripsPort(t *testing.T) {
	r := ginrouter.NewRouter()
	var ip string
	r.GET("/", func(c router.Context) error {
		ip = ClientIP(c)
		return c.String(http.StatusOK, "ok")
	})

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "10.1.2.3:51234"
	r.ServeHTTP(httptest.NewRecorder(), req)

	if ip != "10.1.2.3" {
		t.Fatalf("ip = %q", ip)
	}
}

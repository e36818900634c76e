package recovery

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/chirpnet/chirp/pkg/observability/logger"
	"github.com/chirpnet/chirp/pkg/server/router"
	ginrouter "github.com/chirpnet/chirp/pkg/server/router/gin"
)

type nopLogger struct{}

func (nopLogger) Debug(string, ...any)                        {}
func (nopLogger) Info(string, ...any)                         {}
func (nopLogger) Warn(string, ...any)                         {}
func (nopLogger) Error(string, ...any)                        {}
func (l nopLogger) With(...any) logger.Logger                 { return l }
func (l nopLogger) WithContext(context.Context) logger.Logger { return l }

func TestRecovery_CatchesPanic(t *testing.T) {
	r := ginrouter.NewRouter()
	r.Use(Recovery(nopLogger{}))
	r.GET("/boom", func(c router.Context) error {
		panic("kaboom")
	})

	req := httptest.NewRequest(http.MethodGet, "/boom", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", rec.Code)
	}

	var body map[string]interface{}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("invalid JSON body: %v", err)
	}
	if body["error"] != "internal_server_error" {
		t.Fatalf("unexpected error field: %v", body["error"])
	}
}

func TestRecovery_PassesThroughWithoutPanic(t *testing.T) {
	r := ginrouter.NewRouter()
	r.Use(Recovery(nopLogger{}))
	r.GET("/ok", func(c router.Context) error {
		return c.String(http.StatusOK, "ok")
	})

	req := httptest.NewRequest(http.MethodGet, "/ok", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK || rec.Body.String() != "ok" {
		t.Fatalf("response = %d %q", rec.Code, rec.Body.String())
	}
}

func TestRecovery_DoesNotOverwriteWrittenResponse(t *testing.T) {
	r := ginrouter.NewRouter()
	r.Use(Recovery(nopLogger{}))
	r.GET("/half", func(c router.Context) error {
		_ = c.String(http.StatusAccepted, "partial")
		panic("after write")
	})

	req := httptest.NewRequest(http.MethodGet, "/half", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusAccepted {
		t.Fatalf("status = %d, want 202 preserved", rec.Code)
	}
}

package requestid

import (
	"net/http"
	"net/http/httptest"
	"regexp"
	"testing"

	"github.com/chirpnet/chirp/pkg/server/router"
	ginrouter "github.com/chirpnet/chirp/pkg/server/router/gin"
	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

func TestRequestID_GeneratesUUID(t *testing.T) {
	r := ginrouter.NewRouter()
	r.Use(RequestID())

	var captured string
	r.GET("/test", func(c router.Context) error {
		captured = GetRequestID(c.Request().Context())
		return c.String(http.StatusOK, "ok")
	})

	req := httptest.NewRequest(http.MethodGet, "/test", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	uuidPattern := regexp.MustCompile(`^[a-f0-9]{8}-[a-f0-9]{4}-[a-f0-9]{4}-[a-f0-9]{4}-[a-f0-9]{12}$`)
	responseID := rec.Header().Get(RequestIDHeader)
	if !uuidPattern.MatchString(responseID) {
		t.Fatalf("generated ID is not a UUID: %q", responseID)
	}
	if captured != responseID {
		t.Fatalf("context ID %q != response header ID %q", captured, responseID)
	}
}

func TestGetRequestID_EmptyWithoutMiddleware(t *testing.T) {
	if id := GetRequestID(nil); id != "" {
		t.Fatalf("expected empty ID for nil context, got %q", id)
	}
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if id := GetRequestID(req.Context()); id != "" {
		t.Fatalf("expected empty ID, got %q", id)
	}
}

// Property: an incoming X-Request-ID is preserved in both the response
// header and the request context, for any non-empty header value.
func TestProperty_RequestIDPropagation(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 50
	properties := gopter.NewProperties(parameters)

	genRequestID := gen.AlphaString().SuchThat(func(s string) bool {
		return len(s) > 0 && len(s) <= 100
	})

	properties.Property("preserves existing X-Request-ID", prop.ForAll(
		func(existingID string) bool {
			r := ginrouter.NewRouter()
			r.Use(RequestID())

			var captured string
			r.GET("/test", func(c router.Context) error {
				captured = GetRequestID(c.Request().Context())
				return c.String(http.StatusOK, "ok")
			})

			req := httptest.NewRequest(http.MethodGet, "/test", nil)
			req.Header.Set(RequestIDHeader, existingID)
			rec := httptest.NewRecorder()
			r.ServeHTTP(rec, req)

			return rec.Header().Get(RequestIDHeader) == existingID && captured == existingID
		},
		genRequestID,
	))

	properties.TestingRun(t, gopter.ConsoleReporter(false))
}

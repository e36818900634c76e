package gin

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/chirpnet/chirp/pkg/server/router"
)

func TestGinRouter_RoutesByMethod(t *testing.T) {
	r := NewRouter()

	r.GET("/ping", func(c router.Context) error {
		return c.String(http.StatusOK, "pong")
	})
	r.POST("/items", func(c router.Context) error {
		return c.JSON(http.StatusCreated, map[string]string{"ok": "true"})
	})

	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusOK || w.Body.String() != "pong" {
		t.Fatalf("GET /ping = %d %q", w.Code, w.Body.String())
	}

	req = httptest.NewRequest(http.MethodPost, "/items", nil)
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusCreated {
		t.Fatalf("POST /items = %d", w.Code)
	}
}

func TestGinRouter_PathAndQueryParams(t *testing.T) {
	r := NewRouter()
	r.GET("/users/:name/tweets", func(c router.Context) error {
		return c.String(http.StatusOK, c.Param("name")+":"+c.Query("size"))
	})

	req := httptest.NewRequest(http.MethodGet, "/users/gaby/tweets?size=10", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Body.String() != "gaby:10" {
		t.Fatalf("unexpected body %q", w.Body.String())
	}
}

func TestGinRouter_MiddlewareOrdering(t *testing.T) {
	r := NewRouter()
	var order []string

	mw := func(name string) router.MiddlewareFunc {
		return func(next router.HandlerFunc) router.HandlerFunc {
			return func(c router.Context) error {
				order = append(order, name)
				return next(c)
			}
		}
	}

	r.Use(mw("global"))
	r.GET("/x", func(c router.Context) error {
		order = append(order, "handler")
		return c.String(http.StatusOK, "ok")
	}, mw("route"))

	req := httptest.NewRequest(http.MethodGet, "/x", nil)
	r.ServeHTTP(httptest.NewRecorder(), req)

	want := "global,route,handler"
	if got := strings.Join(order, ","); got != want {
		t.Fatalf("order = %s, want %s", got, want)
	}
}

func TestGinRouter_GroupPrefix(t *testing.T) {
	r := NewRouter()
	api := r.Group("/api")
	api.GET("/feed", func(c router.Context) error {
		return c.String(http.StatusOK, "feed")
	})

	req := httptest.NewRequest(http.MethodGet, "/api/feed", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("GET /api/feed = %d", w.Code)
	}
}

func TestGinContext_BindRejectsNonJSON(t *testing.T) {
	r := NewRouter()
	r.POST("/tweets", func(c router.Context) error {
		var body map[string]string
		if err := c.Bind(&body); err != nil {
			return c.String(http.StatusBadRequest, err.Error())
		}
		return c.JSON(http.StatusOK, body)
	})

	req := httptest.NewRequest(http.MethodPost, "/tweets", strings.NewReader("user=gaby"))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for non-JSON body, got %d", w.Code)
	}
}

func TestGinContext_BindParsesJSON(t *testing.T) {
	r := NewRouter()
	var got map[string]string
	r.POST("/tweets", func(c router.Context) error {
		if err := c.Bind(&got); err != nil {
			return err
		}
		return c.JSON(http.StatusOK, got)
	})

	req := httptest.NewRequest(http.MethodPost, "/tweets", strings.NewReader(`{"user":"gaby","text":"hello world"}`))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if got["user"] != "gaby" || got["text"] != "hello world" {
		t.Fatalf("unexpected bind result: %v", got)
	}
}

func TestGinResponseWriter_StatusTracking(t *testing.T) {
	r := NewRouter()
	r.GET("/missing", func(c router.Context) error {
		if c.Response().Written() {
			t.Fatal("response should not be written before handler output")
		}
		err := c.JSON(http.StatusNotFound, map[string]string{"error": "not_found"})
		if c.Response().Status() != http.StatusNotFound {
			t.Fatalf("status = %d, want 404", c.Response().Status())
		}
		return err
	})

	req := httptest.NewRequest(http.MethodGet, "/missing", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusNotFound {
		t.Fatalf("recorded status = %d", w.Code)
	}
}

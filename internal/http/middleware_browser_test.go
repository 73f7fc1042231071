package httpx

import (
	"bytes"
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBrowserDetection(t *testing.T) {
	handler := BrowserDetection()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if IsBrowserRequest(r) {
			w.Header().Set("Content-Type", "text/html")
		} else {
			w.Header().Set("Content-Type", "application/json")
		}
		w.WriteHeader(http.StatusOK)
	}))

	tests := []struct {
		name            string
		path            string
		acceptHeader    string
		xhr             bool
		expectedBrowser bool
	}{
		{name: "API route with JSON accept", path: "/api/todos", acceptHeader: "application/json"},
		{name: "API route with HTML accept", path: "/api/todos", acceptHeader: "text/html"},
		{
			name:            "Browser request with HTML accept",
			path:            "/admin/users",
			acceptHeader:    "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8",
			expectedBrowser: true,
		},
		{name: "Root path with HTML accept", path: "/", acceptHeader: "text/html", expectedBrowser: true},
		{name: "No accept header on page route", path: "/index", expectedBrowser: true},
		{name: "JSON accept on page route", path: "/admin/users", acceptHeader: "application/json"},
		{name: "XHR on page route", path: "/admin/users", acceptHeader: "text/html", xhr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, tt.path, nil)
			if tt.acceptHeader != "" {
				req.Header.Set("Accept", tt.acceptHeader)
			}
			if tt.xhr {
				req.Header.Set("X-Requested-With", "XMLHttpRequest")
			}

			w := httptest.NewRecorder()
			handler.ServeHTTP(w, req)

			if tt.expectedBrowser {
				assert.Equal(t, "text/html", w.Header().Get("Content-Type"))
			} else {
				assert.Equal(t, "application/json", w.Header().Get("Content-Type"))
			}
		})
	}
}

func TestIsBrowserRequest_WithContext(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/test", nil)

	req = req.WithContext(context.WithValue(req.Context(), browserRequestKey{}, true))
	assert.True(t, IsBrowserRequest(req))

	req = req.WithContext(context.WithValue(req.Context(), browserRequestKey{}, false))
	assert.False(t, IsBrowserRequest(req))

	// Invalid value type falls back to direct detection.
	req = req.WithContext(context.WithValue(req.Context(), browserRequestKey{}, "invalid"))
	req.Header.Set("Accept", "text/html")
	assert.True(t, IsBrowserRequest(req))
}

func TestRecover(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))
	handler := Recover(logger)(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}))

	w := httptest.NewRecorder()
	require.NotPanics(t, func() {
		handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	})
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Contains(t, buf.String(), `"msg":"panic"`)
}

func TestLogging_RecordsStatus(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))
	handler := Logging(logger)(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTeapot)
		w.WriteHeader(http.StatusOK)
	}))

	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/todos", nil))
	assert.Contains(t, buf.String(), `"status":418`)
	assert.Contains(t, buf.String(), `"path":"/api/todos"`)
}

func TestChain_Order(t *testing.T) {
	var order []string
	mw := func(name string) func(http.Handler) http.Handler {
		return func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				order = append(order, name)
				next.ServeHTTP(w, r)
			})
		}
	}
	h := Chain(http.HandlerFunc(func(http.ResponseWriter, *http.Request) { order = append(order, "handler") }),
		mw("outer"), mw("inner"))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, []string{"outer", "inner", "handler"}, order)
}

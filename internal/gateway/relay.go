// Package gateway implements the edge relay: a single front door that forwards
// requests to the todo, users and auth services by path prefix.
package gateway

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httputil"
	"net/url"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/target/todo-platform/internal/observability/metrics"
)

// Header names added to every relayed request.
const (
	HeaderTimestamp = "X-Gateway-Timestamp"
	HeaderPath      = "X-Gateway-Path"
)

// Upstream names used in logs and metric labels.
const (
	UpstreamTodo  = "todo"
	UpstreamUsers = "users"
	UpstreamAuth  = "auth"
)

// Upstreams holds the base URLs of the relayed services.
type Upstreams struct {
	Todo  string
	Users string
	Auth  string
}

// Options configures the relay.
type Options struct {
	Upstreams Upstreams         // Required
	Transport http.RoundTripper // Optional: defaults to http.DefaultTransport
	Logger    *slog.Logger
	Metrics   *metrics.Metrics
	Now       func() time.Time
}

type relay struct {
	log     *slog.Logger
	metrics *metrics.Metrics
	now     func() time.Time
}

// New builds the relay handler. /api/auth/** goes to the auth service,
// /api/users/** to the users service and everything else to the todo service.
func New(opts Options) (http.Handler, error) {
	rl := &relay{log: opts.Logger, metrics: opts.Metrics, now: opts.Now}
	if rl.log == nil {
		rl.log = slog.Default()
	}
	rl.log = rl.log.With("component", "gateway")
	if rl.now == nil {
		rl.now = time.Now
	}

	todo, err := rl.proxy(UpstreamTodo, opts.Upstreams.Todo, opts.Transport)
	if err != nil {
		return nil, err
	}
	users, err := rl.proxy(UpstreamUsers, opts.Upstreams.Users, opts.Transport)
	if err != nil {
		return nil, err
	}
	auth, err := rl.proxy(UpstreamAuth, opts.Upstreams.Auth, opts.Transport)
	if err != nil {
		return nil, err
	}

	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(cors)

	r.Get("/gateway/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "UP", "service": "gateway"})
	})

	r.Handle("/api/auth", rl.route(UpstreamAuth, auth))
	r.Handle("/api/auth/*", rl.route(UpstreamAuth, auth))
	r.Handle("/api/users", rl.route(UpstreamUsers, users))
	r.Handle("/api/users/*", rl.route(UpstreamUsers, users))
	r.Handle("/*", rl.route(UpstreamTodo, todo))
	return r, nil
}

func (rl *relay) proxy(name, rawURL string, transport http.RoundTripper) (*httputil.ReverseProxy, error) {
	if rawURL == "" {
		return nil, fmt.Errorf("gateway: %s upstream URL is required", name)
	}
	target, err := url.Parse(rawURL)
	if err != nil || target.Scheme == "" || target.Host == "" {
		return nil, fmt.Errorf("gateway: invalid %s upstream URL %q", name, rawURL)
	}

	return &httputil.ReverseProxy{
		Rewrite: func(pr *httputil.ProxyRequest) {
			pr.SetURL(target)
			pr.SetXForwarded()
			pr.Out.Header.Set(HeaderTimestamp, strconv.FormatInt(rl.now().UnixMilli(), 10))
			pr.Out.Header.Set(HeaderPath, pr.In.URL.Path)
			if id := chimiddleware.GetReqID(pr.In.Context()); id != "" {
				pr.Out.Header.Set(chimiddleware.RequestIDHeader, id)
			}
		},
		Transport: transport,
		ErrorHandler: func(w http.ResponseWriter, r *http.Request, err error) {
			if errors.Is(err, r.Context().Err()) {
				// Client went away; nothing useful to send.
				rl.log.InfoContext(r.Context(), "relay canceled", "upstream", name, "path", r.URL.Path)
				w.WriteHeader(http.StatusBadGateway)
				return
			}
			rl.log.ErrorContext(r.Context(), "relay failed",
				"upstream", name,
				"method", r.Method,
				"path", r.URL.Path,
				"request_id", chimiddleware.GetReqID(r.Context()),
				"error", err)
			writeJSON(w, http.StatusInternalServerError, map[string]string{
				"error":   "gateway_error",
				"message": fmt.Sprintf("upstream %s is unavailable", name),
			})
		},
	}, nil
}

// route logs and times each relayed request.
func (rl *relay) route(upstream string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := rl.now()
		ww := chimiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
		rl.log.InfoContext(r.Context(), "relay start",
			"upstream", upstream, "method", r.Method, "path", r.URL.Path, "remote", r.RemoteAddr)

		next.ServeHTTP(ww, r)

		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		d := rl.now().Sub(start)
		rl.metrics.ObserveGateway(upstream, r.Method, status, d)
		rl.log.InfoContext(r.Context(), "relay done",
			"upstream", upstream,
			"method", r.Method,
			"path", r.URL.Path,
			"status", status,
			"duration_ms", d.Milliseconds(),
			"request_id", chimiddleware.GetReqID(r.Context()))
	})
}

// cors allows credentialed requests from any origin by echoing it back.
func cors(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		if origin == "" {
			next.ServeHTTP(w, r)
			return
		}
		h := w.Header()
		h.Add("Vary", "Origin")
		h.Set("Access-Control-Allow-Origin", origin)
		h.Set("Access-Control-Allow-Credentials", "true")

		if r.Method == http.MethodOptions && r.Header.Get("Access-Control-Request-Method") != "" {
			h.Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
			if req := r.Header.Get("Access-Control-Request-Headers"); req != "" {
				h.Set("Access-Control-Allow-Headers", req)
			}
			h.Set("Access-Control-Max-Age", "3600")
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

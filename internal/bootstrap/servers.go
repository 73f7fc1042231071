package bootstrap

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	"github.com/target/todo-platform/config"
	"github.com/target/todo-platform/internal/gateway"
	httpx "github.com/target/todo-platform/internal/http"
	"github.com/target/todo-platform/internal/observability/metrics"
)

const shutdownTimeout = 10 * time.Second

// HTTPServerConfig holds everything needed to build the per-service handlers.
type HTTPServerConfig struct {
	Config   *config.AppConfig // Required
	Services ServiceContainer
	DB       *sql.DB
	Redis    redis.UniversalClient
	Metrics  *metrics.Metrics
	Logger   *slog.Logger
}

// NamedServer is one enabled service bound to its listen address.
type NamedServer struct {
	Mode   config.ServiceMode
	Server *http.Server
}

// BuildServers returns one http.Server per enabled service, in startup order.
func BuildServers(cfg *HTTPServerConfig) ([]NamedServer, error) {
	if cfg == nil || cfg.Config == nil {
		return nil, errors.New("http server config is required")
	}
	enabled, err := cfg.Config.GetEnabledServices()
	if err != nil {
		return nil, fmt.Errorf("determine enabled services: %w", err)
	}

	var out []NamedServer
	for _, mode := range config.ValidServiceModes() {
		if !enabled[mode] {
			continue
		}
		h, addr, err := cfg.handlerFor(mode)
		if err != nil {
			return nil, fmt.Errorf("build %s handler: %w", mode, err)
		}
		out = append(out, NamedServer{Mode: mode, Server: newServer(addr, h)})
	}
	return out, nil
}

func (c *HTTPServerConfig) logger() *slog.Logger {
	if c.Logger != nil {
		return c.Logger
	}
	return slog.Default()
}

func (c *HTTPServerConfig) observability(mode config.ServiceMode, checks map[string]httpx.HealthCheck) httpx.Observability {
	o := httpx.Observability{
		Service: string(mode),
		Checks:  checks,
		Logger:  c.logger().With("service", string(mode)),
	}
	if c.Config.Metrics.Enabled {
		o.MetricsHandler = c.Metrics.Handler()
		o.MetricsPath = c.Config.Metrics.Path
	}
	return o
}

func (c *HTTPServerConfig) handlerFor(mode config.ServiceMode) (http.Handler, string, error) {
	app := c.Config
	svc := c.Services

	switch mode {
	case config.ServiceModeGateway:
		h, err := gateway.New(gateway.Options{
			Upstreams: gateway.Upstreams{
				Todo:  app.Gateway.TodoURL,
				Users: app.Gateway.UsersURL,
				Auth:  app.Gateway.AuthURL,
			},
			Logger:  c.logger(),
			Metrics: c.Metrics,
		})
		if err != nil {
			return nil, "", err
		}
		if app.Metrics.Enabled {
			h = withMetricsEndpoint(h, app.Metrics.Path, c.Metrics.Handler())
		}
		return h, app.HTTP.GatewayAddr, nil

	case config.ServiceModeTodo:
		if svc.Sessions == nil || svc.Todos == nil {
			return nil, "", errors.New("todo services are not wired")
		}
		return httpx.NewTodoRouter(httpx.TodoRouterServices{
			Sessions:      svc.Sessions,
			Admin:         svc.Admin,
			Todos:         svc.Todos,
			UserAdmin:     svc.UserAdmin,
			CookieDomain:  app.HTTP.CookieDomain,
			DemoHint:      svc.DemoHint,
			Observability: c.observability(mode, c.healthChecks(true)),
		}), app.HTTP.TodoAddr, nil

	case config.ServiceModeUsers:
		if svc.Users == nil {
			return nil, "", errors.New("user service is not wired")
		}
		return httpx.NewUsersRouter(httpx.UsersRouterServices{
			Users:         svc.Users,
			Observability: c.observability(mode, c.healthChecks(false)),
		}), app.HTTP.UsersAddr, nil

	case config.ServiceModeAuth:
		if svc.Tokens == nil {
			return nil, "", errors.New("token authority is not wired")
		}
		return httpx.NewAuthRouter(httpx.AuthRouterServices{
			Tokens:        svc.Tokens,
			Observability: c.observability(mode, nil),
		}), app.HTTP.AuthAddr, nil

	default:
		return nil, "", fmt.Errorf("unknown service %q", mode)
	}
}

// healthChecks pings Postgres and, when asked and configured, Redis.
func (c *HTTPServerConfig) healthChecks(withRedis bool) map[string]httpx.HealthCheck {
	checks := map[string]httpx.HealthCheck{}
	if c.DB != nil {
		checks["postgres"] = c.DB.PingContext
	}
	if withRedis && c.Redis != nil {
		checks["redis"] = func(ctx context.Context) error { return c.Redis.Ping(ctx).Err() }
	}
	return checks
}

func withMetricsEndpoint(next http.Handler, path string, metricsHandler http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet && r.URL.Path == path {
			metricsHandler.ServeHTTP(w, r)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func newServer(addr string, h http.Handler) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           h,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
}

// RunServers serves every server until ctx is canceled or one of them fails,
// then shuts the rest down gracefully.
func RunServers(ctx context.Context, servers []NamedServer, logger *slog.Logger) error {
	if len(servers) == 0 {
		return errors.New("no servers to run")
	}
	if logger == nil {
		logger = slog.Default()
	}

	listeners := make([]net.Listener, 0, len(servers))
	for _, ns := range servers {
		ln, err := net.Listen("tcp", ns.Server.Addr)
		if err != nil {
			for _, open := range listeners {
				_ = open.Close()
			}
			return fmt.Errorf("listen %s on %s: %w", ns.Mode, ns.Server.Addr, err)
		}
		listeners = append(listeners, ln)
	}

	g, gctx := errgroup.WithContext(ctx)
	for i, ns := range servers {
		ln := listeners[i]
		g.Go(func() error {
			logger.InfoContext(gctx, "starting HTTP server", "service", ns.Mode, "addr", ln.Addr().String())
			if err := ns.Server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("%s server: %w", ns.Mode, err)
			}
			return nil
		})
	}

	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
		defer cancel()

		var errs []error
		for _, ns := range servers {
			logger.InfoContext(shutdownCtx, "shutting down HTTP server", "service", ns.Mode)
			if err := ns.Server.Shutdown(shutdownCtx); err != nil {
				errs = append(errs, fmt.Errorf("shutdown %s: %w", ns.Mode, err))
			}
		}
		return errors.Join(errs...)
	})

	return g.Wait()
}

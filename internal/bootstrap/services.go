package bootstrap

import (
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/redis/go-redis/v9"

	"github.com/target/todo-platform/config"
	"github.com/target/todo-platform/internal/adapters/authroles"
	"github.com/target/todo-platform/internal/adapters/userdirectory"
	"github.com/target/todo-platform/internal/data"
	domainauth "github.com/target/todo-platform/internal/domain/auth"
	"github.com/target/todo-platform/internal/observability/metrics"
	"github.com/target/todo-platform/internal/service"
)

// ServiceDeps holds the shared infrastructure the services are built from.
type ServiceDeps struct {
	Config  *config.AppConfig // Required
	DB      *sql.DB           // Required when todo or users is enabled
	Redis   redis.UniversalClient
	Metrics *metrics.Metrics
	Logger  *slog.Logger
	// DirectoryClient overrides the HTTP client used for user directory calls.
	DirectoryClient *http.Client
}

// ServiceContainer holds the services for every enabled mode. Fields for
// disabled modes stay nil.
type ServiceContainer struct {
	Sessions  *service.SessionGate
	Admin     *service.AdminGate
	Roles     *service.RoleResolver
	UserAdmin *service.UserAdmin
	Todos     *service.TodoService
	Users     *service.UserService
	Tokens    *service.TokenAuthority
	DemoHint  string
}

// NewServices wires the services needed by the enabled modes.
func NewServices(deps *ServiceDeps) (ServiceContainer, error) {
	var out ServiceContainer
	if deps == nil || deps.Config == nil {
		return out, errors.New("service deps with config are required")
	}
	cfg := deps.Config
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	tel := service.Telemetry{Logger: logger, Metrics: deps.Metrics}

	enabled, err := cfg.GetEnabledServices()
	if err != nil {
		return out, fmt.Errorf("determine enabled services: %w", err)
	}
	if needsDatabase(enabled) && deps.DB == nil {
		return out, errors.New("database is required for the todo and users services")
	}

	if enabled[config.ServiceModeTodo] {
		if err := buildTodoServices(&out, deps, tel); err != nil {
			return out, err
		}
	}
	if enabled[config.ServiceModeUsers] {
		out.Users = service.NewUserService(service.UserServiceOptions{
			Repo:       data.NewUserRepo(deps.DB),
			BcryptCost: cfg.Auth.BcryptCost,
			Logger:     logger.With("service", "users"),
		})
	}
	if enabled[config.ServiceModeAuth] {
		if cfg.Token.Secret == "" {
			return out, errors.New("TOKEN_SECRET is required for the auth service")
		}
		out.Tokens = service.NewTokenAuthority(service.TokenAuthorityOptions{
			Config: service.TokenAuthorityConfig{
				Secret: []byte(cfg.Token.Secret),
				TTL:    cfg.Token.TTL,
				Issuer: cfg.Token.Issuer,
			},
			Telemetry: tel,
		})
	}
	return out, nil
}

func buildTodoServices(out *ServiceContainer, deps *ServiceDeps, tel service.Telemetry) error {
	cfg := deps.Config

	sessions, err := BuildSessionStore(cfg.Auth, deps.Redis)
	if err != nil {
		return err
	}
	demo, err := BuildDemoAccounts(cfg.Auth.DemoLogin, tel.Logger)
	if err != nil {
		return err
	}
	stores := service.SessionGateStores{
		Sessions:    sessions,
		Credentials: data.NewUserRepo(deps.DB),
	}
	if demo != nil {
		stores.Demo = demo
		out.DemoHint = DemoHint(demo, cfg.Auth.DemoLogin.Secret)
	}
	out.Sessions = service.NewSessionGate(service.SessionGateOptions{
		Stores: stores,
		Config: service.SessionGateConfig{
			IdleTimeout:           cfg.Auth.SessionIdleTimeout,
			AllowPlaintextSecrets: cfg.Auth.AllowPlaintextSecrets,
		},
		Telemetry: tel,
	})

	directory, err := userdirectory.New(userdirectory.Config{
		BaseURL:    cfg.Directory.BaseURL,
		Timeout:    cfg.Directory.Timeout,
		RolesExpr:  cfg.Directory.RolesExpr,
		HTTPClient: deps.DirectoryClient,
	})
	if err != nil {
		return fmt.Errorf("user directory client: %w", err)
	}
	out.Roles = service.NewRoleResolver(service.RoleResolverOptions{
		Directory: directory,
		Config: service.RoleResolverConfig{
			Timeout:  cfg.Directory.Timeout,
			Degraded: domainauth.DefaultDegradedDataset(),
			Mapper:   authroles.Default(),
		},
		Telemetry: tel,
	})

	policy, err := BuildAdminPolicy(cfg.Auth, out.Roles)
	if err != nil {
		return err
	}
	out.Admin = service.NewAdminGate(service.AdminGateOptions{Policy: policy, Telemetry: tel})
	out.UserAdmin = service.NewUserAdmin(service.UserAdminOptions{
		Directory: directory,
		Roles:     out.Roles,
		Telemetry: tel,
	})
	out.Todos = service.NewTodoService(service.TodoServiceOptions{
		Repo:   data.NewTodoRepo(deps.DB),
		Logger: tel.Logger.With("service", "todo"),
	})

	tel.Logger.Info("todo service wired",
		"session_store", cfg.Auth.SessionStore,
		"admin_policy", policy.Name(),
		"demo_login", demo != nil,
		"directory", cfg.Directory.BaseURL)
	return nil
}

package bootstrap

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/redis/go-redis/v9"

	"github.com/target/todo-platform/config"
	"github.com/target/todo-platform/internal/adapters/devauth"
	"github.com/target/todo-platform/internal/adapters/memory"
	redisadapter "github.com/target/todo-platform/internal/adapters/redis"
	"github.com/target/todo-platform/internal/ports"
	"github.com/target/todo-platform/internal/service"
)

// BuildSessionStore picks the session backend named by SESSION_STORE.
//
//nolint:ireturn // callers only need the port.
func BuildSessionStore(cfg config.AuthConfig, client redis.UniversalClient) (ports.SessionStore, error) {
	switch cfg.SessionStore {
	case config.SessionStoreMemory:
		return memory.NewSessionStore(memory.DefaultMaxSessions, cfg.SessionIdleTimeout), nil
	case config.SessionStoreRedis, "":
		if client == nil {
			return nil, errors.New("redis session store selected but no redis client is configured")
		}
		return redisadapter.NewSessionStore(client), nil
	default:
		return nil, fmt.Errorf("unknown session store %q", cfg.SessionStore)
	}
}

// BuildDemoAccounts returns the demo login table, or nil when demo login is disabled.
func BuildDemoAccounts(cfg config.DemoLoginConfig, logger *slog.Logger) (*devauth.DemoAccounts, error) {
	if !cfg.Enabled {
		return nil, nil
	}
	demo, err := devauth.NewDemoAccounts(devauth.Config{Accounts: cfg.Accounts, Secret: cfg.Secret})
	if err != nil {
		return nil, fmt.Errorf("demo accounts: %w", err)
	}
	if logger != nil {
		logger.Warn("demo login enabled", "accounts", demo.Usernames())
	}
	return demo, nil
}

// DemoHint renders the login page hint, e.g. "Test accounts: admin/123456 or user/123456".
func DemoHint(demo *devauth.DemoAccounts, secret string) string {
	if demo == nil {
		return ""
	}
	names := demo.Usernames()
	pairs := make([]string, len(names))
	for i, name := range names {
		pairs[i] = name + "/" + secret
	}
	switch len(pairs) {
	case 0:
		return ""
	case 1:
		return "Test account: " + pairs[0]
	default:
		return "Test accounts: " + strings.Join(pairs[:len(pairs)-1], ", ") + " or " + pairs[len(pairs)-1]
	}
}

// BuildAdminPolicy selects the admin decision named by ADMIN_POLICY.
//
//nolint:ireturn // the gate only depends on the port.
func BuildAdminPolicy(cfg config.AuthConfig, roles *service.RoleResolver) (ports.AdminPolicy, error) {
	switch cfg.AdminPolicy {
	case config.AdminPolicySuperuser, "":
		return service.SuperuserByName{Username: cfg.SuperAdminUsername}, nil
	case config.AdminPolicyRoleTable:
		if roles == nil {
			return nil, errors.New("role-table admin policy needs a role resolver")
		}
		return service.RoleTableLookup{Resolver: roles}, nil
	default:
		return nil, fmt.Errorf("unknown admin policy %q", cfg.AdminPolicy)
	}
}

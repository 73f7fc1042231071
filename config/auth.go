package config

import (
	"fmt"
	"strings"
	"time"
)

// AdminPolicyMode selects how the admin gate decides who is an administrator.
type AdminPolicyMode string

const (
	// AdminPolicySuperuser grants admin only to the configured super-admin username.
	AdminPolicySuperuser AdminPolicyMode = "superuser"
	// AdminPolicyRoleTable grants admin to users holding ROLE_ADMIN in the user directory.
	AdminPolicyRoleTable AdminPolicyMode = "role-table"
)

// UnmarshalText implements encoding.TextUnmarshaler for AdminPolicyMode.
func (a *AdminPolicyMode) UnmarshalText(text []byte) error {
	v := strings.ToLower(strings.TrimSpace(string(text)))
	switch v {
	case "superuser", "role-table":
		*a = AdminPolicyMode(v)
		return nil
	default:
		return fmt.Errorf("invalid AdminPolicyMode: %q (valid options: superuser, role-table)", v)
	}
}

// SessionStoreKind selects the session store backend.
type SessionStoreKind string

const (
	// SessionStoreRedis keeps sessions in Redis.
	SessionStoreRedis SessionStoreKind = "redis"
	// SessionStoreMemory keeps sessions in process memory (single instance only).
	SessionStoreMemory SessionStoreKind = "memory"
)

// UnmarshalText implements encoding.TextUnmarshaler for SessionStoreKind.
func (s *SessionStoreKind) UnmarshalText(text []byte) error {
	v := strings.ToLower(strings.TrimSpace(string(text)))
	switch v {
	case "redis", "memory":
		*s = SessionStoreKind(v)
		return nil
	default:
		return fmt.Errorf("invalid SessionStoreKind: %q (valid options: redis, memory)", v)
	}
}

// DemoLoginConfig controls the built-in demo accounts used when the user store
// cannot serve a login.
type DemoLoginConfig struct {
	Enabled bool   `env:"ENABLED" envDefault:"true"`
	Secret  string `env:"SECRET"  envDefault:"123456"`
	// Accounts is a list of username:id pairs.
	Accounts []string `env:"ACCOUNTS" envDefault:"admin:1;user:2" envSeparator:";"`
}

// AuthConfig groups all authentication-related configuration.
type AuthConfig struct {
	// SessionStore determines where sessions are kept.
	SessionStore SessionStoreKind `env:"SESSION_STORE" envDefault:"redis"`

	// SessionIdleTimeout is the inactivity window after which a session expires.
	SessionIdleTimeout time.Duration `env:"SESSION_IDLE_TIMEOUT" envDefault:"30m"`

	// AdminPolicy determines how /admin routes decide who is an administrator.
	AdminPolicy AdminPolicyMode `env:"ADMIN_POLICY" envDefault:"superuser"`

	// SuperAdminUsername is the designated super-admin identity for the superuser policy.
	SuperAdminUsername string `env:"SUPER_ADMIN_USERNAME" envDefault:"admin"`

	// AllowPlaintextSecrets keeps the plaintext comparison path for seeded accounts.
	AllowPlaintextSecrets bool `env:"AUTH_ALLOW_PLAINTEXT_SECRETS" envDefault:"true"`

	// BcryptCost is the work factor used when hashing new passwords.
	BcryptCost int `env:"BCRYPT_COST" envDefault:"10"`

	// DemoLogin configuration.
	DemoLogin DemoLoginConfig `envPrefix:"DEMO_LOGIN_"`
}

// Sanitize applies guardrails to auth configuration values.
func (a *AuthConfig) Sanitize() {
	if a.SessionIdleTimeout < time.Minute {
		a.SessionIdleTimeout = time.Minute
	}
	a.SuperAdminUsername = strings.TrimSpace(a.SuperAdminUsername)
	if a.SuperAdminUsername == "" {
		a.SuperAdminUsername = "admin"
	}
	// bcrypt accepts costs in [4, 31].
	if a.BcryptCost < 4 {
		a.BcryptCost = 4
	}
	if a.BcryptCost > 31 {
		a.BcryptCost = 31
	}
	if a.DemoLogin.Secret == "" || len(a.DemoLogin.Accounts) == 0 {
		a.DemoLogin.Enabled = false
	}
}

// TokenConfig controls the bearer token authority.
type TokenConfig struct {
	Secret string        `env:"SECRET" envDefault:"todo-platform-dev-secret-change-me"`
	TTL    time.Duration `env:"TTL"    envDefault:"10h"`
	Issuer string        `env:"ISSUER" envDefault:"todo-platform"`
}

// Sanitize applies guardrails to token configuration values.
func (t *TokenConfig) Sanitize() {
	if t.TTL <= 0 {
		t.TTL = 10 * time.Hour
	}
	t.Issuer = strings.TrimSpace(t.Issuer)
}

// DirectoryConfig controls the HTTP client used to reach the user directory.
type DirectoryConfig struct {
	// BaseURL is the root of the user directory API, e.g. http://users:8082/api.
	BaseURL string `env:"BASE_URL" envDefault:"http://localhost:8082/api"`

	// Timeout bounds every directory call.
	Timeout time.Duration `env:"TIMEOUT" envDefault:"3s"`

	// RolesExpr is a JMESPath expression selecting role names from the roles response.
	RolesExpr string `env:"ROLES_EXPR" envDefault:"@"`
}

// Sanitize applies guardrails to directory configuration values.
func (d *DirectoryConfig) Sanitize() {
	d.BaseURL = strings.TrimRight(strings.TrimSpace(d.BaseURL), "/")
	if d.Timeout <= 0 || d.Timeout > 30*time.Second {
		d.Timeout = 3 * time.Second
	}
	if strings.TrimSpace(d.RolesExpr) == "" {
		d.RolesExpr = "@"
	}
}

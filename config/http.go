package config

import "strings"

// HTTPConfig contains HTTP listener configuration for every service.
type HTTPConfig struct {
	// GatewayAddr is the bind address of the edge relay.
	GatewayAddr string `env:"GATEWAY_ADDR" envDefault:":8080"`

	// TodoAddr is the bind address of the todo front door.
	TodoAddr string `env:"TODO_ADDR" envDefault:":8081"`

	// UsersAddr is the bind address of the user directory service.
	UsersAddr string `env:"USERS_ADDR" envDefault:":8082"`

	// AuthAddr is the bind address of the token service.
	AuthAddr string `env:"AUTH_ADDR" envDefault:":8083"`

	// CookieDomain is the domain for session cookies.
	// Leave empty to use the request domain.
	CookieDomain string `env:"APP_COOKIE_DOMAIN" envDefault:""`
}

// Sanitize applies guardrails to HTTP configuration values.
func (h *HTTPConfig) Sanitize() {
	h.CookieDomain = strings.TrimSpace(h.CookieDomain)
}

// GatewayConfig holds the upstream base URLs the edge relay forwards to.
type GatewayConfig struct {
	TodoURL  string `env:"TODO_URL"  envDefault:"http://localhost:8081"`
	UsersURL string `env:"USERS_URL" envDefault:"http://localhost:8082"`
	AuthURL  string `env:"AUTH_URL"  envDefault:"http://localhost:8083"`
}

// Sanitize trims trailing slashes from upstream URLs.
func (g *GatewayConfig) Sanitize() {
	g.TodoURL = strings.TrimRight(strings.TrimSpace(g.TodoURL), "/")
	g.UsersURL = strings.TrimRight(strings.TrimSpace(g.UsersURL), "/")
	g.AuthURL = strings.TrimRight(strings.TrimSpace(g.AuthURL), "/")
}

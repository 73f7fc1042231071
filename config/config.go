package config

import (
	"os"
	"strings"
)

// AppConfig is the main application configuration struct that composes
// domain-specific configuration from separate files.
//
// Configuration is loaded from environment variables using the
// github.com/caarlos0/env library. See individual domain config
// files for details on available environment variables:
//   - auth.go: Session, credential, admin policy and token configuration
//   - database.go: Database and session store configuration
//   - http.go: HTTP listener and upstream configuration
//   - services.go: Service mode configuration
type AppConfig struct {
	// IsDev controls development mode behavior.
	// Set DEV=true or NODE_ENV=development for development mode.
	IsDev bool `env:"DEV" envDefault:"false"`

	// Authentication configuration
	Auth  AuthConfig
	Token TokenConfig `envPrefix:"TOKEN_"`

	// User directory client configuration
	Directory DirectoryConfig `envPrefix:"USER_DIRECTORY_"`

	// Database configuration
	Postgres DBConfig    `envPrefix:"DB_"`
	Redis    RedisConfig `envPrefix:"REDIS_"`

	// HTTP server configuration
	HTTP    HTTPConfig
	Gateway GatewayConfig `envPrefix:"GATEWAY_"`

	// Service mode configuration
	Services string `env:"SERVICES" envDefault:"gateway,todo,users,auth"`

	// Observability configuration
	Metrics MetricsConfig `envPrefix:"METRICS_"`
}

// Sanitize applies guardrails to configuration values loaded from env.
// This should be called after loading configuration from environment variables.
func (c *AppConfig) Sanitize() {
	c.Auth.Sanitize()
	c.Token.Sanitize()
	c.Directory.Sanitize()
	c.HTTP.Sanitize()
	c.Gateway.Sanitize()
	c.Metrics.Sanitize()

	// Check NODE_ENV for dev mode
	c.detectDevMode()
}

// detectDevMode checks both DEV and NODE_ENV environment variables.
// NODE_ENV is checked as a fallback (common in frontend tooling).
func (c *AppConfig) detectDevMode() {
	if !c.IsDev {
		nodeEnv := strings.ToLower(os.Getenv("NODE_ENV"))
		c.IsDev = nodeEnv == "development" || nodeEnv == "dev"
	}
}

// GetEnabledServices returns the enabled services based on the Services field.
func (c *AppConfig) GetEnabledServices() (map[ServiceMode]bool, error) {
	return ParseServices(c.Services)
}

// IsServiceEnabled returns true if the given service is enabled.
// An unparsable SERVICES value enables nothing.
func (c *AppConfig) IsServiceEnabled(mode ServiceMode) bool {
	services, err := c.GetEnabledServices()
	if err != nil {
		return false
	}
	return services[mode]
}

// MetricsConfig controls the Prometheus scrape endpoint.
type MetricsConfig struct {
	Enabled bool   `env:"ENABLED" envDefault:"true"`
	Path    string `env:"PATH"    envDefault:"/metrics"`
}

// Sanitize normalises the metrics path.
func (m *MetricsConfig) Sanitize() {
	m.Path = strings.TrimSpace(m.Path)
	if m.Path == "" {
		m.Enabled = false
		return
	}
	if !strings.HasPrefix(m.Path, "/") {
		m.Path = "/" + m.Path
	}
}

package bootstrap

import (
	"context"
	"database/sql"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/target/todo-platform/config"
	"github.com/target/todo-platform/internal/adapters/devauth"
	"github.com/target/todo-platform/internal/adapters/memory"
	redisadapter "github.com/target/todo-platform/internal/adapters/redis"
	"github.com/target/todo-platform/internal/observability/metrics"
	"github.com/target/todo-platform/internal/service"
	"github.com/target/todo-platform/internal/testutil"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// loadTestConfig parses defaults plus vars without touching the process environment.
func loadTestConfig(t *testing.T, vars map[string]string) *config.AppConfig {
	t.Helper()
	var cfg config.AppConfig
	require.NoError(t, env.ParseWithOptions(&cfg, env.Options{Environment: vars}))
	cfg.Sanitize()
	return &cfg
}

// lazyDB returns a pool that never dials until used.
func lazyDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("pgx", PostgresDSN(config.DBConfig{
		Host: "127.0.0.1", Port: 1, User: "u", Password: "p@ss/word", Name: "todo", SSLMode: "disable",
	}))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func TestValidateServiceConfig(t *testing.T) {
	assert.Error(t, ValidateServiceConfig(nil))
	assert.Error(t, ValidateServiceConfig(&config.AppConfig{Services: ""}))
	assert.Error(t, ValidateServiceConfig(&config.AppConfig{Services: "todo,scheduler"}))
	assert.NoError(t, ValidateServiceConfig(&config.AppConfig{Services: "auth"}))
}

func TestGetEnabledServices(t *testing.T) {
	assert.Empty(t, GetEnabledServices(nil))
	assert.Empty(t, GetEnabledServices(&config.AppConfig{Services: "bogus"}))
	assert.Equal(t, []string{"gateway", "todo", "users", "auth"},
		GetEnabledServices(&config.AppConfig{Services: "auth,users,todo,gateway"}))
}

func TestPostgresDSN_EscapesCredentials(t *testing.T) {
	dsn := PostgresDSN(config.DBConfig{Host: "db", Port: 5432, User: "todo", Password: "p@ss/word", Name: "todo", SSLMode: "require"})
	assert.Equal(t, "postgres://todo:p%40ss%2Fword@db:5432/todo?sslmode=require", dsn)
}

func TestNeedsInfrastructure(t *testing.T) {
	cfg := loadTestConfig(t, map[string]string{"SERVICES": "gateway,auth"})
	enabled, err := cfg.GetEnabledServices()
	require.NoError(t, err)
	assert.False(t, needsDatabase(enabled))
	assert.False(t, needsRedis(cfg, enabled))

	cfg = loadTestConfig(t, map[string]string{"SERVICES": "todo"})
	enabled, err = cfg.GetEnabledServices()
	require.NoError(t, err)
	assert.True(t, needsDatabase(enabled))
	assert.True(t, needsRedis(cfg, enabled))

	cfg = loadTestConfig(t, map[string]string{"SERVICES": "todo", "SESSION_STORE": "memory"})
	assert.False(t, needsRedis(cfg, enabled))
}

func TestBuildSessionStore(t *testing.T) {
	auth := config.AuthConfig{SessionStore: config.SessionStoreMemory, SessionIdleTimeout: time.Minute}
	store, err := BuildSessionStore(auth, nil)
	require.NoError(t, err)
	assert.IsType(t, &memory.SessionStore{}, store)

	auth.SessionStore = config.SessionStoreRedis
	_, err = BuildSessionStore(auth, nil)
	assert.Error(t, err)

	client := testutil.SetupTestRedis(t)
	store, err = BuildSessionStore(auth, client)
	require.NoError(t, err)
	assert.IsType(t, &redisadapter.SessionStore{}, store)
}

func TestBuildDemoAccounts(t *testing.T) {
	demo, err := BuildDemoAccounts(config.DemoLoginConfig{Enabled: false}, nil)
	require.NoError(t, err)
	assert.Nil(t, demo)

	_, err = BuildDemoAccounts(config.DemoLoginConfig{Enabled: true, Secret: "s", Accounts: []string{"admin"}}, nil)
	assert.Error(t, err)

	demo, err = BuildDemoAccounts(config.DemoLoginConfig{Enabled: true, Secret: "s", Accounts: []string{"admin:1"}}, discardLogger())
	require.NoError(t, err)
	assert.Equal(t, []string{"admin"}, demo.Usernames())
}

func TestDemoHint(t *testing.T) {
	assert.Empty(t, DemoHint(nil, "123456"))
	assert.Equal(t, "Test accounts: admin/123456 or user/123456", DemoHint(devauth.Default("123456"), "123456"))

	one, err := devauth.NewDemoAccounts(devauth.Config{Accounts: []string{"demo:9"}, Secret: "pw"})
	require.NoError(t, err)
	assert.Equal(t, "Test account: demo/pw", DemoHint(one, "pw"))

	three, err := devauth.NewDemoAccounts(devauth.Config{Accounts: []string{"c:3", "a:1", "b:2"}, Secret: "pw"})
	require.NoError(t, err)
	assert.Equal(t, "Test accounts: a/pw, b/pw or c/pw", DemoHint(three, "pw"))
}

func TestBuildAdminPolicy(t *testing.T) {
	policy, err := BuildAdminPolicy(config.AuthConfig{AdminPolicy: config.AdminPolicySuperuser, SuperAdminUsername: "root"}, nil)
	require.NoError(t, err)
	assert.Equal(t, service.SuperuserByName{Username: "root"}, policy)

	_, err = BuildAdminPolicy(config.AuthConfig{AdminPolicy: config.AdminPolicyRoleTable}, nil)
	assert.Error(t, err)

	_, err = BuildAdminPolicy(config.AuthConfig{AdminPolicy: "everyone"}, nil)
	assert.Error(t, err)
}

func TestNewServices_AuthOnly(t *testing.T) {
	cfg := loadTestConfig(t, map[string]string{"SERVICES": "auth"})
	svc, err := NewServices(&ServiceDeps{Config: cfg, Logger: discardLogger()})
	require.NoError(t, err)
	require.NotNil(t, svc.Tokens)
	assert.Nil(t, svc.Sessions)
	assert.Nil(t, svc.Users)

	token, err := svc.Tokens.Issue("alice")
	require.NoError(t, err)
	assert.True(t, svc.Tokens.Validate(token))
}

func TestNewServices_RequiresDatabase(t *testing.T) {
	cfg := loadTestConfig(t, map[string]string{"SERVICES": "users"})
	_, err := NewServices(&ServiceDeps{Config: cfg})
	assert.Error(t, err)

	_, err = NewServices(nil)
	assert.Error(t, err)
}

func TestNewServices_Todo(t *testing.T) {
	cfg := loadTestConfig(t, map[string]string{
		"SERVICES":      "todo,users",
		"SESSION_STORE": "memory",
		"ADMIN_POLICY":  "role-table",
	})
	svc, err := NewServices(&ServiceDeps{Config: cfg, DB: lazyDB(t), Logger: discardLogger()})
	require.NoError(t, err)

	require.NotNil(t, svc.Sessions)
	require.NotNil(t, svc.Roles)
	require.NotNil(t, svc.UserAdmin)
	require.NotNil(t, svc.Todos)
	require.NotNil(t, svc.Users)
	assert.Nil(t, svc.Tokens)
	assert.Equal(t, "role-table", svc.Admin.PolicyName())
	assert.Equal(t, "Test accounts: admin/123456 or user/123456", svc.DemoHint)
	assert.NotNil(t, svc.Roles.Degraded())
}

func TestNewServices_TodoWithoutRedis(t *testing.T) {
	cfg := loadTestConfig(t, map[string]string{"SERVICES": "todo"})
	_, err := NewServices(&ServiceDeps{Config: cfg, DB: lazyDB(t), Logger: discardLogger()})
	assert.Error(t, err)
}

func TestBuildServers(t *testing.T) {
	cfg := loadTestConfig(t, map[string]string{
		"SERVICES":      "gateway,todo,users,auth",
		"SESSION_STORE": "memory",
	})
	db := lazyDB(t)
	m := metrics.New(prometheus.NewRegistry())
	svc, err := NewServices(&ServiceDeps{Config: cfg, DB: db, Metrics: m, Logger: discardLogger()})
	require.NoError(t, err)

	servers, err := BuildServers(&HTTPServerConfig{Config: cfg, Services: svc, DB: db, Metrics: m, Logger: discardLogger()})
	require.NoError(t, err)
	require.Len(t, servers, 4)

	byMode := map[config.ServiceMode]*http.Server{}
	for _, ns := range servers {
		byMode[ns.Mode] = ns.Server
	}
	assert.Equal(t, ":8080", byMode[config.ServiceModeGateway].Addr)
	assert.Equal(t, ":8081", byMode[config.ServiceModeTodo].Addr)
	assert.Equal(t, ":8082", byMode[config.ServiceModeUsers].Addr)
	assert.Equal(t, ":8083", byMode[config.ServiceModeAuth].Addr)

	t.Run("login page carries the demo hint", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/login", nil)
		req.Header.Set("Accept", "text/html")
		rec := httptest.NewRecorder()
		byMode[config.ServiceModeTodo].Handler.ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code)

		var env struct {
			Model struct {
				DemoHint string `json:"demo_hint"`
			} `json:"model"`
		}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
		assert.Equal(t, svc.DemoHint, env.Model.DemoHint)
	})

	t.Run("liveness on every service", func(t *testing.T) {
		for _, mode := range []config.ServiceMode{config.ServiceModeTodo, config.ServiceModeUsers, config.ServiceModeAuth} {
			rec := httptest.NewRecorder()
			byMode[mode].Handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
			assert.Equal(t, http.StatusOK, rec.Code, mode)
		}
		rec := httptest.NewRecorder()
		byMode[config.ServiceModeGateway].Handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/gateway/health", nil))
		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("metrics endpoint", func(t *testing.T) {
		for _, mode := range []config.ServiceMode{config.ServiceModeGateway, config.ServiceModeAuth} {
			rec := httptest.NewRecorder()
			byMode[mode].Handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
			assert.Equal(t, http.StatusOK, rec.Code, mode)
		}
	})
}

func TestBuildServers_MissingServices(t *testing.T) {
	cfg := loadTestConfig(t, map[string]string{"SERVICES": "users"})
	_, err := BuildServers(&HTTPServerConfig{Config: cfg})
	assert.Error(t, err)

	_, err = BuildServers(nil)
	assert.Error(t, err)
}

func TestRunServers_StopsOnCancel(t *testing.T) {
	cfg := loadTestConfig(t, map[string]string{"SERVICES": "auth"})
	svc, err := NewServices(&ServiceDeps{Config: cfg, Logger: discardLogger()})
	require.NoError(t, err)
	servers, err := BuildServers(&HTTPServerConfig{Config: cfg, Services: svc, Logger: discardLogger()})
	require.NoError(t, err)
	servers[0].Server.Addr = "127.0.0.1:0"

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- RunServers(ctx, servers, discardLogger()) }()

	time.Sleep(50 * time.Millisecond)
	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("RunServers did not return after cancel")
	}

	assert.Error(t, RunServers(context.Background(), nil, nil))
}

func TestRunServers_ListenFailure(t *testing.T) {
	ln := httptest.NewServer(http.NotFoundHandler())
	t.Cleanup(ln.Close)

	servers := []NamedServer{{Mode: config.ServiceModeAuth, Server: newServer(ln.Listener.Addr().String(), http.NotFoundHandler())}}
	err := RunServers(context.Background(), servers, discardLogger())
	assert.Error(t, err)
}

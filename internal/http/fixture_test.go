package httpx

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/target/todo-platform/internal/adapters/devauth"
	domainauth "github.com/target/todo-platform/internal/domain/auth"
	"github.com/target/todo-platform/internal/mocks"
	authmocks "github.com/target/todo-platform/internal/mocks/auth"
	"github.com/target/todo-platform/internal/service"
)

const demoSecret = "123456"

// testEnv is the todo front door wired to real gates over in-memory stores and
// gomock repositories.
type testEnv struct {
	router   http.Handler
	sessions *authmocks.MemorySessionStore
	creds    *authmocks.StaticCredentialStore
	dir      *mocks.MockUserDirectory
	todos    *mocks.MockTodoRepository
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	ctrl := gomock.NewController(t)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	tel := service.Telemetry{Logger: logger}

	env := &testEnv{
		sessions: authmocks.NewMemorySessionStore(),
		creds: authmocks.NewStaticCredentialStore(
			domainauth.StoredCredential{UserID: 1, Username: "admin", Secret: demoSecret},
			domainauth.StoredCredential{UserID: 10, Username: "alice", Secret: "wonderland"},
		),
		dir:   mocks.NewMockUserDirectory(ctrl),
		todos: mocks.NewMockTodoRepository(ctrl),
	}

	gate := service.NewSessionGate(service.SessionGateOptions{
		Stores: service.SessionGateStores{
			Sessions:    env.sessions,
			Credentials: env.creds,
			Demo:        devauth.Default(demoSecret),
		},
		Config:    service.SessionGateConfig{AllowPlaintextSecrets: true},
		Telemetry: tel,
	})
	roles := service.NewRoleResolver(service.RoleResolverOptions{
		Directory: env.dir,
		Config:    service.RoleResolverConfig{Degraded: domainauth.DefaultDegradedDataset()},
		Telemetry: tel,
	})
	admin := service.NewAdminGate(service.AdminGateOptions{
		Policy:    service.SuperuserByName{Username: "admin"},
		Telemetry: tel,
	})

	env.router = NewTodoRouter(TodoRouterServices{
		Sessions:  gate,
		Admin:     admin,
		Todos:     service.NewTodoService(service.TodoServiceOptions{Repo: env.todos, Logger: logger}),
		UserAdmin: service.NewUserAdmin(service.UserAdminOptions{Directory: env.dir, Roles: roles, Telemetry: tel}),
		DemoHint:  "Test accounts: admin/123456 or user/123456",
		Observability: Observability{
			Service: "todo",
			Logger:  logger,
		},
	})
	return env
}

// login posts the form and returns the session cookie.
func (e *testEnv) login(t *testing.T, username, password string) *http.Cookie {
	t.Helper()
	rec := e.do(formRequest(http.MethodPost, "/login", url.Values{"username": {username}, "password": {password}}), nil)
	require.Equal(t, http.StatusFound, rec.Code, rec.Body.String())
	for _, c := range rec.Result().Cookies() {
		if c.Name == SessionCookieName {
			return c
		}
	}
	t.Fatalf("login for %q set no session cookie", username)
	return nil
}

func (e *testEnv) do(req *http.Request, cookie *http.Cookie) *httptest.ResponseRecorder {
	if cookie != nil {
		req.AddCookie(cookie)
	}
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

func browserRequest(method, target string) *http.Request {
	req := httptest.NewRequest(method, target, nil)
	req.Header.Set("Accept", "text/html")
	return req
}

func apiRequest(method, target, body string) *http.Request {
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, r)
	req.Header.Set("Accept", "application/json")
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	return req
}

func formRequest(method, target string, form url.Values) *http.Request {
	req := httptest.NewRequest(method, target, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "text/html")
	return req
}

// decodeView unwraps a page response into its model.
func decodeView(t *testing.T, rec *httptest.ResponseRecorder, model any) string {
	t.Helper()
	var env struct {
		View  string          `json:"view"`
		Model json.RawMessage `json:"model"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env), rec.Body.String())
	require.NoError(t, json.Unmarshal(env.Model, model))
	return env.View
}

func decodeJSON(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body), rec.Body.String())
	return body
}

package httpx

import (
	"log/slog"
	"net/http"

	"github.com/target/todo-platform/internal/service"
)

// Observability holds the endpoints every service exposes.
type Observability struct {
	Service string
	Checks  map[string]HealthCheck
	// MetricsHandler is mounted at MetricsPath when both are set.
	MetricsHandler http.Handler
	MetricsPath    string
	Logger         *slog.Logger
}

func (o Observability) logger() *slog.Logger {
	if o.Logger != nil {
		return o.Logger
	}
	return slog.Default()
}

// TodoRouterServices holds the services behind the todo front door.
type TodoRouterServices struct {
	Sessions     SessionGateInterface // Required
	Admin        AdminGateInterface   // Required
	Todos        *service.TodoService // Required
	UserAdmin    *service.UserAdmin   // Required
	CookieDomain string
	DemoHint     string
	Observability
}

// NewTodoRouter serves login, the todo pages and API, and the admin area.
func NewTodoRouter(s TodoRouterServices) http.Handler {
	mux := http.NewServeMux()
	guard := &Guard{Sessions: s.Sessions, Admin: s.Admin, CookieDomain: s.CookieDomain, Logger: s.logger()}

	registerLoginRoutes(mux, &AuthHandlers{Guard: guard, DemoHint: s.DemoHint, Logger: s.logger()})
	registerTodoPageRoutes(mux, &TodoHandlers{Guard: guard, Todos: s.Todos, Logger: s.logger()})
	registerAdminRoutes(mux, &AdminHandlers{Guard: guard, Users: s.UserAdmin, Logger: s.logger()})
	registerObservability(mux, s.Observability)

	return wrap(mux, s.logger())
}

// UsersRouterServices holds the services behind the user directory.
type UsersRouterServices struct {
	Users *service.UserService // Required
	Observability
}

// NewUsersRouter serves the user directory API.
func NewUsersRouter(s UsersRouterServices) http.Handler {
	mux := http.NewServeMux()
	registerUserRoutes(mux, &UserHandlers{Svc: s.Users, Logger: s.logger()})
	registerObservability(mux, s.Observability)
	return wrap(mux, s.logger())
}

// AuthRouterServices holds the services behind the token API.
type AuthRouterServices struct {
	Tokens TokenIssuer // Required
	Observability
}

// NewAuthRouter serves the token API.
func NewAuthRouter(s AuthRouterServices) http.Handler {
	mux := http.NewServeMux()
	registerTokenRoutes(mux, &TokenHandlers{Tokens: s.Tokens, Logger: s.logger()})
	registerObservability(mux, s.Observability)
	return wrap(mux, s.logger())
}

func wrap(h http.Handler, logger *slog.Logger) http.Handler {
	return Chain(h, Recover(logger), Logging(logger), BrowserDetection())
}

func registerObservability(mux *http.ServeMux, o Observability) {
	mux.HandleFunc("GET /healthz", healthHandler)
	mux.HandleFunc("HEAD /healthz", healthHandler)
	health := &HealthHandlers{Service: o.Service, Checks: o.Checks}
	mux.HandleFunc("GET /api/health", health.Status)
	if o.MetricsHandler != nil && o.MetricsPath != "" {
		mux.Handle("GET "+o.MetricsPath, o.MetricsHandler)
	}
}

func registerLoginRoutes(mux *http.ServeMux, h *AuthHandlers) {
	mux.HandleFunc("GET /login", h.LoginPage)
	mux.HandleFunc("POST /login", h.Login)
	mux.HandleFunc("GET /logout", h.Logout)
	mux.HandleFunc("POST /logout", h.Logout)
	mux.HandleFunc("GET /api/session", h.SessionStatus)
}

func registerTodoPageRoutes(mux *http.ServeMux, h *TodoHandlers) {
	mux.HandleFunc("GET /{$}", h.Index)
	mux.HandleFunc("GET /index", h.Index)
	mux.HandleFunc("POST /add", h.AddForm)
	mux.HandleFunc("POST /update", h.UpdateForm)
	mux.HandleFunc("GET /delete/{id}", h.DeleteLink)

	mux.HandleFunc("GET /api/todos", h.List)
	mux.HandleFunc("GET /api/todos/all", h.List)
	mux.HandleFunc("GET /api/todos/stats", h.Stats)
	mux.HandleFunc("GET /api/todos/{id}", h.Get)
	mux.HandleFunc("POST /api/todos", h.Create)
	mux.HandleFunc("POST /api/todos/add", h.Create)
	mux.HandleFunc("POST /api/todos/update", h.BatchUpdate)
	mux.HandleFunc("PUT /api/todos/{id}", h.Update)
	mux.HandleFunc("PUT /api/todos/{id}/toggle", h.Toggle)
	mux.HandleFunc("DELETE /api/todos/{id}", h.Delete)
}

func registerAdminRoutes(mux *http.ServeMux, h *AdminHandlers) {
	mux.HandleFunc("GET /admin/users", h.List)
	mux.HandleFunc("GET /admin/users/new", h.New)
	mux.HandleFunc("GET /admin/users/{id}", h.Detail)
	mux.HandleFunc("GET /admin/users/{id}/edit", h.Edit)
	mux.HandleFunc("POST /admin/users/save", h.Save)
	mux.HandleFunc("POST /admin/users/{id}/delete", h.Delete)
	mux.HandleFunc("POST /admin/users/batch-delete", h.BatchDelete)
	mux.HandleFunc("POST /admin/users/fix-roles", h.FixRoles)
}

func registerUserRoutes(mux *http.ServeMux, h *UserHandlers) {
	mux.HandleFunc("GET /api/users", h.List)
	mux.HandleFunc("POST /api/users", h.Create)
	mux.HandleFunc("GET /api/users/lookup", h.Lookup)
	mux.HandleFunc("GET /api/users/exists", h.Exists)
	mux.HandleFunc("GET /api/users/stats", h.Stats)
	mux.HandleFunc("DELETE /api/users/batch", h.BatchDelete)
	mux.HandleFunc("POST /api/users/fix-roles", h.FixRoles)
	mux.HandleFunc("GET /api/users/{id}", h.GetByID)
	mux.HandleFunc("PUT /api/users/{id}", h.Update)
	mux.HandleFunc("DELETE /api/users/{id}", h.Delete)
	mux.HandleFunc("GET /api/users/{id}/roles", h.Roles)
	mux.HandleFunc("GET /api/users/{kind}/{username}", h.ByUsername)
	mux.HandleFunc("POST /api/users/{id}/roles/admin", h.GrantAdmin)
	mux.HandleFunc("DELETE /api/users/{id}/roles/admin", h.RevokeAdmin)
}

func registerTokenRoutes(mux *http.ServeMux, h *TokenHandlers) {
	mux.HandleFunc("POST /api/auth/token", h.Issue)
	mux.HandleFunc("POST /api/auth/validate", h.Validate)
	mux.HandleFunc("GET /api/auth/username", h.Username)
}

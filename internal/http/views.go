package httpx

import (
	"net/http"

	"github.com/target/todo-platform/internal/domain/model"
)

// View names served by the todo front door.
const (
	ViewLogin      = "login"
	ViewTodoList   = "todo/list"
	ViewUserList   = "admin/users/list"
	ViewUserForm   = "admin/users/form"
	ViewUserDetail = "admin/users/detail"
)

// viewEnvelope is the body of every page response: the view name plus its model.
// Pages are served as JSON view models; a front end renders them.
type viewEnvelope struct {
	View  string `json:"view"`
	Model any    `json:"model"`
}

// renderView writes the named view model.
func renderView(w http.ResponseWriter, status int, view string, model any) {
	w.Header().Set("Cache-Control", "no-store")
	WriteJSON(w, status, viewEnvelope{View: view, Model: model})
}

// LoginPage is the view model of the login page.
type LoginPage struct {
	Error    string `json:"error,omitempty"`
	Message  string `json:"message,omitempty"`
	Username string `json:"username,omitempty"`
	DemoHint string `json:"demo_hint,omitempty"`
	Redirect string `json:"redirect,omitempty"`
}

// TodoListPage is the view model of the todo list page.
type TodoListPage struct {
	Username string           `json:"username"`
	UserID   int64            `json:"user_id"`
	IsAdmin  bool             `json:"is_admin"`
	Demo     bool             `json:"demo"`
	Items    []model.TodoItem `json:"items"`
	Stats    model.TodoStats  `json:"stats"`
}

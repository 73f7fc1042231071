package httpx

import (
	"log/slog"
	"mime"
	"net/http"
	"net/url"
	"slices"
	"strconv"
	"strings"

	domainauth "github.com/target/todo-platform/internal/domain/auth"
	"github.com/target/todo-platform/internal/domain/model"
	apperrors "github.com/target/todo-platform/internal/errors"
	"github.com/target/todo-platform/internal/service"
)

// TodoHandlers serves the todo pages and the todo REST API. Items are always
// scoped to the principal of the request's session.
type TodoHandlers struct {
	Guard  *Guard
	Todos  *service.TodoService
	Logger *slog.Logger
}

func (h *TodoHandlers) logger() *slog.Logger {
	if h != nil && h.Logger != nil {
		return h.Logger
	}
	return slog.Default()
}

// Index renders the caller's todo list.
// GET / and GET /index.
func (h *TodoHandlers) Index(w http.ResponseWriter, r *http.Request) {
	sess, r, ok := h.Guard.Session(w, r)
	if !ok {
		return
	}
	items, err := h.Todos.List(r.Context(), sess.Principal)
	if err != nil {
		writeServiceError(w, r, h.logger(), "list_todos", err)
		return
	}
	page := TodoListPage{
		Username: sess.Principal.Username,
		UserID:   sess.Principal.UserID,
		IsAdmin:  h.Guard.Admin != nil && h.Guard.Admin.RequireAdmin(r.Context(), sess) == nil,
		Demo:     sess.Demo,
		Items:    items,
		Stats:    model.NewTodoStats(items),
	}
	renderView(w, http.StatusOK, ViewTodoList, page)
}

// AddForm creates an item from the list page form.
// POST /add (form: title, description).
func (h *TodoHandlers) AddForm(w http.ResponseWriter, r *http.Request) {
	sess, r, ok := h.Guard.Session(w, r)
	if !ok {
		return
	}
	in := model.TodoInput{
		Title:       r.PostFormValue("title"),
		Description: r.PostFormValue("description"),
	}
	if _, err := h.Todos.Create(r.Context(), sess.Principal, in); err != nil {
		h.redirectHomeWithError(w, r, sess, "add_todo", err)
		return
	}
	http.Redirect(w, r, pathHome, http.StatusFound)
}

// UpdateForm saves the whole list page in one submission.
// POST /update (form: id, title, description repeated per row; completed lists ids).
func (h *TodoHandlers) UpdateForm(w http.ResponseWriter, r *http.Request) {
	sess, r, ok := h.Guard.Session(w, r)
	if !ok {
		return
	}
	inputs, err := todoInputsFromRequest(r)
	if err != nil {
		h.redirectHomeWithError(w, r, sess, "batch_update_todos", err)
		return
	}
	if _, err := h.Todos.BatchUpdate(r.Context(), sess.Principal, inputs); err != nil {
		h.redirectHomeWithError(w, r, sess, "batch_update_todos", err)
		return
	}
	http.Redirect(w, r, pathHome, http.StatusFound)
}

// DeleteLink removes an item from a list page link. Failures are logged and the
// caller is sent back to the list either way.
// GET /delete/{id}.
func (h *TodoHandlers) DeleteLink(w http.ResponseWriter, r *http.Request) {
	sess, r, ok := h.Guard.Session(w, r)
	if !ok {
		return
	}
	if id, err := pathID(r); err == nil {
		if err := h.Todos.Delete(r.Context(), sess.Principal, id); err != nil {
			h.logger().WarnContext(r.Context(), "delete todo failed",
				"op", "delete_todo", "user_id", sess.Principal.UserID, "todo_id", id, "error", err)
		}
	}
	http.Redirect(w, r, pathHome, http.StatusFound)
}

func (h *TodoHandlers) redirectHomeWithError(w http.ResponseWriter, r *http.Request, sess *domainauth.Session, op string, err error) {
	h.logger().WarnContext(r.Context(), "todo form failed", "op", op, "user_id", sess.Principal.UserID, "error", err)
	status, _ := errorStatus(err)
	q := url.Values{}
	q.Set("error", clientMessage(status, err).Error())
	http.Redirect(w, r, pathHome+"?"+q.Encode(), http.StatusFound)
}

// todoInputsFromRequest reads a batch either as a JSON array or as parallel form fields.
func todoInputsFromRequest(r *http.Request) ([]model.TodoInput, error) {
	if ct, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type")); ct == "application/json" {
		var inputs []model.TodoInput
		if err := decodeJSONBody(r, &inputs); err != nil {
			return nil, apperrors.Validation("malformed JSON body")
		}
		return inputs, nil
	}
	if err := r.ParseForm(); err != nil {
		return nil, apperrors.Validation("malformed form")
	}
	ids := r.PostForm["id"]
	titles := r.PostForm["title"]
	descs := r.PostForm["description"]
	if len(titles) != len(ids) {
		return nil, apperrors.Validation("every row needs an id and a title")
	}
	done := r.PostForm["completed"]
	inputs := make([]model.TodoInput, 0, len(ids))
	for i, raw := range ids {
		in := model.TodoInput{Title: titles[i]}
		if i < len(descs) {
			in.Description = descs[i]
		}
		raw = strings.TrimSpace(raw)
		if raw != "" {
			id, err := strconv.ParseInt(raw, 10, 64)
			if err != nil || id <= 0 {
				return nil, apperrors.ValidationField("id", "id must be a positive integer")
			}
			in.ID = id
		}
		in.Completed = raw != "" && slices.Contains(done, raw)
		inputs = append(inputs, in)
	}
	return inputs, nil
}

// List returns the caller's items.
// GET /api/todos and GET /api/todos/all.
func (h *TodoHandlers) List(w http.ResponseWriter, r *http.Request) {
	sess, r, ok := h.Guard.Session(w, r)
	if !ok {
		return
	}
	items, err := h.Todos.List(r.Context(), sess.Principal)
	if err != nil {
		writeServiceError(w, r, h.logger(), "list_todos", err)
		return
	}
	WriteJSON(w, http.StatusOK, items)
}

// Stats returns completed and pending counts.
// GET /api/todos/stats.
func (h *TodoHandlers) Stats(w http.ResponseWriter, r *http.Request) {
	sess, r, ok := h.Guard.Session(w, r)
	if !ok {
		return
	}
	stats, err := h.Todos.Stats(r.Context(), sess.Principal)
	if err != nil {
		writeServiceError(w, r, h.logger(), "todo_stats", err)
		return
	}
	WriteJSON(w, http.StatusOK, stats)
}

// Get returns one item.
// GET /api/todos/{id}.
func (h *TodoHandlers) Get(w http.ResponseWriter, r *http.Request) {
	sess, r, ok := h.Guard.Session(w, r)
	if !ok {
		return
	}
	id, ok := requirePathID(w, r)
	if !ok {
		return
	}
	item, err := h.Todos.Get(r.Context(), sess.Principal, id)
	if err != nil {
		writeServiceError(w, r, h.logger(), "get_todo", err)
		return
	}
	WriteJSON(w, http.StatusOK, item)
}

// Create stores a new item.
// POST /api/todos and POST /api/todos/add.
func (h *TodoHandlers) Create(w http.ResponseWriter, r *http.Request) {
	sess, r, ok := h.Guard.Session(w, r)
	if !ok {
		return
	}
	var in model.TodoInput
	if !DecodeJSON(w, r, &in) {
		return
	}
	item, err := h.Todos.Create(r.Context(), sess.Principal, in)
	if err != nil {
		writeServiceError(w, r, h.logger(), "create_todo", err)
		return
	}
	WriteJSON(w, http.StatusCreated, item)
}

// BatchUpdate saves a JSON array of items in order.
// POST /api/todos/update.
func (h *TodoHandlers) BatchUpdate(w http.ResponseWriter, r *http.Request) {
	sess, r, ok := h.Guard.Session(w, r)
	if !ok {
		return
	}
	var inputs []model.TodoInput
	if !DecodeJSON(w, r, &inputs) {
		return
	}
	n, err := h.Todos.BatchUpdate(r.Context(), sess.Principal, inputs)
	if err != nil {
		writeServiceError(w, r, h.logger(), "batch_update_todos", err)
		return
	}
	WriteJSON(w, http.StatusOK, map[string]int{"updated": n})
}

// Update replaces one item's editable fields.
// PUT /api/todos/{id}.
func (h *TodoHandlers) Update(w http.ResponseWriter, r *http.Request) {
	sess, r, ok := h.Guard.Session(w, r)
	if !ok {
		return
	}
	id, ok := requirePathID(w, r)
	if !ok {
		return
	}
	var in model.TodoInput
	if !DecodeJSON(w, r, &in) {
		return
	}
	item, err := h.Todos.Update(r.Context(), sess.Principal, id, in)
	if err != nil {
		writeServiceError(w, r, h.logger(), "update_todo", err)
		return
	}
	WriteJSON(w, http.StatusOK, item)
}

// Toggle flips the completed flag.
// PUT /api/todos/{id}/toggle.
func (h *TodoHandlers) Toggle(w http.ResponseWriter, r *http.Request) {
	sess, r, ok := h.Guard.Session(w, r)
	if !ok {
		return
	}
	id, ok := requirePathID(w, r)
	if !ok {
		return
	}
	item, err := h.Todos.Toggle(r.Context(), sess.Principal, id)
	if err != nil {
		writeServiceError(w, r, h.logger(), "toggle_todo", err)
		return
	}
	WriteJSON(w, http.StatusOK, item)
}

// Delete removes one item.
// DELETE /api/todos/{id}.
func (h *TodoHandlers) Delete(w http.ResponseWriter, r *http.Request) {
	sess, r, ok := h.Guard.Session(w, r)
	if !ok {
		return
	}
	id, ok := requirePathID(w, r)
	if !ok {
		return
	}
	if err := h.Todos.Delete(r.Context(), sess.Principal, id); err != nil {
		writeServiceError(w, r, h.logger(), "delete_todo", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func requirePathID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := pathID(r)
	if err != nil {
		WriteError(w, ErrorParams{Code: http.StatusBadRequest, ErrCode: "invalid_id", Err: err})
		return 0, false
	}
	return id, true
}

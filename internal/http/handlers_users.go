package httpx

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/target/todo-platform/internal/domain/model"
	"github.com/target/todo-platform/internal/service"
)

// UserHandlers serves the user directory API. Callers are trusted services on the
// internal network; no session is required.
type UserHandlers struct {
	Svc    *service.UserService
	Logger *slog.Logger
}

func (h *UserHandlers) logger() *slog.Logger {
	if h != nil && h.Logger != nil {
		return h.Logger
	}
	return slog.Default()
}

// List returns every user.
// GET /api/users.
func (h *UserHandlers) List(w http.ResponseWriter, r *http.Request) {
	users, err := h.Svc.List(r.Context())
	if err != nil {
		writeServiceError(w, r, h.logger(), "list_users", err)
		return
	}
	if users == nil {
		users = []model.User{}
	}
	WriteJSON(w, http.StatusOK, users)
}

// Create stores a new user with the default role.
// POST /api/users.
func (h *UserHandlers) Create(w http.ResponseWriter, r *http.Request) {
	var req model.CreateUserRequest
	if !DecodeJSON(w, r, &req) {
		return
	}
	u, err := h.Svc.Create(r.Context(), req)
	if err != nil {
		writeServiceError(w, r, h.logger(), "create_user", err)
		return
	}
	WriteJSON(w, http.StatusCreated, u)
}

// GetByID returns one user.
// GET /api/users/{id}.
func (h *UserHandlers) GetByID(w http.ResponseWriter, r *http.Request) {
	id, ok := requirePathID(w, r)
	if !ok {
		return
	}
	u, err := h.Svc.GetByID(r.Context(), id)
	if err != nil {
		writeServiceError(w, r, h.logger(), "get_user", err)
		return
	}
	WriteJSON(w, http.StatusOK, u)
}

// Lookup returns one user by username.
// GET /api/users/lookup?username=.
func (h *UserHandlers) Lookup(w http.ResponseWriter, r *http.Request) {
	h.lookup(w, r, r.URL.Query().Get("username"))
}

func (h *UserHandlers) lookup(w http.ResponseWriter, r *http.Request, username string) {
	u, err := h.Svc.GetByUsername(r.Context(), username)
	if err != nil {
		writeServiceError(w, r, h.logger(), "lookup_user", err)
		return
	}
	WriteJSON(w, http.StatusOK, u)
}

// Exists reports whether a username is taken.
// GET /api/users/exists?username=.
func (h *UserHandlers) Exists(w http.ResponseWriter, r *http.Request) {
	if ok, done := h.exists(w, r, r.URL.Query().Get("username")); !done {
		WriteJSON(w, http.StatusOK, map[string]bool{"exists": ok})
	}
}

// ByUsername serves the path forms GET /api/users/username/{username} (the user)
// and GET /api/users/check/{username} (a bare boolean). /api/users/{id}/roles is
// the more specific pattern and wins for "roles".
func (h *UserHandlers) ByUsername(w http.ResponseWriter, r *http.Request) {
	username := r.PathValue("username")
	switch r.PathValue("kind") {
	case "username":
		h.lookup(w, r, username)
	case "check":
		if ok, done := h.exists(w, r, username); !done {
			WriteJSON(w, http.StatusOK, ok)
		}
	default:
		WriteError(w, ErrorParams{Code: http.StatusNotFound, ErrCode: "not_found", Err: errors.New("not found")})
	}
}

// exists reports done=true when it already wrote an error response.
func (h *UserHandlers) exists(w http.ResponseWriter, r *http.Request, username string) (ok, done bool) {
	username = strings.TrimSpace(username)
	if username == "" {
		WriteError(w, ErrorParams{Code: http.StatusBadRequest, ErrCode: "validation_failed", Err: errors.New("username is required")})
		return false, true
	}
	ok, err := h.Svc.Exists(r.Context(), username)
	if err != nil {
		writeServiceError(w, r, h.logger(), "user_exists", err)
		return false, true
	}
	return ok, false
}

// Update applies a partial update.
// PUT /api/users/{id}.
func (h *UserHandlers) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := requirePathID(w, r)
	if !ok {
		return
	}
	var req model.UpdateUserRequest
	if !DecodeJSON(w, r, &req) {
		return
	}
	u, err := h.Svc.Update(r.Context(), id, req)
	if err != nil {
		writeServiceError(w, r, h.logger(), "update_user", err)
		return
	}
	WriteJSON(w, http.StatusOK, u)
}

// Delete removes a user, its role links and its todo items.
// DELETE /api/users/{id}.
func (h *UserHandlers) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := requirePathID(w, r)
	if !ok {
		return
	}
	if err := h.Svc.Delete(r.Context(), id); err != nil {
		writeServiceError(w, r, h.logger(), "delete_user", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// BatchDelete removes every id in the JSON array body.
// DELETE /api/users/batch.
func (h *UserHandlers) BatchDelete(w http.ResponseWriter, r *http.Request) {
	var ids []int64
	if !DecodeJSON(w, r, &ids) {
		return
	}
	if len(ids) == 0 {
		WriteError(w, ErrorParams{Code: http.StatusBadRequest, ErrCode: "validation_failed", Err: errors.New("ids cannot be empty")})
		return
	}
	WriteJSON(w, http.StatusOK, h.Svc.BatchDelete(r.Context(), ids))
}

// Stats returns the user count.
// GET /api/users/stats.
func (h *UserHandlers) Stats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.Svc.Stats(r.Context())
	if err != nil {
		writeServiceError(w, r, h.logger(), "user_stats", err)
		return
	}
	WriteJSON(w, http.StatusOK, stats)
}

// Roles returns the user's role names as a JSON string array.
// GET /api/users/{id}/roles.
func (h *UserHandlers) Roles(w http.ResponseWriter, r *http.Request) {
	id, ok := requirePathID(w, r)
	if !ok {
		return
	}
	roles, err := h.Svc.Roles(r.Context(), id)
	if err != nil {
		writeServiceError(w, r, h.logger(), "user_roles", err)
		return
	}
	WriteJSON(w, http.StatusOK, roles)
}

// GrantAdmin adds the admin role.
// POST /api/users/{id}/roles/admin.
func (h *UserHandlers) GrantAdmin(w http.ResponseWriter, r *http.Request) {
	id, ok := requirePathID(w, r)
	if !ok {
		return
	}
	if err := h.Svc.GrantAdmin(r.Context(), id); err != nil {
		writeServiceError(w, r, h.logger(), "grant_admin", err)
		return
	}
	WriteJSON(w, http.StatusOK, map[string]any{"success": true, "id": id})
}

// RevokeAdmin removes the admin role.
// DELETE /api/users/{id}/roles/admin.
func (h *UserHandlers) RevokeAdmin(w http.ResponseWriter, r *http.Request) {
	id, ok := requirePathID(w, r)
	if !ok {
		return
	}
	if err := h.Svc.RevokeAdmin(r.Context(), id); err != nil {
		writeServiceError(w, r, h.logger(), "revoke_admin", err)
		return
	}
	WriteJSON(w, http.StatusOK, map[string]any{"success": true, "id": id})
}

// FixRoles gives the default role to every user without one.
// POST /api/users/fix-roles.
func (h *UserHandlers) FixRoles(w http.ResponseWriter, r *http.Request) {
	n, err := h.Svc.FixRoles(r.Context())
	if err != nil {
		writeServiceError(w, r, h.logger(), "fix_roles", err)
		return
	}
	WriteJSON(w, http.StatusOK, map[string]int{"fixed": n})
}

package httpx

import (
	"errors"
	"fmt"
	"log/slog"
	"math"
	"net/http"
	"net/url"
	"regexp"
	"slices"
	"strconv"
	"strings"

	domainauth "github.com/target/todo-platform/internal/domain/auth"
	apperrors "github.com/target/todo-platform/internal/errors"
	"github.com/target/todo-platform/internal/http/validation"
	"github.com/target/todo-platform/internal/service"
)

const (
	maxUsernameLen = 50
	maxEmailLen    = 100
	maxPhoneLen    = 20
	maxPasswordLen = 72
)

// AdminHandlers serves the user-management area. Every handler runs the session
// and admin checks on its own.
type AdminHandlers struct {
	Guard  *Guard
	Users  *service.UserAdmin
	Logger *slog.Logger
}

func (h *AdminHandlers) logger() *slog.Logger {
	if h != nil && h.Logger != nil {
		return h.Logger
	}
	return slog.Default()
}

// UserListPage is the view model of the admin user listing.
type UserListPage struct {
	service.UserListing
	CurrentUser string   `json:"current_user"`
	Notice      string   `json:"notice,omitempty"`
	Warnings    []string `json:"warnings,omitempty"`
}

// UserFormPage is the view model of the create/edit form and the detail page.
type UserFormPage struct {
	Form        service.UserForm  `json:"form"`
	Error       string            `json:"error,omitempty"`
	FieldErrors map[string]string `json:"field_errors,omitempty"`
}

// List renders every user with a role verdict per user.
// GET /admin/users.
func (h *AdminHandlers) List(w http.ResponseWriter, r *http.Request) {
	sess, r, ok := h.Guard.AdminPage(w, r)
	if !ok {
		return
	}
	q := r.URL.Query()
	page := UserListPage{
		UserListing: h.Users.List(r.Context()),
		CurrentUser: sess.Principal.Username,
		Notice:      q.Get("notice"),
		Warnings:    q["warning"],
	}
	renderView(w, http.StatusOK, ViewUserList, page)
}

// New renders an empty create form.
// GET /admin/users/new.
func (h *AdminHandlers) New(w http.ResponseWriter, r *http.Request) {
	if _, _, ok := h.Guard.AdminPage(w, r); !ok {
		return
	}
	renderView(w, http.StatusOK, ViewUserForm, UserFormPage{Form: h.Users.NewForm()})
}

// Edit renders the edit form for one user. Unknown users go back to the listing.
// GET /admin/users/{id}/edit.
func (h *AdminHandlers) Edit(w http.ResponseWriter, r *http.Request) {
	h.load(w, r, true)
}

// Detail renders one user read-only.
// GET /admin/users/{id}.
func (h *AdminHandlers) Detail(w http.ResponseWriter, r *http.Request) {
	h.load(w, r, false)
}

func (h *AdminHandlers) load(w http.ResponseWriter, r *http.Request, edit bool) {
	_, r, ok := h.Guard.AdminPage(w, r)
	if !ok {
		return
	}
	id, err := pathID(r)
	if err != nil {
		http.Redirect(w, r, pathAdminUsers, http.StatusFound)
		return
	}
	form, err := h.Users.Load(r.Context(), id, edit)
	if err != nil {
		http.Redirect(w, r, pathAdminUsers, http.StatusFound)
		return
	}
	view := ViewUserDetail
	if edit {
		view = ViewUserForm
	}
	renderView(w, http.StatusOK, view, UserFormPage{Form: form})
}

// Save creates or updates a user and applies the admin flag. Role failures are
// reported as warnings on an otherwise successful save.
// POST /admin/users/save.
func (h *AdminHandlers) Save(w http.ResponseWriter, r *http.Request) {
	sess, r, ok := h.Guard.AdminPage(w, r)
	if !ok {
		return
	}
	req, fieldErrs, err := saveRequestFromForm(r)
	if err != nil {
		h.renderSaveError(w, req, fieldErrs, err)
		return
	}

	res, err := h.Users.Save(r.Context(), req)
	if err != nil {
		h.logger().WarnContext(r.Context(), "admin save failed",
			"op", "admin_save_user", "user_id", sess.Principal.UserID, "target_id", req.ID, "error", err)
		h.renderSaveError(w, req, nil, err)
		return
	}

	if !IsBrowserRequest(r) {
		WriteJSON(w, http.StatusOK, res)
		return
	}
	q := url.Values{}
	q.Set("notice", fmt.Sprintf("User %s saved.", res.User.Username))
	for _, warn := range res.Warnings {
		q.Add("warning", warn)
	}
	http.Redirect(w, r, pathAdminUsers+"?"+q.Encode(), http.StatusFound)
}

func (h *AdminHandlers) renderSaveError(w http.ResponseWriter, req service.SaveUserRequest, fieldErrs map[string]string, err error) {
	status, _ := errorStatus(err)
	form := h.Users.NewForm()
	form.IsEdit = req.IsEdit
	form.User.ID = req.ID
	form.User.Username = req.Username
	form.User.Email = req.Email
	form.User.Phone = req.Phone
	if req.Status != nil {
		form.User.Status = *req.Status
	}
	form.Admin = domainauth.RoleVerdict{UserID: req.ID, IsAdmin: req.MakeAdmin, Source: domainauth.SourceRemote}
	renderView(w, status, ViewUserForm, UserFormPage{Form: form, Error: saveErrorMessage(err), FieldErrors: fieldErrs})
}

func saveErrorMessage(err error) string {
	switch {
	case apperrors.IsConflict(err):
		return "Username already exists."
	case apperrors.IsValidation(err):
		return "Invalid input. " + clientMessage(http.StatusBadRequest, err).Error()
	case apperrors.IsNotFound(err), errors.Is(err, domainauth.ErrNotFound):
		return "User not found."
	case errors.Is(err, domainauth.ErrRemoteUnavailable):
		return "The user directory is unavailable, please try again."
	default:
		return "Saving the user failed."
	}
}

var phonePattern = regexp.MustCompile(`^[0-9+\-() ]+$`)

// saveRequestFromForm parses and validates the admin user form.
func saveRequestFromForm(r *http.Request) (service.SaveUserRequest, map[string]string, error) {
	if err := r.ParseForm(); err != nil {
		return service.SaveUserRequest{}, nil, apperrors.Validation("malformed form")
	}
	form := r.PostForm
	req := service.SaveUserRequest{
		IsEdit:    formBool(form.Get("isEdit")),
		MakeAdmin: formBool(form.Get("isAdmin")),
		Username:  strings.TrimSpace(form.Get("username")),
		Password:  form.Get("password"),
		Email:     strings.TrimSpace(form.Get("email")),
		Phone:     strings.TrimSpace(form.Get("phone")),
	}

	fv := validation.New().
		Validate("id", form.Get("id"), validation.IntRange("ID", 1, math.MaxInt32)).
		Validate("username", req.Username, validation.Required("Username", maxUsernameLen)).
		Validate("email", req.Email, validation.Optional("Email", maxEmailLen), validation.Email("Email")).
		Validate("phone", req.Phone, validation.Optional("Phone", maxPhoneLen), validation.Pattern("Phone", phonePattern)).
		Validate("status", form.Get("status"), validation.IntRange("Status", 0, 1))
	if !req.IsEdit {
		fv.Validate("password", req.Password, validation.Required("Password", maxPasswordLen))
	}
	if id, err := strconv.ParseInt(strings.TrimSpace(form.Get("id")), 10, 64); err == nil && id > 0 {
		req.ID = id
	}
	if status, err := strconv.Atoi(strings.TrimSpace(form.Get("status"))); err == nil {
		req.Status = &status
	}
	if field, msg, bad := fv.FirstError(); bad {
		return req, fv.Errors(), apperrors.ValidationField(field, msg)
	}
	if req.IsEdit && req.ID == 0 {
		return req, map[string]string{"id": "ID is required when editing."}, apperrors.ValidationField("id", "ID is required when editing.")
	}
	return req, nil, nil
}

// Delete removes one user.
// POST /admin/users/{id}/delete.
func (h *AdminHandlers) Delete(w http.ResponseWriter, r *http.Request) {
	sess, r, ok := h.Guard.AdminAction(w, r)
	if !ok {
		return
	}
	id, err := pathID(r)
	if err != nil {
		WriteError(w, ErrorParams{Code: http.StatusBadRequest, ErrCode: "invalid_id", Err: err})
		return
	}
	if err := h.Users.Delete(r.Context(), id); err != nil {
		writeServiceError(w, r, h.logger(), "admin_delete_user", err)
		return
	}
	h.logger().InfoContext(r.Context(), "user deleted by admin",
		"op", "admin_delete_user", "user_id", sess.Principal.UserID, "target_id", id)
	WriteJSON(w, http.StatusOK, map[string]any{"success": true, "id": id})
}

// BatchDelete removes every submitted id; failures are counted, not fatal.
// POST /admin/users/batch-delete (userIds or ids, repeated or comma separated).
func (h *AdminHandlers) BatchDelete(w http.ResponseWriter, r *http.Request) {
	_, r, ok := h.Guard.AdminPage(w, r)
	if !ok {
		return
	}
	if err := r.ParseForm(); err != nil {
		http.Redirect(w, r, pathAdminUsers, http.StatusFound)
		return
	}
	ids, err := parseIDs(slices.Concat(r.Form["userIds"], r.Form["ids"]))
	if err != nil || len(ids) == 0 {
		if !IsBrowserRequest(r) {
			WriteError(w, ErrorParams{Code: http.StatusBadRequest, ErrCode: "invalid_ids", Err: errors.New("no valid user ids submitted")})
			return
		}
		http.Redirect(w, r, pathAdminUsers, http.StatusFound)
		return
	}

	res := h.Users.BatchDelete(r.Context(), ids)
	if !IsBrowserRequest(r) {
		WriteJSON(w, http.StatusOK, res)
		return
	}
	q := url.Values{}
	q.Set("notice", fmt.Sprintf("Deleted %d user(s), %d failed.", res.Succeeded, res.Failed))
	http.Redirect(w, r, pathAdminUsers+"?"+q.Encode(), http.StatusFound)
}

// FixRoles gives the default role to every user without one.
// POST /admin/users/fix-roles.
func (h *AdminHandlers) FixRoles(w http.ResponseWriter, r *http.Request) {
	_, r, ok := h.Guard.AdminAction(w, r)
	if !ok {
		return
	}
	if err := h.Users.FixRoles(r.Context()); err != nil {
		writeServiceError(w, r, h.logger(), "admin_fix_roles", err)
		return
	}
	WriteJSON(w, http.StatusOK, map[string]any{"success": true, "message": "User roles fixed."})
}

func pathID(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid id %q", r.PathValue("id"))
	}
	return id, nil
}

// parseIDs accepts repeated values and comma separated lists.
func parseIDs(values []string) ([]int64, error) {
	var ids []int64
	for _, v := range values {
		for _, part := range strings.Split(v, ",") {
			part = strings.TrimSpace(part)
			if part == "" {
				continue
			}
			id, err := strconv.ParseInt(part, 10, 64)
			if err != nil || id <= 0 {
				return nil, fmt.Errorf("invalid id %q", part)
			}
			ids = append(ids, id)
		}
	}
	return ids, nil
}

func formBool(v string) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "1", "true", "on", "yes":
		return true
	}
	return false
}

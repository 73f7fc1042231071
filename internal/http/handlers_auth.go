package httpx

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	domainauth "github.com/target/todo-platform/internal/domain/auth"
)

const (
	msgLoginFailed      = "Invalid username or password."
	msgLoginUnavailable = "Login is temporarily unavailable, please try again."
	msgLoggedOut        = "You have been logged out."
)

// AuthHandlers serves the login entry point and logout.
type AuthHandlers struct {
	Guard *Guard
	// DemoHint is shown on the login page when demo accounts are enabled.
	DemoHint string
	Logger   *slog.Logger
}

func (h *AuthHandlers) logger() *slog.Logger {
	if h != nil && h.Logger != nil {
		return h.Logger
	}
	return slog.Default()
}

// LoginPage renders the login form.
// GET /login[?error][&logout][&redirect=path].
func (h *AuthHandlers) LoginPage(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	page := LoginPage{DemoHint: h.DemoHint}
	if q.Get("redirect") != "" {
		page.Redirect = safeRedirectPath(q.Get("redirect"))
	}
	if q.Has("error") {
		page.Error = msgLoginFailed
	}
	if q.Has("logout") {
		page.Message = msgLoggedOut
	}
	renderView(w, http.StatusOK, ViewLogin, page)
}

// Login verifies the submitted credential and starts a session.
// POST /login (form: username, password, optional redirect).
func (h *AuthHandlers) Login(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		renderView(w, http.StatusBadRequest, ViewLogin, LoginPage{Error: msgLoginFailed, DemoHint: h.DemoHint})
		return
	}
	cred := domainauth.Credential{
		Username: strings.TrimSpace(r.PostFormValue("username")),
		Secret:   r.PostFormValue("password"),
	}

	sess, err := h.Guard.Sessions.Authenticate(r.Context(), cred)
	if err != nil {
		page := LoginPage{Username: cred.Username, DemoHint: h.DemoHint}
		if v := r.PostFormValue("redirect"); v != "" {
			page.Redirect = safeRedirectPath(v)
		}
		status := http.StatusOK
		if errors.Is(err, domainauth.ErrInvalidCredentials) {
			page.Error = msgLoginFailed
		} else {
			h.logger().ErrorContext(r.Context(), "login failed", "op", "login", "username", cred.Username, "error", err)
			page.Error = msgLoginUnavailable
			status = http.StatusServiceUnavailable
		}
		renderView(w, status, ViewLogin, page)
		return
	}

	h.Guard.setSessionCookie(w, r, sess)
	http.Redirect(w, r, safeRedirectPath(r.PostFormValue("redirect")), http.StatusFound)
}

// Logout invalidates the current session and returns to the login page.
// GET /logout.
func (h *AuthHandlers) Logout(w http.ResponseWriter, r *http.Request) {
	if c, err := r.Cookie(SessionCookieName); err == nil && c.Value != "" {
		if err := h.Guard.Sessions.Invalidate(r.Context(), c.Value); err != nil {
			h.logger().WarnContext(r.Context(), "logout failed", "op", "logout", "error", err)
		}
	}
	h.Guard.clearSessionCookie(w, r)
	http.Redirect(w, r, pathLogin+"?logout=true", http.StatusFound)
}

// SessionStatus reports the caller's session for scripts and the front end.
// GET /api/session.
func (h *AuthHandlers) SessionStatus(w http.ResponseWriter, r *http.Request) {
	sess, err := h.Guard.sessionFromRequest(r)
	if err != nil {
		WriteJSON(w, http.StatusOK, map[string]any{"authenticated": false})
		return
	}
	isAdmin := h.Guard.Admin != nil && h.Guard.Admin.RequireAdmin(r.Context(), sess) == nil
	WriteJSON(w, http.StatusOK, map[string]any{
		"authenticated": true,
		"user_id":       sess.Principal.UserID,
		"username":      sess.Principal.Username,
		"is_admin":      isAdmin,
		"demo":          sess.Demo,
		"expires_at":    sess.ExpiresAt(),
	})
}

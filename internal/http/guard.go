package httpx

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	domainauth "github.com/target/todo-platform/internal/domain/auth"
)

// SessionCookieName carries the opaque session identifier.
const SessionCookieName = "session_id"

const (
	pathLogin      = "/login"
	pathHome       = "/"
	pathAdminUsers = "/admin/users"
)

// SessionGateInterface is the session surface the handlers depend on.
type SessionGateInterface interface {
	Authenticate(ctx context.Context, cred domainauth.Credential) (*domainauth.Session, error)
	RequireSession(ctx context.Context, sessionID string) (*domainauth.Session, error)
	Invalidate(ctx context.Context, sessionID string) error
}

// AdminGateInterface decides whether a session may use the admin area.
type AdminGateInterface interface {
	RequireAdmin(ctx context.Context, sess *domainauth.Session) error
}

// Guard resolves the session (and, for admin routes, the admin gate) for a single
// request. Handlers call it themselves; no middleware state is shared between routes.
type Guard struct {
	Sessions     SessionGateInterface
	Admin        AdminGateInterface
	CookieDomain string
	Logger       *slog.Logger
}

func (g *Guard) logger() *slog.Logger {
	if g != nil && g.Logger != nil {
		return g.Logger
	}
	return slog.Default()
}

// sessionFromRequest resolves the session cookie. Any failure is ErrNotAuthenticated.
func (g *Guard) sessionFromRequest(r *http.Request) (*domainauth.Session, error) {
	c, err := r.Cookie(SessionCookieName)
	if err != nil || c.Value == "" {
		return nil, domainauth.ErrNotAuthenticated
	}
	return g.Sessions.RequireSession(r.Context(), c.Value)
}

// Session returns the live session for r. When there is none it writes a redirect to
// the login page for browser requests, or a 401 for API requests, and returns false.
func (g *Guard) Session(w http.ResponseWriter, r *http.Request) (*domainauth.Session, *http.Request, bool) {
	sess, err := g.sessionFromRequest(r)
	if err != nil {
		if IsBrowserRequest(r) {
			http.Redirect(w, r, pathLogin, http.StatusFound)
		} else {
			writeAuthRequired(w)
		}
		return nil, r, false
	}
	return sess, r.WithContext(withSession(r.Context(), sess)), true
}

// AdminPage gates browser admin pages: no session redirects to the login page and a
// denied session is sent back to the home page.
func (g *Guard) AdminPage(w http.ResponseWriter, r *http.Request) (*domainauth.Session, *http.Request, bool) {
	sess, err := g.sessionFromRequest(r)
	if err != nil {
		http.Redirect(w, r, pathLogin, http.StatusFound)
		return nil, r, false
	}
	if err := g.Admin.RequireAdmin(r.Context(), sess); err != nil {
		g.logDenied(r, sess, err)
		http.Redirect(w, r, pathHome, http.StatusFound)
		return nil, r, false
	}
	return sess, r.WithContext(withSession(r.Context(), sess)), true
}

// AdminAction gates admin actions called from scripts: failures are 401 or 403 JSON.
func (g *Guard) AdminAction(w http.ResponseWriter, r *http.Request) (*domainauth.Session, *http.Request, bool) {
	sess, err := g.sessionFromRequest(r)
	if err != nil {
		writeAuthRequired(w)
		return nil, r, false
	}
	if err := g.Admin.RequireAdmin(r.Context(), sess); err != nil {
		g.logDenied(r, sess, err)
		if errors.Is(err, domainauth.ErrNotAuthenticated) {
			writeAuthRequired(w)
		} else {
			writeForbidden(w)
		}
		return nil, r, false
	}
	return sess, r.WithContext(withSession(r.Context(), sess)), true
}

func (g *Guard) logDenied(r *http.Request, sess *domainauth.Session, err error) {
	g.logger().WarnContext(r.Context(), "admin route denied",
		"op", "admin_gate",
		"path", r.URL.Path,
		"user_id", sess.Principal.UserID,
		"error", err)
}

func isSecureRequest(r *http.Request) bool {
	return r.TLS != nil || strings.EqualFold(r.Header.Get("X-Forwarded-Proto"), "https")
}

// setSessionCookie writes the session cookie. The cookie lives for the browser
// session; idle expiry is enforced server-side.
func (g *Guard) setSessionCookie(w http.ResponseWriter, r *http.Request, s *domainauth.Session) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Value:    s.ID,
		Path:     "/",
		Domain:   g.CookieDomain,
		HttpOnly: true,
		Secure:   isSecureRequest(r),
		SameSite: http.SameSiteLaxMode,
	})
}

// clearSessionCookie expires the session cookie, mirroring the attributes used to set it.
func (g *Guard) clearSessionCookie(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Value:    "",
		Path:     "/",
		Domain:   g.CookieDomain,
		HttpOnly: true,
		Secure:   isSecureRequest(r),
		MaxAge:   -1,
		Expires:  time.Unix(0, 0).UTC(),
		SameSite: http.SameSiteLaxMode,
	})
}

// safeRedirectPath ensures the provided redirect is a same-origin relative path
// starting with "/" and not an absolute URL. Returns "/" when invalid.
func safeRedirectPath(candidate string) string {
	if candidate == "" {
		return "/"
	}
	u, err := url.Parse(candidate)
	if err != nil || u.IsAbs() || u.Host != "" || !strings.HasPrefix(u.Path, "/") || strings.HasPrefix(u.Path, "//") {
		return "/"
	}
	return candidate
}

package httpx

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	domainauth "github.com/target/todo-platform/internal/domain/auth"
)

// TokenIssuer is the bearer-token surface served by the auth service.
type TokenIssuer interface {
	Issue(username string) (string, error)
	Validate(token string) bool
	ExtractUsername(token string) (string, error)
}

// TokenHandlers serves token issuance and validation. Tokens carry no relationship
// to sessions; this API is independent of the login flow.
type TokenHandlers struct {
	Tokens TokenIssuer
	Logger *slog.Logger
}

func (h *TokenHandlers) logger() *slog.Logger {
	if h != nil && h.Logger != nil {
		return h.Logger
	}
	return slog.Default()
}

// requestParam reads a parameter from the query string or a form body.
func requestParam(r *http.Request, key string) string {
	return strings.TrimSpace(r.FormValue(key))
}

// Issue signs a token for the username parameter.
// POST /api/auth/token?username=.
func (h *TokenHandlers) Issue(w http.ResponseWriter, r *http.Request) {
	username := requestParam(r, "username")
	if username == "" {
		WriteError(w, ErrorParams{Code: http.StatusBadRequest, ErrCode: "missing_username", Err: errors.New("username is required")})
		return
	}
	token, err := h.Tokens.Issue(username)
	if err != nil {
		writeServiceError(w, r, h.logger(), "issue_token", err)
		return
	}
	WriteJSON(w, http.StatusOK, map[string]string{"token": token, "token_type": "Bearer"})
}

// Validate reports whether the token parameter is valid. It never fails.
// POST /api/auth/validate?token=.
func (h *TokenHandlers) Validate(w http.ResponseWriter, r *http.Request) {
	WriteJSON(w, http.StatusOK, map[string]bool{"valid": h.Tokens.Validate(requestParam(r, "token"))})
}

// Username returns the username bound to the token parameter; invalid tokens are a 400.
// GET /api/auth/username?token=.
func (h *TokenHandlers) Username(w http.ResponseWriter, r *http.Request) {
	username, err := h.Tokens.ExtractUsername(requestParam(r, "token"))
	if err != nil {
		if !errors.Is(err, domainauth.ErrTokenInvalid) {
			writeServiceError(w, r, h.logger(), "extract_username", err)
			return
		}
		WriteError(w, ErrorParams{Code: http.StatusBadRequest, ErrCode: "invalid_token", Err: domainauth.ErrTokenInvalid})
		return
	}
	WriteJSON(w, http.StatusOK, map[string]string{"username": username})
}

package httpx

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	domainauth "github.com/target/todo-platform/internal/domain/auth"
	apperrors "github.com/target/todo-platform/internal/errors"
)

var (
	errAuthRequired         = errors.New("authentication required")
	errInsufficientRole     = errors.New("insufficient permissions")
	errInternal             = errors.New("internal server error")
	errDirectoryUnavailable = errors.New("user directory is unavailable")
)

// errorStatus maps a service error onto an HTTP status and a stable error code.
func errorStatus(err error) (int, string) {
	switch {
	case errors.Is(err, domainauth.ErrNotAuthenticated), errors.Is(err, domainauth.ErrInvalidCredentials):
		return http.StatusUnauthorized, "authentication_required"
	case errors.Is(err, domainauth.ErrInsufficientRole):
		return http.StatusForbidden, "insufficient_permissions"
	case errors.Is(err, domainauth.ErrTokenInvalid):
		return http.StatusBadRequest, "invalid_token"
	case errors.Is(err, domainauth.ErrRemoteUnavailable):
		return http.StatusBadGateway, "user_directory_unavailable"
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout, "timeout"
	}

	switch apperrors.GetCode(err) {
	case apperrors.ErrCodeNotFound:
		return http.StatusNotFound, "not_found"
	case apperrors.ErrCodeConflict:
		return http.StatusConflict, "conflict"
	case apperrors.ErrCodeForeignKey:
		return http.StatusConflict, "foreign_key"
	case apperrors.ErrCodeValidation:
		return http.StatusBadRequest, "validation_failed"
	case apperrors.ErrCodeTimeout:
		return http.StatusGatewayTimeout, "timeout"
	case apperrors.ErrCodeInternal, apperrors.ErrCodeCanceled:
		return http.StatusInternalServerError, "internal_error"
	}

	if errors.Is(err, domainauth.ErrNotFound) {
		return http.StatusNotFound, "not_found"
	}
	return http.StatusInternalServerError, "internal_error"
}

// clientMessage hides internal detail for server-side failures.
func clientMessage(status int, err error) error {
	if status >= http.StatusInternalServerError {
		if errors.Is(err, domainauth.ErrRemoteUnavailable) {
			return errDirectoryUnavailable
		}
		return errInternal
	}
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) && appErr.Message != "" {
		return errors.New(appErr.Message)
	}
	switch {
	case errors.Is(err, domainauth.ErrTokenInvalid):
		return domainauth.ErrTokenInvalid
	case errors.Is(err, domainauth.ErrNotAuthenticated), errors.Is(err, domainauth.ErrInvalidCredentials):
		return errAuthRequired
	case errors.Is(err, domainauth.ErrInsufficientRole):
		return errInsufficientRole
	}
	return err
}

// writeServiceError logs err with the operation name and writes the mapped JSON error.
func writeServiceError(w http.ResponseWriter, r *http.Request, logger *slog.Logger, op string, err error) {
	status, code := errorStatus(err)
	level := slog.LevelWarn
	if status >= http.StatusInternalServerError {
		level = slog.LevelError
	}
	attrs := []any{"op", op, "status", status, "error", err}
	if s, ok := sessionFrom(r.Context()); ok {
		attrs = append(attrs, "user_id", s.Principal.UserID, "username", s.Principal.Username)
	}
	logger.Log(r.Context(), level, "request failed", attrs...)
	WriteError(w, ErrorParams{Code: status, ErrCode: code, Err: clientMessage(status, err)})
}

func writeAuthRequired(w http.ResponseWriter) {
	WriteError(w, ErrorParams{Code: http.StatusUnauthorized, ErrCode: "authentication_required", Err: errAuthRequired})
}

func writeForbidden(w http.ResponseWriter) {
	WriteError(w, ErrorParams{Code: http.StatusForbidden, ErrCode: "insufficient_permissions", Err: errInsufficientRole})
}

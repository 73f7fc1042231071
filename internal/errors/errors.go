// Package errors carries the application error kinds shared by repositories,
// services and HTTP handlers. Handlers map a Code to a status; everything else
// only asks "is this a not-found" and friends.
package errors

import (
	"errors"
	"fmt"
)

// ErrorCode is the kind of an AppError.
type ErrorCode string

const (
	ErrCodeNotFound   ErrorCode = "not_found"
	ErrCodeConflict   ErrorCode = "conflict"
	ErrCodeValidation ErrorCode = "validation"
	ErrCodeForeignKey ErrorCode = "foreign_key"
	ErrCodeInternal   ErrorCode = "internal"
	ErrCodeTimeout    ErrorCode = "timeout"
	ErrCodeCanceled   ErrorCode = "canceled"
)

// AppError is an error with a kind, a client-safe message and an optional cause.
// Field names the offending input for validation and conflict errors.
type AppError struct {
	Code    ErrorCode
	Message string
	Field   string
	Cause   error
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return e.Message + ": " + e.Cause.Error()
	}
	return e.Message
}

func (e *AppError) Unwrap() error { return e.Cause }

// New builds an AppError of the given kind.
func New(code ErrorCode, message string) *AppError {
	return &AppError{Code: code, Message: message}
}

// NotFound reports a missing user, todo item or role.
func NotFound(message string) *AppError { return New(ErrCodeNotFound, message) }

// NotFoundf is NotFound with formatting.
func NotFoundf(format string, args ...any) *AppError {
	return New(ErrCodeNotFound, fmt.Sprintf(format, args...))
}

// Conflict reports a clash with existing data, such as a taken username.
func Conflict(message string) *AppError { return New(ErrCodeConflict, message) }

// Conflictf is Conflict with formatting.
func Conflictf(format string, args ...any) *AppError {
	return New(ErrCodeConflict, fmt.Sprintf(format, args...))
}

// Validation reports bad input.
func Validation(message string) *AppError { return New(ErrCodeValidation, message) }

// ValidationField reports bad input in one named field.
func ValidationField(field, message string) *AppError {
	return &AppError{Code: ErrCodeValidation, Message: message, Field: field}
}

// ForeignKey reports a broken reference between rows.
func ForeignKey(message string) *AppError { return New(ErrCodeForeignKey, message) }

// Internal reports a failure the caller cannot fix.
func Internal(message string) *AppError { return New(ErrCodeInternal, message) }

// Wrap attaches a kind and message to err. A nil err stays nil.
func Wrap(err error, code ErrorCode, message string) error {
	if err == nil {
		return nil
	}
	return &AppError{Code: code, Message: message, Cause: err}
}

// GetCode returns the kind of the first AppError in err's chain, or "".
func GetCode(err error) ErrorCode {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return ""
}

// GetField returns the field of the first AppError in err's chain, or "".
func GetField(err error) string {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Field
	}
	return ""
}

func IsNotFound(err error) bool   { return GetCode(err) == ErrCodeNotFound }
func IsConflict(err error) bool   { return GetCode(err) == ErrCodeConflict }
func IsValidation(err error) bool { return GetCode(err) == ErrCodeValidation }
func IsForeignKey(err error) bool { return GetCode(err) == ErrCodeForeignKey }
func IsInternal(err error) bool   { return GetCode(err) == ErrCodeInternal }
func IsTimeout(err error) bool    { return GetCode(err) == ErrCodeTimeout }

package auth

import "errors"

var (
	// ErrInvalidCredentials is returned when a username/secret pair does not verify.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrNotAuthenticated is returned when a request carries no live session.
	ErrNotAuthenticated = errors.New("not authenticated")
	// ErrInsufficientRole is returned when the admin policy denies a principal.
	ErrInsufficientRole = errors.New("insufficient role")
	// ErrRemoteUnavailable is returned when the user directory is unreachable or erroring.
	ErrRemoteUnavailable = errors.New("user directory unavailable")
	// ErrTokenInvalid matches every *TokenError.
	ErrTokenInvalid = errors.New("invalid token")
	// ErrNotFound is returned when a user, session or credential does not exist.
	ErrNotFound = errors.New("not found")
)

// TokenError describes why a bearer token was rejected.
type TokenError struct {
	Reason string
	Err    error
}

func (e *TokenError) Error() string {
	if e.Reason == "" {
		return ErrTokenInvalid.Error()
	}
	return ErrTokenInvalid.Error() + ": " + e.Reason
}

func (e *TokenError) Unwrap() error { return e.Err }

// Is makes errors.Is(err, ErrTokenInvalid) true for any TokenError.
func (e *TokenError) Is(target error) bool { return target == ErrTokenInvalid }

package ports

// Package ports defines interfaces (hexagonal ports) for auth-related behavior.
// Implementations live in internal/adapters; orchestration in internal/service.

import (
	"context"
	"time"

	domainauth "github.com/target/todo-platform/internal/domain/auth"
)

// SessionStore persists and retrieves user sessions.
// Get returns domainauth.ErrNotFound for unknown ids.
type SessionStore interface {
	Save(ctx context.Context, sess domainauth.Session) error
	Get(ctx context.Context, id string) (domainauth.Session, error)
	// Touch records activity on an existing session. It never recreates a deleted
	// session and returns domainauth.ErrNotFound when the id is gone.
	Touch(ctx context.Context, id string, at time.Time) error
	Delete(ctx context.Context, id string) error
}

// CredentialStore looks up the stored password representation for a username.
// A missing user is reported as domainauth.ErrNotFound; anything else means the
// store itself could not answer.
type CredentialStore interface {
	FindCredentials(ctx context.Context, username string) (domainauth.StoredCredential, error)
}

// DemoLogin resolves the built-in demo accounts used when the credential store is down.
type DemoLogin interface {
	IsDemoAccount(username string) bool
	Principal(username, secret string) (domainauth.Principal, bool)
}

// AdminPolicy decides whether a principal may use the admin area.
type AdminPolicy interface {
	Name() string
	Allows(ctx context.Context, p domainauth.Principal) (bool, error)
}

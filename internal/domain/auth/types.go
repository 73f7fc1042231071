package auth

// Package auth contains domain-level types for authentication, sessions and
// admin resolution. It is pure and free of framework/adapter concerns.

import "time"

// RoleAdmin is the role name the user directory uses for administrators.
const RoleAdmin = "ROLE_ADMIN"

// RoleUser is the default role assigned to every new user.
const RoleUser = "ROLE_USER"

// Principal is the authenticated identity attached to a session.
type Principal struct {
	UserID   int64  `json:"user_id"`
	Username string `json:"username"`
}

// Credential is supplied once at login. It is never persisted or logged.
type Credential struct {
	Username string
	Secret   string
}

// StoredCredential is the persisted password representation for a username.
// Secret is either a bcrypt hash or, for seeded accounts, plaintext.
type StoredCredential struct {
	UserID   int64
	Username string
	Secret   string
}

// Session is the server-side record we persist for an authenticated user.
// ID is an opaque session identifier.
type Session struct {
	ID           string        `json:"id"`
	Principal    Principal     `json:"principal"`
	CreatedAt    time.Time     `json:"created_at"`
	LastAccessAt time.Time     `json:"last_access_at"`
	IdleTimeout  time.Duration `json:"idle_timeout"`
	// Demo marks sessions issued by the demo-account fallback.
	Demo bool `json:"demo,omitempty"`
}

// ExpiresAt returns the instant after which the session is idle-expired.
func (s Session) ExpiresAt() time.Time { return s.LastAccessAt.Add(s.IdleTimeout) }

// Expired reports whether the session has been idle longer than its timeout.
func (s Session) Expired(now time.Time) bool { return now.After(s.ExpiresAt()) }

// VerdictSource tells whether a role verdict came from the live directory.
type VerdictSource string

const (
	SourceRemote   VerdictSource = "remote"
	SourceDegraded VerdictSource = "degraded"
)

// RoleVerdict is the outcome of an admin-status check. Computed per call, never cached.
type RoleVerdict struct {
	UserID  int64         `json:"user_id"`
	IsAdmin bool          `json:"is_admin"`
	Source  VerdictSource `json:"source"`
}

// Degraded reports whether the verdict was produced without the directory.
func (v RoleVerdict) Degraded() bool { return v.Source == SourceDegraded }

package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	domainauth "github.com/target/todo-platform/internal/domain/auth"
	"github.com/target/todo-platform/internal/observability/metrics"
	"github.com/target/todo-platform/internal/ports"
)

// DefaultSessionIdleTimeout applies when SessionGateConfig.IdleTimeout is unset.
const DefaultSessionIdleTimeout = 30 * time.Minute

// SessionGateStores groups the stores SessionGate reads and writes.
type SessionGateStores struct {
	Sessions    ports.SessionStore    // Required
	Credentials ports.CredentialStore // Required
	Demo        ports.DemoLogin       // Optional: nil disables the demo fallback
}

// SessionGateConfig holds session policy.
type SessionGateConfig struct {
	IdleTimeout           time.Duration
	AllowPlaintextSecrets bool
	Now                   func() time.Time // Optional: defaults to time.Now
}

// SessionGateOptions groups dependencies for SessionGate.
type SessionGateOptions struct {
	Stores    SessionGateStores
	Config    SessionGateConfig
	Telemetry Telemetry
}

// SessionGate establishes, resolves and invalidates server-side sessions.
type SessionGate struct {
	sessions ports.SessionStore
	creds    ports.CredentialStore
	demo     ports.DemoLogin
	cfg      SessionGateConfig
	log      *slog.Logger
	metrics  *metrics.Metrics
}

// NewSessionGate constructs a new SessionGate.
func NewSessionGate(opts SessionGateOptions) *SessionGate {
	if opts.Stores.Sessions == nil {
		panic("SessionStore is required")
	}
	if opts.Stores.Credentials == nil {
		panic("CredentialStore is required")
	}
	cfg := opts.Config
	if cfg.IdleTimeout <= 0 {
		cfg.IdleTimeout = DefaultSessionIdleTimeout
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &SessionGate{
		sessions: opts.Stores.Sessions,
		creds:    opts.Stores.Credentials,
		demo:     opts.Stores.Demo,
		cfg:      cfg,
		log:      opts.Telemetry.logger().With("component", "session_gate"),
		metrics:  opts.Telemetry.Metrics,
	}
}

// Authenticate verifies a credential and issues a new session.
//
// A username missing from the store, or a bad secret, yields ErrInvalidCredentials.
// When the store cannot answer, or has no record of a demo account, the demo
// accounts are consulted; any other username gets ErrRemoteUnavailable.
func (g *SessionGate) Authenticate(ctx context.Context, cred domainauth.Credential) (*domainauth.Session, error) {
	username := strings.TrimSpace(cred.Username)
	if username == "" || cred.Secret == "" {
		g.metrics.ObserveLogin(metrics.ResultInvalid)
		return nil, domainauth.ErrInvalidCredentials
	}

	stored, err := g.creds.FindCredentials(ctx, username)
	switch {
	case err == nil:
		if !VerifySecret(cred.Secret, stored.Secret, g.cfg.AllowPlaintextSecrets) {
			g.log.WarnContext(ctx, "login rejected", "op", "authenticate", "username", username, "user_id", stored.UserID)
			g.metrics.ObserveLogin(metrics.ResultInvalid)
			return nil, domainauth.ErrInvalidCredentials
		}
		return g.issue(ctx, domainauth.Principal{UserID: stored.UserID, Username: stored.Username}, false)

	case errors.Is(err, domainauth.ErrNotFound):
		// An unseeded store still admits the demo accounts.
		if g.demo != nil && g.demo.IsDemoAccount(username) {
			return g.demoLogin(ctx, cred, err)
		}
		g.log.WarnContext(ctx, "login rejected: unknown user", "op", "authenticate", "username", username)
		g.metrics.ObserveLogin(metrics.ResultInvalid)
		return nil, domainauth.ErrInvalidCredentials

	default:
		g.log.ErrorContext(ctx, "credential store unavailable", "op", "authenticate", "username", username, "error", err)
		return g.demoLogin(ctx, cred, err)
	}
}

func (g *SessionGate) demoLogin(ctx context.Context, cred domainauth.Credential, cause error) (*domainauth.Session, error) {
	username := strings.TrimSpace(cred.Username)
	if g.demo == nil || !g.demo.IsDemoAccount(username) {
		g.metrics.ObserveLogin(metrics.ResultError)
		if errors.Is(cause, domainauth.ErrNotFound) {
			return nil, domainauth.ErrInvalidCredentials
		}
		return nil, fmt.Errorf("%w: credential store: %w", domainauth.ErrRemoteUnavailable, cause)
	}

	p, ok := g.demo.Principal(username, cred.Secret)
	if !ok {
		g.log.WarnContext(ctx, "demo login rejected", "op", "authenticate", "username", username)
		g.metrics.ObserveLogin(metrics.ResultInvalid)
		return nil, domainauth.ErrInvalidCredentials
	}

	g.log.WarnContext(ctx, "degraded demo login issued",
		"op", "authenticate",
		"username", p.Username,
		"user_id", p.UserID,
		"cause", cause.Error(),
	)
	return g.issue(ctx, p, true)
}

func (g *SessionGate) issue(ctx context.Context, p domainauth.Principal, demo bool) (*domainauth.Session, error) {
	now := g.cfg.Now()
	sess := domainauth.Session{
		ID:           uuid.NewString(),
		Principal:    p,
		CreatedAt:    now,
		LastAccessAt: now,
		IdleTimeout:  g.cfg.IdleTimeout,
		Demo:         demo,
	}
	if err := g.sessions.Save(ctx, sess); err != nil {
		g.metrics.ObserveLogin(metrics.ResultError)
		return nil, fmt.Errorf("save session: %w", err)
	}

	result := metrics.ResultSuccess
	if demo {
		result = metrics.ResultDemo
	}
	g.metrics.ObserveLogin(result)
	g.log.InfoContext(ctx, "session established", "op", "authenticate", "username", p.Username, "user_id", p.UserID, "demo", demo)
	return &sess, nil
}

// RequireSession resolves a live session and records activity on it.
// Unknown, expired or unreadable sessions yield ErrNotAuthenticated.
func (g *SessionGate) RequireSession(ctx context.Context, sessionID string) (*domainauth.Session, error) {
	if sessionID == "" {
		return nil, domainauth.ErrNotAuthenticated
	}

	sess, err := g.sessions.Get(ctx, sessionID)
	if err != nil {
		if errors.Is(err, domainauth.ErrNotFound) {
			return nil, domainauth.ErrNotAuthenticated
		}
		g.log.ErrorContext(ctx, "session lookup failed", "op", "require_session", "error", err)
		return nil, fmt.Errorf("%w: session store: %w", domainauth.ErrNotAuthenticated, err)
	}

	now := g.cfg.Now()
	if sess.Expired(now) {
		if delErr := g.sessions.Delete(ctx, sessionID); delErr != nil {
			g.log.WarnContext(ctx, "expired session cleanup failed", "op", "require_session", "user_id", sess.Principal.UserID, "error", delErr)
		}
		return nil, domainauth.ErrNotAuthenticated
	}

	if err := g.sessions.Touch(ctx, sessionID, now); err != nil {
		if errors.Is(err, domainauth.ErrNotFound) {
			// Invalidated between Get and Touch.
			return nil, domainauth.ErrNotAuthenticated
		}
		g.log.WarnContext(ctx, "session touch failed", "op", "require_session", "user_id", sess.Principal.UserID, "error", err)
	}
	sess.LastAccessAt = now
	return &sess, nil
}

// Invalidate destroys the session; later lookups with the same id fail.
func (g *SessionGate) Invalidate(ctx context.Context, sessionID string) error {
	if sessionID == "" {
		return nil
	}
	if err := g.sessions.Delete(ctx, sessionID); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

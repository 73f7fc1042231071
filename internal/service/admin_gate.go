package service

import (
	"context"
	"fmt"
	"log/slog"

	domainauth "github.com/target/todo-platform/internal/domain/auth"
	"github.com/target/todo-platform/internal/ports"
)

// Ensure compile-time conformance to ports.
var (
	_ ports.AdminPolicy = SuperuserByName{}
	_ ports.AdminPolicy = RoleTableLookup{}
)

// SuperuserByName treats exactly one username as the administrator.
// It ignores the role table entirely.
type SuperuserByName struct {
	Username string
}

// Name implements ports.AdminPolicy.
func (p SuperuserByName) Name() string { return "superuser" }

// Allows implements ports.AdminPolicy.
func (p SuperuserByName) Allows(_ context.Context, principal domainauth.Principal) (bool, error) {
	return p.Username != "" && principal.Username == p.Username, nil
}

// RoleTableLookup grants admin to principals holding ROLE_ADMIN in the user directory.
// While the directory is unreachable it follows the degraded admin set.
type RoleTableLookup struct {
	Resolver *RoleResolver
}

// Name implements ports.AdminPolicy.
func (p RoleTableLookup) Name() string { return "role-table" }

// Allows implements ports.AdminPolicy.
func (p RoleTableLookup) Allows(ctx context.Context, principal domainauth.Principal) (bool, error) {
	if p.Resolver == nil {
		return false, fmt.Errorf("role-table policy: %w", domainauth.ErrRemoteUnavailable)
	}
	return p.Resolver.ResolveAdmin(ctx, principal.UserID).IsAdmin, nil
}

// AdminGateOptions groups dependencies for AdminGate.
type AdminGateOptions struct {
	Policy    ports.AdminPolicy // Required
	Telemetry Telemetry
}

// AdminGate guards admin-only operations.
type AdminGate struct {
	policy ports.AdminPolicy
	log    *slog.Logger
}

// NewAdminGate constructs a new AdminGate.
func NewAdminGate(opts AdminGateOptions) *AdminGate {
	if opts.Policy == nil {
		panic("AdminPolicy is required")
	}
	return &AdminGate{
		policy: opts.Policy,
		log:    opts.Telemetry.logger().With("component", "admin_gate", "policy", opts.Policy.Name()),
	}
}

// PolicyName returns the name of the active admin policy.
func (g *AdminGate) PolicyName() string { return g.policy.Name() }

// RequireAdmin returns nil when sess may use the admin area.
// A nil session yields ErrNotAuthenticated; a denial, or a policy that cannot
// decide, yields ErrInsufficientRole.
func (g *AdminGate) RequireAdmin(ctx context.Context, sess *domainauth.Session) error {
	if sess == nil {
		return domainauth.ErrNotAuthenticated
	}

	allowed, err := g.policy.Allows(ctx, sess.Principal)
	if err != nil {
		g.log.ErrorContext(ctx, "admin policy failed",
			"op", "require_admin", "user_id", sess.Principal.UserID, "error", err)
		return fmt.Errorf("%w: %w", domainauth.ErrInsufficientRole, err)
	}
	if !allowed {
		g.log.WarnContext(ctx, "admin access denied",
			"op", "require_admin", "user_id", sess.Principal.UserID, "username", sess.Principal.Username)
		return domainauth.ErrInsufficientRole
	}
	return nil
}

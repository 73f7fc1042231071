package service

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"time"

	domainauth "github.com/target/todo-platform/internal/domain/auth"
	"github.com/target/todo-platform/internal/observability/metrics"
	"github.com/target/todo-platform/internal/ports"
)

// DefaultRoleLookupTimeout bounds a single directory call when no timeout is configured.
const DefaultRoleLookupTimeout = 3 * time.Second

// roleMapper decides whether a directory role list grants admin.
type roleMapper interface {
	IsAdmin(roles []string) bool
}

// RoleResolverConfig holds lookup policy.
type RoleResolverConfig struct {
	Timeout  time.Duration
	Degraded *domainauth.DegradedDataset // Optional: nil means no user is admin while degraded
	Mapper   roleMapper                  // Optional: defaults to exact ROLE_ADMIN membership
}

// RoleResolverOptions groups dependencies for RoleResolver.
type RoleResolverOptions struct {
	Directory ports.RoleDirectory // Required
	Config    RoleResolverConfig
	Telemetry Telemetry
}

// RoleResolver determines admin status by asking the user directory, falling back
// to the degraded dataset when the directory cannot answer. Verdicts are never cached.
type RoleResolver struct {
	dir      ports.RoleDirectory
	timeout  time.Duration
	degraded *domainauth.DegradedDataset
	mapper   roleMapper
	log      *slog.Logger
	metrics  *metrics.Metrics
}

// NewRoleResolver constructs a new RoleResolver.
func NewRoleResolver(opts RoleResolverOptions) *RoleResolver {
	if opts.Directory == nil {
		panic("RoleDirectory is required")
	}
	timeout := opts.Config.Timeout
	if timeout <= 0 {
		timeout = DefaultRoleLookupTimeout
	}
	return &RoleResolver{
		dir:      opts.Directory,
		timeout:  timeout,
		degraded: opts.Config.Degraded,
		mapper:   opts.Config.Mapper,
		log:      opts.Telemetry.logger().With("component", "role_resolver"),
		metrics:  opts.Telemetry.Metrics,
	}
}

// Degraded returns the substitute dataset used during directory outages.
func (r *RoleResolver) Degraded() *domainauth.DegradedDataset { return r.degraded }

// ResolveAdmin makes one bounded directory call for userID. It never fails:
// any error produces a verdict with Source=degraded.
func (r *RoleResolver) ResolveAdmin(ctx context.Context, userID int64) domainauth.RoleVerdict {
	lookupCtx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	roles, err := r.dir.UserRoles(lookupCtx, userID)
	if err != nil {
		v := domainauth.RoleVerdict{
			UserID:  userID,
			IsAdmin: r.degraded.IsAdmin(userID),
			Source:  domainauth.SourceDegraded,
		}
		r.log.WarnContext(ctx, "role lookup degraded",
			"op", "resolve_admin",
			"user_id", userID,
			"is_admin", v.IsAdmin,
			"error", err,
		)
		r.metrics.ObserveRoleLookup(string(domainauth.SourceDegraded), err)
		return v
	}

	r.metrics.ObserveRoleLookup(string(domainauth.SourceRemote), nil)
	return domainauth.RoleVerdict{
		UserID:  userID,
		IsAdmin: r.isAdmin(roles),
		Source:  domainauth.SourceRemote,
	}
}

// ResolveAdminList resolves each user independently and sequentially.
// A failing lookup only degrades that user's verdict.
func (r *RoleResolver) ResolveAdminList(ctx context.Context, userIDs []int64) map[int64]domainauth.RoleVerdict {
	out := make(map[int64]domainauth.RoleVerdict, len(userIDs))
	for _, id := range userIDs {
		if _, seen := out[id]; seen {
			continue
		}
		out[id] = r.ResolveAdmin(ctx, id)
	}
	return out
}

// GrantAdmin adds the admin role in the directory.
func (r *RoleResolver) GrantAdmin(ctx context.Context, userID int64) error {
	return r.mutate(ctx, "grant", userID, r.dir.GrantAdmin)
}

// RevokeAdmin removes the admin role in the directory.
func (r *RoleResolver) RevokeAdmin(ctx context.Context, userID int64) error {
	return r.mutate(ctx, "revoke", userID, r.dir.RevokeAdmin)
}

// SetAdmin grants or revokes admin so that the directory matches admin.
func (r *RoleResolver) SetAdmin(ctx context.Context, userID int64, admin bool) error {
	if admin {
		return r.GrantAdmin(ctx, userID)
	}
	return r.RevokeAdmin(ctx, userID)
}

func (r *RoleResolver) mutate(
	ctx context.Context,
	op string,
	userID int64,
	call func(context.Context, int64) error,
) error {
	mutCtx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	err := call(mutCtx, userID)
	r.metrics.ObserveRoleMutation(op, err)
	if err != nil {
		r.log.WarnContext(ctx, "role mutation failed", "op", op+"_admin", "user_id", userID, "error", err)
		return fmt.Errorf("%s admin for user %d: %w", op, userID, err)
	}
	r.log.InfoContext(ctx, "role mutation applied", "op", op+"_admin", "user_id", userID)
	return nil
}

func (r *RoleResolver) isAdmin(roles []string) bool {
	if r.mapper != nil {
		return r.mapper.IsAdmin(roles)
	}
	return slices.Contains(roles, domainauth.RoleAdmin)
}

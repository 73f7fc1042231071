package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	domainauth "github.com/target/todo-platform/internal/domain/auth"
)

type stubPolicy struct {
	allow bool
	err   error
}

func (p stubPolicy) Name() string { return "stub" }
func (p stubPolicy) Allows(context.Context, domainauth.Principal) (bool, error) {
	return p.allow, p.err
}

func sessionFor(id int64, username string) *domainauth.Session {
	return &domainauth.Session{ID: "s", Principal: domainauth.Principal{UserID: id, Username: username}}
}

func TestNewAdminGate_RequiresPolicy(t *testing.T) {
	assert.Panics(t, func() { NewAdminGate(AdminGateOptions{}) })
}

func TestAdminGate_RequireAdmin_NoSession(t *testing.T) {
	g := NewAdminGate(AdminGateOptions{Policy: stubPolicy{allow: true}})
	assert.ErrorIs(t, g.RequireAdmin(context.Background(), nil), domainauth.ErrNotAuthenticated)
}

func TestAdminGate_RequireAdmin_PolicyErrorFailsClosed(t *testing.T) {
	g := NewAdminGate(AdminGateOptions{Policy: stubPolicy{allow: true, err: errors.New("boom")}})
	err := g.RequireAdmin(context.Background(), sessionFor(1, "admin"))
	assert.ErrorIs(t, err, domainauth.ErrInsufficientRole)
}

func TestAdminGate_SuperuserByName(t *testing.T) {
	g := NewAdminGate(AdminGateOptions{Policy: SuperuserByName{Username: "admin"}})
	ctx := context.Background()

	assert.Equal(t, "superuser", g.PolicyName())
	require.NoError(t, g.RequireAdmin(ctx, sessionFor(1, "admin")))
	assert.ErrorIs(t, g.RequireAdmin(ctx, sessionFor(2, "user")), domainauth.ErrInsufficientRole)
	assert.ErrorIs(t, g.RequireAdmin(ctx, sessionFor(3, "Admin")), domainauth.ErrInsufficientRole)
}

func TestAdminGate_SuperuserIgnoresRoleTable(t *testing.T) {
	r, dir := newTestRoleResolver(t)
	dir.EXPECT().UserRoles(gomock.Any(), int64(2)).Return([]string{"ROLE_ADMIN"}, nil)

	// The directory says user 2 is an admin...
	require.True(t, r.ResolveAdmin(context.Background(), 2).IsAdmin)

	// ...but the superuser policy only admits the configured name.
	g := NewAdminGate(AdminGateOptions{Policy: SuperuserByName{Username: "admin"}})
	assert.ErrorIs(t, g.RequireAdmin(context.Background(), sessionFor(2, "user")), domainauth.ErrInsufficientRole)
}

func TestAdminGate_SuperuserEmptyName(t *testing.T) {
	g := NewAdminGate(AdminGateOptions{Policy: SuperuserByName{}})
	assert.ErrorIs(t, g.RequireAdmin(context.Background(), sessionFor(1, "")), domainauth.ErrInsufficientRole)
}

func TestAdminGate_RoleTableLookup(t *testing.T) {
	ctx := context.Background()

	t.Run("remote verdict", func(t *testing.T) {
		r, dir := newTestRoleResolver(t)
		dir.EXPECT().UserRoles(gomock.Any(), int64(2)).Return([]string{"ROLE_ADMIN"}, nil)
		g := NewAdminGate(AdminGateOptions{Policy: RoleTableLookup{Resolver: r}})

		assert.Equal(t, "role-table", g.PolicyName())
		require.NoError(t, g.RequireAdmin(ctx, sessionFor(2, "user")))
	})

	t.Run("remote denial", func(t *testing.T) {
		r, dir := newTestRoleResolver(t)
		dir.EXPECT().UserRoles(gomock.Any(), int64(1)).Return([]string{"ROLE_USER"}, nil)
		g := NewAdminGate(AdminGateOptions{Policy: RoleTableLookup{Resolver: r}})

		assert.ErrorIs(t, g.RequireAdmin(ctx, sessionFor(1, "admin")), domainauth.ErrInsufficientRole)
	})

	t.Run("degraded follows admin set", func(t *testing.T) {
		r, dir := newTestRoleResolver(t)
		dir.EXPECT().UserRoles(gomock.Any(), gomock.Any()).Return(nil, domainauth.ErrRemoteUnavailable).Times(2)
		g := NewAdminGate(AdminGateOptions{Policy: RoleTableLookup{Resolver: r}})

		require.NoError(t, g.RequireAdmin(ctx, sessionFor(1, "admin")))
		assert.ErrorIs(t, g.RequireAdmin(ctx, sessionFor(2, "user")), domainauth.ErrInsufficientRole)
	})

	t.Run("missing resolver", func(t *testing.T) {
		g := NewAdminGate(AdminGateOptions{Policy: RoleTableLookup{}})
		assert.ErrorIs(t, g.RequireAdmin(ctx, sessionFor(1, "admin")), domainauth.ErrInsufficientRole)
	})
}

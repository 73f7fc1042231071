package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	domainauth "github.com/target/todo-platform/internal/domain/auth"
	"github.com/target/todo-platform/internal/domain/model"
	apperrors "github.com/target/todo-platform/internal/errors"
	"github.com/target/todo-platform/internal/mocks"
)

func ptr[T any](v T) *T { return &v }

func newUserAdmin(t *testing.T) (*mocks.MockUserDirectory, *UserAdmin) {
	t.Helper()
	ctrl := gomock.NewController(t)
	t.Cleanup(ctrl.Finish)

	dir := mocks.NewMockUserDirectory(ctrl)
	roles := NewRoleResolver(RoleResolverOptions{
		Directory: dir,
		Config: RoleResolverConfig{
			Timeout:  time.Second,
			Degraded: domainauth.DefaultDegradedDataset(),
		},
	})
	return dir, NewUserAdmin(UserAdminOptions{Directory: dir, Roles: roles})
}

func TestNewUserAdmin_RequiresDependencies(t *testing.T) {
	assert.Panics(t, func() { NewUserAdmin(UserAdminOptions{}) })
	assert.Panics(t, func() {
		NewUserAdmin(UserAdminOptions{Directory: mocks.NewMockUserDirectory(gomock.NewController(t))})
	})
}

func TestUserAdmin_List(t *testing.T) {
	ctx := context.Background()

	t.Run("remote listing with per-user verdicts", func(t *testing.T) {
		dir, admin := newUserAdmin(t)
		dir.EXPECT().ListUsers(gomock.Any()).Return([]model.User{{ID: 1, Username: "admin"}, {ID: 2, Username: "bob"}}, nil)
		dir.EXPECT().UserRoles(gomock.Any(), int64(1)).Return([]string{"ROLE_ADMIN"}, nil)
		dir.EXPECT().UserRoles(gomock.Any(), int64(2)).Return(nil, errors.New("timeout"))

		listing := admin.List(ctx)
		assert.False(t, listing.Degraded)
		assert.Empty(t, listing.Warning)
		require.Len(t, listing.Users, 2)
		assert.Equal(t, domainauth.SourceRemote, listing.Verdicts[1].Source)
		assert.True(t, listing.Verdicts[1].IsAdmin)
		assert.Equal(t, domainauth.SourceDegraded, listing.Verdicts[2].Source)
		assert.False(t, listing.Verdicts[2].IsAdmin)
	})

	t.Run("directory down falls back to degraded dataset", func(t *testing.T) {
		dir, admin := newUserAdmin(t)
		dir.EXPECT().ListUsers(gomock.Any()).Return(nil, domainauth.ErrRemoteUnavailable)

		listing := admin.List(ctx)
		assert.True(t, listing.Degraded)
		assert.Equal(t, WarnDirectoryUnavailable, listing.Warning)
		require.Len(t, listing.Users, 2)
		assert.Equal(t, "admin", listing.Users[0].Username)
		assert.Equal(t, domainauth.RoleVerdict{UserID: 1, IsAdmin: true, Source: domainauth.SourceDegraded}, listing.Verdicts[1])
		assert.Equal(t, domainauth.RoleVerdict{UserID: 2, IsAdmin: false, Source: domainauth.SourceDegraded}, listing.Verdicts[2])
	})
}

func TestUserAdmin_Load(t *testing.T) {
	ctx := context.Background()

	t.Run("clears password and resolves admin", func(t *testing.T) {
		dir, admin := newUserAdmin(t)
		dir.EXPECT().GetUser(gomock.Any(), int64(3)).Return(&model.User{ID: 3, Username: "carol", Password: "$2a$10$x"}, nil)
		dir.EXPECT().UserRoles(gomock.Any(), int64(3)).Return([]string{"ROLE_USER"}, nil)

		form, err := admin.Load(ctx, 3, true)
		require.NoError(t, err)
		assert.True(t, form.IsEdit)
		assert.Empty(t, form.User.Password)
		assert.False(t, form.Admin.IsAdmin)
	})

	t.Run("missing user", func(t *testing.T) {
		dir, admin := newUserAdmin(t)
		dir.EXPECT().GetUser(gomock.Any(), int64(9)).Return(nil, apperrors.NotFound("user not found"))

		_, err := admin.Load(ctx, 9, false)
		assert.True(t, apperrors.IsNotFound(err))
	})
}

func TestUserAdmin_NewForm(t *testing.T) {
	_, admin := newUserAdmin(t)
	form := admin.NewForm()
	assert.False(t, form.IsEdit)
	assert.False(t, form.Admin.IsAdmin)
	assert.Equal(t, model.UserStatusActive, form.User.Status)
}

func TestUserAdmin_Save(t *testing.T) {
	ctx := context.Background()

	t.Run("create admin", func(t *testing.T) {
		dir, admin := newUserAdmin(t)
		dir.EXPECT().CreateUser(gomock.Any(), model.CreateUserRequest{Username: "dave", Password: "pw", Email: "d@example.com"}).
			Return(&model.User{ID: 4, Username: "dave"}, nil)
		dir.EXPECT().GrantAdmin(gomock.Any(), int64(4)).Return(nil)

		res, err := admin.Save(ctx, SaveUserRequest{Username: " dave ", Password: "pw", Email: "d@example.com", MakeAdmin: true})
		require.NoError(t, err)
		assert.Equal(t, int64(4), res.User.ID)
		assert.Empty(t, res.Warnings)
	})

	t.Run("create plain user skips role call", func(t *testing.T) {
		dir, admin := newUserAdmin(t)
		dir.EXPECT().CreateUser(gomock.Any(), gomock.Any()).Return(&model.User{ID: 5, Username: "erin"}, nil)

		res, err := admin.Save(ctx, SaveUserRequest{Username: "erin", Password: "pw"})
		require.NoError(t, err)
		assert.Empty(t, res.Warnings)
	})

	t.Run("edit keeps password when blank", func(t *testing.T) {
		dir, admin := newUserAdmin(t)
		dir.EXPECT().UpdateUser(gomock.Any(), int64(6), gomock.Any()).
			DoAndReturn(func(_ context.Context, _ int64, req model.UpdateUserRequest) (*model.User, error) {
				assert.Nil(t, req.Password)
				require.NotNil(t, req.Username)
				assert.Equal(t, "frank", *req.Username)
				return &model.User{ID: 6, Username: "frank"}, nil
			})
		dir.EXPECT().RevokeAdmin(gomock.Any(), int64(6)).Return(nil)

		_, err := admin.Save(ctx, SaveUserRequest{ID: 6, IsEdit: true, Username: "frank"})
		require.NoError(t, err)
	})

	t.Run("role mutation failure becomes a warning", func(t *testing.T) {
		dir, admin := newUserAdmin(t)
		dir.EXPECT().UpdateUser(gomock.Any(), int64(7), gomock.Any()).Return(&model.User{ID: 7, Username: "gina"}, nil)
		dir.EXPECT().GrantAdmin(gomock.Any(), int64(7)).Return(domainauth.ErrRemoteUnavailable)

		res, err := admin.Save(ctx, SaveUserRequest{ID: 7, IsEdit: true, Username: "gina", MakeAdmin: true})
		require.NoError(t, err)
		require.Len(t, res.Warnings, 1)
		assert.Contains(t, res.Warnings[0], "may not have taken effect")
	})

	t.Run("conflict aborts save", func(t *testing.T) {
		dir, admin := newUserAdmin(t)
		dir.EXPECT().CreateUser(gomock.Any(), gomock.Any()).Return(nil, apperrors.Conflict("username exists"))

		_, err := admin.Save(ctx, SaveUserRequest{Username: "admin", Password: "pw", MakeAdmin: true})
		assert.True(t, apperrors.IsConflict(err))
	})
}

func TestUserAdmin_Delete(t *testing.T) {
	dir, admin := newUserAdmin(t)
	dir.EXPECT().DeleteUser(gomock.Any(), int64(2)).Return(apperrors.NotFound("user not found"))

	err := admin.Delete(context.Background(), 2)
	assert.True(t, apperrors.IsNotFound(err))
}

func TestUserAdmin_BatchDelete(t *testing.T) {
	dir, admin := newUserAdmin(t)
	dir.EXPECT().DeleteUser(gomock.Any(), int64(1)).Return(nil)
	dir.EXPECT().DeleteUser(gomock.Any(), int64(2)).Return(errors.New("boom"))
	dir.EXPECT().DeleteUser(gomock.Any(), int64(3)).Return(nil)

	res := admin.BatchDelete(context.Background(), []int64{1, 2, 3})
	assert.Equal(t, model.BatchResult{Succeeded: 2, Failed: 1, FailedIDs: []int64{2}}, res)
}

func TestUserAdmin_FixRoles(t *testing.T) {
	dir, admin := newUserAdmin(t)
	dir.EXPECT().FixRoles(gomock.Any()).Return(nil)
	require.NoError(t, admin.FixRoles(context.Background()))

	dir.EXPECT().FixRoles(gomock.Any()).Return(domainauth.ErrRemoteUnavailable)
	assert.ErrorIs(t, admin.FixRoles(context.Background()), domainauth.ErrRemoteUnavailable)
}

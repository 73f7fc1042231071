package httpx

import (
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	domainauth "github.com/target/todo-platform/internal/domain/auth"
	"github.com/target/todo-platform/internal/domain/model"
	apperrors "github.com/target/todo-platform/internal/errors"
)

var errDirectoryDown = fmt.Errorf("%w: dial tcp 127.0.0.1:8082: connection refused", domainauth.ErrRemoteUnavailable)

func TestAdminRoutes_AccessControl(t *testing.T) {
	env := newTestEnv(t)
	userCookie := env.login(t, "alice", "wonderland")

	pages := []string{"/admin/users", "/admin/users/new", "/admin/users/3", "/admin/users/3/edit"}
	for _, p := range pages {
		t.Run("anonymous "+p, func(t *testing.T) {
			rec := env.do(browserRequest(http.MethodGet, p), nil)
			assert.Equal(t, http.StatusFound, rec.Code)
			assert.Equal(t, "/login", rec.Header().Get("Location"))
		})
		t.Run("non-admin "+p, func(t *testing.T) {
			rec := env.do(browserRequest(http.MethodGet, p), userCookie)
			assert.Equal(t, http.StatusFound, rec.Code)
			assert.Equal(t, "/", rec.Header().Get("Location"))
		})
	}

	t.Run("non-admin save is redirected without a directory call", func(t *testing.T) {
		rec := env.do(formRequest(http.MethodPost, "/admin/users/save", url.Values{"username": {"x"}, "password": {"y"}}), userCookie)
		assert.Equal(t, http.StatusFound, rec.Code)
		assert.Equal(t, "/", rec.Header().Get("Location"))
	})

	t.Run("actions answer with json", func(t *testing.T) {
		for _, p := range []string{"/admin/users/3/delete", "/admin/users/fix-roles"} {
			rec := env.do(apiRequest(http.MethodPost, p, ""), nil)
			assert.Equal(t, http.StatusUnauthorized, rec.Code, p)

			rec = env.do(apiRequest(http.MethodPost, p, ""), userCookie)
			require.Equal(t, http.StatusForbidden, rec.Code, p)
			assert.Equal(t, "insufficient_permissions", decodeJSON(t, rec)["error"])
		}
	})
}

func TestAdminList(t *testing.T) {
	env := newTestEnv(t)
	cookie := env.login(t, "admin", demoSecret)

	env.dir.EXPECT().ListUsers(gomock.Any()).Return([]model.User{
		{ID: 1, Username: "admin"},
		{ID: 10, Username: "alice"},
		{ID: 11, Username: "bob"},
	}, nil)
	env.dir.EXPECT().UserRoles(gomock.Any(), int64(1)).Return([]string{domainauth.RoleAdmin, domainauth.RoleUser}, nil)
	env.dir.EXPECT().UserRoles(gomock.Any(), int64(10)).Return([]string{domainauth.RoleUser}, nil)
	env.dir.EXPECT().UserRoles(gomock.Any(), int64(11)).Return(nil, errDirectoryDown)

	rec := env.do(browserRequest(http.MethodGet, "/admin/users?notice=Saved&warning=w1&warning=w2"), cookie)
	require.Equal(t, http.StatusOK, rec.Code)

	var page UserListPage
	assert.Equal(t, ViewUserList, decodeView(t, rec, &page))
	assert.Equal(t, "admin", page.CurrentUser)
	assert.Equal(t, "Saved", page.Notice)
	assert.Equal(t, []string{"w1", "w2"}, page.Warnings)
	assert.False(t, page.Degraded)
	require.Len(t, page.Users, 3)
	assert.True(t, page.Verdicts[1].IsAdmin)
	assert.Equal(t, domainauth.SourceRemote, page.Verdicts[1].Source)
	assert.False(t, page.Verdicts[10].IsAdmin)
	// One failing lookup only degrades that row.
	assert.Equal(t, domainauth.SourceDegraded, page.Verdicts[11].Source)
	assert.False(t, page.Verdicts[11].IsAdmin)
}

func TestAdminList_DirectoryDown(t *testing.T) {
	env := newTestEnv(t)
	cookie := env.login(t, "admin", demoSecret)
	env.dir.EXPECT().ListUsers(gomock.Any()).Return(nil, errDirectoryDown)

	rec := env.do(browserRequest(http.MethodGet, "/admin/users"), cookie)
	require.Equal(t, http.StatusOK, rec.Code)

	var page UserListPage
	decodeView(t, rec, &page)
	assert.True(t, page.Degraded)
	assert.NotEmpty(t, page.Warning)
	require.Len(t, page.Users, 2)
	assert.Equal(t, "admin", page.Users[0].Username)
	assert.True(t, page.Verdicts[1].IsAdmin)
	assert.False(t, page.Verdicts[2].IsAdmin)
	assert.Equal(t, domainauth.SourceDegraded, page.Verdicts[2].Source)
}

func TestAdminEditAndDetail(t *testing.T) {
	env := newTestEnv(t)
	cookie := env.login(t, "admin", demoSecret)

	env.dir.EXPECT().GetUser(gomock.Any(), int64(10)).Return(&model.User{ID: 10, Username: "alice", Password: "$2a$10$hash"}, nil).Times(2)
	env.dir.EXPECT().UserRoles(gomock.Any(), int64(10)).Return([]string{domainauth.RoleUser}, nil).Times(2)

	rec := env.do(browserRequest(http.MethodGet, "/admin/users/10/edit"), cookie)
	require.Equal(t, http.StatusOK, rec.Code)
	var page UserFormPage
	assert.Equal(t, ViewUserForm, decodeView(t, rec, &page))
	assert.True(t, page.Form.IsEdit)
	assert.Equal(t, "alice", page.Form.User.Username)
	assert.NotContains(t, rec.Body.String(), "$2a$10$hash")

	rec = env.do(browserRequest(http.MethodGet, "/admin/users/10"), cookie)
	require.Equal(t, http.StatusOK, rec.Code)
	page = UserFormPage{}
	assert.Equal(t, ViewUserDetail, decodeView(t, rec, &page))
	assert.False(t, page.Form.IsEdit)
}

func TestAdminEdit_UnknownUserReturnsToListing(t *testing.T) {
	env := newTestEnv(t)
	cookie := env.login(t, "admin", demoSecret)
	env.dir.EXPECT().GetUser(gomock.Any(), int64(99)).Return(nil, apperrors.Wrap(domainauth.ErrNotFound, apperrors.ErrCodeNotFound, "user 99 not found"))

	rec := env.do(browserRequest(http.MethodGet, "/admin/users/99/edit"), cookie)
	assert.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "/admin/users", rec.Header().Get("Location"))

	rec = env.do(browserRequest(http.MethodGet, "/admin/users/abc/edit"), cookie)
	assert.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "/admin/users", rec.Header().Get("Location"))
}

func TestAdminNewForm(t *testing.T) {
	env := newTestEnv(t)
	cookie := env.login(t, "admin", demoSecret)

	rec := env.do(browserRequest(http.MethodGet, "/admin/users/new"), cookie)
	require.Equal(t, http.StatusOK, rec.Code)
	var page UserFormPage
	assert.Equal(t, ViewUserForm, decodeView(t, rec, &page))
	assert.False(t, page.Form.IsEdit)
	assert.False(t, page.Form.Admin.IsAdmin)
	assert.Equal(t, model.UserStatusActive, page.Form.User.Status)
}

func TestAdminSave_Create(t *testing.T) {
	t.Run("plain user makes no role call", func(t *testing.T) {
		env := newTestEnv(t)
		cookie := env.login(t, "admin", demoSecret)
		env.dir.EXPECT().CreateUser(gomock.Any(), gomock.Any()).DoAndReturn(
			func(_ any, req model.CreateUserRequest) (*model.User, error) {
				assert.Equal(t, "carol", req.Username)
				assert.Equal(t, "pw", req.Password)
				assert.Equal(t, "carol@example.com", req.Email)
				return &model.User{ID: 12, Username: "carol"}, nil
			})

		rec := env.do(formRequest(http.MethodPost, "/admin/users/save", url.Values{
			"username": {" carol "}, "password": {"pw"}, "email": {"carol@example.com"},
		}), cookie)
		require.Equal(t, http.StatusFound, rec.Code)
		loc, err := url.Parse(rec.Header().Get("Location"))
		require.NoError(t, err)
		assert.Equal(t, "/admin/users", loc.Path)
		assert.Equal(t, "User carol saved.", loc.Query().Get("notice"))
		assert.Empty(t, loc.Query()["warning"])
	})

	t.Run("admin grant failure is a warning", func(t *testing.T) {
		env := newTestEnv(t)
		cookie := env.login(t, "admin", demoSecret)
		env.dir.EXPECT().CreateUser(gomock.Any(), gomock.Any()).Return(&model.User{ID: 12, Username: "carol"}, nil)
		env.dir.EXPECT().GrantAdmin(gomock.Any(), int64(12)).Return(errDirectoryDown)

		rec := env.do(formRequest(http.MethodPost, "/admin/users/save", url.Values{
			"username": {"carol"}, "password": {"pw"}, "isAdmin": {"on"},
		}), cookie)
		require.Equal(t, http.StatusFound, rec.Code)
		loc, err := url.Parse(rec.Header().Get("Location"))
		require.NoError(t, err)
		require.Len(t, loc.Query()["warning"], 1)
		assert.Contains(t, loc.Query().Get("warning"), "granting the admin role")
	})

	t.Run("api client gets the save result", func(t *testing.T) {
		env := newTestEnv(t)
		cookie := env.login(t, "admin", demoSecret)
		env.dir.EXPECT().CreateUser(gomock.Any(), gomock.Any()).Return(&model.User{ID: 12, Username: "carol"}, nil)
		env.dir.EXPECT().GrantAdmin(gomock.Any(), int64(12)).Return(nil)

		req := formRequest(http.MethodPost, "/admin/users/save", url.Values{
			"username": {"carol"}, "password": {"pw"}, "isAdmin": {"true"},
		})
		req.Header.Set("Accept", "application/json")
		rec := env.do(req, cookie)
		require.Equal(t, http.StatusOK, rec.Code)
		body := decodeJSON(t, rec)
		assert.Equal(t, "carol", body["user"].(map[string]any)["username"])
		assert.NotContains(t, body, "warnings")
	})

	t.Run("duplicate username", func(t *testing.T) {
		env := newTestEnv(t)
		cookie := env.login(t, "admin", demoSecret)
		env.dir.EXPECT().CreateUser(gomock.Any(), gomock.Any()).Return(nil, apperrors.Conflictf("username %q already exists", "carol"))

		rec := env.do(formRequest(http.MethodPost, "/admin/users/save", url.Values{
			"username": {"carol"}, "password": {"pw"},
		}), cookie)
		require.Equal(t, http.StatusConflict, rec.Code)
		var page UserFormPage
		assert.Equal(t, ViewUserForm, decodeView(t, rec, &page))
		assert.Equal(t, "Username already exists.", page.Error)
		assert.Equal(t, "carol", page.Form.User.Username)
	})

	t.Run("directory unavailable", func(t *testing.T) {
		env := newTestEnv(t)
		cookie := env.login(t, "admin", demoSecret)
		env.dir.EXPECT().CreateUser(gomock.Any(), gomock.Any()).Return(nil, errDirectoryDown)

		rec := env.do(formRequest(http.MethodPost, "/admin/users/save", url.Values{
			"username": {"carol"}, "password": {"pw"},
		}), cookie)
		require.Equal(t, http.StatusBadGateway, rec.Code)
		var page UserFormPage
		decodeView(t, rec, &page)
		assert.Equal(t, "The user directory is unavailable, please try again.", page.Error)
	})
}

func TestAdminSave_Validation(t *testing.T) {
	tests := []struct {
		name  string
		form  url.Values
		field string
	}{
		{name: "missing username", form: url.Values{"password": {"pw"}}, field: "username"},
		{name: "missing password on create", form: url.Values{"username": {"carol"}}, field: "password"},
		{name: "bad email", form: url.Values{"username": {"carol"}, "password": {"pw"}, "email": {"nope"}}, field: "email"},
		{name: "bad phone", form: url.Values{"username": {"carol"}, "password": {"pw"}, "phone": {"call me"}}, field: "phone"},
		{name: "status out of range", form: url.Values{"username": {"carol"}, "password": {"pw"}, "status": {"7"}}, field: "status"},
		{name: "edit without id", form: url.Values{"username": {"carol"}, "isEdit": {"true"}}, field: "id"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t)
			cookie := env.login(t, "admin", demoSecret)

			rec := env.do(formRequest(http.MethodPost, "/admin/users/save", tt.form), cookie)
			require.Equal(t, http.StatusBadRequest, rec.Code)
			var page UserFormPage
			assert.Equal(t, ViewUserForm, decodeView(t, rec, &page))
			assert.Contains(t, page.FieldErrors, tt.field)
			assert.Contains(t, page.Error, "Invalid input.")
		})
	}
}

func TestAdminSave_Edit(t *testing.T) {
	env := newTestEnv(t)
	cookie := env.login(t, "admin", demoSecret)

	env.dir.EXPECT().UpdateUser(gomock.Any(), int64(10), gomock.Any()).DoAndReturn(
		func(_ any, _ int64, req model.UpdateUserRequest) (*model.User, error) {
			assert.Nil(t, req.Password, "a blank password keeps the stored one")
			require.NotNil(t, req.Username)
			assert.Equal(t, "alice2", *req.Username)
			require.NotNil(t, req.Status)
			assert.Equal(t, 0, *req.Status)
			return &model.User{ID: 10, Username: "alice2"}, nil
		})
	env.dir.EXPECT().RevokeAdmin(gomock.Any(), int64(10)).Return(nil)

	rec := env.do(formRequest(http.MethodPost, "/admin/users/save", url.Values{
		"id": {"10"}, "isEdit": {"true"}, "username": {"alice2"}, "password": {""}, "status": {"0"},
	}), cookie)
	require.Equal(t, http.StatusFound, rec.Code)
	loc, err := url.Parse(rec.Header().Get("Location"))
	require.NoError(t, err)
	assert.Equal(t, "User alice2 saved.", loc.Query().Get("notice"))
}

func TestAdminDelete(t *testing.T) {
	env := newTestEnv(t)
	cookie := env.login(t, "admin", demoSecret)

	env.dir.EXPECT().DeleteUser(gomock.Any(), int64(10)).Return(nil)
	rec := env.do(apiRequest(http.MethodPost, "/admin/users/10/delete", ""), cookie)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, map[string]any{"success": true, "id": float64(10)}, decodeJSON(t, rec))

	env.dir.EXPECT().DeleteUser(gomock.Any(), int64(11)).Return(errDirectoryDown)
	rec = env.do(apiRequest(http.MethodPost, "/admin/users/11/delete", ""), cookie)
	require.Equal(t, http.StatusBadGateway, rec.Code)
	assert.Equal(t, "user_directory_unavailable", decodeJSON(t, rec)["error"])

	rec = env.do(apiRequest(http.MethodPost, "/admin/users/zero/delete", ""), cookie)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAdminBatchDelete(t *testing.T) {
	env := newTestEnv(t)
	cookie := env.login(t, "admin", demoSecret)

	env.dir.EXPECT().DeleteUser(gomock.Any(), int64(3)).Return(nil)
	env.dir.EXPECT().DeleteUser(gomock.Any(), int64(4)).Return(errors.New("boom"))
	env.dir.EXPECT().DeleteUser(gomock.Any(), int64(5)).Return(nil)

	req := formRequest(http.MethodPost, "/admin/users/batch-delete", url.Values{"ids": {"3,4", "5"}})
	req.Header.Set("Accept", "application/json")
	rec := env.do(req, cookie)
	require.Equal(t, http.StatusOK, rec.Code)

	body := decodeJSON(t, rec)
	assert.InDelta(t, 2, body["succeeded"], 0)
	assert.InDelta(t, 1, body["failed"], 0)

	t.Run("browser gets a notice", func(t *testing.T) {
		env.dir.EXPECT().DeleteUser(gomock.Any(), int64(6)).Return(nil)
		rec := env.do(formRequest(http.MethodPost, "/admin/users/batch-delete", url.Values{"ids": {"6"}}), cookie)
		require.Equal(t, http.StatusFound, rec.Code)
		loc, err := url.Parse(rec.Header().Get("Location"))
		require.NoError(t, err)
		assert.Equal(t, "Deleted 1 user(s), 0 failed.", loc.Query().Get("notice"))
	})

	t.Run("userIds field", func(t *testing.T) {
		env.dir.EXPECT().DeleteUser(gomock.Any(), int64(7)).Return(nil)
		env.dir.EXPECT().DeleteUser(gomock.Any(), int64(8)).Return(nil)
		req := formRequest(http.MethodPost, "/admin/users/batch-delete", url.Values{"userIds": {"7", "8"}})
		req.Header.Set("Accept", "application/json")
		rec := env.do(req, cookie)
		require.Equal(t, http.StatusOK, rec.Code)
		body := decodeJSON(t, rec)
		assert.InDelta(t, 2, body["succeeded"], 0)
		assert.InDelta(t, 0, body["failed"], 0)
	})

	t.Run("no valid ids", func(t *testing.T) {
		req := formRequest(http.MethodPost, "/admin/users/batch-delete", url.Values{"ids": {"x"}})
		req.Header.Set("Accept", "application/json")
		rec := env.do(req, cookie)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestAdminFixRoles(t *testing.T) {
	env := newTestEnv(t)
	cookie := env.login(t, "admin", demoSecret)

	env.dir.EXPECT().FixRoles(gomock.Any()).Return(nil)
	rec := env.do(apiRequest(http.MethodPost, "/admin/users/fix-roles", ""), cookie)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, true, decodeJSON(t, rec)["success"])

	env.dir.EXPECT().FixRoles(gomock.Any()).Return(errDirectoryDown)
	rec = env.do(apiRequest(http.MethodPost, "/admin/users/fix-roles", ""), cookie)
	assert.Equal(t, http.StatusBadGateway, rec.Code)
}

func TestParseIDs(t *testing.T) {
	ids, err := parseIDs([]string{"1, 2", "3", ""})
	require.NoError(t, err)
	assert.Equal(t, []int64{1, 2, 3}, ids)

	_, err = parseIDs([]string{"1,-2"})
	assert.Error(t, err)
}

func TestFormBool(t *testing.T) {
	for _, v := range []string{"1", "true", "ON", " yes "} {
		assert.True(t, formBool(v), v)
	}
	for _, v := range []string{"", "0", "false", "off"} {
		assert.False(t, formBool(v), v)
	}
}

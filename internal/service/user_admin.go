package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	domainauth "github.com/target/todo-platform/internal/domain/auth"
	"github.com/target/todo-platform/internal/domain/model"
	"github.com/target/todo-platform/internal/ports"
)

// WarnDirectoryUnavailable is shown on the admin listing while it is served from the degraded dataset.
const WarnDirectoryUnavailable = "User service is unavailable; showing placeholder data. Check that the user service is running."

// UserAdminOptions groups dependencies for UserAdmin.
type UserAdminOptions struct {
	Directory ports.UserDirectory // Required
	Roles     *RoleResolver       // Required
	Telemetry Telemetry
}

// UserAdmin implements the admin user-management workflow on top of the user directory.
// Callers must have passed AdminGate before invoking any method.
type UserAdmin struct {
	dir   ports.UserDirectory
	roles *RoleResolver
	log   *slog.Logger
}

// NewUserAdmin constructs a new UserAdmin.
func NewUserAdmin(opts UserAdminOptions) *UserAdmin {
	if opts.Directory == nil {
		panic("UserDirectory is required")
	}
	if opts.Roles == nil {
		panic("RoleResolver is required")
	}
	return &UserAdmin{
		dir:   opts.Directory,
		roles: opts.Roles,
		log:   opts.Telemetry.logger().With("component", "user_admin"),
	}
}

// UserListing is the admin user list with a per-user admin verdict.
type UserListing struct {
	Users    []model.User                     `json:"users"`
	Verdicts map[int64]domainauth.RoleVerdict `json:"verdicts"`
	Degraded bool                             `json:"degraded"`
	Warning  string                           `json:"warning,omitempty"`
}

// List returns every user with its admin verdict. It never fails: when the
// directory cannot list users the degraded dataset is returned with a warning.
func (a *UserAdmin) List(ctx context.Context) UserListing {
	users, err := a.dir.ListUsers(ctx)
	if err != nil {
		a.log.WarnContext(ctx, "user listing degraded", "op", "list_users", "error", err)
		degraded := a.roles.Degraded()
		listing := UserListing{
			Users:    degraded.Users(),
			Verdicts: make(map[int64]domainauth.RoleVerdict),
			Degraded: true,
			Warning:  WarnDirectoryUnavailable,
		}
		for id, isAdmin := range degraded.AdminFlags() {
			listing.Verdicts[id] = domainauth.RoleVerdict{UserID: id, IsAdmin: isAdmin, Source: domainauth.SourceDegraded}
		}
		return listing
	}

	ids := make([]int64, 0, len(users))
	for _, u := range users {
		ids = append(ids, u.ID)
	}
	return UserListing{
		Users:    users,
		Verdicts: a.roles.ResolveAdminList(ctx, ids),
	}
}

// UserForm backs the admin create/edit/detail views.
type UserForm struct {
	User   model.User             `json:"user"`
	IsEdit bool                   `json:"is_edit"`
	Admin  domainauth.RoleVerdict `json:"admin"`
}

// NewForm returns an empty create form. New users are not admins.
func (a *UserAdmin) NewForm() UserForm {
	return UserForm{User: model.User{Status: model.UserStatusActive}}
}

// Load fetches a user for the edit or detail views. The stored password is never exposed.
func (a *UserAdmin) Load(ctx context.Context, id int64, edit bool) (UserForm, error) {
	u, err := a.dir.GetUser(ctx, id)
	if err != nil {
		a.log.WarnContext(ctx, "load user failed", "op", "load_user", "user_id", id, "error", err)
		return UserForm{}, fmt.Errorf("get user %d: %w", id, err)
	}
	user := *u
	user.Password = ""
	return UserForm{
		User:   user,
		IsEdit: edit,
		Admin:  a.roles.ResolveAdmin(ctx, id),
	}, nil
}

// SaveUserRequest is the admin form submission for creating or updating a user.
type SaveUserRequest struct {
	ID        int64
	IsEdit    bool
	MakeAdmin bool
	Username  string
	Password  string
	Email     string
	Phone     string
	Status    *int
}

// SaveResult reports the saved user and any non-fatal role warnings.
type SaveResult struct {
	User     *model.User `json:"user"`
	Warnings []string    `json:"warnings,omitempty"`
}

// Save creates or updates a user, then applies the admin flag.
// A failed role mutation does not fail the save; it is returned as a warning.
func (a *UserAdmin) Save(ctx context.Context, req SaveUserRequest) (*SaveResult, error) {
	var (
		saved *model.User
		err   error
	)
	if req.IsEdit && req.ID > 0 {
		saved, err = a.dir.UpdateUser(ctx, req.ID, updateRequestFromForm(req))
		if err != nil {
			a.log.WarnContext(ctx, "update user failed", "op", "save_user", "user_id", req.ID, "error", err)
			return nil, fmt.Errorf("update user %d: %w", req.ID, err)
		}
	} else {
		saved, err = a.dir.CreateUser(ctx, model.CreateUserRequest{
			Username: strings.TrimSpace(req.Username),
			Password: req.Password,
			Email:    strings.TrimSpace(req.Email),
			Phone:    strings.TrimSpace(req.Phone),
			Status:   req.Status,
		})
		if err != nil {
			a.log.WarnContext(ctx, "create user failed", "op", "save_user", "username", req.Username, "error", err)
			return nil, fmt.Errorf("create user: %w", err)
		}
	}

	res := &SaveResult{User: saved}
	a.log.InfoContext(ctx, "user saved", "op", "save_user", "user_id", saved.ID, "edit", req.IsEdit)

	// A freshly created user has no admin role to revoke.
	if req.IsEdit || req.MakeAdmin {
		if err := a.roles.SetAdmin(ctx, saved.ID, req.MakeAdmin); err != nil {
			res.Warnings = append(res.Warnings, roleWarning(saved.ID, req.MakeAdmin))
		}
	}
	return res, nil
}

func updateRequestFromForm(req SaveUserRequest) model.UpdateUserRequest {
	up := model.UpdateUserRequest{Status: req.Status}
	if v := strings.TrimSpace(req.Username); v != "" {
		up.Username = &v
	}
	if strings.TrimSpace(req.Password) != "" {
		pw := req.Password
		up.Password = &pw
	}
	email := strings.TrimSpace(req.Email)
	up.Email = &email
	phone := strings.TrimSpace(req.Phone)
	up.Phone = &phone
	return up
}

func roleWarning(userID int64, admin bool) string {
	if admin {
		return fmt.Sprintf("User %d was saved, but granting the admin role may not have taken effect.", userID)
	}
	return fmt.Sprintf("User %d was saved, but revoking the admin role may not have taken effect.", userID)
}

// Delete removes one user in the directory.
func (a *UserAdmin) Delete(ctx context.Context, id int64) error {
	if err := a.dir.DeleteUser(ctx, id); err != nil {
		a.log.WarnContext(ctx, "delete user failed", "op", "delete_user", "user_id", id, "error", err)
		return fmt.Errorf("delete user %d: %w", id, err)
	}
	a.log.InfoContext(ctx, "user deleted", "op", "delete_user", "user_id", id)
	return nil
}

// BatchDelete deletes each id independently; one failure does not stop the rest.
func (a *UserAdmin) BatchDelete(ctx context.Context, ids []int64) model.BatchResult {
	var res model.BatchResult
	for _, id := range ids {
		if err := a.Delete(ctx, id); err != nil {
			res.Failed++
			res.FailedIDs = append(res.FailedIDs, id)
			continue
		}
		res.Succeeded++
	}
	a.log.InfoContext(ctx, "batch delete finished", "op", "batch_delete", "succeeded", res.Succeeded, "failed", res.Failed)
	return res
}

// FixRoles asks the directory to give ROLE_USER to every user without a role.
func (a *UserAdmin) FixRoles(ctx context.Context) error {
	if err := a.dir.FixRoles(ctx); err != nil {
		a.log.ErrorContext(ctx, "fix roles failed", "op", "fix_roles", "error", err)
		return fmt.Errorf("fix roles: %w", err)
	}
	a.log.InfoContext(ctx, "fix roles finished", "op", "fix_roles")
	return nil
}

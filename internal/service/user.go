package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"github.com/target/todo-platform/internal/core"
	domainauth "github.com/target/todo-platform/internal/domain/auth"
	"github.com/target/todo-platform/internal/domain/model"
	apperrors "github.com/target/todo-platform/internal/errors"
)

// UserServiceOptions groups dependencies for UserService.
type UserServiceOptions struct {
	Repo       core.UserRepository // Required
	BcryptCost int                 // Optional: defaults to bcrypt.DefaultCost
	Logger     *slog.Logger        // Optional
}

// UserService owns user records and role assignments. It backs the user directory API.
type UserService struct {
	repo   core.UserRepository
	cost   int
	logger *slog.Logger
}

// NewUserService constructs a new UserService.
func NewUserService(opts UserServiceOptions) *UserService {
	if opts.Repo == nil {
		panic("UserRepository is required")
	}
	cost := opts.BcryptCost
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &UserService{
		repo:   opts.Repo,
		cost:   cost,
		logger: logger.With("component", "user_service"),
	}
}

// List returns every user.
func (s *UserService) List(ctx context.Context) ([]model.User, error) {
	users, err := s.repo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	return users, nil
}

// GetByID returns a user or a not_found AppError.
func (s *UserService) GetByID(ctx context.Context, id int64) (*model.User, error) {
	u, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get user %d: %w", id, err)
	}
	return u, nil
}

// GetByUsername returns a user by username or a not_found AppError.
func (s *UserService) GetByUsername(ctx context.Context, username string) (*model.User, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return nil, apperrors.ValidationField("username", "username is required")
	}
	u, err := s.repo.GetByUsername(ctx, username)
	if err != nil {
		return nil, fmt.Errorf("get user %q: %w", username, err)
	}
	return u, nil
}

// Exists reports whether username is taken.
func (s *UserService) Exists(ctx context.Context, username string) (bool, error) {
	ok, err := s.repo.ExistsByUsername(ctx, strings.TrimSpace(username))
	if err != nil {
		return false, fmt.Errorf("check username: %w", err)
	}
	return ok, nil
}

// Create validates, hashes the password and stores a new user with ROLE_USER.
func (s *UserService) Create(ctx context.Context, req model.CreateUserRequest) (*model.User, error) {
	if err := req.Validate(); err != nil {
		return nil, apperrors.Validation(err.Error())
	}
	username := strings.TrimSpace(req.Username)

	taken, err := s.repo.ExistsByUsername(ctx, username)
	if err != nil {
		return nil, fmt.Errorf("check username: %w", err)
	}
	if taken {
		return nil, apperrors.Conflictf("username %q already exists", username)
	}

	hash, err := HashSecret(req.Password, s.cost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	status := model.UserStatusActive
	if req.Status != nil {
		status = *req.Status
	}
	u := &model.User{
		Username: username,
		Password: hash,
		Email:    strings.TrimSpace(req.Email),
		Phone:    strings.TrimSpace(req.Phone),
		Status:   status,
	}

	created, err := s.repo.Create(ctx, u, domainauth.RoleUser)
	if err != nil {
		return nil, fmt.Errorf("create user: %w", err)
	}
	s.logger.InfoContext(ctx, "user created", "op", "create_user", "user_id", created.ID, "username", created.Username)
	return created, nil
}

// Update applies a partial update. A new password is hashed; an empty one is ignored.
func (s *UserService) Update(ctx context.Context, id int64, req model.UpdateUserRequest) (*model.User, error) {
	if err := req.Validate(); err != nil {
		return nil, apperrors.Validation(err.Error())
	}

	u, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get user %d: %w", id, err)
	}

	if req.Username != nil {
		name := strings.TrimSpace(*req.Username)
		if name != u.Username {
			taken, err := s.repo.ExistsByUsername(ctx, name)
			if err != nil {
				return nil, fmt.Errorf("check username: %w", err)
			}
			if taken {
				return nil, apperrors.Conflictf("username %q already exists", name)
			}
			u.Username = name
		}
	}
	if req.HasPassword() {
		hash, err := HashSecret(*req.Password, s.cost)
		if err != nil {
			return nil, fmt.Errorf("hash password: %w", err)
		}
		u.Password = hash
	}
	if req.Email != nil {
		u.Email = strings.TrimSpace(*req.Email)
	}
	if req.Phone != nil {
		u.Phone = strings.TrimSpace(*req.Phone)
	}
	if req.Status != nil {
		u.Status = *req.Status
	}

	updated, err := s.repo.Update(ctx, u)
	if err != nil {
		return nil, fmt.Errorf("update user %d: %w", id, err)
	}
	s.logger.InfoContext(ctx, "user updated", "op", "update_user", "user_id", id, "password_changed", req.HasPassword())
	return updated, nil
}

// Delete removes a user and its role links. Missing users yield not_found.
func (s *UserService) Delete(ctx context.Context, id int64) error {
	if _, err := s.repo.GetByID(ctx, id); err != nil {
		return fmt.Errorf("get user %d: %w", id, err)
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete user %d: %w", id, err)
	}
	s.logger.InfoContext(ctx, "user deleted", "op", "delete_user", "user_id", id)
	return nil
}

// BatchDelete deletes each id independently and reports the outcome.
func (s *UserService) BatchDelete(ctx context.Context, ids []int64) model.BatchResult {
	var res model.BatchResult
	for _, id := range ids {
		if err := s.Delete(ctx, id); err != nil {
			s.logger.WarnContext(ctx, "batch delete item failed", "op", "batch_delete", "user_id", id, "error", err)
			res.Failed++
			res.FailedIDs = append(res.FailedIDs, id)
			continue
		}
		res.Succeeded++
	}
	return res
}

// Stats returns the user count.
func (s *UserService) Stats(ctx context.Context) (model.UserStats, error) {
	n, err := s.repo.Count(ctx)
	if err != nil {
		return model.UserStats{}, fmt.Errorf("count users: %w", err)
	}
	return model.UserStats{Total: n, Message: fmt.Sprintf("%d users in total", n)}, nil
}

// Roles returns the role names held by a user. Missing users yield not_found.
func (s *UserService) Roles(ctx context.Context, id int64) ([]string, error) {
	if _, err := s.repo.GetByID(ctx, id); err != nil {
		return nil, fmt.Errorf("get user %d: %w", id, err)
	}
	roles, err := s.repo.Roles(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("list roles for user %d: %w", id, err)
	}
	if roles == nil {
		roles = []string{}
	}
	return roles, nil
}

// GrantAdmin links ROLE_ADMIN to the user. Granting twice is a no-op.
func (s *UserService) GrantAdmin(ctx context.Context, id int64) error {
	if _, err := s.repo.GetByID(ctx, id); err != nil {
		return fmt.Errorf("get user %d: %w", id, err)
	}
	if err := s.repo.AddRole(ctx, id, domainauth.RoleAdmin); err != nil {
		return fmt.Errorf("grant admin to user %d: %w", id, err)
	}
	s.logger.InfoContext(ctx, "admin role granted", "op", "grant_admin", "user_id", id)
	return nil
}

// RevokeAdmin unlinks ROLE_ADMIN from the user. Revoking a non-admin is a no-op.
func (s *UserService) RevokeAdmin(ctx context.Context, id int64) error {
	if _, err := s.repo.GetByID(ctx, id); err != nil {
		return fmt.Errorf("get user %d: %w", id, err)
	}
	if err := s.repo.RemoveRole(ctx, id, domainauth.RoleAdmin); err != nil {
		return fmt.Errorf("revoke admin from user %d: %w", id, err)
	}
	s.logger.InfoContext(ctx, "admin role revoked", "op", "revoke_admin", "user_id", id)
	return nil
}

// FixRoles gives ROLE_USER to every user that has no role and returns how many were fixed.
func (s *UserService) FixRoles(ctx context.Context) (int, error) {
	n, err := s.repo.AssignRoleToRoleless(ctx, domainauth.RoleUser)
	if err != nil {
		return 0, fmt.Errorf("fix roles: %w", err)
	}
	s.logger.InfoContext(ctx, "roles fixed", "op", "fix_roles", "fixed", n)
	return n, nil
}

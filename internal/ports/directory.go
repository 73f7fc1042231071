package ports

import (
	"context"

	"github.com/target/todo-platform/internal/domain/model"
)

// RoleDirectory is the role surface of the user directory.
type RoleDirectory interface {
	UserRoles(ctx context.Context, userID int64) ([]string, error)
	GrantAdmin(ctx context.Context, userID int64) error
	RevokeAdmin(ctx context.Context, userID int64) error
}

// UserDirectory owns user records and role assignments.
// Transport failures are reported wrapping domainauth.ErrRemoteUnavailable.
type UserDirectory interface {
	RoleDirectory

	ListUsers(ctx context.Context) ([]model.User, error)
	GetUser(ctx context.Context, id int64) (*model.User, error)
	CreateUser(ctx context.Context, req model.CreateUserRequest) (*model.User, error)
	UpdateUser(ctx context.Context, id int64, req model.UpdateUserRequest) (*model.User, error)
	DeleteUser(ctx context.Context, id int64) error
	FixRoles(ctx context.Context) error
}

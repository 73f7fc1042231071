package core

import (
	"context"

	"github.com/target/todo-platform/internal/domain/model"
)

// This file contains repository interface definitions (ports in hexagonal architecture).
// These interfaces define the contracts between the service layer and data layer.
// Service implementations should depend on these interfaces, not concrete implementations.

// UserRepository defines the interface for user and role data operations.
type UserRepository interface {
	List(ctx context.Context) ([]model.User, error)
	GetByID(ctx context.Context, id int64) (*model.User, error)
	GetByUsername(ctx context.Context, username string) (*model.User, error)
	ExistsByUsername(ctx context.Context, username string) (bool, error)
	// Create inserts the user and links the given initial roles in one transaction.
	Create(ctx context.Context, u *model.User, roles ...string) (*model.User, error)
	Update(ctx context.Context, u *model.User) (*model.User, error)
	// Delete removes the user's role links before the user row.
	Delete(ctx context.Context, id int64) error
	Count(ctx context.Context) (int, error)

	Roles(ctx context.Context, userID int64) ([]string, error)
	AddRole(ctx context.Context, userID int64, role string) error
	RemoveRole(ctx context.Context, userID int64, role string) error
	// AssignRoleToRoleless links role to every user without any role and returns how many were fixed.
	AssignRoleToRoleless(ctx context.Context, role string) (int, error)
}

// TodoRepository defines the interface for todo item data operations.
type TodoRepository interface {
	ListByUser(ctx context.Context, userID int64) ([]model.TodoItem, error)
	GetByID(ctx context.Context, id int64) (*model.TodoItem, error)
	Create(ctx context.Context, item *model.TodoItem) (*model.TodoItem, error)
	Update(ctx context.Context, item *model.TodoItem) (*model.TodoItem, error)
	Delete(ctx context.Context, id int64) error
}

// Package mocks provides mock implementations for testing the todo platform services.
//
// This package uses go.uber.org/mock (gomock) to generate type-safe mocks for our repository
// and port interfaces. The mocks are generated using go:generate directives and provide a
// fluent API for setting up test expectations.
//
// To regenerate mocks after interface changes, run:
//
//	go generate ./internal/mocks
//
// Usage in tests:
//
//	ctrl := gomock.NewController(t)
//	dir := mocks.NewMockUserDirectory(ctrl)
//	dir.EXPECT().UserRoles(gomock.Any(), int64(1)).Return([]string{"ROLE_ADMIN"}, nil)
package mocks

// Generate mock for UserDirectory interface from internal/ports package.
// This creates MockUserDirectory covering the role surface (UserRoles, GrantAdmin, RevokeAdmin)
// and the user surface (ListUsers, GetUser, CreateUser, UpdateUser, DeleteUser, FixRoles).
//go:generate go run go.uber.org/mock/mockgen@v0.6.0 -package=mocks -destination=user_directory_mock.go github.com/target/todo-platform/internal/ports UserDirectory

// Generate mock for CredentialStore interface from internal/ports package.
//go:generate go run go.uber.org/mock/mockgen@v0.6.0 -package=mocks -destination=credential_store_mock.go github.com/target/todo-platform/internal/ports CredentialStore

// Generate mock for UserRepository interface from internal/core package.
//go:generate go run go.uber.org/mock/mockgen@v0.6.0 -package=mocks -destination=user_repository_mock.go github.com/target/todo-platform/internal/core UserRepository

// Generate mock for TodoRepository interface from internal/core package.
//go:generate go run go.uber.org/mock/mockgen@v0.6.0 -package=mocks -destination=todo_repository_mock.go github.com/target/todo-platform/internal/core TodoRepository

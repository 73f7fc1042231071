// Package devseed creates the development user accounts through the user service.
package devseed

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/target/todo-platform/internal/domain/model"
	apperrors "github.com/target/todo-platform/internal/errors"
)

// Account is one user to seed.
type Account struct {
	Username string
	Password string
	Email    string
	Admin    bool
}

// DefaultAccounts mirrors the demo login table: an admin and a regular user sharing secret.
func DefaultAccounts(secret string) []Account {
	return []Account{
		{Username: "admin", Password: secret, Email: "admin@example.com", Admin: true},
		{Username: "user", Password: secret, Email: "user@example.com"},
	}
}

// Users is the subset of the user service the seeder needs.
type Users interface {
	GetByUsername(ctx context.Context, username string) (*model.User, error)
	Create(ctx context.Context, req model.CreateUserRequest) (*model.User, error)
	GrantAdmin(ctx context.Context, id int64) error
}

// Result counts what a run did.
type Result struct {
	Created  int
	Existing int
	Granted  int
}

// Run creates every missing account and makes sure admin accounts hold ROLE_ADMIN.
// Existing accounts keep their password.
func Run(ctx context.Context, users Users, accounts []Account, logger *slog.Logger) (Result, error) {
	var res Result
	if len(accounts) == 0 {
		return res, errors.New("no accounts to seed")
	}
	if logger == nil {
		logger = slog.Default()
	}
	for _, acct := range accounts {
		u, err := users.GetByUsername(ctx, acct.Username)
		switch {
		case err == nil:
			res.Existing++
			logger.InfoContext(ctx, "seed user exists", "username", acct.Username, "user_id", u.ID)
		case apperrors.IsNotFound(err):
			u, err = users.Create(ctx, model.CreateUserRequest{
				Username: acct.Username,
				Password: acct.Password,
				Email:    acct.Email,
			})
			if err != nil {
				return res, fmt.Errorf("create seed user %q: %w", acct.Username, err)
			}
			res.Created++
			logger.InfoContext(ctx, "seed user created", "username", acct.Username, "user_id", u.ID)
		default:
			return res, fmt.Errorf("look up seed user %q: %w", acct.Username, err)
		}

		if !acct.Admin {
			continue
		}
		if err := users.GrantAdmin(ctx, u.ID); err != nil {
			return res, fmt.Errorf("grant admin to %q: %w", acct.Username, err)
		}
		res.Granted++
	}
	return res, nil
}

package data

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/target/todo-platform/internal/core"
	"github.com/target/todo-platform/internal/data/pgxutil"
	domainauth "github.com/target/todo-platform/internal/domain/auth"
	"github.com/target/todo-platform/internal/domain/model"
	apperrors "github.com/target/todo-platform/internal/errors"
	"github.com/target/todo-platform/internal/ports"
)

var (
	_ core.UserRepository   = (*UserRepo)(nil)
	_ ports.CredentialStore = (*UserRepo)(nil)
)

// UserRepo provides database operations for users and their role links.
type UserRepo struct {
	DB           *sql.DB
	timeProvider TimeProvider
}

// NewUserRepo creates a new UserRepo with real time provider.
func NewUserRepo(db *sql.DB) *UserRepo {
	return &UserRepo{DB: db, timeProvider: &RealTimeProvider{}}
}

// NewUserRepoWithTimeProvider creates a new UserRepo with a custom time provider (useful for tests).
func NewUserRepoWithTimeProvider(db *sql.DB, tp TimeProvider) *UserRepo {
	return &UserRepo{DB: db, timeProvider: tp}
}

const (
	userColumns = `id, username, password, email, phone, status, created_at, updated_at`

	userListQuery          = `SELECT ` + userColumns + ` FROM users ORDER BY id`
	userGetByIDQuery       = `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	userGetByUsernameQuery = `SELECT ` + userColumns + ` FROM users WHERE username = $1`

	userInsertQuery = `
		INSERT INTO users (username, password, email, phone, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $6)
		RETURNING ` + userColumns

	userUpdateQuery = `
		UPDATE users
		SET username = $2, password = $3, email = $4, phone = $5, status = $6, updated_at = $7
		WHERE id = $1
		RETURNING ` + userColumns

	// ensureRoleQuery creates the role row on first use so grants never depend on seed order.
	ensureRoleQuery = `INSERT INTO roles (name) VALUES ($1) ON CONFLICT (name) DO NOTHING`

	linkRoleQuery = `
		INSERT INTO user_roles (user_id, role_id)
		SELECT $1, r.id FROM roles r WHERE r.name = $2
		ON CONFLICT DO NOTHING`

	unlinkRoleQuery = `
		DELETE FROM user_roles ur
		USING roles r
		WHERE ur.role_id = r.id AND ur.user_id = $1 AND r.name = $2`

	userRolesQuery = `
		SELECT r.name
		FROM user_roles ur
		JOIN roles r ON r.id = ur.role_id
		WHERE ur.user_id = $1
		ORDER BY r.name`

	fixRolelessQuery = `
		INSERT INTO user_roles (user_id, role_id)
		SELECT u.id, r.id
		FROM users u
		JOIN roles r ON r.name = $1
		WHERE NOT EXISTS (SELECT 1 FROM user_roles ur WHERE ur.user_id = u.id)`
)

// List returns every user ordered by id.
func (r *UserRepo) List(ctx context.Context) ([]model.User, error) {
	var out []model.User
	err := pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		rows, err := conn.Query(ctx, userListQuery)
		if err != nil {
			return err
		}
		out, err = pgx.CollectRows(rows, pgx.RowToStructByName[model.User])
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", apperrors.MapDBError(err))
	}
	return out, nil
}

// GetByID retrieves a user by id.
func (r *UserRepo) GetByID(ctx context.Context, id int64) (*model.User, error) {
	u, err := r.getOne(ctx, userGetByIDQuery, id)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperrors.NotFoundf("user %d not found", id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user by ID: %w", apperrors.MapDBError(err))
	}
	return u, nil
}

// GetByUsername retrieves a user by exact username.
func (r *UserRepo) GetByUsername(ctx context.Context, username string) (*model.User, error) {
	u, err := r.getOne(ctx, userGetByUsernameQuery, username)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperrors.NotFoundf("user %q not found", username)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user by username: %w", apperrors.MapDBError(err))
	}
	return u, nil
}

// FindCredentials serves the login path straight from the users table.
func (r *UserRepo) FindCredentials(ctx context.Context, username string) (domainauth.StoredCredential, error) {
	u, err := r.getOne(ctx, userGetByUsernameQuery, username)
	if errors.Is(err, pgx.ErrNoRows) {
		return domainauth.StoredCredential{}, domainauth.ErrNotFound
	}
	if err != nil {
		return domainauth.StoredCredential{}, fmt.Errorf("find credentials: %w", err)
	}
	return domainauth.StoredCredential{UserID: u.ID, Username: u.Username, Secret: u.Password}, nil
}

// ExistsByUsername reports whether the username is taken.
func (r *UserRepo) ExistsByUsername(ctx context.Context, username string) (bool, error) {
	var exists bool
	err := r.DB.QueryRowContext(ctx, `SELECT EXISTS(SELECT 1 FROM users WHERE username = $1)`, username).
		Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check username: %w", apperrors.MapDBError(err))
	}
	return exists, nil
}

// Create inserts the user and links the initial roles in one transaction.
func (r *UserRepo) Create(ctx context.Context, u *model.User, roles ...string) (*model.User, error) {
	if u == nil {
		return nil, errors.New("user is required")
	}

	now := r.timeProvider.Now().UTC()
	var out model.User
	err := pgxutil.WithPgxTx(ctx, r.DB, pgxutil.TxConfig{Fn: func(tx pgx.Tx) error {
		rows, err := tx.Query(ctx, userInsertQuery,
			strings.TrimSpace(u.Username), u.Password, u.Email, u.Phone, u.Status, now)
		if err != nil {
			return err
		}
		out, err = pgx.CollectOneRow(rows, pgx.RowToStructByName[model.User])
		if err != nil {
			return err
		}
		for _, role := range roles {
			if err := linkRole(ctx, tx, out.ID, role); err != nil {
				return err
			}
		}
		return nil
	}})
	if err != nil {
		return nil, fmt.Errorf("failed to create user: %w", apperrors.MapDBError(err))
	}
	return &out, nil
}

// Update writes every mutable column of u.
func (r *UserRepo) Update(ctx context.Context, u *model.User) (*model.User, error) {
	if u == nil {
		return nil, errors.New("user is required")
	}

	var out model.User
	err := pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		rows, err := conn.Query(ctx, userUpdateQuery,
			u.ID, strings.TrimSpace(u.Username), u.Password, u.Email, u.Phone, u.Status,
			r.timeProvider.Now().UTC())
		if err != nil {
			return err
		}
		out, err = pgx.CollectOneRow(rows, pgx.RowToStructByName[model.User])
		return err
	})
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperrors.NotFoundf("user %d not found", u.ID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to update user: %w", apperrors.MapDBError(err))
	}
	return &out, nil
}

// Delete removes the user's role links and then the user row.
func (r *UserRepo) Delete(ctx context.Context, id int64) error {
	var deleted int64
	err := pgxutil.WithPgxTx(ctx, r.DB, pgxutil.TxConfig{Fn: func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `DELETE FROM user_roles WHERE user_id = $1`, id); err != nil {
			return err
		}
		ct, err := tx.Exec(ctx, `DELETE FROM users WHERE id = $1`, id)
		if err != nil {
			return err
		}
		deleted = ct.RowsAffected()
		return nil
	}})
	if err != nil {
		return fmt.Errorf("failed to delete user: %w", apperrors.MapDBError(err))
	}
	if deleted == 0 {
		return apperrors.NotFoundf("user %d not found", id)
	}
	return nil
}

// Count returns the number of users.
func (r *UserRepo) Count(ctx context.Context) (int, error) {
	var n int
	if err := r.DB.QueryRowContext(ctx, `SELECT count(*) FROM users`).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count users: %w", apperrors.MapDBError(err))
	}
	return n, nil
}

// Roles returns the role names linked to userID, sorted.
func (r *UserRepo) Roles(ctx context.Context, userID int64) ([]string, error) {
	var out []string
	err := pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		rows, err := conn.Query(ctx, userRolesQuery, userID)
		if err != nil {
			return err
		}
		out, err = pgx.CollectRows(rows, pgx.RowTo[string])
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list roles: %w", apperrors.MapDBError(err))
	}
	return out, nil
}

// AddRole links role to userID. Granting a held role is a no-op.
func (r *UserRepo) AddRole(ctx context.Context, userID int64, role string) error {
	err := pgxutil.WithPgxTx(ctx, r.DB, pgxutil.TxConfig{Fn: func(tx pgx.Tx) error {
		return linkRole(ctx, tx, userID, role)
	}})
	if err != nil {
		return fmt.Errorf("failed to add role %s: %w", role, apperrors.MapDBError(err))
	}
	return nil
}

// RemoveRole unlinks role from userID. Revoking a role that is not held is a no-op.
func (r *UserRepo) RemoveRole(ctx context.Context, userID int64, role string) error {
	err := pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		_, err := conn.Exec(ctx, unlinkRoleQuery, userID, role)
		return err
	})
	if err != nil {
		return fmt.Errorf("failed to remove role %s: %w", role, apperrors.MapDBError(err))
	}
	return nil
}

// AssignRoleToRoleless links role to every user without any role.
func (r *UserRepo) AssignRoleToRoleless(ctx context.Context, role string) (int, error) {
	var fixed int64
	err := pgxutil.WithPgxTx(ctx, r.DB, pgxutil.TxConfig{Fn: func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, ensureRoleQuery, role); err != nil {
			return err
		}
		ct, err := tx.Exec(ctx, fixRolelessQuery, role)
		if err != nil {
			return err
		}
		fixed = ct.RowsAffected()
		return nil
	}})
	if err != nil {
		return 0, fmt.Errorf("failed to fix roles: %w", apperrors.MapDBError(err))
	}
	return int(fixed), nil
}

func (r *UserRepo) getOne(ctx context.Context, query string, arg any) (*model.User, error) {
	var out model.User
	err := pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		rows, err := conn.Query(ctx, query, arg)
		if err != nil {
			return err
		}
		out, err = pgx.CollectOneRow(rows, pgx.RowToStructByName[model.User])
		return err
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func linkRole(ctx context.Context, tx pgx.Tx, userID int64, role string) error {
	if _, err := tx.Exec(ctx, ensureRoleQuery, role); err != nil {
		return err
	}
	_, err := tx.Exec(ctx, linkRoleQuery, userID, role)
	return err
}

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
	"github.com/target/todo-platform/internal/domain/model"
	apperrors "github.com/target/todo-platform/internal/errors"
)

var _ core.TodoRepository = (*TodoRepo)(nil)

// TodoRepo provides database operations for todo items.
type TodoRepo struct {
	DB           *sql.DB
	timeProvider TimeProvider
}

// NewTodoRepo creates a new TodoRepo with real time provider.
func NewTodoRepo(db *sql.DB) *TodoRepo {
	return &TodoRepo{DB: db, timeProvider: &RealTimeProvider{}}
}

// NewTodoRepoWithTimeProvider creates a new TodoRepo with a custom time provider (useful for tests).
func NewTodoRepoWithTimeProvider(db *sql.DB, tp TimeProvider) *TodoRepo {
	return &TodoRepo{DB: db, timeProvider: tp}
}

const (
	todoColumns = `id, title, description, completed, user_id, created_at, updated_at`

	todoListByUserQuery = `
		SELECT ` + todoColumns + `
		FROM todo_items
		WHERE user_id = $1
		ORDER BY created_at DESC, id DESC`

	todoGetByIDQuery = `SELECT ` + todoColumns + ` FROM todo_items WHERE id = $1`

	todoInsertQuery = `
		INSERT INTO todo_items (title, description, completed, user_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $5)
		RETURNING ` + todoColumns

	todoUpdateQuery = `
		UPDATE todo_items
		SET title = $2, description = $3, completed = $4, updated_at = $5
		WHERE id = $1
		RETURNING ` + todoColumns
)

// ListByUser returns the owner's items, newest first.
func (r *TodoRepo) ListByUser(ctx context.Context, userID int64) ([]model.TodoItem, error) {
	var out []model.TodoItem
	err := pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		rows, err := conn.Query(ctx, todoListByUserQuery, userID)
		if err != nil {
			return err
		}
		out, err = pgx.CollectRows(rows, pgx.RowToStructByName[model.TodoItem])
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list todo items: %w", apperrors.MapDBError(err))
	}
	return out, nil
}

// GetByID retrieves an item by id regardless of owner.
func (r *TodoRepo) GetByID(ctx context.Context, id int64) (*model.TodoItem, error) {
	item, err := r.collectOne(ctx, todoGetByIDQuery, id)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperrors.NotFoundf("todo %d not found", id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get todo item: %w", apperrors.MapDBError(err))
	}
	return item, nil
}

// Create inserts a new item.
func (r *TodoRepo) Create(ctx context.Context, item *model.TodoItem) (*model.TodoItem, error) {
	if item == nil {
		return nil, errors.New("todo item is required")
	}
	out, err := r.collectOne(ctx, todoInsertQuery,
		strings.TrimSpace(item.Title), item.Description, item.Completed, item.UserID,
		r.timeProvider.Now().UTC())
	if err != nil {
		return nil, fmt.Errorf("failed to create todo item: %w", apperrors.MapDBError(err))
	}
	return out, nil
}

// Update rewrites the editable columns of an existing item. Ownership never changes.
func (r *TodoRepo) Update(ctx context.Context, item *model.TodoItem) (*model.TodoItem, error) {
	if item == nil {
		return nil, errors.New("todo item is required")
	}
	out, err := r.collectOne(ctx, todoUpdateQuery,
		item.ID, strings.TrimSpace(item.Title), item.Description, item.Completed,
		r.timeProvider.Now().UTC())
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperrors.NotFoundf("todo %d not found", item.ID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to update todo item: %w", apperrors.MapDBError(err))
	}
	return out, nil
}

// Delete removes an item.
func (r *TodoRepo) Delete(ctx context.Context, id int64) error {
	var rows int64
	err := pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		ct, err := conn.Exec(ctx, `DELETE FROM todo_items WHERE id = $1`, id)
		if err != nil {
			return err
		}
		rows = ct.RowsAffected()
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to delete todo item: %w", apperrors.MapDBError(err))
	}
	if rows == 0 {
		return apperrors.NotFoundf("todo %d not found", id)
	}
	return nil
}

func (r *TodoRepo) collectOne(ctx context.Context, query string, args ...any) (*model.TodoItem, error) {
	var out model.TodoItem
	err := pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		rows, err := conn.Query(ctx, query, args...)
		if err != nil {
			return err
		}
		out, err = pgx.CollectOneRow(rows, pgx.RowToStructByName[model.TodoItem])
		return err
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/target/todo-platform/internal/core"
	domainauth "github.com/target/todo-platform/internal/domain/auth"
	"github.com/target/todo-platform/internal/domain/model"
	apperrors "github.com/target/todo-platform/internal/errors"
)

// TodoServiceOptions groups dependencies for TodoService.
type TodoServiceOptions struct {
	Repo   core.TodoRepository // Required
	Logger *slog.Logger        // Optional
}

// TodoService manages todo items scoped to their owner.
// Items owned by someone else are reported as not found.
type TodoService struct {
	repo   core.TodoRepository
	logger *slog.Logger
}

// NewTodoService constructs a new TodoService.
func NewTodoService(opts TodoServiceOptions) *TodoService {
	if opts.Repo == nil {
		panic("TodoRepository is required")
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &TodoService{repo: opts.Repo, logger: logger.With("component", "todo_service")}
}

// List returns the owner's items.
func (s *TodoService) List(ctx context.Context, owner domainauth.Principal) ([]model.TodoItem, error) {
	items, err := s.repo.ListByUser(ctx, owner.UserID)
	if err != nil {
		return nil, fmt.Errorf("list todos for user %d: %w", owner.UserID, err)
	}
	if items == nil {
		items = []model.TodoItem{}
	}
	return items, nil
}

// Get returns one of the owner's items.
func (s *TodoService) Get(ctx context.Context, owner domainauth.Principal, id int64) (*model.TodoItem, error) {
	item, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get todo %d: %w", id, err)
	}
	if item.UserID != owner.UserID {
		s.logger.WarnContext(ctx, "foreign todo access", "op", "get_todo", "user_id", owner.UserID, "todo_id", id)
		return nil, apperrors.NotFoundf("todo %d not found", id)
	}
	return item, nil
}

// Create stores a new item for the owner.
func (s *TodoService) Create(ctx context.Context, owner domainauth.Principal, in model.TodoInput) (*model.TodoItem, error) {
	if err := in.Validate(); err != nil {
		return nil, apperrors.ValidationField("title", err.Error())
	}
	item, err := s.repo.Create(ctx, &model.TodoItem{
		Title:       strings.TrimSpace(in.Title),
		Description: in.Description,
		Completed:   in.Completed,
		UserID:      owner.UserID,
	})
	if err != nil {
		return nil, fmt.Errorf("create todo: %w", err)
	}
	s.logger.InfoContext(ctx, "todo created", "op", "create_todo", "user_id", owner.UserID, "todo_id", item.ID)
	return item, nil
}

// Update replaces the editable fields of one of the owner's items.
func (s *TodoService) Update(ctx context.Context, owner domainauth.Principal, id int64, in model.TodoInput) (*model.TodoItem, error) {
	if err := in.Validate(); err != nil {
		return nil, apperrors.ValidationField("title", err.Error())
	}
	item, err := s.Get(ctx, owner, id)
	if err != nil {
		return nil, err
	}
	item.Title = strings.TrimSpace(in.Title)
	item.Description = in.Description
	item.Completed = in.Completed
	return s.save(ctx, owner, item)
}

// BatchUpdate saves each input in order: inputs with an id update an owned item,
// inputs without one create a new item. It stops at the first failure and returns
// how many were saved before it.
func (s *TodoService) BatchUpdate(ctx context.Context, owner domainauth.Principal, inputs []model.TodoInput) (int, error) {
	saved := 0
	for _, in := range inputs {
		var err error
		if in.ID == 0 {
			_, err = s.Create(ctx, owner, in)
		} else {
			_, err = s.Update(ctx, owner, in.ID, in)
		}
		if err != nil {
			return saved, fmt.Errorf("batch update item %d: %w", in.ID, err)
		}
		saved++
	}
	return saved, nil
}

// Toggle flips the completed flag of one of the owner's items.
func (s *TodoService) Toggle(ctx context.Context, owner domainauth.Principal, id int64) (*model.TodoItem, error) {
	item, err := s.Get(ctx, owner, id)
	if err != nil {
		return nil, err
	}
	item.Completed = !item.Completed
	return s.save(ctx, owner, item)
}

// Delete removes one of the owner's items.
func (s *TodoService) Delete(ctx context.Context, owner domainauth.Principal, id int64) error {
	if _, err := s.Get(ctx, owner, id); err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete todo %d: %w", id, err)
	}
	s.logger.InfoContext(ctx, "todo deleted", "op", "delete_todo", "user_id", owner.UserID, "todo_id", id)
	return nil
}

// Stats counts the owner's completed and pending items.
func (s *TodoService) Stats(ctx context.Context, owner domainauth.Principal) (model.TodoStats, error) {
	items, err := s.List(ctx, owner)
	if err != nil {
		return model.TodoStats{}, err
	}
	return model.NewTodoStats(items), nil
}

func (s *TodoService) save(ctx context.Context, owner domainauth.Principal, item *model.TodoItem) (*model.TodoItem, error) {
	updated, err := s.repo.Update(ctx, item)
	if err != nil {
		return nil, fmt.Errorf("update todo %d: %w", item.ID, err)
	}
	s.logger.InfoContext(ctx, "todo updated", "op", "update_todo", "user_id", owner.UserID, "todo_id", item.ID)
	return updated, nil
}

package model

import (
	"errors"
	"strings"
	"time"
	"unicode/utf8"
)

// maxTitleLen is the maximum allowed length for todo titles in characters.
const maxTitleLen = 200

// TodoItem is a todo entry owned by exactly one user.
type TodoItem struct {
	ID          int64     `json:"id"          db:"id"`
	Title       string    `json:"title"       db:"title"`
	Description string    `json:"description" db:"description"`
	Completed   bool      `json:"completed"   db:"completed"`
	UserID      int64     `json:"user_id"     db:"user_id"`
	CreatedAt   time.Time `json:"created_at"  db:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"  db:"updated_at"`
}

// TodoInput carries the client-editable fields of a todo item.
// ID is only honoured by batch updates.
type TodoInput struct {
	ID          int64  `json:"id,omitempty"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Completed   bool   `json:"completed"`
}

// Validate validates the TodoInput fields.
func (in *TodoInput) Validate() error {
	if strings.TrimSpace(in.Title) == "" {
		return errors.New("title is required and cannot be empty")
	}
	if utf8.RuneCountInString(in.Title) > maxTitleLen {
		return errors.New("title cannot exceed 200 characters")
	}
	return nil
}

// TodoStats summarises one user's todo list.
type TodoStats struct {
	Total     int `json:"total"`
	Completed int `json:"completed"`
	Pending   int `json:"pending"`
}

// NewTodoStats counts completed and pending items.
func NewTodoStats(items []TodoItem) TodoStats {
	stats := TodoStats{Total: len(items)}
	for _, it := range items {
		if it.Completed {
			stats.Completed++
		}
	}
	stats.Pending = stats.Total - stats.Completed
	return stats
}

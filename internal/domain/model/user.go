// Package model defines the core data types shared by the todo platform services.
package model

import (
	"errors"
	"strings"
	"time"
	"unicode/utf8"
)

const (
	// maxUsernameLen is the maximum allowed length for usernames in characters.
	maxUsernameLen = 50

	// UserStatusActive is the default status for new users.
	UserStatusActive = 1
)

// User is a user record owned by the user directory.
// Password holds the stored representation (hash or legacy plaintext) and is never serialized.
type User struct {
	ID        int64     `json:"id"         db:"id"`
	Username  string    `json:"username"   db:"username"`
	Password  string    `json:"-"          db:"password"`
	Email     string    `json:"email"      db:"email"`
	Phone     string    `json:"phone"      db:"phone"`
	Status    int       `json:"status"     db:"status"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// CreateUserRequest represents a request to create a new user.
type CreateUserRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
	Email    string `json:"email,omitempty"`
	Phone    string `json:"phone,omitempty"`
	Status   *int   `json:"status,omitempty"`
}

// Validate validates the CreateUserRequest fields.
func (r *CreateUserRequest) Validate() error {
	if strings.TrimSpace(r.Username) == "" {
		return errors.New("username is required and cannot be empty")
	}
	if utf8.RuneCountInString(r.Username) > maxUsernameLen {
		return errors.New("username cannot exceed 50 characters")
	}
	if strings.TrimSpace(r.Password) == "" {
		return errors.New("password is required and cannot be empty")
	}
	return nil
}

// UpdateUserRequest represents a partial update of an existing user.
// Nil fields are left unchanged; an empty password is ignored.
type UpdateUserRequest struct {
	Username *string `json:"username,omitempty"`
	Password *string `json:"password,omitempty"`
	Email    *string `json:"email,omitempty"`
	Phone    *string `json:"phone,omitempty"`
	Status   *int    `json:"status,omitempty"`
}

// Validate validates the UpdateUserRequest fields.
func (r *UpdateUserRequest) Validate() error {
	if r.Username != nil {
		if strings.TrimSpace(*r.Username) == "" {
			return errors.New("username cannot be empty")
		}
		if utf8.RuneCountInString(*r.Username) > maxUsernameLen {
			return errors.New("username cannot exceed 50 characters")
		}
	}
	return nil
}

// HasPassword reports whether the update carries a new password.
func (r *UpdateUserRequest) HasPassword() bool {
	return r.Password != nil && strings.TrimSpace(*r.Password) != ""
}

// UserStats summarises the user table.
type UserStats struct {
	Total   int    `json:"total"`
	Message string `json:"message"`
}

// BatchResult reports the outcome of a batch operation over ids.
type BatchResult struct {
	Succeeded int     `json:"succeeded"`
	Failed    int     `json:"failed"`
	FailedIDs []int64 `json:"failed_ids,omitempty"`
}

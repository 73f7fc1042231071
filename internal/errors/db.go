package errors

import (
	"context"
	"errors"
	"regexp"
	"strings"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// constraintMessages maps schema constraints to the message clients see.
var constraintMessages = map[string]struct {
	field   string
	message string
}{
	"users_username_key":      {field: "username", message: "Username already exists."},
	"roles_name_key":          {field: "name", message: "Role already exists."},
	"user_roles_pkey":         {message: "User already has this role."},
	"user_roles_user_id_fkey": {message: "The referenced user does not exist."},
	"user_roles_role_id_fkey": {message: "The referenced role does not exist."},
	"todo_items_user_id_fkey": {message: "The owning user does not exist."},
}

// reKeyField pulls the column out of "Key (username)=(alice) already exists.".
var reKeyField = regexp.MustCompile(`Key \(([^)]+)\)=`)

// MapDBError turns driver errors into AppErrors; anything unrecognized is
// returned unchanged.
func MapDBError(err error) error {
	if err == nil {
		return nil
	}
	var appErr *AppError
	if errors.As(err, &appErr) {
		return err
	}

	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return &AppError{Code: ErrCodeTimeout, Message: "Request timed out. Please try again.", Cause: err}
	case errors.Is(err, context.Canceled):
		return &AppError{Code: ErrCodeCanceled, Message: "Request was canceled.", Cause: err}
	case errors.Is(err, pgx.ErrNoRows):
		return &AppError{Code: ErrCodeNotFound, Message: "Resource not found", Cause: err}
	}

	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return err
	}

	code := ErrCodeInternal
	message := "A database error occurred. Please try again."
	switch pgErr.Code {
	case pgerrcode.UniqueViolation:
		code, message = ErrCodeConflict, "This value already exists. Please choose a different one."
	case pgerrcode.ForeignKeyViolation:
		code, message = ErrCodeForeignKey, "The operation references a record that does not exist or is still in use."
	case pgerrcode.CheckViolation:
		code, message = ErrCodeValidation, "This field has an invalid value."
	case pgerrcode.NotNullViolation, pgerrcode.StringDataRightTruncationDataException:
		code, message = ErrCodeValidation, "This field is required or too long."
	}

	out := &AppError{Code: code, Message: message, Field: pgField(pgErr), Cause: pgErr}
	if code == ErrCodeInternal {
		out.Field = ""
		return out
	}
	if known, ok := constraintMessages[pgErr.ConstraintName]; ok {
		out.Message = known.message
		if known.field != "" {
			out.Field = known.field
		}
	}
	return out
}

func pgField(pgErr *pgconn.PgError) string {
	if pgErr.ColumnName != "" {
		return pgErr.ColumnName
	}
	// Multi-column keys name no single field.
	if m := reKeyField.FindStringSubmatch(pgErr.Detail); len(m) == 2 && !strings.Contains(m[1], ",") {
		return m[1]
	}
	return ""
}

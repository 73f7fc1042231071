package errors

import (
	"errors"
	"fmt"
	"testing"
)

func TestAppError_Error(t *testing.T) {
	if got := NotFound("user 7 not found").Error(); got != "user 7 not found" {
		t.Errorf("Error() = %q", got)
	}
	err := Wrap(errors.New("dial tcp: refused"), ErrCodeInternal, "load roles")
	if got := err.Error(); got != "load roles: dial tcp: refused" {
		t.Errorf("Error() = %q", got)
	}
}

func TestConstructors(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want ErrorCode
		is   func(error) bool
	}{
		{"not found", NotFound("x"), ErrCodeNotFound, IsNotFound},
		{"not found f", NotFoundf("todo %d", 1), ErrCodeNotFound, IsNotFound},
		{"conflict", Conflict("x"), ErrCodeConflict, IsConflict},
		{"conflict f", Conflictf("user %q", "bob"), ErrCodeConflict, IsConflict},
		{"validation", Validation("x"), ErrCodeValidation, IsValidation},
		{"validation field", ValidationField("title", "required"), ErrCodeValidation, IsValidation},
		{"foreign key", ForeignKey("x"), ErrCodeForeignKey, IsForeignKey},
		{"internal", Internal("x"), ErrCodeInternal, IsInternal},
		{"timeout", New(ErrCodeTimeout, "x"), ErrCodeTimeout, IsTimeout},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := GetCode(tt.err); got != tt.want {
				t.Errorf("GetCode() = %q, want %q", got, tt.want)
			}
			if !tt.is(tt.err) {
				t.Error("predicate should match")
			}
			if !tt.is(fmt.Errorf("outer: %w", tt.err)) {
				t.Error("predicate should match through wrapping")
			}
		})
	}
}

func TestPredicatesRejectOtherKinds(t *testing.T) {
	err := Conflict("taken")
	if IsNotFound(err) || IsValidation(err) || IsForeignKey(err) {
		t.Error("conflict matched another kind")
	}
	if IsNotFound(errors.New("plain")) || IsNotFound(nil) {
		t.Error("non-AppError matched")
	}
	if GetCode(errors.New("plain")) != "" {
		t.Error("plain error should have no code")
	}
}

func TestGetField(t *testing.T) {
	if got := GetField(ValidationField("id", "must be numeric")); got != "id" {
		t.Errorf("GetField() = %q, want id", got)
	}
	if got := GetField(NotFound("x")); got != "" {
		t.Errorf("GetField() = %q, want empty", got)
	}
}

func TestWrap(t *testing.T) {
	if Wrap(nil, ErrCodeInternal, "x") != nil {
		t.Fatal("Wrap(nil) should be nil")
	}
	sentinel := errors.New("not found upstream")
	err := Wrap(sentinel, ErrCodeNotFound, "user 9 not found")
	if !errors.Is(err, sentinel) {
		t.Error("wrapped error should unwrap to its cause")
	}
	if !IsNotFound(err) {
		t.Error("wrapped error should carry its code")
	}
}

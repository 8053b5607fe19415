package types

import (
	"errors"
	"testing"
)

func TestErrorFormatting(t *testing.T) {
	err := NewError(ErrTimeout, "skill execution exceeded budget").WithSkill("analysis")
	if err.Error() != "[TIMEOUT] skill execution exceeded budget" {
		t.Fatalf("unexpected message: %s", err.Error())
	}

	cause := errors.New("deadline exceeded")
	wrapped := NewError(ErrExecutionError, "execute failed").WithCause(cause)
	if !errors.Is(wrapped, cause) {
		t.Fatalf("expected errors.Is to match the cause")
	}
}

func TestGetErrorCode(t *testing.T) {
	if code := GetErrorCode(NewError(ErrNoResults, "stream produced nothing")); code != ErrNoResults {
		t.Fatalf("unexpected code: %s", code)
	}
	if code := GetErrorCode(errors.New("plain")); code != "" {
		t.Fatalf("plain error should have empty code, got %s", code)
	}
	if !IsErrorCode(NewError(ErrCancelled, "cancelled"), ErrCancelled) {
		t.Fatalf("IsErrorCode should match")
	}
}

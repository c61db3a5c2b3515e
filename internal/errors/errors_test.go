// Package errors tests for error code definitions and status mapping.
package errors

import (
	"errors"
	"fmt"
	"strings"
	"testing"
)

// TestErrorCodeValues verifies all error codes map to a distinct status.
func TestErrorCodeValues(t *testing.T) {
	tests := []struct {
		code   ErrorCode
		status int32
	}{
		{ErrInvalid, StatusInvalidInput},
		{ErrInvalidUTF8, StatusInvalidUTF8},
		{ErrNotInitialized, StatusNotInitialized},
		{ErrStoreInit, StatusStoreInit},
		{ErrNotFound, StatusNotFound},
		{ErrOutOfBounds, StatusOutOfBounds},
		{ErrNullHandle, StatusNullHandle},
		{ErrStaleHandle, StatusStaleHandle},
		{ErrWrongKind, StatusWrongKind},
		{ErrBorrowed, StatusBorrowed},
		{ErrDuplicate, StatusDuplicate},
		{ErrDatabase, StatusDatabase},
		{ErrSyncFailed, StatusSyncFailed},
		{ErrCallbackFailed, StatusCallbackFailed},
		{ErrInternal, StatusInternal},
	}

	seen := make(map[int32]ErrorCode)
	for _, tt := range tests {
		t.Run(string(tt.code), func(t *testing.T) {
			if tt.code == "" {
				t.Fatal("empty error code")
			}
			got := New(tt.code, "boom").Status()
			if got != tt.status {
				t.Errorf("Status() = %d, want %d", got, tt.status)
			}
			if prev, dup := seen[got]; dup {
				t.Errorf("status %d shared by %s and %s", got, prev, tt.code)
			}
			seen[got] = tt.code
		})
	}
}

func TestAppError_Error(t *testing.T) {
	err := New(ErrNotFound, "no item")
	if err.Error() != "[NOT_FOUND] no item" {
		t.Errorf("Error() = %q", err.Error())
	}

	wrapped := Wrap(ErrDatabase, "insert failed", errors.New("disk full"))
	if !strings.Contains(wrapped.Error(), "disk full") {
		t.Errorf("wrapped error should include cause: %q", wrapped.Error())
	}
	if !errors.Is(wrapped, wrapped.Err) {
		t.Error("Unwrap() should expose the cause")
	}
}

func TestStatusOf(t *testing.T) {
	if StatusOf(nil) != StatusOK {
		t.Error("nil should be StatusOK")
	}
	if StatusOf(errors.New("plain")) != StatusInternal {
		t.Error("plain errors should be StatusInternal")
	}

	inner := New(ErrOutOfBounds, "index 3 of 2")
	outer := fmt.Errorf("entry at: %w", inner)
	if StatusOf(outer) != StatusOutOfBounds {
		t.Errorf("StatusOf(wrapped) = %d, want %d", StatusOf(outer), StatusOutOfBounds)
	}
	if !Is(outer, ErrOutOfBounds) {
		t.Error("Is should see through fmt wrapping")
	}
}

func TestIsContractViolation(t *testing.T) {
	for _, code := range []ErrorCode{ErrNullHandle, ErrStaleHandle, ErrWrongKind} {
		if !IsContractViolation(New(code, "x")) {
			t.Errorf("%s should be a contract violation", code)
		}
	}
	for _, code := range []ErrorCode{ErrOutOfBounds, ErrBorrowed, ErrInvalidUTF8} {
		if IsContractViolation(New(code, "x")) {
			t.Errorf("%s should not be a contract violation", code)
		}
	}
	if IsContractViolation(nil) {
		t.Error("nil is not a violation")
	}
}

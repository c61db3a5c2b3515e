// Package errors provides error codes and status values for the C boundary.
package errors

import (
	stderrors "errors"
	"fmt"
)

// ErrorCode represents a unique error code that can be bridged to foreign callers.
type ErrorCode string

const (
	// General errors
	ErrInternal       ErrorCode = "INTERNAL_ERROR"
	ErrInvalid        ErrorCode = "INVALID_INPUT"
	ErrInvalidUTF8    ErrorCode = "INVALID_UTF8"
	ErrNotInitialized ErrorCode = "NOT_INITIALIZED"
	ErrNotFound       ErrorCode = "NOT_FOUND"
	ErrDuplicate      ErrorCode = "DUPLICATE"

	// Store errors
	ErrStoreInit ErrorCode = "STORE_INIT_FAILED"
	ErrDatabase  ErrorCode = "DATABASE_ERROR"

	// Handle and collection errors
	ErrOutOfBounds ErrorCode = "OUT_OF_BOUNDS"
	ErrNullHandle  ErrorCode = "NULL_HANDLE"
	ErrStaleHandle ErrorCode = "STALE_HANDLE"
	ErrWrongKind   ErrorCode = "WRONG_KIND"
	ErrBorrowed    ErrorCode = "BORROWED"

	// Sync and callback errors
	ErrSyncFailed     ErrorCode = "SYNC_FAILED"
	ErrCallbackFailed ErrorCode = "CALLBACK_FAILED"
)

// Status values returned by every C entry point. 0 is success.
const (
	StatusOK             int32 = 0
	StatusInvalidInput   int32 = 1
	StatusInvalidUTF8    int32 = 2
	StatusNotInitialized int32 = 3
	StatusStoreInit      int32 = 4
	StatusNotFound       int32 = 5
	StatusOutOfBounds    int32 = 6
	StatusNullHandle     int32 = 7
	StatusStaleHandle    int32 = 8
	StatusWrongKind      int32 = 9
	StatusBorrowed       int32 = 10
	StatusDuplicate      int32 = 11
	StatusDatabase       int32 = 12
	StatusSyncFailed     int32 = 13
	StatusCallbackFailed int32 = 14
	StatusInternal       int32 = 99
)

var statusByCode = map[ErrorCode]int32{
	ErrInvalid:        StatusInvalidInput,
	ErrInvalidUTF8:    StatusInvalidUTF8,
	ErrNotInitialized: StatusNotInitialized,
	ErrStoreInit:      StatusStoreInit,
	ErrNotFound:       StatusNotFound,
	ErrOutOfBounds:    StatusOutOfBounds,
	ErrNullHandle:     StatusNullHandle,
	ErrStaleHandle:    StatusStaleHandle,
	ErrWrongKind:      StatusWrongKind,
	ErrBorrowed:       StatusBorrowed,
	ErrDuplicate:      StatusDuplicate,
	ErrDatabase:       StatusDatabase,
	ErrSyncFailed:     StatusSyncFailed,
	ErrCallbackFailed: StatusCallbackFailed,
	ErrInternal:       StatusInternal,
}

// AppError represents an application error with code and message.
type AppError struct {
	Code    ErrorCode
	Message string
	Err     error
}

// Error implements the error interface.
func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying error.
func (e *AppError) Unwrap() error {
	return e.Err
}

// Status returns the boundary status value for the error code.
func (e *AppError) Status() int32 {
	if s, ok := statusByCode[e.Code]; ok {
		return s
	}
	return StatusInternal
}

// New creates a new AppError.
func New(code ErrorCode, message string) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
	}
}

// Newf creates a new AppError with a formatted message.
func Newf(code ErrorCode, format string, args ...any) *AppError {
	return New(code, fmt.Sprintf(format, args...))
}

// Wrap wraps an existing error with an error code.
func Wrap(code ErrorCode, message string, err error) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// Is checks if an error, or anything it wraps, carries a specific code.
func Is(err error, code ErrorCode) bool {
	return CodeOf(err) == code
}

// CodeOf returns the code of the first AppError in err's chain.
// Errors without one are internal; nil has no code.
func CodeOf(err error) ErrorCode {
	if err == nil {
		return ""
	}
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr.Code
	}
	return ErrInternal
}

// StatusOf maps err to the status value returned across the boundary.
func StatusOf(err error) int32 {
	if err == nil {
		return StatusOK
	}
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr.Status()
	}
	return StatusInternal
}

// IsContractViolation reports whether err means the caller broke the handle
// contract: a null, destroyed or mistyped handle.
func IsContractViolation(err error) bool {
	switch CodeOf(err) {
	case ErrNullHandle, ErrStaleHandle, ErrWrongKind:
		return true
	}
	return false
}

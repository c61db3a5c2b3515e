package bridge

import (
	"time"
	"unicode/utf8"

	apperrors "github.com/kimhsiao/toodle/internal/errors"
)

// Text converts caller-supplied bytes into an owned string. Bytes that are
// not valid UTF-8 are reported as INVALID_UTF8.
func Text(raw []byte) (string, error) {
	if !utf8.Valid(raw) {
		return "", apperrors.New(apperrors.ErrInvalidUTF8, "text is not valid UTF-8")
	}
	return string(raw), nil
}

// OptionalTime converts a nullable epoch-seconds value. nil means absent.
func OptionalTime(secs *int64) *time.Time {
	if secs == nil {
		return nil
	}
	t := time.Unix(*secs, 0)
	return &t
}

// EpochSeconds is the inverse of OptionalTime. ok is false when t is absent.
func EpochSeconds(t *time.Time) (secs int64, ok bool) {
	if t == nil {
		return 0, false
	}
	return t.Unix(), true
}

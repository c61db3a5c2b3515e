// Package uuid provides UUID v4 generation and parsing for item identities.
package uuid

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// New generates a new UUID v4 in canonical lowercase form.
func New() string {
	return uuid.New().String()
}

// Normalize parses s in any form google/uuid accepts (braced, urn:uuid:,
// upper case) and returns the canonical lowercase string.
func Normalize(s string) (string, error) {
	id, err := uuid.Parse(strings.TrimSpace(s))
	if err != nil {
		return "", fmt.Errorf("invalid UUID %q: %w", s, err)
	}
	return id.String(), nil
}

// IsValid reports whether s parses as a UUID.
func IsValid(s string) bool {
	_, err := Normalize(s)
	return err == nil
}

// Package uuid tests for identity generation and parsing.
package uuid

import (
	"strings"
	"testing"
)

func TestNew(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		id := New()
		if !IsValid(id) {
			t.Fatalf("New() produced invalid UUID %q", id)
		}
		if id[14] != '4' {
			t.Errorf("New() = %q, want version 4", id)
		}
		if seen[id] {
			t.Fatalf("New() repeated %q", id)
		}
		seen[id] = true
	}
}

func TestNormalize(t *testing.T) {
	const canonical = "6ba7b810-9dad-41d1-80b4-00c04fd430c8"
	inputs := []string{
		canonical,
		strings.ToUpper(canonical),
		"{" + canonical + "}",
		"urn:uuid:" + canonical,
		"  " + canonical + "\n",
	}
	for _, in := range inputs {
		got, err := Normalize(in)
		if err != nil {
			t.Errorf("Normalize(%q) error: %v", in, err)
			continue
		}
		if got != canonical {
			t.Errorf("Normalize(%q) = %q, want %q", in, got, canonical)
		}
	}
}

func TestNormalize_invalid(t *testing.T) {
	for _, in := range []string{"", "not-a-uuid", "6ba7b810-9dad-41d1-80b4"} {
		if _, err := Normalize(in); err == nil {
			t.Errorf("Normalize(%q) should fail", in)
		}
		if IsValid(in) {
			t.Errorf("IsValid(%q) = true", in)
		}
	}
}

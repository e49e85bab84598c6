package domain

import (
	"strings"
	"unique"
)

// InternedString wraps a unique.Handle[string].
// Graph nodes are keyed by it, so command names and file paths that appear on
// many edges share a single allocation and compare by pointer.
type InternedString struct {
	h unique.Handle[string]
}

// NewInternedString interns s.
func NewInternedString(s string) InternedString {
	return InternedString{h: unique.Make(s)}
}

// String returns the underlying string value.
func (is InternedString) String() string {
	return is.h.Value()
}

// Compare orders interned strings lexicographically by byte value.
func (is InternedString) Compare(other InternedString) int {
	if is.h == other.h {
		return 0
	}
	return strings.Compare(is.h.Value(), other.h.Value())
}

// MarshalText implements encoding.TextMarshaler.
func (is InternedString) MarshalText() ([]byte, error) {
	return []byte(is.h.Value()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (is *InternedString) UnmarshalText(text []byte) error {
	is.h = unique.Make(string(text))
	return nil
}

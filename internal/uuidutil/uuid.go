package uuidutil

import "github.com/google/uuid"

// Parse parses a string into a UUID.
func Parse(s string) (uuid.UUID, error) {
	return uuid.Parse(s)
}

// MustParse parses a string into a UUID and panics on error. Intended
// for tests and compile-time constants.
func MustParse(s string) uuid.UUID {
	return uuid.MustParse(s)
}

// New generates a random v4 UUID.
func New() uuid.UUID {
	return uuid.New()
}

// IsValid reports whether s is a well-formed UUID.
func IsValid(s string) bool {
	_, err := uuid.Parse(s)
	return err == nil
}

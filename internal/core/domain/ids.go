package domain

import "github.com/google/uuid"

const maxIDLength = 128

// NewSessionID returns a fresh random session identifier.
func NewSessionID() string {
	return uuid.NewString()
}

// ValidID reports whether id can be used as a session or participant key. Keys end up in
// store paths, URLs and NATS subjects, so only [A-Za-z0-9_-] is accepted.
func ValidID(id string) bool {
	if id == "" || len(id) > maxIDLength {
		return false
	}
	for _, r := range id {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
		default:
			return false
		}
	}
	return true
}

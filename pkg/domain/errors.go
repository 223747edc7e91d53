package domain

import (
	"errors"
	"fmt"
)

// ErrSessionNotFound is returned when a session ID cannot be found in the store.
var ErrSessionNotFound = errors.New("session not found")

// ErrInvalidMode is returned when a mode name cannot be parsed.
var ErrInvalidMode = errors.New("invalid mode")

// ErrInvalidStyle is returned when a connection style name cannot be parsed.
var ErrInvalidStyle = errors.New("invalid connection style")

// Invariant rule names reported by InvariantError.
const (
	RuleUniqueID            = "unique_id"
	RuleSelfConnection      = "self_connection"
	RuleDuplicateConnection = "duplicate_connection"
	RuleDanglingReference   = "dangling_reference"
	RuleSingleSelection     = "single_selection"
	RuleDirectionRange      = "direction_range"
)

// InvariantError describes a structural rule broken by a snapshot.
type InvariantError struct {
	Rule   string
	Detail string
}

func (e *InvariantError) Error() string {
	return fmt.Sprintf("invariant %s violated: %s", e.Rule, e.Detail)
}

// ErrInvalidSessionID is returned for session ids outside [A-Za-z0-9_-]{1,128}.
var ErrInvalidSessionID = errors.New("invalid session id")

// ValidateSessionID checks that id is safe to use as a key or file name.
func ValidateSessionID(id string) error {
	if id == "" || len(id) > 128 {
		return fmt.Errorf("%w: %q", ErrInvalidSessionID, id)
	}
	for _, r := range id {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
		default:
			return fmt.Errorf("%w: %q", ErrInvalidSessionID, id)
		}
	}
	return nil
}

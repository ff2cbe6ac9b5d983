// Package state persists composition documents for named roles on the local
// host, one file per role under the configured state directory.
package state

import (
	"errors"
	"fmt"
)

// =============================================================================
// Error Types
// =============================================================================

var (
	// ErrNotFound is returned when no composition is persisted for a role.
	ErrNotFound = errors.New("no persisted composition for role")

	// ErrInvalidRole is returned for role names that cannot form a file name.
	ErrInvalidRole = errors.New("invalid role name")
)

// StateError wraps errors with additional context.
type StateError struct {
	Op      string // Operation that failed (e.g., "Save")
	Role    string // Role name if applicable
	Message string
	Err     error
}

func (e *StateError) Error() string {
	if e.Role != "" {
		return fmt.Sprintf("%s %s: %s", e.Op, e.Role, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Op, e.Message)
}

func (e *StateError) Unwrap() error {
	return e.Err
}

// NewStateError creates a new StateError.
func NewStateError(op, role, message string, err error) *StateError {
	return &StateError{
		Op:      op,
		Role:    role,
		Message: message,
		Err:     err,
	}
}

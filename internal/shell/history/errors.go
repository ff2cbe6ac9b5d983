// Package history records deployment invocations in SQLite so operators can
// see what was deployed, when, and how it went.
package history

import (
	"errors"
	"fmt"
)

// =============================================================================
// Error Types
// =============================================================================

var (
	// ErrConnectionFailed is returned when the database cannot be opened.
	ErrConnectionFailed = errors.New("database connection failed")

	// ErrMigrationFailed is returned when schema migration fails.
	ErrMigrationFailed = errors.New("database migration failed")
)

// HistoryError wraps errors with additional context.
type HistoryError struct {
	Op      string
	Message string
	Err     error
}

func (e *HistoryError) Error() string {
	return fmt.Sprintf("%s: %s", e.Op, e.Message)
}

func (e *HistoryError) Unwrap() error {
	return e.Err
}

// NewHistoryError creates a new HistoryError.
func NewHistoryError(op, message string, err error) *HistoryError {
	return &HistoryError{
		Op:      op,
		Message: message,
		Err:     err,
	}
}

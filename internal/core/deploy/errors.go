// Package deploy contains the pure deployment-mode logic: mode parsing,
// override resolution, and request validation. No I/O, no side effects.
package deploy

import "errors"

// =============================================================================
// Error Types
// =============================================================================

var (
	// ErrInvalidMode is returned when an unknown deploy mode is requested.
	ErrInvalidMode = errors.New("invalid deploy mode")

	// ErrMissingRole is returned when a request has no role name.
	ErrMissingRole = errors.New("role name is required")

	// ErrMissingComposeData is returned when a request has no composition document.
	ErrMissingComposeData = errors.New("compose data is required")

	// ErrMissingCredentials is returned when freeze is requested without
	// fully populated registry credentials.
	ErrMissingCredentials = errors.New("registry credentials are incomplete")
)

package deploy

import (
	coredeploy "github.com/artpar/stevedore/internal/core/deploy"
)

// =============================================================================
// Dispatch Result
// =============================================================================

// Status is the terminal state of a dispatched invocation. Failures are
// reported as errors, not statuses.
type Status string

const (
	// StatusSucceeded means the mode's step sequence ran to completion,
	// possibly with non-fatal warnings.
	StatusSucceeded Status = "succeeded"

	// StatusSkipped means the requested mode is overridden by the caller and
	// no operation was performed.
	StatusSkipped Status = "skipped"
)

// Result reports the outcome of a dispatched invocation.
type Result struct {
	// Mode is the resolved deploy mode.
	Mode coredeploy.Mode

	// Status is succeeded or skipped.
	Status Status

	// Warnings are non-fatal failures collected during the invocation, one
	// per failed image operation. The caller decides whether partial success
	// is acceptable.
	Warnings []string
}

// Skipped reports whether the invocation was skipped due to an override.
func (r *Result) Skipped() bool {
	return r.Status == StatusSkipped
}

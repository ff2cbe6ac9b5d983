// Package images manages the lifecycle of a composition's declared images:
// pulling, removal, and release retag-and-push.
package images

import (
	"errors"
	"fmt"
	"strings"
)

// =============================================================================
// Error Types
// =============================================================================

// ErrImageOperation marks aggregated per-image failures. Whether it is fatal
// depends on the deploy mode; the dispatcher decides.
var ErrImageOperation = errors.New("image operation failed")

// ImageError is one image's failure within a bulk operation.
type ImageError struct {
	Image string
	Err   error
}

func (e ImageError) Error() string {
	return fmt.Sprintf("%s: %v", e.Image, e.Err)
}

func (e ImageError) Unwrap() error {
	return e.Err
}

// OperationError aggregates per-image failures from one bulk operation.
// Every image is attempted before failures are reported together.
type OperationError struct {
	Op       string // "Pull", "Remove", "RetagAndPush"
	Failures []ImageError
}

func (e *OperationError) Error() string {
	msgs := make([]string, 0, len(e.Failures))
	for _, f := range e.Failures {
		msgs = append(msgs, f.Error())
	}
	return fmt.Sprintf("%s failed for %d image(s): %s", e.Op, len(e.Failures), strings.Join(msgs, "; "))
}

// Unwrap exposes the per-image errors plus the ErrImageOperation marker so
// errors.Is can match both.
func (e *OperationError) Unwrap() []error {
	errs := make([]error, 0, len(e.Failures)+1)
	errs = append(errs, ErrImageOperation)
	for _, f := range e.Failures {
		errs = append(errs, f)
	}
	return errs
}

// errorOrNil returns nil when no failures were collected.
func (e *OperationError) errorOrNil() error {
	if len(e.Failures) == 0 {
		return nil
	}
	return e
}

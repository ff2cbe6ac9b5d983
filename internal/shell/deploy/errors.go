// Package deploy dispatches deployment invocations: it resolves the
// requested mode against caller overrides and runs the mode's ordered step
// sequence against the state store, image manager, and composition engine.
package deploy

import "errors"

// =============================================================================
// Error Types
// =============================================================================

// ErrEngineFailure marks a failed composition engine invocation. Always
// fatal for the current mode.
var ErrEngineFailure = errors.New("engine invocation failed")

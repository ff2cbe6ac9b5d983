package deploy

import "fmt"

// =============================================================================
// Deploy Modes
// =============================================================================

// Mode selects the operation sequence for one invocation.
type Mode string

const (
	// ModeInstall persists the composition, pulls its images, and brings the
	// composition up. This is the default mode.
	ModeInstall Mode = "install"

	// ModePurge brings the composition down, removes its images, and deletes
	// the persisted composition.
	ModePurge Mode = "purge"

	// ModePrefetch pulls the composition's images and nothing else.
	ModePrefetch Mode = "prefetch"

	// ModeFreeze retags the composition's images under a release tag and
	// pushes them to a registry.
	ModeFreeze Mode = "freeze"
)

// ParseMode converts a mode string to a Mode. The empty string defaults to
// install. Unknown values fail with ErrInvalidMode.
func ParseMode(s string) (Mode, error) {
	switch Mode(s) {
	case "":
		return ModeInstall, nil
	case ModeInstall, ModePurge, ModePrefetch, ModeFreeze:
		return Mode(s), nil
	default:
		return "", fmt.Errorf("unknown mode %q: %w", s, ErrInvalidMode)
	}
}

// =============================================================================
// Mode Resolution
// =============================================================================

// Resolution is the outcome of resolving a requested mode against overrides.
type Resolution struct {
	Mode Mode
	Skip bool
}

// Resolve computes the effective deploy mode for an invocation.
//
// A mode listed in overrides resolves to Skip=true: the caller has chosen to
// implement that mode itself and the dispatcher must perform no operation.
// Pure function of its inputs.
func Resolve(requested string, overrides map[Mode]bool) (Resolution, error) {
	mode, err := ParseMode(requested)
	if err != nil {
		return Resolution{}, err
	}
	return Resolution{Mode: mode, Skip: overrides[mode]}, nil
}

// ParseOverrides converts override mode names to an override set. Every name
// must be a known, non-empty mode.
func ParseOverrides(names []string) (map[Mode]bool, error) {
	overrides := make(map[Mode]bool, len(names))
	for _, name := range names {
		if name == "" {
			return nil, fmt.Errorf("empty override mode: %w", ErrInvalidMode)
		}
		mode, err := ParseMode(name)
		if err != nil {
			return nil, err
		}
		overrides[mode] = true
	}
	return overrides, nil
}

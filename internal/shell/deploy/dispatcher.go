package deploy

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/artpar/stevedore/internal/core/compose"
	coredeploy "github.com/artpar/stevedore/internal/core/deploy"
	"github.com/artpar/stevedore/internal/shell/docker"
	"github.com/artpar/stevedore/internal/shell/history"
	"github.com/artpar/stevedore/internal/shell/images"
	"github.com/artpar/stevedore/internal/shell/state"
)

// =============================================================================
// Collaborator Interfaces
// =============================================================================

// ImageManager is the image lifecycle capability set the dispatcher needs.
// Implemented by images.Manager; faked in tests.
type ImageManager interface {
	Pull(ctx context.Context, imageList []string, alwaysPull bool) error
	Remove(ctx context.Context, imageList []string, keepImages bool) error
	RetagAndPush(ctx context.Context, imageList []string, creds coredeploy.Credentials) error
}

// =============================================================================
// Dispatcher
// =============================================================================

// handler runs one deploy mode's step sequence.
type handler func(ctx context.Context, req *coredeploy.Request) (*Result, error)

// Dispatcher runs the step sequence for a resolved deploy mode. Each
// invocation is a single transition; the only state that survives between
// invocations is what the state store holds.
//
// Concurrent invocations for the same role are not safe and require external
// serialization.
type Dispatcher struct {
	state    state.Store
	images   ImageManager
	engine   docker.Engine
	history  history.Store // optional, may be nil
	logger   *slog.Logger
	handlers map[coredeploy.Mode]handler
}

// NewDispatcher creates a dispatcher with the standard mode table. The
// history store is optional; pass nil to disable invocation recording.
func NewDispatcher(st state.Store, im ImageManager, engine docker.Engine, hist history.Store, logger *slog.Logger) *Dispatcher {
	if logger == nil {
		logger = slog.Default()
	}

	d := &Dispatcher{
		state:   st,
		images:  im,
		engine:  engine,
		history: hist,
		logger:  logger,
	}

	// Explicit strategy table. An overridden mode never reaches its handler;
	// Dispatch returns a skipped result instead.
	d.handlers = map[coredeploy.Mode]handler{
		coredeploy.ModeInstall:  d.install,
		coredeploy.ModePurge:    d.purge,
		coredeploy.ModePrefetch: d.prefetch,
		coredeploy.ModeFreeze:   d.freeze,
	}

	return d
}

// Dispatch resolves the request's mode and runs the matching handler.
// A mode listed in the request's overrides is skipped, not an error.
func (d *Dispatcher) Dispatch(ctx context.Context, req *coredeploy.Request) (*Result, error) {
	startedAt := time.Now()

	if err := req.Validate(); err != nil {
		return nil, err
	}

	resolution, err := coredeploy.Resolve(req.Mode, req.Overrides)
	if err != nil {
		return nil, err
	}

	if resolution.Skip {
		d.logger.Info("mode overridden, skipping",
			"role", req.RoleName,
			"mode", resolution.Mode,
		)
		result := &Result{Mode: resolution.Mode, Status: StatusSkipped}
		d.record(ctx, req, resolution.Mode, startedAt, result, nil)
		return result, nil
	}

	d.logger.Info("dispatching",
		"role", req.RoleName,
		"mode", resolution.Mode,
	)

	result, err := d.handlers[resolution.Mode](ctx, req)
	d.record(ctx, req, resolution.Mode, startedAt, result, err)
	if err != nil {
		return nil, err
	}

	d.logger.Info("dispatch complete",
		"role", req.RoleName,
		"mode", resolution.Mode,
		"warnings", len(result.Warnings),
	)
	return result, nil
}

// =============================================================================
// Mode Handlers
// =============================================================================

// install persists the composition, pulls its images, and brings the
// composition up. A save failure aborts before anything touches containers;
// pull failures are reported but the engine still attempts to start with
// whatever images are present.
func (d *Dispatcher) install(ctx context.Context, req *coredeploy.Request) (*Result, error) {
	doc, err := compose.Parse(req.ComposeData)
	if err != nil {
		return nil, fmt.Errorf("failed to parse composition for %s: %w", req.RoleName, err)
	}

	if err := d.state.Save(req.RoleName, req.ComposeData); err != nil {
		return nil, err
	}

	result := &Result{Mode: coredeploy.ModeInstall, Status: StatusSucceeded}

	if err := d.images.Pull(ctx, doc.Images(), false); err != nil {
		warnings, fatal := imageWarnings(err)
		if fatal != nil {
			return nil, fatal
		}
		result.Warnings = append(result.Warnings, warnings...)
	}

	if err := d.engine.Up(ctx, req.RoleName, doc, docker.UpOptions{ForceRecreate: req.ForceRecreate}); err != nil {
		return nil, fmt.Errorf("bring up %s: %v: %w", req.RoleName, err, ErrEngineFailure)
	}

	return result, nil
}

// purge recovers the last-installed composition, brings it down, removes its
// images, and deletes the persisted file. The delete always runs once the
// composition is down, even if image removal reported errors, so no stale
// state is left pointing at removed images.
func (d *Dispatcher) purge(ctx context.Context, req *coredeploy.Request) (*Result, error) {
	data, err := d.state.Load(req.RoleName)
	if err != nil {
		return nil, err
	}

	doc, err := compose.Parse(data)
	if err != nil {
		// Cannot know what to tear down; the file is left for inspection.
		return nil, fmt.Errorf("persisted composition for %s is unreadable: %w", req.RoleName, err)
	}

	if err := d.engine.Down(ctx, req.RoleName, doc); err != nil {
		return nil, fmt.Errorf("bring down %s: %v: %w", req.RoleName, err, ErrEngineFailure)
	}

	result := &Result{Mode: coredeploy.ModePurge, Status: StatusSucceeded}

	if err := d.images.Remove(ctx, doc.Images(), req.KeepImages); err != nil {
		warnings, fatal := imageWarnings(err)
		if fatal != nil {
			return nil, fatal
		}
		result.Warnings = append(result.Warnings, warnings...)
	}

	if err := d.state.Delete(req.RoleName); err != nil {
		return nil, err
	}

	return result, nil
}

// prefetch pulls the composition's images and nothing else. Never persists
// or starts anything; pull failures are reported but never fatal.
func (d *Dispatcher) prefetch(ctx context.Context, req *coredeploy.Request) (*Result, error) {
	doc, err := compose.Parse(req.ComposeData)
	if err != nil {
		return nil, fmt.Errorf("failed to parse composition for %s: %w", req.RoleName, err)
	}

	result := &Result{Mode: coredeploy.ModePrefetch, Status: StatusSucceeded}

	if err := d.images.Pull(ctx, doc.Images(), true); err != nil {
		warnings, fatal := imageWarnings(err)
		if fatal != nil {
			return nil, fatal
		}
		result.Warnings = append(result.Warnings, warnings...)
	}

	return result, nil
}

// freeze validates credentials, recovers the last-installed composition, and
// retags and pushes its images under the release tag. Only an installed role
// can be frozen; the state store is read but never written. Push failures are
// fatal.
func (d *Dispatcher) freeze(ctx context.Context, req *coredeploy.Request) (*Result, error) {
	if !req.RegistryCredentials.Complete() {
		return nil, coredeploy.ErrMissingCredentials
	}

	data, err := d.state.Load(req.RoleName)
	if err != nil {
		return nil, err
	}

	doc, err := compose.Parse(data)
	if err != nil {
		return nil, fmt.Errorf("persisted composition for %s is unreadable: %w", req.RoleName, err)
	}

	if err := d.images.RetagAndPush(ctx, doc.Images(), req.RegistryCredentials); err != nil {
		return nil, err
	}

	return &Result{Mode: coredeploy.ModeFreeze, Status: StatusSucceeded}, nil
}

// =============================================================================
// Helpers
// =============================================================================

// imageWarnings converts an aggregated image operation error into warning
// strings. Any other error is returned as fatal.
func imageWarnings(err error) (warnings []string, fatal error) {
	var opErr *images.OperationError
	if !errors.As(err, &opErr) {
		return nil, err
	}
	for _, f := range opErr.Failures {
		warnings = append(warnings, f.Error())
	}
	return warnings, nil
}

// record writes the invocation to the history store. Best-effort: a history
// failure is logged, never surfaced.
func (d *Dispatcher) record(ctx context.Context, req *coredeploy.Request, mode coredeploy.Mode, startedAt time.Time, result *Result, dispatchErr error) {
	if d.history == nil {
		return
	}

	rec := history.Record{
		Role:       req.RoleName,
		Mode:       string(mode),
		StartedAt:  startedAt,
		FinishedAt: time.Now(),
	}

	switch {
	case dispatchErr != nil:
		rec.Outcome = history.OutcomeFailed
		rec.Error = dispatchErr.Error()
	case result.Skipped():
		rec.Outcome = history.OutcomeSkipped
	default:
		rec.Outcome = history.OutcomeSucceeded
		rec.Warnings = len(result.Warnings)
	}

	if err := d.history.RecordInvocation(ctx, &rec); err != nil {
		d.logger.Warn("failed to record invocation", "role", req.RoleName, "error", err)
	}
}

package images

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/artpar/stevedore/internal/core/deploy"
	"github.com/artpar/stevedore/internal/shell/docker"
)

// =============================================================================
// Image Lifecycle Manager
// =============================================================================

// Manager performs bulk image operations against a registry client. Each
// operation attempts every image and aggregates failures rather than
// aborting at the first one.
type Manager struct {
	registry docker.RegistryClient
	logger   *slog.Logger
}

// NewManager creates a new image lifecycle manager.
func NewManager(registry docker.RegistryClient, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{
		registry: registry,
		logger:   logger,
	}
}

// =============================================================================
// Pull
// =============================================================================

// Pull fetches the given images. Images already present locally are skipped
// unless alwaysPull is set. Failures are collected per image and returned as
// an *OperationError; the caller decides whether that is fatal.
func (m *Manager) Pull(ctx context.Context, imageList []string, alwaysPull bool) error {
	opErr := &OperationError{Op: "Pull"}

	for _, img := range imageList {
		if !alwaysPull {
			exists, err := m.registry.ImageExists(ctx, img)
			if err != nil {
				m.logger.Debug("image existence check failed, pulling anyway", "image", img, "error", err)
			} else if exists {
				m.logger.Debug("image already present", "image", img)
				continue
			}
		}

		m.logger.Info("pulling image", "image", img)
		if err := m.registry.Pull(ctx, img); err != nil {
			m.logger.Warn("failed to pull image", "image", img, "error", err)
			opErr.Failures = append(opErr.Failures, ImageError{Image: img, Err: err})
		}
	}

	return opErr.errorOrNil()
}

// =============================================================================
// Remove
// =============================================================================

// Remove removes the given images. When keepImages is set the whole operation
// is a no-op. An already-absent image is the desired end state and counts as
// success; other failures are collected per image.
func (m *Manager) Remove(ctx context.Context, imageList []string, keepImages bool) error {
	if keepImages {
		m.logger.Debug("keeping images", "count", len(imageList))
		return nil
	}

	opErr := &OperationError{Op: "Remove"}

	for _, img := range imageList {
		m.logger.Info("removing image", "image", img)
		err := m.registry.Remove(ctx, img)
		if err != nil && !errors.Is(err, docker.ErrImageNotFound) {
			m.logger.Warn("failed to remove image", "image", img, "error", err)
			opErr.Failures = append(opErr.Failures, ImageError{Image: img, Err: err})
		}
	}

	return opErr.errorOrNil()
}

// =============================================================================
// Retag and Push
// =============================================================================

// RetagAndPush retags every image under the release tag and pushes it to the
// credential's registry. Credentials must be fully populated before any
// registry call is made. The authenticated session is released when the
// operation completes.
func (m *Manager) RetagAndPush(ctx context.Context, imageList []string, creds deploy.Credentials) error {
	if !creds.Complete() {
		return deploy.ErrMissingCredentials
	}

	if err := m.registry.Login(ctx, creds.Domain, creds.Username, creds.Password); err != nil {
		return fmt.Errorf("login to %s failed: %w", creds.Domain, err)
	}
	defer m.registry.Logout()

	opErr := &OperationError{Op: "RetagAndPush"}

	for _, img := range imageList {
		target := ReleaseRef(img, creds.Domain, creds.ReleaseTag)

		m.logger.Info("retagging image", "image", img, "target", target)
		if err := m.registry.Tag(ctx, img, target); err != nil {
			m.logger.Warn("failed to tag image", "image", img, "error", err)
			opErr.Failures = append(opErr.Failures, ImageError{Image: img, Err: err})
			continue
		}

		m.logger.Info("pushing image", "image", target)
		if err := m.registry.Push(ctx, target); err != nil {
			m.logger.Warn("failed to push image", "image", target, "error", err)
			opErr.Failures = append(opErr.Failures, ImageError{Image: img, Err: err})
		}
	}

	return opErr.errorOrNil()
}

// =============================================================================
// Reference Rewriting
// =============================================================================

// ReleaseRef computes the release reference for an image: the image's
// repository path, prefixed with the release registry domain and tagged with
// the release tag. Any original registry prefix and tag are dropped.
//
//	ReleaseRef("app:1.0", "registry.example.com", "v42")
//	  -> "registry.example.com/app:v42"
func ReleaseRef(image, domain, tag string) string {
	return domain + "/" + repositoryPath(image) + ":" + tag
}

// repositoryPath strips the registry host and tag from an image reference.
func repositoryPath(image string) string {
	name := image

	// Drop the registry host if the first path segment looks like one.
	if idx := strings.Index(name, "/"); idx > 0 {
		first := name[:idx]
		if strings.ContainsAny(first, ".:") || first == "localhost" {
			name = name[idx+1:]
		}
	}

	// Drop the tag, if any. A colon after the last slash is a tag separator,
	// not a port.
	lastSlash := strings.LastIndex(name, "/")
	if idx := strings.LastIndex(name, ":"); idx > lastSlash {
		name = name[:idx]
	}

	return name
}

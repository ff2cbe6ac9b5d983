package docker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/artpar/stevedore/internal/core/compose"
)

// =============================================================================
// Composition Engine
// =============================================================================

// ComposeEngine implements Engine on top of a Client. It owns a per-role
// bridge network and role-scoped containers and volumes, identified by the
// com.stevedore.* labels so Down can find them without re-parsing state.
type ComposeEngine struct {
	docker Client
	logger *slog.Logger
}

// NewComposeEngine creates a new composition engine.
func NewComposeEngine(docker Client, logger *slog.Logger) *ComposeEngine {
	if logger == nil {
		logger = slog.Default()
	}
	return &ComposeEngine{
		docker: docker,
		logger: logger,
	}
}

// =============================================================================
// Naming
// =============================================================================

// NetworkName returns the network name for a role.
func NetworkName(role string) string {
	return "stevedore-" + role
}

// ContainerName returns the container name for a role's service.
func ContainerName(role, service string) string {
	return "stevedore-" + role + "-" + service
}

// VolumeName returns the volume name for a role's named volume.
func VolumeName(role, volume string) string {
	return "stevedore-" + role + "-" + volume
}

func roleLabels(role string) map[string]string {
	return map[string]string{
		LabelManaged: "true",
		LabelRole:    role,
	}
}

// =============================================================================
// Up
// =============================================================================

// Up creates and starts all containers for a role's composition.
func (e *ComposeEngine) Up(ctx context.Context, role string, doc *compose.Document, opts UpOptions) error {
	e.logger.Info("bringing composition up",
		"role", role,
		"services", len(doc.Services),
		"force_recreate", opts.ForceRecreate,
	)

	networkName := NetworkName(role)
	if _, err := e.docker.CreateNetwork(ctx, NetworkSpec{
		Name:   networkName,
		Labels: roleLabels(role),
	}); err != nil && !errors.Is(err, ErrNetworkAlreadyExists) {
		return fmt.Errorf("failed to create network %s: %w", networkName, err)
	}

	for _, vol := range doc.Volumes {
		if vol.External {
			continue
		}
		if _, err := e.docker.CreateVolume(ctx, VolumeSpec{
			Name:   VolumeName(role, vol.Name),
			Labels: roleLabels(role),
		}); err != nil {
			return fmt.Errorf("failed to create volume %s: %w", vol.Name, err)
		}
	}

	existing, err := e.docker.ListContainers(ctx, map[string]string{LabelRole: role})
	if err != nil {
		return fmt.Errorf("failed to list containers: %w", err)
	}

	if opts.ForceRecreate && len(existing) > 0 {
		e.logger.Info("removing existing containers for recreation", "role", role, "count", len(existing))
		if err := e.removeContainers(ctx, existing); err != nil {
			return err
		}
		existing = nil
	}

	existingByService := make(map[string]ContainerInfo)
	for _, c := range existing {
		if svc, ok := c.Labels[LabelService]; ok {
			existingByService[svc] = c
		}
	}

	created := make(map[string]string) // service name -> container ID

	for _, svc := range compose.SortByDependencies(doc.Services) {
		var containerID string

		if existingContainer, found := existingByService[svc.Name]; found {
			containerID = existingContainer.ID
			e.logger.Debug("reusing container", "role", role, "service", svc.Name, "container_id", shortID(containerID))
		} else {
			spec := e.buildContainerSpec(role, svc, networkName)
			containerID, err = e.docker.CreateContainer(ctx, spec)
			if err != nil {
				e.cleanupContainers(ctx, created)
				return fmt.Errorf("failed to create container for %s: %w", svc.Name, err)
			}
			e.logger.Debug("created container", "role", role, "service", svc.Name, "container_id", shortID(containerID))
		}

		created[svc.Name] = containerID

		if err := e.docker.StartContainer(ctx, containerID); err != nil {
			e.cleanupContainers(ctx, created)
			return fmt.Errorf("failed to start container for %s: %w", svc.Name, err)
		}
		e.logger.Debug("started container", "role", role, "service", svc.Name, "container_id", shortID(containerID))
	}

	e.logger.Info("composition up", "role", role, "containers", len(created))
	return nil
}

// buildContainerSpec maps a composition service to a container spec.
func (e *ComposeEngine) buildContainerSpec(role string, svc compose.Service, networkName string) ContainerSpec {
	labels := make(map[string]string, len(svc.Labels)+3)
	for k, v := range svc.Labels {
		labels[k] = v
	}
	labels[LabelManaged] = "true"
	labels[LabelRole] = role
	labels[LabelService] = svc.Name

	spec := ContainerSpec{
		Name:           ContainerName(role, svc.Name),
		Image:          svc.Image,
		Command:        svc.Command,
		Entrypoint:     svc.Entrypoint,
		Env:            svc.Environment,
		Labels:         labels,
		Network:        networkName,
		NetworkAliases: []string{svc.Name},
		RestartPolicy:  svc.Restart,
	}

	for _, p := range svc.Ports {
		spec.Ports = append(spec.Ports, PortBinding{
			ContainerPort: int(p.Target),
			HostPort:      int(p.Published),
			Protocol:      p.Protocol,
			HostIP:        p.HostIP,
		})
	}

	for _, v := range svc.Volumes {
		if v.Type == compose.VolumeMountTypeTmpfs {
			continue
		}
		m := VolumeMount{
			Source:   v.Source,
			Target:   v.Target,
			ReadOnly: v.ReadOnly,
		}
		if v.Type == compose.VolumeMountTypeBind {
			m.Bind = true
		} else {
			m.Source = VolumeName(role, v.Source)
		}
		spec.Volumes = append(spec.Volumes, m)
	}

	return spec
}

// cleanupContainers force-removes partially created containers after a
// failed Up.
func (e *ComposeEngine) cleanupContainers(ctx context.Context, created map[string]string) {
	for svc, id := range created {
		if err := e.docker.RemoveContainer(ctx, id, true); err != nil {
			e.logger.Warn("failed to clean up container", "service", svc, "container_id", shortID(id), "error", err)
		}
	}
}

// =============================================================================
// Down
// =============================================================================

// Down stops and removes all containers for a role's composition, then
// removes the role's network and named volumes.
func (e *ComposeEngine) Down(ctx context.Context, role string, doc *compose.Document) error {
	e.logger.Info("bringing composition down", "role", role)

	containers, err := e.docker.ListContainers(ctx, map[string]string{LabelRole: role})
	if err != nil {
		return fmt.Errorf("failed to list containers: %w", err)
	}

	if err := e.removeContainers(ctx, containers); err != nil {
		return err
	}

	if err := e.docker.RemoveNetwork(ctx, NetworkName(role)); err != nil && !errors.Is(err, ErrNetworkNotFound) {
		return fmt.Errorf("failed to remove network: %w", err)
	}

	for _, vol := range doc.Volumes {
		if vol.External {
			continue
		}
		name := VolumeName(role, vol.Name)
		if err := e.docker.RemoveVolume(ctx, name, false); err != nil && !errors.Is(err, ErrVolumeNotFound) {
			return fmt.Errorf("failed to remove volume %s: %w", name, err)
		}
	}

	e.logger.Info("composition down", "role", role, "containers", len(containers))
	return nil
}

// removeContainers stops and force-removes the given containers. A container
// that disappeared in the meantime counts as removed.
func (e *ComposeEngine) removeContainers(ctx context.Context, containers []ContainerInfo) error {
	for _, c := range containers {
		if err := e.docker.StopContainer(ctx, c.ID); err != nil && !errors.Is(err, ErrContainerNotFound) {
			e.logger.Warn("failed to stop container", "container", c.Name, "error", err)
		}
		if err := e.docker.RemoveContainer(ctx, c.ID, true); err != nil && !errors.Is(err, ErrContainerNotFound) {
			return fmt.Errorf("failed to remove container %s: %w", c.Name, err)
		}
		e.logger.Debug("removed container", "container", c.Name, "container_id", shortID(c.ID))
	}
	return nil
}

func shortID(id string) string {
	if len(id) > 12 {
		return id[:12]
	}
	return id
}

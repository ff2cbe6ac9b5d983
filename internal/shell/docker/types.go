// Package docker provides the Docker-backed registry client and composition
// engine used by the deployment dispatcher.
package docker

import (
	"context"

	"github.com/artpar/stevedore/internal/core/compose"
)

// =============================================================================
// Registry Client Interface
// =============================================================================

// RegistryClient is the narrow capability set the image lifecycle manager
// needs: login, pull, push, tag, remove. Implemented by DockerClient; faked
// in tests.
type RegistryClient interface {
	// Login verifies credentials against the registry at domain and opens an
	// authenticated session used by subsequent Push calls.
	Login(ctx context.Context, domain, username, password string) error

	// Logout releases the authenticated session.
	Logout()

	// Pull fetches an image from its registry.
	Pull(ctx context.Context, image string) error

	// Push pushes an image reference using the authenticated session.
	Push(ctx context.Context, image string) error

	// Tag creates target as a new reference to source.
	Tag(ctx context.Context, source, target string) error

	// Remove removes a local image. Returns ErrImageNotFound (wrapped) when
	// the image is already absent.
	Remove(ctx context.Context, image string) error

	// ImageExists reports whether an image is present locally.
	ImageExists(ctx context.Context, image string) (bool, error)
}

// =============================================================================
// Engine Interface
// =============================================================================

// UpOptions control how a composition is brought up.
type UpOptions struct {
	// ForceRecreate removes existing containers before creating new ones.
	ForceRecreate bool
}

// Engine brings a role's composition up or down. The dispatcher treats it as
// a black box returning success or failure.
type Engine interface {
	Up(ctx context.Context, role string, doc *compose.Document, opts UpOptions) error
	Down(ctx context.Context, role string, doc *compose.Document) error
}

// =============================================================================
// Container Client Interface
// =============================================================================

// ContainerSpec defines the specification for creating a container.
type ContainerSpec struct {
	Name           string
	Image          string
	Command        []string
	Entrypoint     []string
	Env            map[string]string
	Labels         map[string]string
	Ports          []PortBinding
	Volumes        []VolumeMount
	Network        string
	NetworkAliases []string
	RestartPolicy  string
}

// PortBinding defines a port mapping.
type PortBinding struct {
	ContainerPort int
	HostPort      int    // 0 for auto-assign
	Protocol      string // "tcp" or "udp"
	HostIP        string // "" for 0.0.0.0
}

// VolumeMount defines a volume mount.
type VolumeMount struct {
	Source   string // Volume name or host path
	Target   string // Container path
	ReadOnly bool
	Bind     bool // host path bind mount rather than named volume
}

// ContainerInfo describes an existing container.
type ContainerInfo struct {
	ID     string
	Name   string
	Image  string
	State  string
	Labels map[string]string
}

// NetworkSpec defines the specification for creating a network.
type NetworkSpec struct {
	Name   string
	Labels map[string]string
}

// VolumeSpec defines the specification for creating a volume.
type VolumeSpec struct {
	Name   string
	Labels map[string]string
}

// Client is the container-side capability set the composition engine needs.
// Implemented by DockerClient; faked in tests.
type Client interface {
	CreateContainer(ctx context.Context, spec ContainerSpec) (containerID string, err error)
	StartContainer(ctx context.Context, containerID string) error
	StopContainer(ctx context.Context, containerID string) error
	RemoveContainer(ctx context.Context, containerID string, force bool) error
	ListContainers(ctx context.Context, labelFilters map[string]string) ([]ContainerInfo, error)

	CreateNetwork(ctx context.Context, spec NetworkSpec) (networkID string, err error)
	RemoveNetwork(ctx context.Context, name string) error

	CreateVolume(ctx context.Context, spec VolumeSpec) (volumeName string, err error)
	RemoveVolume(ctx context.Context, name string, force bool) error

	Ping(ctx context.Context) error
	Close() error
}

// =============================================================================
// Label Constants
// =============================================================================

const (
	LabelManaged = "com.stevedore.managed"
	LabelRole    = "com.stevedore.role"
	LabelService = "com.stevedore.service"
)

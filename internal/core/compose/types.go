package compose

// =============================================================================
// Parsed Composition Types
// =============================================================================

// Document is a parsed composition document for one role.
//
// The raw text of the document is what gets persisted on disk; Document is
// only the in-memory view the engine and image manager work from.
type Document struct {
	Services []Service
	Volumes  []Volume
}

// Service describes one container to run.
type Service struct {
	Name        string
	Image       string
	Command     []string
	Entrypoint  []string
	Environment map[string]string
	Labels      map[string]string
	Ports       []Port
	Volumes     []VolumeMount
	DependsOn   []string
	Restart     string
}

// Port defines a port mapping.
type Port struct {
	Target    uint32
	Published uint32
	Protocol  string
	HostIP    string
}

// VolumeMountType identifies the kind of a volume mount.
type VolumeMountType string

const (
	VolumeMountTypeBind   VolumeMountType = "bind"
	VolumeMountTypeVolume VolumeMountType = "volume"
	VolumeMountTypeTmpfs  VolumeMountType = "tmpfs"
)

// VolumeMount defines a volume mount on a service.
type VolumeMount struct {
	Type     VolumeMountType
	Source   string
	Target   string
	ReadOnly bool
}

// Volume is a top-level named volume declaration.
type Volume struct {
	Name     string
	Driver   string
	External bool
	Labels   map[string]string
}

// Images returns the images declared by the document's services, in service
// order, deduplicated. Services without an image are skipped.
func (d *Document) Images() []string {
	seen := make(map[string]bool)
	var images []string
	for _, svc := range d.Services {
		if svc.Image == "" || seen[svc.Image] {
			continue
		}
		seen[svc.Image] = true
		images = append(images, svc.Image)
	}
	return images
}

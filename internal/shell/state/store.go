package state

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// =============================================================================
// Store Interface
// =============================================================================

// Store persists the last-installed composition document per role.
type Store interface {
	// Save writes data as the persisted composition for role, overwriting
	// any prior content. A concurrent reader never observes a partial write.
	Save(role, data string) error

	// Load returns the most recently saved composition for role.
	// Returns ErrNotFound if nothing is persisted.
	Load(role string) (string, error)

	// Delete removes the persisted composition for role. Deleting an absent
	// role is a no-op, not an error.
	Delete(role string) error
}

// =============================================================================
// FileStore
// =============================================================================

// FileStore implements Store with one file per role under dir, following the
// <state_dir>/<role>.compose layout.
type FileStore struct {
	dir string
}

// NewFileStore creates a file store rooted at dir, creating dir if needed.
func NewFileStore(dir string) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, NewStateError("NewFileStore", "", "failed to create state directory", err)
	}
	return &FileStore{dir: dir}, nil
}

// Path returns the persisted file path for role.
func (s *FileStore) Path(role string) string {
	return filepath.Join(s.dir, role+".compose")
}

// Save writes the composition atomically via write-to-temp-then-rename.
func (s *FileStore) Save(role, data string) error {
	if err := validateRole(role); err != nil {
		return NewStateError("Save", role, err.Error(), err)
	}

	tmp, err := os.CreateTemp(s.dir, "."+role+".compose.*")
	if err != nil {
		return NewStateError("Save", role, "failed to create temp file", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.WriteString(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return NewStateError("Save", role, "failed to write temp file", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return NewStateError("Save", role, "failed to sync temp file", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return NewStateError("Save", role, "failed to close temp file", err)
	}

	if err := os.Chmod(tmpName, 0o644); err != nil {
		os.Remove(tmpName)
		return NewStateError("Save", role, "failed to set file mode", err)
	}
	if err := os.Rename(tmpName, s.Path(role)); err != nil {
		os.Remove(tmpName)
		return NewStateError("Save", role, "failed to rename temp file", err)
	}

	return nil
}

// Load returns the persisted composition for role.
func (s *FileStore) Load(role string) (string, error) {
	if err := validateRole(role); err != nil {
		return "", NewStateError("Load", role, err.Error(), err)
	}

	data, err := os.ReadFile(s.Path(role))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", NewStateError("Load", role, "not installed", ErrNotFound)
		}
		return "", NewStateError("Load", role, "failed to read file", err)
	}

	return string(data), nil
}

// Delete removes the persisted composition for role. Idempotent.
func (s *FileStore) Delete(role string) error {
	if err := validateRole(role); err != nil {
		return NewStateError("Delete", role, err.Error(), err)
	}

	if err := os.Remove(s.Path(role)); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return NewStateError("Delete", role, "failed to remove file", err)
	}

	return nil
}

// validateRole rejects role names that would escape the state directory or
// collide with the temp-file naming scheme.
func validateRole(role string) error {
	if role == "" {
		return fmt.Errorf("empty role: %w", ErrInvalidRole)
	}
	if strings.ContainsAny(role, "/\\") || role != filepath.Base(role) {
		return fmt.Errorf("role %q contains path separators: %w", role, ErrInvalidRole)
	}
	if strings.HasPrefix(role, ".") {
		return fmt.Errorf("role %q starts with a dot: %w", role, ErrInvalidRole)
	}
	return nil
}

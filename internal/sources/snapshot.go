package sources

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/i474232898/clinic-finder/internal/clinic"
)

// ErrSnapshotMissing is returned when no snapshot file exists yet.
var ErrSnapshotMissing = errors.New("snapshot file not found")

// FileSnapshot reads and writes the pre-generated clinic list as JSON.
// It implements clinic.SnapshotSource.
type FileSnapshot struct {
	path string
}

// NewFileSnapshot creates a FileSnapshot at path.
func NewFileSnapshot(path string) *FileSnapshot {
	return &FileSnapshot{path: path}
}

// Path returns the file location.
func (f *FileSnapshot) Path() string {
	return f.path
}

// LoadSnapshot implements clinic.SnapshotSource.
func (f *FileSnapshot) LoadSnapshot(ctx context.Context) (*clinic.Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(f.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, ErrSnapshotMissing
		}
		return nil, fmt.Errorf("read snapshot: %w", err)
	}
	var snap clinic.Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("decode snapshot: %w", err)
	}
	return &snap, nil
}

// WriteSnapshot replaces the file atomically.
func (f *FileSnapshot) WriteSnapshot(snap *clinic.Snapshot) error {
	if snap == nil {
		return errors.New("nil snapshot")
	}
	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}
	dir := filepath.Dir(f.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create snapshot dir: %w", err)
	}
	tmp, err := os.CreateTemp(dir, ".clinics-*.json")
	if err != nil {
		return fmt.Errorf("create temp snapshot: %w", err)
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write snapshot: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close snapshot: %w", err)
	}
	return os.Rename(tmp.Name(), f.path)
}

// Package fs implements engine.FileSystem against the local disk, for
// deployments that keep attachment blobs on a single machine's volume
// rather than in object storage (see collaborators/blob/gcs for that).
package fs

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/session-mesh/jobengine/engine"
)

var _ engine.FileSystem = (*Store)(nil)

// Store is a filesystem-based implementation of engine.FileSystem.
// One store-wide lock serializes all writes (Write, RemoveItem,
// MoveItem) regardless of directory; reads share it.
type Store struct {
	baseDir string
	mu      sync.RWMutex
}

// NewStore creates a filesystem-backed blob store rooted at baseDir,
// creating it if necessary.
func NewStore(baseDir string) (*Store, error) {
	if err := os.MkdirAll(baseDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create base directory: %w", err)
	}
	return &Store{baseDir: baseDir}, nil
}

func (s *Store) resolve(atPath string) string {
	if filepath.IsAbs(atPath) {
		return atPath
	}
	return filepath.Join(s.baseDir, atPath)
}

// Contents reads the full contents of the blob at atPath.
func (s *Store) Contents(atPath string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	data, err := os.ReadFile(s.resolve(atPath))
	if err != nil {
		return nil, fmt.Errorf("fs: read %s: %w", atPath, err)
	}
	return data, nil
}

// Write stores data at atPath, creating parent directories as needed.
// When atomic is true, the write lands via a temp file renamed into
// place so a reader never observes a partial blob.
func (s *Store) Write(data []byte, atPath string, atomic bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	full := s.resolve(atPath)
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return fmt.Errorf("fs: mkdir for %s: %w", atPath, err)
	}

	if !atomic {
		if err := os.WriteFile(full, data, 0o644); err != nil {
			return fmt.Errorf("fs: write %s: %w", atPath, err)
		}
		return nil
	}

	tmp, err := os.CreateTemp(filepath.Dir(full), ".tmp-*")
	if err != nil {
		return fmt.Errorf("fs: create temp file for %s: %w", atPath, err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("fs: write temp file for %s: %w", atPath, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("fs: close temp file for %s: %w", atPath, err)
	}
	if err := os.Rename(tmpName, full); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("fs: rename temp file into place for %s: %w", atPath, err)
	}
	return nil
}

// RemoveItem deletes the blob at atPath. Missing files are not an
// error, per the FileSystem contract.
func (s *Store) RemoveItem(atPath string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.Remove(s.resolve(atPath)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("fs: remove %s: %w", atPath, err)
	}
	return nil
}

// MoveItem relocates a blob from one path to another, creating the
// destination's parent directories as needed.
func (s *Store) MoveItem(from, to string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	dst := s.resolve(to)
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return fmt.Errorf("fs: mkdir for %s: %w", to, err)
	}
	if err := os.Rename(s.resolve(from), dst); err != nil {
		return fmt.Errorf("fs: move %s to %s: %w", from, to, err)
	}
	return nil
}

// ContentsOfDirectory lists entry names directly under atPath.
func (s *Store) ContentsOfDirectory(atPath string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entries, err := os.ReadDir(s.resolve(atPath))
	if err != nil {
		return nil, fmt.Errorf("fs: read dir %s: %w", atPath, err)
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name())
	}
	return names, nil
}

// FileExists reports whether a blob exists at atPath.
func (s *Store) FileExists(atPath string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	_, err := os.Stat(s.resolve(atPath))
	return err == nil
}

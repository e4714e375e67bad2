// internal/workspace/fs.go
package workspace

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"sync"
)

// FileSystem is the file access the pipeline needs
type FileSystem interface {
	ReadFile(path string) ([]byte, error)
	WriteFile(path string, data []byte) error
}

// Local reads and writes the real file system
type Local struct{}

func (Local) ReadFile(path string) ([]byte, error) {
	return os.ReadFile(path)
}

// TempSuffix ends the name of the temporary file WriteFile renames into
// place. Classifiers always exclude it.
const TempSuffix = ".localesync-tmp"

// WriteFile writes a temporary file next to path and renames it over
// path, so readers never see a partial file. The mode of an existing file
// is kept.
func (Local) WriteFile(path string, data []byte) error {
	mode := fs.FileMode(0644)
	if info, err := os.Stat(path); err == nil {
		mode = info.Mode().Perm()
	}
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("creating directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*"+TempSuffix)
	if err != nil {
		return fmt.Errorf("creating temporary file: %w", err)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("writing temporary file: %w", err)
	}
	if err := tmp.Chmod(mode); err != nil {
		tmp.Close()
		return fmt.Errorf("setting mode: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("closing temporary file: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("replacing %s: %w", path, err)
	}
	return nil
}

// Memory keeps writes in memory. Reads fall through to Base for paths it
// has not written; a nil Base makes it a fully in-memory file system.
type Memory struct {
	Base FileSystem

	mu     sync.RWMutex
	files  map[string][]byte
	writes []string
}

func NewMemory(base FileSystem) *Memory {
	return &Memory{Base: base, files: make(map[string][]byte)}
}

func (m *Memory) ReadFile(path string) ([]byte, error) {
	m.mu.RLock()
	data, ok := m.files[path]
	m.mu.RUnlock()
	if ok {
		return append([]byte(nil), data...), nil
	}
	if m.Base != nil {
		return m.Base.ReadFile(path)
	}
	return nil, &fs.PathError{Op: "open", Path: path, Err: fs.ErrNotExist}
}

func (m *Memory) WriteFile(path string, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.files[path] = append([]byte(nil), data...)
	m.writes = append(m.writes, path)
	return nil
}

// Remove drops a file written to memory
func (m *Memory) Remove(path string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.files, path)
}

// Writes lists every WriteFile call in order
func (m *Memory) Writes() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]string(nil), m.writes...)
}

// Paths lists the files held in memory
func (m *Memory) Paths() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]string, 0, len(m.files))
	for p := range m.files {
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}

// IsNotExist reports whether err means the file is missing
func IsNotExist(err error) bool {
	return errors.Is(err, fs.ErrNotExist)
}

// FindRoot walks up from startDir to the first directory holding marker
func FindRoot(startDir, marker string) (string, error) {
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return "", err
	}

	for {
		if _, err := os.Stat(filepath.Join(dir, marker)); err == nil {
			return dir, nil
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}

	return "", fmt.Errorf("workspace root not found: no %s above %s", marker, startDir)
}

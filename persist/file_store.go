package persist

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/natefinch/atomic"
)

const (
	FilePermissions os.FileMode = 0600
	DirPermissions  os.FileMode = 0700
)

// FileStore keeps the store in a single file that is replaced atomically on
// every Save.
type FileStore struct {
	path string
}

// NewFileStore returns a FileStore for path. The file does not need to exist.
func NewFileStore(path string) (*FileStore, error) {
	if path == "" {
		return nil, fmt.Errorf("store path cannot be empty")
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve store path: %w", err)
	}
	return &FileStore{path: abs}, nil
}

func (fs *FileStore) Location() string {
	return fs.path
}

func (fs *FileStore) Exists() (bool, error) {
	return fileExists(fs.path)
}

func (fs *FileStore) Load() ([]byte, error) {
	data, err := os.ReadFile(fs.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, ErrNotExist
		}
		return nil, fmt.Errorf("failed to read store file: %w", err)
	}
	return data, nil
}

// Save writes data to a temporary file in the same directory and renames it
// over the store file, so readers see either the old or the new content.
func (fs *FileStore) Save(data []byte) error {
	if err := os.MkdirAll(filepath.Dir(fs.path), DirPermissions); err != nil {
		return fmt.Errorf("failed to create store directory: %w", err)
	}
	if err := atomic.WriteFile(fs.path, bytes.NewReader(data)); err != nil {
		return fmt.Errorf("failed to write store file: %w", err)
	}
	if err := os.Chmod(fs.path, FilePermissions); err != nil {
		return fmt.Errorf("failed to set permissions: %w", err)
	}
	return nil
}

func fileExists(path string) (bool, error) {
	_, err := os.Stat(path)
	if err == nil {
		return true, nil
	}
	if os.IsNotExist(err) {
		return false, nil
	}
	return false, err
}

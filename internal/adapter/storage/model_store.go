package storage

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/tdnguyen/retail-analytics/internal/port"
)

// FileModelStore persists model artifacts as one file per model name under
// a directory. Writes go through a temp file and rename so a crashed save
// never leaves a torn artifact behind.
type FileModelStore struct {
	dir string
}

func NewFileModelStore(dir string) (*FileModelStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create models dir: %w", err)
	}
	return &FileModelStore{dir: dir}, nil
}

func (s *FileModelStore) Save(name string, data []byte) error {
	path := filepath.Join(s.dir, name)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write model %s: %w", name, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("write model %s: %w", name, err)
	}
	return nil
}

func (s *FileModelStore) Load(name string) ([]byte, error) {
	data, err := os.ReadFile(filepath.Join(s.dir, name))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, port.ErrArtifactNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("read model %s: %w", name, err)
	}
	return data, nil
}

func (s *FileModelStore) Location() string {
	return s.dir
}

package storage

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"
)

// LocalStorage persists uploaded file bytes under a single directory. Keys
// are random and keep the original extension so content can be identified on
// disk.
type LocalStorage struct {
	dir string
}

func NewLocalStorage(dir string) *LocalStorage {
	return &LocalStorage{dir: dir}
}

// Save writes data to a new file and returns its stable key.
func (s *LocalStorage) Save(filename string, data []byte) (string, error) {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return "", fmt.Errorf("create upload dir failed: %w", err)
	}

	key := uuid.NewString() + filepath.Ext(filename)
	if err := os.WriteFile(filepath.Join(s.dir, key), data, 0o644); err != nil {
		return "", fmt.Errorf("write upload failed: %w", err)
	}
	return key, nil
}

// Path resolves a key to the on-disk location.
func (s *LocalStorage) Path(key string) string {
	return filepath.Join(s.dir, key)
}

func (s *LocalStorage) Delete(key string) error {
	if err := os.Remove(filepath.Join(s.dir, key)); err != nil {
		return fmt.Errorf("delete upload failed: %w", err)
	}
	return nil
}

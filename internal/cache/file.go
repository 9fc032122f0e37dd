package cache

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// FileStorage keeps the document in a single JSON file.
// Writes go through a temporary file and a rename so readers never see a
// partially written document.
type FileStorage struct {
	path string
}

// NewFileStorage returns a storage backed by the file at path.
func NewFileStorage(path string) (*FileStorage, error) {
	if path == "" {
		return nil, errors.New("cache file path cannot be empty")
	}
	return &FileStorage{path: path}, nil
}

// Init creates the parent directory.
func (s *FileStorage) Init(_ context.Context) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o750); err != nil {
		return fmt.Errorf("failed to create cache directory: %w", err)
	}
	return nil
}

// Load reads the cache file.
func (s *FileStorage) Load(_ context.Context) ([]byte, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNoData
		}
		return nil, fmt.Errorf("failed to read cache file: %w", err)
	}
	return data, nil
}

// Save writes the cache file atomically.
func (s *FileStorage) Save(ctx context.Context, data []byte) error {
	if err := s.Init(ctx); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(filepath.Dir(s.path), filepath.Base(s.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp cache file: %w", err)
	}
	tmpPath := tmp.Name()

	if _, writeErr := tmp.Write(data); writeErr != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
		return fmt.Errorf("failed to write cache file: %w", writeErr)
	}
	if closeErr := tmp.Close(); closeErr != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("failed to close cache file: %w", closeErr)
	}

	if renameErr := os.Rename(tmpPath, s.path); renameErr != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("failed to rename cache file: %w", renameErr)
	}
	return nil
}

// Clear removes the cache file. A missing file is not an error.
func (s *FileStorage) Clear(_ context.Context) error {
	if err := os.Remove(s.path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete cache file: %w", err)
	}
	return nil
}

// Location returns the cache file path.
func (s *FileStorage) Location() string {
	return s.path
}

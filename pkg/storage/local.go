package storage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
)

// LocalStore persists attachments on disk under a base directory.
// The server exposes the directory under /media for development use.
type LocalStore struct {
	baseDir string
}

// NewLocalStore ensures the base directory exists and returns a handle.
func NewLocalStore(baseDir string) (*LocalStore, error) {
	if baseDir == "" {
		baseDir = "./media"
	}
	if err := os.MkdirAll(baseDir, 0o755); err != nil {
		return nil, fmt.Errorf("create media directory: %w", err)
	}
	return &LocalStore{baseDir: baseDir}, nil
}

// Put writes the object bytes under the base directory.
func (s *LocalStore) Put(_ context.Context, name, _ string, data []byte) (string, error) {
	path := s.resolve(name)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", fmt.Errorf("prepare media directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("write media file: %w", err)
	}
	return s.URL(name), nil
}

// Exists checks the file on disk.
func (s *LocalStore) Exists(_ context.Context, name string) (bool, error) {
	if _, err := os.Stat(s.resolve(name)); err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, fmt.Errorf("stat media file: %w", err)
	}
	return true, nil
}

// URL returns the path the server serves the file from.
func (s *LocalStore) URL(name string) string {
	return "/media/" + name
}

// Dir exposes the base directory for static-file mounting.
func (s *LocalStore) Dir() string {
	return s.baseDir
}

func (s *LocalStore) resolve(name string) string {
	return filepath.Join(s.baseDir, filepath.Clean("/"+name))
}

package storage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// DiskStorage keeps blobs on the local filesystem under a base directory
// and serves them from a base URL path.
type DiskStorage struct {
	baseDir string
	baseURL string
}

// NewDiskStorage returns a DiskStorage rooted at baseDir, serving from baseURL.
func NewDiskStorage(baseDir, baseURL string) *DiskStorage {
	return &DiskStorage{
		baseDir: baseDir,
		baseURL: strings.TrimSuffix(baseURL, "/"),
	}
}

// BaseDir returns the directory blobs are written under, for static serving.
func (s *DiskStorage) BaseDir() string {
	return s.baseDir
}

func (s *DiskStorage) pathFor(key string) (string, error) {
	cleaned := filepath.Clean("/" + key)
	if cleaned == "/" {
		return "", fmt.Errorf("invalid storage key %q", key)
	}
	return filepath.Join(s.baseDir, cleaned), nil
}

func (s *DiskStorage) Put(_ context.Context, key string, contents []byte, _ string) (string, error) {
	path, err := s.pathFor(key)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", fmt.Errorf("failed to create storage directory: %w", err)
	}
	if err := os.WriteFile(path, contents, 0o644); err != nil {
		return "", fmt.Errorf("failed to write file: %w", err)
	}
	return s.baseURL + "/" + strings.TrimPrefix(key, "/"), nil
}

func (s *DiskStorage) Delete(_ context.Context, key string) error {
	path, err := s.pathFor(key)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove file: %w", err)
	}
	return nil
}

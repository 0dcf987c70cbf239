package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// LocalStorage keeps artifacts on the local filesystem under a single
// base directory. It is the default backend for single-machine runs.
type LocalStorage struct {
	baseDir string
}

// NewLocalStorage creates a filesystem-backed storage rooted at baseDir,
// creating the directory if needed.
func NewLocalStorage(baseDir string) (*LocalStorage, error) {
	baseDir = filepath.Clean(baseDir)
	if baseDir == "" || baseDir == "." {
		return nil, fmt.Errorf("%w: base directory cannot be empty", ErrInvalidKey)
	}
	if err := os.MkdirAll(baseDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create base directory: %w", err)
	}
	return &LocalStorage{baseDir: baseDir}, nil
}

// Upload writes the reader's content to a file under the base directory.
func (s *LocalStorage) Upload(ctx context.Context, key string, reader io.Reader) error {
	target, err := s.resolve(key)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(target), 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	file, err := os.Create(target)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	defer file.Close()

	if _, err := io.Copy(file, reader); err != nil {
		// Do not leave a truncated artifact behind.
		os.Remove(target)
		return fmt.Errorf("failed to write file: %w", err)
	}
	return nil
}

// Download opens the file stored under key.
func (s *LocalStorage) Download(ctx context.Context, key string) (io.ReadCloser, error) {
	target, err := s.resolve(key)
	if err != nil {
		return nil, err
	}

	file, err := os.Open(target)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, ErrObjectNotFound
		}
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	return file, nil
}

// Delete removes the file stored under key.
func (s *LocalStorage) Delete(ctx context.Context, key string) error {
	target, err := s.resolve(key)
	if err != nil {
		return err
	}

	if err := os.Remove(target); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return ErrObjectNotFound
		}
		return fmt.Errorf("failed to delete file: %w", err)
	}
	return nil
}

// Exists reports whether a file is stored under key.
func (s *LocalStorage) Exists(ctx context.Context, key string) (bool, error) {
	target, err := s.resolve(key)
	if err != nil {
		return false, err
	}

	if _, err := os.Stat(target); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return false, nil
		}
		return false, fmt.Errorf("failed to stat file: %w", err)
	}
	return true, nil
}

// GetURL returns the filesystem path of the stored file.
func (s *LocalStorage) GetURL(ctx context.Context, key string) (string, error) {
	target, err := s.resolve(key)
	if err != nil {
		return "", err
	}

	exists, err := s.Exists(ctx, key)
	if err != nil {
		return "", err
	}
	if !exists {
		return "", ErrObjectNotFound
	}
	return target, nil
}

// resolve maps a key to an absolute path, rejecting anything that would
// escape the base directory.
func (s *LocalStorage) resolve(key string) (string, error) {
	if key == "" {
		return "", fmt.Errorf("%w: key cannot be empty", ErrInvalidKey)
	}

	target := filepath.Join(s.baseDir, filepath.Clean(key))

	rel, err := filepath.Rel(s.baseDir, target)
	if err != nil || rel == ".." || (len(rel) > 2 && rel[:3] == ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("%w: path traversal detected", ErrInvalidKey)
	}
	return target, nil
}

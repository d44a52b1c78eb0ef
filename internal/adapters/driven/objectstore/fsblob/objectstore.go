// Package fsblob provides a filesystem implementation of the object
// store port. It is the default backend for single-machine deployments
// where running MinIO would be overkill.
package fsblob

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/evidentia-labs/evidentia/internal/core/domain"
	"github.com/evidentia-labs/evidentia/internal/core/ports/driven"
)

// Ensure ObjectStore implements the interface.
var _ driven.ObjectStore = (*ObjectStore)(nil)

// ObjectStore stores blobs as files under a root directory.
type ObjectStore struct {
	root string
}

// New creates a filesystem object store rooted at the given directory.
// If root is empty, it defaults to ~/.evidentia/blobs.
func New(root string) (*ObjectStore, error) {
	if root == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("getting home directory: %w", err)
		}
		root = filepath.Join(home, ".evidentia", "blobs")
	}

	if err := os.MkdirAll(root, 0o700); err != nil {
		return nil, fmt.Errorf("creating blob directory: %w", err)
	}

	return &ObjectStore{root: root}, nil
}

// Put stores bytes under a key and returns a storage reference.
// The content type is recorded nowhere; the document row keeps it.
func (s *ObjectStore) Put(_ context.Context, key string, data []byte, _ string) (string, error) {
	path, err := s.resolve(key)
	if err != nil {
		return "", err
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return "", fmt.Errorf("creating blob subdirectory: %w", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return "", fmt.Errorf("writing blob: %w", err)
	}

	return key, nil
}

// Get retrieves bytes by storage reference.
func (s *ObjectStore) Get(_ context.Context, ref string) ([]byte, error) {
	path, err := s.resolve(ref)
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("reading blob: %w", err)
	}
	return data, nil
}

// Delete removes a stored blob. Missing blobs are not an error.
func (s *ObjectStore) Delete(_ context.Context, ref string) error {
	path, err := s.resolve(ref)
	if err != nil {
		return err
	}

	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("deleting blob: %w", err)
	}
	return nil
}

// Ping validates the root directory is still accessible.
func (s *ObjectStore) Ping(_ context.Context) error {
	if _, err := os.Stat(s.root); err != nil {
		return fmt.Errorf("pinging blob directory: %w", err)
	}
	return nil
}

// resolve maps a key to an absolute path, rejecting anything that
// would escape the root directory.
func (s *ObjectStore) resolve(key string) (string, error) {
	if key == "" {
		return "", domain.ErrInvalidInput
	}

	clean := filepath.Clean(filepath.FromSlash(key))
	if filepath.IsAbs(clean) || clean == ".." || strings.HasPrefix(clean, ".."+string(filepath.Separator)) {
		return "", domain.ErrInvalidInput
	}

	return filepath.Join(s.root, clean), nil
}

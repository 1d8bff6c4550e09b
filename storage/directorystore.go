package storage

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/wkalt/tsjoin/util"
)

/*
DirectoryStore is a simple storage provider that stores objects in a local
directory, one file per object.
*/

////////////////////////////////////////////////////////////////////////////////

type DirectoryStore struct {
	root string
}

// NewDirectoryStore creates a new DirectoryStore, creating the root directory
// if it does not exist.
func NewDirectoryStore(root string) (*DirectoryStore, error) {
	if err := util.EnsureDirectoryExists(root); err != nil {
		return nil, fmt.Errorf("failed to create storage directory: %w", err)
	}
	return &DirectoryStore{root: root}, nil
}

func (d *DirectoryStore) path(id string) string {
	return filepath.Join(d.root, id)
}

// Put stores an object in the directory. The object is written to a temporary
// file and renamed into place.
func (d *DirectoryStore) Put(_ context.Context, id string, data []byte) error {
	f, err := os.CreateTemp(d.root, ".put-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	defer os.Remove(f.Name())
	if _, err := f.Write(data); err != nil {
		_ = f.Close()
		return fmt.Errorf("write failure: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("failed to close file: %w", err)
	}
	if err := os.Rename(f.Name(), d.path(id)); err != nil {
		return fmt.Errorf("failed to rename file: %w", err)
	}
	return nil
}

// Get retrieves an object from the directory.
func (d *DirectoryStore) Get(_ context.Context, id string) ([]byte, error) {
	data, err := os.ReadFile(d.path(id))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, ErrObjectNotFound
		}
		return nil, fmt.Errorf("failed to read file: %w", err)
	}
	return data, nil
}

// Delete removes an object from the directory.
func (d *DirectoryStore) Delete(_ context.Context, id string) error {
	err := os.Remove(d.path(id))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) { // For conformance to S3 API
			return nil
		}
		return fmt.Errorf("deletion failure: %w", err)
	}
	return nil
}

func (d *DirectoryStore) String() string {
	return fmt.Sprintf("directory(%s)", d.root)
}

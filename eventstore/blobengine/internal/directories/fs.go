package directories

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/instrumentkit/blob-eventstore-go/eventstore"
)

const tempBlobPattern = ".blob-*.tmp"

// FSDirectory stores each blob as one file directly under a root directory.
// Writes go through a temp file plus rename, so a blob is never visible half-written.
type FSDirectory struct {
	root string
}

// NewFSDirectory creates the root directory if needed and returns a directory over it.
func NewFSDirectory(root string) (*FSDirectory, error) {
	if root == "" {
		return nil, eventstore.ErrEmptyDirectoryRoot
	}

	if mkdirErr := os.MkdirAll(root, 0o750); mkdirErr != nil {
		return nil, mkdirErr
	}

	return &FSDirectory{root: root}, nil
}

// Write creates or overwrites the named blob file.
func (d *FSDirectory) Write(_ context.Context, name string, data []byte) error {
	if validateErr := validateBlobFilename(name); validateErr != nil {
		return validateErr
	}

	tmp, createErr := os.CreateTemp(d.root, tempBlobPattern)
	if createErr != nil {
		return createErr
	}

	if _, writeErr := tmp.Write(data); writeErr != nil {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())
		return writeErr
	}

	if closeErr := tmp.Close(); closeErr != nil {
		_ = os.Remove(tmp.Name())
		return closeErr
	}

	return os.Rename(tmp.Name(), filepath.Join(d.root, name))
}

// Read returns the content of the named blob file.
func (d *FSDirectory) Read(_ context.Context, name string) ([]byte, error) {
	if validateErr := validateBlobFilename(name); validateErr != nil {
		return nil, validateErr
	}

	data, readErr := os.ReadFile(filepath.Join(d.root, name))
	if errors.Is(readErr, fs.ErrNotExist) {
		return nil, errors.Join(eventstore.ErrBlobNotFound, readErr)
	}
	if readErr != nil {
		return nil, readErr
	}

	return data, nil
}

// List enumerates all blob files under the root, skipping subdirectories and
// temp files from in-flight writes.
func (d *FSDirectory) List(_ context.Context) ([]string, error) {
	entries, readErr := os.ReadDir(d.root)
	if readErr != nil {
		return nil, readErr
	}

	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || isTempBlobFilename(entry.Name()) {
			continue
		}
		names = append(names, entry.Name())
	}

	return names, nil
}

// Delete removes the named blob file.
func (d *FSDirectory) Delete(_ context.Context, name string) error {
	if validateErr := validateBlobFilename(name); validateErr != nil {
		return validateErr
	}

	removeErr := os.Remove(filepath.Join(d.root, name))
	if errors.Is(removeErr, fs.ErrNotExist) {
		return errors.Join(eventstore.ErrBlobNotFound, removeErr)
	}

	return removeErr
}

// validateBlobFilename rejects names that would escape the root directory.
func validateBlobFilename(name string) error {
	if name == "" || name != filepath.Base(name) || strings.ContainsRune(name, os.PathSeparator) {
		return eventstore.ErrInvalidBlobName
	}

	return nil
}

func isTempBlobFilename(name string) bool {
	return strings.HasPrefix(name, ".blob-") && strings.HasSuffix(name, ".tmp")
}

// Ensure FSDirectory implements eventstore.BlobDirectory.
var _ eventstore.BlobDirectory = (*FSDirectory)(nil)

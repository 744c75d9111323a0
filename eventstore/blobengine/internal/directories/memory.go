package directories

import (
	"context"
	"sync"

	"github.com/instrumentkit/blob-eventstore-go/eventstore"
)

// MemoryDirectory is a map-backed BlobDirectory for tests and embedding.
// It copies blob content on the way in and out.
type MemoryDirectory struct {
	mu    sync.RWMutex
	blobs map[string][]byte
}

// NewMemoryDirectory creates an empty in-memory directory.
func NewMemoryDirectory() *MemoryDirectory {
	return &MemoryDirectory{blobs: make(map[string][]byte)}
}

// Write creates or overwrites the named blob.
func (d *MemoryDirectory) Write(_ context.Context, name string, data []byte) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	stored := make([]byte, len(data))
	copy(stored, data)
	d.blobs[name] = stored

	return nil
}

// Read returns a copy of the named blob's content.
func (d *MemoryDirectory) Read(_ context.Context, name string) ([]byte, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	stored, exists := d.blobs[name]
	if !exists {
		return nil, eventstore.ErrBlobNotFound
	}

	data := make([]byte, len(stored))
	copy(data, stored)

	return data, nil
}

// List enumerates all blob names.
func (d *MemoryDirectory) List(_ context.Context) ([]string, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	names := make([]string, 0, len(d.blobs))
	for name := range d.blobs {
		names = append(names, name)
	}

	return names, nil
}

// Delete removes the named blob.
func (d *MemoryDirectory) Delete(_ context.Context, name string) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if _, exists := d.blobs[name]; !exists {
		return eventstore.ErrBlobNotFound
	}

	delete(d.blobs, name)

	return nil
}

// Ensure MemoryDirectory implements eventstore.BlobDirectory.
var _ eventstore.BlobDirectory = (*MemoryDirectory)(nil)

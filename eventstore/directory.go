package eventstore

import (
	"context"
	"errors"
)

// ErrBlobNotFound is returned by BlobDirectory implementations when no blob
// exists under the requested name.
var ErrBlobNotFound = errors.New("blob not found")

// ErrInvalidBlobName is returned when a blob name cannot be used by the
// directory implementation, e.g. a filesystem directory refusing path separators.
var ErrInvalidBlobName = errors.New("blob name is not valid")

// BlobDirectory is the narrow persistence contract the EventStore consumes.
// A directory is a flat namespace of named byte blobs; it may be backed by a
// filesystem, an embedded key-value store, or a database table.
//
// The directory is a shared, externally provided resource: the store never
// creates or owns it and performs no retries on its behalf.
type BlobDirectory interface {
	// Write creates or overwrites the named blob with the given content.
	Write(ctx context.Context, name string, data []byte) error

	// Read returns the content of the named blob,
	// or an error wrapping ErrBlobNotFound if no such blob exists.
	Read(ctx context.Context, name string) ([]byte, error)

	// List enumerates the names of all blobs currently in the directory.
	List(ctx context.Context) ([]string, error)

	// Delete removes the named blob,
	// or returns an error wrapping ErrBlobNotFound if no such blob exists.
	Delete(ctx context.Context, name string) error
}

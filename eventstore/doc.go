// Package eventstore provides core abstractions and types for storing
// instrumentation events as individually addressable blobs.
//
// This package defines the fundamental contracts used by the storage
// engines, including the event DTO with its serialized wire form, the
// BlobDirectory persistence contract, the pluggable Cipher transform,
// and common error definitions.
//
// Key types:
//   - StorableEvent: Represents one instrumentation event that can be stored and retrieved
//   - BlobDirectory: Narrow contract for the underlying blob persistence
//   - Cipher: Pluggable encrypt/decrypt transform applied to serialized events
//
// Common usage pattern:
//
//	event, err := eventstore.BuildStorableEvent("session-1", payloadJSON)
//	if err != nil {
//		// handle error
//	}
//
//	err = store.Store(ctx, event)
//	fetched, err := store.Fetch(ctx, "session-1")
package eventstore

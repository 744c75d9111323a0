package eventstore

import (
	"errors"
)

var ErrNilBlobDirectory = errors.New("blob directory must not be nil")
var ErrNilDatabaseConnection = errors.New("database connection must not be nil")
var ErrEmptyDirectoryRoot = errors.New("directory root path must not be empty")
var ErrEmptyBlobTableName = errors.New("blob table name must not be empty")
var ErrEmptySQLDialect = errors.New("sql dialect must not be empty")
var ErrNilCipher = errors.New("cipher must not be nil")

var (
	// ErrEventNotFound is returned when no blob exists for the requested event id.
	ErrEventNotFound = errors.New("event not found")

	// ErrStoreAdmissionDenied is returned when a batch is refused because
	// logging is disabled or the stored blob count has reached the capacity cap.
	ErrStoreAdmissionDenied = errors.New("event batch not admitted to the store")

	// ErrListingBlobsFailed is returned when the blob directory cannot be enumerated.
	ErrListingBlobsFailed = errors.New("listing blobs failed")

	// ErrStoringEventFailed is returned when writing an event blob fails.
	ErrStoringEventFailed = errors.New("storing event failed")

	// ErrFetchingEventFailed is returned when reading an event blob fails
	// for reasons other than the blob being missing.
	ErrFetchingEventFailed = errors.New("fetching event failed")

	// ErrSerializationFailed is returned when an event cannot be encoded to its wire form.
	ErrSerializationFailed = errors.New("serializing event failed")

	// ErrDeserializationFailed is returned when stored bytes cannot be decoded into an event.
	ErrDeserializationFailed = errors.New("deserializing stored event failed")

	// ErrEncryptionFailed is returned when the cipher cannot encrypt a serialized event.
	ErrEncryptionFailed = errors.New("encrypting event failed")

	// ErrDecryptionFailed is returned when the cipher cannot decrypt stored bytes,
	// typically because they were written under a different key.
	ErrDecryptionFailed = errors.New("decrypting stored event failed")

	// ErrKeyMismatch is returned by key rotation when the supplied old key
	// does not match the store's current encryption key.
	ErrKeyMismatch = errors.New("old key does not match the current encryption key")

	// ErrKeyRotationFailed wraps failures during any phase of a key rotation.
	ErrKeyRotationFailed = errors.New("key rotation failed")

	// ErrInvalidMaxEvents is returned when a negative capacity cap is supplied.
	ErrInvalidMaxEvents = errors.New("max events must not be negative")
)

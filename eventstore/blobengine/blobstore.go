package blobengine

import (
	"context"
	"database/sql"
	"errors"
	"sync"
	"time"

	"github.com/dgraph-io/badger/v2"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jmoiron/sqlx"

	"github.com/instrumentkit/blob-eventstore-go/eventstore"
	"github.com/instrumentkit/blob-eventstore-go/eventstore/blobengine/internal/directories"
)

const (
	defaultMaxEvents     = 1000
	defaultBlobTableName = "event_blobs"
	defaultSQLDialect    = "postgres"

	logMsgInvalidEventSupplied   = "refusing to store invalid event"
	logMsgEmptyBatchSupplied     = "empty event batch supplied, nothing to store"
	logMsgEmptyIDBatchSupplied   = "empty event id batch supplied, nothing to delete"
	logMsgEmptyEventIDSupplied   = "empty event id supplied"
	logMsgAdmissionDenied        = "event batch not admitted"
	logMsgBlobWriteFailed        = "failed to write event blob"
	logMsgBlobNotFound           = "event blob not found"
	logMsgBlobReadFailed         = "failed to read event blob"
	logMsgBlobDeleteFailed       = "failed to delete event blob"
	logMsgListBlobsFailed        = "failed to enumerate blob directory"
	logMsgEncryptFailed          = "failed to encrypt event"
	logMsgDecryptFailed          = "failed to decrypt stored event"
	logMsgDeserializeFailed      = "failed to deserialize stored event"
	logMsgSkippingUnreadableBlob = "skipping unreadable blob during bulk fetch"
	logMsgKeyMismatch            = "old key does not match the current key, rotation refused"
	logMsgOperation              = "eventstore operation: "
	logMsgEventStored            = "event stored"
	logMsgEventsStored           = "events stored"
	logMsgEventsFetched          = "events fetched"
	logMsgEventsDeleted          = "events deleted"
	logMsgKeyRotated             = "encryption key rotated"

	logAttrError       = "error"
	logAttrEventID     = "event_id"
	logAttrBlobName    = "blob_name"
	logAttrEventCount  = "event_count"
	logAttrStoredCount = "stored_count"
	logAttrMaxEvents   = "max_events"
	logAttrDurationMS  = "duration_ms"
)

// EventStore persists instrumentation events as one blob per event in a
// BlobDirectory, enforcing the admission policy (logging flag plus capacity
// cap) and supporting bulk fetch/delete and whole-corpus key rotation.
//
// Blob names are formed as eventID + filenameSuffix; that naming scheme is
// the only on-disk contract beyond the event's serialized form.
//
// A single per-store mutex guards every multi-step sequence against the
// shared directory (batch admission-then-write, rotation's
// fetch-delete-rewrite), so concurrent callers on one store cannot interleave
// those sequences. Distinct stores sharing one directory are not coordinated.
type EventStore struct {
	mu        sync.Mutex
	directory eventstore.BlobDirectory
	cipher    eventstore.Cipher

	filenameSuffix string
	encryptionKey  string
	loggingEnabled bool
	maxEvents      int
	blobTableName  string
	sqlDialect     string

	logger           eventstore.Logger
	contextualLogger eventstore.ContextualLogger
	metricsCollector eventstore.MetricsCollector
	tracingCollector eventstore.TracingCollector
}

func newEventStore(options []Option) (*EventStore, error) {
	es := &EventStore{
		cipher:         eventstore.IdentityCipher{},
		loggingEnabled: true,
		maxEvents:      defaultMaxEvents,
		blobTableName:  defaultBlobTableName,
		sqlDialect:     defaultSQLDialect,
	}

	for _, option := range options {
		if err := option(es); err != nil {
			return nil, err
		}
	}

	return es, nil
}

// NewEventStoreFromDirectory creates a new EventStore over a caller-supplied
// BlobDirectory with optional configuration.
func NewEventStoreFromDirectory(directory eventstore.BlobDirectory, options ...Option) (*EventStore, error) {
	if directory == nil {
		return nil, eventstore.ErrNilBlobDirectory
	}

	es, err := newEventStore(options)
	if err != nil {
		return nil, err
	}

	es.directory = directory

	return es, nil
}

// NewEventStoreFromFS creates a new EventStore storing one file per event
// under the given root directory, with optional configuration.
func NewEventStoreFromFS(root string, options ...Option) (*EventStore, error) {
	es, err := newEventStore(options)
	if err != nil {
		return nil, err
	}

	directory, dirErr := directories.NewFSDirectory(root)
	if dirErr != nil {
		return nil, dirErr
	}

	es.directory = directory

	return es, nil
}

// NewEventStoreFromMemory creates a new EventStore over an in-memory
// directory, with optional configuration. Intended for tests and embedding.
func NewEventStoreFromMemory(options ...Option) (*EventStore, error) {
	es, err := newEventStore(options)
	if err != nil {
		return nil, err
	}

	es.directory = directories.NewMemoryDirectory()

	return es, nil
}

// NewEventStoreFromBadger creates a new EventStore over an already opened
// badger database, with optional configuration. The caller keeps ownership
// of the database and is responsible for closing it.
func NewEventStoreFromBadger(db *badger.DB, options ...Option) (*EventStore, error) {
	if db == nil {
		return nil, eventstore.ErrNilDatabaseConnection
	}

	es, err := newEventStore(options)
	if err != nil {
		return nil, err
	}

	directory, dirErr := directories.NewBadgerDirectory(db)
	if dirErr != nil {
		return nil, dirErr
	}

	es.directory = directory

	return es, nil
}

// NewEventStoreFromSQLDB creates a new EventStore over a blob table accessed
// through a sql.DB, with optional configuration. The table (see
// WithBlobTable) must already exist with columns (name, data).
func NewEventStoreFromSQLDB(db *sql.DB, options ...Option) (*EventStore, error) {
	if db == nil {
		return nil, eventstore.ErrNilDatabaseConnection
	}

	es, err := newEventStore(options)
	if err != nil {
		return nil, err
	}

	directory, dirErr := directories.NewSQLDirectory(directories.NewSQLDB(db), es.sqlDialect, es.blobTableName)
	if dirErr != nil {
		return nil, dirErr
	}

	es.directory = directory

	return es, nil
}

// NewEventStoreFromSQLX creates a new EventStore over a blob table accessed
// through a sqlx.DB, with optional configuration.
func NewEventStoreFromSQLX(db *sqlx.DB, options ...Option) (*EventStore, error) {
	if db == nil {
		return nil, eventstore.ErrNilDatabaseConnection
	}

	es, err := newEventStore(options)
	if err != nil {
		return nil, err
	}

	directory, dirErr := directories.NewSQLDirectory(directories.NewSQLXDB(db), es.sqlDialect, es.blobTableName)
	if dirErr != nil {
		return nil, dirErr
	}

	es.directory = directory

	return es, nil
}

// NewEventStoreFromPGXPool creates a new EventStore over a blob table
// accessed through a pgx pool, with optional configuration.
func NewEventStoreFromPGXPool(pool *pgxpool.Pool, options ...Option) (*EventStore, error) {
	if pool == nil {
		return nil, eventstore.ErrNilDatabaseConnection
	}

	es, err := newEventStore(options)
	if err != nil {
		return nil, err
	}

	directory, dirErr := directories.NewSQLDirectory(directories.NewPGXDB(pool), es.sqlDialect, es.blobTableName)
	if dirErr != nil {
		return nil, dirErr
	}

	es.directory = directory

	return es, nil
}

// Store persists a single event as the blob named event.EventID plus the
// configured filename suffix, creating or overwriting it.
//
// Invalid events (empty id, empty or malformed payload) are logged and
// reported as an error without touching the directory. Store is not gated by
// the admission check; only batches are (see StoreMany).
func (es *EventStore) Store(ctx context.Context, event eventstore.StorableEvent) error {
	es.mu.Lock()
	defer es.mu.Unlock()

	start := time.Now()
	ctx, span := es.startOperationSpan(ctx, operationStore)

	storeErr := es.store(ctx, event)

	es.finishOperationSpan(span, storeErr, time.Since(start))
	es.recordOperationMetrics(ctx, operationStore, storeErr, time.Since(start))

	return storeErr
}

// StoreMany persists an ordered batch of events.
//
// The admission check is evaluated once for the whole batch: the batch is
// admitted iff logging is enabled and the directory currently holds fewer
// blobs than the capacity cap. An admitted batch is stored in sequence and
// may therefore push the store past the cap. A denied batch stores nothing
// and returns eventstore.ErrStoreAdmissionDenied. An empty batch is a no-op.
func (es *EventStore) StoreMany(ctx context.Context, events eventstore.StorableEvents) error {
	es.mu.Lock()
	defer es.mu.Unlock()

	start := time.Now()
	ctx, span := es.startOperationSpan(ctx, operationStoreMany)

	storeErr := es.storeMany(ctx, events)

	es.finishOperationSpan(span, storeErr, time.Since(start))
	es.recordOperationMetrics(ctx, operationStoreMany, storeErr, time.Since(start))

	return storeErr
}

// Fetch reads the blob for the given event id, decrypts it under the current
// key, and decodes it back into an event.
//
// A missing blob is reported as eventstore.ErrEventNotFound; decryption and
// deserialization failures are reported distinctly as
// eventstore.ErrDecryptionFailed and eventstore.ErrDeserializationFailed.
func (es *EventStore) Fetch(ctx context.Context, eventID string) (eventstore.StorableEvent, error) {
	es.mu.Lock()
	defer es.mu.Unlock()

	start := time.Now()
	ctx, span := es.startOperationSpan(ctx, operationFetch)

	event, fetchErr := es.fetch(ctx, eventID)

	es.finishOperationSpan(span, fetchErr, time.Since(start))
	es.recordOperationMetrics(ctx, operationFetch, fetchErr, time.Since(start))

	return event, fetchErr
}

// FetchAll enumerates every blob in the directory regardless of filename
// suffix, decodes each, and returns the successfully decoded events in no
// guaranteed order. Unreadable or undecodable blobs are skipped with a
// warning rather than failing the whole fetch.
func (es *EventStore) FetchAll(ctx context.Context) (eventstore.StorableEvents, error) {
	es.mu.Lock()
	defer es.mu.Unlock()

	start := time.Now()
	ctx, span := es.startOperationSpan(ctx, operationFetchAll)

	events, fetchErr := es.fetchAll(ctx)

	es.finishOperationSpan(span, fetchErr, time.Since(start))
	es.recordOperationMetrics(ctx, operationFetchAll, fetchErr, time.Since(start))

	return events, fetchErr
}

// Delete removes the blob for the given event id. It returns true on
// success and false when the blob is missing or the directory fails;
// directory failures are logged but never propagated.
func (es *EventStore) Delete(ctx context.Context, eventID string) bool {
	es.mu.Lock()
	defer es.mu.Unlock()

	return es.delete(ctx, eventID)
}

// DeleteMany deletes each id in sequence with the same semantics as Delete
// and returns how many blobs were actually removed. It is not atomic:
// failures are reflected only in the count, with no report of which ids failed.
func (es *EventStore) DeleteMany(ctx context.Context, eventIDs []string) int {
	es.mu.Lock()
	defer es.mu.Unlock()

	if len(eventIDs) == 0 {
		es.logOperation(ctx, logMsgEmptyIDBatchSupplied)
		return 0
	}

	deleted := 0
	for _, eventID := range eventIDs {
		if es.delete(ctx, eventID) {
			deleted++
		}
	}

	es.logOperation(ctx, logMsgEventsDeleted, logAttrEventCount, deleted)

	return deleted
}

// DeleteAll enumerates and deletes every blob in the directory, regardless
// of filename suffix. Per-blob delete failures are logged and skipped; only
// a failure to enumerate the directory is returned.
func (es *EventStore) DeleteAll(ctx context.Context) error {
	es.mu.Lock()
	defer es.mu.Unlock()

	start := time.Now()
	ctx, span := es.startOperationSpan(ctx, operationDeleteAll)

	deleteErr := es.deleteAll(ctx)

	es.finishOperationSpan(span, deleteErr, time.Since(start))
	es.recordOperationMetrics(ctx, operationDeleteAll, deleteErr, time.Since(start))

	return deleteErr
}

// RotateKey re-persists the entire stored corpus under a new encryption key:
// it materializes every stored event in memory, clears the directory, swaps
// the current key, and writes everything back.
//
// The supplied oldKey must match the store's current key, otherwise
// eventstore.ErrKeyMismatch is returned and nothing changes. The re-persist
// phase bypasses the admission check so rotation can never lose events to a
// disabled logging flag or a lowered capacity cap.
//
// Rotation is not crash-safe: a process crash between the clear and the
// re-persist phases loses the corpus. It is, however, guarded by the store
// lock, so no concurrent store or delete on this store can interleave with it.
func (es *EventStore) RotateKey(ctx context.Context, oldKey string, newKey string) error {
	es.mu.Lock()
	defer es.mu.Unlock()

	start := time.Now()
	ctx, span := es.startOperationSpan(ctx, operationRotateKey)

	rotateErr := es.rotateKey(ctx, oldKey, newKey)

	es.finishOperationSpan(span, rotateErr, time.Since(start))
	es.recordOperationMetrics(ctx, operationRotateKey, rotateErr, time.Since(start))

	return rotateErr
}

// SetLoggingEnabled toggles the admission flag gating whether new event
// batches may be stored. It has no effect on fetches or deletes.
func (es *EventStore) SetLoggingEnabled(enabled bool) {
	es.mu.Lock()
	defer es.mu.Unlock()

	es.loggingEnabled = enabled
}

// IsLoggingEnabled reports the current state of the admission flag.
func (es *EventStore) IsLoggingEnabled() bool {
	es.mu.Lock()
	defer es.mu.Unlock()

	return es.loggingEnabled
}

// SetMaxEvents sets the capacity cap on the total stored blob count.
// Negative values are rejected with eventstore.ErrInvalidMaxEvents.
func (es *EventStore) SetMaxEvents(maxEvents int) error {
	if maxEvents < 0 {
		return eventstore.ErrInvalidMaxEvents
	}

	es.mu.Lock()
	defer es.mu.Unlock()

	es.maxEvents = maxEvents

	return nil
}

// blobName forms the directory name for an event id, the only naming
// contract of the on-disk format.
func (es *EventStore) blobName(eventID string) string {
	return eventID + es.filenameSuffix
}

func (es *EventStore) store(ctx context.Context, event eventstore.StorableEvent) error {
	if validateErr := event.Validate(); validateErr != nil {
		es.logError(ctx, logMsgInvalidEventSupplied, validateErr, logAttrEventID, event.EventID)
		return validateErr
	}

	serialized, serializeErr := event.Serialize()
	if serializeErr != nil {
		es.logError(ctx, logMsgInvalidEventSupplied, serializeErr, logAttrEventID, event.EventID)
		return serializeErr
	}

	encrypted, encryptErr := es.cipher.Encrypt(serialized, es.encryptionKey)
	if encryptErr != nil {
		es.logError(ctx, logMsgEncryptFailed, encryptErr, logAttrEventID, event.EventID)
		return errors.Join(eventstore.ErrEncryptionFailed, encryptErr)
	}

	name := es.blobName(event.EventID)

	start := time.Now()
	writeErr := es.directory.Write(ctx, name, encrypted)
	duration := time.Since(start)

	if writeErr != nil {
		es.logError(ctx, logMsgBlobWriteFailed, writeErr, logAttrBlobName, name)
		es.recordDirectoryErrorMetrics(ctx, operationStore)
		return errors.Join(eventstore.ErrStoringEventFailed, writeErr)
	}

	es.logDebug(ctx, logMsgEventStored, logAttrBlobName, name, logAttrDurationMS, toMilliseconds(duration))

	return nil
}

func (es *EventStore) storeMany(ctx context.Context, events eventstore.StorableEvents) error {
	if len(events) == 0 {
		es.logOperation(ctx, logMsgEmptyBatchSupplied)
		return nil
	}

	admitted, storedCount, admissionErr := es.admitBatch(ctx)
	if admissionErr != nil {
		return admissionErr
	}

	if !admitted {
		es.logOperation(ctx, logMsgAdmissionDenied,
			logAttrEventCount, len(events),
			logAttrStoredCount, storedCount,
			logAttrMaxEvents, es.maxEvents)
		es.recordDeniedBatchMetrics(ctx)

		return eventstore.ErrStoreAdmissionDenied
	}

	for _, event := range events {
		if storeErr := es.store(ctx, event); storeErr != nil {
			return storeErr
		}
	}

	es.logOperation(ctx, logMsgEventsStored, logAttrEventCount, len(events))

	return nil
}

// admitBatch evaluates the admission check: logging enabled and stored blob
// count below the capacity cap. The count covers every blob in the directory,
// whatever its suffix.
func (es *EventStore) admitBatch(ctx context.Context) (bool, int, error) {
	if !es.loggingEnabled {
		return false, 0, nil
	}

	names, listErr := es.directory.List(ctx)
	if listErr != nil {
		es.logError(ctx, logMsgListBlobsFailed, listErr)
		es.recordDirectoryErrorMetrics(ctx, operationStoreMany)
		return false, 0, errors.Join(eventstore.ErrListingBlobsFailed, listErr)
	}

	return len(names) < es.maxEvents, len(names), nil
}

func (es *EventStore) fetch(ctx context.Context, eventID string) (eventstore.StorableEvent, error) {
	var empty eventstore.StorableEvent

	if eventID == "" {
		es.logError(ctx, logMsgEmptyEventIDSupplied, eventstore.ErrEmptyEventID)
		return empty, eventstore.ErrEmptyEventID
	}

	name := es.blobName(eventID)

	data, readErr := es.directory.Read(ctx, name)
	if readErr != nil {
		if errors.Is(readErr, eventstore.ErrBlobNotFound) {
			es.logError(ctx, logMsgBlobNotFound, readErr, logAttrBlobName, name)
			return empty, errors.Join(eventstore.ErrEventNotFound, readErr)
		}

		es.logError(ctx, logMsgBlobReadFailed, readErr, logAttrBlobName, name)
		es.recordDirectoryErrorMetrics(ctx, operationFetch)

		return empty, errors.Join(eventstore.ErrFetchingEventFailed, readErr)
	}

	return es.decodeBlob(ctx, name, data)
}

// decodeBlob turns raw blob content back into an event: decrypt under the
// current key, then deserialize.
func (es *EventStore) decodeBlob(ctx context.Context, name string, data []byte) (eventstore.StorableEvent, error) {
	var empty eventstore.StorableEvent

	serialized, decryptErr := es.cipher.Decrypt(data, es.encryptionKey)
	if decryptErr != nil {
		es.logError(ctx, logMsgDecryptFailed, decryptErr, logAttrBlobName, name)
		return empty, errors.Join(eventstore.ErrDecryptionFailed, decryptErr)
	}

	event, codecErr := eventstore.StorableEventFromSerialized(serialized)
	if codecErr != nil {
		es.logError(ctx, logMsgDeserializeFailed, codecErr, logAttrBlobName, name)
		return empty, codecErr
	}

	return event, nil
}

func (es *EventStore) fetchAll(ctx context.Context) (eventstore.StorableEvents, error) {
	names, listErr := es.directory.List(ctx)
	if listErr != nil {
		es.logError(ctx, logMsgListBlobsFailed, listErr)
		es.recordDirectoryErrorMetrics(ctx, operationFetchAll)
		return nil, errors.Join(eventstore.ErrListingBlobsFailed, listErr)
	}

	events := make(eventstore.StorableEvents, 0, len(names))

	for _, name := range names {
		data, readErr := es.directory.Read(ctx, name)
		if readErr != nil {
			es.logWarn(ctx, logMsgSkippingUnreadableBlob, readErr, logAttrBlobName, name)
			continue
		}

		event, decodeErr := es.decodeBlob(ctx, name, data)
		if decodeErr != nil {
			es.logWarn(ctx, logMsgSkippingUnreadableBlob, decodeErr, logAttrBlobName, name)
			continue
		}

		events = append(events, event)
	}

	es.logOperation(ctx, logMsgEventsFetched, logAttrEventCount, len(events))

	return events, nil
}

func (es *EventStore) delete(ctx context.Context, eventID string) bool {
	if eventID == "" {
		es.logError(ctx, logMsgEmptyEventIDSupplied, eventstore.ErrEmptyEventID)
		return false
	}

	name := es.blobName(eventID)

	if deleteErr := es.directory.Delete(ctx, name); deleteErr != nil {
		if errors.Is(deleteErr, eventstore.ErrBlobNotFound) {
			es.logDebug(ctx, logMsgBlobNotFound, logAttrBlobName, name)
		} else {
			es.logError(ctx, logMsgBlobDeleteFailed, deleteErr, logAttrBlobName, name)
			es.recordDirectoryErrorMetrics(ctx, operationDelete)
		}

		return false
	}

	return true
}

func (es *EventStore) deleteAll(ctx context.Context) error {
	names, listErr := es.directory.List(ctx)
	if listErr != nil {
		es.logError(ctx, logMsgListBlobsFailed, listErr)
		es.recordDirectoryErrorMetrics(ctx, operationDeleteAll)
		return errors.Join(eventstore.ErrListingBlobsFailed, listErr)
	}

	deleted := 0
	for _, name := range names {
		if deleteErr := es.directory.Delete(ctx, name); deleteErr != nil {
			if !errors.Is(deleteErr, eventstore.ErrBlobNotFound) {
				es.logError(ctx, logMsgBlobDeleteFailed, deleteErr, logAttrBlobName, name)
				es.recordDirectoryErrorMetrics(ctx, operationDeleteAll)
			}
			continue
		}
		deleted++
	}

	es.logOperation(ctx, logMsgEventsDeleted, logAttrEventCount, deleted)

	return nil
}

func (es *EventStore) rotateKey(ctx context.Context, oldKey string, newKey string) error {
	if oldKey != es.encryptionKey {
		es.logError(ctx, logMsgKeyMismatch, eventstore.ErrKeyMismatch)
		return eventstore.ErrKeyMismatch
	}

	events, fetchErr := es.fetchAll(ctx)
	if fetchErr != nil {
		return errors.Join(eventstore.ErrKeyRotationFailed, fetchErr)
	}

	if deleteErr := es.deleteAll(ctx); deleteErr != nil {
		return errors.Join(eventstore.ErrKeyRotationFailed, deleteErr)
	}

	es.encryptionKey = newKey

	// Rotation re-persists directly, without the admission check: the corpus
	// was already admitted once and must survive the rotation intact.
	for _, event := range events {
		if storeErr := es.store(ctx, event); storeErr != nil {
			return errors.Join(eventstore.ErrKeyRotationFailed, storeErr)
		}
	}

	es.logOperation(ctx, logMsgKeyRotated, logAttrEventCount, len(events))

	return nil
}

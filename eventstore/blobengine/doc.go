// Package blobengine implements the instrumentation event store over a
// pluggable blob directory.
//
// Each event is persisted as one individually addressable blob named
// eventID + filename suffix. The engine enforces the storage admission
// policy (logging flag plus capacity cap, evaluated once per batch),
// supports bulk fetch and delete, and can rotate the encryption key of the
// entire stored corpus.
//
// Key features:
//   - Multiple directory backends (filesystem, in-memory, badger, SQL via pgx/sql.DB/sqlx)
//   - Pluggable cipher with identity default; key rotation re-persists the corpus
//   - Typed sentinel errors instead of silently swallowed failures
//   - Per-store locking around admission-then-write and rotation sequences
//   - Configurable dual-logger, metrics, and tracing support
//
// Usage examples:
//
//	// Filesystem-backed store
//	store, _ := blobengine.NewEventStoreFromFS("/var/lib/telemetry",
//		blobengine.WithFilenameSuffix(".evt"),
//		blobengine.WithMaxEvents(1000),
//	)
//
//	// SQL-backed store with a real cipher and operational logging
//	store, _ := blobengine.NewEventStoreFromPGXPool(pool,
//		blobengine.WithBlobTable("telemetry_blobs"),
//		blobengine.WithCipher(chachacipher.New()),
//		blobengine.WithEncryptionKey(key),
//		blobengine.WithLogger(logger),
//	)
//
//	err := store.Store(ctx, event)
//	events, err := store.FetchAll(ctx)
//	err = store.RotateKey(ctx, oldKey, newKey)
package blobengine

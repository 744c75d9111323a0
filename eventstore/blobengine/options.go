package blobengine

import (
	"github.com/instrumentkit/blob-eventstore-go/eventstore"
)

// Option defines a functional option for configuring EventStore.
type Option func(*EventStore) error

// WithFilenameSuffix sets the suffix appended to every event id to form the
// blob name, acting as a simple namespace or versioning tag (e.g. ".evt").
// The default is no suffix.
func WithFilenameSuffix(suffix string) Option {
	return func(es *EventStore) error {
		es.filenameSuffix = suffix
		return nil
	}
}

// WithEncryptionKey sets the initial encryption key handed to the cipher.
// The key can later be changed with RotateKey.
func WithEncryptionKey(key string) Option {
	return func(es *EventStore) error {
		es.encryptionKey = key
		return nil
	}
}

// WithCipher sets the encrypt/decrypt transform applied to serialized events.
// The default is eventstore.IdentityCipher, which stores events as plain text.
func WithCipher(cipher eventstore.Cipher) Option {
	return func(es *EventStore) error {
		if cipher == nil {
			return eventstore.ErrNilCipher
		}

		es.cipher = cipher

		return nil
	}
}

// WithMaxEvents sets the capacity cap on the total stored blob count.
// Batches are refused once the directory holds that many blobs. Zero is legal
// and admits nothing; negative values are rejected. The default is 1000.
func WithMaxEvents(maxEvents int) Option {
	return func(es *EventStore) error {
		if maxEvents < 0 {
			return eventstore.ErrInvalidMaxEvents
		}

		es.maxEvents = maxEvents

		return nil
	}
}

// WithLoggingEnabled sets the initial state of the admission flag.
// The default is enabled; it can later be toggled with SetLoggingEnabled.
func WithLoggingEnabled(enabled bool) Option {
	return func(es *EventStore) error {
		es.loggingEnabled = enabled
		return nil
	}
}

// WithBlobTable sets the table name used by the SQL-backed constructors.
// It has no effect on the other backends. The default is "event_blobs".
func WithBlobTable(tableName string) Option {
	return func(es *EventStore) error {
		if tableName == "" {
			return eventstore.ErrEmptyBlobTableName
		}

		es.blobTableName = tableName

		return nil
	}
}

// WithSQLDialect sets the goqu dialect used by the SQL-backed constructors,
// e.g. "postgres" (the default) or "sqlite3". It has no effect on the other
// backends.
func WithSQLDialect(dialect string) Option {
	return func(es *EventStore) error {
		if dialect == "" {
			return eventstore.ErrEmptySQLDialect
		}

		es.sqlDialect = dialect

		return nil
	}
}

// WithLogger sets the logger for the EventStore.
// The logger will receive messages at different levels based on the logger's configured level:
//
// Debug level: per-blob reads and writes with timing (development use)
// Info level: event counts, admission decisions, key rotations (production-safe)
// Warn level: non-critical issues like unreadable blobs skipped during bulk fetch
// Error level: critical failures that cause operation failures.
func WithLogger(logger eventstore.Logger) Option {
	return func(es *EventStore) error {
		es.logger = logger
		return nil
	}
}

// WithContextualLogger sets the contextual logger for the EventStore.
// The contextual logger will receive log messages with context information including
// automatic trace/span correlation when tracing is enabled, enabling unified observability.
// When both loggers are configured the contextual logger wins.
func WithContextualLogger(logger eventstore.ContextualLogger) Option {
	return func(es *EventStore) error {
		es.contextualLogger = logger
		return nil
	}
}

// WithMetrics sets the metrics collector for the EventStore.
// The collector will receive operation durations, stored/denied counters,
// and directory error counts.
func WithMetrics(collector eventstore.MetricsCollector) Option {
	return func(es *EventStore) error {
		es.metricsCollector = collector
		return nil
	}
}

// WithTracing sets the tracing collector for the EventStore.
// The collector will receive a span per public operation with status and
// event-count attributes.
func WithTracing(collector eventstore.TracingCollector) Option {
	return func(es *EventStore) error {
		es.tracingCollector = collector
		return nil
	}
}

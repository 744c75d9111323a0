package blobengine_test

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"       // postgres driver for the sqlx-based test
	"github.com/stretchr/testify/assert"
	_ "modernc.org/sqlite" // pure-Go sqlite driver for the local tests

	. "github.com/instrumentkit/blob-eventstore-go/eventstore/blobengine"
	. "github.com/instrumentkit/blob-eventstore-go/test"
)

// postgresTestDSNEnv names the env var that, when set, points the
// postgres-backed tests at a live database. Without it they are skipped and
// the sqlite-backed tests cover the SQL directory.
const postgresTestDSNEnv = "EVENTSTORE_TEST_POSTGRES_DSN"

func openSQLiteForTests(t *testing.T) *sql.DB {
	t.Helper()

	db, err := sql.Open("sqlite", filepath.Join(t.TempDir(), "blobs.db"))
	assert.NoError(t, err, "error opening sqlite in test setup")

	t.Cleanup(func() { _ = db.Close() })

	CreateBlobTableForTests(t, db, "event_blobs")

	return db
}

func Test_SQLBackedStore_SupportsTheFullLifecycle(t *testing.T) {
	// setup
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	es, err := NewEventStoreFromSQLDB(openSQLiteForTests(t),
		WithSQLDialect("sqlite3"),
		WithFilenameSuffix(".evt"),
	)
	assert.NoError(t, err, "creating the event store failed")

	// arrange
	stored := GivenEventsWereStored(t, ctx, es, 3)

	// act + assert
	fetched, fetchErr := es.Fetch(ctx, stored[0].EventID)
	assert.NoError(t, fetchErr, "error in fetching the event back")
	assert.JSONEq(t, string(stored[0].PayloadJSON), string(fetched.PayloadJSON))

	events, fetchAllErr := es.FetchAll(ctx)
	assert.NoError(t, fetchAllErr)
	assert.ElementsMatch(t, EventIDs(stored), EventIDs(events))

	assert.True(t, es.Delete(ctx, stored[1].EventID))
	assert.False(t, es.Delete(ctx, stored[1].EventID), "a second delete must report the missing blob")

	CleanUpEvents(t, ctx, es)
	events, fetchAllErr = es.FetchAll(ctx)
	assert.NoError(t, fetchAllErr)
	assert.Empty(t, events)
}

func Test_SQLBackedStore_OverwritesOnRepeatedStore(t *testing.T) {
	// setup
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	es, err := NewEventStoreFromSQLDB(openSQLiteForTests(t), WithSQLDialect("sqlite3"))
	assert.NoError(t, err, "creating the event store failed")

	// arrange
	eventID := GivenUniqueID(t)
	assert.NoError(t, es.Store(ctx, ToStorable(t, eventID.String(), map[string]int{"version": 1})))

	// act: storing the same id again is a full overwrite
	storeErr := es.Store(ctx, ToStorable(t, eventID.String(), map[string]int{"version": 2}))

	// assert
	assert.NoError(t, storeErr, "error in overwriting the event")
	fetched, fetchErr := es.Fetch(ctx, eventID.String())
	assert.NoError(t, fetchErr)
	assert.JSONEq(t, `{"version": 2}`, string(fetched.PayloadJSON))

	events, fetchAllErr := es.FetchAll(ctx)
	assert.NoError(t, fetchAllErr)
	assert.Len(t, events, 1, "an overwrite must not create a second blob")
}

func Test_SQLXBackedStore_SupportsTheFullLifecycle(t *testing.T) {
	// setup
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	db := sqlx.NewDb(openSQLiteForTests(t), "sqlite")

	es, err := NewEventStoreFromSQLX(db, WithSQLDialect("sqlite3"))
	assert.NoError(t, err, "creating the event store failed")

	// arrange
	stored := GivenEventsWereStored(t, ctx, es, 2)

	// act + assert
	events, fetchErr := es.FetchAll(ctx)
	assert.NoError(t, fetchErr)
	assert.ElementsMatch(t, EventIDs(stored), EventIDs(events))

	assert.Equal(t, 2, es.DeleteMany(ctx, EventIDs(stored)))
}

func Test_PGXBackedStore_SupportsTheFullLifecycle(t *testing.T) {
	dsn := os.Getenv(postgresTestDSNEnv)
	if dsn == "" {
		t.Skipf("set %s to run the postgres-backed tests", postgresTestDSNEnv)
	}

	// setup
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, poolErr := pgxpool.New(ctx, dsn)
	assert.NoError(t, poolErr, "error connecting to the DB pool in test setup")
	t.Cleanup(pool.Close)

	_, ddlErr := pool.Exec(ctx, `CREATE TABLE IF NOT EXISTS event_blobs (name text PRIMARY KEY, data bytea NOT NULL)`)
	assert.NoError(t, ddlErr, "error creating the blob table in test setup")

	es, err := NewEventStoreFromPGXPool(pool, WithFilenameSuffix(".evt"))
	assert.NoError(t, err, "creating the event store failed")

	// arrange
	CleanUpEvents(t, ctx, es)
	stored := GivenEventsWereStored(t, ctx, es, 3)

	// act + assert
	events, fetchErr := es.FetchAll(ctx)
	assert.NoError(t, fetchErr)
	assert.ElementsMatch(t, EventIDs(stored), EventIDs(events))

	assert.True(t, es.Delete(ctx, stored[0].EventID))
	CleanUpEvents(t, ctx, es)
}

func Test_PostgresSQLXBackedStore_SupportsStoreAndFetch(t *testing.T) {
	dsn := os.Getenv(postgresTestDSNEnv)
	if dsn == "" {
		t.Skipf("set %s to run the postgres-backed tests", postgresTestDSNEnv)
	}

	// setup
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	db, openErr := sqlx.Open("postgres", dsn)
	assert.NoError(t, openErr, "error connecting to postgres in test setup")
	t.Cleanup(func() { _ = db.Close() })

	_, ddlErr := db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS event_blobs (name text PRIMARY KEY, data bytea NOT NULL)`)
	assert.NoError(t, ddlErr, "error creating the blob table in test setup")

	es, err := NewEventStoreFromSQLX(db)
	assert.NoError(t, err, "creating the event store failed")

	// arrange
	CleanUpEvents(t, ctx, es)
	eventID := GivenUniqueID(t)

	// act
	storeErr := es.Store(ctx, FixtureNetworkRequestCaptured(t, eventID))
	fetched, fetchErr := es.Fetch(ctx, eventID.String())

	// assert
	assert.NoError(t, storeErr, "error in storing the event")
	assert.NoError(t, fetchErr, "error in fetching the event back")
	assert.Equal(t, eventID.String(), fetched.EventID)

	CleanUpEvents(t, ctx, es)
}

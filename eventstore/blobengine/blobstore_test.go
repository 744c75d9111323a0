package blobengine_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	. "github.com/instrumentkit/blob-eventstore-go/eventstore"
	. "github.com/instrumentkit/blob-eventstore-go/eventstore/blobengine"
	. "github.com/instrumentkit/blob-eventstore-go/test"
)

func Test_Store_Then_Fetch_ReturnsTheSameEvent(t *testing.T) {
	// setup
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	es, err := NewEventStoreFromMemory()
	assert.NoError(t, err, "creating the event store failed")

	// arrange
	eventID := GivenUniqueID(t)
	event := FixtureSessionStarted(t, eventID)

	// act
	storeErr := es.Store(ctx, event)
	fetched, fetchErr := es.Fetch(ctx, eventID.String())

	// assert
	assert.NoError(t, storeErr, "error in storing the event")
	assert.NoError(t, fetchErr, "error in fetching the event back")
	assert.Equal(t, event.EventID, fetched.EventID)
	assert.JSONEq(t, string(event.PayloadJSON), string(fetched.PayloadJSON))
}

func Test_Store_When_EventIsInvalid(t *testing.T) {
	// setup
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	es, err := NewEventStoreFromMemory()
	assert.NoError(t, err, "creating the event store failed")

	tests := []struct {
		name        string
		event       StorableEvent
		expectedErr error
	}{
		{
			name:        "absent event",
			event:       StorableEvent{},
			expectedErr: ErrEmptyEventID,
		},
		{
			name:        "empty payload",
			event:       StorableEvent{EventID: "event-1"},
			expectedErr: ErrInvalidPayloadJSON,
		},
		{
			name:        "malformed payload",
			event:       StorableEvent{EventID: "event-1", PayloadJSON: []byte(`{"x":`)},
			expectedErr: ErrInvalidPayloadJSON,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// act
			storeErr := es.Store(ctx, tt.event)

			// assert
			assert.ErrorContains(t, storeErr, tt.expectedErr.Error())
			events, fetchErr := es.FetchAll(ctx)
			assert.NoError(t, fetchErr)
			assert.Empty(t, events, "no blob may be created for an invalid event")
		})
	}
}

func Test_StoreMany_When_BatchIsEmpty(t *testing.T) {
	// setup
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	es, err := NewEventStoreFromMemory()
	assert.NoError(t, err, "creating the event store failed")

	// act
	storeErr := es.StoreMany(ctx, nil)

	// assert
	assert.NoError(t, storeErr, "an empty batch must be a no-op")
	events, fetchErr := es.FetchAll(ctx)
	assert.NoError(t, fetchErr)
	assert.Empty(t, events)
}

func Test_StoreMany_When_CapacityIsReached(t *testing.T) {
	// setup
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	es, err := NewEventStoreFromMemory(WithMaxEvents(2))
	assert.NoError(t, err, "creating the event store failed")

	// arrange
	stored := GivenEventsWereStored(t, ctx, es, 2)

	// act
	batch := StorableEvents{FixtureSessionStarted(t, GivenUniqueID(t))}
	storeErr := es.StoreMany(ctx, batch)

	// assert
	assert.ErrorIs(t, storeErr, ErrStoreAdmissionDenied)
	events, fetchErr := es.FetchAll(ctx)
	assert.NoError(t, fetchErr)
	assert.ElementsMatch(t, EventIDs(stored), EventIDs(events), "the denied batch must not change the directory")
}

func Test_StoreMany_AdmissionIsCheckedOncePerBatch(t *testing.T) {
	// setup
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	es, err := NewEventStoreFromMemory(WithMaxEvents(2))
	assert.NoError(t, err, "creating the event store failed")

	// arrange
	GivenEventsWereStored(t, ctx, es, 1)

	// act: a batch admitted below the cap may push the store past it
	batch := StorableEvents{
		FixtureSessionStarted(t, GivenUniqueID(t)),
		FixtureSessionStarted(t, GivenUniqueID(t)),
		FixtureSessionStarted(t, GivenUniqueID(t)),
	}
	storeErr := es.StoreMany(ctx, batch)

	// assert
	assert.NoError(t, storeErr, "error in storing the batch")
	events, fetchErr := es.FetchAll(ctx)
	assert.NoError(t, fetchErr)
	assert.Len(t, events, 4, "the whole batch must be stored once admitted")
}

func Test_StoreMany_When_LoggingIsDisabled(t *testing.T) {
	// setup
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	es, err := NewEventStoreFromMemory()
	assert.NoError(t, err, "creating the event store failed")

	// arrange
	es.SetLoggingEnabled(false)
	assert.False(t, es.IsLoggingEnabled())

	// act
	batch := StorableEvents{FixtureSessionStarted(t, GivenUniqueID(t))}
	storeErr := es.StoreMany(ctx, batch)

	// assert
	assert.ErrorIs(t, storeErr, ErrStoreAdmissionDenied)
	events, fetchErr := es.FetchAll(ctx)
	assert.NoError(t, fetchErr)
	assert.Empty(t, events, "nothing may be stored while logging is disabled")
}

func Test_Fetch_When_EventDoesNotExist(t *testing.T) {
	// setup
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	es, err := NewEventStoreFromMemory()
	assert.NoError(t, err, "creating the event store failed")

	// act
	_, fetchErr := es.Fetch(ctx, GivenUniqueID(t).String())

	// assert
	assert.ErrorIs(t, fetchErr, ErrEventNotFound)
}

func Test_Fetch_When_EventIDIsEmpty(t *testing.T) {
	// setup
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	es, err := NewEventStoreFromMemory()
	assert.NoError(t, err, "creating the event store failed")

	// act
	_, fetchErr := es.Fetch(ctx, "")

	// assert
	assert.ErrorIs(t, fetchErr, ErrEmptyEventID)
}

func Test_FetchAll_ReturnsAllStoredEvents(t *testing.T) {
	// setup
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	es, err := NewEventStoreFromMemory()
	assert.NoError(t, err, "creating the event store failed")

	// arrange
	stored := GivenEventsWereStored(t, ctx, es, 5)

	// act
	events, fetchErr := es.FetchAll(ctx)

	// assert
	assert.NoError(t, fetchErr, "error in fetching the events back")
	assert.ElementsMatch(t, EventIDs(stored), EventIDs(events), "order is not guaranteed, content is")
}

func Test_Delete_When_EventExists(t *testing.T) {
	// setup
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	es, err := NewEventStoreFromMemory()
	assert.NoError(t, err, "creating the event store failed")

	// arrange
	eventID := GivenUniqueID(t)
	storeErr := es.Store(ctx, FixtureSessionStarted(t, eventID))
	assert.NoError(t, storeErr, "error in arranging test data")

	// act
	deleted := es.Delete(ctx, eventID.String())

	// assert
	assert.True(t, deleted)
	_, fetchErr := es.Fetch(ctx, eventID.String())
	assert.ErrorIs(t, fetchErr, ErrEventNotFound)
}

func Test_Delete_When_EventIsMissing(t *testing.T) {
	// setup
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	es, err := NewEventStoreFromMemory()
	assert.NoError(t, err, "creating the event store failed")

	// act
	deleted := es.Delete(ctx, GivenUniqueID(t).String())

	// assert
	assert.False(t, deleted)
}

func Test_DeleteMany_ReturnsTheNumberOfDeletedEvents(t *testing.T) {
	// setup
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	es, err := NewEventStoreFromMemory()
	assert.NoError(t, err, "creating the event store failed")

	// arrange
	stored := GivenEventsWereStored(t, ctx, es, 3)
	ids := append(EventIDs(stored), GivenUniqueID(t).String()) // one id was never stored

	// act
	deleted := es.DeleteMany(ctx, ids)

	// assert
	assert.Equal(t, 3, deleted)
	events, fetchErr := es.FetchAll(ctx)
	assert.NoError(t, fetchErr)
	assert.Empty(t, events)
}

func Test_DeleteMany_When_BatchIsEmpty(t *testing.T) {
	// setup
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	es, err := NewEventStoreFromMemory()
	assert.NoError(t, err, "creating the event store failed")

	// act + assert
	assert.Equal(t, 0, es.DeleteMany(ctx, nil))
}

func Test_DeleteAll_EmptiesTheStore(t *testing.T) {
	// setup
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	es, err := NewEventStoreFromMemory()
	assert.NoError(t, err, "creating the event store failed")

	// arrange
	GivenEventsWereStored(t, ctx, es, 4)

	// act
	deleteErr := es.DeleteAll(ctx)

	// assert
	assert.NoError(t, deleteErr, "error in deleting all events")
	events, fetchErr := es.FetchAll(ctx)
	assert.NoError(t, fetchErr)
	assert.Empty(t, events)
}

func Test_SetMaxEvents_When_ValueIsNegative(t *testing.T) {
	es, err := NewEventStoreFromMemory()
	assert.NoError(t, err, "creating the event store failed")

	assert.ErrorIs(t, es.SetMaxEvents(-1), ErrInvalidMaxEvents)
	assert.NoError(t, es.SetMaxEvents(0), "zero is legal and admits nothing")
}

func Test_SetMaxEvents_TakesEffectForSubsequentBatches(t *testing.T) {
	// setup
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	es, err := NewEventStoreFromMemory()
	assert.NoError(t, err, "creating the event store failed")

	// arrange
	GivenEventsWereStored(t, ctx, es, 1)
	assert.NoError(t, es.SetMaxEvents(1))

	// act
	storeErr := es.StoreMany(ctx, StorableEvents{FixtureSessionStarted(t, GivenUniqueID(t))})

	// assert
	assert.ErrorIs(t, storeErr, ErrStoreAdmissionDenied)
}

func Test_FilenameSuffix_FormsTheBlobName(t *testing.T) {
	// setup
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	root := t.TempDir()
	es, err := NewEventStoreFromFS(root, WithFilenameSuffix(".evt"))
	assert.NoError(t, err, "creating the event store failed")

	// act
	storeErr := es.Store(ctx, ToStorable(t, "e1", map[string]int{"x": 1}))

	// assert
	assert.NoError(t, storeErr, "error in storing the event")
	_, statErr := os.Stat(filepath.Join(root, "e1.evt"))
	assert.NoError(t, statErr, `the blob must be the file "e1.evt"`)
}

func Test_FSBackedStore_SupportsTheFullLifecycle(t *testing.T) {
	// setup
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	es, err := NewEventStoreFromFS(t.TempDir(), WithFilenameSuffix(".evt"))
	assert.NoError(t, err, "creating the event store failed")

	// arrange
	stored := GivenEventsWereStored(t, ctx, es, 3)

	// act + assert
	events, fetchErr := es.FetchAll(ctx)
	assert.NoError(t, fetchErr)
	assert.ElementsMatch(t, EventIDs(stored), EventIDs(events))

	assert.True(t, es.Delete(ctx, stored[0].EventID))
	assert.False(t, es.Delete(ctx, stored[0].EventID), "a second delete must report the missing blob")

	CleanUpEvents(t, ctx, es)
	events, fetchErr = es.FetchAll(ctx)
	assert.NoError(t, fetchErr)
	assert.Empty(t, events)
}

func Test_ExampleScenario_SuffixAndCapacity(t *testing.T) {
	// setup
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	root := t.TempDir()
	es, err := NewEventStoreFromFS(root, WithFilenameSuffix(".evt"), WithMaxEvents(2))
	assert.NoError(t, err, "creating the event store failed")

	// act
	assert.NoError(t, es.Store(ctx, ToStorable(t, "e1", map[string]int{"x": 1})))
	assert.NoError(t, es.Store(ctx, ToStorable(t, "e2", map[string]int{"y": 2})))
	storeErr := es.StoreMany(ctx, StorableEvents{ToStorable(t, "e3", map[string]int{"z": 3})})

	// assert
	assert.ErrorIs(t, storeErr, ErrStoreAdmissionDenied)
	_, statErr := os.Stat(filepath.Join(root, "e3.evt"))
	assert.True(t, os.IsNotExist(statErr), `no blob "e3.evt" may exist`)

	events, fetchErr := es.FetchAll(ctx)
	assert.NoError(t, fetchErr)
	assert.ElementsMatch(t, []string{"e1", "e2"}, EventIDs(events))
}

package test

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	. "github.com/instrumentkit/blob-eventstore-go/eventstore"
	. "github.com/instrumentkit/blob-eventstore-go/eventstore/blobengine"
)

// SessionStarted is a fixture payload for one mobile session beginning.
type SessionStarted struct {
	SessionID   string `json:"session_id"`
	DeviceModel string `json:"device_model"`
	OSVersion   string `json:"os_version"`
}

// BreadcrumbLogged is a fixture payload for one diagnostic breadcrumb.
type BreadcrumbLogged struct {
	SessionID string `json:"session_id"`
	Message   string `json:"message"`
}

// NetworkRequestCaptured is a fixture payload for one captured HTTP call.
type NetworkRequestCaptured struct {
	SessionID  string `json:"session_id"`
	URL        string `json:"url"`
	Method     string `json:"method"`
	StatusCode int    `json:"status_code"`
}

func GivenUniqueID(t testing.TB) uuid.UUID {
	eventID, err := uuid.NewV7()
	assert.NoError(t, err, "error in arranging test data")

	return eventID
}

func ToStorable(t testing.TB, eventID string, payload any) StorableEvent {
	payloadJSON, marshalErr := json.Marshal(payload)
	assert.NoError(t, marshalErr, "error in arranging test data")

	event, buildErr := BuildStorableEvent(eventID, payloadJSON)
	assert.NoError(t, buildErr, "error in arranging test data")

	return event
}

func FixtureSessionStarted(t testing.TB, eventID uuid.UUID) StorableEvent {
	payload := SessionStarted{
		SessionID:   eventID.String(),
		DeviceModel: "Pixel 9",
		OSVersion:   "15",
	}

	return ToStorable(t, eventID.String(), payload)
}

func FixtureBreadcrumbLogged(t testing.TB, eventID uuid.UUID, message string) StorableEvent {
	payload := BreadcrumbLogged{
		SessionID: eventID.String(),
		Message:   message,
	}

	return ToStorable(t, eventID.String(), payload)
}

func FixtureNetworkRequestCaptured(t testing.TB, eventID uuid.UUID) StorableEvent {
	payload := NetworkRequestCaptured{
		SessionID:  eventID.String(),
		URL:        "https://api.example.com/v1/config",
		Method:     "GET",
		StatusCode: 200,
	}

	return ToStorable(t, eventID.String(), payload)
}

// GivenEventsWereStored stores count distinct breadcrumb events and returns them.
func GivenEventsWereStored(t testing.TB, ctx context.Context, es *EventStore, count int) StorableEvents {
	events := make(StorableEvents, 0, count)

	for i := 0; i < count; i++ {
		event := FixtureBreadcrumbLogged(t, GivenUniqueID(t), fmt.Sprintf("breadcrumb %d", i))
		storeErr := es.Store(ctx, event)
		assert.NoError(t, storeErr, "error in arranging test data")
		events = append(events, event)
	}

	return events
}

// CleanUpEvents empties the store between test runs.
func CleanUpEvents(t testing.TB, ctx context.Context, es *EventStore) {
	err := es.DeleteAll(ctx)
	assert.NoError(t, err, "error in cleaning up events")
}

// EventIDs projects the ids out of a slice of events, for order-agnostic comparison.
func EventIDs(events StorableEvents) []string {
	ids := make([]string, 0, len(events))
	for _, event := range events {
		ids = append(ids, event.EventID)
	}

	return ids
}

// CreateBlobTableForTests provisions the two-column blob table on a sqlite
// test database.
func CreateBlobTableForTests(t testing.TB, db *sql.DB, tableName string) {
	ddl := fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (name TEXT PRIMARY KEY, data BLOB NOT NULL)`, tableName)

	_, err := db.Exec(ddl)
	assert.NoError(t, err, "error in creating the blob table in test setup")
}

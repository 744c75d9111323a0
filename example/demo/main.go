// Command demo exercises the blob event store end to end against a local
// directory backend. Select the backend with the BLOB_BACKEND environment
// variable (fs, badger, memory; default: fs).
package main

import (
	"context"
	"encoding/json"
	"log"
	"log/slog"
	"os"
	"strings"

	badger "github.com/dgraph-io/badger/v2"
	"github.com/google/uuid"

	"github.com/instrumentkit/blob-eventstore-go/eventstore"
	"github.com/instrumentkit/blob-eventstore-go/eventstore/blobengine"
	"github.com/instrumentkit/blob-eventstore-go/eventstore/chachacipher"
)

func main() {
	ctx := context.Background()

	backend := strings.ToLower(os.Getenv("BLOB_BACKEND"))
	if backend == "" {
		backend = "fs"
	}

	log.Printf("USING BLOB BACKEND: %s", strings.ToUpper(backend))

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))

	options := []blobengine.Option{
		blobengine.WithFilenameSuffix(".evt"),
		blobengine.WithCipher(chachacipher.New()),
		blobengine.WithEncryptionKey("demo-key-v1"),
		blobengine.WithMaxEvents(100),
		blobengine.WithLogger(logger),
	}

	es, cleanup, err := initializeEventStore(backend, options)
	if err != nil {
		log.Fatalf("Failed to create EventStore: %v", err)
	}
	defer cleanup()

	eventID := mustNewID()
	payload, _ := json.Marshal(map[string]any{
		"session_id": eventID.String(),
		"message":    "user tapped checkout",
	})

	event, err := eventstore.BuildStorableEvent(eventID.String(), payload)
	if err != nil {
		log.Fatalf("Failed to build event: %v", err)
	}

	if err = es.Store(ctx, event); err != nil {
		log.Fatalf("Failed to store event: %v", err)
	}

	fetched, err := es.Fetch(ctx, eventID.String())
	if err != nil {
		log.Fatalf("Failed to fetch event: %v", err)
	}
	log.Printf("Fetched event %s: %s", fetched.EventID, fetched.PayloadJSON)

	if err = es.RotateKey(ctx, "demo-key-v1", "demo-key-v2"); err != nil {
		log.Fatalf("Failed to rotate the encryption key: %v", err)
	}
	log.Printf("Rotated the corpus to the new encryption key")

	all, err := es.FetchAll(ctx)
	if err != nil {
		log.Fatalf("Failed to fetch the corpus: %v", err)
	}
	log.Printf("Corpus holds %d event(s) after rotation", len(all))

	if deleted := es.Delete(ctx, eventID.String()); !deleted {
		log.Fatalf("Failed to delete event %s", eventID)
	}
	log.Printf("Deleted event %s, demo complete", eventID)
}

func initializeEventStore(backend string, options []blobengine.Option) (*blobengine.EventStore, func(), error) {
	noop := func() {}

	switch backend {
	case "fs":
		root, err := os.MkdirTemp("", "blob-eventstore-demo")
		if err != nil {
			return nil, noop, err
		}

		es, err := blobengine.NewEventStoreFromFS(root, options...)

		return es, func() { _ = os.RemoveAll(root) }, err

	case "badger":
		root, err := os.MkdirTemp("", "blob-eventstore-demo")
		if err != nil {
			return nil, noop, err
		}

		db, err := badger.Open(badger.DefaultOptions(root).WithLogger(nil))
		if err != nil {
			return nil, noop, err
		}

		es, err := blobengine.NewEventStoreFromBadger(db, options...)

		return es, func() { _ = db.Close(); _ = os.RemoveAll(root) }, err

	case "memory":
		es, err := blobengine.NewEventStoreFromMemory(options...)

		return es, noop, err

	default:
		log.Fatalf("Unknown blob backend: %s (supported: fs, badger, memory)", backend)

		return nil, noop, nil
	}
}

func mustNewID() uuid.UUID {
	eventID, err := uuid.NewV7()
	if err != nil {
		log.Fatalf("Failed to generate an event id: %v", err)
	}

	return eventID
}

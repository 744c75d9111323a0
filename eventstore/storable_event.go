package eventstore

import (
	"encoding/json"
	"errors"

	jsoniter "github.com/json-iterator/go"
)

var ErrEmptyEventID = errors.New("event id must not be empty")
var ErrInvalidPayloadJSON = errors.New("payload json is not valid")

// StorableEvents is an alias type for a slice of StorableEvent
type StorableEvents = []StorableEvent

// StorableEvent is a DTO (data transfer object) used by the EventStore to store events and fetch them back.
//
// It is built on scalars to be completely agnostic of the implementation of instrumentation events in the client code.
// The EventID is assigned by the caller before storage and, together with the store's filename suffix,
// forms the blob name the event is persisted under.
//
// While its properties are exported, it should only be constructed with the supplied factory method:
//   - BuildStorableEvent
type StorableEvent struct {
	EventID     string
	PayloadJSON []byte
}

// envelope is the wire form of a StorableEvent: one JSON document per blob.
type envelope struct {
	EventID string          `json:"event_id"`
	Payload json.RawMessage `json:"payload"`
}

// BuildStorableEvent is a factory method for StorableEvent.
//
// It populates the StorableEvent with the given scalar input.
// Returns an error if the eventID is empty or payloadJSON is empty or not valid JSON.
func BuildStorableEvent(eventID string, payloadJSON []byte) (StorableEvent, error) {
	event := StorableEvent{
		EventID:     eventID,
		PayloadJSON: payloadJSON,
	}

	if err := event.Validate(); err != nil {
		return StorableEvent{}, err
	}

	return event, nil
}

// Validate ensures the event may be admitted for storage: a non-empty id
// and a non-empty, valid JSON payload. The zero value is always invalid,
// so an "absent" event can never be stored.
func (e StorableEvent) Validate() error {
	if e.EventID == "" {
		return ErrEmptyEventID
	}

	if len(e.PayloadJSON) == 0 || !jsoniter.ConfigFastest.Valid(e.PayloadJSON) {
		return ErrInvalidPayloadJSON
	}

	return nil
}

// Serialize encodes the event into its wire form, the JSON envelope stored as blob content.
// An event that does not validate has no serialized form and returns an error instead.
func (e StorableEvent) Serialize() ([]byte, error) {
	if err := e.Validate(); err != nil {
		return nil, err
	}

	data, marshalErr := jsoniter.ConfigFastest.Marshal(envelope{
		EventID: e.EventID,
		Payload: e.PayloadJSON,
	})
	if marshalErr != nil {
		return nil, errors.Join(ErrSerializationFailed, marshalErr)
	}

	return data, nil
}

// StorableEventFromSerialized decodes blob content written by Serialize back into a StorableEvent.
func StorableEventFromSerialized(data []byte) (StorableEvent, error) {
	var env envelope

	if unmarshalErr := jsoniter.ConfigFastest.Unmarshal(data, &env); unmarshalErr != nil {
		return StorableEvent{}, errors.Join(ErrDeserializationFailed, unmarshalErr)
	}

	event := StorableEvent{
		EventID:     env.EventID,
		PayloadJSON: env.Payload,
	}

	if validateErr := event.Validate(); validateErr != nil {
		return StorableEvent{}, errors.Join(ErrDeserializationFailed, validateErr)
	}

	return event, nil
}

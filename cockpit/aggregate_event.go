package cockpit

import (
	"encoding/json"
	"time"
)

// AggregateEvents is an alias type for a slice of AggregateEvent.
type AggregateEvents = []AggregateEvent

// AggregateEvent is a DTO representing one recorded event of an aggregate
// instance, as read back from the event stream.
//
// It is built on scalars and raw JSON to stay agnostic of how domain events
// are implemented in the producing system. While its properties are exported,
// it should only be constructed with BuildAggregateEvent.
type AggregateEvent struct {
	EventName        string          `json:"eventName"`
	AggregateVersion uint            `json:"aggregateVersion"`
	CreatedAt        time.Time       `json:"createdAt"`
	Metadata         json.RawMessage `json:"metadata"`
	Payload          json.RawMessage `json:"rawPayload"`
}

// BuildAggregateEvent is a factory method for AggregateEvent.
//
// Returns an error if payloadJSON or metadataJSON are not valid JSON.
func BuildAggregateEvent(
	eventName string,
	aggregateVersion uint,
	createdAt time.Time,
	payloadJSON []byte,
	metadataJSON []byte,
) (AggregateEvent, error) {

	if !json.Valid(payloadJSON) {
		return AggregateEvent{}, ErrInvalidPayloadJSON
	}

	if !json.Valid(metadataJSON) {
		return AggregateEvent{}, ErrInvalidMetadataJSON
	}

	return AggregateEvent{
		EventName:        eventName,
		AggregateVersion: aggregateVersion,
		CreatedAt:        createdAt,
		Metadata:         metadataJSON,
		Payload:          payloadJSON,
	}, nil
}

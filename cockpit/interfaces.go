package cockpit

import (
	"context"
	"encoding/json"
)

// CurrentVersion requests the latest aggregate state when passed as the
// version argument of LoadAggregateState. Aggregate versions start at 1.
const CurrentVersion = uint(0)

// EventEngine defines the interface the cockpit needs from the event engine
// to load aggregate state and event history. Implementations replay or read
// the aggregate's event stream; the cockpit never touches event-sourcing
// mechanics itself.
type EventEngine interface {
	// LoadAggregateState returns the state of one aggregate instance as a JSON
	// document. Version CurrentVersion means "current state"; any other value
	// truncates the replay at that aggregate version.
	LoadAggregateState(ctx context.Context, aggregateType string, aggregateID string, version uint) (json.RawMessage, error)

	// LoadAggregateEvents returns the full event history of one aggregate
	// instance, ordered by aggregate version.
	LoadAggregateEvents(ctx context.Context, aggregateType string, aggregateID string) (AggregateEvents, error)
}

// DocumentStore defines the interface the cockpit needs from the read-model
// store to list the aggregate documents of one type.
type DocumentStore interface {
	ListAggregates(ctx context.Context, aggregateType string, limit int) ([]json.RawMessage, error)
}

package cockpit

import (
	"errors"
)

var (
	// ErrUnresolvedRoute is returned when a request path resolves to none of the cockpit operations.
	ErrUnresolvedRoute = errors.New("route could not be resolved")

	// ErrUnknownAggregateType is returned when an aggregateType parameter matches no aggregate description.
	ErrUnknownAggregateType = errors.New("unknown aggregate type")

	// ErrCommandSchemaMissing is returned when the routing table references a command
	// that has no payload schema in the command map.
	ErrCommandSchemaMissing = errors.New("command schema missing for routed command")

	// ErrEventSchemaMissing is returned when a command's event recorder map references
	// an event that has no payload schema in the event map.
	ErrEventSchemaMissing = errors.New("event schema missing for recorded event")

	// ErrNilDatabaseConnection is returned when an engine or store is constructed without a database connection.
	ErrNilDatabaseConnection = errors.New("database connection must not be nil")

	// ErrInvalidPayloadJSON is returned when an event payload read from storage is not valid JSON.
	ErrInvalidPayloadJSON = errors.New("payload json is not valid")

	// ErrInvalidMetadataJSON is returned when event metadata read from storage is not valid JSON.
	ErrInvalidMetadataJSON = errors.New("metadata json is not valid")

	// ErrBuildingQueryFailed is returned when a storage query cannot be built.
	ErrBuildingQueryFailed = errors.New("building query failed")

	// ErrQueryingEventsFailed is returned when reading an aggregate's event stream fails.
	ErrQueryingEventsFailed = errors.New("querying events failed")

	// ErrQueryingDocumentsFailed is returned when listing aggregate documents fails.
	ErrQueryingDocumentsFailed = errors.New("querying documents failed")

	// ErrScanningDBRowFailed is returned when a storage row cannot be scanned.
	ErrScanningDBRowFailed = errors.New("scanning database row failed")

	// ErrBuildingAggregateEventFailed is returned when a storage row does not yield a valid aggregate event.
	ErrBuildingAggregateEventFailed = errors.New("building aggregate event failed")

	// ErrReducingStateFailed is returned when folding an aggregate's events into its state fails.
	ErrReducingStateFailed = errors.New("reducing aggregate state failed")
)

// IsConfigurationIntegrityFault reports whether an error indicates an inconsistent
// compiled configuration (a name present in the routing table but absent from its
// schema map). Such a fault is a defect in the upstream compiler, never a transient
// condition, and must not be masked with a default schema.
func IsConfigurationIntegrityFault(err error) bool {
	return errors.Is(err, ErrCommandSchemaMissing) || errors.Is(err, ErrEventSchemaMissing)
}

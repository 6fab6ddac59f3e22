// Package httpapi provides the HTTP surface of the cockpit backend.
//
// Requests below /api are dispatched on their trailing path segment:
//
//	schema                  -> compile and return the SchemaDocument
//	load-aggregates         -> list aggregate documents of one type
//	load-aggregate          -> load one aggregate's (possibly historical) state
//	load-aggregate-events   -> load one aggregate's full event history
//
// Any other segment yields an unresolved-route error. All responses are JSON.
// The aggregateType parameter of the read facades is validated against the
// compiled aggregate descriptions before any engine or store call.
package httpapi

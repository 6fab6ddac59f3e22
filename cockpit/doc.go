// Package cockpit provides the core types and logic of the cockpit backend:
// an HTTP-facing introspection and query facade for an event-sourced
// aggregate system.
//
// The package answers four read-only questions:
//   - what is the compiled message schema (BuildSchemaDocument)
//   - what aggregate instances of a type exist (DocumentStore.ListAggregates)
//   - what is the current or historical state of one aggregate (EventEngine.LoadAggregateState)
//   - what is the full event history of one aggregate (EventEngine.LoadAggregateEvents)
//
// The heart of the package is BuildSchemaDocument: a pure function that
// reshapes the flat compiled configuration (ordered maps of command, event
// and query schemas plus the command routing table) into a nested,
// de-duplicated, aggregate-centric schema document.
//
// All event-sourcing machinery lives behind the EventEngine and DocumentStore
// interfaces; see the postgresengine subpackage for the Postgres-backed
// implementation and the httpapi subpackage for the HTTP surface.
package cockpit

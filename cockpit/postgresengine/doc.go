// Package postgresengine answers the cockpit's aggregate questions from
// Postgres.
//
// The engine reads two kinds of tables, both named by the compiled aggregate
// descriptions: event stream tables holding the append-only history of each
// aggregate instance, and collection tables holding one read-model document
// per instance. It never writes; the cockpit is a pure read facade over data
// the event engine itself maintains.
//
// Engine implements both cockpit.EventEngine and cockpit.DocumentStore and
// works with pgxpool.Pool, sql.DB or sqlx.DB through the constructors
// NewEngineFromPGXPool, NewEngineFromSQLDB and NewEngineFromSQLX.
//
// Aggregate state is not stored as such: LoadAggregateState replays the
// instance's event history through a StateReducer. The default reducer
// shallow-merges event payloads; callers register richer reducers per
// aggregate type with WithReducer.
package postgresengine

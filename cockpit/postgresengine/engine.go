package postgresengine

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/doug-martin/goqu/v9"
	_ "github.com/doug-martin/goqu/v9/dialect/postgres" // driver import
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jmoiron/sqlx"
	jsoniter "github.com/json-iterator/go"

	"github.com/event-engine/cockpit-backend-go/cockpit"
	"github.com/event-engine/cockpit-backend-go/cockpit/postgresengine/internal/adapters"
)

const (
	logMsgBuildSelectQueryFailed = "failed to build select query"
	logMsgDBQueryFailed          = "database query execution failed"
	logMsgCloseRowsFailed        = "failed to close database rows"
	logMsgScanRowFailed          = "failed to scan database row"
	logMsgBuildEventFailed       = "failed to build aggregate event from database row"
	logMsgReduceFailed           = "failed to reduce aggregate state"
	logMsgEventsLoaded           = "aggregate events loaded"
	logMsgStateLoaded            = "aggregate state loaded"
	logMsgDocumentsListed        = "aggregate documents listed"
	logMsgSQLExecuted            = "executed sql for: "
	logMsgOperation              = "engine operation: "
	logAttrError                 = "error"
	logAttrQuery                 = "query"
	logAttrAggregateType         = "aggregate_type"
	logAttrAggregateID           = "aggregate_id"
	logAttrEventName             = "event_name"
	logAttrEventCount            = "event_count"
	logAttrDocumentCount         = "document_count"
	logAttrVersion               = "version"
	logAttrDurationMS            = "duration_ms"
	logActionLoadEvents          = "load events"
	logActionListDocuments       = "list documents"
	colEventName                 = "event_name"
	colAggregateVersion          = "aggregate_version"
	colCreatedAt                 = "created_at"
	colPayload                   = "payload"
	colMetadata                  = "metadata"
	colAggregateID               = "aggregate_id"
	colDocument                  = "document"
	dialectPostgres              = "postgres"
)

type sqlQueryString = string

// StateReducer folds one aggregate event into the aggregate's state document.
// Reducers must be pure: the engine replays the event history through them to
// answer state queries, and identical histories must yield identical state.
type StateReducer func(state map[string]any, event cockpit.AggregateEvent) (map[string]any, error)

// Engine answers the cockpit's read questions from Postgres: it reads event
// streams and read-model collections whose table names come from the compiled
// aggregate descriptions. It implements both cockpit.EventEngine and
// cockpit.DocumentStore.
type Engine struct {
	db               adapters.DBAdapter
	descriptions     *cockpit.OrderedMap[cockpit.AggregateDescription]
	reducers         map[string]StateReducer
	logger           cockpit.Logger
	contextualLogger cockpit.ContextualLogger
}

type queryResultRow struct {
	eventName        string
	aggregateVersion int64
	createdAt        time.Time
	payload          []byte
	metadata         []byte
}

// NewEngineFromPGXPool creates an Engine using a pgx pool with optional configuration.
func NewEngineFromPGXPool(
	db *pgxpool.Pool,
	descriptions *cockpit.OrderedMap[cockpit.AggregateDescription],
	options ...Option,
) (Engine, error) {

	if db == nil {
		return Engine{}, cockpit.ErrNilDatabaseConnection
	}

	return newEngine(adapters.NewPGXAdapter(db), descriptions, options...)
}

// NewEngineFromPGXPoolWithReplica creates an Engine that sends every query to
// the replica pool. The cockpit is read-only, so the primary pool is held only
// for lifecycle symmetry with the write side of the system.
func NewEngineFromPGXPoolWithReplica(
	db *pgxpool.Pool,
	replica *pgxpool.Pool,
	descriptions *cockpit.OrderedMap[cockpit.AggregateDescription],
	options ...Option,
) (Engine, error) {

	if db == nil || replica == nil {
		return Engine{}, cockpit.ErrNilDatabaseConnection
	}

	return newEngine(adapters.NewPGXAdapterWithReplica(db, replica), descriptions, options...)
}

// NewEngineFromSQLDB creates an Engine using a sql.DB with optional configuration.
func NewEngineFromSQLDB(
	db *sql.DB,
	descriptions *cockpit.OrderedMap[cockpit.AggregateDescription],
	options ...Option,
) (Engine, error) {

	if db == nil {
		return Engine{}, cockpit.ErrNilDatabaseConnection
	}

	return newEngine(adapters.NewSQLAdapter(db), descriptions, options...)
}

// NewEngineFromSQLX creates an Engine using a sqlx.DB with optional configuration.
func NewEngineFromSQLX(
	db *sqlx.DB,
	descriptions *cockpit.OrderedMap[cockpit.AggregateDescription],
	options ...Option,
) (Engine, error) {

	if db == nil {
		return Engine{}, cockpit.ErrNilDatabaseConnection
	}

	return newEngine(adapters.NewSQLXAdapter(db), descriptions, options...)
}

func newEngine(
	db adapters.DBAdapter,
	descriptions *cockpit.OrderedMap[cockpit.AggregateDescription],
	options ...Option,
) (Engine, error) {

	engine := Engine{
		db:           db,
		descriptions: descriptions,
		reducers:     make(map[string]StateReducer),
	}

	for _, option := range options {
		if err := option(&engine); err != nil {
			return Engine{}, err
		}
	}

	return engine, nil
}

// LoadAggregateEvents retrieves the full event history of one aggregate
// instance from its stream table, ordered by aggregate version.
func (e Engine) LoadAggregateEvents(
	ctx context.Context,
	aggregateType string,
	aggregateID string,
) (cockpit.AggregateEvents, error) {

	events, err := e.loadEvents(ctx, aggregateType, aggregateID, cockpit.CurrentVersion)
	if err != nil {
		return nil, err
	}

	e.logOperation(ctx, logMsgEventsLoaded,
		logAttrAggregateType, aggregateType,
		logAttrAggregateID, aggregateID,
		logAttrEventCount, len(events))

	return events, nil
}

// LoadAggregateState folds the aggregate's event history into its state
// document using the reducer registered for the aggregate type. A version
// other than cockpit.CurrentVersion truncates the replay at that version.
func (e Engine) LoadAggregateState(
	ctx context.Context,
	aggregateType string,
	aggregateID string,
	version uint,
) (json.RawMessage, error) {

	events, loadErr := e.loadEvents(ctx, aggregateType, aggregateID, version)
	if loadErr != nil {
		return nil, loadErr
	}

	reducer := e.reducerFor(aggregateType)
	state := make(map[string]any)

	for _, event := range events {
		reduced, reduceErr := reducer(state, event)
		if reduceErr != nil {
			e.logError(ctx, logMsgReduceFailed,
				logAttrError, reduceErr.Error(),
				logAttrEventName, event.EventName)

			return nil, errors.Join(cockpit.ErrReducingStateFailed, reduceErr)
		}

		state = reduced
	}

	stateJSON, marshalErr := jsoniter.ConfigFastest.Marshal(state)
	if marshalErr != nil {
		return nil, errors.Join(cockpit.ErrReducingStateFailed, marshalErr)
	}

	e.logOperation(ctx, logMsgStateLoaded,
		logAttrAggregateType, aggregateType,
		logAttrAggregateID, aggregateID,
		logAttrVersion, version,
		logAttrEventCount, len(events))

	return stateJSON, nil
}

// ListAggregates retrieves up to limit read-model documents of one aggregate
// type from its collection table, ordered by aggregate id.
func (e Engine) ListAggregates(
	ctx context.Context,
	aggregateType string,
	limit int,
) ([]json.RawMessage, error) {

	description, descriptionErr := e.descriptionFor(aggregateType)
	if descriptionErr != nil {
		return nil, descriptionErr
	}

	sqlQuery, buildErr := e.buildDocumentsQuery(description, limit)
	if buildErr != nil {
		e.logError(ctx, logMsgBuildSelectQueryFailed, logAttrError, buildErr.Error())
		return nil, buildErr
	}

	rows, duration, queryErr := e.executeQuery(ctx, sqlQuery, logActionListDocuments)
	if queryErr != nil {
		return nil, errors.Join(cockpit.ErrQueryingDocumentsFailed, queryErr)
	}
	defer e.closeRows(ctx, rows)

	documents := make([]json.RawMessage, 0)

	for rows.Next() {
		var documentJSON []byte

		if scanErr := rows.Scan(&documentJSON); scanErr != nil {
			e.logError(ctx, logMsgScanRowFailed, logAttrError, scanErr.Error())
			return nil, errors.Join(cockpit.ErrScanningDBRowFailed, scanErr)
		}

		documents = append(documents, json.RawMessage(documentJSON))
	}

	e.logOperation(ctx, logMsgDocumentsListed,
		logAttrAggregateType, aggregateType,
		logAttrDocumentCount, len(documents),
		logAttrDurationMS, durationToMilliseconds(duration))

	return documents, nil
}

func (e Engine) loadEvents(
	ctx context.Context,
	aggregateType string,
	aggregateID string,
	version uint,
) (cockpit.AggregateEvents, error) {

	description, descriptionErr := e.descriptionFor(aggregateType)
	if descriptionErr != nil {
		return nil, descriptionErr
	}

	sqlQuery, buildErr := e.buildEventsQuery(description, aggregateID, version)
	if buildErr != nil {
		e.logError(ctx, logMsgBuildSelectQueryFailed, logAttrError, buildErr.Error())
		return nil, buildErr
	}

	rows, _, queryErr := e.executeQuery(ctx, sqlQuery, logActionLoadEvents)
	if queryErr != nil {
		return nil, errors.Join(cockpit.ErrQueryingEventsFailed, queryErr)
	}
	defer e.closeRows(ctx, rows)

	return e.processEventRows(ctx, rows)
}

func (e Engine) processEventRows(ctx context.Context, rows adapters.DBRows) (cockpit.AggregateEvents, error) {
	result := queryResultRow{}
	events := make(cockpit.AggregateEvents, 0)

	for rows.Next() {
		rowScanErr := rows.Scan(&result.eventName, &result.aggregateVersion, &result.createdAt, &result.payload, &result.metadata)
		if rowScanErr != nil {
			e.logError(ctx, logMsgScanRowFailed, logAttrError, rowScanErr.Error())
			return nil, errors.Join(cockpit.ErrScanningDBRowFailed, rowScanErr)
		}

		event, buildErr := cockpit.BuildAggregateEvent(
			result.eventName,
			uint(result.aggregateVersion),
			result.createdAt,
			result.payload,
			result.metadata,
		)
		if buildErr != nil {
			e.logError(ctx, logMsgBuildEventFailed,
				logAttrError, buildErr.Error(),
				logAttrEventName, result.eventName)

			return nil, errors.Join(cockpit.ErrBuildingAggregateEventFailed, buildErr)
		}

		events = append(events, event)
	}

	return events, nil
}

func (e Engine) buildEventsQuery(
	description cockpit.AggregateDescription,
	aggregateID string,
	version uint,
) (sqlQueryString, error) {

	selectStmt := goqu.Dialect(dialectPostgres).
		From(description.AggregateStream).
		Select(colEventName, colAggregateVersion, colCreatedAt, colPayload, colMetadata).
		Where(goqu.Ex{colAggregateID: aggregateID}).
		Order(goqu.I(colAggregateVersion).Asc())

	if version != cockpit.CurrentVersion {
		selectStmt = selectStmt.Where(goqu.C(colAggregateVersion).Lte(version))
	}

	sqlQuery, _, toSQLErr := selectStmt.ToSQL()
	if toSQLErr != nil {
		return "", errors.Join(cockpit.ErrBuildingQueryFailed, toSQLErr)
	}

	return sqlQuery, nil
}

func (e Engine) buildDocumentsQuery(description cockpit.AggregateDescription, limit int) (sqlQueryString, error) {
	selectStmt := goqu.Dialect(dialectPostgres).
		From(description.AggregateCollection).
		Select(colDocument).
		Order(goqu.I(colAggregateID).Asc()).
		Limit(uint(limit))

	sqlQuery, _, toSQLErr := selectStmt.ToSQL()
	if toSQLErr != nil {
		return "", errors.Join(cockpit.ErrBuildingQueryFailed, toSQLErr)
	}

	return sqlQuery, nil
}

func (e Engine) descriptionFor(aggregateType string) (cockpit.AggregateDescription, error) {
	description, exists := e.descriptions.Get(aggregateType)
	if !exists {
		return cockpit.AggregateDescription{},
			errors.Join(cockpit.ErrUnknownAggregateType, fmt.Errorf("aggregateType: %s", aggregateType))
	}

	return description, nil
}

func (e Engine) reducerFor(aggregateType string) StateReducer {
	if reducer, exists := e.reducers[aggregateType]; exists {
		return reducer
	}

	return mergePayloadReducer
}

// mergePayloadReducer is the default state reducer: it shallow-merges each
// event's payload into the state document, later events overwriting earlier
// keys. Aggregates needing richer projection logic register their own reducer.
func mergePayloadReducer(state map[string]any, event cockpit.AggregateEvent) (map[string]any, error) {
	payload := make(map[string]any)

	if unmarshalErr := jsoniter.ConfigFastest.Unmarshal(event.Payload, &payload); unmarshalErr != nil {
		return nil, unmarshalErr
	}

	for key, value := range payload {
		state[key] = value
	}

	return state, nil
}

func (e Engine) executeQuery(ctx context.Context, sqlQuery string, action string) (
	adapters.DBRows,
	time.Duration,
	error,
) {

	start := time.Now()
	rows, queryErr := e.db.Query(ctx, sqlQuery)
	duration := time.Since(start)
	e.logQueryWithDuration(ctx, sqlQuery, action, duration)

	if queryErr != nil {
		e.logError(ctx, logMsgDBQueryFailed, logAttrError, queryErr.Error(), logAttrQuery, sqlQuery)
		return nil, duration, queryErr
	}

	return rows, duration, nil
}

func (e Engine) closeRows(ctx context.Context, rows adapters.DBRows) {
	if closeErr := rows.Close(); closeErr != nil {
		if e.contextualLogger != nil {
			e.contextualLogger.WarnContext(ctx, logMsgCloseRowsFailed, logAttrError, closeErr.Error())
		} else if e.logger != nil {
			e.logger.Warn(logMsgCloseRowsFailed, logAttrError, closeErr.Error())
		}
	}
}

// logQueryWithDuration logs SQL queries with execution time at debug level if a logger is configured.
func (e Engine) logQueryWithDuration(ctx context.Context, sqlQuery string, action string, duration time.Duration) {
	args := []any{logAttrDurationMS, durationToMilliseconds(duration), logAttrQuery, sqlQuery}

	if e.contextualLogger != nil {
		e.contextualLogger.DebugContext(ctx, logMsgSQLExecuted+action, args...)
	} else if e.logger != nil {
		e.logger.Debug(logMsgSQLExecuted+action, args...)
	}
}

// logOperation logs operational information at info level if a logger is configured.
func (e Engine) logOperation(ctx context.Context, action string, args ...any) {
	if e.contextualLogger != nil {
		e.contextualLogger.InfoContext(ctx, logMsgOperation+action, args...)
	} else if e.logger != nil {
		e.logger.Info(logMsgOperation+action, args...)
	}
}

func (e Engine) logError(ctx context.Context, msg string, args ...any) {
	if e.contextualLogger != nil {
		e.contextualLogger.ErrorContext(ctx, msg, args...)
	} else if e.logger != nil {
		e.logger.Error(msg, args...)
	}
}

// durationToMilliseconds converts a time.Duration to float64 milliseconds with 3 decimal places.
func durationToMilliseconds(d time.Duration) float64 {
	return math.Round(float64(d.Nanoseconds())/1e6*1000) / 1000
}

package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"path"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	jsoniter "github.com/json-iterator/go"

	"github.com/event-engine/cockpit-backend-go/cockpit"
)

const (
	segmentSchema              = "schema"
	segmentLoadAggregates      = "load-aggregates"
	segmentLoadAggregate       = "load-aggregate"
	segmentLoadAggregateEvents = "load-aggregate-events"

	paramAggregateType = "aggregateType"
	paramAggregateID   = "aggregateId"
	paramLimit         = "limit"
	paramVersion       = "version"

	operationSchema              = "Schema"
	operationLoadAggregates      = "LoadAggregates"
	operationLoadAggregate       = "LoadAggregate"
	operationLoadAggregateEvents = "LoadAggregateEvents"

	contentTypeJSON = "application/json; charset=utf-8"
)

var (
	// ErrMissingQueryParameter is returned when a required query parameter is absent.
	ErrMissingQueryParameter = errors.New("missing required query parameter")

	// ErrInvalidQueryParameter is returned when a query parameter cannot be parsed.
	ErrInvalidQueryParameter = errors.New("invalid query parameter")
)

type errorResponse struct {
	Error string `json:"error"`
}

// dispatch routes a request by its trailing path segment.
func (a *API) dispatch(c *gin.Context) {
	switch path.Base(c.Request.URL.Path) {
	case segmentSchema:
		a.handleSchema(c)
	case segmentLoadAggregates:
		a.handleLoadAggregates(c)
	case segmentLoadAggregate:
		a.handleLoadAggregate(c)
	case segmentLoadAggregateEvents:
		a.handleLoadAggregateEvents(c)
	default:
		a.writeError(c, http.StatusNotFound, cockpit.ErrUnresolvedRoute)
	}
}

// handleSchema compiles the schema document from the current configuration.
// The document is recomputed on every request; the compiled configuration is
// read-only, so concurrent requests are safe without locking.
func (a *API) handleSchema(c *gin.Context) {
	ctx, obs := a.beginRead(c.Request.Context(), operationSchema)

	doc, buildErr := cockpit.BuildSchemaDocument(a.cfg)
	if buildErr != nil {
		a.endReadError(ctx, obs, buildErr)
		a.writeError(c, http.StatusInternalServerError, buildErr)
		return
	}

	a.endReadSuccess(ctx, obs)
	a.writeJSON(c, http.StatusOK, doc)
}

func (a *API) handleLoadAggregates(c *gin.Context) {
	ctx, obs := a.beginRead(c.Request.Context(), operationLoadAggregates)

	aggregateType, typeErr := a.requireKnownAggregateType(c)
	if typeErr != nil {
		a.endReadError(ctx, obs, typeErr)
		a.writeError(c, http.StatusBadRequest, typeErr)
		return
	}

	limit, limitErr := requireIntParam(c, paramLimit)
	if limitErr == nil && limit <= 0 {
		limitErr = errors.Join(ErrInvalidQueryParameter, fmt.Errorf("parameter: %s must be positive", paramLimit))
	}
	if limitErr != nil {
		a.endReadError(ctx, obs, limitErr)
		a.writeError(c, http.StatusBadRequest, limitErr)
		return
	}

	documents, listErr := a.store.ListAggregates(ctx, aggregateType, limit)
	if listErr != nil {
		a.endReadError(ctx, obs, listErr)
		a.writeError(c, http.StatusInternalServerError, listErr)
		return
	}

	if documents == nil {
		documents = make([]json.RawMessage, 0)
	}

	a.endReadSuccess(ctx, obs)
	a.writeJSON(c, http.StatusOK, documents)
}

func (a *API) handleLoadAggregate(c *gin.Context) {
	ctx, obs := a.beginRead(c.Request.Context(), operationLoadAggregate)

	aggregateType, typeErr := a.requireKnownAggregateType(c)
	if typeErr != nil {
		a.endReadError(ctx, obs, typeErr)
		a.writeError(c, http.StatusBadRequest, typeErr)
		return
	}

	aggregateID, idErr := requireParam(c, paramAggregateID)
	if idErr != nil {
		a.endReadError(ctx, obs, idErr)
		a.writeError(c, http.StatusBadRequest, idErr)
		return
	}

	version, versionErr := optionalVersionParam(c)
	if versionErr != nil {
		a.endReadError(ctx, obs, versionErr)
		a.writeError(c, http.StatusBadRequest, versionErr)
		return
	}

	state, loadErr := a.engine.LoadAggregateState(ctx, aggregateType, aggregateID, version)
	if loadErr != nil {
		a.endReadError(ctx, obs, loadErr)
		a.writeError(c, http.StatusInternalServerError, loadErr)
		return
	}

	a.endReadSuccess(ctx, obs)
	c.Data(http.StatusOK, contentTypeJSON, state)
}

func (a *API) handleLoadAggregateEvents(c *gin.Context) {
	ctx, obs := a.beginRead(c.Request.Context(), operationLoadAggregateEvents)

	aggregateType, typeErr := a.requireKnownAggregateType(c)
	if typeErr != nil {
		a.endReadError(ctx, obs, typeErr)
		a.writeError(c, http.StatusBadRequest, typeErr)
		return
	}

	aggregateID, idErr := requireParam(c, paramAggregateID)
	if idErr != nil {
		a.endReadError(ctx, obs, idErr)
		a.writeError(c, http.StatusBadRequest, idErr)
		return
	}

	events, loadErr := a.engine.LoadAggregateEvents(ctx, aggregateType, aggregateID)
	if loadErr != nil {
		a.endReadError(ctx, obs, loadErr)
		a.writeError(c, http.StatusInternalServerError, loadErr)
		return
	}

	if events == nil {
		events = make(cockpit.AggregateEvents, 0)
	}

	a.endReadSuccess(ctx, obs)
	a.writeJSON(c, http.StatusOK, events)
}

// requireKnownAggregateType extracts the aggregateType parameter and verifies
// it against the compiled aggregate descriptions before any engine or store
// call is attempted, so an invalid type never causes wasted store work.
func (a *API) requireKnownAggregateType(c *gin.Context) (string, error) {
	aggregateType, paramErr := requireParam(c, paramAggregateType)
	if paramErr != nil {
		return "", paramErr
	}

	if !a.cfg.AggregateDescriptions.Has(aggregateType) {
		return "", errors.Join(cockpit.ErrUnknownAggregateType, fmt.Errorf("aggregateType: %s", aggregateType))
	}

	return aggregateType, nil
}

func requireParam(c *gin.Context, name string) (string, error) {
	value := c.Query(name)
	if value == "" {
		return "", errors.Join(ErrMissingQueryParameter, fmt.Errorf("parameter: %s", name))
	}

	return value, nil
}

func requireIntParam(c *gin.Context, name string) (int, error) {
	raw, paramErr := requireParam(c, name)
	if paramErr != nil {
		return 0, paramErr
	}

	value, parseErr := strconv.Atoi(raw)
	if parseErr != nil {
		return 0, errors.Join(ErrInvalidQueryParameter, fmt.Errorf("parameter: %s", name), parseErr)
	}

	return value, nil
}

// optionalVersionParam parses the version parameter; absence means
// "current state".
func optionalVersionParam(c *gin.Context) (uint, error) {
	raw := c.Query(paramVersion)
	if raw == "" {
		return cockpit.CurrentVersion, nil
	}

	value, parseErr := strconv.ParseUint(raw, 10, 64)
	if parseErr != nil {
		return 0, errors.Join(ErrInvalidQueryParameter, fmt.Errorf("parameter: %s", paramVersion), parseErr)
	}

	return uint(value), nil
}

func (a *API) writeJSON(c *gin.Context, status int, payload any) {
	body, marshalErr := jsoniter.ConfigFastest.Marshal(payload)
	if marshalErr != nil {
		a.writeError(c, http.StatusInternalServerError, marshalErr)
		return
	}

	c.Data(status, contentTypeJSON, body)
}

func (a *API) writeError(c *gin.Context, status int, err error) {
	body, marshalErr := jsoniter.ConfigFastest.Marshal(errorResponse{Error: err.Error()})
	if marshalErr != nil {
		c.Data(http.StatusInternalServerError, contentTypeJSON, []byte(`{"error":"internal error"}`))
		return
	}

	c.Data(status, contentTypeJSON, body)
}

/*** read facade instrumentation ***/

type readObservation struct {
	operation string
	started   time.Time
	span      cockpit.SpanContext
}

func (a *API) beginRead(ctx context.Context, operation string) (context.Context, readObservation) {
	ctx, span := StartReadSpan(ctx, a.tracingCollector, operation)
	LogReadStart(ctx, a.logger, a.contextualLogger, operation)

	return ctx, readObservation{
		operation: operation,
		started:   time.Now(),
		span:      span,
	}
}

func (a *API) endReadSuccess(ctx context.Context, obs readObservation) {
	duration := time.Since(obs.started)
	RecordReadMetrics(ctx, a.metricsCollector, obs.operation, StatusSuccess, duration)
	FinishReadSpan(a.tracingCollector, obs.span, StatusSuccess, duration, nil)
	LogReadSuccess(ctx, a.logger, a.contextualLogger, obs.operation, duration)
}

func (a *API) endReadError(ctx context.Context, obs readObservation, err error) {
	duration := time.Since(obs.started)
	status := statusFromError(err)
	RecordReadMetrics(ctx, a.metricsCollector, obs.operation, status, duration)
	FinishReadSpan(a.tracingCollector, obs.span, status, duration, err)
	LogReadError(ctx, a.logger, a.contextualLogger, obs.operation, err)
}

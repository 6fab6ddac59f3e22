package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/event-engine/cockpit-backend-go/cockpit"
)

func init() {
	gin.SetMode(gin.TestMode)
}

/*** test doubles ***/

type engineStub struct {
	state       json.RawMessage
	events      cockpit.AggregateEvents
	err         error
	stateCalls  int
	eventCalls  int
	lastVersion uint
	lastID      string
}

func (e *engineStub) LoadAggregateState(_ context.Context, _ string, aggregateID string, version uint) (json.RawMessage, error) {
	e.stateCalls++
	e.lastID = aggregateID
	e.lastVersion = version

	return e.state, e.err
}

func (e *engineStub) LoadAggregateEvents(_ context.Context, _ string, aggregateID string) (cockpit.AggregateEvents, error) {
	e.eventCalls++
	e.lastID = aggregateID

	return e.events, e.err
}

type storeSpy struct {
	documents []json.RawMessage
	err       error
	calls     int
	lastType  string
	lastLimit int
}

func (s *storeSpy) ListAggregates(_ context.Context, aggregateType string, limit int) ([]json.RawMessage, error) {
	s.calls++
	s.lastType = aggregateType
	s.lastLimit = limit

	return s.documents, s.err
}

func testConfig() cockpit.CompiledConfig {
	return cockpit.CompiledConfig{
		CommandMap: cockpit.NewOrderedMap[json.RawMessage]().
			Set("RegisterUser", json.RawMessage(`{"type":"object"}`)),
		QueryMap: cockpit.NewOrderedMap[json.RawMessage](),
		EventMap: cockpit.NewOrderedMap[json.RawMessage]().
			Set("UserWasRegistered", json.RawMessage(`{"type":"object"}`)),
		CommandRouting: cockpit.NewOrderedMap[cockpit.CommandRouting]().
			Set("RegisterUser", cockpit.CommandRouting{
				AggregateType:   "User",
				CreateAggregate: true,
				EventRecorderMap: cockpit.NewOrderedMap[json.RawMessage]().
					Set("UserWasRegistered", json.RawMessage(`{}`)),
			}),
		AggregateDescriptions: cockpit.NewOrderedMap[cockpit.AggregateDescription]().
			Set("User", cockpit.AggregateDescription{
				AggregateType:       "User",
				AggregateIdentifier: "userId",
				AggregateStream:     "user_stream",
				AggregateCollection: "users",
				MultiStoreMode:      json.RawMessage(`false`),
			}),
		Definitions: json.RawMessage(`{}`),
	}
}

func newTestRouter(t *testing.T, engine *engineStub, store *storeSpy) *gin.Engine {
	t.Helper()

	api, err := NewAPI(testConfig(), engine, store)
	require.NoError(t, err)

	return api.Router()
}

func serve(router *gin.Engine, target string) *httptest.ResponseRecorder {
	recorder := httptest.NewRecorder()
	request := httptest.NewRequest(http.MethodGet, target, nil)
	router.ServeHTTP(recorder, request)

	return recorder
}

/*** tests ***/

func Test_API_Schema(t *testing.T) {
	router := newTestRouter(t, &engineStub{}, &storeSpy{})

	response := serve(router, "/api/messagebox/schema")
	require.Equal(t, http.StatusOK, response.Code)

	var doc cockpit.SchemaDocument
	require.NoError(t, json.Unmarshal(response.Body.Bytes(), &doc))

	require.Len(t, doc.Aggregates, 1)
	assert.Equal(t, "User", doc.Aggregates[0].AggregateType)
	require.Len(t, doc.Aggregates[0].Commands, 1)
	assert.Equal(t, "RegisterUser", doc.Aggregates[0].Commands[0].CommandName)
	require.Len(t, doc.Aggregates[0].Events, 1)
	assert.Equal(t, "UserWasRegistered", doc.Aggregates[0].Events[0].EventName)
}

func Test_API_UnresolvedRoute(t *testing.T) {
	router := newTestRouter(t, &engineStub{}, &storeSpy{})

	tests := []struct {
		name   string
		target string
	}{
		{name: "unknown trailing segment", target: "/api/messagebox/does-not-exist"},
		{name: "path outside the api group", target: "/nowhere"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			response := serve(router, tt.target)
			assert.Equal(t, http.StatusNotFound, response.Code)
			assert.Contains(t, response.Body.String(), cockpit.ErrUnresolvedRoute.Error())
		})
	}
}

func Test_API_LoadAggregates(t *testing.T) {
	store := &storeSpy{
		documents: []json.RawMessage{
			json.RawMessage(`{"userId":"user-1"}`),
			json.RawMessage(`{"userId":"user-2"}`),
		},
	}
	router := newTestRouter(t, &engineStub{}, store)

	response := serve(router, "/api/messagebox/load-aggregates?aggregateType=User&limit=10")
	require.Equal(t, http.StatusOK, response.Code)
	assert.JSONEq(t, `[{"userId":"user-1"},{"userId":"user-2"}]`, response.Body.String())

	assert.Equal(t, 1, store.calls)
	assert.Equal(t, "User", store.lastType)
	assert.Equal(t, 10, store.lastLimit)
}

func Test_API_LoadAggregates_EmptyResult(t *testing.T) {
	router := newTestRouter(t, &engineStub{}, &storeSpy{})

	response := serve(router, "/api/messagebox/load-aggregates?aggregateType=User&limit=10")
	require.Equal(t, http.StatusOK, response.Code)
	assert.JSONEq(t, `[]`, response.Body.String())
}

func Test_API_LoadAggregates_UnknownAggregateType(t *testing.T) {
	store := &storeSpy{}
	router := newTestRouter(t, &engineStub{}, store)

	response := serve(router, "/api/messagebox/load-aggregates?aggregateType=Nope&limit=10")
	assert.Equal(t, http.StatusBadRequest, response.Code)
	assert.Contains(t, response.Body.String(), cockpit.ErrUnknownAggregateType.Error())

	// the store must not be reached with an invalid type
	assert.Equal(t, 0, store.calls)
}

func Test_API_LoadAggregates_ParameterValidation(t *testing.T) {
	tests := []struct {
		name   string
		target string
	}{
		{name: "missing aggregateType", target: "/api/messagebox/load-aggregates?limit=10"},
		{name: "missing limit", target: "/api/messagebox/load-aggregates?aggregateType=User"},
		{name: "non-integer limit", target: "/api/messagebox/load-aggregates?aggregateType=User&limit=ten"},
		{name: "non-positive limit", target: "/api/messagebox/load-aggregates?aggregateType=User&limit=0"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := &storeSpy{}
			router := newTestRouter(t, &engineStub{}, store)

			response := serve(router, tt.target)
			assert.Equal(t, http.StatusBadRequest, response.Code)
			assert.Equal(t, 0, store.calls)
		})
	}
}

func Test_API_LoadAggregate(t *testing.T) {
	engine := &engineStub{state: json.RawMessage(`{"userId":"user-1","username":"jane"}`)}
	router := newTestRouter(t, engine, &storeSpy{})

	response := serve(router, "/api/messagebox/load-aggregate?aggregateType=User&aggregateId=user-1")
	require.Equal(t, http.StatusOK, response.Code)
	assert.JSONEq(t, `{"userId":"user-1","username":"jane"}`, response.Body.String())

	assert.Equal(t, 1, engine.stateCalls)
	assert.Equal(t, "user-1", engine.lastID)
	assert.Equal(t, cockpit.CurrentVersion, engine.lastVersion)
}

func Test_API_LoadAggregate_AtVersion(t *testing.T) {
	engine := &engineStub{state: json.RawMessage(`{"userId":"user-1"}`)}
	router := newTestRouter(t, engine, &storeSpy{})

	response := serve(router, "/api/messagebox/load-aggregate?aggregateType=User&aggregateId=user-1&version=5")
	require.Equal(t, http.StatusOK, response.Code)
	assert.Equal(t, uint(5), engine.lastVersion)
}

func Test_API_LoadAggregate_ParameterValidation(t *testing.T) {
	tests := []struct {
		name   string
		target string
	}{
		{name: "missing aggregateId", target: "/api/messagebox/load-aggregate?aggregateType=User"},
		{name: "non-integer version", target: "/api/messagebox/load-aggregate?aggregateType=User&aggregateId=user-1&version=latest"},
		{name: "unknown aggregate type", target: "/api/messagebox/load-aggregate?aggregateType=Nope&aggregateId=user-1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			engine := &engineStub{}
			router := newTestRouter(t, engine, &storeSpy{})

			response := serve(router, tt.target)
			assert.Equal(t, http.StatusBadRequest, response.Code)
			assert.Equal(t, 0, engine.stateCalls)
		})
	}
}

func Test_API_LoadAggregateEvents(t *testing.T) {
	event, err := cockpit.BuildAggregateEvent(
		"UserWasRegistered",
		1,
		timeFixture(t),
		[]byte(`{"userId":"user-1"}`),
		[]byte(`{}`),
	)
	require.NoError(t, err)

	engine := &engineStub{events: cockpit.AggregateEvents{event}}
	router := newTestRouter(t, engine, &storeSpy{})

	response := serve(router, "/api/messagebox/load-aggregate-events?aggregateType=User&aggregateId=user-1")
	require.Equal(t, http.StatusOK, response.Code)

	var events []map[string]any
	require.NoError(t, json.Unmarshal(response.Body.Bytes(), &events))
	require.Len(t, events, 1)
	assert.Equal(t, "UserWasRegistered", events[0]["eventName"])
	assert.Equal(t, float64(1), events[0]["aggregateVersion"])
	assert.Equal(t, "2024-05-01T10:00:00Z", events[0]["createdAt"])
	assert.Equal(t, map[string]any{}, events[0]["metadata"])
	assert.Equal(t, map[string]any{"userId": "user-1"}, events[0]["rawPayload"])

	// the record carries exactly the contract's field names
	require.Contains(t, events[0], "rawPayload")
	assert.NotContains(t, events[0], "payload")

	assert.Equal(t, 1, engine.eventCalls)
}

func timeFixture(t *testing.T) time.Time {
	t.Helper()

	created, err := time.Parse(time.RFC3339, "2024-05-01T10:00:00Z")
	require.NoError(t, err)

	return created
}

func Test_NewAPI_RejectsNilCollaborators(t *testing.T) {
	tests := []struct {
		name     string
		option   Option
		expected error
	}{
		{name: "nil logger", option: WithLogger(nil), expected: ErrNilLoggerSupplied},
		{name: "nil contextual logger", option: WithContextualLogger(nil), expected: ErrNilLoggerSupplied},
		{name: "nil metrics collector", option: WithMetrics(nil), expected: ErrNilCollectorSupplied},
		{name: "nil tracing collector", option: WithTracing(nil), expected: ErrNilCollectorSupplied},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewAPI(testConfig(), &engineStub{}, &storeSpy{}, tt.option)
			assert.ErrorIs(t, err, tt.expected)
		})
	}
}

func Test_API_LoadAggregateEvents_EmptyHistory(t *testing.T) {
	router := newTestRouter(t, &engineStub{}, &storeSpy{})

	response := serve(router, "/api/messagebox/load-aggregate-events?aggregateType=User&aggregateId=user-1")
	require.Equal(t, http.StatusOK, response.Code)
	assert.JSONEq(t, `[]`, response.Body.String())
}

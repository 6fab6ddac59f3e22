package cockpit

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	schemaRegisterUser     = json.RawMessage(`{"type":"object","properties":{"userId":{"type":"string"}}}`)
	schemaChangeUsername   = json.RawMessage(`{"type":"object","properties":{"username":{"type":"string"}}}`)
	schemaUserRegistered   = json.RawMessage(`{"type":"object","properties":{"userId":{"type":"string"}}}`)
	schemaUsernameChanged  = json.RawMessage(`{"type":"object","properties":{"username":{"type":"string"}}}`)
	schemaGetUser          = json.RawMessage(`{"type":"object","properties":{"userId":{"type":"string"}}}`)
	schemaGetUsers         = json.RawMessage(`{"type":"object"}`)
	schemaPingSystem       = json.RawMessage(`{"type":"object"}`)
	messageBoxDefinitions  = json.RawMessage(`{"UserId":{"type":"string","format":"uuid"}}`)
	multiStoreModeDisabled = json.RawMessage(`false`)
)

func userDescription() AggregateDescription {
	return AggregateDescription{
		AggregateType:       "User",
		AggregateIdentifier: "userId",
		AggregateStream:     "user_stream",
		AggregateCollection: "users",
		MultiStoreMode:      multiStoreModeDisabled,
	}
}

// userConfig builds a compiled configuration with one aggregate, two routed
// commands that both record UserWasRegistered, one unrouted command, and two
// queries.
func userConfig() CompiledConfig {
	commandMap := NewOrderedMap[json.RawMessage]().
		Set("RegisterUser", schemaRegisterUser).
		Set("ChangeUsername", schemaChangeUsername).
		Set("PingSystem", schemaPingSystem)

	queryMap := NewOrderedMap[json.RawMessage]().
		Set("GetUser", schemaGetUser).
		Set("GetUsers", schemaGetUsers)

	eventMap := NewOrderedMap[json.RawMessage]().
		Set("UserWasRegistered", schemaUserRegistered).
		Set("UsernameWasChanged", schemaUsernameChanged)

	commandRouting := NewOrderedMap[CommandRouting]().
		Set("RegisterUser", CommandRouting{
			AggregateType:   "User",
			CreateAggregate: true,
			EventRecorderMap: NewOrderedMap[json.RawMessage]().
				Set("UserWasRegistered", json.RawMessage(`{}`)),
		}).
		Set("ChangeUsername", CommandRouting{
			AggregateType:   "User",
			CreateAggregate: false,
			EventRecorderMap: NewOrderedMap[json.RawMessage]().
				Set("UsernameWasChanged", json.RawMessage(`{}`)).
				Set("UserWasRegistered", json.RawMessage(`{}`)),
		})

	descriptions := NewOrderedMap[AggregateDescription]().
		Set("User", userDescription())

	return CompiledConfig{
		CommandMap:            commandMap,
		QueryMap:              queryMap,
		EventMap:              eventMap,
		CommandRouting:        commandRouting,
		AggregateDescriptions: descriptions,
		Definitions:           messageBoxDefinitions,
	}
}

func Test_BuildSchemaDocument_EndToEnd(t *testing.T) {
	cfg := userConfig()

	doc, err := BuildSchemaDocument(cfg)
	require.NoError(t, err)

	require.Len(t, doc.Aggregates, 1)
	user := doc.Aggregates[0]

	assert.Equal(t, "User", user.AggregateType)
	assert.Equal(t, "userId", user.AggregateIdentifier)
	assert.Equal(t, "user_stream", user.AggregateStream)
	assert.Equal(t, "users", user.AggregateCollection)
	assert.Equal(t, multiStoreModeDisabled, user.MultiStoreMode)

	require.Len(t, user.Commands, 2)
	assert.Equal(t, "RegisterUser", user.Commands[0].CommandName)
	assert.Equal(t, "User", user.Commands[0].AggregateType)
	assert.True(t, user.Commands[0].CreateAggregate)
	assert.Equal(t, schemaRegisterUser, user.Commands[0].Schema)

	assert.Equal(t, messageBoxDefinitions, doc.Definitions)
}

func Test_BuildSchemaDocument_Determinism(t *testing.T) {
	cfg := userConfig()

	first, firstErr := BuildSchemaDocument(cfg)
	second, secondErr := BuildSchemaDocument(cfg)

	require.NoError(t, firstErr)
	require.NoError(t, secondErr)
	assert.Equal(t, first, second)
}

func Test_BuildSchemaDocument_PreservesQueryAndCommandOrder(t *testing.T) {
	doc, err := BuildSchemaDocument(userConfig())
	require.NoError(t, err)

	queryNames := make([]string, 0, len(doc.Queries))
	for _, query := range doc.Queries {
		queryNames = append(queryNames, query.QueryName)
	}
	assert.Equal(t, []string{"GetUser", "GetUsers"}, queryNames)

	commandNames := make([]string, 0, len(doc.Commands))
	for _, command := range doc.Commands {
		commandNames = append(commandNames, command.CommandName)
	}
	assert.Equal(t, []string{"RegisterUser", "ChangeUsername", "PingSystem"}, commandNames)
}

func Test_BuildSchemaDocument_DeduplicatesEventsAtFirstOccurrence(t *testing.T) {
	doc, err := BuildSchemaDocument(userConfig())
	require.NoError(t, err)

	require.Len(t, doc.Aggregates, 1)
	events := doc.Aggregates[0].Events

	// UserWasRegistered is recorded by both commands: it must appear exactly
	// once, at the position of its first occurrence (RegisterUser comes first
	// in routing order).
	require.Len(t, events, 2)
	assert.Equal(t, "UserWasRegistered", events[0].EventName)
	assert.Equal(t, schemaUserRegistered, events[0].Schema)
	assert.Equal(t, "UsernameWasChanged", events[1].EventName)
	assert.Equal(t, schemaUsernameChanged, events[1].Schema)
}

func Test_BuildSchemaDocument_UnroutedCommandDefaults(t *testing.T) {
	doc, err := BuildSchemaDocument(userConfig())
	require.NoError(t, err)

	var pingSystem *CommandSchema
	for i := range doc.Commands {
		if doc.Commands[i].CommandName == "PingSystem" {
			pingSystem = &doc.Commands[i]
		}
	}

	require.NotNil(t, pingSystem)
	assert.Nil(t, pingSystem.AggregateType)
	assert.False(t, pingSystem.CreateAggregate)
}

func Test_BuildSchemaDocument_RoutedCommandCarriesAggregateType(t *testing.T) {
	doc, err := BuildSchemaDocument(userConfig())
	require.NoError(t, err)

	registerUser := doc.Commands[0]
	require.NotNil(t, registerUser.AggregateType)
	assert.Equal(t, "User", *registerUser.AggregateType)
	assert.True(t, registerUser.CreateAggregate)
}

func Test_BuildSchemaDocument_PartitionsRoutingAcrossAggregates(t *testing.T) {
	commandMap := NewOrderedMap[json.RawMessage]().
		Set("RegisterUser", schemaRegisterUser).
		Set("AddBuilding", json.RawMessage(`{"type":"object"}`)).
		Set("CheckInUser", json.RawMessage(`{"type":"object"}`))

	eventMap := NewOrderedMap[json.RawMessage]().
		Set("UserWasRegistered", schemaUserRegistered).
		Set("BuildingWasAdded", json.RawMessage(`{"type":"object"}`)).
		Set("UserWasCheckedIn", json.RawMessage(`{"type":"object"}`))

	commandRouting := NewOrderedMap[CommandRouting]().
		Set("RegisterUser", CommandRouting{
			AggregateType:   "User",
			CreateAggregate: true,
			EventRecorderMap: NewOrderedMap[json.RawMessage]().
				Set("UserWasRegistered", json.RawMessage(`{}`)),
		}).
		Set("AddBuilding", CommandRouting{
			AggregateType:   "Building",
			CreateAggregate: true,
			EventRecorderMap: NewOrderedMap[json.RawMessage]().
				Set("BuildingWasAdded", json.RawMessage(`{}`)),
		}).
		Set("CheckInUser", CommandRouting{
			AggregateType:   "Building",
			CreateAggregate: false,
			EventRecorderMap: NewOrderedMap[json.RawMessage]().
				Set("UserWasCheckedIn", json.RawMessage(`{}`)),
		})

	descriptions := NewOrderedMap[AggregateDescription]().
		Set("User", userDescription()).
		Set("Building", AggregateDescription{
			AggregateType:       "Building",
			AggregateIdentifier: "buildingId",
			AggregateStream:     "building_stream",
			AggregateCollection: "buildings",
			MultiStoreMode:      multiStoreModeDisabled,
		})

	cfg := CompiledConfig{
		CommandMap:            commandMap,
		QueryMap:              NewOrderedMap[json.RawMessage](),
		EventMap:              eventMap,
		CommandRouting:        commandRouting,
		AggregateDescriptions: descriptions,
		Definitions:           json.RawMessage(`{}`),
	}

	doc, err := BuildSchemaDocument(cfg)
	require.NoError(t, err)
	require.Len(t, doc.Aggregates, 2)

	assert.Equal(t, "User", doc.Aggregates[0].AggregateType)
	require.Len(t, doc.Aggregates[0].Commands, 1)
	assert.Equal(t, "RegisterUser", doc.Aggregates[0].Commands[0].CommandName)

	assert.Equal(t, "Building", doc.Aggregates[1].AggregateType)
	require.Len(t, doc.Aggregates[1].Commands, 2)
	assert.Equal(t, "AddBuilding", doc.Aggregates[1].Commands[0].CommandName)
	assert.Equal(t, "CheckInUser", doc.Aggregates[1].Commands[1].CommandName)
}

func Test_BuildSchemaDocument_ConfigurationIntegrityFaults(t *testing.T) {
	tests := []struct {
		name        string
		mutate      func(cfg *CompiledConfig)
		expectedErr error
	}{
		{
			name: "routed command missing from command map",
			mutate: func(cfg *CompiledConfig) {
				cfg.CommandMap = NewOrderedMap[json.RawMessage]().
					Set("ChangeUsername", schemaChangeUsername).
					Set("PingSystem", schemaPingSystem)
			},
			expectedErr: ErrCommandSchemaMissing,
		},
		{
			name: "recorded event missing from event map",
			mutate: func(cfg *CompiledConfig) {
				cfg.EventMap = NewOrderedMap[json.RawMessage]().
					Set("UsernameWasChanged", schemaUsernameChanged)
			},
			expectedErr: ErrEventSchemaMissing,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := userConfig()
			tt.mutate(&cfg)

			_, err := BuildSchemaDocument(cfg)
			assert.ErrorIs(t, err, tt.expectedErr)
			assert.True(t, IsConfigurationIntegrityFault(err))
		})
	}
}

func Test_BuildSchemaDocument_EmptyConfig(t *testing.T) {
	cfg := CompiledConfig{
		CommandMap:            NewOrderedMap[json.RawMessage](),
		QueryMap:              NewOrderedMap[json.RawMessage](),
		EventMap:              NewOrderedMap[json.RawMessage](),
		CommandRouting:        NewOrderedMap[CommandRouting](),
		AggregateDescriptions: NewOrderedMap[AggregateDescription](),
		Definitions:           json.RawMessage(`{}`),
	}

	doc, err := BuildSchemaDocument(cfg)
	require.NoError(t, err)
	assert.Empty(t, doc.Aggregates)
	assert.Empty(t, doc.Queries)
	assert.Empty(t, doc.Commands)
}

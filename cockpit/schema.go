package cockpit

import (
	"encoding/json"
	"errors"
	"fmt"
)

// SchemaDocument is the aggregate-centric view of the compiled message schema
// served to UI and tooling clients. All sequences preserve the iteration order
// of the compiled configuration maps they were projected from.
type SchemaDocument struct {
	Aggregates  []AggregateSchema `json:"aggregates"`
	Queries     []QuerySchema     `json:"queries"`
	Commands    []CommandSchema   `json:"commands"`
	Definitions json.RawMessage   `json:"definitions"`
}

// QuerySchema pairs a query name with its payload schema.
type QuerySchema struct {
	QueryName string          `json:"queryName"`
	Schema    json.RawMessage `json:"schema"`
}

// CommandSchema describes one command in the top-level command list.
// AggregateType is null and CreateAggregate false for commands without a
// routing entry; the upstream compiler leaves pure side-effect commands unrouted.
type CommandSchema struct {
	CommandName     string          `json:"commandName"`
	Schema          json.RawMessage `json:"schema"`
	AggregateType   *string         `json:"aggregateType"`
	CreateAggregate bool            `json:"createAggregate"`
}

// AggregateCommandSchema describes one command within an aggregate's schema.
type AggregateCommandSchema struct {
	CommandName     string          `json:"commandName"`
	AggregateType   string          `json:"aggregateType"`
	CreateAggregate bool            `json:"createAggregate"`
	Schema          json.RawMessage `json:"schema"`
}

// AggregateEventSchema pairs an event name with its payload schema.
type AggregateEventSchema struct {
	EventName string          `json:"eventName"`
	Schema    json.RawMessage `json:"schema"`
}

// AggregateSchema is the nested view of one aggregate type: its description
// fields plus the commands routed to it and the events those commands record.
type AggregateSchema struct {
	AggregateType       string                   `json:"aggregateType"`
	AggregateIdentifier string                   `json:"aggregateIdentifier"`
	AggregateStream     string                   `json:"aggregateStream"`
	AggregateCollection string                   `json:"aggregateCollection"`
	MultiStoreMode      json.RawMessage          `json:"multiStoreMode"`
	Commands            []AggregateCommandSchema `json:"commands"`
	Events              []AggregateEventSchema   `json:"events"`
}

// BuildSchemaDocument reshapes the flat compiled configuration into the nested
// SchemaDocument. It is a pure function of its input: no I/O, no mutation of
// the configuration, deterministic output for identical inputs.
//
// A command or event name that is referenced by the routing table but missing
// from its schema map makes the whole operation fail. Skipping the entry
// instead would silently corrupt the schema view clients rely on.
func BuildSchemaDocument(cfg CompiledConfig) (SchemaDocument, error) {
	aggregates, buildErr := buildAggregateSchemas(cfg)
	if buildErr != nil {
		return SchemaDocument{}, buildErr
	}

	return SchemaDocument{
		Aggregates:  aggregates,
		Queries:     buildQuerySchemas(cfg.QueryMap),
		Commands:    buildCommandSchemas(cfg.CommandMap, cfg.CommandRouting),
		Definitions: cfg.Definitions,
	}, nil
}

func buildQuerySchemas(queryMap SchemaMap) []QuerySchema {
	return MapEntries(queryMap, func(queryName string, schema json.RawMessage) QuerySchema {
		return QuerySchema{
			QueryName: queryName,
			Schema:    schema,
		}
	})
}

func buildCommandSchemas(commandMap SchemaMap, commandRouting *OrderedMap[CommandRouting]) []CommandSchema {
	return MapEntries(commandMap, func(commandName string, schema json.RawMessage) CommandSchema {
		command := CommandSchema{
			CommandName: commandName,
			Schema:      schema,
		}

		if routing, isRouted := commandRouting.Get(commandName); isRouted {
			aggregateType := routing.AggregateType
			command.AggregateType = &aggregateType
			command.CreateAggregate = routing.CreateAggregate
		}

		return command
	})
}

func buildAggregateSchemas(cfg CompiledConfig) ([]AggregateSchema, error) {
	aggregates := make([]AggregateSchema, 0, cfg.AggregateDescriptions.Len())

	for _, aggregateType := range cfg.AggregateDescriptions.Keys() {
		description, _ := cfg.AggregateDescriptions.Get(aggregateType)

		aggregate, buildErr := buildAggregateSchema(description, cfg)
		if buildErr != nil {
			return nil, buildErr
		}

		aggregates = append(aggregates, aggregate)
	}

	return aggregates, nil
}

func buildAggregateSchema(description AggregateDescription, cfg CompiledConfig) (AggregateSchema, error) {
	routedCommandNames := partitionCommandRouting(cfg.CommandRouting, description.AggregateType)

	commands, commandsErr := buildAggregateCommandSchemas(routedCommandNames, cfg)
	if commandsErr != nil {
		return AggregateSchema{}, commandsErr
	}

	events, eventsErr := buildAggregateEventSchemas(routedCommandNames, cfg)
	if eventsErr != nil {
		return AggregateSchema{}, eventsErr
	}

	return AggregateSchema{
		AggregateType:       description.AggregateType,
		AggregateIdentifier: description.AggregateIdentifier,
		AggregateStream:     description.AggregateStream,
		AggregateCollection: description.AggregateCollection,
		MultiStoreMode:      description.MultiStoreMode,
		Commands:            commands,
		Events:              events,
	}, nil
}

// partitionCommandRouting returns the names of all commands routed to the
// given aggregate type, preserving the routing table's relative order.
func partitionCommandRouting(commandRouting *OrderedMap[CommandRouting], aggregateType string) []string {
	routedCommandNames := make([]string, 0)

	for _, commandName := range commandRouting.Keys() {
		routing, _ := commandRouting.Get(commandName)
		if routing.AggregateType == aggregateType {
			routedCommandNames = append(routedCommandNames, commandName)
		}
	}

	return routedCommandNames
}

func buildAggregateCommandSchemas(routedCommandNames []string, cfg CompiledConfig) ([]AggregateCommandSchema, error) {
	commands := make([]AggregateCommandSchema, 0, len(routedCommandNames))

	for _, commandName := range routedCommandNames {
		routing, _ := cfg.CommandRouting.Get(commandName)

		schema, schemaExists := cfg.CommandMap.Get(commandName)
		if !schemaExists {
			return nil, errors.Join(ErrCommandSchemaMissing, fmt.Errorf("command: %s", commandName))
		}

		commands = append(commands, AggregateCommandSchema{
			CommandName:     commandName,
			AggregateType:   routing.AggregateType,
			CreateAggregate: routing.CreateAggregate,
			Schema:          schema,
		})
	}

	return commands, nil
}

// buildAggregateEventSchemas collects the events recorded by the aggregate's
// commands, de-duplicated with first-occurrence-wins ordering: first command
// in routing order, then first event within that command's recorder map.
func buildAggregateEventSchemas(routedCommandNames []string, cfg CompiledConfig) ([]AggregateEventSchema, error) {
	events := make([]AggregateEventSchema, 0)
	emittedEventNames := make(map[string]struct{})

	for _, commandName := range routedCommandNames {
		routing, _ := cfg.CommandRouting.Get(commandName)

		for _, eventName := range routing.EventRecorderMap.Keys() {
			if _, alreadyEmitted := emittedEventNames[eventName]; alreadyEmitted {
				continue
			}

			schema, schemaExists := cfg.EventMap.Get(eventName)
			if !schemaExists {
				return nil, errors.Join(ErrEventSchemaMissing, fmt.Errorf("event: %s", eventName))
			}

			events = append(events, AggregateEventSchema{
				EventName: eventName,
				Schema:    schema,
			})
			emittedEventNames[eventName] = struct{}{}
		}
	}

	return events, nil
}

package cockpit

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"

	jsoniter "github.com/json-iterator/go"
)

var (
	// ErrInvalidMessageBoxJSON is returned when a message box document cannot be decoded.
	ErrInvalidMessageBoxJSON = errors.New("message box json is not valid")
)

// SchemaMap maps message names (commands, events or queries) to their
// JSON-Schema payload descriptions. The payload schemas are opaque to the
// cockpit and passed through unmodified.
type SchemaMap = *OrderedMap[json.RawMessage]

// CommandRouting describes where a command is routed: the aggregate type that
// handles it, whether handling it creates a new aggregate instance, and the
// events the command may record. Only the keys of the event recorder map are
// relevant to the cockpit; the recorder metadata is opaque.
type CommandRouting struct {
	AggregateType    string
	CreateAggregate  bool
	EventRecorderMap *OrderedMap[json.RawMessage]
}

// AggregateDescription describes one aggregate type as compiled by the event
// engine. The stream and collection names locate the aggregate's events and
// read-model documents; multiStoreMode is carried verbatim.
type AggregateDescription struct {
	AggregateType       string          `json:"aggregateType"`
	AggregateIdentifier string          `json:"aggregateIdentifier"`
	AggregateStream     string          `json:"aggregateStream"`
	AggregateCollection string          `json:"aggregateCollection"`
	MultiStoreMode      json.RawMessage `json:"multiStoreMode"`
}

// CompiledConfig is the fully resolved, static configuration produced by the
// event engine's compiler. The cockpit only ever reads it; all maps preserve
// the compiler's key order.
type CompiledConfig struct {
	CommandMap            SchemaMap
	QueryMap              SchemaMap
	EventMap              SchemaMap
	CommandRouting        *OrderedMap[CommandRouting]
	AggregateDescriptions *OrderedMap[AggregateDescription]
	Definitions           json.RawMessage
}

// messageBoxField names match the message box schema document produced by the event engine.
const (
	fieldCommands              = "commands"
	fieldQueries               = "queries"
	fieldEvents                = "events"
	fieldCommandRouting        = "commandRouting"
	fieldAggregateDescriptions = "aggregateDescriptions"
	fieldDefinitions           = "definitions"
	fieldAggregateType         = "aggregateType"
	fieldCreateAggregate       = "createAggregate"
	fieldEventRecorderMap      = "eventRecorderMap"
)

// DecodeCompiledConfig decodes a message box schema document into a
// CompiledConfig, preserving the key order of every object in the document.
//
// The standard library cannot be used here: unmarshaling into Go maps loses
// key order, which the schema document contract depends on. The jsoniter
// iterator API walks object fields in document order instead.
func DecodeCompiledConfig(reader io.Reader) (CompiledConfig, error) {
	documentJSON, readErr := io.ReadAll(reader)
	if readErr != nil {
		return CompiledConfig{}, errors.Join(ErrInvalidMessageBoxJSON, readErr)
	}

	cfg := CompiledConfig{
		CommandMap:            NewOrderedMap[json.RawMessage](),
		QueryMap:              NewOrderedMap[json.RawMessage](),
		EventMap:              NewOrderedMap[json.RawMessage](),
		CommandRouting:        NewOrderedMap[CommandRouting](),
		AggregateDescriptions: NewOrderedMap[AggregateDescription](),
		Definitions:           json.RawMessage(`{}`),
	}

	iter := jsoniter.ConfigFastest.BorrowIterator(documentJSON)
	defer jsoniter.ConfigFastest.ReturnIterator(iter)

	iter.ReadObjectCB(func(it *jsoniter.Iterator, field string) bool {
		switch field {
		case fieldCommands:
			readSchemaMap(it, cfg.CommandMap)
		case fieldQueries:
			readSchemaMap(it, cfg.QueryMap)
		case fieldEvents:
			readSchemaMap(it, cfg.EventMap)
		case fieldCommandRouting:
			readCommandRouting(it, cfg.CommandRouting)
		case fieldAggregateDescriptions:
			readAggregateDescriptions(it, cfg.AggregateDescriptions)
		case fieldDefinitions:
			cfg.Definitions = readRawValue(it)
		default:
			it.Skip()
		}

		return true
	})

	if iter.Error != nil && !errors.Is(iter.Error, io.EOF) {
		return CompiledConfig{}, errors.Join(ErrInvalidMessageBoxJSON, iter.Error)
	}

	return cfg, nil
}

func readSchemaMap(iter *jsoniter.Iterator, target *OrderedMap[json.RawMessage]) {
	iter.ReadObjectCB(func(it *jsoniter.Iterator, name string) bool {
		target.Set(name, readRawValue(it))
		return true
	})
}

func readCommandRouting(iter *jsoniter.Iterator, target *OrderedMap[CommandRouting]) {
	iter.ReadObjectCB(func(it *jsoniter.Iterator, commandName string) bool {
		routing := CommandRouting{
			EventRecorderMap: NewOrderedMap[json.RawMessage](),
		}

		it.ReadObjectCB(func(inner *jsoniter.Iterator, field string) bool {
			switch field {
			case fieldAggregateType:
				routing.AggregateType = inner.ReadString()
			case fieldCreateAggregate:
				routing.CreateAggregate = inner.ReadBool()
			case fieldEventRecorderMap:
				readSchemaMap(inner, routing.EventRecorderMap)
			default:
				inner.Skip()
			}

			return true
		})

		target.Set(commandName, routing)

		return true
	})
}

func readAggregateDescriptions(iter *jsoniter.Iterator, target *OrderedMap[AggregateDescription]) {
	iter.ReadObjectCB(func(it *jsoniter.Iterator, aggregateType string) bool {
		descriptionJSON := readRawValue(it)

		var description AggregateDescription
		if unmarshalErr := jsoniter.ConfigFastest.Unmarshal(descriptionJSON, &description); unmarshalErr != nil {
			it.ReportError("readAggregateDescriptions", fmt.Sprintf("aggregate %q: %s", aggregateType, unmarshalErr))
			return false
		}

		target.Set(aggregateType, description)

		return true
	})
}

// readRawValue captures the next JSON value verbatim, without reshaping it.
func readRawValue(iter *jsoniter.Iterator) json.RawMessage {
	raw := iter.SkipAndReturnBytes()
	value := make(json.RawMessage, len(raw))
	copy(value, raw)

	return value
}

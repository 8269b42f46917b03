package asyncapi

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v6"
	"gopkg.in/yaml.v3"
)

// EventValidator checks CloudEvent payloads against the message schemas
// declared in the AsyncAPI contract.
type EventValidator struct {
	schemas  map[string]*jsonschema.Schema
	compiler *jsonschema.Compiler
}

// CloudEvent is the envelope shape as it appears on the wire.
type CloudEvent struct {
	SpecVersion     string      `json:"specversion"`
	Type            string      `json:"type"`
	Source          string      `json:"source"`
	Subject         string      `json:"subject,omitempty"`
	ID              string      `json:"id"`
	Time            string      `json:"time,omitempty"`
	DataContentType string      `json:"datacontenttype,omitempty"`
	Data            interface{} `json:"data,omitempty"`
}

// document mirrors the parts of the AsyncAPI file the validator reads.
type document struct {
	AsyncAPI   string `yaml:"asyncapi"`
	Components struct {
		Schemas map[string]interface{} `yaml:"schemas"`
	} `yaml:"components"`
}

// NewEventValidator parses the AsyncAPI file and compiles every component
// schema whose name maps to a known event type. Schemas that fail to
// compile are skipped.
func NewEventValidator(asyncAPIPath string) (*EventValidator, error) {
	data, err := os.ReadFile(asyncAPIPath)
	if err != nil {
		return nil, fmt.Errorf("read AsyncAPI document: %w", err)
	}

	var doc document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse AsyncAPI document: %w", err)
	}

	v := &EventValidator{
		schemas:  make(map[string]*jsonschema.Schema),
		compiler: jsonschema.NewCompiler(),
	}

	for name, raw := range doc.Components.Schemas {
		if _, ok := raw.(map[string]interface{}); !ok {
			continue
		}
		eventType := eventTypeForSchema(name)
		if eventType == "" {
			continue
		}

		compiled, err := v.compile(fmt.Sprintf("asyncapi://schemas/%s", name), raw)
		if err != nil {
			continue
		}
		v.schemas[eventType] = compiled
	}

	return v, nil
}

func (v *EventValidator) compile(uri string, raw interface{}) (*jsonschema.Schema, error) {
	rawJSON, err := json.Marshal(raw)
	if err != nil {
		return nil, err
	}

	doc, err := jsonschema.UnmarshalJSON(bytes.NewReader(rawJSON))
	if err != nil {
		return nil, err
	}

	if err := v.compiler.AddResource(uri, doc); err != nil {
		return nil, err
	}
	return v.compiler.Compile(uri)
}

// ValidateEvent checks the data payload of a CloudEvent against the schema
// registered for its type.
func (v *EventValidator) ValidateEvent(event CloudEvent) error {
	if event.Type == "" {
		return fmt.Errorf("event type is required")
	}

	schema, ok := v.schemas[event.Type]
	if !ok {
		return fmt.Errorf("no schema found for event type: %s", event.Type)
	}

	if event.Data == nil {
		return fmt.Errorf("event data is required")
	}

	// Round-trip through JSON so numbers and maps arrive in the shape the
	// schema engine expects.
	dataJSON, err := json.Marshal(event.Data)
	if err != nil {
		return fmt.Errorf("marshal event data: %w", err)
	}

	data, err := jsonschema.UnmarshalJSON(bytes.NewReader(dataJSON))
	if err != nil {
		return fmt.Errorf("decode event data: %w", err)
	}

	if err := schema.Validate(data); err != nil {
		return fmt.Errorf("event data violates schema for %s: %w", event.Type, err)
	}
	return nil
}

// ValidateEventJSON checks a CloudEvent given as raw JSON.
func (v *EventValidator) ValidateEventJSON(eventJSON []byte) error {
	var event CloudEvent
	if err := json.Unmarshal(eventJSON, &event); err != nil {
		return fmt.Errorf("parse CloudEvent: %w", err)
	}
	return v.ValidateEvent(event)
}

// GetSupportedEventTypes returns every event type with a registered schema.
func (v *EventValidator) GetSupportedEventTypes() []string {
	types := make([]string, 0, len(v.schemas))
	for eventType := range v.schemas {
		types = append(types, eventType)
	}
	return types
}

// HasSchema reports whether a schema exists for the given event type.
func (v *EventValidator) HasSchema(eventType string) bool {
	_, ok := v.schemas[eventType]
	return ok
}

// RegisterSchema adds or replaces the schema for an event type.
func (v *EventValidator) RegisterSchema(eventType string, schemaJSON []byte) error {
	doc, err := jsonschema.UnmarshalJSON(bytes.NewReader(schemaJSON))
	if err != nil {
		return fmt.Errorf("parse schema for %s: %w", eventType, err)
	}

	uri := fmt.Sprintf("custom://schemas/%s", eventType)
	if err := v.compiler.AddResource(uri, doc); err != nil {
		return fmt.Errorf("register schema for %s: %w", eventType, err)
	}

	compiled, err := v.compiler.Compile(uri)
	if err != nil {
		return fmt.Errorf("compile schema for %s: %w", eventType, err)
	}

	v.schemas[eventType] = compiled
	return nil
}

// schemaEventTypes maps component schema names, minus their Data or Event
// suffix, to the event types carried on the wire.
var schemaEventTypes = map[string]string{
	"OrderCreated":     "wms.fulfillment.order-created",
	"OrderClaimed":     "wms.fulfillment.order-claimed",
	"OrderPicked":      "wms.fulfillment.order-picked",
	"PackingStarted":   "wms.fulfillment.packing-started",
	"OrderPacked":      "wms.fulfillment.order-packed",
	"OrderShipped":     "wms.fulfillment.order-shipped",
	"OrderCancelled":   "wms.fulfillment.order-cancelled",
	"OrderBackordered": "wms.fulfillment.order-backordered",
	"OrderReleased":    "wms.fulfillment.order-released",

	"ItemPicked":     "wms.fulfillment.item-picked",
	"ItemPickUndone": "wms.fulfillment.item-pick-undone",
	"ItemPacked":     "wms.fulfillment.item-packed",

	"StockReserved":     "wms.inventory.stock-reserved",
	"StockReleased":     "wms.inventory.stock-released",
	"StockDeducted":     "wms.inventory.stock-deducted",
	"InventoryAdjusted": "wms.inventory.adjusted",
	"StockReceived":     "wms.inventory.received",

	"ExceptionLogged":   "wms.exception.logged",
	"ExceptionResolved": "wms.exception.resolved",
}

func eventTypeForSchema(schemaName string) string {
	name := strings.TrimSuffix(schemaName, "Data")
	name = strings.TrimSuffix(name, "Event")
	return schemaEventTypes[name]
}

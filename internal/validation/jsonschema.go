package validation

import (
	"encoding/json"
	"fmt"
	"strings"

	jsonschema "github.com/santhosh-tekuri/jsonschema/v6"

	"github.com/veldt/synapse/pkg/schema"
)

// contextSchemaJSON is the JSON Schema for workflow context documents.
// Embedded as a constant to avoid filesystem dependencies.
const contextSchemaJSON = `{
  "$schema": "https://json-schema.org/draft/2020-12/schema",
  "$id": "https://veldt.dev/schemas/context.json",
  "type": "object",
  "required": ["nodes"],
  "properties": {
    "nodes": {
      "type": "array",
      "items": { "$ref": "#/$defs/node" }
    },
    "createdAt": {
      "type": "integer",
      "minimum": 0
    }
  },
  "additionalProperties": false,
  "$defs": {
    "node": {
      "type": "object",
      "required": ["name"],
      "properties": {
        "id": { "type": "string" },
        "name": {
          "type": "string",
          "minLength": 1
        },
        "state": { "$ref": "#/$defs/wires" }
      },
      "additionalProperties": false
    },
    "wires": {
      "type": "object",
      "properties": {
        "outputs": {
          "type": "object",
          "additionalProperties": { "type": "string" }
        },
        "fields": {
          "type": "object",
          "additionalProperties": { "$ref": "#/$defs/field" }
        }
      },
      "additionalProperties": false
    },
    "field": {
      "type": "object",
      "properties": {
        "consumer": { "type": "string" },
        "producer": { "type": "string" }
      },
      "additionalProperties": false
    }
  }
}`

// SchemaValidator implements Validator. It is safe for concurrent use;
// the schema compiles once at construction.
type SchemaValidator struct {
	contextSchema *jsonschema.Schema
}

// NewSchemaValidator creates a SchemaValidator with the context schema
// pre-compiled.
func NewSchemaValidator() (*SchemaValidator, error) {
	c := jsonschema.NewCompiler()
	c.AssertFormat()

	doc, err := jsonschema.UnmarshalJSON(strings.NewReader(contextSchemaJSON))
	if err != nil {
		return nil, fmt.Errorf("unmarshal context schema: %w", err)
	}
	if err := c.AddResource("https://veldt.dev/schemas/context.json", doc); err != nil {
		return nil, fmt.Errorf("add context schema resource: %w", err)
	}

	compiled, err := c.Compile("https://veldt.dev/schemas/context.json")
	if err != nil {
		return nil, fmt.Errorf("compile context schema: %w", err)
	}

	return &SchemaValidator{contextSchema: compiled}, nil
}

// ValidateDocument checks the raw JSON against the context schema.
func (v *SchemaValidator) ValidateDocument(raw json.RawMessage) error {
	if len(raw) == 0 {
		return schema.NewError(schema.ErrCodeValidation, "context document is empty")
	}

	// round-trip so numbers become json.Number, which the jsonschema
	// library requires
	doc, err := jsonschema.UnmarshalJSON(strings.NewReader(string(raw)))
	if err != nil {
		return schema.NewError(schema.ErrCodeValidation, "context document is not valid JSON").WithCause(err)
	}

	if err := v.contextSchema.Validate(doc); err != nil {
		return toWorkflowError(err)
	}
	return nil
}

// toWorkflowError converts a jsonschema.ValidationError into a
// WorkflowError with per-location violation messages.
func toWorkflowError(err error) *schema.WorkflowError {
	verr, ok := err.(*jsonschema.ValidationError)
	if !ok {
		return schema.NewError(schema.ErrCodeValidation, err.Error())
	}

	violations := collectViolations(verr)
	if len(violations) == 0 {
		return schema.NewError(schema.ErrCodeValidation, verr.Error())
	}

	if len(violations) == 1 {
		return schema.NewError(schema.ErrCodeValidation, violations[0]).
			WithDetails(map[string]any{"violations": violations})
	}

	msg := fmt.Sprintf("validation failed with %d errors", len(violations))
	return schema.NewError(schema.ErrCodeValidation, msg).
		WithDetails(map[string]any{"violations": violations})
}

// collectViolations walks a ValidationError tree and collects leaf
// error messages with their instance locations.
func collectViolations(verr *jsonschema.ValidationError) []string {
	if len(verr.Causes) == 0 {
		loc := "/"
		if len(verr.InstanceLocation) > 0 {
			loc = "/" + strings.Join(verr.InstanceLocation, "/")
		}
		return []string{fmt.Sprintf("%s: %s", loc, verr.Error())}
	}

	var violations []string
	for _, cause := range verr.Causes {
		violations = append(violations, collectViolations(cause)...)
	}
	return violations
}

// Package validation checks workflow context documents before the
// loader instantiates them: JSON Schema shape validation, semantic
// checks on ids and wiring, and graph analysis for cycles and
// unreachable nodes.
package validation

import (
	"encoding/json"

	"github.com/veldt/synapse/pkg/schema"
)

// Validator checks workflow context documents for correctness before
// loading. Uses JSON Schema Draft 2020-12 for shape validation.
type Validator interface {
	// ValidateDocument checks the raw JSON document against the context
	// schema.
	ValidateDocument(raw json.RawMessage) error
	// ValidateContext runs semantic and graph checks on a decoded
	// context. hasType reports whether a node type name is registered.
	ValidateContext(wc *schema.WorkflowContext, hasType func(name string) bool) *schema.ValidationResult
}

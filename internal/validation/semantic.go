package validation

import (
	"fmt"

	"github.com/veldt/synapse/pkg/schema"
)

// ValidateContext runs semantic checks followed by graph analysis.
// Errors block the load; warnings are surfaced but do not.
func (v *SchemaValidator) ValidateContext(wc *schema.WorkflowContext, hasType func(name string) bool) *schema.ValidationResult {
	result := &schema.ValidationResult{}
	if wc == nil {
		result.AddError("/", schema.ErrCodeValidation, "workflow context is nil")
		return result
	}

	validateSemantics(wc, hasType, result)
	if result.Valid() {
		result.Merge(analyzeWiring(wc))
	}
	return result
}

// validateSemantics checks ids, type names, and wiring targets.
func validateSemantics(wc *schema.WorkflowContext, hasType func(name string) bool, result *schema.ValidationResult) {
	ids := make(map[string]bool, len(wc.Nodes))
	for i, n := range wc.Nodes {
		path := fmt.Sprintf("/nodes/%d", i)

		if n.ID != "" {
			if ids[n.ID] {
				result.AddError(path+"/id", schema.ErrCodeConflict,
					fmt.Sprintf("duplicate node id %q", n.ID))
			}
			ids[n.ID] = true
		}

		if hasType != nil && !hasType(n.Name) {
			result.AddError(path+"/name", schema.ErrCodeNodeTypeNotFound,
				fmt.Sprintf("node type %q not registered", n.Name))
		}
	}

	for i, n := range wc.Nodes {
		for output, next := range n.State.Outputs {
			if next == "" {
				continue
			}
			if !ids[next] {
				result.AddError(fmt.Sprintf("/nodes/%d/state/outputs/%s", i, output),
					schema.ErrCodeNodeNotFound,
					fmt.Sprintf("output %q wires to unknown node %q", output, next))
			}
		}
	}
}

package schema

import "encoding/json"

// WorkflowContext is the persisted, JSON-serializable representation of a
// workflow graph: node instances, their wiring, and their field values.
// It round-trips losslessly through the loader.
type WorkflowContext struct {
	Nodes     []NodeState `json:"nodes"`
	CreatedAt int64       `json:"createdAt"` // unix millis
}

// NodeState is one persisted node instance.
type NodeState struct {
	ID    string    `json:"id"`
	Name  string    `json:"name"` // node type name, resolved in the registry
	State NodeWires `json:"state"`
}

// NodeWires holds a node's output wiring and field values.
type NodeWires struct {
	// Outputs maps output name -> next node id. A missing or empty entry
	// means the branch terminates at that output.
	Outputs map[string]string `json:"outputs,omitempty"`
	// Fields maps field name -> persisted field value.
	Fields map[string]FieldState `json:"fields,omitempty"`
}

// FieldState is the persisted value of one field.
type FieldState struct {
	// Consumer is the raw (possibly templated) value; nil means unset.
	Consumer *string `json:"consumer,omitempty"`
	// Producer overrides the variable name the field writes at runtime.
	Producer string `json:"producer,omitempty"`
}

// Clone returns a deep copy of the context.
func (wc *WorkflowContext) Clone() *WorkflowContext {
	if wc == nil {
		return nil
	}
	cp := &WorkflowContext{CreatedAt: wc.CreatedAt}
	cp.Nodes = make([]NodeState, len(wc.Nodes))
	for i, n := range wc.Nodes {
		ns := NodeState{ID: n.ID, Name: n.Name}
		if n.State.Outputs != nil {
			ns.State.Outputs = make(map[string]string, len(n.State.Outputs))
			for k, v := range n.State.Outputs {
				ns.State.Outputs[k] = v
			}
		}
		if n.State.Fields != nil {
			ns.State.Fields = make(map[string]FieldState, len(n.State.Fields))
			for k, v := range n.State.Fields {
				fs := FieldState{Producer: v.Producer}
				if v.Consumer != nil {
					raw := *v.Consumer
					fs.Consumer = &raw
				}
				ns.State.Fields[k] = fs
			}
		}
		cp.Nodes[i] = ns
	}
	return cp
}

// Encode marshals the context to its canonical JSON form.
func (wc *WorkflowContext) Encode() (json.RawMessage, error) {
	return json.Marshal(wc)
}

// DecodeContext unmarshals a persisted context document.
func DecodeContext(raw json.RawMessage) (*WorkflowContext, error) {
	var wc WorkflowContext
	if err := json.Unmarshal(raw, &wc); err != nil {
		return nil, NewErrorf(ErrCodeValidation, "decode workflow context: %s", err.Error()).WithCause(err)
	}
	return &wc, nil
}

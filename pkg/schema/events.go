package schema

// Trace event types published on the stream hub and appended to the
// trace log during execution.
const (
	TraceEmit        = "emit"         // a node is about to execute
	TraceSet         = "set"          // a producer wrote a run variable
	TraceChainFailed = "chain_failed" // a chain terminated with an error
)

// NodeTypeInfo describes one registered node kind for tooling and the
// graph editor surface.
type NodeTypeInfo struct {
	Name    string       `json:"name"`
	Group   string       `json:"group,omitempty"`
	Inputs  int          `json:"inputs"`
	Fields  []FieldInfo  `json:"fields,omitempty"`
	Outputs []OutputInfo `json:"outputs,omitempty"`
}

// FieldInfo describes one field slot of a node kind.
type FieldInfo struct {
	Name     string       `json:"name"`
	Type     string       `json:"type,omitempty"`
	Required bool         `json:"required,omitempty"`
	Default  string       `json:"default,omitempty"`
	Unit     string       `json:"unit,omitempty"`
	Options  []OptionInfo `json:"options,omitempty"`
	Variable string       `json:"variable,omitempty"` // producer variable name
}

// OptionInfo is one selectable value of an enum-like field.
type OptionInfo struct {
	Label string `json:"label"`
	Value string `json:"value"`
}

// OutputInfo describes one output slot of a node kind.
type OutputInfo struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}

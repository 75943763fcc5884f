package workflow

import (
	"context"

	"github.com/veldt/synapse/internal/events"
	"github.com/veldt/synapse/internal/scheduler"
)

// Node is one instance in the workflow graph: a typed unit of either a
// trigger or an action/condition.
type Node interface {
	ID() string
	TypeName() string
	Fields() []*Field
	Outputs() []*Output

	// Execute runs the node's behavior for one step of a chain and
	// picks the output to continue on. A nil output terminates the
	// branch.
	Execute(ctx context.Context, run *Run) (*Output, error)
}

// Initializer is implemented by trigger kinds: Init runs once after all
// nodes in a load batch exist, and registers event listeners or
// schedules.
type Initializer interface {
	Init(ctx context.Context, rt *Runtime) error
}

// Unloader is implemented by nodes that registered external callbacks;
// Unload runs before the node is discarded on reload or shutdown.
type Unloader interface {
	Unload(ctx context.Context)
}

// Runtime is handed to trigger nodes at Init time. It carries the live
// graph the node belongs to and the facilities for originating new
// execution runs.
type Runtime struct {
	Graph  *Graph
	Bus    *events.Bus
	Sched  *scheduler.Scheduler
	Runner *Runner
}

// BaseNode carries the identity, fields, and outputs shared by every
// node kind. Kinds embed it and implement Execute.
type BaseNode struct {
	id       string
	typeName string
	group    string
	inputs   int
	fields   []*Field
	outputs  []*Output
}

// NewBase creates the embedded base for a node kind.
func NewBase(typeName, group string, inputs int) BaseNode {
	return BaseNode{typeName: typeName, group: group, inputs: inputs}
}

func (b *BaseNode) ID() string        { return b.id }
func (b *BaseNode) TypeName() string  { return b.typeName }
func (b *BaseNode) Group() string     { return b.group }
func (b *BaseNode) InputCount() int   { return b.inputs }
func (b *BaseNode) Fields() []*Field  { return b.fields }
func (b *BaseNode) Outputs() []*Output { return b.outputs }

// bind assigns the persisted node id during load.
func (b *BaseNode) bind(id string) { b.id = id }

// AddField appends a field slot. Field names must be unique within the
// node.
func (b *BaseNode) AddField(f *Field) *Field {
	b.fields = append(b.fields, f)
	return f
}

// AddOutput appends an output slot. Order matters: single-output kinds
// continue on outputs[0].
func (b *BaseNode) AddOutput(name, description string) *Output {
	out := &Output{Name: name, Description: description}
	b.outputs = append(b.outputs, out)
	return out
}

// Field returns the named field, or nil.
func (b *BaseNode) Field(name string) *Field {
	for _, f := range b.fields {
		if f.Name == name {
			return f
		}
	}
	return nil
}

// Output returns the named output, or nil.
func (b *BaseNode) Output(name string) *Output {
	for _, o := range b.outputs {
		if o.Name == name {
			return o
		}
	}
	return nil
}

// DefaultOutput returns outputs[0], the continuation used by
// single-output kinds.
func (b *BaseNode) DefaultOutput() *Output {
	if len(b.outputs) == 0 {
		return nil
	}
	return b.outputs[0]
}

// binder is the loader-facing id assignment capability.
type binder interface {
	bind(id string)
}

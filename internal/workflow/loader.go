package workflow

import (
	"context"
	"log/slog"

	"github.com/google/uuid"

	"github.com/veldt/synapse/pkg/schema"
)

// Loader instantiates live nodes from the registry and binds their
// wiring and field values. Load has no side effects: it validates and
// constructs the whole graph off to the side, so the caller can swap it
// in atomically only when construction fully succeeds and keep the old
// graph live on failure.
type Loader struct {
	registry *TypeRegistry
	logger   *slog.Logger
}

// NewLoader creates a Loader over the given type registry.
func NewLoader(registry *TypeRegistry, logger *slog.Logger) *Loader {
	return &Loader{registry: registry, logger: logger}
}

// Load builds a Graph from a persisted context. Errors carry the node
// id and the field or output name needed to fix the document.
func (l *Loader) Load(ctx context.Context, wc *schema.WorkflowContext) (*Graph, error) {
	if wc == nil {
		return nil, schema.NewError(schema.ErrCodeValidation, "workflow context is nil")
	}

	stored := wc.Clone()
	g := &Graph{
		nodes:   make(map[string]Node, len(stored.Nodes)),
		context: stored,
	}

	for i := range stored.Nodes {
		ns := &stored.Nodes[i]

		nt, err := l.registry.Get(ns.Name)
		if err != nil {
			return nil, schema.NewErrorf(schema.ErrCodeNodeTypeNotFound,
				"node type %q not registered", ns.Name).WithNode(ns.ID)
		}

		if ns.ID == "" {
			ns.ID = uuid.NewString()
		}
		if _, dup := g.nodes[ns.ID]; dup {
			return nil, schema.NewErrorf(schema.ErrCodeConflict,
				"duplicate node id %q", ns.ID).WithNode(ns.ID)
		}

		n := nt.New()
		if b, ok := n.(binder); ok {
			b.bind(ns.ID)
		}

		if err := wireOutputs(n, ns); err != nil {
			return nil, err
		}
		if err := assignFields(n, ns); err != nil {
			return nil, err
		}
		if err := checkRequired(n, ns); err != nil {
			return nil, err
		}

		g.nodes[ns.ID] = n
		g.order = append(g.order, ns.ID)
	}

	if err := checkWiringTargets(g); err != nil {
		return nil, err
	}

	l.logger.InfoContext(ctx, "graph constructed",
		slog.Int("nodes", g.Len()),
	)
	return g, nil
}

// wireOutputs assigns persisted output wiring by name.
func wireOutputs(n Node, ns *schema.NodeState) error {
	for name, nextID := range ns.State.Outputs {
		var out *Output
		for _, o := range n.Outputs() {
			if o.Name == name {
				out = o
				break
			}
		}
		if out == nil {
			return schema.NewErrorf(schema.ErrCodeOutputNotFound,
				"node type %q has no output %q", ns.Name, name).
				WithNode(ns.ID).
				WithDetails(map[string]any{"output": name})
		}
		out.NextID = nextID
	}
	return nil
}

// assignFields applies persisted field values by field name.
func assignFields(n Node, ns *schema.NodeState) error {
	for name, fs := range ns.State.Fields {
		var field *Field
		for _, f := range n.Fields() {
			if f.Name == name {
				field = f
				break
			}
		}
		if field == nil {
			return schema.NewErrorf(schema.ErrCodeFieldNotFound,
				"node type %q has no field %q", ns.Name, name).
				WithNode(ns.ID).
				WithDetails(map[string]any{"field": name})
		}

		if fs.Consumer != nil {
			if field.Consumer == nil {
				return schema.NewErrorf(schema.ErrCodeFieldNotFound,
					"field %q of %q does not consume a value", name, ns.Name).
					WithNode(ns.ID).
					WithDetails(map[string]any{"field": name})
			}
			field.Consumer.SetRaw(*fs.Consumer)
		}

		if fs.Producer != "" {
			if field.Producer == nil {
				return schema.NewErrorf(schema.ErrCodeFieldNotFound,
					"field %q of %q does not produce a variable", name, ns.Name).
					WithNode(ns.ID).
					WithDetails(map[string]any{"field": name})
			}
			field.Producer.setVariable(fs.Producer)
		}
	}
	return nil
}

// checkRequired fails the load when a required consumer has no value.
func checkRequired(n Node, ns *schema.NodeState) error {
	for _, f := range n.Fields() {
		if f.Consumer == nil || !f.Consumer.Required() {
			continue
		}
		if _, set := f.Consumer.Raw(); !set {
			return schema.NewErrorf(schema.ErrCodeRequiredFieldMissing,
				"required field %q of %q has no value", f.Name, ns.Name).
				WithNode(ns.ID).
				WithDetails(map[string]any{"field": f.Name})
		}
	}
	return nil
}

// checkWiringTargets verifies every wired output points at a node in
// this batch.
func checkWiringTargets(g *Graph) error {
	for _, id := range g.order {
		n := g.nodes[id]
		for _, out := range n.Outputs() {
			if out.NextID == "" {
				continue
			}
			if _, ok := g.nodes[out.NextID]; !ok {
				return schema.NewErrorf(schema.ErrCodeNodeNotFound,
					"output %q wires to unknown node %q", out.Name, out.NextID).
					WithNode(id).
					WithDetails(map[string]any{"output": out.Name, "next": out.NextID})
			}
		}
	}
	return nil
}

package workflow

import (
	"context"
	"log/slog"

	"github.com/veldt/synapse/pkg/schema"
)

// Graph is a fully constructed, immutable set of live nodes. A new
// Graph replaces the previous one atomically on load; chains started
// against a graph keep executing against it even after a swap.
type Graph struct {
	nodes   map[string]Node
	order   []string
	context *schema.WorkflowContext
}

// Node looks up a live node by id.
func (g *Graph) Node(id string) (Node, bool) {
	n, ok := g.nodes[id]
	return n, ok
}

// Nodes returns the live nodes in persisted order.
func (g *Graph) Nodes() []Node {
	out := make([]Node, 0, len(g.order))
	for _, id := range g.order {
		out = append(out, g.nodes[id])
	}
	return out
}

// Len returns the number of live nodes.
func (g *Graph) Len() int { return len(g.nodes) }

// Context returns a copy of the persisted representation this graph was
// loaded from, with generated node ids filled in.
func (g *Graph) Context() *schema.WorkflowContext {
	return g.context.Clone()
}

// Init runs Init on every trigger node, in persisted order. Two-phase
// with construction: by the time Init runs, every node in the batch
// exists and is wired, so triggers can reference any node by id.
func (g *Graph) Init(ctx context.Context, rt *Runtime) error {
	for _, id := range g.order {
		n := g.nodes[id]
		init, ok := n.(Initializer)
		if !ok {
			continue
		}
		if err := init.Init(ctx, rt); err != nil {
			if we, isWE := err.(*schema.WorkflowError); isWE && we.NodeID == "" {
				we.NodeID = n.ID()
			}
			return err
		}
	}
	return nil
}

// Unload tears down every node's external registrations, in persisted
// order. Safe to call on a graph that was never initialized.
func (g *Graph) Unload(ctx context.Context, logger *slog.Logger) {
	for _, id := range g.order {
		if u, ok := g.nodes[id].(Unloader); ok {
			u.Unload(ctx)
		}
	}
	if logger != nil && len(g.order) > 0 {
		logger.Debug("graph unloaded", slog.Int("nodes", len(g.order)))
	}
}

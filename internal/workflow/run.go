package workflow

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/veldt/synapse/internal/expressions"
	"github.com/veldt/synapse/internal/logging"
	"github.com/veldt/synapse/pkg/schema"
)

// DefaultMaxSteps is the hard step ceiling protecting against cyclic
// graphs looping forever within one chain.
const DefaultMaxSteps = 5000

// TraceSink receives emit/set/chain_failed trace records during
// execution. Implementations must not block.
type TraceSink interface {
	Trace(ctx context.Context, runID, nodeID, eventType string, payload any)
}

// Runner drives execution chains: it creates runs and propagates them
// across wired outputs with the step ceiling as cycle guard. The chain
// is an iterative loop, not a recursive call stack, so cyclic graphs hit
// the ceiling instead of overflowing the stack.
type Runner struct {
	maxSteps int
	resolver *expressions.Resolver
	trace    TraceSink
	logger   *slog.Logger
}

// NewRunner creates a Runner. A non-positive maxSteps selects
// DefaultMaxSteps; trace may be nil.
func NewRunner(maxSteps int, resolver *expressions.Resolver, trace TraceSink, logger *slog.Logger) *Runner {
	if maxSteps <= 0 {
		maxSteps = DefaultMaxSteps
	}
	return &Runner{maxSteps: maxSteps, resolver: resolver, trace: trace, logger: logger}
}

// Run is the per-trigger-firing execution record: step counter, current
// node, and the variable bag threaded through the whole chain. The bag
// is shared by reference across every node the chain visits; it is
// never shared between chains.
type Run struct {
	id      string
	step    int
	graph   *Graph
	current Node
	vars    map[string]any
	runner  *Runner
}

// NewRun creates a fresh run against the given graph, seeding the bag
// with @time (wall clock at creation, unix millis) and @step.
func (r *Runner) NewRun(g *Graph) *Run {
	run := &Run{
		id:     uuid.NewString(),
		graph:  g,
		vars:   make(map[string]any),
		runner: r,
	}
	run.vars["@time"] = float64(time.Now().UnixMilli())
	run.vars["@step"] = float64(0)
	return run
}

// Adopt creates a fresh run that re-enters the graph with an existing
// variable bag (Wait continuation). The step counter restarts.
func (r *Runner) Adopt(g *Graph, vars map[string]any) *Run {
	run := &Run{
		id:     uuid.NewString(),
		graph:  g,
		vars:   vars,
		runner: r,
	}
	return run
}

// Start executes a chain from the given node to completion. Each hop
// publishes an "emit" trace record; the chain terminates when a node
// returns no output, the wired output has no next node, the step
// ceiling is hit, or a node fails. Errors terminate only this chain.
func (r *Runner) Start(ctx context.Context, run *Run, node Node) error {
	ctx = logging.WithRunID(ctx, run.id)

	for node != nil {
		if run.step > r.maxSteps {
			err := schema.NewErrorf(schema.ErrCodeStepLimitExceeded,
				"chain exceeded %d steps; the graph likely contains a cycle", r.maxSteps).
				WithNode(node.ID())
			r.fail(ctx, run, node, err)
			return err
		}

		run.current = node
		run.vars["@step"] = float64(run.step)
		nctx := logging.WithNodeID(ctx, node.ID())

		r.publish(nctx, run, node.ID(), schema.TraceEmit, map[string]any{
			"type": node.TypeName(),
			"step": run.step,
		})

		out, err := node.Execute(nctx, run)
		if err != nil {
			err = r.wrap(err, node)
			r.fail(nctx, run, node, err)
			return err
		}

		if out == nil || out.NextID == "" {
			return nil
		}

		next, ok := run.graph.Node(out.NextID)
		if !ok {
			err := schema.NewErrorf(schema.ErrCodeNodeNotFound,
				"output %q wires to unknown node %q", out.Name, out.NextID).
				WithNode(node.ID())
			r.fail(nctx, run, node, err)
			return err
		}

		run.step++
		node = next
	}
	return nil
}

func (r *Runner) wrap(err error, node Node) error {
	if we, ok := err.(*schema.WorkflowError); ok {
		if we.NodeID == "" {
			we.NodeID = node.ID()
		}
		return we
	}
	return schema.NewErrorf(schema.ErrCodeExecution, "execute %s: %s", node.TypeName(), err.Error()).
		WithNode(node.ID()).
		WithCause(err)
}

func (r *Runner) fail(ctx context.Context, run *Run, node Node, err error) {
	logging.LogWith(ctx, r.logger).Error("execution chain failed",
		slog.String("node_type", node.TypeName()),
		slog.Int("step", run.step),
		slog.String("error", err.Error()),
	)
	r.publish(ctx, run, node.ID(), schema.TraceChainFailed, map[string]any{
		"error": err.Error(),
		"step":  run.step,
	})
}

func (r *Runner) publish(ctx context.Context, run *Run, nodeID, eventType string, payload any) {
	if r.trace == nil {
		return
	}
	r.trace.Trace(ctx, run.id, nodeID, eventType, payload)
}

// ID returns the run's unique id.
func (run *Run) ID() string { return run.id }

// Step returns the current step counter.
func (run *Run) Step() int { return run.step }

// Graph returns the live graph the run executes against.
func (run *Run) Graph() *Graph { return run.graph }

// Current returns the node being executed.
func (run *Run) Current() Node { return run.current }

// Vars returns the run's variable bag. The bag is private to this
// chain; callers must not retain it past the chain's lifetime.
func (run *Run) Vars() map[string]any { return run.vars }

// Value reads one variable from the bag.
func (run *Run) Value(name string) (any, bool) {
	v, ok := run.vars[name]
	return v, ok
}

// PutValue writes into the bag (last-write-wins) and publishes a "set"
// trace event.
func (run *Run) PutValue(ctx context.Context, name string, value any) {
	run.vars[name] = value
	nodeID := ""
	if run.current != nil {
		nodeID = run.current.ID()
	}
	run.runner.publish(ctx, run, nodeID, schema.TraceSet, map[string]any{
		"name":  name,
		"value": value,
	})
}

// Interpolate composes a templated raw value against the run's bag.
func (run *Run) Interpolate(ctx context.Context, raw string) (string, error) {
	return run.runner.resolver.Interpolate(ctx, raw, run.vars)
}

// ResolveValue resolves a raw field value, keeping the native type when
// the raw value is exactly one placeholder.
func (run *Run) ResolveValue(ctx context.Context, raw string) (any, error) {
	return run.runner.resolver.ResolveValue(ctx, raw, run.vars)
}

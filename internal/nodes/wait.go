package nodes

import (
	"context"

	"github.com/veldt/synapse/internal/workflow"
)

// Wait pauses a chain. The current chain terminates at this node and a
// one-shot schedule re-enters the graph at the wired next node after
// the delay, carrying the same variable bag.
type Wait struct {
	workflow.BaseNode
	second *workflow.Consumer[float64]

	rt *workflow.Runtime
}

// NewWait constructs an unwired Wait.
func NewWait() workflow.Node {
	n := &Wait{BaseNode: workflow.NewBase("Wait", GroupFlow, 1)}
	n.second = workflow.FloatConsumer().WithUnit("seconds")
	n.AddField(&workflow.Field{Name: "second", Consumer: n.second})
	n.AddOutput("Next", "Continues after the delay")
	return n
}

// Init keeps the runtime for scheduling continuations.
func (n *Wait) Init(_ context.Context, rt *workflow.Runtime) error {
	n.rt = rt
	return nil
}

// Execute schedules the continuation and terminates the current chain.
func (n *Wait) Execute(ctx context.Context, run *workflow.Run) (*workflow.Output, error) {
	secs, err := n.second.Resolve(ctx, run)
	if err != nil {
		return nil, err
	}

	out := n.DefaultOutput()
	if out == nil || out.NextID == "" {
		return nil, nil
	}

	// the continuation snapshots this run's graph, so a reload between
	// schedule and fire does not redirect it
	graph := run.Graph()
	vars := run.Vars()
	nextID := out.NextID
	rt := n.rt

	rt.Sched.Once(secondsToDuration(secs), func(ctx context.Context) error {
		next, ok := graph.Node(nextID)
		if !ok {
			return nil
		}
		cont := rt.Runner.Adopt(graph, vars)
		return rt.Runner.Start(ctx, cont, next)
	})

	return nil, nil
}

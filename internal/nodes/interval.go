package nodes

import (
	"context"
	"time"

	"github.com/veldt/synapse/internal/workflow"
	"github.com/veldt/synapse/pkg/schema"
)

// Interval schedule modes.
const (
	IntervalFixedRate = "FIXED_RATE"
	IntervalDelay     = "DELAY"
)

// Interval starts a chain repeatedly on a timer. FIXED_RATE measures
// start-to-start; DELAY waits between the end of one chain and the
// start of the next.
type Interval struct {
	workflow.BaseNode
	delay    *workflow.Consumer[float64]
	interval *workflow.Consumer[float64]
	mode     *workflow.Consumer[string]

	cancel func()
}

// NewInterval constructs an unwired Interval.
func NewInterval() workflow.Node {
	n := &Interval{BaseNode: workflow.NewBase("Interval", GroupTriggers, 0)}
	n.delay = workflow.FloatConsumer().WithDefault(0, "0").WithUnit("seconds")
	n.interval = workflow.FloatConsumer().WithUnit("seconds")
	n.mode = workflow.EnumConsumer(
		workflow.Option{Label: "Fixed rate", Value: IntervalFixedRate},
		workflow.Option{Label: "Fixed delay", Value: IntervalDelay},
	).WithDefault(IntervalFixedRate, IntervalFixedRate)

	n.AddField(&workflow.Field{Name: "delay", Consumer: n.delay})
	n.AddField(&workflow.Field{Name: "interval", Consumer: n.interval})
	n.AddField(&workflow.Field{Name: "type", Consumer: n.mode})
	n.AddOutput("Next", "Fires once per tick")
	return n
}

// Init resolves the schedule parameters and starts the timer.
func (n *Interval) Init(ctx context.Context, rt *workflow.Runtime) error {
	scratch := rt.Runner.NewRun(rt.Graph)

	delay, err := n.delay.Resolve(ctx, scratch)
	if err != nil {
		return err
	}
	interval, err := n.interval.Resolve(ctx, scratch)
	if err != nil {
		return err
	}
	mode, err := n.mode.Resolve(ctx, scratch)
	if err != nil {
		return err
	}
	if interval <= 0 {
		return schema.NewErrorf(schema.ErrCodeValidation,
			"interval must be positive, got %v", interval).WithNode(n.ID())
	}

	task := func(ctx context.Context) error {
		run := rt.Runner.NewRun(rt.Graph)
		return rt.Runner.Start(ctx, run, n)
	}

	d := secondsToDuration(delay)
	iv := secondsToDuration(interval)
	if mode == IntervalDelay {
		n.cancel = rt.Sched.FixedDelay(d, iv, task)
	} else {
		n.cancel = rt.Sched.FixedRate(d, iv, task)
	}
	return nil
}

// Unload cancels the schedule.
func (n *Interval) Unload(context.Context) {
	if n.cancel != nil {
		n.cancel()
		n.cancel = nil
	}
}

func (n *Interval) Execute(context.Context, *workflow.Run) (*workflow.Output, error) {
	return n.DefaultOutput(), nil
}

// Cron starts a chain on a standard 5-field cron schedule.
type Cron struct {
	workflow.BaseNode
	spec *workflow.Consumer[string]

	cancel func()
}

// NewCron constructs an unwired Cron.
func NewCron() workflow.Node {
	n := &Cron{BaseNode: workflow.NewBase("Cron", GroupTriggers, 0)}
	n.spec = workflow.StringConsumer()
	n.AddField(&workflow.Field{Name: "spec", Consumer: n.spec})
	n.AddOutput("Next", "Fires on schedule")
	return n
}

// Init parses the cron expression and starts the schedule. A bad
// expression fails the whole load.
func (n *Cron) Init(ctx context.Context, rt *workflow.Runtime) error {
	scratch := rt.Runner.NewRun(rt.Graph)

	spec, err := n.spec.Resolve(ctx, scratch)
	if err != nil {
		return err
	}

	cancel, err := rt.Sched.Cron(spec, func(ctx context.Context) error {
		run := rt.Runner.NewRun(rt.Graph)
		return rt.Runner.Start(ctx, run, n)
	})
	if err != nil {
		if we, ok := err.(*schema.WorkflowError); ok && we.NodeID == "" {
			we.NodeID = n.ID()
		}
		return err
	}
	n.cancel = cancel
	return nil
}

// Unload cancels the schedule.
func (n *Cron) Unload(context.Context) {
	if n.cancel != nil {
		n.cancel()
		n.cancel = nil
	}
}

func (n *Cron) Execute(context.Context, *workflow.Run) (*workflow.Output, error) {
	return n.DefaultOutput(), nil
}

func secondsToDuration(s float64) time.Duration {
	return time.Duration(s * float64(time.Second))
}

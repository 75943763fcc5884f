package nodes

import (
	"context"

	"github.com/veldt/synapse/internal/events"
	"github.com/veldt/synapse/internal/host"
	"github.com/veldt/synapse/internal/workflow"
	"github.com/veldt/synapse/pkg/schema"
)

// EventListener starts a chain whenever the host fires a matching
// event. The event payload is written into the fresh run's bag under
// the node's producer variable.
type EventListener struct {
	workflow.BaseNode
	class  *workflow.Consumer[string]
	before *workflow.Consumer[bool]
	event  *workflow.Producer

	deregister func()
}

// NewEventListener constructs an unwired EventListener.
func NewEventListener() workflow.Node {
	n := &EventListener{BaseNode: workflow.NewBase("EventListener", GroupTriggers, 0)}

	opts := make([]workflow.Option, 0, len(host.EventCatalog()))
	for _, ek := range host.EventCatalog() {
		opts = append(opts, workflow.Option{Label: ek.Label, Value: string(ek.Kind)})
	}
	n.class = workflow.EnumConsumer(opts...)
	n.before = workflow.BoolConsumer().WithDefault(false, "false")
	n.event = workflow.NewProducer("event", "any")

	n.AddField(&workflow.Field{Name: "class", Consumer: n.class})
	n.AddField(&workflow.Field{Name: "before", Consumer: n.before})
	n.AddField(&workflow.Field{Name: "event", Producer: n.event})
	n.AddOutput("Next", "Fires once per matching host event")
	return n
}

// Init resolves the configured event class and subscribes to the bus.
func (n *EventListener) Init(ctx context.Context, rt *workflow.Runtime) error {
	scratch := rt.Runner.NewRun(rt.Graph)

	class, err := n.class.Resolve(ctx, scratch)
	if err != nil {
		return err
	}
	before, err := n.before.Resolve(ctx, scratch)
	if err != nil {
		return err
	}
	if !host.KnownKind(class) {
		return schema.NewErrorf(schema.ErrCodeInvalidClassRef,
			"unknown event class %q", class).WithNode(n.ID())
	}

	n.deregister = rt.Bus.On(events.Kind(class), func(ctx context.Context, ev events.Event) {
		if ev.Before != before {
			return
		}
		run := rt.Runner.NewRun(rt.Graph)
		n.event.Produce(ctx, run, ev.Payload)
		// chain failures are logged and traced by the runner
		_ = rt.Runner.Start(ctx, run, n)
	})
	return nil
}

// Unload drops the bus subscription.
func (n *EventListener) Unload(context.Context) {
	if n.deregister != nil {
		n.deregister()
		n.deregister = nil
	}
}

// Execute continues on Next; the run was originated by the bus callback.
func (n *EventListener) Execute(context.Context, *workflow.Run) (*workflow.Output, error) {
	return n.DefaultOutput(), nil
}

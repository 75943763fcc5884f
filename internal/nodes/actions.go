package nodes

import (
	"context"

	"github.com/veldt/synapse/internal/host"
	"github.com/veldt/synapse/internal/workflow"
)

// SendChat broadcasts a chat message through the host.
type SendChat struct {
	workflow.BaseNode
	message *workflow.Consumer[string]
	host    host.Host
}

// NewSendChat constructs an unwired SendChat.
func NewSendChat(h host.Host) workflow.Node {
	n := &SendChat{BaseNode: workflow.NewBase("SendChat", GroupActions, 1), host: h}
	n.message = workflow.StringConsumer()
	n.AddField(&workflow.Field{Name: "message", Consumer: n.message})
	n.AddOutput("Next", "")
	return n
}

func (n *SendChat) Execute(ctx context.Context, run *workflow.Run) (*workflow.Output, error) {
	msg, err := n.message.Resolve(ctx, run)
	if err != nil {
		return nil, err
	}
	if err := n.host.SendChat(ctx, msg); err != nil {
		return nil, err
	}
	return n.DefaultOutput(), nil
}

// DisplayLabel shows a floating label at world coordinates through the
// host.
type DisplayLabel struct {
	workflow.BaseNode
	message *workflow.Consumer[string]
	x       *workflow.Consumer[float64]
	y       *workflow.Consumer[float64]
	seconds *workflow.Consumer[float64]
	host    host.Host
}

// NewDisplayLabel constructs an unwired DisplayLabel.
func NewDisplayLabel(h host.Host) workflow.Node {
	n := &DisplayLabel{BaseNode: workflow.NewBase("DisplayLabel", GroupActions, 1), host: h}
	n.message = workflow.StringConsumer()
	n.x = workflow.FloatConsumer().WithDefault(0, "0")
	n.y = workflow.FloatConsumer().WithDefault(0, "0")
	n.seconds = workflow.FloatConsumer().WithDefault(5, "5").WithUnit("seconds")
	n.AddField(&workflow.Field{Name: "message", Consumer: n.message})
	n.AddField(&workflow.Field{Name: "x", Consumer: n.x})
	n.AddField(&workflow.Field{Name: "y", Consumer: n.y})
	n.AddField(&workflow.Field{Name: "seconds", Consumer: n.seconds})
	n.AddOutput("Next", "")
	return n
}

func (n *DisplayLabel) Execute(ctx context.Context, run *workflow.Run) (*workflow.Output, error) {
	msg, err := n.message.Resolve(ctx, run)
	if err != nil {
		return nil, err
	}
	x, err := n.x.Resolve(ctx, run)
	if err != nil {
		return nil, err
	}
	y, err := n.y.Resolve(ctx, run)
	if err != nil {
		return nil, err
	}
	secs, err := n.seconds.Resolve(ctx, run)
	if err != nil {
		return nil, err
	}
	if err := n.host.DisplayLabel(ctx, msg, x, y, secs); err != nil {
		return nil, err
	}
	return n.DefaultOutput(), nil
}

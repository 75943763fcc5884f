package nodes

import (
	"github.com/veldt/synapse/internal/workflow"
)

// RegisterAll installs every built-in node kind plus one generated kind
// per registered operator.
func RegisterAll(reg *workflow.TypeRegistry, deps Deps) error {
	builtins := []*workflow.NodeType{
		{Name: "EventListener", Group: GroupTriggers, New: NewEventListener},
		{Name: "Interval", Group: GroupTriggers, New: NewInterval},
		{Name: "Cron", Group: GroupTriggers, New: NewCron},
		{Name: "Wait", Group: GroupFlow, New: NewWait},
		{Name: "If", Group: GroupFlow, New: func() workflow.Node { return NewIf(deps.Eval) }},
		{Name: "Set", Group: GroupFlow, New: NewSet},
		{Name: "Query", Group: GroupData, New: func() workflow.Node { return NewQuery(deps.JQ) }},
		{Name: "SendChat", Group: GroupActions, New: func() workflow.Node { return NewSendChat(deps.Host) }},
		{Name: "DisplayLabel", Group: GroupActions, New: func() workflow.Node { return NewDisplayLabel(deps.Host) }},
	}
	for _, nt := range builtins {
		if err := reg.Register(nt); err != nil {
			return err
		}
	}

	for _, op := range deps.Ops.Binaries() {
		op := op
		nt := &workflow.NodeType{
			Name:  op.Name,
			Group: GroupOperators,
			New:   func() workflow.Node { return newBinaryOpNode(op) },
		}
		if err := reg.Register(nt); err != nil {
			return err
		}
	}
	for _, op := range deps.Ops.Unaries() {
		op := op
		nt := &workflow.NodeType{
			Name:  op.Name,
			Group: GroupOperators,
			New:   func() workflow.Node { return newUnaryOpNode(op) },
		}
		if err := reg.Register(nt); err != nil {
			return err
		}
	}
	return nil
}

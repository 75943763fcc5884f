package nodes

import (
	"context"

	"github.com/veldt/synapse/internal/expressions"
	"github.com/veldt/synapse/internal/workflow"
)

// If evaluates a boolean expression against the run's bag and continues
// on the True or False output.
type If struct {
	workflow.BaseNode
	condition *workflow.Consumer[string]
	eval      *expressions.Evaluator
}

// NewIf constructs an unwired If bound to the shared evaluator.
func NewIf(eval *expressions.Evaluator) workflow.Node {
	n := &If{BaseNode: workflow.NewBase("If", GroupFlow, 1), eval: eval}
	n.condition = workflow.StringConsumer()
	n.AddField(&workflow.Field{Name: "condition", Consumer: n.condition})
	n.AddOutput("True", "Taken when the condition holds")
	n.AddOutput("False", "Taken otherwise")
	return n
}

// Execute feeds the raw condition text to the evaluator verbatim;
// {{path}} placeholders are resolved by the expression grammar itself,
// not pre-interpolated.
func (n *If) Execute(ctx context.Context, run *workflow.Run) (*workflow.Output, error) {
	cond, set := n.condition.Raw()
	if !set {
		// required at load time; only reachable on a hand-built node
		var err error
		cond, err = n.condition.Resolve(ctx, run)
		if err != nil {
			return nil, err
		}
	}

	ok, err := n.eval.EvaluateBool(ctx, cond, run.Vars())
	if err != nil {
		return nil, err
	}
	if ok {
		return n.Output("True"), nil
	}
	return n.Output("False"), nil
}

// Set writes a named value into the run's variable bag.
type Set struct {
	workflow.BaseNode
	name  *workflow.Consumer[string]
	value *workflow.Consumer[any]
}

// NewSet constructs an unwired Set.
func NewSet() workflow.Node {
	n := &Set{BaseNode: workflow.NewBase("Set", GroupFlow, 1)}
	n.name = workflow.StringConsumer()
	n.value = workflow.AnyConsumer()
	n.AddField(&workflow.Field{Name: "name", Consumer: n.name})
	n.AddField(&workflow.Field{Name: "value", Consumer: n.value})
	n.AddOutput("Next", "")
	return n
}

func (n *Set) Execute(ctx context.Context, run *workflow.Run) (*workflow.Output, error) {
	name, err := n.name.Resolve(ctx, run)
	if err != nil {
		return nil, err
	}
	value, err := n.value.Resolve(ctx, run)
	if err != nil {
		return nil, err
	}
	run.PutValue(ctx, name, value)
	return n.DefaultOutput(), nil
}

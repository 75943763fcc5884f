package nodes

import (
	"context"

	"github.com/veldt/synapse/internal/expressions"
	"github.com/veldt/synapse/internal/workflow"
)

// Query runs a jq program over a structured input value and writes the
// result into the bag.
type Query struct {
	workflow.BaseNode
	input  *workflow.Consumer[any]
	query  *workflow.Consumer[string]
	result *workflow.Producer
	jq     *expressions.JQEngine
}

// NewQuery constructs an unwired Query bound to the shared jq engine.
func NewQuery(jq *expressions.JQEngine) workflow.Node {
	n := &Query{BaseNode: workflow.NewBase("Query", GroupData, 1), jq: jq}
	n.input = workflow.AnyConsumer()
	n.query = workflow.StringConsumer()
	n.result = workflow.NewProducer("result", "any")
	n.AddField(&workflow.Field{Name: "input", Consumer: n.input})
	n.AddField(&workflow.Field{Name: "query", Consumer: n.query})
	n.AddField(&workflow.Field{Name: "result", Producer: n.result})
	n.AddOutput("Next", "")
	return n
}

func (n *Query) Execute(ctx context.Context, run *workflow.Run) (*workflow.Output, error) {
	input, err := n.input.Resolve(ctx, run)
	if err != nil {
		return nil, err
	}

	// the program text is taken verbatim, jq has its own syntax for
	// variable access
	program, set := n.query.Raw()
	if !set {
		if program, err = n.query.Resolve(ctx, run); err != nil {
			return nil, err
		}
	}

	out, err := n.jq.Evaluate(ctx, program, input)
	if err != nil {
		return nil, err
	}
	n.result.Produce(ctx, run, out)
	return n.DefaultOutput(), nil
}

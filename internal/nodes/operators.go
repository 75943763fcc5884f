package nodes

import (
	"context"

	"github.com/veldt/synapse/internal/expressions"
	"github.com/veldt/synapse/internal/workflow"
)

// binaryOpNode is the generated node kind for one binary operator:
// fields a and b, variable result.
type binaryOpNode struct {
	workflow.BaseNode
	a      *workflow.Consumer[any]
	b      *workflow.Consumer[any]
	result *workflow.Producer
	op     *expressions.BinaryOperator
}

func newBinaryOpNode(op *expressions.BinaryOperator) workflow.Node {
	n := &binaryOpNode{BaseNode: workflow.NewBase(op.Name, GroupOperators, 1), op: op}
	n.a = workflow.AnyConsumer()
	n.b = workflow.AnyConsumer()
	n.result = workflow.NewProducer("result", "any")
	n.AddField(&workflow.Field{Name: "a", Consumer: n.a})
	n.AddField(&workflow.Field{Name: "b", Consumer: n.b})
	n.AddField(&workflow.Field{Name: "result", Producer: n.result})
	n.AddOutput("Next", "")
	return n
}

func (n *binaryOpNode) Execute(ctx context.Context, run *workflow.Run) (*workflow.Output, error) {
	a, err := n.a.Resolve(ctx, run)
	if err != nil {
		return nil, err
	}
	b, err := n.b.Resolve(ctx, run)
	if err != nil {
		return nil, err
	}
	v, err := n.op.Apply(a, b)
	if err != nil {
		return nil, err
	}
	n.result.Produce(ctx, run, v)
	return n.DefaultOutput(), nil
}

// unaryOpNode is the generated node kind for one unary operator: field
// a, variable result.
type unaryOpNode struct {
	workflow.BaseNode
	a      *workflow.Consumer[any]
	result *workflow.Producer
	op     *expressions.UnaryOperator
}

func newUnaryOpNode(op *expressions.UnaryOperator) workflow.Node {
	n := &unaryOpNode{BaseNode: workflow.NewBase(op.Name, GroupOperators, 1), op: op}
	n.a = workflow.AnyConsumer()
	n.result = workflow.NewProducer("result", "any")
	n.AddField(&workflow.Field{Name: "a", Consumer: n.a})
	n.AddField(&workflow.Field{Name: "result", Producer: n.result})
	n.AddOutput("Next", "")
	return n
}

func (n *unaryOpNode) Execute(ctx context.Context, run *workflow.Run) (*workflow.Output, error) {
	a, err := n.a.Resolve(ctx, run)
	if err != nil {
		return nil, err
	}
	v, err := n.op.Apply(a)
	if err != nil {
		return nil, err
	}
	n.result.Produce(ctx, run, v)
	return n.DefaultOutput(), nil
}

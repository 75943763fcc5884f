package workflow

import (
	"context"
	"io"
	"log/slog"
	"sync"

	"github.com/veldt/synapse/internal/expressions"
	"github.com/veldt/synapse/pkg/schema"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testRunner(maxSteps int, sink TraceSink) *Runner {
	resolver := expressions.NewResolver(expressions.NewNamespaceTable())
	return NewRunner(maxSteps, resolver, sink, testLogger())
}

// recordSink captures trace records for assertions.
type recordSink struct {
	mu      sync.Mutex
	records []traceRecord
}

type traceRecord struct {
	RunID     string
	NodeID    string
	EventType string
	Payload   any
}

func (s *recordSink) Trace(_ context.Context, runID, nodeID, eventType string, payload any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = append(s.records, traceRecord{RunID: runID, NodeID: nodeID, EventType: eventType, Payload: payload})
}

func (s *recordSink) ofType(eventType string) []traceRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []traceRecord
	for _, r := range s.records {
		if r.EventType == eventType {
			out = append(out, r)
		}
	}
	return out
}

// forwardNode continues on its single output and records the visit.
type forwardNode struct {
	BaseNode
	visited *[]string
}

func (n *forwardNode) Execute(_ context.Context, _ *Run) (*Output, error) {
	if n.visited != nil {
		*n.visited = append(*n.visited, n.ID())
	}
	return n.DefaultOutput(), nil
}

func forwardType(visited *[]string) *NodeType {
	return &NodeType{
		Name:  "Forward",
		Group: "test",
		New: func() Node {
			n := &forwardNode{BaseNode: NewBase("Forward", "test", 1), visited: visited}
			n.AddOutput("Next", "")
			return n
		},
	}
}

// haltNode terminates the branch.
type haltNode struct {
	BaseNode
	visited *[]string
}

func (n *haltNode) Execute(_ context.Context, _ *Run) (*Output, error) {
	if n.visited != nil {
		*n.visited = append(*n.visited, n.ID())
	}
	return nil, nil
}

func haltType(visited *[]string) *NodeType {
	return &NodeType{
		Name:  "Halt",
		Group: "test",
		New: func() Node {
			return &haltNode{BaseNode: NewBase("Halt", "test", 1), visited: visited}
		},
	}
}

// failNode always returns a plain error.
type failNode struct {
	BaseNode
	err error
}

func failType(err error) *NodeType {
	return &NodeType{
		Name:  "Fail",
		Group: "test",
		New: func() Node {
			n := &failNode{BaseNode: NewBase("Fail", "test", 1), err: err}
			n.AddOutput("Next", "")
			return n
		},
	}
}

func (n *failNode) Execute(_ context.Context, _ *Run) (*Output, error) {
	return nil, n.err
}

// labelNode has a required message consumer and a result producer.
type labelNode struct {
	BaseNode
	message *Consumer[string]
	result  *Producer
}

func labelType() *NodeType {
	return &NodeType{
		Name:  "Label",
		Group: "test",
		New: func() Node {
			n := &labelNode{BaseNode: NewBase("Label", "test", 1)}
			n.message = StringConsumer()
			n.result = NewProducer("label", "string")
			n.AddField(&Field{Name: "message", Consumer: n.message})
			n.AddField(&Field{Name: "result", Producer: n.result})
			n.AddOutput("Next", "")
			return n
		},
	}
}

func (n *labelNode) Execute(ctx context.Context, run *Run) (*Output, error) {
	msg, err := n.message.Resolve(ctx, run)
	if err != nil {
		return nil, err
	}
	n.result.Produce(ctx, run, msg)
	return n.DefaultOutput(), nil
}

func strptr(s string) *string { return &s }

func nodeState(id, name string, outputs map[string]string, fields map[string]schema.FieldState) schema.NodeState {
	return schema.NodeState{
		ID:   id,
		Name: name,
		State: schema.NodeWires{
			Outputs: outputs,
			Fields:  fields,
		},
	}
}

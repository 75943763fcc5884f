package workflow

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/veldt/synapse/pkg/schema"
)

// triggerStub records Init/Unload calls and can fail Init on demand.
type triggerStub struct {
	BaseNode
	initErr  error
	inits    *[]string
	unloads  *[]string
	lastRT   *Runtime
}

func (n *triggerStub) Execute(_ context.Context, _ *Run) (*Output, error) {
	return n.DefaultOutput(), nil
}

func (n *triggerStub) Init(_ context.Context, rt *Runtime) error {
	if n.inits != nil {
		*n.inits = append(*n.inits, n.ID())
	}
	n.lastRT = rt
	return n.initErr
}

func (n *triggerStub) Unload(_ context.Context) {
	if n.unloads != nil {
		*n.unloads = append(*n.unloads, n.ID())
	}
}

func triggerType(name string, initErr error, inits, unloads *[]string) *NodeType {
	return &NodeType{
		Name:  name,
		Group: "test",
		New: func() Node {
			n := &triggerStub{
				BaseNode: NewBase(name, "test", 0),
				initErr:  initErr,
				inits:    inits,
				unloads:  unloads,
			}
			n.AddOutput("Next", "")
			return n
		},
	}
}

func TestGraph_InitRunsTriggersInOrder(t *testing.T) {
	var inits []string
	loader := testLoader(t, triggerType("Trigger", nil, &inits, nil), haltType(nil))

	g := loadGraph(t, loader, &schema.WorkflowContext{
		Nodes: []schema.NodeState{
			nodeState("t1", "Trigger", nil, nil),
			nodeState("h1", "Halt", nil, nil),
			nodeState("t2", "Trigger", nil, nil),
		},
	})

	rt := &Runtime{Graph: g}
	require.NoError(t, g.Init(context.Background(), rt))
	assert.Equal(t, []string{"t1", "t2"}, inits)

	n, _ := g.Node("t1")
	assert.Same(t, rt, n.(*triggerStub).lastRT)
}

func TestGraph_InitFailureCarriesNodeID(t *testing.T) {
	var inits []string
	bad := schema.NewError(schema.ErrCodeValidation, "bad cron expression")
	loader := testLoader(t,
		triggerType("Good", nil, &inits, nil),
		triggerType("Bad", bad, &inits, nil),
	)

	g := loadGraph(t, loader, &schema.WorkflowContext{
		Nodes: []schema.NodeState{
			nodeState("g1", "Good", nil, nil),
			nodeState("b1", "Bad", nil, nil),
			nodeState("g2", "Good", nil, nil),
		},
	})

	err := g.Init(context.Background(), &Runtime{Graph: g})
	require.Error(t, err)

	var we *schema.WorkflowError
	require.ErrorAs(t, err, &we)
	assert.Equal(t, "b1", we.NodeID)

	// init stops at the first failure
	assert.Equal(t, []string{"g1", "b1"}, inits)
}

func TestGraph_UnloadVisitsEveryTrigger(t *testing.T) {
	var unloads []string
	loader := testLoader(t, triggerType("Trigger", nil, nil, &unloads), haltType(nil))

	g := loadGraph(t, loader, &schema.WorkflowContext{
		Nodes: []schema.NodeState{
			nodeState("t1", "Trigger", nil, nil),
			nodeState("h1", "Halt", nil, nil),
			nodeState("t2", "Trigger", nil, nil),
		},
	})

	g.Unload(context.Background(), testLogger())
	assert.Equal(t, []string{"t1", "t2"}, unloads)
}

func TestGraph_ContextReturnsCopy(t *testing.T) {
	loader := testLoader(t, haltType(nil))

	g := loadGraph(t, loader, &schema.WorkflowContext{
		Nodes: []schema.NodeState{nodeState("h1", "Halt", nil, nil)},
	})

	a := g.Context()
	a.Nodes[0].ID = "mutated"

	b := g.Context()
	assert.Equal(t, "h1", b.Nodes[0].ID)
}

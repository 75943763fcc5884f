package workflow

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/veldt/synapse/pkg/schema"
)

func testLoader(t *testing.T, types ...*NodeType) *Loader {
	t.Helper()
	reg := NewTypeRegistry()
	for _, nt := range types {
		require.NoError(t, reg.Register(nt))
	}
	return NewLoader(reg, testLogger())
}

func TestLoader_RoundTrip(t *testing.T) {
	loader := testLoader(t, forwardType(nil), haltType(nil))

	wc := &schema.WorkflowContext{
		CreatedAt: 1700000000000,
		Nodes: []schema.NodeState{
			nodeState("n1", "Forward", map[string]string{"Next": "n2"}, nil),
			nodeState("n2", "Halt", nil, nil),
		},
	}

	g, err := loader.Load(context.Background(), wc)
	require.NoError(t, err)
	require.Equal(t, 2, g.Len())

	n1, ok := g.Node("n1")
	require.True(t, ok)
	assert.Equal(t, "Forward", n1.TypeName())
	require.Len(t, n1.Outputs(), 1)
	assert.Equal(t, "n2", n1.Outputs()[0].NextID)

	stored := g.Context()
	require.Len(t, stored.Nodes, 2)
	assert.Equal(t, "n1", stored.Nodes[0].ID)
	assert.Equal(t, wc.CreatedAt, stored.CreatedAt)
}

func TestLoader_GeneratesMissingIDs(t *testing.T) {
	loader := testLoader(t, haltType(nil))

	wc := &schema.WorkflowContext{
		Nodes: []schema.NodeState{nodeState("", "Halt", nil, nil)},
	}

	g, err := loader.Load(context.Background(), wc)
	require.NoError(t, err)

	stored := g.Context()
	require.Len(t, stored.Nodes, 1)
	assert.NotEmpty(t, stored.Nodes[0].ID)

	_, ok := g.Node(stored.Nodes[0].ID)
	assert.True(t, ok)

	// the input document is untouched
	assert.Empty(t, wc.Nodes[0].ID)
}

func TestLoader_AssignsFields(t *testing.T) {
	loader := testLoader(t, labelType())

	wc := &schema.WorkflowContext{
		Nodes: []schema.NodeState{
			nodeState("n1", "Label", nil, map[string]schema.FieldState{
				"message": {Consumer: strptr("hello")},
				"result":  {Producer: "greeting"},
			}),
		},
	}

	g, err := loader.Load(context.Background(), wc)
	require.NoError(t, err)

	n, _ := g.Node("n1")
	ln := n.(*labelNode)

	raw, set := ln.message.Raw()
	require.True(t, set)
	assert.Equal(t, "hello", raw)
	assert.Equal(t, "greeting", ln.result.Variable())
}

func TestLoader_NodeTypeNotFound(t *testing.T) {
	loader := testLoader(t)

	wc := &schema.WorkflowContext{
		Nodes: []schema.NodeState{nodeState("n1", "Missing", nil, nil)},
	}

	_, err := loader.Load(context.Background(), wc)
	require.Error(t, err)

	var we *schema.WorkflowError
	require.ErrorAs(t, err, &we)
	assert.Equal(t, schema.ErrCodeNodeTypeNotFound, we.Code)
	assert.Equal(t, "n1", we.NodeID)
}

func TestLoader_OutputNotFound(t *testing.T) {
	loader := testLoader(t, haltType(nil))

	wc := &schema.WorkflowContext{
		Nodes: []schema.NodeState{
			nodeState("n1", "Halt", map[string]string{"Nope": "n1"}, nil),
		},
	}

	_, err := loader.Load(context.Background(), wc)
	require.Error(t, err)

	var we *schema.WorkflowError
	require.ErrorAs(t, err, &we)
	assert.Equal(t, schema.ErrCodeOutputNotFound, we.Code)
	assert.Equal(t, "n1", we.NodeID)
}

func TestLoader_FieldNotFound(t *testing.T) {
	loader := testLoader(t, labelType())

	wc := &schema.WorkflowContext{
		Nodes: []schema.NodeState{
			nodeState("n1", "Label", nil, map[string]schema.FieldState{
				"nope": {Consumer: strptr("x")},
			}),
		},
	}

	_, err := loader.Load(context.Background(), wc)
	require.Error(t, err)

	var we *schema.WorkflowError
	require.ErrorAs(t, err, &we)
	assert.Equal(t, schema.ErrCodeFieldNotFound, we.Code)
}

func TestLoader_RequiredFieldMissing(t *testing.T) {
	loader := testLoader(t, labelType())

	wc := &schema.WorkflowContext{
		Nodes: []schema.NodeState{nodeState("n1", "Label", nil, nil)},
	}

	_, err := loader.Load(context.Background(), wc)
	require.Error(t, err)

	var we *schema.WorkflowError
	require.ErrorAs(t, err, &we)
	assert.Equal(t, schema.ErrCodeRequiredFieldMissing, we.Code)
	assert.Equal(t, "n1", we.NodeID)
	assert.Equal(t, "message", we.Details["field"])
}

func TestLoader_DuplicateID(t *testing.T) {
	loader := testLoader(t, haltType(nil))

	wc := &schema.WorkflowContext{
		Nodes: []schema.NodeState{
			nodeState("n1", "Halt", nil, nil),
			nodeState("n1", "Halt", nil, nil),
		},
	}

	_, err := loader.Load(context.Background(), wc)
	require.Error(t, err)

	var we *schema.WorkflowError
	require.ErrorAs(t, err, &we)
	assert.Equal(t, schema.ErrCodeConflict, we.Code)
}

func TestLoader_UnknownWiringTarget(t *testing.T) {
	loader := testLoader(t, forwardType(nil))

	wc := &schema.WorkflowContext{
		Nodes: []schema.NodeState{
			nodeState("n1", "Forward", map[string]string{"Next": "ghost"}, nil),
		},
	}

	_, err := loader.Load(context.Background(), wc)
	require.Error(t, err)

	var we *schema.WorkflowError
	require.ErrorAs(t, err, &we)
	assert.Equal(t, schema.ErrCodeNodeNotFound, we.Code)
	assert.Equal(t, "n1", we.NodeID)
	assert.Equal(t, "ghost", we.Details["next"])
}

func TestLoader_NilContext(t *testing.T) {
	loader := testLoader(t)

	_, err := loader.Load(context.Background(), nil)
	require.Error(t, err)

	var we *schema.WorkflowError
	require.ErrorAs(t, err, &we)
	assert.Equal(t, schema.ErrCodeValidation, we.Code)
}

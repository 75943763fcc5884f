package nodes

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/veldt/synapse/pkg/schema"
)

func TestQuery_ExtractsField(t *testing.T) {
	e := newEnv(t)

	g, _ := e.load(t, &schema.WorkflowContext{
		Nodes: []schema.NodeState{
			node("q1", "Query", nil, map[string]schema.FieldState{
				"input": consumer("{{event}}"),
				"query": consumer(".player.name"),
			}),
		},
	})

	run := e.runner.NewRun(g)
	run.PutValue(context.Background(), "event", map[string]any{
		"player": map[string]any{"name": "dagger", "hp": float64(80)},
	})
	start, _ := g.Node("q1")
	require.NoError(t, e.runner.Start(context.Background(), run, start))

	v, ok := run.Value("result")
	require.True(t, ok)
	assert.Equal(t, "dagger", v)
}

func TestQuery_CollectsMultipleResults(t *testing.T) {
	e := newEnv(t)

	g, _ := e.load(t, &schema.WorkflowContext{
		Nodes: []schema.NodeState{
			node("q1", "Query", nil, map[string]schema.FieldState{
				"input": consumer("{{scores}}"),
				"query": consumer(".[] | select(. > 10)"),
			}),
		},
	})

	run := e.runner.NewRun(g)
	run.PutValue(context.Background(), "scores", []any{float64(5), float64(15), float64(25)})
	start, _ := g.Node("q1")
	require.NoError(t, e.runner.Start(context.Background(), run, start))

	v, _ := run.Value("result")
	assert.Equal(t, []any{float64(15), float64(25)}, v)
}

func TestQuery_BadProgramFailsChain(t *testing.T) {
	e := newEnv(t)

	g, _ := e.load(t, &schema.WorkflowContext{
		Nodes: []schema.NodeState{
			node("q1", "Query", nil, map[string]schema.FieldState{
				"input": consumer("{{event}}"),
				"query": consumer(".[unterminated"),
			}),
		},
	})

	run := e.runner.NewRun(g)
	run.PutValue(context.Background(), "event", map[string]any{})
	start, _ := g.Node("q1")
	err := e.runner.Start(context.Background(), run, start)
	require.Error(t, err)

	var we *schema.WorkflowError
	require.ErrorAs(t, err, &we)
	assert.Equal(t, "q1", we.NodeID)
}

func TestDisplayLabel_PassesCoordinates(t *testing.T) {
	e := newEnv(t)

	g, _ := e.load(t, &schema.WorkflowContext{
		Nodes: []schema.NodeState{
			node("d1", "DisplayLabel", nil, map[string]schema.FieldState{
				"message": consumer("danger"),
				"x":       consumer("12.5"),
				"y":       consumer("40"),
			}),
		},
	})

	run := e.runner.NewRun(g)
	start, _ := g.Node("d1")
	require.NoError(t, e.runner.Start(context.Background(), run, start))

	labels := e.host.Labels()
	require.Len(t, labels, 1)
	assert.Equal(t, "danger", labels[0].Message)
	assert.Equal(t, 12.5, labels[0].X)
	assert.Equal(t, 40.0, labels[0].Y)
	// seconds falls back to its default
	assert.Equal(t, 5.0, labels[0].Secs)
}

package nodes

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/veldt/synapse/pkg/schema"
)

func TestWait_ResumesChainAfterDelay(t *testing.T) {
	e := newEnv(t)

	g, _ := e.load(t, &schema.WorkflowContext{
		Nodes: []schema.NodeState{
			node("w1", "Wait", map[string]string{"Next": "c1"}, map[string]schema.FieldState{
				"second": consumer("0.01"),
			}),
			node("c1", "SendChat", nil, map[string]schema.FieldState{
				"message": consumer("{{note}}"),
			}),
		},
	})

	run := e.runner.NewRun(g)
	run.PutValue(context.Background(), "note", "delayed hello")
	start, _ := g.Node("w1")

	// the originating chain terminates at the Wait
	require.NoError(t, e.runner.Start(context.Background(), run, start))
	assert.Empty(t, e.host.Chats())

	assert.Eventually(t, func() bool {
		chats := e.host.Chats()
		return len(chats) == 1 && chats[0] == "delayed hello"
	}, 2*time.Second, 5*time.Millisecond)
}

func TestWait_NoContinuationWithoutWiring(t *testing.T) {
	e := newEnv(t)

	g, _ := e.load(t, &schema.WorkflowContext{
		Nodes: []schema.NodeState{
			node("w1", "Wait", nil, map[string]schema.FieldState{
				"second": consumer("0.01"),
			}),
		},
	})

	active := e.sched.Active()
	run := e.runner.NewRun(g)
	start, _ := g.Node("w1")
	require.NoError(t, e.runner.Start(context.Background(), run, start))

	// nothing scheduled when the output dangles
	assert.Equal(t, active, e.sched.Active())
}

func TestInterval_FiresRepeatedly(t *testing.T) {
	e := newEnv(t)

	e.load(t, &schema.WorkflowContext{
		Nodes: []schema.NodeState{
			node("i1", "Interval", map[string]string{"Next": "c1"}, map[string]schema.FieldState{
				"interval": consumer("0.01"),
			}),
			node("c1", "SendChat", nil, map[string]schema.FieldState{
				"message": consumer("tick"),
			}),
		},
	})

	assert.Eventually(t, func() bool {
		return len(e.host.Chats()) >= 2
	}, 2*time.Second, 5*time.Millisecond)
}

func TestInterval_RejectsNonPositiveInterval(t *testing.T) {
	e := newEnv(t)

	g, err := e.loader.Load(context.Background(), &schema.WorkflowContext{
		Nodes: []schema.NodeState{
			node("i1", "Interval", nil, map[string]schema.FieldState{
				"interval": consumer("0"),
			}),
		},
	})
	require.NoError(t, err)

	rt := runtimeFor(e, g)
	initErr := g.Init(context.Background(), rt)
	require.Error(t, initErr)

	var we *schema.WorkflowError
	require.ErrorAs(t, initErr, &we)
	assert.Equal(t, schema.ErrCodeValidation, we.Code)
	assert.Equal(t, "i1", we.NodeID)
}

func TestCron_RejectsBadExpression(t *testing.T) {
	e := newEnv(t)

	g, err := e.loader.Load(context.Background(), &schema.WorkflowContext{
		Nodes: []schema.NodeState{
			node("cr1", "Cron", nil, map[string]schema.FieldState{
				"spec": consumer("not a cron line"),
			}),
		},
	})
	require.NoError(t, err)

	initErr := g.Init(context.Background(), runtimeFor(e, g))
	require.Error(t, initErr)

	var we *schema.WorkflowError
	require.ErrorAs(t, initErr, &we)
	assert.Equal(t, schema.ErrCodeValidation, we.Code)
	assert.Equal(t, "cr1", we.NodeID)
}

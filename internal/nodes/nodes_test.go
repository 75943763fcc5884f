package nodes

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/veldt/synapse/internal/events"
	"github.com/veldt/synapse/internal/expressions"
	"github.com/veldt/synapse/internal/scheduler"
	"github.com/veldt/synapse/internal/workflow"
	"github.com/veldt/synapse/pkg/schema"
)

// fakeHost records host calls for assertions.
type fakeHost struct {
	mu     sync.Mutex
	chats  []string
	labels []labelCall
}

type labelCall struct {
	Message    string
	X, Y, Secs float64
}

func (h *fakeHost) SendChat(_ context.Context, message string) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.chats = append(h.chats, message)
	return nil
}

func (h *fakeHost) DisplayLabel(_ context.Context, message string, x, y, seconds float64) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.labels = append(h.labels, labelCall{Message: message, X: x, Y: y, Secs: seconds})
	return nil
}

func (h *fakeHost) Chats() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]string(nil), h.chats...)
}

func (h *fakeHost) Labels() []labelCall {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]labelCall(nil), h.labels...)
}

// env wires a full registry, loader, runner, bus, and scheduler for
// node tests.
type env struct {
	logger *slog.Logger
	host   *fakeHost
	deps   Deps
	reg    *workflow.TypeRegistry
	loader *workflow.Loader
	runner *workflow.Runner
	bus    *events.Bus
	sched  *scheduler.Scheduler
}

func newEnv(t *testing.T) *env {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	ops := expressions.NewOperatorTable()
	require.NoError(t, expressions.RegisterBuiltins(ops))
	resolver := expressions.NewResolver(expressions.NewNamespaceTable())

	h := &fakeHost{}
	deps := Deps{
		Host: h,
		Eval: expressions.NewEvaluator(ops, resolver),
		JQ:   expressions.NewJQEngine(),
		Ops:  ops,
	}

	reg := workflow.NewTypeRegistry()
	require.NoError(t, RegisterAll(reg, deps))

	sched := scheduler.New(logger)
	t.Cleanup(sched.Stop)

	return &env{
		logger: logger,
		host:   h,
		deps:   deps,
		reg:    reg,
		loader: workflow.NewLoader(reg, logger),
		runner: workflow.NewRunner(0, resolver, nil, logger),
		bus:    events.NewBus(logger),
		sched:  sched,
	}
}

// load constructs and initializes a graph, tearing it down with the
// test.
func (e *env) load(t *testing.T, wc *schema.WorkflowContext) (*workflow.Graph, *workflow.Runtime) {
	t.Helper()
	g, err := e.loader.Load(context.Background(), wc)
	require.NoError(t, err)

	rt := &workflow.Runtime{Graph: g, Bus: e.bus, Sched: e.sched, Runner: e.runner}
	require.NoError(t, g.Init(context.Background(), rt))
	t.Cleanup(func() { g.Unload(context.Background(), e.logger) })
	return g, rt
}

func runtimeFor(e *env, g *workflow.Graph) *workflow.Runtime {
	return &workflow.Runtime{Graph: g, Bus: e.bus, Sched: e.sched, Runner: e.runner}
}

func strptr(s string) *string { return &s }

func node(id, name string, outputs map[string]string, fields map[string]schema.FieldState) schema.NodeState {
	return schema.NodeState{
		ID:   id,
		Name: name,
		State: schema.NodeWires{
			Outputs: outputs,
			Fields:  fields,
		},
	}
}

func consumer(raw string) schema.FieldState {
	return schema.FieldState{Consumer: strptr(raw)}
}

// Package engine assembles the workflow runtime: operator and namespace
// tables, the node type registry, the event bus, scheduler, trace hub,
// and the live graph with its atomic load protocol.
package engine

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/veldt/synapse/internal/events"
	"github.com/veldt/synapse/internal/expressions"
	"github.com/veldt/synapse/internal/host"
	"github.com/veldt/synapse/internal/logging"
	"github.com/veldt/synapse/internal/nodes"
	"github.com/veldt/synapse/internal/scheduler"
	"github.com/veldt/synapse/internal/store"
	"github.com/veldt/synapse/internal/streaming"
	"github.com/veldt/synapse/internal/validation"
	"github.com/veldt/synapse/internal/workflow"
	"github.com/veldt/synapse/pkg/schema"
)

// Options configures engine construction.
type Options struct {
	Logger *slog.Logger
	Host   host.Host
	// Store is optional; without it contexts and traces are not
	// persisted.
	Store store.Store
	// MaxSteps caps one execution chain. Zero selects the default.
	MaxSteps int
	// PoolSize bounds the trace persistence workers. Zero selects 4.
	PoolSize int
	Server   host.ServerInfo
}

// Engine owns every registry and runtime facility. Construct one per
// process (or per test) and inject it; there is no package-level state.
type Engine struct {
	logger    *slog.Logger
	ops       *expressions.OperatorTable
	spaces    *expressions.NamespaceTable
	resolver  *expressions.Resolver
	eval      *expressions.Evaluator
	jq        *expressions.JQEngine
	registry  *workflow.TypeRegistry
	loader    *workflow.Loader
	runner    *workflow.Runner
	validator *validation.SchemaValidator
	bus       *events.Bus
	sched     *scheduler.Scheduler
	hub       streaming.Hub
	store     store.Store
	pool      *WorkerPool

	// loadMu serializes Load and Shutdown graph transitions; mu guards
	// only the pointer so readers never wait on a load in progress.
	loadMu sync.Mutex
	mu     sync.RWMutex
	graph  *workflow.Graph
}

// New constructs a fully wired Engine.
func New(opts Options) (*Engine, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	h := opts.Host
	if h == nil {
		h = host.NewLogHost(logger)
	}
	poolSize := opts.PoolSize
	if poolSize <= 0 {
		poolSize = 4
	}

	ops := expressions.NewOperatorTable()
	if err := expressions.RegisterBuiltins(ops); err != nil {
		return nil, err
	}

	spaces := expressions.NewNamespaceTable()
	if err := host.RegisterNamespaces(spaces, opts.Server); err != nil {
		return nil, err
	}

	resolver := expressions.NewResolver(spaces)
	eval := expressions.NewEvaluator(ops, resolver)
	jq := expressions.NewJQEngine()

	registry := workflow.NewTypeRegistry()
	if err := nodes.RegisterAll(registry, nodes.Deps{Host: h, Eval: eval, JQ: jq, Ops: ops}); err != nil {
		return nil, err
	}

	validator, err := validation.NewSchemaValidator()
	if err != nil {
		return nil, err
	}

	e := &Engine{
		logger:    logger,
		ops:       ops,
		spaces:    spaces,
		resolver:  resolver,
		eval:      eval,
		jq:        jq,
		registry:  registry,
		loader:    workflow.NewLoader(registry, logger),
		validator: validator,
		bus:       events.NewBus(logger),
		sched:     scheduler.New(logger),
		hub:       streaming.NewMemoryHub(),
		store:     opts.Store,
		pool:      NewWorkerPool(poolSize),
	}
	e.runner = workflow.NewRunner(opts.MaxSteps, resolver, e, logger)
	return e, nil
}

// Trace implements workflow.TraceSink: every record goes to the live
// hub, and to the store through the bounded pool so persistence never
// blocks an execution chain. Records are dropped when the pool is
// saturated; the hub delivery is best-effort by design.
func (e *Engine) Trace(ctx context.Context, runID, nodeID, eventType string, payload any) {
	_ = e.hub.Publish(ctx, streaming.TraceEvent{
		RunID:     runID,
		NodeID:    nodeID,
		EventType: eventType,
		Payload:   payload,
	})

	if e.store == nil {
		return
	}

	raw, err := json.Marshal(payload)
	if err != nil {
		e.logger.Warn("trace payload not serializable",
			slog.String("event_type", eventType),
			slog.String("error", err.Error()),
		)
		raw = nil
	}

	rec := &store.TraceRecord{
		RunID:     runID,
		NodeID:    nodeID,
		EventType: eventType,
		Payload:   raw,
		Timestamp: time.Now().UTC(),
	}
	if !e.pool.TrySubmit(context.WithoutCancel(ctx), func(ctx context.Context) error {
		return e.store.AppendTrace(ctx, rec)
	}) {
		e.logger.Warn("trace record dropped", slog.String("run_id", runID))
	}
}

// NodeTypes returns the editor-facing catalog of registered node kinds.
func (e *Engine) NodeTypes() []schema.NodeTypeInfo {
	return e.registry.Describe()
}

// Context returns the currently loaded context, or nil when no graph is
// loaded.
func (e *Engine) Context() *schema.WorkflowContext {
	e.mu.RLock()
	g := e.graph
	e.mu.RUnlock()
	if g == nil {
		return nil
	}
	return g.Context()
}

// Graph returns the live graph, or nil.
func (e *Engine) Graph() *workflow.Graph {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.graph
}

// LoadDocument validates a raw JSON context document and loads it.
func (e *Engine) LoadDocument(ctx context.Context, raw json.RawMessage) (*schema.WorkflowContext, error) {
	if err := e.validator.ValidateDocument(raw); err != nil {
		return nil, err
	}
	wc, err := schema.DecodeContext(raw)
	if err != nil {
		return nil, err
	}
	return e.Load(ctx, wc)
}

// Load replaces the live graph with one built from the given context.
//
// The load protocol: the new graph is validated and constructed fully
// off to the side, so any failure up to that point leaves the old graph
// running untouched. On success the old graph is unloaded, the new one
// swapped in and initialized. An init failure (bad cron expression,
// unknown event class) unloads the new graph and leaves the engine with
// no graph loaded; the error reports the offending node.
//
// Chains started against the old graph keep executing against it.
func (e *Engine) Load(ctx context.Context, wc *schema.WorkflowContext) (*schema.WorkflowContext, error) {
	result := e.validator.ValidateContext(wc, e.registry.Has)
	for _, w := range result.Warnings {
		e.logger.Warn("context validation", slog.String("path", w.Path), slog.String("message", w.Message))
	}
	if err := result.ToError(); err != nil {
		return nil, err
	}

	g, err := e.loader.Load(ctx, wc)
	if err != nil {
		return nil, err
	}

	e.loadMu.Lock()
	defer e.loadMu.Unlock()

	e.mu.Lock()
	old := e.graph
	e.graph = g
	e.mu.Unlock()

	if old != nil {
		old.Unload(ctx, e.logger)
	}

	rt := &workflow.Runtime{Graph: g, Bus: e.bus, Sched: e.sched, Runner: e.runner}
	if err := g.Init(ctx, rt); err != nil {
		g.Unload(ctx, e.logger)
		e.mu.Lock()
		e.graph = nil
		e.mu.Unlock()
		return nil, err
	}

	stored := g.Context()
	if e.store != nil {
		if raw, encErr := stored.Encode(); encErr == nil {
			if _, saveErr := e.store.SaveContext(ctx, raw); saveErr != nil {
				e.logger.Error("persist context failed", slog.String("error", saveErr.Error()))
			}
		}
	}

	logging.LogWith(ctx, e.logger).Info("graph loaded",
		slog.Int("nodes", g.Len()),
		slog.Int("schedules", e.sched.Active()),
	)
	return stored, nil
}

// Fire delivers a host event to the bus.
func (e *Engine) Fire(ctx context.Context, kind events.Kind, payload any, before bool) {
	e.bus.Fire(ctx, kind, payload, before)
}

// Subscribe opens a filtered live trace stream.
func (e *Engine) Subscribe(ctx context.Context, filter streaming.Filter) (<-chan streaming.TraceEvent, func(), error) {
	return e.hub.Subscribe(ctx, filter)
}

// ScheduleAtFixedRate exposes the shared scheduler to the embedding
// host.
func (e *Engine) ScheduleAtFixedRate(delay, interval time.Duration, task scheduler.Task) func() {
	return e.sched.FixedRate(delay, interval, task)
}

// ScheduleWithFixedDelay exposes end-to-start repetition.
func (e *Engine) ScheduleWithFixedDelay(delay, interval time.Duration, task scheduler.Task) func() {
	return e.sched.FixedDelay(delay, interval, task)
}

// ScheduleOnce runs a task a single time after the delay.
func (e *Engine) ScheduleOnce(delay time.Duration, task scheduler.Task) func() {
	return e.sched.Once(delay, task)
}

// PoolMetrics returns the trace persistence pool counters.
func (e *Engine) PoolMetrics() PoolMetrics {
	return e.pool.Metrics()
}

// Shutdown stops schedules, unloads the graph, and drains the trace
// pool. The store is owned by the caller and is not closed here.
func (e *Engine) Shutdown(ctx context.Context) {
	e.sched.Stop()

	e.loadMu.Lock()
	defer e.loadMu.Unlock()

	e.mu.Lock()
	g := e.graph
	e.graph = nil
	e.mu.Unlock()
	if g != nil {
		g.Unload(ctx, e.logger)
	}

	e.bus.Clear()
	e.pool.Shutdown()
	e.logger.Info("engine stopped")
}

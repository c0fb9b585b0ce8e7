// Package engine exposes the public entry point consumed by CLI, API and
// cron callers: submit-and-run, batch modes, session summaries, system
// status, memory queries and trace diagrams. All calls are synchronous; the
// caller awaits completion.
package engine

import (
	"context"
	"fmt"

	"github.com/clerkmesh/clerkmesh/core"
	"github.com/clerkmesh/clerkmesh/dispatcher"
	"github.com/clerkmesh/clerkmesh/logging"
	"github.com/clerkmesh/clerkmesh/memory"
	"github.com/clerkmesh/clerkmesh/metrics"
	"github.com/clerkmesh/clerkmesh/session"
	"github.com/clerkmesh/clerkmesh/trace"
)

// Options holds dependency + configuration overrides passed to New.
type Options struct {
	SessionStore core.SessionStore
	MemoryStore  core.MemoryStore
	Tracer       core.Tracer
	Metrics      core.Metrics
	Logger       logging.Logger
	// SnapshotMemories caps the audit memory snapshot per handler run.
	SnapshotMemories int
}

// HandlerInfo describes one registered handler in system status.
type HandlerInfo struct {
	Name     string        `json:"name"`
	Category core.Category `json:"category"`
}

// SystemStatus is the read-only status surface for operators.
type SystemStatus struct {
	RegisteredHandlers []HandlerInfo          `json:"registered_handlers"`
	MemoryStats        core.MemoryStats       `json:"memory_stats"`
	Metrics            core.MetricsSnapshot   `json:"metrics"`
	Sessions           []*core.SessionSummary `json:"sessions"`
}

// Engine wires the dispatcher and stores together behind the public API.
type Engine struct {
	dispatcher *dispatcher.Dispatcher
	sessions   core.SessionStore
	memory     core.MemoryStore
	tracer     core.Tracer
	metrics    core.Metrics
	logger     logging.Logger
}

// New constructs an Engine with in-memory defaults, registering the given
// handlers. Registration failures (duplicate category or name) are returned
// immediately.
func New(handlers []core.Handler, optFns ...func(o *Options)) (*Engine, error) {
	opts := Options{
		SessionStore: session.NewInMemoryStore(),
		MemoryStore:  memory.NewInMemoryStore(),
		Tracer:       trace.NewTracer(),
		Metrics:      metrics.NewCollector(),
		Logger:       logging.NoOpLogger{},
	}
	for _, fn := range optFns {
		fn(&opts)
	}

	d := dispatcher.New(
		dispatcher.NewRegistry(),
		opts.SessionStore,
		opts.MemoryStore,
		opts.Tracer,
		opts.Metrics,
		func(o *dispatcher.Options) {
			o.Logger = opts.Logger
			o.SnapshotMemories = opts.SnapshotMemories
		},
	)
	for _, h := range handlers {
		if err := d.Register(h); err != nil {
			return nil, fmt.Errorf("register handler %s: %w", h.Name(), err)
		}
	}

	return &Engine{
		dispatcher: d,
		sessions:   opts.SessionStore,
		memory:     opts.MemoryStore,
		tracer:     opts.Tracer,
		metrics:    opts.Metrics,
		logger:     opts.Logger,
	}, nil
}

// CreateSession starts a fresh session and returns its id.
func (e *Engine) CreateSession() string { return e.sessions.Create() }

// EndSession seals a session with its final checkpoint.
func (e *Engine) EndSession(sessionID string) error { return e.sessions.End(sessionID) }

// DeleteSession removes a session entirely.
func (e *Engine) DeleteSession(sessionID string) error { return e.sessions.Delete(sessionID) }

// SubmitAndRun executes one work item to completion (or failure, or an
// awaiting_input pause) against the given session.
func (e *Engine) SubmitAndRun(ctx context.Context, item *core.WorkItem, sessionID string) (*core.Result, error) {
	return e.dispatcher.ExecuteOne(ctx, item, sessionID)
}

// Resume re-runs a previously submitted item, typically after ProvideInput
// unblocked an awaiting_input workflow.
func (e *Engine) Resume(ctx context.Context, sessionID, itemID string) (*core.Result, error) {
	item, err := e.sessions.GetWorkItem(sessionID, itemID)
	if err != nil {
		return nil, err
	}
	return e.dispatcher.ExecuteOne(ctx, item, sessionID)
}

// ProvideInput answers an input_required query for a paused work item. The
// answers are routed to the owning handler's inbox through the regular relay
// path and consumed on the next Resume of the item.
func (e *Engine) ProvideInput(sessionID, itemID string, fields map[string]any) error {
	item, err := e.sessions.GetWorkItem(sessionID, itemID)
	if err != nil {
		return err
	}
	h, err := e.dispatcher.Route(item)
	if err != nil {
		return err
	}
	msg := core.NewMessage(core.MessageInputProvided, "caller", h.Name(), map[string]any{
		"fields": fields,
	}).WithCorrelation(itemID)
	if err := e.sessions.AddMessage(sessionID, msg); err != nil {
		return err
	}
	h.Deliver(msg)
	return nil
}

// RunConcurrentBatch builds one work item per category and runs them
// concurrently. The per-category outcome map always covers every requested
// category; the call itself never fails.
func (e *Engine) RunConcurrentBatch(ctx context.Context, categories []core.Category, sessionID string) map[core.Category]dispatcher.Outcome {
	items := buildItems(categories)
	byItem := e.dispatcher.ExecuteBatchConcurrent(ctx, items, sessionID)
	out := make(map[core.Category]dispatcher.Outcome, len(items))
	for _, item := range items {
		out[item.Category] = byItem[item.ID]
	}
	return out
}

// RunSequentialBatch builds one work item per category and runs them in
// order, each seeing the side effects of its predecessors.
func (e *Engine) RunSequentialBatch(ctx context.Context, categories []core.Category, sessionID string) []dispatcher.Outcome {
	return e.dispatcher.ExecuteBatchSequential(ctx, buildItems(categories), sessionID)
}

func buildItems(categories []core.Category) []*core.WorkItem {
	items := make([]*core.WorkItem, len(categories))
	for i, c := range categories {
		items[i] = core.NewWorkItem(c, 1, nil)
	}
	return items
}

// GetSession returns a deep copy of the full session for audit: handler
// states (whose metadata carries span and trace ids), work items, message log
// and checkpoints.
func (e *Engine) GetSession(sessionID string) (*core.Session, error) {
	return e.sessions.Get(sessionID)
}

// GetSessionSummary returns the pure-read digest of one session.
func (e *Engine) GetSessionSummary(sessionID string) (*core.SessionSummary, error) {
	return e.sessions.Summarize(sessionID)
}

// GetSystemStatus reports registered handlers, memory stats, metrics and
// session summaries. With a non-empty sessionID only that session is
// included; otherwise all live sessions are.
func (e *Engine) GetSystemStatus(sessionID string) (*SystemStatus, error) {
	status := &SystemStatus{
		MemoryStats: e.memory.Stats(),
		Metrics:     e.metrics.Snapshot(),
	}
	for _, h := range e.dispatcher.Registry().Handlers() {
		status.RegisteredHandlers = append(status.RegisteredHandlers, HandlerInfo{Name: h.Name(), Category: h.Category()})
	}

	ids := e.sessions.List()
	if sessionID != "" {
		ids = []string{sessionID}
	}
	for _, id := range ids {
		summary, err := e.sessions.Summarize(id)
		if err != nil {
			return nil, err
		}
		status.Sessions = append(status.Sessions, summary)
	}
	return status, nil
}

// QueryMemory ranks all memory records against the query text.
func (e *Engine) QueryMemory(text string, limit int) []*core.MemoryRecord {
	return e.memory.RetrieveByQuery(text, limit)
}

// GetTraceDiagram renders the textual span tree of one trace.
func (e *Engine) GetTraceDiagram(traceID string) string {
	return e.tracer.RenderDiagram(traceID)
}

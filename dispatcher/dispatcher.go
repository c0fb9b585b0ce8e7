// Package dispatcher routes work items to registered handlers, drives
// concurrent and sequential batch execution, and relays messages between
// handlers. It is the only place where cross-handler message delivery
// happens, so handlers never hold references to each other.
package dispatcher

import (
	"context"
	"errors"
	"sync"

	"github.com/clerkmesh/clerkmesh/core"
	"github.com/clerkmesh/clerkmesh/handler"
	"github.com/clerkmesh/clerkmesh/logging"
)

// Outcome is one item's result in a batch: either Result or Err is set.
// Batch calls as a whole never fail; each item's outcome is captured
// individually so one handler's fault cannot mask its siblings.
type Outcome struct {
	ItemID string
	Result *core.Result
	Err    error
}

// Options holds dependency overrides for New.
type Options struct {
	Logger           logging.Logger
	SnapshotMemories int
}

// Dispatcher owns the handler registry and drives execution: route, invoke
// through the observed-execution wrapper, apply the final work item status
// and relay pending messages.
type Dispatcher struct {
	registry *Registry
	sessions core.SessionStore
	memory   core.MemoryStore
	observed *handler.Observed
	logger   logging.Logger
	metrics  core.Metrics

	relayMu sync.Mutex
}

// New constructs a Dispatcher over an explicit registry and shared stores.
func New(
	registry *Registry,
	sessions core.SessionStore,
	memory core.MemoryStore,
	tracer core.Tracer,
	metrics core.Metrics,
	optFns ...func(o *Options),
) *Dispatcher {
	opts := Options{Logger: logging.NoOpLogger{}}
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.Logger == nil {
		opts.Logger = logging.NoOpLogger{}
	}
	return &Dispatcher{
		registry: registry,
		sessions: sessions,
		memory:   memory,
		observed: &handler.Observed{
			Sessions:         sessions,
			Memory:           memory,
			Tracer:           tracer,
			Metrics:          metrics,
			Logger:           opts.Logger,
			SnapshotMemories: opts.SnapshotMemories,
		},
		logger:  opts.Logger,
		metrics: metrics,
	}
}

// Register adds a handler to the registry and declares its relevant memory
// types with the memory store.
func (d *Dispatcher) Register(h core.Handler) error {
	if err := d.registry.Register(h); err != nil {
		return err
	}
	d.memory.SetRelevantTypes(h.Name(), h.RelevantMemoryTypes()...)
	return nil
}

// Registry returns the dispatcher's handler registry.
func (d *Dispatcher) Registry() *Registry { return d.registry }

// Route resolves the handler for an item. A missing registration is a
// RoutingError surfaced to the caller, never retried.
func (d *Dispatcher) Route(item *core.WorkItem) (core.Handler, error) {
	h, ok := d.registry.Lookup(item.Category)
	if !ok {
		return nil, &core.RoutingError{Category: item.Category}
	}
	return h, nil
}

// ExecuteOne routes and runs a single work item, then relays all pending
// messages. The session ends up holding the item's final status: completed,
// failed, or still in_progress for an awaiting_input outcome.
func (d *Dispatcher) ExecuteOne(ctx context.Context, item *core.WorkItem, sessionID string) (*core.Result, error) {
	result, err := d.executeItem(ctx, item, sessionID)
	d.RelayMessages(sessionID)
	return result, err
}

// executeItem runs the invocation without relaying, so batch modes control
// when relay happens.
func (d *Dispatcher) executeItem(ctx context.Context, item *core.WorkItem, sessionID string) (*core.Result, error) {
	h, err := d.Route(item)
	if err != nil {
		return nil, err
	}

	// First submission registers the item; a resumed awaiting_input item is
	// already tracked.
	if _, getErr := d.sessions.GetWorkItem(sessionID, item.ID); getErr != nil {
		if !errors.Is(getErr, core.ErrWorkItemNotFound) {
			return nil, getErr
		}
		if addErr := d.sessions.AddWorkItem(sessionID, item); addErr != nil {
			return nil, addErr
		}
	}
	if err := d.setStatus(sessionID, item.ID, core.StatusInProgress); err != nil {
		return nil, err
	}

	result, err := d.observed.Invoke(ctx, h, item, sessionID, "")
	if err != nil {
		if stErr := d.setStatus(sessionID, item.ID, core.StatusFailed); stErr != nil {
			d.logger.Warn("item %s not markable failed: %v", item.ID, stErr)
		}
		return nil, err
	}

	switch result.Outcome {
	case core.OutcomeCompleted:
		err = d.setStatus(sessionID, item.ID, core.StatusCompleted)
	case core.OutcomeFailed:
		err = d.setStatus(sessionID, item.ID, core.StatusFailed)
	case core.OutcomeAwaitingInput:
		// Deliberately non-terminal: the item stays in_progress until input
		// arrives and the item is resumed.
	}
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (d *Dispatcher) setStatus(sessionID, itemID string, status core.WorkItemStatus) error {
	return d.sessions.UpdateWorkItem(sessionID, itemID, core.WorkItemUpdate{Status: &status})
}

// ExecuteBatchConcurrent runs independent items' handler invocations
// concurrently with best-effort isolation: every item gets an Outcome and a
// failing sibling never blocks the rest. Messages are relayed once after all
// invocations settle. Outcomes are keyed by item id.
func (d *Dispatcher) ExecuteBatchConcurrent(ctx context.Context, items []*core.WorkItem, sessionID string) map[string]Outcome {
	outcomes := make([]Outcome, len(items))
	var wg sync.WaitGroup
	for i, item := range items {
		wg.Add(1)
		go func(i int, item *core.WorkItem) {
			defer wg.Done()
			result, err := d.executeItem(ctx, item, sessionID)
			outcomes[i] = Outcome{ItemID: item.ID, Result: result, Err: err}
		}(i, item)
	}
	wg.Wait()
	d.RelayMessages(sessionID)

	out := make(map[string]Outcome, len(outcomes))
	for _, o := range outcomes {
		out[o.ItemID] = o
	}
	return out
}

// ExecuteBatchSequential runs items one after another; each item observes the
// memory writes and message deliveries of all its predecessors because relay
// happens after every invocation.
func (d *Dispatcher) ExecuteBatchSequential(ctx context.Context, items []*core.WorkItem, sessionID string) []Outcome {
	outcomes := make([]Outcome, 0, len(items))
	for _, item := range items {
		result, err := d.executeItem(ctx, item, sessionID)
		d.RelayMessages(sessionID)
		outcomes = append(outcomes, Outcome{ItemID: item.ID, Result: result, Err: err})
	}
	return outcomes
}

// RelayMessages drains every handler's outbox and applies delivery: each
// message is appended to the session log exactly once, then either handled by
// the dispatcher's own table, delivered to its addressee's inbox, or dropped
// with a warning. It returns delivered and dropped counts.
func (d *Dispatcher) RelayMessages(sessionID string) (delivered, dropped int) {
	d.relayMu.Lock()
	defer d.relayMu.Unlock()

	for _, h := range d.registry.Handlers() {
		for _, msg := range h.DrainOutbox() {
			if err := d.sessions.AddMessage(sessionID, msg); err != nil {
				d.logger.Warn("message %s not logged: %v", msg.ID, err)
			}
			if msg.To == core.DispatcherAddress {
				if d.dispatch(sessionID, msg) {
					delivered++
				} else {
					dropped++
				}
				continue
			}
			target, ok := d.registry.Find(msg.To)
			if !ok {
				d.logger.Warn("message %s addressed to unknown handler %s dropped", msg.ID, msg.To)
				dropped++
				continue
			}
			target.Deliver(msg)
			delivered++
		}
	}
	d.metrics.Inc("dispatcher.messages.delivered", int64(delivered))
	d.metrics.Inc("dispatcher.messages.dropped", int64(dropped))
	if ml, ok := d.logger.(*logging.ClerkMeshLogger); ok {
		ml.LogRelay(delivered, dropped)
	}
	return delivered, dropped
}

// dispatch applies the fixed per-type table for messages addressed to the
// dispatcher itself. Unknown types are logged and dropped, not fatal.
func (d *Dispatcher) dispatch(sessionID string, msg core.Message) bool {
	switch msg.Type {
	case core.MessagePaymentRequired:
		// Forward the notice to the payment handler.
		if target, ok := d.registry.Lookup(core.CategoryPaymentMonitor); ok {
			target.Deliver(msg)
			return true
		}
		d.logger.Warn("payment notice %s dropped: no payment handler registered", msg.ID)
		return false
	case core.MessageTaskCompleted:
		if msg.CorrelationID == "" {
			d.logger.Warn("task_completed message %s has no work item correlation", msg.ID)
			return false
		}
		if err := d.setStatus(sessionID, msg.CorrelationID, core.StatusCompleted); err != nil {
			d.logger.Warn("task_completed for item %s not applied: %v", msg.CorrelationID, err)
		}
		return true
	case core.MessageInputProvided:
		// Forward answers to the workflow handler awaiting them.
		if target, ok := d.registry.Lookup(core.CategoryFormFill); ok {
			target.Deliver(msg)
			return true
		}
		d.logger.Warn("input_provided message %s dropped: no workflow handler registered", msg.ID)
		return false
	case core.MessageInputRequired:
		d.logger.Info("handler %s needs input: %v", msg.From, msg.Payload)
		d.metrics.Inc("dispatcher.input_required", 1)
		return true
	case core.MessageReminder:
		d.logger.Info("reminder from %s: %v", msg.From, msg.Payload)
		return true
	default:
		d.logger.Warn("unknown message type %s from %s dropped", msg.Type, msg.From)
		return false
	}
}

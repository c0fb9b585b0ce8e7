package handler

import (
	"context"
	"errors"
	"time"

	"github.com/clerkmesh/clerkmesh/core"
	"github.com/clerkmesh/clerkmesh/logging"
)

// DefaultSnapshotMemories caps the audit memory snapshot attached to a
// handler's running state.
const DefaultSnapshotMemories = 10

// Observed is the execution wrapper identical across all handlers. Every
// invocation runs inside a trace span, reports handler state transitions to
// the session store (with a capped snapshot of currently relevant memory for
// audit), and records duration and outcome metrics. The wrapper never
// swallows errors: a handler fault is recorded, then re-raised to the caller.
type Observed struct {
	Sessions core.SessionStore
	Memory   core.MemoryStore
	Tracer   core.Tracer
	Metrics  core.Metrics
	Logger   logging.Logger

	// SnapshotMemories overrides the audit snapshot cap (default 10).
	SnapshotMemories int
}

// Invoke executes one handler against one work item through the observation
// machinery. parentSpanID may be empty, rooting a fresh trace.
func (o *Observed) Invoke(ctx context.Context, h core.Handler, item *core.WorkItem, sessionID, parentSpanID string) (*core.Result, error) {
	logger := o.Logger
	if logger == nil {
		logger = logging.NoOpLogger{}
	}
	snapCap := o.SnapshotMemories
	if snapCap <= 0 {
		snapCap = DefaultSnapshotMemories
	}

	spanID := o.Tracer.StartSpan(h.Name()+":"+item.ID, h.Name(), item.ID, parentSpanID)
	traceID := ""
	if span, ok := o.Tracer.Span(spanID); ok {
		traceID = span.TraceID
	}
	observability := map[string]any{"span_id": spanID, "trace_id": traceID}
	start := time.Now()

	snapshot := make([]string, 0, snapCap)
	for _, rec := range o.Memory.CompactContextForHandler(h.Name(), snapCap) {
		snapshot = append(snapshot, rec.ID)
	}
	sessionGone := !o.Sessions.UpdateHandlerState(sessionID, core.HandlerState{
		Handler:        h.Name(),
		Status:         core.HandlerRunning,
		WorkItemID:     item.ID,
		MemorySnapshot: snapshot,
		Metadata:       observability,
	})
	if sessionGone {
		logger.Warn("session %s gone before %s ran item %s", sessionID, h.Name(), item.ID)
	}

	result, err := h.Execute(ctx, item, sessionID)
	dur := time.Since(start)

	if err != nil {
		var fault *core.HandlerFault
		if !errors.As(err, &fault) {
			err = &core.HandlerFault{Handler: h.Name(), Err: err}
		}
		o.Sessions.UpdateHandlerState(sessionID, core.HandlerState{
			Handler:    h.Name(),
			Status:     core.HandlerError,
			WorkItemID: item.ID,
			Error:      err.Error(),
			Metadata:   observability,
		})
		o.Tracer.EndSpan(spanID, core.SpanError, map[string]any{"error": err.Error()})
		o.Metrics.Inc("handler."+h.Name()+".failures", 1)
		o.Metrics.Observe("handler."+h.Name()+".duration", dur)
		if ml, ok := logger.(*logging.ClerkMeshLogger); ok {
			ml.LogHandlerRun(h.Name(), item.ID, dur, false, err)
		} else {
			logger.Error("handler %s failed on item %s: %v", h.Name(), item.ID, err)
		}
		return nil, err
	}

	status := core.HandlerIdle
	if result.Outcome == core.OutcomeAwaitingInput {
		status = core.HandlerWaiting
	}
	o.Sessions.UpdateHandlerState(sessionID, core.HandlerState{
		Handler:    h.Name(),
		Status:     status,
		WorkItemID: item.ID,
		Metadata:   observability,
	})
	o.Tracer.EndSpan(spanID, core.SpanCompleted, map[string]any{
		"outcome":  string(result.Outcome),
		"summary":  result.Summary,
		"duration": dur.String(),
	})
	o.Metrics.Inc("handler."+h.Name()+".runs", 1)
	o.Metrics.Observe("handler."+h.Name()+".duration", dur)
	if ml, ok := logger.(*logging.ClerkMeshLogger); ok {
		ml.LogHandlerRun(h.Name(), item.ID, dur, true, nil)
	} else {
		logger.Debug("handler %s finished item %s outcome=%s", h.Name(), item.ID, result.Outcome)
	}
	return result, nil
}

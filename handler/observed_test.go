package handler

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clerkmesh/clerkmesh/core"
	"github.com/clerkmesh/clerkmesh/internal/testutil"
	"github.com/clerkmesh/clerkmesh/memory"
	"github.com/clerkmesh/clerkmesh/metrics"
	"github.com/clerkmesh/clerkmesh/session"
	"github.com/clerkmesh/clerkmesh/trace"
)

// stubHandler lets tests script an Execute outcome behind the shared base.
// An optional fn observes the invocation mid-flight before the outcome is
// returned.
type stubHandler struct {
	BaseHandler
	result *core.Result
	err    error
	fn     func(ctx context.Context, item *core.WorkItem, sessionID string)
}

func (h *stubHandler) Execute(ctx context.Context, item *core.WorkItem, sessionID string) (*core.Result, error) {
	if h.fn != nil {
		h.fn(ctx, item, sessionID)
	}
	return h.result, h.err
}

func newObservedFixture(t *testing.T) (*Observed, *memory.InMemoryStore, *session.InMemoryStore, *trace.Tracer, *metrics.Collector, string) {
	t.Helper()
	mem := memory.NewInMemoryStore()
	sessions := session.NewInMemoryStore()
	tracer := trace.NewTracer()
	collector := metrics.NewCollector()
	obs := &Observed{Sessions: sessions, Memory: mem, Tracer: tracer, Metrics: collector}
	return obs, mem, sessions, tracer, collector, sessions.Create()
}

func TestObserved_SuccessPath(t *testing.T) {
	obs, mem, sessions, tracer, collector, sessionID := newObservedFixture(t)

	_, err := mem.Store(core.MemoryBilling, "internet bill", nil)
	require.NoError(t, err)
	mem.SetRelevantTypes("stub", core.MemoryBilling)

	h := &stubHandler{
		BaseHandler: NewBaseHandler("stub", core.CategoryEmailScan, []core.MemoryType{core.MemoryBilling}, Deps{Memory: mem}),
		result:      &core.Result{Outcome: core.OutcomeCompleted, Summary: "done"},
	}
	item := testutil.NewWorkItemBuilder(core.CategoryEmailScan).Build()

	res, err := obs.Invoke(context.Background(), h, item, sessionID, "")
	require.NoError(t, err)
	assert.Equal(t, core.OutcomeCompleted, res.Outcome)

	// Handler state settled to idle with the audit memory snapshot recorded.
	sess, _ := sessions.Get(sessionID)
	state := sess.HandlerStates["stub"]
	assert.Equal(t, core.HandlerIdle, state.Status)
	assert.Equal(t, item.ID, state.WorkItemID)

	// The span ended completed and its ids are discoverable via state metadata.
	spanID, _ := state.Metadata["span_id"].(string)
	require.NotEmpty(t, spanID)
	span, ok := tracer.Span(spanID)
	require.True(t, ok)
	assert.Equal(t, core.SpanCompleted, span.Status)
	assert.Equal(t, "stub:"+item.ID, span.Name)
	assert.Equal(t, span.TraceID, state.Metadata["trace_id"])

	snap := collector.Snapshot()
	assert.Equal(t, int64(1), snap.Counters["handler.stub.runs"])
	assert.Zero(t, snap.Counters["handler.stub.failures"])
	assert.Equal(t, 1, snap.Timings["handler.stub.duration"].Count)
}

func TestObserved_MemorySnapshotIsCapped(t *testing.T) {
	obs, mem, sessions, _, _, sessionID := newObservedFixture(t)
	obs.SnapshotMemories = 3

	for i := 0; i < 6; i++ {
		_, err := mem.Store(core.MemoryBilling, "bill", nil)
		require.NoError(t, err)
	}

	// Observe the running state from inside the invocation, before the final
	// idle transition overwrites it.
	var running core.HandlerState
	h := &stubHandler{
		BaseHandler: NewBaseHandler("stub", core.CategoryEmailScan, nil, Deps{Memory: mem}),
		result:      &core.Result{Outcome: core.OutcomeCompleted},
	}
	h.fn = func(_ context.Context, _ *core.WorkItem, sid string) {
		sess, err := sessions.Get(sid)
		require.NoError(t, err)
		running = sess.HandlerStates["stub"]
	}
	_, err := obs.Invoke(context.Background(), h, testutil.NewWorkItemBuilder(core.CategoryEmailScan).Build(), sessionID, "")
	require.NoError(t, err)

	assert.Equal(t, core.HandlerRunning, running.Status)
	assert.Len(t, running.MemorySnapshot, 3)
}

func TestObserved_AwaitingInputLeavesHandlerWaiting(t *testing.T) {
	obs, mem, sessions, _, _, sessionID := newObservedFixture(t)

	h := &stubHandler{
		BaseHandler: NewBaseHandler("stub", core.CategoryFormFill, nil, Deps{Memory: mem}),
		result:      &core.Result{Outcome: core.OutcomeAwaitingInput, Summary: "needs input"},
	}
	res, err := obs.Invoke(context.Background(), h, testutil.NewWorkItemBuilder(core.CategoryFormFill).Build(), sessionID, "")
	require.NoError(t, err)
	assert.Equal(t, core.OutcomeAwaitingInput, res.Outcome)

	sess, _ := sessions.Get(sessionID)
	assert.Equal(t, core.HandlerWaiting, sess.HandlerStates["stub"].Status)
}

func TestObserved_FaultIsRecordedAndReraised(t *testing.T) {
	obs, mem, sessions, tracer, collector, sessionID := newObservedFixture(t)

	boom := errors.New("boom")
	h := &stubHandler{
		BaseHandler: NewBaseHandler("stub", core.CategoryEmailScan, nil, Deps{Memory: mem}),
		err:         boom,
	}
	item := testutil.NewWorkItemBuilder(core.CategoryEmailScan).Build()

	_, err := obs.Invoke(context.Background(), h, item, sessionID, "")
	require.Error(t, err)

	// The raw error is wrapped in a handler fault and still unwraps to it.
	var fault *core.HandlerFault
	require.True(t, errors.As(err, &fault))
	assert.Equal(t, "stub", fault.Handler)
	assert.ErrorIs(t, err, boom)

	// State, span and metrics all reflect the failure.
	sess, _ := sessions.Get(sessionID)
	state := sess.HandlerStates["stub"]
	assert.Equal(t, core.HandlerError, state.Status)
	assert.Contains(t, state.Error, "boom")

	spanID, _ := state.Metadata["span_id"].(string)
	span, ok := tracer.Span(spanID)
	require.True(t, ok)
	assert.Equal(t, core.SpanError, span.Status)

	snap := collector.Snapshot()
	assert.Equal(t, int64(1), snap.Counters["handler.stub.failures"])
	assert.Zero(t, snap.Counters["handler.stub.runs"])
}

func TestObserved_ExistingFaultIsNotDoubleWrapped(t *testing.T) {
	obs, mem, _, _, _, sessionID := newObservedFixture(t)

	orig := &core.HandlerFault{Handler: "stub", Err: errors.New("inner")}
	h := &stubHandler{
		BaseHandler: NewBaseHandler("stub", core.CategoryEmailScan, nil, Deps{Memory: mem}),
		err:         orig,
	}
	_, err := obs.Invoke(context.Background(), h, testutil.NewWorkItemBuilder(core.CategoryEmailScan).Build(), sessionID, "")
	require.Error(t, err)
	assert.Same(t, orig, err)
}

func TestObserved_MissingSessionDoesNotBlockExecution(t *testing.T) {
	obs, mem, _, _, _, _ := newObservedFixture(t)

	h := &stubHandler{
		BaseHandler: NewBaseHandler("stub", core.CategoryEmailScan, nil, Deps{Memory: mem}),
		result:      &core.Result{Outcome: core.OutcomeCompleted},
	}
	res, err := obs.Invoke(context.Background(), h, testutil.NewWorkItemBuilder(core.CategoryEmailScan).Build(), "gone", "")
	require.NoError(t, err)
	assert.Equal(t, core.OutcomeCompleted, res.Outcome)
}

package handler

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clerkmesh/clerkmesh/core"
	"github.com/clerkmesh/clerkmesh/internal/testutil"
	"github.com/clerkmesh/clerkmesh/memory"
	"github.com/clerkmesh/clerkmesh/tool/sim"
)

func TestWorkflowHandler_AwaitingInputRoundTrip(t *testing.T) {
	mem := memory.NewInMemoryStore()
	mem.SetRelevantTypes("form_workflow", core.MemoryPreference, core.MemoryContact, core.MemoryHistory)
	h := NewWorkflowHandler(sim.NewDocumentExtractor(), sim.NewFormFiller(), Deps{Memory: mem})

	item := testutil.NewWorkItemBuilder(core.CategoryFormFill).Meta("document", "insurance_renewal.pdf").Build()

	// First pass: holder_name and holder_email are unresolvable, so the
	// workflow pauses and asks for input.
	res, err := h.Execute(context.Background(), item, "sess-1")
	require.NoError(t, err)
	assert.Equal(t, core.OutcomeAwaitingInput, res.Outcome)
	assert.Equal(t, []string{"holder_email", "holder_name"}, res.Data["missing"])

	out := h.DrainOutbox()
	require.Len(t, out, 1)
	assert.Equal(t, core.MessageInputRequired, out[0].Type)
	assert.Equal(t, item.ID, out[0].CorrelationID)
	assert.Equal(t, []string{"holder_email", "holder_name"}, out[0].Payload["missing"])

	// Input arrives as a correlated inbox message; the rerun completes.
	h.Deliver(testutil.NewMessageBuilder(core.MessageInputProvided).
		From("caller").To("form_workflow").Correlated(item.ID).
		Payload("fields", map[string]any{"holder_name": "Alex Doe", "holder_email": "alex@example.com"}).
		Build())

	res, err = h.Execute(context.Background(), item, "sess-1")
	require.NoError(t, err)
	assert.Equal(t, core.OutcomeCompleted, res.Outcome)
	assert.Equal(t, "FORM-00001", res.Data["receipt"])

	out = h.DrainOutbox()
	require.Len(t, out, 1)
	assert.Equal(t, core.MessageTaskCompleted, out[0].Type)
	assert.Equal(t, item.ID, out[0].CorrelationID)

	// The submission is remembered as history.
	recs := mem.RetrieveByType(core.MemoryHistory, 0)
	require.Len(t, recs, 1)
	assert.Contains(t, recs[0].Content, "INS-RENEW-2026")
}

func TestWorkflowHandler_ResolvesFieldsFromMemory(t *testing.T) {
	mem := memory.NewInMemoryStore()
	mem.SetRelevantTypes("form_workflow", core.MemoryPreference, core.MemoryContact, core.MemoryHistory)

	// Contact memory already knows both holder fields.
	_, err := mem.Store(core.MemoryContact, "Account holder Alex Doe, alex@example.com", map[string]any{
		"holder_name":  "Alex Doe",
		"holder_email": "alex@example.com",
	})
	require.NoError(t, err)

	h := NewWorkflowHandler(sim.NewDocumentExtractor(), sim.NewFormFiller(), Deps{Memory: mem})
	item := testutil.NewWorkItemBuilder(core.CategoryFormFill).Meta("document", "insurance_renewal.pdf").Build()

	res, err := h.Execute(context.Background(), item, "sess-1")
	require.NoError(t, err)
	assert.Equal(t, core.OutcomeCompleted, res.Outcome)
	assert.NotEmpty(t, res.Data["receipt"])
}

func TestWorkflowHandler_MissingDocumentFails(t *testing.T) {
	h := NewWorkflowHandler(sim.NewDocumentExtractor(), sim.NewFormFiller(), Deps{Memory: memory.NewInMemoryStore()})

	res, err := h.Execute(context.Background(), testutil.NewWorkItemBuilder(core.CategoryFormFill).Build(), "sess-1")
	require.NoError(t, err)
	assert.Equal(t, core.OutcomeFailed, res.Outcome)

	res, err = h.Execute(context.Background(),
		testutil.NewWorkItemBuilder(core.CategoryFormFill).Meta("document", "unknown.pdf").Build(), "sess-1")
	require.NoError(t, err)
	assert.Equal(t, core.OutcomeFailed, res.Outcome)
	assert.Contains(t, res.Summary, "extraction failed")
}

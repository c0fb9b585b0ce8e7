package handler

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clerkmesh/clerkmesh/core"
	"github.com/clerkmesh/clerkmesh/internal/testutil"
	"github.com/clerkmesh/clerkmesh/memory"
)

func TestBaseHandler_OutboxDrainsOnce(t *testing.T) {
	base := NewBaseHandler("bill_scanner", core.CategoryEmailScan, []core.MemoryType{core.MemoryBilling}, Deps{
		Memory: memory.NewInMemoryStore(),
	})

	base.Send(core.MessageReminder, core.DispatcherAddress, map[string]any{"n": 1})
	base.SendCorrelated(core.MessagePaymentRequired, core.DispatcherAddress, "item-1", nil)

	out := base.DrainOutbox()
	require.Len(t, out, 2)
	assert.Equal(t, "bill_scanner", out[0].From)
	assert.Equal(t, core.MessageReminder, out[0].Type)
	assert.Equal(t, "item-1", out[1].CorrelationID)

	// A second drain yields nothing: each message leaves the outbox once.
	assert.Empty(t, base.DrainOutbox())
}

func TestBaseHandler_ConsumeInboxFilters(t *testing.T) {
	base := NewBaseHandler("form_workflow", core.CategoryFormFill, nil, Deps{})

	base.Deliver(testutil.NewMessageBuilder(core.MessageInputProvided).Correlated("item-1").Build())
	base.Deliver(testutil.NewMessageBuilder(core.MessageInputProvided).Correlated("item-2").Build())
	base.Deliver(testutil.NewMessageBuilder(core.MessageReminder).Build())

	// Type and correlation both filter; non-matching messages stay queued.
	taken := base.ConsumeInbox(core.MessageInputProvided, "item-1")
	require.Len(t, taken, 1)
	assert.Equal(t, "item-1", taken[0].CorrelationID)

	// Empty correlation matches any remaining message of the type.
	taken = base.ConsumeInbox(core.MessageInputProvided, "")
	require.Len(t, taken, 1)
	assert.Equal(t, "item-2", taken[0].CorrelationID)

	// The reminder is still there, consumed exactly once.
	require.Len(t, base.ConsumeInbox(core.MessageReminder, ""), 1)
	assert.Empty(t, base.ConsumeInbox(core.MessageReminder, ""))
}

func TestBaseHandler_Identity(t *testing.T) {
	base := NewBaseHandler("payment_monitor", core.CategoryPaymentMonitor, []core.MemoryType{core.MemoryBilling, core.MemoryHistory}, Deps{})

	assert.Equal(t, "payment_monitor", base.Name())
	assert.Equal(t, core.CategoryPaymentMonitor, base.Category())

	// RelevantMemoryTypes hands out a copy.
	types := base.RelevantMemoryTypes()
	types[0] = core.MemorySchedule
	assert.Equal(t, core.MemoryBilling, base.RelevantMemoryTypes()[0])
}

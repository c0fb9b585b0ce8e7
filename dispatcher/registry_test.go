package dispatcher

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clerkmesh/clerkmesh/core"
	"github.com/clerkmesh/clerkmesh/handler"
	"github.com/clerkmesh/clerkmesh/memory"
	"github.com/clerkmesh/clerkmesh/tool/sim"
)

func TestRegistry_RegisterAndLookup(t *testing.T) {
	reg := NewRegistry()
	mem := memory.NewInMemoryStore()

	scanner := handler.NewScanHandler(sim.NewEmailScanner(), handler.Deps{Memory: mem})
	require.NoError(t, reg.Register(scanner))

	h, ok := reg.Lookup(core.CategoryEmailScan)
	require.True(t, ok)
	assert.Equal(t, "bill_scanner", h.Name())

	h, ok = reg.Find("bill_scanner")
	require.True(t, ok)
	assert.Equal(t, core.CategoryEmailScan, h.Category())

	_, ok = reg.Lookup(core.CategoryFormFill)
	assert.False(t, ok)
	_, ok = reg.Find("missing")
	assert.False(t, ok)
}

func TestRegistry_RejectsDuplicates(t *testing.T) {
	reg := NewRegistry()
	mem := memory.NewInMemoryStore()

	require.NoError(t, reg.Register(handler.NewScanHandler(sim.NewEmailScanner(), handler.Deps{Memory: mem})))

	// Same category, same name: both rejected.
	err := reg.Register(handler.NewScanHandler(sim.NewEmailScanner(), handler.Deps{Memory: mem}))
	assert.Error(t, err)
	assert.Len(t, reg.Handlers(), 1)
}

func TestRegistry_HandlersKeepsRegistrationOrder(t *testing.T) {
	reg := NewRegistry()
	mem := memory.NewInMemoryStore()

	require.NoError(t, reg.Register(handler.NewScanHandler(sim.NewEmailScanner(), handler.Deps{Memory: mem})))
	require.NoError(t, reg.Register(handler.NewAggregatorHandler(handler.Deps{Memory: mem})))
	require.NoError(t, reg.Register(handler.NewMonitorHandler(sim.NewPaymentGateway(), 1, 0, handler.Deps{Memory: mem})))

	names := []string{}
	for _, h := range reg.Handlers() {
		names = append(names, h.Name())
	}
	assert.Equal(t, []string{"bill_scanner", "schedule_aggregator", "payment_monitor"}, names)
}

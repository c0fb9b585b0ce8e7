package handler

import (
	"context"
	"fmt"
	"time"

	"github.com/clerkmesh/clerkmesh/core"
	"github.com/clerkmesh/clerkmesh/tool"
)

// MonitorHandler is the periodic-scan loop variant: each cycle it settles the
// payment_required messages relayed into its inbox through the payment
// gateway, then sweeps billing memory for unpaid bills and emits reminders.
// Declined payments are recovered into the result, never raised.
type MonitorHandler struct {
	BaseHandler
	gateway  tool.Tool
	cycles   int
	interval time.Duration
}

// NewMonitorHandler constructs the payment monitor for the payment_monitor
// category. cycles <= 0 defaults to a single sweep; interval is the pause
// between cycles and is skipped when zero.
func NewMonitorHandler(gateway tool.Tool, cycles int, interval time.Duration, deps Deps) *MonitorHandler {
	if cycles <= 0 {
		cycles = 1
	}
	return &MonitorHandler{
		BaseHandler: NewBaseHandler(
			"payment_monitor",
			core.CategoryPaymentMonitor,
			[]core.MemoryType{core.MemoryBilling, core.MemoryPreference, core.MemoryHistory},
			deps,
		),
		gateway:  gateway,
		cycles:   cycles,
		interval: interval,
	}
}

// Execute runs the monitor loop. Each cycle's internal steps stay ordered;
// the pause between cycles is a deliberate suspension point honoring ctx.
func (h *MonitorHandler) Execute(ctx context.Context, item *core.WorkItem, sessionID string) (*core.Result, error) {
	var paid, declined, reminders int
	for cycle := 0; cycle < h.cycles; cycle++ {
		if cycle > 0 && h.interval > 0 {
			t := time.NewTimer(h.interval)
			select {
			case <-ctx.Done():
				t.Stop()
				return nil, ctx.Err()
			case <-t.C:
			}
		}

		for _, msg := range h.ConsumeInbox(core.MessagePaymentRequired, "") {
			ok, err := h.settle(ctx, msg)
			if err != nil {
				return nil, err
			}
			if ok {
				paid++
			} else {
				declined++
			}
		}
		reminders += h.remindUnpaid()
	}

	return &core.Result{
		Outcome: core.OutcomeCompleted,
		Summary: fmt.Sprintf("paid %d, declined %d, reminded %d over %d cycles", paid, declined, reminders, h.cycles),
		Data: map[string]any{
			"paid":      paid,
			"declined":  declined,
			"reminders": reminders,
			"cycles":    h.cycles,
		},
	}, nil
}

// settle pays one announced bill and marks its billing record paid.
func (h *MonitorHandler) settle(ctx context.Context, msg core.Message) (bool, error) {
	vendor, _ := msg.Payload["vendor"].(string)
	amount, _ := msg.Payload["amount"].(float64)
	memID, _ := msg.Payload["memory_id"].(string)

	res, err := h.gateway.Execute(ctx, map[string]any{"vendor": vendor, "amount": amount})
	if err != nil {
		return false, fmt.Errorf("payment gateway: %w", err)
	}
	if !res.Success {
		h.Logger().Warn("payment for %s declined: %s", vendor, res.Error)
		h.Send(core.MessageReminder, core.DispatcherAddress, map[string]any{
			"vendor": vendor,
			"amount": amount,
			"reason": res.Error,
		})
		return false, nil
	}
	confirmation, _ := res.Data["confirmation"].(string)
	if memID != "" {
		if err := h.Memory().Update(memID, core.MemoryUpdate{
			Metadata: map[string]any{"paid": true, "confirmation": confirmation},
		}); err != nil {
			h.Logger().Warn("billing record %s not updatable after payment: %v", memID, err)
		}
	}
	if _, err := h.Memory().Store(core.MemoryHistory,
		fmt.Sprintf("Paid %.2f to %s, confirmation %s", amount, vendor, confirmation),
		map[string]any{"vendor": vendor, "amount": amount, "confirmation": confirmation},
	); err != nil {
		return false, fmt.Errorf("store payment history: %w", err)
	}
	return true, nil
}

// remindUnpaid emits one reminder per unpaid billing record seen this cycle.
func (h *MonitorHandler) remindUnpaid() int {
	count := 0
	for _, rec := range h.Memory().RetrieveByType(core.MemoryBilling, 0) {
		if paid, _ := rec.Metadata["paid"].(bool); paid {
			continue
		}
		if reminded, _ := rec.Metadata["reminded"].(bool); reminded {
			continue
		}
		h.Send(core.MessageReminder, core.DispatcherAddress, map[string]any{
			"memory_id": rec.ID,
			"vendor":    rec.Metadata["vendor"],
			"due_date":  rec.Metadata["due_date"],
		})
		if err := h.Memory().Update(rec.ID, core.MemoryUpdate{Metadata: map[string]any{"reminded": true}}); err != nil {
			h.Logger().Warn("billing record %s not updatable after reminder: %v", rec.ID, err)
		}
		count++
	}
	return count
}

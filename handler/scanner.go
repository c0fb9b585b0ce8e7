package handler

import (
	"context"
	"fmt"

	"github.com/clerkmesh/clerkmesh/core"
	"github.com/clerkmesh/clerkmesh/tool"
)

// ScanHandler is the scan-and-detect variant: it sweeps the mailbox through
// the scanner tool, files every detected bill as a billing memory record and
// announces it to the dispatcher as a payment_required message.
type ScanHandler struct {
	BaseHandler
	scanner tool.Tool
}

// NewScanHandler constructs the bill scanner for the email_scan category.
func NewScanHandler(scanner tool.Tool, deps Deps) *ScanHandler {
	return &ScanHandler{
		BaseHandler: NewBaseHandler(
			"bill_scanner",
			core.CategoryEmailScan,
			[]core.MemoryType{core.MemoryBilling, core.MemoryHistory},
			deps,
		),
		scanner: scanner,
	}
}

// Execute scans the inbox for bills. A scanner tool failure is recovered into
// a failed result rather than raised.
func (h *ScanHandler) Execute(ctx context.Context, item *core.WorkItem, sessionID string) (*core.Result, error) {
	res, err := h.scanner.Execute(ctx, map[string]any{"bills_only": true})
	if err != nil {
		return nil, fmt.Errorf("scanner tool: %w", err)
	}
	if !res.Success {
		return &core.Result{Outcome: core.OutcomeFailed, Summary: "inbox scan failed: " + res.Error}, nil
	}

	emails, _ := res.Data["emails"].([]map[string]any)
	var stored []string
	for _, email := range emails {
		vendor, _ := email["vendor"].(string)
		amount, _ := email["amount"].(float64)
		dueDate, _ := email["due_date"].(string)
		if vendor == "" || amount <= 0 {
			h.Logger().Warn("skipping bill-like mail without vendor/amount: %v", email["subject"])
			continue
		}
		content := fmt.Sprintf("Bill from %s: %.2f due %s", vendor, amount, dueDate)
		memID, err := h.Memory().Store(core.MemoryBilling, content, map[string]any{
			"vendor":   vendor,
			"amount":   amount,
			"due_date": dueDate,
			"paid":     false,
		})
		if err != nil {
			return nil, fmt.Errorf("store bill memory: %w", err)
		}
		stored = append(stored, memID)
		h.SendCorrelated(core.MessagePaymentRequired, core.DispatcherAddress, item.ID, map[string]any{
			"memory_id": memID,
			"vendor":    vendor,
			"amount":    amount,
			"due_date":  dueDate,
		})
	}

	return &core.Result{
		Outcome: core.OutcomeCompleted,
		Summary: fmt.Sprintf("detected %d bills", len(stored)),
		Data: map[string]any{
			"bills_found": len(stored),
			"memory_ids":  stored,
		},
	}, nil
}

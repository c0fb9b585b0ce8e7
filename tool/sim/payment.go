package sim

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/clerkmesh/clerkmesh/tool"
)

// PaymentGateway simulates executing payments. Vendors listed in Decline
// resolve to failed results so callers can exercise recovery paths.
type PaymentGateway struct {
	Decline map[string]bool
	Latency time.Duration

	mu        sync.Mutex
	confirmed int
}

// NewPaymentGateway returns a gateway that approves every vendor.
func NewPaymentGateway() *PaymentGateway {
	return &PaymentGateway{Decline: map[string]bool{}}
}

// Name returns the tool identifier.
func (g *PaymentGateway) Name() string { return "payment_gateway" }

// Description returns the tool description.
func (g *PaymentGateway) Description() string {
	return "Execute a payment of an amount to a vendor"
}

// Execute pays params["amount"] to params["vendor"].
func (g *PaymentGateway) Execute(ctx context.Context, params map[string]any) (*tool.Result, error) {
	if err := latency(ctx, g.Latency); err != nil {
		return nil, tool.NewToolError(g.Name(), err.Error(), "CANCELLED")
	}
	vendor, _ := params["vendor"].(string)
	amount, _ := params["amount"].(float64)
	if vendor == "" {
		return tool.Fail("missing required parameter %q", "vendor"), nil
	}
	if amount <= 0 {
		return tool.Fail("invalid amount %v for vendor %s", params["amount"], vendor), nil
	}
	if g.Decline[vendor] {
		return tool.Fail("payment to %s declined", vendor), nil
	}

	g.mu.Lock()
	g.confirmed++
	confirmation := fmt.Sprintf("PAY-%05d", g.confirmed)
	g.mu.Unlock()

	return tool.Ok(map[string]any{
		"confirmation": confirmation,
		"vendor":       vendor,
		"amount":       amount,
	}), nil
}

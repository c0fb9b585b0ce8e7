// Package sim provides deterministic simulated collaborators honoring the
// tool contract: an email scanner, a document extractor, a payment gateway
// and a form filler. They stand in for real integrations in tests, examples
// and the CLI; the core depends only on the tool contract, never on their
// internals.
package sim

import (
	"context"
	"time"
)

// latency pauses for d to simulate network/disk wait, honoring cancellation.
// A tool must eventually resolve, so d is always bounded by the caller.
func latency(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

package core

import (
	"maps"
	"time"
)

// Category identifies the kind of work a WorkItem requests. The set is closed:
// the dispatcher routes by exact category match and registration of a handler
// per category is explicit.
type Category string

const (
	// CategoryEmailScan requests a scan of the inbox for actionable mail.
	CategoryEmailScan Category = "email_scan"
	// CategoryFormFill requests a multi-step document/form workflow.
	CategoryFormFill Category = "form_fill"
	// CategoryPaymentMonitor requests a periodic sweep over due payments.
	CategoryPaymentMonitor Category = "payment_monitor"
	// CategoryAggregate requests a cross-memory aggregation report.
	CategoryAggregate Category = "aggregate"
)

// WorkItemStatus is the lifecycle state of a WorkItem.
//
// Transitions: pending -> in_progress -> completed | failed. The two terminal
// states admit no further transitions; the session store enforces this.
type WorkItemStatus string

const (
	// StatusPending marks an item submitted but not yet picked up.
	StatusPending WorkItemStatus = "pending"
	// StatusInProgress marks an item currently owned by a handler. Items
	// awaiting external input remain in this state.
	StatusInProgress WorkItemStatus = "in_progress"
	// StatusCompleted is terminal success.
	StatusCompleted WorkItemStatus = "completed"
	// StatusFailed is terminal failure.
	StatusFailed WorkItemStatus = "failed"
)

// Terminal reports whether no further status transition is allowed.
func (s WorkItemStatus) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// WorkItem is a unit of requested work. Once submitted it is owned by the
// session store and mutated only through UpdateWorkItem.
type WorkItem struct {
	ID       string         `json:"id"`
	Category Category       `json:"category"`
	Priority int            `json:"priority"`
	Status   WorkItemStatus `json:"status"`
	Metadata map[string]any `json:"metadata,omitempty"`
	Created  time.Time      `json:"created"`
	Updated  time.Time      `json:"updated"`
}

// NewWorkItem creates a pending work item with a fresh identifier.
func NewWorkItem(category Category, priority int, metadata map[string]any) *WorkItem {
	now := time.Now().UTC()
	if metadata == nil {
		metadata = map[string]any{}
	}
	return &WorkItem{
		ID:       NewID(),
		Category: category,
		Priority: priority,
		Status:   StatusPending,
		Metadata: metadata,
		Created:  now,
		Updated:  now,
	}
}

// Clone returns a deep copy safe for independent mutation.
func (w *WorkItem) Clone() *WorkItem {
	c := *w
	c.Metadata = make(map[string]any, len(w.Metadata))
	maps.Copy(c.Metadata, w.Metadata)
	return &c
}

// WorkItemUpdate is a partial update: only non-nil fields are applied.
// Metadata entries are merged key-by-key into the existing mapping.
type WorkItemUpdate struct {
	Status   *WorkItemStatus
	Priority *int
	Metadata map[string]any
}

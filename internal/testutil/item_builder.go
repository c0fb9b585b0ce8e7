package testutil

import (
	"github.com/clerkmesh/clerkmesh/core"
)

// WorkItemBuilder helps construct work items with fluent chaining for tests.
// Example:
//
//	item := NewWorkItemBuilder(core.CategoryEmailScan).Priority(3).Meta("k", "v").Build()
type WorkItemBuilder struct {
	id       string
	category core.Category
	priority int
	status   *core.WorkItemStatus
	metadata map[string]any
}

// NewWorkItemBuilder creates a builder for a work item in the given category.
// Use chainable methods (ID, Priority, Status, Meta) then call Build.
func NewWorkItemBuilder(category core.Category) *WorkItemBuilder {
	return &WorkItemBuilder{category: category, priority: 1, metadata: map[string]any{}}
}

// ID overrides the auto-generated item ID (chainable). Use mainly in tests
// where determinism matters.
func (b *WorkItemBuilder) ID(id string) *WorkItemBuilder { b.id = id; return b }

// Priority sets the item priority (chainable).
func (b *WorkItemBuilder) Priority(p int) *WorkItemBuilder { b.priority = p; return b }

// Status overrides the initial pending status (chainable).
func (b *WorkItemBuilder) Status(s core.WorkItemStatus) *WorkItemBuilder { b.status = &s; return b }

// Meta sets or overwrites a metadata key/value pair (chainable).
func (b *WorkItemBuilder) Meta(key string, val any) *WorkItemBuilder {
	b.metadata[key] = val
	return b
}

// Build returns a *core.WorkItem with the configured fields.
func (b *WorkItemBuilder) Build() *core.WorkItem {
	item := core.NewWorkItem(b.category, b.priority, b.metadata)
	if b.id != "" {
		item.ID = b.id
	}
	if b.status != nil {
		item.Status = *b.status
	}
	return item
}

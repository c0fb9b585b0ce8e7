package core

import (
	"maps"
	"time"
)

// SpanStatus is the lifecycle state of a trace span.
type SpanStatus string

const (
	// SpanRunning marks a span that has started but not ended.
	SpanRunning SpanStatus = "running"
	// SpanCompleted marks a span ended successfully.
	SpanCompleted SpanStatus = "completed"
	// SpanError marks a span ended on failure.
	SpanError SpanStatus = "error"
)

// Span is a timed, nested record of one execution step. A root span mints a
// new trace id; children inherit the parent's. A span is mutated only by its
// owning execution (start, metadata merge, end) and is immutable once ended.
type Span struct {
	ID         string         `json:"id"`
	TraceID    string         `json:"trace_id"`
	ParentID   string         `json:"parent_id,omitempty"`
	Name       string         `json:"name"`
	Handler    string         `json:"handler"`
	WorkItemID string         `json:"work_item_id,omitempty"`
	Start      time.Time      `json:"start"`
	End        time.Time      `json:"end,omitzero"`
	Duration   time.Duration  `json:"duration"`
	Status     SpanStatus     `json:"status"`
	Metadata   map[string]any `json:"metadata,omitempty"`
	Children   []*Span        `json:"children,omitempty"`
}

// Clone deep-copies the span including its child subtree.
func (s *Span) Clone() *Span {
	c := *s
	c.Metadata = make(map[string]any, len(s.Metadata))
	maps.Copy(c.Metadata, s.Metadata)
	c.Children = make([]*Span, 0, len(s.Children))
	for _, child := range s.Children {
		c.Children = append(c.Children, child.Clone())
	}
	return &c
}

// Tracer records a hierarchy of timed execution spans and renders them.
type Tracer interface {
	// StartSpan opens a span. workItemID and parentSpanID may be empty; with a
	// parent the span joins the parent's trace, otherwise it roots a new one.
	StartSpan(name, handler, workItemID, parentSpanID string) string

	// EndSpan closes a span, computing its duration and merging metadata. An
	// unknown span id is a logged no-op, never an error.
	EndSpan(spanID string, status SpanStatus, metadata map[string]any)

	// Span returns a copy of one span (ended or in flight).
	Span(spanID string) (*Span, bool)

	// TraceHierarchy returns copies of the trace's root spans with children
	// nested, in start order.
	TraceHierarchy(traceID string) []*Span

	// RenderDiagram renders the trace as an indented text tree, one line per
	// span: status glyph, name, handler and duration.
	RenderDiagram(traceID string) string
}

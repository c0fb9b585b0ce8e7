package trace

import (
	"fmt"
	"maps"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/clerkmesh/clerkmesh/core"
	"github.com/clerkmesh/clerkmesh/logging"
)

// Tracer is the in-memory core.Tracer implementation. One mutex guards the
// span map and the trace root lists; children are attached to their parent at
// start time so hierarchy reads need no reassembly.
type Tracer struct {
	mu     sync.Mutex
	spans  map[string]*core.Span
	traces map[string][]string // traceID -> root span ids in start order
	logger logging.Logger
}

// NewTracer constructs an empty tracer.
func NewTracer(optFns ...func(t *Tracer)) *Tracer {
	t := &Tracer{
		spans:  make(map[string]*core.Span),
		traces: make(map[string][]string),
		logger: logging.NoOpLogger{},
	}
	for _, fn := range optFns {
		fn(t)
	}
	return t
}

// WithLogger overrides the tracer's logger.
func WithLogger(l logging.Logger) func(t *Tracer) {
	return func(t *Tracer) {
		if l != nil {
			t.logger = l
		}
	}
}

// StartSpan opens a span. With a known parent the span inherits the parent's
// trace id and is appended to its child list; otherwise a new trace id is
// minted and the span becomes a root. An unknown parent id degrades to a root
// span with a warning rather than failing the caller.
func (t *Tracer) StartSpan(name, handler, workItemID, parentSpanID string) string {
	span := &core.Span{
		ID:         core.NewID(),
		Name:       name,
		Handler:    handler,
		WorkItemID: workItemID,
		Start:      time.Now().UTC(),
		Status:     core.SpanRunning,
		Metadata:   map[string]any{},
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	if parentSpanID != "" {
		if parent, ok := t.spans[parentSpanID]; ok {
			span.ParentID = parent.ID
			span.TraceID = parent.TraceID
			parent.Children = append(parent.Children, span)
			t.spans[span.ID] = span
			return span.ID
		}
		t.logger.Warn("parent span %s not found, starting %s as root", parentSpanID, name)
	}
	span.TraceID = core.NewID()
	t.spans[span.ID] = span
	t.traces[span.TraceID] = append(t.traces[span.TraceID], span.ID)
	return span.ID
}

// EndSpan closes a span, computing duration from start and merging metadata.
// Unknown ids and already-ended spans are logged no-ops, never errors.
func (t *Tracer) EndSpan(spanID string, status core.SpanStatus, metadata map[string]any) {
	t.mu.Lock()
	defer t.mu.Unlock()
	span, ok := t.spans[spanID]
	if !ok {
		t.logger.Warn("end of unknown span %s ignored", spanID)
		return
	}
	if span.Status != core.SpanRunning {
		t.logger.Warn("span %s already ended with status %s", spanID, span.Status)
		return
	}
	span.End = time.Now().UTC()
	span.Duration = span.End.Sub(span.Start)
	span.Status = status
	maps.Copy(span.Metadata, metadata)
}

// Span returns a copy of one span, ended or in flight.
func (t *Tracer) Span(spanID string) (*core.Span, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	span, ok := t.spans[spanID]
	if !ok {
		return nil, false
	}
	return span.Clone(), true
}

// TraceHierarchy returns copies of the trace's root spans with children
// nested, in start order.
func (t *Tracer) TraceHierarchy(traceID string) []*core.Span {
	t.mu.Lock()
	defer t.mu.Unlock()
	roots := t.traces[traceID]
	out := make([]*core.Span, 0, len(roots))
	for _, id := range roots {
		out = append(out, t.spans[id].Clone())
	}
	return out
}

// RenderDiagram renders the trace as an indented text tree, one line per span
// with a status glyph, name, handler and duration, indented by depth.
func (t *Tracer) RenderDiagram(traceID string) string {
	roots := t.TraceHierarchy(traceID)
	if len(roots) == 0 {
		return fmt.Sprintf("trace %s: no spans", traceID)
	}
	var b strings.Builder
	fmt.Fprintf(&b, "trace %s\n", traceID)
	for _, root := range roots {
		renderSpan(&b, root, 0)
	}
	return strings.TrimRight(b.String(), "\n")
}

func renderSpan(b *strings.Builder, span *core.Span, depth int) {
	dur := span.Duration
	if span.Status == core.SpanRunning {
		dur = time.Since(span.Start)
	}
	fmt.Fprintf(b, "%s%s %s [%s] %s\n", strings.Repeat("  ", depth), glyph(span.Status), span.Name, span.Handler, dur.Round(time.Microsecond))
	children := append([]*core.Span(nil), span.Children...)
	sort.Slice(children, func(i, j int) bool { return children[i].Start.Before(children[j].Start) })
	for _, child := range children {
		renderSpan(b, child, depth+1)
	}
}

func glyph(status core.SpanStatus) string {
	switch status {
	case core.SpanCompleted:
		return "✓"
	case core.SpanError:
		return "✗"
	default:
		return "…"
	}
}

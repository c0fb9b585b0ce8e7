package core

import "context"

// Outcome classifies a handler's result. AwaitingInput is deliberately not an
// error: the work item stays in progress until input arrives. Failed captures
// a tool failure recovered into a structured result rather than raised.
type Outcome string

const (
	// OutcomeCompleted marks full success.
	OutcomeCompleted Outcome = "completed"
	// OutcomeAwaitingInput marks a workflow paused on external input.
	OutcomeAwaitingInput Outcome = "awaiting_input"
	// OutcomeFailed marks a recovered collaborator failure.
	OutcomeFailed Outcome = "failed"
)

// Result is the structured outcome of one handler invocation.
type Result struct {
	Outcome Outcome        `json:"outcome"`
	Summary string         `json:"summary,omitempty"`
	Data    map[string]any `json:"data,omitempty"`
}

// Handler is a polymorphic worker executing one category of work item.
//
// Implementations must:
//   - Recover tool failures into a Failed/AwaitingInput Result rather than
//     returning an error; an error return is reserved for handler faults and
//     is re-raised by the observed-execution wrapper.
//   - Emit cross-handler messages only through their outbox; delivery happens
//     exclusively in the dispatcher's relay step, so handlers never hold
//     references to each other.
type Handler interface {
	// Name is the unique handler identifier used in sessions, traces, metrics
	// and message addressing.
	Name() string

	// Category is the work item category this handler accepts.
	Category() Category

	// RelevantMemoryTypes declares which memory buckets context compaction
	// may draw from for this handler.
	RelevantMemoryTypes() []MemoryType

	// Execute processes one work item.
	Execute(ctx context.Context, item *WorkItem, sessionID string) (*Result, error)

	// DrainOutbox removes and returns all pending outbound messages.
	DrainOutbox() []Message

	// Deliver places a relayed message into the handler's inbox.
	Deliver(msg Message)
}

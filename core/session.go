package core

import "time"

// HandlerStatus is a handler's last-reported execution state within a session.
type HandlerStatus string

const (
	// HandlerIdle means the handler has no work in flight.
	HandlerIdle HandlerStatus = "idle"
	// HandlerRunning means the handler currently owns a work item.
	HandlerRunning HandlerStatus = "running"
	// HandlerWaiting means the handler is blocked on external input.
	HandlerWaiting HandlerStatus = "waiting"
	// HandlerError means the handler's last invocation raised.
	HandlerError HandlerStatus = "error"
)

// HandlerState is the per-handler entry in a session. MemorySnapshot captures
// the ids of records the observed-execution wrapper deemed relevant at start
// time; it exists for audit and debugging, not for the handler itself.
type HandlerState struct {
	Handler        string         `json:"handler"`
	Status         HandlerStatus  `json:"status"`
	WorkItemID     string         `json:"work_item_id,omitempty"`
	MemorySnapshot []string       `json:"memory_snapshot,omitempty"`
	Error          string         `json:"error,omitempty"`
	Metadata       map[string]any `json:"metadata,omitempty"`
	Updated        time.Time      `json:"updated"`
}

// Checkpoint is a named snapshot of handler states and work items taken at a
// point in time. Checkpoints are append-only and never alias live state: the
// maps are deep-copied at creation (copy-on-checkpoint).
type Checkpoint struct {
	Name          string                  `json:"name"`
	Created       time.Time               `json:"created"`
	HandlerStates map[string]HandlerState `json:"handler_states"`
	WorkItems     map[string]WorkItem     `json:"work_items"`
	MessageCount  int                     `json:"message_count"`
}

// SessionSummary is a pure-read digest of one session.
type SessionSummary struct {
	ID              string                 `json:"id"`
	Duration        time.Duration          `json:"duration"`
	TaskCounts      map[WorkItemStatus]int `json:"task_counts"`
	ActiveHandlers  []string               `json:"active_handlers"`
	MessageCount    int                    `json:"message_count"`
	CheckpointCount int                    `json:"checkpoint_count"`
}

// Session is the mutable state container for one run: handler states, the
// work item set, the ordered message log and checkpoints. A session exists
// from Create until an explicit Delete; End only seals it with a final
// checkpoint.
type Session struct {
	ID            string                  `json:"id"`
	Created       time.Time               `json:"created"`
	Updated       time.Time               `json:"updated"`
	HandlerStates map[string]HandlerState `json:"handler_states"`
	WorkItems     map[string]*WorkItem    `json:"work_items"`
	Messages      []Message               `json:"messages"`
	Checkpoints   []Checkpoint            `json:"checkpoints"`
}

// SessionStore tracks per-run mutable state. Mutating operations are atomic
// per call; reads return copies so callers never alias live state.
type SessionStore interface {
	// Create initializes an empty session and returns its id.
	Create() string

	// Get returns a deep copy of the session.
	Get(sessionID string) (*Session, error)

	// UpdateHandlerState upserts the handler's entry. It returns false when
	// the session no longer exists; callers must treat that as "session gone",
	// not as a fault.
	UpdateHandlerState(sessionID string, state HandlerState) bool

	// AddWorkItem registers a work item with the session.
	AddWorkItem(sessionID string, item *WorkItem) error

	// GetWorkItem returns a copy of one work item.
	GetWorkItem(sessionID, itemID string) (*WorkItem, error)

	// UpdateWorkItem applies a partial update and refreshes the item's
	// Updated timestamp. Transitions out of a terminal status are rejected.
	UpdateWorkItem(sessionID, itemID string, update WorkItemUpdate) error

	// AddMessage appends to the ordered message log.
	AddMessage(sessionID string, msg Message) error

	// Messages returns a copy of the full message log.
	Messages(sessionID string) []Message

	// CreateCheckpoint deep-copies handler states and work items at call time.
	CreateCheckpoint(sessionID, name string) (*Checkpoint, error)

	// Summarize computes a digest without mutating any state.
	Summarize(sessionID string) (*SessionSummary, error)

	// End seals the session with a final checkpoint; the session remains
	// retrievable afterwards.
	End(sessionID string) error

	// Delete removes the session entirely.
	Delete(sessionID string) error

	// List returns the ids of all live sessions.
	List() []string
}

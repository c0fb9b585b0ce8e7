package session

import (
	"fmt"
	"maps"
	"sort"
	"sync"
	"time"

	"github.com/clerkmesh/clerkmesh/core"
	"github.com/clerkmesh/clerkmesh/logging"
)

// EndCheckpointName is the name of the final checkpoint created by End.
const EndCheckpointName = "session_end"

// InMemoryStore is a volatile SessionStore keeping sessions in a process
// local map. One mutex guards all session state so every logical update
// (state upsert, partial item update, checkpoint copy) is indivisible even
// under concurrent handler invocations. Reads hand out deep copies.
type InMemoryStore struct {
	mu       sync.RWMutex
	sessions map[string]*core.Session
	logger   logging.Logger
}

// NewInMemoryStore constructs an empty in-memory session store.
func NewInMemoryStore(optFns ...func(s *InMemoryStore)) *InMemoryStore {
	s := &InMemoryStore{
		sessions: make(map[string]*core.Session),
		logger:   logging.NoOpLogger{},
	}
	for _, fn := range optFns {
		fn(s)
	}
	return s
}

// WithLogger overrides the store's logger.
func WithLogger(l logging.Logger) func(s *InMemoryStore) {
	return func(s *InMemoryStore) {
		if l != nil {
			s.logger = l
		}
	}
}

// Create initializes an empty session and returns its id.
func (s *InMemoryStore) Create() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now().UTC()
	sess := &core.Session{
		ID:            core.NewID(),
		Created:       now,
		Updated:       now,
		HandlerStates: map[string]core.HandlerState{},
		WorkItems:     map[string]*core.WorkItem{},
		Messages:      []core.Message{},
		Checkpoints:   []core.Checkpoint{},
	}
	s.sessions[sess.ID] = sess
	return sess.ID
}

// Get returns a deep copy of the session.
func (s *InMemoryStore) Get(sessionID string) (*core.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sess, ok := s.sessions[sessionID]
	if !ok {
		return nil, fmt.Errorf("get session %s: %w", sessionID, core.ErrSessionNotFound)
	}
	return cloneSession(sess), nil
}

// UpdateHandlerState upserts the handler's entry, returning false when the
// session no longer exists.
func (s *InMemoryStore) UpdateHandlerState(sessionID string, state core.HandlerState) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[sessionID]
	if !ok {
		s.logger.Warn("handler state update for missing session %s dropped", sessionID)
		return false
	}
	state.Updated = time.Now().UTC()
	sess.HandlerStates[state.Handler] = state
	sess.Updated = state.Updated
	return true
}

// AddWorkItem registers a copy of the work item with the session.
func (s *InMemoryStore) AddWorkItem(sessionID string, item *core.WorkItem) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[sessionID]
	if !ok {
		return fmt.Errorf("add work item to session %s: %w", sessionID, core.ErrSessionNotFound)
	}
	sess.WorkItems[item.ID] = item.Clone()
	sess.Updated = time.Now().UTC()
	return nil
}

// GetWorkItem returns a copy of one work item.
func (s *InMemoryStore) GetWorkItem(sessionID, itemID string) (*core.WorkItem, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sess, ok := s.sessions[sessionID]
	if !ok {
		return nil, fmt.Errorf("get work item in session %s: %w", sessionID, core.ErrSessionNotFound)
	}
	item, ok := sess.WorkItems[itemID]
	if !ok {
		return nil, fmt.Errorf("get work item %s: %w", itemID, core.ErrWorkItemNotFound)
	}
	return item.Clone(), nil
}

// UpdateWorkItem applies a partial update: only provided fields change, the
// Updated timestamp always refreshes. Transitions out of a terminal status
// are rejected.
func (s *InMemoryStore) UpdateWorkItem(sessionID, itemID string, update core.WorkItemUpdate) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[sessionID]
	if !ok {
		return fmt.Errorf("update work item in session %s: %w", sessionID, core.ErrSessionNotFound)
	}
	item, ok := sess.WorkItems[itemID]
	if !ok {
		return fmt.Errorf("update work item %s: %w", itemID, core.ErrWorkItemNotFound)
	}
	if update.Status != nil {
		if item.Status.Terminal() && *update.Status != item.Status {
			return fmt.Errorf("work item %s: invalid transition %s -> %s", itemID, item.Status, *update.Status)
		}
		item.Status = *update.Status
	}
	if update.Priority != nil {
		item.Priority = *update.Priority
	}
	maps.Copy(item.Metadata, update.Metadata)
	item.Updated = time.Now().UTC()
	sess.Updated = item.Updated
	return nil
}

// AddMessage appends to the session's ordered message log.
func (s *InMemoryStore) AddMessage(sessionID string, msg core.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[sessionID]
	if !ok {
		return fmt.Errorf("add message to session %s: %w", sessionID, core.ErrSessionNotFound)
	}
	sess.Messages = append(sess.Messages, msg)
	sess.Updated = time.Now().UTC()
	return nil
}

// Messages returns a copy of the full message log.
func (s *InMemoryStore) Messages(sessionID string) []core.Message {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sess, ok := s.sessions[sessionID]
	if !ok {
		return nil
	}
	msgs := make([]core.Message, len(sess.Messages))
	copy(msgs, sess.Messages)
	return msgs
}

// CreateCheckpoint deep-copies handler states and work items at call time so
// the checkpoint never aliases live mutable state.
func (s *InMemoryStore) CreateCheckpoint(sessionID, name string) (*core.Checkpoint, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[sessionID]
	if !ok {
		return nil, fmt.Errorf("checkpoint session %s: %w", sessionID, core.ErrSessionNotFound)
	}
	cp := checkpointLocked(sess, name)
	sess.Checkpoints = append(sess.Checkpoints, cp)
	sess.Updated = cp.Created
	return &cp, nil
}

// Summarize computes a digest without mutating the session.
func (s *InMemoryStore) Summarize(sessionID string) (*core.SessionSummary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sess, ok := s.sessions[sessionID]
	if !ok {
		return nil, fmt.Errorf("summarize session %s: %w", sessionID, core.ErrSessionNotFound)
	}
	counts := map[core.WorkItemStatus]int{}
	for _, item := range sess.WorkItems {
		counts[item.Status]++
	}
	active := make([]string, 0, len(sess.HandlerStates))
	for name := range sess.HandlerStates {
		active = append(active, name)
	}
	sort.Strings(active)
	return &core.SessionSummary{
		ID:              sess.ID,
		Duration:        sess.Updated.Sub(sess.Created),
		TaskCounts:      counts,
		ActiveHandlers:  active,
		MessageCount:    len(sess.Messages),
		CheckpointCount: len(sess.Checkpoints),
	}, nil
}

// End seals the session with a final checkpoint. The session remains
// retrievable; removal is Delete's job.
func (s *InMemoryStore) End(sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[sessionID]
	if !ok {
		return fmt.Errorf("end session %s: %w", sessionID, core.ErrSessionNotFound)
	}
	cp := checkpointLocked(sess, EndCheckpointName)
	sess.Checkpoints = append(sess.Checkpoints, cp)
	sess.Updated = cp.Created
	return nil
}

// Delete removes the session entirely.
func (s *InMemoryStore) Delete(sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.sessions[sessionID]; !ok {
		return fmt.Errorf("delete session %s: %w", sessionID, core.ErrSessionNotFound)
	}
	delete(s.sessions, sessionID)
	return nil
}

// List returns the ids of all live sessions in stable order.
func (s *InMemoryStore) List() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := make([]string, 0, len(s.sessions))
	for id := range s.sessions {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// checkpointLocked snapshots the session under the caller-held lock.
func checkpointLocked(sess *core.Session, name string) core.Checkpoint {
	cp := core.Checkpoint{
		Name:          name,
		Created:       time.Now().UTC(),
		HandlerStates: make(map[string]core.HandlerState, len(sess.HandlerStates)),
		WorkItems:     make(map[string]core.WorkItem, len(sess.WorkItems)),
		MessageCount:  len(sess.Messages),
	}
	for k, v := range sess.HandlerStates {
		cp.HandlerStates[k] = cloneHandlerState(v)
	}
	for k, v := range sess.WorkItems {
		cp.WorkItems[k] = *v.Clone()
	}
	return cp
}

func cloneHandlerState(h core.HandlerState) core.HandlerState {
	h.MemorySnapshot = append([]string(nil), h.MemorySnapshot...)
	md := make(map[string]any, len(h.Metadata))
	maps.Copy(md, h.Metadata)
	h.Metadata = md
	return h
}

func cloneSession(sess *core.Session) *core.Session {
	clone := &core.Session{
		ID:            sess.ID,
		Created:       sess.Created,
		Updated:       sess.Updated,
		HandlerStates: make(map[string]core.HandlerState, len(sess.HandlerStates)),
		WorkItems:     make(map[string]*core.WorkItem, len(sess.WorkItems)),
		Messages:      make([]core.Message, len(sess.Messages)),
		Checkpoints:   make([]core.Checkpoint, len(sess.Checkpoints)),
	}
	for k, v := range sess.HandlerStates {
		clone.HandlerStates[k] = cloneHandlerState(v)
	}
	for k, v := range sess.WorkItems {
		clone.WorkItems[k] = v.Clone()
	}
	copy(clone.Messages, sess.Messages)
	for i, cp := range sess.Checkpoints {
		clone.Checkpoints[i] = cloneCheckpoint(cp)
	}
	return clone
}

func cloneCheckpoint(cp core.Checkpoint) core.Checkpoint {
	states := make(map[string]core.HandlerState, len(cp.HandlerStates))
	for k, v := range cp.HandlerStates {
		states[k] = cloneHandlerState(v)
	}
	items := make(map[string]core.WorkItem, len(cp.WorkItems))
	for k, v := range cp.WorkItems {
		items[k] = *v.Clone()
	}
	cp.HandlerStates = states
	cp.WorkItems = items
	return cp
}

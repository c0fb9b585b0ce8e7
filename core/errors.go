package core

import (
	"errors"
	"fmt"
)

// ErrSessionNotFound is returned by session store reads for unknown ids.
var ErrSessionNotFound = errors.New("session not found")

// ErrWorkItemNotFound is returned when an item id is not part of the session.
var ErrWorkItemNotFound = errors.New("work item not found")

// ErrMemoryNotFound is returned by memory store operations for unknown ids.
var ErrMemoryNotFound = errors.New("memory record not found")

// RoutingError reports that no handler is registered for a category. It is
// surfaced to the caller immediately and never retried.
type RoutingError struct {
	Category Category
}

func (e *RoutingError) Error() string {
	return fmt.Sprintf("no handler registered for category %q", e.Category)
}

// HandlerFault wraps an unexpected error raised by a handler's own logic. The
// observed-execution wrapper records it in trace and session state, then
// re-raises it to the dispatcher, which isolates it to the single item.
type HandlerFault struct {
	Handler string
	Err     error
}

func (e *HandlerFault) Error() string {
	return fmt.Sprintf("handler %s fault: %v", e.Handler, e.Err)
}

func (e *HandlerFault) Unwrap() error { return e.Err }

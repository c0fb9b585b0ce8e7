package core

import "github.com/google/uuid"

// NewID generates a unique identifier used for work items, messages, memory
// records, sessions and trace spans.
func NewID() string { return uuid.NewString() }

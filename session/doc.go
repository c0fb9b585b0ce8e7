// Package session provides the in-memory SessionStore implementation tracking
// per-run handler states, work items, message logs and checkpoints.
package session

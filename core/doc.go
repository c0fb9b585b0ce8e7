// Package core defines the shared data model and store interfaces of
// ClerkMesh: work items, messages, memory records, sessions, trace spans and
// the contracts (SessionStore, MemoryStore, Tracer, Metrics, Handler) that the
// dispatcher and engine are wired against. Implementations live in their own
// packages (session, memory, trace, metrics, handler) so callers can swap any
// of them without touching orchestration code.
package core

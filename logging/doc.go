// Package logging provides a tiny abstraction over slog so downstream code
// can depend on a minimal Logger interface while allowing users to plug any
// structured logger. It also offers a richer ClerkMeshLogger with contextual
// helpers (session, component) and domain specific helpers for handler runs,
// tool calls and message relays.
package logging

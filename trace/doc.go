// Package trace provides the in-process Tracer: a store of timed, nested
// execution spans with hierarchy reads and a textual diagram renderer. Spans
// stay queryable by the process that recorded them, which is what the trace
// diagram and audit operations require.
package trace

// Package handler provides the handler unit contract shared by all concrete
// handlers: the BaseHandler embed (identity, outbox/inbox), the
// observed-execution wrapper that surrounds every invocation with tracing,
// session state reporting and metrics, and the concrete handler variants
// (scanner, workflow, monitor, aggregator). Each variant is its own type with
// a single work item category, so routing is enforced by construction rather
// than by switching on task type inside Execute.
package handler

// Package clerkmesh provides a high-level façade over the engine and its
// services (sessions, memory, tracing, metrics & logging) for coordinating
// autonomous admin-task handlers. Most applications interact with this
// package by:
//  1. Creating a ClerkMesh via New() with the standard handler set (or custom
//     handlers via NewWithHandlers), optionally overriding the in-memory
//     services
//  2. Creating a session and submitting work items or category batches
//  3. Reading back session summaries, memory queries and trace diagrams
//
// All defaults are safe for local development and testing; callers wanting
// different collaborators supply their own tools and handlers.
package clerkmesh

import (
	"time"

	"github.com/clerkmesh/clerkmesh/core"
	"github.com/clerkmesh/clerkmesh/engine"
	"github.com/clerkmesh/clerkmesh/handler"
	"github.com/clerkmesh/clerkmesh/logging"
	"github.com/clerkmesh/clerkmesh/memory"
	"github.com/clerkmesh/clerkmesh/metrics"
	"github.com/clerkmesh/clerkmesh/session"
	"github.com/clerkmesh/clerkmesh/tool/sim"
	"github.com/clerkmesh/clerkmesh/trace"
)

// Version is the current release of the module.
const Version = "0.1.0"

// Options configures a ClerkMesh instance. Any unset service defaults to an
// in-memory implementation.
type Options struct {
	SessionStore core.SessionStore
	MemoryStore  core.MemoryStore
	Tracer       core.Tracer
	Metrics      core.Metrics
	Logger       logging.Logger

	// SnapshotMemories caps the audit memory snapshot per handler run.
	SnapshotMemories int
	// MonitorCycles sets the payment monitor's sweep count.
	MonitorCycles int
	// MonitorInterval sets the pause between monitor sweeps.
	MonitorInterval time.Duration
}

// New creates an engine wired with the standard handler set over simulated
// collaborators: bill scanner, form workflow, payment monitor and schedule
// aggregator.
func New(optFns ...func(o *Options)) (*engine.Engine, error) {
	opts := defaultOptions(optFns...)
	deps := handler.Deps{Memory: opts.MemoryStore, Logger: opts.Logger}
	handlers := []core.Handler{
		handler.NewScanHandler(sim.NewEmailScanner(), deps),
		handler.NewWorkflowHandler(sim.NewDocumentExtractor(), sim.NewFormFiller(), deps),
		handler.NewMonitorHandler(sim.NewPaymentGateway(), opts.MonitorCycles, opts.MonitorInterval, deps),
		handler.NewAggregatorHandler(deps),
	}
	return newEngine(handlers, opts)
}

// NewWithHandlers creates an engine over caller-supplied handlers sharing the
// configured stores.
func NewWithHandlers(handlers []core.Handler, optFns ...func(o *Options)) (*engine.Engine, error) {
	return newEngine(handlers, defaultOptions(optFns...))
}

func defaultOptions(optFns ...func(o *Options)) Options {
	opts := Options{
		SessionStore:  session.NewInMemoryStore(),
		MemoryStore:   memory.NewInMemoryStore(),
		Tracer:        trace.NewTracer(),
		Metrics:       metrics.NewCollector(),
		Logger:        logging.NoOpLogger{},
		MonitorCycles: 1,
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	return opts
}

func newEngine(handlers []core.Handler, opts Options) (*engine.Engine, error) {
	return engine.New(handlers, func(o *engine.Options) {
		o.SessionStore = opts.SessionStore
		o.MemoryStore = opts.MemoryStore
		o.Tracer = opts.Tracer
		o.Metrics = opts.Metrics
		o.Logger = opts.Logger
		o.SnapshotMemories = opts.SnapshotMemories
	})
}

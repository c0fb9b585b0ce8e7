package handler

import (
	"sync"

	"github.com/clerkmesh/clerkmesh/core"
	"github.com/clerkmesh/clerkmesh/logging"
)

// Deps bundles the shared services a handler needs. Logger may be nil; it
// defaults to NoOpLogger.
type Deps struct {
	Memory core.MemoryStore
	Logger logging.Logger
}

// BaseHandler bundles identity, memory access and the message plumbing shared
// by all concrete handlers. Embed it and supply Execute to satisfy
// core.Handler. Handlers append outbound messages to their own outbox and
// never write into another handler's inbox; cross-handler delivery is the
// dispatcher relay's job alone.
type BaseHandler struct {
	name        string
	category    core.Category
	memoryTypes []core.MemoryType
	memory      core.MemoryStore
	logger      logging.Logger

	mu     sync.Mutex
	outbox []core.Message
	inbox  []core.Message
}

// NewBaseHandler constructs the shared base for a concrete handler.
func NewBaseHandler(name string, category core.Category, memoryTypes []core.MemoryType, deps Deps) BaseHandler {
	logger := deps.Logger
	if logger == nil {
		logger = logging.NoOpLogger{}
	}
	return BaseHandler{
		name:        name,
		category:    category,
		memoryTypes: memoryTypes,
		memory:      deps.Memory,
		logger:      logger,
	}
}

// Name returns the unique handler identifier.
func (b *BaseHandler) Name() string { return b.name }

// Category returns the work item category this handler accepts.
func (b *BaseHandler) Category() core.Category { return b.category }

// RelevantMemoryTypes returns the memory buckets this handler cares about.
func (b *BaseHandler) RelevantMemoryTypes() []core.MemoryType {
	return append([]core.MemoryType(nil), b.memoryTypes...)
}

// Memory returns the shared memory store.
func (b *BaseHandler) Memory() core.MemoryStore { return b.memory }

// Logger returns the handler's logger.
func (b *BaseHandler) Logger() logging.Logger { return b.logger }

// Send appends a message to the handler's outbox with From set to the
// handler's name.
func (b *BaseHandler) Send(typ core.MessageType, to string, payload map[string]any) core.Message {
	msg := core.NewMessage(typ, b.name, to, payload)
	b.mu.Lock()
	defer b.mu.Unlock()
	b.outbox = append(b.outbox, msg)
	return msg
}

// SendCorrelated is Send with a correlation id attached.
func (b *BaseHandler) SendCorrelated(typ core.MessageType, to, correlationID string, payload map[string]any) core.Message {
	msg := core.NewMessage(typ, b.name, to, payload).WithCorrelation(correlationID)
	b.mu.Lock()
	defer b.mu.Unlock()
	b.outbox = append(b.outbox, msg)
	return msg
}

// DrainOutbox removes and returns all pending outbound messages.
func (b *BaseHandler) DrainOutbox() []core.Message {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := b.outbox
	b.outbox = nil
	return out
}

// Deliver places a relayed message into the handler's inbox.
func (b *BaseHandler) Deliver(msg core.Message) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.inbox = append(b.inbox, msg)
}

// ConsumeInbox removes and returns all inbox messages of the given type,
// optionally filtered by correlation id (empty matches any). Each message is
// consumed exactly once.
func (b *BaseHandler) ConsumeInbox(typ core.MessageType, correlationID string) []core.Message {
	b.mu.Lock()
	defer b.mu.Unlock()
	var taken []core.Message
	var kept []core.Message
	for _, msg := range b.inbox {
		if msg.Type == typ && (correlationID == "" || msg.CorrelationID == correlationID) {
			taken = append(taken, msg)
			continue
		}
		kept = append(kept, msg)
	}
	b.inbox = kept
	return taken
}

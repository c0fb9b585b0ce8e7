package testutil

import (
	"github.com/clerkmesh/clerkmesh/core"
)

// MessageBuilder provides a fluent helper for constructing messages in tests.
// Example:
//
//	msg := NewMessageBuilder(core.MessagePaymentRequired).From("bill_scanner").To(core.DispatcherAddress).Build()
//
// Chain only the parts you need; sensible defaults are applied.
type MessageBuilder struct {
	typ         core.MessageType
	from        string
	to          string
	correlation string
	payload     map[string]any
}

// NewMessageBuilder creates a builder for a message of the given type with
// default sender "test" addressed to the dispatcher.
func NewMessageBuilder(typ core.MessageType) *MessageBuilder {
	return &MessageBuilder{typ: typ, from: "test", to: core.DispatcherAddress, payload: map[string]any{}}
}

// From sets the sender name (chainable).
func (b *MessageBuilder) From(name string) *MessageBuilder { b.from = name; return b }

// To sets the addressee (chainable).
func (b *MessageBuilder) To(name string) *MessageBuilder { b.to = name; return b }

// Correlated tags the message with a correlation id (chainable).
func (b *MessageBuilder) Correlated(id string) *MessageBuilder { b.correlation = id; return b }

// Payload sets or overwrites a payload key/value pair (chainable).
func (b *MessageBuilder) Payload(key string, val any) *MessageBuilder {
	b.payload[key] = val
	return b
}

// Build returns a core.Message with the configured fields.
func (b *MessageBuilder) Build() core.Message {
	msg := core.NewMessage(b.typ, b.from, b.to, b.payload)
	if b.correlation != "" {
		msg = msg.WithCorrelation(b.correlation)
	}
	return msg
}

package core

import "time"

// MessageType classifies a message envelope. The set is closed; the dispatcher
// relay logs and drops anything else.
type MessageType string

const (
	// MessagePaymentRequired announces a detected bill that needs paying.
	MessagePaymentRequired MessageType = "payment_required"
	// MessageTaskCompleted reports that the correlated work item is done.
	MessageTaskCompleted MessageType = "task_completed"
	// MessageInputRequired asks for external input to unblock a workflow.
	MessageInputRequired MessageType = "input_required"
	// MessageInputProvided carries the answer to an earlier input request.
	MessageInputProvided MessageType = "input_provided"
	// MessageReminder is a non-actionable nudge about an upcoming obligation.
	MessageReminder MessageType = "reminder"
)

// DispatcherAddress is the catch-all addressee handled by the dispatcher's
// relay table rather than delivered to a handler inbox.
const DispatcherAddress = "dispatcher"

// Message is the typed envelope exchanged between handlers. A message is
// produced into the sender's outbox, consumed exactly once by its addressee
// during relay, and retained afterwards only in the session's message log.
type Message struct {
	ID            string         `json:"id"`
	Type          MessageType    `json:"type"`
	From          string         `json:"from"`
	To            string         `json:"to"`
	Timestamp     time.Time      `json:"timestamp"`
	Payload       map[string]any `json:"payload,omitempty"`
	CorrelationID string         `json:"correlation_id,omitempty"`
}

// NewMessage creates a message envelope stamped with a fresh ID and UTC time.
func NewMessage(typ MessageType, from, to string, payload map[string]any) Message {
	if payload == nil {
		payload = map[string]any{}
	}
	return Message{
		ID:        NewID(),
		Type:      typ,
		From:      from,
		To:        to,
		Timestamp: time.Now().UTC(),
		Payload:   payload,
	}
}

// WithCorrelation returns a copy of the message tagged with a correlation id,
// typically the work item the message refers to.
func (m Message) WithCorrelation(id string) Message {
	m.CorrelationID = id
	return m
}

package bus

import (
	"time"

	"github.com/google/uuid"
)

// Kind classifies an envelope.
type Kind string

const (
	KindRequest      Kind = "request"
	KindResponse     Kind = "response"
	KindNotification Kind = "notification"
)

// Priority is advisory; the dispatcher records it but does not reorder.
type Priority int

const (
	PriorityLow Priority = iota
	PriorityMedium
	PriorityHigh
	PriorityUrgent
)

func (p Priority) String() string {
	switch p {
	case PriorityLow:
		return "low"
	case PriorityMedium:
		return "medium"
	case PriorityHigh:
		return "high"
	case PriorityUrgent:
		return "urgent"
	}
	return "unknown"
}

// Envelope is one message routed through the dispatcher. It is treated as
// immutable once created.
type Envelope struct {
	ID       uuid.UUID
	From     string
	To       string
	Kind     Kind
	Payload  any
	Priority Priority
	SentAt   time.Time
}

func newEnvelope(from, to string, payload any, kind Kind, priority Priority) Envelope {
	return Envelope{
		ID:       uuid.New(),
		From:     from,
		To:       to,
		Kind:     kind,
		Payload:  payload,
		Priority: priority,
		SentAt:   time.Now(),
	}
}

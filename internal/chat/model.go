package chat

import (
	"time"

	"github.com/google/uuid"
)

type Sender string

const (
	SenderPatient   Sender = "patient"
	SenderAssistant Sender = "assistant"
)

type Session struct {
	ID            uuid.UUID
	PatientID     uuid.UUID
	StartedAt     time.Time
	CrisisFlagged bool
}

type Message struct {
	ID        uuid.UUID
	SessionID uuid.UUID
	Sender    Sender
	Body      string
	CreatedAt time.Time
}

// Intervention records that a session was escalated after the responder
// flagged a crisis. The actual human follow-up happens outside this service.
type Intervention struct {
	ID               uuid.UUID
	SessionID        uuid.UUID
	PatientID        uuid.UUID
	TriggerMessageID *uuid.UUID
	CreatedAt        time.Time
}

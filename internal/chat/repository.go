package chat

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

var (
	ErrSessionNotFound  = errors.New("chat session not found")
	ErrNoPatientProfile = errors.New("no patient profile for user")
)

type Repository interface {
	GetPatientIDByUser(ctx context.Context, userID uuid.UUID) (uuid.UUID, error)

	CreateSession(ctx context.Context, patientID uuid.UUID) (*Session, error)
	// GetSessionForPatient scopes the lookup to the owning patient; a session
	// owned by someone else reads as not found.
	GetSessionForPatient(ctx context.Context, sessionID, patientID uuid.UUID) (*Session, error)

	InsertMessage(ctx context.Context, sessionID uuid.UUID, sender Sender, body string) (*Message, error)
	ListMessages(ctx context.Context, sessionID uuid.UUID) ([]Message, error)

	// FlagCrisis marks the session and records the intervention in one
	// transaction.
	FlagCrisis(ctx context.Context, sessionID, patientID uuid.UUID, triggerMessageID *uuid.UUID) error
}

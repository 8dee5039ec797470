package chat

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/vitalink/telemed-backend/internal/auth"
	"github.com/vitalink/telemed-backend/internal/metrics"
)

var (
	ErrRoleForbidden    = errors.New("only patients may use chat triage")
	ErrResponderFailure = errors.New("triage responder unavailable")
)

type Service struct {
	repo      Repository
	responder Responder
	log       zerolog.Logger
}

func NewService(repo Repository, responder Responder, log zerolog.Logger) *Service {
	return &Service{repo: repo, responder: responder, log: log}
}

func (s *Service) resolvePatient(ctx context.Context, ident auth.Identity) (uuid.UUID, error) {
	if ident.Role != auth.RolePatient {
		return uuid.Nil, ErrRoleForbidden
	}
	patientID, err := s.repo.GetPatientIDByUser(ctx, ident.UserID)
	if err != nil {
		if errors.Is(err, ErrNoPatientProfile) {
			return uuid.Nil, err
		}
		return uuid.Nil, fmt.Errorf("resolve patient profile: %w", err)
	}
	return patientID, nil
}

func (s *Service) StartSession(ctx context.Context, ident auth.Identity) (*Session, error) {
	patientID, err := s.resolvePatient(ctx, ident)
	if err != nil {
		return nil, err
	}
	return s.repo.CreateSession(ctx, patientID)
}

// PostResult carries the assistant's reply for one patient message.
type PostResult struct {
	Patient        *Message
	Assistant      *Message
	CrisisDetected bool
}

// PostMessage stores the patient message, asks the external responder for a
// reply, stores it, and escalates when the responder flags a crisis. The
// patient message is kept even when the responder fails.
func (s *Service) PostMessage(ctx context.Context, ident auth.Identity, sessionID uuid.UUID, body string) (*PostResult, error) {
	if body == "" {
		return nil, errors.New("message body is required")
	}

	patientID, err := s.resolvePatient(ctx, ident)
	if err != nil {
		return nil, err
	}

	session, err := s.repo.GetSessionForPatient(ctx, sessionID, patientID)
	if err != nil {
		return nil, err
	}

	patientMsg, err := s.repo.InsertMessage(ctx, session.ID, SenderPatient, body)
	if err != nil {
		return nil, fmt.Errorf("store patient message: %w", err)
	}

	reply, err := s.responder.Respond(ctx, session.ID.String(), body)
	if err != nil {
		s.log.Error().Err(err).Stringer("session_id", session.ID).Msg("triage responder call failed")
		return nil, fmt.Errorf("%w: %v", ErrResponderFailure, err)
	}

	assistantMsg, err := s.repo.InsertMessage(ctx, session.ID, SenderAssistant, reply.Reply)
	if err != nil {
		return nil, fmt.Errorf("store assistant message: %w", err)
	}

	if reply.CrisisDetected {
		trigger := patientMsg.ID
		if err := s.repo.FlagCrisis(ctx, session.ID, patientID, &trigger); err != nil {
			// Escalation must not be lost silently.
			s.log.Error().Err(err).Stringer("session_id", session.ID).Msg("crisis escalation failed")
			return nil, fmt.Errorf("record crisis escalation: %w", err)
		}
		metrics.CrisisEscalations.Inc()
		s.log.Warn().Stringer("session_id", session.ID).Msg("chat session escalated to crisis intervention")
	}

	return &PostResult{
		Patient:        patientMsg,
		Assistant:      assistantMsg,
		CrisisDetected: reply.CrisisDetected,
	}, nil
}

func (s *Service) ListMessages(ctx context.Context, ident auth.Identity, sessionID uuid.UUID) ([]Message, error) {
	patientID, err := s.resolvePatient(ctx, ident)
	if err != nil {
		return nil, err
	}

	if _, err := s.repo.GetSessionForPatient(ctx, sessionID, patientID); err != nil {
		return nil, err
	}

	return s.repo.ListMessages(ctx, sessionID)
}

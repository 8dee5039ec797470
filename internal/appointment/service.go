package appointment

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/vitalink/telemed-backend/internal/auth"
	"github.com/vitalink/telemed-backend/internal/metrics"
)

var (
	ErrRoleForbidden = errors.New("role is not permitted to perform this operation")

	// ErrMissingPatientProfile is an invariant violation: a patient-role user
	// must always have a patient row.
	ErrMissingPatientProfile = errors.New("patient-role user has no patient profile")
)

const defaultAppointmentType = "video"

// scopeResolver maps an authenticated principal to the participant scope its
// role is allowed to query. Roles absent from the table are denied.
type scopeResolver func(ctx context.Context, userID uuid.UUID) (ParticipantScope, error)

type Service struct {
	repo   Repository
	scopes map[auth.Role]scopeResolver
	now    func() time.Time
}

func NewService(repo Repository) *Service {
	s := &Service{
		repo: repo,
		now:  time.Now,
	}
	s.scopes = map[auth.Role]scopeResolver{
		auth.RolePatient: func(ctx context.Context, userID uuid.UUID) (ParticipantScope, error) {
			id, err := repo.GetPatientIDByUser(ctx, userID)
			if err != nil {
				return ParticipantScope{}, err
			}
			return ParticipantScope{PatientID: &id}, nil
		},
		auth.RoleProfessional: func(ctx context.Context, userID uuid.UUID) (ParticipantScope, error) {
			id, err := repo.GetProfessionalIDByUser(ctx, userID)
			if err != nil {
				return ParticipantScope{}, err
			}
			return ParticipantScope{ProfessionalID: &id}, nil
		},
	}
	return s
}

func (s *Service) scopeFor(ctx context.Context, ident auth.Identity) (ParticipantScope, error) {
	resolve, ok := s.scopes[ident.Role]
	if !ok {
		return ParticipantScope{}, ErrRoleForbidden
	}
	return resolve(ctx, ident.UserID)
}

// Book reserves the slot for the calling patient. The role gate runs before
// any store access; the atomicity of claim-plus-insert lives in the
// repository's BookSlot transaction.
func (s *Service) Book(ctx context.Context, ident auth.Identity, slotID uuid.UUID, notes *string, durationMinutes *int) (*Appointment, error) {
	if ident.Role != auth.RolePatient {
		return nil, ErrRoleForbidden
	}

	patientID, err := s.repo.GetPatientIDByUser(ctx, ident.UserID)
	if err != nil {
		if errors.Is(err, ErrNoPatientProfile) {
			return nil, ErrMissingPatientProfile
		}
		return nil, fmt.Errorf("resolve patient profile: %w", err)
	}

	appt, err := s.repo.BookSlot(ctx, BookingRequest{
		SlotID:          slotID,
		PatientID:       patientID,
		AppointmentType: defaultAppointmentType,
		PatientNotes:    notes,
		DurationMinutes: durationMinutes,
	})
	if err != nil {
		if errors.Is(err, ErrSlotUnavailable) {
			metrics.BookingConflicts.Inc()
			return nil, err
		}
		return nil, fmt.Errorf("book slot: %w", err)
	}

	metrics.BookingsTotal.Inc()
	return appt, nil
}

// CancelResult is the outcome of a cancellation. SlotReleased reports the
// actual release outcome, not a hardcoded value.
type CancelResult struct {
	Appointment  *Appointment
	SlotReleased bool
}

func (s *Service) Cancel(ctx context.Context, ident auth.Identity, appointmentID uuid.UUID, reason *string) (*CancelResult, error) {
	scope, err := s.scopeFor(ctx, ident)
	if err != nil {
		return nil, err
	}

	appt, released, err := s.repo.CancelAppointment(ctx, scope, appointmentID, reason)
	if err != nil {
		return nil, err
	}

	metrics.Cancellations.Inc()
	return &CancelResult{Appointment: appt, SlotReleased: released}, nil
}

// Complete transitions a scheduled appointment to completed. Only the
// professional participant may complete a consultation.
func (s *Service) Complete(ctx context.Context, ident auth.Identity, appointmentID uuid.UUID) (*Appointment, error) {
	if ident.Role != auth.RoleProfessional {
		return nil, ErrRoleForbidden
	}

	scope, err := s.scopeFor(ctx, ident)
	if err != nil {
		return nil, err
	}

	return s.repo.CompleteAppointment(ctx, scope, appointmentID)
}

// CompletePastAppointments is called by the completion worker. Scheduled
// appointments whose time is more than grace in the past are swept to
// completed.
func (s *Service) CompletePastAppointments(ctx context.Context, grace time.Duration) (int, error) {
	return s.repo.CompletePast(ctx, s.now().Add(-grace))
}

// ListMine returns the caller's own appointments, optionally filtered to the
// upcoming or past window.
func (s *Service) ListMine(ctx context.Context, ident auth.Identity, window Window) ([]Appointment, error) {
	scope, err := s.scopeFor(ctx, ident)
	if err != nil {
		return nil, err
	}
	return s.repo.ListByScope(ctx, scope, window, s.now())
}

// GetMine fetches one appointment scoped to the caller. Used by the signaling
// room service for participant checks.
func (s *Service) GetMine(ctx context.Context, ident auth.Identity, appointmentID uuid.UUID) (*Appointment, error) {
	scope, err := s.scopeFor(ctx, ident)
	if err != nil {
		return nil, err
	}
	return s.repo.GetScopedByID(ctx, scope, appointmentID)
}

// AttachConsultationLink stores the video-room link minted for the
// appointment, unless one is already attached. The returned bool reports
// whether this call's link was the one stored.
func (s *Service) AttachConsultationLink(ctx context.Context, appointmentID uuid.UUID, link string) (bool, error) {
	return s.repo.SetConsultationLink(ctx, appointmentID, link)
}

// FindByConsultationLink resolves an appointment from its room link.
func (s *Service) FindByConsultationLink(ctx context.Context, link string) (*Appointment, error) {
	return s.repo.GetByConsultationLink(ctx, link)
}

package appointment

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

var (
	ErrNoPatientProfile      = errors.New("no patient profile for user")
	ErrNoProfessionalProfile = errors.New("no professional profile for user")
	ErrSlotUnavailable       = errors.New("slot is no longer available")
	ErrAppointmentNotFound   = errors.New("appointment not found")
	ErrAlreadyFinalized      = errors.New("appointment already cancelled or completed")
)

// BookingRequest carries the caller-supplied fields of a booking.
type BookingRequest struct {
	SlotID          uuid.UUID
	PatientID       uuid.UUID
	AppointmentType string
	PatientNotes    *string
	DurationMinutes *int
}

// Repository contains all DB interactions needed by the booking engine, the
// lifecycle manager and the listing layer. Methods that mutate state own
// their transaction: either every write commits or none does.
type Repository interface {
	GetPatientIDByUser(ctx context.Context, userID uuid.UUID) (uuid.UUID, error)
	GetProfessionalIDByUser(ctx context.Context, userID uuid.UUID) (uuid.UUID, error)

	// BookSlot is the critical section. It locks the slot row with
	// FOR UPDATE filtered to is_booked = FALSE, inserts the appointment and
	// flips the slot, all in one transaction. A lock query returning zero
	// rows yields ErrSlotUnavailable.
	BookSlot(ctx context.Context, req BookingRequest) (*Appointment, error)

	// CancelAppointment transitions a scheduled appointment to cancelled and
	// releases the matching slot. The returned bool reports whether a slot
	// row was actually released.
	CancelAppointment(ctx context.Context, scope ParticipantScope, id uuid.UUID, reason *string) (*Appointment, bool, error)

	// CompleteAppointment transitions a scheduled appointment to completed.
	CompleteAppointment(ctx context.Context, scope ParticipantScope, id uuid.UUID) (*Appointment, error)

	// CompletePast marks scheduled appointments older than the cutoff as
	// completed and returns how many were transitioned.
	CompletePast(ctx context.Context, cutoff time.Time) (int, error)

	ListByScope(ctx context.Context, scope ParticipantScope, window Window, now time.Time) ([]Appointment, error)

	// Signaling support. SetConsultationLink only writes when no link is
	// stored yet; the returned bool reports whether this call won the write.
	// Racing minters both see false-or-true deterministically and the loser
	// re-reads the winner's link.
	GetScopedByID(ctx context.Context, scope ParticipantScope, id uuid.UUID) (*Appointment, error)
	SetConsultationLink(ctx context.Context, id uuid.UUID, link string) (bool, error)
	GetByConsultationLink(ctx context.Context, link string) (*Appointment, error)
}

package appointment

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

type Status string

const (
	StatusScheduled Status = "scheduled"
	StatusCompleted Status = "completed"
	StatusCancelled Status = "cancelled"
)

// Terminal reports whether no further transition is permitted from s.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusCancelled
}

// Window is a query-time filter over appointment time. "upcoming" and "past"
// are not stored statuses.
type Window string

const (
	WindowAll      Window = "all"
	WindowUpcoming Window = "upcoming"
	WindowPast     Window = "past"
)

func ParseWindow(s string) (Window, error) {
	switch s {
	case "":
		return WindowAll, nil
	case string(WindowUpcoming):
		return WindowUpcoming, nil
	case string(WindowPast):
		return WindowPast, nil
	default:
		return "", fmt.Errorf("unknown status filter %q", s)
	}
}

type Appointment struct {
	ID                 uuid.UUID
	PatientID          uuid.UUID
	ProfessionalID     uuid.UUID
	AppointmentTime    time.Time
	Status             Status
	AppointmentType    string
	ConsultationLink   *string
	PatientNotes       *string
	DurationMinutes    *int
	CancellationReason *string
	CancelledAt        *time.Time
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

// ParticipantScope restricts a query to appointments the caller participates
// in. Exactly one of the two fields is set.
type ParticipantScope struct {
	PatientID      *uuid.UUID
	ProfessionalID *uuid.UUID
}

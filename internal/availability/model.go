package availability

import (
	"time"

	"github.com/google/uuid"
)

// Slot is one bookable interval in a professional's calendar. Slots are
// created in bulk by the generator, claimed by the booking engine and released
// by cancellation; they are never deleted.
type Slot struct {
	ID             uuid.UUID
	ProfessionalID uuid.UUID
	SlotDate       time.Time
	StartTime      time.Time
	EndTime        time.Time
	IsBooked       bool
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// Recurrence is a weekly availability pattern materialized into concrete
// slots over a bounded horizon.
type Recurrence struct {
	DaysOfWeek          []string `json:"days_of_week"`
	StartTime           string   `json:"start_time"` // HH:MM:SS
	EndTime             string   `json:"end_time"`   // HH:MM:SS
	SlotDurationMinutes int      `json:"slot_duration_minutes"`
}

package availability

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

var (
	ErrNoProfessionalProfile = errors.New("no professional profile for user")
)

// Repository contains all DB interactions needed by the generator and the
// open-slot listing.
type Repository interface {
	// GetProfessionalIDByUser resolves the caller's professional profile.
	GetProfessionalIDByUser(ctx context.Context, userID uuid.UUID) (uuid.UUID, error)

	// InsertSlots writes the whole batch inside one transaction. A failure on
	// any row rolls the entire batch back.
	InsertSlots(ctx context.Context, slots []Slot) error

	// ListOpenSlots is an unlocked read; results may be stale by booking time.
	ListOpenSlots(ctx context.Context, professionalID uuid.UUID, from, to time.Time) ([]Slot, error)
}

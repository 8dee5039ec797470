package availability

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/vitalink/telemed-backend/internal/auth"
	"github.com/vitalink/telemed-backend/internal/metrics"
)

var (
	ErrRoleForbidden     = errors.New("only professionals may publish availability")
	ErrInvalidRecurrence = errors.New("invalid recurrence")
)

var weekdays = map[string]time.Weekday{
	"sunday":    time.Sunday,
	"monday":    time.Monday,
	"tuesday":   time.Tuesday,
	"wednesday": time.Wednesday,
	"thursday":  time.Thursday,
	"friday":    time.Friday,
	"saturday":  time.Saturday,
}

var timeOfDayPattern = regexp.MustCompile(`^([01]\d|2[0-3]):([0-5]\d):([0-5]\d)$`)

type Service struct {
	repo        Repository
	horizonDays int
	now         func() time.Time
}

func NewService(repo Repository, horizonDays int) *Service {
	return &Service{
		repo:        repo,
		horizonDays: horizonDays,
		now:         time.Now,
	}
}

// GenerateSlots materializes the recurrence into concrete slots over the
// configured horizon and inserts them as one atomic batch. It returns the
// number of slots created.
func (s *Service) GenerateSlots(ctx context.Context, ident auth.Identity, rec Recurrence) (int, error) {
	if ident.Role != auth.RoleProfessional {
		return 0, ErrRoleForbidden
	}

	days, startMin, endMin, err := validateRecurrence(rec)
	if err != nil {
		return 0, err
	}

	professionalID, err := s.repo.GetProfessionalIDByUser(ctx, ident.UserID)
	if err != nil {
		if errors.Is(err, ErrNoProfessionalProfile) {
			return 0, err
		}
		return 0, fmt.Errorf("resolve professional profile: %w", err)
	}

	today := s.now().UTC().Truncate(24 * time.Hour)
	slots := expand(professionalID, days, startMin, endMin, rec.SlotDurationMinutes, today, s.horizonDays)

	if len(slots) > 0 {
		if err := s.repo.InsertSlots(ctx, slots); err != nil {
			return 0, fmt.Errorf("insert slot batch: %w", err)
		}
	}

	metrics.SlotsGenerated.Add(float64(len(slots)))
	return len(slots), nil
}

// ListOpenSlots is the unlocked read side; staleness is resolved at booking
// time by the lock-and-recheck in the booking engine.
func (s *Service) ListOpenSlots(ctx context.Context, professionalID uuid.UUID, from, to time.Time) ([]Slot, error) {
	if to.IsZero() {
		to = from.Add(time.Duration(s.horizonDays) * 24 * time.Hour)
	}
	if !to.After(from) {
		return nil, fmt.Errorf("%w: empty time window", ErrInvalidRecurrence)
	}
	return s.repo.ListOpenSlots(ctx, professionalID, from, to)
}

func validateRecurrence(rec Recurrence) (map[time.Weekday]bool, int, int, error) {
	if len(rec.DaysOfWeek) == 0 {
		return nil, 0, 0, fmt.Errorf("%w: days_of_week must be a non-empty array", ErrInvalidRecurrence)
	}

	days := make(map[time.Weekday]bool, len(rec.DaysOfWeek))
	for _, name := range rec.DaysOfWeek {
		wd, ok := weekdays[strings.ToLower(name)]
		if !ok {
			return nil, 0, 0, fmt.Errorf("%w: unknown day of week %q", ErrInvalidRecurrence, name)
		}
		days[wd] = true
	}

	startMin, err := parseTimeOfDay(rec.StartTime)
	if err != nil {
		return nil, 0, 0, fmt.Errorf("%w: start_time %q", ErrInvalidRecurrence, rec.StartTime)
	}
	endMin, err := parseTimeOfDay(rec.EndTime)
	if err != nil {
		return nil, 0, 0, fmt.Errorf("%w: end_time %q", ErrInvalidRecurrence, rec.EndTime)
	}
	if startMin >= endMin {
		return nil, 0, 0, fmt.Errorf("%w: start_time must be before end_time", ErrInvalidRecurrence)
	}

	if rec.SlotDurationMinutes <= 0 || rec.SlotDurationMinutes > 24*60 {
		return nil, 0, 0, fmt.Errorf("%w: slot_duration_minutes must be in (0, 1440]", ErrInvalidRecurrence)
	}

	return days, startMin, endMin, nil
}

// parseTimeOfDay parses a strict HH:MM:SS wall-clock string into minutes
// since midnight. Seconds must be present but do not shift slot boundaries.
func parseTimeOfDay(v string) (int, error) {
	m := timeOfDayPattern.FindStringSubmatch(v)
	if m == nil {
		return 0, fmt.Errorf("malformed time of day %q", v)
	}
	hours, _ := strconv.Atoi(m[1])
	minutes, _ := strconv.Atoi(m[2])
	return hours*60 + minutes, nil
}

// expand enumerates every date in [today, today+horizonDays] whose weekday is
// requested and steps a cursor from start to end in duration increments. A
// trailing slot that would extend past the day's end is dropped, not
// truncated, so consecutive slots tile the window exactly.
func expand(professionalID uuid.UUID, days map[time.Weekday]bool, startMin, endMin, duration int, today time.Time, horizonDays int) []Slot {
	var slots []Slot
	for d := 0; d <= horizonDays; d++ {
		date := today.AddDate(0, 0, d)
		if !days[date.Weekday()] {
			continue
		}
		for cur := startMin; cur+duration <= endMin; cur += duration {
			start := date.Add(time.Duration(cur) * time.Minute)
			end := date.Add(time.Duration(cur+duration) * time.Minute)
			slots = append(slots, Slot{
				ID:             uuid.New(),
				ProfessionalID: professionalID,
				SlotDate:       date,
				StartTime:      start,
				EndTime:        end,
			})
		}
	}
	return slots
}

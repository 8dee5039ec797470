package appointment

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const appointmentColumns = `
	id, patient_id, professional_id, appointment_time, status, appointment_type,
	consultation_link, patient_notes, duration_minutes, cancellation_reason,
	cancelled_at, created_at, updated_at`

type PgRepository struct {
	pool *pgxpool.Pool
}

func NewPgRepository(pool *pgxpool.Pool) *PgRepository {
	return &PgRepository{pool: pool}
}

func scanAppointment(row pgx.Row) (*Appointment, error) {
	var a Appointment
	err := row.Scan(
		&a.ID,
		&a.PatientID,
		&a.ProfessionalID,
		&a.AppointmentTime,
		&a.Status,
		&a.AppointmentType,
		&a.ConsultationLink,
		&a.PatientNotes,
		&a.DurationMinutes,
		&a.CancellationReason,
		&a.CancelledAt,
		&a.CreatedAt,
		&a.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrAppointmentNotFound
		}
		return nil, err
	}
	return &a, nil
}

// scopeCondition renders the participant scope as a WHERE fragment. argPos is
// the placeholder index to use for the scope value.
func scopeCondition(scope ParticipantScope, argPos int) (string, uuid.UUID, error) {
	switch {
	case scope.PatientID != nil:
		return fmt.Sprintf("patient_id = $%d", argPos), *scope.PatientID, nil
	case scope.ProfessionalID != nil:
		return fmt.Sprintf("professional_id = $%d", argPos), *scope.ProfessionalID, nil
	default:
		return "", uuid.Nil, errors.New("empty participant scope")
	}
}

func (r *PgRepository) GetPatientIDByUser(ctx context.Context, userID uuid.UUID) (uuid.UUID, error) {
	var id uuid.UUID
	err := r.pool.QueryRow(ctx, `
		SELECT id FROM patients WHERE user_id = $1
	`, userID).Scan(&id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return uuid.Nil, ErrNoPatientProfile
		}
		return uuid.Nil, err
	}
	return id, nil
}

func (r *PgRepository) GetProfessionalIDByUser(ctx context.Context, userID uuid.UUID) (uuid.UUID, error) {
	var id uuid.UUID
	err := r.pool.QueryRow(ctx, `
		SELECT id FROM professionals WHERE user_id = $1
	`, userID).Scan(&id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return uuid.Nil, ErrNoProfessionalProfile
		}
		return uuid.Nil, err
	}
	return id, nil
}

// BookSlot serializes racing bookings on the slot's row lock. The second
// transaction to acquire the lock re-reads committed state, finds zero rows
// behind the is_booked filter and reports ErrSlotUnavailable.
func (r *PgRepository) BookSlot(ctx context.Context, req BookingRequest) (*Appointment, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin booking: %w", err)
	}
	defer tx.Rollback(ctx)

	var (
		professionalID uuid.UUID
		slotStart      time.Time
	)
	err = tx.QueryRow(ctx, `
		SELECT professional_id, start_time
		FROM availability_slots
		WHERE id = $1 AND is_booked = FALSE
		FOR UPDATE
	`, req.SlotID).Scan(&professionalID, &slotStart)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrSlotUnavailable
		}
		return nil, fmt.Errorf("lock slot: %w", err)
	}

	appt, err := scanAppointment(tx.QueryRow(ctx, `
		INSERT INTO appointments
			(id, patient_id, professional_id, appointment_time, status, appointment_type,
			 patient_notes, duration_minutes, created_at, updated_at)
		VALUES ($1, $2, $3, $4, 'scheduled', $5, $6, $7, now(), now())
		RETURNING`+appointmentColumns,
		uuid.New(), req.PatientID, professionalID, slotStart,
		req.AppointmentType, req.PatientNotes, req.DurationMinutes))
	if err != nil {
		return nil, fmt.Errorf("insert appointment: %w", err)
	}

	if _, err := tx.Exec(ctx, `
		UPDATE availability_slots
		SET is_booked = TRUE, updated_at = now()
		WHERE id = $1
	`, req.SlotID); err != nil {
		return nil, fmt.Errorf("mark slot booked: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit booking: %w", err)
	}
	return appt, nil
}

func (r *PgRepository) CancelAppointment(ctx context.Context, scope ParticipantScope, id uuid.UUID, reason *string) (*Appointment, bool, error) {
	cond, scopeArg, err := scopeCondition(scope, 2)
	if err != nil {
		return nil, false, err
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, false, fmt.Errorf("begin cancellation: %w", err)
	}
	defer tx.Rollback(ctx)

	current, err := scanAppointment(tx.QueryRow(ctx, `
		SELECT`+appointmentColumns+`
		FROM appointments
		WHERE id = $1 AND `+cond+`
		FOR UPDATE
	`, id, scopeArg))
	if err != nil {
		return nil, false, err
	}

	if current.Status.Terminal() {
		return nil, false, ErrAlreadyFinalized
	}

	updated, err := scanAppointment(tx.QueryRow(ctx, `
		UPDATE appointments
		SET status = 'cancelled',
		    cancellation_reason = $2,
		    cancelled_at = now(),
		    updated_at = now()
		WHERE id = $1
		RETURNING`+appointmentColumns, id, reason))
	if err != nil {
		return nil, false, fmt.Errorf("cancel appointment: %w", err)
	}

	tag, err := tx.Exec(ctx, `
		UPDATE availability_slots
		SET is_booked = FALSE, updated_at = now()
		WHERE professional_id = $1 AND start_time = $2 AND is_booked = TRUE
	`, updated.ProfessionalID, updated.AppointmentTime)
	if err != nil {
		return nil, false, fmt.Errorf("release slot: %w", err)
	}
	released := tag.RowsAffected() > 0

	if err := tx.Commit(ctx); err != nil {
		return nil, false, fmt.Errorf("commit cancellation: %w", err)
	}
	return updated, released, nil
}

func (r *PgRepository) CompleteAppointment(ctx context.Context, scope ParticipantScope, id uuid.UUID) (*Appointment, error) {
	cond, scopeArg, err := scopeCondition(scope, 2)
	if err != nil {
		return nil, err
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin completion: %w", err)
	}
	defer tx.Rollback(ctx)

	current, err := scanAppointment(tx.QueryRow(ctx, `
		SELECT`+appointmentColumns+`
		FROM appointments
		WHERE id = $1 AND `+cond+`
		FOR UPDATE
	`, id, scopeArg))
	if err != nil {
		return nil, err
	}

	if current.Status.Terminal() {
		return nil, ErrAlreadyFinalized
	}

	updated, err := scanAppointment(tx.QueryRow(ctx, `
		UPDATE appointments
		SET status = 'completed', updated_at = now()
		WHERE id = $1
		RETURNING`+appointmentColumns, id))
	if err != nil {
		return nil, fmt.Errorf("complete appointment: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit completion: %w", err)
	}
	return updated, nil
}

func (r *PgRepository) CompletePast(ctx context.Context, cutoff time.Time) (int, error) {
	tag, err := r.pool.Exec(ctx, `
		UPDATE appointments
		SET status = 'completed', updated_at = now()
		WHERE status = 'scheduled' AND appointment_time < $1
	`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("complete past appointments: %w", err)
	}
	return int(tag.RowsAffected()), nil
}

func (r *PgRepository) ListByScope(ctx context.Context, scope ParticipantScope, window Window, now time.Time) ([]Appointment, error) {
	cond, scopeArg, err := scopeCondition(scope, 1)
	if err != nil {
		return nil, err
	}

	query := `SELECT` + appointmentColumns + ` FROM appointments WHERE ` + cond
	args := []any{scopeArg}
	switch window {
	case WindowUpcoming:
		query += ` AND appointment_time >= $2`
		args = append(args, now)
	case WindowPast:
		query += ` AND appointment_time < $2`
		args = append(args, now)
	}
	query += ` ORDER BY appointment_time`

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []Appointment
	for rows.Next() {
		a, err := scanAppointment(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *a)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return result, nil
}

func (r *PgRepository) GetScopedByID(ctx context.Context, scope ParticipantScope, id uuid.UUID) (*Appointment, error) {
	cond, scopeArg, err := scopeCondition(scope, 2)
	if err != nil {
		return nil, err
	}
	return scanAppointment(r.pool.QueryRow(ctx, `
		SELECT`+appointmentColumns+`
		FROM appointments
		WHERE id = $1 AND `+cond,
		id, scopeArg))
}

// SetConsultationLink claims the link column the same way BookSlot claims a
// slot: the filter on the unset state makes the write conditional, so of two
// racing minters exactly one sees a row affected.
func (r *PgRepository) SetConsultationLink(ctx context.Context, id uuid.UUID, link string) (bool, error) {
	tag, err := r.pool.Exec(ctx, `
		UPDATE appointments
		SET consultation_link = $2, updated_at = now()
		WHERE id = $1 AND consultation_link IS NULL
	`, id, link)
	if err != nil {
		return false, fmt.Errorf("set consultation link: %w", err)
	}
	if tag.RowsAffected() > 0 {
		return true, nil
	}

	// Zero rows means either the appointment is gone or another caller
	// already attached a link.
	var exists bool
	err = r.pool.QueryRow(ctx, `
		SELECT EXISTS (SELECT 1 FROM appointments WHERE id = $1)
	`, id).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check appointment for link: %w", err)
	}
	if !exists {
		return false, ErrAppointmentNotFound
	}
	return false, nil
}

func (r *PgRepository) GetByConsultationLink(ctx context.Context, link string) (*Appointment, error) {
	return scanAppointment(r.pool.QueryRow(ctx, `
		SELECT`+appointmentColumns+`
		FROM appointments
		WHERE consultation_link = $1
	`, link))
}

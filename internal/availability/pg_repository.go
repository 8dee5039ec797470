package availability

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type PgRepository struct {
	pool *pgxpool.Pool
}

func NewPgRepository(pool *pgxpool.Pool) *PgRepository {
	return &PgRepository{pool: pool}
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

func (r *PgRepository) InsertSlots(ctx context.Context, slots []Slot) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin slot batch: %w", err)
	}
	defer tx.Rollback(ctx)

	for _, s := range slots {
		_, err := tx.Exec(ctx, `
			INSERT INTO availability_slots
				(id, professional_id, slot_date, start_time, end_time, is_booked, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, FALSE, now(), now())
		`, s.ID, s.ProfessionalID, s.SlotDate, s.StartTime, s.EndTime)
		if err != nil {
			return fmt.Errorf("insert slot %s: %w", s.ID, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit slot batch: %w", err)
	}
	return nil
}

func (r *PgRepository) ListOpenSlots(ctx context.Context, professionalID uuid.UUID, from, to time.Time) ([]Slot, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, professional_id, slot_date, start_time, end_time, is_booked, created_at, updated_at
		FROM availability_slots
		WHERE professional_id = $1
		  AND is_booked = FALSE
		  AND start_time >= $2
		  AND start_time < $3
		ORDER BY start_time
	`, professionalID, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []Slot
	for rows.Next() {
		var s Slot
		if err := rows.Scan(
			&s.ID,
			&s.ProfessionalID,
			&s.SlotDate,
			&s.StartTime,
			&s.EndTime,
			&s.IsBooked,
			&s.CreatedAt,
			&s.UpdatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, s)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return result, nil
}

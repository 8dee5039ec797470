package chat

import (
	"context"
	"errors"
	"fmt"

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

func scanSession(row pgx.Row) (*Session, error) {
	var s Session
	err := row.Scan(&s.ID, &s.PatientID, &s.StartedAt, &s.CrisisFlagged)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrSessionNotFound
		}
		return nil, err
	}
	return &s, nil
}

func scanMessage(row pgx.Row) (*Message, error) {
	var m Message
	if err := row.Scan(&m.ID, &m.SessionID, &m.Sender, &m.Body, &m.CreatedAt); err != nil {
		return nil, err
	}
	return &m, nil
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

func (r *PgRepository) CreateSession(ctx context.Context, patientID uuid.UUID) (*Session, error) {
	return scanSession(r.pool.QueryRow(ctx, `
		INSERT INTO chat_sessions (id, patient_id, started_at, crisis_flagged)
		VALUES ($1, $2, now(), FALSE)
		RETURNING id, patient_id, started_at, crisis_flagged
	`, uuid.New(), patientID))
}

func (r *PgRepository) GetSessionForPatient(ctx context.Context, sessionID, patientID uuid.UUID) (*Session, error) {
	return scanSession(r.pool.QueryRow(ctx, `
		SELECT id, patient_id, started_at, crisis_flagged
		FROM chat_sessions
		WHERE id = $1 AND patient_id = $2
	`, sessionID, patientID))
}

func (r *PgRepository) InsertMessage(ctx context.Context, sessionID uuid.UUID, sender Sender, body string) (*Message, error) {
	return scanMessage(r.pool.QueryRow(ctx, `
		INSERT INTO chat_messages (id, session_id, sender, body, created_at)
		VALUES ($1, $2, $3, $4, now())
		RETURNING id, session_id, sender, body, created_at
	`, uuid.New(), sessionID, sender, body))
}

func (r *PgRepository) ListMessages(ctx context.Context, sessionID uuid.UUID) ([]Message, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, session_id, sender, body, created_at
		FROM chat_messages
		WHERE session_id = $1
		ORDER BY created_at
	`, sessionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []Message
	for rows.Next() {
		m, err := scanMessage(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *m)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return result, nil
}

func (r *PgRepository) FlagCrisis(ctx context.Context, sessionID, patientID uuid.UUID, triggerMessageID *uuid.UUID) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin crisis flag: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `
		UPDATE chat_sessions SET crisis_flagged = TRUE WHERE id = $1
	`, sessionID); err != nil {
		return fmt.Errorf("flag session: %w", err)
	}

	if _, err := tx.Exec(ctx, `
		INSERT INTO crisis_interventions (id, session_id, patient_id, trigger_message_id, created_at)
		VALUES ($1, $2, $3, $4, now())
	`, uuid.New(), sessionID, patientID, triggerMessageID); err != nil {
		return fmt.Errorf("record intervention: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit crisis flag: %w", err)
	}
	return nil
}

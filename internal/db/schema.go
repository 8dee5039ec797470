package db

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Migrate applies the schema idempotently. Statements run in order inside a
// single transaction so a partially created schema is never left behind.
func Migrate(ctx context.Context, pool *pgxpool.Pool) error {
	tx, err := pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin migration: %w", err)
	}
	defer tx.Rollback(ctx)

	for i, stmt := range schemaStatements {
		if _, err := tx.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("migration statement %d: %w", i, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit migration: %w", err)
	}
	return nil
}

var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id         UUID PRIMARY KEY,
		email      TEXT NOT NULL UNIQUE,
		full_name  TEXT NOT NULL,
		role       TEXT NOT NULL CHECK (role IN ('patient', 'professional', 'admin')),
		created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE TABLE IF NOT EXISTS patients (
		id            UUID PRIMARY KEY,
		user_id       UUID NOT NULL UNIQUE REFERENCES users(id),
		date_of_birth DATE,
		created_at    TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at    TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE TABLE IF NOT EXISTS professionals (
		id         UUID PRIMARY KEY,
		user_id    UUID NOT NULL UNIQUE REFERENCES users(id),
		specialty  TEXT,
		bio        TEXT,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE TABLE IF NOT EXISTS availability_slots (
		id              UUID PRIMARY KEY,
		professional_id UUID NOT NULL REFERENCES professionals(id),
		slot_date       DATE NOT NULL,
		start_time      TIMESTAMPTZ NOT NULL,
		end_time        TIMESTAMPTZ NOT NULL,
		is_booked       BOOLEAN NOT NULL DEFAULT FALSE,
		created_at      TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at      TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_slots_professional_date
		ON availability_slots (professional_id, slot_date)`,
	`CREATE INDEX IF NOT EXISTS idx_slots_open
		ON availability_slots (professional_id, start_time) WHERE NOT is_booked`,
	`CREATE TABLE IF NOT EXISTS appointments (
		id                  UUID PRIMARY KEY,
		patient_id          UUID NOT NULL REFERENCES patients(id),
		professional_id     UUID NOT NULL REFERENCES professionals(id),
		appointment_time    TIMESTAMPTZ NOT NULL,
		status              TEXT NOT NULL CHECK (status IN ('scheduled', 'completed', 'cancelled')),
		appointment_type    TEXT NOT NULL DEFAULT 'video',
		consultation_link   TEXT,
		patient_notes       TEXT,
		duration_minutes    INT,
		cancellation_reason TEXT,
		cancelled_at        TIMESTAMPTZ,
		created_at          TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at          TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_appointments_patient
		ON appointments (patient_id, appointment_time)`,
	`CREATE INDEX IF NOT EXISTS idx_appointments_professional
		ON appointments (professional_id, appointment_time)`,
	`CREATE TABLE IF NOT EXISTS chat_sessions (
		id            UUID PRIMARY KEY,
		patient_id    UUID NOT NULL REFERENCES patients(id),
		started_at    TIMESTAMPTZ NOT NULL DEFAULT now(),
		crisis_flagged BOOLEAN NOT NULL DEFAULT FALSE
	)`,
	`CREATE TABLE IF NOT EXISTS chat_messages (
		id         UUID PRIMARY KEY,
		session_id UUID NOT NULL REFERENCES chat_sessions(id),
		sender     TEXT NOT NULL CHECK (sender IN ('patient', 'assistant')),
		body       TEXT NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_chat_messages_session
		ON chat_messages (session_id, created_at)`,
	`CREATE TABLE IF NOT EXISTS crisis_interventions (
		id                 UUID PRIMARY KEY,
		session_id         UUID NOT NULL REFERENCES chat_sessions(id),
		patient_id         UUID NOT NULL REFERENCES patients(id),
		trigger_message_id UUID REFERENCES chat_messages(id),
		created_at         TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
}

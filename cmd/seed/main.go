package main

import (
	"context"
	"log"
	"os"
	"time"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/vitalink/telemed-backend/internal/db"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)
	log.Println("seed starting")

	dsn := os.Getenv("POSTGRES_DSN")
	if dsn == "" {
		log.Fatal("POSTGRES_DSN is required")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := db.ConnectPostgres(ctx, dsn, 4)
	if err != nil {
		log.Fatalf("connect postgres: %v", err)
	}
	defer pool.Close()

	if err := db.Migrate(context.Background(), pool); err != nil {
		log.Fatalf("migrate: %v", err)
	}

	gofakeit.Seed(time.Now().UnixNano())

	professionalIDs, err := seedProfessionals(context.Background(), pool, 50)
	if err != nil {
		log.Fatalf("seed professionals: %v", err)
	}
	if err := seedPatients(context.Background(), pool, 500); err != nil {
		log.Fatalf("seed patients: %v", err)
	}
	if err := seedSlots(context.Background(), pool, professionalIDs); err != nil {
		log.Fatalf("seed slots: %v", err)
	}

	log.Println("seed complete")
}

var specialties = []string{
	"Dermatology",
	"Cardiology",
	"General Practice",
	"Endocrinology",
	"Neurology",
	"Pediatrics",
	"Psychiatry",
	"Ophthalmology",
}

func seedProfessionals(ctx context.Context, pool *pgxpool.Pool, count int) ([]uuid.UUID, error) {
	log.Printf("seeding %d professionals", count)

	tx, err := pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	ids := make([]uuid.UUID, 0, count)
	for i := 0; i < count; i++ {
		userID := uuid.New()
		profID := uuid.New()

		_, err := tx.Exec(ctx, `
			INSERT INTO users (id, email, full_name, role, created_at, updated_at)
			VALUES ($1, $2, $3, 'professional', now(), now())
		`, userID, gofakeit.Email(), gofakeit.Name())
		if err != nil {
			return nil, err
		}

		spec := specialties[gofakeit.Number(0, len(specialties)-1)]
		_, err = tx.Exec(ctx, `
			INSERT INTO professionals (id, user_id, specialty, bio, created_at, updated_at)
			VALUES ($1, $2, $3, $4, now(), now())
		`, profID, userID, spec, gofakeit.Sentence(12))
		if err != nil {
			return nil, err
		}

		ids = append(ids, profID)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return ids, nil
}

func seedPatients(ctx context.Context, pool *pgxpool.Pool, count int) error {
	log.Printf("seeding %d patients", count)

	tx, err := pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	for i := 0; i < count; i++ {
		userID := uuid.New()

		_, err := tx.Exec(ctx, `
			INSERT INTO users (id, email, full_name, role, created_at, updated_at)
			VALUES ($1, $2, $3, 'patient', now(), now())
		`, userID, gofakeit.Email(), gofakeit.Name())
		if err != nil {
			return err
		}

		dob := gofakeit.DateRange(
			time.Date(1940, 1, 1, 0, 0, 0, 0, time.UTC),
			time.Date(2007, 12, 31, 0, 0, 0, 0, time.UTC),
		)
		_, err = tx.Exec(ctx, `
			INSERT INTO patients (id, user_id, date_of_birth, created_at, updated_at)
			VALUES ($1, $2, $3, now(), now())
		`, uuid.New(), userID, dob)
		if err != nil {
			return err
		}
	}

	return tx.Commit(ctx)
}

// seedSlots gives every professional two weeks of hourly weekday slots.
func seedSlots(ctx context.Context, pool *pgxpool.Pool, professionalIDs []uuid.UUID) error {
	log.Printf("seeding slots for %d professionals", len(professionalIDs))

	tx, err := pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	today := time.Now().UTC().Truncate(24 * time.Hour)
	total := 0
	for _, profID := range professionalIDs {
		for d := 1; d <= 14; d++ {
			date := today.AddDate(0, 0, d)
			if date.Weekday() == time.Saturday || date.Weekday() == time.Sunday {
				continue
			}
			for hour := 9; hour < 17; hour++ {
				start := date.Add(time.Duration(hour) * time.Hour)
				end := start.Add(time.Hour)
				_, err := tx.Exec(ctx, `
					INSERT INTO availability_slots
						(id, professional_id, slot_date, start_time, end_time, is_booked, created_at, updated_at)
					VALUES ($1, $2, $3, $4, $5, FALSE, now(), now())
				`, uuid.New(), profID, date, start, end)
				if err != nil {
					return err
				}
				total++
			}
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return err
	}
	log.Printf("seeded %d slots", total)
	return nil
}

// simulate drives concurrent booking traffic against a running api-server and
// reports how races resolved. Every slot should be won exactly once; the rest
// of the contenders must see a conflict.
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log"
	"math/rand"
	"net/http"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/vitalink/telemed-backend/internal/config"
	"github.com/vitalink/telemed-backend/internal/db"
)

type simConfig struct {
	APIBaseURL string
	Duration   time.Duration
	Workers    int
}

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config load error: %v", err)
	}

	sim := simConfig{
		APIBaseURL: getEnv("SIM_API_URL", "http://127.0.0.1:"+cfg.HTTPPort),
		Duration:   30 * time.Second,
		Workers:    16,
	}
	if v := os.Getenv("SIM_DURATION"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			sim.Duration = d
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	pool, err := db.ConnectPostgres(ctx, cfg.PostgresDSN, int32(cfg.PGMaxConns))
	cancel()
	if err != nil {
		log.Fatalf("connect postgres: %v", err)
	}
	defer pool.Close()

	patients, err := loadPatientUsers(context.Background(), pool, 200)
	if err != nil {
		log.Fatalf("load patients: %v", err)
	}
	slots, err := loadOpenSlots(context.Background(), pool, 500)
	if err != nil {
		log.Fatalf("load slots: %v", err)
	}
	if len(patients) == 0 || len(slots) == 0 {
		log.Fatal("need seeded patients and open slots; run cmd/seed first")
	}

	log.Printf("simulating: %d workers, %d patients, %d slots, %s",
		sim.Workers, len(patients), len(slots), sim.Duration)

	var booked, conflicts, failures atomic.Int64

	deadline := time.Now().Add(sim.Duration)
	var wg sync.WaitGroup
	for w := 0; w < sim.Workers; w++ {
		wg.Add(1)
		go func(seed int64) {
			defer wg.Done()
			rng := rand.New(rand.NewSource(seed))
			client := &http.Client{Timeout: 10 * time.Second}

			for time.Now().Before(deadline) {
				patient := patients[rng.Intn(len(patients))]
				slot := slots[rng.Intn(len(slots))]

				status, err := book(client, sim.APIBaseURL, cfg.JWTSecret, patient, slot)
				switch {
				case err != nil:
					failures.Add(1)
				case status == http.StatusCreated:
					booked.Add(1)
				case status == http.StatusConflict:
					conflicts.Add(1)
				default:
					failures.Add(1)
				}
			}
		}(int64(w) + time.Now().UnixNano())
	}
	wg.Wait()

	log.Printf("done: booked=%d conflicts=%d failures=%d", booked.Load(), conflicts.Load(), failures.Load())
	if int(booked.Load()) > len(slots) {
		log.Fatalf("INVARIANT VIOLATED: %d bookings for %d slots", booked.Load(), len(slots))
	}
}

func book(client *http.Client, baseURL, secret string, patientUserID, slotID uuid.UUID) (int, error) {
	token, err := mintToken(secret, patientUserID)
	if err != nil {
		return 0, err
	}

	body, _ := json.Marshal(map[string]string{"slotId": slotID.String()})
	req, err := http.NewRequest(http.MethodPost, baseURL+"/api/appointments", bytes.NewReader(body))
	if err != nil {
		return 0, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := client.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()
	return resp.StatusCode, nil
}

func mintToken(secret string, userID uuid.UUID) (string, error) {
	claims := jwt.MapClaims{
		"sub":  userID.String(),
		"role": "patient",
		"exp":  time.Now().Add(time.Hour).Unix(),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
}

func loadPatientUsers(ctx context.Context, pool *pgxpool.Pool, limit int) ([]uuid.UUID, error) {
	rows, err := pool.Query(ctx, `
		SELECT u.id
		FROM users u
		JOIN patients p ON p.user_id = u.id
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("query patient users: %w", err)
	}
	defer rows.Close()

	var ids []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func loadOpenSlots(ctx context.Context, pool *pgxpool.Pool, limit int) ([]uuid.UUID, error) {
	rows, err := pool.Query(ctx, `
		SELECT id FROM availability_slots WHERE is_booked = FALSE LIMIT $1
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("query open slots: %w", err)
	}
	defer rows.Close()

	var ids []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

package main

import (
	"context"
	"encoding/json"
	"log"
	"os"
	"time"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/calmline/therapy-booking/internal/booking"
	"github.com/calmline/therapy-booking/internal/db"
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

	pool, err := db.ConnectPostgres(ctx, dsn)
	if err != nil {
		log.Fatalf("connect postgres: %v", err)
	}
	defer pool.Close()

	gofakeit.Seed(time.Now().UnixNano())

	providerIDs, err := seedProviders(context.Background(), pool, 50)
	if err != nil {
		log.Fatalf("seed providers: %v", err)
	}
	if err := seedSchedules(context.Background(), pool, providerIDs); err != nil {
		log.Fatalf("seed schedules: %v", err)
	}
	if err := seedClients(context.Background(), pool, 2000); err != nil {
		log.Fatalf("seed clients: %v", err)
	}

	log.Println("seed complete")
}

func seedProviders(ctx context.Context, pool *pgxpool.Pool, count int) ([]uuid.UUID, error) {
	log.Printf("seeding %d providers", count)

	specialties := []string{
		"Cognitive Behavioral Therapy",
		"Family Therapy",
		"Trauma Therapy",
		"Child and Adolescent Therapy",
		"Couples Counseling",
		"Addiction Counseling",
		"Grief Counseling",
		"Anxiety and Depression",
	}

	tx, err := pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	ids := make([]uuid.UUID, 0, count)
	for i := 0; i < count; i++ {
		id := uuid.New()
		name := gofakeit.Name()
		spec := specialties[gofakeit.Number(0, len(specialties)-1)]
		// 40 to 120 dollars per session
		price := int64(gofakeit.Number(40, 120)) * 100

		_, err := tx.Exec(ctx, `
			INSERT INTO providers (id, name, specialty, session_price_cents, created_at, updated_at)
			VALUES ($1, $2, $3, $4, now(), now())
		`, id, name, spec, price)
		if err != nil {
			return nil, err
		}

		ids = append(ids, id)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}

	log.Println("providers seeded")
	return ids, nil
}

func seedSchedules(ctx context.Context, pool *pgxpool.Pool, providerIDs []uuid.UUID) error {
	log.Printf("seeding schedules for %d providers", len(providerIDs))

	morning := booking.TimeBlock{Start: "09:00", End: "12:00"}
	afternoon := booking.TimeBlock{Start: "13:00", End: "17:30"}
	evening := booking.TimeBlock{Start: "17:00", End: "20:00"}

	tx, err := pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	for _, providerID := range providerIDs {
		for weekday := time.Sunday; weekday <= time.Saturday; weekday++ {
			weekend := weekday == time.Sunday || weekday == time.Saturday
			enabled := !weekend || gofakeit.Bool()

			var blocks []booking.TimeBlock
			if enabled {
				switch gofakeit.Number(0, 2) {
				case 0:
					blocks = []booking.TimeBlock{morning, afternoon}
				case 1:
					blocks = []booking.TimeBlock{morning}
				default:
					blocks = []booking.TimeBlock{evening}
				}
			}

			blocksJSON, err := json.Marshal(blocks)
			if err != nil {
				return err
			}

			_, err = tx.Exec(ctx, `
				INSERT INTO schedule_days (provider_id, weekday, enabled, time_blocks, updated_at)
				VALUES ($1, $2, $3, $4, now())
			`, providerID, int16(weekday), enabled, blocksJSON)
			if err != nil {
				return err
			}
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return err
	}

	log.Println("schedules seeded")
	return nil
}

func seedClients(ctx context.Context, pool *pgxpool.Pool, count int) error {
	log.Printf("seeding %d clients", count)

	const batchSize = 500

	for offset := 0; offset < count; offset += batchSize {
		end := offset + batchSize
		if end > count {
			end = count
		}

		tx, err := pool.Begin(ctx)
		if err != nil {
			return err
		}

		for i := offset; i < end; i++ {
			id := uuid.New()
			name := gofakeit.Name()
			email := gofakeit.Email()

			_, err := tx.Exec(ctx, `
				INSERT INTO clients (id, name, email, created_at, updated_at)
				VALUES ($1, $2, $3, now(), now())
			`, id, name, email)
			if err != nil {
				_ = tx.Rollback(ctx)
				return err
			}
		}

		if err := tx.Commit(ctx); err != nil {
			return err
		}

		log.Printf("clients seeded: %d/%d", end, count)
	}

	log.Println("clients seeded")
	return nil
}

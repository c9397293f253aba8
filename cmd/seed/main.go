package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/hackgods/clinic-booking/internal/db"
	"github.com/hackgods/clinic-booking/internal/timeslot"
)

var specializations = []string{
	"Dermatology",
	"Cardiology",
	"General Practice",
	"Orthopedics",
	"Endocrinology",
	"Neurology",
	"Pediatrics",
	"Psychiatry",
	"Ophthalmology",
	"ENT",
}

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)
	log.Println("seed starting")

	dsn := os.Getenv("POSTGRES_DSN")
	if dsn == "" {
		log.Fatal("POSTGRES_DSN is required")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	pool, err := db.ConnectPostgres(ctx, dsn, 4)
	if err != nil {
		log.Fatalf("connect postgres: %v", err)
	}
	defer pool.Close()

	if _, err := db.Migrate(ctx, pool); err != nil {
		log.Fatalf("migrate: %v", err)
	}

	if err := gofakeit.Seed(time.Now().UnixNano()); err != nil {
		log.Fatalf("seed faker: %v", err)
	}

	if err := seedAdmin(ctx, pool); err != nil {
		log.Fatalf("seed admin: %v", err)
	}
	if err := seedClinics(ctx, pool, 20, 5); err != nil {
		log.Fatalf("seed clinics: %v", err)
	}
	if err := seedPatients(ctx, pool, 2000); err != nil {
		log.Fatalf("seed patients: %v", err)
	}

	log.Println("seed complete")
}

func seedAdmin(ctx context.Context, pool *pgxpool.Pool) error {
	email := os.Getenv("SEED_ADMIN_EMAIL")
	if email == "" {
		email = "admin@example.com"
	}
	_, err := pool.Exec(ctx, `
		INSERT INTO users (id, email, role, status, created_at)
		VALUES ($1, $2, 'admin', 'approved', now())
		ON CONFLICT (id) DO NOTHING
	`, "seed-admin", email)
	if err != nil {
		return err
	}
	log.Printf("admin seeded: id=seed-admin email=%s", email)
	return nil
}

// seedClinics creates approved clinics with a profile, doctors, a week of
// default slots and a queue, plus a few clinics still awaiting review.
func seedClinics(ctx context.Context, pool *pgxpool.Pool, approved, pending int) error {
	log.Printf("seeding %d approved and %d pending clinics", approved, pending)

	tx, err := pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	today := timeslot.StartOfDay(time.Now(), time.UTC)

	for i := 0; i < approved+pending; i++ {
		id := "seed-clinic-" + uuid.NewString()
		status := "approved"
		if i >= approved {
			status = "pending"
		}

		_, err := tx.Exec(ctx, `
			INSERT INTO users (id, email, role, status, created_at)
			VALUES ($1, $2, 'clinic', $3, now())
		`, id, gofakeit.Email(), status)
		if err != nil {
			return err
		}

		if err := insertProfile(ctx, tx, id, i); err != nil {
			return err
		}
		if status != "approved" {
			continue
		}

		for d := 0; d < gofakeit.Number(1, 4); d++ {
			_, err := tx.Exec(ctx, `
				INSERT INTO doctors (id, clinic_id, name, specializations, description, created_at, updated_at)
				VALUES ($1, $2, $3, $4, $5, now(), now())
			`, uuid.New(), id, "Dr. "+gofakeit.Name(), pickSpecializations(), gofakeit.Slogan())
			if err != nil {
				return err
			}
		}

		for day := 0; day < 7; day++ {
			date := today.AddDate(0, 0, day)
			slots, err := timeslot.GenerateDefaultSlots(date, 9, 17, 30)
			if err != nil {
				return err
			}
			_, err = tx.Exec(ctx, `
				INSERT INTO time_slots (id, clinic_id, date, slots, created_at, updated_at)
				VALUES ($1, $2, $3, $4, now(), now())
			`, uuid.New(), id, date, slots)
			if err != nil {
				return err
			}
		}

		_, err = tx.Exec(ctx, `
			INSERT INTO queue_status (id, clinic_id, estimated_wait_time, current_number, next_number, updated_at)
			VALUES ($1, $2, $3, 0, 1, now())
		`, uuid.New(), id, gofakeit.Number(10, 25))
		if err != nil {
			return err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return err
	}

	log.Println("clinics seeded")
	return nil
}

func insertProfile(ctx context.Context, tx pgx.Tx, clinicID string, n int) error {
	addr := gofakeit.Address()
	description := gofakeit.Slogan()
	hours := "Mon-Fri 09:00-17:00"

	_, err := tx.Exec(ctx, `
		INSERT INTO clinic_profiles (
			clinic_id, name, address, phone, email, description, specializations,
			is_available, opening_hours, created_at, updated_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, now(), now())
	`,
		clinicID,
		// names are unique; the suffix keeps reruns and collisions apart
		fmt.Sprintf("%s Clinic %d", gofakeit.Company(), n+1),
		addr.Address,
		gofakeit.Phone(),
		gofakeit.Email(),
		description,
		pickSpecializations(),
		gofakeit.Number(0, 9) > 0,
		hours,
	)
	return err
}

func pickSpecializations() []string {
	n := gofakeit.Number(1, 3)
	seen := make(map[string]bool, n)
	out := make([]string, 0, n)
	for len(out) < n {
		s := specializations[gofakeit.Number(0, len(specializations)-1)]
		if !seen[s] {
			seen[s] = true
			out = append(out, s)
		}
	}
	return out
}

func seedPatients(ctx context.Context, pool *pgxpool.Pool, count int) error {
	log.Printf("seeding %d patients", count)

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
			_, err := tx.Exec(ctx, `
				INSERT INTO users (id, email, role, status, created_at)
				VALUES ($1, $2, 'patient', 'approved', now())
			`, "seed-patient-"+uuid.NewString(), gofakeit.Email())
			if err != nil {
				_ = tx.Rollback(ctx)
				return err
			}
		}

		if err := tx.Commit(ctx); err != nil {
			return err
		}

		log.Printf("patients seeded: %d/%d", end, count)
	}

	log.Println("patients seeded")
	return nil
}

package timeslot

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

func scanTimeSlot(row pgx.Row) (*TimeSlot, error) {
	var ts TimeSlot
	err := row.Scan(&ts.ID, &ts.ClinicID, &ts.Date, &ts.Slots, &ts.CreatedAt, &ts.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrTimeSlotNotFound
		}
		return nil, err
	}
	return &ts, nil
}

func (r *PgRepository) Get(ctx context.Context, clinicID string, day time.Time) (*TimeSlot, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT id, clinic_id, date, slots, created_at, updated_at
		FROM time_slots
		WHERE clinic_id = $1 AND date = $2
	`, clinicID, day)
	return scanTimeSlot(row)
}

func (r *PgRepository) Upsert(ctx context.Context, clinicID string, day time.Time, slots []time.Time) (*TimeSlot, error) {
	if slots == nil {
		slots = []time.Time{}
	}
	row := r.pool.QueryRow(ctx, `
		INSERT INTO time_slots (id, clinic_id, date, slots, created_at, updated_at)
		VALUES ($1, $2, $3, $4, now(), now())
		ON CONFLICT (clinic_id, date)
		DO UPDATE SET slots = EXCLUDED.slots, updated_at = now()
		RETURNING id, clinic_id, date, slots, created_at, updated_at
	`, uuid.New(), clinicID, day, slots)

	ts, err := scanTimeSlot(row)
	if err != nil {
		return nil, fmt.Errorf("upsert time slots: %w", err)
	}
	return ts, nil
}

func (r *PgRepository) List(ctx context.Context, clinicID string, from, to *time.Time) ([]TimeSlot, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, clinic_id, date, slots, created_at, updated_at
		FROM time_slots
		WHERE clinic_id = $1
		  AND ($2::timestamptz IS NULL OR $3::timestamptz IS NULL OR (date >= $2 AND date < $3))
		ORDER BY date
	`, clinicID, from, to)
	if err != nil {
		return nil, fmt.Errorf("list time slots: %w", err)
	}
	defer rows.Close()

	var result []TimeSlot
	for rows.Next() {
		ts, err := scanTimeSlot(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *ts)
	}
	return result, rows.Err()
}

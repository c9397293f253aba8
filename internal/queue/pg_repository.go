package queue

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const queueColumns = `id, clinic_id, estimated_wait_time, current_number, next_number, updated_at`

type PgRepository struct {
	pool *pgxpool.Pool
}

func NewPgRepository(pool *pgxpool.Pool) *PgRepository {
	return &PgRepository{pool: pool}
}

func scanQueue(row pgx.Row) (*QueueStatus, error) {
	var q QueueStatus
	err := row.Scan(&q.ID, &q.ClinicID, &q.EstimatedWaitTime, &q.CurrentNumber, &q.NextNumber, &q.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrQueueNotFound
		}
		return nil, err
	}
	return &q, nil
}

func (r *PgRepository) Get(ctx context.Context, clinicID string) (*QueueStatus, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+queueColumns+`
		FROM queue_status
		WHERE clinic_id = $1
	`, clinicID)
	return scanQueue(row)
}

func (r *PgRepository) Upsert(ctx context.Context, clinicID string, in QueueInput) (*QueueStatus, error) {
	row := r.pool.QueryRow(ctx, `
		INSERT INTO queue_status (id, clinic_id, estimated_wait_time, current_number, next_number, updated_at)
		VALUES ($1, $2, $3, $4, $5, now())
		ON CONFLICT (clinic_id)
		DO UPDATE SET
			estimated_wait_time = EXCLUDED.estimated_wait_time,
			current_number      = EXCLUDED.current_number,
			next_number         = EXCLUDED.next_number,
			updated_at          = now()
		RETURNING `+queueColumns,
		uuid.New(), clinicID, in.EstimatedWaitTime, in.CurrentNumber, in.NextNumber,
	)

	q, err := scanQueue(row)
	if err != nil {
		return nil, fmt.Errorf("upsert queue status: %w", err)
	}
	return q, nil
}

func (r *PgRepository) Advance(ctx context.Context, clinicID string) (*QueueStatus, error) {
	row := r.pool.QueryRow(ctx, `
		INSERT INTO queue_status (id, clinic_id, estimated_wait_time, current_number, next_number, updated_at)
		VALUES ($1, $2, $3, $4, $5, now())
		ON CONFLICT (clinic_id)
		DO UPDATE SET
			current_number = queue_status.next_number,
			next_number    = queue_status.next_number + 1,
			updated_at     = now()
		RETURNING `+queueColumns,
		uuid.New(), clinicID, DefaultEstimatedWait, DefaultNextNumber, DefaultNextNumber+1,
	)

	q, err := scanQueue(row)
	if err != nil {
		return nil, fmt.Errorf("advance queue: %w", err)
	}
	return q, nil
}

package queue

import (
	"context"

	"github.com/hackgods/clinic-booking/internal/apperr"
)

var ErrQueueNotFound = apperr.New(apperr.KindNotFound, "queue status not found")

type Repository interface {
	Get(ctx context.Context, clinicID string) (*QueueStatus, error)
	// Upsert overwrites every counter field.
	Upsert(ctx context.Context, clinicID string, in QueueInput) (*QueueStatus, error)
	// Advance moves current to next and bumps next in one statement,
	// creating the row from the defaults when absent.
	Advance(ctx context.Context, clinicID string) (*QueueStatus, error)
}

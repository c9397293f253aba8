package timeslot

import (
	"context"
	"time"

	"github.com/hackgods/clinic-booking/internal/apperr"
)

var ErrTimeSlotNotFound = apperr.New(apperr.KindNotFound, "no time slots for that day")

type Repository interface {
	Get(ctx context.Context, clinicID string, day time.Time) (*TimeSlot, error)
	// Upsert replaces the slot list for (clinicID, day), creating the
	// record when absent.
	Upsert(ctx context.Context, clinicID string, day time.Time, slots []time.Time) (*TimeSlot, error)
	// List returns the clinic's records, limited to [from, to) when both
	// bounds are non-nil.
	List(ctx context.Context, clinicID string, from, to *time.Time) ([]TimeSlot, error)
}

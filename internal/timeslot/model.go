package timeslot

import (
	"time"

	"github.com/google/uuid"
)

// TimeSlot is one clinic's list of offered start times for one day.
type TimeSlot struct {
	ID        uuid.UUID   `json:"id"`
	ClinicID  string      `json:"clinicId"`
	Date      time.Time   `json:"date"` // local midnight
	Slots     []time.Time `json:"slots"`
	CreatedAt time.Time   `json:"createdAt"`
	UpdatedAt time.Time   `json:"updatedAt"`
}

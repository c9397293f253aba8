package api

import (
	"time"

	"github.com/hackgods/clinic-booking/internal/appointment"
	"github.com/hackgods/clinic-booking/internal/identity"
)

type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

type OnboardRequest struct {
	Role identity.Role `json:"role"`
}

type ClinicStatusRequest struct {
	Status identity.Status `json:"status"`
}

type AvailabilityRequest struct {
	IsAvailable      bool    `json:"isAvailable"`
	AvailabilityNote *string `json:"availabilityNote,omitempty"`
}

type NameAvailableResponse struct {
	Name      string `json:"name"`
	Available bool   `json:"available"`
}

// SetSlotsRequest carries a calendar day as YYYY-MM-DD and the slot start
// times as RFC 3339.
type SetSlotsRequest struct {
	Date  string      `json:"date"`
	Slots []time.Time `json:"slots"`
}

// GenerateSlotsRequest omitted fields fall back to 9 to 17 every 30
// minutes.
type GenerateSlotsRequest struct {
	Date            string `json:"date"`
	StartHour       *int   `json:"startHour,omitempty"`
	EndHour         *int   `json:"endHour,omitempty"`
	IntervalMinutes *int   `json:"intervalMinutes,omitempty"`
}

type AvailableSlotsResponse struct {
	ClinicID string      `json:"clinicId"`
	Date     string      `json:"date"`
	Slots    []time.Time `json:"slots"`
}

type StatusUpdateRequest struct {
	Status appointment.AppointmentStatus `json:"status"`
	Notes  *string                       `json:"notes,omitempty"`
}

type MarkReadResponse struct {
	Marked int `json:"marked"`
}

type DeletedResponse struct {
	ID      string `json:"id"`
	Deleted bool   `json:"deleted"`
}

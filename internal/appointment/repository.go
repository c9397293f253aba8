package appointment

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/hackgods/clinic-booking/internal/apperr"
)

var (
	ErrAppointmentNotFound = apperr.New(apperr.KindNotFound, "appointment not found")
	ErrSlotTaken           = apperr.New(apperr.KindConflict, "an approved appointment already holds that time")
)

// Repository contains all DB interactions needed by the service.
type Repository interface {
	GetAppointment(ctx context.Context, id uuid.UUID) (*Appointment, error)
	CreateAppointment(ctx context.Context, a Appointment) (*Appointment, error)
	// UpdateStatus moves id from -> to and overwrites notes. It returns
	// ErrAppointmentNotFound when the row is no longer in from, and
	// ErrSlotTaken when approving would collide with another approval.
	UpdateStatus(ctx context.Context, id uuid.UUID, from, to AppointmentStatus, notes *string) (*Appointment, error)

	ListByClinic(ctx context.Context, clinicID string, status *AppointmentStatus) ([]Appointment, error)
	ListByPatient(ctx context.Context, patientID string, status *AppointmentStatus) ([]Appointment, error)

	// For conflict checks and availability
	HasApprovedAt(ctx context.Context, clinicID string, date time.Time) (bool, error)
	ApprovedTimes(ctx context.Context, clinicID string, from, to time.Time) ([]time.Time, error)
	ApprovedForPatient(ctx context.Context, patientID, clinicID string, from, to time.Time) ([]Appointment, error)

	// Event logging
	InsertEvent(ctx context.Context, ev EventLog) error
}

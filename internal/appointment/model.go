package appointment

import (
	"time"

	"github.com/google/uuid"
)

type AppointmentStatus string

const (
	StatusPending   AppointmentStatus = "pending"
	StatusApproved  AppointmentStatus = "approved"
	StatusDeclined  AppointmentStatus = "declined"
	StatusCompleted AppointmentStatus = "completed"
	StatusCanceled  AppointmentStatus = "canceled"
)

// transitions lists every legal status change. Statuses without an entry
// are terminal.
var transitions = map[AppointmentStatus][]AppointmentStatus{
	StatusPending:  {StatusApproved, StatusDeclined, StatusCanceled},
	StatusApproved: {StatusCompleted, StatusCanceled},
}

func (s AppointmentStatus) Valid() bool {
	switch s {
	case StatusPending, StatusApproved, StatusDeclined, StatusCompleted, StatusCanceled:
		return true
	}
	return false
}

func (s AppointmentStatus) CanTransitionTo(next AppointmentStatus) bool {
	for _, allowed := range transitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// CanCancel reports whether a participant may still cancel. Cancel is its
// own action: only completed and canceled appointments refuse it.
func (s AppointmentStatus) CanCancel() bool {
	return s.Valid() && s != StatusCompleted && s != StatusCanceled
}

// Settable reports whether a clinic may request s through a status update.
func (s AppointmentStatus) Settable() bool {
	return s.Valid() && s != StatusPending
}

func (s AppointmentStatus) IsTerminal() bool {
	return len(transitions[s]) == 0
}

type Appointment struct {
	ID        uuid.UUID         `json:"id"`
	PatientID string            `json:"patientId"`
	ClinicID  string            `json:"clinicId"`
	DoctorID  *uuid.UUID        `json:"doctorId,omitempty"`
	Status    AppointmentStatus `json:"status"`
	Date      time.Time         `json:"date"`
	Reason    *string           `json:"reason,omitempty"`
	Notes     *string           `json:"notes,omitempty"`
	CreatedAt time.Time         `json:"createdAt"`
	UpdatedAt time.Time         `json:"updatedAt"`
}

// IsParticipant reports whether userID is the patient or the clinic.
func (a *Appointment) IsParticipant(userID string) bool {
	return userID != "" && (a.PatientID == userID || a.ClinicID == userID)
}

type BookRequest struct {
	ClinicID string     `json:"clinicId"`
	DoctorID *uuid.UUID `json:"doctorId,omitempty"`
	Date     time.Time  `json:"date"`
	Reason   *string    `json:"reason,omitempty"`
}

type EventLog struct {
	ID            int64
	EventType     string
	AppointmentID *uuid.UUID
	Payload       []byte
	CreatedAt     time.Time
}

package queue

import (
	"math"
	"time"

	"github.com/google/uuid"
)

// Defaults a clinic's queue starts from the first time it is advanced.
const (
	DefaultEstimatedWait = 15
	DefaultCurrentNumber = 0
	DefaultNextNumber    = 1
)

// QueueStatus is a clinic's live counter. EstimatedWaitTime is minutes per
// patient.
type QueueStatus struct {
	ID                uuid.UUID `json:"id"`
	ClinicID          string    `json:"clinicId"`
	EstimatedWaitTime int       `json:"estimatedWaitTime"`
	CurrentNumber     int       `json:"currentNumber"`
	NextNumber        int       `json:"nextNumber"`
	UpdatedAt         time.Time `json:"updatedAt"`
}

type QueueInput struct {
	EstimatedWaitTime int `json:"estimatedWaitTime"`
	CurrentNumber     int `json:"currentNumber"`
	NextNumber        int `json:"nextNumber"`
}

// Estimate is a patient's place in today's queue for one approved
// appointment.
type Estimate struct {
	AppointmentID uuid.UUID `json:"appointmentId"`
	Date          time.Time `json:"date"`
	Position      int       `json:"queuePosition"`
	EstimatedWait int       `json:"estimatedWaitTime"`
}

type Estimates struct {
	ClinicID     string       `json:"clinicId"`
	Queue        *QueueStatus `json:"queue,omitempty"`
	Appointments []Estimate   `json:"appointments"`
}

// Position numbers the day in slotMinutes-wide buckets starting at 1 at
// openingHour. Times before opening give zero or negative positions.
func Position(date time.Time, openingHour, slotMinutes int, loc *time.Location) int {
	local := date.In(loc)
	opening := time.Date(local.Year(), local.Month(), local.Day(), openingHour, 0, 0, 0, loc)
	minutes := local.Sub(opening).Minutes()
	return int(math.Floor(minutes/float64(slotMinutes))) + 1
}

// Wait is the minutes until position is called given the counter state.
func Wait(position, currentNumber, estimatedWait int) int {
	if position <= currentNumber {
		return 0
	}
	return (position - currentNumber) * estimatedWait
}

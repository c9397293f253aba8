package directory

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

type ClinicProfile struct {
	ClinicID         string    `json:"clinicId"`
	Name             string    `json:"name"`
	Address          string    `json:"address"`
	Phone            string    `json:"phone"`
	Email            string    `json:"email"`
	Description      *string   `json:"description,omitempty"`
	Specializations  []string  `json:"specializations"`
	IsAvailable      bool      `json:"isAvailable"`
	AvailabilityNote *string   `json:"availabilityNote,omitempty"`
	OpeningHours     *string   `json:"openingHours,omitempty"`
	CreatedAt        time.Time `json:"createdAt"`
	UpdatedAt        time.Time `json:"updatedAt"`
}

// ProfileInput is the full set of editable profile fields. Writes replace
// every field.
type ProfileInput struct {
	Name             string   `json:"name"`
	Address          string   `json:"address"`
	Phone            string   `json:"phone"`
	Email            string   `json:"email"`
	Description      *string  `json:"description,omitempty"`
	Specializations  []string `json:"specializations"`
	IsAvailable      bool     `json:"isAvailable"`
	AvailabilityNote *string  `json:"availabilityNote,omitempty"`
	OpeningHours     *string  `json:"openingHours,omitempty"`
}

func (in ProfileInput) validate() error {
	if strings.TrimSpace(in.Name) == "" ||
		strings.TrimSpace(in.Address) == "" ||
		strings.TrimSpace(in.Phone) == "" ||
		strings.TrimSpace(in.Email) == "" {
		return ErrProfileFieldsRequired
	}
	return nil
}

type Doctor struct {
	ID              uuid.UUID `json:"id"`
	ClinicID        string    `json:"clinicId"`
	Name            string    `json:"name"`
	Specializations []string  `json:"specializations"`
	Description     *string   `json:"description,omitempty"`
	Photo           *string   `json:"photo,omitempty"`
	CreatedAt       time.Time `json:"createdAt"`
	UpdatedAt       time.Time `json:"updatedAt"`
}

type DoctorInput struct {
	Name            string   `json:"name"`
	Specializations []string `json:"specializations"`
	Description     *string  `json:"description,omitempty"`
	Photo           *string  `json:"photo,omitempty"` // opaque URL
}

type SearchResult struct {
	Clinics         []ClinicProfile `json:"clinics"`
	Specializations []string        `json:"specializations"`
}

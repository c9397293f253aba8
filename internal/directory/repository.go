package directory

import (
	"context"

	"github.com/google/uuid"

	"github.com/hackgods/clinic-booking/internal/apperr"
)

var (
	ErrProfileNotFound       = apperr.New(apperr.KindNotFound, "clinic profile not found")
	ErrProfileExists         = apperr.New(apperr.KindConflict, "profile already exists")
	ErrNameTaken             = apperr.New(apperr.KindConflict, "clinic name already exists, please choose a different name")
	ErrProfileFieldsRequired = apperr.New(apperr.KindInvalid, "name, address, phone and email are required")
	ErrDoctorNotFound        = apperr.New(apperr.KindNotFound, "doctor not found")
	ErrDoctorNameRequired    = apperr.New(apperr.KindInvalid, "doctor name is required")
)

type Repository interface {
	GetProfile(ctx context.Context, clinicID string) (*ClinicProfile, error)
	GetProfileByName(ctx context.Context, name string) (*ClinicProfile, error)
	// CreateProfile returns ErrProfileExists or ErrNameTaken on conflicts.
	CreateProfile(ctx context.Context, clinicID string, in ProfileInput) (*ClinicProfile, error)
	// UpdateProfile returns ErrNameTaken when another clinic holds the name.
	UpdateProfile(ctx context.Context, clinicID string, in ProfileInput) (*ClinicProfile, error)
	UpdateAvailability(ctx context.Context, clinicID string, isAvailable bool, note *string) (*ClinicProfile, error)
	// ListApprovedProfiles returns profiles whose clinic user is approved.
	ListApprovedProfiles(ctx context.Context) ([]ClinicProfile, error)

	CreateDoctor(ctx context.Context, clinicID string, in DoctorInput) (*Doctor, error)
	GetDoctor(ctx context.Context, id uuid.UUID) (*Doctor, error)
	UpdateDoctor(ctx context.Context, id uuid.UUID, in DoctorInput) (*Doctor, error)
	DeleteDoctor(ctx context.Context, id uuid.UUID) error
	ListDoctors(ctx context.Context, clinicID string) ([]Doctor, error)
}

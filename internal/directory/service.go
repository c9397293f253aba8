package directory

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/hackgods/clinic-booking/internal/identity"
)

// Guard resolves the calling clinic.
type Guard interface {
	Clinic(ctx context.Context) (*identity.User, error)
	ApprovedClinic(ctx context.Context) (*identity.User, error)
}

type Service struct {
	repo  Repository
	guard Guard
	log   *zap.Logger
}

func NewService(repo Repository, guard Guard, log *zap.Logger) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{repo: repo, guard: guard, log: log}
}

// CreateInitialProfile is the registration-time profile write. Any clinic
// may call it, pending or not, but only once.
func (s *Service) CreateInitialProfile(ctx context.Context, in ProfileInput) (*ClinicProfile, error) {
	clinic, err := s.guard.Clinic(ctx)
	if err != nil {
		return nil, err
	}
	if err := in.validate(); err != nil {
		return nil, err
	}

	if _, err := s.repo.GetProfile(ctx, clinic.ID); err == nil {
		return nil, ErrProfileExists
	} else if !errors.Is(err, ErrProfileNotFound) {
		return nil, fmt.Errorf("load profile: %w", err)
	}

	if _, err := s.repo.GetProfileByName(ctx, in.Name); err == nil {
		return nil, ErrNameTaken
	} else if !errors.Is(err, ErrProfileNotFound) {
		return nil, fmt.Errorf("check clinic name: %w", err)
	}

	p, err := s.repo.CreateProfile(ctx, clinic.ID, in)
	if err != nil {
		if errors.Is(err, ErrProfileExists) || errors.Is(err, ErrNameTaken) {
			return nil, err
		}
		return nil, fmt.Errorf("create profile: %w", err)
	}

	s.log.Info("clinic profile created", zap.String("clinic_id", clinic.ID), zap.String("name", p.Name))
	return p, nil
}

// UpsertProfile creates or fully overwrites the approved caller's profile.
func (s *Service) UpsertProfile(ctx context.Context, in ProfileInput) (*ClinicProfile, error) {
	clinic, err := s.guard.ApprovedClinic(ctx)
	if err != nil {
		return nil, err
	}
	if err := in.validate(); err != nil {
		return nil, err
	}

	holder, err := s.repo.GetProfileByName(ctx, in.Name)
	switch {
	case err == nil && holder.ClinicID != clinic.ID:
		return nil, ErrNameTaken
	case err != nil && !errors.Is(err, ErrProfileNotFound):
		return nil, fmt.Errorf("check clinic name: %w", err)
	}

	_, err = s.repo.GetProfile(ctx, clinic.ID)
	switch {
	case err == nil:
		p, err := s.repo.UpdateProfile(ctx, clinic.ID, in)
		if err != nil {
			if errors.Is(err, ErrNameTaken) {
				return nil, err
			}
			return nil, fmt.Errorf("update profile: %w", err)
		}
		return p, nil
	case errors.Is(err, ErrProfileNotFound):
		p, err := s.repo.CreateProfile(ctx, clinic.ID, in)
		if err != nil {
			if errors.Is(err, ErrNameTaken) || errors.Is(err, ErrProfileExists) {
				return nil, err
			}
			return nil, fmt.Errorf("create profile: %w", err)
		}
		return p, nil
	default:
		return nil, fmt.Errorf("load profile: %w", err)
	}
}

func (s *Service) UpdateAvailability(ctx context.Context, isAvailable bool, note *string) (*ClinicProfile, error) {
	clinic, err := s.guard.ApprovedClinic(ctx)
	if err != nil {
		return nil, err
	}
	p, err := s.repo.UpdateAvailability(ctx, clinic.ID, isAvailable, note)
	if err != nil {
		if errors.Is(err, ErrProfileNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("update availability: %w", err)
	}
	s.log.Info("clinic availability changed",
		zap.String("clinic_id", clinic.ID),
		zap.Bool("available", isAvailable),
	)
	return p, nil
}

func (s *Service) GetProfile(ctx context.Context, clinicID string) (*ClinicProfile, error) {
	return s.repo.GetProfile(ctx, clinicID)
}

// IsNameUnique reports whether name is free, treating a name already held
// by currentClinicID as free.
func (s *Service) IsNameUnique(ctx context.Context, name, currentClinicID string) (bool, error) {
	holder, err := s.repo.GetProfileByName(ctx, name)
	if err != nil {
		if errors.Is(err, ErrProfileNotFound) {
			return true, nil
		}
		return false, fmt.Errorf("check clinic name: %w", err)
	}
	return currentClinicID != "" && holder.ClinicID == currentClinicID, nil
}

func (s *Service) ListApprovedClinics(ctx context.Context) ([]ClinicProfile, error) {
	clinics, err := s.repo.ListApprovedProfiles(ctx)
	if err != nil {
		return nil, fmt.Errorf("list approved clinics: %w", err)
	}
	return clinics, nil
}

// SearchClinics filters the approved clinics. The specialization list
// always covers every approved clinic so a client can offer all choices.
func (s *Service) SearchClinics(ctx context.Context, term, specialization string) (*SearchResult, error) {
	clinics, err := s.ListApprovedClinics(ctx)
	if err != nil {
		return nil, err
	}
	return &SearchResult{
		Clinics:         Filter(clinics, term, specialization),
		Specializations: Specializations(clinics),
	}, nil
}

func (s *Service) AddDoctor(ctx context.Context, in DoctorInput) (*Doctor, error) {
	clinic, err := s.guard.ApprovedClinic(ctx)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(in.Name) == "" {
		return nil, ErrDoctorNameRequired
	}
	d, err := s.repo.CreateDoctor(ctx, clinic.ID, in)
	if err != nil {
		return nil, fmt.Errorf("create doctor: %w", err)
	}
	return d, nil
}

func (s *Service) UpdateDoctor(ctx context.Context, id uuid.UUID, in DoctorInput) (*Doctor, error) {
	clinic, err := s.guard.ApprovedClinic(ctx)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(in.Name) == "" {
		return nil, ErrDoctorNameRequired
	}
	if _, err := s.ownedDoctor(ctx, clinic.ID, id); err != nil {
		return nil, err
	}
	d, err := s.repo.UpdateDoctor(ctx, id, in)
	if err != nil {
		if errors.Is(err, ErrDoctorNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("update doctor: %w", err)
	}
	return d, nil
}

func (s *Service) DeleteDoctor(ctx context.Context, id uuid.UUID) error {
	clinic, err := s.guard.ApprovedClinic(ctx)
	if err != nil {
		return err
	}
	if _, err := s.ownedDoctor(ctx, clinic.ID, id); err != nil {
		return err
	}
	return s.repo.DeleteDoctor(ctx, id)
}

func (s *Service) ListDoctors(ctx context.Context, clinicID string) ([]Doctor, error) {
	doctors, err := s.repo.ListDoctors(ctx, clinicID)
	if err != nil {
		return nil, fmt.Errorf("list doctors: %w", err)
	}
	return doctors, nil
}

// GetDoctor returns any doctor by id.
func (s *Service) GetDoctor(ctx context.Context, id uuid.UUID) (*Doctor, error) {
	return s.repo.GetDoctor(ctx, id)
}

// ownedDoctor hides other clinics' doctors behind ErrDoctorNotFound.
func (s *Service) ownedDoctor(ctx context.Context, clinicID string, id uuid.UUID) (*Doctor, error) {
	d, err := s.repo.GetDoctor(ctx, id)
	if err != nil {
		if errors.Is(err, ErrDoctorNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("load doctor: %w", err)
	}
	if d.ClinicID != clinicID {
		return nil, ErrDoctorNotFound
	}
	return d, nil
}

package identity

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/hackgods/clinic-booking/internal/realtime"
)

type Service struct {
	repo        Repository
	guard       *Guard
	adminEmails map[string]struct{}
	pub         realtime.Publisher
	log         *zap.Logger
}

func NewService(repo Repository, adminEmails []string, pub realtime.Publisher, log *zap.Logger) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	allowed := make(map[string]struct{}, len(adminEmails))
	for _, e := range adminEmails {
		allowed[strings.ToLower(strings.TrimSpace(e))] = struct{}{}
	}
	return &Service{
		repo:        repo,
		guard:       NewGuard(repo),
		adminEmails: allowed,
		pub:         pub,
		log:         log,
	}
}

func (s *Service) Guard() *Guard { return s.guard }

// Onboard creates the caller's user record. Clinics start pending and wait
// for an admin; patients and admins are approved immediately.
func (s *Service) Onboard(ctx context.Context, role Role) (*User, error) {
	p, err := s.guard.Authenticated(ctx)
	if err != nil {
		return nil, err
	}
	if !role.Valid() {
		return nil, ErrInvalidRole
	}
	if role == RoleAdmin {
		if _, ok := s.adminEmails[strings.ToLower(p.Email)]; !ok || p.Email == "" {
			return nil, ErrAdminNotAllowed
		}
	}

	status := StatusApproved
	if role == RoleClinic {
		status = StatusPending
	}

	u, err := s.repo.CreateUser(ctx, User{
		ID:     p.UserID,
		Email:  p.Email,
		Role:   role,
		Status: status,
	})
	if err != nil {
		if errors.Is(err, ErrAlreadyOnboarded) {
			return nil, err
		}
		return nil, fmt.Errorf("create user: %w", err)
	}

	s.log.Info("user onboarded",
		zap.String("user_id", u.ID),
		zap.String("role", string(u.Role)),
		zap.String("status", string(u.Status)),
	)
	return u, nil
}

func (s *Service) Me(ctx context.Context) (*User, error) {
	p, err := s.guard.Authenticated(ctx)
	if err != nil {
		return nil, err
	}
	return s.repo.GetUser(ctx, p.UserID)
}

func (s *Service) ListClinicsByStatus(ctx context.Context, status Status) ([]User, error) {
	if _, err := s.guard.Admin(ctx); err != nil {
		return nil, err
	}
	if !status.Valid() {
		return nil, ErrInvalidStatus
	}
	users, err := s.repo.ListUsers(ctx, RoleClinic, status)
	if err != nil {
		return nil, fmt.Errorf("list clinics: %w", err)
	}
	return users, nil
}

func (s *Service) UpdateClinicStatus(ctx context.Context, clinicID string, status Status) (*User, error) {
	admin, err := s.guard.Admin(ctx)
	if err != nil {
		return nil, err
	}
	if !status.Valid() {
		return nil, ErrInvalidStatus
	}
	if err := s.requireClinicUser(ctx, clinicID); err != nil {
		return nil, err
	}

	u, err := s.repo.UpdateStatus(ctx, clinicID, status)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return nil, ErrClinicNotFound
		}
		return nil, fmt.Errorf("update clinic status: %w", err)
	}

	s.log.Info("clinic status updated",
		zap.String("clinic_id", clinicID),
		zap.String("status", string(status)),
		zap.String("admin_id", admin.ID),
	)

	if err := realtime.Emit(ctx, s.pub, realtime.UserTopic(clinicID), realtime.EventClinicStatus, u); err != nil {
		s.log.Warn("publish clinic status", zap.Error(err))
	}
	return u, nil
}

// DeleteClinic removes the clinic user; its profile goes with it.
func (s *Service) DeleteClinic(ctx context.Context, clinicID string) error {
	if _, err := s.guard.Admin(ctx); err != nil {
		return err
	}
	if err := s.requireClinicUser(ctx, clinicID); err != nil {
		return err
	}
	if err := s.repo.DeleteUser(ctx, clinicID); err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return ErrClinicNotFound
		}
		return fmt.Errorf("delete clinic: %w", err)
	}
	s.log.Info("clinic deleted", zap.String("clinic_id", clinicID))
	return nil
}

// ListPatients lets an approved clinic see approved patients.
func (s *Service) ListPatients(ctx context.Context) ([]User, error) {
	if _, err := s.guard.ApprovedClinic(ctx); err != nil {
		return nil, err
	}
	users, err := s.repo.ListUsers(ctx, RolePatient, StatusApproved)
	if err != nil {
		return nil, fmt.Errorf("list patients: %w", err)
	}
	return users, nil
}

func (s *Service) requireClinicUser(ctx context.Context, id string) error {
	u, err := s.repo.GetUser(ctx, id)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return ErrClinicNotFound
		}
		return fmt.Errorf("load clinic user: %w", err)
	}
	if u.Role != RoleClinic {
		return ErrClinicNotFound
	}
	return nil
}

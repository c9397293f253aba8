package timeslot

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/hackgods/clinic-booking/internal/identity"
	"github.com/hackgods/clinic-booking/internal/realtime"
)

type Guard interface {
	ApprovedClinic(ctx context.Context) (*identity.User, error)
}

// BookedTimes reports the dates of a clinic's approved appointments in
// [from, to).
type BookedTimes interface {
	ApprovedTimes(ctx context.Context, clinicID string, from, to time.Time) ([]time.Time, error)
}

type Service struct {
	repo   Repository
	guard  Guard
	booked BookedTimes
	pub    realtime.Publisher
	loc    *time.Location
	log    *zap.Logger
}

func NewService(repo Repository, guard Guard, booked BookedTimes, pub realtime.Publisher, loc *time.Location, log *zap.Logger) *Service {
	if loc == nil {
		loc = time.UTC
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{repo: repo, guard: guard, booked: booked, pub: pub, loc: loc, log: log}
}

// Location is the zone calendar days are cut in.
func (s *Service) Location() *time.Location { return s.loc }

func (s *Service) GenerateDefault(ctx context.Context, day time.Time, startHour, endHour, intervalMinutes int) (*TimeSlot, error) {
	clinic, err := s.guard.ApprovedClinic(ctx)
	if err != nil {
		return nil, err
	}

	day = StartOfDay(day, s.loc)
	slots, err := GenerateDefaultSlots(day, startHour, endHour, intervalMinutes)
	if err != nil {
		return nil, err
	}
	return s.save(ctx, clinic.ID, day, slots)
}

// SetSlots replaces the day's list wholesale.
func (s *Service) SetSlots(ctx context.Context, day time.Time, slots []time.Time) (*TimeSlot, error) {
	clinic, err := s.guard.ApprovedClinic(ctx)
	if err != nil {
		return nil, err
	}
	return s.save(ctx, clinic.ID, StartOfDay(day, s.loc), normalize(slots))
}

func (s *Service) save(ctx context.Context, clinicID string, day time.Time, slots []time.Time) (*TimeSlot, error) {
	ts, err := s.repo.Upsert(ctx, clinicID, day, slots)
	if err != nil {
		return nil, fmt.Errorf("save time slots: %w", err)
	}

	s.log.Info("time slots saved",
		zap.String("clinic_id", clinicID),
		zap.Time("day", day),
		zap.Int("count", len(slots)),
	)
	if err := realtime.Emit(ctx, s.pub, realtime.SlotsTopic(clinicID), realtime.EventSlotsUpdated, ts); err != nil {
		s.log.Warn("publish slots update", zap.Error(err))
	}
	return ts, nil
}

// ListClinicSlots returns the caller's records. The range applies only
// when both ends are given.
func (s *Service) ListClinicSlots(ctx context.Context, from, to *time.Time) ([]TimeSlot, error) {
	clinic, err := s.guard.ApprovedClinic(ctx)
	if err != nil {
		return nil, err
	}
	if from == nil || to == nil {
		from, to = nil, nil
	}
	list, err := s.repo.List(ctx, clinic.ID, from, to)
	if err != nil {
		return nil, fmt.Errorf("list time slots: %w", err)
	}
	return list, nil
}

// AvailableSlots is the day's stored list minus the exact start times of
// the clinic's approved appointments that day. A day with no record has
// no availability.
func (s *Service) AvailableSlots(ctx context.Context, clinicID string, day time.Time) ([]time.Time, error) {
	day = StartOfDay(day, s.loc)

	ts, err := s.repo.Get(ctx, clinicID, day)
	if err != nil {
		if errors.Is(err, ErrTimeSlotNotFound) {
			return []time.Time{}, nil
		}
		return nil, fmt.Errorf("load time slots: %w", err)
	}

	taken, err := s.booked.ApprovedTimes(ctx, clinicID, day, day.Add(24*time.Hour))
	if err != nil {
		return nil, fmt.Errorf("load approved appointments: %w", err)
	}
	return subtract(ts.Slots, taken), nil
}

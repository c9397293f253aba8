package queue

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/hackgods/clinic-booking/internal/appointment"
	"github.com/hackgods/clinic-booking/internal/identity"
	"github.com/hackgods/clinic-booking/internal/metrics"
	"github.com/hackgods/clinic-booking/internal/realtime"
)

type Guard interface {
	Patient(ctx context.Context) (*identity.User, error)
	ApprovedClinic(ctx context.Context) (*identity.User, error)
}

// Approved lists a patient's approved appointments at a clinic in
// [from, to).
type Approved interface {
	ApprovedForPatient(ctx context.Context, patientID, clinicID string, from, to time.Time) ([]appointment.Appointment, error)
}

type Options struct {
	Location    *time.Location
	OpeningHour int
	SlotMinutes int
	Now         func() time.Time
}

type Service struct {
	repo     Repository
	guard    Guard
	approved Approved
	pub      realtime.Publisher
	metrics  *metrics.Collector
	log      *zap.Logger
	opts     Options
}

func NewService(repo Repository, guard Guard, approved Approved, pub realtime.Publisher, m *metrics.Collector, opts Options, log *zap.Logger) *Service {
	if opts.Location == nil {
		opts.Location = time.UTC
	}
	if opts.SlotMinutes <= 0 {
		opts.SlotMinutes = 30
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{repo: repo, guard: guard, approved: approved, pub: pub, metrics: m, log: log, opts: opts}
}

// Get is public; anyone may watch a clinic's counter.
func (s *Service) Get(ctx context.Context, clinicID string) (*QueueStatus, error) {
	return s.repo.Get(ctx, clinicID)
}

// Set overwrites the caller's queue. Values are taken as given.
func (s *Service) Set(ctx context.Context, in QueueInput) (*QueueStatus, error) {
	clinic, err := s.guard.ApprovedClinic(ctx)
	if err != nil {
		return nil, err
	}
	q, err := s.repo.Upsert(ctx, clinic.ID, in)
	if err != nil {
		return nil, fmt.Errorf("set queue: %w", err)
	}
	s.updated(ctx, q)
	return q, nil
}

// Advance calls the next patient.
func (s *Service) Advance(ctx context.Context) (*QueueStatus, error) {
	clinic, err := s.guard.ApprovedClinic(ctx)
	if err != nil {
		return nil, err
	}
	q, err := s.repo.Advance(ctx, clinic.ID)
	if err != nil {
		return nil, err
	}
	s.updated(ctx, q)
	return q, nil
}

// Estimates places each of the calling patient's approved appointments at
// clinicID today in the queue. Without a queue record every wait is zero.
func (s *Service) Estimates(ctx context.Context, clinicID string) (*Estimates, error) {
	patient, err := s.guard.Patient(ctx)
	if err != nil {
		return nil, err
	}

	q, err := s.repo.Get(ctx, clinicID)
	if err != nil && !errors.Is(err, ErrQueueNotFound) {
		return nil, fmt.Errorf("load queue: %w", err)
	}

	now := s.opts.Now().In(s.opts.Location)
	day := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, s.opts.Location)

	appts, err := s.approved.ApprovedForPatient(ctx, patient.ID, clinicID, day, day.AddDate(0, 0, 1))
	if err != nil {
		return nil, fmt.Errorf("load approved appointments: %w", err)
	}

	out := &Estimates{ClinicID: clinicID, Queue: q, Appointments: make([]Estimate, 0, len(appts))}
	for _, a := range appts {
		pos := Position(a.Date, s.opts.OpeningHour, s.opts.SlotMinutes, s.opts.Location)
		wait := 0
		if q != nil {
			wait = Wait(pos, q.CurrentNumber, q.EstimatedWaitTime)
		}
		out.Appointments = append(out.Appointments, Estimate{
			AppointmentID: a.ID,
			Date:          a.Date,
			Position:      pos,
			EstimatedWait: wait,
		})
	}
	return out, nil
}

func (s *Service) updated(ctx context.Context, q *QueueStatus) {
	if s.metrics != nil {
		s.metrics.QueueUpdates.Inc()
	}
	s.log.Info("queue updated",
		zap.String("clinic_id", q.ClinicID),
		zap.Int("current_number", q.CurrentNumber),
		zap.Int("next_number", q.NextNumber),
	)
	if err := realtime.Emit(ctx, s.pub, realtime.QueueTopic(q.ClinicID), realtime.EventQueueUpdated, q); err != nil {
		s.log.Warn("publish queue update", zap.String("clinic_id", q.ClinicID), zap.Error(err))
	}
}

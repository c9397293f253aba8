package appointment

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/hackgods/clinic-booking/internal/apperr"
	"github.com/hackgods/clinic-booking/internal/auth"
	"github.com/hackgods/clinic-booking/internal/directory"
	"github.com/hackgods/clinic-booking/internal/identity"
	"github.com/hackgods/clinic-booking/internal/metrics"
	"github.com/hackgods/clinic-booking/internal/realtime"
	redisclient "github.com/hackgods/clinic-booking/internal/redis"
)

const EventAppointmentCreated = "APPOINTMENT_CREATED"

var (
	ErrClinicUnavailable = apperr.New(apperr.KindConflict, "this clinic is currently not accepting appointments")
	ErrClinicNotFound    = apperr.New(apperr.KindNotFound, "clinic not found")
	ErrSlotBeingBooked   = apperr.New(apperr.KindConflict, "slot is currently being booked, please retry")
	ErrInvalidTransition = apperr.New(apperr.KindConflict, "invalid status transition")
	ErrCannotCancel      = apperr.New(apperr.KindConflict, "appointment can no longer be canceled")
	ErrInvalidStatus     = apperr.New(apperr.KindInvalid, "invalid appointment status")
	ErrDateRequired      = apperr.New(apperr.KindInvalid, "appointment date is required")
)

type Guard interface {
	Authenticated(ctx context.Context) (auth.Principal, error)
	Current(ctx context.Context) (*identity.User, error)
	Patient(ctx context.Context) (*identity.User, error)
	ApprovedClinic(ctx context.Context) (*identity.User, error)
}

// Clinics is the directory lookup booking needs.
type Clinics interface {
	GetProfile(ctx context.Context, clinicID string) (*directory.ClinicProfile, error)
	GetDoctor(ctx context.Context, id uuid.UUID) (*directory.Doctor, error)
}

type Service struct {
	repo    Repository
	locker  redisclient.Locker
	clinics Clinics
	guard   Guard
	pub     realtime.Publisher
	metrics *metrics.Collector
	log     *zap.Logger
	tracer  trace.Tracer
}

func NewService(
	repo Repository,
	locker redisclient.Locker,
	clinics Clinics,
	guard Guard,
	pub realtime.Publisher,
	m *metrics.Collector,
	log *zap.Logger,
) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{
		repo:    repo,
		locker:  locker,
		clinics: clinics,
		guard:   guard,
		pub:     pub,
		metrics: m,
		log:     log,
		tracer:  otel.Tracer("github.com/hackgods/clinic-booking/internal/appointment"),
	}
}

func lockKey(clinicID string, date time.Time) string {
	return fmt.Sprintf("booking:%s:%d", clinicID, date.UnixMicro())
}

// Book creates a pending appointment for the calling patient. It runs
// under the (clinic, date) lock so it cannot race an approval of the same
// time, and refuses times an approved appointment already holds.
func (s *Service) Book(ctx context.Context, req BookRequest) (_ *Appointment, err error) {
	ctx, span := s.tracer.Start(ctx, "appointment.Book",
		trace.WithAttributes(attribute.String("clinic.id", req.ClinicID)))
	defer func() { endSpan(span, err) }()

	patient, err := s.guard.Patient(ctx)
	if err != nil {
		return nil, err
	}
	if req.Date.IsZero() {
		return nil, ErrDateRequired
	}

	profile, err := s.clinics.GetProfile(ctx, req.ClinicID)
	if err != nil {
		if errors.Is(err, directory.ErrProfileNotFound) {
			return nil, ErrClinicNotFound
		}
		return nil, fmt.Errorf("load clinic: %w", err)
	}
	if !profile.IsAvailable {
		s.rejected("clinic_unavailable")
		return nil, ErrClinicUnavailable
	}

	if req.DoctorID != nil {
		doc, err := s.clinics.GetDoctor(ctx, *req.DoctorID)
		if err != nil && !errors.Is(err, directory.ErrDoctorNotFound) {
			return nil, fmt.Errorf("load doctor: %w", err)
		}
		if err != nil || doc.ClinicID != req.ClinicID {
			return nil, directory.ErrDoctorNotFound
		}
	}

	var created *Appointment

	err = s.locker.WithLock(ctx, lockKey(req.ClinicID, req.Date), func(lockCtx context.Context) error {
		taken, err := s.repo.HasApprovedAt(lockCtx, req.ClinicID, req.Date)
		if err != nil {
			return err
		}
		if taken {
			return ErrSlotTaken
		}

		appt, err := s.repo.CreateAppointment(lockCtx, Appointment{
			ID:        uuid.New(),
			PatientID: patient.ID,
			ClinicID:  req.ClinicID,
			DoctorID:  req.DoctorID,
			Status:    StatusPending,
			Date:      req.Date,
			Reason:    req.Reason,
		})
		if err != nil {
			return fmt.Errorf("create appointment: %w", err)
		}
		created = appt
		return nil
	})
	if err != nil {
		switch {
		case errors.Is(err, redisclient.ErrLockNotAcquired):
			s.rejected("lock_busy")
			return nil, ErrSlotBeingBooked
		case errors.Is(err, ErrSlotTaken):
			s.rejected("slot_taken")
			return nil, ErrSlotTaken
		}
		return nil, err
	}

	s.logEvent(ctx, created.ID, EventAppointmentCreated, map[string]any{
		"patient_id": created.PatientID,
		"clinic_id":  created.ClinicID,
		"date":       created.Date,
	})
	s.transitioned(ctx, created, realtime.EventAppointmentCreated)

	return created, nil
}

// UpdateStatus applies a clinic decision. Approvals re-check the exact
// timestamp under the booking lock.
func (s *Service) UpdateStatus(ctx context.Context, id uuid.UUID, next AppointmentStatus, notes *string) (_ *Appointment, err error) {
	ctx, span := s.tracer.Start(ctx, "appointment.UpdateStatus",
		trace.WithAttributes(
			attribute.String("appointment.id", id.String()),
			attribute.String("appointment.status", string(next)),
		))
	defer func() { endSpan(span, err) }()

	clinic, err := s.guard.ApprovedClinic(ctx)
	if err != nil {
		return nil, err
	}
	if !next.Settable() {
		return nil, ErrInvalidStatus
	}

	appt, err := s.repo.GetAppointment(ctx, id)
	if err != nil {
		return nil, err
	}
	if appt.ClinicID != clinic.ID {
		return nil, ErrAppointmentNotFound
	}
	if !appt.Status.CanTransitionTo(next) {
		return nil, ErrInvalidTransition
	}

	var updated *Appointment
	apply := func(ctx context.Context) error {
		if next == StatusApproved {
			taken, err := s.repo.HasApprovedAt(ctx, appt.ClinicID, appt.Date)
			if err != nil {
				return err
			}
			if taken {
				return ErrSlotTaken
			}
		}
		u, err := s.repo.UpdateStatus(ctx, appt.ID, appt.Status, next, notes)
		if err != nil {
			return err
		}
		updated = u
		return nil
	}

	if next == StatusApproved {
		err = s.locker.WithLock(ctx, lockKey(appt.ClinicID, appt.Date), apply)
	} else {
		err = apply(ctx)
	}
	if err != nil {
		switch {
		case errors.Is(err, redisclient.ErrLockNotAcquired):
			s.rejected("lock_busy")
			return nil, ErrSlotBeingBooked
		case errors.Is(err, ErrSlotTaken):
			s.rejected("slot_taken")
			return nil, ErrSlotTaken
		case errors.Is(err, ErrAppointmentNotFound):
			// status moved underneath us
			return nil, ErrInvalidTransition
		}
		return nil, fmt.Errorf("update appointment status: %w", err)
	}

	s.logEvent(ctx, updated.ID, eventType(next), map[string]any{
		"from": appt.Status,
		"to":   next,
	})
	s.transitioned(ctx, updated, realtime.EventAppointmentUpdated)

	return updated, nil
}

// Cancel lets either participant cancel a non-terminal appointment.
func (s *Service) Cancel(ctx context.Context, id uuid.UUID) (_ *Appointment, err error) {
	ctx, span := s.tracer.Start(ctx, "appointment.Cancel",
		trace.WithAttributes(attribute.String("appointment.id", id.String())))
	defer func() { endSpan(span, err) }()

	p, err := s.guard.Authenticated(ctx)
	if err != nil {
		return nil, err
	}

	appt, err := s.repo.GetAppointment(ctx, id)
	if err != nil {
		return nil, err
	}
	if !appt.IsParticipant(p.UserID) {
		return nil, apperr.ErrUnauthorized
	}
	if !appt.Status.CanCancel() {
		return nil, ErrCannotCancel
	}

	updated, err := s.repo.UpdateStatus(ctx, appt.ID, appt.Status, StatusCanceled, appt.Notes)
	if err != nil {
		if errors.Is(err, ErrAppointmentNotFound) {
			return nil, ErrCannotCancel
		}
		return nil, fmt.Errorf("cancel appointment: %w", err)
	}

	s.logEvent(ctx, updated.ID, eventType(StatusCanceled), map[string]any{
		"from":        appt.Status,
		"canceled_by": p.UserID,
	})
	s.transitioned(ctx, updated, realtime.EventAppointmentUpdated)

	return updated, nil
}

// Get returns an appointment to one of its participants. Everyone else
// gets ErrAppointmentNotFound.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	p, err := s.guard.Authenticated(ctx)
	if err != nil {
		return nil, err
	}
	appt, err := s.repo.GetAppointment(ctx, id)
	if err != nil {
		return nil, err
	}
	if !appt.IsParticipant(p.UserID) {
		return nil, ErrAppointmentNotFound
	}
	return appt, nil
}

// List returns the caller's appointments: a patient's own, or an approved
// clinic's, optionally narrowed to one status.
func (s *Service) List(ctx context.Context, status *AppointmentStatus) ([]Appointment, error) {
	if status != nil && !status.Valid() {
		return nil, ErrInvalidStatus
	}

	u, err := s.guard.Current(ctx)
	if err != nil {
		return nil, err
	}

	var list []Appointment
	switch {
	case u.Role == identity.RolePatient:
		list, err = s.repo.ListByPatient(ctx, u.ID, status)
	case u.IsApprovedClinic():
		list, err = s.repo.ListByClinic(ctx, u.ID, status)
	default:
		return nil, apperr.ErrUnauthorized
	}
	if err != nil {
		return nil, fmt.Errorf("list appointments: %w", err)
	}
	return list, nil
}

// ApprovedTimes exposes approved start times for slot availability.
func (s *Service) ApprovedTimes(ctx context.Context, clinicID string, from, to time.Time) ([]time.Time, error) {
	return s.repo.ApprovedTimes(ctx, clinicID, from, to)
}

func (s *Service) ApprovedForPatient(ctx context.Context, patientID, clinicID string, from, to time.Time) ([]Appointment, error) {
	return s.repo.ApprovedForPatient(ctx, patientID, clinicID, from, to)
}

func (s *Service) transitioned(ctx context.Context, appt *Appointment, eventType string) {
	if s.metrics != nil {
		s.metrics.AppointmentTransitions.WithLabelValues(string(appt.Status)).Inc()
	}

	s.log.Info("appointment status",
		zap.String("appointment_id", appt.ID.String()),
		zap.String("status", string(appt.Status)),
		zap.String("clinic_id", appt.ClinicID),
	)

	for _, userID := range []string{appt.PatientID, appt.ClinicID} {
		if err := realtime.Emit(ctx, s.pub, realtime.UserTopic(userID), eventType, appt); err != nil {
			s.log.Warn("publish appointment event", zap.String("appointment_id", appt.ID.String()), zap.Error(err))
		}
	}
}

func (s *Service) rejected(reason string) {
	if s.metrics != nil {
		s.metrics.BookingsRejected.WithLabelValues(reason).Inc()
	}
}

func (s *Service) logEvent(ctx context.Context, appointmentID uuid.UUID, eventType string, payload map[string]any) {
	data, err := json.Marshal(payload)
	if err != nil {
		s.log.Error("marshal event payload", zap.String("event_type", eventType), zap.Error(err))
		data = nil
	}

	apptID := appointmentID

	ev := EventLog{
		EventType:     eventType,
		AppointmentID: &apptID,
		Payload:       data,
		CreatedAt:     time.Now(),
	}

	if err := s.repo.InsertEvent(ctx, ev); err != nil {
		s.log.Error("insert event log",
			zap.String("event_type", eventType),
			zap.String("appointment_id", appointmentID.String()),
			zap.Error(err),
		)
	}
}

func eventType(status AppointmentStatus) string {
	return "APPOINTMENT_" + strings.ToUpper(string(status))
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}

package api

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/hackgods/clinic-booking/internal/appointment"
	"github.com/hackgods/clinic-booking/internal/directory"
	"github.com/hackgods/clinic-booking/internal/identity"
	"github.com/hackgods/clinic-booking/internal/messaging"
	"github.com/hackgods/clinic-booking/internal/metrics"
	"github.com/hackgods/clinic-booking/internal/queue"
	"github.com/hackgods/clinic-booking/internal/timeslot"
)

type UserService interface {
	Onboard(ctx context.Context, role identity.Role) (*identity.User, error)
	Me(ctx context.Context) (*identity.User, error)
	ListClinicsByStatus(ctx context.Context, status identity.Status) ([]identity.User, error)
	UpdateClinicStatus(ctx context.Context, clinicID string, status identity.Status) (*identity.User, error)
	DeleteClinic(ctx context.Context, clinicID string) error
	ListPatients(ctx context.Context) ([]identity.User, error)
}

type DirectoryService interface {
	CreateInitialProfile(ctx context.Context, in directory.ProfileInput) (*directory.ClinicProfile, error)
	UpsertProfile(ctx context.Context, in directory.ProfileInput) (*directory.ClinicProfile, error)
	UpdateAvailability(ctx context.Context, isAvailable bool, note *string) (*directory.ClinicProfile, error)
	GetProfile(ctx context.Context, clinicID string) (*directory.ClinicProfile, error)
	IsNameUnique(ctx context.Context, name, currentClinicID string) (bool, error)
	SearchClinics(ctx context.Context, term, specialization string) (*directory.SearchResult, error)
	AddDoctor(ctx context.Context, in directory.DoctorInput) (*directory.Doctor, error)
	UpdateDoctor(ctx context.Context, id uuid.UUID, in directory.DoctorInput) (*directory.Doctor, error)
	DeleteDoctor(ctx context.Context, id uuid.UUID) error
	ListDoctors(ctx context.Context, clinicID string) ([]directory.Doctor, error)
}

type SlotService interface {
	GenerateDefault(ctx context.Context, day time.Time, startHour, endHour, intervalMinutes int) (*timeslot.TimeSlot, error)
	SetSlots(ctx context.Context, day time.Time, slots []time.Time) (*timeslot.TimeSlot, error)
	ListClinicSlots(ctx context.Context, from, to *time.Time) ([]timeslot.TimeSlot, error)
	AvailableSlots(ctx context.Context, clinicID string, day time.Time) ([]time.Time, error)
}

type AppointmentService interface {
	Book(ctx context.Context, req appointment.BookRequest) (*appointment.Appointment, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, next appointment.AppointmentStatus, notes *string) (*appointment.Appointment, error)
	Cancel(ctx context.Context, id uuid.UUID) (*appointment.Appointment, error)
	Get(ctx context.Context, id uuid.UUID) (*appointment.Appointment, error)
	List(ctx context.Context, status *appointment.AppointmentStatus) ([]appointment.Appointment, error)
}

type QueueService interface {
	Get(ctx context.Context, clinicID string) (*queue.QueueStatus, error)
	Set(ctx context.Context, in queue.QueueInput) (*queue.QueueStatus, error)
	Advance(ctx context.Context) (*queue.QueueStatus, error)
	Estimates(ctx context.Context, clinicID string) (*queue.Estimates, error)
}

type MessageService interface {
	Send(ctx context.Context, req messaging.SendRequest) (*messaging.Message, error)
	MarkRead(ctx context.Context, counterpartyID string) (int, error)
	Conversation(ctx context.Context, otherID string) ([]messaging.Message, error)
	Unread(ctx context.Context) (*messaging.Unread, error)
	ChatPartners(ctx context.Context) ([]identity.User, error)
}

// WebsocketServer serves a realtime connection for an authenticated user.
type WebsocketServer interface {
	Serve(w http.ResponseWriter, r *http.Request, userID string)
}

type RouterConfig struct {
	Users        UserService
	Directory    DirectoryService
	Slots        SlotService
	Appointments AppointmentService
	Queue        QueueService
	Messages     MessageService

	Verifier  TokenVerifier
	Websocket WebsocketServer
	Metrics   *metrics.Collector
	Limiter   *IPRateLimiter
	Checks    []Check

	Location *time.Location
	Log      *zap.Logger
	Env      string
	Version  string
}

func NewRouter(cfg RouterConfig) http.Handler {
	log := cfg.Log
	if log == nil {
		log = zap.NewNop()
	}
	loc := cfg.Location
	if loc == nil {
		loc = time.UTC
	}

	h := &Handlers{
		users:        cfg.Users,
		directory:    cfg.Directory,
		slots:        cfg.Slots,
		appointments: cfg.Appointments,
		queue:        cfg.Queue,
		messages:     cfg.Messages,
		loc:          loc,
		log:          log,
	}

	r := chi.NewRouter()

	r.Use(middleware.RealIP)
	r.Use(RequestIDMiddleware)
	r.Use(LoggingMiddleware(log))
	r.Use(MetricsMiddleware(cfg.Metrics))
	r.Use(middleware.Recoverer)

	// Ops endpoints
	health := NewHealthHandler(cfg.Checks, cfg.Env, cfg.Version)
	r.Get("/health/live", health.Liveness)
	r.Get("/health/ready", health.Readiness)
	if cfg.Metrics != nil {
		r.Handle("/metrics", cfg.Metrics.Handler())
	}
	if cfg.Websocket != nil {
		r.Get("/ws", websocketHandler(cfg.Verifier, cfg.Websocket))
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(RateLimitMiddleware(cfg.Limiter))

		// Public reads
		r.Group(func(r chi.Router) {
			r.Use(Authenticate(cfg.Verifier, false))

			r.Get("/clinics", h.searchClinics)
			r.Get("/clinics/name-available", h.nameAvailable)
			r.Get("/clinics/{clinicId}", h.getProfile)
			r.Get("/clinics/{clinicId}/doctors", h.listDoctors)
			r.Get("/clinics/{clinicId}/slots/available", h.availableSlots)
			r.Get("/queue/{clinicId}", h.getQueue)
		})

		r.Group(func(r chi.Router) {
			r.Use(Authenticate(cfg.Verifier, true))

			r.Post("/users/onboard", h.onboard)
			r.Get("/users/me", h.me)

			r.Get("/admin/clinics", h.listClinicsByStatus)
			r.Patch("/admin/clinics/{userId}/status", h.updateClinicStatus)
			r.Delete("/admin/clinics/{userId}", h.deleteClinic)
			r.Get("/patients", h.listPatients)

			r.Post("/clinic/profile", h.createProfile)
			r.Put("/clinic/profile", h.upsertProfile)
			r.Patch("/clinic/availability", h.updateAvailability)
			r.Post("/clinic/doctors", h.addDoctor)
			r.Put("/clinic/doctors/{id}", h.updateDoctor)
			r.Delete("/clinic/doctors/{id}", h.deleteDoctor)
			r.Get("/clinic/slots", h.listClinicSlots)
			r.Put("/clinic/slots", h.setSlots)
			r.Post("/clinic/slots/generate", h.generateSlots)
			r.Put("/clinic/queue", h.setQueue)
			r.Post("/clinic/queue/advance", h.advanceQueue)

			r.Post("/appointments", h.bookAppointment)
			r.Get("/appointments", h.listAppointments)
			r.Get("/appointments/{id}", h.getAppointment)
			r.Patch("/appointments/{id}/status", h.updateAppointmentStatus)
			r.Post("/appointments/{id}/cancel", h.cancelAppointment)

			r.Get("/queue/{clinicId}/estimates", h.queueEstimates)

			r.Post("/messages", h.sendMessage)
			r.Get("/messages/unread", h.unread)
			r.Get("/messages/partners", h.chatPartners)
			r.Get("/messages/{userId}", h.conversation)
			r.Post("/messages/{userId}/read", h.markRead)
		})
	})

	return r
}

// websocketHandler authenticates from the token query parameter since
// browsers cannot set headers on the upgrade request.
func websocketHandler(v TokenVerifier, ws WebsocketServer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		token := r.URL.Query().Get("token")
		if token == "" {
			if t, ok := bearerToken(r); ok {
				token = t
			}
		}
		if token == "" {
			writeError(w, http.StatusUnauthorized, "unauthenticated", "missing token")
			return
		}
		p, err := v.Verify(token)
		if err != nil {
			writeError(w, http.StatusUnauthorized, "unauthenticated", err.Error())
			return
		}
		ws.Serve(w, r, p.UserID)
	}
}

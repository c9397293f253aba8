package queue

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hackgods/clinic-booking/internal/apperr"
	"github.com/hackgods/clinic-booking/internal/appointment"
	"github.com/hackgods/clinic-booking/internal/auth"
	"github.com/hackgods/clinic-booking/internal/identity"
	"github.com/hackgods/clinic-booking/internal/metrics"
	"github.com/hackgods/clinic-booking/internal/realtime"
)

type memRepo struct {
	mu     sync.Mutex
	queues map[string]QueueStatus
}

func newMemRepo() *memRepo {
	return &memRepo{queues: make(map[string]QueueStatus)}
}

func (r *memRepo) Get(_ context.Context, clinicID string) (*QueueStatus, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	q, ok := r.queues[clinicID]
	if !ok {
		return nil, ErrQueueNotFound
	}
	return &q, nil
}

func (r *memRepo) Upsert(_ context.Context, clinicID string, in QueueInput) (*QueueStatus, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	q, ok := r.queues[clinicID]
	if !ok {
		q = QueueStatus{ID: uuid.New(), ClinicID: clinicID}
	}
	q.EstimatedWaitTime = in.EstimatedWaitTime
	q.CurrentNumber = in.CurrentNumber
	q.NextNumber = in.NextNumber
	q.UpdatedAt = time.Now()
	r.queues[clinicID] = q
	return &q, nil
}

func (r *memRepo) Advance(_ context.Context, clinicID string) (*QueueStatus, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	q, ok := r.queues[clinicID]
	if !ok {
		q = QueueStatus{ID: uuid.New(), ClinicID: clinicID, EstimatedWaitTime: DefaultEstimatedWait, NextNumber: DefaultNextNumber}
	}
	q.CurrentNumber = q.NextNumber
	q.NextNumber++
	q.UpdatedAt = time.Now()
	r.queues[clinicID] = q
	return &q, nil
}

type approvedFunc func(ctx context.Context, patientID, clinicID string, from, to time.Time) ([]appointment.Appointment, error)

func (f approvedFunc) ApprovedForPatient(ctx context.Context, patientID, clinicID string, from, to time.Time) ([]appointment.Appointment, error) {
	return f(ctx, patientID, clinicID, from, to)
}

type fakeGuard struct {
	users map[string]identity.User
}

func (g fakeGuard) current(ctx context.Context, check func(*identity.User) error) (*identity.User, error) {
	p, ok := auth.FromContext(ctx)
	if !ok {
		return nil, apperr.ErrUnauthenticated
	}
	u, ok := g.users[p.UserID]
	if !ok {
		return nil, apperr.ErrUnauthorized
	}
	if err := check(&u); err != nil {
		return nil, err
	}
	return &u, nil
}

func (g fakeGuard) Patient(ctx context.Context) (*identity.User, error) {
	return g.current(ctx, identity.RequirePatient)
}

func (g fakeGuard) ApprovedClinic(ctx context.Context) (*identity.User, error) {
	return g.current(ctx, identity.RequireApprovedClinic)
}

type recordingPublisher struct {
	events []realtime.Event
}

func (p *recordingPublisher) Publish(_ context.Context, ev realtime.Event) error {
	p.events = append(p.events, ev)
	return nil
}

var guard = fakeGuard{users: map[string]identity.User{
	"clinic":  {ID: "clinic", Role: identity.RoleClinic, Status: identity.StatusApproved},
	"pending": {ID: "pending", Role: identity.RoleClinic, Status: identity.StatusPending},
	"patient": {ID: "patient", Role: identity.RolePatient, Status: identity.StatusApproved},
}}

func as(id string) context.Context {
	return auth.WithPrincipal(context.Background(), auth.Principal{UserID: id})
}

func noAppointments() Approved {
	return approvedFunc(func(context.Context, string, string, time.Time, time.Time) ([]appointment.Appointment, error) {
		return nil, nil
	})
}

func TestPosition(t *testing.T) {
	day := func(h, m int) time.Time { return time.Date(2024, 6, 1, h, m, 0, 0, time.UTC) }

	tests := []struct {
		name string
		at   time.Time
		want int
	}{
		{"at opening", day(8, 0), 1},
		{"inside first slot", day(8, 29), 1},
		{"second slot", day(8, 30), 2},
		{"ten o'clock", day(10, 0), 5},
		{"before opening", day(7, 45), 0},
		{"an hour early", day(7, 0), -1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Position(tt.at, 8, 30, time.UTC))
		})
	}
}

func TestPosition_UsesClinicZone(t *testing.T) {
	loc := time.FixedZone("UTC+2", 2*60*60)
	// 07:00 UTC is 09:00 local
	assert.Equal(t, 3, Position(time.Date(2024, 6, 1, 7, 0, 0, 0, time.UTC), 8, 30, loc))
}

func TestWait(t *testing.T) {
	assert.Equal(t, 45, Wait(5, 2, 15))
	assert.Equal(t, 0, Wait(2, 2, 15))
	assert.Equal(t, 0, Wait(1, 3, 15))
}

func TestGet_NotFound(t *testing.T) {
	svc := NewService(newMemRepo(), guard, noAppointments(), nil, nil, Options{}, nil)

	_, err := svc.Get(context.Background(), "clinic")
	assert.ErrorIs(t, err, ErrQueueNotFound)
	assert.Equal(t, apperr.KindNotFound, apperr.KindOf(err))
}

func TestSet_OverwritesAndPublishes(t *testing.T) {
	pub := &recordingPublisher{}
	m := metrics.NewCollector()
	svc := NewService(newMemRepo(), guard, noAppointments(), pub, m, Options{}, nil)

	_, err := svc.Set(as("clinic"), QueueInput{EstimatedWaitTime: 10, CurrentNumber: 3, NextNumber: 4})
	require.NoError(t, err)
	q, err := svc.Set(as("clinic"), QueueInput{EstimatedWaitTime: 20, CurrentNumber: 9, NextNumber: 2})
	require.NoError(t, err)

	assert.Equal(t, 20, q.EstimatedWaitTime)
	assert.Equal(t, 9, q.CurrentNumber)
	assert.Equal(t, 2, q.NextNumber)

	got, err := svc.Get(context.Background(), "clinic")
	require.NoError(t, err)
	assert.Equal(t, q.ID, got.ID)

	require.Len(t, pub.events, 2)
	assert.Equal(t, "queue/clinic", pub.events[1].Topic)
	assert.Equal(t, realtime.EventQueueUpdated, pub.events[1].Type)
	assert.Equal(t, 2.0, testutil.ToFloat64(m.QueueUpdates))
}

func TestSet_RequiresApprovedClinic(t *testing.T) {
	svc := NewService(newMemRepo(), guard, noAppointments(), nil, nil, Options{}, nil)

	for _, caller := range []string{"pending", "patient"} {
		_, err := svc.Set(as(caller), QueueInput{})
		assert.ErrorIs(t, err, apperr.ErrUnauthorized, caller)
		_, err = svc.Advance(as(caller))
		assert.ErrorIs(t, err, apperr.ErrUnauthorized, caller)
	}
}

func TestAdvance(t *testing.T) {
	svc := NewService(newMemRepo(), guard, noAppointments(), nil, nil, Options{}, nil)

	q, err := svc.Advance(as("clinic"))
	require.NoError(t, err)
	assert.Equal(t, QueueStatus{ID: q.ID, ClinicID: "clinic", EstimatedWaitTime: 15, CurrentNumber: 1, NextNumber: 2, UpdatedAt: q.UpdatedAt}, *q)

	_, err = svc.Set(as("clinic"), QueueInput{EstimatedWaitTime: 10, CurrentNumber: 4, NextNumber: 7})
	require.NoError(t, err)

	q, err = svc.Advance(as("clinic"))
	require.NoError(t, err)
	assert.Equal(t, 7, q.CurrentNumber)
	assert.Equal(t, 8, q.NextNumber)
	assert.Equal(t, 10, q.EstimatedWaitTime)
}

func TestEstimates(t *testing.T) {
	now := time.Date(2024, 6, 1, 9, 15, 0, 0, time.UTC)
	first := appointment.Appointment{ID: uuid.New(), Date: time.Date(2024, 6, 1, 9, 0, 0, 0, time.UTC)}
	later := appointment.Appointment{ID: uuid.New(), Date: time.Date(2024, 6, 1, 11, 30, 0, 0, time.UTC)}

	var gotFrom, gotTo time.Time
	approved := approvedFunc(func(_ context.Context, patientID, clinicID string, from, to time.Time) ([]appointment.Appointment, error) {
		assert.Equal(t, "patient", patientID)
		assert.Equal(t, "clinic", clinicID)
		gotFrom, gotTo = from, to
		return []appointment.Appointment{first, later}, nil
	})

	repo := newMemRepo()
	svc := NewService(repo, guard, approved, nil, nil, Options{
		Location:    time.UTC,
		OpeningHour: 8,
		SlotMinutes: 30,
		Now:         func() time.Time { return now },
	}, nil)

	// no queue yet: positions but no wait
	est, err := svc.Estimates(as("patient"), "clinic")
	require.NoError(t, err)
	assert.Nil(t, est.Queue)
	require.Len(t, est.Appointments, 2)
	assert.Equal(t, 3, est.Appointments[0].Position)
	assert.Equal(t, 0, est.Appointments[0].EstimatedWait)

	assert.Equal(t, time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC), gotFrom)
	assert.Equal(t, time.Date(2024, 6, 2, 0, 0, 0, 0, time.UTC), gotTo)

	_, err = repo.Upsert(context.Background(), "clinic", QueueInput{EstimatedWaitTime: 15, CurrentNumber: 3, NextNumber: 4})
	require.NoError(t, err)

	est, err = svc.Estimates(as("patient"), "clinic")
	require.NoError(t, err)
	require.NotNil(t, est.Queue)
	assert.Equal(t, 0, est.Appointments[0].EstimatedWait)
	assert.Equal(t, 8, est.Appointments[1].Position)
	assert.Equal(t, 75, est.Appointments[1].EstimatedWait)

	_, err = svc.Estimates(as("clinic"), "clinic")
	assert.ErrorIs(t, err, apperr.ErrUnauthorized)
}

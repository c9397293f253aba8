package timeslot

import (
	"context"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hackgods/clinic-booking/internal/apperr"
	"github.com/hackgods/clinic-booking/internal/auth"
	"github.com/hackgods/clinic-booking/internal/identity"
	"github.com/hackgods/clinic-booking/internal/realtime"
)

type memRepo struct {
	mu      sync.Mutex
	records map[string]TimeSlot
}

func newMemRepo() *memRepo {
	return &memRepo{records: make(map[string]TimeSlot)}
}

func key(clinicID string, day time.Time) string {
	return clinicID + "|" + day.UTC().Format(time.RFC3339)
}

func (r *memRepo) Get(_ context.Context, clinicID string, day time.Time) (*TimeSlot, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	ts, ok := r.records[key(clinicID, day)]
	if !ok {
		return nil, ErrTimeSlotNotFound
	}
	return &ts, nil
}

func (r *memRepo) Upsert(_ context.Context, clinicID string, day time.Time, slots []time.Time) (*TimeSlot, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	k := key(clinicID, day)
	ts, ok := r.records[k]
	if !ok {
		ts = TimeSlot{ID: uuid.New(), ClinicID: clinicID, Date: day, CreatedAt: time.Now()}
	}
	ts.Slots = slots
	ts.UpdatedAt = time.Now()
	r.records[k] = ts
	return &ts, nil
}

func (r *memRepo) List(_ context.Context, clinicID string, from, to *time.Time) ([]TimeSlot, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []TimeSlot
	for _, ts := range r.records {
		if ts.ClinicID != clinicID {
			continue
		}
		if from != nil && to != nil && (ts.Date.Before(*from) || !ts.Date.Before(*to)) {
			continue
		}
		out = append(out, ts)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out, nil
}

type bookedFunc func(ctx context.Context, clinicID string, from, to time.Time) ([]time.Time, error)

func (f bookedFunc) ApprovedTimes(ctx context.Context, clinicID string, from, to time.Time) ([]time.Time, error) {
	return f(ctx, clinicID, from, to)
}

type clinicGuard struct {
	users map[string]identity.User
}

func (g clinicGuard) ApprovedClinic(ctx context.Context) (*identity.User, error) {
	p, ok := auth.FromContext(ctx)
	if !ok {
		return nil, apperr.ErrUnauthenticated
	}
	u, ok := g.users[p.UserID]
	if !ok {
		return nil, apperr.ErrUnauthorized
	}
	if err := identity.RequireApprovedClinic(&u); err != nil {
		return nil, err
	}
	return &u, nil
}

type recordingPublisher struct {
	events []realtime.Event
}

func (p *recordingPublisher) Publish(_ context.Context, ev realtime.Event) error {
	p.events = append(p.events, ev)
	return nil
}

func as(id string) context.Context {
	return auth.WithPrincipal(context.Background(), auth.Principal{UserID: id})
}

var guard = clinicGuard{users: map[string]identity.User{
	"clinic":  {ID: "clinic", Role: identity.RoleClinic, Status: identity.StatusApproved},
	"pending": {ID: "pending", Role: identity.RoleClinic, Status: identity.StatusPending},
}}

func noBookings() BookedTimes {
	return bookedFunc(func(context.Context, string, time.Time, time.Time) ([]time.Time, error) {
		return nil, nil
	})
}

func TestGenerateDefault_PersistsAndPublishes(t *testing.T) {
	pub := &recordingPublisher{}
	svc := NewService(newMemRepo(), guard, noBookings(), pub, time.UTC, nil)

	// any time during the day maps to that day
	ts, err := svc.GenerateDefault(as("clinic"), time.Date(2024, 6, 1, 15, 4, 0, 0, time.UTC), 9, 17, 30)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC), ts.Date)
	assert.Len(t, ts.Slots, 16)

	require.Len(t, pub.events, 1)
	assert.Equal(t, "slots/clinic", pub.events[0].Topic)

	// regenerate replaces
	ts, err = svc.GenerateDefault(as("clinic"), ts.Date, 9, 10, 15)
	require.NoError(t, err)
	assert.Len(t, ts.Slots, 4)

	_, err = svc.GenerateDefault(as("clinic"), ts.Date, 9, 8, 15)
	assert.ErrorIs(t, err, ErrInvalidHours)

	_, err = svc.GenerateDefault(as("pending"), ts.Date, 9, 17, 30)
	assert.ErrorIs(t, err, apperr.ErrUnauthorized)
}

func TestSetSlotsAndList(t *testing.T) {
	svc := NewService(newMemRepo(), guard, noBookings(), nil, time.UTC, nil)
	d1 := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	d2 := d1.AddDate(0, 0, 1)

	nine := d1.Add(9 * time.Hour)
	half := nine.Add(30 * time.Minute)
	ts, err := svc.SetSlots(as("clinic"), d1, []time.Time{half, nine, half})
	require.NoError(t, err)
	assert.Equal(t, []time.Time{nine, half}, ts.Slots)

	_, err = svc.SetSlots(as("clinic"), d2, []time.Time{d2.Add(10 * time.Hour)})
	require.NoError(t, err)

	all, err := svc.ListClinicSlots(as("clinic"), nil, nil)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	ranged, err := svc.ListClinicSlots(as("clinic"), &d2, ptr(d2.AddDate(0, 0, 1)))
	require.NoError(t, err)
	require.Len(t, ranged, 1)
	assert.Equal(t, d2, ranged[0].Date)

	// a half-open range is ignored
	halfOpen, err := svc.ListClinicSlots(as("clinic"), &d2, nil)
	require.NoError(t, err)
	assert.Len(t, halfOpen, 2)
}

func TestAvailableSlots_ExcludesApprovedTimes(t *testing.T) {
	day := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	nine := day.Add(9 * time.Hour)
	half := nine.Add(30 * time.Minute)
	ten := nine.Add(time.Hour)

	var gotFrom, gotTo time.Time
	booked := bookedFunc(func(_ context.Context, clinicID string, from, to time.Time) ([]time.Time, error) {
		gotFrom, gotTo = from, to
		// an approved appointment off the slot grid does not remove anything
		return []time.Time{half, nine.Add(10 * time.Minute)}, nil
	})

	svc := NewService(newMemRepo(), guard, booked, nil, time.UTC, nil)
	_, err := svc.SetSlots(as("clinic"), day, []time.Time{nine, half, ten})
	require.NoError(t, err)

	got, err := svc.AvailableSlots(context.Background(), "clinic", day.Add(12*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, []time.Time{nine, ten}, got)
	assert.Equal(t, day, gotFrom)
	assert.Equal(t, day.Add(24*time.Hour), gotTo)
}

func TestAvailableSlots_NoRecord(t *testing.T) {
	svc := NewService(newMemRepo(), guard, noBookings(), nil, time.UTC, nil)

	got, err := svc.AvailableSlots(context.Background(), "clinic", time.Now())
	require.NoError(t, err)
	assert.NotNil(t, got)
	assert.Empty(t, got)
}

func ptr[T any](v T) *T { return &v }

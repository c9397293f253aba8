package identity

import (
	"context"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hackgods/clinic-booking/internal/apperr"
	"github.com/hackgods/clinic-booking/internal/auth"
	"github.com/hackgods/clinic-booking/internal/realtime"
)

var _ Repository = (*memRepo)(nil)

type memRepo struct {
	mu    sync.Mutex
	users map[string]User
}

func newMemRepo(users ...User) *memRepo {
	r := &memRepo{users: make(map[string]User)}
	for _, u := range users {
		r.users[u.ID] = u
	}
	return r
}

func (r *memRepo) GetUser(_ context.Context, id string) (*User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return nil, ErrUserNotFound
	}
	return &u, nil
}

func (r *memRepo) CreateUser(_ context.Context, u User) (*User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.users[u.ID]; ok {
		return nil, ErrAlreadyOnboarded
	}
	u.CreatedAt = time.Now()
	r.users[u.ID] = u
	return &u, nil
}

func (r *memRepo) ListUsers(_ context.Context, role Role, status Status) ([]User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []User
	for _, u := range r.users {
		if u.Role == role && u.Status == status {
			out = append(out, u)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *memRepo) UpdateStatus(_ context.Context, id string, status Status) (*User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return nil, ErrUserNotFound
	}
	u.Status = status
	r.users[id] = u
	return &u, nil
}

func (r *memRepo) DeleteUser(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.users[id]; !ok {
		return ErrUserNotFound
	}
	delete(r.users, id)
	return nil
}

type recordingPublisher struct {
	events []realtime.Event
}

func (p *recordingPublisher) Publish(_ context.Context, ev realtime.Event) error {
	p.events = append(p.events, ev)
	return nil
}

func as(id, email string) context.Context {
	return auth.WithPrincipal(context.Background(), auth.Principal{UserID: id, Email: email})
}

var (
	admin         = User{ID: "admin", Email: "root@example.com", Role: RoleAdmin, Status: StatusApproved}
	pendingClinic = User{ID: "clinic-p", Role: RoleClinic, Status: StatusPending}
	okClinic      = User{ID: "clinic-a", Role: RoleClinic, Status: StatusApproved}
	patient       = User{ID: "patient", Role: RolePatient, Status: StatusApproved}
)

func TestOnboard_StatusByRole(t *testing.T) {
	svc := NewService(newMemRepo(), []string{"Root@Example.com"}, nil, nil)

	c, err := svc.Onboard(as("c1", "c1@example.com"), RoleClinic)
	require.NoError(t, err)
	assert.Equal(t, StatusPending, c.Status)

	p, err := svc.Onboard(as("p1", "p1@example.com"), RolePatient)
	require.NoError(t, err)
	assert.Equal(t, StatusApproved, p.Status)

	a, err := svc.Onboard(as("a1", "root@example.com"), RoleAdmin)
	require.NoError(t, err)
	assert.Equal(t, RoleAdmin, a.Role)
	assert.Equal(t, StatusApproved, a.Status)
}

func TestOnboard_Errors(t *testing.T) {
	svc := NewService(newMemRepo(patient), []string{"root@example.com"}, nil, nil)

	_, err := svc.Onboard(context.Background(), RolePatient)
	assert.ErrorIs(t, err, apperr.ErrUnauthenticated)

	_, err = svc.Onboard(as("x", "x@example.com"), Role("doctor"))
	assert.ErrorIs(t, err, ErrInvalidRole)

	_, err = svc.Onboard(as("x", "x@example.com"), RoleAdmin)
	assert.ErrorIs(t, err, ErrAdminNotAllowed)
	assert.Equal(t, apperr.KindUnauthorized, apperr.KindOf(err))

	_, err = svc.Onboard(as("x", ""), RoleAdmin)
	assert.ErrorIs(t, err, ErrAdminNotAllowed)

	_, err = svc.Onboard(as(patient.ID, ""), RolePatient)
	assert.ErrorIs(t, err, ErrAlreadyOnboarded)
	assert.Equal(t, apperr.KindConflict, apperr.KindOf(err))
}

func TestMe(t *testing.T) {
	svc := NewService(newMemRepo(patient), nil, nil, nil)

	u, err := svc.Me(as(patient.ID, ""))
	require.NoError(t, err)
	assert.Equal(t, RolePatient, u.Role)

	_, err = svc.Me(as("nobody", ""))
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestGuard(t *testing.T) {
	g := NewGuard(newMemRepo(admin, pendingClinic, okClinic, patient))

	tests := []struct {
		name  string
		check func(context.Context) (*User, error)
		ok    []string
	}{
		{"patient", g.Patient, []string{patient.ID}},
		{"clinic", g.Clinic, []string{pendingClinic.ID, okClinic.ID}},
		{"approved clinic", g.ApprovedClinic, []string{okClinic.ID}},
		{"admin", g.Admin, []string{admin.ID}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for _, id := range []string{admin.ID, pendingClinic.ID, okClinic.ID, patient.ID} {
				_, err := tt.check(as(id, ""))
				if contains(tt.ok, id) {
					assert.NoError(t, err, id)
				} else {
					assert.ErrorIs(t, err, apperr.ErrUnauthorized, id)
				}
			}

			_, err := tt.check(context.Background())
			assert.ErrorIs(t, err, apperr.ErrUnauthenticated)

			_, err = tt.check(as("stranger", ""))
			assert.ErrorIs(t, err, apperr.ErrUnauthorized)
		})
	}
}

func TestUpdateClinicStatus(t *testing.T) {
	pub := &recordingPublisher{}
	svc := NewService(newMemRepo(admin, pendingClinic, patient), nil, pub, nil)

	u, err := svc.UpdateClinicStatus(as(admin.ID, ""), pendingClinic.ID, StatusApproved)
	require.NoError(t, err)
	assert.Equal(t, StatusApproved, u.Status)

	require.Len(t, pub.events, 1)
	assert.Equal(t, "user/"+pendingClinic.ID, pub.events[0].Topic)
	assert.Equal(t, realtime.EventClinicStatus, pub.events[0].Type)

	// now an approved clinic, it passes the approved guard
	_, err = svc.Guard().ApprovedClinic(as(pendingClinic.ID, ""))
	assert.NoError(t, err)

	_, err = svc.UpdateClinicStatus(as(admin.ID, ""), patient.ID, StatusRejected)
	assert.ErrorIs(t, err, ErrClinicNotFound)

	_, err = svc.UpdateClinicStatus(as(admin.ID, ""), "missing", StatusRejected)
	assert.ErrorIs(t, err, ErrClinicNotFound)

	_, err = svc.UpdateClinicStatus(as(admin.ID, ""), pendingClinic.ID, Status("archived"))
	assert.ErrorIs(t, err, ErrInvalidStatus)

	_, err = svc.UpdateClinicStatus(as(patient.ID, ""), pendingClinic.ID, StatusRejected)
	assert.ErrorIs(t, err, apperr.ErrUnauthorized)
}

func TestListClinicsByStatusAndDelete(t *testing.T) {
	repo := newMemRepo(admin, pendingClinic, okClinic, patient)
	svc := NewService(repo, nil, nil, nil)
	ctx := as(admin.ID, "")

	pending, err := svc.ListClinicsByStatus(ctx, StatusPending)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, pendingClinic.ID, pending[0].ID)

	require.NoError(t, svc.DeleteClinic(ctx, pendingClinic.ID))

	pending, err = svc.ListClinicsByStatus(ctx, StatusPending)
	require.NoError(t, err)
	assert.Empty(t, pending)

	assert.ErrorIs(t, svc.DeleteClinic(ctx, pendingClinic.ID), ErrClinicNotFound)
	assert.ErrorIs(t, svc.DeleteClinic(ctx, patient.ID), ErrClinicNotFound)
	assert.ErrorIs(t, svc.DeleteClinic(as(okClinic.ID, ""), okClinic.ID), apperr.ErrUnauthorized)
}

func TestListPatients(t *testing.T) {
	svc := NewService(newMemRepo(pendingClinic, okClinic, patient), nil, nil, nil)

	got, err := svc.ListPatients(as(okClinic.ID, ""))
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, patient.ID, got[0].ID)

	_, err = svc.ListPatients(as(pendingClinic.ID, ""))
	assert.ErrorIs(t, err, apperr.ErrUnauthorized)
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

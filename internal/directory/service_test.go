package directory

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
)

var _ Repository = (*memRepo)(nil)

type memRepo struct {
	mu       sync.Mutex
	profiles map[string]ClinicProfile
	doctors  map[uuid.UUID]Doctor
	approved map[string]bool
}

func newMemRepo() *memRepo {
	return &memRepo{
		profiles: make(map[string]ClinicProfile),
		doctors:  make(map[uuid.UUID]Doctor),
		approved: make(map[string]bool),
	}
}

func (r *memRepo) GetProfile(_ context.Context, clinicID string) (*ClinicProfile, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.profiles[clinicID]
	if !ok {
		return nil, ErrProfileNotFound
	}
	return &p, nil
}

func (r *memRepo) GetProfileByName(_ context.Context, name string) (*ClinicProfile, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, p := range r.profiles {
		if p.Name == name {
			return &p, nil
		}
	}
	return nil, ErrProfileNotFound
}

func (r *memRepo) write(clinicID string, in ProfileInput, created time.Time) ClinicProfile {
	p := ClinicProfile{
		ClinicID:         clinicID,
		Name:             in.Name,
		Address:          in.Address,
		Phone:            in.Phone,
		Email:            in.Email,
		Description:      in.Description,
		Specializations:  in.Specializations,
		IsAvailable:      in.IsAvailable,
		AvailabilityNote: in.AvailabilityNote,
		OpeningHours:     in.OpeningHours,
		CreatedAt:        created,
		UpdatedAt:        time.Now(),
	}
	r.profiles[clinicID] = p
	return p
}

func (r *memRepo) nameHeldByOther(clinicID, name string) bool {
	for id, p := range r.profiles {
		if p.Name == name && id != clinicID {
			return true
		}
	}
	return false
}

func (r *memRepo) CreateProfile(_ context.Context, clinicID string, in ProfileInput) (*ClinicProfile, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.profiles[clinicID]; ok {
		return nil, ErrProfileExists
	}
	if r.nameHeldByOther(clinicID, in.Name) {
		return nil, ErrNameTaken
	}
	p := r.write(clinicID, in, time.Now())
	return &p, nil
}

func (r *memRepo) UpdateProfile(_ context.Context, clinicID string, in ProfileInput) (*ClinicProfile, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	old, ok := r.profiles[clinicID]
	if !ok {
		return nil, ErrProfileNotFound
	}
	if r.nameHeldByOther(clinicID, in.Name) {
		return nil, ErrNameTaken
	}
	p := r.write(clinicID, in, old.CreatedAt)
	return &p, nil
}

func (r *memRepo) UpdateAvailability(_ context.Context, clinicID string, isAvailable bool, note *string) (*ClinicProfile, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.profiles[clinicID]
	if !ok {
		return nil, ErrProfileNotFound
	}
	p.IsAvailable = isAvailable
	p.AvailabilityNote = note
	r.profiles[clinicID] = p
	return &p, nil
}

func (r *memRepo) ListApprovedProfiles(_ context.Context) ([]ClinicProfile, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []ClinicProfile
	for id, p := range r.profiles {
		if r.approved[id] {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (r *memRepo) CreateDoctor(_ context.Context, clinicID string, in DoctorInput) (*Doctor, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	d := Doctor{
		ID:              uuid.New(),
		ClinicID:        clinicID,
		Name:            in.Name,
		Specializations: in.Specializations,
		Description:     in.Description,
		Photo:           in.Photo,
		CreatedAt:       time.Now(),
	}
	r.doctors[d.ID] = d
	return &d, nil
}

func (r *memRepo) GetDoctor(_ context.Context, id uuid.UUID) (*Doctor, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	d, ok := r.doctors[id]
	if !ok {
		return nil, ErrDoctorNotFound
	}
	return &d, nil
}

func (r *memRepo) UpdateDoctor(_ context.Context, id uuid.UUID, in DoctorInput) (*Doctor, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	d, ok := r.doctors[id]
	if !ok {
		return nil, ErrDoctorNotFound
	}
	d.Name = in.Name
	d.Specializations = in.Specializations
	d.Description = in.Description
	d.Photo = in.Photo
	r.doctors[id] = d
	return &d, nil
}

func (r *memRepo) DeleteDoctor(_ context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.doctors[id]; !ok {
		return ErrDoctorNotFound
	}
	delete(r.doctors, id)
	return nil
}

func (r *memRepo) ListDoctors(_ context.Context, clinicID string) ([]Doctor, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []Doctor
	for _, d := range r.doctors {
		if d.ClinicID == clinicID {
			out = append(out, d)
		}
	}
	return out, nil
}

// fakeGuard resolves the context principal against a fixed user set.
type fakeGuard struct {
	users map[string]*identity.User
}

func newFakeGuard(users ...identity.User) *fakeGuard {
	g := &fakeGuard{users: make(map[string]*identity.User)}
	for i := range users {
		g.users[users[i].ID] = &users[i]
	}
	return g
}

func (g *fakeGuard) resolve(ctx context.Context, check func(*identity.User) error) (*identity.User, error) {
	p, ok := auth.FromContext(ctx)
	if !ok {
		return nil, apperr.ErrUnauthenticated
	}
	u, ok := g.users[p.UserID]
	if !ok {
		return nil, apperr.ErrUnauthorized
	}
	if err := check(u); err != nil {
		return nil, err
	}
	return u, nil
}

func (g *fakeGuard) Clinic(ctx context.Context) (*identity.User, error) {
	return g.resolve(ctx, identity.RequireClinic)
}

func (g *fakeGuard) ApprovedClinic(ctx context.Context) (*identity.User, error) {
	return g.resolve(ctx, identity.RequireApprovedClinic)
}

func as(id string) context.Context {
	return auth.WithPrincipal(context.Background(), auth.Principal{UserID: id})
}

var (
	clinicA  = identity.User{ID: "clinic-a", Role: identity.RoleClinic, Status: identity.StatusApproved}
	clinicB  = identity.User{ID: "clinic-b", Role: identity.RoleClinic, Status: identity.StatusApproved}
	pendingC = identity.User{ID: "clinic-p", Role: identity.RoleClinic, Status: identity.StatusPending}
	patientP = identity.User{ID: "patient", Role: identity.RolePatient, Status: identity.StatusApproved}
)

func profile(name string) ProfileInput {
	return ProfileInput{
		Name:            name,
		Address:         "1 Main St",
		Phone:           "555-0100",
		Email:           "front@" + name + ".example",
		Specializations: []string{"Dental"},
		IsAvailable:     true,
	}
}

func newTestService() (*Service, *memRepo) {
	repo := newMemRepo()
	return NewService(repo, newFakeGuard(clinicA, clinicB, pendingC, patientP), nil), repo
}

func TestCreateInitialProfile(t *testing.T) {
	svc, _ := newTestService()

	p, err := svc.CreateInitialProfile(as(pendingC.ID), profile("Sunrise"))
	require.NoError(t, err)
	assert.Equal(t, pendingC.ID, p.ClinicID)

	_, err = svc.CreateInitialProfile(as(pendingC.ID), profile("Other"))
	assert.ErrorIs(t, err, ErrProfileExists)

	_, err = svc.CreateInitialProfile(as(clinicA.ID), profile("Sunrise"))
	assert.ErrorIs(t, err, ErrNameTaken)
	assert.Equal(t, apperr.KindConflict, apperr.KindOf(err))

	_, err = svc.CreateInitialProfile(as(clinicA.ID), ProfileInput{Name: "x"})
	assert.ErrorIs(t, err, ErrProfileFieldsRequired)

	_, err = svc.CreateInitialProfile(as(patientP.ID), profile("Mine"))
	assert.ErrorIs(t, err, apperr.ErrUnauthorized)
}

func TestUpsertProfile(t *testing.T) {
	svc, _ := newTestService()

	created, err := svc.UpsertProfile(as(clinicA.ID), profile("Alpha"))
	require.NoError(t, err)
	assert.Equal(t, "Alpha", created.Name)

	// keeping its own name is fine
	in := profile("Alpha")
	in.Phone = "555-9999"
	updated, err := svc.UpsertProfile(as(clinicA.ID), in)
	require.NoError(t, err)
	assert.Equal(t, "555-9999", updated.Phone)

	_, err = svc.UpsertProfile(as(clinicB.ID), profile("Alpha"))
	assert.ErrorIs(t, err, ErrNameTaken)

	_, err = svc.UpsertProfile(as(pendingC.ID), profile("Pending"))
	assert.ErrorIs(t, err, apperr.ErrUnauthorized)
}

func TestUpdateAvailability(t *testing.T) {
	svc, _ := newTestService()

	_, err := svc.UpdateAvailability(as(clinicA.ID), false, nil)
	assert.ErrorIs(t, err, ErrProfileNotFound)

	_, err = svc.UpsertProfile(as(clinicA.ID), profile("Alpha"))
	require.NoError(t, err)

	note := "closed for renovation"
	p, err := svc.UpdateAvailability(as(clinicA.ID), false, &note)
	require.NoError(t, err)
	assert.False(t, p.IsAvailable)
	require.NotNil(t, p.AvailabilityNote)
	assert.Equal(t, note, *p.AvailabilityNote)
}

func TestIsNameUnique(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	_, err := svc.UpsertProfile(as(clinicA.ID), profile("Alpha"))
	require.NoError(t, err)

	tests := []struct {
		name, current string
		want          bool
	}{
		{"Beta", "", true},
		{"Alpha", "", false},
		{"Alpha", clinicA.ID, true},
		{"Alpha", clinicB.ID, false},
		{"alpha", "", true}, // case-sensitive
	}
	for _, tt := range tests {
		got, err := svc.IsNameUnique(ctx, tt.name, tt.current)
		require.NoError(t, err)
		assert.Equal(t, tt.want, got, "%s/%s", tt.name, tt.current)
	}
}

func TestSearchClinics(t *testing.T) {
	svc, repo := newTestService()

	desc := "Family care near the PARK"
	a := profile("Alpha Dental")
	a.Specializations = []string{"Dental", "Orthodontics"}
	b := profile("Beta Clinic")
	b.Address = "9 Park Lane"
	b.Specializations = []string{"Pediatrics"}
	b.Description = &desc

	_, err := svc.UpsertProfile(as(clinicA.ID), a)
	require.NoError(t, err)
	_, err = svc.UpsertProfile(as(clinicB.ID), b)
	require.NoError(t, err)
	_, err = svc.CreateInitialProfile(as(pendingC.ID), profile("Park Pending"))
	require.NoError(t, err)

	repo.approved[clinicA.ID] = true
	repo.approved[clinicB.ID] = true

	res, err := svc.SearchClinics(context.Background(), "park", "")
	require.NoError(t, err)
	require.Len(t, res.Clinics, 1)
	assert.Equal(t, "Beta Clinic", res.Clinics[0].Name)
	assert.Equal(t, []string{"Dental", "Orthodontics", "Pediatrics"}, res.Specializations)

	res, err = svc.SearchClinics(context.Background(), "", "Orthodontics")
	require.NoError(t, err)
	require.Len(t, res.Clinics, 1)
	assert.Equal(t, clinicA.ID, res.Clinics[0].ClinicID)

	res, err = svc.SearchClinics(context.Background(), "", "orthodontics")
	require.NoError(t, err)
	assert.Empty(t, res.Clinics)

	res, err = svc.SearchClinics(context.Background(), "  ", "")
	require.NoError(t, err)
	assert.Len(t, res.Clinics, 2)
}

func TestDoctors(t *testing.T) {
	svc, _ := newTestService()

	d, err := svc.AddDoctor(as(clinicA.ID), DoctorInput{Name: "Dr. Who", Specializations: []string{"Dental"}})
	require.NoError(t, err)
	assert.Equal(t, clinicA.ID, d.ClinicID)

	_, err = svc.AddDoctor(as(clinicA.ID), DoctorInput{Name: " "})
	assert.ErrorIs(t, err, ErrDoctorNameRequired)

	_, err = svc.AddDoctor(as(pendingC.ID), DoctorInput{Name: "Dr. No"})
	assert.ErrorIs(t, err, apperr.ErrUnauthorized)

	// another clinic cannot see or touch it
	_, err = svc.UpdateDoctor(as(clinicB.ID), d.ID, DoctorInput{Name: "Hijack"})
	assert.ErrorIs(t, err, ErrDoctorNotFound)
	assert.ErrorIs(t, svc.DeleteDoctor(as(clinicB.ID), d.ID), ErrDoctorNotFound)

	updated, err := svc.UpdateDoctor(as(clinicA.ID), d.ID, DoctorInput{Name: "Dr. Who II"})
	require.NoError(t, err)
	assert.Equal(t, "Dr. Who II", updated.Name)

	list, err := svc.ListDoctors(context.Background(), clinicA.ID)
	require.NoError(t, err)
	assert.Len(t, list, 1)

	require.NoError(t, svc.DeleteDoctor(as(clinicA.ID), d.ID))
	list, err = svc.ListDoctors(context.Background(), clinicA.ID)
	require.NoError(t, err)
	assert.Empty(t, list)

	assert.ErrorIs(t, svc.DeleteDoctor(as(clinicA.ID), uuid.New()), ErrDoctorNotFound)
}

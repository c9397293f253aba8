package directory

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const (
	uniqueViolation = "23505"
	profilePKey     = "clinic_profiles_pkey"
	profileNameKey  = "clinic_profiles_name_key"
	profileColumns  = `clinic_id, name, address, phone, email, description, specializations, is_available, availability_note, opening_hours, created_at, updated_at`
	doctorColumns   = `id, clinic_id, name, specializations, description, photo, created_at, updated_at`
)

type PgRepository struct {
	pool *pgxpool.Pool
}

func NewPgRepository(pool *pgxpool.Pool) *PgRepository {
	return &PgRepository{pool: pool}
}

func scanProfile(row pgx.Row) (*ClinicProfile, error) {
	var p ClinicProfile
	err := row.Scan(
		&p.ClinicID,
		&p.Name,
		&p.Address,
		&p.Phone,
		&p.Email,
		&p.Description,
		&p.Specializations,
		&p.IsAvailable,
		&p.AvailabilityNote,
		&p.OpeningHours,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrProfileNotFound
		}
		return nil, err
	}
	return &p, nil
}

func scanDoctor(row pgx.Row) (*Doctor, error) {
	var d Doctor
	err := row.Scan(
		&d.ID,
		&d.ClinicID,
		&d.Name,
		&d.Specializations,
		&d.Description,
		&d.Photo,
		&d.CreatedAt,
		&d.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrDoctorNotFound
		}
		return nil, err
	}
	return &d, nil
}

// mapProfileConflict turns unique violations on clinic_profiles into
// domain errors.
func mapProfileConflict(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		switch pgErr.ConstraintName {
		case profileNameKey:
			return ErrNameTaken
		case profilePKey:
			return ErrProfileExists
		}
	}
	return err
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

func (r *PgRepository) GetProfile(ctx context.Context, clinicID string) (*ClinicProfile, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+profileColumns+` FROM clinic_profiles WHERE clinic_id = $1`, clinicID)
	return scanProfile(row)
}

func (r *PgRepository) GetProfileByName(ctx context.Context, name string) (*ClinicProfile, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+profileColumns+` FROM clinic_profiles WHERE name = $1`, name)
	return scanProfile(row)
}

func (r *PgRepository) CreateProfile(ctx context.Context, clinicID string, in ProfileInput) (*ClinicProfile, error) {
	row := r.pool.QueryRow(ctx, `
		INSERT INTO clinic_profiles (
			clinic_id, name, address, phone, email, description, specializations,
			is_available, availability_note, opening_hours, created_at, updated_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, now(), now())
		RETURNING `+profileColumns,
		clinicID, in.Name, in.Address, in.Phone, in.Email, in.Description, nonNil(in.Specializations),
		in.IsAvailable, in.AvailabilityNote, in.OpeningHours,
	)
	p, err := scanProfile(row)
	if err != nil {
		return nil, mapProfileConflict(err)
	}
	return p, nil
}

func (r *PgRepository) UpdateProfile(ctx context.Context, clinicID string, in ProfileInput) (*ClinicProfile, error) {
	row := r.pool.QueryRow(ctx, `
		UPDATE clinic_profiles
		SET name = $2,
		    address = $3,
		    phone = $4,
		    email = $5,
		    description = $6,
		    specializations = $7,
		    is_available = $8,
		    availability_note = $9,
		    opening_hours = $10,
		    updated_at = now()
		WHERE clinic_id = $1
		RETURNING `+profileColumns,
		clinicID, in.Name, in.Address, in.Phone, in.Email, in.Description, nonNil(in.Specializations),
		in.IsAvailable, in.AvailabilityNote, in.OpeningHours,
	)
	p, err := scanProfile(row)
	if err != nil {
		return nil, mapProfileConflict(err)
	}
	return p, nil
}

func (r *PgRepository) UpdateAvailability(ctx context.Context, clinicID string, isAvailable bool, note *string) (*ClinicProfile, error) {
	row := r.pool.QueryRow(ctx, `
		UPDATE clinic_profiles
		SET is_available = $2,
		    availability_note = $3,
		    updated_at = now()
		WHERE clinic_id = $1
		RETURNING `+profileColumns,
		clinicID, isAvailable, note,
	)
	return scanProfile(row)
}

func (r *PgRepository) ListApprovedProfiles(ctx context.Context) ([]ClinicProfile, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT p.clinic_id, p.name, p.address, p.phone, p.email, p.description, p.specializations,
		       p.is_available, p.availability_note, p.opening_hours, p.created_at, p.updated_at
		FROM clinic_profiles p
		JOIN users u ON u.id = p.clinic_id
		WHERE u.role = 'clinic' AND u.status = 'approved'
		ORDER BY p.name
	`)
	if err != nil {
		return nil, fmt.Errorf("list approved profiles: %w", err)
	}
	defer rows.Close()

	var result []ClinicProfile
	for rows.Next() {
		p, err := scanProfile(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *p)
	}
	return result, rows.Err()
}

func (r *PgRepository) CreateDoctor(ctx context.Context, clinicID string, in DoctorInput) (*Doctor, error) {
	row := r.pool.QueryRow(ctx, `
		INSERT INTO doctors (id, clinic_id, name, specializations, description, photo, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, now(), now())
		RETURNING `+doctorColumns,
		uuid.New(), clinicID, in.Name, nonNil(in.Specializations), in.Description, in.Photo,
	)
	return scanDoctor(row)
}

func (r *PgRepository) GetDoctor(ctx context.Context, id uuid.UUID) (*Doctor, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+doctorColumns+` FROM doctors WHERE id = $1`, id)
	return scanDoctor(row)
}

func (r *PgRepository) UpdateDoctor(ctx context.Context, id uuid.UUID, in DoctorInput) (*Doctor, error) {
	row := r.pool.QueryRow(ctx, `
		UPDATE doctors
		SET name = $2,
		    specializations = $3,
		    description = $4,
		    photo = $5,
		    updated_at = now()
		WHERE id = $1
		RETURNING `+doctorColumns,
		id, in.Name, nonNil(in.Specializations), in.Description, in.Photo,
	)
	return scanDoctor(row)
}

func (r *PgRepository) DeleteDoctor(ctx context.Context, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM doctors WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete doctor: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrDoctorNotFound
	}
	return nil
}

func (r *PgRepository) ListDoctors(ctx context.Context, clinicID string) ([]Doctor, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+doctorColumns+`
		FROM doctors
		WHERE clinic_id = $1
		ORDER BY created_at
	`, clinicID)
	if err != nil {
		return nil, fmt.Errorf("list doctors: %w", err)
	}
	defer rows.Close()

	var result []Doctor
	for rows.Next() {
		d, err := scanDoctor(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *d)
	}
	return result, rows.Err()
}

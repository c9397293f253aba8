package appointment

import (
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"

	"github.com/hackgods/clinic-booking/internal/apperr"
)

type errRow struct{ err error }

func (r errRow) Scan(...any) error { return r.err }

func TestScanAppointment_MapsErrors(t *testing.T) {
	otherUnique := &pgconn.PgError{Code: uniqueViolation, ConstraintName: "appointments_pkey"}
	boom := errors.New("connection reset")

	tests := []struct {
		name string
		err  error
		want error
	}{
		{"no rows", pgx.ErrNoRows, ErrAppointmentNotFound},
		{"approved slot index", &pgconn.PgError{Code: uniqueViolation, ConstraintName: approvedSlotIndex}, ErrSlotTaken},
		{"wrapped approved slot index", fmt.Errorf("exec: %w", &pgconn.PgError{Code: uniqueViolation, ConstraintName: approvedSlotIndex}), ErrSlotTaken},
		{"other unique constraint", otherUnique, otherUnique},
		{"other failure", boom, boom},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := scanAppointment(errRow{err: tt.err})
			assert.Nil(t, got)
			assert.ErrorIs(t, err, tt.want)
		})
	}

	_, err := scanAppointment(errRow{err: &pgconn.PgError{Code: uniqueViolation, ConstraintName: approvedSlotIndex}})
	assert.Equal(t, apperr.KindConflict, apperr.KindOf(err))
}

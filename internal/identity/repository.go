package identity

import (
	"context"

	"github.com/hackgods/clinic-booking/internal/apperr"
)

var (
	ErrUserNotFound     = apperr.New(apperr.KindNotFound, "user not found")
	ErrClinicNotFound   = apperr.New(apperr.KindNotFound, "clinic not found")
	ErrAlreadyOnboarded = apperr.New(apperr.KindConflict, "user already onboarded")
	ErrInvalidRole      = apperr.New(apperr.KindInvalid, "invalid role")
	ErrInvalidStatus    = apperr.New(apperr.KindInvalid, "invalid status")
	ErrAdminNotAllowed  = apperr.New(apperr.KindUnauthorized, "email is not allowed to onboard as admin")
)

type Repository interface {
	GetUser(ctx context.Context, id string) (*User, error)
	// CreateUser returns ErrAlreadyOnboarded when the id exists.
	CreateUser(ctx context.Context, u User) (*User, error)
	ListUsers(ctx context.Context, role Role, status Status) ([]User, error)
	UpdateStatus(ctx context.Context, id string, status Status) (*User, error)
	DeleteUser(ctx context.Context, id string) error
}

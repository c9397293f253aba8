package identity

import (
	"context"
	"errors"

	"github.com/hackgods/clinic-booking/internal/apperr"
	"github.com/hackgods/clinic-booking/internal/auth"
)

// Guard re-derives the caller's role and status from storage on every
// call. Nothing about authorization is cached in the token.
type Guard struct {
	repo Repository
}

func NewGuard(repo Repository) *Guard {
	return &Guard{repo: repo}
}

func (g *Guard) Authenticated(ctx context.Context) (auth.Principal, error) {
	p, ok := auth.FromContext(ctx)
	if !ok || p.UserID == "" {
		return auth.Principal{}, apperr.ErrUnauthenticated
	}
	return p, nil
}

// Current returns the caller's user record. A principal that has not
// onboarded yet is Unauthorized.
func (g *Guard) Current(ctx context.Context) (*User, error) {
	p, err := g.Authenticated(ctx)
	if err != nil {
		return nil, err
	}
	u, err := g.repo.GetUser(ctx, p.UserID)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return nil, apperr.ErrUnauthorized
		}
		return nil, err
	}
	return u, nil
}

func (g *Guard) Patient(ctx context.Context) (*User, error) {
	return g.require(ctx, RequirePatient)
}

// Clinic accepts a clinic user in any moderation state.
func (g *Guard) Clinic(ctx context.Context) (*User, error) {
	return g.require(ctx, RequireClinic)
}

func (g *Guard) ApprovedClinic(ctx context.Context) (*User, error) {
	return g.require(ctx, RequireApprovedClinic)
}

func (g *Guard) Admin(ctx context.Context) (*User, error) {
	return g.require(ctx, RequireAdmin)
}

// Lookup fetches any user by id, for existence checks on counterparties.
func (g *Guard) Lookup(ctx context.Context, id string) (*User, error) {
	return g.repo.GetUser(ctx, id)
}

func (g *Guard) require(ctx context.Context, check func(*User) error) (*User, error) {
	u, err := g.Current(ctx)
	if err != nil {
		return nil, err
	}
	if err := check(u); err != nil {
		return nil, err
	}
	return u, nil
}

func RequirePatient(u *User) error {
	if u.Role != RolePatient {
		return apperr.ErrUnauthorized
	}
	return nil
}

func RequireClinic(u *User) error {
	if u.Role != RoleClinic {
		return apperr.ErrUnauthorized
	}
	return nil
}

func RequireApprovedClinic(u *User) error {
	if !u.IsApprovedClinic() {
		return apperr.ErrUnauthorized
	}
	return nil
}

func RequireAdmin(u *User) error {
	if u.Role != RoleAdmin {
		return apperr.ErrUnauthorized
	}
	return nil
}

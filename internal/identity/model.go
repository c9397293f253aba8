package identity

import "time"

type Role string

const (
	RoleAdmin   Role = "admin"
	RoleClinic  Role = "clinic"
	RolePatient Role = "patient"
)

func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleClinic, RolePatient:
		return true
	}
	return false
}

// Status is the moderation state of a user. Only clinics start out pending.
type Status string

const (
	StatusPending  Status = "pending"
	StatusApproved Status = "approved"
	StatusRejected Status = "rejected"
)

func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusApproved, StatusRejected:
		return true
	}
	return false
}

type User struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	Role      Role      `json:"role"`
	Status    Status    `json:"status"`
	CreatedAt time.Time `json:"createdAt"`
}

func (u *User) IsApprovedClinic() bool {
	return u.Role == RoleClinic && u.Status == StatusApproved
}

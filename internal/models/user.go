package models

import (
	"time"

	"github.com/google/uuid"
)

// Role represents a user's role in the platform.
type Role string

const (
	RoleStudent     Role = "STUDENT"
	RoleTeacher     Role = "TEACHER"
	RoleSchoolAdmin Role = "SCHOOL_ADMIN"
	RoleOrgAdmin    Role = "ORG_ADMIN"
)

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	switch r {
	case RoleStudent, RoleTeacher, RoleSchoolAdmin, RoleOrgAdmin:
		return true
	}
	return false
}

// SchoolTier reports whether the role belongs to school staff
// (the only tier allowed to remove previously approved hours).
func (r Role) SchoolTier() bool {
	return r == RoleTeacher || r == RoleSchoolAdmin
}

// User represents a platform user.
type User struct {
	ID             uuid.UUID  `json:"id"`
	Email          string     `json:"email"`
	Password       string     `json:"-"`
	FullName       string     `json:"full_name"`
	Role           Role       `json:"role"`
	SchoolID       *uuid.UUID `json:"school_id,omitempty"`
	ClassroomID    *uuid.UUID `json:"classroom_id,omitempty"`
	OrganizationID *uuid.UUID `json:"organization_id,omitempty"`
	EmailOptOut    bool       `json:"email_opt_out"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

// UserPublic is User without sensitive fields for API responses.
type UserPublic struct {
	ID             uuid.UUID  `json:"id"`
	Email          string     `json:"email"`
	FullName       string     `json:"full_name"`
	Role           Role       `json:"role"`
	SchoolID       *uuid.UUID `json:"school_id,omitempty"`
	ClassroomID    *uuid.UUID `json:"classroom_id,omitempty"`
	OrganizationID *uuid.UUID `json:"organization_id,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
}

// ToPublic converts User to UserPublic.
func (u *User) ToPublic() UserPublic {
	return UserPublic{
		ID:             u.ID,
		Email:          u.Email,
		FullName:       u.FullName,
		Role:           u.Role,
		SchoolID:       u.SchoolID,
		ClassroomID:    u.ClassroomID,
		OrganizationID: u.OrganizationID,
		CreatedAt:      u.CreatedAt,
	}
}

package verification

import (
	"github.com/google/uuid"

	"github.com/hourtrack/backend/internal/auth"
	"github.com/hourtrack/backend/internal/models"
)

// Scope is the authorization context of one session: the organization that
// owns the opportunity and the student's school/classroom membership.
type Scope struct {
	OrganizationID     uuid.UUID
	StudentSchoolID    *uuid.UUID
	StudentClassroomID *uuid.UUID
}

// CanVerify reports whether the actor may approve or reject a session in the
// given scope. Org admins verify their own organization's opportunities,
// school admins any student in their school, teachers only their classroom.
func CanVerify(actor auth.Actor, scope Scope) bool {
	switch actor.Role {
	case models.RoleOrgAdmin:
		return actor.OrganizationID != nil && *actor.OrganizationID == scope.OrganizationID
	case models.RoleSchoolAdmin:
		return sameID(actor.SchoolID, scope.StudentSchoolID)
	case models.RoleTeacher:
		return sameID(actor.ClassroomID, scope.StudentClassroomID)
	}
	return false
}

// CanOverride reports whether the actor may remove hours, including
// previously approved ones. School staff only; org admins never.
func CanOverride(actor auth.Actor, scope Scope) bool {
	if !actor.Role.SchoolTier() {
		return false
	}
	if actor.Role == models.RoleSchoolAdmin {
		return sameID(actor.SchoolID, scope.StudentSchoolID)
	}
	return sameID(actor.ClassroomID, scope.StudentClassroomID)
}

func sameID(a, b *uuid.UUID) bool {
	return a != nil && b != nil && *a == *b
}

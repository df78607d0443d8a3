package verification

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	"github.com/hourtrack/backend/internal/auth"
	"github.com/hourtrack/backend/internal/models"
)

func TestCanVerify_RoleMatrix(t *testing.T) {
	orgID := uuid.New()
	schoolID := uuid.New()
	classroomID := uuid.New()
	otherOrg := uuid.New()
	otherSchool := uuid.New()
	otherClassroom := uuid.New()

	scope := Scope{
		OrganizationID:     orgID,
		StudentSchoolID:    &schoolID,
		StudentClassroomID: &classroomID,
	}

	tests := []struct {
		name  string
		actor auth.Actor
		want  bool
	}{
		{"org admin of owning org", auth.Actor{Role: models.RoleOrgAdmin, OrganizationID: &orgID}, true},
		{"org admin of other org", auth.Actor{Role: models.RoleOrgAdmin, OrganizationID: &otherOrg}, false},
		{"org admin without org", auth.Actor{Role: models.RoleOrgAdmin}, false},
		{"school admin of student's school", auth.Actor{Role: models.RoleSchoolAdmin, SchoolID: &schoolID}, true},
		{"school admin of other school", auth.Actor{Role: models.RoleSchoolAdmin, SchoolID: &otherSchool}, false},
		{"teacher of student's classroom", auth.Actor{Role: models.RoleTeacher, ClassroomID: &classroomID}, true},
		{"teacher of other classroom", auth.Actor{Role: models.RoleTeacher, ClassroomID: &otherClassroom}, false},
		{"teacher in same school other classroom", auth.Actor{Role: models.RoleTeacher, SchoolID: &schoolID, ClassroomID: &otherClassroom}, false},
		{"student", auth.Actor{Role: models.RoleStudent, SchoolID: &schoolID, ClassroomID: &classroomID}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.actor.UserID = uuid.New()
			assert.Equal(t, tt.want, CanVerify(tt.actor, scope))
		})
	}
}

func TestCanVerify_StudentWithoutSchool(t *testing.T) {
	schoolID := uuid.New()
	scope := Scope{OrganizationID: uuid.New()}

	actor := auth.Actor{UserID: uuid.New(), Role: models.RoleSchoolAdmin, SchoolID: &schoolID}
	assert.False(t, CanVerify(actor, scope), "student with no school is out of any school scope")
}

func TestCanOverride_SchoolTierOnly(t *testing.T) {
	orgID := uuid.New()
	schoolID := uuid.New()
	classroomID := uuid.New()
	otherClassroom := uuid.New()

	scope := Scope{
		OrganizationID:     orgID,
		StudentSchoolID:    &schoolID,
		StudentClassroomID: &classroomID,
	}

	orgAdmin := auth.Actor{UserID: uuid.New(), Role: models.RoleOrgAdmin, OrganizationID: &orgID}
	assert.False(t, CanOverride(orgAdmin, scope), "org admins may verify but never override")

	schoolAdmin := auth.Actor{UserID: uuid.New(), Role: models.RoleSchoolAdmin, SchoolID: &schoolID}
	assert.True(t, CanOverride(schoolAdmin, scope))

	teacher := auth.Actor{UserID: uuid.New(), Role: models.RoleTeacher, ClassroomID: &classroomID}
	assert.True(t, CanOverride(teacher, scope))

	otherTeacher := auth.Actor{UserID: uuid.New(), Role: models.RoleTeacher, ClassroomID: &otherClassroom}
	assert.False(t, CanOverride(otherTeacher, scope))
}

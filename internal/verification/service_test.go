package verification

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hourtrack/backend/internal/auth"
	"github.com/hourtrack/backend/internal/models"
)

// fakeStore implements Store/Tx in memory for testing
type fakeStore struct {
	session *models.ServiceSession
	scope   Scope
	audits  []string
}

func newFakeStore() *fakeStore {
	schoolID := uuid.New()
	classroomID := uuid.New()
	return &fakeStore{
		session: &models.ServiceSession{
			ID:                 uuid.New(),
			UserID:             uuid.New(),
			OpportunityID:      uuid.New(),
			Status:             models.SessionCheckedOut,
			VerificationStatus: models.VerificationPending,
			TotalHours:         2.5,
		},
		scope: Scope{
			OrganizationID:     uuid.New(),
			StudentSchoolID:    &schoolID,
			StudentClassroomID: &classroomID,
		},
	}
}

func (f *fakeStore) InTx(ctx context.Context, fn func(tx Tx) error) error {
	return fn(f)
}

func (f *fakeStore) GetSession(_ context.Context, id uuid.UUID) (*models.ServiceSession, error) {
	if f.session != nil && f.session.ID == id {
		copied := *f.session
		return &copied, nil
	}
	return nil, nil
}

func (f *fakeStore) GetScope(_ context.Context, _ uuid.UUID) (Scope, error) {
	return f.scope, nil
}

func (f *fakeStore) SetApproved(_ context.Context, id uuid.UUID, hours float64, verifiedBy uuid.UUID, at time.Time) (bool, error) {
	if f.session.ID != id || f.session.VerificationStatus == models.VerificationApproved {
		return false, nil
	}
	f.session.Status = models.SessionVerified
	f.session.VerificationStatus = models.VerificationApproved
	f.session.TotalHours = hours
	f.session.VerifiedBy = &verifiedBy
	f.session.VerifiedAt = &at
	f.session.RejectionReason = ""
	return true, nil
}

func (f *fakeStore) SetRejected(_ context.Context, id uuid.UUID, reason string, verifiedBy uuid.UUID, at time.Time) error {
	if f.session.ID == id {
		f.session.Status = models.SessionRejected
		f.session.VerificationStatus = models.VerificationRejected
		f.session.RejectionReason = reason
		f.session.VerifiedBy = &verifiedBy
		f.session.VerifiedAt = &at
	}
	return nil
}

func (f *fakeStore) RecordAudit(_ context.Context, action string, _ uuid.UUID, _ *uuid.UUID, _ interface{}) error {
	f.audits = append(f.audits, action)
	return nil
}

func (f *fakeStore) orgAdmin() auth.Actor {
	orgID := f.scope.OrganizationID
	return auth.Actor{UserID: uuid.New(), Role: models.RoleOrgAdmin, OrganizationID: &orgID}
}

func (f *fakeStore) schoolAdmin() auth.Actor {
	return auth.Actor{UserID: uuid.New(), Role: models.RoleSchoolAdmin, SchoolID: f.scope.StudentSchoolID}
}

func (f *fakeStore) teacher() auth.Actor {
	return auth.Actor{UserID: uuid.New(), Role: models.RoleTeacher, ClassroomID: f.scope.StudentClassroomID}
}

func floatPtr(v float64) *float64 { return &v }

func TestApprove_SetsVerifiedAndApproved(t *testing.T) {
	store := newFakeStore()
	svc := NewService(store, nil)
	actor := store.orgAdmin()

	session, err := svc.Approve(context.Background(), actor, store.session.ID, nil)
	require.NoError(t, err)
	assert.Equal(t, models.SessionVerified, session.Status)
	assert.Equal(t, models.VerificationApproved, session.VerificationStatus)
	assert.Equal(t, 2.5, session.TotalHours, "recorded hours kept without an override")
	require.NotNil(t, session.VerifiedBy)
	assert.Equal(t, actor.UserID, *session.VerifiedBy)
	assert.Equal(t, []string{models.AuditActionApprove}, store.audits)
}

func TestApprove_WithApprovedHoursOverride(t *testing.T) {
	store := newFakeStore()
	svc := NewService(store, nil)

	session, err := svc.Approve(context.Background(), store.schoolAdmin(), store.session.ID, floatPtr(2.0))
	require.NoError(t, err)
	assert.Equal(t, 2.0, session.TotalHours)
}

func TestApprove_AlreadyApprovedConflicts(t *testing.T) {
	store := newFakeStore()
	svc := NewService(store, nil)
	actor := store.orgAdmin()

	_, err := svc.Approve(context.Background(), actor, store.session.ID, floatPtr(2.0))
	require.NoError(t, err)

	_, err = svc.Approve(context.Background(), actor, store.session.ID, floatPtr(2.0))
	assert.ErrorIs(t, err, ErrAlreadyApproved)
	assert.Equal(t, 2.0, store.session.TotalHours, "state unchanged by the repeat call")
	assert.Equal(t, []string{models.AuditActionApprove}, store.audits)
}

func TestApprove_AfterRejectSucceeds(t *testing.T) {
	store := newFakeStore()
	svc := NewService(store, nil)
	actor := store.teacher()

	_, err := svc.Reject(context.Background(), actor, store.session.ID, "incomplete shift")
	require.NoError(t, err)

	session, err := svc.Approve(context.Background(), actor, store.session.ID, nil)
	require.NoError(t, err)
	assert.Equal(t, models.VerificationApproved, session.VerificationStatus)
	assert.Empty(t, session.RejectionReason)
}

func TestApprove_OutOfScopeForbidden(t *testing.T) {
	store := newFakeStore()
	svc := NewService(store, nil)

	otherClassroom := uuid.New()
	teacher := auth.Actor{UserID: uuid.New(), Role: models.RoleTeacher, ClassroomID: &otherClassroom}
	_, err := svc.Approve(context.Background(), teacher, store.session.ID, nil)
	assert.ErrorIs(t, err, ErrForbidden)
	assert.Equal(t, models.VerificationPending, store.session.VerificationStatus)
}

func TestApprove_UnknownSession(t *testing.T) {
	store := newFakeStore()
	svc := NewService(store, nil)

	_, err := svc.Approve(context.Background(), store.orgAdmin(), uuid.New(), nil)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestReject_RequiresReason(t *testing.T) {
	store := newFakeStore()
	svc := NewService(store, nil)

	for _, reason := range []string{"", "   "} {
		_, err := svc.Reject(context.Background(), store.orgAdmin(), store.session.ID, reason)
		assert.ErrorIs(t, err, ErrReasonRequired)
	}
	assert.Equal(t, models.VerificationPending, store.session.VerificationStatus, "state unchanged")
	assert.Empty(t, store.audits)
}

func TestReject_SetsReasonAndStatus(t *testing.T) {
	store := newFakeStore()
	svc := NewService(store, nil)
	actor := store.orgAdmin()

	session, err := svc.Reject(context.Background(), actor, store.session.ID, "no-show")
	require.NoError(t, err)
	assert.Equal(t, models.SessionRejected, session.Status)
	assert.Equal(t, models.VerificationRejected, session.VerificationStatus)
	assert.Equal(t, "no-show", session.RejectionReason)
	assert.Equal(t, []string{models.AuditActionReject}, store.audits)
}

func TestOverride_RetractsApprovedHours(t *testing.T) {
	store := newFakeStore()
	svc := NewService(store, nil)

	_, err := svc.Approve(context.Background(), store.orgAdmin(), store.session.ID, nil)
	require.NoError(t, err)

	session, err := svc.Override(context.Background(), store.schoolAdmin(), store.session.ID, "duplicate entry")
	require.NoError(t, err)
	assert.Equal(t, models.SessionRejected, session.Status)
	assert.Equal(t, models.VerificationRejected, session.VerificationStatus)
	assert.Equal(t, "duplicate entry", session.RejectionReason)
	assert.Equal(t, []string{models.AuditActionApprove, models.AuditActionOverride}, store.audits)
}

func TestOverride_DefaultReason(t *testing.T) {
	store := newFakeStore()
	svc := NewService(store, nil)

	session, err := svc.Override(context.Background(), store.teacher(), store.session.ID, "")
	require.NoError(t, err)
	assert.Equal(t, DefaultOverrideReason, session.RejectionReason)
}

func TestOverride_OrgAdminForbidden(t *testing.T) {
	store := newFakeStore()
	svc := NewService(store, nil)
	actor := store.orgAdmin()

	_, err := svc.Approve(context.Background(), actor, store.session.ID, nil)
	require.NoError(t, err)

	_, err = svc.Override(context.Background(), actor, store.session.ID, "changed my mind")
	assert.ErrorIs(t, err, ErrForbidden)
	assert.Equal(t, models.VerificationApproved, store.session.VerificationStatus)
}

func TestOverride_FromPendingActsAsReject(t *testing.T) {
	store := newFakeStore()
	svc := NewService(store, nil)

	session, err := svc.Override(context.Background(), store.schoolAdmin(), store.session.ID, "logged in error")
	require.NoError(t, err)
	assert.Equal(t, models.VerificationRejected, session.VerificationStatus)
	assert.Equal(t, []string{models.AuditActionOverride}, store.audits)
}

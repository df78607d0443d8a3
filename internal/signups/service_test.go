package signups

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
	opp      *models.Opportunity
	signups  []*models.Signup
	sessions map[uuid.UUID]*models.ServiceSession // by user id
	audits   []string
	clock    time.Time
}

func newFakeStore(capacity int) *fakeStore {
	return &fakeStore{
		opp: &models.Opportunity{
			ID:             uuid.New(),
			OrganizationID: uuid.New(),
			Title:          "Beach cleanup",
			Capacity:       capacity,
			DurationHours:  3,
			Status:         models.OpportunityActive,
		},
		sessions: make(map[uuid.UUID]*models.ServiceSession),
		clock:    time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC),
	}
}

func (f *fakeStore) InTx(ctx context.Context, fn func(tx Tx) error) error {
	return fn(f)
}

func (f *fakeStore) GetOpportunityForUpdate(_ context.Context, id uuid.UUID) (*models.Opportunity, error) {
	if f.opp != nil && f.opp.ID == id {
		return f.opp, nil
	}
	return nil, nil
}

func (f *fakeStore) CountConfirmed(_ context.Context, opportunityID uuid.UUID) (int, error) {
	count := 0
	for _, s := range f.signups {
		if s.OpportunityID == opportunityID && s.Status == models.SignupConfirmed {
			count++
		}
	}
	return count, nil
}

func (f *fakeStore) GetSignup(_ context.Context, userID, opportunityID uuid.UUID) (*models.Signup, error) {
	for _, s := range f.signups {
		if s.UserID == userID && s.OpportunityID == opportunityID {
			return s, nil
		}
	}
	return nil, nil
}

func (f *fakeStore) GetSignupByID(_ context.Context, id uuid.UUID) (*models.Signup, error) {
	for _, s := range f.signups {
		if s.ID == id {
			return s, nil
		}
	}
	return nil, nil
}

func (f *fakeStore) InsertSignup(_ context.Context, userID, opportunityID uuid.UUID, status models.SignupStatus) (*models.Signup, error) {
	f.clock = f.clock.Add(time.Second)
	s := &models.Signup{
		ID:            uuid.New(),
		UserID:        userID,
		OpportunityID: opportunityID,
		Status:        status,
		CreatedAt:     f.clock,
	}
	f.signups = append(f.signups, s)
	return s, nil
}

func (f *fakeStore) UpdateSignupStatus(_ context.Context, id uuid.UUID, status models.SignupStatus) error {
	for _, s := range f.signups {
		if s.ID == id {
			s.Status = status
		}
	}
	return nil
}

func (f *fakeStore) ResetSession(_ context.Context, userID, opportunityID uuid.UUID, nominalHours float64) (*models.ServiceSession, error) {
	session, ok := f.sessions[userID]
	if !ok {
		session = &models.ServiceSession{ID: uuid.New(), UserID: userID, OpportunityID: opportunityID}
		f.sessions[userID] = session
	}
	session.Status = models.SessionCommitted
	session.VerificationStatus = models.VerificationPending
	session.CheckInTime = nil
	session.CheckOutTime = nil
	session.TotalHours = nominalHours
	session.VerifiedBy = nil
	session.VerifiedAt = nil
	session.RejectionReason = ""
	return session, nil
}

func (f *fakeStore) OldestWaitlisted(_ context.Context, opportunityID uuid.UUID) (*models.Signup, error) {
	var oldest *models.Signup
	for _, s := range f.signups {
		if s.OpportunityID != opportunityID || s.Status != models.SignupWaitlisted {
			continue
		}
		if oldest == nil || s.CreatedAt.Before(oldest.CreatedAt) {
			oldest = s
		}
	}
	return oldest, nil
}

func (f *fakeStore) RecordAudit(_ context.Context, action string, _ uuid.UUID, _ *uuid.UUID, _ interface{}) error {
	f.audits = append(f.audits, action)
	return nil
}

func studentActor(userID uuid.UUID) auth.Actor {
	return auth.Actor{UserID: userID, Role: models.RoleStudent}
}

func TestSignUp_ConfirmedUnderCapacity(t *testing.T) {
	store := newFakeStore(2)
	svc := NewService(store, nil)
	userID := uuid.New()

	res, err := svc.SignUp(context.Background(), userID, store.opp.ID)
	require.NoError(t, err)
	assert.Equal(t, models.SignupConfirmed, res.Signup.Status)
	assert.Equal(t, models.SessionCommitted, res.Session.Status)
	assert.Equal(t, 3.0, res.Session.TotalHours)
	assert.Equal(t, []string{models.AuditActionSignup}, store.audits)
}

func TestSignUp_WaitlistedAtCapacity(t *testing.T) {
	store := newFakeStore(1)
	svc := NewService(store, nil)

	first, err := svc.SignUp(context.Background(), uuid.New(), store.opp.ID)
	require.NoError(t, err)
	require.Equal(t, models.SignupConfirmed, first.Signup.Status)

	second, err := svc.SignUp(context.Background(), uuid.New(), store.opp.ID)
	require.NoError(t, err)
	assert.Equal(t, models.SignupWaitlisted, second.Signup.Status)
}

func TestSignUp_DuplicateRejected(t *testing.T) {
	store := newFakeStore(5)
	svc := NewService(store, nil)
	userID := uuid.New()

	_, err := svc.SignUp(context.Background(), userID, store.opp.ID)
	require.NoError(t, err)

	_, err = svc.SignUp(context.Background(), userID, store.opp.ID)
	assert.ErrorIs(t, err, ErrAlreadySignedUp)
	assert.Len(t, store.signups, 1)
}

func TestSignUp_InactiveOpportunity(t *testing.T) {
	store := newFakeStore(5)
	store.opp.Status = models.OpportunityCancelled
	svc := NewService(store, nil)

	_, err := svc.SignUp(context.Background(), uuid.New(), store.opp.ID)
	assert.ErrorIs(t, err, ErrOpportunityInactive)
}

func TestSignUp_UnknownOpportunity(t *testing.T) {
	store := newFakeStore(5)
	svc := NewService(store, nil)

	_, err := svc.SignUp(context.Background(), uuid.New(), uuid.New())
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSignUp_ResignupReusesRowAndResetsSession(t *testing.T) {
	store := newFakeStore(5)
	svc := NewService(store, nil)
	userID := uuid.New()

	res, err := svc.SignUp(context.Background(), userID, store.opp.ID)
	require.NoError(t, err)
	signupID := res.Signup.ID

	// Simulate prior verification history on the session.
	session := store.sessions[userID]
	session.Status = models.SessionVerified
	session.VerificationStatus = models.VerificationApproved
	verifier := uuid.New()
	session.VerifiedBy = &verifier
	session.TotalHours = 7.5

	_, err = svc.Cancel(context.Background(), studentActor(userID), signupID)
	require.NoError(t, err)

	res, err = svc.SignUp(context.Background(), userID, store.opp.ID)
	require.NoError(t, err)
	assert.Equal(t, signupID, res.Signup.ID, "cancelled row is reused, not duplicated")
	assert.Len(t, store.signups, 1)
	assert.Equal(t, models.SessionCommitted, res.Session.Status)
	assert.Equal(t, models.VerificationPending, res.Session.VerificationStatus)
	assert.Nil(t, res.Session.VerifiedBy)
	assert.Equal(t, 3.0, res.Session.TotalHours, "nominal hours restored")
}

func TestCancel_PromotesOldestWaitlisted(t *testing.T) {
	store := newFakeStore(1)
	svc := NewService(store, nil)
	confirmed := uuid.New()

	res, err := svc.SignUp(context.Background(), confirmed, store.opp.ID)
	require.NoError(t, err)

	waitA, err := svc.SignUp(context.Background(), uuid.New(), store.opp.ID)
	require.NoError(t, err)
	waitB, err := svc.SignUp(context.Background(), uuid.New(), store.opp.ID)
	require.NoError(t, err)
	require.Equal(t, models.SignupWaitlisted, waitA.Signup.Status)
	require.Equal(t, models.SignupWaitlisted, waitB.Signup.Status)

	out, err := svc.Cancel(context.Background(), studentActor(confirmed), res.Signup.ID)
	require.NoError(t, err)
	assert.Equal(t, models.SignupCancelled, out.Signup.Status)
	require.NotNil(t, out.Promoted)
	assert.Equal(t, waitA.Signup.ID, out.Promoted.ID, "earliest waitlisted wins")
	assert.Equal(t, models.SignupConfirmed, out.Promoted.Status)
	assert.Equal(t, models.SignupWaitlisted, waitB.Signup.Status)
}

func TestCancel_WaitlistedNoPromotion(t *testing.T) {
	store := newFakeStore(1)
	svc := NewService(store, nil)

	_, err := svc.SignUp(context.Background(), uuid.New(), store.opp.ID)
	require.NoError(t, err)
	waitlisted := uuid.New()
	res, err := svc.SignUp(context.Background(), waitlisted, store.opp.ID)
	require.NoError(t, err)

	out, err := svc.Cancel(context.Background(), studentActor(waitlisted), res.Signup.ID)
	require.NoError(t, err)
	assert.Nil(t, out.Promoted)
}

func TestCancel_StrangerForbidden(t *testing.T) {
	store := newFakeStore(1)
	svc := NewService(store, nil)

	res, err := svc.SignUp(context.Background(), uuid.New(), store.opp.ID)
	require.NoError(t, err)

	_, err = svc.Cancel(context.Background(), studentActor(uuid.New()), res.Signup.ID)
	assert.ErrorIs(t, err, ErrForbidden)
}

func TestCancel_OrgAdminOfOwningOrg(t *testing.T) {
	store := newFakeStore(1)
	svc := NewService(store, nil)

	res, err := svc.SignUp(context.Background(), uuid.New(), store.opp.ID)
	require.NoError(t, err)

	orgID := store.opp.OrganizationID
	admin := auth.Actor{UserID: uuid.New(), Role: models.RoleOrgAdmin, OrganizationID: &orgID}
	out, err := svc.Cancel(context.Background(), admin, res.Signup.ID)
	require.NoError(t, err)
	assert.Equal(t, models.SignupCancelled, out.Signup.Status)
}

func TestCancel_OrgAdminOfOtherOrgForbidden(t *testing.T) {
	store := newFakeStore(1)
	svc := NewService(store, nil)

	res, err := svc.SignUp(context.Background(), uuid.New(), store.opp.ID)
	require.NoError(t, err)

	otherOrg := uuid.New()
	admin := auth.Actor{UserID: uuid.New(), Role: models.RoleOrgAdmin, OrganizationID: &otherOrg}
	_, err = svc.Cancel(context.Background(), admin, res.Signup.ID)
	assert.ErrorIs(t, err, ErrForbidden)
}

func TestCancel_AlreadyCancelled(t *testing.T) {
	store := newFakeStore(1)
	svc := NewService(store, nil)
	userID := uuid.New()

	res, err := svc.SignUp(context.Background(), userID, store.opp.ID)
	require.NoError(t, err)

	_, err = svc.Cancel(context.Background(), studentActor(userID), res.Signup.ID)
	require.NoError(t, err)
	_, err = svc.Cancel(context.Background(), studentActor(userID), res.Signup.ID)
	assert.ErrorIs(t, err, ErrAlreadyCancelled)
}

// staleReadStore returns a pre-lock snapshot from the first GetSignupByID
// call, modeling a read-committed read taken before the opportunity lock was
// acquired while a concurrent cancel of the same row committed.
type staleReadStore struct {
	*fakeStore
	stale *models.Signup
	reads int
}

func (f *staleReadStore) InTx(_ context.Context, fn func(tx Tx) error) error {
	return fn(f)
}

func (f *staleReadStore) GetSignupByID(ctx context.Context, id uuid.UUID) (*models.Signup, error) {
	f.reads++
	if f.reads == 1 && f.stale != nil && f.stale.ID == id {
		snapshot := *f.stale
		return &snapshot, nil
	}
	return f.fakeStore.GetSignupByID(ctx, id)
}

func TestCancel_ConcurrentCancelPromotesOnlyOnce(t *testing.T) {
	store := newFakeStore(1)
	svc := NewService(store, nil)
	confirmed := uuid.New()

	res, err := svc.SignUp(context.Background(), confirmed, store.opp.ID)
	require.NoError(t, err)
	_, err = svc.SignUp(context.Background(), uuid.New(), store.opp.ID)
	require.NoError(t, err)
	_, err = svc.SignUp(context.Background(), uuid.New(), store.opp.ID)
	require.NoError(t, err)

	// Both cancels snapshot the signup while it is still CONFIRMED; the
	// first commits and promotes, the second resumes from the lock wait.
	stale := *res.Signup

	_, err = svc.Cancel(context.Background(), studentActor(confirmed), res.Signup.ID)
	require.NoError(t, err)

	racing := &staleReadStore{fakeStore: store, stale: &stale}
	_, err = NewService(racing, nil).Cancel(context.Background(), studentActor(confirmed), res.Signup.ID)
	assert.ErrorIs(t, err, ErrAlreadyCancelled)

	confirmedCount, err := store.CountConfirmed(context.Background(), store.opp.ID)
	require.NoError(t, err)
	assert.LessOrEqual(t, confirmedCount, store.opp.Capacity)
}

func TestPlacement_NeverExceedsCapacity(t *testing.T) {
	store := newFakeStore(3)
	svc := NewService(store, nil)

	confirmedCount := 0
	for i := 0; i < 10; i++ {
		res, err := svc.SignUp(context.Background(), uuid.New(), store.opp.ID)
		require.NoError(t, err)
		if res.Signup.Status == models.SignupConfirmed {
			confirmedCount++
		}
	}
	assert.Equal(t, 3, confirmedCount)
}

package sessions

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
	audits  []string
}

func newFakeStore(owner uuid.UUID, status models.SessionStatus) *fakeStore {
	return &fakeStore{
		session: &models.ServiceSession{
			ID:                 uuid.New(),
			UserID:             owner,
			OpportunityID:      uuid.New(),
			Status:             status,
			VerificationStatus: models.VerificationPending,
			TotalHours:         3,
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

func (f *fakeStore) MarkCheckedIn(_ context.Context, id uuid.UUID, at time.Time) (bool, error) {
	if f.session.ID != id || f.session.Status != models.SessionCommitted {
		return false, nil
	}
	f.session.Status = models.SessionCheckedIn
	f.session.CheckInTime = &at
	return true, nil
}

func (f *fakeStore) MarkCheckedOut(_ context.Context, id uuid.UUID, at time.Time, totalHours float64) (bool, error) {
	if f.session.ID != id || f.session.Status != models.SessionCheckedIn {
		return false, nil
	}
	f.session.Status = models.SessionCheckedOut
	f.session.VerificationStatus = models.VerificationPending
	f.session.CheckOutTime = &at
	f.session.TotalHours = totalHours
	return true, nil
}

func (f *fakeStore) RecordAudit(_ context.Context, action string, _ uuid.UUID, _ *uuid.UUID, _ interface{}) error {
	f.audits = append(f.audits, action)
	return nil
}

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func TestCheckIn_FromCommitted(t *testing.T) {
	owner := uuid.New()
	store := newFakeStore(owner, models.SessionCommitted)
	svc := NewService(store, nil)
	at := time.Date(2026, 3, 7, 10, 0, 0, 0, time.UTC)
	svc.SetClock(fixedClock(at))

	session, err := svc.CheckIn(context.Background(), auth.Actor{UserID: owner}, store.session.ID)
	require.NoError(t, err)
	assert.Equal(t, models.SessionCheckedIn, session.Status)
	require.NotNil(t, session.CheckInTime)
	assert.Equal(t, at, *session.CheckInTime)
	assert.Equal(t, []string{models.AuditActionCheckIn}, store.audits)
}

func TestCheckIn_InvalidFromOtherStates(t *testing.T) {
	owner := uuid.New()
	for _, status := range []models.SessionStatus{
		models.SessionCheckedIn,
		models.SessionCheckedOut,
		models.SessionVerified,
		models.SessionRejected,
	} {
		store := newFakeStore(owner, status)
		svc := NewService(store, nil)

		_, err := svc.CheckIn(context.Background(), auth.Actor{UserID: owner}, store.session.ID)
		assert.ErrorIs(t, err, ErrInvalidTransition, "from %s", status)
		assert.Empty(t, store.audits)
	}
}

func TestCheckIn_NonOwnerForbidden(t *testing.T) {
	store := newFakeStore(uuid.New(), models.SessionCommitted)
	svc := NewService(store, nil)

	_, err := svc.CheckIn(context.Background(), auth.Actor{UserID: uuid.New()}, store.session.ID)
	assert.ErrorIs(t, err, ErrForbidden)
}

func TestCheckIn_UnknownSession(t *testing.T) {
	store := newFakeStore(uuid.New(), models.SessionCommitted)
	svc := NewService(store, nil)

	_, err := svc.CheckIn(context.Background(), auth.Actor{UserID: uuid.New()}, uuid.New())
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestCheckOut_ComputesRoundedHours(t *testing.T) {
	owner := uuid.New()
	store := newFakeStore(owner, models.SessionCommitted)
	svc := NewService(store, nil)
	actor := auth.Actor{UserID: owner}

	checkIn := time.Date(2026, 3, 7, 10, 0, 0, 0, time.UTC)
	svc.SetClock(fixedClock(checkIn))
	_, err := svc.CheckIn(context.Background(), actor, store.session.ID)
	require.NoError(t, err)

	// 2 hours 15 minutes
	svc.SetClock(fixedClock(checkIn.Add(2*time.Hour + 15*time.Minute)))
	session, err := svc.CheckOut(context.Background(), actor, store.session.ID)
	require.NoError(t, err)
	assert.Equal(t, models.SessionCheckedOut, session.Status)
	assert.Equal(t, models.VerificationPending, session.VerificationStatus)
	assert.Equal(t, 2.25, session.TotalHours)
	assert.Equal(t, []string{models.AuditActionCheckIn, models.AuditActionCheckOut}, store.audits)
}

func TestCheckOut_TenToTwelveThirty(t *testing.T) {
	owner := uuid.New()
	store := newFakeStore(owner, models.SessionCommitted)
	svc := NewService(store, nil)
	actor := auth.Actor{UserID: owner}

	svc.SetClock(fixedClock(time.Date(2026, 3, 7, 10, 0, 0, 0, time.UTC)))
	_, err := svc.CheckIn(context.Background(), actor, store.session.ID)
	require.NoError(t, err)

	svc.SetClock(fixedClock(time.Date(2026, 3, 7, 12, 30, 0, 0, time.UTC)))
	session, err := svc.CheckOut(context.Background(), actor, store.session.ID)
	require.NoError(t, err)
	assert.Equal(t, 2.5, session.TotalHours)
}

func TestCheckOut_InvalidWithoutCheckIn(t *testing.T) {
	owner := uuid.New()
	store := newFakeStore(owner, models.SessionCommitted)
	svc := NewService(store, nil)

	_, err := svc.CheckOut(context.Background(), auth.Actor{UserID: owner}, store.session.ID)
	assert.ErrorIs(t, err, ErrInvalidTransition)
}

func TestCheckOut_NonOwnerForbidden(t *testing.T) {
	owner := uuid.New()
	store := newFakeStore(owner, models.SessionCommitted)
	svc := NewService(store, nil)

	svc.SetClock(fixedClock(time.Date(2026, 3, 7, 10, 0, 0, 0, time.UTC)))
	_, err := svc.CheckIn(context.Background(), auth.Actor{UserID: owner}, store.session.ID)
	require.NoError(t, err)

	_, err = svc.CheckOut(context.Background(), auth.Actor{UserID: uuid.New()}, store.session.ID)
	assert.ErrorIs(t, err, ErrForbidden)
}

package sessions

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/hourtrack/backend/internal/auth"
	"github.com/hourtrack/backend/internal/models"
	"github.com/hourtrack/backend/pkg/utils"
)

var (
	// ErrNotFound means the session does not exist.
	ErrNotFound = errors.New("session not found")
	// ErrForbidden means the actor does not own the session.
	ErrForbidden = errors.New("forbidden")
	// ErrInvalidTransition means the session is not in the required state.
	ErrInvalidTransition = errors.New("invalid transition")
)

// Tx is the set of storage primitives a session transition composes inside
// one transaction. The Mark* updates are conditional on the current status,
// so a transition that lost a race still fails its precondition.
type Tx interface {
	GetSession(ctx context.Context, id uuid.UUID) (*models.ServiceSession, error)
	MarkCheckedIn(ctx context.Context, id uuid.UUID, at time.Time) (bool, error)
	MarkCheckedOut(ctx context.Context, id uuid.UUID, at time.Time, totalHours float64) (bool, error)
	RecordAudit(ctx context.Context, action string, actorID uuid.UUID, sessionID *uuid.UUID, details interface{}) error
}

// Store runs a function inside a transaction.
type Store interface {
	InTx(ctx context.Context, fn func(tx Tx) error) error
}

// Service drives the attendance side of the session state machine:
// COMMITTED -> CHECKED_IN -> CHECKED_OUT. Verification transitions live in
// the verification package.
type Service struct {
	store  Store
	logger *zap.Logger
	now    func() time.Time
}

// NewService creates a session service.
func NewService(store Store, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{store: store, logger: logger, now: time.Now}
}

// SetClock overrides the time source. For tests.
func (s *Service) SetClock(now func() time.Time) { s.now = now }

// CheckIn transitions a session from COMMITTED to CHECKED_IN. Only the
// owning student may check in.
func (s *Service) CheckIn(ctx context.Context, actor auth.Actor, sessionID uuid.UUID) (*models.ServiceSession, error) {
	var out *models.ServiceSession
	err := s.store.InTx(ctx, func(tx Tx) error {
		session, err := tx.GetSession(ctx, sessionID)
		if err != nil {
			return err
		}
		if session == nil {
			return ErrNotFound
		}
		if session.UserID != actor.UserID {
			return ErrForbidden
		}

		at := s.now()
		ok, err := tx.MarkCheckedIn(ctx, sessionID, at)
		if err != nil {
			return err
		}
		if !ok {
			return ErrInvalidTransition
		}
		if err := tx.RecordAudit(ctx, models.AuditActionCheckIn, actor.UserID, &session.ID, nil); err != nil {
			return err
		}

		session.Status = models.SessionCheckedIn
		session.CheckInTime = &at
		out = session
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// CheckOut transitions a session from CHECKED_IN to CHECKED_OUT, overwriting
// the nominal hours with the elapsed duration rounded to 2 decimal places,
// and resets the verification outcome to PENDING.
func (s *Service) CheckOut(ctx context.Context, actor auth.Actor, sessionID uuid.UUID) (*models.ServiceSession, error) {
	var out *models.ServiceSession
	err := s.store.InTx(ctx, func(tx Tx) error {
		session, err := tx.GetSession(ctx, sessionID)
		if err != nil {
			return err
		}
		if session == nil {
			return ErrNotFound
		}
		if session.UserID != actor.UserID {
			return ErrForbidden
		}
		if session.Status != models.SessionCheckedIn || session.CheckInTime == nil {
			return ErrInvalidTransition
		}

		at := s.now()
		hours := utils.HoursBetween(*session.CheckInTime, at)
		ok, err := tx.MarkCheckedOut(ctx, sessionID, at, hours)
		if err != nil {
			return err
		}
		if !ok {
			return ErrInvalidTransition
		}
		if err := tx.RecordAudit(ctx, models.AuditActionCheckOut, actor.UserID, &session.ID,
			map[string]interface{}{"total_hours": hours}); err != nil {
			return err
		}

		session.Status = models.SessionCheckedOut
		session.VerificationStatus = models.VerificationPending
		session.CheckOutTime = &at
		session.TotalHours = hours
		out = session
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

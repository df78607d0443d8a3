package signups

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/hourtrack/backend/internal/auth"
	"github.com/hourtrack/backend/internal/models"
)

var (
	// ErrNotFound means the opportunity or signup does not exist.
	ErrNotFound = errors.New("not found")
	// ErrOpportunityInactive means the opportunity is cancelled or completed.
	ErrOpportunityInactive = errors.New("opportunity is not active")
	// ErrAlreadySignedUp means a non-cancelled signup row already exists.
	ErrAlreadySignedUp = errors.New("already signed up")
	// ErrAlreadyCancelled means the signup was cancelled before.
	ErrAlreadyCancelled = errors.New("signup already cancelled")
	// ErrForbidden means the actor may not perform this operation.
	ErrForbidden = errors.New("forbidden")
)

// Tx is the set of storage primitives a signup operation composes inside one
// transaction. GetOpportunityForUpdate locks the opportunity row, making the
// capacity check and the insert a single atomic unit.
type Tx interface {
	GetOpportunityForUpdate(ctx context.Context, id uuid.UUID) (*models.Opportunity, error)
	CountConfirmed(ctx context.Context, opportunityID uuid.UUID) (int, error)
	GetSignup(ctx context.Context, userID, opportunityID uuid.UUID) (*models.Signup, error)
	GetSignupByID(ctx context.Context, id uuid.UUID) (*models.Signup, error)
	InsertSignup(ctx context.Context, userID, opportunityID uuid.UUID, status models.SignupStatus) (*models.Signup, error)
	UpdateSignupStatus(ctx context.Context, id uuid.UUID, status models.SignupStatus) error
	ResetSession(ctx context.Context, userID, opportunityID uuid.UUID, nominalHours float64) (*models.ServiceSession, error)
	OldestWaitlisted(ctx context.Context, opportunityID uuid.UUID) (*models.Signup, error)
	RecordAudit(ctx context.Context, action string, actorID uuid.UUID, sessionID *uuid.UUID, details interface{}) error
}

// Store runs a function inside a serializing transaction.
type Store interface {
	InTx(ctx context.Context, fn func(tx Tx) error) error
}

// Service implements the signup/waitlist protocol.
type Service struct {
	store  Store
	logger *zap.Logger
}

// NewService creates a signup service.
func NewService(store Store, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{store: store, logger: logger}
}

// placement decides CONFIRMED vs WAITLISTED from the confirmed count at the
// moment of evaluation. Callers must hold the opportunity lock.
func placement(confirmed, capacity int) models.SignupStatus {
	if confirmed < capacity {
		return models.SignupConfirmed
	}
	return models.SignupWaitlisted
}

// SignUpResult is the outcome of a successful signup.
type SignUpResult struct {
	Signup      *models.Signup
	Session     *models.ServiceSession
	Opportunity *models.Opportunity
}

// SignUp enrolls a student in an opportunity. A cancelled row for the same
// pair is reused and its session reset in place; the confirmed-count check
// and the write happen under the opportunity row lock.
func (s *Service) SignUp(ctx context.Context, userID, opportunityID uuid.UUID) (*SignUpResult, error) {
	var res SignUpResult
	err := s.store.InTx(ctx, func(tx Tx) error {
		opp, err := tx.GetOpportunityForUpdate(ctx, opportunityID)
		if err != nil {
			return err
		}
		if opp == nil {
			return ErrNotFound
		}
		if opp.Status != models.OpportunityActive {
			return ErrOpportunityInactive
		}

		existing, err := tx.GetSignup(ctx, userID, opportunityID)
		if err != nil {
			return err
		}
		if existing != nil && existing.Status != models.SignupCancelled {
			return ErrAlreadySignedUp
		}

		confirmed, err := tx.CountConfirmed(ctx, opportunityID)
		if err != nil {
			return err
		}
		status := placement(confirmed, opp.Capacity)

		var signup *models.Signup
		if existing != nil {
			if err := tx.UpdateSignupStatus(ctx, existing.ID, status); err != nil {
				return err
			}
			existing.Status = status
			signup = existing
		} else {
			signup, err = tx.InsertSignup(ctx, userID, opportunityID, status)
			if err != nil {
				return err
			}
		}

		session, err := tx.ResetSession(ctx, userID, opportunityID, opp.DurationHours)
		if err != nil {
			return err
		}

		if err := tx.RecordAudit(ctx, models.AuditActionSignup, userID, &session.ID,
			map[string]interface{}{"signup_status": signup.Status}); err != nil {
			return err
		}

		res = SignUpResult{Signup: signup, Session: session, Opportunity: opp}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &res, nil
}

// CancelResult is the outcome of a cancellation, including the waitlisted
// signup promoted into the freed slot, if any.
type CancelResult struct {
	Signup   *models.Signup
	Promoted *models.Signup
}

// Cancel cancels a signup. The owning student or an ORG_ADMIN of the
// opportunity's organization may cancel. Cancelling a CONFIRMED signup
// promotes the earliest-created WAITLISTED signup inside the same
// transaction. The service session is left untouched.
func (s *Service) Cancel(ctx context.Context, actor auth.Actor, signupID uuid.UUID) (*CancelResult, error) {
	var res CancelResult
	err := s.store.InTx(ctx, func(tx Tx) error {
		signup, err := tx.GetSignupByID(ctx, signupID)
		if err != nil {
			return err
		}
		if signup == nil {
			return ErrNotFound
		}

		// Lock the opportunity before touching signup state so concurrent
		// cancellations serialize their promotions.
		opp, err := tx.GetOpportunityForUpdate(ctx, signup.OpportunityID)
		if err != nil {
			return err
		}
		if opp == nil {
			return ErrNotFound
		}

		// Re-read under the lock: the first read may predate a concurrent
		// cancel that committed while we waited, and a stale CONFIRMED
		// status here would promote a second waitlisted signup.
		signup, err = tx.GetSignupByID(ctx, signupID)
		if err != nil {
			return err
		}
		if signup == nil {
			return ErrNotFound
		}

		if !canCancel(actor, signup, opp) {
			return ErrForbidden
		}
		if signup.Status == models.SignupCancelled {
			return ErrAlreadyCancelled
		}

		wasConfirmed := signup.Status == models.SignupConfirmed
		if err := tx.UpdateSignupStatus(ctx, signup.ID, models.SignupCancelled); err != nil {
			return err
		}
		signup.Status = models.SignupCancelled
		res.Signup = signup

		if wasConfirmed {
			next, err := tx.OldestWaitlisted(ctx, signup.OpportunityID)
			if err != nil {
				return err
			}
			if next != nil {
				if err := tx.UpdateSignupStatus(ctx, next.ID, models.SignupConfirmed); err != nil {
					return err
				}
				next.Status = models.SignupConfirmed
				res.Promoted = next
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &res, nil
}

func canCancel(actor auth.Actor, signup *models.Signup, opp *models.Opportunity) bool {
	if actor.UserID == signup.UserID {
		return true
	}
	return actor.Role == models.RoleOrgAdmin &&
		actor.OrganizationID != nil && *actor.OrganizationID == opp.OrganizationID
}

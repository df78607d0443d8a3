package verification

import (
	"context"
	"errors"
	"strings"
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
	// ErrForbidden means the actor's role or scope does not cover the session.
	ErrForbidden = errors.New("forbidden")
	// ErrAlreadyApproved means the session's hours were already approved.
	ErrAlreadyApproved = errors.New("session already approved")
	// ErrReasonRequired means a rejection was attempted without a reason.
	ErrReasonRequired = errors.New("rejection reason is required")
)

// DefaultOverrideReason is recorded when hours are removed without one.
const DefaultOverrideReason = "Hours removed by school staff"

// Tx is the transactional store surface the verification flows need.
type Tx interface {
	GetSession(ctx context.Context, id uuid.UUID) (*models.ServiceSession, error)
	GetScope(ctx context.Context, sessionID uuid.UUID) (Scope, error)
	SetApproved(ctx context.Context, id uuid.UUID, hours float64, verifiedBy uuid.UUID, at time.Time) (bool, error)
	SetRejected(ctx context.Context, id uuid.UUID, reason string, verifiedBy uuid.UUID, at time.Time) error
	RecordAudit(ctx context.Context, action string, actorID uuid.UUID, sessionID *uuid.UUID, details interface{}) error
}

// Store runs verification transactions.
type Store interface {
	InTx(ctx context.Context, fn func(tx Tx) error) error
}

// Service applies role-scoped verification decisions to sessions.
type Service struct {
	store  Store
	logger *zap.Logger
	now    func() time.Time
}

// NewService creates a verification service.
func NewService(store Store, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{store: store, logger: logger, now: time.Now}
}

// SetClock replaces the time source.
func (s *Service) SetClock(now func() time.Time) { s.now = now }

// Approve marks a session's hours as verified. Legal from any prior
// verification status except APPROVED itself; an optional approvedHours
// overrides the recorded total. Re-approving an approved session is a
// conflict and leaves it unchanged.
func (s *Service) Approve(ctx context.Context, actor auth.Actor, sessionID uuid.UUID, approvedHours *float64) (*models.ServiceSession, error) {
	var session *models.ServiceSession
	err := s.store.InTx(ctx, func(tx Tx) error {
		var err error
		session, err = s.authorize(ctx, tx, actor, sessionID, CanVerify)
		if err != nil {
			return err
		}
		if session.VerificationStatus == models.VerificationApproved {
			return ErrAlreadyApproved
		}

		hours := utils.RoundHours(session.TotalHours)
		if approvedHours != nil {
			hours = utils.RoundHours(*approvedHours)
		}
		at := s.now()
		ok, err := tx.SetApproved(ctx, session.ID, hours, actor.UserID, at)
		if err != nil {
			return err
		}
		if !ok {
			return ErrAlreadyApproved
		}
		if err := tx.RecordAudit(ctx, models.AuditActionApprove, actor.UserID, &session.ID, map[string]interface{}{
			"approved_hours": hours,
			"original_hours": session.TotalHours,
		}); err != nil {
			return err
		}

		session.Status = models.SessionVerified
		session.VerificationStatus = models.VerificationApproved
		session.TotalHours = hours
		session.VerifiedBy = &actor.UserID
		session.VerifiedAt = &at
		session.RejectionReason = ""
		return nil
	})
	if err != nil {
		return nil, err
	}
	return session, nil
}

// Reject records a verification refusal. The reason is mandatory.
func (s *Service) Reject(ctx context.Context, actor auth.Actor, sessionID uuid.UUID, reason string) (*models.ServiceSession, error) {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return nil, ErrReasonRequired
	}
	return s.reject(ctx, actor, sessionID, reason, models.AuditActionReject, CanVerify)
}

// Override removes a session's hours regardless of current verification
// status, including already-approved ones. School staff only.
func (s *Service) Override(ctx context.Context, actor auth.Actor, sessionID uuid.UUID, reason string) (*models.ServiceSession, error) {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		reason = DefaultOverrideReason
	}
	return s.reject(ctx, actor, sessionID, reason, models.AuditActionOverride, CanOverride)
}

func (s *Service) reject(ctx context.Context, actor auth.Actor, sessionID uuid.UUID, reason, action string, allowed func(auth.Actor, Scope) bool) (*models.ServiceSession, error) {
	var session *models.ServiceSession
	err := s.store.InTx(ctx, func(tx Tx) error {
		var err error
		session, err = s.authorize(ctx, tx, actor, sessionID, allowed)
		if err != nil {
			return err
		}

		at := s.now()
		if err := tx.SetRejected(ctx, session.ID, reason, actor.UserID, at); err != nil {
			return err
		}
		if err := tx.RecordAudit(ctx, action, actor.UserID, &session.ID, map[string]interface{}{
			"reason":          reason,
			"previous_status": session.VerificationStatus,
		}); err != nil {
			return err
		}

		session.Status = models.SessionRejected
		session.VerificationStatus = models.VerificationRejected
		session.RejectionReason = reason
		session.VerifiedBy = &actor.UserID
		session.VerifiedAt = &at
		return nil
	})
	if err != nil {
		return nil, err
	}
	return session, nil
}

func (s *Service) authorize(ctx context.Context, tx Tx, actor auth.Actor, sessionID uuid.UUID, allowed func(auth.Actor, Scope) bool) (*models.ServiceSession, error) {
	session, err := tx.GetSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if session == nil {
		return nil, ErrNotFound
	}
	scope, err := tx.GetScope(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if !allowed(actor, scope) {
		return nil, ErrForbidden
	}
	return session, nil
}

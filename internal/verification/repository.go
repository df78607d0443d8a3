package verification

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/hourtrack/backend/internal/audit"
	"github.com/hourtrack/backend/internal/models"
	"github.com/hourtrack/backend/internal/sessions"
)

// Repository is the pgx-backed Store.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a verification repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// InTx runs fn inside a transaction, committing when it returns nil.
func (r *Repository) InTx(ctx context.Context, fn func(tx Tx) error) error {
	pgxTx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer pgxTx.Rollback(ctx)
	if err := fn(&sqlTx{tx: pgxTx}); err != nil {
		return err
	}
	return pgxTx.Commit(ctx)
}

type sqlTx struct {
	tx pgx.Tx
}

func (t *sqlTx) GetSession(ctx context.Context, id uuid.UUID) (*models.ServiceSession, error) {
	return sessions.ScanSession(t.tx.QueryRow(ctx,
		`SELECT `+sessions.SessionColumns+` FROM service_sessions WHERE id = $1`, id))
}

// GetScope resolves the session's opportunity organization and the student's
// school/classroom membership in one join.
func (t *sqlTx) GetScope(ctx context.Context, sessionID uuid.UUID) (Scope, error) {
	var scope Scope
	err := t.tx.QueryRow(ctx,
		`SELECT o.organization_id, u.school_id, u.classroom_id
		 FROM service_sessions s
		 JOIN opportunities o ON o.id = s.opportunity_id
		 JOIN users u ON u.id = s.user_id
		 WHERE s.id = $1`,
		sessionID).Scan(&scope.OrganizationID, &scope.StudentSchoolID, &scope.StudentClassroomID)
	return scope, err
}

// SetApproved flips the session to VERIFIED/APPROVED. The status condition
// keeps a concurrent double-approve from winning twice.
func (t *sqlTx) SetApproved(ctx context.Context, id uuid.UUID, hours float64, verifiedBy uuid.UUID, at time.Time) (bool, error) {
	tag, err := t.tx.Exec(ctx,
		`UPDATE service_sessions
		 SET status = $2, verification_status = $3, total_hours = $4,
		     verified_by = $5, verified_at = $6, rejection_reason = '', updated_at = NOW()
		 WHERE id = $1 AND verification_status <> $3`,
		id, models.SessionVerified, models.VerificationApproved, hours, verifiedBy, at)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

// SetRejected flips the session to REJECTED/REJECTED with the given reason.
// Legal from any prior state; override relies on that.
func (t *sqlTx) SetRejected(ctx context.Context, id uuid.UUID, reason string, verifiedBy uuid.UUID, at time.Time) error {
	_, err := t.tx.Exec(ctx,
		`UPDATE service_sessions
		 SET status = $2, verification_status = $3, rejection_reason = $4,
		     verified_by = $5, verified_at = $6, updated_at = NOW()
		 WHERE id = $1`,
		id, models.SessionRejected, models.VerificationRejected, reason, verifiedBy, at)
	return err
}

func (t *sqlTx) RecordAudit(ctx context.Context, action string, actorID uuid.UUID, sessionID *uuid.UUID, details interface{}) error {
	return audit.Record(ctx, t.tx, action, actorID, sessionID, details)
}

// ListPendingByOrg returns the organization's sessions awaiting a decision:
// checked out with a pending verification outcome, oldest checkout first.
func (r *Repository) ListPendingByOrg(ctx context.Context, orgID uuid.UUID) ([]models.ServiceSession, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT s.id, s.user_id, s.opportunity_id, s.status, s.verification_status,
		        s.check_in_time, s.check_out_time, s.total_hours, s.verified_by, s.verified_at,
		        COALESCE(s.rejection_reason,''), s.created_at, s.updated_at
		 FROM service_sessions s
		 JOIN opportunities o ON o.id = s.opportunity_id
		 WHERE o.organization_id = $1 AND s.status = $2 AND s.verification_status = $3
		 ORDER BY s.check_out_time ASC`,
		orgID, models.SessionCheckedOut, models.VerificationPending)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var list []models.ServiceSession
	for rows.Next() {
		var s models.ServiceSession
		if err := rows.Scan(&s.ID, &s.UserID, &s.OpportunityID, &s.Status, &s.VerificationStatus,
			&s.CheckInTime, &s.CheckOutTime, &s.TotalHours, &s.VerifiedBy, &s.VerifiedAt,
			&s.RejectionReason, &s.CreatedAt, &s.UpdatedAt); err != nil {
			return nil, err
		}
		list = append(list, s)
	}
	return list, rows.Err()
}

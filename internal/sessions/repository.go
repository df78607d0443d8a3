package sessions

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/hourtrack/backend/internal/audit"
	"github.com/hourtrack/backend/internal/models"
)

// SessionColumns is the select list shared by session scans.
const SessionColumns = `id, user_id, opportunity_id, status, verification_status,
	check_in_time, check_out_time, total_hours, verified_by, verified_at,
	COALESCE(rejection_reason,''), created_at, updated_at`

// ScanSession scans one session row.
func ScanSession(row pgx.Row) (*models.ServiceSession, error) {
	var s models.ServiceSession
	err := row.Scan(&s.ID, &s.UserID, &s.OpportunityID, &s.Status, &s.VerificationStatus,
		&s.CheckInTime, &s.CheckOutTime, &s.TotalHours, &s.VerifiedBy, &s.VerifiedAt,
		&s.RejectionReason, &s.CreatedAt, &s.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// Repository is the pgx-backed Store.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a sessions repository.
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
	return ScanSession(t.tx.QueryRow(ctx,
		`SELECT `+SessionColumns+` FROM service_sessions WHERE id = $1`, id))
}

// MarkCheckedIn flips COMMITTED to CHECKED_IN. The status condition makes the
// precondition re-read and the write one atomic statement.
func (t *sqlTx) MarkCheckedIn(ctx context.Context, id uuid.UUID, at time.Time) (bool, error) {
	tag, err := t.tx.Exec(ctx,
		`UPDATE service_sessions SET status = $3, check_in_time = $2, updated_at = NOW()
		 WHERE id = $1 AND status = $4`,
		id, at, models.SessionCheckedIn, models.SessionCommitted)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

// MarkCheckedOut flips CHECKED_IN to CHECKED_OUT and resets the verification
// outcome to PENDING with the computed hours.
func (t *sqlTx) MarkCheckedOut(ctx context.Context, id uuid.UUID, at time.Time, totalHours float64) (bool, error) {
	tag, err := t.tx.Exec(ctx,
		`UPDATE service_sessions
		 SET status = $3, verification_status = $4, check_out_time = $2, total_hours = $5, updated_at = NOW()
		 WHERE id = $1 AND status = $6`,
		id, at, models.SessionCheckedOut, models.VerificationPending, totalHours, models.SessionCheckedIn)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

func (t *sqlTx) RecordAudit(ctx context.Context, action string, actorID uuid.UUID, sessionID *uuid.UUID, details interface{}) error {
	return audit.Record(ctx, t.tx, action, actorID, sessionID, details)
}

// GetByID returns a session outside any transaction.
func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (*models.ServiceSession, error) {
	return ScanSession(r.pool.QueryRow(ctx,
		`SELECT `+SessionColumns+` FROM service_sessions WHERE id = $1`, id))
}

// ListByUser returns a user's sessions, newest first.
func (r *Repository) ListByUser(ctx context.Context, userID uuid.UUID) ([]models.ServiceSession, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+SessionColumns+` FROM service_sessions WHERE user_id = $1 ORDER BY created_at DESC`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectSessions(rows)
}

// ListByOpportunity returns all sessions for an opportunity, oldest first.
func (r *Repository) ListByOpportunity(ctx context.Context, opportunityID uuid.UUID) ([]models.ServiceSession, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+SessionColumns+` FROM service_sessions WHERE opportunity_id = $1 ORDER BY created_at ASC`, opportunityID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectSessions(rows)
}

// VerifiedHoursTotal sums a user's approved hours, rounded to 2 decimals.
func (r *Repository) VerifiedHoursTotal(ctx context.Context, userID uuid.UUID) (float64, error) {
	var total float64
	err := r.pool.QueryRow(ctx,
		`SELECT COALESCE(ROUND(SUM(total_hours), 2), 0) FROM service_sessions
		 WHERE user_id = $1 AND verification_status = $2`,
		userID, models.VerificationApproved).Scan(&total)
	return total, err
}

func collectSessions(rows pgx.Rows) ([]models.ServiceSession, error) {
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

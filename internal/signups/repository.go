package signups

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/hourtrack/backend/internal/audit"
	"github.com/hourtrack/backend/internal/models"
)

// Repository is the pgx-backed Store.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a signups repository.
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

// sqlTx implements Tx over an open pgx transaction.
type sqlTx struct {
	tx pgx.Tx
}

const signupColumns = `id, user_id, opportunity_id, status, created_at, updated_at`

func scanSignup(row pgx.Row) (*models.Signup, error) {
	var s models.Signup
	err := row.Scan(&s.ID, &s.UserID, &s.OpportunityID, &s.Status, &s.CreatedAt, &s.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func (t *sqlTx) GetOpportunityForUpdate(ctx context.Context, id uuid.UUID) (*models.Opportunity, error) {
	const q = `SELECT id, organization_id, title, COALESCE(description,''), date, start_time, end_time,
			duration_hours, capacity, status, COALESCE(address,''), COALESCE(postal_code,''), lat, lng, tags, created_at, updated_at
		FROM opportunities WHERE id = $1 FOR UPDATE`
	var o models.Opportunity
	err := t.tx.QueryRow(ctx, q, id).Scan(&o.ID, &o.OrganizationID, &o.Title, &o.Description, &o.Date,
		&o.StartTime, &o.EndTime, &o.DurationHours, &o.Capacity, &o.Status,
		&o.Address, &o.PostalCode, &o.Lat, &o.Lng, &o.Tags, &o.CreatedAt, &o.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &o, nil
}

func (t *sqlTx) CountConfirmed(ctx context.Context, opportunityID uuid.UUID) (int, error) {
	var n int
	err := t.tx.QueryRow(ctx,
		`SELECT COUNT(*) FROM signups WHERE opportunity_id = $1 AND status = $2`,
		opportunityID, models.SignupConfirmed).Scan(&n)
	return n, err
}

func (t *sqlTx) GetSignup(ctx context.Context, userID, opportunityID uuid.UUID) (*models.Signup, error) {
	return scanSignup(t.tx.QueryRow(ctx,
		`SELECT `+signupColumns+` FROM signups WHERE user_id = $1 AND opportunity_id = $2`,
		userID, opportunityID))
}

func (t *sqlTx) GetSignupByID(ctx context.Context, id uuid.UUID) (*models.Signup, error) {
	return scanSignup(t.tx.QueryRow(ctx,
		`SELECT `+signupColumns+` FROM signups WHERE id = $1`, id))
}

func (t *sqlTx) InsertSignup(ctx context.Context, userID, opportunityID uuid.UUID, status models.SignupStatus) (*models.Signup, error) {
	return scanSignup(t.tx.QueryRow(ctx,
		`INSERT INTO signups (user_id, opportunity_id, status) VALUES ($1, $2, $3)
		 RETURNING `+signupColumns, userID, opportunityID, status))
}

func (t *sqlTx) UpdateSignupStatus(ctx context.Context, id uuid.UUID, status models.SignupStatus) error {
	_, err := t.tx.Exec(ctx,
		`UPDATE signups SET status = $2, updated_at = NOW() WHERE id = $1`, id, status)
	return err
}

// ResetSession creates the session for the pair, or fully resets an existing
// one back to COMMITTED with verification fields wiped. Re-signing up
// discards prior check-in/out and verification history in place.
func (t *sqlTx) ResetSession(ctx context.Context, userID, opportunityID uuid.UUID, nominalHours float64) (*models.ServiceSession, error) {
	const q = `INSERT INTO service_sessions (user_id, opportunity_id, status, verification_status, total_hours)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (user_id, opportunity_id) DO UPDATE SET
			status = EXCLUDED.status,
			verification_status = EXCLUDED.verification_status,
			check_in_time = NULL,
			check_out_time = NULL,
			total_hours = EXCLUDED.total_hours,
			verified_by = NULL,
			verified_at = NULL,
			rejection_reason = NULL,
			updated_at = NOW()
		RETURNING id, user_id, opportunity_id, status, verification_status,
			check_in_time, check_out_time, total_hours, verified_by, verified_at,
			COALESCE(rejection_reason,''), created_at, updated_at`
	var s models.ServiceSession
	err := t.tx.QueryRow(ctx, q, userID, opportunityID,
		models.SessionCommitted, models.VerificationPending, nominalHours).
		Scan(&s.ID, &s.UserID, &s.OpportunityID, &s.Status, &s.VerificationStatus,
			&s.CheckInTime, &s.CheckOutTime, &s.TotalHours, &s.VerifiedBy, &s.VerifiedAt,
			&s.RejectionReason, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// OldestWaitlisted returns the earliest-created WAITLISTED signup for the
// opportunity. Ties fall back to id for a deterministic pick.
func (t *sqlTx) OldestWaitlisted(ctx context.Context, opportunityID uuid.UUID) (*models.Signup, error) {
	return scanSignup(t.tx.QueryRow(ctx,
		`SELECT `+signupColumns+` FROM signups
		 WHERE opportunity_id = $1 AND status = $2
		 ORDER BY created_at ASC, id ASC LIMIT 1`,
		opportunityID, models.SignupWaitlisted))
}

func (t *sqlTx) RecordAudit(ctx context.Context, action string, actorID uuid.UUID, sessionID *uuid.UUID, details interface{}) error {
	return audit.Record(ctx, t.tx, action, actorID, sessionID, details)
}

// ListByUser returns a user's signups, newest first.
func (r *Repository) ListByUser(ctx context.Context, userID uuid.UUID) ([]models.Signup, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+signupColumns+` FROM signups WHERE user_id = $1 ORDER BY created_at DESC`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectSignups(rows)
}

// ListByOpportunity returns all signups for an opportunity, oldest first.
func (r *Repository) ListByOpportunity(ctx context.Context, opportunityID uuid.UUID) ([]models.Signup, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+signupColumns+` FROM signups WHERE opportunity_id = $1 ORDER BY created_at ASC`, opportunityID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectSignups(rows)
}

// ActiveUserIDsByOpportunity returns user IDs with a non-cancelled signup,
// used to notify holders when an opportunity is cancelled.
func (r *Repository) ActiveUserIDsByOpportunity(ctx context.Context, opportunityID uuid.UUID) ([]uuid.UUID, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT user_id FROM signups WHERE opportunity_id = $1 AND status <> $2`,
		opportunityID, models.SignupCancelled)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var ids []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func collectSignups(rows pgx.Rows) ([]models.Signup, error) {
	var list []models.Signup
	for rows.Next() {
		var s models.Signup
		if err := rows.Scan(&s.ID, &s.UserID, &s.OpportunityID, &s.Status, &s.CreatedAt, &s.UpdatedAt); err != nil {
			return nil, err
		}
		list = append(list, s)
	}
	return list, rows.Err()
}

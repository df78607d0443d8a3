package audit

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/hourtrack/backend/internal/models"
)

// Repository handles append-only audit log persistence. Entries that belong
// to a session transition are written with Record inside the transition's
// transaction; Insert covers standalone entries.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates an audit repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const insertQ = `INSERT INTO audit_logs (action, actor_id, session_id, details) VALUES ($1, $2, $3, $4)`

// Record appends an audit entry within an open transaction.
func Record(ctx context.Context, tx pgx.Tx, action string, actorID uuid.UUID, sessionID *uuid.UUID, details interface{}) error {
	raw, err := marshalDetails(details)
	if err != nil {
		return err
	}
	_, err = tx.Exec(ctx, insertQ, action, actorID, sessionID, raw)
	return err
}

// Insert appends an audit entry outside any transaction.
func (r *Repository) Insert(ctx context.Context, action string, actorID uuid.UUID, sessionID *uuid.UUID, details interface{}) error {
	raw, err := marshalDetails(details)
	if err != nil {
		return err
	}
	_, err = r.pool.Exec(ctx, insertQ, action, actorID, sessionID, raw)
	return err
}

// ListBySession returns the audit trail for one session, oldest first.
func (r *Repository) ListBySession(ctx context.Context, sessionID uuid.UUID) ([]models.AuditLog, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, action, actor_id, session_id, details, created_at
		 FROM audit_logs WHERE session_id = $1 ORDER BY created_at ASC`, sessionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanEntries(rows)
}

// ListBySchool returns audit entries for sessions of a school's students,
// newest first, capped at limit.
func (r *Repository) ListBySchool(ctx context.Context, schoolID uuid.UUID, limit int) ([]models.AuditLog, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	rows, err := r.pool.Query(ctx,
		`SELECT a.id, a.action, a.actor_id, a.session_id, a.details, a.created_at
		 FROM audit_logs a
		 INNER JOIN service_sessions s ON s.id = a.session_id
		 INNER JOIN users u ON u.id = s.user_id
		 WHERE u.school_id = $1
		 ORDER BY a.created_at DESC LIMIT $2`, schoolID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanEntries(rows)
}

func scanEntries(rows pgx.Rows) ([]models.AuditLog, error) {
	var list []models.AuditLog
	for rows.Next() {
		var e models.AuditLog
		if err := rows.Scan(&e.ID, &e.Action, &e.ActorID, &e.SessionID, &e.Details, &e.CreatedAt); err != nil {
			return nil, err
		}
		list = append(list, e)
	}
	return list, rows.Err()
}

func marshalDetails(details interface{}) ([]byte, error) {
	if details == nil {
		return nil, nil
	}
	return json.Marshal(details)
}

package emaillogs

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/hourtrack/backend/internal/models"
)

// Repository persists outbound email attempts.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates an email-logs repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Insert records one send attempt.
func (r *Repository) Insert(ctx context.Context, log *models.EmailLog) error {
	return r.pool.QueryRow(ctx,
		`INSERT INTO email_logs (user_id, recipient, email_type, subject, status, error)
		 VALUES ($1,$2,$3,$4,$5,$6) RETURNING id, created_at`,
		log.UserID, log.Recipient, log.EmailType, log.Subject, log.Status, log.Error).
		Scan(&log.ID, &log.CreatedAt)
}

// ListBySchool returns recent email attempts for a school's users, newest
// first.
func (r *Repository) ListBySchool(ctx context.Context, schoolID uuid.UUID, limit int) ([]models.EmailLog, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT e.id, e.user_id, e.recipient, e.email_type, e.subject, e.status, COALESCE(e.error,''), e.created_at
		 FROM email_logs e
		 JOIN users u ON u.id = e.user_id
		 WHERE u.school_id = $1
		 ORDER BY e.created_at DESC
		 LIMIT $2`,
		schoolID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var list []models.EmailLog
	for rows.Next() {
		var log models.EmailLog
		if err := rows.Scan(&log.ID, &log.UserID, &log.Recipient, &log.EmailType,
			&log.Subject, &log.Status, &log.Error, &log.CreatedAt); err != nil {
			return nil, err
		}
		list = append(list, log)
	}
	return list, rows.Err()
}

package notifications

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/hourtrack/backend/internal/models"
)

// Repository handles notification persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a notifications repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Insert creates a notification row.
func (r *Repository) Insert(ctx context.Context, n *models.Notification) error {
	const q = `INSERT INTO notifications (user_id, type, title, body)
		VALUES ($1, $2, $3, $4)
		RETURNING id, read, created_at`
	return r.pool.QueryRow(ctx, q, n.UserID, n.Type, n.Title, n.Body).
		Scan(&n.ID, &n.Read, &n.CreatedAt)
}

// ListByUser returns the user's notifications, newest first.
func (r *Repository) ListByUser(ctx context.Context, userID uuid.UUID, unreadOnly bool) ([]models.Notification, error) {
	q := `SELECT id, user_id, type, title, body, read, created_at
		FROM notifications WHERE user_id = $1 ORDER BY created_at DESC LIMIT 200`
	if unreadOnly {
		q = `SELECT id, user_id, type, title, body, read, created_at
			FROM notifications WHERE user_id = $1 AND NOT read ORDER BY created_at DESC LIMIT 200`
	}
	rows, err := r.pool.Query(ctx, q, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []models.Notification
	for rows.Next() {
		var n models.Notification
		if err := rows.Scan(&n.ID, &n.UserID, &n.Type, &n.Title, &n.Body, &n.Read, &n.CreatedAt); err != nil {
			return nil, err
		}
		list = append(list, n)
	}
	return list, rows.Err()
}

// MarkRead marks one notification as read; only the recipient may do so.
func (r *Repository) MarkRead(ctx context.Context, id, userID uuid.UUID) (bool, error) {
	tag, err := r.pool.Exec(ctx,
		`UPDATE notifications SET read = TRUE WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

// MarkAllRead marks all of a user's notifications as read.
func (r *Repository) MarkAllRead(ctx context.Context, userID uuid.UUID) error {
	_, err := r.pool.Exec(ctx, `UPDATE notifications SET read = TRUE WHERE user_id = $1 AND NOT read`, userID)
	return err
}

// UnreadCount returns the user's unread notification count.
func (r *Repository) UnreadCount(ctx context.Context, userID uuid.UUID) (int, error) {
	var n int
	err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM notifications WHERE user_id = $1 AND NOT read`, userID).Scan(&n)
	return n, err
}

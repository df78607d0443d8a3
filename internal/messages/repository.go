package messages

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/hourtrack/backend/internal/models"
)

// Conversation summarizes the latest message exchanged with one other user.
type Conversation struct {
	OtherUserID uuid.UUID      `json:"other_user_id"`
	LastMessage models.Message `json:"last_message"`
	Unread      int            `json:"unread"`
}

// Repository persists direct messages.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a messages repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Insert stores a message and fills in the generated fields.
func (r *Repository) Insert(ctx context.Context, m *models.Message) error {
	return r.pool.QueryRow(ctx,
		`INSERT INTO messages (sender_id, recipient_id, body)
		 VALUES ($1,$2,$3) RETURNING id, created_at`,
		m.SenderID, m.RecipientID, m.Body).
		Scan(&m.ID, &m.CreatedAt)
}

// Thread returns the messages between two users, oldest first, and marks the
// viewer's incoming messages read.
func (r *Repository) Thread(ctx context.Context, viewerID, otherID uuid.UUID) ([]models.Message, error) {
	if _, err := r.pool.Exec(ctx,
		`UPDATE messages SET read = TRUE
		 WHERE recipient_id = $1 AND sender_id = $2 AND read = FALSE`,
		viewerID, otherID); err != nil {
		return nil, err
	}

	rows, err := r.pool.Query(ctx,
		`SELECT id, sender_id, recipient_id, body, read, created_at
		 FROM messages
		 WHERE (sender_id = $1 AND recipient_id = $2) OR (sender_id = $2 AND recipient_id = $1)
		 ORDER BY created_at ASC`,
		viewerID, otherID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var list []models.Message
	for rows.Next() {
		var m models.Message
		if err := rows.Scan(&m.ID, &m.SenderID, &m.RecipientID, &m.Body, &m.Read, &m.CreatedAt); err != nil {
			return nil, err
		}
		list = append(list, m)
	}
	return list, rows.Err()
}

// Conversations returns the user's message threads, most recent first, with
// per-thread unread counts.
func (r *Repository) Conversations(ctx context.Context, userID uuid.UUID) ([]Conversation, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT DISTINCT ON (other_id)
		        other_id, id, sender_id, recipient_id, body, read, created_at,
		        (SELECT COUNT(*) FROM messages u
		         WHERE u.recipient_id = $1 AND u.sender_id = other_id AND u.read = FALSE)
		 FROM (
		     SELECT CASE WHEN sender_id = $1 THEN recipient_id ELSE sender_id END AS other_id, *
		     FROM messages
		     WHERE sender_id = $1 OR recipient_id = $1
		 ) m
		 ORDER BY other_id, created_at DESC`,
		userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var list []Conversation
	for rows.Next() {
		var conv Conversation
		var m models.Message
		if err := rows.Scan(&conv.OtherUserID, &m.ID, &m.SenderID, &m.RecipientID,
			&m.Body, &m.Read, &m.CreatedAt, &conv.Unread); err != nil {
			return nil, err
		}
		conv.LastMessage = m
		list = append(list, conv)
	}
	return list, rows.Err()
}

// UnreadCount returns the number of unread incoming messages.
func (r *Repository) UnreadCount(ctx context.Context, userID uuid.UUID) (int, error) {
	var count int
	err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM messages WHERE recipient_id = $1 AND read = FALSE`,
		userID).Scan(&count)
	return count, err
}

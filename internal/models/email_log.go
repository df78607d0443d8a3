package models

import (
	"time"

	"github.com/google/uuid"
)

// EmailLog records one outbound email attempt made by the worker.
type EmailLog struct {
	ID        uuid.UUID  `json:"id"`
	UserID    *uuid.UUID `json:"user_id,omitempty"`
	Recipient string     `json:"recipient"`
	EmailType string     `json:"email_type"`
	Subject   string     `json:"subject"`
	Status    string     `json:"status"` // sent | failed
	Error     string     `json:"error,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
}

package models

import (
	"time"

	"github.com/google/uuid"
)

// Notification types emitted by state transitions.
const (
	NotificationSignupConfirmed      = "SIGNUP_CONFIRMED"
	NotificationSignupWaitlisted     = "SIGNUP_WAITLISTED"
	NotificationWaitlistPromoted     = "WAITLIST_PROMOTED"
	NotificationOpportunityCancelled = "OPPORTUNITY_CANCELLED"
	NotificationHoursApproved        = "HOURS_APPROVED"
	NotificationHoursRejected        = "HOURS_REJECTED"
	NotificationHoursRemoved         = "HOURS_REMOVED"
	NotificationNewMessage           = "NEW_MESSAGE"
)

// Notification is a fire-and-forget side effect of state transitions,
// independently readable and markable by the recipient.
type Notification struct {
	ID        uuid.UUID `json:"id"`
	UserID    uuid.UUID `json:"user_id"`
	Type      string    `json:"type"`
	Title     string    `json:"title"`
	Body      string    `json:"body"`
	Read      bool      `json:"read"`
	CreatedAt time.Time `json:"created_at"`
}

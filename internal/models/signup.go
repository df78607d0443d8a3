package models

import (
	"time"

	"github.com/google/uuid"
)

// SignupStatus is a student's enrollment state against an opportunity.
type SignupStatus string

const (
	SignupConfirmed  SignupStatus = "CONFIRMED"
	SignupWaitlisted SignupStatus = "WAITLISTED"
	SignupCancelled  SignupStatus = "CANCELLED"
)

// Signup is a student's enrollment record for one opportunity. The
// (user_id, opportunity_id) pair is unique; re-signup after self-cancellation
// reuses the same row.
type Signup struct {
	ID            uuid.UUID    `json:"id"`
	UserID        uuid.UUID    `json:"user_id"`
	OpportunityID uuid.UUID    `json:"opportunity_id"`
	Status        SignupStatus `json:"status"`
	CreatedAt     time.Time    `json:"created_at"`
	UpdatedAt     time.Time    `json:"updated_at"`
}

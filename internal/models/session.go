package models

import (
	"time"

	"github.com/google/uuid"
)

// SessionStatus tracks attendance progress for a service session.
type SessionStatus string

const (
	SessionCommitted  SessionStatus = "COMMITTED"
	SessionCheckedIn  SessionStatus = "CHECKED_IN"
	SessionCheckedOut SessionStatus = "CHECKED_OUT"
	SessionVerified   SessionStatus = "VERIFIED"
	SessionRejected   SessionStatus = "REJECTED"
)

// VerificationStatus tracks the verification outcome independently of
// attendance progress. The two axes evolve separately: approval or override
// may apply regardless of where attendance got to.
type VerificationStatus string

const (
	VerificationPending  VerificationStatus = "PENDING"
	VerificationApproved VerificationStatus = "APPROVED"
	VerificationRejected VerificationStatus = "REJECTED"
)

// ServiceSession is the attendance/verification record for one student's
// participation in one opportunity. Exactly one exists per (user, opportunity)
// pair, created at signup time pre-filled with the opportunity's nominal hours.
type ServiceSession struct {
	ID                 uuid.UUID          `json:"id"`
	UserID             uuid.UUID          `json:"user_id"`
	OpportunityID      uuid.UUID          `json:"opportunity_id"`
	Status             SessionStatus      `json:"status"`
	VerificationStatus VerificationStatus `json:"verification_status"`
	CheckInTime        *time.Time         `json:"check_in_time,omitempty"`
	CheckOutTime       *time.Time         `json:"check_out_time,omitempty"`
	TotalHours         float64            `json:"total_hours"`
	VerifiedBy         *uuid.UUID         `json:"verified_by,omitempty"`
	VerifiedAt         *time.Time         `json:"verified_at,omitempty"`
	RejectionReason    string             `json:"rejection_reason,omitempty"`
	CreatedAt          time.Time          `json:"created_at"`
	UpdatedAt          time.Time          `json:"updated_at"`
}

package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Audit actions recorded for session and opportunity state changes.
const (
	AuditActionSignup   = "SIGNUP"
	AuditActionCheckIn  = "CHECK_IN"
	AuditActionCheckOut = "CHECK_OUT"
	AuditActionApprove  = "APPROVE"
	AuditActionReject   = "REJECT"
	AuditActionOverride = "OVERRIDE"

	AuditActionOpportunityCancel   = "OPPORTUNITY_CANCEL"
	AuditActionOpportunityComplete = "OPPORTUNITY_COMPLETE"
)

// AuditLog is an append-only record of a state-changing operation on a
// session. Never mutated or deleted except as part of full-account erasure.
type AuditLog struct {
	ID        uuid.UUID       `json:"id"`
	Action    string          `json:"action"`
	ActorID   uuid.UUID       `json:"actor_id"`
	SessionID *uuid.UUID      `json:"session_id,omitempty"`
	Details   json.RawMessage `json:"details,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
}

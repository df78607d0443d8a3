package models

import (
	"time"

	"github.com/google/uuid"
)

// OpportunityStatus is the lifecycle status of an opportunity.
type OpportunityStatus string

const (
	OpportunityActive    OpportunityStatus = "ACTIVE"
	OpportunityCancelled OpportunityStatus = "CANCELLED"
	OpportunityCompleted OpportunityStatus = "COMPLETED"
)

// Opportunity is a volunteer event posted by an organization with a date,
// capacity, and nominal duration credited when no check-in/out is recorded.
type Opportunity struct {
	ID             uuid.UUID         `json:"id"`
	OrganizationID uuid.UUID         `json:"organization_id"`
	Title          string            `json:"title"`
	Description    string            `json:"description,omitempty"`
	Date           time.Time         `json:"date"`
	StartTime      string            `json:"start_time,omitempty"`
	EndTime        string            `json:"end_time,omitempty"`
	DurationHours  float64           `json:"duration_hours"`
	Capacity       int               `json:"capacity"`
	Status         OpportunityStatus `json:"status"`
	Address        string            `json:"address,omitempty"`
	PostalCode     string            `json:"postal_code,omitempty"`
	Lat            *float64          `json:"lat,omitempty"`
	Lng            *float64          `json:"lng,omitempty"`
	Tags           []string          `json:"tags,omitempty"`
	CreatedAt      time.Time         `json:"created_at"`
	UpdatedAt      time.Time         `json:"updated_at"`
}

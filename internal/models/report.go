package models

import (
	"time"

	"github.com/google/uuid"
)

// ReportStatus is the export lifecycle of an hour report.
type ReportStatus string

const (
	ReportPending   ReportStatus = "PENDING"
	ReportCompleted ReportStatus = "COMPLETED"
	ReportFailed    ReportStatus = "FAILED"
)

// HourReport is a requested CSV export of verified hours for a school,
// built asynchronously by the worker and stored in S3.
type HourReport struct {
	ID          uuid.UUID    `json:"id"`
	SchoolID    uuid.UUID    `json:"school_id"`
	ClassroomID *uuid.UUID   `json:"classroom_id,omitempty"`
	RequestedBy uuid.UUID    `json:"requested_by"`
	FromDate    *time.Time   `json:"from_date,omitempty"`
	ToDate      *time.Time   `json:"to_date,omitempty"`
	Status      ReportStatus `json:"status"`
	S3Key       string       `json:"s3_key,omitempty"`
	RowCount    int          `json:"row_count"`
	Error       string       `json:"error,omitempty"`
	CreatedAt   time.Time    `json:"created_at"`
	UpdatedAt   time.Time    `json:"updated_at"`
}

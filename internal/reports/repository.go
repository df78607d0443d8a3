package reports

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/hourtrack/backend/internal/models"
)

const reportColumns = `id, school_id, classroom_id, requested_by, from_date, to_date,
	status, COALESCE(s3_key,''), row_count, COALESCE(error,''), created_at, updated_at`

// Row is one line of a verified-hours export.
type Row struct {
	StudentName  string
	StudentEmail string
	Classroom    string
	Opportunity  string
	Organization string
	Date         time.Time
	Hours        float64
	VerifiedAt   time.Time
}

// Repository persists hour reports and queries their export rows.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a reports repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Create inserts a pending report and fills in the generated fields.
func (r *Repository) Create(ctx context.Context, rep *models.HourReport) error {
	return r.pool.QueryRow(ctx,
		`INSERT INTO hour_reports (school_id, classroom_id, requested_by, from_date, to_date, status)
		 VALUES ($1,$2,$3,$4,$5,$6) RETURNING id, created_at, updated_at`,
		rep.SchoolID, rep.ClassroomID, rep.RequestedBy, rep.FromDate, rep.ToDate, rep.Status).
		Scan(&rep.ID, &rep.CreatedAt, &rep.UpdatedAt)
}

// GetByID returns one report, nil when absent.
func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (*models.HourReport, error) {
	var rep models.HourReport
	err := r.pool.QueryRow(ctx,
		`SELECT `+reportColumns+` FROM hour_reports WHERE id = $1`, id).
		Scan(&rep.ID, &rep.SchoolID, &rep.ClassroomID, &rep.RequestedBy, &rep.FromDate, &rep.ToDate,
			&rep.Status, &rep.S3Key, &rep.RowCount, &rep.Error, &rep.CreatedAt, &rep.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &rep, nil
}

// ListBySchool returns a school's reports, newest first.
func (r *Repository) ListBySchool(ctx context.Context, schoolID uuid.UUID) ([]models.HourReport, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+reportColumns+` FROM hour_reports WHERE school_id = $1 ORDER BY created_at DESC`,
		schoolID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var list []models.HourReport
	for rows.Next() {
		var rep models.HourReport
		if err := rows.Scan(&rep.ID, &rep.SchoolID, &rep.ClassroomID, &rep.RequestedBy, &rep.FromDate, &rep.ToDate,
			&rep.Status, &rep.S3Key, &rep.RowCount, &rep.Error, &rep.CreatedAt, &rep.UpdatedAt); err != nil {
			return nil, err
		}
		list = append(list, rep)
	}
	return list, rows.Err()
}

// MarkCompleted records the uploaded object key and row count.
func (r *Repository) MarkCompleted(ctx context.Context, id uuid.UUID, s3Key string, rowCount int) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE hour_reports SET status = $2, s3_key = $3, row_count = $4, error = '', updated_at = NOW()
		 WHERE id = $1`,
		id, models.ReportCompleted, s3Key, rowCount)
	return err
}

// MarkFailed records the failure message.
func (r *Repository) MarkFailed(ctx context.Context, id uuid.UUID, cause string) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE hour_reports SET status = $2, error = $3, updated_at = NOW() WHERE id = $1`,
		id, models.ReportFailed, cause)
	return err
}

// Delete removes a report row.
func (r *Repository) Delete(ctx context.Context, id uuid.UUID) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM hour_reports WHERE id = $1`, id)
	return err
}

// ExportRows returns the approved-hours rows for a report's scope, ordered by
// student then date.
func (r *Repository) ExportRows(ctx context.Context, rep *models.HourReport) ([]Row, error) {
	query := `SELECT u.full_name, u.email, COALESCE(c.name,''), o.title, og.name,
		       o.date, ROUND(s.total_hours, 2), s.verified_at
		 FROM service_sessions s
		 JOIN users u ON u.id = s.user_id
		 LEFT JOIN classrooms c ON c.id = u.classroom_id
		 JOIN opportunities o ON o.id = s.opportunity_id
		 JOIN organizations og ON og.id = o.organization_id
		 WHERE u.school_id = $1 AND s.verification_status = $2`
	args := []interface{}{rep.SchoolID, models.VerificationApproved}

	if rep.ClassroomID != nil {
		args = append(args, *rep.ClassroomID)
		query += ` AND u.classroom_id = $3`
	}
	if rep.FromDate != nil {
		args = append(args, *rep.FromDate)
		query += fmt.Sprintf(` AND o.date >= $%d`, len(args))
	}
	if rep.ToDate != nil {
		args = append(args, *rep.ToDate)
		query += fmt.Sprintf(` AND o.date <= $%d`, len(args))
	}
	query += ` ORDER BY u.full_name ASC, o.date ASC`

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var list []Row
	for rows.Next() {
		var row Row
		if err := rows.Scan(&row.StudentName, &row.StudentEmail, &row.Classroom,
			&row.Opportunity, &row.Organization, &row.Date, &row.Hours, &row.VerifiedAt); err != nil {
			return nil, err
		}
		list = append(list, row)
	}
	return list, rows.Err()
}

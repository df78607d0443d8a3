package opportunities

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/hourtrack/backend/internal/models"
)

const opportunityColumns = `id, organization_id, title, COALESCE(description,''), date,
	start_time, end_time, duration_hours, capacity, status,
	COALESCE(address,''), COALESCE(postal_code,''), lat, lng, tags, created_at, updated_at`

func scanOpportunity(row pgx.Row) (*models.Opportunity, error) {
	var o models.Opportunity
	err := row.Scan(&o.ID, &o.OrganizationID, &o.Title, &o.Description, &o.Date,
		&o.StartTime, &o.EndTime, &o.DurationHours, &o.Capacity, &o.Status,
		&o.Address, &o.PostalCode, &o.Lat, &o.Lng, &o.Tags, &o.CreatedAt, &o.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &o, nil
}

// Repository persists opportunities.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates an opportunities repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Create inserts an opportunity and fills in the generated fields.
func (r *Repository) Create(ctx context.Context, o *models.Opportunity) error {
	return r.pool.QueryRow(ctx,
		`INSERT INTO opportunities
		 (organization_id, title, description, date, start_time, end_time,
		  duration_hours, capacity, status, address, postal_code, tags)
		 VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)
		 RETURNING id, created_at, updated_at`,
		o.OrganizationID, o.Title, o.Description, o.Date, o.StartTime, o.EndTime,
		o.DurationHours, o.Capacity, o.Status, o.Address, o.PostalCode, o.Tags).
		Scan(&o.ID, &o.CreatedAt, &o.UpdatedAt)
}

// GetByID returns one opportunity, nil when absent.
func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (*models.Opportunity, error) {
	return scanOpportunity(r.pool.QueryRow(ctx,
		`SELECT `+opportunityColumns+` FROM opportunities WHERE id = $1`, id))
}

// SetStatus moves an opportunity from one status to another. Returns false
// when the current status does not match, which keeps cancellation and
// completion one-way.
func (r *Repository) SetStatus(ctx context.Context, id uuid.UUID, from, to models.OpportunityStatus) (bool, error) {
	tag, err := r.pool.Exec(ctx,
		`UPDATE opportunities SET status = $2, updated_at = NOW() WHERE id = $1 AND status = $3`,
		id, to, from)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

// SetCoordinates stores resolved geocode coordinates.
func (r *Repository) SetCoordinates(ctx context.Context, id uuid.UUID, lat, lng float64) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE opportunities SET lat = $2, lng = $3, updated_at = NOW() WHERE id = $1`,
		id, lat, lng)
	return err
}

// Filters narrows an opportunity listing.
type Filters struct {
	Query          string
	Date           *time.Time
	Tag            string
	OrganizationID *uuid.UUID
	Status         models.OpportunityStatus
}

// List returns opportunities matching the filters, newest date first. An
// empty Status defaults to ACTIVE.
func (r *Repository) List(ctx context.Context, f Filters) ([]models.Opportunity, error) {
	status := f.Status
	if status == "" {
		status = models.OpportunityActive
	}

	var (
		where = []string{"status = $1"}
		args  = []interface{}{status}
	)
	if f.Query != "" {
		args = append(args, "%"+strings.ToLower(f.Query)+"%")
		where = append(where, fmt.Sprintf("(LOWER(title) LIKE $%d OR LOWER(COALESCE(description,'')) LIKE $%d)", len(args), len(args)))
	}
	if f.Date != nil {
		args = append(args, *f.Date)
		where = append(where, fmt.Sprintf("date = $%d", len(args)))
	}
	if f.Tag != "" {
		args = append(args, f.Tag)
		where = append(where, fmt.Sprintf("$%d = ANY(tags)", len(args)))
	}
	if f.OrganizationID != nil {
		args = append(args, *f.OrganizationID)
		where = append(where, fmt.Sprintf("organization_id = $%d", len(args)))
	}

	rows, err := r.pool.Query(ctx,
		`SELECT `+opportunityColumns+` FROM opportunities
		 WHERE `+strings.Join(where, " AND ")+`
		 ORDER BY date ASC, created_at ASC`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var list []models.Opportunity
	for rows.Next() {
		var o models.Opportunity
		if err := rows.Scan(&o.ID, &o.OrganizationID, &o.Title, &o.Description, &o.Date,
			&o.StartTime, &o.EndTime, &o.DurationHours, &o.Capacity, &o.Status,
			&o.Address, &o.PostalCode, &o.Lat, &o.Lng, &o.Tags, &o.CreatedAt, &o.UpdatedAt); err != nil {
			return nil, err
		}
		list = append(list, o)
	}
	return list, rows.Err()
}

// ApprovedOrgIDs returns the set of organizations approved by a school.
func (r *Repository) ApprovedOrgIDs(ctx context.Context, schoolID uuid.UUID) (map[uuid.UUID]bool, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT organization_id FROM school_approved_orgs WHERE school_id = $1`, schoolID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	approved := make(map[uuid.UUID]bool)
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		approved[id] = true
	}
	return approved, rows.Err()
}

// SchoolCoordinates returns a school's resolved reference point; both nil
// when the school has no coordinates.
func (r *Repository) SchoolCoordinates(ctx context.Context, schoolID uuid.UUID) (lat, lng *float64, err error) {
	err = r.pool.QueryRow(ctx,
		`SELECT lat, lng FROM schools WHERE id = $1`, schoolID).Scan(&lat, &lng)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil, nil
	}
	return lat, lng, err
}

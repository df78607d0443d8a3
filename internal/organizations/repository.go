package organizations

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/hourtrack/backend/internal/models"
)

const orgColumns = `id, name, COALESCE(description,''), COALESCE(address,''),
	COALESCE(postal_code,''), lat, lng, created_at, updated_at`

// Repository persists organizations.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates an organizations repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Create inserts an organization and fills in the generated fields.
func (r *Repository) Create(ctx context.Context, o *models.Organization) error {
	return r.pool.QueryRow(ctx,
		`INSERT INTO organizations (name, description, address, postal_code)
		 VALUES ($1,$2,$3,$4) RETURNING id, created_at, updated_at`,
		o.Name, o.Description, o.Address, o.PostalCode).
		Scan(&o.ID, &o.CreatedAt, &o.UpdatedAt)
}

// GetByID returns one organization, nil when absent.
func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (*models.Organization, error) {
	var o models.Organization
	err := r.pool.QueryRow(ctx,
		`SELECT `+orgColumns+` FROM organizations WHERE id = $1`, id).
		Scan(&o.ID, &o.Name, &o.Description, &o.Address, &o.PostalCode,
			&o.Lat, &o.Lng, &o.CreatedAt, &o.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &o, nil
}

// List returns all organizations by name.
func (r *Repository) List(ctx context.Context) ([]models.Organization, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+orgColumns+` FROM organizations ORDER BY name ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var list []models.Organization
	for rows.Next() {
		var o models.Organization
		if err := rows.Scan(&o.ID, &o.Name, &o.Description, &o.Address, &o.PostalCode,
			&o.Lat, &o.Lng, &o.CreatedAt, &o.UpdatedAt); err != nil {
			return nil, err
		}
		list = append(list, o)
	}
	return list, rows.Err()
}

// SetCoordinates stores resolved geocode coordinates.
func (r *Repository) SetCoordinates(ctx context.Context, id uuid.UUID, lat, lng float64) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE organizations SET lat = $2, lng = $3, updated_at = NOW() WHERE id = $1`,
		id, lat, lng)
	return err
}

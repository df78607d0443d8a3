package auth

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/hourtrack/backend/internal/models"
)

// Repository handles user persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates an auth repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const userColumns = `id, email, password_hash, full_name, role, school_id, classroom_id, organization_id, email_opt_out, created_at, updated_at`

func scanUser(row interface{ Scan(...any) error }) (*models.User, error) {
	var u models.User
	err := row.Scan(&u.ID, &u.Email, &u.Password, &u.FullName, &u.Role,
		&u.SchoolID, &u.ClassroomID, &u.OrganizationID, &u.EmailOptOut, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// GetByID returns a user by ID.
func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	return scanUser(r.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id))
}

// GetByEmail returns a user by email.
func (r *Repository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	return scanUser(r.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE email = $1`, email))
}

// CreateUserParams holds the fields for user creation.
type CreateUserParams struct {
	Email          string
	PasswordHash   string
	FullName       string
	Role           models.Role
	SchoolID       *uuid.UUID
	ClassroomID    *uuid.UUID
	OrganizationID *uuid.UUID
}

// Create inserts a new user.
func (r *Repository) Create(ctx context.Context, p CreateUserParams) (*models.User, error) {
	const q = `INSERT INTO users (email, password_hash, full_name, role, school_id, classroom_id, organization_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING ` + userColumns
	return scanUser(r.pool.QueryRow(ctx, q, p.Email, p.PasswordHash, p.FullName, string(p.Role),
		p.SchoolID, p.ClassroomID, p.OrganizationID))
}

// SetEmailOptOut updates the user's email notification preference.
func (r *Repository) SetEmailOptOut(ctx context.Context, id uuid.UUID, optOut bool) error {
	_, err := r.pool.Exec(ctx, `UPDATE users SET email_opt_out = $2, updated_at = NOW() WHERE id = $1`, id, optOut)
	return err
}

// DeleteAccount erases a user and everything they own in a single
// transaction. School admins take their school subtree (classrooms, approved
// orgs, reports) with them. A partial cascade is never committed.
func (r *Repository) DeleteAccount(ctx context.Context, userID uuid.UUID) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx)

	var role models.Role
	var schoolID *uuid.UUID
	if err := tx.QueryRow(ctx, `SELECT role, school_id FROM users WHERE id = $1`, userID).Scan(&role, &schoolID); err != nil {
		return err
	}

	if role == models.RoleSchoolAdmin && schoolID != nil {
		if _, err := tx.Exec(ctx, `DELETE FROM schools WHERE id = $1`, *schoolID); err != nil {
			return fmt.Errorf("delete school subtree: %w", err)
		}
	}
	if _, err := tx.Exec(ctx, `DELETE FROM audit_logs WHERE actor_id = $1`, userID); err != nil {
		return fmt.Errorf("delete audit logs: %w", err)
	}
	// Signups, sessions, notifications, messages and email logs cascade off
	// the user row via foreign keys.
	if _, err := tx.Exec(ctx, `DELETE FROM users WHERE id = $1`, userID); err != nil {
		return fmt.Errorf("delete user: %w", err)
	}
	return tx.Commit(ctx)
}

package schools

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/hourtrack/backend/internal/models"
)

// ErrDuplicate means the approved-organization pair already exists.
var ErrDuplicate = errors.New("organization already approved")

// Repository persists schools, classrooms, and approved-org lists.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a schools repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// CreateSchool inserts a school and fills in the generated fields.
func (r *Repository) CreateSchool(ctx context.Context, s *models.School) error {
	return r.pool.QueryRow(ctx,
		`INSERT INTO schools (name, address, postal_code)
		 VALUES ($1,$2,$3) RETURNING id, created_at, updated_at`,
		s.Name, s.Address, s.PostalCode).
		Scan(&s.ID, &s.CreatedAt, &s.UpdatedAt)
}

// GetSchool returns one school, nil when absent.
func (r *Repository) GetSchool(ctx context.Context, id uuid.UUID) (*models.School, error) {
	var s models.School
	err := r.pool.QueryRow(ctx,
		`SELECT id, name, COALESCE(address,''), COALESCE(postal_code,''), lat, lng, created_at, updated_at
		 FROM schools WHERE id = $1`, id).
		Scan(&s.ID, &s.Name, &s.Address, &s.PostalCode, &s.Lat, &s.Lng, &s.CreatedAt, &s.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// SetCoordinates stores resolved geocode coordinates.
func (r *Repository) SetCoordinates(ctx context.Context, id uuid.UUID, lat, lng float64) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE schools SET lat = $2, lng = $3, updated_at = NOW() WHERE id = $1`, id, lat, lng)
	return err
}

// CreateClassroom inserts a classroom under a school.
func (r *Repository) CreateClassroom(ctx context.Context, cr *models.Classroom) error {
	return r.pool.QueryRow(ctx,
		`INSERT INTO classrooms (school_id, name, teacher_id)
		 VALUES ($1,$2,$3) RETURNING id, created_at, updated_at`,
		cr.SchoolID, cr.Name, cr.TeacherID).
		Scan(&cr.ID, &cr.CreatedAt, &cr.UpdatedAt)
}

// ListClassrooms returns a school's classrooms by name.
func (r *Repository) ListClassrooms(ctx context.Context, schoolID uuid.UUID) ([]models.Classroom, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, school_id, name, teacher_id, created_at, updated_at
		 FROM classrooms WHERE school_id = $1 ORDER BY name ASC`, schoolID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var list []models.Classroom
	for rows.Next() {
		var cr models.Classroom
		if err := rows.Scan(&cr.ID, &cr.SchoolID, &cr.Name, &cr.TeacherID, &cr.CreatedAt, &cr.UpdatedAt); err != nil {
			return nil, err
		}
		list = append(list, cr)
	}
	return list, rows.Err()
}

// AssignTeacher sets the classroom's teacher and points the teacher's user
// row at the classroom. Returns false when the classroom is not in the school.
func (r *Repository) AssignTeacher(ctx context.Context, schoolID, classroomID, teacherID uuid.UUID) (bool, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return false, err
	}
	defer tx.Rollback(ctx)

	tag, err := tx.Exec(ctx,
		`UPDATE classrooms SET teacher_id = $3, updated_at = NOW()
		 WHERE id = $2 AND school_id = $1`,
		schoolID, classroomID, teacherID)
	if err != nil {
		return false, err
	}
	if tag.RowsAffected() == 0 {
		return false, nil
	}
	if _, err := tx.Exec(ctx,
		`UPDATE users SET classroom_id = $2, school_id = $3, updated_at = NOW()
		 WHERE id = $1 AND role = $4`,
		teacherID, classroomID, schoolID, models.RoleTeacher); err != nil {
		return false, err
	}
	return true, tx.Commit(ctx)
}

// DeleteClassroom removes a classroom from the school. Returns false when no
// such classroom exists there.
func (r *Repository) DeleteClassroom(ctx context.Context, schoolID, classroomID uuid.UUID) (bool, error) {
	tag, err := r.pool.Exec(ctx,
		`DELETE FROM classrooms WHERE id = $2 AND school_id = $1`, schoolID, classroomID)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

// Roster lists a school's students, optionally narrowed to one classroom.
func (r *Repository) Roster(ctx context.Context, schoolID uuid.UUID, classroomID *uuid.UUID) ([]models.UserPublic, error) {
	query := `SELECT id, email, full_name, role, school_id, classroom_id, organization_id, created_at
		 FROM users WHERE school_id = $1 AND role = $2`
	args := []interface{}{schoolID, models.RoleStudent}
	if classroomID != nil {
		query += ` AND classroom_id = $3`
		args = append(args, *classroomID)
	}
	query += ` ORDER BY full_name ASC`

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var list []models.UserPublic
	for rows.Next() {
		var u models.UserPublic
		if err := rows.Scan(&u.ID, &u.Email, &u.FullName, &u.Role,
			&u.SchoolID, &u.ClassroomID, &u.OrganizationID, &u.CreatedAt); err != nil {
			return nil, err
		}
		list = append(list, u)
	}
	return list, rows.Err()
}

// ApproveOrg adds an organization to the school's approved list.
func (r *Repository) ApproveOrg(ctx context.Context, schoolID, orgID uuid.UUID) error {
	tag, err := r.pool.Exec(ctx,
		`INSERT INTO school_approved_orgs (school_id, organization_id)
		 VALUES ($1,$2) ON CONFLICT DO NOTHING`,
		schoolID, orgID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrDuplicate
	}
	return nil
}

// RemoveApprovedOrg drops an organization from the approved list. Returns
// false when it was not on the list.
func (r *Repository) RemoveApprovedOrg(ctx context.Context, schoolID, orgID uuid.UUID) (bool, error) {
	tag, err := r.pool.Exec(ctx,
		`DELETE FROM school_approved_orgs WHERE school_id = $1 AND organization_id = $2`,
		schoolID, orgID)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

// ListApprovedOrgs returns the school's approved organizations by name.
func (r *Repository) ListApprovedOrgs(ctx context.Context, schoolID uuid.UUID) ([]models.Organization, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT o.id, o.name, COALESCE(o.description,''), COALESCE(o.address,''),
		        COALESCE(o.postal_code,''), o.lat, o.lng, o.created_at, o.updated_at
		 FROM school_approved_orgs sa
		 JOIN organizations o ON o.id = sa.organization_id
		 WHERE sa.school_id = $1
		 ORDER BY o.name ASC`, schoolID)
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

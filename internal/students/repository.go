package students

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ecoly/ecoly/internal/platform/db"
	"github.com/ecoly/ecoly/internal/platform/httpx"
	"github.com/ecoly/ecoly/internal/shared"
)

// Repository defines persistence for students. Every method is scoped to
// one school.
type Repository interface {
	List(ctx context.Context, filter ListFilter) ([]Student, error)
	Count(ctx context.Context, filter ListFilter) (int, error)
	Get(ctx context.Context, schoolID, id string) (*Student, error)
	Create(ctx context.Context, s Student) (*Student, error)
	Update(ctx context.Context, schoolID, id string, changes map[string]any) (*Student, error)
	Deactivate(ctx context.Context, schoolID, id string) error
}

// PGRepository implements Repository using PostgreSQL.
type PGRepository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a PostgreSQL repository.
func NewRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{pool: pool}
}

const studentSelect = `
	SELECT s.id::text, s.school_id::text, s.class_id::text, s.student_number,
	       s.first_name, s.last_name, s.first_name_ar, s.last_name_ar,
	       s.date_of_birth, s.place_of_birth, s.gender, s.address,
	       s.is_active, s.created_at, s.updated_at,
	       c.name, c.level
	FROM students s
	LEFT JOIN classes c ON c.id = s.class_id`

func whereClause(filter ListFilter) (string, []any) {
	var conditions []string
	var args []any
	argPos := 1

	conditions = append(conditions, fmt.Sprintf("s.school_id = $%d", argPos))
	args = append(args, filter.SchoolID)
	argPos++

	conditions = append(conditions, "s.is_active = TRUE")

	if filter.ClassID != "" {
		conditions = append(conditions, fmt.Sprintf("s.class_id = $%d", argPos))
		args = append(args, filter.ClassID)
		argPos++
	}

	if filter.Search != "" {
		conditions = append(conditions, fmt.Sprintf("(s.first_name ILIKE $%d OR s.last_name ILIKE $%d OR s.student_number ILIKE $%d)", argPos, argPos, argPos))
		args = append(args, "%"+filter.Search+"%")
	}

	return "WHERE " + strings.Join(conditions, " AND "), args
}

// List returns one page of active students, newest first.
func (r *PGRepository) List(ctx context.Context, filter ListFilter) ([]Student, error) {
	where, args := whereClause(filter)
	query := fmt.Sprintf("%s %s ORDER BY s.created_at DESC LIMIT $%d OFFSET $%d", studentSelect, where, len(args)+1, len(args)+2)
	args = append(args, filter.Limit, shared.Offset(filter.Page, filter.Limit))

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("students: list: %w", err)
	}
	defer rows.Close()

	out := make([]Student, 0, filter.Limit)
	for rows.Next() {
		s, err := scanStudent(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *s)
	}
	return out, rows.Err()
}

// Count returns the number of students matching filter.
func (r *PGRepository) Count(ctx context.Context, filter ListFilter) (int, error) {
	where, args := whereClause(filter)
	var total int
	if err := r.pool.QueryRow(ctx, "SELECT COUNT(*) FROM students s "+where, args...).Scan(&total); err != nil {
		return 0, fmt.Errorf("students: count: %w", err)
	}
	return total, nil
}

// Get fetches a student of schoolID.
func (r *PGRepository) Get(ctx context.Context, schoolID, id string) (*Student, error) {
	row := r.pool.QueryRow(ctx, studentSelect+" WHERE s.school_id = $1 AND s.id = $2", schoolID, id)
	return scanStudent(row)
}

// Create inserts s and returns the stored record.
func (r *PGRepository) Create(ctx context.Context, s Student) (*Student, error) {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO students (id, school_id, class_id, student_number, first_name, last_name,
		                      first_name_ar, last_name_ar, date_of_birth, place_of_birth, gender, address,
		                      is_active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, TRUE, $13, $13)`,
		s.ID, s.SchoolID, s.ClassID, s.StudentNumber, s.FirstName, s.LastName,
		s.FirstNameAr, s.LastNameAr, s.DateOfBirth, s.PlaceOfBirth, s.Gender, s.Address,
		s.CreatedAt,
	)
	if err != nil {
		if db.IsUniqueViolation(err) {
			return nil, fmt.Errorf("students: number %s: %w", s.StudentNumber, httpx.ErrDuplicate)
		}
		return nil, fmt.Errorf("students: create: %w", err)
	}
	return r.Get(ctx, s.SchoolID, s.ID)
}

// Update applies column changes to a student of schoolID.
func (r *PGRepository) Update(ctx context.Context, schoolID, id string, changes map[string]any) (*Student, error) {
	if len(changes) == 0 {
		return r.Get(ctx, schoolID, id)
	}
	sets := make([]string, 0, len(changes)+1)
	args := []any{schoolID, id}
	for _, column := range updatableColumns {
		value, ok := changes[column]
		if !ok {
			continue
		}
		args = append(args, value)
		sets = append(sets, fmt.Sprintf("%s = $%d", column, len(args)))
	}
	args = append(args, time.Now().UTC())
	sets = append(sets, fmt.Sprintf("updated_at = $%d", len(args)))

	tag, err := r.pool.Exec(ctx, "UPDATE students SET "+strings.Join(sets, ", ")+" WHERE school_id = $1 AND id = $2", args...)
	if err != nil {
		return nil, fmt.Errorf("students: update: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return nil, fmt.Errorf("students: %s: %w", id, httpx.ErrNotFound)
	}
	return r.Get(ctx, schoolID, id)
}

// Deactivate soft deletes a student of schoolID.
func (r *PGRepository) Deactivate(ctx context.Context, schoolID, id string) error {
	tag, err := r.pool.Exec(ctx, `UPDATE students SET is_active = FALSE, updated_at = NOW() WHERE school_id = $1 AND id = $2 AND is_active`, schoolID, id)
	if err != nil {
		return fmt.Errorf("students: deactivate: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("students: %s: %w", id, httpx.ErrNotFound)
	}
	return nil
}

// updatableColumns fixes the column order of partial updates.
var updatableColumns = []string{
	"first_name", "last_name", "first_name_ar", "last_name_ar", "date_of_birth",
	"place_of_birth", "gender", "address", "class_id", "is_active",
}

func scanStudent(row pgx.Row) (*Student, error) {
	var (
		s          Student
		className  *string
		classLevel *string
	)
	err := row.Scan(
		&s.ID, &s.SchoolID, &s.ClassID, &s.StudentNumber,
		&s.FirstName, &s.LastName, &s.FirstNameAr, &s.LastNameAr,
		&s.DateOfBirth, &s.PlaceOfBirth, &s.Gender, &s.Address,
		&s.IsActive, &s.CreatedAt, &s.UpdatedAt,
		&className, &classLevel,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("students: %w", httpx.ErrNotFound)
		}
		return nil, fmt.Errorf("students: scan: %w", err)
	}
	if s.ClassID != nil && className != nil {
		s.Class = &ClassRef{ID: *s.ClassID, Name: *className, Level: classLevel}
	}
	return &s, nil
}

var _ Repository = (*PGRepository)(nil)

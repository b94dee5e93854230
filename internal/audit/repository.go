package audit

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository persists denials.
type Repository interface {
	Insert(ctx context.Context, d Denial) error
	List(ctx context.Context, f Filters, offset, limit int) ([]Denial, error)
	PurgeBefore(ctx context.Context, before time.Time) (int64, error)
}

// PGRepository implements Repository using PostgreSQL.
type PGRepository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a PostgreSQL repository.
func NewRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{pool: pool}
}

// Insert stores d. Replayed tasks with the same id are ignored.
func (r *PGRepository) Insert(ctx context.Context, d Denial) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO authz_denials (id, adapter, outcome, user_id, role, school_id, requirement, resource, occurred_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (id) DO NOTHING`,
		d.ID, d.Adapter, d.Outcome, optionalText(d.UserID), optionalText(d.Role),
		optionalText(d.SchoolID), d.Requirement, optionalText(d.Resource), d.OccurredAt,
	)
	if err != nil {
		return fmt.Errorf("insert denial: %w", err)
	}
	return nil
}

// List returns denials matching f, newest first.
func (r *PGRepository) List(ctx context.Context, f Filters, offset, limit int) ([]Denial, error) {
	conditions := []string{"school_id = $1"}
	args := []any{f.SchoolID}
	if !f.From.IsZero() {
		args = append(args, f.From)
		conditions = append(conditions, fmt.Sprintf("occurred_at >= $%d", len(args)))
	}
	if !f.To.IsZero() {
		args = append(args, f.To)
		conditions = append(conditions, fmt.Sprintf("occurred_at < $%d", len(args)))
	}
	if f.Adapter != "" {
		args = append(args, f.Adapter)
		conditions = append(conditions, fmt.Sprintf("adapter = $%d", len(args)))
	}
	query := fmt.Sprintf(`
		SELECT id::text, adapter, outcome, user_id, role, school_id, requirement, resource, occurred_at
		FROM authz_denials
		WHERE %s
		ORDER BY occurred_at DESC, id
		LIMIT $%d OFFSET $%d`, strings.Join(conditions, " AND "), len(args)+1, len(args)+2)
	args = append(args, limit, offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list denials: %w", err)
	}
	return pgx.CollectRows(rows, scanDenial)
}

// PurgeBefore deletes denials that occurred before the cutoff.
func (r *PGRepository) PurgeBefore(ctx context.Context, before time.Time) (int64, error) {
	tag, err := r.pool.Exec(ctx, `DELETE FROM authz_denials WHERE occurred_at < $1`, before)
	if err != nil {
		return 0, fmt.Errorf("purge denials: %w", err)
	}
	return tag.RowsAffected(), nil
}

func scanDenial(row pgx.CollectableRow) (Denial, error) {
	var d Denial
	var userID, role, schoolID, resource pgtype.Text
	if err := row.Scan(&d.ID, &d.Adapter, &d.Outcome, &userID, &role, &schoolID, &d.Requirement, &resource, &d.OccurredAt); err != nil {
		return Denial{}, err
	}
	d.UserID = userID.String
	d.Role = role.String
	d.SchoolID = schoolID.String
	d.Resource = resource.String
	return d, nil
}

func optionalText(value string) pgtype.Text {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return pgtype.Text{}
	}
	return pgtype.Text{String: trimmed, Valid: true}
}

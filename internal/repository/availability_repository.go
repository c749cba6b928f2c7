package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/aozorajuku/scheduler-api/internal/models"
)

const availabilityColumns = "id, user_id, type, day_of_week, date, full_day, start_minute, end_minute, status, created_at, updated_at"

// AvailabilityRepository persists availability declarations. Mutating methods
// accept an sqlx.ExtContext so the ladder engine can run them inside the same
// transaction as the insert they protect.
type AvailabilityRepository struct {
	db *sqlx.DB
}

// NewAvailabilityRepository constructs the repository.
func NewAvailabilityRepository(db *sqlx.DB) *AvailabilityRepository {
	return &AvailabilityRepository{db: db}
}

func (r *AvailabilityRepository) exec(exec sqlx.ExtContext) sqlx.ExtContext {
	if exec != nil {
		return exec
	}
	return r.db
}

// Create inserts a declaration row.
func (r *AvailabilityRepository) Create(ctx context.Context, exec sqlx.ExtContext, decl *models.AvailabilityDeclaration) error {
	if decl == nil {
		return fmt.Errorf("declaration payload is nil")
	}
	if decl.ID == "" {
		decl.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if decl.CreatedAt.IsZero() {
		decl.CreatedAt = now
	}
	decl.UpdatedAt = now

	const query = `
INSERT INTO user_availability (id, user_id, type, day_of_week, date, full_day, start_minute, end_minute, status, created_at, updated_at)
VALUES (:id, :user_id, :type, :day_of_week, :date, :full_day, :start_minute, :end_minute, :status, :created_at, :updated_at)`
	if _, err := sqlx.NamedExecContext(ctx, r.exec(exec), query, decl); err != nil {
		return fmt.Errorf("insert availability declaration: %w", err)
	}
	return nil
}

// ListActiveByTypeAndDate returns PENDING/APPROVED declarations of one type
// for a user on an exact date. Used by the insert reconciliation to find rows
// to trim; FOR UPDATE keeps a concurrent insert from adjusting the same rows.
func (r *AvailabilityRepository) ListActiveByTypeAndDate(ctx context.Context, exec sqlx.ExtContext, userID string, declType models.AvailabilityType, date time.Time) ([]models.AvailabilityDeclaration, error) {
	query := fmt.Sprintf(`SELECT %s FROM user_availability
WHERE user_id = $1 AND type = $2 AND date = $3 AND status IN ('PENDING', 'APPROVED')
ORDER BY created_at ASC FOR UPDATE`, availabilityColumns)
	var decls []models.AvailabilityDeclaration
	if err := sqlx.SelectContext(ctx, r.exec(exec), &decls, query, userID, declType, date); err != nil {
		return nil, fmt.Errorf("list availability by type and date: %w", err)
	}
	return decls, nil
}

// ListActiveByTypeAndWeekday returns PENDING/APPROVED declarations of one
// type keyed on a weekday, locked like ListActiveByTypeAndDate so weekly rows
// reconcile under the insert transaction.
func (r *AvailabilityRepository) ListActiveByTypeAndWeekday(ctx context.Context, exec sqlx.ExtContext, userID string, declType models.AvailabilityType, weekday int) ([]models.AvailabilityDeclaration, error) {
	query := fmt.Sprintf(`SELECT %s FROM user_availability
WHERE user_id = $1 AND type = $2 AND day_of_week = $3 AND status IN ('PENDING', 'APPROVED')
ORDER BY created_at ASC FOR UPDATE`, availabilityColumns)
	var decls []models.AvailabilityDeclaration
	if err := sqlx.SelectContext(ctx, r.exec(exec), &decls, query, userID, declType, weekday); err != nil {
		return nil, fmt.Errorf("list availability by type and weekday: %w", err)
	}
	return decls, nil
}

// UpdateWindow rewrites the interval columns of a declaration.
func (r *AvailabilityRepository) UpdateWindow(ctx context.Context, exec sqlx.ExtContext, id string, fullDay bool, startMinute, endMinute *int) error {
	const query = `UPDATE user_availability SET full_day = $1, start_minute = $2, end_minute = $3, updated_at = $4 WHERE id = $5`
	result, err := r.exec(exec).ExecContext(ctx, query, fullDay, startMinute, endMinute, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("update availability window: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("availability window rows affected: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// Delete removes a declaration row.
func (r *AvailabilityRepository) Delete(ctx context.Context, exec sqlx.ExtContext, id string) error {
	const query = `DELETE FROM user_availability WHERE id = $1`
	result, err := r.exec(exec).ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("delete availability declaration: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("availability delete rows affected: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// DeleteMatching removes declarations of one type for a user keyed by either
// a date or a weekday. Used by overwrite-mode batch imports.
func (r *AvailabilityRepository) DeleteMatching(ctx context.Context, exec sqlx.ExtContext, userID string, declType models.AvailabilityType, dayOfWeek *int, date *time.Time) (int64, error) {
	var (
		query string
		arg   interface{}
	)
	switch {
	case date != nil:
		query = `DELETE FROM user_availability WHERE user_id = $1 AND type = $2 AND date = $3`
		arg = *date
	case dayOfWeek != nil:
		query = `DELETE FROM user_availability WHERE user_id = $1 AND type = $2 AND day_of_week = $3`
		arg = *dayOfWeek
	default:
		return 0, fmt.Errorf("delete matching requires a date or a weekday")
	}
	result, err := r.exec(exec).ExecContext(ctx, query, userID, declType, arg)
	if err != nil {
		return 0, fmt.Errorf("delete matching availability: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("matching availability rows affected: %w", err)
	}
	return affected, nil
}

// ListRegularByWeekday returns a user's active REGULAR rows for one weekday.
func (r *AvailabilityRepository) ListRegularByWeekday(ctx context.Context, userID string, weekday int) ([]models.AvailabilityDeclaration, error) {
	query := fmt.Sprintf(`SELECT %s FROM user_availability
WHERE user_id = $1 AND type = 'REGULAR' AND day_of_week = $2 AND status IN ('PENDING', 'APPROVED')
ORDER BY start_minute ASC NULLS FIRST`, availabilityColumns)
	var decls []models.AvailabilityDeclaration
	if err := r.db.SelectContext(ctx, &decls, query, userID, weekday); err != nil {
		return nil, fmt.Errorf("list regular availability: %w", err)
	}
	return decls, nil
}

// ListActiveByDate returns a user's active date-specific rows (EXCEPTION and
// ABSENCE) for one date.
func (r *AvailabilityRepository) ListActiveByDate(ctx context.Context, userID string, date time.Time) ([]models.AvailabilityDeclaration, error) {
	query := fmt.Sprintf(`SELECT %s FROM user_availability
WHERE user_id = $1 AND date = $2 AND status IN ('PENDING', 'APPROVED')
ORDER BY type ASC, start_minute ASC NULLS FIRST`, availabilityColumns)
	var decls []models.AvailabilityDeclaration
	if err := r.db.SelectContext(ctx, &decls, query, userID, date); err != nil {
		return nil, fmt.Errorf("list availability by date: %w", err)
	}
	return decls, nil
}

// List returns declarations matching the filter along with a total count.
func (r *AvailabilityRepository) List(ctx context.Context, filter models.AvailabilityFilter) ([]models.AvailabilityDeclaration, int, error) {
	base := "FROM user_availability WHERE 1=1"
	var conditions []string
	var args []interface{}

	if filter.UserID != "" {
		conditions = append(conditions, fmt.Sprintf("user_id = $%d", len(args)+1))
		args = append(args, filter.UserID)
	}
	if filter.Type != "" {
		conditions = append(conditions, fmt.Sprintf("type = $%d", len(args)+1))
		args = append(args, filter.Type)
	}
	if filter.DateFrom != nil {
		conditions = append(conditions, fmt.Sprintf("date >= $%d", len(args)+1))
		args = append(args, *filter.DateFrom)
	}
	if filter.DateTo != nil {
		conditions = append(conditions, fmt.Sprintf("date <= $%d", len(args)+1))
		args = append(args, *filter.DateTo)
	}

	if len(conditions) > 0 {
		base += " AND " + strings.Join(conditions, " AND ")
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 200 {
		size = 50
	}
	offset := (page - 1) * size

	query := fmt.Sprintf("SELECT %s %s ORDER BY date ASC NULLS FIRST, day_of_week ASC NULLS LAST, start_minute ASC NULLS FIRST LIMIT %d OFFSET %d", availabilityColumns, base, size, offset)
	var decls []models.AvailabilityDeclaration
	if err := r.db.SelectContext(ctx, &decls, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list availability declarations: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s", base)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count availability declarations: %w", err)
	}

	return decls, total, nil
}

// FindByID fetches a declaration by ID.
func (r *AvailabilityRepository) FindByID(ctx context.Context, id string) (*models.AvailabilityDeclaration, error) {
	query := fmt.Sprintf(`SELECT %s FROM user_availability WHERE id = $1`, availabilityColumns)
	var decl models.AvailabilityDeclaration
	if err := r.db.GetContext(ctx, &decl, query, id); err != nil {
		return nil, err
	}
	return &decl, nil
}

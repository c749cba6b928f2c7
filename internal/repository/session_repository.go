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

const sessionColumns = "id, branch_id, teacher_id, student_id, booth_id, date, start_minute, end_minute, subject, notes, is_cancelled, cancelled_at, created_at, updated_at"

// SessionRepository persists class sessions.
type SessionRepository struct {
	db *sqlx.DB
}

// NewSessionRepository constructs the repository.
func NewSessionRepository(db *sqlx.DB) *SessionRepository {
	return &SessionRepository{db: db}
}

func (r *SessionRepository) exec(exec sqlx.ExtContext) sqlx.ExtContext {
	if exec != nil {
		return exec
	}
	return r.db
}

// Create inserts a session row.
func (r *SessionRepository) Create(ctx context.Context, exec sqlx.ExtContext, session *models.ClassSession) error {
	if session == nil {
		return fmt.Errorf("session payload is nil")
	}
	if session.ID == "" {
		session.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if session.CreatedAt.IsZero() {
		session.CreatedAt = now
	}
	session.UpdatedAt = now

	const query = `
INSERT INTO class_sessions (id, branch_id, teacher_id, student_id, booth_id, date, start_minute, end_minute, subject, notes, is_cancelled, cancelled_at, created_at, updated_at)
VALUES (:id, :branch_id, :teacher_id, :student_id, :booth_id, :date, :start_minute, :end_minute, :subject, :notes, :is_cancelled, :cancelled_at, :created_at, :updated_at)`
	if _, err := sqlx.NamedExecContext(ctx, r.exec(exec), query, session); err != nil {
		return fmt.Errorf("insert class session: %w", err)
	}
	return nil
}

// ListOverlapping returns active sessions on one date touching any of the
// candidate's resources. The hard-conflict scan runs against this set; the
// query stays coarse (date + resource match) and the classifier does the
// minute-level overlap work.
func (r *SessionRepository) ListOverlapping(ctx context.Context, exec sqlx.ExtContext, candidate models.SessionCandidate, excludeSessionID *string) ([]models.ClassSession, error) {
	var resourceClauses []string
	args := []interface{}{candidate.Date}

	if candidate.TeacherID != "" {
		args = append(args, candidate.TeacherID)
		resourceClauses = append(resourceClauses, fmt.Sprintf("teacher_id = $%d", len(args)))
	}
	if candidate.StudentID != "" {
		args = append(args, candidate.StudentID)
		resourceClauses = append(resourceClauses, fmt.Sprintf("student_id = $%d", len(args)))
	}
	if candidate.BoothID != "" {
		args = append(args, candidate.BoothID)
		resourceClauses = append(resourceClauses, fmt.Sprintf("booth_id = $%d", len(args)))
	}
	if len(resourceClauses) == 0 {
		return nil, nil
	}

	query := fmt.Sprintf(`SELECT %s FROM class_sessions
WHERE date = $1 AND is_cancelled = FALSE AND (%s)`, sessionColumns, strings.Join(resourceClauses, " OR "))
	if excludeSessionID != nil {
		args = append(args, *excludeSessionID)
		query += fmt.Sprintf(" AND id != $%d", len(args))
	}
	query += " ORDER BY start_minute ASC, id ASC"

	var sessions []models.ClassSession
	if err := sqlx.SelectContext(ctx, r.exec(exec), &sessions, query, args...); err != nil {
		return nil, fmt.Errorf("list overlapping sessions: %w", err)
	}
	return sessions, nil
}

// Update rewrites the mutable columns of a session.
func (r *SessionRepository) Update(ctx context.Context, exec sqlx.ExtContext, session *models.ClassSession) error {
	if session == nil {
		return fmt.Errorf("session payload is nil")
	}
	session.UpdatedAt = time.Now().UTC()

	const query = `
UPDATE class_sessions
SET booth_id = :booth_id, date = :date, start_minute = :start_minute, end_minute = :end_minute,
    subject = :subject, notes = :notes, is_cancelled = :is_cancelled, cancelled_at = :cancelled_at, updated_at = :updated_at
WHERE id = :id`
	result, err := sqlx.NamedExecContext(ctx, r.exec(exec), query, session)
	if err != nil {
		return fmt.Errorf("update class session: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("class session rows affected: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// Cancel soft-cancels a session.
func (r *SessionRepository) Cancel(ctx context.Context, exec sqlx.ExtContext, id string) error {
	const query = `UPDATE class_sessions SET is_cancelled = TRUE, cancelled_at = $1, updated_at = $1 WHERE id = $2 AND is_cancelled = FALSE`
	result, err := r.exec(exec).ExecContext(ctx, query, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("cancel class session: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("cancel session rows affected: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// FindByID fetches a session by ID.
func (r *SessionRepository) FindByID(ctx context.Context, id string) (*models.ClassSession, error) {
	query := fmt.Sprintf(`SELECT %s FROM class_sessions WHERE id = $1`, sessionColumns)
	var session models.ClassSession
	if err := r.db.GetContext(ctx, &session, query, id); err != nil {
		return nil, err
	}
	return &session, nil
}

// List returns sessions matching the filter along with a total count.
func (r *SessionRepository) List(ctx context.Context, filter models.SessionFilter) ([]models.ClassSession, int, error) {
	base := "FROM class_sessions WHERE 1=1"
	var conditions []string
	var args []interface{}

	if filter.BranchID != "" {
		conditions = append(conditions, fmt.Sprintf("branch_id = $%d", len(args)+1))
		args = append(args, filter.BranchID)
	}
	if filter.TeacherID != "" {
		conditions = append(conditions, fmt.Sprintf("teacher_id = $%d", len(args)+1))
		args = append(args, filter.TeacherID)
	}
	if filter.StudentID != "" {
		conditions = append(conditions, fmt.Sprintf("student_id = $%d", len(args)+1))
		args = append(args, filter.StudentID)
	}
	if filter.BoothID != "" {
		conditions = append(conditions, fmt.Sprintf("booth_id = $%d", len(args)+1))
		args = append(args, filter.BoothID)
	}
	if filter.DateFrom != nil {
		conditions = append(conditions, fmt.Sprintf("date >= $%d", len(args)+1))
		args = append(args, *filter.DateFrom)
	}
	if filter.DateTo != nil {
		conditions = append(conditions, fmt.Sprintf("date <= $%d", len(args)+1))
		args = append(args, *filter.DateTo)
	}
	if !filter.IncludeCancelled {
		conditions = append(conditions, "is_cancelled = FALSE")
	}

	if len(conditions) > 0 {
		base += " AND " + strings.Join(conditions, " AND ")
	}

	sortBy := "date"
	switch filter.SortBy {
	case "date", "start_minute", "created_at":
		sortBy = filter.SortBy
	}
	sortOrder := "ASC"
	if strings.EqualFold(filter.SortOrder, "desc") {
		sortOrder = "DESC"
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

	query := fmt.Sprintf("SELECT %s %s ORDER BY %s %s, start_minute ASC LIMIT %d OFFSET %d", sessionColumns, base, sortBy, sortOrder, size, offset)
	var sessions []models.ClassSession
	if err := r.db.SelectContext(ctx, &sessions, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list class sessions: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s", base)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count class sessions: %w", err)
	}

	return sessions, total, nil
}

// ListByBranchAndDate returns a branch's active sessions for one day ordered
// for timetable export.
func (r *SessionRepository) ListByBranchAndDate(ctx context.Context, branchID string, date time.Time) ([]models.ClassSession, error) {
	query := fmt.Sprintf(`SELECT %s FROM class_sessions
WHERE branch_id = $1 AND date = $2 AND is_cancelled = FALSE
ORDER BY start_minute ASC, booth_id ASC`, sessionColumns)
	var sessions []models.ClassSession
	if err := r.db.SelectContext(ctx, &sessions, query, branchID, date); err != nil {
		return nil, fmt.Errorf("list sessions for export: %w", err)
	}
	return sessions, nil
}

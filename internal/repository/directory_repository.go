package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/aozorajuku/scheduler-api/internal/models"
)

// DirectoryRepository reads the teacher/student/booth/branch tables owned by
// the directory service. All access here is read-only.
type DirectoryRepository struct {
	db *sqlx.DB
}

// NewDirectoryRepository constructs the repository.
func NewDirectoryRepository(db *sqlx.DB) *DirectoryRepository {
	return &DirectoryRepository{db: db}
}

func (r *DirectoryRepository) existsActive(ctx context.Context, table, id string) (bool, error) {
	query := fmt.Sprintf(`SELECT EXISTS (SELECT 1 FROM %s WHERE id = $1 AND active = TRUE)`, table)
	var exists bool
	if err := r.db.GetContext(ctx, &exists, query, id); err != nil {
		return false, fmt.Errorf("check %s exists: %w", table, err)
	}
	return exists, nil
}

// TeacherExists reports whether an active teacher with the ID exists.
func (r *DirectoryRepository) TeacherExists(ctx context.Context, id string) (bool, error) {
	return r.existsActive(ctx, "teachers", id)
}

// StudentExists reports whether an active student with the ID exists.
func (r *DirectoryRepository) StudentExists(ctx context.Context, id string) (bool, error) {
	return r.existsActive(ctx, "students", id)
}

// BoothExists reports whether an active booth with the ID exists.
func (r *DirectoryRepository) BoothExists(ctx context.Context, id string) (bool, error) {
	return r.existsActive(ctx, "booths", id)
}

// BranchExists reports whether an active branch with the ID exists.
func (r *DirectoryRepository) BranchExists(ctx context.Context, id string) (bool, error) {
	return r.existsActive(ctx, "branches", id)
}

// UserExists reports whether the ID names an active teacher or student.
// Availability declarations are keyed by user, not by role.
func (r *DirectoryRepository) UserExists(ctx context.Context, id string) (bool, error) {
	const query = `
SELECT EXISTS (SELECT 1 FROM teachers WHERE id = $1 AND active = TRUE)
    OR EXISTS (SELECT 1 FROM students WHERE id = $1 AND active = TRUE)`
	var exists bool
	if err := r.db.GetContext(ctx, &exists, query, id); err != nil {
		return false, fmt.Errorf("check user exists: %w", err)
	}
	return exists, nil
}

// FindTeacher fetches a teacher by ID.
func (r *DirectoryRepository) FindTeacher(ctx context.Context, id string) (*models.Teacher, error) {
	const query = `SELECT id, branch_id, full_name, email, active, created_at FROM teachers WHERE id = $1`
	var teacher models.Teacher
	if err := r.db.GetContext(ctx, &teacher, query, id); err != nil {
		return nil, err
	}
	return &teacher, nil
}

// FindStudent fetches a student by ID.
func (r *DirectoryRepository) FindStudent(ctx context.Context, id string) (*models.Student, error) {
	const query = `SELECT id, branch_id, full_name, grade, active, created_at FROM students WHERE id = $1`
	var student models.Student
	if err := r.db.GetContext(ctx, &student, query, id); err != nil {
		return nil, err
	}
	return &student, nil
}

// FindBooth fetches a booth by ID.
func (r *DirectoryRepository) FindBooth(ctx context.Context, id string) (*models.Booth, error) {
	const query = `SELECT id, branch_id, name, active FROM booths WHERE id = $1`
	var booth models.Booth
	if err := r.db.GetContext(ctx, &booth, query, id); err != nil {
		return nil, err
	}
	return &booth, nil
}

// FindBranch fetches a branch by ID.
func (r *DirectoryRepository) FindBranch(ctx context.Context, id string) (*models.Branch, error) {
	const query = `SELECT id, name, active FROM branches WHERE id = $1`
	var branch models.Branch
	if err := r.db.GetContext(ctx, &branch, query, id); err != nil {
		return nil, err
	}
	return &branch, nil
}

// NamesForSessions resolves display names for the sessions' teachers,
// students and booths in bulk. Missing ids simply stay absent from the maps.
func (r *DirectoryRepository) NamesForSessions(ctx context.Context, sessions []models.ClassSession) (teachers, students, booths map[string]string, err error) {
	teachers = make(map[string]string)
	students = make(map[string]string)
	booths = make(map[string]string)
	if len(sessions) == 0 {
		return teachers, students, booths, nil
	}

	teacherIDs := make([]string, 0, len(sessions))
	studentIDs := make([]string, 0, len(sessions))
	boothIDs := make([]string, 0, len(sessions))
	seen := make(map[string]struct{}, len(sessions)*3)
	add := func(dst *[]string, id string) {
		if _, ok := seen[id]; ok {
			return
		}
		seen[id] = struct{}{}
		*dst = append(*dst, id)
	}
	for _, s := range sessions {
		add(&teacherIDs, s.TeacherID)
		add(&studentIDs, s.StudentID)
		add(&boothIDs, s.BoothID)
	}

	type nameRow struct {
		ID   string `db:"id"`
		Name string `db:"name"`
	}
	fetch := func(query string, ids []string, into map[string]string) error {
		if len(ids) == 0 {
			return nil
		}
		expanded, args, err := sqlx.In(query, ids)
		if err != nil {
			return err
		}
		var rows []nameRow
		if err := r.db.SelectContext(ctx, &rows, r.db.Rebind(expanded), args...); err != nil {
			return err
		}
		for _, row := range rows {
			into[row.ID] = row.Name
		}
		return nil
	}

	if err := fetch(`SELECT id, full_name AS name FROM teachers WHERE id IN (?)`, teacherIDs, teachers); err != nil {
		return nil, nil, nil, fmt.Errorf("resolve teacher names: %w", err)
	}
	if err := fetch(`SELECT id, full_name AS name FROM students WHERE id IN (?)`, studentIDs, students); err != nil {
		return nil, nil, nil, fmt.Errorf("resolve student names: %w", err)
	}
	if err := fetch(`SELECT id, name FROM booths WHERE id IN (?)`, boothIDs, booths); err != nil {
		return nil, nil, nil, fmt.Errorf("resolve booth names: %w", err)
	}
	return teachers, students, booths, nil
}

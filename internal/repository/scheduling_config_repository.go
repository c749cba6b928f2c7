package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/aozorajuku/scheduler-api/internal/models"
)

// SchedulingConfigRepository persists the global policy row and the per-branch
// overrides. The global policy is a singleton keyed on id = 1.
type SchedulingConfigRepository struct {
	db *sqlx.DB
}

// NewSchedulingConfigRepository constructs the repository.
func NewSchedulingConfigRepository(db *sqlx.DB) *SchedulingConfigRepository {
	return &SchedulingConfigRepository{db: db}
}

// GetGlobal fetches the global policy. Returns sql.ErrNoRows when the row has
// never been written; callers fall back to hard-coded defaults.
func (r *SchedulingConfigRepository) GetGlobal(ctx context.Context) (*models.SchedulingPolicy, error) {
	const query = `
SELECT id, mark_teacher_unavailable, mark_student_unavailable, mark_teacher_wrong_time, mark_student_wrong_time,
       mark_no_shared_availability, allow_outside_availability_teacher, allow_outside_availability_student,
       generation_months, updated_at
FROM scheduling_policy WHERE id = 1`
	var policy models.SchedulingPolicy
	if err := r.db.GetContext(ctx, &policy, query); err != nil {
		return nil, err
	}
	return &policy, nil
}

// UpsertGlobal writes the global policy row.
func (r *SchedulingConfigRepository) UpsertGlobal(ctx context.Context, policy *models.SchedulingPolicy) error {
	if policy == nil {
		return fmt.Errorf("policy payload is nil")
	}
	policy.ID = 1
	policy.UpdatedAt = time.Now().UTC()

	const query = `
INSERT INTO scheduling_policy (id, mark_teacher_unavailable, mark_student_unavailable, mark_teacher_wrong_time, mark_student_wrong_time,
                               mark_no_shared_availability, allow_outside_availability_teacher, allow_outside_availability_student,
                               generation_months, updated_at)
VALUES (:id, :mark_teacher_unavailable, :mark_student_unavailable, :mark_teacher_wrong_time, :mark_student_wrong_time,
        :mark_no_shared_availability, :allow_outside_availability_teacher, :allow_outside_availability_student,
        :generation_months, :updated_at)
ON CONFLICT (id) DO UPDATE SET
	mark_teacher_unavailable = EXCLUDED.mark_teacher_unavailable,
	mark_student_unavailable = EXCLUDED.mark_student_unavailable,
	mark_teacher_wrong_time = EXCLUDED.mark_teacher_wrong_time,
	mark_student_wrong_time = EXCLUDED.mark_student_wrong_time,
	mark_no_shared_availability = EXCLUDED.mark_no_shared_availability,
	allow_outside_availability_teacher = EXCLUDED.allow_outside_availability_teacher,
	allow_outside_availability_student = EXCLUDED.allow_outside_availability_student,
	generation_months = EXCLUDED.generation_months,
	updated_at = EXCLUDED.updated_at`
	if _, err := sqlx.NamedExecContext(ctx, r.db, query, policy); err != nil {
		return fmt.Errorf("upsert global scheduling policy: %w", err)
	}
	return nil
}

// GetBranch fetches a branch override. Returns sql.ErrNoRows when the branch
// has no override row.
func (r *SchedulingConfigRepository) GetBranch(ctx context.Context, branchID string) (*models.BranchSchedulingPolicy, error) {
	const query = `
SELECT branch_id, mark_teacher_unavailable, mark_student_unavailable, mark_teacher_wrong_time, mark_student_wrong_time,
       mark_no_shared_availability, allow_outside_availability_teacher, allow_outside_availability_student,
       generation_months, updated_at
FROM branch_scheduling_policy WHERE branch_id = $1`
	var policy models.BranchSchedulingPolicy
	if err := r.db.GetContext(ctx, &policy, query, branchID); err != nil {
		return nil, err
	}
	return &policy, nil
}

// UpsertBranch writes a branch override row in full. The service merges the
// patch into the existing row first, so NULL columns here really mean inherit.
func (r *SchedulingConfigRepository) UpsertBranch(ctx context.Context, policy *models.BranchSchedulingPolicy) error {
	if policy == nil {
		return fmt.Errorf("branch policy payload is nil")
	}
	policy.UpdatedAt = time.Now().UTC()

	const query = `
INSERT INTO branch_scheduling_policy (branch_id, mark_teacher_unavailable, mark_student_unavailable, mark_teacher_wrong_time, mark_student_wrong_time,
                                      mark_no_shared_availability, allow_outside_availability_teacher, allow_outside_availability_student,
                                      generation_months, updated_at)
VALUES (:branch_id, :mark_teacher_unavailable, :mark_student_unavailable, :mark_teacher_wrong_time, :mark_student_wrong_time,
        :mark_no_shared_availability, :allow_outside_availability_teacher, :allow_outside_availability_student,
        :generation_months, :updated_at)
ON CONFLICT (branch_id) DO UPDATE SET
	mark_teacher_unavailable = EXCLUDED.mark_teacher_unavailable,
	mark_student_unavailable = EXCLUDED.mark_student_unavailable,
	mark_teacher_wrong_time = EXCLUDED.mark_teacher_wrong_time,
	mark_student_wrong_time = EXCLUDED.mark_student_wrong_time,
	mark_no_shared_availability = EXCLUDED.mark_no_shared_availability,
	allow_outside_availability_teacher = EXCLUDED.allow_outside_availability_teacher,
	allow_outside_availability_student = EXCLUDED.allow_outside_availability_student,
	generation_months = EXCLUDED.generation_months,
	updated_at = EXCLUDED.updated_at`
	if _, err := sqlx.NamedExecContext(ctx, r.db, query, policy); err != nil {
		return fmt.Errorf("upsert branch scheduling policy: %w", err)
	}
	return nil
}

// DeleteBranch removes a branch override so the branch inherits the global
// policy entirely. Missing rows are not an error.
func (r *SchedulingConfigRepository) DeleteBranch(ctx context.Context, branchID string) error {
	const query = `DELETE FROM branch_scheduling_policy WHERE branch_id = $1`
	if _, err := r.db.ExecContext(ctx, query, branchID); err != nil {
		return fmt.Errorf("delete branch scheduling policy: %w", err)
	}
	return nil
}

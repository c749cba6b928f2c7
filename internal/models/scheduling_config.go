package models

import "time"

// SchedulingPolicy is the global scheduling policy. A single row; every field
// is authoritative once created.
type SchedulingPolicy struct {
	ID                              int       `db:"id" json:"-"`
	MarkTeacherUnavailable          bool      `db:"mark_teacher_unavailable" json:"mark_teacher_unavailable"`
	MarkStudentUnavailable          bool      `db:"mark_student_unavailable" json:"mark_student_unavailable"`
	MarkTeacherWrongTime            bool      `db:"mark_teacher_wrong_time" json:"mark_teacher_wrong_time"`
	MarkStudentWrongTime            bool      `db:"mark_student_wrong_time" json:"mark_student_wrong_time"`
	MarkNoSharedAvailability        bool      `db:"mark_no_shared_availability" json:"mark_no_shared_availability"`
	AllowOutsideAvailabilityTeacher bool      `db:"allow_outside_availability_teacher" json:"allow_outside_availability_teacher"`
	AllowOutsideAvailabilityStudent bool      `db:"allow_outside_availability_student" json:"allow_outside_availability_student"`
	GenerationMonths                int       `db:"generation_months" json:"generation_months"`
	UpdatedAt                       time.Time `db:"updated_at" json:"updated_at"`
}

// BranchSchedulingPolicy overrides the global policy per branch. Nil means
// "inherit from global" and is distinct from an explicit false/zero.
type BranchSchedulingPolicy struct {
	BranchID                        string    `db:"branch_id" json:"branch_id"`
	MarkTeacherUnavailable          *bool     `db:"mark_teacher_unavailable" json:"mark_teacher_unavailable"`
	MarkStudentUnavailable          *bool     `db:"mark_student_unavailable" json:"mark_student_unavailable"`
	MarkTeacherWrongTime            *bool     `db:"mark_teacher_wrong_time" json:"mark_teacher_wrong_time"`
	MarkStudentWrongTime            *bool     `db:"mark_student_wrong_time" json:"mark_student_wrong_time"`
	MarkNoSharedAvailability        *bool     `db:"mark_no_shared_availability" json:"mark_no_shared_availability"`
	AllowOutsideAvailabilityTeacher *bool     `db:"allow_outside_availability_teacher" json:"allow_outside_availability_teacher"`
	AllowOutsideAvailabilityStudent *bool     `db:"allow_outside_availability_student" json:"allow_outside_availability_student"`
	GenerationMonths                *int      `db:"generation_months" json:"generation_months"`
	UpdatedAt                       time.Time `db:"updated_at" json:"updated_at"`
}

// EffectiveSchedulingPolicy is the merged view used to gate soft conflicts.
type EffectiveSchedulingPolicy struct {
	BranchID                        *string `json:"branch_id,omitempty"`
	MarkTeacherUnavailable          bool    `json:"mark_teacher_unavailable"`
	MarkStudentUnavailable          bool    `json:"mark_student_unavailable"`
	MarkTeacherWrongTime            bool    `json:"mark_teacher_wrong_time"`
	MarkStudentWrongTime            bool    `json:"mark_student_wrong_time"`
	MarkNoSharedAvailability        bool    `json:"mark_no_shared_availability"`
	AllowOutsideAvailabilityTeacher bool    `json:"allow_outside_availability_teacher"`
	AllowOutsideAvailabilityStudent bool    `json:"allow_outside_availability_student"`
	GenerationMonths                int     `json:"generation_months"`
}

// DefaultSchedulingPolicy returns the hard-coded fallbacks applied when
// neither a global row nor a branch override provides a value: every soft
// conflict blocks, nothing is allowed outside availability and generation
// covers one month.
func DefaultSchedulingPolicy() EffectiveSchedulingPolicy {
	return EffectiveSchedulingPolicy{
		MarkTeacherUnavailable:          true,
		MarkStudentUnavailable:          true,
		MarkTeacherWrongTime:            true,
		MarkStudentWrongTime:            true,
		MarkNoSharedAvailability:        true,
		AllowOutsideAvailabilityTeacher: false,
		AllowOutsideAvailabilityStudent: false,
		GenerationMonths:                1,
	}
}

// Blocks reports whether the given soft conflict type blocks creation under
// this policy. Hard conflicts are not consulted here; they always block.
func (p EffectiveSchedulingPolicy) Blocks(t ConflictType) bool {
	switch t {
	case ConflictTeacherUnavailable:
		return p.MarkTeacherUnavailable && !p.AllowOutsideAvailabilityTeacher
	case ConflictStudentUnavailable:
		return p.MarkStudentUnavailable && !p.AllowOutsideAvailabilityStudent
	case ConflictTeacherWrongTime:
		return p.MarkTeacherWrongTime && !p.AllowOutsideAvailabilityTeacher
	case ConflictStudentWrongTime:
		return p.MarkStudentWrongTime && !p.AllowOutsideAvailabilityStudent
	case ConflictNoSharedAvailability:
		return p.MarkNoSharedAvailability
	default:
		return false
	}
}

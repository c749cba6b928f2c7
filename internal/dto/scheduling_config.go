package dto

// UpdateGlobalPolicyRequest replaces the global scheduling policy. Every
// field is required; the global row is never partially defined.
type UpdateGlobalPolicyRequest struct {
	MarkTeacherUnavailable          *bool `json:"mark_teacher_unavailable" validate:"required"`
	MarkStudentUnavailable          *bool `json:"mark_student_unavailable" validate:"required"`
	MarkTeacherWrongTime            *bool `json:"mark_teacher_wrong_time" validate:"required"`
	MarkStudentWrongTime            *bool `json:"mark_student_wrong_time" validate:"required"`
	MarkNoSharedAvailability        *bool `json:"mark_no_shared_availability" validate:"required"`
	AllowOutsideAvailabilityTeacher *bool `json:"allow_outside_availability_teacher" validate:"required"`
	AllowOutsideAvailabilityStudent *bool `json:"allow_outside_availability_student" validate:"required"`
	GenerationMonths                *int  `json:"generation_months" validate:"required,min=1,max=24"`
}

// UpdateBranchPolicyRequest patches a branch override. Present fields are
// set, names listed in Clear revert to "inherit from global", and absent
// fields are left untouched. The three states never collapse into each other.
type UpdateBranchPolicyRequest struct {
	MarkTeacherUnavailable          *bool    `json:"mark_teacher_unavailable"`
	MarkStudentUnavailable          *bool    `json:"mark_student_unavailable"`
	MarkTeacherWrongTime            *bool    `json:"mark_teacher_wrong_time"`
	MarkStudentWrongTime            *bool    `json:"mark_student_wrong_time"`
	MarkNoSharedAvailability        *bool    `json:"mark_no_shared_availability"`
	AllowOutsideAvailabilityTeacher *bool    `json:"allow_outside_availability_teacher"`
	AllowOutsideAvailabilityStudent *bool    `json:"allow_outside_availability_student"`
	GenerationMonths                *int     `json:"generation_months" validate:"omitempty,min=1,max=24"`
	Clear                           []string `json:"clear" validate:"omitempty,dive,oneof=mark_teacher_unavailable mark_student_unavailable mark_teacher_wrong_time mark_student_wrong_time mark_no_shared_availability allow_outside_availability_teacher allow_outside_availability_student generation_months"`
}

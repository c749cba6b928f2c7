package dto

import "github.com/aozorajuku/scheduler-api/internal/models"

// SharedAvailabilityRequest asks whether a teacher and a student are both
// free for a candidate range on one date.
type SharedAvailabilityRequest struct {
	TeacherID string `json:"teacher_id" validate:"required"`
	StudentID string `json:"student_id" validate:"required"`
	Date      string `json:"date" validate:"required"`
	StartTime string `json:"start_time" validate:"required"`
	EndTime   string `json:"end_time" validate:"required"`
}

// CheckConflictsRequest previews the full conflict report for a candidate
// session. Party and booth ids are optional; the soft-conflict classifier
// runs only when both parties are present.
type CheckConflictsRequest struct {
	BranchID         string  `json:"branch_id" validate:"required"`
	TeacherID        string  `json:"teacher_id"`
	StudentID        string  `json:"student_id"`
	BoothID          string  `json:"booth_id"`
	Date             string  `json:"date" validate:"required"`
	StartTime        string  `json:"start_time" validate:"required"`
	EndTime          string  `json:"end_time" validate:"required"`
	ExcludeSessionID *string `json:"exclude_session_id"`
}

// ConflictReport is the combined preview result. Allowed reflects what a
// create call with identical parameters would decide (without force).
type ConflictReport struct {
	Findings []models.ConflictFinding         `json:"findings"`
	Shared   *models.SharedAvailabilityResult `json:"shared,omitempty"`
	Policy   models.EffectiveSchedulingPolicy `json:"policy"`
	Blocking bool                             `json:"blocking"`
	Allowed  bool                             `json:"allowed"`
}

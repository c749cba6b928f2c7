package dto

import (
	"time"

	"github.com/aozorajuku/scheduler-api/internal/models"
)

// CreateSessionRequest books a lesson. Force bypasses soft-conflict blocking
// only; hard conflicts always reject the request.
type CreateSessionRequest struct {
	BranchID  string  `json:"branch_id" validate:"required"`
	TeacherID string  `json:"teacher_id" validate:"required"`
	StudentID string  `json:"student_id" validate:"required"`
	BoothID   string  `json:"booth_id" validate:"required"`
	Date      string  `json:"date" validate:"required"`
	StartTime string  `json:"start_time" validate:"required"`
	EndTime   string  `json:"end_time" validate:"required"`
	Subject   *string `json:"subject"`
	Notes     *string `json:"notes"`
	Force     bool    `json:"force"`
}

// RescheduleSessionRequest moves an existing session. The session being moved
// is excluded from its own hard-conflict scan.
type RescheduleSessionRequest struct {
	BoothID   string  `json:"booth_id" validate:"required"`
	Date      string  `json:"date" validate:"required"`
	StartTime string  `json:"start_time" validate:"required"`
	EndTime   string  `json:"end_time" validate:"required"`
	Notes     *string `json:"notes"`
	Force     bool    `json:"force"`
}

// SessionResult pairs the stored session with the findings that were
// evaluated on the way in, including non-blocking informational ones.
type SessionResult struct {
	Session  models.ClassSession      `json:"session"`
	Findings []models.ConflictFinding `json:"findings,omitempty"`
}

// GenerateSessionsRequest expands a weekly lesson template into concrete
// sessions over the branch's generation horizon.
type GenerateSessionsRequest struct {
	BranchID  string  `json:"branch_id" validate:"required"`
	TeacherID string  `json:"teacher_id" validate:"required"`
	StudentID string  `json:"student_id" validate:"required"`
	BoothID   string  `json:"booth_id" validate:"required"`
	DayOfWeek int     `json:"day_of_week" validate:"min=0,max=6"`
	StartTime string  `json:"start_time" validate:"required"`
	EndTime   string  `json:"end_time" validate:"required"`
	Subject   *string `json:"subject"`
	FromDate  *string `json:"from_date"`
}

// SkippedDate explains why one generated date was not booked.
type SkippedDate struct {
	Date    time.Time             `json:"date"`
	Reasons []models.ConflictType `json:"reasons"`
}

// GenerationSummary reports the outcome of one generation run.
type GenerationSummary struct {
	Requested int           `json:"requested"`
	Created   int           `json:"created"`
	Skipped   []SkippedDate `json:"skipped"`
}

// EnqueuedGeneration acknowledges an asynchronous generation request.
type EnqueuedGeneration struct {
	JobID string `json:"job_id"`
}

package models

import "time"

// ClassSession is a scheduled lesson binding a teacher, a student and a booth.
// Sessions are soft-cancelled, never deleted, so past conflicts stay auditable.
type ClassSession struct {
	ID          string     `db:"id" json:"id"`
	BranchID    string     `db:"branch_id" json:"branch_id"`
	TeacherID   string     `db:"teacher_id" json:"teacher_id"`
	StudentID   string     `db:"student_id" json:"student_id"`
	BoothID     string     `db:"booth_id" json:"booth_id"`
	Date        time.Time  `db:"date" json:"date"`
	StartMinute int        `db:"start_minute" json:"start_minute"`
	EndMinute   int        `db:"end_minute" json:"end_minute"`
	Subject     *string    `db:"subject" json:"subject,omitempty"`
	Notes       *string    `db:"notes" json:"notes,omitempty"`
	IsCancelled bool       `db:"is_cancelled" json:"is_cancelled"`
	CancelledAt *time.Time `db:"cancelled_at" json:"cancelled_at,omitempty"`
	CreatedAt   time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time  `db:"updated_at" json:"updated_at"`
}

// SessionFilter narrows session listings.
type SessionFilter struct {
	BranchID         string
	TeacherID        string
	StudentID        string
	BoothID          string
	DateFrom         *time.Time
	DateTo           *time.Time
	IncludeCancelled bool
	Page             int
	PageSize         int
	SortBy           string
	SortOrder        string
}

// SessionCandidate describes a prospective session for conflict scanning.
// Party and booth ids are optional so partially specified previews still work.
type SessionCandidate struct {
	BranchID    string
	TeacherID   string
	StudentID   string
	BoothID     string
	Date        time.Time
	StartMinute int
	EndMinute   int
}

package models

import "time"

// Directory entities are owned by the user/branch management service; this
// service only reads them for identity checks and display names.

// Teacher is a tutoring staff member.
type Teacher struct {
	ID        string    `db:"id" json:"id"`
	BranchID  string    `db:"branch_id" json:"branch_id"`
	FullName  string    `db:"full_name" json:"full_name"`
	Email     string    `db:"email" json:"email"`
	Active    bool      `db:"active" json:"active"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// Student is an enrolled pupil.
type Student struct {
	ID        string    `db:"id" json:"id"`
	BranchID  string    `db:"branch_id" json:"branch_id"`
	FullName  string    `db:"full_name" json:"full_name"`
	Grade     *string   `db:"grade" json:"grade,omitempty"`
	Active    bool      `db:"active" json:"active"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// Booth is a physical seat/partition inside a branch.
type Booth struct {
	ID       string `db:"id" json:"id"`
	BranchID string `db:"branch_id" json:"branch_id"`
	Name     string `db:"name" json:"name"`
	Active   bool   `db:"active" json:"active"`
}

// Branch is one school location.
type Branch struct {
	ID     string `db:"id" json:"id"`
	Name   string `db:"name" json:"name"`
	Active bool   `db:"active" json:"active"`
}

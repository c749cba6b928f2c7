package models

import "time"

// AvailabilityType distinguishes recurring declarations from date-specific ones.
type AvailabilityType string

const (
	// AvailabilityRegular is a weekly recurring declaration keyed by day of week.
	AvailabilityRegular AvailabilityType = "REGULAR"
	// AvailabilityException is a one-off declaration that replaces the regular
	// baseline for its date.
	AvailabilityException AvailabilityType = "EXCEPTION"
	// AvailabilityAbsence is a one-off blackout subtracted from whatever is
	// otherwise available on its date.
	AvailabilityAbsence AvailabilityType = "ABSENCE"
)

// Opposite returns the declaration type the ladder engine trims against.
// REGULAR declarations are never touched by the ladder.
func (t AvailabilityType) Opposite() (AvailabilityType, bool) {
	switch t {
	case AvailabilityException:
		return AvailabilityAbsence, true
	case AvailabilityAbsence:
		return AvailabilityException, true
	default:
		return "", false
	}
}

// AvailabilityStatus is the review state of a declaration. Only PENDING and
// APPROVED rows participate in resolution and ladder adjustment.
type AvailabilityStatus string

const (
	AvailabilityPending  AvailabilityStatus = "PENDING"
	AvailabilityApproved AvailabilityStatus = "APPROVED"
	AvailabilityRejected AvailabilityStatus = "REJECTED"
)

// AvailabilityDeclaration is one availability row for a user. Exactly one of
// DayOfWeek (REGULAR) and Date (EXCEPTION/ABSENCE) is set. When FullDay is
// true the minute columns are null; when false they are either both set (a
// bounded window) or both null (an empty declaration).
type AvailabilityDeclaration struct {
	ID          string             `db:"id" json:"id"`
	UserID      string             `db:"user_id" json:"user_id"`
	Type        AvailabilityType   `db:"type" json:"type"`
	DayOfWeek   *int               `db:"day_of_week" json:"day_of_week,omitempty"`
	Date        *time.Time         `db:"date" json:"date,omitempty"`
	FullDay     bool               `db:"full_day" json:"full_day"`
	StartMinute *int               `db:"start_minute" json:"start_minute,omitempty"`
	EndMinute   *int               `db:"end_minute" json:"end_minute,omitempty"`
	Status      AvailabilityStatus `db:"status" json:"status"`
	CreatedAt   time.Time          `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time          `db:"updated_at" json:"updated_at"`
}

// Empty reports whether the declaration carries no usable window.
func (d *AvailabilityDeclaration) Empty() bool {
	return !d.FullDay && (d.StartMinute == nil || d.EndMinute == nil)
}

// TimeWindow is a resolved half-open availability window in minutes from
// midnight. A full day resolves to [0, MinutesPerDay).
type TimeWindow struct {
	StartMinute int `json:"start_minute"`
	EndMinute   int `json:"end_minute"`
}

// ResolvedAvailability is the effective availability of one user on one date.
// The boolean flags let callers distinguish "never declared" from "declared
// but narrower than requested".
type ResolvedAvailability struct {
	UserID        string       `json:"user_id"`
	Date          time.Time    `json:"date"`
	Windows       []TimeWindow `json:"windows"`
	HasRegular    bool         `json:"has_regular"`
	HasExceptions bool         `json:"has_exceptions"`
	HasAbsence    bool         `json:"has_absence"`
}

// AvailabilityFilter narrows declaration listings.
type AvailabilityFilter struct {
	UserID   string
	Type     AvailabilityType
	DateFrom *time.Time
	DateTo   *time.Time
	Page     int
	PageSize int
}

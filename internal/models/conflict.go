package models

import "time"

// ConflictType classifies a scheduling finding.
type ConflictType string

const (
	// Hard conflicts: double-bookings on one of the three conflict keys.
	ConflictTeacherBooked ConflictType = "TEACHER_CONFLICT"
	ConflictStudentBooked ConflictType = "STUDENT_CONFLICT"
	ConflictBoothBooked   ConflictType = "BOOTH_CONFLICT"

	// Soft conflicts: availability mismatches whose blocking behaviour is
	// controlled by the effective scheduling config.
	ConflictTeacherUnavailable   ConflictType = "TEACHER_UNAVAILABLE"
	ConflictStudentUnavailable   ConflictType = "STUDENT_UNAVAILABLE"
	ConflictTeacherWrongTime     ConflictType = "TEACHER_WRONG_TIME"
	ConflictStudentWrongTime     ConflictType = "STUDENT_WRONG_TIME"
	ConflictNoSharedAvailability ConflictType = "NO_SHARED_AVAILABILITY"
)

// Hard reports whether the finding is a double-booking. Hard findings are
// always reported and never suppressed by configuration.
func (t ConflictType) Hard() bool {
	switch t {
	case ConflictTeacherBooked, ConflictStudentBooked, ConflictBoothBooked:
		return true
	default:
		return false
	}
}

// ConflictFinding is one entry of a conflict report. Ephemeral, never stored.
type ConflictFinding struct {
	Type      ConflictType `json:"type"`
	Date      time.Time    `json:"date"`
	UserID    *string      `json:"user_id,omitempty"`
	SessionID *string      `json:"session_id,omitempty"`
	Windows   []TimeWindow `json:"windows,omitempty"`
	Blocking  bool         `json:"blocking"`
	Message   string       `json:"message"`
}

// PartyAvailability is the per-party half of a shared-availability verdict.
type PartyAvailability struct {
	UserID       string        `json:"user_id"`
	Available    bool          `json:"available"`
	ConflictType *ConflictType `json:"conflict_type,omitempty"`
	Windows      []TimeWindow  `json:"windows"`
	HasRegular   bool          `json:"has_regular"`
	HasException bool          `json:"has_exception"`
	HasAbsence   bool          `json:"has_absence"`
}

// SharedAvailabilityResult is the soft-conflict verdict for a candidate range.
type SharedAvailabilityResult struct {
	Available    bool              `json:"available"`
	Teacher      PartyAvailability `json:"teacher"`
	Student      PartyAvailability `json:"student"`
	Intersection []TimeWindow      `json:"intersection"`
	Findings     []ConflictFinding `json:"findings"`
}

package models

// Pagination describes list slicing metadata in responses.
type Pagination struct {
	Page       int `json:"page"`
	PageSize   int `json:"page_size"`
	TotalCount int `json:"total_count"`
}

// MinutesPerDay bounds every time-of-day value in the system. Windows are
// half-open minute ranges [start, end) with 0 <= start < end <= MinutesPerDay;
// cross-midnight ranges are rejected at validation.
const MinutesPerDay = 24 * 60

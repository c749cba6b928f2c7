package dto

import "github.com/aozorajuku/scheduler-api/internal/models"

// CreateAvailabilityRequest declares availability for one user. Dates are
// civil dates formatted YYYY-MM-DD, times are HH:MM wall-clock values.
type CreateAvailabilityRequest struct {
	UserID    string  `json:"user_id" validate:"required"`
	Type      string  `json:"type" validate:"required,oneof=REGULAR EXCEPTION ABSENCE"`
	DayOfWeek *int    `json:"day_of_week" validate:"omitempty,min=0,max=6"`
	Date      *string `json:"date"`
	FullDay   bool    `json:"full_day"`
	StartTime *string `json:"start_time"`
	EndTime   *string `json:"end_time"`
	Status    string  `json:"status" validate:"omitempty,oneof=PENDING APPROVED REJECTED"`
}

// InsertAvailabilityResponse reports the stored declaration and the ladder
// adjustments applied to opposite-type rows.
type InsertAvailabilityResponse struct {
	Stored      models.AvailabilityDeclaration `json:"stored"`
	AdjustedIDs []string                       `json:"adjusted_ids"`
	DeletedIDs  []string                       `json:"deleted_ids"`
}

// BatchAvailabilityRequest imports multiple declarations. Each item is
// processed in its own transaction; Overwrite drops same-type rows for the
// item's user/date (or weekday) before inserting.
type BatchAvailabilityRequest struct {
	Items     []CreateAvailabilityRequest `json:"items" validate:"required,min=1,max=500,dive"`
	Overwrite bool                        `json:"overwrite"`
}

// BatchAvailabilityItemResult is the per-item outcome of a batch import.
type BatchAvailabilityItemResult struct {
	Index       int                             `json:"index"`
	Stored      *models.AvailabilityDeclaration `json:"stored,omitempty"`
	AdjustedIDs []string                        `json:"adjusted_ids,omitempty"`
	DeletedIDs  []string                        `json:"deleted_ids,omitempty"`
	Error       string                          `json:"error,omitempty"`
}

// BatchAvailabilityResponse aggregates per-item results.
type BatchAvailabilityResponse struct {
	Items     []BatchAvailabilityItemResult `json:"items"`
	Succeeded int                           `json:"succeeded"`
	Failed    int                           `json:"failed"`
}

package handler

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/aozorajuku/scheduler-api/internal/service"
	appErrors "github.com/aozorajuku/scheduler-api/pkg/errors"
	"github.com/aozorajuku/scheduler-api/pkg/response"
)

// ExportHandler serves timetable downloads.
type ExportHandler struct {
	exports *service.ExportService
}

// NewExportHandler constructs a new ExportHandler.
func NewExportHandler(exports *service.ExportService) *ExportHandler {
	return &ExportHandler{exports: exports}
}

func exportDate(c *gin.Context) (time.Time, bool) {
	date, err := time.Parse("2006-01-02", c.Query("date"))
	if err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "date must be formatted YYYY-MM-DD"))
		return time.Time{}, false
	}
	return date, true
}

// TimetableCSV godoc
// @Summary Download a branch's day timetable as CSV
// @Tags Exports
// @Produce text/csv
// @Param branchId path string true "Branch ID"
// @Param date query string true "Date (YYYY-MM-DD)"
// @Success 200 {file} file
// @Router /exports/branches/{branchId}/timetable.csv [get]
func (h *ExportHandler) TimetableCSV(c *gin.Context) {
	date, ok := exportDate(c)
	if !ok {
		return
	}
	payload, filename, err := h.exports.DayTimetableCSV(c.Request.Context(), c.Param("branchId"), date)
	if err != nil {
		response.Error(c, err)
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	c.Data(http.StatusOK, "text/csv", payload)
}

// TimetablePDF godoc
// @Summary Download a branch's day timetable as PDF
// @Tags Exports
// @Produce application/pdf
// @Param branchId path string true "Branch ID"
// @Param date query string true "Date (YYYY-MM-DD)"
// @Success 200 {file} file
// @Router /exports/branches/{branchId}/timetable.pdf [get]
func (h *ExportHandler) TimetablePDF(c *gin.Context) {
	date, ok := exportDate(c)
	if !ok {
		return
	}
	payload, filename, err := h.exports.DayTimetablePDF(c.Request.Context(), c.Param("branchId"), date)
	if err != nil {
		response.Error(c, err)
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	c.Data(http.StatusOK, "application/pdf", payload)
}

package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/aozorajuku/scheduler-api/internal/dto"
	"github.com/aozorajuku/scheduler-api/internal/service"
	appErrors "github.com/aozorajuku/scheduler-api/pkg/errors"
	"github.com/aozorajuku/scheduler-api/pkg/response"
)

// ConflictHandler wires the conflict classifier to HTTP routes.
type ConflictHandler struct {
	conflicts *service.ConflictService
}

// NewConflictHandler constructs a new ConflictHandler.
func NewConflictHandler(conflicts *service.ConflictService) *ConflictHandler {
	return &ConflictHandler{conflicts: conflicts}
}

// SharedAvailability godoc
// @Summary Check whether teacher and student share availability for a range
// @Tags Conflicts
// @Accept json
// @Produce json
// @Param request body dto.SharedAvailabilityRequest true "Candidate range"
// @Success 200 {object} response.Envelope
// @Router /conflicts/shared-availability [post]
func (h *ConflictHandler) SharedAvailability(c *gin.Context) {
	var req dto.SharedAvailabilityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid request body"))
		return
	}
	result, err := h.conflicts.SharedAvailability(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}

// Check godoc
// @Summary Preview the full conflict report for a candidate session
// @Description Runs the hard double-booking scan and the soft classifier under the branch's effective policy.
// @Tags Conflicts
// @Accept json
// @Produce json
// @Param request body dto.CheckConflictsRequest true "Candidate session"
// @Success 200 {object} response.Envelope
// @Router /conflicts/check [post]
func (h *ConflictHandler) Check(c *gin.Context) {
	var req dto.CheckConflictsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid request body"))
		return
	}
	report, err := h.conflicts.Check(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, report, nil)
}

package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/aozorajuku/scheduler-api/internal/dto"
	"github.com/aozorajuku/scheduler-api/internal/models"
	"github.com/aozorajuku/scheduler-api/internal/service"
	appErrors "github.com/aozorajuku/scheduler-api/pkg/errors"
	"github.com/aozorajuku/scheduler-api/pkg/response"
)

// AvailabilityHandler wires the availability service to HTTP routes.
type AvailabilityHandler struct {
	availability *service.AvailabilityService
}

// NewAvailabilityHandler constructs a new AvailabilityHandler.
func NewAvailabilityHandler(availability *service.AvailabilityService) *AvailabilityHandler {
	return &AvailabilityHandler{availability: availability}
}

// Declare godoc
// @Summary Declare availability for a user
// @Description Stores a declaration and trims opposite-type rows on the same date.
// @Tags Availability
// @Accept json
// @Produce json
// @Param request body dto.CreateAvailabilityRequest true "Declaration"
// @Success 201 {object} response.Envelope
// @Router /availability [post]
func (h *AvailabilityHandler) Declare(c *gin.Context) {
	var req dto.CreateAvailabilityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid request body"))
		return
	}
	result, err := h.availability.Declare(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, result)
}

// Batch godoc
// @Summary Import availability declarations in bulk
// @Description Processes each item independently; failed items do not abort the batch.
// @Tags Availability
// @Accept json
// @Produce json
// @Param request body dto.BatchAvailabilityRequest true "Batch payload"
// @Success 200 {object} response.Envelope
// @Router /availability/batch [post]
func (h *AvailabilityHandler) Batch(c *gin.Context) {
	var req dto.BatchAvailabilityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid request body"))
		return
	}
	result, err := h.availability.BatchImport(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}

// Resolve godoc
// @Summary Resolve effective availability for one user and date
// @Tags Availability
// @Produce json
// @Param user_id query string true "User ID"
// @Param date query string true "Date (YYYY-MM-DD)"
// @Success 200 {object} response.Envelope
// @Router /availability/resolve [get]
func (h *AvailabilityHandler) Resolve(c *gin.Context) {
	userID := c.Query("user_id")
	date, err := time.Parse("2006-01-02", c.Query("date"))
	if err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "date must be formatted YYYY-MM-DD"))
		return
	}
	resolved, err := h.availability.Resolve(c.Request.Context(), userID, date)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, resolved, nil)
}

// List godoc
// @Summary List availability declarations
// @Tags Availability
// @Produce json
// @Param user_id query string false "Filter by user"
// @Param type query string false "Filter by type (REGULAR/EXCEPTION/ABSENCE)"
// @Param from query string false "Date lower bound (YYYY-MM-DD)"
// @Param to query string false "Date upper bound (YYYY-MM-DD)"
// @Param page query int false "Page number"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /availability [get]
func (h *AvailabilityHandler) List(c *gin.Context) {
	filter := models.AvailabilityFilter{
		UserID: c.Query("user_id"),
		Type:   models.AvailabilityType(c.Query("type")),
	}
	if raw := c.Query("from"); raw != "" {
		if from, err := time.Parse("2006-01-02", raw); err == nil {
			filter.DateFrom = &from
		}
	}
	if raw := c.Query("to"); raw != "" {
		if to, err := time.Parse("2006-01-02", raw); err == nil {
			filter.DateTo = &to
		}
	}
	if page, err := strconv.Atoi(c.DefaultQuery("page", "1")); err == nil {
		filter.Page = page
	}
	if size, err := strconv.Atoi(c.DefaultQuery("limit", "50")); err == nil {
		filter.PageSize = size
	}

	decls, pagination, err := h.availability.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, decls, pagination)
}

// Delete godoc
// @Summary Delete an availability declaration
// @Tags Availability
// @Param id path string true "Declaration ID"
// @Success 204
// @Router /availability/{id} [delete]
func (h *AvailabilityHandler) Delete(c *gin.Context) {
	if err := h.availability.Delete(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

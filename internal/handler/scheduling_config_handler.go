package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/aozorajuku/scheduler-api/internal/dto"
	"github.com/aozorajuku/scheduler-api/internal/service"
	appErrors "github.com/aozorajuku/scheduler-api/pkg/errors"
	"github.com/aozorajuku/scheduler-api/pkg/response"
)

// SchedulingConfigHandler wires policy management to HTTP routes.
type SchedulingConfigHandler struct {
	policies *service.SchedulingConfigService
}

// NewSchedulingConfigHandler constructs a new SchedulingConfigHandler.
func NewSchedulingConfigHandler(policies *service.SchedulingConfigService) *SchedulingConfigHandler {
	return &SchedulingConfigHandler{policies: policies}
}

// GetGlobal godoc
// @Summary Get the global scheduling policy
// @Tags SchedulingConfig
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /scheduling-config/global [get]
func (h *SchedulingConfigHandler) GetGlobal(c *gin.Context) {
	policy, err := h.policies.GetGlobal(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, policy, nil)
}

// UpdateGlobal godoc
// @Summary Replace the global scheduling policy
// @Tags SchedulingConfig
// @Accept json
// @Produce json
// @Param request body dto.UpdateGlobalPolicyRequest true "Full policy"
// @Success 200 {object} response.Envelope
// @Router /scheduling-config/global [put]
func (h *SchedulingConfigHandler) UpdateGlobal(c *gin.Context) {
	var req dto.UpdateGlobalPolicyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid request body"))
		return
	}
	policy, err := h.policies.UpdateGlobal(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, policy, nil)
}

// GetBranch godoc
// @Summary Get a branch's policy override
// @Description Branches without an override return an all-inherit row.
// @Tags SchedulingConfig
// @Produce json
// @Param branchId path string true "Branch ID"
// @Success 200 {object} response.Envelope
// @Router /scheduling-config/branches/{branchId} [get]
func (h *SchedulingConfigHandler) GetBranch(c *gin.Context) {
	policy, err := h.policies.GetBranch(c.Request.Context(), c.Param("branchId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, policy, nil)
}

// UpdateBranch godoc
// @Summary Patch a branch's policy override
// @Description Present fields are set, names in clear revert to inherit, absent fields stay untouched.
// @Tags SchedulingConfig
// @Accept json
// @Produce json
// @Param branchId path string true "Branch ID"
// @Param request body dto.UpdateBranchPolicyRequest true "Patch"
// @Success 200 {object} response.Envelope
// @Router /scheduling-config/branches/{branchId} [patch]
func (h *SchedulingConfigHandler) UpdateBranch(c *gin.Context) {
	var req dto.UpdateBranchPolicyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid request body"))
		return
	}
	policy, err := h.policies.UpdateBranch(c.Request.Context(), c.Param("branchId"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, policy, nil)
}

// ResetBranch godoc
// @Summary Remove a branch's policy override entirely
// @Tags SchedulingConfig
// @Param branchId path string true "Branch ID"
// @Success 204
// @Router /scheduling-config/branches/{branchId} [delete]
func (h *SchedulingConfigHandler) ResetBranch(c *gin.Context) {
	if err := h.policies.ResetBranch(c.Request.Context(), c.Param("branchId")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// GetEffective godoc
// @Summary Resolve the effective policy for a branch
// @Description Branch override falls through to global, then to hard-coded defaults, per field.
// @Tags SchedulingConfig
// @Produce json
// @Param branch_id query string false "Branch ID (omit for the global view)"
// @Success 200 {object} response.Envelope
// @Router /scheduling-config/effective [get]
func (h *SchedulingConfigHandler) GetEffective(c *gin.Context) {
	policy, err := h.policies.Effective(c.Request.Context(), c.Query("branch_id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, policy, nil)
}

package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/aozorajuku/scheduler-api/internal/dto"
	"github.com/aozorajuku/scheduler-api/internal/models"
	appErrors "github.com/aozorajuku/scheduler-api/pkg/errors"
)

const (
	effectivePolicyKeyPrefix = "scheduler:policy:effective:"
	effectivePolicyGlobalKey = effectivePolicyKeyPrefix + "global"
)

type schedulingConfigStore interface {
	GetGlobal(ctx context.Context) (*models.SchedulingPolicy, error)
	UpsertGlobal(ctx context.Context, policy *models.SchedulingPolicy) error
	GetBranch(ctx context.Context, branchID string) (*models.BranchSchedulingPolicy, error)
	UpsertBranch(ctx context.Context, policy *models.BranchSchedulingPolicy) error
	DeleteBranch(ctx context.Context, branchID string) error
}

type policyCache interface {
	Get(ctx context.Context, key string, target interface{}) error
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	Delete(ctx context.Context, keys ...string) error
	DeleteByPattern(ctx context.Context, pattern string) error
}

type branchChecker interface {
	BranchExists(ctx context.Context, id string) (bool, error)
}

type policyCacheMetrics interface {
	RecordCacheLookup(hit bool)
}

// SchedulingConfigService resolves the effective scheduling policy for a
// branch (branch override, then global, then hard-coded defaults) and owns
// policy writes. Effective lookups are cached; any write invalidates.
type SchedulingConfigService struct {
	store     schedulingConfigStore
	cache     policyCache
	directory branchChecker
	metrics   policyCacheMetrics
	validate  *validator.Validate
	logger    *zap.Logger
	cacheTTL  time.Duration
	useCache  bool
}

// NewSchedulingConfigService constructs the service. cache and metrics may be
// nil.
func NewSchedulingConfigService(store schedulingConfigStore, cache policyCache, directory branchChecker, metrics policyCacheMetrics, validate *validator.Validate, logger *zap.Logger, cacheTTL time.Duration, useCache bool) *SchedulingConfigService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cacheTTL <= 0 {
		cacheTTL = 5 * time.Minute
	}
	return &SchedulingConfigService{
		store:     store,
		cache:     cache,
		directory: directory,
		metrics:   metrics,
		validate:  validate,
		logger:    logger,
		cacheTTL:  cacheTTL,
		useCache:  useCache && cache != nil,
	}
}

func effectivePolicyKey(branchID string) string {
	if branchID == "" {
		return effectivePolicyGlobalKey
	}
	return fmt.Sprintf("%sbranch:%s", effectivePolicyKeyPrefix, branchID)
}

// Effective resolves the policy that applies to a branch. An empty branchID
// resolves the global view. Each field falls through independently: branch
// override when set, else global, else default.
func (s *SchedulingConfigService) Effective(ctx context.Context, branchID string) (*models.EffectiveSchedulingPolicy, error) {
	key := effectivePolicyKey(branchID)
	if s.useCache {
		var cached models.EffectiveSchedulingPolicy
		err := s.cache.Get(ctx, key, &cached)
		if s.metrics != nil {
			s.metrics.RecordCacheLookup(err == nil)
		}
		if err == nil {
			return &cached, nil
		}
		if !errors.Is(err, appErrors.ErrCacheMiss) {
			s.logger.Warn("effective policy cache read failed", zap.String("key", key), zap.Error(err))
		}
	}

	effective := models.DefaultSchedulingPolicy()

	global, err := s.store.GetGlobal(ctx)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load global policy")
	}
	if global != nil {
		effective.MarkTeacherUnavailable = global.MarkTeacherUnavailable
		effective.MarkStudentUnavailable = global.MarkStudentUnavailable
		effective.MarkTeacherWrongTime = global.MarkTeacherWrongTime
		effective.MarkStudentWrongTime = global.MarkStudentWrongTime
		effective.MarkNoSharedAvailability = global.MarkNoSharedAvailability
		effective.AllowOutsideAvailabilityTeacher = global.AllowOutsideAvailabilityTeacher
		effective.AllowOutsideAvailabilityStudent = global.AllowOutsideAvailabilityStudent
		effective.GenerationMonths = global.GenerationMonths
	}

	if branchID != "" {
		branch, err := s.store.GetBranch(ctx, branchID)
		if err != nil && !errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load branch policy")
		}
		if branch != nil {
			effective.BranchID = &branch.BranchID
			applyOverride(&effective, branch)
		} else {
			id := branchID
			effective.BranchID = &id
		}
	}

	if s.useCache {
		if err := s.cache.Set(ctx, key, effective, s.cacheTTL); err != nil {
			s.logger.Warn("effective policy cache write failed", zap.String("key", key), zap.Error(err))
		}
	}
	return &effective, nil
}

func applyOverride(effective *models.EffectiveSchedulingPolicy, branch *models.BranchSchedulingPolicy) {
	if branch.MarkTeacherUnavailable != nil {
		effective.MarkTeacherUnavailable = *branch.MarkTeacherUnavailable
	}
	if branch.MarkStudentUnavailable != nil {
		effective.MarkStudentUnavailable = *branch.MarkStudentUnavailable
	}
	if branch.MarkTeacherWrongTime != nil {
		effective.MarkTeacherWrongTime = *branch.MarkTeacherWrongTime
	}
	if branch.MarkStudentWrongTime != nil {
		effective.MarkStudentWrongTime = *branch.MarkStudentWrongTime
	}
	if branch.MarkNoSharedAvailability != nil {
		effective.MarkNoSharedAvailability = *branch.MarkNoSharedAvailability
	}
	if branch.AllowOutsideAvailabilityTeacher != nil {
		effective.AllowOutsideAvailabilityTeacher = *branch.AllowOutsideAvailabilityTeacher
	}
	if branch.AllowOutsideAvailabilityStudent != nil {
		effective.AllowOutsideAvailabilityStudent = *branch.AllowOutsideAvailabilityStudent
	}
	if branch.GenerationMonths != nil {
		effective.GenerationMonths = *branch.GenerationMonths
	}
}

// GetGlobal returns the stored global policy, or the defaults materialised as
// a policy when no row exists yet.
func (s *SchedulingConfigService) GetGlobal(ctx context.Context) (*models.SchedulingPolicy, error) {
	global, err := s.store.GetGlobal(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			defaults := models.DefaultSchedulingPolicy()
			return &models.SchedulingPolicy{
				MarkTeacherUnavailable:          defaults.MarkTeacherUnavailable,
				MarkStudentUnavailable:          defaults.MarkStudentUnavailable,
				MarkTeacherWrongTime:            defaults.MarkTeacherWrongTime,
				MarkStudentWrongTime:            defaults.MarkStudentWrongTime,
				MarkNoSharedAvailability:        defaults.MarkNoSharedAvailability,
				AllowOutsideAvailabilityTeacher: defaults.AllowOutsideAvailabilityTeacher,
				AllowOutsideAvailabilityStudent: defaults.AllowOutsideAvailabilityStudent,
				GenerationMonths:                defaults.GenerationMonths,
			}, nil
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load global policy")
	}
	return global, nil
}

// UpdateGlobal replaces the global policy and invalidates every cached
// effective view, since any branch may inherit from it.
func (s *SchedulingConfigService) UpdateGlobal(ctx context.Context, req dto.UpdateGlobalPolicyRequest) (*models.SchedulingPolicy, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid global policy payload")
	}

	policy := &models.SchedulingPolicy{
		MarkTeacherUnavailable:          *req.MarkTeacherUnavailable,
		MarkStudentUnavailable:          *req.MarkStudentUnavailable,
		MarkTeacherWrongTime:            *req.MarkTeacherWrongTime,
		MarkStudentWrongTime:            *req.MarkStudentWrongTime,
		MarkNoSharedAvailability:        *req.MarkNoSharedAvailability,
		AllowOutsideAvailabilityTeacher: *req.AllowOutsideAvailabilityTeacher,
		AllowOutsideAvailabilityStudent: *req.AllowOutsideAvailabilityStudent,
		GenerationMonths:                *req.GenerationMonths,
	}
	if err := s.store.UpsertGlobal(ctx, policy); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store global policy")
	}
	s.invalidateAll(ctx)
	s.logger.Info("global scheduling policy updated")
	return policy, nil
}

// GetBranch returns a branch's override row. Branches without an override
// return an empty (all-inherit) row rather than a 404, so clients can render
// the tri-state form directly.
func (s *SchedulingConfigService) GetBranch(ctx context.Context, branchID string) (*models.BranchSchedulingPolicy, error) {
	if branchID == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "branch id is required")
	}
	branch, err := s.store.GetBranch(ctx, branchID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return &models.BranchSchedulingPolicy{BranchID: branchID}, nil
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load branch policy")
	}
	return branch, nil
}

// UpdateBranch patches a branch override. Present fields are set, names in
// Clear revert to inherit, absent fields keep their stored value. The three
// states stay distinct across the round trip.
func (s *SchedulingConfigService) UpdateBranch(ctx context.Context, branchID string, req dto.UpdateBranchPolicyRequest) (*models.BranchSchedulingPolicy, error) {
	if branchID == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "branch id is required")
	}
	if err := s.validate.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid branch policy payload")
	}

	exists, err := s.directory.BranchExists(ctx, branchID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to verify branch")
	}
	if !exists {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "branch not found")
	}

	current, err := s.store.GetBranch(ctx, branchID)
	if err != nil {
		if !errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load branch policy")
		}
		current = &models.BranchSchedulingPolicy{BranchID: branchID}
	}

	if req.MarkTeacherUnavailable != nil {
		current.MarkTeacherUnavailable = req.MarkTeacherUnavailable
	}
	if req.MarkStudentUnavailable != nil {
		current.MarkStudentUnavailable = req.MarkStudentUnavailable
	}
	if req.MarkTeacherWrongTime != nil {
		current.MarkTeacherWrongTime = req.MarkTeacherWrongTime
	}
	if req.MarkStudentWrongTime != nil {
		current.MarkStudentWrongTime = req.MarkStudentWrongTime
	}
	if req.MarkNoSharedAvailability != nil {
		current.MarkNoSharedAvailability = req.MarkNoSharedAvailability
	}
	if req.AllowOutsideAvailabilityTeacher != nil {
		current.AllowOutsideAvailabilityTeacher = req.AllowOutsideAvailabilityTeacher
	}
	if req.AllowOutsideAvailabilityStudent != nil {
		current.AllowOutsideAvailabilityStudent = req.AllowOutsideAvailabilityStudent
	}
	if req.GenerationMonths != nil {
		current.GenerationMonths = req.GenerationMonths
	}
	for _, field := range req.Clear {
		clearBranchField(current, field)
	}

	if err := s.store.UpsertBranch(ctx, current); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store branch policy")
	}
	s.invalidate(ctx, branchID)
	s.logger.Info("branch scheduling policy updated", zap.String("branchId", branchID))
	return current, nil
}

func clearBranchField(policy *models.BranchSchedulingPolicy, field string) {
	switch field {
	case "mark_teacher_unavailable":
		policy.MarkTeacherUnavailable = nil
	case "mark_student_unavailable":
		policy.MarkStudentUnavailable = nil
	case "mark_teacher_wrong_time":
		policy.MarkTeacherWrongTime = nil
	case "mark_student_wrong_time":
		policy.MarkStudentWrongTime = nil
	case "mark_no_shared_availability":
		policy.MarkNoSharedAvailability = nil
	case "allow_outside_availability_teacher":
		policy.AllowOutsideAvailabilityTeacher = nil
	case "allow_outside_availability_student":
		policy.AllowOutsideAvailabilityStudent = nil
	case "generation_months":
		policy.GenerationMonths = nil
	}
}

// ResetBranch deletes a branch's override so it fully inherits the global
// policy.
func (s *SchedulingConfigService) ResetBranch(ctx context.Context, branchID string) error {
	if branchID == "" {
		return appErrors.Clone(appErrors.ErrValidation, "branch id is required")
	}
	if err := s.store.DeleteBranch(ctx, branchID); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to reset branch policy")
	}
	s.invalidate(ctx, branchID)
	return nil
}

func (s *SchedulingConfigService) invalidate(ctx context.Context, branchID string) {
	if !s.useCache {
		return
	}
	if err := s.cache.Delete(ctx, effectivePolicyKey(branchID)); err != nil {
		s.logger.Warn("policy cache invalidation failed", zap.String("branchId", branchID), zap.Error(err))
	}
}

func (s *SchedulingConfigService) invalidateAll(ctx context.Context) {
	if !s.useCache {
		return
	}
	if err := s.cache.DeleteByPattern(ctx, effectivePolicyKeyPrefix+"*"); err != nil {
		s.logger.Warn("policy cache invalidation failed", zap.Error(err))
	}
}

package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/aozorajuku/scheduler-api/internal/dto"
	"github.com/aozorajuku/scheduler-api/internal/models"
	appErrors "github.com/aozorajuku/scheduler-api/pkg/errors"
)

func bp(v bool) *bool { return &v }

type configStoreMock struct {
	global      *models.SchedulingPolicy
	branches    map[string]*models.BranchSchedulingPolicy
	upserted    *models.BranchSchedulingPolicy
	globalWrite *models.SchedulingPolicy
}

func (m *configStoreMock) GetGlobal(_ context.Context) (*models.SchedulingPolicy, error) {
	if m.global == nil {
		return nil, sql.ErrNoRows
	}
	return m.global, nil
}

func (m *configStoreMock) UpsertGlobal(_ context.Context, policy *models.SchedulingPolicy) error {
	m.globalWrite = policy
	return nil
}

func (m *configStoreMock) GetBranch(_ context.Context, branchID string) (*models.BranchSchedulingPolicy, error) {
	if branch, ok := m.branches[branchID]; ok {
		return branch, nil
	}
	return nil, sql.ErrNoRows
}

func (m *configStoreMock) UpsertBranch(_ context.Context, policy *models.BranchSchedulingPolicy) error {
	m.upserted = policy
	return nil
}

func (m *configStoreMock) DeleteBranch(_ context.Context, branchID string) error {
	delete(m.branches, branchID)
	return nil
}

type cacheMock struct {
	hits     int
	sets     int
	deleted  []string
	patterns []string
	values   map[string]models.EffectiveSchedulingPolicy
}

func newCacheMock() *cacheMock {
	return &cacheMock{values: map[string]models.EffectiveSchedulingPolicy{}}
}

func (m *cacheMock) Get(_ context.Context, key string, target interface{}) error {
	value, ok := m.values[key]
	if !ok {
		return appErrors.ErrCacheMiss
	}
	m.hits++
	*(target.(*models.EffectiveSchedulingPolicy)) = value
	return nil
}

func (m *cacheMock) Set(_ context.Context, key string, value interface{}, _ time.Duration) error {
	m.sets++
	switch v := value.(type) {
	case models.EffectiveSchedulingPolicy:
		m.values[key] = v
	case *models.EffectiveSchedulingPolicy:
		m.values[key] = *v
	}
	return nil
}

func (m *cacheMock) Delete(_ context.Context, keys ...string) error {
	for _, key := range keys {
		delete(m.values, key)
		m.deleted = append(m.deleted, key)
	}
	return nil
}

func (m *cacheMock) DeleteByPattern(_ context.Context, pattern string) error {
	m.patterns = append(m.patterns, pattern)
	m.values = map[string]models.EffectiveSchedulingPolicy{}
	return nil
}

type branchCheckerMock struct {
	exists bool
}

func (m *branchCheckerMock) BranchExists(_ context.Context, _ string) (bool, error) {
	return m.exists, nil
}

func newConfigFixture(store *configStoreMock, cache *cacheMock) *SchedulingConfigService {
	var pc policyCache
	useCache := false
	if cache != nil {
		pc = cache
		useCache = true
	}
	return NewSchedulingConfigService(store, pc, &branchCheckerMock{exists: true}, nil, validator.New(), zap.NewNop(), time.Minute, useCache)
}

type policyMetricsMock struct {
	hits   int
	misses int
}

func (m *policyMetricsMock) RecordCacheLookup(hit bool) {
	if hit {
		m.hits++
	} else {
		m.misses++
	}
}

func TestEffectiveDefaultsWithoutRows(t *testing.T) {
	svc := newConfigFixture(&configStoreMock{}, nil)

	effective, err := svc.Effective(context.Background(), "")
	require.NoError(t, err)
	assert.Equal(t, models.DefaultSchedulingPolicy(), *effective)
}

func TestEffectiveBranchOverridesFallThroughPerField(t *testing.T) {
	store := &configStoreMock{
		global: &models.SchedulingPolicy{
			MarkTeacherUnavailable:   true,
			MarkStudentUnavailable:   true,
			MarkTeacherWrongTime:     false,
			MarkStudentWrongTime:     true,
			MarkNoSharedAvailability: true,
			GenerationMonths:         3,
		},
		branches: map[string]*models.BranchSchedulingPolicy{
			"branch-1": {
				BranchID:                        "branch-1",
				MarkTeacherUnavailable:          bp(false),
				AllowOutsideAvailabilityStudent: bp(true),
			},
		},
	}
	svc := newConfigFixture(store, nil)

	effective, err := svc.Effective(context.Background(), "branch-1")
	require.NoError(t, err)
	// Overridden fields come from the branch.
	assert.False(t, effective.MarkTeacherUnavailable)
	assert.True(t, effective.AllowOutsideAvailabilityStudent)
	// Inherited fields come from the global row.
	assert.True(t, effective.MarkStudentUnavailable)
	assert.False(t, effective.MarkTeacherWrongTime)
	assert.Equal(t, 3, effective.GenerationMonths)
	require.NotNil(t, effective.BranchID)
	assert.Equal(t, "branch-1", *effective.BranchID)
}

func TestEffectiveBranchWithoutOverrideInheritsGlobal(t *testing.T) {
	store := &configStoreMock{
		global: &models.SchedulingPolicy{MarkTeacherUnavailable: true, GenerationMonths: 2},
	}
	svc := newConfigFixture(store, nil)

	effective, err := svc.Effective(context.Background(), "branch-9")
	require.NoError(t, err)
	assert.True(t, effective.MarkTeacherUnavailable)
	assert.Equal(t, 2, effective.GenerationMonths)
	require.NotNil(t, effective.BranchID)
	assert.Equal(t, "branch-9", *effective.BranchID)
}

func TestEffectiveUsesCache(t *testing.T) {
	store := &configStoreMock{global: &models.SchedulingPolicy{GenerationMonths: 4}}
	cache := newCacheMock()
	svc := newConfigFixture(store, cache)

	first, err := svc.Effective(context.Background(), "branch-1")
	require.NoError(t, err)
	assert.Equal(t, 1, cache.sets)

	// Second call is served from the cache even if the store changes.
	store.global.GenerationMonths = 12
	second, err := svc.Effective(context.Background(), "branch-1")
	require.NoError(t, err)
	assert.Equal(t, 1, cache.hits)
	assert.Equal(t, first.GenerationMonths, second.GenerationMonths)
}

func TestEffectiveRecordsCacheLookups(t *testing.T) {
	store := &configStoreMock{global: &models.SchedulingPolicy{GenerationMonths: 4}}
	cache := newCacheMock()
	metrics := &policyMetricsMock{}
	svc := NewSchedulingConfigService(store, cache, &branchCheckerMock{exists: true}, metrics, validator.New(), zap.NewNop(), time.Minute, true)

	_, err := svc.Effective(context.Background(), "branch-1")
	require.NoError(t, err)
	_, err = svc.Effective(context.Background(), "branch-1")
	require.NoError(t, err)

	assert.Equal(t, 1, metrics.misses)
	assert.Equal(t, 1, metrics.hits)
}

func TestUpdateGlobalInvalidatesAllBranches(t *testing.T) {
	store := &configStoreMock{}
	cache := newCacheMock()
	svc := newConfigFixture(store, cache)

	_, err := svc.Effective(context.Background(), "branch-1")
	require.NoError(t, err)

	months := 6
	_, err = svc.UpdateGlobal(context.Background(), dto.UpdateGlobalPolicyRequest{
		MarkTeacherUnavailable:          bp(true),
		MarkStudentUnavailable:          bp(true),
		MarkTeacherWrongTime:            bp(false),
		MarkStudentWrongTime:            bp(false),
		MarkNoSharedAvailability:        bp(true),
		AllowOutsideAvailabilityTeacher: bp(false),
		AllowOutsideAvailabilityStudent: bp(false),
		GenerationMonths:                &months,
	})
	require.NoError(t, err)
	require.NotNil(t, store.globalWrite)
	assert.Equal(t, 6, store.globalWrite.GenerationMonths)
	assert.NotEmpty(t, cache.patterns)
	assert.Empty(t, cache.values)
}

func TestUpdateGlobalRequiresEveryField(t *testing.T) {
	svc := newConfigFixture(&configStoreMock{}, nil)
	_, err := svc.UpdateGlobal(context.Background(), dto.UpdateGlobalPolicyRequest{
		MarkTeacherUnavailable: bp(true),
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestUpdateBranchTriState(t *testing.T) {
	store := &configStoreMock{
		branches: map[string]*models.BranchSchedulingPolicy{
			"branch-1": {
				BranchID:               "branch-1",
				MarkTeacherUnavailable: bp(false),
				MarkStudentUnavailable: bp(false),
			},
		},
	}
	svc := newConfigFixture(store, nil)

	updated, err := svc.UpdateBranch(context.Background(), "branch-1", dto.UpdateBranchPolicyRequest{
		MarkTeacherWrongTime: bp(true),                             // set
		Clear:                []string{"mark_student_unavailable"}, // back to inherit
		// mark_teacher_unavailable absent: untouched
	})
	require.NoError(t, err)
	require.NotNil(t, updated.MarkTeacherWrongTime)
	assert.True(t, *updated.MarkTeacherWrongTime)
	assert.Nil(t, updated.MarkStudentUnavailable)
	require.NotNil(t, updated.MarkTeacherUnavailable)
	assert.False(t, *updated.MarkTeacherUnavailable)
	assert.Equal(t, updated, store.upserted)
}

func TestUpdateBranchUnknownBranch(t *testing.T) {
	svc := NewSchedulingConfigService(&configStoreMock{}, nil, &branchCheckerMock{exists: false}, nil, validator.New(), zap.NewNop(), time.Minute, false)
	_, err := svc.UpdateBranch(context.Background(), "ghost", dto.UpdateBranchPolicyRequest{MarkTeacherWrongTime: bp(true)})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestUpdateBranchRejectsUnknownClearField(t *testing.T) {
	svc := newConfigFixture(&configStoreMock{}, nil)
	_, err := svc.UpdateBranch(context.Background(), "branch-1", dto.UpdateBranchPolicyRequest{Clear: []string{"nonsense"}})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestUpdateBranchInvalidatesOnlyThatBranch(t *testing.T) {
	store := &configStoreMock{branches: map[string]*models.BranchSchedulingPolicy{}}
	cache := newCacheMock()
	svc := newConfigFixture(store, cache)

	_, err := svc.UpdateBranch(context.Background(), "branch-1", dto.UpdateBranchPolicyRequest{MarkTeacherWrongTime: bp(false)})
	require.NoError(t, err)
	assert.Contains(t, cache.deleted, effectivePolicyKey("branch-1"))
	assert.Empty(t, cache.patterns)
}

func TestGetBranchWithoutOverrideReturnsEmptyRow(t *testing.T) {
	svc := newConfigFixture(&configStoreMock{}, nil)
	branch, err := svc.GetBranch(context.Background(), "branch-1")
	require.NoError(t, err)
	assert.Equal(t, "branch-1", branch.BranchID)
	assert.Nil(t, branch.MarkTeacherUnavailable)
	assert.Nil(t, branch.GenerationMonths)
}

func TestGetGlobalMaterialisesDefaults(t *testing.T) {
	svc := newConfigFixture(&configStoreMock{}, nil)
	global, err := svc.GetGlobal(context.Background())
	require.NoError(t, err)
	assert.True(t, global.MarkTeacherUnavailable)
	assert.False(t, global.AllowOutsideAvailabilityTeacher)
	assert.Equal(t, 1, global.GenerationMonths)
}

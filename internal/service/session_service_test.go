package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/aozorajuku/scheduler-api/internal/dto"
	"github.com/aozorajuku/scheduler-api/internal/models"
	appErrors "github.com/aozorajuku/scheduler-api/pkg/errors"
)

type sessionStoreMock struct {
	byID      map[string]*models.ClassSession
	created   []models.ClassSession
	updated   []models.ClassSession
	cancelled []string
}

func (m *sessionStoreMock) Create(_ context.Context, _ sqlx.ExtContext, session *models.ClassSession) error {
	session.ID = "session-1"
	m.created = append(m.created, *session)
	return nil
}

func (m *sessionStoreMock) Update(_ context.Context, _ sqlx.ExtContext, session *models.ClassSession) error {
	m.updated = append(m.updated, *session)
	return nil
}

func (m *sessionStoreMock) Cancel(_ context.Context, _ sqlx.ExtContext, id string) error {
	m.cancelled = append(m.cancelled, id)
	return nil
}

func (m *sessionStoreMock) FindByID(_ context.Context, id string) (*models.ClassSession, error) {
	if session, ok := m.byID[id]; ok {
		copied := *session
		return &copied, nil
	}
	return nil, sql.ErrNoRows
}

func (m *sessionStoreMock) List(_ context.Context, _ models.SessionFilter) ([]models.ClassSession, int, error) {
	return nil, 0, nil
}

type conflictEngineMock struct {
	hardByDate  map[string][]models.ConflictFinding
	sharedByDay map[string]*models.SharedAvailabilityResult
	lastExclude *string
}

func (m *conflictEngineMock) HardConflicts(_ context.Context, _ sqlx.ExtContext, candidate models.SessionCandidate, excludeSessionID *string) ([]models.ConflictFinding, error) {
	m.lastExclude = excludeSessionID
	return m.hardByDate[candidate.Date.Format("2006-01-02")], nil
}

func (m *conflictEngineMock) SharedFor(_ context.Context, _, _ string, date time.Time, _, _ int) (*models.SharedAvailabilityResult, error) {
	if shared, ok := m.sharedByDay[date.Format("2006-01-02")]; ok {
		return shared, nil
	}
	return &models.SharedAvailabilityResult{Available: true}, nil
}

type sessionDirectoryMock struct {
	missing map[string]bool
}

func (m *sessionDirectoryMock) BranchExists(_ context.Context, _ string) (bool, error) {
	return !m.missing["branch"], nil
}
func (m *sessionDirectoryMock) TeacherExists(_ context.Context, _ string) (bool, error) {
	return !m.missing["teacher"], nil
}
func (m *sessionDirectoryMock) StudentExists(_ context.Context, _ string) (bool, error) {
	return !m.missing["student"], nil
}
func (m *sessionDirectoryMock) BoothExists(_ context.Context, _ string) (bool, error) {
	return !m.missing["booth"], nil
}

type queueMock struct {
	jobIDs []string
}

func (m *queueMock) EnqueueGeneration(jobID string, _ dto.GenerateSessionsRequest) error {
	m.jobIDs = append(m.jobIDs, jobID)
	return nil
}

func newSessionFixture(t *testing.T, conflicts *conflictEngineMock, policy models.EffectiveSchedulingPolicy) (*SessionService, *sessionStoreMock, *conflictEngineMock, *queueMock, sqlmock.Sqlmock) {
	if conflicts == nil {
		conflicts = &conflictEngineMock{}
	}
	store := &sessionStoreMock{byID: map[string]*models.ClassSession{}}
	queue := &queueMock{}
	tx, mock := newTxProviderMock(t)
	svc := NewSessionService(store, conflicts, &policiesMock{policy: policy}, &sessionDirectoryMock{}, queue, tx, validator.New(), zap.NewNop())
	return svc, store, conflicts, queue, mock
}

func validCreate() dto.CreateSessionRequest {
	return dto.CreateSessionRequest{
		BranchID:  "branch-1",
		TeacherID: "teacher-1",
		StudentID: "student-1",
		BoothID:   "booth-1",
		Date:      "2026-09-14",
		StartTime: "10:00",
		EndTime:   "11:00",
	}
}

func hardFinding(t models.ConflictType, sessionID string) models.ConflictFinding {
	return models.ConflictFinding{Type: t, SessionID: &sessionID, Blocking: true}
}

func softFinding(t models.ConflictType) models.ConflictFinding {
	return models.ConflictFinding{Type: t}
}

func TestCreateSessionSuccess(t *testing.T) {
	svc, store, _, _, mock := newSessionFixture(t, nil, models.DefaultSchedulingPolicy())
	mock.ExpectBegin()
	mock.ExpectCommit()

	result, err := svc.Create(context.Background(), validCreate())
	require.NoError(t, err)
	assert.Equal(t, "session-1", result.Session.ID)
	assert.Equal(t, 600, result.Session.StartMinute)
	assert.Equal(t, 660, result.Session.EndMinute)
	require.Len(t, store.created, 1)
}

func TestCreateSessionHardConflictRejectsEvenForced(t *testing.T) {
	conflicts := &conflictEngineMock{hardByDate: map[string][]models.ConflictFinding{
		"2026-09-14": {hardFinding(models.ConflictBoothBooked, "other")},
	}}
	svc, store, _, _, _ := newSessionFixture(t, conflicts, models.DefaultSchedulingPolicy())

	req := validCreate()
	req.Force = true
	_, err := svc.Create(context.Background(), req)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErrors.FromError(err).Code)
	assert.Empty(t, store.created)
}

func TestCreateSessionSoftConflictBlocksWithoutForce(t *testing.T) {
	conflicts := &conflictEngineMock{sharedByDay: map[string]*models.SharedAvailabilityResult{
		"2026-09-14": {Findings: []models.ConflictFinding{softFinding(models.ConflictStudentUnavailable)}},
	}}
	svc, store, _, _, _ := newSessionFixture(t, conflicts, models.DefaultSchedulingPolicy())

	_, err := svc.Create(context.Background(), validCreate())
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErrors.FromError(err).Code)
	assert.Empty(t, store.created)
}

func TestCreateSessionForceBypassesSoftConflict(t *testing.T) {
	conflicts := &conflictEngineMock{sharedByDay: map[string]*models.SharedAvailabilityResult{
		"2026-09-14": {Findings: []models.ConflictFinding{softFinding(models.ConflictStudentUnavailable)}},
	}}
	svc, store, _, _, mock := newSessionFixture(t, conflicts, models.DefaultSchedulingPolicy())
	mock.ExpectBegin()
	mock.ExpectCommit()

	req := validCreate()
	req.Force = true
	result, err := svc.Create(context.Background(), req)
	require.NoError(t, err)
	require.Len(t, store.created, 1)
	// The bypassed finding is still reported.
	require.Len(t, result.Findings, 1)
	assert.Equal(t, models.ConflictStudentUnavailable, result.Findings[0].Type)
	assert.True(t, result.Findings[0].Blocking)
}

func TestCreateSessionPolicyAllowsSoftConflict(t *testing.T) {
	conflicts := &conflictEngineMock{sharedByDay: map[string]*models.SharedAvailabilityResult{
		"2026-09-14": {Findings: []models.ConflictFinding{softFinding(models.ConflictStudentUnavailable)}},
	}}
	policy := models.DefaultSchedulingPolicy()
	policy.AllowOutsideAvailabilityStudent = true
	svc, store, _, _, mock := newSessionFixture(t, conflicts, policy)
	mock.ExpectBegin()
	mock.ExpectCommit()

	result, err := svc.Create(context.Background(), validCreate())
	require.NoError(t, err)
	require.Len(t, store.created, 1)
	require.Len(t, result.Findings, 1)
	assert.False(t, result.Findings[0].Blocking)
}

func TestCreateSessionUnknownDirectoryEntry(t *testing.T) {
	store := &sessionStoreMock{}
	tx, _ := newTxProviderMock(t)
	svc := NewSessionService(store, &conflictEngineMock{}, &policiesMock{policy: models.DefaultSchedulingPolicy()}, &sessionDirectoryMock{missing: map[string]bool{"booth": true}}, nil, tx, validator.New(), zap.NewNop())

	_, err := svc.Create(context.Background(), validCreate())
	require.Error(t, err)
	typed := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrNotFound.Code, typed.Code)
	assert.Contains(t, typed.Message, "booth")
}

func TestRescheduleExcludesOwnSession(t *testing.T) {
	svc, store, conflicts, _, mock := newSessionFixture(t, nil, models.DefaultSchedulingPolicy())
	store.byID["moving"] = &models.ClassSession{
		ID: "moving", BranchID: "branch-1", TeacherID: "teacher-1", StudentID: "student-1", BoothID: "booth-1",
		Date: time.Date(2026, 9, 14, 0, 0, 0, 0, time.UTC), StartMinute: 600, EndMinute: 660,
	}
	mock.ExpectBegin()
	mock.ExpectCommit()

	result, err := svc.Reschedule(context.Background(), "moving", dto.RescheduleSessionRequest{
		BoothID:   "booth-2",
		Date:      "2026-09-21",
		StartTime: "12:00",
		EndTime:   "13:00",
	})
	require.NoError(t, err)
	require.NotNil(t, conflicts.lastExclude)
	assert.Equal(t, "moving", *conflicts.lastExclude)
	assert.Equal(t, "booth-2", result.Session.BoothID)
	assert.Equal(t, 720, result.Session.StartMinute)
	require.Len(t, store.updated, 1)
}

func TestRescheduleCancelledSessionRejected(t *testing.T) {
	svc, store, _, _, _ := newSessionFixture(t, nil, models.DefaultSchedulingPolicy())
	store.byID["gone"] = &models.ClassSession{ID: "gone", IsCancelled: true}

	_, err := svc.Reschedule(context.Background(), "gone", dto.RescheduleSessionRequest{
		BoothID: "booth-1", Date: "2026-09-21", StartTime: "12:00", EndTime: "13:00",
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErrors.FromError(err).Code)
}

func TestCancelSession(t *testing.T) {
	svc, store, _, _, _ := newSessionFixture(t, nil, models.DefaultSchedulingPolicy())
	store.byID["s1"] = &models.ClassSession{ID: "s1"}

	require.NoError(t, svc.Cancel(context.Background(), "s1"))
	assert.Equal(t, []string{"s1"}, store.cancelled)

	store.byID["s1"].IsCancelled = true
	err := svc.Cancel(context.Background(), "s1")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErrors.FromError(err).Code)

	err = svc.Cancel(context.Background(), "missing")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestGenerateSkipsConflictedDates(t *testing.T) {
	// Mondays in the one-month window from 2026-09-01: Sep 7, 14, 21, 28.
	conflicts := &conflictEngineMock{hardByDate: map[string][]models.ConflictFinding{
		"2026-09-14": {hardFinding(models.ConflictTeacherBooked, "existing")},
	}}
	svc, store, _, _, mock := newSessionFixture(t, conflicts, models.DefaultSchedulingPolicy())
	for i := 0; i < 3; i++ {
		mock.ExpectBegin()
		mock.ExpectCommit()
	}

	from := "2026-09-01"
	summary, err := svc.Generate(context.Background(), dto.GenerateSessionsRequest{
		BranchID:  "branch-1",
		TeacherID: "teacher-1",
		StudentID: "student-1",
		BoothID:   "booth-1",
		DayOfWeek: 1,
		StartTime: "10:00",
		EndTime:   "11:00",
		FromDate:  &from,
	})
	require.NoError(t, err)
	assert.Equal(t, 4, summary.Requested)
	assert.Equal(t, 3, summary.Created)
	require.Len(t, summary.Skipped, 1)
	assert.Equal(t, "2026-09-14", summary.Skipped[0].Date.Format("2006-01-02"))
	assert.Equal(t, []models.ConflictType{models.ConflictTeacherBooked}, summary.Skipped[0].Reasons)
	assert.Len(t, store.created, 3)
}

func TestGenerateHorizonFollowsPolicyMonths(t *testing.T) {
	policy := models.DefaultSchedulingPolicy()
	policy.GenerationMonths = 2
	svc, store, _, _, mock := newSessionFixture(t, nil, policy)
	// Mondays from 2026-09-01 to 2026-11-01: Sep 7,14,21,28 and Oct 5,12,19,26.
	for i := 0; i < 8; i++ {
		mock.ExpectBegin()
		mock.ExpectCommit()
	}

	from := "2026-09-01"
	summary, err := svc.Generate(context.Background(), dto.GenerateSessionsRequest{
		BranchID: "branch-1", TeacherID: "teacher-1", StudentID: "student-1", BoothID: "booth-1",
		DayOfWeek: 1, StartTime: "10:00", EndTime: "11:00", FromDate: &from,
	})
	require.NoError(t, err)
	assert.Equal(t, 8, summary.Requested)
	assert.Equal(t, 8, summary.Created)
	assert.Len(t, store.created, 8)
}

func TestEnqueueGeneration(t *testing.T) {
	svc, _, _, queue, _ := newSessionFixture(t, nil, models.DefaultSchedulingPolicy())

	ack, err := svc.EnqueueGeneration(context.Background(), dto.GenerateSessionsRequest{
		BranchID: "branch-1", TeacherID: "teacher-1", StudentID: "student-1", BoothID: "booth-1",
		DayOfWeek: 1, StartTime: "10:00", EndTime: "11:00",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, ack.JobID)
	assert.Equal(t, []string{ack.JobID}, queue.jobIDs)
}

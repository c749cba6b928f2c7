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

func ip(v int) *int       { return &v }
func sp(v string) *string { return &v }

func fullDay() models.AvailabilityDeclaration {
	return models.AvailabilityDeclaration{FullDay: true}
}
func bounded(start, end int) models.AvailabilityDeclaration {
	return models.AvailabilityDeclaration{StartMinute: ip(start), EndMinute: ip(end)}
}

type txProviderMock struct {
	db *sqlx.DB
}

func newTxProviderMock(t *testing.T) (*txProviderMock, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	sqlxdb := sqlx.NewDb(db, "sqlmock")
	t.Cleanup(func() { db.Close() })
	return &txProviderMock{db: sqlxdb}, mock
}

func (m *txProviderMock) BeginTxx(ctx context.Context, opts *sql.TxOptions) (*sqlx.Tx, error) {
	return m.db.BeginTxx(ctx, opts)
}

type declStoreMock struct {
	rows      []models.AvailabilityDeclaration // date-keyed, served by type
	weekly    []models.AvailabilityDeclaration // weekday-keyed, served by type
	regular   []models.AvailabilityDeclaration
	dated     []models.AvailabilityDeclaration
	listErr   error
	created   []models.AvailabilityDeclaration
	deletedID []string
	updates   map[string]models.TimeWindow
	overwrote bool
}

func (m *declStoreMock) Create(_ context.Context, _ sqlx.ExtContext, decl *models.AvailabilityDeclaration) error {
	decl.ID = "stored-1"
	m.created = append(m.created, *decl)
	return nil
}

func filterByType(rows []models.AvailabilityDeclaration, declType models.AvailabilityType) []models.AvailabilityDeclaration {
	var out []models.AvailabilityDeclaration
	for _, r := range rows {
		if r.Type == declType {
			out = append(out, r)
		}
	}
	return out
}

func (m *declStoreMock) ListActiveByTypeAndDate(_ context.Context, _ sqlx.ExtContext, _ string, declType models.AvailabilityType, _ time.Time) ([]models.AvailabilityDeclaration, error) {
	if m.listErr != nil {
		return nil, m.listErr
	}
	return filterByType(m.rows, declType), nil
}

func (m *declStoreMock) ListActiveByTypeAndWeekday(_ context.Context, _ sqlx.ExtContext, _ string, declType models.AvailabilityType, _ int) ([]models.AvailabilityDeclaration, error) {
	if m.listErr != nil {
		return nil, m.listErr
	}
	return filterByType(m.weekly, declType), nil
}

func (m *declStoreMock) UpdateWindow(_ context.Context, _ sqlx.ExtContext, id string, _ bool, start, end *int) error {
	if m.updates == nil {
		m.updates = make(map[string]models.TimeWindow)
	}
	m.updates[id] = models.TimeWindow{StartMinute: *start, EndMinute: *end}
	return nil
}

func (m *declStoreMock) Delete(_ context.Context, _ sqlx.ExtContext, id string) error {
	m.deletedID = append(m.deletedID, id)
	return nil
}

func (m *declStoreMock) DeleteMatching(_ context.Context, _ sqlx.ExtContext, _ string, _ models.AvailabilityType, _ *int, _ *time.Time) (int64, error) {
	m.overwrote = true
	return 1, nil
}

func (m *declStoreMock) ListRegularByWeekday(_ context.Context, _ string, _ int) ([]models.AvailabilityDeclaration, error) {
	return m.regular, nil
}

func (m *declStoreMock) ListActiveByDate(_ context.Context, _ string, _ time.Time) ([]models.AvailabilityDeclaration, error) {
	return m.dated, nil
}

func (m *declStoreMock) List(_ context.Context, _ models.AvailabilityFilter) ([]models.AvailabilityDeclaration, int, error) {
	return m.dated, len(m.dated), nil
}

func (m *declStoreMock) FindByID(_ context.Context, _ string) (*models.AvailabilityDeclaration, error) {
	return nil, sql.ErrNoRows
}

type userCheckerMock struct {
	exists bool
}

func (m *userCheckerMock) UserExists(_ context.Context, _ string) (bool, error) {
	return m.exists, nil
}

func newAvailabilityFixture(t *testing.T, store *declStoreMock) (*AvailabilityService, sqlmock.Sqlmock) {
	tx, mock := newTxProviderMock(t)
	svc := NewAvailabilityService(store, &userCheckerMock{exists: true}, tx, nil, validator.New(), zap.NewNop())
	return svc, mock
}

func TestResolveLadderCaseTable(t *testing.T) {
	cases := []struct {
		name     string
		existing models.AvailabilityDeclaration
		incoming models.AvailabilityDeclaration
		want     ladderAction
	}{
		{"full day vs full day deletes", fullDay(), fullDay(), ladderAction{kind: ladderDelete}},
		{"full day vs window keeps morning", fullDay(), bounded(300, 600), ladderAction{kind: ladderShrink, start: 0, end: 300}},
		{"full day vs window from midnight deletes", fullDay(), bounded(0, 600), ladderAction{kind: ladderDelete}},
		{"window vs full day deletes", bounded(540, 720), fullDay(), ladderAction{kind: ladderDelete}},
		{"touching windows keep", bounded(540, 600), bounded(600, 660), ladderAction{kind: ladderKeep}},
		{"disjoint windows keep", bounded(540, 600), bounded(700, 760), ladderAction{kind: ladderKeep}},
		{"contained window deletes", bounded(600, 660), bounded(540, 720), ladderAction{kind: ladderDelete}},
		{"equal windows delete", bounded(540, 720), bounded(540, 720), ladderAction{kind: ladderDelete}},
		{"split keeps left on tie", bounded(540, 720), bounded(600, 660), ladderAction{kind: ladderShrink, start: 540, end: 600}},
		{"split keeps longer right remainder", bounded(540, 720), bounded(560, 600), ladderAction{kind: ladderShrink, start: 600, end: 720}},
		{"right overlap shrinks left part", bounded(540, 660), bounded(600, 720), ladderAction{kind: ladderShrink, start: 540, end: 600}},
		{"left overlap shrinks right part", bounded(600, 720), bounded(540, 660), ladderAction{kind: ladderShrink, start: 660, end: 720}},
		{"empty existing keeps", models.AvailabilityDeclaration{}, fullDay(), ladderAction{kind: ladderKeep}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, resolveLadder(tc.existing, tc.incoming))
		})
	}
}

func TestDeclareTrimsOppositeRows(t *testing.T) {
	existing := bounded(540, 720)
	existing.ID = "exc-1"
	existing.Type = models.AvailabilityException
	store := &declStoreMock{rows: []models.AvailabilityDeclaration{existing}}
	svc, mock := newAvailabilityFixture(t, store)

	mock.ExpectBegin()
	mock.ExpectCommit()

	resp, err := svc.Declare(context.Background(), dto.CreateAvailabilityRequest{
		UserID:    "user-1",
		Type:      "ABSENCE",
		Date:      sp("2026-09-14"),
		StartTime: sp("10:00"),
		EndTime:   sp("11:00"),
	})
	require.NoError(t, err)

	// Existing [09:00,12:00) splits around [10:00,11:00); both remainders are
	// 60 minutes, so the left one survives.
	assert.Equal(t, []string{"exc-1"}, resp.AdjustedIDs)
	assert.Empty(t, resp.DeletedIDs)
	assert.Equal(t, models.TimeWindow{StartMinute: 540, EndMinute: 600}, store.updates["exc-1"])
	require.Len(t, store.created, 1)
	assert.Equal(t, models.AvailabilityAbsence, store.created[0].Type)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDeclareFullDayDeletesOpposite(t *testing.T) {
	first := fullDay()
	first.ID = "abs-1"
	first.Type = models.AvailabilityAbsence
	second := bounded(600, 660)
	second.ID = "abs-2"
	second.Type = models.AvailabilityAbsence
	store := &declStoreMock{rows: []models.AvailabilityDeclaration{first, second}}
	svc, mock := newAvailabilityFixture(t, store)

	mock.ExpectBegin()
	mock.ExpectCommit()

	resp, err := svc.Declare(context.Background(), dto.CreateAvailabilityRequest{
		UserID:  "user-1",
		Type:    "EXCEPTION",
		Date:    sp("2026-09-14"),
		FullDay: true,
	})
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"abs-1", "abs-2"}, resp.DeletedIDs)
	assert.Empty(t, resp.AdjustedIDs)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDeclareIdenticalFullDayTwiceKeepsOneRow(t *testing.T) {
	stored := fullDay()
	stored.ID = "exc-1"
	stored.Type = models.AvailabilityException
	store := &declStoreMock{rows: []models.AvailabilityDeclaration{stored}}
	svc, mock := newAvailabilityFixture(t, store)

	mock.ExpectBegin()
	mock.ExpectCommit()

	// The second identical declaration replaces the first instead of piling
	// up next to it.
	resp, err := svc.Declare(context.Background(), dto.CreateAvailabilityRequest{
		UserID:  "user-1",
		Type:    "EXCEPTION",
		Date:    sp("2026-09-14"),
		FullDay: true,
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"exc-1"}, resp.DeletedIDs)
	assert.Empty(t, resp.AdjustedIDs)
	require.Len(t, store.created, 1)
	assert.Equal(t, []string{"exc-1"}, store.deletedID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDeclareTrimsSameTypeOverlap(t *testing.T) {
	existing := bounded(540, 720)
	existing.ID = "exc-1"
	existing.Type = models.AvailabilityException
	store := &declStoreMock{rows: []models.AvailabilityDeclaration{existing}}
	svc, mock := newAvailabilityFixture(t, store)

	mock.ExpectBegin()
	mock.ExpectCommit()

	resp, err := svc.Declare(context.Background(), dto.CreateAvailabilityRequest{
		UserID:    "user-1",
		Type:      "EXCEPTION",
		Date:      sp("2026-09-14"),
		StartTime: sp("10:00"),
		EndTime:   sp("11:00"),
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"exc-1"}, resp.AdjustedIDs)
	assert.Empty(t, resp.DeletedIDs)
	assert.Equal(t, models.TimeWindow{StartMinute: 540, EndMinute: 600}, store.updates["exc-1"])
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDeclareRegularReconcilesSameWeekday(t *testing.T) {
	stored := fullDay()
	stored.ID = "reg-1"
	stored.Type = models.AvailabilityRegular
	store := &declStoreMock{weekly: []models.AvailabilityDeclaration{stored}}
	svc, mock := newAvailabilityFixture(t, store)

	mock.ExpectBegin()
	mock.ExpectCommit()

	resp, err := svc.Declare(context.Background(), dto.CreateAvailabilityRequest{
		UserID:    "user-1",
		Type:      "REGULAR",
		DayOfWeek: ip(1),
		FullDay:   true,
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"reg-1"}, resp.DeletedIDs)
	assert.Empty(t, resp.AdjustedIDs)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDeclareRegularLeavesDateRowsAlone(t *testing.T) {
	trap := fullDay()
	trap.ID = "should-not-be-touched"
	trap.Type = models.AvailabilityException
	store := &declStoreMock{rows: []models.AvailabilityDeclaration{trap}}
	svc, mock := newAvailabilityFixture(t, store)

	mock.ExpectBegin()
	mock.ExpectCommit()

	resp, err := svc.Declare(context.Background(), dto.CreateAvailabilityRequest{
		UserID:    "user-1",
		Type:      "REGULAR",
		DayOfWeek: ip(1),
		StartTime: sp("09:00"),
		EndTime:   sp("12:00"),
	})
	require.NoError(t, err)
	assert.Empty(t, resp.DeletedIDs)
	assert.Empty(t, resp.AdjustedIDs)
	assert.Empty(t, store.deletedID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDeclareValidation(t *testing.T) {
	store := &declStoreMock{}
	svc, _ := newAvailabilityFixture(t, store)
	ctx := context.Background()

	cases := []dto.CreateAvailabilityRequest{
		{UserID: "u", Type: "REGULAR"},                                                          // missing day_of_week
		{UserID: "u", Type: "REGULAR", DayOfWeek: ip(1), Date: sp("2026-09-14")},                // both keys
		{UserID: "u", Type: "ABSENCE"},                                                         // missing date
		{UserID: "u", Type: "ABSENCE", Date: sp("2026-09-14"), DayOfWeek: ip(1)},                // both keys
		{UserID: "u", Type: "ABSENCE", Date: sp("09/14/2026")},                                  // bad date
		{UserID: "u", Type: "ABSENCE", Date: sp("2026-09-14"), StartTime: sp("10:00")},          // lone start
		{UserID: "u", Type: "ABSENCE", Date: sp("2026-09-14"), FullDay: true, EndTime: sp("11:00")},
		{UserID: "u", Type: "ABSENCE", Date: sp("2026-09-14"), StartTime: sp("11:00"), EndTime: sp("10:00")},
		{UserID: "u", Type: "ABSENCE", Date: sp("2026-09-14"), StartTime: sp("10:00"), EndTime: sp("10:00")},
	}
	for i, req := range cases {
		_, err := svc.Declare(ctx, req)
		require.Error(t, err, "case %d", i)
		assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code, "case %d", i)
	}
	assert.Empty(t, store.created)
}

func TestDeclareUnknownUser(t *testing.T) {
	tx, _ := newTxProviderMock(t)
	svc := NewAvailabilityService(&declStoreMock{}, &userCheckerMock{exists: false}, tx, nil, validator.New(), zap.NewNop())

	_, err := svc.Declare(context.Background(), dto.CreateAvailabilityRequest{
		UserID: "ghost", Type: "ABSENCE", Date: sp("2026-09-14"), FullDay: true,
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestResolveExceptionReplacesBaseline(t *testing.T) {
	regular := bounded(540, 720)
	regular.Type = models.AvailabilityRegular
	exception := bounded(780, 900)
	exception.Type = models.AvailabilityException
	store := &declStoreMock{
		regular: []models.AvailabilityDeclaration{regular},
		dated:   []models.AvailabilityDeclaration{exception},
	}
	svc, _ := newAvailabilityFixture(t, store)

	resolved, err := svc.Resolve(context.Background(), "user-1", time.Date(2026, 9, 14, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Equal(t, []models.TimeWindow{window(780, 900)}, resolved.Windows)
	assert.True(t, resolved.HasRegular)
	assert.True(t, resolved.HasExceptions)
	assert.False(t, resolved.HasAbsence)
}

func TestResolveAbsenceSubtracts(t *testing.T) {
	regular := bounded(540, 720)
	regular.Type = models.AvailabilityRegular
	absence := bounded(600, 660)
	absence.Type = models.AvailabilityAbsence
	store := &declStoreMock{
		regular: []models.AvailabilityDeclaration{regular},
		dated:   []models.AvailabilityDeclaration{absence},
	}
	svc, _ := newAvailabilityFixture(t, store)

	resolved, err := svc.Resolve(context.Background(), "user-1", time.Date(2026, 9, 14, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Equal(t, []models.TimeWindow{window(540, 600), window(660, 720)}, resolved.Windows)
	assert.True(t, resolved.HasAbsence)
}

func TestResolveFullDayAbsenceEmptiesDay(t *testing.T) {
	regular := bounded(540, 720)
	regular.Type = models.AvailabilityRegular
	absence := fullDay()
	absence.Type = models.AvailabilityAbsence
	store := &declStoreMock{
		regular: []models.AvailabilityDeclaration{regular},
		dated:   []models.AvailabilityDeclaration{absence},
	}
	svc, _ := newAvailabilityFixture(t, store)

	resolved, err := svc.Resolve(context.Background(), "user-1", time.Date(2026, 9, 14, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Empty(t, resolved.Windows)
	assert.True(t, resolved.HasRegular)
	assert.True(t, resolved.HasAbsence)
}

type resolveObserverMock struct {
	observed int
}

func (m *resolveObserverMock) ObserveResolve(time.Duration) { m.observed++ }

func TestResolveRecordsDuration(t *testing.T) {
	tx, _ := newTxProviderMock(t)
	observer := &resolveObserverMock{}
	svc := NewAvailabilityService(&declStoreMock{}, &userCheckerMock{exists: true}, tx, observer, validator.New(), zap.NewNop())

	_, err := svc.Resolve(context.Background(), "user-1", time.Date(2026, 9, 14, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Equal(t, 1, observer.observed)
}

func TestResolveNoDeclarations(t *testing.T) {
	svc, _ := newAvailabilityFixture(t, &declStoreMock{})
	resolved, err := svc.Resolve(context.Background(), "user-1", time.Date(2026, 9, 14, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Empty(t, resolved.Windows)
	assert.False(t, resolved.HasRegular)
	assert.False(t, resolved.HasExceptions)
	assert.False(t, resolved.HasAbsence)
}

func TestBatchImportIsolatesFailures(t *testing.T) {
	store := &declStoreMock{}
	svc, mock := newAvailabilityFixture(t, store)

	// Two good items commit independently; the bad one never opens a tx.
	mock.ExpectBegin()
	mock.ExpectCommit()
	mock.ExpectBegin()
	mock.ExpectCommit()

	resp, err := svc.BatchImport(context.Background(), dto.BatchAvailabilityRequest{
		Overwrite: true,
		Items: []dto.CreateAvailabilityRequest{
			{UserID: "user-1", Type: "REGULAR", DayOfWeek: ip(2), StartTime: sp("09:00"), EndTime: sp("12:00")},
			{UserID: "user-1", Type: "ABSENCE"}, // missing date
			{UserID: "user-1", Type: "ABSENCE", Date: sp("2026-09-14"), FullDay: true},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, 2, resp.Succeeded)
	assert.Equal(t, 1, resp.Failed)
	require.Len(t, resp.Items, 3)
	assert.NotEmpty(t, resp.Items[1].Error)
	assert.True(t, store.overwrote)
	assert.NoError(t, mock.ExpectationsWereMet())
}

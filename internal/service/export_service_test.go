package service

import (
	"context"
	"database/sql"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/aozorajuku/scheduler-api/internal/models"
	appErrors "github.com/aozorajuku/scheduler-api/pkg/errors"
)

type exportListerMock struct {
	sessions []models.ClassSession
}

func (m *exportListerMock) ListByBranchAndDate(_ context.Context, _ string, _ time.Time) ([]models.ClassSession, error) {
	return m.sessions, nil
}

type exportDirectoryMock struct {
	branch *models.Branch
}

func (m *exportDirectoryMock) FindBranch(_ context.Context, id string) (*models.Branch, error) {
	if m.branch == nil {
		return nil, sql.ErrNoRows
	}
	return m.branch, nil
}

func (m *exportDirectoryMock) NamesForSessions(_ context.Context, _ []models.ClassSession) (map[string]string, map[string]string, map[string]string, error) {
	return map[string]string{"teacher-1": "Sato"},
		map[string]string{"student-1": "Tanaka"},
		map[string]string{"booth-1": "Booth A"},
		nil
}

func TestDayTimetableCSV(t *testing.T) {
	subject := "Math"
	lister := &exportListerMock{sessions: []models.ClassSession{{
		ID: "s1", BranchID: "branch-1", TeacherID: "teacher-1", StudentID: "student-1", BoothID: "booth-1",
		Date: time.Date(2026, 9, 14, 0, 0, 0, 0, time.UTC), StartMinute: 600, EndMinute: 660, Subject: &subject,
	}}}
	svc := NewExportService(lister, &exportDirectoryMock{branch: &models.Branch{ID: "branch-1", Name: "Shibuya"}}, zap.NewNop())

	payload, filename, err := svc.DayTimetableCSV(context.Background(), "branch-1", time.Date(2026, 9, 14, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Equal(t, "timetable_branch-1_2026-09-14.csv", filename)

	lines := strings.Split(strings.TrimSpace(string(payload)), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, "Start,End,Booth,Teacher,Student,Subject", lines[0])
	assert.Equal(t, "10:00,11:00,Booth A,Sato,Tanaka,Math", lines[1])
}

func TestDayTimetableCSVUnknownBranch(t *testing.T) {
	svc := NewExportService(&exportListerMock{}, &exportDirectoryMock{}, zap.NewNop())
	_, _, err := svc.DayTimetableCSV(context.Background(), "ghost", time.Now())
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestDayTimetablePDF(t *testing.T) {
	lister := &exportListerMock{sessions: []models.ClassSession{{
		ID: "s1", BranchID: "branch-1", TeacherID: "teacher-1", StudentID: "student-1", BoothID: "booth-1",
		Date: time.Date(2026, 9, 14, 0, 0, 0, 0, time.UTC), StartMinute: 600, EndMinute: 660,
	}}}
	svc := NewExportService(lister, &exportDirectoryMock{branch: &models.Branch{ID: "branch-1", Name: "Shibuya"}}, zap.NewNop())

	payload, filename, err := svc.DayTimetablePDF(context.Background(), "branch-1", time.Date(2026, 9, 14, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Equal(t, "timetable_branch-1_2026-09-14.pdf", filename)
	assert.True(t, strings.HasPrefix(string(payload), "%PDF"))
}

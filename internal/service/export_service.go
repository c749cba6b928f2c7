package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/aozorajuku/scheduler-api/internal/models"
	appErrors "github.com/aozorajuku/scheduler-api/pkg/errors"
	"github.com/aozorajuku/scheduler-api/pkg/export"
)

type exportSessionLister interface {
	ListByBranchAndDate(ctx context.Context, branchID string, date time.Time) ([]models.ClassSession, error)
}

type exportDirectory interface {
	FindBranch(ctx context.Context, id string) (*models.Branch, error)
	NamesForSessions(ctx context.Context, sessions []models.ClassSession) (teachers, students, booths map[string]string, err error)
}

// ExportService renders a branch's day timetable as CSV or PDF.
type ExportService struct {
	sessions  exportSessionLister
	directory exportDirectory
	csv       *export.CSVExporter
	pdf       *export.PDFExporter
	logger    *zap.Logger
}

// NewExportService constructs the service.
func NewExportService(sessions exportSessionLister, directory exportDirectory, logger *zap.Logger) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ExportService{
		sessions:  sessions,
		directory: directory,
		csv:       export.NewCSVExporter(),
		pdf:       export.NewPDFExporter(),
		logger:    logger,
	}
}

var timetableHeaders = []string{"Start", "End", "Booth", "Teacher", "Student", "Subject"}

func (s *ExportService) dayTimetable(ctx context.Context, branchID string, date time.Time) (export.Table, *models.Branch, error) {
	branch, err := s.directory.FindBranch(ctx, branchID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return export.Table{}, nil, appErrors.Clone(appErrors.ErrNotFound, "branch not found")
		}
		return export.Table{}, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load branch")
	}

	sessions, err := s.sessions.ListByBranchAndDate(ctx, branchID, civilDate(date))
	if err != nil {
		return export.Table{}, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load sessions")
	}
	teachers, students, booths, err := s.directory.NamesForSessions(ctx, sessions)
	if err != nil {
		return export.Table{}, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to resolve names")
	}

	name := func(names map[string]string, id string) string {
		if n, ok := names[id]; ok {
			return n
		}
		return id
	}

	table := export.Table{Headers: timetableHeaders, Records: make([][]string, 0, len(sessions))}
	for _, session := range sessions {
		subject := ""
		if session.Subject != nil {
			subject = *session.Subject
		}
		table.Records = append(table.Records, []string{
			formatClock(session.StartMinute),
			formatClock(session.EndMinute),
			name(booths, session.BoothID),
			name(teachers, session.TeacherID),
			name(students, session.StudentID),
			subject,
		})
	}
	return table, branch, nil
}

// DayTimetableCSV renders the branch timetable for one date as CSV.
func (s *ExportService) DayTimetableCSV(ctx context.Context, branchID string, date time.Time) ([]byte, string, error) {
	table, _, err := s.dayTimetable(ctx, branchID, date)
	if err != nil {
		return nil, "", err
	}
	payload, err := s.csv.Render(table)
	if err != nil {
		return nil, "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render csv")
	}
	filename := fmt.Sprintf("timetable_%s_%s.csv", branchID, civilDate(date).Format("2006-01-02"))
	return payload, filename, nil
}

// DayTimetablePDF renders the branch timetable for one date as a printable PDF.
func (s *ExportService) DayTimetablePDF(ctx context.Context, branchID string, date time.Time) ([]byte, string, error) {
	table, branch, err := s.dayTimetable(ctx, branchID, date)
	if err != nil {
		return nil, "", err
	}
	day := civilDate(date).Format("2006-01-02")
	payload, err := s.pdf.Render(table, branch.Name+" Timetable", day)
	if err != nil {
		return nil, "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render pdf")
	}
	filename := fmt.Sprintf("timetable_%s_%s.pdf", branchID, day)
	return payload, filename, nil
}

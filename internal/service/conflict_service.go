package service

import (
	"context"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/aozorajuku/scheduler-api/internal/dto"
	"github.com/aozorajuku/scheduler-api/internal/models"
	appErrors "github.com/aozorajuku/scheduler-api/pkg/errors"
)

type availabilityResolver interface {
	Resolve(ctx context.Context, userID string, date time.Time) (*models.ResolvedAvailability, error)
}

type sessionOverlapLister interface {
	ListOverlapping(ctx context.Context, exec sqlx.ExtContext, candidate models.SessionCandidate, excludeSessionID *string) ([]models.ClassSession, error)
}

type policyResolver interface {
	Effective(ctx context.Context, branchID string) (*models.EffectiveSchedulingPolicy, error)
}

type conflictMetrics interface {
	ObserveConflictCheck(blocking bool)
}

// ConflictService classifies candidate sessions: shared-availability verdicts
// for the two parties and hard double-booking scans on the teacher, student
// and booth keys.
type ConflictService struct {
	resolver availabilityResolver
	sessions sessionOverlapLister
	policies policyResolver
	metrics  conflictMetrics
	validate *validator.Validate
	logger   *zap.Logger
}

// NewConflictService constructs the service. metrics may be nil.
func NewConflictService(resolver availabilityResolver, sessions sessionOverlapLister, policies policyResolver, metrics conflictMetrics, validate *validator.Validate, logger *zap.Logger) *ConflictService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ConflictService{resolver: resolver, sessions: sessions, policies: policies, metrics: metrics, validate: validate, logger: logger}
}

// SharedAvailability reports whether teacher and student can both host the
// candidate range. Per-party verdicts distinguish "no availability at all"
// from "available, but not at that time".
func (s *ConflictService) SharedAvailability(ctx context.Context, req dto.SharedAvailabilityRequest) (*models.SharedAvailabilityResult, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid shared availability payload")
	}
	date, start, end, err := parseCandidateRange(req.Date, req.StartTime, req.EndTime)
	if err != nil {
		return nil, err
	}
	return s.sharedAvailability(ctx, req.TeacherID, req.StudentID, date, start, end)
}

// SharedFor is the parsed-argument variant of SharedAvailability used by the
// session booking and generation paths.
func (s *ConflictService) SharedFor(ctx context.Context, teacherID, studentID string, date time.Time, start, end int) (*models.SharedAvailabilityResult, error) {
	return s.sharedAvailability(ctx, teacherID, studentID, date, start, end)
}

func (s *ConflictService) sharedAvailability(ctx context.Context, teacherID, studentID string, date time.Time, start, end int) (*models.SharedAvailabilityResult, error) {
	teacher, err := s.partyAvailability(ctx, teacherID, date, start, end, models.ConflictTeacherUnavailable, models.ConflictTeacherWrongTime)
	if err != nil {
		return nil, err
	}
	student, err := s.partyAvailability(ctx, studentID, date, start, end, models.ConflictStudentUnavailable, models.ConflictStudentWrongTime)
	if err != nil {
		return nil, err
	}

	result := &models.SharedAvailabilityResult{Teacher: *teacher, Student: *student}
	result.Intersection = intersectWindows(teacher.Windows, student.Windows)

	for _, party := range []*models.PartyAvailability{teacher, student} {
		if party.ConflictType == nil {
			continue
		}
		result.Findings = append(result.Findings, models.ConflictFinding{
			Type:    *party.ConflictType,
			Date:    date,
			UserID:  &party.UserID,
			Windows: party.Windows,
			Message: conflictMessage(*party.ConflictType),
		})
	}

	if teacher.ConflictType == nil && student.ConflictType == nil {
		if windowsContain(result.Intersection, start, end) {
			result.Available = true
		} else {
			result.Findings = append(result.Findings, models.ConflictFinding{
				Type:    models.ConflictNoSharedAvailability,
				Date:    date,
				Windows: result.Intersection,
				Message: conflictMessage(models.ConflictNoSharedAvailability),
			})
		}
	}
	return result, nil
}

// partyAvailability classifies one party against the candidate range.
func (s *ConflictService) partyAvailability(ctx context.Context, userID string, date time.Time, start, end int, unavailable, wrongTime models.ConflictType) (*models.PartyAvailability, error) {
	resolved, err := s.resolver.Resolve(ctx, userID, date)
	if err != nil {
		return nil, err
	}
	party := &models.PartyAvailability{
		UserID:       userID,
		Windows:      resolved.Windows,
		HasRegular:   resolved.HasRegular,
		HasException: resolved.HasExceptions,
		HasAbsence:   resolved.HasAbsence,
	}
	switch {
	case len(resolved.Windows) == 0:
		party.ConflictType = &unavailable
	case !windowsContain(resolved.Windows, start, end):
		party.ConflictType = &wrongTime
	default:
		party.Available = true
	}
	return party, nil
}

// HardConflicts scans active sessions for double-bookings against the
// candidate. One finding per colliding resource key, keyed on the first
// collision found in start order. excludeSessionID exempts a session being
// rescheduled from colliding with itself.
func (s *ConflictService) HardConflicts(ctx context.Context, exec sqlx.ExtContext, candidate models.SessionCandidate, excludeSessionID *string) ([]models.ConflictFinding, error) {
	sessions, err := s.sessions.ListOverlapping(ctx, exec, candidate, excludeSessionID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to scan sessions")
	}

	var findings []models.ConflictFinding
	seen := make(map[models.ConflictType]bool)
	record := func(t models.ConflictType, userID *string, session models.ClassSession) {
		if seen[t] {
			return
		}
		seen[t] = true
		sessionID := session.ID
		findings = append(findings, models.ConflictFinding{
			Type:      t,
			Date:      candidate.Date,
			UserID:    userID,
			SessionID: &sessionID,
			Windows:   []models.TimeWindow{{StartMinute: session.StartMinute, EndMinute: session.EndMinute}},
			Blocking:  true,
			Message:   conflictMessage(t),
		})
	}

	for _, session := range sessions {
		if !minutesOverlap(session.StartMinute, session.EndMinute, candidate.StartMinute, candidate.EndMinute) {
			continue
		}
		if candidate.TeacherID != "" && session.TeacherID == candidate.TeacherID {
			record(models.ConflictTeacherBooked, &session.TeacherID, session)
		}
		if candidate.StudentID != "" && session.StudentID == candidate.StudentID {
			record(models.ConflictStudentBooked, &session.StudentID, session)
		}
		if candidate.BoothID != "" && session.BoothID == candidate.BoothID {
			record(models.ConflictBoothBooked, nil, session)
		}
	}
	return findings, nil
}

// Check previews the full conflict report a create call would evaluate:
// hard double-bookings, the shared-availability verdict when both parties are
// present, and each finding's blocking flag under the branch's policy.
func (s *ConflictService) Check(ctx context.Context, req dto.CheckConflictsRequest) (*dto.ConflictReport, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid conflict check payload")
	}
	date, start, end, err := parseCandidateRange(req.Date, req.StartTime, req.EndTime)
	if err != nil {
		return nil, err
	}

	policy, err := s.policies.Effective(ctx, req.BranchID)
	if err != nil {
		return nil, err
	}

	candidate := models.SessionCandidate{
		BranchID:    req.BranchID,
		TeacherID:   req.TeacherID,
		StudentID:   req.StudentID,
		BoothID:     req.BoothID,
		Date:        date,
		StartMinute: start,
		EndMinute:   end,
	}

	report := &dto.ConflictReport{Policy: *policy}

	hard, err := s.HardConflicts(ctx, nil, candidate, req.ExcludeSessionID)
	if err != nil {
		return nil, err
	}
	report.Findings = append(report.Findings, hard...)

	if req.TeacherID != "" && req.StudentID != "" {
		shared, err := s.sharedAvailability(ctx, req.TeacherID, req.StudentID, date, start, end)
		if err != nil {
			return nil, err
		}
		report.Shared = shared
		for _, finding := range shared.Findings {
			finding.Blocking = policy.Blocks(finding.Type)
			report.Findings = append(report.Findings, finding)
		}
	}

	for _, finding := range report.Findings {
		if finding.Blocking {
			report.Blocking = true
			break
		}
	}
	report.Allowed = !report.Blocking

	if s.metrics != nil {
		s.metrics.ObserveConflictCheck(report.Blocking)
	}
	return report, nil
}

func parseCandidateRange(rawDate, rawStart, rawEnd string) (time.Time, int, int, error) {
	date, err := parseCivilDate(rawDate)
	if err != nil {
		return time.Time{}, 0, 0, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid date")
	}
	start, err := parseClock(rawStart)
	if err != nil {
		return time.Time{}, 0, 0, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid start_time")
	}
	end, err := parseClock(rawEnd)
	if err != nil {
		return time.Time{}, 0, 0, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid end_time")
	}
	if start >= end {
		return time.Time{}, 0, 0, appErrors.Clone(appErrors.ErrValidation, "start_time must be before end_time")
	}
	return date, start, end, nil
}

func conflictMessage(t models.ConflictType) string {
	switch t {
	case models.ConflictTeacherBooked:
		return "teacher already has a session in this range"
	case models.ConflictStudentBooked:
		return "student already has a session in this range"
	case models.ConflictBoothBooked:
		return "booth already hosts a session in this range"
	case models.ConflictTeacherUnavailable:
		return "teacher has no availability on this date"
	case models.ConflictStudentUnavailable:
		return "student has no availability on this date"
	case models.ConflictTeacherWrongTime:
		return "teacher is available on this date but not in this range"
	case models.ConflictStudentWrongTime:
		return "student is available on this date but not in this range"
	case models.ConflictNoSharedAvailability:
		return "teacher and student share no availability covering this range"
	default:
		return fmt.Sprintf("scheduling conflict: %s", t)
	}
}

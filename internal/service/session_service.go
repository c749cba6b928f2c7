package service

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/aozorajuku/scheduler-api/internal/dto"
	"github.com/aozorajuku/scheduler-api/internal/models"
	appErrors "github.com/aozorajuku/scheduler-api/pkg/errors"
)

// GenerationJobType tags queued template-expansion jobs.
const GenerationJobType = "session_generation"

type sessionStore interface {
	Create(ctx context.Context, exec sqlx.ExtContext, session *models.ClassSession) error
	Update(ctx context.Context, exec sqlx.ExtContext, session *models.ClassSession) error
	Cancel(ctx context.Context, exec sqlx.ExtContext, id string) error
	FindByID(ctx context.Context, id string) (*models.ClassSession, error)
	List(ctx context.Context, filter models.SessionFilter) ([]models.ClassSession, int, error)
}

type conflictEngine interface {
	HardConflicts(ctx context.Context, exec sqlx.ExtContext, candidate models.SessionCandidate, excludeSessionID *string) ([]models.ConflictFinding, error)
	SharedFor(ctx context.Context, teacherID, studentID string, date time.Time, start, end int) (*models.SharedAvailabilityResult, error)
}

type directoryChecker interface {
	BranchExists(ctx context.Context, id string) (bool, error)
	TeacherExists(ctx context.Context, id string) (bool, error)
	StudentExists(ctx context.Context, id string) (bool, error)
	BoothExists(ctx context.Context, id string) (bool, error)
}

type generationEnqueuer interface {
	EnqueueGeneration(jobID string, req dto.GenerateSessionsRequest) error
}

// SessionService books, moves and cancels class sessions, re-checking hard
// conflicts inside the write transaction so two racing creates cannot both
// land. Soft conflicts gate on the branch policy; force bypasses only those.
type SessionService struct {
	sessions  sessionStore
	conflicts conflictEngine
	policies  policyResolver
	directory directoryChecker
	queue     generationEnqueuer
	tx        txProvider
	validate  *validator.Validate
	logger    *zap.Logger
}

// NewSessionService constructs the service. queue may be nil; generation then
// runs synchronously only.
func NewSessionService(sessions sessionStore, conflicts conflictEngine, policies policyResolver, directory directoryChecker, queue generationEnqueuer, tx txProvider, validate *validator.Validate, logger *zap.Logger) *SessionService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SessionService{
		sessions:  sessions,
		conflicts: conflicts,
		policies:  policies,
		directory: directory,
		queue:     queue,
		tx:        tx,
		validate:  validate,
		logger:    logger,
	}
}

// Create books a session. Hard conflicts always reject; soft conflicts reject
// unless the branch policy allows them or force is set. The hard scan repeats
// inside the insert transaction so a racing booking cannot slip in between
// check and write.
func (s *SessionService) Create(ctx context.Context, req dto.CreateSessionRequest) (*dto.SessionResult, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid session payload")
	}
	date, start, end, err := parseCandidateRange(req.Date, req.StartTime, req.EndTime)
	if err != nil {
		return nil, err
	}
	if err := s.checkDirectory(ctx, req.BranchID, req.TeacherID, req.StudentID, req.BoothID); err != nil {
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

	findings, err := s.evaluate(ctx, candidate, nil, req.Force)
	if err != nil {
		return nil, err
	}

	session := &models.ClassSession{
		BranchID:    req.BranchID,
		TeacherID:   req.TeacherID,
		StudentID:   req.StudentID,
		BoothID:     req.BoothID,
		Date:        date,
		StartMinute: start,
		EndMinute:   end,
		Subject:     req.Subject,
		Notes:       req.Notes,
	}
	if err := s.writeSession(ctx, candidate, nil, func(tx *sqlx.Tx) error {
		return s.sessions.Create(ctx, tx, session)
	}); err != nil {
		return nil, err
	}

	s.logger.Info("session created",
		zap.String("sessionId", session.ID),
		zap.String("branchId", session.BranchID),
		zap.Time("date", session.Date))
	return &dto.SessionResult{Session: *session, Findings: findings}, nil
}

// Reschedule moves a session to a new booth, date or range. The session being
// moved never collides with itself.
func (s *SessionService) Reschedule(ctx context.Context, id string, req dto.RescheduleSessionRequest) (*dto.SessionResult, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid reschedule payload")
	}
	date, start, end, err := parseCandidateRange(req.Date, req.StartTime, req.EndTime)
	if err != nil {
		return nil, err
	}

	session, err := s.sessions.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "session not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load session")
	}
	if session.IsCancelled {
		return nil, appErrors.Clone(appErrors.ErrConflict, "cancelled sessions cannot be rescheduled")
	}
	if exists, err := s.directory.BoothExists(ctx, req.BoothID); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to verify booth")
	} else if !exists {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "booth not found")
	}

	candidate := models.SessionCandidate{
		BranchID:    session.BranchID,
		TeacherID:   session.TeacherID,
		StudentID:   session.StudentID,
		BoothID:     req.BoothID,
		Date:        date,
		StartMinute: start,
		EndMinute:   end,
	}

	findings, err := s.evaluate(ctx, candidate, &session.ID, req.Force)
	if err != nil {
		return nil, err
	}

	session.BoothID = req.BoothID
	session.Date = date
	session.StartMinute = start
	session.EndMinute = end
	if req.Notes != nil {
		session.Notes = req.Notes
	}
	if err := s.writeSession(ctx, candidate, &session.ID, func(tx *sqlx.Tx) error {
		return s.sessions.Update(ctx, tx, session)
	}); err != nil {
		return nil, err
	}

	s.logger.Info("session rescheduled", zap.String("sessionId", session.ID), zap.Time("date", date))
	return &dto.SessionResult{Session: *session, Findings: findings}, nil
}

// Cancel soft-cancels a session.
func (s *SessionService) Cancel(ctx context.Context, id string) error {
	session, err := s.sessions.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "session not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load session")
	}
	if session.IsCancelled {
		return appErrors.Clone(appErrors.ErrConflict, "session already cancelled")
	}
	if err := s.sessions.Cancel(ctx, nil, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrConflict, "session already cancelled")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to cancel session")
	}
	s.logger.Info("session cancelled", zap.String("sessionId", id))
	return nil
}

// Get fetches one session.
func (s *SessionService) Get(ctx context.Context, id string) (*models.ClassSession, error) {
	session, err := s.sessions.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "session not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load session")
	}
	return session, nil
}

// List returns sessions matching the filter.
func (s *SessionService) List(ctx context.Context, filter models.SessionFilter) ([]models.ClassSession, *models.Pagination, error) {
	sessions, total, err := s.sessions.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list sessions")
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 200 {
		size = 50
	}
	return sessions, &models.Pagination{Page: page, PageSize: size, TotalCount: total}, nil
}

// Generate expands a weekly template into concrete sessions across the
// branch's generation horizon. Conflicted dates are skipped with reasons, not
// failed; generation is an optimistic bulk operation.
func (s *SessionService) Generate(ctx context.Context, req dto.GenerateSessionsRequest) (*dto.GenerationSummary, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid generation payload")
	}
	if err := s.checkDirectory(ctx, req.BranchID, req.TeacherID, req.StudentID, req.BoothID); err != nil {
		return nil, err
	}
	start, err := parseClock(req.StartTime)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid start_time")
	}
	end, err := parseClock(req.EndTime)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid end_time")
	}
	if start >= end {
		return nil, appErrors.Clone(appErrors.ErrValidation, "start_time must be before end_time")
	}

	from := civilDate(time.Now().UTC())
	if req.FromDate != nil {
		from, err = parseCivilDate(*req.FromDate)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid from_date")
		}
	}

	policy, err := s.policies.Effective(ctx, req.BranchID)
	if err != nil {
		return nil, err
	}
	until := from.AddDate(0, policy.GenerationMonths, 0)

	summary := &dto.GenerationSummary{}
	for date := from; date.Before(until); date = date.AddDate(0, 0, 1) {
		if int(date.Weekday()) != req.DayOfWeek {
			continue
		}
		summary.Requested++

		candidate := models.SessionCandidate{
			BranchID:    req.BranchID,
			TeacherID:   req.TeacherID,
			StudentID:   req.StudentID,
			BoothID:     req.BoothID,
			Date:        date,
			StartMinute: start,
			EndMinute:   end,
		}
		reasons, err := s.blockingReasons(ctx, candidate, policy)
		if err != nil {
			return nil, err
		}
		if len(reasons) > 0 {
			summary.Skipped = append(summary.Skipped, dto.SkippedDate{Date: date, Reasons: reasons})
			continue
		}

		session := &models.ClassSession{
			BranchID:    req.BranchID,
			TeacherID:   req.TeacherID,
			StudentID:   req.StudentID,
			BoothID:     req.BoothID,
			Date:        date,
			StartMinute: start,
			EndMinute:   end,
			Subject:     req.Subject,
		}
		if err := s.writeSession(ctx, candidate, nil, func(tx *sqlx.Tx) error {
			return s.sessions.Create(ctx, tx, session)
		}); err != nil {
			var typed *appErrors.Error
			if errors.As(err, &typed) && typed.Code == appErrors.ErrConflict.Code {
				summary.Skipped = append(summary.Skipped, dto.SkippedDate{Date: date, Reasons: conflictReasons(err)})
				continue
			}
			return nil, err
		}
		summary.Created++
	}

	s.logger.Info("session generation finished",
		zap.String("branchId", req.BranchID),
		zap.Int("requested", summary.Requested),
		zap.Int("created", summary.Created),
		zap.Int("skipped", len(summary.Skipped)))
	return summary, nil
}

// EnqueueGeneration hands a generation request to the background queue.
func (s *SessionService) EnqueueGeneration(ctx context.Context, req dto.GenerateSessionsRequest) (*dto.EnqueuedGeneration, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid generation payload")
	}
	if s.queue == nil {
		return nil, appErrors.Clone(appErrors.ErrPreconditionFailed, "background generation is disabled")
	}
	if err := s.checkDirectory(ctx, req.BranchID, req.TeacherID, req.StudentID, req.BoothID); err != nil {
		return nil, err
	}

	jobID := uuid.NewString()
	if err := s.queue.EnqueueGeneration(jobID, req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to enqueue generation")
	}
	return &dto.EnqueuedGeneration{JobID: jobID}, nil
}

// evaluate runs the pre-write conflict pass. Hard findings always reject.
// Soft findings reject when the policy marks them blocking, unless force.
// The surviving findings are returned for the response.
func (s *SessionService) evaluate(ctx context.Context, candidate models.SessionCandidate, excludeSessionID *string, force bool) ([]models.ConflictFinding, error) {
	hard, err := s.conflicts.HardConflicts(ctx, nil, candidate, excludeSessionID)
	if err != nil {
		return nil, err
	}
	if len(hard) > 0 {
		return nil, conflictError(hard)
	}

	policy, err := s.policies.Effective(ctx, candidate.BranchID)
	if err != nil {
		return nil, err
	}
	shared, err := s.conflicts.SharedFor(ctx, candidate.TeacherID, candidate.StudentID, candidate.Date, candidate.StartMinute, candidate.EndMinute)
	if err != nil {
		return nil, err
	}

	findings := make([]models.ConflictFinding, 0, len(shared.Findings))
	var blocked []models.ConflictFinding
	for _, finding := range shared.Findings {
		finding.Blocking = policy.Blocks(finding.Type)
		findings = append(findings, finding)
		if finding.Blocking && !force {
			blocked = append(blocked, finding)
		}
	}
	if len(blocked) > 0 {
		return nil, conflictError(blocked)
	}
	return findings, nil
}

// blockingReasons is the generation-time variant of evaluate: it reports why
// a date would be skipped instead of failing.
func (s *SessionService) blockingReasons(ctx context.Context, candidate models.SessionCandidate, policy *models.EffectiveSchedulingPolicy) ([]models.ConflictType, error) {
	var reasons []models.ConflictType

	hard, err := s.conflicts.HardConflicts(ctx, nil, candidate, nil)
	if err != nil {
		return nil, err
	}
	for _, finding := range hard {
		reasons = append(reasons, finding.Type)
	}

	shared, err := s.conflicts.SharedFor(ctx, candidate.TeacherID, candidate.StudentID, candidate.Date, candidate.StartMinute, candidate.EndMinute)
	if err != nil {
		return nil, err
	}
	for _, finding := range shared.Findings {
		if policy.Blocks(finding.Type) {
			reasons = append(reasons, finding.Type)
		}
	}
	return reasons, nil
}

// writeSession opens the write transaction, repeats the hard-conflict scan
// against committed rows, and applies the write.
func (s *SessionService) writeSession(ctx context.Context, candidate models.SessionCandidate, excludeSessionID *string, write func(tx *sqlx.Tx) error) (err error) {
	tx, err := s.tx.BeginTxx(ctx, nil)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to begin transaction")
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	hard, err := s.conflicts.HardConflicts(ctx, tx, candidate, excludeSessionID)
	if err != nil {
		return err
	}
	if len(hard) > 0 {
		err = conflictError(hard)
		return err
	}

	if err = write(tx); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to write session")
	}
	if err = tx.Commit(); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to commit session")
	}
	return nil
}

func (s *SessionService) checkDirectory(ctx context.Context, branchID, teacherID, studentID, boothID string) error {
	checks := []struct {
		name   string
		id     string
		exists func(context.Context, string) (bool, error)
	}{
		{"branch", branchID, s.directory.BranchExists},
		{"teacher", teacherID, s.directory.TeacherExists},
		{"student", studentID, s.directory.StudentExists},
		{"booth", boothID, s.directory.BoothExists},
	}
	for _, check := range checks {
		exists, err := check.exists(ctx, check.id)
		if err != nil {
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to verify "+check.name)
		}
		if !exists {
			return appErrors.Clone(appErrors.ErrNotFound, check.name+" not found")
		}
	}
	return nil
}

// conflictError wraps findings into a typed conflict error so handlers can
// surface them in the error payload.
type ConflictDetailsError struct {
	Findings []models.ConflictFinding
}

func (e *ConflictDetailsError) Error() string {
	return "scheduling conflicts detected"
}

func conflictError(findings []models.ConflictFinding) error {
	return appErrors.Wrap(&ConflictDetailsError{Findings: findings}, appErrors.ErrConflict.Code, appErrors.ErrConflict.Status, "scheduling conflicts detected")
}

func conflictReasons(err error) []models.ConflictType {
	var details *ConflictDetailsError
	if !errors.As(err, &details) {
		return nil
	}
	reasons := make([]models.ConflictType, 0, len(details.Findings))
	for _, finding := range details.Findings {
		reasons = append(reasons, finding.Type)
	}
	return reasons
}

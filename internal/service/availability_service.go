package service

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/aozorajuku/scheduler-api/internal/dto"
	"github.com/aozorajuku/scheduler-api/internal/models"
	appErrors "github.com/aozorajuku/scheduler-api/pkg/errors"
)

type availabilityStore interface {
	Create(ctx context.Context, exec sqlx.ExtContext, decl *models.AvailabilityDeclaration) error
	ListActiveByTypeAndDate(ctx context.Context, exec sqlx.ExtContext, userID string, declType models.AvailabilityType, date time.Time) ([]models.AvailabilityDeclaration, error)
	ListActiveByTypeAndWeekday(ctx context.Context, exec sqlx.ExtContext, userID string, declType models.AvailabilityType, weekday int) ([]models.AvailabilityDeclaration, error)
	UpdateWindow(ctx context.Context, exec sqlx.ExtContext, id string, fullDay bool, startMinute, endMinute *int) error
	Delete(ctx context.Context, exec sqlx.ExtContext, id string) error
	DeleteMatching(ctx context.Context, exec sqlx.ExtContext, userID string, declType models.AvailabilityType, dayOfWeek *int, date *time.Time) (int64, error)
	ListRegularByWeekday(ctx context.Context, userID string, weekday int) ([]models.AvailabilityDeclaration, error)
	ListActiveByDate(ctx context.Context, userID string, date time.Time) ([]models.AvailabilityDeclaration, error)
	List(ctx context.Context, filter models.AvailabilityFilter) ([]models.AvailabilityDeclaration, int, error)
	FindByID(ctx context.Context, id string) (*models.AvailabilityDeclaration, error)
}

type userChecker interface {
	UserExists(ctx context.Context, id string) (bool, error)
}

type txProvider interface {
	BeginTxx(ctx context.Context, opts *sql.TxOptions) (*sqlx.Tx, error)
}

type resolveMetrics interface {
	ObserveResolve(duration time.Duration)
}

// AvailabilityService owns availability declarations: the ladder adjustment
// applied on insert, batch imports, per-date resolution and listings.
type AvailabilityService struct {
	decls     availabilityStore
	directory userChecker
	tx        txProvider
	metrics   resolveMetrics
	validate  *validator.Validate
	logger    *zap.Logger
}

// NewAvailabilityService constructs the service. metrics may be nil.
func NewAvailabilityService(decls availabilityStore, directory userChecker, tx txProvider, metrics resolveMetrics, validate *validator.Validate, logger *zap.Logger) *AvailabilityService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AvailabilityService{decls: decls, directory: directory, tx: tx, metrics: metrics, validate: validate, logger: logger}
}

// Declare stores a new declaration, trimming or deleting any stored rows it
// overlaps: same-type rows under the same key always, and for date-specific
// types the opposite-type rows on the same date. The newest statement wins,
// and the insert with every adjustment commits atomically.
func (s *AvailabilityService) Declare(ctx context.Context, req dto.CreateAvailabilityRequest) (*dto.InsertAvailabilityResponse, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid availability payload")
	}
	decl, err := s.buildDeclaration(req)
	if err != nil {
		return nil, err
	}

	exists, err := s.directory.UserExists(ctx, decl.UserID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to verify user")
	}
	if !exists {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "user not found")
	}

	tx, err := s.tx.BeginTxx(ctx, nil)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to begin transaction")
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	response, err := s.declareInTx(ctx, tx, decl)
	if err != nil {
		return nil, err
	}

	if err = tx.Commit(); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to commit availability")
	}
	return response, nil
}

func (s *AvailabilityService) declareInTx(ctx context.Context, tx *sqlx.Tx, decl *models.AvailabilityDeclaration) (*dto.InsertAvailabilityResponse, error) {
	adjusted, deleted, err := s.reconcile(ctx, tx, decl)
	if err != nil {
		return nil, err
	}
	if err := s.decls.Create(ctx, tx, decl); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store availability")
	}

	if len(adjusted) > 0 || len(deleted) > 0 {
		s.logger.Info("availability insert reconciled stored declarations",
			zap.String("userId", decl.UserID),
			zap.String("type", string(decl.Type)),
			zap.Strings("adjusted", adjusted),
			zap.Strings("deleted", deleted))
	}
	return &dto.InsertAvailabilityResponse{Stored: *decl, AdjustedIDs: adjusted, DeletedIDs: deleted}, nil
}

// reconcile runs the ladder over every stored row the new declaration can
// overlap. Same-type rows under the same key go first, keeping the interval
// set non-overlapping and making repeated identical inserts collapse to one
// row; date-specific types then trim opposite-type rows on the same date.
// The new row itself is never modified.
func (s *AvailabilityService) reconcile(ctx context.Context, tx *sqlx.Tx, decl *models.AvailabilityDeclaration) (adjusted, deleted []string, err error) {
	if decl.Empty() {
		return nil, nil, nil
	}

	var existing []models.AvailabilityDeclaration
	switch {
	case decl.Date != nil:
		existing, err = s.decls.ListActiveByTypeAndDate(ctx, tx, decl.UserID, decl.Type, *decl.Date)
		if err == nil {
			if opposite, ok := decl.Type.Opposite(); ok {
				var rows []models.AvailabilityDeclaration
				rows, err = s.decls.ListActiveByTypeAndDate(ctx, tx, decl.UserID, opposite, *decl.Date)
				existing = append(existing, rows...)
			}
		}
	case decl.DayOfWeek != nil:
		existing, err = s.decls.ListActiveByTypeAndWeekday(ctx, tx, decl.UserID, decl.Type, *decl.DayOfWeek)
	}
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load overlapping declarations")
	}

	for _, row := range existing {
		action := resolveLadder(row, *decl)
		switch action.kind {
		case ladderKeep:
			continue
		case ladderDelete:
			if err := s.decls.Delete(ctx, tx, row.ID); err != nil {
				return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete trimmed declaration")
			}
			deleted = append(deleted, row.ID)
		case ladderShrink:
			start, end := action.start, action.end
			if err := s.decls.UpdateWindow(ctx, tx, row.ID, false, &start, &end); err != nil {
				return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to shrink trimmed declaration")
			}
			adjusted = append(adjusted, row.ID)
		}
	}
	return adjusted, deleted, nil
}

type ladderActionKind int

const (
	ladderKeep ladderActionKind = iota
	ladderDelete
	ladderShrink
)

type ladderAction struct {
	kind  ladderActionKind
	start int
	end   int
}

// resolveLadder decides what happens to an existing row when a new declaration
// lands on the same key. The new declaration always survives intact; the
// existing row is kept, deleted, or shrunk to one remainder.
func resolveLadder(existing, incoming models.AvailabilityDeclaration) ladderAction {
	if existing.Empty() {
		return ladderAction{kind: ladderKeep}
	}

	if existing.FullDay {
		if incoming.FullDay {
			return ladderAction{kind: ladderDelete}
		}
		c := *incoming.StartMinute
		if c > 0 {
			return ladderAction{kind: ladderShrink, start: 0, end: c}
		}
		return ladderAction{kind: ladderDelete}
	}

	a, b := *existing.StartMinute, *existing.EndMinute
	if incoming.FullDay {
		return ladderAction{kind: ladderDelete}
	}
	c, d := *incoming.StartMinute, *incoming.EndMinute

	switch {
	case b <= c || a >= d:
		return ladderAction{kind: ladderKeep}
	case a >= c && b <= d:
		return ladderAction{kind: ladderDelete}
	case a < c && b > d:
		// Both sides survive; keep the longer remainder, left wins ties.
		if c-a >= b-d {
			return ladderAction{kind: ladderShrink, start: a, end: c}
		}
		return ladderAction{kind: ladderShrink, start: d, end: b}
	case a < c:
		return ladderAction{kind: ladderShrink, start: a, end: c}
	default:
		return ladderAction{kind: ladderShrink, start: d, end: b}
	}
}

// BatchImport processes declarations one by one, each in its own transaction,
// so a bad row never poisons the rest. Overwrite mode first drops existing
// same-type rows for the item's user and date (or weekday).
func (s *AvailabilityService) BatchImport(ctx context.Context, req dto.BatchAvailabilityRequest) (*dto.BatchAvailabilityResponse, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid batch payload")
	}

	response := &dto.BatchAvailabilityResponse{Items: make([]dto.BatchAvailabilityItemResult, 0, len(req.Items))}
	for i, item := range req.Items {
		result := dto.BatchAvailabilityItemResult{Index: i}
		stored, err := s.importItem(ctx, item, req.Overwrite)
		if err != nil {
			result.Error = appErrors.FromError(err).Message
			response.Failed++
		} else {
			result.Stored = &stored.Stored
			result.AdjustedIDs = stored.AdjustedIDs
			result.DeletedIDs = stored.DeletedIDs
			response.Succeeded++
		}
		response.Items = append(response.Items, result)
	}
	return response, nil
}

func (s *AvailabilityService) importItem(ctx context.Context, item dto.CreateAvailabilityRequest, overwrite bool) (*dto.InsertAvailabilityResponse, error) {
	decl, err := s.buildDeclaration(item)
	if err != nil {
		return nil, err
	}
	exists, err := s.directory.UserExists(ctx, decl.UserID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to verify user")
	}
	if !exists {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "user not found")
	}

	tx, err := s.tx.BeginTxx(ctx, nil)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to begin transaction")
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if overwrite {
		if _, err = s.decls.DeleteMatching(ctx, tx, decl.UserID, decl.Type, decl.DayOfWeek, decl.Date); err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to overwrite declarations")
		}
	}

	response, err := s.declareInTx(ctx, tx, decl)
	if err != nil {
		return nil, err
	}
	if err = tx.Commit(); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to commit availability")
	}
	return response, nil
}

// Resolve computes a user's effective availability for one date: exceptions
// replace the regular weekday baseline entirely, then absences are subtracted.
func (s *AvailabilityService) Resolve(ctx context.Context, userID string, date time.Time) (*models.ResolvedAvailability, error) {
	if userID == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "user id is required")
	}
	if s.metrics != nil {
		defer func(start time.Time) { s.metrics.ObserveResolve(time.Since(start)) }(time.Now())
	}
	date = civilDate(date)

	regular, err := s.decls.ListRegularByWeekday(ctx, userID, int(date.Weekday()))
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load regular availability")
	}
	dated, err := s.decls.ListActiveByDate(ctx, userID, date)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load date availability")
	}

	resolved := &models.ResolvedAvailability{UserID: userID, Date: date, HasRegular: len(regular) > 0}

	var exceptionWindows []models.TimeWindow
	var absences []models.AvailabilityDeclaration
	for _, d := range dated {
		switch d.Type {
		case models.AvailabilityException:
			resolved.HasExceptions = true
			if w, ok := declarationWindow(d); ok {
				exceptionWindows = append(exceptionWindows, w)
			}
		case models.AvailabilityAbsence:
			resolved.HasAbsence = true
			absences = append(absences, d)
		}
	}

	var windows []models.TimeWindow
	if resolved.HasExceptions {
		windows = exceptionWindows
	} else {
		for _, d := range regular {
			if w, ok := declarationWindow(d); ok {
				windows = append(windows, w)
			}
		}
	}
	windows = normalizeWindows(windows)

	for _, d := range absences {
		if w, ok := declarationWindow(d); ok {
			windows = subtractWindow(windows, w.StartMinute, w.EndMinute)
		}
	}

	resolved.Windows = normalizeWindows(windows)
	return resolved, nil
}

// List returns declarations matching the filter.
func (s *AvailabilityService) List(ctx context.Context, filter models.AvailabilityFilter) ([]models.AvailabilityDeclaration, *models.Pagination, error) {
	decls, total, err := s.decls.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list availability")
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 200 {
		size = 50
	}
	return decls, &models.Pagination{Page: page, PageSize: size, TotalCount: total}, nil
}

// Delete removes a single declaration.
func (s *AvailabilityService) Delete(ctx context.Context, id string) error {
	if id == "" {
		return appErrors.Clone(appErrors.ErrValidation, "declaration id is required")
	}
	if err := s.decls.Delete(ctx, nil, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "availability declaration not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete availability")
	}
	return nil
}

// buildDeclaration turns an API payload into a storable declaration, enforcing
// the type/key pairing and window shape rules.
func (s *AvailabilityService) buildDeclaration(req dto.CreateAvailabilityRequest) (*models.AvailabilityDeclaration, error) {
	decl := &models.AvailabilityDeclaration{
		UserID:  req.UserID,
		Type:    models.AvailabilityType(req.Type),
		FullDay: req.FullDay,
		Status:  models.AvailabilityPending,
	}
	if req.Status != "" {
		decl.Status = models.AvailabilityStatus(req.Status)
	}

	switch decl.Type {
	case models.AvailabilityRegular:
		if req.DayOfWeek == nil {
			return nil, appErrors.Clone(appErrors.ErrValidation, "regular availability requires day_of_week")
		}
		if req.Date != nil {
			return nil, appErrors.Clone(appErrors.ErrValidation, "regular availability must not carry a date")
		}
		decl.DayOfWeek = req.DayOfWeek
	case models.AvailabilityException, models.AvailabilityAbsence:
		if req.Date == nil {
			return nil, appErrors.Clone(appErrors.ErrValidation, "date-specific availability requires a date")
		}
		if req.DayOfWeek != nil {
			return nil, appErrors.Clone(appErrors.ErrValidation, "date-specific availability must not carry day_of_week")
		}
		date, err := parseCivilDate(*req.Date)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid date")
		}
		decl.Date = &date
	default:
		return nil, appErrors.Clone(appErrors.ErrValidation, "unknown availability type")
	}

	if req.FullDay {
		if req.StartTime != nil || req.EndTime != nil {
			return nil, appErrors.Clone(appErrors.ErrValidation, "full-day availability must not carry times")
		}
		return decl, nil
	}
	if (req.StartTime == nil) != (req.EndTime == nil) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "start_time and end_time must be provided together")
	}
	if req.StartTime == nil {
		// An empty declaration: states a preference record with no window.
		return decl, nil
	}

	start, err := parseClock(*req.StartTime)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid start_time")
	}
	end, err := parseClock(*req.EndTime)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid end_time")
	}
	if start >= end {
		return nil, appErrors.Clone(appErrors.ErrValidation, "start_time must be before end_time")
	}
	decl.StartMinute = &start
	decl.EndMinute = &end
	return decl, nil
}

package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"time"

	ics "github.com/arran4/golang-ical"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/teambition/rrule-go"
	"go.uber.org/zap"

	"github.com/maraakiz/maraakiz-api/internal/calendar"
	"github.com/maraakiz/maraakiz-api/internal/models"
	appErrors "github.com/maraakiz/maraakiz-api/pkg/errors"
)

type sessionRepository interface {
	List(ctx context.Context, filter models.SessionFilter) ([]models.Session, int, error)
	FindByID(ctx context.Context, id, ownerID string) (*models.Session, error)
	Create(ctx context.Context, session *models.Session) error
	CreateBatch(ctx context.Context, sessions []*models.Session) error
	Update(ctx context.Context, session *models.Session) error
	UpdateStatus(ctx context.Context, id, ownerID string, status models.SessionStatus) error
	Delete(ctx context.Context, id, ownerID string) error
	ListBetween(ctx context.Context, ownerID string, from, to time.Time) ([]models.Session, error)
}

type sessionStudentRepository interface {
	FindByID(ctx context.Context, id, ownerID string) (*models.Student, error)
}

// CreateSessionRequest is the payload for scheduling a session.
type CreateSessionRequest struct {
	Title       string             `json:"title" validate:"required"`
	Subject     string             `json:"subject"`
	Description string             `json:"description"`
	StartTime   time.Time          `json:"start_time" validate:"required"`
	EndTime     time.Time          `json:"end_time" validate:"required"`
	Mode        models.SessionMode `json:"mode" validate:"required,oneof=online in_person recorded"`
	VideoLink   string             `json:"video_link" validate:"omitempty,url"`
	StudentIDs  []string           `json:"student_ids" validate:"required,min=1"`
}

// UpdateSessionRequest is the payload for editing a session.
type UpdateSessionRequest struct {
	Title       string             `json:"title" validate:"required"`
	Subject     string             `json:"subject"`
	Description string             `json:"description"`
	StartTime   time.Time          `json:"start_time" validate:"required"`
	EndTime     time.Time          `json:"end_time" validate:"required"`
	Mode        models.SessionMode `json:"mode" validate:"required,oneof=online in_person recorded"`
	VideoLink   string             `json:"video_link" validate:"omitempty,url"`
	StudentIDs  []string           `json:"student_ids" validate:"required,min=1"`
}

// UpdateSessionStatusRequest transitions a session's lifecycle state.
type UpdateSessionStatusRequest struct {
	Status models.SessionStatus `json:"status" validate:"required,oneof=planned done cancelled postponed"`
}

// CreateRecurringSessionsRequest expands a weekly schedule into concrete
// sessions between two dates. Schedule keys follow time.Weekday
// numbering as strings ("0" = Sunday).
type CreateRecurringSessionsRequest struct {
	Title       string                    `json:"title" validate:"required"`
	Subject     string                    `json:"subject"`
	Description string                    `json:"description"`
	Mode        models.SessionMode        `json:"mode" validate:"required,oneof=online in_person recorded"`
	VideoLink   string                    `json:"video_link" validate:"omitempty,url"`
	StudentIDs  []string                  `json:"student_ids" validate:"required,min=1"`
	StartDate   string                    `json:"start_date" validate:"required,datetime=2006-01-02"`
	EndDate     string                    `json:"end_date" validate:"required,datetime=2006-01-02"`
	Schedule    map[string]models.DaySlot `json:"schedule" validate:"required,min=1,dive"`
}

// SessionService provides scheduling use cases.
type SessionService struct {
	repo      sessionRepository
	students  sessionStudentRepository
	validator *validator.Validate
	logger    *zap.Logger
	feedName  string
}

// NewSessionService constructs a SessionService.
func NewSessionService(repo sessionRepository, students sessionStudentRepository, validate *validator.Validate, logger *zap.Logger, feedName string) *SessionService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	if feedName == "" {
		feedName = "Maraakiz"
	}
	return &SessionService{repo: repo, students: students, validator: validate, logger: logger, feedName: feedName}
}

// List returns the owner's sessions with pagination metadata.
func (s *SessionService) List(ctx context.Context, filter models.SessionFilter) ([]models.Session, *models.Pagination, error) {
	sessions, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list sessions")
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 500 {
		size = 100
	}
	return sessions, &models.Pagination{Page: page, PageSize: size, TotalCount: total}, nil
}

// ListCalendar returns the sessions of the grid range a view renders
// around the reference date.
func (s *SessionService) ListCalendar(ctx context.Context, ownerID string, view calendar.View, ref time.Time) ([]models.Session, calendar.Range, error) {
	rng := calendar.ResolveRange(view, ref)
	sessions, err := s.repo.ListBetween(ctx, ownerID, rng.Start, rng.End)
	if err != nil {
		return nil, rng, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list calendar sessions")
	}
	return sessions, rng, nil
}

// CalendarView bundles the sessions of a grid range with the geometry
// the client needs to render them.
type CalendarView struct {
	View       calendar.View                  `json:"view"`
	Start      time.Time                      `json:"start"`
	End        time.Time                      `json:"end"`
	Sessions   []models.Session               `json:"sessions"`
	Hours      []calendar.HourCell            `json:"hours,omitempty"`
	Days       []time.Time                    `json:"days,omitempty"`
	Weeks      [][]calendar.DayCell           `json:"weeks,omitempty"`
	Months     []calendar.MonthBlock          `json:"months,omitempty"`
	Placements map[string]calendar.Placement  `json:"placements,omitempty"`
	Cells      map[string]calendar.CellEvents `json:"cells,omitempty"`
	NowLine    *float64                       `json:"now_line,omitempty"`
}

// Calendar returns the sessions a view renders around the reference date
// together with grid geometry and per-session placements. Day and week
// views carry hour rows and pixel placements, month and year views carry
// padded date grids with capped per-cell event lists.
func (s *SessionService) Calendar(ctx context.Context, ownerID string, view calendar.View, ref, now time.Time) (*CalendarView, error) {
	sessions, rng, err := s.ListCalendar(ctx, ownerID, view, ref)
	if err != nil {
		return nil, err
	}

	events := make([]calendar.Event, 0, len(sessions))
	for _, session := range sessions {
		events = append(events, calendar.Event{ID: session.ID, Title: session.Title, Start: session.StartTime, End: session.EndTime})
	}

	out := &CalendarView{View: view, Start: rng.Start, End: rng.End, Sessions: sessions}

	switch view {
	case calendar.ViewDay, calendar.ViewWeek:
		out.Hours = calendar.HourCells()
		if view == calendar.ViewDay {
			out.Days = []time.Time{calendar.StartOfDay(ref)}
		} else {
			out.Days = calendar.WeekDays(ref)
		}
		layout := calendar.DefaultLayout()
		out.Placements = make(map[string]calendar.Placement, len(events))
		for _, ev := range events {
			if placement, ok := calendar.Place(ev, layout); ok {
				out.Placements[ev.ID] = placement
			}
		}
		if top, ok := calendar.NowIndicator(now, view, ref, layout); ok {
			out.NowLine = &top
		}
	case calendar.ViewMonth:
		out.Weeks = calendar.MonthCells(ref, now)
		out.Cells = make(map[string]calendar.CellEvents)
		for key, day := range calendar.GroupByDay(events) {
			out.Cells[key] = calendar.CapVisible(day, calendar.MaxVisiblePerCell)
		}
	case calendar.ViewYear:
		out.Months = calendar.YearBlocks(ref, now, events)
	}

	return out, nil
}

// Get fetches a single session owned by the caller.
func (s *SessionService) Get(ctx context.Context, id, ownerID string) (*models.Session, error) {
	session, err := s.repo.FindByID(ctx, id, ownerID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "session not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to fetch session")
	}
	return session, nil
}

// Create schedules a single session.
func (s *SessionService) Create(ctx context.Context, ownerID string, req CreateSessionRequest) (*models.Session, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid session payload")
	}
	if !req.EndTime.After(req.StartTime) {
		return nil, appErrors.Clone(appErrors.ErrInvalidTimeRange, "")
	}
	if err := s.checkAttendees(ctx, ownerID, req.StudentIDs); err != nil {
		return nil, err
	}

	session := &models.Session{
		OwnerID:     ownerID,
		Title:       req.Title,
		Subject:     req.Subject,
		Description: req.Description,
		StartTime:   req.StartTime,
		EndTime:     req.EndTime,
		DurationMin: int(req.EndTime.Sub(req.StartTime).Minutes()),
		Mode:        req.Mode,
		Status:      models.SessionStatusPlanned,
		VideoLink:   req.VideoLink,
		StudentIDs:  req.StudentIDs,
	}
	if err := s.repo.Create(ctx, session); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create session")
	}
	return session, nil
}

// CreateRecurring expands a weekly schedule into concrete sessions that
// share a recurrence parent. The first created session references itself.
func (s *SessionService) CreateRecurring(ctx context.Context, ownerID string, req CreateRecurringSessionsRequest) (*models.RecurringResult, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid recurring payload")
	}
	if err := s.checkAttendees(ctx, ownerID, req.StudentIDs); err != nil {
		return nil, err
	}

	startDate, err := time.ParseInLocation("2006-01-02", req.StartDate, time.UTC)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "invalid start date")
	}
	endDate, err := time.ParseInLocation("2006-01-02", req.EndDate, time.UTC)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "invalid end date")
	}
	if endDate.Before(startDate) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "end date must not come before start date")
	}

	slots, weekdays, err := parseSchedule(req.Schedule)
	if err != nil {
		return nil, err
	}

	rule, err := rrule.NewRRule(rrule.ROption{
		Freq:      rrule.WEEKLY,
		Dtstart:   startDate,
		Until:     endDate.AddDate(0, 0, 1).Add(-time.Second),
		Byweekday: weekdays,
	})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to build recurrence rule")
	}

	occurrences := rule.All()
	if len(occurrences) == 0 {
		return nil, appErrors.Clone(appErrors.ErrValidation, "schedule produces no sessions in the date range")
	}

	parentID := uuid.NewString()
	sessions := make([]*models.Session, 0, len(occurrences))
	for i, day := range occurrences {
		slot := slots[day.Weekday()]
		start := time.Date(day.Year(), day.Month(), day.Day(), slot.startHour, slot.startMin, 0, 0, time.UTC)
		end := time.Date(day.Year(), day.Month(), day.Day(), slot.endHour, slot.endMin, 0, 0, time.UTC)
		if !end.After(start) {
			return nil, appErrors.Clone(appErrors.ErrInvalidTimeRange, fmt.Sprintf("slot for %s ends before it starts", day.Weekday()))
		}

		session := &models.Session{
			OwnerID:            ownerID,
			Title:              req.Title,
			Subject:            req.Subject,
			Description:        req.Description,
			StartTime:          start,
			EndTime:            end,
			DurationMin:        int(end.Sub(start).Minutes()),
			Mode:               req.Mode,
			Status:             models.SessionStatusPlanned,
			VideoLink:          req.VideoLink,
			StudentIDs:         req.StudentIDs,
			Recurrent:          true,
			RecurrenceParentID: &parentID,
		}
		if i == 0 {
			session.ID = parentID
		}
		sessions = append(sessions, session)
	}

	if err := s.repo.CreateBatch(ctx, sessions); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create recurring sessions")
	}

	return &models.RecurringResult{ParentID: parentID, Created: len(sessions)}, nil
}

// Update edits a session's schedulable fields and recomputes duration.
func (s *SessionService) Update(ctx context.Context, id, ownerID string, req UpdateSessionRequest) (*models.Session, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid session payload")
	}
	if !req.EndTime.After(req.StartTime) {
		return nil, appErrors.Clone(appErrors.ErrInvalidTimeRange, "")
	}
	if err := s.checkAttendees(ctx, ownerID, req.StudentIDs); err != nil {
		return nil, err
	}

	session, err := s.Get(ctx, id, ownerID)
	if err != nil {
		return nil, err
	}

	session.Title = req.Title
	session.Subject = req.Subject
	session.Description = req.Description
	session.StartTime = req.StartTime
	session.EndTime = req.EndTime
	session.DurationMin = int(req.EndTime.Sub(req.StartTime).Minutes())
	session.Mode = req.Mode
	session.VideoLink = req.VideoLink
	session.StudentIDs = req.StudentIDs

	if err := s.repo.Update(ctx, session); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update session")
	}
	return session, nil
}

// UpdateStatus transitions a session's lifecycle state.
func (s *SessionService) UpdateStatus(ctx context.Context, id, ownerID string, req UpdateSessionStatusRequest) error {
	if err := s.validator.Struct(req); err != nil {
		return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid status payload")
	}
	if _, err := s.Get(ctx, id, ownerID); err != nil {
		return err
	}
	if err := s.repo.UpdateStatus(ctx, id, ownerID, req.Status); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update session status")
	}
	return nil
}

// Delete removes a session.
func (s *SessionService) Delete(ctx context.Context, id, ownerID string) error {
	if _, err := s.Get(ctx, id, ownerID); err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id, ownerID); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete session")
	}
	return nil
}

// AgendaICS renders the owner's sessions in [from, to) as an iCalendar
// feed consumable by external calendar apps.
func (s *SessionService) AgendaICS(ctx context.Context, ownerID string, from, to time.Time) (string, error) {
	sessions, err := s.repo.ListBetween(ctx, ownerID, from, to)
	if err != nil {
		return "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load agenda sessions")
	}

	cal := ics.NewCalendar()
	cal.SetMethod(ics.MethodPublish)
	cal.SetProductId(fmt.Sprintf("-//%s//Agenda//EN", s.feedName))
	cal.SetName(s.feedName)

	for _, session := range sessions {
		if session.Status == models.SessionStatusCancelled {
			continue
		}
		event := cal.AddEvent(session.ID)
		event.SetSummary(session.Title)
		event.SetStartAt(session.StartTime)
		event.SetEndAt(session.EndTime)
		if session.Description != "" {
			event.SetDescription(session.Description)
		}
		if session.VideoLink != "" {
			event.SetLocation(session.VideoLink)
		}
		event.SetDtStampTime(session.UpdatedAt)
	}

	return cal.Serialize(), nil
}

func (s *SessionService) checkAttendees(ctx context.Context, ownerID string, studentIDs []string) error {
	for _, studentID := range studentIDs {
		if _, err := s.students.FindByID(ctx, studentID, ownerID); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return appErrors.Clone(appErrors.ErrNotFound, fmt.Sprintf("student %s not found", studentID))
			}
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check attendee")
		}
	}
	return nil
}

type scheduleSlot struct {
	startHour, startMin int
	endHour, endMin     int
}

func parseSchedule(schedule map[string]models.DaySlot) (map[time.Weekday]scheduleSlot, []rrule.Weekday, error) {
	weekdayRules := map[time.Weekday]rrule.Weekday{
		time.Sunday:    rrule.SU,
		time.Monday:    rrule.MO,
		time.Tuesday:   rrule.TU,
		time.Wednesday: rrule.WE,
		time.Thursday:  rrule.TH,
		time.Friday:    rrule.FR,
		time.Saturday:  rrule.SA,
	}

	slots := make(map[time.Weekday]scheduleSlot, len(schedule))
	var weekdays []rrule.Weekday
	for key, slot := range schedule {
		dayNum, err := strconv.Atoi(key)
		if err != nil || dayNum < 0 || dayNum > 6 {
			return nil, nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("invalid weekday %q", key))
		}
		weekday := time.Weekday(dayNum)

		startHour, startMin, err := parseClock(slot.Start)
		if err != nil {
			return nil, nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("invalid start time for weekday %q", key))
		}
		endHour, endMin, err := parseClock(slot.End)
		if err != nil {
			return nil, nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("invalid end time for weekday %q", key))
		}

		slots[weekday] = scheduleSlot{startHour: startHour, startMin: startMin, endHour: endHour, endMin: endMin}
		weekdays = append(weekdays, weekdayRules[weekday])
	}

	sort.Slice(weekdays, func(i, j int) bool { return weekdays[i].Day() < weekdays[j].Day() })
	return slots, weekdays, nil
}

func parseClock(raw string) (int, int, error) {
	parsed, err := time.Parse("15:04", raw)
	if err != nil {
		return 0, 0, err
	}
	return parsed.Hour(), parsed.Minute(), nil
}

package service

import (
	"context"
	"database/sql"
	"fmt"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/maraakiz/maraakiz-api/internal/calendar"
	"github.com/maraakiz/maraakiz-api/internal/models"
)

type mockSessionRepo struct {
	sessions map[string]models.Session
	batch    []*models.Session
	statuses map[string]models.SessionStatus
}

func (m *mockSessionRepo) List(ctx context.Context, filter models.SessionFilter) ([]models.Session, int, error) {
	out := make([]models.Session, 0, len(m.sessions))
	for _, s := range m.sessions {
		out = append(out, s)
	}
	return out, len(out), nil
}

func (m *mockSessionRepo) FindByID(ctx context.Context, id, ownerID string) (*models.Session, error) {
	if s, ok := m.sessions[id]; ok && s.OwnerID == ownerID {
		return &s, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockSessionRepo) Create(ctx context.Context, session *models.Session) error {
	if m.sessions == nil {
		m.sessions = make(map[string]models.Session)
	}
	if session.ID == "" {
		session.ID = fmt.Sprintf("sess%d", len(m.sessions)+1)
	}
	m.sessions[session.ID] = *session
	return nil
}

func (m *mockSessionRepo) CreateBatch(ctx context.Context, sessions []*models.Session) error {
	m.batch = sessions
	for _, s := range sessions {
		if err := m.Create(ctx, s); err != nil {
			return err
		}
	}
	return nil
}

func (m *mockSessionRepo) Update(ctx context.Context, session *models.Session) error {
	m.sessions[session.ID] = *session
	return nil
}

func (m *mockSessionRepo) UpdateStatus(ctx context.Context, id, ownerID string, status models.SessionStatus) error {
	if m.statuses == nil {
		m.statuses = make(map[string]models.SessionStatus)
	}
	m.statuses[id] = status
	return nil
}

func (m *mockSessionRepo) Delete(ctx context.Context, id, ownerID string) error {
	delete(m.sessions, id)
	return nil
}

func (m *mockSessionRepo) ListBetween(ctx context.Context, ownerID string, from, to time.Time) ([]models.Session, error) {
	out := make([]models.Session, 0, len(m.sessions))
	for _, s := range m.sessions {
		if s.OwnerID == ownerID && !s.StartTime.Before(from) && s.StartTime.Before(to) {
			out = append(out, s)
		}
	}
	return out, nil
}

type mockSessionStudents struct {
	students map[string]models.Student
}

func (m *mockSessionStudents) FindByID(ctx context.Context, id, ownerID string) (*models.Student, error) {
	if s, ok := m.students[id]; ok && s.OwnerID == ownerID {
		return &s, nil
	}
	return nil, sql.ErrNoRows
}

func sessionTestService(repo *mockSessionRepo, students *mockSessionStudents) *SessionService {
	return NewSessionService(repo, students, validator.New(), zap.NewNop(), "Maraakiz")
}

func TestSessionServiceCreate(t *testing.T) {
	repo := &mockSessionRepo{}
	students := &mockSessionStudents{students: map[string]models.Student{"s1": {ID: "s1", OwnerID: "o1"}}}
	svc := sessionTestService(repo, students)

	start := time.Date(2026, 9, 7, 9, 0, 0, 0, time.UTC)
	session, err := svc.Create(context.Background(), "o1", CreateSessionRequest{
		Title:      "Tajwid",
		StartTime:  start,
		EndTime:    start.Add(90 * time.Minute),
		Mode:       models.SessionModeOnline,
		StudentIDs: []string{"s1"},
	})
	require.NoError(t, err)
	assert.Equal(t, 90, session.DurationMin)
	assert.Equal(t, models.SessionStatusPlanned, session.Status)
	assert.NotEmpty(t, session.ID)
}

func TestSessionServiceCreateEndBeforeStart(t *testing.T) {
	repo := &mockSessionRepo{}
	students := &mockSessionStudents{students: map[string]models.Student{"s1": {ID: "s1", OwnerID: "o1"}}}
	svc := sessionTestService(repo, students)

	start := time.Date(2026, 9, 7, 9, 0, 0, 0, time.UTC)
	_, err := svc.Create(context.Background(), "o1", CreateSessionRequest{
		Title:      "Tajwid",
		StartTime:  start,
		EndTime:    start.Add(-time.Hour),
		Mode:       models.SessionModeOnline,
		StudentIDs: []string{"s1"},
	})
	require.Error(t, err)
}

func TestSessionServiceCreateUnknownStudent(t *testing.T) {
	repo := &mockSessionRepo{}
	svc := sessionTestService(repo, &mockSessionStudents{})

	start := time.Date(2026, 9, 7, 9, 0, 0, 0, time.UTC)
	_, err := svc.Create(context.Background(), "o1", CreateSessionRequest{
		Title:      "Tajwid",
		StartTime:  start,
		EndTime:    start.Add(time.Hour),
		Mode:       models.SessionModeOnline,
		StudentIDs: []string{"ghost"},
	})
	require.Error(t, err)
}

func TestSessionServiceCreateRecurring(t *testing.T) {
	repo := &mockSessionRepo{}
	students := &mockSessionStudents{students: map[string]models.Student{"s1": {ID: "s1", OwnerID: "o1"}}}
	svc := sessionTestService(repo, students)

	// Two weeks, Mondays and Wednesdays: 2026-03-02 is a Monday.
	result, err := svc.CreateRecurring(context.Background(), "o1", CreateRecurringSessionsRequest{
		Title:      "Arabic grammar",
		Mode:       models.SessionModeOnline,
		StudentIDs: []string{"s1"},
		StartDate:  "2026-03-02",
		EndDate:    "2026-03-15",
		Schedule: map[string]models.DaySlot{
			"1": {Start: "10:00", End: "11:30"},
			"3": {Start: "14:00", End: "15:00"},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, 4, result.Created)
	require.Len(t, repo.batch, 4)

	first := repo.batch[0]
	assert.Equal(t, result.ParentID, first.ID)
	for _, session := range repo.batch {
		assert.True(t, session.Recurrent)
		require.NotNil(t, session.RecurrenceParentID)
		assert.Equal(t, result.ParentID, *session.RecurrenceParentID)
	}

	assert.Equal(t, time.Monday, first.StartTime.Weekday())
	assert.Equal(t, 10, first.StartTime.Hour())
	assert.Equal(t, 90, first.DurationMin)
}

func TestSessionServiceCreateRecurringEmptyRange(t *testing.T) {
	repo := &mockSessionRepo{}
	students := &mockSessionStudents{students: map[string]models.Student{"s1": {ID: "s1", OwnerID: "o1"}}}
	svc := sessionTestService(repo, students)

	// 2026-03-03 to 2026-03-08 contains no Monday.
	_, err := svc.CreateRecurring(context.Background(), "o1", CreateRecurringSessionsRequest{
		Title:      "Arabic grammar",
		Mode:       models.SessionModeOnline,
		StudentIDs: []string{"s1"},
		StartDate:  "2026-03-03",
		EndDate:    "2026-03-08",
		Schedule: map[string]models.DaySlot{
			"1": {Start: "10:00", End: "11:00"},
		},
	})
	require.Error(t, err)
}

func TestSessionServiceUpdateStatus(t *testing.T) {
	repo := &mockSessionRepo{sessions: map[string]models.Session{
		"sess1": {ID: "sess1", OwnerID: "o1", Status: models.SessionStatusPlanned},
	}}
	svc := sessionTestService(repo, &mockSessionStudents{})

	err := svc.UpdateStatus(context.Background(), "sess1", "o1", UpdateSessionStatusRequest{Status: models.SessionStatusDone})
	require.NoError(t, err)
	assert.Equal(t, models.SessionStatusDone, repo.statuses["sess1"])
}

func TestSessionServiceCalendarWeek(t *testing.T) {
	start := time.Date(2026, 9, 9, 9, 0, 0, 0, time.UTC)
	repo := &mockSessionRepo{sessions: map[string]models.Session{
		"sess1": {ID: "sess1", OwnerID: "o1", Title: "Tajwid", StartTime: start, EndTime: start.Add(90 * time.Minute)},
	}}
	svc := sessionTestService(repo, &mockSessionStudents{})

	ref := time.Date(2026, 9, 7, 0, 0, 0, 0, time.UTC)
	now := time.Date(2026, 10, 1, 12, 0, 0, 0, time.UTC)
	page, err := svc.Calendar(context.Background(), "o1", calendar.ViewWeek, ref, now)
	require.NoError(t, err)

	require.Len(t, page.Days, 7)
	assert.Equal(t, time.Monday, page.Days[0].Weekday())
	assert.NotEmpty(t, page.Hours)
	require.Len(t, page.Sessions, 1)

	placement, ok := page.Placements["sess1"]
	require.True(t, ok)
	// 09:00 sits two hour rows below the 07:00 grid start.
	assert.InDelta(t, 2*calendar.DefaultRowHeight, placement.Top, 0.001)
	assert.InDelta(t, 1.5*calendar.DefaultRowHeight, placement.Height, 0.001)
	assert.Nil(t, page.NowLine)
}

func TestSessionServiceCalendarMonth(t *testing.T) {
	start := time.Date(2026, 9, 9, 9, 0, 0, 0, time.UTC)
	repo := &mockSessionRepo{sessions: map[string]models.Session{
		"sess1": {ID: "sess1", OwnerID: "o1", Title: "Tajwid", StartTime: start, EndTime: start.Add(time.Hour)},
	}}
	svc := sessionTestService(repo, &mockSessionStudents{})

	page, err := svc.Calendar(context.Background(), "o1", calendar.ViewMonth, start, start)
	require.NoError(t, err)

	assert.NotEmpty(t, page.Weeks)
	for _, week := range page.Weeks {
		assert.Len(t, week, 7)
	}

	cell, ok := page.Cells["2026-09-09"]
	require.True(t, ok)
	assert.Len(t, cell.Visible, 1)
	assert.Zero(t, cell.Overflow)
}

func TestSessionServiceAgendaICS(t *testing.T) {
	start := time.Date(2026, 9, 7, 9, 0, 0, 0, time.UTC)
	repo := &mockSessionRepo{sessions: map[string]models.Session{
		"sess1": {ID: "sess1", OwnerID: "o1", Title: "Tajwid", StartTime: start, EndTime: start.Add(time.Hour), Status: models.SessionStatusPlanned},
		"sess2": {ID: "sess2", OwnerID: "o1", Title: "Cancelled one", StartTime: start.Add(24 * time.Hour), EndTime: start.Add(25 * time.Hour), Status: models.SessionStatusCancelled},
	}}
	svc := sessionTestService(repo, &mockSessionStudents{})

	feed, err := svc.AgendaICS(context.Background(), "o1", start.AddDate(0, 0, -1), start.AddDate(0, 0, 7))
	require.NoError(t, err)
	assert.Contains(t, feed, "BEGIN:VCALENDAR")
	assert.Contains(t, feed, "Tajwid")
	assert.NotContains(t, feed, "Cancelled one")
}

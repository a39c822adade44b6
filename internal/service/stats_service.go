package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/maraakiz/maraakiz-api/internal/calendar"
	"github.com/maraakiz/maraakiz-api/internal/models"
	appErrors "github.com/maraakiz/maraakiz-api/pkg/errors"
)

type statsStudentRepository interface {
	CountActive(ctx context.Context, ownerID string) (int, error)
}

type statsSessionRepository interface {
	CountBetween(ctx context.Context, ownerID string, from, to time.Time) (int, error)
	SumMinutesBetween(ctx context.Context, ownerID string, from, to time.Time) (int, error)
}

type statsPaymentRepository interface {
	UnpaidTotal(ctx context.Context, ownerID string) (float64, error)
}

type statsMessageRepository interface {
	CountUnread(ctx context.Context, userID string) (int, error)
}

// StatsService composes the dashboard counters from the other domains.
type StatsService struct {
	students statsStudentRepository
	sessions statsSessionRepository
	payments statsPaymentRepository
	messages statsMessageRepository
	logger   *zap.Logger
}

// NewStatsService constructs a StatsService.
func NewStatsService(students statsStudentRepository, sessions statsSessionRepository, payments statsPaymentRepository, messages statsMessageRepository, logger *zap.Logger) *StatsService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &StatsService{students: students, sessions: sessions, payments: payments, messages: messages, logger: logger}
}

// Dashboard aggregates the owner's headline numbers: active students,
// sessions this week, tutoring hours this month, open billing total
// and unread messages.
func (s *StatsService) Dashboard(ctx context.Context, ownerID string) (*models.DashboardStats, error) {
	now := time.Now().UTC()

	weekStart := calendar.StartOfWeek(now)
	weekEnd := weekStart.AddDate(0, 0, 7)
	monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
	monthEnd := monthStart.AddDate(0, 1, 0)

	stats := &models.DashboardStats{}

	active, err := s.students.CountActive(ctx, ownerID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count students")
	}
	stats.ActiveStudents = active

	sessions, err := s.sessions.CountBetween(ctx, ownerID, weekStart, weekEnd)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count sessions")
	}
	stats.SessionsThisWeek = sessions

	minutes, err := s.sessions.SumMinutesBetween(ctx, ownerID, monthStart, monthEnd)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to sum session minutes")
	}
	stats.HoursThisMonth = float64(minutes) / 60

	unpaid, err := s.payments.UnpaidTotal(ctx, ownerID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to sum unpaid amounts")
	}
	stats.UnpaidTotal = unpaid

	unread, err := s.messages.CountUnread(ctx, ownerID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count unread messages")
	}
	stats.UnreadMessages = unread

	return stats, nil
}

package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type statsMocks struct {
	active  int
	week    int
	minutes int
	unpaid  float64
	unread  int
}

func (m *statsMocks) CountActive(ctx context.Context, ownerID string) (int, error) {
	return m.active, nil
}

func (m *statsMocks) CountBetween(ctx context.Context, ownerID string, from, to time.Time) (int, error) {
	return m.week, nil
}

func (m *statsMocks) SumMinutesBetween(ctx context.Context, ownerID string, from, to time.Time) (int, error) {
	return m.minutes, nil
}

func (m *statsMocks) UnpaidTotal(ctx context.Context, ownerID string) (float64, error) {
	return m.unpaid, nil
}

func (m *statsMocks) CountUnread(ctx context.Context, userID string) (int, error) {
	return m.unread, nil
}

func TestStatsServiceDashboard(t *testing.T) {
	mocks := &statsMocks{active: 12, week: 5, minutes: 270, unpaid: 840.50, unread: 3}
	svc := NewStatsService(mocks, mocks, mocks, mocks, zap.NewNop())

	stats, err := svc.Dashboard(context.Background(), "o1")
	require.NoError(t, err)
	assert.Equal(t, 12, stats.ActiveStudents)
	assert.Equal(t, 5, stats.SessionsThisWeek)
	assert.InDelta(t, 4.5, stats.HoursThisMonth, 0.001)
	assert.InDelta(t, 840.50, stats.UnpaidTotal, 0.001)
	assert.Equal(t, 3, stats.UnreadMessages)
}

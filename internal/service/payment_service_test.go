package service

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"strings"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/maraakiz/maraakiz-api/internal/models"
	appErrors "github.com/maraakiz/maraakiz-api/pkg/errors"
	"github.com/maraakiz/maraakiz-api/pkg/jobs"
)

type mockPaymentRepo struct {
	payments map[string]models.Payment
	pastDue  []models.Payment
	overdue  []string
}

func (m *mockPaymentRepo) List(ctx context.Context, filter models.PaymentFilter) ([]models.Payment, int, error) {
	ids := make([]string, 0, len(m.payments))
	for id := range m.payments {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	out := make([]models.Payment, 0, len(ids))
	for _, id := range ids {
		out = append(out, m.payments[id])
	}
	total := len(out)

	if filter.PageSize > 0 {
		page := filter.Page
		if page < 1 {
			page = 1
		}
		start := (page - 1) * filter.PageSize
		if start > total {
			start = total
		}
		end := start + filter.PageSize
		if end > total {
			end = total
		}
		out = out[start:end]
	}
	return out, total, nil
}

func (m *mockPaymentRepo) FindByID(ctx context.Context, id, ownerID string) (*models.Payment, error) {
	if p, ok := m.payments[id]; ok && p.OwnerID == ownerID {
		return &p, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockPaymentRepo) ExistsForPeriod(ctx context.Context, ownerID, studentID string, month, year int, excludeID string) (bool, error) {
	for id, p := range m.payments {
		if id == excludeID {
			continue
		}
		if p.OwnerID == ownerID && p.StudentID == studentID && p.Month == month && p.Year == year {
			return true, nil
		}
	}
	return false, nil
}

func (m *mockPaymentRepo) Create(ctx context.Context, payment *models.Payment) error {
	if m.payments == nil {
		m.payments = make(map[string]models.Payment)
	}
	if payment.ID == "" {
		payment.ID = fmt.Sprintf("p%d", len(m.payments)+1)
	}
	m.payments[payment.ID] = *payment
	return nil
}

func (m *mockPaymentRepo) Update(ctx context.Context, payment *models.Payment) error {
	m.payments[payment.ID] = *payment
	return nil
}

func (m *mockPaymentRepo) Delete(ctx context.Context, id, ownerID string) error {
	delete(m.payments, id)
	return nil
}

func (m *mockPaymentRepo) Stats(ctx context.Context, ownerID string) (*models.PaymentStats, error) {
	return &models.PaymentStats{}, nil
}

func (m *mockPaymentRepo) ListPastDue(ctx context.Context, before time.Time) ([]models.Payment, error) {
	return m.pastDue, nil
}

func (m *mockPaymentRepo) MarkOverdue(ctx context.Context, id string) error {
	m.overdue = append(m.overdue, id)
	return nil
}

type mockPaymentStudents struct {
	students map[string]models.Student
}

func (m *mockPaymentStudents) FindByID(ctx context.Context, id, ownerID string) (*models.Student, error) {
	if s, ok := m.students[id]; ok && s.OwnerID == ownerID {
		return &s, nil
	}
	return nil, sql.ErrNoRows
}

type mockReminderQueue struct {
	jobs []jobs.Job
}

func (m *mockReminderQueue) Enqueue(job jobs.Job) error {
	m.jobs = append(m.jobs, job)
	return nil
}

func paymentTestService(repo *mockPaymentRepo, students *mockPaymentStudents, queue *mockReminderQueue) *PaymentService {
	return NewPaymentService(repo, students, queue, nil, validator.New(), zap.NewNop())
}

func TestPaymentServiceCreateUnpaid(t *testing.T) {
	repo := &mockPaymentRepo{}
	students := &mockPaymentStudents{students: map[string]models.Student{"s1": {ID: "s1", OwnerID: "o1"}}}
	svc := paymentTestService(repo, students, nil)

	payment, err := svc.Create(context.Background(), "o1", CreatePaymentRequest{
		StudentID: "s1",
		Month:     9,
		Year:      2026,
		AmountDue: 120,
		DueDate:   time.Now().UTC().AddDate(0, 0, 7),
	})
	require.NoError(t, err)
	assert.Equal(t, models.PaymentStatusUnpaid, payment.Status)
	assert.Nil(t, payment.PaidDate)
}

func TestPaymentServiceCreatePastDueIsOverdue(t *testing.T) {
	repo := &mockPaymentRepo{}
	students := &mockPaymentStudents{students: map[string]models.Student{"s1": {ID: "s1", OwnerID: "o1"}}}
	svc := paymentTestService(repo, students, nil)

	payment, err := svc.Create(context.Background(), "o1", CreatePaymentRequest{
		StudentID: "s1",
		Month:     1,
		Year:      2026,
		AmountDue: 120,
		DueDate:   time.Now().UTC().AddDate(0, 0, -7),
	})
	require.NoError(t, err)
	assert.Equal(t, models.PaymentStatusOverdue, payment.Status)
}

func TestPaymentServiceCreateDuplicatePeriod(t *testing.T) {
	repo := &mockPaymentRepo{payments: map[string]models.Payment{
		"p1": {ID: "p1", OwnerID: "o1", StudentID: "s1", Month: 9, Year: 2026},
	}}
	students := &mockPaymentStudents{students: map[string]models.Student{"s1": {ID: "s1", OwnerID: "o1"}}}
	svc := paymentTestService(repo, students, nil)

	_, err := svc.Create(context.Background(), "o1", CreatePaymentRequest{
		StudentID: "s1",
		Month:     9,
		Year:      2026,
		AmountDue: 120,
		DueDate:   time.Now().UTC(),
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrDuplicatePeriod.Code, appErrors.FromError(err).Code)
}

func TestPaymentServiceUpdatePartial(t *testing.T) {
	repo := &mockPaymentRepo{payments: map[string]models.Payment{
		"p1": {ID: "p1", OwnerID: "o1", StudentID: "s1", Month: 9, Year: 2026, AmountDue: 120},
	}}
	svc := paymentTestService(repo, &mockPaymentStudents{}, nil)

	updated, err := svc.Update(context.Background(), "p1", "o1", UpdatePaymentRequest{
		AmountDue:  120,
		AmountPaid: 40,
		DueDate:    time.Now().UTC().AddDate(0, 0, -1),
	})
	require.NoError(t, err)
	assert.Equal(t, models.PaymentStatusPartial, updated.Status)
	assert.Nil(t, updated.PaidDate)
	assert.InDelta(t, 80, updated.Remaining(), 0.001)
}

func TestPaymentServiceMarkPaid(t *testing.T) {
	repo := &mockPaymentRepo{payments: map[string]models.Payment{
		"p1": {ID: "p1", OwnerID: "o1", StudentID: "s1", Month: 9, Year: 2026, AmountDue: 120, AmountPaid: 40, Status: models.PaymentStatusPartial, DueDate: time.Now().UTC()},
	}}
	svc := paymentTestService(repo, &mockPaymentStudents{}, nil)

	paid, err := svc.MarkPaid(context.Background(), "p1", "o1", MarkPaidRequest{Method: "cash"})
	require.NoError(t, err)
	assert.Equal(t, models.PaymentStatusPaid, paid.Status)
	assert.Equal(t, paid.AmountDue, paid.AmountPaid)
	require.NotNil(t, paid.PaidDate)
	assert.Equal(t, "cash", paid.Method)
}

func TestPaymentServiceGetWrongOwner(t *testing.T) {
	repo := &mockPaymentRepo{payments: map[string]models.Payment{
		"p1": {ID: "p1", OwnerID: "o1"},
	}}
	svc := paymentTestService(repo, &mockPaymentStudents{}, nil)

	_, err := svc.Get(context.Background(), "p1", "someone-else")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
}

func TestPaymentServiceSweepOverdue(t *testing.T) {
	repo := &mockPaymentRepo{pastDue: []models.Payment{
		{ID: "p1", OwnerID: "o1", StudentID: "s1"},
		{ID: "p2", OwnerID: "o1", StudentID: "s2"},
	}}
	queue := &mockReminderQueue{}
	svc := paymentTestService(repo, &mockPaymentStudents{}, queue)

	flipped, err := svc.SweepOverdue(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, flipped)
	assert.Equal(t, []string{"p1", "p2"}, repo.overdue)
	require.Len(t, queue.jobs, 2)
	assert.Equal(t, JobTypePaymentReminder, queue.jobs[0].Type)
}

func TestPaymentServiceSweepSkipsPartial(t *testing.T) {
	// A past-due record with money on it stays partial, like settle
	// computes it. Only untouched records flip to overdue.
	repo := &mockPaymentRepo{pastDue: []models.Payment{
		{ID: "p1", OwnerID: "o1", StudentID: "s1", AmountDue: 100},
		{ID: "p2", OwnerID: "o1", StudentID: "s2", AmountDue: 100, AmountPaid: 40, Status: models.PaymentStatusPartial},
	}}
	queue := &mockReminderQueue{}
	svc := paymentTestService(repo, &mockPaymentStudents{}, queue)

	flipped, err := svc.SweepOverdue(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, flipped)
	assert.Equal(t, []string{"p1"}, repo.overdue)
	require.Len(t, queue.jobs, 1)
	assert.Equal(t, "p1", queue.jobs[0].ID)
}

func TestPaymentServiceExportCSV(t *testing.T) {
	repo := &mockPaymentRepo{payments: map[string]models.Payment{
		"p1": {ID: "p1", OwnerID: "o1", StudentID: "s1", Month: 9, Year: 2026, AmountDue: 120, AmountPaid: 120, Status: models.PaymentStatusPaid, DueDate: time.Date(2026, 9, 5, 0, 0, 0, 0, time.UTC)},
	}}
	students := &mockPaymentStudents{students: map[string]models.Student{"s1": {ID: "s1", OwnerID: "o1", FirstName: "Amina", LastName: "Khalil"}}}
	svc := paymentTestService(repo, students, nil)

	data, filename, err := svc.ExportCSV(context.Background(), models.PaymentFilter{OwnerID: "o1"})
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(filename, ".csv"))

	content := string(data)
	assert.Contains(t, content, "Amount due")
	assert.Contains(t, content, "Amina Khalil")
	assert.Contains(t, content, "120.00")
}

func TestPaymentServiceExportCSVAllPages(t *testing.T) {
	payments := make(map[string]models.Payment, 250)
	for i := 1; i <= 250; i++ {
		id := fmt.Sprintf("p%03d", i)
		payments[id] = models.Payment{
			ID: id, OwnerID: "o1", StudentID: "s1",
			Month: (i % 12) + 1, Year: 2026, AmountDue: 100,
			DueDate: time.Date(2026, 9, 5, 0, 0, 0, 0, time.UTC),
		}
	}
	repo := &mockPaymentRepo{payments: payments}
	students := &mockPaymentStudents{students: map[string]models.Student{"s1": {ID: "s1", OwnerID: "o1", FirstName: "Amina", LastName: "Khalil"}}}
	svc := paymentTestService(repo, students, nil)

	data, _, err := svc.ExportCSV(context.Background(), models.PaymentFilter{OwnerID: "o1"})
	require.NoError(t, err)

	// Header line plus one line per record, nothing truncated.
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	assert.Len(t, lines, 251)
}

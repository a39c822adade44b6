package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/maraakiz/maraakiz-api/internal/models"
	appErrors "github.com/maraakiz/maraakiz-api/pkg/errors"
	"github.com/maraakiz/maraakiz-api/pkg/export"
	"github.com/maraakiz/maraakiz-api/pkg/jobs"
)

// JobTypePaymentReminder identifies queued overdue-payment reminders.
const JobTypePaymentReminder = "payment_reminder"

type paymentRepository interface {
	List(ctx context.Context, filter models.PaymentFilter) ([]models.Payment, int, error)
	FindByID(ctx context.Context, id, ownerID string) (*models.Payment, error)
	ExistsForPeriod(ctx context.Context, ownerID, studentID string, month, year int, excludeID string) (bool, error)
	Create(ctx context.Context, payment *models.Payment) error
	Update(ctx context.Context, payment *models.Payment) error
	Delete(ctx context.Context, id, ownerID string) error
	Stats(ctx context.Context, ownerID string) (*models.PaymentStats, error)
	ListPastDue(ctx context.Context, before time.Time) ([]models.Payment, error)
	MarkOverdue(ctx context.Context, id string) error
}

type paymentStudentRepository interface {
	FindByID(ctx context.Context, id, ownerID string) (*models.Student, error)
}

type reminderQueue interface {
	Enqueue(job jobs.Job) error
}

type exportArchive interface {
	Save(filename string, data []byte) (string, error)
}

// CreatePaymentRequest opens a billing record for a student's period.
type CreatePaymentRequest struct {
	StudentID  string    `json:"student_id" validate:"required"`
	Month      int       `json:"month" validate:"required,gte=1,lte=12"`
	Year       int       `json:"year" validate:"required,gte=2000"`
	AmountDue  float64   `json:"amount_due" validate:"gte=0"`
	AmountPaid float64   `json:"amount_paid" validate:"gte=0"`
	DueDate    time.Time `json:"due_date" validate:"required"`
	Method     string    `json:"method"`
	Notes      string    `json:"notes"`
}

// UpdatePaymentRequest edits a billing record; status is recomputed.
type UpdatePaymentRequest struct {
	AmountDue  float64   `json:"amount_due" validate:"gte=0"`
	AmountPaid float64   `json:"amount_paid" validate:"gte=0"`
	DueDate    time.Time `json:"due_date" validate:"required"`
	Method     string    `json:"method"`
	Notes      string    `json:"notes"`
}

// MarkPaidRequest settles a record in full.
type MarkPaidRequest struct {
	Method string `json:"method" validate:"required"`
}

// PaymentService provides billing use cases.
type PaymentService struct {
	repo      paymentRepository
	students  paymentStudentRepository
	reminders reminderQueue
	archive   exportArchive
	csv       *export.CSVExporter
	validator *validator.Validate
	logger    *zap.Logger
}

// NewPaymentService constructs a PaymentService. The archive keeps a
// copy of rendered exports until the retention sweep removes them.
func NewPaymentService(repo paymentRepository, students paymentStudentRepository, reminders reminderQueue, archive exportArchive, validate *validator.Validate, logger *zap.Logger) *PaymentService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &PaymentService{repo: repo, students: students, reminders: reminders, archive: archive, csv: export.NewCSVExporter(), validator: validate, logger: logger}
}

// List returns the owner's payments with pagination metadata.
func (s *PaymentService) List(ctx context.Context, filter models.PaymentFilter) ([]models.Payment, *models.Pagination, error) {
	payments, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list payments")
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 200 {
		size = 20
	}
	return payments, &models.Pagination{Page: page, PageSize: size, TotalCount: total}, nil
}

// Get fetches a single payment owned by the caller.
func (s *PaymentService) Get(ctx context.Context, id, ownerID string) (*models.Payment, error) {
	payment, err := s.repo.FindByID(ctx, id, ownerID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "payment not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to fetch payment")
	}
	return payment, nil
}

// Create opens a billing record, rejecting duplicate periods.
func (s *PaymentService) Create(ctx context.Context, ownerID string, req CreatePaymentRequest) (*models.Payment, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid payment payload")
	}

	if _, err := s.students.FindByID(ctx, req.StudentID, ownerID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to fetch student")
	}

	exists, err := s.repo.ExistsForPeriod(ctx, ownerID, req.StudentID, req.Month, req.Year, "")
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check period")
	}
	if exists {
		return nil, appErrors.Clone(appErrors.ErrDuplicatePeriod, "")
	}

	payment := &models.Payment{
		OwnerID:    ownerID,
		StudentID:  req.StudentID,
		Month:      req.Month,
		Year:       req.Year,
		AmountDue:  req.AmountDue,
		AmountPaid: req.AmountPaid,
		DueDate:    req.DueDate,
		Method:     req.Method,
		Notes:      req.Notes,
	}
	s.settle(payment, time.Now().UTC())

	if err := s.repo.Create(ctx, payment); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create payment")
	}
	return payment, nil
}

// Update edits a billing record and recomputes its status.
func (s *PaymentService) Update(ctx context.Context, id, ownerID string, req UpdatePaymentRequest) (*models.Payment, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid payment payload")
	}

	payment, err := s.Get(ctx, id, ownerID)
	if err != nil {
		return nil, err
	}

	payment.AmountDue = req.AmountDue
	payment.AmountPaid = req.AmountPaid
	payment.DueDate = req.DueDate
	payment.Method = req.Method
	payment.Notes = req.Notes
	s.settle(payment, time.Now().UTC())

	if err := s.repo.Update(ctx, payment); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update payment")
	}
	return payment, nil
}

// MarkPaid settles a record in full with the given method.
func (s *PaymentService) MarkPaid(ctx context.Context, id, ownerID string, req MarkPaidRequest) (*models.Payment, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid payload")
	}

	payment, err := s.Get(ctx, id, ownerID)
	if err != nil {
		return nil, err
	}

	payment.AmountPaid = payment.AmountDue
	payment.Method = req.Method
	s.settle(payment, time.Now().UTC())

	if err := s.repo.Update(ctx, payment); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to mark payment paid")
	}
	return payment, nil
}

// Delete removes a billing record.
func (s *PaymentService) Delete(ctx context.Context, id, ownerID string) error {
	if _, err := s.Get(ctx, id, ownerID); err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id, ownerID); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete payment")
	}
	return nil
}

// Stats aggregates billing totals for the dashboard.
func (s *PaymentService) Stats(ctx context.Context, ownerID string) (*models.PaymentStats, error) {
	stats, err := s.repo.Stats(ctx, ownerID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to aggregate payments")
	}
	return stats, nil
}

// exportPageSize batches repository reads during CSV export.
const exportPageSize = 200

// ExportCSV renders the owner's filtered payments as a CSV download.
// The full filtered set is exported, paging through the repository.
func (s *PaymentService) ExportCSV(ctx context.Context, filter models.PaymentFilter) ([]byte, string, error) {
	filter.PageSize = exportPageSize
	var payments []models.Payment
	for page := 1; ; page++ {
		filter.Page = page
		batch, total, err := s.repo.List(ctx, filter)
		if err != nil {
			return nil, "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load payments")
		}
		payments = append(payments, batch...)
		if len(batch) < exportPageSize || len(payments) >= total {
			break
		}
	}

	headers := []string{"Student", "Month", "Year", "Amount due", "Amount paid", "Remaining", "Due date", "Paid date", "Method", "Status", "Notes"}
	rows := make([]map[string]string, 0, len(payments))
	names := make(map[string]string)
	for _, payment := range payments {
		name, ok := names[payment.StudentID]
		if !ok {
			name = payment.StudentID
			if student, err := s.students.FindByID(ctx, payment.StudentID, filter.OwnerID); err == nil {
				name = fmt.Sprintf("%s %s", student.FirstName, student.LastName)
			}
			names[payment.StudentID] = name
		}

		paidDate := ""
		if payment.PaidDate != nil {
			paidDate = payment.PaidDate.Format("2006-01-02")
		}
		rows = append(rows, map[string]string{
			"Student":     name,
			"Month":       strconv.Itoa(payment.Month),
			"Year":        strconv.Itoa(payment.Year),
			"Amount due":  fmt.Sprintf("%.2f", payment.AmountDue),
			"Amount paid": fmt.Sprintf("%.2f", payment.AmountPaid),
			"Remaining":   fmt.Sprintf("%.2f", payment.Remaining()),
			"Due date":    payment.DueDate.Format("2006-01-02"),
			"Paid date":   paidDate,
			"Method":      payment.Method,
			"Status":      string(payment.Status),
			"Notes":       payment.Notes,
		})
	}

	data, err := s.csv.Render(export.Dataset{Headers: headers, Rows: rows})
	if err != nil {
		return nil, "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render csv")
	}

	filename := fmt.Sprintf("payments-%s.csv", time.Now().UTC().Format("20060102"))
	if s.archive != nil {
		if _, err := s.archive.Save("payments/"+filename, data); err != nil {
			s.logger.Warn("failed to archive csv export", zap.String("filename", filename), zap.Error(err))
		}
	}
	return data, filename, nil
}

// SweepOverdue flips past-due open records to overdue and queues a
// reminder for each. Invoked by the nightly cron schedule.
func (s *PaymentService) SweepOverdue(ctx context.Context) (int, error) {
	pastDue, err := s.repo.ListPastDue(ctx, time.Now().UTC())
	if err != nil {
		return 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list past-due payments")
	}

	flipped := 0
	for _, payment := range pastDue {
		// Partially paid records stay partial, matching settle.
		if payment.AmountPaid > 0 {
			continue
		}
		if err := s.repo.MarkOverdue(ctx, payment.ID); err != nil {
			s.logger.Warn("failed to mark payment overdue", zap.String("payment_id", payment.ID), zap.Error(err))
			continue
		}
		flipped++

		if s.reminders != nil {
			if err := s.reminders.Enqueue(jobs.Job{
				ID:      payment.ID,
				Type:    JobTypePaymentReminder,
				Payload: payment,
			}); err != nil {
				s.logger.Warn("failed to queue payment reminder", zap.String("payment_id", payment.ID), zap.Error(err))
			}
		}
	}
	return flipped, nil
}

// settle recomputes the status the same way the billing UI expects:
// paid wins over partial, overdue only applies to untouched records
// past their due date, and the paid date is stamped on full settlement.
func (s *PaymentService) settle(payment *models.Payment, now time.Time) {
	switch {
	case payment.AmountPaid >= payment.AmountDue:
		payment.Status = models.PaymentStatusPaid
	case payment.AmountPaid > 0:
		payment.Status = models.PaymentStatusPartial
	case now.After(payment.DueDate):
		payment.Status = models.PaymentStatusOverdue
	default:
		payment.Status = models.PaymentStatusUnpaid
	}

	if payment.Status == models.PaymentStatusPaid {
		if payment.PaidDate == nil {
			paidAt := now
			payment.PaidDate = &paidAt
		}
	} else {
		payment.PaidDate = nil
	}
}

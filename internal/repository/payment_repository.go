package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/maraakiz/maraakiz-api/internal/models"
)

const paymentColumns = `id, owner_id, student_id, month, year, amount_due, amount_paid, due_date, paid_date, method, status, notes, reminder_sent, created_at, updated_at`

// PaymentRepository manages persistence for monthly payment records.
type PaymentRepository struct {
	db *sqlx.DB
}

// NewPaymentRepository constructs a PaymentRepository.
func NewPaymentRepository(db *sqlx.DB) *PaymentRepository {
	return &PaymentRepository{db: db}
}

// List returns the owner's payments matching the provided filters.
func (r *PaymentRepository) List(ctx context.Context, filter models.PaymentFilter) ([]models.Payment, int, error) {
	base := "FROM payments"
	args := []interface{}{filter.OwnerID}
	conditions := []string{"owner_id = $1"}

	if filter.StudentID != "" {
		conditions = append(conditions, fmt.Sprintf("student_id = $%d", len(args)+1))
		args = append(args, filter.StudentID)
	}
	if filter.Status != nil {
		conditions = append(conditions, fmt.Sprintf("status = $%d", len(args)+1))
		args = append(args, *filter.Status)
	}
	if filter.Month != nil {
		conditions = append(conditions, fmt.Sprintf("month = $%d", len(args)+1))
		args = append(args, *filter.Month)
	}
	if filter.Year != nil {
		conditions = append(conditions, fmt.Sprintf("year = $%d", len(args)+1))
		args = append(args, *filter.Year)
	}

	base = fmt.Sprintf("%s WHERE %s", base, strings.Join(conditions, " AND "))

	sortBy := filter.SortBy
	allowedSorts := map[string]string{
		"due_date":   "due_date",
		"amount_due": "amount_due",
		"created_at": "created_at",
	}
	if sortBy == "" {
		sortBy = "due_date"
	}
	column, ok := allowedSorts[sortBy]
	if !ok {
		column = "due_date"
	}
	order := strings.ToUpper(filter.SortOrder)
	if order != "ASC" && order != "DESC" {
		order = "DESC"
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 200 {
		size = 20
	}
	offset := (page - 1) * size

	query := fmt.Sprintf("SELECT %s %s ORDER BY %s %s LIMIT %d OFFSET %d", paymentColumns, base, column, order, size, offset)

	var payments []models.Payment
	if err := r.db.SelectContext(ctx, &payments, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list payments: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s", base)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count payments: %w", err)
	}
	return payments, total, nil
}

// FindByID fetches a payment scoped to its owner.
func (r *PaymentRepository) FindByID(ctx context.Context, id, ownerID string) (*models.Payment, error) {
	query := fmt.Sprintf("SELECT %s FROM payments WHERE id = $1 AND owner_id = $2", paymentColumns)
	var payment models.Payment
	if err := r.db.GetContext(ctx, &payment, query, id, ownerID); err != nil {
		return nil, err
	}
	return &payment, nil
}

// ExistsForPeriod reports whether the student already has a record for
// the billing period, optionally excluding an ID during updates.
func (r *PaymentRepository) ExistsForPeriod(ctx context.Context, ownerID, studentID string, month, year int, excludeID string) (bool, error) {
	query := "SELECT 1 FROM payments WHERE owner_id = $1 AND student_id = $2 AND month = $3 AND year = $4"
	args := []interface{}{ownerID, studentID, month, year}
	if excludeID != "" {
		query += " AND id <> $5"
		args = append(args, excludeID)
	}
	var exists int
	if err := r.db.GetContext(ctx, &exists, query+" LIMIT 1", args...); err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, fmt.Errorf("check payment period: %w", err)
	}
	return true, nil
}

// Create inserts a new payment record.
func (r *PaymentRepository) Create(ctx context.Context, payment *models.Payment) error {
	if payment.ID == "" {
		payment.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if payment.CreatedAt.IsZero() {
		payment.CreatedAt = now
	}
	payment.UpdatedAt = now
	const query = `INSERT INTO payments (id, owner_id, student_id, month, year, amount_due, amount_paid, due_date, paid_date, method, status, notes, reminder_sent, created_at, updated_at)
        VALUES (:id, :owner_id, :student_id, :month, :year, :amount_due, :amount_paid, :due_date, :paid_date, :method, :status, :notes, :reminder_sent, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, payment); err != nil {
		return fmt.Errorf("create payment: %w", err)
	}
	return nil
}

// Update modifies an existing payment.
func (r *PaymentRepository) Update(ctx context.Context, payment *models.Payment) error {
	payment.UpdatedAt = time.Now().UTC()
	const query = `UPDATE payments SET amount_due = :amount_due, amount_paid = :amount_paid, due_date = :due_date,
        paid_date = :paid_date, method = :method, status = :status, notes = :notes, reminder_sent = :reminder_sent,
        updated_at = :updated_at WHERE id = :id AND owner_id = :owner_id`
	if _, err := r.db.NamedExecContext(ctx, query, payment); err != nil {
		return fmt.Errorf("update payment: %w", err)
	}
	return nil
}

// Delete removes a payment record.
func (r *PaymentRepository) Delete(ctx context.Context, id, ownerID string) error {
	const query = `DELETE FROM payments WHERE id = $1 AND owner_id = $2`
	if _, err := r.db.ExecContext(ctx, query, id, ownerID); err != nil {
		return fmt.Errorf("delete payment: %w", err)
	}
	return nil
}

// Stats aggregates billing totals for an owner.
func (r *PaymentRepository) Stats(ctx context.Context, ownerID string) (*models.PaymentStats, error) {
	const query = `SELECT
        COALESCE(SUM(amount_due), 0) AS total_due,
        COALESCE(SUM(amount_paid), 0) AS total_paid,
        COUNT(*) FILTER (WHERE status = 'paid') AS count_paid,
        COUNT(*) FILTER (WHERE status = 'partial') AS count_partial,
        COUNT(*) FILTER (WHERE status = 'unpaid') AS count_unpaid,
        COUNT(*) FILTER (WHERE status = 'overdue') AS count_overdue
        FROM payments WHERE owner_id = $1`
	var stats models.PaymentStats
	if err := r.db.GetContext(ctx, &stats, query, ownerID); err != nil {
		return nil, fmt.Errorf("payment stats: %w", err)
	}
	stats.TotalRemaining = stats.TotalDue - stats.TotalPaid
	return &stats, nil
}

// UnpaidTotal sums outstanding balances for an owner.
func (r *PaymentRepository) UnpaidTotal(ctx context.Context, ownerID string) (float64, error) {
	const query = `SELECT COALESCE(SUM(amount_due - amount_paid), 0) FROM payments WHERE owner_id = $1 AND status <> 'paid'`
	var total float64
	if err := r.db.GetContext(ctx, &total, query, ownerID); err != nil {
		return 0, fmt.Errorf("unpaid total: %w", err)
	}
	return total, nil
}

// ListPastDue returns unpaid records whose due date has passed.
// Partially paid records never flip to overdue.
func (r *PaymentRepository) ListPastDue(ctx context.Context, before time.Time) ([]models.Payment, error) {
	query := fmt.Sprintf("SELECT %s FROM payments WHERE status = $1 AND due_date < $2", paymentColumns)
	var payments []models.Payment
	if err := r.db.SelectContext(ctx, &payments, query, models.PaymentStatusUnpaid, before); err != nil {
		return nil, fmt.Errorf("list past due payments: %w", err)
	}
	return payments, nil
}

// MarkOverdue flips a record to overdue and flags the reminder as queued.
func (r *PaymentRepository) MarkOverdue(ctx context.Context, id string) error {
	const query = `UPDATE payments SET status = $2, reminder_sent = true, updated_at = $3 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, models.PaymentStatusOverdue, time.Now().UTC()); err != nil {
		return fmt.Errorf("mark payment overdue: %w", err)
	}
	return nil
}

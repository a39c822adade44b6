package models

import "time"

// PaymentStatus reflects how much of a monthly record has been settled.
type PaymentStatus string

const (
	PaymentStatusUnpaid  PaymentStatus = "unpaid"
	PaymentStatusPartial PaymentStatus = "partial"
	PaymentStatusPaid    PaymentStatus = "paid"
	PaymentStatusOverdue PaymentStatus = "overdue"
)

// Payment is a per-student monthly billing record.
type Payment struct {
	ID           string        `db:"id" json:"id"`
	OwnerID      string        `db:"owner_id" json:"owner_id"`
	StudentID    string        `db:"student_id" json:"student_id"`
	Month        int           `db:"month" json:"month"`
	Year         int           `db:"year" json:"year"`
	AmountDue    float64       `db:"amount_due" json:"amount_due"`
	AmountPaid   float64       `db:"amount_paid" json:"amount_paid"`
	DueDate      time.Time     `db:"due_date" json:"due_date"`
	PaidDate     *time.Time    `db:"paid_date" json:"paid_date,omitempty"`
	Method       string        `db:"method" json:"method"`
	Status       PaymentStatus `db:"status" json:"status"`
	Notes        string        `db:"notes" json:"notes"`
	ReminderSent bool          `db:"reminder_sent" json:"reminder_sent"`
	CreatedAt    time.Time     `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time     `db:"updated_at" json:"updated_at"`
}

// Remaining is the outstanding balance. Deliberately unclamped: an
// overpayment yields a negative remainder.
func (p Payment) Remaining() float64 {
	return p.AmountDue - p.AmountPaid
}

// PaymentFilter captures list parameters for payments.
type PaymentFilter struct {
	OwnerID   string
	StudentID string
	Status    *PaymentStatus
	Month     *int
	Year      *int
	Page      int
	PageSize  int
	SortBy    string
	SortOrder string
}

// PaymentStats aggregates billing totals for the dashboard.
type PaymentStats struct {
	TotalDue       float64 `db:"total_due" json:"total_due"`
	TotalPaid      float64 `db:"total_paid" json:"total_paid"`
	TotalRemaining float64 `db:"-" json:"total_remaining"`
	CountPaid      int     `db:"count_paid" json:"count_paid"`
	CountPartial   int     `db:"count_partial" json:"count_partial"`
	CountUnpaid    int     `db:"count_unpaid" json:"count_unpaid"`
	CountOverdue   int     `db:"count_overdue" json:"count_overdue"`
}

package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/maraakiz/maraakiz-api/internal/models"
)

func newPaymentMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func TestPaymentRepositoryExistsForPeriod(t *testing.T) {
	db, mock, cleanup := newPaymentMock(t)
	defer cleanup()
	repo := NewPaymentRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT 1 FROM payments WHERE owner_id = $1 AND student_id = $2 AND month = $3 AND year = $4 LIMIT 1")).
		WithArgs("owner", "student", 3, 2024).
		WillReturnRows(sqlmock.NewRows([]string{"?column?"}).AddRow(1))

	exists, err := repo.ExistsForPeriod(context.Background(), "owner", "student", 3, 2024, "")
	require.NoError(t, err)
	assert.True(t, exists)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPaymentRepositoryExistsForPeriodMissing(t *testing.T) {
	db, mock, cleanup := newPaymentMock(t)
	defer cleanup()
	repo := NewPaymentRepository(db)

	mock.ExpectQuery("SELECT 1 FROM payments").
		WithArgs("owner", "student", 4, 2024).
		WillReturnRows(sqlmock.NewRows([]string{"?column?"}))

	exists, err := repo.ExistsForPeriod(context.Background(), "owner", "student", 4, 2024, "")
	require.NoError(t, err)
	assert.False(t, exists)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPaymentRepositoryListPastDue(t *testing.T) {
	db, mock, cleanup := newPaymentMock(t)
	defer cleanup()
	repo := NewPaymentRepository(db)

	now := time.Now().UTC()
	rows := sqlmock.NewRows([]string{"id", "owner_id", "student_id", "month", "year", "amount_due", "amount_paid", "due_date", "paid_date", "method", "status", "notes", "reminder_sent", "created_at", "updated_at"}).
		AddRow("p1", "owner", "student", 2, 2024, 100.0, 0.0, now.AddDate(0, 0, -3), nil, "", "unpaid", "", false, now, now)
	mock.ExpectQuery("SELECT id, owner_id, student_id, month, year, amount_due, amount_paid, due_date, paid_date, method, status, notes, reminder_sent, created_at, updated_at FROM payments WHERE status =").
		WithArgs(models.PaymentStatusUnpaid, sqlmock.AnyArg()).
		WillReturnRows(rows)

	payments, err := repo.ListPastDue(context.Background(), now)
	require.NoError(t, err)
	require.Len(t, payments, 1)
	assert.Equal(t, models.PaymentStatusUnpaid, payments[0].Status)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPaymentRepositoryMarkOverdue(t *testing.T) {
	db, mock, cleanup := newPaymentMock(t)
	defer cleanup()
	repo := NewPaymentRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE payments SET status = $2, reminder_sent = true, updated_at = $3 WHERE id = $1")).
		WithArgs("p1", models.PaymentStatusOverdue, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.MarkOverdue(context.Background(), "p1")
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/maraakiz/maraakiz-api/internal/models"
)

const sessionColumns = `id, owner_id, title, subject, description, start_time, end_time, duration_min, mode, status, video_link, student_ids, recurrent, recurrence_parent_id, created_at, updated_at`

// SessionRepository manages persistence for tutoring sessions.
type SessionRepository struct {
	db *sqlx.DB
}

// NewSessionRepository constructs a SessionRepository.
func NewSessionRepository(db *sqlx.DB) *SessionRepository {
	return &SessionRepository{db: db}
}

// List returns the owner's sessions matching the provided filters.
func (r *SessionRepository) List(ctx context.Context, filter models.SessionFilter) ([]models.Session, int, error) {
	base := "FROM sessions"
	args := []interface{}{filter.OwnerID}
	conditions := []string{"owner_id = $1"}

	if filter.From != nil {
		conditions = append(conditions, fmt.Sprintf("start_time >= $%d", len(args)+1))
		args = append(args, *filter.From)
	}
	if filter.To != nil {
		conditions = append(conditions, fmt.Sprintf("start_time < $%d", len(args)+1))
		args = append(args, *filter.To)
	}
	if filter.StudentID != "" {
		conditions = append(conditions, fmt.Sprintf("$%d = ANY(student_ids)", len(args)+1))
		args = append(args, filter.StudentID)
	}
	if filter.Status != nil {
		conditions = append(conditions, fmt.Sprintf("status = $%d", len(args)+1))
		args = append(args, *filter.Status)
	}

	base = fmt.Sprintf("%s WHERE %s", base, strings.Join(conditions, " AND "))

	sortBy := filter.SortBy
	allowedSorts := map[string]string{
		"start_time": "start_time",
		"title":      "title",
		"created_at": "created_at",
	}
	if sortBy == "" {
		sortBy = "start_time"
	}
	column, ok := allowedSorts[sortBy]
	if !ok {
		column = "start_time"
	}
	order := strings.ToUpper(filter.SortOrder)
	if order != "ASC" && order != "DESC" {
		order = "ASC"
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 500 {
		size = 100
	}
	offset := (page - 1) * size

	query := fmt.Sprintf("SELECT %s %s ORDER BY %s %s LIMIT %d OFFSET %d", sessionColumns, base, column, order, size, offset)

	var sessions []models.Session
	if err := r.db.SelectContext(ctx, &sessions, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list sessions: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s", base)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count sessions: %w", err)
	}
	return sessions, total, nil
}

// FindByID fetches a session scoped to its owner.
func (r *SessionRepository) FindByID(ctx context.Context, id, ownerID string) (*models.Session, error) {
	query := fmt.Sprintf("SELECT %s FROM sessions WHERE id = $1 AND owner_id = $2", sessionColumns)
	var session models.Session
	if err := r.db.GetContext(ctx, &session, query, id, ownerID); err != nil {
		return nil, err
	}
	return &session, nil
}

// Create inserts a new session record.
func (r *SessionRepository) Create(ctx context.Context, session *models.Session) error {
	prepareSession(session)
	const query = `INSERT INTO sessions (id, owner_id, title, subject, description, start_time, end_time, duration_min, mode, status, video_link, student_ids, recurrent, recurrence_parent_id, created_at, updated_at)
        VALUES (:id, :owner_id, :title, :subject, :description, :start_time, :end_time, :duration_min, :mode, :status, :video_link, :student_ids, :recurrent, :recurrence_parent_id, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, session); err != nil {
		return fmt.Errorf("create session: %w", err)
	}
	return nil
}

// CreateBatch inserts a set of sessions atomically. Used by recurring
// expansion so a partial series never lands.
func (r *SessionRepository) CreateBatch(ctx context.Context, sessions []*models.Session) error {
	if len(sessions) == 0 {
		return nil
	}
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin batch: %w", err)
	}
	const query = `INSERT INTO sessions (id, owner_id, title, subject, description, start_time, end_time, duration_min, mode, status, video_link, student_ids, recurrent, recurrence_parent_id, created_at, updated_at)
        VALUES (:id, :owner_id, :title, :subject, :description, :start_time, :end_time, :duration_min, :mode, :status, :video_link, :student_ids, :recurrent, :recurrence_parent_id, :created_at, :updated_at)`
	for _, session := range sessions {
		prepareSession(session)
		if _, err := tx.NamedExecContext(ctx, query, session); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("create session batch: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit batch: %w", err)
	}
	return nil
}

// Update modifies an existing session.
func (r *SessionRepository) Update(ctx context.Context, session *models.Session) error {
	session.UpdatedAt = time.Now().UTC()
	const query = `UPDATE sessions SET title = :title, subject = :subject, description = :description,
        start_time = :start_time, end_time = :end_time, duration_min = :duration_min, mode = :mode,
        status = :status, video_link = :video_link, student_ids = :student_ids, updated_at = :updated_at
        WHERE id = :id AND owner_id = :owner_id`
	if _, err := r.db.NamedExecContext(ctx, query, session); err != nil {
		return fmt.Errorf("update session: %w", err)
	}
	return nil
}

// UpdateStatus transitions a session's lifecycle state.
func (r *SessionRepository) UpdateStatus(ctx context.Context, id, ownerID string, status models.SessionStatus) error {
	const query = `UPDATE sessions SET status = $3, updated_at = $4 WHERE id = $1 AND owner_id = $2`
	if _, err := r.db.ExecContext(ctx, query, id, ownerID, status, time.Now().UTC()); err != nil {
		return fmt.Errorf("update session status: %w", err)
	}
	return nil
}

// Delete removes a session.
func (r *SessionRepository) Delete(ctx context.Context, id, ownerID string) error {
	const query = `DELETE FROM sessions WHERE id = $1 AND owner_id = $2`
	if _, err := r.db.ExecContext(ctx, query, id, ownerID); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

// ListBetween returns an owner's sessions in [from, to), ordered by start.
func (r *SessionRepository) ListBetween(ctx context.Context, ownerID string, from, to time.Time) ([]models.Session, error) {
	query := fmt.Sprintf("SELECT %s FROM sessions WHERE owner_id = $1 AND start_time >= $2 AND start_time < $3 ORDER BY start_time ASC", sessionColumns)
	var sessions []models.Session
	if err := r.db.SelectContext(ctx, &sessions, query, ownerID, from, to); err != nil {
		return nil, fmt.Errorf("list sessions between: %w", err)
	}
	return sessions, nil
}

// CountBetween counts an owner's sessions starting in [from, to).
func (r *SessionRepository) CountBetween(ctx context.Context, ownerID string, from, to time.Time) (int, error) {
	const query = `SELECT COUNT(*) FROM sessions WHERE owner_id = $1 AND start_time >= $2 AND start_time < $3`
	var count int
	if err := r.db.GetContext(ctx, &count, query, ownerID, from, to); err != nil {
		return 0, fmt.Errorf("count sessions between: %w", err)
	}
	return count, nil
}

// SumMinutesBetween totals the duration of completed sessions in [from, to).
func (r *SessionRepository) SumMinutesBetween(ctx context.Context, ownerID string, from, to time.Time) (int, error) {
	const query = `SELECT COALESCE(SUM(duration_min), 0) FROM sessions WHERE owner_id = $1 AND status = $2 AND start_time >= $3 AND start_time < $4`
	var minutes int
	if err := r.db.GetContext(ctx, &minutes, query, ownerID, models.SessionStatusDone, from, to); err != nil {
		return 0, fmt.Errorf("sum session minutes: %w", err)
	}
	return minutes, nil
}

func prepareSession(session *models.Session) {
	if session.ID == "" {
		session.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if session.CreatedAt.IsZero() {
		session.CreatedAt = now
	}
	session.UpdatedAt = now
}

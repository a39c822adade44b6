package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/maraakiz/maraakiz-api/internal/models"
)

const messageColumns = `id, sender_id, receiver_id, content, file_name, file_path, read, created_at`

// MessageRepository manages persistence for chat messages.
type MessageRepository struct {
	db *sqlx.DB
}

// NewMessageRepository constructs a MessageRepository.
func NewMessageRepository(db *sqlx.DB) *MessageRepository {
	return &MessageRepository{db: db}
}

// ListForUser returns every message the user sent or received, newest first.
// Conversation grouping happens in the service layer.
func (r *MessageRepository) ListForUser(ctx context.Context, userID string) ([]models.Message, error) {
	query := fmt.Sprintf("SELECT %s FROM messages WHERE sender_id = $1 OR receiver_id = $1 ORDER BY created_at DESC", messageColumns)
	var messages []models.Message
	if err := r.db.SelectContext(ctx, &messages, query, userID); err != nil {
		return nil, fmt.Errorf("list user messages: %w", err)
	}
	return messages, nil
}

// ListBetween returns the full thread between two users, oldest first.
func (r *MessageRepository) ListBetween(ctx context.Context, userID, partnerID string) ([]models.Message, error) {
	query := fmt.Sprintf(`SELECT %s FROM messages
        WHERE (sender_id = $1 AND receiver_id = $2) OR (sender_id = $2 AND receiver_id = $1)
        ORDER BY created_at ASC`, messageColumns)
	var messages []models.Message
	if err := r.db.SelectContext(ctx, &messages, query, userID, partnerID); err != nil {
		return nil, fmt.Errorf("list thread messages: %w", err)
	}
	return messages, nil
}

// FindByID fetches a single message. The service layer enforces that
// only the two participants may see it.
func (r *MessageRepository) FindByID(ctx context.Context, id string) (*models.Message, error) {
	query := fmt.Sprintf("SELECT %s FROM messages WHERE id = $1", messageColumns)
	var message models.Message
	if err := r.db.GetContext(ctx, &message, query, id); err != nil {
		return nil, fmt.Errorf("find message: %w", err)
	}
	return &message, nil
}

// Create inserts a new message row.
func (r *MessageRepository) Create(ctx context.Context, message *models.Message) error {
	if message.ID == "" {
		message.ID = uuid.NewString()
	}
	if message.CreatedAt.IsZero() {
		message.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO messages (id, sender_id, receiver_id, content, file_name, file_path, read, created_at)
        VALUES (:id, :sender_id, :receiver_id, :content, :file_name, :file_path, :read, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, message); err != nil {
		return fmt.Errorf("create message: %w", err)
	}
	return nil
}

// MarkThreadRead flags every message from partner to user as read.
func (r *MessageRepository) MarkThreadRead(ctx context.Context, userID, partnerID string) error {
	const query = `UPDATE messages SET read = true WHERE receiver_id = $1 AND sender_id = $2 AND read = false`
	if _, err := r.db.ExecContext(ctx, query, userID, partnerID); err != nil {
		return fmt.Errorf("mark thread read: %w", err)
	}
	return nil
}

// CountUnread returns the user's total unread message count.
func (r *MessageRepository) CountUnread(ctx context.Context, userID string) (int, error) {
	const query = `SELECT COUNT(*) FROM messages WHERE receiver_id = $1 AND read = false`
	var count int
	if err := r.db.GetContext(ctx, &count, query, userID); err != nil {
		return 0, fmt.Errorf("count unread messages: %w", err)
	}
	return count, nil
}

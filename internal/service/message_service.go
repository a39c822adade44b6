package service

import (
	"context"
	"fmt"
	"path/filepath"
	"sort"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/maraakiz/maraakiz-api/internal/models"
	appErrors "github.com/maraakiz/maraakiz-api/pkg/errors"
)

type messageRepository interface {
	ListForUser(ctx context.Context, userID string) ([]models.Message, error)
	ListBetween(ctx context.Context, userID, partnerID string) ([]models.Message, error)
	FindByID(ctx context.Context, id string) (*models.Message, error)
	Create(ctx context.Context, message *models.Message) error
	MarkThreadRead(ctx context.Context, userID, partnerID string) error
	CountUnread(ctx context.Context, userID string) (int, error)
}

type messageUserRepository interface {
	FindByID(ctx context.Context, id string) (*models.User, error)
}

type messageStorage interface {
	Save(filename string, data []byte) (string, error)
	Delete(filename string) error
	Path(filename string) string
}

type messageSigner interface {
	Generate(fileID, relPath string) (string, time.Time, error)
	Parse(token string, allowExpired bool) (fileID, relPath string, expiresAt time.Time, err error)
}

// SendMessageRequest posts a message, optionally with an attachment.
type SendMessageRequest struct {
	ReceiverID string `json:"receiver_id" validate:"required"`
	Content    string `json:"content"`
	FileName   string `json:"file_name"`
	Data       []byte `json:"-"`
}

// MessageService provides chat use cases. Conversations are derived
// views over the flat message table, grouped by partner.
type MessageService struct {
	repo      messageRepository
	users     messageUserRepository
	storage   messageStorage
	signer    messageSigner
	validator *validator.Validate
	logger    *zap.Logger
}

// NewMessageService constructs a MessageService.
func NewMessageService(repo messageRepository, users messageUserRepository, storage messageStorage, signer messageSigner, validate *validator.Validate, logger *zap.Logger) *MessageService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &MessageService{repo: repo, users: users, storage: storage, signer: signer, validator: validate, logger: logger}
}

// Conversations groups the user's messages by partner, most recent
// thread first, with per-thread unread counts.
func (s *MessageService) Conversations(ctx context.Context, userID string) ([]models.Conversation, error) {
	messages, err := s.repo.ListForUser(ctx, userID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list messages")
	}

	byKey := make(map[string]*models.Conversation)
	order := make([]string, 0)
	for _, message := range messages {
		partnerID := message.SenderID
		if partnerID == userID {
			partnerID = message.ReceiverID
		}
		key := conversationKey(userID, partnerID)

		conv, ok := byKey[key]
		if !ok {
			// Messages arrive newest first, so the first one seen
			// per key is the thread's latest.
			conv = &models.Conversation{Key: key, PartnerID: partnerID, LastMessage: message}
			byKey[key] = conv
			order = append(order, key)
		}
		if message.ReceiverID == userID && !message.Read {
			conv.UnreadCount++
		}
	}

	conversations := make([]models.Conversation, 0, len(order))
	for _, key := range order {
		conversations = append(conversations, *byKey[key])
	}
	return conversations, nil
}

// Thread returns the full exchange with one partner, oldest first, and
// marks the partner's messages as read.
func (s *MessageService) Thread(ctx context.Context, userID, partnerID string) ([]models.Message, error) {
	messages, err := s.repo.ListBetween(ctx, userID, partnerID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list thread")
	}

	if err := s.repo.MarkThreadRead(ctx, userID, partnerID); err != nil {
		s.logger.Warn("failed to mark thread read",
			zap.String("user_id", userID), zap.String("partner_id", partnerID), zap.Error(err))
	}

	return s.withFileLinks(messages), nil
}

// Send posts a message to another user, storing the attachment when
// one is provided.
func (s *MessageService) Send(ctx context.Context, senderID string, req SendMessageRequest) (*models.Message, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid message payload")
	}
	if req.Content == "" && len(req.Data) == 0 {
		return nil, appErrors.Clone(appErrors.ErrValidation, "message needs content or a file")
	}
	if req.ReceiverID == senderID {
		return nil, appErrors.Clone(appErrors.ErrValidation, "cannot message yourself")
	}

	if _, err := s.users.FindByID(ctx, req.ReceiverID); err != nil {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "receiver not found")
	}

	message := &models.Message{
		ID:         uuid.NewString(),
		SenderID:   senderID,
		ReceiverID: req.ReceiverID,
		Content:    req.Content,
	}

	if len(req.Data) > 0 {
		if s.storage == nil {
			return nil, appErrors.Clone(appErrors.ErrInternal, "file storage unavailable")
		}
		relPath := fmt.Sprintf("messages/%s%s", message.ID, filepath.Ext(req.FileName))
		if _, err := s.storage.Save(relPath, req.Data); err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store attachment")
		}
		message.FileName = req.FileName
		message.FilePath = relPath
	}

	if err := s.repo.Create(ctx, message); err != nil {
		if message.FilePath != "" {
			if cleanupErr := s.storage.Delete(message.FilePath); cleanupErr != nil {
				s.logger.Warn("failed to remove orphaned attachment", zap.String("path", message.FilePath), zap.Error(cleanupErr))
			}
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to send message")
	}

	s.signFileLink(message)
	return message, nil
}

// ResolveDownload validates a signed attachment token and returns the
// message plus the file's absolute path. Only the two participants of
// the thread may fetch it.
func (s *MessageService) ResolveDownload(ctx context.Context, userID, token string) (*models.Message, string, error) {
	messageID, relPath, _, err := s.signer.Parse(token, false)
	if err != nil {
		return nil, "", appErrors.Clone(appErrors.ErrUnauthorized, "invalid or expired download link")
	}

	message, err := s.repo.FindByID(ctx, messageID)
	if err != nil {
		return nil, "", appErrors.Clone(appErrors.ErrNotFound, "file not found")
	}
	if message.SenderID != userID && message.ReceiverID != userID {
		return nil, "", appErrors.Clone(appErrors.ErrNotFound, "file not found")
	}
	if message.FilePath == "" || message.FilePath != relPath {
		return nil, "", appErrors.Clone(appErrors.ErrUnauthorized, "invalid download link")
	}

	return message, s.storage.Path(message.FilePath), nil
}

// UnreadCount returns the user's total unread message count.
func (s *MessageService) UnreadCount(ctx context.Context, userID string) (int, error) {
	count, err := s.repo.CountUnread(ctx, userID)
	if err != nil {
		return 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count unread messages")
	}
	return count, nil
}

func (s *MessageService) withFileLinks(messages []models.Message) []models.Message {
	for i := range messages {
		s.signFileLink(&messages[i])
	}
	return messages
}

func (s *MessageService) signFileLink(message *models.Message) {
	if message.FilePath == "" || s.signer == nil {
		return
	}
	token, _, err := s.signer.Generate(message.ID, message.FilePath)
	if err != nil {
		s.logger.Warn("failed to sign attachment link", zap.String("message_id", message.ID), zap.Error(err))
		return
	}
	message.FileURL = downloadPath(token)
}

// conversationKey builds the canonical pair key, smaller ID first, so
// both participants derive the same thread identity.
func conversationKey(a, b string) string {
	pair := []string{a, b}
	sort.Strings(pair)
	return fmt.Sprintf("%s_%s", pair[0], pair[1])
}

package service

import (
	"context"
	"database/sql"
	"strings"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/maraakiz/maraakiz-api/internal/models"
	appErrors "github.com/maraakiz/maraakiz-api/pkg/errors"
)

type mockMessageRepo struct {
	messages   []models.Message
	markedRead [][2]string
	unread     int
}

func (m *mockMessageRepo) ListForUser(ctx context.Context, userID string) ([]models.Message, error) {
	return m.messages, nil
}

func (m *mockMessageRepo) ListBetween(ctx context.Context, userID, partnerID string) ([]models.Message, error) {
	var out []models.Message
	for _, msg := range m.messages {
		if (msg.SenderID == userID && msg.ReceiverID == partnerID) || (msg.SenderID == partnerID && msg.ReceiverID == userID) {
			out = append(out, msg)
		}
	}
	return out, nil
}

func (m *mockMessageRepo) FindByID(ctx context.Context, id string) (*models.Message, error) {
	for _, msg := range m.messages {
		if msg.ID == id {
			return &msg, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (m *mockMessageRepo) Create(ctx context.Context, message *models.Message) error {
	m.messages = append(m.messages, *message)
	return nil
}

func (m *mockMessageRepo) MarkThreadRead(ctx context.Context, userID, partnerID string) error {
	m.markedRead = append(m.markedRead, [2]string{userID, partnerID})
	return nil
}

func (m *mockMessageRepo) CountUnread(ctx context.Context, userID string) (int, error) {
	return m.unread, nil
}

type mockMessageUsers struct {
	users map[string]models.User
}

func (m *mockMessageUsers) FindByID(ctx context.Context, id string) (*models.User, error) {
	if u, ok := m.users[id]; ok {
		return &u, nil
	}
	return nil, sql.ErrNoRows
}

type mockFileStorage struct {
	saved   map[string][]byte
	deleted []string
}

func (m *mockFileStorage) Save(filename string, data []byte) (string, error) {
	if m.saved == nil {
		m.saved = make(map[string][]byte)
	}
	m.saved[filename] = data
	return filename, nil
}

func (m *mockFileStorage) Delete(relPath string) error {
	m.deleted = append(m.deleted, relPath)
	return nil
}

func (m *mockFileStorage) Path(relPath string) string {
	return "/uploads/" + relPath
}

type mockFileSigner struct {
	links map[string]string // token -> relPath
}

func (m *mockFileSigner) Generate(fileID, relPath string) (string, time.Time, error) {
	if m.links == nil {
		m.links = make(map[string]string)
	}
	token := "token-" + fileID
	m.links[token] = relPath
	return token, time.Now().Add(time.Hour), nil
}

func (m *mockFileSigner) Parse(token string, allowExpired bool) (string, string, time.Time, error) {
	relPath, ok := m.links[token]
	if !ok {
		return "", "", time.Time{}, appErrors.ErrUnauthorized
	}
	return strings.TrimPrefix(token, "token-"), relPath, time.Now().Add(time.Hour), nil
}

func messageTestService(repo *mockMessageRepo, users *mockMessageUsers, storage *mockFileStorage) *MessageService {
	return NewMessageService(repo, users, storage, &mockFileSigner{}, validator.New(), zap.NewNop())
}

func TestMessageServiceConversations(t *testing.T) {
	base := time.Date(2026, 9, 1, 10, 0, 0, 0, time.UTC)
	// Newest first, as the repository returns them.
	repo := &mockMessageRepo{messages: []models.Message{
		{ID: "m3", SenderID: "u2", ReceiverID: "u1", Content: "latest from u2", CreatedAt: base.Add(2 * time.Hour)},
		{ID: "m2", SenderID: "u1", ReceiverID: "u3", Content: "to u3", Read: true, CreatedAt: base.Add(time.Hour)},
		{ID: "m1", SenderID: "u2", ReceiverID: "u1", Content: "older from u2", CreatedAt: base},
	}}
	svc := messageTestService(repo, &mockMessageUsers{}, nil)

	conversations, err := svc.Conversations(context.Background(), "u1")
	require.NoError(t, err)
	require.Len(t, conversations, 2)

	assert.Equal(t, "u2", conversations[0].PartnerID)
	assert.Equal(t, "latest from u2", conversations[0].LastMessage.Content)
	assert.Equal(t, 2, conversations[0].UnreadCount)

	assert.Equal(t, "u3", conversations[1].PartnerID)
	assert.Equal(t, 0, conversations[1].UnreadCount)
}

func TestMessageServiceThreadMarksRead(t *testing.T) {
	repo := &mockMessageRepo{messages: []models.Message{
		{ID: "m1", SenderID: "u2", ReceiverID: "u1", Content: "salam"},
	}}
	svc := messageTestService(repo, &mockMessageUsers{}, nil)

	thread, err := svc.Thread(context.Background(), "u1", "u2")
	require.NoError(t, err)
	require.Len(t, thread, 1)
	require.Len(t, repo.markedRead, 1)
	assert.Equal(t, [2]string{"u1", "u2"}, repo.markedRead[0])
}

func TestMessageServiceSendWithFile(t *testing.T) {
	repo := &mockMessageRepo{}
	users := &mockMessageUsers{users: map[string]models.User{"u2": {ID: "u2"}}}
	storage := &mockFileStorage{}
	svc := messageTestService(repo, users, storage)

	message, err := svc.Send(context.Background(), "u1", SendMessageRequest{
		ReceiverID: "u2",
		Content:    "homework attached",
		FileName:   "exercise.pdf",
		Data:       []byte("pdf-bytes"),
	})
	require.NoError(t, err)
	assert.NotEmpty(t, message.FilePath)
	assert.Contains(t, message.FileURL, "/api/v1/files/")
	assert.Len(t, storage.saved, 1)
	require.Len(t, repo.messages, 1)
}

func TestMessageServiceAttachmentDownload(t *testing.T) {
	repo := &mockMessageRepo{}
	users := &mockMessageUsers{users: map[string]models.User{"u2": {ID: "u2"}}}
	storage := &mockFileStorage{}
	svc := messageTestService(repo, users, storage)

	message, err := svc.Send(context.Background(), "u1", SendMessageRequest{
		ReceiverID: "u2",
		Content:    "homework attached",
		FileName:   "exercise.pdf",
		Data:       []byte("pdf-bytes"),
	})
	require.NoError(t, err)
	require.Contains(t, message.FileURL, "/api/v1/files/")
	token := strings.TrimPrefix(message.FileURL, "/api/v1/files/")

	// The receiver follows the link from the thread.
	got, path, err := svc.ResolveDownload(context.Background(), "u2", token)
	require.NoError(t, err)
	assert.Equal(t, message.ID, got.ID)
	assert.Equal(t, "/uploads/"+message.FilePath, path)

	// The sender may re-fetch their own attachment.
	_, _, err = svc.ResolveDownload(context.Background(), "u1", token)
	require.NoError(t, err)

	// A third party gets nothing, even with a valid token.
	_, _, err = svc.ResolveDownload(context.Background(), "u3", token)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestMessageServiceSendToSelf(t *testing.T) {
	svc := messageTestService(&mockMessageRepo{}, &mockMessageUsers{}, nil)

	_, err := svc.Send(context.Background(), "u1", SendMessageRequest{ReceiverID: "u1", Content: "hi"})
	require.Error(t, err)
}

func TestMessageServiceSendEmpty(t *testing.T) {
	users := &mockMessageUsers{users: map[string]models.User{"u2": {ID: "u2"}}}
	svc := messageTestService(&mockMessageRepo{}, users, nil)

	_, err := svc.Send(context.Background(), "u1", SendMessageRequest{ReceiverID: "u2"})
	require.Error(t, err)
}

func TestConversationKeyCanonical(t *testing.T) {
	assert.Equal(t, conversationKey("b", "a"), conversationKey("a", "b"))
	assert.Equal(t, "a_b", conversationKey("b", "a"))
}

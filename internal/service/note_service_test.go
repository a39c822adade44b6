package service

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/maraakiz/maraakiz-api/internal/models"
)

type mockNoteRepo struct {
	notes   map[string]models.SessionNote // sessionID -> note
	files   []models.NoteFile
	removed [][2]string
}

func (m *mockNoteRepo) FindBySessionID(ctx context.Context, sessionID, ownerID string) (*models.SessionNote, error) {
	if note, ok := m.notes[sessionID]; ok && note.OwnerID == ownerID {
		return &note, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockNoteRepo) Create(ctx context.Context, note *models.SessionNote) error {
	if m.notes == nil {
		m.notes = make(map[string]models.SessionNote)
	}
	m.notes[note.SessionID] = *note
	return nil
}

func (m *mockNoteRepo) Update(ctx context.Context, note *models.SessionNote) error {
	m.notes[note.SessionID] = *note
	return nil
}

func (m *mockNoteRepo) ListByStudent(ctx context.Context, studentID, ownerID string) ([]models.SessionNote, error) {
	return nil, nil
}

func (m *mockNoteRepo) AddFile(ctx context.Context, file *models.NoteFile) error {
	m.files = append(m.files, *file)
	return nil
}

func (m *mockNoteRepo) FindFileByID(ctx context.Context, fileID, ownerID string) (*models.NoteFile, error) {
	for _, f := range m.files {
		if f.ID == fileID {
			return &f, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (m *mockNoteRepo) FindFile(ctx context.Context, fileID, noteID string) (*models.NoteFile, error) {
	for _, f := range m.files {
		if f.ID == fileID && f.NoteID == noteID {
			return &f, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (m *mockNoteRepo) ListFiles(ctx context.Context, noteID string) ([]models.NoteFile, error) {
	var out []models.NoteFile
	for _, f := range m.files {
		if f.NoteID == noteID {
			out = append(out, f)
		}
	}
	return out, nil
}

func (m *mockNoteRepo) RemoveFile(ctx context.Context, fileID, noteID string) error {
	m.removed = append(m.removed, [2]string{fileID, noteID})
	return nil
}

type mockNoteSessions struct {
	sessions map[string]string // sessionID -> ownerID
}

func (m *mockNoteSessions) FindByID(ctx context.Context, id, ownerID string) (*models.Session, error) {
	if owner, ok := m.sessions[id]; ok && owner == ownerID {
		return &models.Session{ID: id, OwnerID: ownerID}, nil
	}
	return nil, sql.ErrNoRows
}

type mockNoteStudents struct{}

func (m *mockNoteStudents) FindByID(ctx context.Context, id, ownerID string) (*models.Student, error) {
	return nil, sql.ErrNoRows
}

func noteTestService(repo *mockNoteRepo, sessions *mockNoteSessions, storage *mockFileStorage) *NoteService {
	return NewNoteService(repo, sessions, &mockNoteStudents{}, storage, &mockFileSigner{}, nil, nil, nil, NoteConfig{})
}

func TestNoteServiceRemoveFile(t *testing.T) {
	repo := &mockNoteRepo{
		notes: map[string]models.SessionNote{"sess1": {ID: "n1", SessionID: "sess1", OwnerID: "u1"}},
		files: []models.NoteFile{
			{ID: "f1", NoteID: "n1", Name: "sheet.pdf", Path: "notes/n1/f1.pdf"},
		},
	}
	sessions := &mockNoteSessions{sessions: map[string]string{"sess1": "u1"}}
	storage := &mockFileStorage{}
	svc := noteTestService(repo, sessions, storage)

	err := svc.RemoveFile(context.Background(), "sess1", "u1", "f1")
	require.NoError(t, err)
	require.Len(t, repo.removed, 1)
	assert.Equal(t, [2]string{"f1", "n1"}, repo.removed[0])
	assert.Equal(t, []string{"notes/n1/f1.pdf"}, storage.deleted)
}

func TestNoteServiceRemoveFileOtherNote(t *testing.T) {
	// The file exists but hangs off another session's note.
	repo := &mockNoteRepo{
		notes: map[string]models.SessionNote{"sess1": {ID: "n1", SessionID: "sess1", OwnerID: "u1"}},
		files: []models.NoteFile{
			{ID: "f9", NoteID: "n9", Name: "other.pdf", Path: "notes/n9/f9.pdf"},
		},
	}
	sessions := &mockNoteSessions{sessions: map[string]string{"sess1": "u1"}}
	svc := noteTestService(repo, sessions, &mockFileStorage{})

	err := svc.RemoveFile(context.Background(), "sess1", "u1", "f9")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
	assert.Empty(t, repo.removed)
}

package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/maraakiz/maraakiz-api/internal/models"
	appErrors "github.com/maraakiz/maraakiz-api/pkg/errors"
	"github.com/maraakiz/maraakiz-api/pkg/export"
)

type noteRepository interface {
	FindBySessionID(ctx context.Context, sessionID, ownerID string) (*models.SessionNote, error)
	Create(ctx context.Context, note *models.SessionNote) error
	Update(ctx context.Context, note *models.SessionNote) error
	ListByStudent(ctx context.Context, studentID, ownerID string) ([]models.SessionNote, error)
	AddFile(ctx context.Context, file *models.NoteFile) error
	FindFileByID(ctx context.Context, fileID, ownerID string) (*models.NoteFile, error)
	FindFile(ctx context.Context, fileID, noteID string) (*models.NoteFile, error)
	ListFiles(ctx context.Context, noteID string) ([]models.NoteFile, error)
	RemoveFile(ctx context.Context, fileID, noteID string) error
}

type noteSessionRepository interface {
	FindByID(ctx context.Context, id, ownerID string) (*models.Session, error)
}

type noteStudentRepository interface {
	FindByID(ctx context.Context, id, ownerID string) (*models.Student, error)
}

type noteStorage interface {
	Save(filename string, data []byte) (string, error)
	Delete(filename string) error
	Path(filename string) string
}

type noteSigner interface {
	Generate(fileID, relPath string) (string, time.Time, error)
	Parse(token string, allowExpired bool) (fileID, relPath string, expiresAt time.Time, err error)
}

// UpsertNoteRequest writes the documentation of a session. The note row
// is created lazily on first write.
type UpsertNoteRequest struct {
	Summary        string `json:"summary"`
	Covered        string `json:"covered"`
	Homework       string `json:"homework"`
	ToReview       string `json:"to_review"`
	NextPlan       string `json:"next_plan"`
	TeacherComment string `json:"teacher_comment"`
	Progress       int    `json:"progress" validate:"gte=0,lte=100"`
	Rating         string `json:"rating"`
}

// AddNoteFileRequest attaches an uploaded file to a note.
type AddNoteFileRequest struct {
	Name     string `validate:"required"`
	MIMEType string `validate:"required"`
	Data     []byte `validate:"required"`
}

// NoteConfig bounds note attachments.
type NoteConfig struct {
	MaxFileSizeBytes int64
	AllowedMIMEs     []string
}

// NoteService provides session-documentation use cases.
type NoteService struct {
	repo      noteRepository
	sessions  noteSessionRepository
	students  noteStudentRepository
	storage   noteStorage
	signer    noteSigner
	pdf       *export.PDFExporter
	validator *validator.Validate
	logger    *zap.Logger
	config    NoteConfig
}

// NewNoteService constructs a NoteService.
func NewNoteService(repo noteRepository, sessions noteSessionRepository, students noteStudentRepository, storage noteStorage, signer noteSigner, pdf *export.PDFExporter, validate *validator.Validate, logger *zap.Logger, config NoteConfig) *NoteService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	if pdf == nil {
		pdf = export.NewPDFExporter()
	}
	return &NoteService{repo: repo, sessions: sessions, students: students, storage: storage, signer: signer, pdf: pdf, validator: validate, logger: logger, config: config}
}

// Get fetches the note of a session along with its files and signed links.
func (s *NoteService) Get(ctx context.Context, sessionID, ownerID string) (*models.SessionNote, []models.NoteFile, error) {
	if _, err := s.sessions.FindByID(ctx, sessionID, ownerID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil, appErrors.Clone(appErrors.ErrNotFound, "session not found")
		}
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to fetch session")
	}

	note, err := s.repo.FindBySessionID(ctx, sessionID, ownerID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil, appErrors.Clone(appErrors.ErrNotFound, "note not found")
		}
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to fetch note")
	}

	files, err := s.filesWithLinks(ctx, note.ID)
	if err != nil {
		return nil, nil, err
	}
	return note, files, nil
}

// Upsert creates the note on first write and updates it afterwards.
func (s *NoteService) Upsert(ctx context.Context, sessionID, ownerID string, req UpsertNoteRequest) (*models.SessionNote, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid note payload")
	}

	if _, err := s.sessions.FindByID(ctx, sessionID, ownerID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "session not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to fetch session")
	}

	note, err := s.repo.FindBySessionID(ctx, sessionID, ownerID)
	if err != nil {
		if !errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to fetch note")
		}
		note = &models.SessionNote{SessionID: sessionID, OwnerID: ownerID}
		applyNoteRequest(note, req)
		if err := s.repo.Create(ctx, note); err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create note")
		}
		return note, nil
	}

	applyNoteRequest(note, req)
	if err := s.repo.Update(ctx, note); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update note")
	}
	return note, nil
}

// AddFile stores an upload and appends it to the note's file list.
func (s *NoteService) AddFile(ctx context.Context, sessionID, ownerID string, req AddNoteFileRequest) (*models.NoteFile, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid file payload")
	}
	if s.config.MaxFileSizeBytes > 0 && int64(len(req.Data)) > s.config.MaxFileSizeBytes {
		return nil, appErrors.Clone(appErrors.ErrFileTooLarge, "")
	}
	if !s.mimeAllowed(req.MIMEType) {
		return nil, appErrors.Clone(appErrors.ErrUnsupportedFile, "")
	}

	note, _, err := s.Get(ctx, sessionID, ownerID)
	if err != nil {
		return nil, err
	}

	fileID := uuid.NewString()
	relPath := filepath.Join("notes", note.ID, fileID+filepath.Ext(req.Name))
	if _, err := s.storage.Save(relPath, req.Data); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store file")
	}

	file := &models.NoteFile{
		ID:       fileID,
		NoteID:   note.ID,
		Name:     req.Name,
		MIMEType: req.MIMEType,
		Path:     relPath,
	}
	if err := s.repo.AddFile(ctx, file); err != nil {
		if cleanupErr := s.storage.Delete(relPath); cleanupErr != nil {
			s.logger.Warn("failed to remove orphaned upload", zap.String("path", relPath), zap.Error(cleanupErr))
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to attach file")
	}

	if token, _, err := s.signer.Generate(file.ID, file.Path); err == nil {
		file.DownloadURL = downloadPath(token)
	}
	return file, nil
}

// RemoveFile deletes an attachment and its stored bytes.
func (s *NoteService) RemoveFile(ctx context.Context, sessionID, ownerID, fileID string) error {
	note, _, err := s.Get(ctx, sessionID, ownerID)
	if err != nil {
		return err
	}

	file, err := s.repo.FindFile(ctx, fileID, note.ID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "file not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to fetch file")
	}

	if err := s.repo.RemoveFile(ctx, file.ID, note.ID); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to remove file")
	}
	if err := s.storage.Delete(file.Path); err != nil {
		s.logger.Warn("failed to delete stored file", zap.String("path", file.Path), zap.Error(err))
	}
	return nil
}

// ResolveDownload validates a signed token and returns the file metadata
// plus its absolute path on disk.
func (s *NoteService) ResolveDownload(ctx context.Context, ownerID, token string) (*models.NoteFile, string, error) {
	fileID, relPath, _, err := s.signer.Parse(token, false)
	if err != nil {
		return nil, "", appErrors.Clone(appErrors.ErrUnauthorized, "invalid or expired download link")
	}

	file, err := s.repo.FindFileByID(ctx, fileID, ownerID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, "", appErrors.Clone(appErrors.ErrNotFound, "file not found")
		}
		return nil, "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to fetch file")
	}
	if file.Path != relPath {
		return nil, "", appErrors.Clone(appErrors.ErrUnauthorized, "invalid download link")
	}

	return file, s.storage.Path(file.Path), nil
}

// StudentReport renders every note of a student's sessions as a PDF.
func (s *NoteService) StudentReport(ctx context.Context, studentID, ownerID string) ([]byte, string, error) {
	student, err := s.students.FindByID(ctx, studentID, ownerID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, "", appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return nil, "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to fetch student")
	}

	notes, err := s.repo.ListByStudent(ctx, studentID, ownerID)
	if err != nil {
		return nil, "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load notes")
	}
	if len(notes) == 0 {
		return nil, "", appErrors.Clone(appErrors.ErrNotFound, "no notes recorded for this student")
	}

	sections := make([]export.Section, 0, len(notes))
	for i, note := range notes {
		sections = append(sections, export.Section{
			Title: fmt.Sprintf("Session %d - %s", i+1, note.CreatedAt.Format("2006-01-02")),
			Fields: []export.Field{
				{Label: "Summary", Value: note.Summary},
				{Label: "Covered", Value: note.Covered},
				{Label: "Homework", Value: note.Homework},
				{Label: "To review", Value: note.ToReview},
				{Label: "Next plan", Value: note.NextPlan},
				{Label: "Comment", Value: note.TeacherComment},
				{Label: "Progress", Value: fmt.Sprintf("%d%%", note.Progress)},
				{Label: "Rating", Value: note.Rating},
			},
		})
	}

	title := fmt.Sprintf("Progress report - %s %s", student.FirstName, student.LastName)
	data, err := s.pdf.RenderReport(title, sections)
	if err != nil {
		return nil, "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render report")
	}

	filename := fmt.Sprintf("report-%s-%s.pdf", student.LastName, time.Now().UTC().Format("20060102"))
	return data, filename, nil
}

func (s *NoteService) filesWithLinks(ctx context.Context, noteID string) ([]models.NoteFile, error) {
	files, err := s.repo.ListFiles(ctx, noteID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list files")
	}
	for i := range files {
		token, _, err := s.signer.Generate(files[i].ID, files[i].Path)
		if err != nil {
			s.logger.Warn("failed to sign download link", zap.String("file_id", files[i].ID), zap.Error(err))
			continue
		}
		files[i].DownloadURL = downloadPath(token)
	}
	return files, nil
}

func (s *NoteService) mimeAllowed(mime string) bool {
	if len(s.config.AllowedMIMEs) == 0 {
		return true
	}
	for _, allowed := range s.config.AllowedMIMEs {
		if allowed == mime {
			return true
		}
	}
	return false
}

func applyNoteRequest(note *models.SessionNote, req UpsertNoteRequest) {
	note.Summary = req.Summary
	note.Covered = req.Covered
	note.Homework = req.Homework
	note.ToReview = req.ToReview
	note.NextPlan = req.NextPlan
	note.TeacherComment = req.TeacherComment
	note.Progress = req.Progress
	note.Rating = req.Rating
}

func downloadPath(token string) string {
	return "/api/v1/files/" + token
}

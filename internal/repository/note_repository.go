package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/maraakiz/maraakiz-api/internal/models"
)

const noteColumns = `id, session_id, owner_id, summary, covered, homework, to_review, next_plan, teacher_comment, progress, rating, created_at, updated_at`

// NoteRepository manages persistence for session notes and their files.
type NoteRepository struct {
	db *sqlx.DB
}

// NewNoteRepository constructs a NoteRepository.
func NewNoteRepository(db *sqlx.DB) *NoteRepository {
	return &NoteRepository{db: db}
}

// FindBySessionID fetches the note attached to a session.
func (r *NoteRepository) FindBySessionID(ctx context.Context, sessionID, ownerID string) (*models.SessionNote, error) {
	query := fmt.Sprintf("SELECT %s FROM session_notes WHERE session_id = $1 AND owner_id = $2", noteColumns)
	var note models.SessionNote
	if err := r.db.GetContext(ctx, &note, query, sessionID, ownerID); err != nil {
		return nil, err
	}
	return &note, nil
}

// Create inserts a new session note.
func (r *NoteRepository) Create(ctx context.Context, note *models.SessionNote) error {
	if note.ID == "" {
		note.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if note.CreatedAt.IsZero() {
		note.CreatedAt = now
	}
	note.UpdatedAt = now
	const query = `INSERT INTO session_notes (id, session_id, owner_id, summary, covered, homework, to_review, next_plan, teacher_comment, progress, rating, created_at, updated_at)
        VALUES (:id, :session_id, :owner_id, :summary, :covered, :homework, :to_review, :next_plan, :teacher_comment, :progress, :rating, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, note); err != nil {
		return fmt.Errorf("create session note: %w", err)
	}
	return nil
}

// Update modifies an existing session note.
func (r *NoteRepository) Update(ctx context.Context, note *models.SessionNote) error {
	note.UpdatedAt = time.Now().UTC()
	const query = `UPDATE session_notes SET summary = :summary, covered = :covered, homework = :homework,
        to_review = :to_review, next_plan = :next_plan, teacher_comment = :teacher_comment,
        progress = :progress, rating = :rating, updated_at = :updated_at WHERE id = :id AND owner_id = :owner_id`
	if _, err := r.db.NamedExecContext(ctx, query, note); err != nil {
		return fmt.Errorf("update session note: %w", err)
	}
	return nil
}

// ListByStudent returns the notes of completed sessions attended by a
// student, oldest first, for report generation.
func (r *NoteRepository) ListByStudent(ctx context.Context, studentID, ownerID string) ([]models.SessionNote, error) {
	const query = `SELECT n.id, n.session_id, n.owner_id, n.summary, n.covered, n.homework, n.to_review, n.next_plan, n.teacher_comment, n.progress, n.rating, n.created_at, n.updated_at
        FROM session_notes n JOIN sessions s ON s.id = n.session_id
        WHERE n.owner_id = $1 AND $2 = ANY(s.student_ids) ORDER BY s.start_time ASC`
	var notes []models.SessionNote
	if err := r.db.SelectContext(ctx, &notes, query, ownerID, studentID); err != nil {
		return nil, fmt.Errorf("list notes by student: %w", err)
	}
	return notes, nil
}

// AddFile appends an attachment at the end of the note's file list.
func (r *NoteRepository) AddFile(ctx context.Context, file *models.NoteFile) error {
	if file.ID == "" {
		file.ID = uuid.NewString()
	}
	if file.UploadedAt.IsZero() {
		file.UploadedAt = time.Now().UTC()
	}
	const positionQuery = `SELECT COALESCE(MAX(position), -1) + 1 FROM note_files WHERE note_id = $1`
	if err := r.db.GetContext(ctx, &file.Position, positionQuery, file.NoteID); err != nil {
		return fmt.Errorf("next file position: %w", err)
	}
	const query = `INSERT INTO note_files (id, note_id, name, mime_type, path, position, uploaded_at)
        VALUES (:id, :note_id, :name, :mime_type, :path, :position, :uploaded_at)`
	if _, err := r.db.NamedExecContext(ctx, query, file); err != nil {
		return fmt.Errorf("add note file: %w", err)
	}
	return nil
}

// FindFileByID fetches an attachment with its owning note checked.
func (r *NoteRepository) FindFileByID(ctx context.Context, fileID, ownerID string) (*models.NoteFile, error) {
	const query = `SELECT f.id, f.note_id, f.name, f.mime_type, f.path, f.position, f.uploaded_at
        FROM note_files f JOIN session_notes n ON n.id = f.note_id WHERE f.id = $1 AND n.owner_id = $2`
	var file models.NoteFile
	if err := r.db.GetContext(ctx, &file, query, fileID, ownerID); err != nil {
		return nil, err
	}
	return &file, nil
}

// FindFile fetches a single attachment.
func (r *NoteRepository) FindFile(ctx context.Context, fileID, noteID string) (*models.NoteFile, error) {
	const query = `SELECT id, note_id, name, mime_type, path, position, uploaded_at FROM note_files WHERE id = $1 AND note_id = $2`
	var file models.NoteFile
	if err := r.db.GetContext(ctx, &file, query, fileID, noteID); err != nil {
		return nil, err
	}
	return &file, nil
}

// ListFiles returns the note's attachments in upload order.
func (r *NoteRepository) ListFiles(ctx context.Context, noteID string) ([]models.NoteFile, error) {
	const query = `SELECT id, note_id, name, mime_type, path, position, uploaded_at FROM note_files WHERE note_id = $1 ORDER BY position ASC`
	var files []models.NoteFile
	if err := r.db.SelectContext(ctx, &files, query, noteID); err != nil {
		return nil, fmt.Errorf("list note files: %w", err)
	}
	return files, nil
}

// RemoveFile deletes a single attachment row.
func (r *NoteRepository) RemoveFile(ctx context.Context, fileID, noteID string) error {
	const query = `DELETE FROM note_files WHERE id = $1 AND note_id = $2`
	if _, err := r.db.ExecContext(ctx, query, fileID, noteID); err != nil {
		return fmt.Errorf("remove note file: %w", err)
	}
	return nil
}

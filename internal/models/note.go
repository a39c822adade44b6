package models

import "time"

// SessionNote is the post-session documentation record, created lazily
// the first time a teacher documents a session.
type SessionNote struct {
	ID             string    `db:"id" json:"id"`
	SessionID      string    `db:"session_id" json:"session_id"`
	OwnerID        string    `db:"owner_id" json:"owner_id"`
	Summary        string    `db:"summary" json:"summary"`
	Covered        string    `db:"covered" json:"covered"`
	Homework       string    `db:"homework" json:"homework"`
	ToReview       string    `db:"to_review" json:"to_review"`
	NextPlan       string    `db:"next_plan" json:"next_plan"`
	TeacherComment string    `db:"teacher_comment" json:"teacher_comment"`
	Progress       int       `db:"progress" json:"progress"`
	Rating         string    `db:"rating" json:"rating"`
	CreatedAt      time.Time `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time `db:"updated_at" json:"updated_at"`
}

// NoteFile is an ordered attachment on a session note.
type NoteFile struct {
	ID         string    `db:"id" json:"id"`
	NoteID     string    `db:"note_id" json:"note_id"`
	Name       string    `db:"name" json:"name"`
	MIMEType   string    `db:"mime_type" json:"mime_type"`
	Path       string    `db:"path" json:"-"`
	Position   int       `db:"position" json:"position"`
	UploadedAt time.Time `db:"uploaded_at" json:"uploaded_at"`

	// DownloadURL is a signed link computed on read, never stored.
	DownloadURL string `db:"-" json:"download_url,omitempty"`
}

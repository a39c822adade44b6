package models

import (
	"time"

	"github.com/lib/pq"
)

// SessionStatus tracks a session through its lifecycle.
type SessionStatus string

const (
	SessionStatusPlanned   SessionStatus = "planned"
	SessionStatusDone      SessionStatus = "done"
	SessionStatusCancelled SessionStatus = "cancelled"
	SessionStatusPostponed SessionStatus = "postponed"
)

// SessionMode is the delivery mode of a session.
type SessionMode string

const (
	SessionModeOnline   SessionMode = "online"
	SessionModeInPerson SessionMode = "in_person"
	SessionModeRecorded SessionMode = "recorded"
)

// Session represents a scheduled tutoring session ("cours").
type Session struct {
	ID                 string         `db:"id" json:"id"`
	OwnerID            string         `db:"owner_id" json:"owner_id"`
	Title              string         `db:"title" json:"title"`
	Subject            string         `db:"subject" json:"subject"`
	Description        string         `db:"description" json:"description"`
	StartTime          time.Time      `db:"start_time" json:"start_time"`
	EndTime            time.Time      `db:"end_time" json:"end_time"`
	DurationMin        int            `db:"duration_min" json:"duration_min"`
	Mode               SessionMode    `db:"mode" json:"mode"`
	Status             SessionStatus  `db:"status" json:"status"`
	VideoLink          string         `db:"video_link" json:"video_link"`
	StudentIDs         pq.StringArray `db:"student_ids" json:"student_ids"`
	Recurrent          bool           `db:"recurrent" json:"recurrent"`
	RecurrenceParentID *string        `db:"recurrence_parent_id" json:"recurrence_parent_id,omitempty"`
	CreatedAt          time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt          time.Time      `db:"updated_at" json:"updated_at"`
}

// SessionFilter captures list parameters for sessions.
type SessionFilter struct {
	OwnerID   string
	From      *time.Time
	To        *time.Time
	StudentID string
	Status    *SessionStatus
	Page      int
	PageSize  int
	SortBy    string
	SortOrder string
}

// DaySlot is a start/end pair in HH:MM for one weekday of a recurring
// schedule. Weekday keys follow time.Weekday numbering (0 = Sunday).
type DaySlot struct {
	Start string `json:"start" validate:"required"`
	End   string `json:"end" validate:"required"`
}

// RecurringResult summarises a recurring-session expansion.
type RecurringResult struct {
	ParentID string `json:"parent_id"`
	Created  int    `json:"created"`
}

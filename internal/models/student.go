package models

import (
	"time"

	"github.com/lib/pq"
)

// StudentStatus reflects a learner's enrollment state.
type StudentStatus string

const (
	StudentStatusActive    StudentStatus = "active"
	StudentStatusInactive  StudentStatus = "inactive"
	StudentStatusSuspended StudentStatus = "suspended"
)

// Student represents a learner managed by a professor or institute.
type Student struct {
	ID           string         `db:"id" json:"id"`
	OwnerID      string         `db:"owner_id" json:"owner_id"`
	FirstName    string         `db:"first_name" json:"first_name"`
	LastName     string         `db:"last_name" json:"last_name"`
	Email        string         `db:"email" json:"email"`
	Phone        string         `db:"phone" json:"phone"`
	Level        string         `db:"level" json:"level"`
	Status       StudentStatus  `db:"status" json:"status"`
	Subjects     pq.StringArray `db:"subjects" json:"subjects"`
	Remarks      string         `db:"remarks" json:"remarks"`
	VideoLink    string         `db:"video_link" json:"video_link"`
	LinkedUserID *string        `db:"linked_user_id" json:"linked_user_id,omitempty"`
	CreatedAt    time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time      `db:"updated_at" json:"updated_at"`
}

// Tags exposes the student's values for a filter category.
func (s Student) Tags(category string) []string {
	switch category {
	case FilterSubject:
		return s.Subjects
	case FilterLevel:
		return []string{s.Level}
	case FilterStatus:
		return []string{string(s.Status)}
	default:
		return nil
	}
}

// StudentFilter encapsulates allowed search parameters for listing students.
type StudentFilter struct {
	OwnerID   string
	Search    string
	Status    *StudentStatus
	Subject   string
	Page      int
	PageSize  int
	SortBy    string
	SortOrder string
}

package models

import (
	"strings"
	"time"

	"github.com/lib/pq"
)

// ResourceCategory classifies a library file by its media kind. The
// category is inferred from the MIME type at upload, never user-picked.
type ResourceCategory string

const (
	ResourceCategoryVideo    ResourceCategory = "video"
	ResourceCategoryAudio    ResourceCategory = "audio"
	ResourceCategoryImage    ResourceCategory = "image"
	ResourceCategoryDocument ResourceCategory = "document"
)

// CategoryForMIME infers the library category from a MIME type.
// Anything that is not video, audio or image counts as a document.
func CategoryForMIME(mime string) ResourceCategory {
	switch {
	case strings.HasPrefix(mime, "video/"):
		return ResourceCategoryVideo
	case strings.HasPrefix(mime, "audio/"):
		return ResourceCategoryAudio
	case strings.HasPrefix(mime, "image/"):
		return ResourceCategoryImage
	default:
		return ResourceCategoryDocument
	}
}

// ResourceAccess scopes who may see a library resource.
type ResourceAccess string

const (
	ResourceAccessPrivate  ResourceAccess = "private"
	ResourceAccessPublic   ResourceAccess = "public"
	ResourceAccessStudents ResourceAccess = "students"
	ResourceAccessSpecific ResourceAccess = "specific"
)

// Resource is a file in a professor's or institute's teaching library.
type Resource struct {
	ID                string           `db:"id" json:"id"`
	OwnerID           string           `db:"owner_id" json:"owner_id"`
	Title             string           `db:"title" json:"title"`
	Description       string           `db:"description" json:"description"`
	FileName          string           `db:"file_name" json:"file_name"`
	MIMEType          string           `db:"mime_type" json:"mime_type"`
	SizeBytes         int64            `db:"size_bytes" json:"size_bytes"`
	Path              string           `db:"path" json:"-"`
	Category          ResourceCategory `db:"category" json:"category"`
	Access            ResourceAccess   `db:"access" json:"access"`
	AllowedStudentIDs pq.StringArray   `db:"allowed_student_ids" json:"allowed_student_ids,omitempty"`
	Tags              pq.StringArray   `db:"tags" json:"tags,omitempty"`
	Folder            string           `db:"folder" json:"folder,omitempty"`
	Views             int              `db:"views" json:"views"`
	Downloads         int              `db:"downloads" json:"downloads"`
	CreatedAt         time.Time        `db:"created_at" json:"created_at"`
	UpdatedAt         time.Time        `db:"updated_at" json:"updated_at"`

	// FileURL is a signed link computed on read, never stored.
	FileURL string `db:"-" json:"file_url,omitempty"`
}

// AccessibleTo reports whether a given student may see the resource.
func (r Resource) AccessibleTo(studentID string) bool {
	switch r.Access {
	case ResourceAccessPublic, ResourceAccessStudents:
		return true
	case ResourceAccessSpecific:
		for _, id := range r.AllowedStudentIDs {
			if id == studentID {
				return true
			}
		}
	}
	return false
}

// ResourceFilter captures library list parameters.
type ResourceFilter struct {
	OwnerID  string
	Category string
	Folder   string
}

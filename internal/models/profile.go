package models

import (
	"time"

	"github.com/lib/pq"
)

// Filter categories understood by profile and student records.
const (
	FilterSubject  = "subject"
	FilterFormat   = "format"
	FilterMode     = "mode"
	FilterLevel    = "level"
	FilterLanguage = "language"
	FilterAudience = "audience"
	FilterType     = "type"
	FilterStatus   = "status"
)

// Profile is the denormalized public-facing record of a professor or
// institute, used both for dashboard self-editing and directory display.
type Profile struct {
	ID            string         `db:"id" json:"id"`
	UserID        string         `db:"user_id" json:"user_id"`
	DisplayName   string         `db:"display_name" json:"display_name"`
	Type          UserRole       `db:"type" json:"type"`
	Subjects      pq.StringArray `db:"subjects" json:"subjects"`
	Formats       pq.StringArray `db:"formats" json:"formats"`
	Modes         pq.StringArray `db:"modes" json:"modes"`
	Levels        pq.StringArray `db:"levels" json:"levels"`
	Languages     pq.StringArray `db:"languages" json:"languages"`
	Audiences     pq.StringArray `db:"audiences" json:"audiences"`
	PriceMin      *float64       `db:"price_min" json:"price_min,omitempty"`
	PriceMax      *float64       `db:"price_max" json:"price_max,omitempty"`
	Bio           string         `db:"bio" json:"bio"`
	Cursus        string         `db:"cursus" json:"cursus"`
	Books         string         `db:"books" json:"books"`
	WebsiteURL    string         `db:"website_url" json:"website_url"`
	InstagramURL  string         `db:"instagram_url" json:"instagram_url"`
	YoutubeURL    string         `db:"youtube_url" json:"youtube_url"`
	AvatarURL     string         `db:"avatar_url" json:"avatar_url"`
	Immediate     bool           `db:"immediate" json:"immediate"`
	CredoAccepted bool           `db:"credo_accepted" json:"credo_accepted"`
	Approved      bool           `db:"approved" json:"approved"`
	CreatedAt     time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time      `db:"updated_at" json:"updated_at"`
}

// Tags exposes the profile's values for a filter category.
func (p Profile) Tags(category string) []string {
	switch category {
	case FilterSubject:
		return p.Subjects
	case FilterFormat:
		return p.Formats
	case FilterMode:
		return p.Modes
	case FilterLevel:
		return p.Levels
	case FilterLanguage:
		return p.Languages
	case FilterAudience:
		return p.Audiences
	case FilterType:
		return []string{string(p.Type)}
	default:
		return nil
	}
}

// ProfileFilter captures directory search parameters.
type ProfileFilter struct {
	Subjects  []string
	Formats   []string
	Modes     []string
	Levels    []string
	Languages []string
	Audiences []string
	Type      string
	Page      int
	PageSize  int
}

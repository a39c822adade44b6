package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/maraakiz/maraakiz-api/internal/models"
)

const profileColumns = `id, user_id, display_name, type, subjects, formats, modes, levels, languages, audiences,
        price_min, price_max, bio, cursus, books, website_url, instagram_url, youtube_url, avatar_url,
        immediate, credo_accepted, approved, created_at, updated_at`

// ProfileRepository manages persistence for public profiles.
type ProfileRepository struct {
	db *sqlx.DB
}

// NewProfileRepository constructs a ProfileRepository.
func NewProfileRepository(db *sqlx.DB) *ProfileRepository {
	return &ProfileRepository{db: db}
}

// FindByUserID fetches the profile owned by a user account.
func (r *ProfileRepository) FindByUserID(ctx context.Context, userID string) (*models.Profile, error) {
	query := fmt.Sprintf("SELECT %s FROM profiles WHERE user_id = $1", profileColumns)
	var profile models.Profile
	if err := r.db.GetContext(ctx, &profile, query, userID); err != nil {
		return nil, err
	}
	return &profile, nil
}

// FindApprovedByID fetches a publicly visible profile.
func (r *ProfileRepository) FindApprovedByID(ctx context.Context, id string) (*models.Profile, error) {
	query := fmt.Sprintf("SELECT %s FROM profiles WHERE id = $1 AND approved = true", profileColumns)
	var profile models.Profile
	if err := r.db.GetContext(ctx, &profile, query, id); err != nil {
		return nil, err
	}
	return &profile, nil
}

// ListApproved returns every approved profile, optionally narrowed by type.
// Tag filtering happens in the service layer on the full approved set.
func (r *ProfileRepository) ListApproved(ctx context.Context, profileType string) ([]models.Profile, error) {
	query := fmt.Sprintf("SELECT %s FROM profiles WHERE approved = true", profileColumns)
	args := []interface{}{}
	if profileType != "" {
		query += " AND type = $1"
		args = append(args, profileType)
	}
	query += " ORDER BY display_name ASC"

	var profiles []models.Profile
	if err := r.db.SelectContext(ctx, &profiles, query, args...); err != nil {
		return nil, fmt.Errorf("list approved profiles: %w", err)
	}
	return profiles, nil
}

// Create inserts a profile shell for a new account.
func (r *ProfileRepository) Create(ctx context.Context, profile *models.Profile) error {
	if profile.ID == "" {
		profile.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if profile.CreatedAt.IsZero() {
		profile.CreatedAt = now
	}
	profile.UpdatedAt = now
	const query = `INSERT INTO profiles (id, user_id, display_name, type, subjects, formats, modes, levels, languages, audiences,
        price_min, price_max, bio, cursus, books, website_url, instagram_url, youtube_url, avatar_url,
        immediate, credo_accepted, approved, created_at, updated_at)
        VALUES (:id, :user_id, :display_name, :type, :subjects, :formats, :modes, :levels, :languages, :audiences,
        :price_min, :price_max, :bio, :cursus, :books, :website_url, :instagram_url, :youtube_url, :avatar_url,
        :immediate, :credo_accepted, :approved, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, profile); err != nil {
		return fmt.Errorf("create profile: %w", err)
	}
	return nil
}

// Update modifies an existing profile.
func (r *ProfileRepository) Update(ctx context.Context, profile *models.Profile) error {
	profile.UpdatedAt = time.Now().UTC()
	const query = `UPDATE profiles SET display_name = :display_name, subjects = :subjects, formats = :formats, modes = :modes,
        levels = :levels, languages = :languages, audiences = :audiences, price_min = :price_min, price_max = :price_max,
        bio = :bio, cursus = :cursus, books = :books, website_url = :website_url, instagram_url = :instagram_url,
        youtube_url = :youtube_url, avatar_url = :avatar_url, immediate = :immediate, credo_accepted = :credo_accepted,
        updated_at = :updated_at WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, profile); err != nil {
		return fmt.Errorf("update profile: %w", err)
	}
	return nil
}

// SetApproved flips the admin approval flag.
func (r *ProfileRepository) SetApproved(ctx context.Context, id string, approved bool) error {
	const query = `UPDATE profiles SET approved = $2, updated_at = $3 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, approved, time.Now().UTC()); err != nil {
		return fmt.Errorf("set profile approval: %w", err)
	}
	return nil
}

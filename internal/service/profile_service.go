package service

import (
	"context"
	"database/sql"
	"errors"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/maraakiz/maraakiz-api/internal/models"
	appErrors "github.com/maraakiz/maraakiz-api/pkg/errors"
)

type profileRepository interface {
	FindByUserID(ctx context.Context, userID string) (*models.Profile, error)
	Update(ctx context.Context, profile *models.Profile) error
	SetApproved(ctx context.Context, id string, approved bool) error
}

type directoryInvalidator interface {
	Invalidate(ctx context.Context)
}

// UpdateProfileRequest is the payload for editing the caller's public profile.
type UpdateProfileRequest struct {
	DisplayName   string   `json:"display_name" validate:"required"`
	Subjects      []string `json:"subjects"`
	Formats       []string `json:"formats"`
	Modes         []string `json:"modes"`
	Levels        []string `json:"levels"`
	Languages     []string `json:"languages"`
	Audiences     []string `json:"audiences"`
	PriceMin      *float64 `json:"price_min" validate:"omitempty,gte=0"`
	PriceMax      *float64 `json:"price_max" validate:"omitempty,gte=0"`
	Bio           string   `json:"bio"`
	Cursus        string   `json:"cursus"`
	Books         string   `json:"books"`
	WebsiteURL    string   `json:"website_url" validate:"omitempty,url"`
	InstagramURL  string   `json:"instagram_url" validate:"omitempty,url"`
	YoutubeURL    string   `json:"youtube_url" validate:"omitempty,url"`
	AvatarURL     string   `json:"avatar_url" validate:"omitempty,url"`
	Immediate     bool     `json:"immediate"`
	CredoAccepted bool     `json:"credo_accepted"`
}

// ProfileService provides dashboard profile use cases.
type ProfileService struct {
	repo      profileRepository
	directory directoryInvalidator
	validator *validator.Validate
	logger    *zap.Logger
}

// NewProfileService constructs a ProfileService.
func NewProfileService(repo profileRepository, directory directoryInvalidator, validate *validator.Validate, logger *zap.Logger) *ProfileService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &ProfileService{repo: repo, directory: directory, validator: validate, logger: logger}
}

// Get fetches the caller's profile.
func (s *ProfileService) Get(ctx context.Context, userID string) (*models.Profile, error) {
	profile, err := s.repo.FindByUserID(ctx, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "profile not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to fetch profile")
	}
	return profile, nil
}

// Update edits the caller's profile and drops the cached directory.
func (s *ProfileService) Update(ctx context.Context, userID string, req UpdateProfileRequest) (*models.Profile, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid profile payload")
	}
	if req.PriceMin != nil && req.PriceMax != nil && *req.PriceMax < *req.PriceMin {
		return nil, appErrors.Clone(appErrors.ErrValidation, "price_max must be at least price_min")
	}

	profile, err := s.Get(ctx, userID)
	if err != nil {
		return nil, err
	}

	profile.DisplayName = req.DisplayName
	profile.Subjects = req.Subjects
	profile.Formats = req.Formats
	profile.Modes = req.Modes
	profile.Levels = req.Levels
	profile.Languages = req.Languages
	profile.Audiences = req.Audiences
	profile.PriceMin = req.PriceMin
	profile.PriceMax = req.PriceMax
	profile.Bio = req.Bio
	profile.Cursus = req.Cursus
	profile.Books = req.Books
	profile.WebsiteURL = req.WebsiteURL
	profile.InstagramURL = req.InstagramURL
	profile.YoutubeURL = req.YoutubeURL
	profile.AvatarURL = req.AvatarURL
	profile.Immediate = req.Immediate
	profile.CredoAccepted = req.CredoAccepted

	if err := s.repo.Update(ctx, profile); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update profile")
	}

	if s.directory != nil {
		s.directory.Invalidate(ctx)
	}
	return profile, nil
}

// SetApproval flips a profile's directory visibility. Admin only;
// approval requires the owner to have accepted the credo.
func (s *ProfileService) SetApproval(ctx context.Context, userID string, approved bool) (*models.Profile, error) {
	profile, err := s.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	if approved && !profile.CredoAccepted {
		return nil, appErrors.Clone(appErrors.ErrValidation, "profile cannot be approved before the credo is accepted")
	}

	if err := s.repo.SetApproved(ctx, profile.ID, approved); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update approval")
	}
	profile.Approved = approved

	if s.directory != nil {
		s.directory.Invalidate(ctx)
	}
	return profile, nil
}

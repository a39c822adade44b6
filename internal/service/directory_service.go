package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/maraakiz/maraakiz-api/internal/filter"
	"github.com/maraakiz/maraakiz-api/internal/models"
	appErrors "github.com/maraakiz/maraakiz-api/pkg/errors"
)

type directoryProfileRepository interface {
	ListApproved(ctx context.Context, profileType string) ([]models.Profile, error)
	FindApprovedByID(ctx context.Context, id string) (*models.Profile, error)
}

type cacheRecorder interface {
	RecordCacheOperation(hit bool)
}

// Directory types cached independently. Empty string means all.
var directoryCacheTypes = []string{"", string(models.RoleProfessor), string(models.RoleInstitute)}

// DirectoryService serves the public tutor directory. The approved
// profile set is cached in Redis per account type; tag filtering runs
// in memory on the cached set.
type DirectoryService struct {
	repo     directoryProfileRepository
	cache    *redis.Client
	metrics  cacheRecorder
	ttl      time.Duration
	pageSize int
	logger   *zap.Logger
}

// NewDirectoryService constructs a DirectoryService.
func NewDirectoryService(repo directoryProfileRepository, cache *redis.Client, metrics cacheRecorder, ttl time.Duration, pageSize int, logger *zap.Logger) *DirectoryService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	if pageSize <= 0 {
		pageSize = 24
	}
	return &DirectoryService{repo: repo, cache: cache, metrics: metrics, ttl: ttl, pageSize: pageSize, logger: logger}
}

// Search lists approved profiles matching the active tag filters.
func (s *DirectoryService) Search(ctx context.Context, f models.ProfileFilter) ([]models.Profile, *models.Pagination, error) {
	profiles, err := s.approvedSet(ctx, f.Type)
	if err != nil {
		return nil, nil, err
	}

	active := filter.Active{
		models.FilterSubject:  f.Subjects,
		models.FilterFormat:   f.Formats,
		models.FilterMode:     f.Modes,
		models.FilterLevel:    f.Levels,
		models.FilterLanguage: f.Languages,
		models.FilterAudience: f.Audiences,
	}
	matched := filter.Apply(profiles, active)

	page := f.Page
	if page < 1 {
		page = 1
	}
	size := f.PageSize
	if size <= 0 || size > 100 {
		size = s.pageSize
	}
	start := (page - 1) * size
	if start > len(matched) {
		start = len(matched)
	}
	end := start + size
	if end > len(matched) {
		end = len(matched)
	}

	return matched[start:end], &models.Pagination{Page: page, PageSize: size, TotalCount: len(matched)}, nil
}

// Get fetches a single public profile.
func (s *DirectoryService) Get(ctx context.Context, id string) (*models.Profile, error) {
	profile, err := s.repo.FindApprovedByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "profile not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to fetch profile")
	}
	return profile, nil
}

// Invalidate drops every cached directory set. Called after profile
// writes and approval changes.
func (s *DirectoryService) Invalidate(ctx context.Context) {
	if s.cache == nil {
		return
	}
	keys := make([]string, 0, len(directoryCacheTypes))
	for _, t := range directoryCacheTypes {
		keys = append(keys, directoryCacheKey(t))
	}
	if err := s.cache.Del(ctx, keys...).Err(); err != nil {
		s.logger.Warn("failed to invalidate directory cache", zap.Error(err))
	}
}

func (s *DirectoryService) approvedSet(ctx context.Context, profileType string) ([]models.Profile, error) {
	key := directoryCacheKey(profileType)

	if s.cache != nil {
		raw, err := s.cache.Get(ctx, key).Bytes()
		if err == nil {
			var cached []models.Profile
			if err := json.Unmarshal(raw, &cached); err == nil {
				s.recordCache(true)
				return cached, nil
			}
			s.logger.Warn("failed to decode cached directory", zap.String("key", key))
		} else if !errors.Is(err, redis.Nil) {
			s.logger.Warn("directory cache read failed", zap.Error(err))
		}
		s.recordCache(false)
	}

	profiles, err := s.repo.ListApproved(ctx, profileType)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list profiles")
	}

	if s.cache != nil {
		if raw, err := json.Marshal(profiles); err == nil {
			if err := s.cache.Set(ctx, key, raw, s.ttl).Err(); err != nil {
				s.logger.Warn("directory cache write failed", zap.Error(err))
			}
		}
	}
	return profiles, nil
}

func (s *DirectoryService) recordCache(hit bool) {
	if s.metrics != nil {
		s.metrics.RecordCacheOperation(hit)
	}
}

func directoryCacheKey(profileType string) string {
	if profileType == "" {
		return "directory:approved:all"
	}
	return fmt.Sprintf("directory:approved:%s", profileType)
}

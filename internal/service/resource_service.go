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
)

type resourceRepository interface {
	List(ctx context.Context, filter models.ResourceFilter) ([]models.Resource, error)
	ListPublic(ctx context.Context, ownerID string) ([]models.Resource, error)
	ListFolders(ctx context.Context, ownerID string) ([]string, error)
	FindByID(ctx context.Context, id, ownerID string) (*models.Resource, error)
	FindAnyByID(ctx context.Context, id string) (*models.Resource, error)
	Create(ctx context.Context, resource *models.Resource) error
	Update(ctx context.Context, resource *models.Resource) error
	Delete(ctx context.Context, id, ownerID string) error
	IncrementViews(ctx context.Context, id string) error
	IncrementDownloads(ctx context.Context, id string) error
}

type resourceStudentRepository interface {
	FindByID(ctx context.Context, id, ownerID string) (*models.Student, error)
}

type resourceProfileRepository interface {
	FindApprovedByID(ctx context.Context, id string) (*models.Profile, error)
}

type resourceStorage interface {
	Save(filename string, data []byte) (string, error)
	Delete(filename string) error
	Path(filename string) string
}

type resourceSigner interface {
	Generate(fileID, relPath string) (string, time.Time, error)
	Parse(token string, allowExpired bool) (fileID, relPath string, expiresAt time.Time, err error)
}

// UploadResourceRequest adds a file to the library. The category is
// inferred from the MIME type, not chosen by the caller.
type UploadResourceRequest struct {
	Title             string                `json:"title" validate:"required"`
	Description       string                `json:"description"`
	Access            models.ResourceAccess `json:"access" validate:"omitempty,oneof=private public students specific"`
	AllowedStudentIDs []string              `json:"allowed_student_ids"`
	Tags              []string              `json:"tags"`
	Folder            string                `json:"folder"`
	FileName          string                `validate:"required"`
	MIMEType          string                `validate:"required"`
	Data              []byte                `json:"-" validate:"required"`
}

// UpdateResourceRequest edits library metadata. The stored file is
// immutable; re-upload to replace it.
type UpdateResourceRequest struct {
	Title             string                `json:"title" validate:"required"`
	Description       string                `json:"description"`
	Access            models.ResourceAccess `json:"access" validate:"required,oneof=private public students specific"`
	AllowedStudentIDs []string              `json:"allowed_student_ids"`
	Tags              []string              `json:"tags"`
	Folder            string                `json:"folder"`
}

// ResourceConfig bounds library uploads.
type ResourceConfig struct {
	MaxFileSizeBytes int64
	AllowedMIMEs     []string
}

// The library accepts richer media than note attachments: courses are
// often recorded lessons or recitation audio.
var defaultResourceMIMEs = []string{
	"application/pdf", "application/msword",
	"application/vnd.openxmlformats-officedocument.wordprocessingml.document",
	"application/vnd.ms-excel", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
	"application/vnd.ms-powerpoint", "application/vnd.openxmlformats-officedocument.presentationml.presentation",
	"image/jpeg", "image/png", "image/webp", "image/gif",
	"audio/mpeg", "audio/wav", "audio/ogg",
	"video/mp4", "video/webm", "video/ogg", "video/quicktime",
}

// ResourceService provides teaching-library use cases.
type ResourceService struct {
	repo      resourceRepository
	students  resourceStudentRepository
	profiles  resourceProfileRepository
	storage   resourceStorage
	signer    resourceSigner
	validator *validator.Validate
	logger    *zap.Logger
	config    ResourceConfig
}

// NewResourceService constructs a ResourceService.
func NewResourceService(repo resourceRepository, students resourceStudentRepository, profiles resourceProfileRepository, storage resourceStorage, signer resourceSigner, validate *validator.Validate, logger *zap.Logger, config ResourceConfig) *ResourceService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	if len(config.AllowedMIMEs) == 0 {
		config.AllowedMIMEs = defaultResourceMIMEs
	}
	return &ResourceService{repo: repo, students: students, profiles: profiles, storage: storage, signer: signer, validator: validate, logger: logger, config: config}
}

// List returns the owner's library, optionally narrowed by category
// and folder.
func (s *ResourceService) List(ctx context.Context, ownerID, category, folder string) ([]models.Resource, error) {
	resources, err := s.repo.List(ctx, models.ResourceFilter{OwnerID: ownerID, Category: category, Folder: folder})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list resources")
	}
	return s.withFileLinks(resources), nil
}

// Folders returns the owner's distinct folder names.
func (s *ResourceService) Folders(ctx context.Context, ownerID string) ([]string, error) {
	folders, err := s.repo.ListFolders(ctx, ownerID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list folders")
	}
	return folders, nil
}

// Get fetches one resource and counts the view.
func (s *ResourceService) Get(ctx context.Context, id, ownerID string) (*models.Resource, error) {
	resource, err := s.repo.FindByID(ctx, id, ownerID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "resource not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to fetch resource")
	}

	if err := s.repo.IncrementViews(ctx, resource.ID); err != nil {
		s.logger.Warn("failed to count resource view", zap.String("resource_id", resource.ID), zap.Error(err))
	} else {
		resource.Views++
	}

	s.signFileLink(resource)
	return resource, nil
}

// Upload stores a file and its library record.
func (s *ResourceService) Upload(ctx context.Context, ownerID string, req UploadResourceRequest) (*models.Resource, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid resource payload")
	}
	if s.config.MaxFileSizeBytes > 0 && int64(len(req.Data)) > s.config.MaxFileSizeBytes {
		return nil, appErrors.Clone(appErrors.ErrFileTooLarge, "")
	}
	if !s.mimeAllowed(req.MIMEType) {
		return nil, appErrors.Clone(appErrors.ErrUnsupportedFile, "")
	}

	access := req.Access
	if access == "" {
		access = models.ResourceAccessPrivate
	}
	if access == models.ResourceAccessSpecific {
		if err := s.checkStudents(ctx, ownerID, req.AllowedStudentIDs); err != nil {
			return nil, err
		}
	}

	resourceID := uuid.NewString()
	relPath := filepath.Join("resources", ownerID, resourceID+filepath.Ext(req.FileName))
	if _, err := s.storage.Save(relPath, req.Data); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store resource")
	}

	resource := &models.Resource{
		ID:                resourceID,
		OwnerID:           ownerID,
		Title:             req.Title,
		Description:       req.Description,
		FileName:          req.FileName,
		MIMEType:          req.MIMEType,
		SizeBytes:         int64(len(req.Data)),
		Path:              relPath,
		Category:          models.CategoryForMIME(req.MIMEType),
		Access:            access,
		AllowedStudentIDs: req.AllowedStudentIDs,
		Tags:              req.Tags,
		Folder:            req.Folder,
	}
	if err := s.repo.Create(ctx, resource); err != nil {
		if cleanupErr := s.storage.Delete(relPath); cleanupErr != nil {
			s.logger.Warn("failed to remove orphaned resource", zap.String("path", relPath), zap.Error(cleanupErr))
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create resource")
	}

	s.signFileLink(resource)
	return resource, nil
}

// Update edits metadata and access scope.
func (s *ResourceService) Update(ctx context.Context, id, ownerID string, req UpdateResourceRequest) (*models.Resource, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid resource payload")
	}
	if req.Access == models.ResourceAccessSpecific {
		if err := s.checkStudents(ctx, ownerID, req.AllowedStudentIDs); err != nil {
			return nil, err
		}
	}

	resource, err := s.repo.FindByID(ctx, id, ownerID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "resource not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to fetch resource")
	}

	resource.Title = req.Title
	resource.Description = req.Description
	resource.Access = req.Access
	resource.AllowedStudentIDs = req.AllowedStudentIDs
	resource.Tags = req.Tags
	resource.Folder = req.Folder

	if err := s.repo.Update(ctx, resource); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update resource")
	}

	s.signFileLink(resource)
	return resource, nil
}

// Delete removes the record and its stored bytes.
func (s *ResourceService) Delete(ctx context.Context, id, ownerID string) error {
	resource, err := s.repo.FindByID(ctx, id, ownerID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "resource not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to fetch resource")
	}

	if err := s.repo.Delete(ctx, id, ownerID); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete resource")
	}
	if err := s.storage.Delete(resource.Path); err != nil {
		s.logger.Warn("failed to delete stored resource", zap.String("path", resource.Path), zap.Error(err))
	}
	return nil
}

// PublicList returns the publicly scoped library of an approved profile.
func (s *ResourceService) PublicList(ctx context.Context, profileID string) ([]models.Resource, error) {
	profile, err := s.profiles.FindApprovedByID(ctx, profileID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "profile not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to fetch profile")
	}

	resources, err := s.repo.ListPublic(ctx, profile.UserID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list public resources")
	}
	return s.withFileLinks(resources), nil
}

// StudentResources returns the subset of the owner's library a given
// student may see: public and all-students scopes, plus specific grants.
func (s *ResourceService) StudentResources(ctx context.Context, ownerID, studentID string) ([]models.Resource, error) {
	if _, err := s.students.FindByID(ctx, studentID, ownerID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to fetch student")
	}

	resources, err := s.repo.List(ctx, models.ResourceFilter{OwnerID: ownerID})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list resources")
	}

	accessible := make([]models.Resource, 0, len(resources))
	for _, resource := range resources {
		if resource.AccessibleTo(studentID) {
			accessible = append(accessible, resource)
		}
	}
	return s.withFileLinks(accessible), nil
}

// ResolveDownload validates a signed token and returns the resource plus
// its absolute path on disk. Owners may fetch anything of theirs; other
// signed-in users only publicly scoped resources. The download counter
// is bumped on success.
func (s *ResourceService) ResolveDownload(ctx context.Context, userID, token string) (*models.Resource, string, error) {
	resourceID, relPath, _, err := s.signer.Parse(token, false)
	if err != nil {
		return nil, "", appErrors.Clone(appErrors.ErrUnauthorized, "invalid or expired download link")
	}

	resource, err := s.repo.FindAnyByID(ctx, resourceID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, "", appErrors.Clone(appErrors.ErrNotFound, "file not found")
		}
		return nil, "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to fetch resource")
	}
	if resource.OwnerID != userID && resource.Access != models.ResourceAccessPublic {
		return nil, "", appErrors.Clone(appErrors.ErrNotFound, "file not found")
	}
	if resource.Path != relPath {
		return nil, "", appErrors.Clone(appErrors.ErrUnauthorized, "invalid download link")
	}

	if err := s.repo.IncrementDownloads(ctx, resource.ID); err != nil {
		s.logger.Warn("failed to count resource download", zap.String("resource_id", resource.ID), zap.Error(err))
	}
	return resource, s.storage.Path(resource.Path), nil
}

func (s *ResourceService) withFileLinks(resources []models.Resource) []models.Resource {
	for i := range resources {
		s.signFileLink(&resources[i])
	}
	return resources
}

func (s *ResourceService) signFileLink(resource *models.Resource) {
	if resource.Path == "" || s.signer == nil {
		return
	}
	token, _, err := s.signer.Generate(resource.ID, resource.Path)
	if err != nil {
		s.logger.Warn("failed to sign resource link", zap.String("resource_id", resource.ID), zap.Error(err))
		return
	}
	resource.FileURL = downloadPath(token)
}

func (s *ResourceService) checkStudents(ctx context.Context, ownerID string, studentIDs []string) error {
	if len(studentIDs) == 0 {
		return appErrors.Clone(appErrors.ErrValidation, "specific access requires at least one student")
	}
	for _, studentID := range studentIDs {
		if _, err := s.students.FindByID(ctx, studentID, ownerID); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return appErrors.Clone(appErrors.ErrNotFound, fmt.Sprintf("student %s not found", studentID))
			}
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check student")
		}
	}
	return nil
}

func (s *ResourceService) mimeAllowed(mime string) bool {
	for _, allowed := range s.config.AllowedMIMEs {
		if mime == allowed {
			return true
		}
	}
	return false
}

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

type studentRepository interface {
	List(ctx context.Context, filter models.StudentFilter) ([]models.Student, int, error)
	FindByID(ctx context.Context, id, ownerID string) (*models.Student, error)
	Create(ctx context.Context, student *models.Student) error
	Update(ctx context.Context, student *models.Student) error
	Deactivate(ctx context.Context, id, ownerID string) error
}

// CreateStudentRequest is the payload for registering a learner.
type CreateStudentRequest struct {
	FirstName    string   `json:"first_name" validate:"required"`
	LastName     string   `json:"last_name" validate:"required"`
	Email        string   `json:"email" validate:"omitempty,email"`
	Phone        string   `json:"phone"`
	Level        string   `json:"level"`
	Subjects     []string `json:"subjects"`
	Remarks      string   `json:"remarks"`
	VideoLink    string   `json:"video_link" validate:"omitempty,url"`
	LinkedUserID *string  `json:"linked_user_id"`
}

// UpdateStudentRequest is the payload for editing a learner.
type UpdateStudentRequest struct {
	FirstName    string               `json:"first_name" validate:"required"`
	LastName     string               `json:"last_name" validate:"required"`
	Email        string               `json:"email" validate:"omitempty,email"`
	Phone        string               `json:"phone"`
	Level        string               `json:"level"`
	Status       models.StudentStatus `json:"status" validate:"required,oneof=active inactive suspended"`
	Subjects     []string             `json:"subjects"`
	Remarks      string               `json:"remarks"`
	VideoLink    string               `json:"video_link" validate:"omitempty,url"`
	LinkedUserID *string              `json:"linked_user_id"`
}

// StudentService provides learner management use cases.
type StudentService struct {
	repo      studentRepository
	validator *validator.Validate
	logger    *zap.Logger
}

// NewStudentService constructs a StudentService.
func NewStudentService(repo studentRepository, validate *validator.Validate, logger *zap.Logger) *StudentService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &StudentService{repo: repo, validator: validate, logger: logger}
}

// List returns the owner's students with pagination metadata.
func (s *StudentService) List(ctx context.Context, filter models.StudentFilter) ([]models.Student, *models.Pagination, error) {
	students, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list students")
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 100 {
		size = 20
	}
	return students, &models.Pagination{Page: page, PageSize: size, TotalCount: total}, nil
}

// Get fetches a single student owned by the caller.
func (s *StudentService) Get(ctx context.Context, id, ownerID string) (*models.Student, error) {
	student, err := s.repo.FindByID(ctx, id, ownerID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to fetch student")
	}
	return student, nil
}

// Create registers a new learner for the caller.
func (s *StudentService) Create(ctx context.Context, ownerID string, req CreateStudentRequest) (*models.Student, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid student payload")
	}

	student := &models.Student{
		OwnerID:      ownerID,
		FirstName:    req.FirstName,
		LastName:     req.LastName,
		Email:        req.Email,
		Phone:        req.Phone,
		Level:        req.Level,
		Status:       models.StudentStatusActive,
		Subjects:     req.Subjects,
		Remarks:      req.Remarks,
		VideoLink:    req.VideoLink,
		LinkedUserID: req.LinkedUserID,
	}
	if err := s.repo.Create(ctx, student); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create student")
	}
	return student, nil
}

// Update edits an existing learner.
func (s *StudentService) Update(ctx context.Context, id, ownerID string, req UpdateStudentRequest) (*models.Student, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid student payload")
	}

	student, err := s.Get(ctx, id, ownerID)
	if err != nil {
		return nil, err
	}

	student.FirstName = req.FirstName
	student.LastName = req.LastName
	student.Email = req.Email
	student.Phone = req.Phone
	student.Level = req.Level
	student.Status = req.Status
	student.Subjects = req.Subjects
	student.Remarks = req.Remarks
	student.VideoLink = req.VideoLink
	student.LinkedUserID = req.LinkedUserID

	if err := s.repo.Update(ctx, student); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update student")
	}
	return student, nil
}

// Delete deactivates a learner instead of removing the row, so session
// and payment history stays intact.
func (s *StudentService) Delete(ctx context.Context, id, ownerID string) error {
	if _, err := s.Get(ctx, id, ownerID); err != nil {
		return err
	}
	if err := s.repo.Deactivate(ctx, id, ownerID); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to deactivate student")
	}
	return nil
}

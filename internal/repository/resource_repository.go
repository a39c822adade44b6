package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/maraakiz/maraakiz-api/internal/models"
)

const resourceColumns = `id, owner_id, title, description, file_name, mime_type, size_bytes, path,
	category, access, allowed_student_ids, tags, folder, views, downloads, created_at, updated_at`

// ResourceRepository persists teaching-library files.
type ResourceRepository struct {
	db *sqlx.DB
}

func NewResourceRepository(db *sqlx.DB) *ResourceRepository {
	return &ResourceRepository{db: db}
}

// List returns the owner's resources, newest first.
func (r *ResourceRepository) List(ctx context.Context, filter models.ResourceFilter) ([]models.Resource, error) {
	clauses := []string{"owner_id = $1"}
	args := []interface{}{filter.OwnerID}

	if filter.Category != "" {
		clauses = append(clauses, fmt.Sprintf("category = $%d", len(args)+1))
		args = append(args, filter.Category)
	}
	if filter.Folder != "" {
		clauses = append(clauses, fmt.Sprintf("folder = $%d", len(args)+1))
		args = append(args, filter.Folder)
	}

	query := fmt.Sprintf("SELECT %s FROM resources WHERE %s ORDER BY created_at DESC",
		resourceColumns, strings.Join(clauses, " AND "))

	var resources []models.Resource
	if err := r.db.SelectContext(ctx, &resources, query, args...); err != nil {
		return nil, fmt.Errorf("list resources: %w", err)
	}
	return resources, nil
}

// ListPublic returns an owner's publicly scoped resources, newest first.
func (r *ResourceRepository) ListPublic(ctx context.Context, ownerID string) ([]models.Resource, error) {
	query := fmt.Sprintf("SELECT %s FROM resources WHERE owner_id = $1 AND access = $2 ORDER BY created_at DESC", resourceColumns)
	var resources []models.Resource
	if err := r.db.SelectContext(ctx, &resources, query, ownerID, models.ResourceAccessPublic); err != nil {
		return nil, fmt.Errorf("list public resources: %w", err)
	}
	return resources, nil
}

// ListFolders returns the distinct non-empty folder names of an owner.
func (r *ResourceRepository) ListFolders(ctx context.Context, ownerID string) ([]string, error) {
	const query = `SELECT DISTINCT folder FROM resources WHERE owner_id = $1 AND folder <> '' ORDER BY folder`
	var folders []string
	if err := r.db.SelectContext(ctx, &folders, query, ownerID); err != nil {
		return nil, fmt.Errorf("list resource folders: %w", err)
	}
	return folders, nil
}

func (r *ResourceRepository) FindByID(ctx context.Context, id, ownerID string) (*models.Resource, error) {
	query := fmt.Sprintf("SELECT %s FROM resources WHERE id = $1 AND owner_id = $2", resourceColumns)
	var resource models.Resource
	if err := r.db.GetContext(ctx, &resource, query, id, ownerID); err != nil {
		return nil, fmt.Errorf("find resource: %w", err)
	}
	return &resource, nil
}

// FindAnyByID fetches a resource regardless of owner. Download
// resolution applies its own access rules on top.
func (r *ResourceRepository) FindAnyByID(ctx context.Context, id string) (*models.Resource, error) {
	query := fmt.Sprintf("SELECT %s FROM resources WHERE id = $1", resourceColumns)
	var resource models.Resource
	if err := r.db.GetContext(ctx, &resource, query, id); err != nil {
		return nil, fmt.Errorf("find resource: %w", err)
	}
	return &resource, nil
}

func (r *ResourceRepository) Create(ctx context.Context, resource *models.Resource) error {
	if resource.ID == "" {
		resource.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	resource.CreatedAt = now
	resource.UpdatedAt = now

	const query = `INSERT INTO resources (id, owner_id, title, description, file_name, mime_type, size_bytes, path,
			category, access, allowed_student_ids, tags, folder, views, downloads, created_at, updated_at)
		VALUES (:id, :owner_id, :title, :description, :file_name, :mime_type, :size_bytes, :path,
			:category, :access, :allowed_student_ids, :tags, :folder, :views, :downloads, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, resource); err != nil {
		return fmt.Errorf("create resource: %w", err)
	}
	return nil
}

func (r *ResourceRepository) Update(ctx context.Context, resource *models.Resource) error {
	resource.UpdatedAt = time.Now().UTC()
	const query = `UPDATE resources SET title = :title, description = :description, access = :access,
			allowed_student_ids = :allowed_student_ids, tags = :tags, folder = :folder, updated_at = :updated_at
		WHERE id = :id AND owner_id = :owner_id`
	if _, err := r.db.NamedExecContext(ctx, query, resource); err != nil {
		return fmt.Errorf("update resource: %w", err)
	}
	return nil
}

func (r *ResourceRepository) Delete(ctx context.Context, id, ownerID string) error {
	const query = `DELETE FROM resources WHERE id = $1 AND owner_id = $2`
	if _, err := r.db.ExecContext(ctx, query, id, ownerID); err != nil {
		return fmt.Errorf("delete resource: %w", err)
	}
	return nil
}

// IncrementViews bumps the view counter without touching updated_at.
func (r *ResourceRepository) IncrementViews(ctx context.Context, id string) error {
	const query = `UPDATE resources SET views = views + 1 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id); err != nil {
		return fmt.Errorf("increment resource views: %w", err)
	}
	return nil
}

// IncrementDownloads bumps the download counter without touching updated_at.
func (r *ResourceRepository) IncrementDownloads(ctx context.Context, id string) error {
	const query = `UPDATE resources SET downloads = downloads + 1 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id); err != nil {
		return fmt.Errorf("increment resource downloads: %w", err)
	}
	return nil
}

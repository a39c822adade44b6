package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/maraakiz/maraakiz-api/internal/models"
	appErrors "github.com/maraakiz/maraakiz-api/pkg/errors"
)

type mockResourceRepo struct {
	resources []models.Resource
	views     map[string]int
	downloads map[string]int
}

func (m *mockResourceRepo) List(ctx context.Context, filter models.ResourceFilter) ([]models.Resource, error) {
	var out []models.Resource
	for _, r := range m.resources {
		if r.OwnerID != filter.OwnerID {
			continue
		}
		if filter.Category != "" && string(r.Category) != filter.Category {
			continue
		}
		if filter.Folder != "" && r.Folder != filter.Folder {
			continue
		}
		out = append(out, r)
	}
	return out, nil
}

func (m *mockResourceRepo) ListPublic(ctx context.Context, ownerID string) ([]models.Resource, error) {
	var out []models.Resource
	for _, r := range m.resources {
		if r.OwnerID == ownerID && r.Access == models.ResourceAccessPublic {
			out = append(out, r)
		}
	}
	return out, nil
}

func (m *mockResourceRepo) ListFolders(ctx context.Context, ownerID string) ([]string, error) {
	seen := map[string]bool{}
	var out []string
	for _, r := range m.resources {
		if r.OwnerID == ownerID && r.Folder != "" && !seen[r.Folder] {
			seen[r.Folder] = true
			out = append(out, r.Folder)
		}
	}
	return out, nil
}

func (m *mockResourceRepo) FindByID(ctx context.Context, id, ownerID string) (*models.Resource, error) {
	for _, r := range m.resources {
		if r.ID == id && r.OwnerID == ownerID {
			return &r, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (m *mockResourceRepo) FindAnyByID(ctx context.Context, id string) (*models.Resource, error) {
	for _, r := range m.resources {
		if r.ID == id {
			return &r, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (m *mockResourceRepo) Create(ctx context.Context, resource *models.Resource) error {
	m.resources = append(m.resources, *resource)
	return nil
}

func (m *mockResourceRepo) Update(ctx context.Context, resource *models.Resource) error {
	for i, r := range m.resources {
		if r.ID == resource.ID && r.OwnerID == resource.OwnerID {
			m.resources[i] = *resource
			return nil
		}
	}
	return sql.ErrNoRows
}

func (m *mockResourceRepo) Delete(ctx context.Context, id, ownerID string) error {
	for i, r := range m.resources {
		if r.ID == id && r.OwnerID == ownerID {
			m.resources = append(m.resources[:i], m.resources[i+1:]...)
			return nil
		}
	}
	return nil
}

func (m *mockResourceRepo) IncrementViews(ctx context.Context, id string) error {
	if m.views == nil {
		m.views = map[string]int{}
	}
	m.views[id]++
	return nil
}

func (m *mockResourceRepo) IncrementDownloads(ctx context.Context, id string) error {
	if m.downloads == nil {
		m.downloads = map[string]int{}
	}
	m.downloads[id]++
	return nil
}

type mockResourceStudents struct {
	students map[string]string // studentID -> ownerID
}

func (m *mockResourceStudents) FindByID(ctx context.Context, id, ownerID string) (*models.Student, error) {
	if owner, ok := m.students[id]; ok && owner == ownerID {
		return &models.Student{ID: id, OwnerID: ownerID}, nil
	}
	return nil, sql.ErrNoRows
}

type mockResourceProfiles struct {
	profiles map[string]models.Profile
}

func (m *mockResourceProfiles) FindApprovedByID(ctx context.Context, id string) (*models.Profile, error) {
	if p, ok := m.profiles[id]; ok {
		return &p, nil
	}
	return nil, sql.ErrNoRows
}

type mockResourceStorage struct {
	saved   map[string][]byte
	deleted []string
}

func (m *mockResourceStorage) Save(filename string, data []byte) (string, error) {
	if m.saved == nil {
		m.saved = make(map[string][]byte)
	}
	m.saved[filename] = data
	return filename, nil
}

func (m *mockResourceStorage) Delete(relPath string) error {
	m.deleted = append(m.deleted, relPath)
	return nil
}

func (m *mockResourceStorage) Path(relPath string) string {
	return "/uploads/" + relPath
}

type mockResourceSigner struct {
	links map[string]string // token -> relPath
}

func (m *mockResourceSigner) Generate(fileID, relPath string) (string, time.Time, error) {
	if m.links == nil {
		m.links = make(map[string]string)
	}
	token := "token-" + fileID
	m.links[token] = relPath
	return token, time.Now().Add(time.Hour), nil
}

func (m *mockResourceSigner) Parse(token string, allowExpired bool) (string, string, time.Time, error) {
	relPath, ok := m.links[token]
	if !ok {
		return "", "", time.Time{}, appErrors.ErrUnauthorized
	}
	return token[len("token-"):], relPath, time.Now().Add(time.Hour), nil
}

func resourceTestService(repo *mockResourceRepo, students *mockResourceStudents, profiles *mockResourceProfiles, storage *mockResourceStorage, signer *mockResourceSigner) *ResourceService {
	if students == nil {
		students = &mockResourceStudents{}
	}
	if profiles == nil {
		profiles = &mockResourceProfiles{}
	}
	if storage == nil {
		storage = &mockResourceStorage{}
	}
	if signer == nil {
		signer = &mockResourceSigner{}
	}
	return NewResourceService(repo, students, profiles, storage, signer, validator.New(), zap.NewNop(), ResourceConfig{})
}

func TestResourceServiceUploadInfersCategory(t *testing.T) {
	repo := &mockResourceRepo{}
	storage := &mockResourceStorage{}
	svc := resourceTestService(repo, nil, nil, storage, nil)

	resource, err := svc.Upload(context.Background(), "u1", UploadResourceRequest{
		Title:    "Tajwid lesson 3",
		FileName: "lesson3.mp4",
		MIMEType: "video/mp4",
		Data:     []byte("mp4-bytes"),
		Tags:     []string{"tajwid"},
		Folder:   "Tajwid",
	})
	require.NoError(t, err)
	assert.Equal(t, models.ResourceCategoryVideo, resource.Category)
	assert.Equal(t, models.ResourceAccessPrivate, resource.Access)
	assert.Equal(t, int64(9), resource.SizeBytes)
	assert.Contains(t, resource.FileURL, "/api/v1/files/")
	assert.Len(t, storage.saved, 1)
	require.Len(t, repo.resources, 1)
}

func TestResourceServiceUploadRejectsMIME(t *testing.T) {
	svc := resourceTestService(&mockResourceRepo{}, nil, nil, nil, nil)

	_, err := svc.Upload(context.Background(), "u1", UploadResourceRequest{
		Title:    "nope",
		FileName: "tool.exe",
		MIMEType: "application/x-msdownload",
		Data:     []byte("bin"),
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrUnsupportedFile.Code, appErrors.FromError(err).Code)
}

func TestResourceServiceUploadSpecificRequiresStudents(t *testing.T) {
	students := &mockResourceStudents{students: map[string]string{"s1": "u1"}}
	svc := resourceTestService(&mockResourceRepo{}, students, nil, nil, nil)

	_, err := svc.Upload(context.Background(), "u1", UploadResourceRequest{
		Title:    "restricted",
		FileName: "sheet.pdf",
		MIMEType: "application/pdf",
		Data:     []byte("pdf"),
		Access:   models.ResourceAccessSpecific,
	})
	require.Error(t, err)

	_, err = svc.Upload(context.Background(), "u1", UploadResourceRequest{
		Title:             "restricted",
		FileName:          "sheet.pdf",
		MIMEType:          "application/pdf",
		Data:              []byte("pdf"),
		Access:            models.ResourceAccessSpecific,
		AllowedStudentIDs: []string{"s1"},
	})
	require.NoError(t, err)
}

func TestResourceServiceStudentScopes(t *testing.T) {
	repo := &mockResourceRepo{resources: []models.Resource{
		{ID: "r1", OwnerID: "u1", Access: models.ResourceAccessPublic},
		{ID: "r2", OwnerID: "u1", Access: models.ResourceAccessStudents},
		{ID: "r3", OwnerID: "u1", Access: models.ResourceAccessSpecific, AllowedStudentIDs: []string{"s1"}},
		{ID: "r4", OwnerID: "u1", Access: models.ResourceAccessSpecific, AllowedStudentIDs: []string{"s9"}},
		{ID: "r5", OwnerID: "u1", Access: models.ResourceAccessPrivate},
	}}
	students := &mockResourceStudents{students: map[string]string{"s1": "u1"}}
	svc := resourceTestService(repo, students, nil, nil, nil)

	visible, err := svc.StudentResources(context.Background(), "u1", "s1")
	require.NoError(t, err)
	require.Len(t, visible, 3)
	ids := []string{visible[0].ID, visible[1].ID, visible[2].ID}
	assert.ElementsMatch(t, []string{"r1", "r2", "r3"}, ids)

	_, err = svc.StudentResources(context.Background(), "u1", "ghost")
	require.Error(t, err)
}

func TestResourceServicePublicList(t *testing.T) {
	repo := &mockResourceRepo{resources: []models.Resource{
		{ID: "r1", OwnerID: "u1", Path: "resources/u1/r1.pdf", Access: models.ResourceAccessPublic},
		{ID: "r2", OwnerID: "u1", Access: models.ResourceAccessPrivate},
	}}
	profiles := &mockResourceProfiles{profiles: map[string]models.Profile{
		"p1": {ID: "p1", UserID: "u1"},
	}}
	svc := resourceTestService(repo, nil, profiles, nil, nil)

	public, err := svc.PublicList(context.Background(), "p1")
	require.NoError(t, err)
	require.Len(t, public, 1)
	assert.Equal(t, "r1", public[0].ID)
	assert.Contains(t, public[0].FileURL, "/api/v1/files/")

	_, err = svc.PublicList(context.Background(), "ghost")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestResourceServiceGetCountsView(t *testing.T) {
	repo := &mockResourceRepo{resources: []models.Resource{
		{ID: "r1", OwnerID: "u1", Path: "resources/u1/r1.pdf"},
	}}
	svc := resourceTestService(repo, nil, nil, nil, nil)

	resource, err := svc.Get(context.Background(), "r1", "u1")
	require.NoError(t, err)
	assert.Equal(t, 1, resource.Views)
	assert.Equal(t, 1, repo.views["r1"])
}

func TestResourceServiceResolveDownload(t *testing.T) {
	repo := &mockResourceRepo{resources: []models.Resource{
		{ID: "r1", OwnerID: "u1", FileName: "sheet.pdf", Path: "resources/u1/r1.pdf", Access: models.ResourceAccessPrivate},
		{ID: "r2", OwnerID: "u1", FileName: "open.pdf", Path: "resources/u1/r2.pdf", Access: models.ResourceAccessPublic},
	}}
	signer := &mockResourceSigner{}
	svc := resourceTestService(repo, nil, nil, nil, signer)

	privToken, _, err := signer.Generate("r1", "resources/u1/r1.pdf")
	require.NoError(t, err)
	pubToken, _, err := signer.Generate("r2", "resources/u1/r2.pdf")
	require.NoError(t, err)

	resource, path, err := svc.ResolveDownload(context.Background(), "u1", privToken)
	require.NoError(t, err)
	assert.Equal(t, "r1", resource.ID)
	assert.Equal(t, "/uploads/resources/u1/r1.pdf", path)
	assert.Equal(t, 1, repo.downloads["r1"])

	// A private resource never resolves for anyone but its owner.
	_, _, err = svc.ResolveDownload(context.Background(), "other", privToken)
	require.Error(t, err)

	// Publicly scoped resources resolve for any signed-in user.
	_, _, err = svc.ResolveDownload(context.Background(), "other", pubToken)
	require.NoError(t, err)
}

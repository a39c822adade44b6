package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/maraakiz/maraakiz-api/internal/models"
)

type mockDirectoryRepo struct {
	profiles []models.Profile
	calls    int
}

func (m *mockDirectoryRepo) ListApproved(ctx context.Context, profileType string) ([]models.Profile, error) {
	m.calls++
	if profileType == "" {
		return m.profiles, nil
	}
	var out []models.Profile
	for _, p := range m.profiles {
		if string(p.Type) == profileType {
			out = append(out, p)
		}
	}
	return out, nil
}

func (m *mockDirectoryRepo) FindApprovedByID(ctx context.Context, id string) (*models.Profile, error) {
	for _, p := range m.profiles {
		if p.ID == id {
			return &p, nil
		}
	}
	return nil, sql.ErrNoRows
}

func directoryTestService(repo *mockDirectoryRepo) *DirectoryService {
	// Nil cache exercises the uncached fallback path.
	return NewDirectoryService(repo, nil, nil, time.Minute, 24, zap.NewNop())
}

func TestDirectoryServiceSearchByTags(t *testing.T) {
	repo := &mockDirectoryRepo{profiles: []models.Profile{
		{ID: "p1", Type: models.RoleProfessor, Subjects: []string{"quran", "tajwid"}, Modes: []string{"online"}},
		{ID: "p2", Type: models.RoleProfessor, Subjects: []string{"arabic"}, Modes: []string{"in_person"}},
		{ID: "p3", Type: models.RoleInstitute, Subjects: []string{"quran"}, Modes: []string{"online"}},
	}}
	svc := directoryTestService(repo)

	matched, pagination, err := svc.Search(context.Background(), models.ProfileFilter{
		Subjects: []string{"quran"},
		Modes:    []string{"online"},
	})
	require.NoError(t, err)
	require.Len(t, matched, 2)
	assert.Equal(t, 2, pagination.TotalCount)

	ids := []string{matched[0].ID, matched[1].ID}
	assert.Contains(t, ids, "p1")
	assert.Contains(t, ids, "p3")
}

func TestDirectoryServiceSearchByType(t *testing.T) {
	repo := &mockDirectoryRepo{profiles: []models.Profile{
		{ID: "p1", Type: models.RoleProfessor},
		{ID: "p2", Type: models.RoleInstitute},
	}}
	svc := directoryTestService(repo)

	matched, _, err := svc.Search(context.Background(), models.ProfileFilter{Type: string(models.RoleInstitute)})
	require.NoError(t, err)
	require.Len(t, matched, 1)
	assert.Equal(t, "p2", matched[0].ID)
}

func TestDirectoryServiceSearchPaging(t *testing.T) {
	profiles := make([]models.Profile, 0, 30)
	for i := 0; i < 30; i++ {
		profiles = append(profiles, models.Profile{ID: string(rune('a' + i)), Type: models.RoleProfessor})
	}
	repo := &mockDirectoryRepo{profiles: profiles}
	svc := directoryTestService(repo)

	matched, pagination, err := svc.Search(context.Background(), models.ProfileFilter{Page: 2, PageSize: 20})
	require.NoError(t, err)
	assert.Len(t, matched, 10)
	assert.Equal(t, 30, pagination.TotalCount)
	assert.Equal(t, 2, pagination.Page)
}

func TestDirectoryServiceGetUnknown(t *testing.T) {
	svc := directoryTestService(&mockDirectoryRepo{})

	_, err := svc.Get(context.Background(), "ghost")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
}

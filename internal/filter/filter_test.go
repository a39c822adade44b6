package filter

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type record struct {
	id   int
	tags map[string][]string
}

func (r record) Tags(category string) []string {
	return r.tags[category]
}

func TestApplyMatchesWithinCategory(t *testing.T) {
	records := []record{
		{id: 1, tags: map[string][]string{"subject": {"coran"}}},
		{id: 2, tags: map[string][]string{"subject": {"arabe"}}},
	}

	result := Apply(records, Active{"subject": {"coran"}})
	require.Len(t, result, 1)
	assert.Equal(t, 1, result[0].id)
}

func TestApplyAndAcrossCategories(t *testing.T) {
	records := []record{
		{id: 1, tags: map[string][]string{"subject": {"coran"}, "format": {"online"}}},
		{id: 2, tags: map[string][]string{"subject": {"coran"}, "format": {"in_person"}}},
	}

	result := Apply(records, Active{"subject": {"coran"}, "format": {"online"}})
	require.Len(t, result, 1)
	assert.Equal(t, 1, result[0].id)
}

func TestApplyEmptyCategoriesPassThrough(t *testing.T) {
	records := []record{
		{id: 1, tags: map[string][]string{"subject": {"coran"}}},
		{id: 2, tags: map[string][]string{"subject": {"arabe"}}},
	}

	result := Apply(records, Active{"subject": {}, "format": nil})
	assert.Len(t, result, 2)
}

func TestApplyUnknownCategoryExcludes(t *testing.T) {
	records := []record{
		{id: 1, tags: map[string][]string{"subject": {"coran"}}},
	}

	result := Apply(records, Active{"language": {"fr"}})
	assert.Empty(t, result)
}

func TestToggleAddsAndRemoves(t *testing.T) {
	active := Active{"subject": {"coran"}}

	removed := Toggle(active, "subject", "coran")
	assert.Empty(t, removed["subject"])

	added := Toggle(active, "subject", "arabe")
	assert.ElementsMatch(t, []string{"coran", "arabe"}, added["subject"])

	// Original selection untouched.
	assert.Equal(t, []string{"coran"}, active["subject"])
}

func TestToggleSelfInverse(t *testing.T) {
	active := Active{"subject": {"coran"}, "format": {"online"}}

	once := Toggle(active, "subject", "tajwid")
	twice := Toggle(once, "subject", "tajwid")

	assert.ElementsMatch(t, active["subject"], twice["subject"])
	assert.Equal(t, active["format"], twice["format"])
}

func TestToggleNewCategory(t *testing.T) {
	active := Active{}
	next := Toggle(active, "level", "beginner")
	assert.Equal(t, []string{"beginner"}, next["level"])
	assert.Empty(t, active)
}

func TestClearResetsCategories(t *testing.T) {
	active := Active{
		"subject": {"coran", "arabe"},
		"format":  {"online"},
		"level":   {"beginner"},
	}

	next := Clear(active, "subject", "format", "level")
	for category := range next {
		assert.Empty(t, next[category])
	}

	// Original selection untouched.
	assert.Len(t, active["subject"], 2)
}

// Package filter implements the tag-based list filtering shared by the
// public directory and the student/payment tables. Filters are sets of
// string tags grouped by category: values within a category are OR'd,
// categories are AND'd. All operations are pure and never panic.
package filter

// Active holds the selected tag values per category. Empty or missing
// categories are pass-through.
type Active map[string][]string

// Taggable exposes a record's tag values for a given category. Unknown
// categories should return nil.
type Taggable interface {
	Tags(category string) []string
}

// Apply returns the records matching every non-empty category in active.
// A record matches a category when at least one of its tags for that
// category appears in the active values.
func Apply[T Taggable](records []T, active Active) []T {
	matched := make([]T, 0, len(records))
	for _, record := range records {
		if matches(record, active) {
			matched = append(matched, record)
		}
	}
	return matched
}

func matches(record Taggable, active Active) bool {
	for category, values := range active {
		if len(values) == 0 {
			continue
		}
		if !intersects(record.Tags(category), values) {
			return false
		}
	}
	return true
}

func intersects(tags, values []string) bool {
	for _, tag := range tags {
		for _, value := range values {
			if tag == value {
				return true
			}
		}
	}
	return false
}

// Toggle adds value to the category if absent and removes it if present.
// The input map is never mutated; a new structure is returned. Applying
// Toggle twice with the same arguments restores the original selection.
func Toggle(active Active, category, value string) Active {
	next := clone(active)

	current := next[category]
	for i, existing := range current {
		if existing == value {
			next[category] = append(append([]string{}, current[:i]...), current[i+1:]...)
			return next
		}
	}
	next[category] = append(append([]string{}, current...), value)
	return next
}

// Clear resets every named category to an empty selection, copy-on-write.
func Clear(active Active, categories ...string) Active {
	next := clone(active)
	for _, category := range categories {
		next[category] = []string{}
	}
	return next
}

func clone(active Active) Active {
	next := make(Active, len(active))
	for category, values := range active {
		copied := make([]string, len(values))
		copy(copied, values)
		next[category] = copied
	}
	return next
}

package questionbank

import (
	"strings"

	"github.com/verte-zerg/neurlyn/internal/model"
)

// FilterFunc returns true when a question belongs to a pool.
type FilterFunc func(model.Question) bool

// FilterForKey returns the pool filter for a category or pathway key.
// Pathway keys select only that pathway's questions; category keys select
// base questions of that category.
func FilterForKey(key string) FilterFunc {
	key = strings.ToLower(strings.TrimSpace(key))
	if id, ok := model.ParsePathway(key); ok && strings.HasSuffix(key, "_pathway") {
		return func(q model.Question) bool { return q.Pathway == id }
	}
	return func(q model.Question) bool {
		return q.Pathway == "" && q.Category == key
	}
}

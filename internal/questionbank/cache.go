package questionbank

import (
	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/verte-zerg/neurlyn/internal/model"
)

// Source is a read-only question repository.
type Source interface {
	Pool(key string) []model.Question
	Lookup(id string) (model.Question, bool)
}

// Cache memoizes pool lookups of a Source. Returned slices are shared and
// must not be modified.
type Cache struct {
	src   Source
	pools *lru.Cache[string, []model.Question]
}

// NewCache wraps src with an LRU pool cache holding up to size pools.
func NewCache(src Source, size int) (*Cache, error) {
	pools, err := lru.New[string, []model.Question](size)
	if err != nil {
		return nil, err
	}
	return &Cache{src: src, pools: pools}, nil
}

// Pool returns the pool for key, loading it from the source on a miss.
func (c *Cache) Pool(key string) []model.Question {
	if pool, ok := c.pools.Get(key); ok {
		return pool
	}
	pool := c.src.Pool(key)
	c.pools.Add(key, pool)
	return pool
}

// Lookup delegates to the source.
func (c *Cache) Lookup(id string) (model.Question, bool) {
	return c.src.Lookup(id)
}

// Package selector builds the next question batch for a session.
package selector

import (
	"hash/fnv"
	"math/rand"
	"sort"

	"github.com/verte-zerg/neurlyn/internal/model"
	"github.com/verte-zerg/neurlyn/internal/questionbank"
)

// Selector draws batches from base category pools and active pathway pools.
type Selector struct {
	src       questionbank.Source
	batchSize int
	ratio     int
}

// New returns a Selector configured from the policy.
func New(src questionbank.Source, p model.Policy) *Selector {
	return &Selector{src: src, batchSize: p.BatchSize, ratio: p.InterleaveRatio}
}

// Next selects the next batch for s and advances its selection cursors.
// Already answered or pending questions are never returned, and the batch
// never takes the session past its budget. An empty batch means the session
// has nothing left to ask.
func (sel *Selector) Next(s *model.Session) []model.Question {
	remaining := s.Budget - len(s.Responses) - len(s.CurrentBatch)
	n := sel.batchSize
	if remaining < n {
		n = remaining
	}
	if n <= 0 {
		return nil
	}

	asked := s.Asked()
	active := byPriority(s.Activated)
	batch := make([]model.Question, 0, n)
	take := func(q model.Question) {
		asked[q.ID] = struct{}{}
		batch = append(batch, q)
	}

	for len(batch) < n {
		if len(active) > 0 && s.Cursors.BaseSincePathway >= sel.ratio {
			if q, ok := sel.nextPathway(s, active, asked); ok {
				take(q)
				s.Cursors.BaseSincePathway = 0
				continue
			}
		}
		if q, ok := sel.nextBase(s, asked); ok {
			take(q)
			if len(active) > 0 {
				s.Cursors.BaseSincePathway++
			}
			continue
		}
		if q, ok := sel.nextPathway(s, active, asked); ok {
			take(q)
			continue
		}
		break
	}
	return batch
}

func (sel *Selector) nextBase(s *model.Session, asked map[string]struct{}) (model.Question, bool) {
	rotation := model.CategoryRotation
	for i := 0; i < len(rotation); i++ {
		idx := (s.Cursors.Category + i) % len(rotation)
		if q, ok := firstUnasked(sel.ordered(s.Seed, rotation[idx]), asked); ok {
			s.Cursors.Category = (idx + 1) % len(rotation)
			return q, true
		}
	}
	return model.Question{}, false
}

func (sel *Selector) nextPathway(s *model.Session, active []model.PathwayID, asked map[string]struct{}) (model.Question, bool) {
	for i := 0; i < len(active); i++ {
		idx := (s.Cursors.Pathway + i) % len(active)
		if q, ok := firstUnasked(sel.ordered(s.Seed, string(active[idx])), asked); ok {
			s.Cursors.Pathway = (idx + 1) % len(active)
			return q, true
		}
	}
	return model.Question{}, false
}

// ordered returns the pool for key, shuffled deterministically by seed.
// A zero seed keeps bank order.
func (sel *Selector) ordered(seed int64, key string) []model.Question {
	pool := sel.src.Pool(key)
	if seed == 0 || len(pool) < 2 {
		return pool
	}
	h := fnv.New64a()
	_, _ = h.Write([]byte(key))
	rnd := rand.New(rand.NewSource(seed ^ int64(h.Sum64())))
	out := make([]model.Question, len(pool))
	copy(out, pool)
	rnd.Shuffle(len(out), func(i, j int) { out[i], out[j] = out[j], out[i] })
	return out
}

func firstUnasked(pool []model.Question, asked map[string]struct{}) (model.Question, bool) {
	for _, q := range pool {
		if _, ok := asked[q.ID]; !ok {
			return q, true
		}
	}
	return model.Question{}, false
}

func byPriority(ids []model.PathwayID) []model.PathwayID {
	out := make([]model.PathwayID, len(ids))
	copy(out, ids)
	sort.SliceStable(out, func(i, j int) bool {
		return priority(out[i]) < priority(out[j])
	})
	return out
}

func priority(id model.PathwayID) int {
	if def, ok := model.LookupPathway(id); ok {
		return def.Priority
	}
	return len(model.Pathways) + 1
}

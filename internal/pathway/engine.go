// Package pathway decides which diagnostic question tracks are active for a
// session. Activation is one-way: once a pathway is active it stays active.
package pathway

import (
	"strings"

	"github.com/verte-zerg/neurlyn/internal/model"
	"github.com/verte-zerg/neurlyn/internal/scoring"
)

// State is the per-session activation state.
type State struct {
	Counts map[model.PathwayID]int
	Active []model.PathwayID
}

// NewState returns an empty state.
func NewState() State {
	return State{Counts: map[model.PathwayID]int{}}
}

// IsActive reports whether id has been activated.
func (s State) IsActive(id model.PathwayID) bool {
	for _, a := range s.Active {
		if a == id {
			return true
		}
	}
	return false
}

// Engine evaluates trigger rules against responses.
type Engine struct {
	defs      []model.PathwayDef
	threshold float64
	minCount  int
}

// New builds an engine from the policy using the stock pathway table.
func New(p model.Policy) *Engine {
	return &Engine{
		defs:      model.Pathways,
		threshold: p.PathwayThreshold,
		minCount:  p.PathwayMinCount,
	}
}

// Observe counts r against every pathway and activates those that reach the
// minimum count. Newly activated pathways are returned in priority order.
func (e *Engine) Observe(s *State, r model.Response) []model.PathwayID {
	if s.Counts == nil {
		s.Counts = map[model.PathwayID]int{}
	}
	intense := scoring.Intensity(r) >= e.threshold
	if !intense {
		return nil
	}
	var activated []model.PathwayID
	for _, def := range e.defs {
		if !Matches(def, r) {
			continue
		}
		s.Counts[def.ID]++
		if e.activate(s, def.ID) {
			activated = append(activated, def.ID)
		}
	}
	return activated
}

// Seed counts one signal for every start-time concern that names a pathway.
func (e *Engine) Seed(s *State, concerns []string) []model.PathwayID {
	if s.Counts == nil {
		s.Counts = map[model.PathwayID]int{}
	}
	seen := map[model.PathwayID]bool{}
	for _, c := range concerns {
		if id, ok := model.ParsePathway(c); ok {
			seen[id] = true
		}
	}
	var activated []model.PathwayID
	for _, def := range e.defs {
		if !seen[def.ID] {
			continue
		}
		s.Counts[def.ID]++
		if e.activate(s, def.ID) {
			activated = append(activated, def.ID)
		}
	}
	return activated
}

// Replay rebuilds activation state from concerns and a response log.
func (e *Engine) Replay(concerns []string, responses []model.Response) State {
	s := NewState()
	e.Seed(&s, concerns)
	for _, r := range responses {
		e.Observe(&s, r)
	}
	return s
}

func (e *Engine) activate(s *State, id model.PathwayID) bool {
	if s.IsActive(id) {
		return false
	}
	if s.Counts[id] < e.minCount {
		return false
	}
	s.Active = append(s.Active, id)
	return true
}

// Matches reports whether a response carries a tag that triggers def.
// Blank or malformed tags never match.
func Matches(def model.PathwayDef, r model.Response) bool {
	if r.Pathway == def.ID {
		return true
	}
	for _, raw := range r.Tags {
		tag := strings.ToLower(strings.TrimSpace(raw))
		if tag == "" {
			continue
		}
		if tag == string(def.ID) {
			return true
		}
		for _, trigger := range def.TriggerTags {
			if tag == trigger {
				return true
			}
		}
	}
	return false
}

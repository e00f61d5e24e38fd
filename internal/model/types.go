// Package model defines shared data structures.
package model

import "time"

// Tier names an assessment length preset.
type Tier string

// Known tiers.
const (
	TierQuick    Tier = "quick"
	TierStandard Tier = "standard"
	TierDeep     Tier = "deep"
)

// ResponseType describes how a question is answered.
type ResponseType string

// Supported response types.
const (
	ResponseLikert ResponseType = "likert"
	ResponseChoice ResponseType = "choice"
	ResponseSlider ResponseType = "slider"
)

// Base question categories in rotation order.
const (
	CategorySelfAwareness       = "self-awareness"
	CategoryEmotionalRegulation = "emotional-regulation"
	CategorySocialDynamics      = "social-dynamics"
	CategoryCognitivePatterns   = "cognitive-patterns"
	CategoryBehavioralTraits    = "behavioral-traits"
)

// CategoryRotation is the order base categories are drawn in.
var CategoryRotation = []string{
	CategorySelfAwareness,
	CategoryEmotionalRegulation,
	CategorySocialDynamics,
	CategoryCognitivePatterns,
	CategoryBehavioralTraits,
}

// Big Five traits.
const (
	TraitOpenness          = "openness"
	TraitConscientiousness = "conscientiousness"
	TraitExtraversion      = "extraversion"
	TraitAgreeableness     = "agreeableness"
	TraitNeuroticism       = "neuroticism"
)

// Traits lists the scored traits in report order.
var Traits = []string{
	TraitOpenness,
	TraitConscientiousness,
	TraitExtraversion,
	TraitAgreeableness,
	TraitNeuroticism,
}

// Choice is one selectable answer of a choice question.
type Choice struct {
	Label string  `json:"label" yaml:"label"`
	Value float64 `json:"value" yaml:"value"`
}

// Question is read-only reference data served to clients.
type Question struct {
	ID         string       `json:"id" yaml:"id"`
	Text       string       `json:"text" yaml:"text"`
	Category   string       `json:"category" yaml:"category"`
	Trait      string       `json:"trait,omitempty" yaml:"trait"`
	Instrument string       `json:"instrument,omitempty" yaml:"instrument"`
	Type       ResponseType `json:"type" yaml:"type"`
	ScaleMin   float64      `json:"scaleMin" yaml:"scale_min"`
	ScaleMax   float64      `json:"scaleMax" yaml:"scale_max"`
	Choices    []Choice     `json:"choices,omitempty" yaml:"choices"`
	Reverse    bool         `json:"reverse,omitempty" yaml:"reverse"`
	Tags       []string     `json:"tags,omitempty" yaml:"tags"`
	Pathway    PathwayID    `json:"pathway,omitempty" yaml:"pathway"`
}

// Behavior holds optional client-side interaction metrics.
type Behavior struct {
	Keystrokes int `json:"keystrokes,omitempty"`
	MouseMoves int `json:"mouseMoves,omitempty"`
	Revisions  int `json:"revisions,omitempty"`
}

// Response is one recorded answer. Question metadata is copied in at record
// time so scoring never needs the question bank.
type Response struct {
	QuestionID string    `json:"questionId"`
	Value      float64   `json:"value"`
	Choice     string    `json:"choice,omitempty"`
	LatencyMs  int64     `json:"latencyMs"`
	Category   string    `json:"category,omitempty"`
	Trait      string    `json:"trait,omitempty"`
	Tags       []string  `json:"tags,omitempty"`
	Pathway    PathwayID `json:"pathway,omitempty"`
	Reverse    bool      `json:"reverse,omitempty"`
	ScaleMin   float64   `json:"scaleMin"`
	ScaleMax   float64   `json:"scaleMax"`
	Behavior   *Behavior `json:"behavior,omitempty"`
	RecordedAt time.Time `json:"recordedAt"`
}

// Level classifies a trait score.
type Level string

// Trait levels.
const (
	LevelLow    Level = "low"
	LevelMedium Level = "medium"
	LevelHigh   Level = "high"
)

// TraitScore is derived at scoring time only.
type TraitScore struct {
	Trait      string  `json:"trait"`
	Raw        float64 `json:"raw"`
	Percentile float64 `json:"percentile"`
	Level      Level   `json:"level"`
	Count      int     `json:"count"`
}

// DataQuality summarises quality flags.
type DataQuality string

// Data quality labels.
const (
	QualityGood DataQuality = "Good"
	QualityFair DataQuality = "Fair"
	QualityPoor DataQuality = "Poor"
)

// Quality holds response reliability metrics.
type Quality struct {
	CompletionRate              float64     `json:"completionRate"`
	AvgResponseTimeMs           float64     `json:"avgResponseTimeMs"`
	LongestRun                  int         `json:"longestRun"`
	Variability                 float64     `json:"variability"`
	StraightLiningDetected      bool        `json:"straightLiningDetected"`
	CarelessRespondingSuspected bool        `json:"carelessRespondingSuspected"`
	DataQuality                 DataQuality `json:"dataQuality"`
}

// Progress reports how far a session has come.
type Progress struct {
	Answered int     `json:"answered"`
	Total    int     `json:"total"`
	Percent  float64 `json:"percent"`
}

// Summary carries selection keys for the report compiler.
type Summary struct {
	ProfileKey       string   `json:"profileKey"`
	PrimaryProfile   string   `json:"primaryProfile"`
	ImmediateActions []string `json:"immediateActions"`
}

// Result is the completion payload of a session.
type Result struct {
	Scores            map[string]TraitScore `json:"scores"`
	ActivatedPathways []PathwayID           `json:"activatedPathways"`
	MatchConfidence   float64               `json:"matchConfidence"`
	Quality           Quality               `json:"quality"`
	Summary           Summary               `json:"summary"`
}

// SessionStatus is the lifecycle state of a session.
type SessionStatus string

// Session statuses.
const (
	StatusActive    SessionStatus = "active"
	StatusCompleted SessionStatus = "completed"
)

// Cursors keep batch selection deterministic across requests.
type Cursors struct {
	Category         int `json:"category"`
	BaseSincePathway int `json:"baseSincePathway"`
	Pathway          int `json:"pathway"`
}

// Session is the per-assessment state owned by the controller.
type Session struct {
	ID             string            `json:"id"`
	Tier           Tier              `json:"tier"`
	Budget         int               `json:"budget"`
	Concerns       []string          `json:"concerns,omitempty"`
	Demographics   map[string]string `json:"demographics,omitempty"`
	Responses      []Response        `json:"responses"`
	Activated      []PathwayID       `json:"activated"`
	PathwayCounts  map[PathwayID]int `json:"pathwayCounts"`
	Seed           int64             `json:"seed"`
	Cursors        Cursors           `json:"cursors"`
	CurrentBatch   []string          `json:"currentBatch"`
	Status         SessionStatus     `json:"status"`
	StartedAt      time.Time         `json:"startedAt"`
	LastActivityAt time.Time         `json:"lastActivityAt"`
	CompletedAt    *time.Time        `json:"completedAt,omitempty"`
	Result         *Result           `json:"result,omitempty"`
}

// Answered reports whether a question already has a recorded response.
func (s *Session) Answered(questionID string) (Response, bool) {
	for _, r := range s.Responses {
		if r.QuestionID == questionID {
			return r, true
		}
	}
	return Response{}, false
}

// Asked returns every question id that was answered or is pending.
func (s *Session) Asked() map[string]struct{} {
	asked := make(map[string]struct{}, len(s.Responses)+len(s.CurrentBatch))
	for _, r := range s.Responses {
		asked[r.QuestionID] = struct{}{}
	}
	for _, id := range s.CurrentBatch {
		asked[id] = struct{}{}
	}
	return asked
}

// Progress computes the progress counters for the session.
func (s *Session) Progress() Progress {
	p := Progress{Answered: len(s.Responses), Total: s.Budget}
	if s.Budget > 0 {
		p.Percent = float64(p.Answered) / float64(s.Budget) * 100
	}
	return p
}

// SessionAggregate summarizes a stored session for listings.
type SessionAggregate struct {
	SessionID      string
	Tier           Tier
	Status         SessionStatus
	Answered       int
	StartedAt      time.Time
	LastActivityAt time.Time
}

// ListFilter narrows session listings.
type ListFilter struct {
	Status SessionStatus
	Since  *time.Time
	Last   int
}

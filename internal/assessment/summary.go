package assessment

import (
	"fmt"
	"math"

	"github.com/verte-zerg/neurlyn/internal/model"
)

const maxImmediateActions = 5

var profileLabels = map[string]string{
	"openness-high":          "Curious Explorer",
	"openness-low":           "Grounded Pragmatist",
	"conscientiousness-high": "Steady Architect",
	"conscientiousness-low":  "Spontaneous Improviser",
	"extraversion-high":      "Energetic Connector",
	"extraversion-low":       "Reflective Observer",
	"agreeableness-high":     "Compassionate Ally",
	"agreeableness-low":      "Independent Challenger",
	"neuroticism-high":       "Sensitive Responder",
	"neuroticism-low":        "Calm Anchor",
}

const balancedProfile = "balanced"

var pathwayActions = map[model.PathwayID]string{
	model.PathwayADHD:       "try-external-reminders",
	model.PathwayAutism:     "plan-sensory-breaks",
	model.PathwayTrauma:     "seek-trauma-informed-support",
	model.PathwayMasking:    "schedule-recovery-time",
	model.PathwayGiftedness: "find-deep-challenge",
}

var traitActions = map[string]string{
	"neuroticism-high":       "practice-grounding",
	"conscientiousness-low":  "use-time-blocking",
	"extraversion-low":       "protect-solo-time",
	"extraversion-high":      "channel-social-energy",
	"agreeableness-high":     "practice-boundaries",
	"openness-high":          "start-a-learning-project",
	"openness-low":           "try-one-new-thing",
	"agreeableness-low":      "practice-active-listening",
	"conscientiousness-high": "schedule-unstructured-time",
	"neuroticism-low":        "support-someone-else",
}

// Summarize derives the primary-profile key, its label, and the ordered
// immediate-action keys. Narrative text is left to the report compiler.
func Summarize(scores map[string]model.TraitScore, activated []model.PathwayID, quality model.Quality) model.Summary {
	key := balancedProfile
	label := "Balanced Navigator"
	if trait, ok := dominantTrait(scores); ok {
		k := fmt.Sprintf("%s-%s", trait.Trait, trait.Level)
		if l, ok := profileLabels[k]; ok {
			key, label = k, l
		}
	}
	if len(activated) > 0 {
		key += "+" + string(activated[0])
		if def, ok := model.LookupPathway(activated[0]); ok {
			label = fmt.Sprintf("%s with %s traits", label, def.Label)
		}
	}

	var actions []string
	add := func(a string) {
		if a == "" || len(actions) >= maxImmediateActions {
			return
		}
		for _, existing := range actions {
			if existing == a {
				return
			}
		}
		actions = append(actions, a)
	}
	if quality.DataQuality == model.QualityPoor {
		add("retake-assessment")
	}
	for _, id := range activated {
		add(pathwayActions[id])
	}
	for _, trait := range model.Traits {
		s, ok := scores[trait]
		if !ok || s.Level == model.LevelMedium {
			continue
		}
		add(traitActions[fmt.Sprintf("%s-%s", trait, s.Level)])
	}
	if len(actions) == 0 {
		add("review-your-strengths")
	}
	return model.Summary{ProfileKey: key, PrimaryProfile: label, ImmediateActions: actions}
}

// dominantTrait picks the non-medium trait furthest from the midpoint.
// Ties go to the earlier trait in report order.
func dominantTrait(scores map[string]model.TraitScore) (model.TraitScore, bool) {
	var best model.TraitScore
	bestDist := -1.0
	for _, trait := range model.Traits {
		s, ok := scores[trait]
		if !ok || s.Level == model.LevelMedium {
			continue
		}
		if d := math.Abs(s.Raw - 50); d > bestDist {
			best, bestDist = s, d
		}
	}
	return best, bestDist >= 0
}

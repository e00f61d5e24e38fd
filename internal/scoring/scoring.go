// Package scoring computes trait scores, percentiles and quality metrics
// from recorded responses. Every function is pure and deterministic.
package scoring

import (
	"math"

	"github.com/verte-zerg/neurlyn/internal/model"
)

// Population parameters of the percentile approximation. These are fixed
// assumptions, not empirical norms.
const (
	PopulationMean   = 50.0
	PopulationStdDev = 15.0
)

// Level cutoffs on the 0-100 scale.
const (
	HighCutoff = 70.0
	LowCutoff  = 30.0
)

// Normalize maps a response value onto the 0-100 scale and applies reverse
// keying.
func Normalize(r model.Response) float64 {
	n := Intensity(r)
	if r.Reverse {
		n = 100 - n
	}
	return n
}

// Intensity maps the raw answer onto the 0-100 scale without reverse keying,
// i.e. how strongly the respondent agreed with the item as worded.
func Intensity(r model.Response) float64 {
	lo, hi := r.ScaleMin, r.ScaleMax
	if hi <= lo {
		lo, hi = 1, 5
	}
	v := r.Value
	if v < lo {
		v = lo
	}
	if v > hi {
		v = hi
	}
	return (v - lo) / (hi - lo) * 100
}

// ScoreTraits averages normalized responses per trait. Responses without a
// trait are ignored.
func ScoreTraits(responses []model.Response) map[string]model.TraitScore {
	sums := map[string]float64{}
	counts := map[string]int{}
	for _, r := range responses {
		if r.Trait == "" {
			continue
		}
		sums[r.Trait] += Normalize(r)
		counts[r.Trait]++
	}
	out := make(map[string]model.TraitScore, len(sums))
	for trait, sum := range sums {
		raw := sum / float64(counts[trait])
		out[trait] = model.TraitScore{
			Trait:      trait,
			Raw:        raw,
			Percentile: Percentile(raw),
			Level:      Classify(raw),
			Count:      counts[trait],
		}
	}
	return out
}

// Percentile returns the normal-CDF percentile of raw under the fixed
// population parameters.
func Percentile(raw float64) float64 {
	z := (raw - PopulationMean) / (PopulationStdDev * math.Sqrt2)
	return 0.5 * (1 + math.Erf(z)) * 100
}

// Classify buckets a 0-100 score into low, medium or high.
func Classify(score float64) model.Level {
	switch {
	case score >= HighCutoff:
		return model.LevelHigh
	case score <= LowCutoff:
		return model.LevelLow
	default:
		return model.LevelMedium
	}
}

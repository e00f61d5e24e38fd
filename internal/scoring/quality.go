package scoring

import (
	"math"

	"github.com/verte-zerg/neurlyn/internal/model"
)

// Match confidence parameters.
const (
	confidenceBase      = 60.0
	confidenceMilestone = 5.0
	confidenceQuality   = 5.0
	confidencePenalty   = 10.0
	ConfidenceMin       = 50.0
	ConfidenceMax       = 95.0
)

var confidenceMilestones = []int{30, 60, 100, 150}

// QualityMetrics computes reliability metrics for a response set. expected
// is the number of responses the session was budgeted for.
func QualityMetrics(responses []model.Response, expected int, p model.Policy) model.Quality {
	q := model.Quality{
		CompletionRate: completionRate(len(responses), expected),
		LongestRun:     LongestRun(responses),
	}
	q.AvgResponseTimeMs = averageLatency(responses)
	q.Variability = Variability(responses)

	q.StraightLiningDetected = q.LongestRun > p.StraightLineRun
	if len(responses) >= p.MinQualityResponses {
		fast := q.AvgResponseTimeMs > 0 && q.AvgResponseTimeMs < p.MinAvgLatencyMs
		flat := q.Variability < p.MinVariability
		q.CarelessRespondingSuspected = fast || flat
	}

	flags := 0
	if q.StraightLiningDetected {
		flags++
	}
	if q.CarelessRespondingSuspected {
		flags++
	}
	switch flags {
	case 0:
		q.DataQuality = model.QualityGood
	case 1:
		q.DataQuality = model.QualityFair
	default:
		q.DataQuality = model.QualityPoor
	}
	return q
}

// LongestRun returns the length of the longest run of identical consecutive
// raw values.
func LongestRun(responses []model.Response) int {
	if len(responses) == 0 {
		return 0
	}
	longest, run := 1, 1
	for i := 1; i < len(responses); i++ {
		if responses[i].Value == responses[i-1].Value {
			run++
		} else {
			run = 1
		}
		if run > longest {
			longest = run
		}
	}
	return longest
}

// Variability is the standard deviation of normalized values divided by the
// largest possible standard deviation on the 0-100 scale.
func Variability(responses []model.Response) float64 {
	if len(responses) == 0 {
		return 0
	}
	var sum float64
	values := make([]float64, len(responses))
	for i, r := range responses {
		values[i] = Normalize(r)
		sum += values[i]
	}
	mean := sum / float64(len(values))
	var sq float64
	for _, v := range values {
		sq += (v - mean) * (v - mean)
	}
	return math.Sqrt(sq/float64(len(values))) / 50
}

// MatchConfidence summarises result reliability as a number in [50, 95].
func MatchConfidence(responseCount int, q model.Quality) float64 {
	score := confidenceBase
	for _, m := range confidenceMilestones {
		if responseCount >= m {
			score += confidenceMilestone
		}
	}
	if q.DataQuality == model.QualityGood {
		score += confidenceQuality
	}
	if q.CarelessRespondingSuspected {
		score -= confidencePenalty
	}
	if q.StraightLiningDetected {
		score -= confidencePenalty
	}
	return math.Max(ConfidenceMin, math.Min(ConfidenceMax, score))
}

func completionRate(answered, expected int) float64 {
	if expected <= 0 {
		if answered > 0 {
			return 1
		}
		return 0
	}
	rate := float64(answered) / float64(expected)
	if rate > 1 {
		rate = 1
	}
	return rate
}

func averageLatency(responses []model.Response) float64 {
	var sum int64
	var n int
	for _, r := range responses {
		if r.LatencyMs <= 0 {
			continue
		}
		sum += r.LatencyMs
		n++
	}
	if n == 0 {
		return 0
	}
	return float64(sum) / float64(n)
}

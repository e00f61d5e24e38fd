package scoring

import (
	"testing"

	"github.com/verte-zerg/neurlyn/internal/model"
)

func runOf(identical, total int) []model.Response {
	out := make([]model.Response, 0, total)
	for i := 0; i < total; i++ {
		v := 3.0
		if i >= identical {
			// alternate 5 and 1 so the tail never extends the run
			v = float64(1 + (i-identical+1)%2*4)
		}
		out = append(out, model.Response{Value: v, ScaleMin: 1, ScaleMax: 5, LatencyMs: 3000})
	}
	return out
}

func TestStraightLiningThreshold(t *testing.T) {
	p := model.DefaultPolicy()

	q := QualityMetrics(runOf(11, 15), 15, p)
	if !q.StraightLiningDetected {
		t.Fatalf("expected straight-lining for 11 identical values, longest run %d", q.LongestRun)
	}

	q = QualityMetrics(runOf(9, 15), 15, p)
	if q.StraightLiningDetected {
		t.Fatalf("did not expect straight-lining for 9 identical values, longest run %d", q.LongestRun)
	}
}

func TestCarelessResponding(t *testing.T) {
	p := model.DefaultPolicy()
	fast := make([]model.Response, 0, 10)
	for i := 0; i < 10; i++ {
		fast = append(fast, model.Response{Value: float64(1 + i%5), ScaleMin: 1, ScaleMax: 5, LatencyMs: 300})
	}
	q := QualityMetrics(fast, 10, p)
	if !q.CarelessRespondingSuspected {
		t.Fatalf("expected careless flag for fast answers: %+v", q)
	}
	if q.DataQuality != model.QualityFair {
		t.Fatalf("expected Fair quality, got %s", q.DataQuality)
	}

	varied := make([]model.Response, 0, 10)
	for i := 0; i < 10; i++ {
		varied = append(varied, model.Response{Value: float64(1 + i%5), ScaleMin: 1, ScaleMax: 5, LatencyMs: 4000})
	}
	q = QualityMetrics(varied, 20, p)
	if q.CarelessRespondingSuspected || q.StraightLiningDetected {
		t.Fatalf("unexpected flags: %+v", q)
	}
	if q.DataQuality != model.QualityGood {
		t.Fatalf("expected Good quality, got %s", q.DataQuality)
	}
	if q.CompletionRate != 0.5 {
		t.Fatalf("expected completion rate 0.5, got %v", q.CompletionRate)
	}
}

func TestMatchConfidenceOrdering(t *testing.T) {
	good := MatchConfidence(150, model.Quality{DataQuality: model.QualityGood})
	careless := MatchConfidence(80, model.Quality{DataQuality: model.QualityFair, CarelessRespondingSuspected: true})
	if good <= careless {
		t.Fatalf("expected %v > %v", good, careless)
	}
}

func TestMatchConfidenceClamped(t *testing.T) {
	low := MatchConfidence(0, model.Quality{DataQuality: model.QualityPoor, CarelessRespondingSuspected: true, StraightLiningDetected: true})
	if low != ConfidenceMin {
		t.Fatalf("expected clamp to %v, got %v", ConfidenceMin, low)
	}
	high := MatchConfidence(1000, model.Quality{DataQuality: model.QualityGood})
	if high > ConfidenceMax {
		t.Fatalf("expected at most %v, got %v", ConfidenceMax, high)
	}
}

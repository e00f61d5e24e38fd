package scoring

import (
	"math"
	"testing"

	"github.com/verte-zerg/neurlyn/internal/model"
)

func likert(trait string, value float64, reverse bool) model.Response {
	return model.Response{Trait: trait, Value: value, Reverse: reverse, ScaleMin: 1, ScaleMax: 5, LatencyMs: 2500}
}

func TestNormalizeLikertAndReverse(t *testing.T) {
	if got := Normalize(likert("openness", 5, false)); got != 100 {
		t.Fatalf("expected 100, got %v", got)
	}
	if got := Normalize(likert("openness", 5, true)); got != 0 {
		t.Fatalf("expected reversed 0, got %v", got)
	}
	if got := Normalize(likert("openness", 3, false)); got != 50 {
		t.Fatalf("expected 50, got %v", got)
	}
	slider := model.Response{Value: 25, ScaleMin: 0, ScaleMax: 100}
	if got := Normalize(slider); got != 25 {
		t.Fatalf("expected slider 25, got %v", got)
	}
}

func TestScoreTraits(t *testing.T) {
	responses := []model.Response{
		likert(model.TraitOpenness, 5, false),
		likert(model.TraitOpenness, 1, true),
		likert(model.TraitNeuroticism, 1, false),
		likert(model.TraitNeuroticism, 2, false),
		{Value: 4, ScaleMin: 1, ScaleMax: 5},
	}
	scores := ScoreTraits(responses)
	if len(scores) != 2 {
		t.Fatalf("expected 2 traits, got %d", len(scores))
	}
	open := scores[model.TraitOpenness]
	if open.Raw != 100 || open.Level != model.LevelHigh || open.Count != 2 {
		t.Fatalf("unexpected openness score: %+v", open)
	}
	neuro := scores[model.TraitNeuroticism]
	if neuro.Raw != 12.5 || neuro.Level != model.LevelLow {
		t.Fatalf("unexpected neuroticism score: %+v", neuro)
	}
}

func TestPercentileMonotonic(t *testing.T) {
	prev := -1.0
	for raw := 0.0; raw <= 100; raw += 0.5 {
		p := Percentile(raw)
		if p < prev {
			t.Fatalf("percentile decreased at raw=%v: %v < %v", raw, p, prev)
		}
		prev = p
	}
	if math.Abs(Percentile(50)-50) > 1e-9 {
		t.Fatalf("expected mean to map to 50th percentile, got %v", Percentile(50))
	}
	if p := Percentile(65); math.Abs(p-84.13) > 0.01 {
		t.Fatalf("expected one stddev to map near 84.13, got %v", p)
	}
}

func TestClassifyBoundaries(t *testing.T) {
	cases := map[float64]model.Level{
		70:   model.LevelHigh,
		69.9: model.LevelMedium,
		30:   model.LevelLow,
		30.1: model.LevelMedium,
	}
	for score, want := range cases {
		if got := Classify(score); got != want {
			t.Fatalf("Classify(%v) = %s, want %s", score, got, want)
		}
	}
}

package stats

import (
	"bytes"
	"strings"
	"testing"

	"github.com/verte-zerg/neurlyn/internal/model"
)

func likert(trait string, value float64, reverse bool) model.Response {
	return model.Response{Trait: trait, Value: value, Reverse: reverse, ScaleMin: 1, ScaleMax: 5, LatencyMs: 1000}
}

func TestTraitTrajectoriesRunningMean(t *testing.T) {
	series := TraitTrajectories([]model.Response{
		likert("neuroticism", 5, false),
		likert("openness", 1, false),
		likert("openness", 5, false),
		likert("openness", 5, true),
		{Value: 3, ScaleMin: 1, ScaleMax: 5},
	})
	if len(series) != 2 {
		t.Fatalf("expected 2 series, got %d", len(series))
	}
	if series[0].Name != "openness" || series[1].Name != "neuroticism" {
		t.Fatalf("expected report trait order, got %s, %s", series[0].Name, series[1].Name)
	}
	want := []float64{0, 50, 100.0 / 3}
	for i, v := range want {
		if diff := series[0].Values[i] - v; diff > 1e-9 || diff < -1e-9 {
			t.Fatalf("value %d: expected %.3f, got %.3f", i, v, series[0].Values[i])
		}
	}
}

func TestMovingAverage(t *testing.T) {
	got := MovingAverage([]float64{2, 4, 6, 8}, 2)
	want := []float64{2, 3, 5, 7}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("index %d: expected %.1f, got %.1f", i, want[i], got[i])
		}
	}
}

func TestScoreBarBounds(t *testing.T) {
	if got := scoreBar(0); strings.Contains(got, "█") {
		t.Fatalf("expected empty bar, got %q", got)
	}
	if got := scoreBar(100); strings.Contains(got, "░") {
		t.Fatalf("expected full bar, got %q", got)
	}
	if got := []rune(scoreBar(150)); len(got) != barWidth {
		t.Fatalf("expected bar width %d, got %d", barWidth, len(got))
	}
}

func TestRenderTraitTable(t *testing.T) {
	var buf bytes.Buffer
	scores := map[string]model.TraitScore{
		"openness": {Trait: "openness", Raw: 75, Percentile: 95.2, Level: model.LevelHigh, Count: 3},
	}
	responses := []model.Response{likert("openness", 4, false), likert("openness", 5, false)}
	if err := RenderTraitTable(&buf, scores, responses); err != nil {
		t.Fatalf("render: %v", err)
	}
	out := buf.String()
	if !strings.Contains(out, "openness") || !strings.Contains(out, "95.2") || !strings.Contains(out, "high") {
		t.Fatalf("unexpected table:\n%s", out)
	}
}

func TestRenderSummaryListsFlagsAndPathways(t *testing.T) {
	var buf bytes.Buffer
	result := model.Result{
		ActivatedPathways: []model.PathwayID{model.PathwayADHD},
		MatchConfidence:   72,
		Quality: model.Quality{
			DataQuality:            model.QualityFair,
			StraightLiningDetected: true,
			LongestRun:             12,
		},
		Summary: model.Summary{PrimaryProfile: "Calm Anchor", ProfileKey: "neuroticism-low"},
	}
	if err := RenderSummary(&buf, result, 40); err != nil {
		t.Fatalf("render: %v", err)
	}
	out := buf.String()
	for _, want := range []string{"Calm Anchor", "72%", "straight-lining (run of 12)", "Pathways: "} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected %q in:\n%s", want, out)
		}
	}
}

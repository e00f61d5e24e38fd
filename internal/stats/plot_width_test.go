package stats

import (
	"testing"
	"unicode/utf8"
)

func TestPlotWidthFor(t *testing.T) {
	axisWidth := axisLabelWidth + utf8.RuneCountInString(axisSeparator)
	if got := PlotWidthFor(80); got != 80-axisWidth {
		t.Fatalf("expected width %d, got %d", 80-axisWidth, got)
	}
	if got := PlotWidthFor(0); got != minPlotWidth {
		t.Fatalf("expected min width %d, got %d", minPlotWidth, got)
	}
	if got := PlotWidthFor(12); got != minPlotWidth {
		t.Fatalf("expected narrow terminals to clamp to %d, got %d", minPlotWidth, got)
	}
}

func TestFitWidth(t *testing.T) {
	down := fitWidth([]float64{1, 3, 5, 7}, 2)
	if down[0] != 2 || down[1] != 6 {
		t.Fatalf("unexpected downsample: %v", down)
	}
	up := fitWidth([]float64{0, 10}, 3)
	if up[0] != 0 || up[1] != 5 || up[2] != 10 {
		t.Fatalf("unexpected upsample: %v", up)
	}
}

func TestFitWidthRepeatsSingleValue(t *testing.T) {
	got := fitWidth([]float64{42}, 3)
	if len(got) != 3 || got[0] != 42 || got[2] != 42 {
		t.Fatalf("unexpected fill: %v", got)
	}
	if fitWidth(nil, 3) != nil {
		t.Fatalf("expected nil for no values")
	}
}

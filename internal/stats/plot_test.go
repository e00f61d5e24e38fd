package stats

import (
	"bytes"
	"strings"
	"testing"
)

func TestPlotPerSeriesScale(t *testing.T) {
	var buf bytes.Buffer
	p := Plot{
		Title: "Test Plot",
		Series: []Series{
			{Name: "A", Values: []float64{1, 2, 3, 2, 1}},
			{Name: "B", Values: []float64{1, 1, 2, 3, 4}},
		},
		Width:  5,
		Height: 4,
	}
	if err := p.Render(&buf); err != nil {
		t.Fatalf("render: %v", err)
	}
	out := buf.String()
	if !strings.Contains(out, "Test Plot") {
		t.Fatalf("expected title in output")
	}
	if !strings.Contains(out, "Scaled per series") {
		t.Fatalf("expected scale note in output")
	}
	if !strings.Contains(out, "Legend:") {
		t.Fatalf("expected legend in output")
	}
	lines := strings.Split(strings.TrimSpace(out), "\n")
	expectedMin := 1 + 1 + 2 + 4 + 1
	if len(lines) < expectedMin {
		t.Fatalf("expected at least %d lines of output, got %d", expectedMin, len(lines))
	}
}

func TestPlotSharedScaleLabelsAndGuides(t *testing.T) {
	var buf bytes.Buffer
	p := Plot{
		Title:  "Traits",
		Series: []Series{{Name: "openness", Values: []float64{50, 50, 50}}},
		Width:  12,
		Height: 5,
		Scale:  &Scale{Min: 0, Max: 100, Guides: []float64{30, 70, 150}},
	}
	if err := p.Render(&buf); err != nil {
		t.Fatalf("render: %v", err)
	}
	out := buf.String()
	if strings.Contains(out, "min=") {
		t.Fatalf("shared scale should not print per-series ranges:\n%s", out)
	}
	if !strings.Contains(out, sharedScaleNote) {
		t.Fatalf("expected shared scale note:\n%s", out)
	}
	lines := strings.Split(out, "\n")
	// title, note, then the plot rows.
	rows := lines[2 : 2+p.Height]
	if !strings.HasPrefix(rows[0], " 100"+axisSeparator) {
		t.Fatalf("expected top label 100, got %q", rows[0])
	}
	if !strings.HasPrefix(rows[2], "  50"+axisSeparator) {
		t.Fatalf("expected mid label 50, got %q", rows[2])
	}
	if !strings.HasPrefix(rows[4], "   0"+axisSeparator) {
		t.Fatalf("expected bottom label 0, got %q", rows[4])
	}
	blank := string(braille(0))
	for _, i := range []int{1, 3} {
		body := strings.SplitN(rows[i], axisSeparator, 2)[1]
		if strings.Trim(body, blank) == "" {
			t.Fatalf("expected guide dots on row %d, got %q", i, rows[i])
		}
	}
}

func TestPlotSkipsEmptySeries(t *testing.T) {
	var buf bytes.Buffer
	if err := (Plot{Title: "empty", Series: []Series{{Name: "x"}}}).Render(&buf); err != nil {
		t.Fatalf("render: %v", err)
	}
	if buf.Len() != 0 {
		t.Fatalf("expected no output, got %q", buf.String())
	}
}

func TestCanvasDotsAndSegments(t *testing.T) {
	c := newCanvas(2, 1)
	c.dot(0, 0)
	c.dot(1, 3)
	c.dot(4, 0)
	if got := c.at(0, 0); got != 0x01|0x80 {
		t.Fatalf("unexpected cell mask %#x", got)
	}
	if got := c.at(1, 0); got != 0 {
		t.Fatalf("expected out of range dot to be dropped, got %#x", got)
	}

	c = newCanvas(2, 1)
	c.segment(0, 0, 3, 3, seriesDashes[0])
	if c.at(0, 0) != 0x01|0x10 || c.at(1, 0) != 0x04|0x80 {
		t.Fatalf("expected a diagonal, got %#x %#x", c.at(0, 0), c.at(1, 0))
	}

	c = newCanvas(2, 1)
	c.hline(0, guideDash)
	if c.at(0, 0) != 0x01 || c.at(1, 0) != 0 {
		t.Fatalf("expected one guide dot every period, got %#x %#x", c.at(0, 0), c.at(1, 0))
	}
}

package stats

import (
	"fmt"
	"io"
	"math"
	"os"
	"strings"
	"unicode/utf8"

	"golang.org/x/term"
)

// Series represents a named data series for plotting.
type Series struct {
	Name   string
	Values []float64
}

// Scale fixes the vertical range shared by every series of a plot. Guides
// are drawn as dotted horizontal lines, e.g. level cutoffs.
type Scale struct {
	Min    float64
	Max    float64
	Guides []float64
	Format string
}

// Plot describes one braille chart. Without a Scale each series is scaled
// to its own range.
type Plot struct {
	Title  string
	Series []Series
	Width  int
	Height int
	Color  bool
	Scale  *Scale
}

const (
	defaultPlotHeight = 10
	minPlotWidth      = 10
	fallbackTermWidth = 80
	axisLabelWidth    = 4
	axisSeparator     = " │ "
	scaleNote         = "Scaled per series; see min/max below."
	sharedScaleNote   = "Shared scale; dotted lines mark the level cutoffs."
	colorReset        = "\x1b[0m"
)

// dash draws the first on dots of every period along x.
type dash struct {
	name   string
	period int
	on     int
}

func (d dash) draws(x int) bool {
	return d.period <= 1 || x%d.period < d.on
}

var (
	seriesDashes = []dash{
		{name: "solid", period: 1, on: 1},
		{name: "dashed", period: 6, on: 3},
		{name: "dotted", period: 4, on: 1},
		{name: "dashdot", period: 8, on: 3},
	}
	guideDash = dash{name: "guide", period: 4, on: 1}

	seriesColors = []string{"\x1b[36m", "\x1b[35m", "\x1b[33m", "\x1b[32m", "\x1b[34m"}
)

// Render writes the plot. Color is used when forced or when w is a terminal.
func (p Plot) Render(w io.Writer) error {
	series := make([]Series, 0, len(p.Series))
	for _, s := range p.Series {
		if len(s.Values) > 0 {
			series = append(series, s)
		}
	}
	if len(series) == 0 {
		return nil
	}

	height := p.Height
	if height <= 0 {
		height = defaultPlotHeight
	}
	width := p.Width
	if width <= 0 {
		width = PlotWidthFor(terminalWidth())
	}
	width = max(width, minPlotWidth)

	layers := make([]*canvas, len(series))
	spans := make([]span, len(series))
	for i, s := range series {
		values := fitWidth(s.Values, width)
		spans[i] = spanOf(values, p.Scale)
		layers[i] = newCanvas(width, height)
		layers[i].polyline(values, spans[i], seriesDashes[i%len(seriesDashes)])
	}
	guides := newCanvas(width, height)
	if p.Scale != nil {
		full := span{lo: p.Scale.Min, hi: p.Scale.Max}
		for _, g := range p.Scale.Guides {
			if g >= p.Scale.Min && g <= p.Scale.Max {
				guides.hline(full.dotRow(g, guides.dotsTall()), guideDash)
			}
		}
	}

	useColor := shouldUseColor(w, p.Color)
	var lines []string
	if p.Title != "" {
		lines = append(lines, p.Title)
	}
	if p.Scale != nil {
		lines = append(lines, sharedScaleNote)
	} else {
		lines = append(lines, scaleNote)
		for i, s := range series {
			lines = append(lines, fmt.Sprintf("%s: min=%.2f max=%.2f", s.Name, spans[i].lo, spans[i].hi))
		}
	}
	labels := axisLabels(height, p.Scale)
	for row := 0; row < height; row++ {
		var b strings.Builder
		fmt.Fprintf(&b, "%*s%s", axisLabelWidth, labels[row], axisSeparator)
		for col := 0; col < width; col++ {
			mask, owner := guides.at(col, row), -1
			for i, layer := range layers {
				if m := layer.at(col, row); m != 0 {
					mask |= m
					if owner < 0 {
						owner = i
					}
				}
			}
			if useColor && owner >= 0 {
				b.WriteString(seriesColors[owner%len(seriesColors)])
				b.WriteRune(braille(mask))
				b.WriteString(colorReset)
				continue
			}
			b.WriteRune(braille(mask))
		}
		lines = append(lines, b.String())
	}
	lines = append(lines, legend(series, useColor), "")

	for _, line := range lines {
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}
	return nil
}

// PlotWidthFor computes a plot width that fits within the total available width.
func PlotWidthFor(totalWidth int) int {
	if totalWidth <= 0 {
		return minPlotWidth
	}
	return max(totalWidth-axisLabelWidth-utf8.RuneCountInString(axisSeparator), minPlotWidth)
}

func terminalWidth() int {
	width, _, err := term.GetSize(int(os.Stdout.Fd()))
	if err != nil || width <= 0 {
		return fallbackTermWidth
	}
	return width
}

func shouldUseColor(w io.Writer, force bool) bool {
	if os.Getenv("NO_COLOR") != "" {
		return false
	}
	if force {
		return true
	}
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

// axisLabels puts the top, middle and bottom values of the range on the
// matching rows. Per-series plots are labelled in percent of their range.
func axisLabels(height int, scale *Scale) []string {
	labels := make([]string, height)
	if height == 0 {
		return labels
	}
	top, mid, bottom := "100%", "50%", "0%"
	if scale != nil {
		format := scale.Format
		if format == "" {
			format = "%.0f"
		}
		top = fmt.Sprintf(format, scale.Max)
		mid = fmt.Sprintf(format, (scale.Min+scale.Max)/2)
		bottom = fmt.Sprintf(format, scale.Min)
	}
	labels[0] = top
	if height > 2 {
		labels[height/2] = mid
	}
	if height > 1 {
		labels[height-1] = bottom
	}
	return labels
}

func legend(series []Series, useColor bool) string {
	parts := make([]string, len(series))
	for i, s := range series {
		parts[i] = fmt.Sprintf("%c %s (%s)", braille(0x01), s.Name, seriesDashes[i%len(seriesDashes)].name)
		if useColor {
			parts[i] = seriesColors[i%len(seriesColors)] + parts[i] + colorReset
		}
	}
	return "Legend: " + strings.Join(parts, "  ")
}

// span is the value range mapped onto the plot height.
type span struct {
	lo, hi float64
}

func spanOf(values []float64, scale *Scale) span {
	var s span
	if scale != nil {
		s = span{lo: scale.Min, hi: scale.Max}
	} else {
		s = span{lo: values[0], hi: values[0]}
		for _, v := range values[1:] {
			s.lo, s.hi = math.Min(s.lo, v), math.Max(s.hi, v)
		}
	}
	if s.hi-s.lo < 1e-9 {
		s.lo--
		s.hi++
	}
	return s
}

// dotRow maps v to a dot row counted from the top, clamped to the canvas.
func (s span) dotRow(v float64, dots int) int {
	if dots <= 1 {
		return 0
	}
	frac := (v - s.lo) / (s.hi - s.lo)
	row := int(math.Round((1 - frac) * float64(dots-1)))
	return min(max(row, 0), dots-1)
}

// fitWidth stretches or squeezes values to exactly width samples: bucket
// means when there are more values than columns, linear interpolation
// otherwise.
func fitWidth(values []float64, width int) []float64 {
	if len(values) == 0 || width <= 0 {
		return nil
	}
	out := make([]float64, width)
	n := len(values)
	switch {
	case n == width:
		copy(out, values)
	case n > width:
		for i := range out {
			lo, hi := i*n/width, (i+1)*n/width
			hi = min(max(hi, lo+1), n)
			var sum float64
			for _, v := range values[lo:hi] {
				sum += v
			}
			out[i] = sum / float64(hi-lo)
		}
	case n == 1 || width == 1:
		for i := range out {
			out[i] = values[0]
		}
	default:
		step := float64(n-1) / float64(width-1)
		for i := range out {
			pos := float64(i) * step
			j := int(pos)
			if j >= n-1 {
				out[i] = values[n-1]
				continue
			}
			frac := pos - float64(j)
			out[i] = values[j] + (values[j+1]-values[j])*frac
		}
	}
	return out
}

// canvas is a grid of braille cells, each two dots wide and four tall.
type canvas struct {
	cols, rows int
	cells      []uint8
}

// brailleBits[y][x] is the bit of the dot at (x, y) inside a cell.
var brailleBits = [4][2]uint8{
	{0x01, 0x08},
	{0x02, 0x10},
	{0x04, 0x20},
	{0x40, 0x80},
}

func newCanvas(cols, rows int) *canvas {
	return &canvas{cols: cols, rows: rows, cells: make([]uint8, cols*rows)}
}

func (c *canvas) dotsWide() int { return c.cols * 2 }
func (c *canvas) dotsTall() int { return c.rows * 4 }

func (c *canvas) at(col, row int) uint8 {
	return c.cells[row*c.cols+col]
}

func (c *canvas) dot(x, y int) {
	if x < 0 || y < 0 || x >= c.dotsWide() || y >= c.dotsTall() {
		return
	}
	c.cells[(y/4)*c.cols+x/2] |= brailleBits[y%4][x%2]
}

// polyline joins one sample per cell column, placed on the cell's left dot.
func (c *canvas) polyline(values []float64, s span, d dash) {
	dots := c.dotsTall()
	for i, v := range values {
		x, y := i*2, s.dotRow(v, dots)
		if i == 0 {
			if d.draws(x) {
				c.dot(x, y)
			}
			continue
		}
		c.segment((i-1)*2, s.dotRow(values[i-1], dots), x, y, d)
	}
}

func (c *canvas) hline(y int, d dash) {
	for x := 0; x < c.dotsWide(); x++ {
		if d.draws(x) {
			c.dot(x, y)
		}
	}
}

// segment steps along the longer axis so consecutive dots always touch.
func (c *canvas) segment(x0, y0, x1, y1 int, d dash) {
	dx, dy := x1-x0, y1-y0
	steps := max(abs(dx), abs(dy))
	for i := 0; i <= steps; i++ {
		x, y := x0, y0
		if steps > 0 {
			x += int(math.Round(float64(dx*i) / float64(steps)))
			y += int(math.Round(float64(dy*i) / float64(steps)))
		}
		if d.draws(x) {
			c.dot(x, y)
		}
	}
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

func braille(mask uint8) rune {
	return rune(0x2800 + int(mask))
}

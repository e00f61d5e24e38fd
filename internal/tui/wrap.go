package tui

import (
	"fmt"
	"math"
	"strings"

	"github.com/mattn/go-runewidth"
)

// wrapText breaks text at spaces so no line exceeds width terminal cells.
// Words wider than the line are split.
func wrapText(text string, width int) string {
	if width <= 0 {
		return text
	}
	var out strings.Builder
	lineWidth := 0
	for i, word := range strings.Fields(text) {
		w := runewidth.StringWidth(word)
		switch {
		case i == 0:
		case lineWidth+1+w > width:
			out.WriteRune('\n')
			lineWidth = 0
		default:
			out.WriteRune(' ')
			lineWidth++
		}
		for lineWidth == 0 && w > width {
			head := runewidth.Truncate(word, width, "")
			out.WriteString(head)
			out.WriteRune('\n')
			word = strings.TrimPrefix(word, head)
			w = runewidth.StringWidth(word)
		}
		out.WriteString(word)
		lineWidth += w
	}
	return out.String()
}

// renderSlider draws a horizontal track with a marker at value.
func renderSlider(value, lo, hi float64, width int) string {
	label := fmt.Sprintf(" %g", value)
	track := width - runewidth.StringWidth(label) - 2
	if track < 2 {
		track = 2
	}
	pos := 0
	if hi > lo {
		pos = int(math.Round((value - lo) / (hi - lo) * float64(track-1)))
	}
	if pos < 0 {
		pos = 0
	}
	if pos >= track {
		pos = track - 1
	}
	var b strings.Builder
	b.WriteRune('[')
	b.WriteString(pendingStyle.Render(strings.Repeat("─", pos)))
	b.WriteString(selectedStyle.Render("●"))
	b.WriteString(pendingStyle.Render(strings.Repeat("─", track-pos-1)))
	b.WriteRune(']')
	b.WriteString(label)
	return b.String()
}

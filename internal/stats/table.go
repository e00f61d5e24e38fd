package stats

import (
	"fmt"
	"io"
	"strings"

	"github.com/mattn/go-runewidth"
)

// trendCells caps the trend column so long sessions keep the table narrow.
const trendCells = 24

type column struct {
	title string
	right bool
	// tail keeps only the last tail cells of a wider value. Zero means no limit.
	tail int
}

// textTable lays out rows under a ruled header, measuring terminal cells
// rather than bytes so bars and wide runes line up.
type textTable struct {
	cols []column
	rows [][]string
}

func newTable(cols ...column) *textTable {
	return &textTable{cols: cols}
}

func (t *textTable) add(cells ...string) {
	t.rows = append(t.rows, cells)
}

func (t *textTable) lines() []string {
	if len(t.cols) == 0 {
		return nil
	}
	widths := make([]int, len(t.cols))
	for i, c := range t.cols {
		widths[i] = runewidth.StringWidth(c.title)
	}
	rows := make([][]string, len(t.rows))
	for r, row := range t.rows {
		cells := make([]string, len(t.cols))
		for i, c := range t.cols {
			if i < len(row) {
				cells[i] = c.fit(row[i])
			}
			if w := runewidth.StringWidth(cells[i]); w > widths[i] {
				widths[i] = w
			}
		}
		rows[r] = cells
	}

	titles := make([]string, len(t.cols))
	rule := make([]string, len(t.cols))
	for i, c := range t.cols {
		titles[i] = c.title
		if c.title != "" {
			rule[i] = strings.Repeat("-", widths[i])
		}
	}
	out := make([]string, 0, len(rows)+2)
	out = append(out, t.join(titles, widths), t.join(rule, widths))
	for _, cells := range rows {
		out = append(out, t.join(cells, widths))
	}
	return out
}

func (t *textTable) write(w io.Writer) error {
	for _, line := range t.lines() {
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}
	return nil
}

func (t *textTable) join(cells []string, widths []int) string {
	var b strings.Builder
	for i, cell := range cells {
		if i > 0 {
			b.WriteByte(' ')
		}
		pad := strings.Repeat(" ", widths[i]-runewidth.StringWidth(cell))
		if t.cols[i].right {
			b.WriteString(pad + cell)
		} else {
			b.WriteString(cell + pad)
		}
	}
	return strings.TrimRight(b.String(), " ")
}

func (c column) fit(value string) string {
	if c.tail <= 0 || runewidth.StringWidth(value) <= c.tail {
		return value
	}
	runes := []rune(value)
	width, start := 1, len(runes)
	for start > 0 {
		rw := runewidth.RuneWidth(runes[start-1])
		if width+rw > c.tail {
			break
		}
		width += rw
		start--
	}
	return "…" + string(runes[start:])
}

// Package stats renders assessment results for the terminal.
package stats

import (
	"fmt"
	"io"
	"math"
	"strings"

	"github.com/verte-zerg/neurlyn/internal/model"
	"github.com/verte-zerg/neurlyn/internal/scoring"
)

const sparkChars = " .:-=+*#%@"

const barWidth = 20

// MovingAverage computes a rolling mean over the provided window size.
func MovingAverage(values []float64, window int) []float64 {
	if window <= 1 || len(values) == 0 {
		out := make([]float64, len(values))
		copy(out, values)
		return out
	}
	out := make([]float64, len(values))
	var sum float64
	for i := 0; i < len(values); i++ {
		sum += values[i]
		if i >= window {
			sum -= values[i-window]
		}
		den := float64(i + 1)
		if i >= window {
			den = float64(window)
		}
		out[i] = sum / den
	}
	return out
}

// Sparkline renders a single-line ASCII sparkline for the values.
func Sparkline(values []float64) string {
	if len(values) == 0 {
		return ""
	}
	minVal := values[0]
	maxVal := values[0]
	for _, v := range values[1:] {
		if v < minVal {
			minVal = v
		}
		if v > maxVal {
			maxVal = v
		}
	}
	if math.Abs(maxVal-minVal) < 1e-9 {
		return strings.Repeat(string(sparkChars[len(sparkChars)/2]), len(values))
	}
	var b strings.Builder
	for _, v := range values {
		pos := (v - minVal) / (maxVal - minVal)
		idx := int(math.Round(pos * float64(len(sparkChars)-1)))
		if idx < 0 {
			idx = 0
		}
		if idx >= len(sparkChars) {
			idx = len(sparkChars) - 1
		}
		b.WriteByte(sparkChars[idx])
	}
	return b.String()
}

// TraitTrajectories returns, per trait in report order, the running mean of
// normalized values after each response to that trait.
func TraitTrajectories(responses []model.Response) []Series {
	sums := map[string]float64{}
	counts := map[string]int{}
	values := map[string][]float64{}
	for _, r := range responses {
		if r.Trait == "" {
			continue
		}
		sums[r.Trait] += scoring.Normalize(r)
		counts[r.Trait]++
		values[r.Trait] = append(values[r.Trait], sums[r.Trait]/float64(counts[r.Trait]))
	}
	out := make([]Series, 0, len(model.Traits))
	for _, trait := range model.Traits {
		if len(values[trait]) == 0 {
			continue
		}
		out = append(out, Series{Name: trait, Values: values[trait]})
	}
	return out
}

// LatencySeries returns the response latencies in seconds, skipping
// responses without a measured latency.
func LatencySeries(responses []model.Response) []float64 {
	out := make([]float64, 0, len(responses))
	for _, r := range responses {
		if r.LatencyMs > 0 {
			out = append(out, float64(r.LatencyMs)/1000)
		}
	}
	return out
}

// RenderSummary prints the profile, confidence and quality of a result.
func RenderSummary(w io.Writer, result model.Result, answered int) error {
	lines := []string{
		"Summary",
		fmt.Sprintf("Profile: %s (%s)", result.Summary.PrimaryProfile, result.Summary.ProfileKey),
		fmt.Sprintf("Responses: %d", answered),
		fmt.Sprintf("Match confidence: %.0f%%", result.MatchConfidence),
		fmt.Sprintf("Data quality: %s", result.Quality.DataQuality),
		fmt.Sprintf("Completion: %.1f%%", result.Quality.CompletionRate),
		fmt.Sprintf("Avg response time: %.0f ms", result.Quality.AvgResponseTimeMs),
	}
	var flags []string
	if result.Quality.StraightLiningDetected {
		flags = append(flags, fmt.Sprintf("straight-lining (run of %d)", result.Quality.LongestRun))
	}
	if result.Quality.CarelessRespondingSuspected {
		flags = append(flags, "careless responding")
	}
	if len(flags) > 0 {
		lines = append(lines, "Flags: "+strings.Join(flags, ", "))
	}
	if len(result.ActivatedPathways) > 0 {
		labels := make([]string, 0, len(result.ActivatedPathways))
		for _, id := range result.ActivatedPathways {
			label := string(id)
			if def, ok := model.LookupPathway(id); ok {
				label = def.Label
			}
			labels = append(labels, label)
		}
		lines = append(lines, "Pathways: "+strings.Join(labels, ", "))
	}
	if top := TopTraits(result.Scores, 2); len(top) > 0 {
		lines = append(lines, "Strongest signals: "+strings.Join(top, ", "))
	}
	if len(result.Summary.ImmediateActions) > 0 {
		lines = append(lines, "Next steps: "+strings.Join(result.Summary.ImmediateActions, ", "))
	}
	lines = append(lines, "")
	for _, line := range lines {
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}
	return nil
}

// RenderTraitTable prints one row per scored trait with a score bar and a
// sparkline of the running mean.
func RenderTraitTable(w io.Writer, scores map[string]model.TraitScore, responses []model.Response) error {
	if len(scores) == 0 {
		_, err := fmt.Fprintln(w, "No trait scores found.")
		return err
	}
	trends := map[string][]float64{}
	for _, s := range TraitTrajectories(responses) {
		trends[s.Name] = s.Values
	}

	if _, err := fmt.Fprintln(w, "Traits"); err != nil {
		return err
	}
	tbl := newTable(
		column{title: "Trait"},
		column{title: "Score", right: true},
		column{title: "Percentile", right: true},
		column{title: "Level"},
		column{title: "Items", right: true},
		column{},
		column{title: "Trend", tail: trendCells},
	)
	for _, trait := range model.Traits {
		s, ok := scores[trait]
		if !ok {
			continue
		}
		tbl.add(
			trait,
			fmt.Sprintf("%.1f", s.Raw),
			fmt.Sprintf("%.1f", s.Percentile),
			string(s.Level),
			fmt.Sprintf("%d", s.Count),
			scoreBar(s.Raw),
			Sparkline(trends[trait]),
		)
	}
	if err := tbl.write(w); err != nil {
		return err
	}
	_, err := fmt.Fprintln(w, "")
	return err
}

// RenderCurvesWithSize plots the trait trajectories and the moving average
// of response latency, sized to a given total width.
func RenderCurvesWithSize(w io.Writer, responses []model.Response, window, totalWidth, height int, useColor bool) error {
	if len(responses) == 0 {
		return nil
	}
	width := 0
	if totalWidth > 0 {
		width = PlotWidthFor(totalWidth)
	}
	traits := Plot{
		Title:  "Trait trajectories",
		Series: TraitTrajectories(responses),
		Width:  width,
		Height: height,
		Color:  useColor,
		Scale:  &Scale{Min: 0, Max: 100, Guides: []float64{scoring.LowCutoff, scoring.HighCutoff}},
	}
	if err := traits.Render(w); err != nil {
		return err
	}
	latency := Plot{
		Title:  "Response time (s)",
		Series: []Series{{Name: "latency", Values: MovingAverage(LatencySeries(responses), window)}},
		Width:  width,
		Height: height,
		Color:  useColor,
	}
	return latency.Render(w)
}

// RenderSessionList prints a table of stored sessions.
func RenderSessionList(w io.Writer, sessions []model.SessionAggregate) error {
	if len(sessions) == 0 {
		_, err := fmt.Fprintln(w, "No sessions found.")
		return err
	}
	tbl := newTable(
		column{title: "Session"},
		column{title: "Tier"},
		column{title: "Status"},
		column{title: "Answered", right: true},
		column{title: "Started"},
		column{title: "Last activity"},
	)
	for _, s := range sessions {
		tbl.add(
			s.SessionID,
			string(s.Tier),
			string(s.Status),
			fmt.Sprintf("%d", s.Answered),
			s.StartedAt.Local().Format("2006-01-02 15:04"),
			s.LastActivityAt.Local().Format("2006-01-02 15:04"),
		)
	}
	return tbl.write(w)
}

func scoreBar(raw float64) string {
	filled := int(math.Round(raw / 100 * barWidth))
	if filled < 0 {
		filled = 0
	}
	if filled > barWidth {
		filled = barWidth
	}
	return strings.Repeat("█", filled) + strings.Repeat("░", barWidth-filled)
}

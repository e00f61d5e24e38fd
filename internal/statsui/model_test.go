package statsui

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/verte-zerg/neurlyn/internal/assessment"
	"github.com/verte-zerg/neurlyn/internal/model"
)

type fakeSource struct {
	sessions []model.SessionAggregate
	filters  []model.ListFilter
}

func (f *fakeSource) ListSessions(_ context.Context, filter model.ListFilter) ([]model.SessionAggregate, error) {
	f.filters = append(f.filters, filter)
	var out []model.SessionAggregate
	for _, s := range f.sessions {
		if filter.Status != "" && s.Status != filter.Status {
			continue
		}
		out = append(out, s)
	}
	return out, nil
}

func (f *fakeSource) Snapshot(_ context.Context, id string) (assessment.Snapshot, error) {
	for _, s := range f.sessions {
		if s.SessionID == id {
			return assessment.Snapshot{
				SessionID: id,
				Tier:      s.Tier,
				Result: model.Result{
					Summary: model.Summary{PrimaryProfile: "Balanced", ProfileKey: "balanced"},
				},
			}, nil
		}
	}
	return assessment.Snapshot{}, fmt.Errorf("session %s not found", id)
}

func newSource() *fakeSource {
	start := time.Date(2026, 2, 1, 10, 0, 0, 0, time.UTC)
	return &fakeSource{sessions: []model.SessionAggregate{
		{SessionID: "s-1", Tier: model.TierQuick, Status: model.StatusCompleted, Answered: 20, StartedAt: start},
		{SessionID: "s-2", Tier: model.TierDeep, Status: model.StatusActive, Answered: 7, StartedAt: start.Add(time.Hour)},
	}}
}

func send(m *Model, msgs ...tea.Msg) *Model {
	for _, msg := range msgs {
		next, _ := m.Update(msg)
		m = next.(*Model)
	}
	return m
}

func TestNewModelSelectsLatestSession(t *testing.T) {
	m := NewModel(newSource(), model.ListFilter{}, "", 5)
	if m.Selected() != "s-2" {
		t.Fatalf("expected latest session, got %q", m.Selected())
	}
	if m.activeTab != tabSessions {
		t.Fatalf("expected sessions tab, got %d", m.activeTab)
	}
}

func TestEnterOpensSelectedSession(t *testing.T) {
	m := NewModel(newSource(), model.ListFilter{}, "", 5)
	m = send(m,
		tea.WindowSizeMsg{Width: 100, Height: 30},
		tea.KeyMsg{Type: tea.KeyUp},
		tea.KeyMsg{Type: tea.KeyEnter},
	)
	if m.Selected() != "s-1" {
		t.Fatalf("expected s-1, got %q", m.Selected())
	}
	if m.activeTab != tabReport {
		t.Fatalf("expected report tab, got %d", m.activeTab)
	}
	if view := m.View(); !strings.Contains(view, "Session s-1 (quick)") {
		t.Fatalf("expected report in view, got:\n%s", view)
	}
}

func TestFilterFormAppliesStatus(t *testing.T) {
	src := newSource()
	m := NewModel(src, model.ListFilter{}, "", 5)
	m = send(m, tea.WindowSizeMsg{Width: 100, Height: 30}, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("/")})
	if !m.filterMode {
		t.Fatalf("expected filter mode")
	}
	m = send(m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("completed")}, tea.KeyMsg{Type: tea.KeyEnter})
	if m.filterMode {
		t.Fatalf("expected filter mode to close, error %q", m.filterError)
	}
	last := src.filters[len(src.filters)-1]
	if last.Status != model.StatusCompleted {
		t.Fatalf("expected completed filter, got %+v", last)
	}
	if m.Selected() != "s-1" {
		t.Fatalf("expected s-1 after filtering, got %q", m.Selected())
	}
}

func TestFilterFormRejectsBadInput(t *testing.T) {
	m := NewModel(newSource(), model.ListFilter{}, "", 5)
	m = send(m,
		tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("/")},
		tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("paused")},
		tea.KeyMsg{Type: tea.KeyEnter},
	)
	if !m.filterMode || !strings.Contains(m.filterError, "unknown status") {
		t.Fatalf("expected status error, got mode=%v err=%q", m.filterMode, m.filterError)
	}
	m = send(m, tea.KeyMsg{Type: tea.KeyEsc})
	if m.filterMode {
		t.Fatalf("expected esc to cancel the form")
	}
}

func TestCurveWindowBounds(t *testing.T) {
	if got := prevCurveWindow(1); got != 1 {
		t.Fatalf("expected floor of 1, got %d", got)
	}
	if got := nextCurveWindow(50); got != 50 {
		t.Fatalf("expected cap of 50, got %d", got)
	}
	if got := nextCurveWindow(0); got != 1 {
		t.Fatalf("expected 1, got %d", got)
	}
}

func TestFitLines(t *testing.T) {
	got := fitLines("ab\ncd\nef", 3, 2)
	if got != "ab \ncd " {
		t.Fatalf("unexpected fit: %q", got)
	}
	if got := truncateLine("abcdefgh", 6); got != "abc..." {
		t.Fatalf("unexpected truncate: %q", got)
	}
}

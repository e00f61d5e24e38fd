// Package statsui provides the Bubble Tea report browser.
package statsui

import (
	"bytes"
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/cursor"
	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/verte-zerg/neurlyn/internal/model"
	"github.com/verte-zerg/neurlyn/internal/stats"
)

const (
	tabSessions = iota
	tabReport
)

const plotHeight = 10

var (
	activeNavStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#F0F0F0")).
			Bold(true).
			Padding(0, 1).
			Border(lipgloss.RoundedBorder(), true).
			BorderForeground(lipgloss.Color("#C89A3A"))
	inactiveNavStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("#B0B0B0")).
				Padding(0, 1).
				Border(lipgloss.RoundedBorder(), true).
				BorderForeground(lipgloss.Color("#4A4A4A"))
	headerStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("#6E6E6E"))
	errorStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF4D4F"))
	tableMutedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#B8B8B8"))
)

// Source lists stored sessions and recomputes their results.
type Source interface {
	stats.SessionLister
	stats.Snapshotter
}

// Model implements the Bubble Tea report browser.
type Model struct {
	src    Source
	filter model.ListFilter
	window int

	report   stats.Report
	selected string
	errMsg   string

	tabs      []string
	activeTab int
	sessions  table.Model
	viewport  viewport.Model

	width  int
	height int

	filterMode   bool
	filterInputs []textinput.Model
	filterIndex  int
	filterError  string
}

// NewModel constructs a report browser. An empty sessionID opens the most
// recent session matching filter.
func NewModel(src Source, filter model.ListFilter, sessionID string, curveWindow int) *Model {
	m := &Model{
		src:      src,
		filter:   filter,
		window:   curveWindow,
		tabs:     []string{"Sessions", "Report"},
		viewport: viewport.New(0, 0),
		sessions: table.New(
			table.WithColumns(sessionColumns()),
			table.WithFocused(true),
			table.WithStyles(sessionTableStyles()),
		),
	}
	m.initInputs()
	m.refresh(sessionID)
	if m.report.Snapshot != nil && sessionID != "" {
		m.activeTab = tabReport
	}
	return m
}

// Init implements tea.Model.
func (m *Model) Init() tea.Cmd {
	return nil
}

// Update implements tea.Model.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.updateLayout()
		m.renderReport()
		return m, nil
	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC {
			return m, tea.Quit
		}
		if m.filterMode {
			return m.updateFilter(msg)
		}
		switch msg.String() {
		case "q":
			return m, tea.Quit
		case "left", "h", "right", "l", "tab":
			m.activeTab = 1 - m.activeTab
			return m, tea.ClearScreen
		case "/":
			return m.startFilter()
		case "enter":
			if m.activeTab == tabSessions {
				if row := m.sessions.SelectedRow(); len(row) > 0 {
					m.refresh(row[0])
					m.activeTab = tabReport
				}
			}
			return m, nil
		case "=":
			m.window = nextCurveWindow(m.window)
			m.renderReport()
			return m, nil
		case "-":
			m.window = prevCurveWindow(m.window)
			m.renderReport()
			return m, nil
		case "g", "home":
			if m.activeTab == tabSessions {
				m.sessions.GotoTop()
			} else {
				m.viewport.GotoTop()
			}
			return m, nil
		case "G", "end":
			if m.activeTab == tabSessions {
				m.sessions.GotoBottom()
			} else {
				m.viewport.GotoBottom()
			}
			return m, nil
		}
		var cmd tea.Cmd
		if m.activeTab == tabSessions {
			m.sessions, cmd = m.sessions.Update(msg)
		} else {
			m.viewport, cmd = m.viewport.Update(msg)
		}
		return m, cmd
	}
	return m, nil
}

// View implements tea.Model.
func (m *Model) View() string {
	if m.width == 0 || m.height == 0 {
		return ""
	}
	headerHeight, bodyHeight, footerHeight := m.layoutHeights()
	header := fitLines(m.renderHeader(), m.width, headerHeight)
	body := fitLines(m.renderBody(), m.width, bodyHeight)
	footer := fitLines(m.renderFooter(), m.width, footerHeight)
	return strings.Join([]string{header, body, footer}, "\n")
}

// Selected returns the id of the session shown on the report tab.
func (m *Model) Selected() string {
	return m.selected
}

func (m *Model) refresh(sessionID string) {
	report, err := stats.BuildReport(context.Background(), m.src, m.src, m.filter, sessionID)
	if err != nil {
		m.errMsg = err.Error()
		return
	}
	m.errMsg = ""
	m.report = report
	m.selected = ""
	if report.Snapshot != nil {
		m.selected = report.Snapshot.SessionID
	}
	rows := make([]table.Row, 0, len(report.Sessions))
	cursorAt := 0
	for i, s := range report.Sessions {
		rows = append(rows, table.Row{
			s.SessionID,
			string(s.Tier),
			string(s.Status),
			strconv.Itoa(s.Answered),
			s.StartedAt.Local().Format("2006-01-02 15:04"),
		})
		if s.SessionID == m.selected {
			cursorAt = i
		}
	}
	m.sessions.SetRows(rows)
	m.sessions.SetCursor(cursorAt)
	m.renderReport()
}

func (m *Model) renderReport() {
	if m.report.Snapshot == nil {
		m.viewport.SetContent("No session selected.")
		return
	}
	var buf bytes.Buffer
	err := m.report.Render(&buf, stats.RenderOptions{
		Width:       m.width,
		Height:      plotHeight,
		CurveWindow: m.window,
		Color:       true,
	})
	if err != nil {
		m.errMsg = err.Error()
	}
	m.viewport.SetContent(strings.TrimRight(buf.String(), "\n"))
}

func (m *Model) initInputs() {
	m.filterInputs = []textinput.Model{
		newFilterInput("Status (active/completed): "),
		newFilterInput("Since (YYYY-MM-DD): "),
		newFilterInput("Last: "),
	}
	m.setInputsFromFilter()
}

func newFilterInput(prompt string) textinput.Model {
	input := textinput.New()
	input.Prompt = prompt
	input.CharLimit = 32
	input.Cursor.SetMode(cursor.CursorBlink)
	return input
}

func (m *Model) setInputsFromFilter() {
	m.filterInputs[0].SetValue(string(m.filter.Status))
	if m.filter.Since != nil {
		m.filterInputs[1].SetValue(m.filter.Since.Format("2006-01-02"))
	} else {
		m.filterInputs[1].SetValue("")
	}
	if m.filter.Last > 0 {
		m.filterInputs[2].SetValue(strconv.Itoa(m.filter.Last))
	} else {
		m.filterInputs[2].SetValue("")
	}
}

func (m *Model) startFilter() (tea.Model, tea.Cmd) {
	m.filterMode = true
	m.filterError = ""
	m.setInputsFromFilter()
	return m, m.setFilterIndex(0)
}

func (m *Model) updateFilter(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEsc:
		m.filterMode = false
		m.filterError = ""
		return m, nil
	case tea.KeyEnter:
		if err := m.applyFilter(); err != nil {
			m.filterError = err.Error()
			return m, nil
		}
		m.filterMode = false
		m.filterError = ""
		m.refresh("")
		return m, nil
	case tea.KeyTab:
		return m, m.setFilterIndex(m.filterIndex + 1)
	case tea.KeyShiftTab:
		return m, m.setFilterIndex(m.filterIndex - 1)
	}
	var cmd tea.Cmd
	m.filterInputs[m.filterIndex], cmd = m.filterInputs[m.filterIndex].Update(msg)
	return m, cmd
}

func (m *Model) setFilterIndex(idx int) tea.Cmd {
	count := len(m.filterInputs)
	idx = (idx%count + count) % count
	m.filterIndex = idx
	var cmd tea.Cmd
	for i := range m.filterInputs {
		if i == idx {
			cmd = m.filterInputs[i].Focus()
			continue
		}
		m.filterInputs[i].Blur()
	}
	return cmd
}

// applyFilter parses the form into the listing filter.
func (m *Model) applyFilter() error {
	var next model.ListFilter
	switch status := strings.ToLower(strings.TrimSpace(m.filterInputs[0].Value())); status {
	case "", "any", "all":
	case string(model.StatusActive), string(model.StatusCompleted):
		next.Status = model.SessionStatus(status)
	default:
		return fmt.Errorf("unknown status %q", status)
	}
	if since := strings.TrimSpace(m.filterInputs[1].Value()); since != "" {
		parsed, err := time.ParseInLocation("2006-01-02", since, time.Local)
		if err != nil {
			return fmt.Errorf("invalid since date: %q", since)
		}
		next.Since = &parsed
	}
	if last := strings.TrimSpace(m.filterInputs[2].Value()); last != "" {
		n, err := strconv.Atoi(last)
		if err != nil || n < 0 {
			return fmt.Errorf("last must be a non-negative number")
		}
		next.Last = n
	}
	m.filter = next
	return nil
}

func (m *Model) layoutHeights() (headerHeight, bodyHeight, footerHeight int) {
	tabsHeight := lipgloss.Height(activeNavStyle.Render("X"))
	headerHeight = tabsHeight + 1
	footerHeight = 1
	if !m.filterMode && m.errMsg != "" {
		footerHeight++
	}
	bodyHeight = maxInt(1, m.height-headerHeight-footerHeight)
	return headerHeight, bodyHeight, footerHeight
}

func (m *Model) updateLayout() {
	_, bodyHeight, _ := m.layoutHeights()
	m.viewport.Width = m.width
	m.viewport.Height = bodyHeight
	m.sessions.SetWidth(m.width)
	m.sessions.SetHeight(maxInt(1, bodyHeight-1))
	for i := range m.filterInputs {
		promptWidth := lipgloss.Width(m.filterInputs[i].Prompt)
		m.filterInputs[i].Width = maxInt(10, m.width-promptWidth-2)
	}
}

func (m *Model) renderHeader() string {
	parts := make([]string, 0, len(m.tabs))
	for i, tab := range m.tabs {
		if i == m.activeTab {
			parts = append(parts, activeNavStyle.Render(tab))
		} else {
			parts = append(parts, inactiveNavStyle.Render(tab))
		}
	}
	tabs := lipgloss.JoinHorizontal(lipgloss.Top, parts...)
	return tabs + "\n" + headerStyle.Render(truncateLine(m.filterSummary(), m.width))
}

func (m *Model) filterSummary() string {
	status := "any"
	if m.filter.Status != "" {
		status = string(m.filter.Status)
	}
	since := "any"
	if m.filter.Since != nil {
		since = m.filter.Since.Format("2006-01-02")
	}
	last := "all"
	if m.filter.Last > 0 {
		last = strconv.Itoa(m.filter.Last)
	}
	return fmt.Sprintf("Filter: status=%s  since=%s  last=%s  window=%d", status, since, last, m.window)
}

func (m *Model) renderBody() string {
	if m.filterMode {
		lines := []string{"Filter (enter to apply, esc to cancel)"}
		for _, input := range m.filterInputs {
			lines = append(lines, input.View())
		}
		if m.filterError != "" {
			lines = append(lines, errorStyle.Render(m.filterError))
		}
		return strings.Join(lines, "\n")
	}
	if m.activeTab == tabSessions {
		if len(m.report.Sessions) == 0 {
			return "No sessions found."
		}
		return tableMutedStyle.Render(m.sessions.View())
	}
	return m.viewport.View()
}

func (m *Model) renderFooter() string {
	if m.filterMode {
		return headerStyle.Render("tab/shift+tab: next field  enter: apply  esc: cancel")
	}
	help := "Nav: left/right  Open: enter  Scroll: up/down/pgup/pgdn  Window: -/=  Filter: /  Quit: q"
	if m.errMsg != "" {
		return headerStyle.Render(help) + "\n" + errorStyle.Render(m.errMsg)
	}
	return headerStyle.Render(help)
}

func sessionColumns() []table.Column {
	return []table.Column{
		{Title: "Session", Width: 36},
		{Title: "Tier", Width: 8},
		{Title: "Status", Width: 9},
		{Title: "Answered", Width: 8},
		{Title: "Started", Width: 16},
	}
}

func sessionTableStyles() table.Styles {
	styles := table.DefaultStyles()
	styles.Header = styles.Header.
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(lipgloss.Color("#4A4A4A")).
		BorderBottom(true).
		Bold(true)
	styles.Selected = styles.Selected.
		Foreground(lipgloss.Color("#F0F0F0")).
		Background(lipgloss.Color("#5A4A1A"))
	return styles
}

func nextCurveWindow(n int) int {
	if n < 1 {
		return 1
	}
	return minInt(n+1, 50)
}

func prevCurveWindow(n int) int {
	return maxInt(1, n-1)
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}

func padLine(line string, width int) string {
	lineWidth := lipgloss.Width(line)
	if lineWidth < width {
		return line + strings.Repeat(" ", width-lineWidth)
	}
	return line
}

func fitLines(s string, width, height int) string {
	if width <= 0 || height <= 0 {
		return s
	}
	lines := strings.Split(s, "\n")
	for i, line := range lines {
		lines[i] = padLine(line, width)
	}
	if len(lines) > height {
		lines = lines[:height]
	}
	for len(lines) < height {
		lines = append(lines, strings.Repeat(" ", width))
	}
	return strings.Join(lines, "\n")
}

func truncateLine(s string, width int) string {
	if width <= 0 {
		return s
	}
	runes := []rune(s)
	if len(runes) <= width {
		return s
	}
	if width <= 3 {
		return string(runes[:width])
	}
	return string(runes[:width-3]) + "..."
}

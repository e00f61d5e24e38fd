// Package tui provides the Bubble Tea assessment interface.
package tui

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/progress"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/verte-zerg/neurlyn/internal/assessment"
	"github.com/verte-zerg/neurlyn/internal/model"
	"github.com/verte-zerg/neurlyn/internal/stats"
)

const sliderStep = 5

// Controller is the part of the assessment service the UI drives.
type Controller interface {
	Start(ctx context.Context, in assessment.StartInput) (assessment.StartOutput, error)
	Submit(ctx context.Context, in assessment.SubmitInput) (assessment.SubmitOutput, error)
	Complete(ctx context.Context, id string) (model.Result, error)
}

type phase int

const (
	phaseLoading phase = iota
	phaseQuestion
	phaseDone
)

type option struct {
	label string
	value float64
}

// Model implements the Bubble Tea assessment UI.
type Model struct {
	ctrl  Controller
	start assessment.StartInput
	now   func() time.Time

	width  int
	height int

	phase     phase
	sessionID string
	batch     []model.Question
	progress  model.Progress
	pathways  []model.PathwayID
	notice    string
	err       error

	cursor   int
	slider   float64
	shownAt  time.Time
	behavior model.Behavior
	moved    bool

	result *model.Result

	bar  progress.Model
	help help.Model
	keys keyMap
}

type keyMap struct {
	Up     key.Binding
	Down   key.Binding
	Left   key.Binding
	Right  key.Binding
	Submit key.Binding
	Finish key.Binding
	Quit   key.Binding
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Up, k.Down, k.Submit, k.Finish, k.Quit}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{{k.Up, k.Down, k.Left, k.Right}, {k.Submit, k.Finish, k.Quit}}
}

func defaultKeyMap() keyMap {
	return keyMap{
		Up:     key.NewBinding(key.WithKeys("up", "k"), key.WithHelp("↑/k", "up")),
		Down:   key.NewBinding(key.WithKeys("down", "j"), key.WithHelp("↓/j", "down")),
		Left:   key.NewBinding(key.WithKeys("left", "h"), key.WithHelp("←/h", "less")),
		Right:  key.NewBinding(key.WithKeys("right", "l"), key.WithHelp("→/l", "more")),
		Submit: key.NewBinding(key.WithKeys("enter", " "), key.WithHelp("enter", "answer")),
		Finish: key.NewBinding(key.WithKeys("ctrl+f"), key.WithHelp("ctrl+f", "finish early")),
		Quit:   key.NewBinding(key.WithKeys("ctrl+c", "esc"), key.WithHelp("esc", "quit")),
	}
}

var (
	promptStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#F0F0F0")).Bold(true)
	selectedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#C89A3A"))
	pendingStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#8C8C8C"))
	noticeStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#5FAFD7"))
	errorStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF4D4F"))
	footerStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#6E6E6E"))
)

var likertLabels = []string{"Strongly disagree", "Disagree", "Neutral", "Agree", "Strongly agree"}

type startedMsg struct {
	out assessment.StartOutput
}

type submittedMsg struct {
	out assessment.SubmitOutput
}

type completedMsg struct {
	result model.Result
}

type errMsg struct {
	err error
}

// NewModel constructs an assessment TUI model. The session is started when
// the program runs.
func NewModel(ctrl Controller, in assessment.StartInput) *Model {
	return &Model{
		ctrl:  ctrl,
		start: in,
		now:   time.Now,
		phase: phaseLoading,
		bar:   progress.New(progress.WithDefaultGradient(), progress.WithoutPercentage()),
		help:  help.New(),
		keys:  defaultKeyMap(),
	}
}

// Result returns the completion result once the session finished.
func (m *Model) Result() *model.Result {
	return m.result
}

// SessionID returns the id of the running session.
func (m *Model) SessionID() string {
	return m.sessionID
}

// Err returns the error that stopped the session, if any.
func (m *Model) Err() error {
	return m.err
}

// Init implements tea.Model.
func (m *Model) Init() tea.Cmd {
	ctrl, in := m.ctrl, m.start
	return func() tea.Msg {
		out, err := ctrl.Start(context.Background(), in)
		if err != nil {
			return errMsg{err: err}
		}
		return startedMsg{out: out}
	}
}

// Update implements tea.Model.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.bar.Width = contentWidth(msg.Width)
		return m, nil
	case startedMsg:
		m.sessionID = msg.out.SessionID
		m.progress = msg.out.Progress
		m.pathways = msg.out.Activated
		m.showBatch(msg.out.Batch)
		return m, nil
	case submittedMsg:
		m.progress = msg.out.Progress
		m.pathways = msg.out.Activated
		m.notice = pathwayNotice(msg.out.NewlyActivated)
		if msg.out.Complete {
			return m, m.completeCmd()
		}
		m.showBatch(msg.out.Batch)
		return m, nil
	case completedMsg:
		m.result = &msg.result
		m.phase = phaseDone
		return m, nil
	case errMsg:
		m.err = msg.err
		return m, tea.Quit
	case tea.KeyMsg:
		return m.handleKey(msg)
	default:
		return m, nil
	}
}

func (m *Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if key.Matches(msg, m.keys.Quit) {
		return m, tea.Quit
	}
	switch m.phase {
	case phaseDone:
		if key.Matches(msg, m.keys.Submit) {
			return m, tea.Quit
		}
		return m, nil
	case phaseQuestion:
	default:
		return m, nil
	}

	m.behavior.Keystrokes++
	q := m.current()
	switch {
	case key.Matches(msg, m.keys.Finish):
		return m, m.completeCmd()
	case key.Matches(msg, m.keys.Submit):
		return m, m.submitCmd(q)
	case q.Type == model.ResponseSlider && key.Matches(msg, m.keys.Left, m.keys.Down):
		m.moveSlider(q, -sliderStep)
	case q.Type == model.ResponseSlider && key.Matches(msg, m.keys.Right, m.keys.Up):
		m.moveSlider(q, sliderStep)
	case key.Matches(msg, m.keys.Up, m.keys.Left):
		m.moveCursor(-1)
	case key.Matches(msg, m.keys.Down, m.keys.Right):
		m.moveCursor(1)
	case msg.Type == tea.KeyRunes && len(msg.Runes) == 1 && msg.Runes[0] >= '1' && msg.Runes[0] <= '9':
		idx := int(msg.Runes[0] - '1')
		if idx < len(optionsFor(q)) {
			m.setCursor(idx)
			return m, m.submitCmd(q)
		}
	}
	return m, nil
}

// View implements tea.Model.
func (m *Model) View() string {
	var body string
	switch m.phase {
	case phaseLoading:
		body = pendingStyle.Render("Starting assessment...")
	case phaseDone:
		body = m.renderResult()
	default:
		body = m.renderQuestion()
	}
	if m.width == 0 || m.height == 0 {
		return body + "\n" + m.renderFooter()
	}
	width := contentWidth(m.width)
	content := lipgloss.NewStyle().Width(width).Render(body)
	footer := m.renderFooter()
	if m.height < 4 {
		return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, content)
	}
	bodyHeight := m.height - 2
	top := lipgloss.Place(m.width, bodyHeight, lipgloss.Center, lipgloss.Center, content)
	bottom := lipgloss.Place(m.width, 2, lipgloss.Center, lipgloss.Bottom, footer)
	return top + "\n" + bottom
}

func (m *Model) renderQuestion() string {
	q := m.current()
	width := contentWidth(m.width)
	var b strings.Builder
	b.WriteString(m.bar.ViewAs(m.progress.Percent / 100))
	b.WriteString("\n\n")
	b.WriteString(promptStyle.Render(wrapText(q.Text, width)))
	b.WriteString("\n\n")
	if q.Type == model.ResponseSlider {
		b.WriteString(renderSlider(m.slider, q.ScaleMin, q.ScaleMax, width))
	} else {
		for i, opt := range optionsFor(q) {
			line := fmt.Sprintf("%d. %s", i+1, opt.label)
			if i == m.cursor {
				b.WriteString(selectedStyle.Render("› " + line))
			} else {
				b.WriteString(pendingStyle.Render("  " + line))
			}
			b.WriteString("\n")
		}
	}
	if m.notice != "" {
		b.WriteString("\n")
		b.WriteString(noticeStyle.Render(m.notice))
	}
	if m.err != nil {
		b.WriteString("\n")
		b.WriteString(errorStyle.Render(m.err.Error()))
	}
	return b.String()
}

func (m *Model) renderResult() string {
	if m.result == nil {
		return ""
	}
	var b strings.Builder
	if err := stats.RenderSummary(&b, *m.result, m.progress.Answered); err != nil {
		return err.Error()
	}
	if err := stats.RenderTraitTable(&b, m.result.Scores, nil); err != nil {
		return err.Error()
	}
	b.WriteString(pendingStyle.Render("Press enter to exit."))
	return b.String()
}

func (m *Model) renderFooter() string {
	segments := []string{fmt.Sprintf("Question %d/%d", m.progress.Answered+1, m.progress.Total)}
	if m.phase == phaseDone {
		segments[0] = fmt.Sprintf("Answered %d/%d", m.progress.Answered, m.progress.Total)
	}
	if len(m.pathways) > 0 {
		names := make([]string, len(m.pathways))
		for i, id := range m.pathways {
			names[i] = strings.TrimSuffix(string(id), "_pathway")
		}
		segments = append(segments, "Pathways "+strings.Join(names, ", "))
	}
	footer := footerStyle.Render(strings.Join(segments, "  "))
	if m.phase != phaseQuestion {
		return footer
	}
	return footer + "\n" + m.help.View(m.keys)
}

func (m *Model) showBatch(batch []model.Question) {
	m.batch = batch
	m.phase = phaseQuestion
	if len(batch) == 0 {
		m.phase = phaseLoading
		return
	}
	m.resetQuestion()
}

func (m *Model) resetQuestion() {
	q := m.current()
	opts := optionsFor(q)
	m.cursor = len(opts) / 2
	m.slider = math.Round((q.ScaleMin + q.ScaleMax) / 2)
	m.behavior = model.Behavior{}
	m.moved = false
	m.shownAt = m.now()
}

func (m *Model) current() model.Question {
	if len(m.batch) == 0 {
		return model.Question{}
	}
	return m.batch[0]
}

func (m *Model) moveCursor(delta int) {
	opts := optionsFor(m.current())
	if len(opts) == 0 {
		return
	}
	next := m.cursor + delta
	if next < 0 || next >= len(opts) {
		return
	}
	m.setCursor(next)
}

func (m *Model) setCursor(idx int) {
	if idx == m.cursor {
		return
	}
	if m.moved {
		m.behavior.Revisions++
	}
	m.moved = true
	m.cursor = idx
}

func (m *Model) moveSlider(q model.Question, delta float64) {
	next := math.Max(q.ScaleMin, math.Min(q.ScaleMax, m.slider+delta))
	if next == m.slider {
		return
	}
	if m.moved {
		m.behavior.Revisions++
	}
	m.moved = true
	m.slider = next
}

func (m *Model) selectedValue(q model.Question) float64 {
	if q.Type == model.ResponseSlider {
		return m.slider
	}
	opts := optionsFor(q)
	if m.cursor < 0 || m.cursor >= len(opts) {
		return q.ScaleMin
	}
	return opts[m.cursor].value
}

func (m *Model) submitCmd(q model.Question) tea.Cmd {
	value := m.selectedValue(q)
	in := assessment.SubmitInput{
		SessionID:  m.sessionID,
		QuestionID: q.ID,
		Value:      &value,
		LatencyMs:  m.now().Sub(m.shownAt).Milliseconds(),
		Behavior:   &model.Behavior{Keystrokes: m.behavior.Keystrokes, Revisions: m.behavior.Revisions},
	}
	ctrl := m.ctrl
	return func() tea.Msg {
		out, err := ctrl.Submit(context.Background(), in)
		if err != nil {
			return errMsg{err: err}
		}
		return submittedMsg{out: out}
	}
}

func (m *Model) completeCmd() tea.Cmd {
	ctrl, id := m.ctrl, m.sessionID
	return func() tea.Msg {
		result, err := ctrl.Complete(context.Background(), id)
		if err != nil {
			return errMsg{err: err}
		}
		return completedMsg{result: result}
	}
}

func optionsFor(q model.Question) []option {
	switch q.Type {
	case model.ResponseChoice:
		opts := make([]option, len(q.Choices))
		for i, c := range q.Choices {
			opts[i] = option{label: c.Label, value: c.Value}
		}
		return opts
	case model.ResponseSlider:
		return nil
	}
	if q.ScaleMin == 1 && q.ScaleMax == float64(len(likertLabels)) {
		opts := make([]option, len(likertLabels))
		for i, label := range likertLabels {
			opts[i] = option{label: label, value: float64(i + 1)}
		}
		return opts
	}
	var opts []option
	for v := q.ScaleMin; v <= q.ScaleMax; v++ {
		opts = append(opts, option{label: fmt.Sprintf("%g", v), value: v})
	}
	return opts
}

func pathwayNotice(ids []model.PathwayID) string {
	if len(ids) == 0 {
		return ""
	}
	labels := make([]string, 0, len(ids))
	for _, id := range ids {
		if def, ok := model.LookupPathway(id); ok {
			labels = append(labels, def.Label)
		}
	}
	return fmt.Sprintf("Follow-up questions added: %s", strings.Join(labels, ", "))
}

func contentWidth(total int) int {
	width := int(float64(total) * 0.70)
	if width < 20 {
		width = 20
	}
	return width
}

// Package tui is the terminal front-end of the coach: the breathing screen
// and the anchor picker. Every key that changes state goes through
// session.Service.Apply.
package tui

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/progress"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/danielpatrickdp/calmbridge/internal/coach"
	"github.com/danielpatrickdp/calmbridge/internal/script"
	"github.com/danielpatrickdp/calmbridge/internal/session"
	"github.com/danielpatrickdp/calmbridge/internal/signals"
)

const (
	tickInterval = 50 * time.Millisecond
	calmnessStep = 5
	circleRadius = 6
	defaultWidth = 72
)

type screen int

const (
	screenCoach screen = iota
	screenPicker
)

type tickMsg time.Time

// Model is the root bubbletea model.
type Model struct {
	ctx      context.Context
	sessions *session.Service
	view     session.View

	screen  screen
	cursor  int
	elapsed time.Duration
	width   int
	err     error

	calmBar progress.Model
	styles  Styles
}

// New creates a model over an already started session.
func New(ctx context.Context, sessions *session.Service, view session.View) Model {
	bar := progress.New(progress.WithDefaultGradient(), progress.WithoutPercentage())
	bar.Width = defaultWidth - 20
	return Model{
		ctx:      ctx,
		sessions: sessions,
		view:     view,
		width:    defaultWidth,
		calmBar:  bar,
		styles:   DefaultStyles(),
	}
}

// Run starts a full-screen program and blocks until the user quits.
func Run(ctx context.Context, sessions *session.Service, view session.View) error {
	p := tea.NewProgram(New(ctx, sessions, view), tea.WithAltScreen(), tea.WithContext(ctx))
	_, err := p.Run()
	return err
}

// Session returns the session view the model is showing.
func (m Model) Session() session.View {
	return m.view
}

// Init starts the breathing animation.
func (m Model) Init() tea.Cmd {
	return tick()
}

func tick() tea.Cmd {
	return tea.Tick(tickInterval, func(t time.Time) tea.Msg { return tickMsg(t) })
}

// #region update

// Update handles messages.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tickMsg:
		m.elapsed += tickInterval
		return m, tick()
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.calmBar.Width = max(10, msg.Width-20)
		return m, nil
	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			return m, tea.Quit
		}
		if m.screen == screenPicker {
			return m.updatePicker(msg)
		}
		return m.updateCoach(msg)
	}
	return m, nil
}

func (m Model) updateCoach(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	calm := m.view.State.Calmness
	switch msg.String() {
	case "q", "esc":
		return m, tea.Quit
	case "left", "h":
		m.apply(coach.SetCalmness(calm-calmnessStep, signals.SourceSlider))
	case "right", "l":
		m.apply(coach.SetCalmness(calm+calmnessStep, signals.SourceSlider))
	case "d":
		m.apply(coach.SetStep(script.StepDrill))
	case "i":
		m.apply(coach.SetStep(script.StepInjection))
	case "r":
		m.apply(coach.SetStep(script.StepIdle))
	case "v":
		m.apply(coach.Action{Type: coach.ActionToggleVoice})
	case "-":
		m.apply(coach.Action{Type: coach.ActionVoiceSlower})
	case "+", "=":
		m.apply(coach.Action{Type: coach.ActionVoiceFaster})
	case "u":
		m.undo()
	case "a", "enter":
		m.screen = screenPicker
		m.cursor = 0
		m.err = nil
	}
	return m, nil
}

func (m Model) updatePicker(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	vocab := m.vocabulary()
	switch msg.String() {
	case "up", "k":
		if m.cursor > 0 {
			m.cursor--
		}
	case "down", "j":
		if m.cursor < len(vocab)-1 {
			m.cursor++
		}
	case "enter", " ":
		if len(vocab) > 0 {
			m.apply(coach.PickAnchor(vocab[m.cursor].Key))
		}
		m.screen = screenCoach
	case "c":
		m.apply(coach.Action{Type: coach.ActionClearAnchor})
		m.screen = screenCoach
	case "esc", "q":
		m.screen = screenCoach
	}
	return m, nil
}

func (m *Model) apply(a coach.Action) {
	view, err := m.sessions.Apply(m.ctx, m.view.SessionID, a)
	m.err = err
	if err == nil {
		m.view = view
	}
}

func (m *Model) undo() {
	view, err := m.sessions.Undo(m.ctx, m.view.SessionID)
	m.err = err
	if err == nil {
		m.view = view
	}
}

func (m Model) vocabulary() []script.Anchor {
	lib := m.sessions.Pipeline().Library(m.view.State.Language)
	if lib == nil {
		return nil
	}
	return lib.Vocabulary
}

// #endregion update

// #region view

// View renders the active screen.
func (m Model) View() string {
	if m.screen == screenPicker {
		return m.pickerView()
	}
	return m.coachView()
}

func (m Model) coachView() string {
	f := m.view.Frame
	var b strings.Builder

	badge := m.styles.Status[f.Status].Render(f.StatusLabel)
	header := lipgloss.JoinHorizontal(lipgloss.Center,
		m.styles.Title.Render("CalmBridge"), "  ", badge, "  ",
		m.styles.Muted.Render("step "+string(f.Step)),
	)
	b.WriteString(header + "\n\n")

	cue := "Breathe out..."
	if f.Breathing.Inhaling(m.elapsed) {
		cue = "Breathe in..."
	}
	circle := m.styles.Circle.Render(renderCircle(f.Breathing.ScaleAt(m.elapsed), circleRadius))
	b.WriteString(lipgloss.PlaceHorizontal(m.width, lipgloss.Center, circle) + "\n")
	b.WriteString(lipgloss.PlaceHorizontal(m.width, lipgloss.Center, m.styles.Muted.Render(cue)) + "\n")

	b.WriteString(m.styles.Script.Width(m.width).Render(f.Text) + "\n")

	b.WriteString(fmt.Sprintf("calmness %3d  %s\n", f.Calmness, m.calmBar.ViewAs(float64(f.Calmness)/100)))

	voice := "voice off"
	if u := f.Utterance; u != nil {
		voice = fmt.Sprintf("voice on  rate %.2f  %s", u.Rate, u.Language)
	}
	b.WriteString(m.styles.Muted.Render(voice) + "\n")

	for _, w := range f.Warnings {
		b.WriteString(m.styles.Error.Render("! "+w) + "\n")
	}
	if m.err != nil {
		b.WriteString(m.styles.Error.Render(m.err.Error()) + "\n")
	}

	b.WriteString("\n" + m.styles.Muted.Render("←/→ calmness  d drill  i injection  r reset  a anchor  v voice  -/+ rate  u undo  q quit"))
	return b.String()
}

func (m Model) pickerView() string {
	var b strings.Builder
	b.WriteString(m.styles.Title.Render("Pick something you love") + "\n\n")

	for i, a := range m.vocabulary() {
		line := fmt.Sprintf("%s  %s", a.Emoji, a.Label)
		prefix := "  "
		if a.Key == m.view.State.AnchorKey {
			line += "  ✓"
		}
		if i == m.cursor {
			prefix = "> "
			line = m.styles.Selected.Render(line)
		}
		b.WriteString(prefix + line + "\n")
	}

	b.WriteString("\n" + m.styles.Muted.Render("↑/↓ move  enter pick  c clear  esc back"))
	return b.String()
}

// renderCircle draws a filled disc whose radius is scale*radius rows.
func renderCircle(scale float64, radius int) string {
	r := scale * float64(radius)
	rows := make([]string, 0, 2*radius+1)
	for y := -radius; y <= radius; y++ {
		half := 0
		if d := r*r - float64(y*y); d > 0 {
			// terminal cells are about twice as tall as wide
			half = int(math.Round(math.Sqrt(d) * 2))
		}
		pad := strings.Repeat(" ", 2*radius-half)
		rows = append(rows, pad+strings.Repeat("●", half*2)+pad)
	}
	return strings.Join(rows, "\n")
}

// #endregion view

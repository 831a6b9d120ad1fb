package main

import (
	"fmt"
	"io"
	"log"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/olivier-w/djstage/internal/player"
	"github.com/olivier-w/djstage/internal/queue"
	"github.com/olivier-w/djstage/internal/ui"
)

type startupPhase uint8

const (
	phaseGate startupPhase = iota
	phaseOpening
)

type startupResolvedMsg struct {
	handle player.Handle
	err    error
}

// startupModel is the overlay shown before the stage. Entering the stage is
// the gesture that starts the audio context.
type startupModel struct {
	cfg     ui.Config
	phase   startupPhase
	errMsg  string
	width   int
	height  int
	spinner spinner.Model
}

func newStartupModel(cfg ui.Config) startupModel {
	if cfg.Queue == nil {
		cfg.Queue = queue.New(nil)
	}
	if cfg.Logger == nil {
		cfg.Logger = log.New(io.Discard, "", 0)
	}
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("#3ce074"))

	return startupModel{
		cfg:     cfg,
		phase:   phaseGate,
		spinner: s,
	}
}

func (m startupModel) Init() tea.Cmd {
	return tea.SetWindowTitle("djstage")
}

func (m startupModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		if m.phase == phaseOpening {
			return m, cmd
		}
		return m, nil

	case startupResolvedMsg:
		if m.phase != phaseOpening {
			return m, nil
		}
		if msg.err != nil {
			m.cfg.Logger.Printf("startup: opening track: %v", msg.err)
			m.cfg.Queue.SetTrackState(m.cfg.Queue.CurrentIndex(), queue.Failed)
			m.cfg.Queue.Advance()
			m.phase = phaseGate
			m.errMsg = msg.err.Error()
			return m, nil
		}
		return m.handOff(msg.handle)

	case tea.KeyMsg:
		if startupIsQuit(msg) {
			return m, tea.Sequence(tea.SetWindowTitle(""), tea.Quit)
		}
		if m.phase == phaseGate && (msg.String() == "enter" || msg.String() == " ") {
			return m.enter()
		}
	}
	return m, nil
}

// enter builds and resumes the audio graph, then opens the current track.
// Audio failures are not fatal: the stage runs on the simulated signal.
func (m startupModel) enter() (tea.Model, tea.Cmd) {
	if err := m.cfg.Session.Initialize(); err != nil {
		m.cfg.Logger.Printf("startup: %v", err)
	} else if err := m.cfg.Session.Resume(); err != nil {
		m.cfg.Logger.Printf("startup: %v", err)
	}

	t := m.cfg.Queue.Current()
	if t == nil || t.State == queue.Failed || m.cfg.Open == nil {
		return m.handOff(nil)
	}
	m.phase = phaseOpening
	m.errMsg = ""
	return m, tea.Batch(m.spinner.Tick, openTrackCmd(m.cfg.Open, *t))
}

func (m startupModel) handOff(h player.Handle) (tea.Model, tea.Cmd) {
	model := ui.New(m.cfg, h)
	cmds := []tea.Cmd{model.Init()}
	if m.width > 0 || m.height > 0 {
		w, hgt := m.width, m.height
		cmds = append(cmds, func() tea.Msg {
			return tea.WindowSizeMsg{Width: w, Height: hgt}
		})
	}
	return model, tea.Batch(cmds...)
}

func (m startupModel) View() string {
	var b strings.Builder
	b.WriteString("\n  ")
	b.WriteString(startupHeaderStyle.Render("DJSTAGE"))
	b.WriteString("\n\n")

	if m.errMsg != "" {
		b.WriteString("  ")
		b.WriteString(startupErrorStyle.Render(m.errMsg))
		b.WriteString("\n\n")
	}

	switch m.phase {
	case phaseOpening:
		label := "Opening..."
		if t := m.cfg.Queue.Current(); t != nil {
			label = "Opening " + t.Title + "..."
		}
		b.WriteString("  ")
		b.WriteString(m.spinner.View())
		b.WriteString(" ")
		b.WriteString(startupStatusStyle.Render(label))
		b.WriteString("\n")
	default:
		b.WriteString("  ")
		b.WriteString(startupGateStyle.Render("[ ENTER THE STAGE ]"))
		b.WriteString("\n\n  ")
		b.WriteString(startupStatusStyle.Render(m.deckLine()))
		b.WriteString("\n")
	}

	b.WriteString("\n  ")
	b.WriteString(startupHelpStyle.Render("enter start  q quit"))
	b.WriteString("\n")

	if m.width <= 0 || m.height <= 0 {
		return b.String()
	}
	return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, b.String())
}

func (m startupModel) deckLine() string {
	switch n := m.cfg.Queue.Len(); n {
	case 0:
		return "no tracks: simulated signal"
	case 1:
		return "1 track on deck"
	default:
		return fmt.Sprintf("%d tracks on deck", n)
	}
}

func startupIsQuit(msg tea.KeyMsg) bool {
	switch msg.String() {
	case "q", "esc", "ctrl+c":
		return true
	}
	return false
}

var (
	startupHeaderStyle = lipgloss.NewStyle().
				Bold(true).
				Foreground(lipgloss.Color("#3ce074"))
	startupGateStyle = lipgloss.NewStyle().
				Bold(true).
				Padding(0, 2).
				Foreground(lipgloss.Color("#000000")).
				Background(lipgloss.Color("#3ce074"))
	startupStatusStyle = lipgloss.NewStyle().
				Foreground(lipgloss.AdaptiveColor{Light: "#555555", Dark: "#BBBBBB"})
	startupHelpStyle = lipgloss.NewStyle().
				Foreground(lipgloss.AdaptiveColor{Light: "#999999", Dark: "#666666"})
	startupErrorStyle = lipgloss.NewStyle().
				Foreground(lipgloss.AdaptiveColor{Light: "#A00000", Dark: "#FF8080"})
)

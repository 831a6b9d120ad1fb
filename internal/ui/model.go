package ui

import (
	"context"
	"fmt"
	"io"
	"log"
	"math/rand"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/progress"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/olivier-w/djstage/internal/analysis"
	"github.com/olivier-w/djstage/internal/player"
	"github.com/olivier-w/djstage/internal/queue"
	"github.com/olivier-w/djstage/internal/stage"
	"github.com/olivier-w/djstage/internal/util"
	"github.com/olivier-w/djstage/internal/visualizer"
)

const (
	volumeStep  = 0.05
	seekStep    = 5 * time.Second
	consoleSize = 3
)

// seeker is implemented by handles that support seeking.
type seeker interface {
	Seek(delta time.Duration) error
}

// Config wires the view to the rest of the stage.
type Config struct {
	Session *analysis.Session
	Driver  *stage.Driver
	Frames  *Frames
	Queue   *queue.Queue
	Open    Opener
	FPS     int
	Volume  float64
	// ForceSimulation keeps the simulated signal even when a tap exists.
	ForceSimulation bool
	Rand            *rand.Rand
	Logger          *log.Logger
}

// Model is the Bubbletea model for the stage.
type Model struct {
	session  *analysis.Session
	driver   *stage.Driver
	frames   *Frames
	queue    *queue.Queue
	open     Opener
	forceSim bool
	rng      *rand.Rand
	logger   *log.Logger

	handle   player.Handle
	loading  bool
	frame    stage.Frame
	vizs     []visualizer.Visualizer
	vizIdx   int
	progress progress.Model
	console  []string
	status   analysis.Status

	elapsed  time.Duration
	duration time.Duration
	volume   float64
	paused   bool
	width    int
	height   int
	quitting bool
}

// New creates the stage view. h is the already opened handle for the
// current deck track, or nil to open it on Init.
func New(cfg Config, h player.Handle) Model {
	if cfg.Logger == nil {
		cfg.Logger = log.New(io.Discard, "", 0)
	}
	if cfg.Rand == nil {
		cfg.Rand = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	if cfg.Volume <= 0 {
		cfg.Volume = 0.8
	}
	if cfg.Queue == nil {
		cfg.Queue = queue.New(nil)
	}
	m := Model{
		session:  cfg.Session,
		driver:   cfg.Driver,
		frames:   cfg.Frames,
		queue:    cfg.Queue,
		open:     cfg.Open,
		forceSim: cfg.ForceSimulation,
		rng:      cfg.Rand,
		logger:   cfg.Logger,
		vizs:     visualizer.Modes(cfg.FPS),
		progress: progress.New(
			progress.WithScaledGradient("#1f6f3a", "#3ce074"),
			progress.WithoutPercentage(),
		),
		volume: cfg.Volume,
		paused: true,
		handle: h,
	}
	m.log("SYSTEM READY")
	return m
}

func (m Model) Init() tea.Cmd {
	cmds := []tea.Cmd{tickCmd(), tea.SetWindowTitle("djstage")}
	if m.frames != nil {
		cmds = append(cmds, m.frames.wait())
	}
	if m.handle != nil {
		cmds = append(cmds, func() tea.Msg {
			return trackLoadedMsg{index: m.queue.CurrentIndex(), handle: m.handle}
		})
	} else if t := m.queue.Current(); t != nil && t.State != queue.Failed {
		cmds = append(cmds, m.loadTrack(m.queue.CurrentIndex(), *t))
	}
	return tea.Batch(cmds...)
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	return m.handleMsg(msg)
}

func (m Model) handleMsg(msg tea.Msg) (Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)

	case frameMsg:
		m.frame = stage.Frame(msg)
		m.viz().Update(m.frame, m.vizWidth(), m.vizHeight())
		if m.frames == nil {
			return m, nil
		}
		return m, m.frames.wait()

	case trackLoadedMsg:
		return m.handleLoaded(msg)

	case playbackEndedMsg:
		if msg.handle != m.handle {
			return m, nil
		}
		if err := msg.handle.Err(); err != nil {
			m.logger.Printf("ui: playback error: %v", err)
			m.log("PLAYER ERROR: SIMULATING")
			m.session.SetSimulationMode(true)
			m.queue.SetTrackState(m.queue.CurrentIndex(), queue.Failed)
		} else {
			m.queue.SetTrackState(m.queue.CurrentIndex(), queue.Done)
		}
		if m.queue.Advance() {
			return m.switchTrack()
		}
		m.release()
		m.elapsed = m.duration
		m.log("DECK EMPTY")
		return m, nil

	case tickMsg:
		if m.handle != nil {
			m.elapsed = m.handle.Position()
			m.volume = m.handle.Volume()
			m.paused = m.handle.Paused()
		}
		if m.session != nil {
			m.status = m.session.Status()
		}
		return m, tickCmd()

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.progress.Width = max(msg.Width-20, 10)
		return m, nil
	}
	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (Model, tea.Cmd) {
	if isQuit(msg) {
		m.quitting = true
		m.teardown()
		return m, tea.Sequence(tea.SetWindowTitle(""), tea.Quit)
	}

	switch msg.String() {
	case " ":
		// Every play press doubles as a resume gesture.
		if err := m.session.Resume(); err != nil {
			m.logger.Printf("ui: %v", err)
			m.log("AUDIO LOCKED: SIMULATING")
		}
		if m.handle != nil {
			m.handle.TogglePause()
			m.paused = m.handle.Paused()
			if !m.paused {
				m.log("PLAYBACK ACTIVE")
			}
		}
	case "s":
		on := !m.session.Status().Simulation
		m.forceSim = on
		m.session.SetSimulationMode(on)
		if on {
			m.log("SIMULATION ON")
		} else {
			m.log("SIMULATION OFF")
		}
	case "+", "=", "up":
		m.adjustVolume(volumeStep)
	case "-", "down":
		m.adjustVolume(-volumeStep)
	case "left", "h":
		m.seek(-seekStep)
	case "right", "l":
		m.seek(seekStep)
	case "v":
		m.vizIdx = (m.vizIdx + 1) % len(m.vizs)
	case "n":
		if !m.loading && m.queue.Advance() {
			return m.switchTrack()
		}
	case "p":
		if !m.loading && m.queue.Previous() {
			return m.switchTrack()
		}
	case "z":
		if m.queue.IsShuffled() {
			m.queue.Unshuffle()
			m.log("SHUFFLE OFF")
		} else if m.queue.Len() > 1 {
			m.queue.Shuffle(m.rng)
			m.log("SHUFFLE ON")
		}
	}
	if m.session != nil {
		m.status = m.session.Status()
	}
	return m, nil
}

func (m *Model) adjustVolume(delta float64) {
	m.volume = min(max(m.volume+delta, 0), 1)
	if m.handle != nil {
		m.handle.SetVolume(m.volume)
	}
}

func (m *Model) seek(delta time.Duration) {
	s, ok := m.handle.(seeker)
	if !ok {
		return
	}
	if err := s.Seek(delta); err != nil {
		m.logger.Printf("ui: seek: %v", err)
	}
	m.elapsed = m.handle.Position()
}

// switchTrack releases the current handle and opens the queue's current
// track.
func (m Model) switchTrack() (Model, tea.Cmd) {
	m.release()
	t := m.queue.Current()
	if t == nil {
		return m, nil
	}
	m.loading = true
	m.elapsed, m.duration = 0, 0
	m.queue.SetTrackState(m.queue.CurrentIndex(), queue.Loading)
	return m, m.loadTrack(m.queue.CurrentIndex(), *t)
}

func (m Model) loadTrack(index int, t queue.Track) tea.Cmd {
	open := m.open
	return func() tea.Msg {
		if open == nil {
			return trackLoadedMsg{index: index, err: fmt.Errorf("no opener configured")}
		}
		h, err := open(context.Background(), t)
		return trackLoadedMsg{index: index, handle: h, err: err}
	}
}

// handleLoaded is the player-ready hook: tappable handles feed the analyser,
// opaque ones leave the stage on the simulated signal.
func (m Model) handleLoaded(msg trackLoadedMsg) (Model, tea.Cmd) {
	if msg.index != m.queue.CurrentIndex() {
		// The user moved on while this track was opening.
		if msg.handle != nil && msg.handle != m.handle {
			msg.handle.Close()
		}
		return m, nil
	}
	m.loading = false
	if msg.err != nil {
		m.logger.Printf("ui: opening track: %v", msg.err)
		m.queue.SetTrackState(msg.index, queue.Failed)
		m.session.SetSimulationMode(true)
		m.log("LOAD FAILED: SIMULATING")
		return m, nil
	}

	h := msg.handle
	m.handle = h
	m.queue.SetTrackTitle(msg.index, h.Name())
	m.queue.SetTrackDuration(msg.index, h.Duration())
	m.queue.SetTrackState(msg.index, queue.Playing)
	m.duration = h.Duration()
	m.log("TRACK LOADED: " + strings.ToUpper(h.Name()))

	if _, ok := h.(analysis.Tappable); ok {
		if err := m.session.SwitchSource(h); err != nil {
			m.logger.Printf("ui: %v", err)
			m.session.SetSimulationMode(true)
			m.log("TAP FAILED: SIMULATING")
		} else {
			m.session.SetSimulationMode(m.forceSim)
			m.log("ANALYSER CONNECTED")
		}
	} else {
		m.session.DisconnectSource()
		m.session.SetSimulationMode(true)
		m.log("EMBEDDED PLAYER: SIMULATED SIGNAL")
	}

	h.SetVolume(m.volume)
	h.Play()
	m.paused = h.Paused()
	if !m.paused {
		m.log("PLAYBACK ACTIVE")
	}
	m.status = m.session.Status()
	return m, waitDone(h)
}

// release disconnects the tap before closing the handle it points at.
func (m *Model) release() {
	if m.handle == nil {
		return
	}
	m.session.DisconnectSource()
	m.handle.Close()
	m.handle = nil
}

func (m *Model) teardown() {
	if m.driver != nil {
		m.driver.Stop()
	}
	if m.handle != nil {
		m.handle.Close()
		m.handle = nil
	}
	if m.session != nil {
		if err := m.session.Close(); err != nil {
			m.logger.Printf("ui: closing session: %v", err)
		}
	}
}

func (m *Model) log(line string) {
	m.console = append(m.console, "> "+line)
	if len(m.console) > consoleSize {
		m.console = m.console[len(m.console)-consoleSize:]
	}
}

func (m Model) viz() visualizer.Visualizer {
	return m.vizs[m.vizIdx]
}

func (m Model) vizWidth() int {
	if m.width < 30 {
		return 60
	}
	return m.width - 4
}

func (m Model) vizHeight() int {
	// header, title, progress, status, console, help and spacing
	h := m.height - 10 - consoleSize
	if h < 6 {
		return 9
	}
	return h
}

func (m Model) View() string {
	if m.quitting {
		return ""
	}

	badge := simBadge.Render("SIM")
	if m.status.Mode == analysis.ModeReal {
		badge = liveBadge.Render("LIVE")
	}
	header := fmt.Sprintf("%s  %s  %s", headerStyle.Render("DJSTAGE"), badge,
		statusStyle.Render(fmt.Sprintf("audio %s · tap %s · %s", m.status.Context, m.status.Connection, m.viz().Name())))

	title := "no track"
	if m.loading {
		title = "loading..."
	}
	if t := m.queue.Current(); t != nil && !m.loading {
		title = t.Title
		if m.queue.Len() > 1 {
			title = fmt.Sprintf("%s  [%d/%d]", title, m.queue.Position()+1, m.queue.Len())
		}
	}

	ratio := 0.0
	if m.duration > 0 {
		ratio = min(m.elapsed.Seconds()/m.duration.Seconds(), 1)
	}
	progressLine := fmt.Sprintf("%s %s %s",
		timeStyle.Render(util.FormatDuration(m.elapsed)),
		m.progress.ViewAs(ratio),
		timeStyle.Render(util.FormatLength(m.duration)))

	statusIcon, statusText := "▶", "playing"
	if m.paused {
		statusIcon, statusText = "❚❚", "paused"
	}
	statusLine := statusStyle.Render(fmt.Sprintf("%s  %s    vol %d%%    %s", statusIcon, statusText, int(m.volume*100), m.frame.Signal))

	_, canSeek := m.handle.(seeker)

	var b strings.Builder
	b.WriteString("\n  " + header + "\n\n")
	b.WriteString(indentBlock(m.viz().View(), "  ") + "\n\n")
	b.WriteString("  " + titleStyle.Render(title) + "\n")
	b.WriteString("  " + progressLine + "\n")
	b.WriteString("  " + statusLine + "\n\n")
	for _, line := range m.console {
		b.WriteString("  " + consoleStyle.Render(line) + "\n")
	}
	b.WriteString("\n  " + helpStyle.Render(helpText(m.queue.Len() > 1, canSeek)) + "\n")
	if m.width <= 0 {
		return b.String()
	}
	return lipgloss.NewStyle().MaxWidth(m.width).Render(b.String())
}

func indentBlock(s, prefix string) string {
	lines := strings.Split(s, "\n")
	for i := range lines {
		if lines[i] != "" {
			lines[i] = prefix + lines[i]
		}
	}
	return strings.Join(lines, "\n")
}

// Package ui is the application state machine: three user-visible phases
// (intake, analyzing, results) composed over the session controller, the
// playback controller, the waveform renderer, and the history store.
package ui

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/google/uuid"

	"beatscope/internal/analyze"
	"beatscope/internal/config"
	"beatscope/internal/history"
	"beatscope/internal/intake"
	"beatscope/internal/session"
	"beatscope/internal/waveform"
)

type phase int

const (
	phaseIntake phase = iota
	phaseAnalyzing
	phaseResults
)

// Playback is the transport surface the UI drives. *player.Player
// implements it.
type Playback interface {
	Load(path string) error
	Play()
	Pause()
	Toggle()
	Playing() bool
	Seek(fraction float64)
	Position() time.Duration
	Duration() time.Duration
	PositionFraction() float64
	SetVolume(v float64)
	Volume() float64
	ToggleMute()
	Muted() bool
	Close() error
}

// HealthChecker probes the analysis service. *analyze.Client implements it.
type HealthChecker interface {
	Healthy(ctx context.Context) bool
}

const seekStep = 0.05
const volumeStep = 0.1

// Messages.
type (
	outcomeMsg  session.Outcome
	tickMsg     time.Time
	healthMsg   bool
	submitMsg   string // a file path offered by the user or the CLI
	snapshotMsg struct {
		session uuid.UUID
		snap    *waveform.Snapshot
		err     error
	}
)

// Model is the bubbletea model for the whole application.
type Model struct {
	ctrl     *session.Controller
	playback Playback
	health   HealthChecker
	hist     *history.Store
	renderer *waveform.Renderer

	fps int

	phase   phase
	input   textinput.Model
	seekbar progress.Model
	keys    keyMap
	help    help.Model

	upload       *session.Upload
	filename     string
	snapshot     *waveform.Snapshot
	result       *analyze.Result
	errText      string
	healthy      bool
	healthKnown  bool
	showHistory  bool
	analyzeStart time.Time
	ticking      bool

	initialPath string
	width       int
	height      int
}

// New assembles the model. initialPath, when non-empty, is submitted as soon
// as the program starts.
func New(cfg config.Config, ctrl *session.Controller, pb Playback, health HealthChecker, hist *history.Store, initialPath string) Model {
	input := textinput.New()
	input.Placeholder = "path to an .mp3 or .wav file"
	input.Focus()
	input.CharLimit = 512

	return Model{
		ctrl:        ctrl,
		playback:    pb,
		health:      health,
		hist:        hist,
		renderer:    waveform.NewRenderer(),
		fps:         cfg.FPS,
		phase:       phaseIntake,
		input:       input,
		seekbar:     progress.New(progress.WithDefaultGradient()),
		keys:        newKeyMap(),
		help:        help.New(),
		initialPath: initialPath,
		width:       80,
		height:      24,
	}
}

// Init starts the outcome listener and the health probe, and submits the
// CLI-provided file if there is one.
func (m Model) Init() tea.Cmd {
	cmds := []tea.Cmd{
		textinput.Blink,
		listenOutcomes(m.ctrl.Outcomes()),
		checkHealth(m.health),
	}
	if m.initialPath != "" {
		path := m.initialPath
		cmds = append(cmds, func() tea.Msg { return submitMsg(path) })
	}
	return tea.Batch(cmds...)
}

func listenOutcomes(ch <-chan session.Outcome) tea.Cmd {
	return func() tea.Msg { return outcomeMsg(<-ch) }
}

func checkHealth(h HealthChecker) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		return healthMsg(h.Healthy(ctx))
	}
}

func recheckHealthLater(h HealthChecker) tea.Cmd {
	return tea.Tick(15*time.Second, func(time.Time) tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		return healthMsg(h.Healthy(ctx))
	})
}

func decodeSnapshot(id uuid.UUID, path string) tea.Cmd {
	return func() tea.Msg {
		snap, err := waveform.Decode(path)
		return snapshotMsg{session: id, snap: snap, err: err}
	}
}

func (m Model) frame() tea.Cmd {
	return tea.Tick(time.Second/time.Duration(m.fps), func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.seekbar.Width = msg.Width - 16
		if m.seekbar.Width < 10 {
			m.seekbar.Width = 10
		}
		return m, nil

	case tea.KeyMsg:
		return m.updateKeys(msg)

	case submitMsg:
		return m.accept(string(msg))

	case outcomeMsg:
		return m.applyOutcome(session.Outcome(msg))

	case snapshotMsg:
		// Snapshots re-attach only to the session they were decoded for;
		// a late decode for a replaced file is dropped.
		if m.upload != nil && msg.session == m.upload.ID && msg.err == nil {
			m.snapshot = msg.snap
		} else if msg.err != nil {
			log.Printf("waveform decode: %v", msg.err)
		}
		return m, nil

	case tickMsg:
		if m.playback.Playing() || m.phase == phaseAnalyzing {
			return m, m.frame()
		}
		m.ticking = false
		return m, nil

	case healthMsg:
		m.healthy = bool(msg)
		m.healthKnown = true
		return m, recheckHealthLater(m.health)
	}

	// Everything unhandled feeds the text input so its cursor keeps blinking.
	if m.phase == phaseIntake && !m.showHistory {
		var cmd tea.Cmd
		m.input, cmd = m.input.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m Model) updateKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	// The history overlay captures input wherever it was opened from.
	if m.showHistory {
		switch {
		case key.Matches(msg, m.keys.Clear):
			m.hist.Clear()
			return m, nil
		case key.Matches(msg, m.keys.History), key.Matches(msg, m.keys.Cancel):
			m.showHistory = false
			return m, nil
		case key.Matches(msg, m.keys.Quit):
			return m.quit()
		}
		return m, nil
	}

	switch m.phase {
	case phaseIntake:
		switch {
		case msg.Type == tea.KeyCtrlC, msg.Type == tea.KeyEsc:
			return m.quit()
		case key.Matches(msg, m.keys.Submit):
			return m.accept(m.input.Value())
		case msg.Type == tea.KeyTab:
			m.showHistory = true
			return m, nil
		}
		var cmd tea.Cmd
		m.input, cmd = m.input.Update(msg)
		return m, cmd

	case phaseAnalyzing:
		switch {
		case key.Matches(msg, m.keys.Cancel):
			// User-caused cancellation: no message is surfaced.
			m.ctrl.Cancel()
			return m.toIntake("")
		case key.Matches(msg, m.keys.Quit):
			return m.quit()
		}
		return m, nil

	default: // phaseResults
		switch {
		case key.Matches(msg, m.keys.PlayPause):
			m.playback.Toggle()
			if m.playback.Playing() && !m.ticking {
				m.ticking = true
				return m, m.frame()
			}
			return m, nil
		case key.Matches(msg, m.keys.SeekBack):
			m.playback.Seek(m.playback.PositionFraction() - seekStep)
			return m, nil
		case key.Matches(msg, m.keys.SeekFwd):
			m.playback.Seek(m.playback.PositionFraction() + seekStep)
			return m, nil
		case key.Matches(msg, m.keys.VolUp):
			m.playback.SetVolume(m.playback.Volume() + volumeStep)
			return m, nil
		case key.Matches(msg, m.keys.VolDown):
			m.playback.SetVolume(m.playback.Volume() - volumeStep)
			return m, nil
		case key.Matches(msg, m.keys.Mute):
			m.playback.ToggleMute()
			return m, nil
		case key.Matches(msg, m.keys.History):
			m.showHistory = true
			return m, nil
		case key.Matches(msg, m.keys.NewFile):
			return m.toIntake("")
		case key.Matches(msg, m.keys.Quit):
			return m.quit()
		}
		return m, nil
	}
}

// accept runs the local intake checks and, when they pass, starts both the
// analysis request and the local decode for playback.
func (m Model) accept(path string) (tea.Model, tea.Cmd) {
	if path == "" {
		return m, nil
	}

	cand, err := intake.FromPath(path)
	if err != nil {
		m.phase = phaseIntake
		m.errText = "Could not read that file. Check the path and try again."
		log.Printf("intake: %v", err)
		return m, nil
	}
	if err := intake.Validate(cand); err != nil {
		m.phase = phaseIntake
		m.errText = intakeMessage(err)
		return m, nil
	}

	// Acceptance discards the previous result and replaces both sessions.
	m.result = nil
	m.snapshot = nil
	m.upload = m.ctrl.Submit(path, cand.Name)
	m.filename = cand.Name
	m.phase = phaseAnalyzing
	m.errText = ""
	m.analyzeStart = time.Now()
	m.showHistory = false
	m.input.SetValue("")

	if err := m.playback.Load(path); err != nil {
		// Analysis proceeds regardless; playback is simply unavailable.
		log.Printf("playback load: %v", err)
	}

	cmds := []tea.Cmd{decodeSnapshot(m.upload.ID, path)}
	if !m.ticking {
		m.ticking = true
		cmds = append(cmds, m.frame())
	}
	return m, tea.Batch(cmds...)
}

// applyOutcome handles a settlement from the session controller. The
// listener is always re-armed; outcomes for non-current sessions are ignored.
func (m Model) applyOutcome(o session.Outcome) (tea.Model, tea.Cmd) {
	rearm := listenOutcomes(m.ctrl.Outcomes())

	if m.upload == nil || o.Session != m.upload.ID {
		return m, rearm
	}

	if o.Err != nil {
		if analyze.IsCancelled(o.Err) {
			next, _ := m.toIntake("")
			return next, rearm
		}
		next, _ := m.toIntake(analyze.Message(o.Err))
		return next, rearm
	}

	res := o.Result
	m.result = &res
	m.phase = phaseResults
	m.hist.Append(res, o.Filename)
	return m, rearm
}

// toIntake returns to the intake phase, releasing the playback resource.
// errText of "" means a silent return (cancellation or a new-file request).
func (m Model) toIntake(errText string) (tea.Model, tea.Cmd) {
	if err := m.playback.Close(); err != nil {
		log.Printf("playback close: %v", err)
	}
	m.snapshot = nil
	m.upload = nil
	m.phase = phaseIntake
	m.errText = errText
	m.input.Focus()
	return m, textinput.Blink
}

func (m Model) quit() (tea.Model, tea.Cmd) {
	m.ctrl.Cancel()
	if err := m.playback.Close(); err != nil {
		log.Printf("playback close: %v", err)
	}
	return m, tea.Quit
}

func intakeMessage(err error) string {
	switch {
	case errors.Is(err, intake.ErrTooLarge):
		return "That file is too large. The limit is 25 MiB."
	case errors.Is(err, intake.ErrUnsupportedType):
		return "That file type isn't supported. Please choose an MP3 or WAV file."
	default:
		return "Could not read that file. Check the path and try again."
	}
}

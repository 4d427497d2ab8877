// Package tui provides a terminal envelope editor
package tui

import (
	"io"
	"io/fs"
	"log"
	"math"
	"os"
	"time"

	"github.com/Southclaws/fault"
	"github.com/Southclaws/fault/fmsg"
	"github.com/charmbracelet/bubbles/filepicker"
	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/pkg/errors"

	"github.com/james-see/multienv/pkg/editor"
	"github.com/james-see/multienv/pkg/envelope"
	"github.com/james-see/multienv/pkg/patch"
)

// State represents the current TUI state
type State int

const (
	StateEditor State = iota
	StateDetail
	StateFilePicker
)

// Screen geometry. The plot starts below the title and info lines and
// every terminal cell stands for cellWidth by cellHeight editor units.
const (
	plotTop    = 2
	plotLeft   = 2
	cellWidth  = 4.0
	cellHeight = 8.0

	defaultCols = 60
	defaultRows = 12
	minCols     = 20
	minRows     = 6
	maxRows     = 16

	tickInterval = 33 * time.Millisecond
)

// DefaultFilename is used by save when no file was opened
const DefaultFilename = "envelope.menv"

var maxSustainSteps = []float64{envelope.Indefinite, 250, 500, 1000, 2000}

// Options configures the editor host
type Options struct {
	Filename    string
	ViewLength  float64
	DisplayMode editor.DisplayMode
	Seed        int64
}

// Model represents the TUI model
type Model struct {
	state  State
	def    *envelope.Definition
	live   *envelope.Runtime
	ed     *editor.Editor
	noteOn bool
	now    func() float64

	cursor     int
	filename   string
	filePicker filepicker.Model
	keys       keyMap
	help       help.Model

	status string
	err    error
	width  int
	height int
	cols   int
	rows   int
}

type tickMsg time.Time

func tick() tea.Cmd {
	return tea.Tick(tickInterval, func(t time.Time) tea.Msg { return tickMsg(t) })
}

// New creates a new TUI model. When opts.Filename names a readable
// envelope it is loaded, otherwise a default ADSR is edited.
func New(opts Options) Model {
	def := envelope.NewADSR(10, 100, 0.5, 200)
	var err error
	filename := opts.Filename
	if filename != "" {
		if loaded, loadErr := patch.Load(filename); loadErr == nil {
			def = loaded
		} else if !errors.Is(loadErr, fs.ErrNotExist) {
			err = fault.Wrap(loadErr, fmsg.WithDesc("load failed", "Could not open "+filename))
		}
	} else {
		filename = DefaultFilename
	}

	ed := editor.New(editor.Config{
		Width:       defaultCols * cellWidth,
		Height:      defaultRows * cellHeight,
		ViewLength:  opts.ViewLength,
		DisplayMode: opts.DisplayMode,
		Seed:        opts.Seed,
	})
	ed.AttachEnvelope(def)

	fp := filepicker.New()
	fp.AllowedTypes = []string{".menv", ".json", ".yaml", ".yml"}
	fp.CurrentDirectory, _ = os.Getwd()

	epoch := time.Now()
	return Model{
		state:      StateEditor,
		def:        def,
		live:       envelope.NewRuntime(def),
		ed:         ed,
		now:        func() float64 { return float64(time.Since(epoch).Microseconds()) / 1000 },
		filename:   filename,
		filePicker: fp,
		keys:       defaultKeyMap(),
		help:       help.New(),
		err:        err,
		cols:       defaultCols,
		rows:       defaultRows,
	}
}

// Init initializes the TUI model
func (m Model) Init() tea.Cmd {
	return tick()
}

// Definition returns the envelope being edited
func (m Model) Definition() *envelope.Definition {
	return m.def
}

// Update handles TUI updates
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	// the file picker needs to receive all messages
	if m.state == StateFilePicker {
		if keyMsg, ok := msg.(tea.KeyMsg); ok {
			switch {
			case key.Matches(keyMsg, m.keys.Back):
				m.state = StateEditor
				return m, nil
			case keyMsg.String() == "ctrl+c":
				return m, tea.Quit
			}
		}

		var cmd tea.Cmd
		m.filePicker, cmd = m.filePicker.Update(msg)
		if didSelect, path := m.filePicker.DidSelectFile(msg); didSelect {
			m.state = StateEditor
			m.open(path)
			return m, nil
		}
		return m, cmd
	}

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.resize(msg.Width, msg.Height)
		return m, nil

	case tickMsg:
		return m, tick()

	case tea.MouseMsg:
		if m.state == StateEditor {
			m.handleMouse(msg)
		}
		return m, nil

	case tea.KeyMsg:
		switch m.state {
		case StateEditor:
			return m.updateEditor(msg)
		case StateDetail:
			return m.updateDetail(msg)
		}
	}
	return m, nil
}

func (m *Model) resize(width, height int) {
	m.width, m.height = width, height
	m.cols = max(width-2*plotLeft, minCols)
	m.rows = min(max(height-plotTop-6, minRows), maxRows)
	m.ed.Resize(float64(m.cols)*cellWidth, float64(m.rows)*cellHeight)
	m.filePicker.Height = max(height-6, 3)
	m.help.Width = width
}

// editorPoint converts a terminal cell to editor coordinates, aiming at
// the centre of the cell
func editorPoint(x, y int) (float64, float64) {
	return (float64(x-plotLeft) + 0.5) * cellWidth, (float64(y-plotTop) + 0.5) * cellHeight
}

func (m *Model) handleMouse(msg tea.MouseMsg) {
	x, y := editorPoint(msg.X, msg.Y)
	var mods editor.Modifiers
	if msg.Shift {
		mods |= editor.ModShift
	}
	if msg.Ctrl {
		mods |= editor.ModCtrl
	}
	if msg.Alt {
		mods |= editor.ModAlt
	}

	switch msg.Action {
	case tea.MouseActionMotion:
		m.ed.OnMouseMoved(x, y, mods)
	case tea.MouseActionRelease:
		m.ed.MouseReleased()
	case tea.MouseActionPress:
		switch msg.Button {
		case tea.MouseButtonLeft:
			m.ed.OnMouseMoved(x, y, mods)
			if m.ed.OnClicked(x, y, false) == editor.ActionSpawnDetail {
				m.state = StateDetail
			}
		case tea.MouseButtonRight:
			if m.ed.OnClicked(x, y, true) == editor.ActionRandomized {
				m.status = "randomized"
			}
		}
	}
}

func (m Model) updateEditor(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.Note):
		m.toggleNote()
	case key.Matches(msg, m.keys.Display):
		m.ed.SetDisplayMode(m.ed.DisplayMode().Toggle())
	case key.Matches(msg, m.keys.Randomize):
		if m.ed.OnClicked(0, 0, true) == editor.ActionRandomized {
			m.status = "randomized"
		}
	case key.Matches(msg, m.keys.Detail):
		m.state = StateDetail
	case key.Matches(msg, m.keys.ZoomIn):
		m.ed.SetViewLength(m.ed.ViewLength() / 1.25)
	case key.Matches(msg, m.keys.ZoomOut):
		m.ed.SetViewLength(m.ed.ViewLength() * 1.25)
	case key.Matches(msg, m.keys.Open):
		m.state = StateFilePicker
		return m, m.filePicker.Init()
	case key.Matches(msg, m.keys.Save):
		m.save()
	case key.Matches(msg, m.keys.Help):
		m.help.ShowAll = !m.help.ShowAll
	}
	return m, nil
}

func (m Model) updateDetail(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	n := m.def.NumStages()
	switch {
	case msg.String() == "ctrl+c":
		return m, tea.Quit
	case key.Matches(msg, m.keys.Back):
		m.state = StateEditor
	case key.Matches(msg, m.keys.Note):
		m.toggleNote()
	case key.Matches(msg, m.keys.Up):
		m.cursor = max(m.cursor-1, 0)
	case key.Matches(msg, m.keys.Down):
		m.cursor = min(m.cursor+1, max(n-1, 0))
	case key.Matches(msg, m.keys.TargetDown):
		m.nudgeTarget(-0.05)
	case key.Matches(msg, m.keys.TargetUp):
		m.nudgeTarget(0.05)
	case key.Matches(msg, m.keys.DurationDown):
		m.nudgeDuration(-10)
	case key.Matches(msg, m.keys.DurationUp):
		m.nudgeDuration(10)
	case key.Matches(msg, m.keys.Add):
		st, ok := m.def.Stage(m.cursor)
		if !ok {
			st = envelope.Stage{Target: envelope.IdleLevel}
		}
		st.Duration = envelope.DefaultStageDuration
		m.def.InsertStage(m.cursor+1, st)
		if n > 0 {
			m.cursor++
		}
	case key.Matches(msg, m.keys.Remove):
		m.def.RemoveStage(m.cursor)
		m.cursor = min(m.cursor, max(m.def.NumStages()-1, 0))
	case key.Matches(msg, m.keys.Sustain):
		if m.def.SustainStage() == m.cursor {
			m.def.SetSustainStage(envelope.NoSustain)
		} else {
			m.def.SetSustainStage(m.cursor)
			if m.def.SustainStage() != m.cursor {
				m.status = "sustain must sit between the first and last stage"
			}
		}
	case key.Matches(msg, m.keys.MaxSustain):
		m.def.SetMaxSustain(nextMaxSustain(m.def.MaxSustain()))
	case key.Matches(msg, m.keys.Help):
		m.help.ShowAll = !m.help.ShowAll
	}
	return m, nil
}

func nextMaxSustain(current float64) float64 {
	for i, v := range maxSustainSteps {
		if v == current {
			return maxSustainSteps[(i+1)%len(maxSustainSteps)]
		}
	}
	return maxSustainSteps[0]
}

func (m *Model) nudgeTarget(delta float64) {
	st, ok := m.def.Stage(m.cursor)
	if !ok {
		return
	}
	m.def.SetStageTarget(m.cursor, math.Max(0, math.Min(1, st.Target+delta)))
}

func (m *Model) nudgeDuration(delta float64) {
	st, ok := m.def.Stage(m.cursor)
	if !ok || math.IsInf(st.Duration, 0) {
		return
	}
	m.def.SetStageDuration(m.cursor, math.Max(1, st.Duration+delta))
}

func (m *Model) toggleNote() {
	now := m.now()
	if m.noteOn {
		m.live.Stop(now)
		log.Printf("note off at %.1fms", now)
	} else {
		m.live.Start(now, 1)
		log.Printf("note on at %.1fms", now)
	}
	m.noteOn = !m.noteOn
}

func (m *Model) open(path string) {
	def, err := patch.Load(path)
	if err != nil {
		m.err = fault.Wrap(err, fmsg.WithDesc("load failed", "Could not open "+path))
		return
	}
	m.def.Replace(def.Snapshot())
	m.filename = path
	m.cursor = 0
	m.err = nil
	m.status = "opened " + path
	log.Printf("opened %s", path)
}

func (m *Model) save() {
	if err := patch.Save(m.filename, m.def); err != nil {
		m.err = fault.Wrap(err, fmsg.WithDesc("save failed", "Could not write "+m.filename))
		return
	}
	m.err = nil
	m.status = "saved " + m.filename
	log.Printf("saved %s", m.filename)
}

// Run starts the TUI application. Setting MULTIENV_DEBUG writes a debug
// log to multienv-debug.log.
func Run(opts Options) error {
	if os.Getenv("MULTIENV_DEBUG") != "" {
		f, err := tea.LogToFile("multienv-debug.log", "debug")
		if err != nil {
			return fault.Wrap(err, fmsg.With("cannot open debug log"))
		}
		defer f.Close()
	} else {
		log.SetOutput(io.Discard)
	}

	p := tea.NewProgram(New(opts), tea.WithAltScreen(), tea.WithMouseAllMotion())
	_, err := p.Run()
	return err
}

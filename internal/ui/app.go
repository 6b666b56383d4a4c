// Package ui provides the Bubble Tea dashboard for Gantry.
package ui

import (
	"context"
	"fmt"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/kdore/gantry/internal/gcode"
	"github.com/kdore/gantry/internal/prefs"
	"github.com/kdore/gantry/internal/state"
)

// controller is the slice of the printer connection the UI drives.
type controller interface {
	Pause() error
	Resume() error
	Cancel() error
	Home() error
	StartPrint(jobName string, payloadLines []string) error
}

// Options configures the UI.
type Options struct {
	Context context.Context
	Conn    controller
	Store   *state.Store

	// JobPath is the G-code file queued for the Upload key, if any.
	JobPath string

	RefreshTick time.Duration
	ThemeName   string
	PrefsPath   string
}

// Model is the root application state for Bubble Tea.
type Model struct {
	ctx         context.Context
	conn        controller
	store       *state.Store
	jobPath     string
	refreshTick time.Duration
	prefsPath   string

	// UI state
	theme    Theme
	styles   Styles
	keys     keyMap
	help     help.Model
	spin     spinner.Model
	jobBar   progress.Model
	sendBar  progress.Model
	width    int
	height   int
	ready    bool
	showHelp bool

	// Data state
	snapshot   state.Snapshot
	lastAction string
	actionErr  error
}

// New creates a new Bubble Tea model.
func New(opts Options) Model {
	ctx := opts.Context
	if ctx == nil {
		ctx = context.Background()
	}

	refresh := opts.RefreshTick
	if refresh == 0 {
		refresh = 500 * time.Millisecond
	}

	themeName := opts.ThemeName
	if themeName == "" {
		themeName = "Dracula"
	}

	prefsPath := opts.PrefsPath
	if prefsPath == "" {
		prefsPath = prefs.DefaultPath()
	}

	theme := GetTheme(themeName)
	sp := spinner.New(spinner.WithSpinner(spinner.Dot))

	return Model{
		ctx:         ctx,
		conn:        opts.Conn,
		store:       opts.Store,
		jobPath:     opts.JobPath,
		refreshTick: refresh,
		prefsPath:   prefsPath,
		theme:       theme,
		styles:      theme.Styles(),
		keys:        DefaultKeyMap(),
		help:        help.New(),
		spin:        sp,
		jobBar:      progress.New(progress.WithDefaultGradient()),
		sendBar:     progress.New(progress.WithDefaultGradient()),
	}
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	cmds := []tea.Cmd{
		tea.EnterAltScreen,
		tickCmd(m.refreshTick),
		m.spin.Tick,
	}
	// Fetch snapshot immediately on start
	if m.store != nil {
		cmds = append(cmds, fetchSnapshotCmd(m.store))
	}
	return tea.Batch(cmds...)
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = msg.Width
		barWidth := msg.Width - 30
		if barWidth < 10 {
			barWidth = 10
		}
		m.jobBar.Width = barWidth
		m.sendBar.Width = barWidth
		m.ready = true
		return m, nil

	case tickMsg:
		cmds := []tea.Cmd{tickCmd(m.refreshTick)}
		if m.store != nil {
			cmds = append(cmds, fetchSnapshotCmd(m.store))
		}
		return m, tea.Batch(cmds...)

	case snapshotMsg:
		m.snapshot = state.Snapshot(msg)
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spin, cmd = m.spin.Update(msg)
		return m, cmd

	case actionMsg:
		m.lastAction = msg.label
		m.actionErr = msg.err
		return m, nil
	}

	return m, nil
}

// View implements tea.Model.
func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}
	if m.showHelp {
		return m.renderHelp()
	}
	return m.renderMain()
}

// handleKey processes keyboard input.
func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.showHelp {
		// Any key closes help
		m.showHelp = false
		return m, nil
	}

	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit

	case key.Matches(msg, m.keys.Help):
		m.showHelp = true
		return m, nil

	case key.Matches(msg, m.keys.CycleTheme):
		m.theme = GetTheme(NextTheme(m.theme.Name))
		m.styles = m.theme.Styles()
		if m.prefsPath != "" {
			_ = prefs.Save(m.prefsPath, prefs.Prefs{Theme: m.theme.Name})
		}
		return m, nil

	case key.Matches(msg, m.keys.Pause):
		return m, actionCmd("pause", m.conn.Pause)

	case key.Matches(msg, m.keys.Resume):
		return m, actionCmd("resume", m.conn.Resume)

	case key.Matches(msg, m.keys.Cancel):
		return m, actionCmd("cancel", m.conn.Cancel)

	case key.Matches(msg, m.keys.Home):
		return m, actionCmd("home", m.conn.Home)

	case key.Matches(msg, m.keys.Upload):
		return m, sendJobCmd(m.conn, m.jobPath)
	}

	return m, nil
}

// Messages

type tickMsg time.Time

type snapshotMsg state.Snapshot

// actionMsg reports the outcome of a printer action triggered by a key.
type actionMsg struct {
	label string
	err   error
}

// Commands

func tickCmd(d time.Duration) tea.Cmd {
	return tea.Tick(d, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func fetchSnapshotCmd(store *state.Store) tea.Cmd {
	return func() tea.Msg {
		return snapshotMsg(store.Snapshot())
	}
}

func actionCmd(label string, fn func() error) tea.Cmd {
	return func() tea.Msg {
		return actionMsg{label: label, err: fn()}
	}
}

// sendJobCmd loads the queued G-code file and starts the upload. Both the
// file read and the StartPrint handshake run off the render loop.
func sendJobCmd(conn controller, path string) tea.Cmd {
	return func() tea.Msg {
		if path == "" {
			return actionMsg{label: "send", err: fmt.Errorf("no G-code file queued (start with -send <file>)")}
		}
		lines, err := gcode.Load(path)
		if err != nil {
			return actionMsg{label: "send", err: err}
		}
		return actionMsg{label: "send", err: conn.StartPrint(gcode.JobName(path), lines)}
	}
}

// Run starts the Bubble Tea program and blocks until it exits.
func Run(opts Options) error {
	m := New(opts)
	p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(m.ctx))
	_, err := p.Run()
	return err
}

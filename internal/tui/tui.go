// Package tui provides a Bubble Tea terminal user interface for spotify-downloader.
package tui

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/handiism/spotify-downloader/internal/config"
	"github.com/handiism/spotify-downloader/internal/download"
	"github.com/handiism/spotify-downloader/internal/model"
)

// Styles for the TUI
var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#1DB954")).
			MarginBottom(1)

	subtitleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#4ECDC4"))

	successStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#95E1A3"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF6B6B"))

	warningStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFE66D"))

	infoStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#A8DADC"))

	dimStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#6C757D"))

	boxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#4ECDC4")).
			Padding(1, 2)

	albumStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#F8B500"))
)

// State represents the current UI state.
type State int

const (
	StateInput State = iota
	StateInitializing
	StateDownloading
	StateComplete
	StateError
)

// LogEntry represents a log message in the UI.
type LogEntry struct {
	Message string
	Level   download.ProgressLevel
}

// ManagerFactory creates the Manager for one run.
type ManagerFactory func(chooser download.Chooser, onProgress func(download.ProgressEvent)) *download.Manager

// sender delivers messages to the running program. It is filled in once the
// program exists.
type sender struct {
	send func(tea.Msg)
}

func (s *sender) Send(msg tea.Msg) {
	if s.send != nil {
		s.send(msg)
	}
}

// Model is the Bubble Tea model for the TUI.
type Model struct {
	state     State
	textInput textinput.Model
	spinner   spinner.Model
	progress  progress.Model
	settings  *config.Settings
	logs      []LogEntry
	err       error

	newManager ManagerFactory
	sender     *sender

	// Run context
	ctx    context.Context
	cancel context.CancelFunc

	manager    *download.Manager
	collection string
	tracks     int
	report     *download.Report

	// Stage progress
	stage download.State
	done  int
	total int

	picker *pickerModel
	reply  chan pickReply

	// Options
	playlist    bool
	interactive bool
	verbose     bool

	width  int
	height int
}

// NewModel creates a new TUI model.
func NewModel(settings *config.Settings, newManager ManagerFactory) Model {
	ti := textinput.New()
	ti.Placeholder = "https://open.spotify.com/album/..."
	ti.Focus()
	ti.CharLimit = 500
	ti.Width = 60

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("#1DB954"))

	prog := progress.New(progress.WithDefaultGradient())
	prog.Width = 50

	ctx, cancel := context.WithCancel(context.Background())

	return Model{
		state:       StateInput,
		textInput:   ti,
		spinner:     sp,
		progress:    prog,
		settings:    settings,
		logs:        make([]LogEntry, 0),
		newManager:  newManager,
		sender:      &sender{},
		ctx:         ctx,
		cancel:      cancel,
		playlist:    settings.Playlist.Create,
		interactive: settings.Interactive,
		verbose:     settings.Logging.Verbose,
	}
}

// Init initializes the model.
func (m Model) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, m.spinner.Tick)
}

// Message types
type (
	// ProgressMsg is sent when the run reports progress.
	ProgressMsg struct {
		Event download.ProgressEvent
	}

	// InitDoneMsg is sent when the source URL has been resolved.
	InitDoneMsg struct {
		Collection string
		Tracks     int
		Manager    *download.Manager
		Err        error
	}

	// DownloadDoneMsg is sent when the run finished.
	DownloadDoneMsg struct {
		Report *download.Report
		Err    error
	}

	// TickMsg is for periodic progress updates.
	TickMsg struct{}
)

// Update handles messages and updates the model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.progress.Width = min(max(msg.Width-20, 20), 80)
		return m, nil

	case tea.KeyMsg:
		if m.picker != nil {
			return m.updatePicker(msg)
		}

		switch msg.String() {
		case "ctrl+c":
			m.cancel()
			return m, tea.Quit

		case "esc":
			if m.state == StateInput {
				return m, tea.Quit
			}
			if m.state == StateDownloading || m.state == StateInitializing {
				m.cancel()
			}

		case "enter":
			if m.state == StateInput && m.textInput.Value() != "" {
				m.state = StateInitializing
				return m, tea.Batch(m.initializeDownload(), m.spinner.Tick)
			}

		case "ctrl+p":
			if m.state == StateInput {
				m.playlist = !m.playlist
			}

		case "tab":
			if m.state == StateInput {
				m.interactive = !m.interactive
			}

		case "ctrl+t":
			if m.state == StateInput {
				m.verbose = !m.verbose
			}

		case "q":
			if m.state == StateComplete || m.state == StateError {
				return m, tea.Quit
			}

		case "r":
			if m.state == StateComplete || m.state == StateError {
				m = m.reset()
				return m, textinput.Blink
			}
		}

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		cmds = append(cmds, cmd)

	case ProgressMsg:
		if msg.Event.Level == download.LevelProgress {
			m.stage, m.done, m.total = msg.Event.Stage, msg.Event.Done, msg.Event.Total
			break
		}
		if msg.Event.Level == download.LevelVerbose && !m.verbose {
			return m, nil
		}
		m.logs = append(m.logs, LogEntry{
			Message: msg.Event.Message,
			Level:   msg.Event.Level,
		})
		// Keep only last 10 logs
		if len(m.logs) > 10 {
			m.logs = m.logs[len(m.logs)-10:]
		}

	case pickRequestMsg:
		p := newPickerModel(msg.track, msg.candidates)
		m.picker = &p
		m.reply = msg.reply

	case InitDoneMsg:
		if msg.Err != nil {
			m.state = StateError
			m.err = msg.Err
		} else {
			m.collection = msg.Collection
			m.tracks = msg.Tracks
			m.manager = msg.Manager
			m.state = StateDownloading
			cmds = append(cmds, m.startDownload(), m.tickProgress())
		}

	case DownloadDoneMsg:
		m.report = msg.Report
		switch {
		case m.ctx.Err() != nil:
			m.state = StateError
			m.err = errors.New("cancelled by user")
		case msg.Err != nil:
			m.state = StateError
			m.err = msg.Err
		default:
			m.state = StateComplete
		}

	case TickMsg:
		if m.manager != nil && m.state == StateDownloading {
			m.stage = m.manager.State()
			m.done, m.total = m.manager.Progress()
			cmds = append(cmds, m.progress.SetPercent(m.percent()), m.tickProgress())
		}

	case progress.FrameMsg:
		progressModel, cmd := m.progress.Update(msg)
		m.progress = progressModel.(progress.Model)
		cmds = append(cmds, cmd)
	}

	// Update text input
	if m.state == StateInput {
		var cmd tea.Cmd
		m.textInput, cmd = m.textInput.Update(msg)
		cmds = append(cmds, cmd)
	}

	return m, tea.Batch(cmds...)
}

func (m Model) updatePicker(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	next, _ := m.picker.Update(msg)
	p := next.(pickerModel)
	if !p.done {
		m.picker = &p
		return m, nil
	}
	choice, err := p.result()
	m.reply <- pickReply{choice: choice, err: err}
	m.picker = nil
	m.reply = nil
	return m, nil
}

func (m Model) reset() Model {
	m.state = StateInput
	m.logs = nil
	m.err = nil
	m.manager = nil
	m.report = nil
	m.collection = ""
	m.tracks = 0
	m.done, m.total = 0, 0
	m.stage = download.StateIdle
	m.ctx, m.cancel = context.WithCancel(context.Background())
	m.textInput.SetValue("")
	m.textInput.Focus()
	return m
}

func (m Model) percent() float64 {
	if m.total == 0 {
		return 0
	}
	return float64(m.done) / float64(m.total)
}

// tickProgress returns a command to tick progress updates.
func (m Model) tickProgress() tea.Cmd {
	return tea.Tick(200*time.Millisecond, func(_ time.Time) tea.Msg {
		return TickMsg{}
	})
}

// View renders the UI.
func (m Model) View() string {
	var b strings.Builder

	// Header
	b.WriteString(titleStyle.Render("♪ Spotify Downloader"))
	b.WriteString("\n")
	b.WriteString(dimStyle.Render("Download Spotify tracks, albums and playlists through YouTube Music"))
	b.WriteString("\n\n")

	if m.picker != nil {
		b.WriteString(m.picker.View())
		return b.String()
	}

	switch m.state {
	case StateInput:
		b.WriteString(m.viewInput())
	case StateInitializing:
		b.WriteString(m.viewInitializing())
	case StateDownloading:
		b.WriteString(m.viewDownloading())
	case StateComplete:
		b.WriteString(m.viewComplete())
	case StateError:
		b.WriteString(m.viewError())
	}

	// Footer
	b.WriteString("\n")
	b.WriteString(dimStyle.Render(m.getHelpText()))

	return b.String()
}

func checkbox(on bool) string {
	if on {
		return "[x]"
	}
	return "[ ]"
}

func (m Model) viewInput() string {
	var b strings.Builder

	b.WriteString(subtitleStyle.Render("Enter Spotify URL:"))
	b.WriteString("\n\n")
	b.WriteString(m.textInput.View())
	b.WriteString("\n\n")

	b.WriteString(infoStyle.Render("Options:"))
	b.WriteString("\n")
	b.WriteString(fmt.Sprintf("  %s Create playlist (ctrl+p)\n", checkbox(m.playlist)))
	b.WriteString(fmt.Sprintf("  %s Choose search result for single tracks (tab)\n", checkbox(m.interactive)))
	b.WriteString(fmt.Sprintf("  %s Verbose output (ctrl+t)\n", checkbox(m.verbose)))
	b.WriteString("\n")
	b.WriteString(dimStyle.Render(fmt.Sprintf("Output: %s", m.settings.ToOutputConfig().Render(0, 1, model.Track{Name: "{title}", Artists: []model.Artist{{Name: "{artist}"}}}, "{collection}"))))
	b.WriteString("\n")

	return b.String()
}

func (m Model) viewInitializing() string {
	var b strings.Builder

	b.WriteString(m.spinner.View())
	b.WriteString(" ")
	b.WriteString(subtitleStyle.Render("Fetching track list..."))
	b.WriteString("\n\n")

	b.WriteString(m.renderLogs())

	return b.String()
}

func (m Model) viewDownloading() string {
	var b strings.Builder

	b.WriteString(albumStyle.Render(fmt.Sprintf("♪ %s (%d tracks)", m.collection, m.tracks)))
	b.WriteString("\n\n")

	label := "Searching"
	if m.stage == download.StateFetching {
		label = "Downloading"
	}
	b.WriteString(m.spinner.View())
	b.WriteString(" ")
	b.WriteString(subtitleStyle.Render(label))
	b.WriteString("\n")
	b.WriteString(m.progress.ViewAs(m.percent()))
	b.WriteString("\n")
	b.WriteString(infoStyle.Render(fmt.Sprintf("Tracks: %d/%d", m.done, m.total)))
	b.WriteString("\n\n")

	b.WriteString(m.renderLogs())

	return b.String()
}

func (m Model) viewComplete() string {
	r := m.report
	if r == nil {
		return boxStyle.Render("Done.")
	}

	lines := []string{
		"Download Complete!",
		"",
		fmt.Sprintf("Collection: %s", r.Collection),
		fmt.Sprintf("Downloaded: %d/%d", r.Succeeded(), r.Total),
	}
	if len(r.Warnings) > 0 {
		lines = append(lines, fmt.Sprintf("Lower ranked matches: %d", len(r.Warnings)))
	}
	if len(r.Failures) > 0 {
		lines = append(lines, fmt.Sprintf("Failed: %d (see %s)", len(r.Failures), r.FailureReport))
	}
	if r.PlaylistPath != "" {
		lines = append(lines, fmt.Sprintf("Playlist: %s", r.PlaylistPath))
	}
	return boxStyle.Render(strings.Join(lines, "\n"))
}

func (m Model) viewError() string {
	var b strings.Builder

	b.WriteString(errorStyle.Render("✗ Error occurred:"))
	b.WriteString("\n\n")
	if m.err != nil {
		b.WriteString(fmt.Sprintf("  %s", m.err.Error()))
		b.WriteString("\n")
	}
	if m.report != nil && m.report.Succeeded() > 0 {
		b.WriteString(dimStyle.Render(fmt.Sprintf("\n  %d/%d tracks were downloaded before the run stopped.", m.report.Succeeded(), m.report.Total)))
		b.WriteString("\n")
	}

	return b.String()
}

func (m Model) renderLogs() string {
	var b strings.Builder

	for _, log := range m.logs {
		var style lipgloss.Style
		prefix := "•"
		switch log.Level {
		case download.LevelError:
			style = errorStyle
			prefix = "✗"
		case download.LevelWarning:
			style = warningStyle
			prefix = "!"
		case download.LevelSuccess:
			style = successStyle
			prefix = "✓"
		case download.LevelInfo:
			style = infoStyle
			prefix = "›"
		default:
			style = dimStyle
		}
		b.WriteString(style.Render(prefix + " " + log.Message))
		b.WriteString("\n")
	}

	return b.String()
}

func (m Model) getHelpText() string {
	switch m.state {
	case StateInput:
		return "enter: start • ctrl+p: playlist • tab: choose result • ctrl+t: verbose • esc: quit"
	case StateInitializing, StateDownloading:
		return "esc: cancel"
	case StateComplete, StateError:
		return "r: new download • q: quit"
	}
	return ""
}

// initializeDownload resolves the URL and creates the manager.
func (m Model) initializeDownload() tea.Cmd {
	url := strings.TrimSpace(m.textInput.Value())
	ctx := m.ctx
	send := m.sender.Send

	m.settings.Playlist.Create = m.playlist
	interactive := m.interactive

	return func() tea.Msg {
		manager := m.newManager(nil, func(event download.ProgressEvent) {
			send(ProgressMsg{Event: event})
		})

		if err := manager.Initialize(ctx, url); err != nil {
			return InitDoneMsg{Err: err}
		}

		collection := manager.Collection()
		if interactive && collection.Kind == model.KindTrack {
			manager.SetChooser(programChooser{send: send})
		}

		return InitDoneMsg{
			Collection: collection.DisplayName(),
			Tracks:     len(collection.Tracks),
			Manager:    manager,
		}
	}
}

// startDownload runs both stages in the background.
func (m Model) startDownload() tea.Cmd {
	ctx := m.ctx
	manager := m.manager
	return func() tea.Msg {
		report, err := manager.StartDownloads(ctx)
		return DownloadDoneMsg{Report: report, Err: err}
	}
}

// Run starts the TUI application.
func Run(settings *config.Settings, newManager ManagerFactory) error {
	m := NewModel(settings, newManager)
	p := tea.NewProgram(m, tea.WithAltScreen())
	m.sender.send = p.Send
	_, err := p.Run()
	return err
}

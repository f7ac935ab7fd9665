// Package tui provides a Bubble Tea terminal user interface for a download run.
package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/handiism/nupkg-downloader/internal/cli"
	"github.com/handiism/nupkg-downloader/internal/download"
	"github.com/handiism/nupkg-downloader/internal/model"
)

// Styles for the TUI
var (
	titleStyle = cli.TitleStyle.MarginBottom(1)

	subtitleStyle = cli.SubtitleStyle

	successStyle = cli.SuccessStyle

	errorStyle = cli.ErrorStyle

	warningStyle = cli.WarningStyle

	infoStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#A8DADC"))

	dimStyle = cli.DimStyle
)

// maxLogs is the number of log lines kept on screen.
const maxLogs = 10

// State represents the current UI state.
type State int

const (
	StatePlanning State = iota
	StateDownloading
	StateComplete
	StateError
)

// LogEntry represents a log message in the UI.
type LogEntry struct {
	Message string
	Level   download.ProgressLevel
}

// Model is the Bubble Tea model for the TUI.
type Model struct {
	state    State
	spinner  spinner.Model
	progress progress.Model
	logs     []LogEntry
	summary  *model.Summary
	err      error

	// Run context; cancelling it stops the download.
	ctx        context.Context
	cancel     context.CancelFunc
	cancelling bool

	manager *download.Manager
	title   string

	// Download progress
	totalFiles    int32
	finishedFiles int32
	receivedBytes int64

	verbose bool

	width  int
	height int
}

// NewModel creates a TUI model driving manager. title is shown under the
// header, typically "manifest → output dir".
func NewModel(ctx context.Context, cancel context.CancelFunc, manager *download.Manager, title string, verbose bool) Model {
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF6B6B"))

	prog := progress.New(progress.WithDefaultGradient())
	prog.Width = 50

	return Model{
		state:    StatePlanning,
		spinner:  sp,
		progress: prog,
		logs:     make([]LogEntry, 0, maxLogs),
		ctx:      ctx,
		cancel:   cancel,
		manager:  manager,
		title:    title,
		verbose:  verbose,
	}
}

// Init starts the run.
func (m Model) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.startRun(), m.tickProgress())
}

// Message types
type (
	// ProgressMsg is sent for every progress event of the run.
	ProgressMsg struct {
		Event download.ProgressEvent
	}

	// RunDoneMsg is sent when the manager returns.
	RunDoneMsg struct {
		Summary *model.Summary
		Err     error
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
		switch msg.String() {
		case "ctrl+c", "esc":
			if m.running() {
				// Wait for the manager to record outcomes before quitting.
				m.cancelling = true
				m.cancel()
				return m, nil
			}
			return m, tea.Quit

		case "q":
			if !m.running() {
				return m, tea.Quit
			}

		case "v":
			m.verbose = !m.verbose
		}

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		cmds = append(cmds, cmd)

	case ProgressMsg:
		if msg.Event.Level == download.LevelVerbose && !m.verbose {
			return m, nil
		}
		m.logs = append(m.logs, LogEntry{
			Message: msg.Event.Message,
			Level:   msg.Event.Level,
		})
		if len(m.logs) > maxLogs {
			m.logs = m.logs[len(m.logs)-maxLogs:]
		}

	case RunDoneMsg:
		m.summary = msg.Summary
		switch {
		case msg.Err != nil:
			m.state = StateError
			m.err = msg.Err
		case msg.Summary != nil && msg.Summary.ManifestErr != nil:
			m.state = StateError
			m.err = msg.Summary.ManifestErr
		default:
			m.state = StateComplete
		}
		if m.cancelling || m.ctx.Err() != nil {
			return m, tea.Quit
		}

	case TickMsg:
		if m.manager != nil && m.running() {
			if m.manager.State() == download.StateFetching {
				m.state = StateDownloading
			}
			m.receivedBytes, m.finishedFiles, m.totalFiles = m.manager.GetProgress()
			cmds = append(cmds, m.progress.SetPercent(m.percent()), m.tickProgress())
		}

	case progress.FrameMsg:
		progressModel, cmd := m.progress.Update(msg)
		m.progress = progressModel.(progress.Model)
		cmds = append(cmds, cmd)
	}

	return m, tea.Batch(cmds...)
}

func (m Model) running() bool {
	return m.state == StatePlanning || m.state == StateDownloading
}

func (m Model) percent() float64 {
	if m.totalFiles == 0 {
		return 0
	}
	return float64(m.finishedFiles) / float64(m.totalFiles)
}

// Summary returns the run summary once the run has finished.
func (m Model) Summary() *model.Summary {
	return m.summary
}

// Err returns the fatal error of the run, if any.
func (m Model) Err() error {
	return m.err
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
	b.WriteString(titleStyle.Render("📦 NuGet Package Downloader"))
	b.WriteString("\n")
	b.WriteString(dimStyle.Render(m.title))
	b.WriteString("\n\n")

	switch m.state {
	case StatePlanning:
		b.WriteString(m.viewPlanning())
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

func (m Model) viewPlanning() string {
	var b strings.Builder

	b.WriteString(m.spinner.View())
	b.WriteString(" ")
	b.WriteString(subtitleStyle.Render("Reading manifest..."))
	b.WriteString("\n\n")
	b.WriteString(m.renderLogs())

	return b.String()
}

func (m Model) viewDownloading() string {
	var b strings.Builder

	if m.cancelling {
		b.WriteString(m.spinner.View())
		b.WriteString(" ")
		b.WriteString(warningStyle.Render("Cancelling, waiting for in-flight downloads..."))
		b.WriteString("\n\n")
	}

	b.WriteString(m.progress.ViewAs(m.percent()))
	b.WriteString("\n")
	b.WriteString(infoStyle.Render(fmt.Sprintf(
		"Packages: %d/%d | Downloaded: %.2f MB",
		m.finishedFiles,
		m.totalFiles,
		float64(m.receivedBytes)/1024/1024,
	)))
	b.WriteString("\n\n")
	b.WriteString(m.renderLogs())

	return b.String()
}

func (m Model) viewComplete() string {
	var b strings.Builder

	if m.summary != nil {
		b.WriteString(cli.RenderSummary(m.summary))
		b.WriteString("\n\n")
	}
	b.WriteString(m.renderLogs())

	return b.String()
}

func (m Model) viewError() string {
	var b strings.Builder

	b.WriteString(errorStyle.Render("❌ Error occurred:"))
	b.WriteString("\n\n")
	if m.err != nil {
		b.WriteString(fmt.Sprintf("  %s", m.err.Error()))
	}
	b.WriteString("\n")

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
	switch {
	case m.cancelling:
		return "cancelling..."
	case m.running():
		return "v: verbose • esc: cancel"
	}
	return "v: verbose • q: quit"
}

// startRun runs the manager in the background.
func (m Model) startRun() tea.Cmd {
	return func() tea.Msg {
		summary, err := m.manager.Run(m.ctx)
		return RunDoneMsg{Summary: summary, Err: err}
	}
}

// Frontend runs downloads inside the TUI.
var Frontend = cli.Frontend{
	Use:         "nupkg-tui",
	Short:       "Download NuGet packages with a terminal UI",
	Long:        "Same flags and configuration as nupkg-dl, with live progress in a terminal UI.",
	Interactive: true,
	Execute:     Run,
}

// Run starts the TUI application and returns once the run finished and the
// user quit.
func Run(ctx context.Context, run *cli.Run) (*model.Summary, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var p *tea.Program
	manager, err := run.NewManager(func(event download.ProgressEvent) {
		p.Send(ProgressMsg{Event: event})
	})
	if err != nil {
		return nil, err
	}

	title := fmt.Sprintf("%s → %s", run.Settings.ManifestPath, run.Settings.OutputDir)
	p = tea.NewProgram(NewModel(ctx, cancel, manager, title, run.Settings.Verbose), tea.WithAltScreen())

	final, err := p.Run()
	if err != nil {
		return nil, err
	}

	return final.(Model).Result()
}

// Result returns what the finished run reports to the command: the summary,
// a fatal error, or context.Canceled next to the summary when the user
// cancelled.
func (m Model) Result() (*model.Summary, error) {
	switch {
	case m.summary == nil && m.err == nil:
		// Quit before the run reported back.
		return nil, m.ctx.Err()
	case m.err != nil && (m.summary == nil || m.summary.ManifestErr == nil):
		return nil, m.err
	case m.cancelling:
		return m.summary, context.Canceled
	}
	return m.summary, nil
}

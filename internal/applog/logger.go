// Package applog is the run's logging sink.
//
// Every call writes one line to the console and, when configured, one
// timestamped line to a log file. Calls are serialized so lines coming from
// concurrent downloads never interleave.
package applog

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/log"
	"github.com/handiism/nupkg-downloader/internal/download"
	"github.com/m-mizutani/goerr/v2"
)

// SuccessLevel sits between info and warn so it is shown whenever info is.
const SuccessLevel = log.InfoLevel + 2

// Logger writes progress messages to the console and an optional file.
type Logger struct {
	mu      sync.Mutex
	console *log.Logger
	file    *os.File
	path    string
	now     func() time.Time
}

// New creates a Logger writing to console. A nil console discards console
// output, which the TUI uses while it owns the terminal.
//
// When logFile is non-empty the file is created or truncated right away, so
// a log left by a previous run is never appended to.
func New(console io.Writer, logFile string, verbose bool) (*Logger, error) {
	if console == nil {
		console = io.Discard
	}

	cl := log.NewWithOptions(console, log.Options{
		Level:           log.InfoLevel,
		ReportTimestamp: false,
	})
	if verbose {
		cl.SetLevel(log.DebugLevel)
	}
	cl.SetStyles(styles())

	l := &Logger{console: cl, path: logFile, now: time.Now}

	if logFile != "" {
		f, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_TRUNC|os.O_APPEND, 0644)
		if err != nil {
			return nil, goerr.Wrap(err, "failed to open log file", goerr.V("path", logFile))
		}
		l.file = f
	}

	return l, nil
}

func styles() *log.Styles {
	st := log.DefaultStyles()
	st.Levels[log.DebugLevel] = lipgloss.NewStyle().SetString("DEBU").Foreground(lipgloss.Color("#22D3EE"))
	st.Levels[SuccessLevel] = lipgloss.NewStyle().SetString("DONE").Bold(true).Foreground(lipgloss.Color("#10B981"))
	return st
}

// Path returns the log file path, or "" when logging to console only.
func (l *Logger) Path() string {
	return l.path
}

// Log writes one message. Debug messages reach the console only in verbose
// mode but are always written to the log file.
func (l *Logger) Log(message string, level download.ProgressLevel) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.console.Log(consoleLevel(level), message)

	if l.file != nil {
		fmt.Fprintf(l.file, "[%s] %s %s\n", l.now().UTC().Format(time.RFC3339Nano), strings.ToUpper(level.String()), message)
	}
}

// Progress adapts Log to download.ProgressFunc.
func (l *Logger) Progress(event download.ProgressEvent) {
	l.Log(event.Message, event.Level)
}

// Close flushes and closes the log file.
func (l *Logger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.file == nil {
		return nil
	}
	err := l.file.Close()
	l.file = nil
	return err
}

func consoleLevel(level download.ProgressLevel) log.Level {
	switch level {
	case download.LevelVerbose:
		return log.DebugLevel
	case download.LevelWarning:
		return log.WarnLevel
	case download.LevelError:
		return log.ErrorLevel
	case download.LevelSuccess:
		return SuccessLevel
	default:
		return log.InfoLevel
	}
}

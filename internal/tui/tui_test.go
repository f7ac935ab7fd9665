package tui

import (
	"context"
	"errors"
	"fmt"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/handiism/nupkg-downloader/internal/cli"
	"github.com/handiism/nupkg-downloader/internal/download"
	"github.com/handiism/nupkg-downloader/internal/model"
	"github.com/m-mizutani/gt"
)

func newTestModel(t *testing.T, verbose bool) Model {
	t.Helper()

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	return NewModel(ctx, cancel, nil, "deps.props → out", verbose)
}

func update(t *testing.T, m Model, msg tea.Msg) (Model, tea.Cmd) {
	t.Helper()

	next, cmd := m.Update(msg)
	nm, ok := next.(Model)
	gt.True(t, ok)
	return nm, cmd
}

func TestModel_ProgressLogs(t *testing.T) {
	m := newTestModel(t, false)

	m, _ = update(t, m, ProgressMsg{Event: download.ProgressEvent{Message: "debug line", Level: download.LevelVerbose}})
	gt.Equal(t, len(m.logs), 0)

	for i := 0; i < maxLogs+5; i++ {
		m, _ = update(t, m, ProgressMsg{Event: download.ProgressEvent{Message: fmt.Sprintf("line %d", i), Level: download.LevelInfo}})
	}
	gt.Equal(t, len(m.logs), maxLogs)
	gt.Equal(t, m.logs[maxLogs-1].Message, fmt.Sprintf("line %d", maxLogs+4))

	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("v")})
	gt.True(t, m.verbose)
	m, _ = update(t, m, ProgressMsg{Event: download.ProgressEvent{Message: "debug line", Level: download.LevelVerbose}})
	gt.Equal(t, m.logs[maxLogs-1].Message, "debug line")
}

func TestModel_RunDone(t *testing.T) {
	ref := model.PackageRef{ID: "A", Version: "1.0.0"}

	tests := []struct {
		name  string
		msg   RunDoneMsg
		state State
	}{
		{"complete", RunDoneMsg{Summary: model.NewSummary("r", []model.Outcome{model.Skipped(ref)})}, StateComplete},
		{"fatal", RunDoneMsg{Err: errors.New("mkdir failed")}, StateError},
		{"manifest", RunDoneMsg{Summary: &model.Summary{ManifestErr: errors.New("bad xml")}}, StateError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, _ := update(t, newTestModel(t, false), tt.msg)
			gt.Equal(t, m.state, tt.state)
			gt.Equal(t, m.Err() != nil, tt.state == StateError)
			gt.String(t, m.View()).Contains("NuGet Package Downloader")
		})
	}
}

func TestModel_CancelWaitsForRun(t *testing.T) {
	m := newTestModel(t, false)

	m, cmd := update(t, m, tea.KeyMsg{Type: tea.KeyEsc})
	gt.True(t, m.cancelling)
	gt.Error(t, m.ctx.Err())
	gt.True(t, cmd == nil)
	gt.String(t, m.View()).Contains("cancelling...")

	ref := model.PackageRef{ID: "A", Version: "1.0.0"}
	m, cmd = update(t, m, RunDoneMsg{Summary: model.NewSummary("r", []model.Outcome{model.Failed(ref, nil, context.Canceled)})})
	gt.Equal(t, m.state, StateComplete)
	gt.V(t, cmd).NotNil()
	gt.V(t, m.Summary()).NotNil()

	summary, err := m.Result()
	gt.V(t, summary).NotNil()
	gt.True(t, errors.Is(err, context.Canceled))
	gt.Equal(t, cli.ExitCode(cli.ExitFor(context.Background(), summary, err)), cli.ExitCancelled)
}

func TestModel_Result(t *testing.T) {
	ref := model.PackageRef{ID: "A", Version: "1.0.0"}

	done, _ := update(t, newTestModel(t, false), RunDoneMsg{Summary: model.NewSummary("r", []model.Outcome{model.Skipped(ref)})})
	summary, err := done.Result()
	gt.NoError(t, err)
	gt.Equal(t, summary.Skipped, 1)

	fatal, _ := update(t, newTestModel(t, false), RunDoneMsg{Err: errors.New("mkdir failed")})
	summary, err = fatal.Result()
	gt.Error(t, err)
	gt.True(t, summary == nil)

	broken, _ := update(t, newTestModel(t, false), RunDoneMsg{Summary: &model.Summary{ManifestErr: errors.New("bad xml")}})
	summary, err = broken.Result()
	gt.NoError(t, err)
	gt.Error(t, summary.ManifestErr)
}

func TestModel_QuitAfterComplete(t *testing.T) {
	m := newTestModel(t, false)
	m, _ = update(t, m, RunDoneMsg{Summary: model.NewSummary("r", nil)})

	_, cmd := update(t, m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("q")})
	gt.V(t, cmd).NotNil()
	gt.Equal(t, cmd(), tea.Msg(tea.QuitMsg{}))
}

package download

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/handiism/nupkg-downloader/internal/config"
	"github.com/handiism/nupkg-downloader/internal/http"
	"github.com/handiism/nupkg-downloader/internal/manifest"
	"github.com/handiism/nupkg-downloader/internal/metrics"
	"github.com/handiism/nupkg-downloader/internal/model"
	"github.com/m-mizutani/goerr/v2"
	"golang.org/x/sync/errgroup"
)

// State is the lifecycle stage of a Manager run.
type State int32

const (
	StateIdle State = iota
	StatePlanning
	StateFetching
	StateCompleted
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StatePlanning:
		return "planning"
	case StateFetching:
		return "fetching"
	case StateCompleted:
		return "completed"
	}
	return "unknown"
}

// Option customizes a Manager.
type Option func(*Manager)

// WithDownloader replaces the HTTP client built from settings.
func WithDownloader(d Downloader) Option {
	return func(m *Manager) {
		m.downloader = d
	}
}

// WithMetrics records into r instead of a fresh Recorder.
func WithMetrics(r *metrics.Recorder) Option {
	return func(m *Manager) {
		m.metrics = r
	}
}

// Manager coordinates one download run: manifest parsing, planning and
// bounded-parallel fetching.
type Manager struct {
	settings   *config.Settings
	sources    []string
	downloader Downloader
	metrics    *metrics.Recorder
	runID      string

	state         atomic.Int32
	totalFiles    atomic.Int32
	finishedFiles atomic.Int32
	receivedBytes atomic.Int64

	onProgress ProgressFunc
}

// NewManager creates a new download Manager.
//
// It fails when the settings are invalid or the HTTP transport cannot be
// built; both are fatal for the run.
func NewManager(settings *config.Settings, onProgress func(ProgressEvent), opts ...Option) (*Manager, error) {
	if err := settings.Validate(); err != nil {
		return nil, goerr.Wrap(err, "invalid settings")
	}

	m := &Manager{
		settings:   settings,
		sources:    config.SplitSources(settings.Sources),
		runID:      uuid.NewString(),
		onProgress: onProgress,
	}
	for _, opt := range opts {
		opt(m)
	}

	if m.metrics == nil {
		m.metrics = metrics.NewRecorder()
	}
	if m.downloader == nil {
		client, err := http.NewClient(http.Options{
			Timeout:            settings.RequestTimeout,
			UserAgent:          settings.UserAgent,
			InsecureSkipVerify: settings.DisableSSLValidation,
			Username:           settings.Username,
			Password:           settings.Password,
			ProxyType:          settings.ProxyType,
			ProxyAddress:       settings.ProxyAddress,
			ProxyPort:          settings.ProxyPort,
		})
		if err != nil {
			return nil, goerr.Wrap(err, "failed to create HTTP client")
		}
		m.downloader = client
	}

	return m, nil
}

// RunID returns the identifier of this manager's run.
func (m *Manager) RunID() string {
	return m.runID
}

// Sources returns the flattened, ordered source list.
func (m *Manager) Sources() []string {
	return m.sources
}

// Metrics returns the recorder fed by this manager.
func (m *Manager) Metrics() *metrics.Recorder {
	return m.metrics
}

// State returns the current lifecycle stage.
func (m *Manager) State() State {
	return State(m.state.Load())
}

// GetProgress returns current download progress.
func (m *Manager) GetProgress() (received int64, filesFinished, filesTotal int32) {
	return m.receivedBytes.Load(), m.finishedFiles.Load(), m.totalFiles.Load()
}

// Run reads the manifest, plans and downloads missing packages.
//
// Per-package and per-source failures never abort the run; they end up as
// Failed outcomes in the summary. A manifest that cannot be read is logged
// and the run proceeds with no packages; the error is kept in the summary's
// ManifestErr. The returned error is non-nil only for fatal setup failures,
// such as an output directory that cannot be created.
func (m *Manager) Run(ctx context.Context) (*model.Summary, error) {
	defer m.state.Store(int32(StateCompleted))
	m.state.Store(int32(StatePlanning))

	m.progress(LevelVerbose, fmt.Sprintf("Run %s using %d source(s), %d parallel download(s)",
		m.runID, len(m.sources), m.settings.MaxConcurrentDownloads))
	m.progress(LevelInfo, fmt.Sprintf("Reading %s...", m.settings.ManifestPath))

	packages, manifestErr := manifest.Parse(m.settings.ManifestPath)
	if manifestErr != nil {
		m.progress(LevelError, fmt.Sprintf("Error: %v", manifestErr))
		packages = nil
	}

	plan, err := PlanDownloads(packages, m.settings.OutputDir)
	if err != nil {
		m.progress(LevelError, fmt.Sprintf("Error preparing output directory %s: %v", m.settings.OutputDir, err))
		return nil, goerr.Wrap(err, "failed to prepare output directory", goerr.V("dir", m.settings.OutputDir))
	}
	if plan.CreatedDir {
		m.progress(LevelInfo, fmt.Sprintf("Created output directory: %s", m.settings.OutputDir))
	}

	m.progress(LevelInfo, fmt.Sprintf("Found %d total packages. Need to download %d.",
		len(plan.Pending)+len(plan.Present), len(plan.Pending)))

	outcomes := make([]model.Outcome, 0, len(plan.Pending)+len(plan.Present))
	for _, ref := range plan.Present {
		m.progress(LevelVerbose, fmt.Sprintf("Skipping existing: %s", ref.FileName()))
		m.metrics.Package(model.StatusSkipped.String())
		outcomes = append(outcomes, model.Skipped(ref))
	}

	m.state.Store(int32(StateFetching))
	m.totalFiles.Store(int32(len(plan.Pending)))
	outcomes = append(outcomes, m.fetchAll(ctx, plan.Pending)...)

	summary := model.NewSummary(m.runID, outcomes)
	summary.ManifestErr = manifestErr
	m.progress(LevelInfo, "Download process completed.")
	if summary.HasFailures() {
		m.progress(LevelWarning, summary.String())
	} else {
		m.progress(LevelSuccess, summary.String())
	}
	if m.settings.LogFile != "" {
		m.progress(LevelInfo, fmt.Sprintf("Log file written to %s", m.settings.LogFile))
	}

	return summary, nil
}

// fetchAll runs one fetch per package with at most MaxConcurrentDownloads in
// flight. Every package gets an outcome, including those never started
// because ctx was cancelled.
func (m *Manager) fetchAll(ctx context.Context, pending []model.PackageRef) []model.Outcome {
	fetcher := NewFetcher(m.downloader, m.settings.OutputDir, m.metrics, m.onProgress, func(n int64) {
		m.receivedBytes.Add(n)
	})

	results := make([]model.Outcome, len(pending))
	started := make([]bool, len(pending))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(m.settings.MaxConcurrentDownloads)

	for i, ref := range pending {
		if gctx.Err() != nil {
			break
		}
		started[i] = true
		g.Go(func() error {
			results[i] = m.fetchOne(gctx, fetcher, ref)
			return nil // Continue with other packages
		})
	}

	g.Wait()

	for i, ref := range pending {
		if !started[i] {
			results[i] = model.Failed(ref, nil, ctx.Err())
			m.metrics.Package(model.StatusFailed.String())
			m.finishedFiles.Add(1)
		}
	}

	return results
}

func (m *Manager) fetchOne(ctx context.Context, fetcher *Fetcher, ref model.PackageRef) (out model.Outcome) {
	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			m.progress(LevelError, fmt.Sprintf("‼ %s (unexpected error: %v)", ref, r))
			out = model.Failed(ref, nil, goerr.New("panic during fetch", goerr.V("recover", r)))
		}
		m.metrics.ObserveFetch(time.Since(start))
		m.metrics.Package(out.Status.String())
		m.finishedFiles.Add(1)
	}()

	return fetcher.Fetch(ctx, ref, m.sources)
}

func (m *Manager) progress(level ProgressLevel, message string) {
	m.onProgress.emit(level, message)
}

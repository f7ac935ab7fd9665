package download

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/handiism/nupkg-downloader/internal/http"
	"github.com/handiism/nupkg-downloader/internal/metrics"
	"github.com/handiism/nupkg-downloader/internal/model"
	"github.com/m-mizutani/goerr/v2"
)

// flatContainerMarker identifies NuGet v3 flat container base URLs, such as
// https://api.nuget.org/v3-flatcontainer/.
const flatContainerMarker = "/v3-flatcontainer"

// Downloader streams one URL to a file. *http.Client implements it.
type Downloader interface {
	DownloadFile(ctx context.Context, url, destPath string, onProgress func(n, written, total int64)) (int64, error)
}

// Fetcher downloads a single package, trying sources in order.
type Fetcher struct {
	client     Downloader
	outputDir  string
	metrics    *metrics.Recorder
	onProgress ProgressFunc
	onBytes    func(n int64)
}

// NewFetcher creates a Fetcher writing into outputDir.
// recorder, onProgress and onBytes may be nil.
func NewFetcher(client Downloader, outputDir string, recorder *metrics.Recorder, onProgress ProgressFunc, onBytes func(n int64)) *Fetcher {
	return &Fetcher{
		client:     client,
		outputDir:  outputDir,
		metrics:    recorder,
		onProgress: onProgress,
		onBytes:    onBytes,
	}
}

// IsFlatContainer reports whether source is a flat-container style feed.
func IsFlatContainer(source string) bool {
	return strings.Contains(strings.ToLower(source), flatContainerMarker)
}

// PackageURL builds the download URL of ref on source.
//
// Flat container feeds use lower-cased ids:
//
//	{source}/{id}/{version}/{id}.{version}.nupkg
//
// Every other feed gets the v2 style path with the id as written:
//
//	{source}/{Id}/{version}
func PackageURL(source string, ref model.PackageRef) string {
	base := strings.TrimRight(source, "/")
	if IsFlatContainer(source) {
		id := strings.ToLower(ref.ID)
		return fmt.Sprintf("%s/%s/%s/%s.%s%s", base, id, ref.Version, id, ref.Version, model.PackageExt)
	}
	return fmt.Sprintf("%s/%s/%s", base, ref.ID, ref.Version)
}

// Fetch tries each source strictly in order until one serves the package.
//
// Sources after the first success are never contacted. When every source
// fails, the outcome lists all attempted sources and the last error. A
// cancelled ctx stops the loop before the next source is tried.
func (f *Fetcher) Fetch(ctx context.Context, ref model.PackageRef, sources []string) model.Outcome {
	start := time.Now()
	dest := filepath.Join(f.outputDir, ref.FileName())

	var (
		attempted []string
		lastErr   error
	)

	for _, source := range sources {
		if err := ctx.Err(); err != nil {
			lastErr = err
			break
		}

		attempted = append(attempted, source)
		f.onProgress.emit(LevelInfo, fmt.Sprintf("→ Checking %s for %s", source, ref))

		downloadURL := PackageURL(source, ref)
		f.onProgress.emit(LevelVerbose, fmt.Sprintf("  Attempting to download from URL: %s", downloadURL))

		n, err := f.client.DownloadFile(ctx, downloadURL, dest, f.chunk)
		if f.metrics != nil {
			f.metrics.SourceAttempt(source, err == nil)
		}
		if err == nil {
			if f.metrics != nil {
				f.metrics.Bytes(n)
			}
			f.onProgress.emit(LevelSuccess, fmt.Sprintf("✔ %s (downloaded from %s)", ref, source))
			return model.Downloaded(ref, source, n, time.Since(start))
		}

		lastErr = err
		f.reportFailure(ref, source, err)
	}

	if lastErr == nil {
		lastErr = goerr.New("no sources configured")
	}
	if ctx.Err() != nil {
		f.onProgress.emit(LevelWarning, fmt.Sprintf("‼ %s (cancelled)", ref))
	} else {
		f.onProgress.emit(LevelError, fmt.Sprintf("‼ %s (not found in any source)", ref))
	}

	out := model.Failed(ref, attempted, lastErr)
	out.Duration = time.Since(start)
	return out
}

func (f *Fetcher) chunk(n, _, _ int64) {
	if f.onBytes != nil {
		f.onBytes(n)
	}
}

func (f *Fetcher) reportFailure(ref model.PackageRef, source string, err error) {
	var statusErr *http.StatusError
	var urlErr *url.Error

	switch {
	case errors.As(err, &statusErr):
		f.onProgress.emit(LevelError, fmt.Sprintf("✖ %s (failed from %s: %d %s)", ref, source, statusErr.StatusCode, statusErr.Status))
		f.onProgress.emit(LevelVerbose, fmt.Sprintf("  Response Headers: %s", formatHeaders(statusErr)))
		if ct := statusErr.ContentType(); ct != "" {
			f.onProgress.emit(LevelVerbose, fmt.Sprintf("  Content-Type: %s", ct))
		}
	case errors.Is(err, context.Canceled):
		f.onProgress.emit(LevelWarning, fmt.Sprintf("✖ %s (cancelled while fetching from %s)", ref, source))
	case errors.As(err, &urlErr):
		f.onProgress.emit(LevelError, fmt.Sprintf("✖ %s (HTTP error from %s: %v)", ref, source, urlErr.Err))
		if inner := errors.Unwrap(urlErr.Err); inner != nil {
			f.onProgress.emit(LevelVerbose, fmt.Sprintf("  Inner error: %v", inner))
		}
	default:
		f.onProgress.emit(LevelError, fmt.Sprintf("✖ %s (error from %s: %v)", ref, source, err))
	}
}

func formatHeaders(e *http.StatusError) string {
	keys := make([]string, 0, len(e.Header))
	for k := range e.Header {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s: %s", k, strings.Join(e.Header[k], ", ")))
	}
	return strings.Join(parts, "; ")
}

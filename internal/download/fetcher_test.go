package download

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	nhttp "github.com/handiism/nupkg-downloader/internal/http"
	"github.com/handiism/nupkg-downloader/internal/metrics"
	"github.com/handiism/nupkg-downloader/internal/model"
	"github.com/m-mizutani/gt"
)

func TestPackageURL(t *testing.T) {
	ref := model.PackageRef{ID: "Newtonsoft.Json", Version: "13.0.1"}

	tests := []struct {
		source string
		want   string
	}{
		{
			source: "https://api.nuget.org/v3-flatcontainer/",
			want:   "https://api.nuget.org/v3-flatcontainer/newtonsoft.json/13.0.1/newtonsoft.json.13.0.1.nupkg",
		},
		{
			source: "https://API.NUGET.ORG/V3-FlatContainer",
			want:   "https://API.NUGET.ORG/V3-FlatContainer/newtonsoft.json/13.0.1/newtonsoft.json.13.0.1.nupkg",
		},
		{
			source: "https://mirror.example/nuget/v3-flatcontainer",
			want:   "https://mirror.example/nuget/v3-flatcontainer/newtonsoft.json/13.0.1/newtonsoft.json.13.0.1.nupkg",
		},
		{
			source: "https://private.example/feed",
			want:   "https://private.example/feed/Newtonsoft.Json/13.0.1",
		},
		{
			source: "https://private.example/feed//",
			want:   "https://private.example/feed/Newtonsoft.Json/13.0.1",
		},
	}

	for _, tt := range tests {
		t.Run(tt.source, func(t *testing.T) {
			gt.Equal(t, PackageURL(tt.source, ref), tt.want)
		})
	}
}

func TestFetcher_FallsBackInOrder(t *testing.T) {
	dir := t.TempDir()
	ref := model.PackageRef{ID: "Newtonsoft.Json", Version: "13.0.1"}
	sources := []string{
		"https://api.nuget.org/v3-flatcontainer/",
		"https://private.example/feed",
		"https://never.example/feed",
	}

	stub := &stubDownloader{respond: func(url string) (string, error) {
		if strings.HasPrefix(url, "https://private.example/") {
			return "nupkg", nil
		}
		return "", &nhttp.StatusError{URL: url, StatusCode: http.StatusNotFound, Status: "Not Found", Header: http.Header{}}
	}}
	events := &eventLog{}
	var bytes int64
	f := NewFetcher(stub, dir, metrics.NewRecorder(), events.record, func(n int64) { bytes += n })

	out := f.Fetch(context.Background(), ref, sources)

	gt.Equal(t, out.Status, model.StatusDownloaded)
	gt.Equal(t, out.Source, "https://private.example/feed")
	gt.Equal(t, out.Bytes, int64(5))
	gt.Equal(t, bytes, int64(5))
	gt.Equal(t, stub.Calls(), []string{
		"https://api.nuget.org/v3-flatcontainer/newtonsoft.json/13.0.1/newtonsoft.json.13.0.1.nupkg",
		"https://private.example/feed/Newtonsoft.Json/13.0.1",
	})

	data, err := os.ReadFile(filepath.Join(dir, "Newtonsoft.Json.13.0.1.nupkg"))
	gt.NoError(t, err)
	gt.Equal(t, string(data), "nupkg")

	gt.True(t, events.contains(LevelError, "failed from https://api.nuget.org/v3-flatcontainer/: 404"))
	gt.True(t, events.contains(LevelSuccess, "✔ Newtonsoft.Json.13.0.1 (downloaded from https://private.example/feed)"))
}

func TestFetcher_AllSourcesFail(t *testing.T) {
	dir := t.TempDir()
	ref := model.PackageRef{ID: "Ghost", Version: "0.0.1"}
	sources := []string{"https://a.example/feed", "https://b.example/feed"}

	lastErr := errors.New("connection refused")
	stub := &stubDownloader{respond: func(url string) (string, error) {
		if strings.HasPrefix(url, "https://a.example") {
			return "", errors.New("timeout")
		}
		return "", lastErr
	}}
	events := &eventLog{}
	f := NewFetcher(stub, dir, nil, events.record, nil)

	out := f.Fetch(context.Background(), ref, sources)

	gt.Equal(t, out.Status, model.StatusFailed)
	gt.Equal(t, out.Attempted, sources)
	gt.True(t, errors.Is(out.Err, lastErr))
	gt.True(t, events.contains(LevelError, "‼ Ghost.0.0.1 (not found in any source)"))

	entries, err := os.ReadDir(dir)
	gt.NoError(t, err)
	gt.Equal(t, len(entries), 0)
}

func TestFetcher_NoSources(t *testing.T) {
	f := NewFetcher(&stubDownloader{}, t.TempDir(), nil, nil, nil)

	out := f.Fetch(context.Background(), model.PackageRef{ID: "A", Version: "1.0.0"}, nil)
	gt.Equal(t, out.Status, model.StatusFailed)
	gt.Equal(t, len(out.Attempted), 0)
	gt.Error(t, out.Err)
}

func TestFetcher_CancelledBeforeStart(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	stub := &stubDownloader{respond: func(string) (string, error) { return "x", nil }}
	f := NewFetcher(stub, t.TempDir(), nil, nil, nil)

	out := f.Fetch(ctx, model.PackageRef{ID: "A", Version: "1.0.0"}, []string{"https://a.example"})
	gt.Equal(t, out.Status, model.StatusFailed)
	gt.True(t, errors.Is(out.Err, context.Canceled))
	gt.Equal(t, len(stub.Calls()), 0)
}

func TestFetcher_WithHTTPServers(t *testing.T) {
	var flatHits, v2Hits int
	flat := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		flatHits++
		gt.Equal(t, r.URL.Path, "/v3-flatcontainer/serilog/3.1.1/serilog.3.1.1.nupkg")
		w.Header().Set("Content-Type", "application/xml")
		http.NotFound(w, r)
	}))
	defer flat.Close()

	v2 := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		v2Hits++
		user, pass, ok := r.BasicAuth()
		gt.True(t, ok)
		gt.Equal(t, user, "ci")
		gt.Equal(t, pass, "secret")
		gt.Equal(t, r.URL.Path, "/api/v2/package/Serilog/3.1.1")
		w.Write([]byte("serilog-package"))
	}))
	defer v2.Close()

	client, err := nhttp.NewClient(nhttp.Options{Timeout: 5 * time.Second, Username: "ci", Password: "secret"})
	gt.NoError(t, err)

	dir := t.TempDir()
	f := NewFetcher(client, dir, nil, nil, nil)
	ref := model.PackageRef{ID: "Serilog", Version: "3.1.1"}

	out := f.Fetch(context.Background(), ref, []string{flat.URL + "/v3-flatcontainer/", v2.URL + "/api/v2/package"})
	gt.Equal(t, out.Status, model.StatusDownloaded)
	gt.Equal(t, out.Source, v2.URL+"/api/v2/package")
	gt.Equal(t, flatHits, 1)
	gt.Equal(t, v2Hits, 1)

	data, err := os.ReadFile(filepath.Join(dir, ref.FileName()))
	gt.NoError(t, err)
	gt.Equal(t, string(data), "serilog-package")
}

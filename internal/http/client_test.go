package http

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/m-mizutani/gt"
)

func TestClient_DownloadFile_Success(t *testing.T) {
	payload := []byte("fake nupkg content")
	var gotUA string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUA = r.Header.Get("User-Agent")
		w.WriteHeader(http.StatusOK)
		w.Write(payload)
	}))
	defer server.Close()

	client, err := NewClient(Options{Timeout: 5 * time.Second, UserAgent: "nupkg-test"})
	gt.NoError(t, err)

	dest := filepath.Join(t.TempDir(), "Foo.1.0.0.nupkg")
	var progressCalls int
	n, err := client.DownloadFile(context.Background(), server.URL+"/Foo/1.0.0", dest, func(chunk, written, total int64) {
		progressCalls++
	})
	gt.NoError(t, err)
	gt.Equal(t, n, int64(len(payload)))
	gt.Number(t, progressCalls).Greater(0)
	gt.Equal(t, gotUA, "nupkg-test")

	data, err := os.ReadFile(dest)
	gt.NoError(t, err)
	gt.Equal(t, string(data), string(payload))
}

func TestClient_DownloadFile_AcceptsAny2xx(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusAccepted)
		w.Write([]byte("ok"))
	}))
	defer server.Close()

	client, err := NewClient(Options{})
	gt.NoError(t, err)

	dest := filepath.Join(t.TempDir(), "A.1.0.0.nupkg")
	_, err = client.DownloadFile(context.Background(), server.URL, dest, nil)
	gt.NoError(t, err)

	_, err = os.Stat(dest)
	gt.NoError(t, err)
}

func TestClient_DownloadFile_StatusError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte("<html>missing</html>"))
	}))
	defer server.Close()

	client, err := NewClient(Options{})
	gt.NoError(t, err)

	dir := t.TempDir()
	dest := filepath.Join(dir, "Missing.1.0.0.nupkg")
	_, err = client.DownloadFile(context.Background(), server.URL, dest, nil)
	gt.Error(t, err)

	var se *StatusError
	gt.True(t, errors.As(err, &se))
	gt.Equal(t, se.StatusCode, http.StatusNotFound)
	gt.Equal(t, se.ContentType(), "text/html")

	entries, err := os.ReadDir(dir)
	gt.NoError(t, err)
	gt.Equal(t, len(entries), 0)
}

func TestClient_DownloadFile_TruncatedBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Length", "1000")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("short"))
	}))
	defer server.Close()

	client, err := NewClient(Options{})
	gt.NoError(t, err)

	dir := t.TempDir()
	_, err = client.DownloadFile(context.Background(), server.URL, filepath.Join(dir, "T.1.0.0.nupkg"), nil)
	gt.Error(t, err)

	entries, err := os.ReadDir(dir)
	gt.NoError(t, err)
	gt.Equal(t, len(entries), 0)
}

func TestClient_BasicAuth(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, pass, ok := r.BasicAuth()
		if !ok || user != "ci" || pass != "secret" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.Write([]byte("ok"))
	}))
	defer server.Close()

	dir := t.TempDir()

	anonymous, err := NewClient(Options{})
	gt.NoError(t, err)
	_, err = anonymous.DownloadFile(context.Background(), server.URL, filepath.Join(dir, "a.nupkg"), nil)
	var se *StatusError
	gt.True(t, errors.As(err, &se))
	gt.Equal(t, se.StatusCode, http.StatusUnauthorized)

	// Only one half of the credentials is never sent.
	halfCreds, err := NewClient(Options{Username: "ci"})
	gt.NoError(t, err)
	_, err = halfCreds.DownloadFile(context.Background(), server.URL, filepath.Join(dir, "b.nupkg"), nil)
	gt.Error(t, err)

	authed, err := NewClient(Options{Username: "ci", Password: "secret"})
	gt.NoError(t, err)
	_, err = authed.DownloadFile(context.Background(), server.URL, filepath.Join(dir, "c.nupkg"), nil)
	gt.NoError(t, err)
}

func TestClient_TLSValidation(t *testing.T) {
	server := httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	}))
	defer server.Close()

	dir := t.TempDir()

	strict, err := NewClient(Options{Timeout: 5 * time.Second})
	gt.NoError(t, err)
	_, err = strict.DownloadFile(context.Background(), server.URL, filepath.Join(dir, "strict.nupkg"), nil)
	gt.Error(t, err)

	insecure, err := NewClient(Options{Timeout: 5 * time.Second, InsecureSkipVerify: true})
	gt.NoError(t, err)
	_, err = insecure.DownloadFile(context.Background(), server.URL, filepath.Join(dir, "insecure.nupkg"), nil)
	gt.NoError(t, err)
}

func TestClient_Timeout(t *testing.T) {
	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer server.Close()
	defer close(release)

	client, err := NewClient(Options{Timeout: 50 * time.Millisecond})
	gt.NoError(t, err)

	_, err = client.DownloadFile(context.Background(), server.URL, filepath.Join(t.TempDir(), "slow.nupkg"), nil)
	gt.Error(t, err)
}

func TestNewClient_Proxy(t *testing.T) {
	tests := []struct {
		name    string
		opts    Options
		wantErr bool
	}{
		{name: "default", opts: Options{}},
		{name: "none", opts: Options{ProxyType: ProxyNone}},
		{name: "system", opts: Options{ProxyType: ProxySystem}},
		{name: "manual", opts: Options{ProxyType: ProxyManual, ProxyAddress: "proxy.local", ProxyPort: 3128}},
		{name: "manual without port", opts: Options{ProxyType: ProxyManual, ProxyAddress: "proxy.local"}, wantErr: true},
		{name: "unknown", opts: Options{ProxyType: "socks"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client, err := NewClient(tt.opts)
			if tt.wantErr {
				gt.Error(t, err)
				return
			}
			gt.NoError(t, err)
			gt.V(t, client).NotNil()
		})
	}
}

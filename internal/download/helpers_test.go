package download

import (
	"context"
	"os"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

// stubDownloader answers DownloadFile from a function keyed on the URL.
type stubDownloader struct {
	mu      sync.Mutex
	calls   []string
	respond func(url string) (string, error)
	delay   time.Duration

	inFlight    atomic.Int32
	maxInFlight atomic.Int32
}

func (s *stubDownloader) DownloadFile(ctx context.Context, url, destPath string, onProgress func(n, written, total int64)) (int64, error) {
	s.mu.Lock()
	s.calls = append(s.calls, url)
	s.mu.Unlock()

	cur := s.inFlight.Add(1)
	defer s.inFlight.Add(-1)
	for {
		peak := s.maxInFlight.Load()
		if cur <= peak || s.maxInFlight.CompareAndSwap(peak, cur) {
			break
		}
	}

	if s.delay > 0 {
		select {
		case <-time.After(s.delay):
		case <-ctx.Done():
			return 0, ctx.Err()
		}
	}

	body, err := s.respond(url)
	if err != nil {
		return 0, err
	}
	if err := os.WriteFile(destPath, []byte(body), 0644); err != nil {
		return 0, err
	}
	n := int64(len(body))
	if onProgress != nil {
		onProgress(n, n, n)
	}
	return n, nil
}

func (s *stubDownloader) Calls() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.calls...)
}

// eventLog collects progress events from concurrent workers.
type eventLog struct {
	mu     sync.Mutex
	events []ProgressEvent
}

func (l *eventLog) record(e ProgressEvent) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.events = append(l.events, e)
}

func (l *eventLog) contains(level ProgressLevel, substr string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, e := range l.events {
		if e.Level == level && strings.Contains(e.Message, substr) {
			return true
		}
	}
	return false
}

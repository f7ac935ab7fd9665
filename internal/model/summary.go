package model

import (
	"fmt"

	"go.uber.org/multierr"
)

// Summary aggregates the outcomes of one run.
type Summary struct {
	// RunID identifies the run in logs and metrics.
	RunID string

	// Outcomes holds one entry per requested package, in no particular order.
	Outcomes []Outcome

	Total      int
	Downloaded int
	Skipped    int
	Failed     int
	Bytes      int64

	// ManifestErr is set when the manifest could not be read. The run then
	// has no outcomes.
	ManifestErr error
}

// NewSummary counts outcomes into a Summary.
func NewSummary(runID string, outcomes []Outcome) *Summary {
	s := &Summary{RunID: runID, Outcomes: outcomes, Total: len(outcomes)}
	for _, o := range outcomes {
		switch o.Status {
		case StatusDownloaded:
			s.Downloaded++
			s.Bytes += o.Bytes
		case StatusSkipped:
			s.Skipped++
		case StatusFailed:
			s.Failed++
		}
	}
	return s
}

// Attempted returns the number of packages that needed a download.
func (s *Summary) Attempted() int {
	return s.Downloaded + s.Failed
}

// HasFailures reports whether any package ended Failed.
func (s *Summary) HasFailures() bool {
	return s.Failed > 0
}

// Err combines the errors of all failed packages, or returns nil.
func (s *Summary) Err() error {
	var err error
	for _, o := range s.Outcomes {
		if o.Status == StatusFailed {
			err = multierr.Append(err, fmt.Errorf("%s: %w", o.Package, o.Err))
		}
	}
	return err
}

// String returns the one-line run summary.
func (s *Summary) String() string {
	return fmt.Sprintf("%d package(s): %d attempted, %d downloaded, %d skipped, %d failed (%.2f MB)",
		s.Total, s.Attempted(), s.Downloaded, s.Skipped, s.Failed, float64(s.Bytes)/1024/1024)
}

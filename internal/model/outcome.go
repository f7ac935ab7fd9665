package model

import (
	"fmt"
	"strings"
	"time"
)

// Status is the terminal state of one package after a run.
type Status int

const (
	StatusDownloaded Status = iota
	StatusSkipped
	StatusFailed
)

// String returns a lowercase label used in logs and metrics.
func (s Status) String() string {
	switch s {
	case StatusDownloaded:
		return "downloaded"
	case StatusSkipped:
		return "skipped"
	case StatusFailed:
		return "failed"
	}
	return "unknown"
}

// ReasonAlreadyPresent is the Reason recorded for skipped packages.
const ReasonAlreadyPresent = "already present"

// Outcome is the record produced for one package.
//
// Which fields are meaningful depends on Status:
//   - StatusDownloaded: Source, Bytes, Duration
//   - StatusSkipped: Reason
//   - StatusFailed: Attempted (in order) and Err, the last error observed
type Outcome struct {
	Package PackageRef
	Status  Status

	Source    string
	Reason    string
	Attempted []string
	Err       error

	Bytes    int64
	Duration time.Duration
}

// Downloaded builds a success outcome.
func Downloaded(ref PackageRef, source string, bytes int64, d time.Duration) Outcome {
	return Outcome{Package: ref, Status: StatusDownloaded, Source: source, Bytes: bytes, Duration: d}
}

// Skipped builds an outcome for a package already present on disk.
func Skipped(ref PackageRef) Outcome {
	return Outcome{Package: ref, Status: StatusSkipped, Reason: ReasonAlreadyPresent}
}

// Failed builds an outcome for a package that no source could serve.
func Failed(ref PackageRef, attempted []string, err error) Outcome {
	return Outcome{Package: ref, Status: StatusFailed, Attempted: attempted, Err: err}
}

// String renders the outcome as a single human readable line.
func (o Outcome) String() string {
	switch o.Status {
	case StatusDownloaded:
		return fmt.Sprintf("%s (downloaded from %s)", o.Package, o.Source)
	case StatusSkipped:
		return fmt.Sprintf("%s (skipped: %s)", o.Package, o.Reason)
	default:
		if len(o.Attempted) == 0 {
			return fmt.Sprintf("%s (failed: %v)", o.Package, o.Err)
		}
		return fmt.Sprintf("%s (failed after %s: %v)", o.Package, strings.Join(o.Attempted, ", "), o.Err)
	}
}

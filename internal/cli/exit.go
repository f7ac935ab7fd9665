package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/handiism/nupkg-downloader/internal/model"
	"github.com/m-mizutani/goerr/v2"
)

// Process exit codes.
const (
	ExitOK        = 0
	ExitFatal     = 1 // setup failure, unreadable manifest or invalid flags
	ExitFailures  = 2 // at least one package failed
	ExitCancelled = 130
)

// ExitError signals a non-zero exit code without forcing os.Exit in RunE handlers.
type ExitError struct {
	Code int
	Err  error
}

// Error returns the error message for ExitError.
func (e *ExitError) Error() string {
	if e.Err != nil {
		return e.Err.Error()
	}
	return fmt.Sprintf("exit status %d", e.Code)
}

// Unwrap returns the underlying error, if any.
func (e *ExitError) Unwrap() error {
	return e.Err
}

// ExitCode returns the process exit code for an error returned by a command.
func ExitCode(err error) int {
	if err == nil {
		return ExitOK
	}
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	return ExitFatal
}

// ExitFor maps the result of a run to the error the command returns. A run
// counts as cancelled when ctx is done or when err is context.Canceled, which
// is how a front-end reports a cancellation of its own.
func ExitFor(ctx context.Context, summary *model.Summary, err error) error {
	switch {
	case errors.Is(err, context.Canceled):
		return &ExitError{Code: ExitCancelled, Err: goerr.Wrap(err, "download cancelled")}
	case err != nil:
		return &ExitError{Code: ExitFatal, Err: err}
	case summary == nil:
		return nil
	case summary.ManifestErr != nil:
		return &ExitError{Code: ExitFatal, Err: summary.ManifestErr}
	case ctx.Err() != nil:
		return &ExitError{Code: ExitCancelled, Err: goerr.Wrap(ctx.Err(), "download cancelled")}
	case summary.HasFailures():
		return &ExitError{Code: ExitFailures, Err: goerr.Wrap(summary.Err(), "some packages failed",
			goerr.V("failed", summary.Failed))}
	}
	return nil
}

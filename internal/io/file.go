// Package ioutils provides file system utilities for the nupkg-downloader.
//
// This package contains functions for:
//   - Directory creation
//   - Package presence checks
//   - Writing downloads through a temporary file that is only renamed into
//     place once complete
package ioutils

import (
	"errors"
	"io"
	"os"
	"path/filepath"

	"github.com/m-mizutani/goerr/v2"
)

// PartialSuffix marks in-progress downloads in the output directory.
const PartialSuffix = ".part"

// EnsureDir creates a directory and all parent directories if they don't exist.
//
// Directories are created with mode 0755 (rwxr-xr-x).
// It reports whether the directory had to be created.
//
// Example:
//
//	created, err := EnsureDir("/build/packages")
func EnsureDir(path string) (bool, error) {
	info, err := os.Stat(path)
	if err == nil {
		if !info.IsDir() {
			return false, goerr.New("path exists and is not a directory", goerr.V("path", path))
		}
		return false, nil
	}
	if !errors.Is(err, os.ErrNotExist) {
		return false, goerr.Wrap(err, "failed to stat directory", goerr.V("path", path))
	}

	if err := os.MkdirAll(path, 0755); err != nil {
		return false, goerr.Wrap(err, "failed to create directory", goerr.V("path", path))
	}
	return true, nil
}

// FileExists reports whether path names an existing regular file.
// Directories and unreadable paths count as absent.
func FileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}

// AtomicFile is a destination file written through a temporary sibling.
//
// Nothing appears at the destination path until Commit succeeds, so a
// crashed or cancelled transfer never leaves a file that looks complete.
//
// Example:
//
//	f, err := CreateAtomic("/packages/Foo.1.0.0.nupkg")
//	if err != nil {
//	    return err
//	}
//	defer f.Abort()
//	if _, err := io.Copy(f, body); err != nil {
//	    return err
//	}
//	return f.Commit()
type AtomicFile struct {
	file *os.File
	dest string
	done bool
}

// CreateAtomic opens a temporary file next to dest.
func CreateAtomic(dest string) (*AtomicFile, error) {
	dir, name := filepath.Split(dest)
	if dir == "" {
		dir = "."
	}

	f, err := os.CreateTemp(dir, name+".*"+PartialSuffix)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create temporary file", goerr.V("dest", dest))
	}
	return &AtomicFile{file: f, dest: dest}, nil
}

// Write implements io.Writer.
func (a *AtomicFile) Write(p []byte) (int, error) {
	return a.file.Write(p)
}

// ReadFrom lets io.Copy use the underlying file's fast paths.
func (a *AtomicFile) ReadFrom(r io.Reader) (int64, error) {
	return a.file.ReadFrom(r)
}

// Name returns the temporary file path.
func (a *AtomicFile) Name() string {
	return a.file.Name()
}

// Commit closes the temporary file and renames it onto the destination,
// replacing any existing file.
func (a *AtomicFile) Commit() error {
	if a.done {
		return goerr.New("atomic file already finished", goerr.V("dest", a.dest))
	}
	a.done = true

	if err := a.file.Close(); err != nil {
		os.Remove(a.file.Name())
		return goerr.Wrap(err, "failed to close temporary file", goerr.V("dest", a.dest))
	}
	if err := os.Rename(a.file.Name(), a.dest); err != nil {
		os.Remove(a.file.Name())
		return goerr.Wrap(err, "failed to move download into place", goerr.V("dest", a.dest))
	}
	return nil
}

// Abort discards the temporary file. It is a no-op after Commit.
func (a *AtomicFile) Abort() {
	if a.done {
		return
	}
	a.done = true
	a.file.Close()
	os.Remove(a.file.Name())
}

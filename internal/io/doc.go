// Package ioutils provides file system utilities for the output directory.
//
// # Directories
//
//	created, err := ioutils.EnsureDir("/build/packages")
//
// # Presence checks
//
//	if ioutils.FileExists(filepath.Join(dir, ref.FileName())) {
//	    // already downloaded
//	}
//
// # Atomic writes
//
// Downloads are streamed into a "<name>.*.part" file and renamed onto the
// final name only after the body has been fully written:
//
//	f, _ := ioutils.CreateAtomic(dest)
//	defer f.Abort()
//	io.Copy(f, body)
//	f.Commit()
package ioutils

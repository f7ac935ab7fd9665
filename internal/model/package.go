package model

import "fmt"

// PackageExt is the file extension of a NuGet package archive.
const PackageExt = ".nupkg"

// PackageRef identifies one package version listed in a manifest.
//
// Identity is the (ID, Version) pair. ID is kept exactly as written in the
// manifest; only the flat-container URL shape lower-cases it.
//
// Example:
//
//	ref := model.PackageRef{ID: "Newtonsoft.Json", Version: "13.0.1"}
//	ref.FileName() // "Newtonsoft.Json.13.0.1.nupkg"
type PackageRef struct {
	// ID is the package identifier (the Include attribute).
	ID string

	// Version is the resolved version string.
	Version string
}

// String returns "{id}.{version}".
func (p PackageRef) String() string {
	return fmt.Sprintf("%s.%s", p.ID, p.Version)
}

// FileName returns the name the package is stored under in the output directory.
func (p PackageRef) FileName() string {
	return p.String() + PackageExt
}

// Package model defines the core data structures used throughout
// the nupkg-downloader application.
//
// # PackageRef
//
// PackageRef is one package version listed in a manifest:
//
//	ref := model.PackageRef{ID: "Serilog", Version: "3.1.1"}
//	fmt.Println(ref.FileName()) // Serilog.3.1.1.nupkg
//
// # Outcome
//
// Every requested package ends a run with exactly one Outcome, built with
// Downloaded, Skipped or Failed:
//
//	o := model.Failed(ref, []string{"https://a/v3-flatcontainer"}, err)
//	fmt.Println(o) // Serilog.3.1.1 (failed after https://a/v3-flatcontainer: ...)
//
// # Summary
//
// Summary counts the outcomes of a run:
//
//	s := model.NewSummary(runID, outcomes)
//	if s.HasFailures() {
//	    return s.Err() // all failures combined
//	}
package model

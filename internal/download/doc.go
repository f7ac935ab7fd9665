// Package download provides the download orchestration logic for
// fetching NuGet packages listed in a manifest.
//
// # Manager
//
// The Manager coordinates the entire download process:
//
//  1. Parse the manifest
//  2. Create the output directory and skip packages already present
//  3. Fetch missing packages concurrently
//  4. Summarize outcomes
//
// # Basic Usage
//
//	manager, err := download.NewManager(settings, func(event download.ProgressEvent) {
//	    fmt.Println(event.Message)
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	summary, err := manager.Run(ctx)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(summary)
//
// # Concurrency
//
// At most settings.MaxConcurrentDownloads packages are fetched at once. Each
// package is one unit of work; its sources are always tried one after the
// other, never in parallel.
//
// # Sources
//
// A Fetcher tries sources in the order given and stops at the first 2xx
// response. There are no retries beyond that fallback.
//
// # Progress Tracking
//
// Progress is reported via a callback function that receives ProgressEvent:
//
//	type ProgressEvent struct {
//	    Message string
//	    Level   ProgressLevel // Info, Verbose, Warning, Error, Success
//	}
//
// The callback is invoked from several goroutines at once.
package download

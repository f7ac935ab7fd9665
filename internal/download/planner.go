package download

import (
	"path/filepath"

	ioutils "github.com/handiism/nupkg-downloader/internal/io"
	"github.com/handiism/nupkg-downloader/internal/model"
)

// Plan splits manifest packages into those that need a download and those
// already present in the output directory.
type Plan struct {
	// Pending is the work set. Order is not significant.
	Pending []model.PackageRef

	// Present holds packages whose file already exists.
	Present []model.PackageRef

	// CreatedDir is true when the output directory did not exist before planning.
	CreatedDir bool
}

// PlanDownloads creates outputDir if needed and checks which packages
// already have a file named exactly "{id}.{version}.nupkg" in it.
//
// Presence alone is enough; file contents are not inspected. Duplicate
// references are planned once. An error means the output directory could
// not be created and the run cannot continue.
func PlanDownloads(packages []model.PackageRef, outputDir string) (*Plan, error) {
	created, err := ioutils.EnsureDir(outputDir)
	if err != nil {
		return nil, err
	}

	plan := &Plan{CreatedDir: created}
	seen := make(map[model.PackageRef]struct{}, len(packages))
	for _, ref := range packages {
		if _, dup := seen[ref]; dup {
			continue
		}
		seen[ref] = struct{}{}

		if ioutils.FileExists(filepath.Join(outputDir, ref.FileName())) {
			plan.Present = append(plan.Present, ref)
		} else {
			plan.Pending = append(plan.Pending, ref)
		}
	}

	return plan, nil
}

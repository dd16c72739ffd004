package audit

import (
	"sort"

	"github.com/emberhq/kilnd/internal/manifest"
)

// The outcome of auditing an image archive. An empty Violations list means
// the image satisfies its recipe's runtime contract.
type Report struct {
	Violations []string
}

// Returns true when no violations were found.
func (r *Report) Clean() bool {
	return len(r.Violations) == 0
}

// Audits an exported image archive against the recipe that produced it.
//
// The archive is unpacked and inspected statically. Violations describe
// contract breaches; an error means the archive itself could not be read.
func Verify(archive string, recipe *manifest.Recipe) (*Report, error) {
	stage := recipe.Exported()
	if stage == nil {
		return nil, ErrNoExportStage
	}

	img, cleanup, err := openArchive(archive)
	if err != nil {
		return nil, err
	}
	defer cleanup()

	files, err := layerFiles(img.layers)
	if err != nil {
		return nil, err
	}

	report := &Report{}
	report.Violations = append(report.Violations, checkConfig(&img.config, stage)...)
	report.Violations = append(report.Violations, checkFiles(files, prunePatterns(recipe))...)
	sort.Strings(report.Violations)

	return report, nil
}

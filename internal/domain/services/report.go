package services

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/ochairo/jarfetch/internal/domain/entities"
)

// Summarize counts outcomes and cross-checks them against the destination.
// The disk scan is independent of results: it counts regular files whose
// names belong to the provisioned entries.
func Summarize(runID, destination string, results []entities.ProvisioningResult) (*entities.Report, error) {
	report := &entities.Report{
		RunID:       runID,
		Destination: destination,
		Results:     results,
		Counts:      make(map[entities.Outcome]int),
	}

	names := make(map[string]struct{}, len(results))
	for _, res := range results {
		report.Counts[res.Outcome]++
		if res.Outcome == entities.OutcomeDownloaded {
			report.BytesTransferred += res.Size()
		}
		names[res.Entry.Filename()] = struct{}{}
	}

	present, err := CountPresent(destination, names)
	if err != nil {
		return report, err
	}
	report.PresentOnDisk = present
	report.Consistent = present == report.Present()

	return report, nil
}

// CountPresent counts regular files in dir whose names are in names.
// Symlinks are followed, matching the provisioner's existence check.
func CountPresent(dir string, names map[string]struct{}) (int, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return 0, fmt.Errorf("failed to read destination directory: %w", err)
	}

	count := 0
	for _, entry := range entries {
		if _, ok := names[entry.Name()]; !ok {
			continue
		}
		info, err := os.Stat(filepath.Join(dir, entry.Name()))
		if err != nil || !info.Mode().IsRegular() {
			continue
		}
		count++
	}

	return count, nil
}

// Package orchestrators coordinates complex workflows across multiple domain services.
package orchestrators

import (
	"context"
	"fmt"
	"time"

	"github.com/ochairo/jarfetch/internal/domain/entities"
	"github.com/ochairo/jarfetch/internal/domain/interfaces"
	"github.com/ochairo/jarfetch/internal/domain/interfaces/gateways"
	"github.com/ochairo/jarfetch/internal/domain/interfaces/repositories"
	"github.com/ochairo/jarfetch/internal/domain/services"
	"github.com/ochairo/jarfetch/internal/metrics"
)

// Provisioner interface for placing manifest artifacts into a destination
type Provisioner interface {
	Provision(ctx context.Context, destination string, manifest []entities.ManifestEntry) ([]entities.ProvisioningResult, error)
}

// ProvisionOrchestrator coordinates the complete provisioning workflow
type ProvisionOrchestrator struct {
	manifestRepo repositories.ManifestRepository
	provisioner  Provisioner
	mirror       gateways.ArtifactMirror
	recorder     metrics.Recorder
	logger       interfaces.Logger
	runID        string
}

// ProvisionOrchestratorConfig holds configuration for the orchestrator
type ProvisionOrchestratorConfig struct {
	RunID string

	// Mirror is optional; nil disables mirroring
	Mirror gateways.ArtifactMirror

	// Recorder is optional; nil discards metrics
	Recorder metrics.Recorder
}

// NewProvisionOrchestrator creates a new provision orchestrator
func NewProvisionOrchestrator(
	manifestRepo repositories.ManifestRepository,
	provisioner Provisioner,
	logger interfaces.Logger,
	config ProvisionOrchestratorConfig,
) *ProvisionOrchestrator {
	if logger == nil {
		logger = &interfaces.NoOpLogger{}
	}

	var recorder metrics.Recorder = metrics.NoOpRecorder{}
	if config.Recorder != nil {
		recorder = config.Recorder
	}

	return &ProvisionOrchestrator{
		manifestRepo: manifestRepo,
		provisioner:  provisioner,
		mirror:       config.Mirror,
		recorder:     recorder,
		logger:       logger,
		runID:        config.RunID,
	}
}

// MirrorResult is the outcome of mirroring one present artifact
type MirrorResult struct {
	Entry    entities.ManifestEntry
	Uploaded bool
	Err      error
}

// ProvisionResult contains the result of a provisioning run
type ProvisionResult struct {
	RunID         string
	Manifest      *entities.Manifest
	Report        *entities.Report
	Mirror        []MirrorResult
	TotalDuration time.Duration
}

// Provision loads the manifest, provisions it into destination, mirrors
// present artifacts, and cross-checks the destination.
// Only a missing destination, an unusable destination, or an unreadable
// manifest return an error; individual artifact failures are in the report.
func (o *ProvisionOrchestrator) Provision(ctx context.Context, destination string) (*ProvisionResult, error) {
	startTime := time.Now()
	result := &ProvisionResult{RunID: o.runID}

	if destination == "" {
		return result, services.ErrMissingArgument
	}

	// Step 1: Load manifest
	manifest, err := o.manifestRepo.GetManifest(ctx)
	if err != nil {
		return result, fmt.Errorf("failed to load manifest: %w", err)
	}
	result.Manifest = manifest

	o.logger.Info("provisioning artifacts",
		interfaces.F("run_id", o.runID),
		interfaces.F("manifest", manifest.Name),
		interfaces.F("artifacts", len(manifest.Entries)),
		interfaces.F("destination", destination))

	// Step 2: Provision
	results, err := o.provisioner.Provision(ctx, destination, manifest.Entries)
	if err != nil {
		return result, err
	}
	for _, res := range results {
		o.recorder.RecordArtifact(res)
	}

	// Step 3: Mirror (best-effort)
	if o.mirror != nil {
		result.Mirror = o.mirrorPresent(ctx, results)
	}

	// Step 4: Cross-check the destination
	report, err := services.Summarize(o.runID, destination, results)
	if err != nil {
		return result, fmt.Errorf("failed to summarize destination: %w", err)
	}
	result.Report = report
	if !report.Consistent {
		o.logger.Warn("destination does not match run results",
			interfaces.F("present_on_disk", report.PresentOnDisk),
			interfaces.F("present_in_results", report.Present()))
	}

	result.TotalDuration = time.Since(startTime)
	o.recorder.RecordRun(report, result.TotalDuration)

	return result, nil
}

func (o *ProvisionOrchestrator) mirrorPresent(ctx context.Context, results []entities.ProvisioningResult) []MirrorResult {
	var mirrored []MirrorResult
	for _, res := range results {
		if !res.Outcome.IsPresent() {
			continue
		}

		uploaded, err := o.mirror.MirrorArtifact(ctx, res.Entry, res.Path)
		o.recorder.RecordMirror(uploaded, err)
		if err != nil {
			o.logger.Warn("failed to mirror artifact",
				interfaces.F("artifact", res.Entry.Coordinate.String()),
				interfaces.F("error", err.Error()))
		}
		mirrored = append(mirrored, MirrorResult{Entry: res.Entry, Uploaded: uploaded, Err: err})
	}
	return mirrored
}

// MirrorCounts returns uploaded, skipped and failed mirror operations
func (r *ProvisionResult) MirrorCounts() (uploaded, skipped, failed int) {
	for _, m := range r.Mirror {
		switch {
		case m.Err != nil:
			failed++
		case m.Uploaded:
			uploaded++
		default:
			skipped++
		}
	}
	return uploaded, skipped, failed
}

// GetSummary returns a human-readable summary of the run
func (r *ProvisionResult) GetSummary() string {
	if r.Report == nil {
		return "Provisioning did not complete"
	}

	rep := r.Report
	summary := fmt.Sprintf(`Provisioning complete
Destination: %s
Downloaded: %d
Already present: %d
Failed: %d
Present on disk: %d/%d`,
		rep.Destination,
		rep.Counts[entities.OutcomeDownloaded],
		rep.Counts[entities.OutcomeAlreadyPresent],
		rep.Counts[entities.OutcomeFailed],
		rep.PresentOnDisk,
		len(rep.Results),
	)

	if len(r.Mirror) > 0 {
		uploaded, skipped, failed := r.MirrorCounts()
		summary += fmt.Sprintf("\nMirror: %d uploaded, %d unchanged, %d failed", uploaded, skipped, failed)
	}

	if !rep.Consistent {
		summary += "\nWarning: destination contents differ from run results"
	}

	return summary
}

package orchestrators

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/ochairo/jarfetch/internal/domain/entities"
	"github.com/ochairo/jarfetch/internal/domain/interfaces"
	"github.com/ochairo/jarfetch/internal/domain/interfaces/gateways"
	"github.com/ochairo/jarfetch/internal/domain/interfaces/repositories"
	"github.com/ochairo/jarfetch/internal/domain/services"
)

// VerifyStatus is the verification state of one manifest entry
type VerifyStatus string

const (
	VerifyStatusVerified VerifyStatus = "verified"
	VerifyStatusMissing  VerifyStatus = "missing"
	VerifyStatusInvalid  VerifyStatus = "invalid"
)

// VerifyOrchestrator checks artifacts already present in a destination
// without downloading any of them
type VerifyOrchestrator struct {
	manifestRepo repositories.ManifestRepository
	verifiers    []gateways.ArtifactVerifier
	logger       interfaces.Logger
}

// NewVerifyOrchestrator creates a new verify orchestrator
func NewVerifyOrchestrator(
	manifestRepo repositories.ManifestRepository,
	verifiers []gateways.ArtifactVerifier,
	logger interfaces.Logger,
) *VerifyOrchestrator {
	if logger == nil {
		logger = &interfaces.NoOpLogger{}
	}
	return &VerifyOrchestrator{
		manifestRepo: manifestRepo,
		verifiers:    verifiers,
		logger:       logger,
	}
}

// ArtifactVerification is the verification result of one manifest entry
type ArtifactVerification struct {
	Entry  entities.ManifestEntry
	Path   string
	Status VerifyStatus
	Err    error
}

// VerifyWorkflowResult contains the verification results in manifest order
type VerifyWorkflowResult struct {
	Destination      string
	Results          []ArtifactVerification
	WorkflowDuration time.Duration
}

// VerifyDestination runs every verifier against each manifest file in destination.
// The destination must already exist; it is never created or modified.
func (o *VerifyOrchestrator) VerifyDestination(ctx context.Context, destination string) (*VerifyWorkflowResult, error) {
	startTime := time.Now()

	if destination == "" {
		return nil, services.ErrMissingArgument
	}

	info, err := os.Stat(destination)
	if err != nil {
		return nil, &services.DestinationError{Path: destination, Err: err}
	}
	if !info.IsDir() {
		return nil, &services.DestinationError{Path: destination, Err: errors.New("not a directory")}
	}

	manifest, err := o.manifestRepo.GetManifest(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load manifest: %w", err)
	}

	result := &VerifyWorkflowResult{Destination: destination}
	for _, entry := range manifest.Entries {
		result.Results = append(result.Results, o.verifyEntry(ctx, destination, entry))
	}

	result.WorkflowDuration = time.Since(startTime)
	return result, nil
}

func (o *VerifyOrchestrator) verifyEntry(ctx context.Context, destination string, entry entities.ManifestEntry) ArtifactVerification {
	path := filepath.Join(destination, entry.Filename())
	check := ArtifactVerification{Entry: entry, Path: path}

	if _, err := os.Stat(path); err != nil {
		check.Status = VerifyStatusMissing
		if !errors.Is(err, fs.ErrNotExist) {
			check.Err = err
		}
		return check
	}

	for _, v := range o.verifiers {
		if err := v.VerifyArtifact(ctx, entry, path); err != nil {
			o.logger.Warn("artifact failed verification",
				interfaces.F("artifact", entry.Coordinate.String()),
				interfaces.F("error", err.Error()))
			check.Status = VerifyStatusInvalid
			check.Err = err
			return check
		}
	}

	check.Status = VerifyStatusVerified
	return check
}

// Count returns the number of results with the given status
func (r *VerifyWorkflowResult) Count(status VerifyStatus) int {
	n := 0
	for _, res := range r.Results {
		if res.Status == status {
			n++
		}
	}
	return n
}

// OK reports whether every manifest artifact is present and valid
func (r *VerifyWorkflowResult) OK() bool {
	return r.Count(VerifyStatusVerified) == len(r.Results)
}

// GetSummary generates a human-readable verification summary
func (r *VerifyWorkflowResult) GetSummary() string {
	status := "✅ PASSED"
	if !r.OK() {
		status = "❌ FAILED"
	}

	summary := fmt.Sprintf("%s: %d/%d artifacts verified\n", status, r.Count(VerifyStatusVerified), len(r.Results))
	summary += fmt.Sprintf("   Missing: %d\n", r.Count(VerifyStatusMissing))
	summary += fmt.Sprintf("   Invalid: %d\n", r.Count(VerifyStatusInvalid))
	summary += fmt.Sprintf("   Duration: %v", r.WorkflowDuration)

	return summary
}

// Package services implements the artifact provisioning domain logic.
package services

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/ochairo/jarfetch/internal/domain/entities"
	"github.com/ochairo/jarfetch/internal/domain/interfaces"
	"github.com/ochairo/jarfetch/internal/domain/interfaces/gateways"
)

// PartSuffix marks in-flight downloads inside the destination directory
const PartSuffix = entities.PartSuffix

// ProgressFunc is called once per entry when it reaches a terminal outcome
type ProgressFunc func(result entities.ProvisioningResult, total int)

// ProvisionerConfig holds optional provisioner behavior
type ProvisionerConfig struct {
	// Concurrency is the number of parallel downloads; values below 2 mean sequential
	Concurrency int

	// CacheValidator, when set, checks files that already exist before trusting them
	CacheValidator gateways.ArtifactVerifier

	// Progress receives terminal results as they happen
	Progress ProgressFunc
}

// Provisioner ensures manifest artifacts exist in a destination directory
type Provisioner struct {
	fetcher        gateways.Fetcher
	verifiers      []gateways.ArtifactVerifier
	cacheValidator gateways.ArtifactVerifier
	logger         interfaces.Logger
	concurrency    int

	progressMu sync.Mutex
	progress   ProgressFunc
}

// NewProvisioner creates a new provisioner.
// verifiers run against each downloaded file before it is moved into place.
func NewProvisioner(
	fetcher gateways.Fetcher,
	verifiers []gateways.ArtifactVerifier,
	logger interfaces.Logger,
	config ProvisionerConfig,
) *Provisioner {
	if logger == nil {
		logger = &interfaces.NoOpLogger{}
	}

	concurrency := config.Concurrency
	if concurrency < 1 {
		concurrency = 1
	}

	return &Provisioner{
		fetcher:        fetcher,
		verifiers:      verifiers,
		cacheValidator: config.CacheValidator,
		logger:         logger,
		concurrency:    concurrency,
		progress:       config.Progress,
	}
}

// Provision makes sure every manifest entry exists under destination.
// The returned results are in manifest order. Per-entry failures are
// recorded as Failed results; only destination problems return an error.
func (p *Provisioner) Provision(ctx context.Context, destination string, manifest []entities.ManifestEntry) ([]entities.ProvisioningResult, error) {
	if destination == "" {
		return nil, ErrMissingArgument
	}

	if err := PrepareDestination(destination); err != nil {
		return nil, err
	}

	p.removeStaleParts(destination, manifest)

	total := len(manifest)
	results := make([]entities.ProvisioningResult, total)

	if p.concurrency == 1 {
		for i, entry := range manifest {
			results[i] = p.provisionEntry(ctx, destination, i, entry)
			p.notify(results[i], total)
		}
		return results, nil
	}

	var g errgroup.Group
	g.SetLimit(p.concurrency)
	for i, entry := range manifest {
		i, entry := i, entry
		g.Go(func() error {
			results[i] = p.provisionEntry(ctx, destination, i, entry)
			p.notify(results[i], total)
			return nil
		})
	}
	_ = g.Wait()

	return results, nil
}

// PrepareDestination creates the destination directory and checks it is writable
func PrepareDestination(destination string) error {
	if destination == "" {
		return ErrMissingArgument
	}

	if err := os.MkdirAll(destination, 0750); err != nil {
		return &DestinationError{Path: destination, Err: err}
	}

	info, err := os.Stat(destination)
	if err != nil {
		return &DestinationError{Path: destination, Err: err}
	}
	if !info.IsDir() {
		return &DestinationError{Path: destination, Err: errors.New("not a directory")}
	}

	tmp, err := os.CreateTemp(destination, ".jarfetch-write-check-*")
	if err != nil {
		return &DestinationError{Path: destination, Err: err}
	}
	_ = tmp.Close()
	_ = os.Remove(tmp.Name())

	return nil
}

// removeStaleParts drops leftovers of an interrupted earlier run.
// Interrupted downloads are always fetched again from scratch.
func (p *Provisioner) removeStaleParts(destination string, manifest []entities.ManifestEntry) {
	for _, entry := range manifest {
		if entry.ValidateFilename() != nil {
			continue
		}
		part := filepath.Join(destination, entry.Filename()+PartSuffix)
		if err := os.Remove(part); err == nil {
			p.logger.Warn("removed partial download from previous run", interfaces.F("path", part))
		}
	}
}

func (p *Provisioner) provisionEntry(ctx context.Context, destination string, index int, entry entities.ManifestEntry) entities.ProvisioningResult {
	start := time.Now()
	result := entities.ProvisioningResult{
		Index:   index,
		Entry:   entry,
		Outcome: entities.OutcomeUnknown,
	}

	// nothing is written outside destination
	if err := entry.ValidateFilename(); err != nil {
		return p.fail(result, start, err)
	}
	path := filepath.Join(destination, entry.Filename())
	result.Path = path

	present, size, err := p.checkExisting(ctx, entry, path)
	if err != nil {
		return p.fail(result, start, err)
	}
	if present {
		result.Outcome = entities.OutcomeAlreadyPresent
		result.SizeBytes = &size
		result.Duration = time.Since(start)
		p.logger.Debug("artifact already present",
			interfaces.F("artifact", entry.Coordinate.String()),
			interfaces.F("path", path))
		return result
	}

	result.Outcome = entities.OutcomeDownloading
	p.logger.Debug("downloading artifact",
		interfaces.F("artifact", entry.Coordinate.String()),
		interfaces.F("url", entry.URL()))

	written, err := p.download(ctx, entry, path)
	if err != nil {
		return p.fail(result, start, err)
	}

	result.Outcome = entities.OutcomeDownloaded
	result.SizeBytes = &written
	result.Duration = time.Since(start)
	p.logger.Info("artifact downloaded",
		interfaces.F("artifact", entry.Coordinate.String()),
		interfaces.F("bytes", written),
		interfaces.F("duration", result.Duration))

	return result
}

// checkExisting reports whether a usable file is already at path
func (p *Provisioner) checkExisting(ctx context.Context, entry entities.ManifestEntry, path string) (bool, int64, error) {
	info, err := os.Stat(path)
	if errors.Is(err, fs.ErrNotExist) {
		return false, 0, nil
	}
	if err != nil {
		return false, 0, fmt.Errorf("failed to stat %s: %w", path, err)
	}
	if info.IsDir() {
		return false, 0, fmt.Errorf("%s is a directory", path)
	}

	if p.cacheValidator == nil {
		return true, info.Size(), nil
	}

	if err := p.cacheValidator.VerifyArtifact(ctx, entry, path); err != nil {
		p.logger.Warn("cached artifact failed validation, fetching again",
			interfaces.F("artifact", entry.Coordinate.String()),
			interfaces.F("error", err.Error()))
		if rmErr := os.Remove(path); rmErr != nil {
			return false, 0, fmt.Errorf("failed to remove invalid cached file: %w", rmErr)
		}
		return false, 0, nil
	}

	return true, info.Size(), nil
}

// download fetches into a sibling .part file and renames it into place
// only after the transfer and every verifier succeeded.
func (p *Provisioner) download(ctx context.Context, entry entities.ManifestEntry, path string) (int64, error) {
	partPath := path + PartSuffix

	//nolint:gosec // G304: partPath is derived from the destination and a validated file name
	out, err := os.OpenFile(partPath, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0640)
	if err != nil {
		return 0, fmt.Errorf("failed to create file: %w", err)
	}

	written, err := p.fetcher.Fetch(ctx, entry.URL(), out)
	if closeErr := out.Close(); err == nil && closeErr != nil {
		err = fmt.Errorf("failed to close file: %w", closeErr)
	}

	if err == nil {
		for _, v := range p.verifiers {
			if err = v.VerifyArtifact(ctx, entry, partPath); err != nil {
				break
			}
		}
	}

	if err == nil {
		if err = os.Rename(partPath, path); err != nil {
			err = fmt.Errorf("failed to move download into place: %w", err)
		}
	}

	if err != nil {
		if rmErr := os.Remove(partPath); rmErr != nil && !errors.Is(rmErr, fs.ErrNotExist) {
			p.logger.Error("failed to remove partial download",
				interfaces.F("path", partPath),
				interfaces.F("error", rmErr.Error()))
		}
		return 0, err
	}

	return written, nil
}

func (p *Provisioner) fail(result entities.ProvisioningResult, start time.Time, err error) entities.ProvisioningResult {
	result.Outcome = entities.OutcomeFailed
	result.SizeBytes = nil
	result.Err = &DownloadError{Entry: result.Entry, Err: err}
	result.Duration = time.Since(start)
	p.logger.Error("artifact provisioning failed",
		interfaces.F("artifact", result.Entry.Coordinate.String()),
		interfaces.F("url", result.Entry.URL()),
		interfaces.F("error", err.Error()))
	return result
}

func (p *Provisioner) notify(result entities.ProvisioningResult, total int) {
	if p.progress == nil {
		return
	}
	p.progressMu.Lock()
	defer p.progressMu.Unlock()
	p.progress(result, total)
}

package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"

	"github.com/ochairo/jarfetch/internal/config"
	"github.com/ochairo/jarfetch/internal/domain-adapters/gateways"
	orchestrators "github.com/ochairo/jarfetch/internal/domain-orchestrators"
	"github.com/ochairo/jarfetch/internal/domain/entities"
	"github.com/ochairo/jarfetch/internal/domain/interfaces"
	"github.com/ochairo/jarfetch/internal/domain/services"
	"github.com/ochairo/jarfetch/internal/external-adapters/s3"
	"github.com/ochairo/jarfetch/internal/external-adapters/yaml"
	"github.com/ochairo/jarfetch/internal/metrics"
)

func runProvision(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	cfg := loadConfig()
	fs := newProvisionFlagSet(cfg)
	if ok, code := parseFlags(fs, args, printUsage, stdout, stderr); !ok {
		return code
	}

	if fs.NArg() < 1 {
		fmt.Fprintf(stderr, "Error: destination directory is required\n\n")
		printUsage(stderr)
		return exitUsage
	}
	if fs.NArg() > 1 {
		fmt.Fprintf(stderr, "Error: expected one destination directory, got %d arguments\n\n", fs.NArg())
		printUsage(stderr)
		return exitUsage
	}
	destination := fs.Arg(0)

	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(stderr, "Error: invalid configuration: %v\n", err)
		return exitError
	}

	runID := uuid.NewString()
	logger, err := newLogger(cfg, stderr)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return exitError
	}
	logger = logger.With(interfaces.F("run_id", runID))

	orch, recorder, err := buildProvisionOrchestrator(ctx, cfg, runID, logger, stdout)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return exitError
	}

	fmt.Fprintf(stdout, "📦 Provisioning artifacts into %s\n\n", destination)

	result, err := orch.Provision(ctx, destination)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		if errors.Is(err, services.ErrMissingArgument) {
			return exitUsage
		}
		return exitError
	}

	fmt.Fprintf(stdout, "\n%s\n", result.GetSummary())
	printDestination(stdout, destination)

	if recorder != nil {
		if err := recorder.WriteTextfile(cfg.Metrics.TextfilePath); err != nil {
			logger.Error("failed to write metrics", interfaces.F("error", err.Error()))
		}
	}

	return exitOK
}

// buildProvisionOrchestrator wires the adapters for one provisioning run.
// The returned recorder is nil unless a metrics file is configured.
func buildProvisionOrchestrator(
	ctx context.Context,
	cfg *config.Config,
	runID string,
	logger interfaces.Logger,
	stdout io.Writer,
) (*orchestrators.ProvisionOrchestrator, *metrics.PrometheusRecorder, error) {
	downloader := gateways.NewDownloader(gateways.DownloaderConfig{
		Timeout:   cfg.HTTP.Timeout,
		UserAgent: cfg.HTTP.UserAgent,
	})

	verifiers, err := buildVerifiers(ctx, cfg, downloader, cfg.Provision.VerifyChecksum)
	if err != nil {
		return nil, nil, err
	}

	provisionerConfig := services.ProvisionerConfig{
		Concurrency: cfg.Provision.Concurrency,
		Progress:    progressPrinter(stdout),
	}
	if cfg.Provision.ValidateExisting {
		provisionerConfig.CacheValidator = gateways.NewChecksumVerifier()
	}
	provisioner := services.NewProvisioner(downloader, verifiers, logger, provisionerConfig)

	orchConfig := orchestrators.ProvisionOrchestratorConfig{RunID: runID}

	if cfg.Mirror.Enabled() {
		mirror, err := s3.NewMirror(ctx, s3.Config{
			Endpoint:        cfg.Mirror.Endpoint,
			Bucket:          cfg.Mirror.Bucket,
			Prefix:          cfg.Mirror.Prefix,
			Region:          cfg.Mirror.Region,
			AccessKeyID:     cfg.Mirror.AccessKeyID,
			SecretAccessKey: cfg.Mirror.SecretAccessKey,
			PathStyle:       cfg.Mirror.PathStyle,
		}, runID)
		if err != nil {
			return nil, nil, err
		}
		orchConfig.Mirror = mirror
	}

	var recorder *metrics.PrometheusRecorder
	if cfg.Metrics.TextfilePath != "" {
		recorder = metrics.NewPrometheusRecorder(runID)
		orchConfig.Recorder = recorder
	}

	manifestRepo := yaml.NewManifestRepository(cfg.Manifest.Path, cfg.Manifest.Repository)
	return orchestrators.NewProvisionOrchestrator(manifestRepo, provisioner, logger, orchConfig), recorder, nil
}

// progressPrinter prints one [i/total] line per artifact; i is the manifest position
func progressPrinter(w io.Writer) services.ProgressFunc {
	return func(res entities.ProvisioningResult, total int) {
		prefix := fmt.Sprintf("[%d/%d]", res.Index+1, total)
		name := res.Entry.Filename()

		switch res.Outcome {
		case entities.OutcomeAlreadyPresent:
			fmt.Fprintf(w, "%s ✅ %s already present (%s)\n", prefix, name, formatSize(res.Size()))
		case entities.OutcomeDownloaded:
			fmt.Fprintf(w, "%s ⬇️  %s downloaded (%s in %v)\n", prefix, name, formatSize(res.Size()),
				res.Duration.Round(time.Millisecond))
		case entities.OutcomeFailed:
			fmt.Fprintf(w, "%s ❌ %s failed: %v\n", prefix, name, res.Err)
		default:
			fmt.Fprintf(w, "%s %s %s\n", prefix, name, res.Outcome)
		}
	}
}

// printDestination lists the destination directory after a run
func printDestination(w io.Writer, destination string) {
	entries, err := os.ReadDir(destination)
	if err != nil {
		fmt.Fprintf(w, "\n⚠️  Cannot list %s: %v\n", destination, err)
		return
	}

	fmt.Fprintf(w, "\n📂 %s (%d entries):\n", destination, len(entries))
	for _, entry := range entries {
		if entry.IsDir() {
			fmt.Fprintf(w, "  %s%c\n", entry.Name(), filepath.Separator)
			continue
		}
		info, err := entry.Info()
		if err != nil {
			fmt.Fprintf(w, "  %s\n", entry.Name())
			continue
		}
		fmt.Fprintf(w, "  %-55s %10s\n", entry.Name(), formatSize(info.Size()))
	}
}

func formatSize(size int64) string {
	if size < 0 {
		size = 0
	}
	return humanize.Bytes(uint64(size))
}

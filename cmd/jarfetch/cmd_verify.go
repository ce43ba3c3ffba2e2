package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"

	"github.com/ochairo/jarfetch/internal/domain-adapters/gateways"
	orchestrators "github.com/ochairo/jarfetch/internal/domain-orchestrators"
	"github.com/ochairo/jarfetch/internal/domain/services"
	"github.com/ochairo/jarfetch/internal/external-adapters/yaml"
)

func runVerify(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	cfg := loadConfig()
	fs := flag.NewFlagSet("verify", flag.ContinueOnError)
	addManifestFlags(fs, cfg)
	addHTTPFlags(fs, cfg)
	addSignatureFlags(fs, cfg)
	addLogFlags(fs, cfg)
	offline := fs.Bool("offline", false, "Only check manifest sha256/size values; do not fetch .sha1 files")

	usage := func(w io.Writer) {
		fmt.Fprintf(w, `Usage: jarfetch verify [options] <destination>

Verify the artifacts present in a destination directory without
downloading them. Each file is checked against the manifest sha256/size
and the .sha1 published by the repository; with --verify-signature also
against its .asc signature, read from --signature-dir when given.

Exits 1 when any artifact is missing or fails verification.

Options:
`)
		fs.SetOutput(w)
		fs.PrintDefaults()
		fmt.Fprintf(w, `
Examples:
  jarfetch verify ./jars
  jarfetch verify --offline --manifest jars.yml ./jars
  jarfetch verify --verify-signature --gpg-keys-url https://downloads.apache.org/iceberg/KEYS ./jars
  jarfetch verify --offline --verify-signature --gpg-key-file KEYS --signature-dir ./sigs ./jars
`)
	}

	if ok, code := parseFlags(fs, args, usage, stdout, stderr); !ok {
		return code
	}

	if fs.NArg() != 1 {
		fmt.Fprintf(stderr, "Error: destination directory is required\n\n")
		usage(stderr)
		return exitUsage
	}
	destination := fs.Arg(0)

	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(stderr, "Error: invalid configuration: %v\n", err)
		return exitError
	}

	logger, err := newLogger(cfg, stderr)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return exitError
	}

	downloader := gateways.NewDownloader(gateways.DownloaderConfig{
		Timeout:   cfg.HTTP.Timeout,
		UserAgent: cfg.HTTP.UserAgent,
	})
	verifiers, err := buildVerifiers(ctx, cfg, downloader, !*offline)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return exitError
	}

	orch := orchestrators.NewVerifyOrchestrator(
		yaml.NewManifestRepository(cfg.Manifest.Path, cfg.Manifest.Repository),
		verifiers,
		logger,
	)

	fmt.Fprintf(stdout, "🔍 Verifying artifacts in %s\n\n", destination)

	result, err := orch.VerifyDestination(ctx, destination)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		if errors.Is(err, services.ErrMissingArgument) {
			return exitUsage
		}
		return exitError
	}

	total := len(result.Results)
	for i, check := range result.Results {
		prefix := fmt.Sprintf("[%d/%d]", i+1, total)
		switch check.Status {
		case orchestrators.VerifyStatusVerified:
			fmt.Fprintf(stdout, "%s ✅ %s verified\n", prefix, check.Entry.Filename())
		case orchestrators.VerifyStatusMissing:
			fmt.Fprintf(stdout, "%s ⚠️  %s missing\n", prefix, check.Entry.Filename())
		default:
			fmt.Fprintf(stdout, "%s ❌ %s: %v\n", prefix, check.Entry.Filename(), check.Err)
		}
	}

	fmt.Fprintf(stdout, "\n%s\n", result.GetSummary())

	if !result.OK() {
		return exitError
	}
	return exitOK
}

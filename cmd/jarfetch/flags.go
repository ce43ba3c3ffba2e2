package main

import (
	"context"
	"flag"
	"fmt"
	"io"

	"github.com/ochairo/jarfetch/internal/config"
	"github.com/ochairo/jarfetch/internal/domain-adapters/gateways"
	"github.com/ochairo/jarfetch/internal/domain/interfaces"
	domaingw "github.com/ochairo/jarfetch/internal/domain/interfaces/gateways"
)

// loadConfig returns defaults overridden by the environment; flags are applied on top
func loadConfig() *config.Config {
	cfg := config.DefaultConfig()
	cfg.LoadFromEnvironment()
	return cfg
}

func newProvisionFlagSet(cfg *config.Config) *flag.FlagSet {
	fs := flag.NewFlagSet("jarfetch", flag.ContinueOnError)
	addManifestFlags(fs, cfg)
	addHTTPFlags(fs, cfg)
	fs.IntVar(&cfg.Provision.Concurrency, "concurrency", cfg.Provision.Concurrency, "Number of parallel downloads")
	fs.BoolVar(&cfg.Provision.ValidateExisting, "validate-existing", cfg.Provision.ValidateExisting,
		"Re-check present files against manifest sha256/size and fetch them again on mismatch")
	fs.BoolVar(&cfg.Provision.VerifyChecksum, "verify-checksum", cfg.Provision.VerifyChecksum,
		"Verify downloads against the repository's .sha1 files")
	addSignatureFlags(fs, cfg)
	fs.StringVar(&cfg.Mirror.Bucket, "mirror-bucket", cfg.Mirror.Bucket, "Upload present artifacts to this S3 bucket")
	fs.StringVar(&cfg.Mirror.Endpoint, "mirror-endpoint", cfg.Mirror.Endpoint, "S3-compatible endpoint URL (e.g. MinIO)")
	fs.StringVar(&cfg.Mirror.Prefix, "mirror-prefix", cfg.Mirror.Prefix, "Object key prefix for mirrored artifacts")
	fs.StringVar(&cfg.Mirror.Region, "mirror-region", cfg.Mirror.Region, "S3 region")
	fs.BoolVar(&cfg.Mirror.PathStyle, "mirror-path-style", cfg.Mirror.PathStyle, "Use path-style S3 addressing")
	fs.StringVar(&cfg.Metrics.TextfilePath, "metrics-file", cfg.Metrics.TextfilePath,
		"Write Prometheus metrics to this textfile after the run")
	addLogFlags(fs, cfg)
	return fs
}

func addManifestFlags(fs *flag.FlagSet, cfg *config.Config) {
	fs.StringVar(&cfg.Manifest.Path, "manifest", cfg.Manifest.Path, "YAML manifest file (default: built-in manifest)")
	fs.StringVar(&cfg.Manifest.Repository, "repository", cfg.Manifest.Repository, "Override the repository base URL of every artifact")
}

func addHTTPFlags(fs *flag.FlagSet, cfg *config.Config) {
	fs.DurationVar(&cfg.HTTP.Timeout, "timeout", cfg.HTTP.Timeout, "Timeout for a single artifact request")
	fs.StringVar(&cfg.HTTP.UserAgent, "user-agent", cfg.HTTP.UserAgent, "User-Agent header for repository requests")
}

func addSignatureFlags(fs *flag.FlagSet, cfg *config.Config) {
	fs.BoolVar(&cfg.Provision.VerifySignature, "verify-signature", cfg.Provision.VerifySignature,
		"Verify the repository's .asc signatures")
	fs.StringVar(&cfg.GPG.KeysURL, "gpg-keys-url", cfg.GPG.KeysURL, "URL to a KEYS file for signature verification")
	fs.StringVar(&cfg.GPG.KeyFile, "gpg-key-file", cfg.GPG.KeyFile, "Local armored public key file")
	fs.Func("gpg-key-ids", "Comma-separated GPG key IDs to import from keyservers", func(value string) error {
		cfg.GPG.KeyIDs = config.SplitList(value)
		return nil
	})
	fs.StringVar(&cfg.GPG.SignatureDir, "signature-dir", cfg.GPG.SignatureDir,
		"Read <filename>.asc signatures from this directory instead of the repository")
}

func addLogFlags(fs *flag.FlagSet, cfg *config.Config) {
	fs.StringVar(&cfg.Log.Level, "log-level", cfg.Log.Level, "Log level: debug, info, warn, error")
	fs.StringVar(&cfg.Log.Format, "log-format", cfg.Log.Format, "Log format: text or json")
}

// newLogger writes structured logs to stderr, keeping stdout for progress output
func newLogger(cfg *config.Config, stderr io.Writer) (*interfaces.SlogLogger, error) {
	logger, err := interfaces.NewSlogLogger(stderr, cfg.Log.Format, cfg.Log.Level)
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}
	return logger, nil
}

// buildVerifiers returns the content checks run on every downloaded file.
// Manifest sha256/size values are always checked when present.
func buildVerifiers(ctx context.Context, cfg *config.Config, downloader *gateways.Downloader, remoteChecksum bool) ([]domaingw.ArtifactVerifier, error) {
	verifiers := []domaingw.ArtifactVerifier{gateways.NewChecksumVerifier()}
	if remoteChecksum {
		verifiers[0] = gateways.NewRemoteChecksumVerifier(downloader)
	}

	if !cfg.Provision.VerifySignature {
		return verifiers, nil
	}

	gpgVerifier := gateways.NewGPGVerifier()
	gpgVerifier.SetSignatureDir(cfg.GPG.SignatureDir)
	if cfg.GPG.KeysURL != "" {
		if err := gpgVerifier.ImportGPGKeysFromURL(ctx, cfg.GPG.KeysURL); err != nil {
			return nil, err
		}
	}
	if cfg.GPG.KeyFile != "" {
		if err := gpgVerifier.ImportGPGKeyFromFile(cfg.GPG.KeyFile); err != nil {
			return nil, err
		}
	}
	if len(cfg.GPG.KeyIDs) > 0 {
		if err := gpgVerifier.ImportGPGKeys(ctx, cfg.GPG.KeyIDs); err != nil {
			return nil, err
		}
	}
	if gpgVerifier.GetKeyringSize() == 0 {
		return nil, fmt.Errorf("no GPG keys imported")
	}

	return append(verifiers, gpgVerifier), nil
}

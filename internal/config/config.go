// Package config provides configuration management for jarfetch.
package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds the configuration for a provisioning run
type Config struct {
	// Manifest configuration
	Manifest ManifestConfig

	// HTTP client configuration
	HTTP HTTPConfig

	// Provisioning behavior
	Provision ProvisionConfig

	// GPG key sources used with signature verification
	GPG GPGConfig

	// S3 mirror configuration
	Mirror S3Config

	// Metrics configuration
	Metrics MetricsConfig

	// Logging configuration
	Log LogConfig
}

// ManifestConfig selects the artifact list
type ManifestConfig struct {
	// Path to a YAML manifest; empty uses the built-in manifest
	Path string

	// Repository overrides the repository base URL of every entry
	Repository string
}

// HTTPConfig holds HTTP client configuration
type HTTPConfig struct {
	// Timeout for a single artifact request
	Timeout time.Duration

	// User agent string for HTTP requests
	UserAgent string
}

// ProvisionConfig holds provisioner settings
type ProvisionConfig struct {
	// Concurrency is the number of parallel downloads
	Concurrency int

	// ValidateExisting re-checks files already present against the manifest checksums
	ValidateExisting bool

	// VerifyChecksum checks downloads against the repository's .sha1 files
	VerifyChecksum bool

	// VerifySignature checks downloads against the repository's .asc files
	VerifySignature bool
}

// GPGConfig holds public key sources
type GPGConfig struct {
	KeysURL string
	KeyFile string
	KeyIDs  []string

	// SignatureDir holds local <filename>.asc files used instead of the repository's
	SignatureDir string
}

// S3Config holds S3-compatible storage configuration
type S3Config struct {
	// Endpoint URL for S3-compatible storage such as MinIO
	Endpoint string

	// Bucket enables the mirror when set
	Bucket string

	// Prefix is prepended to every object key
	Prefix string

	Region          string
	AccessKeyID     string
	SecretAccessKey string

	// Path style for S3 requests (required for MinIO)
	PathStyle bool
}

// MetricsConfig holds metrics configuration
type MetricsConfig struct {
	// TextfilePath is where Prometheus metrics are written after a run
	TextfilePath string
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level  string
	Format string
}

// DefaultConfig returns a configuration with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		HTTP: HTTPConfig{
			Timeout:   5 * time.Minute,
			UserAgent: "jarfetch/1.0",
		},
		Provision: ProvisionConfig{
			Concurrency: 1,
		},
		Mirror: S3Config{
			Region: "us-east-1",
		},
		Log: LogConfig{
			Level:  "warn",
			Format: "text",
		},
	}
}

// Enabled reports whether the S3 mirror is configured
func (c S3Config) Enabled() bool {
	return c.Bucket != ""
}

// LoadFromEnvironment loads configuration from environment variables
func (c *Config) LoadFromEnvironment() {
	c.loadManifestFromEnv()
	c.loadHTTPFromEnv()
	c.loadProvisionFromEnv()
	c.loadGPGFromEnv()
	c.loadMirrorFromEnv()
	c.loadLogFromEnv()

	if path := os.Getenv("JARFETCH_METRICS_FILE"); path != "" {
		c.Metrics.TextfilePath = path
	}
}

func (c *Config) loadManifestFromEnv() {
	if path := os.Getenv("JARFETCH_MANIFEST"); path != "" {
		c.Manifest.Path = path
	}
	if repository := os.Getenv("JARFETCH_REPOSITORY"); repository != "" {
		c.Manifest.Repository = repository
	}
}

func (c *Config) loadHTTPFromEnv() {
	if timeoutStr := os.Getenv("JARFETCH_HTTP_TIMEOUT"); timeoutStr != "" {
		if timeout, err := time.ParseDuration(timeoutStr); err == nil {
			c.HTTP.Timeout = timeout
		}
	}
	if userAgent := os.Getenv("JARFETCH_USER_AGENT"); userAgent != "" {
		c.HTTP.UserAgent = userAgent
	}
}

func (c *Config) loadProvisionFromEnv() {
	if concurrencyStr := os.Getenv("JARFETCH_CONCURRENCY"); concurrencyStr != "" {
		if concurrency, err := strconv.Atoi(concurrencyStr); err == nil {
			c.Provision.Concurrency = concurrency
		}
	}
	loadBool("JARFETCH_VALIDATE_EXISTING", &c.Provision.ValidateExisting)
	loadBool("JARFETCH_VERIFY_CHECKSUM", &c.Provision.VerifyChecksum)
	loadBool("JARFETCH_VERIFY_SIGNATURE", &c.Provision.VerifySignature)
}

func (c *Config) loadGPGFromEnv() {
	if keysURL := os.Getenv("JARFETCH_GPG_KEYS_URL"); keysURL != "" {
		c.GPG.KeysURL = keysURL
	}
	if keyFile := os.Getenv("JARFETCH_GPG_KEY_FILE"); keyFile != "" {
		c.GPG.KeyFile = keyFile
	}
	if keyIDs := os.Getenv("JARFETCH_GPG_KEY_IDS"); keyIDs != "" {
		c.GPG.KeyIDs = SplitList(keyIDs)
	}
	if sigDir := os.Getenv("JARFETCH_GPG_SIGNATURE_DIR"); sigDir != "" {
		c.GPG.SignatureDir = sigDir
	}
}

// loadMirrorFromEnv reads S3_* variables, falling back to the AWS ones
func (c *Config) loadMirrorFromEnv() {
	if endpoint := os.Getenv("S3_ENDPOINT"); endpoint != "" {
		c.Mirror.Endpoint = endpoint
	}
	if bucket := os.Getenv("S3_BUCKET"); bucket != "" {
		c.Mirror.Bucket = bucket
	}
	if prefix := os.Getenv("S3_PREFIX"); prefix != "" {
		c.Mirror.Prefix = prefix
	}
	if region := firstEnv("S3_REGION", "AWS_REGION"); region != "" {
		c.Mirror.Region = region
	}
	if accessKeyID := firstEnv("S3_ACCESS_KEY_ID", "AWS_ACCESS_KEY_ID"); accessKeyID != "" {
		c.Mirror.AccessKeyID = accessKeyID
	}
	if secretAccessKey := firstEnv("S3_SECRET_ACCESS_KEY", "AWS_SECRET_ACCESS_KEY"); secretAccessKey != "" {
		c.Mirror.SecretAccessKey = secretAccessKey
	}
	loadBool("S3_PATH_STYLE", &c.Mirror.PathStyle)
}

func (c *Config) loadLogFromEnv() {
	if level := os.Getenv("JARFETCH_LOG_LEVEL"); level != "" {
		c.Log.Level = level
	}
	if format := os.Getenv("JARFETCH_LOG_FORMAT"); format != "" {
		c.Log.Format = format
	}
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Manifest.Repository != "" {
		if err := validateHTTPURL(c.Manifest.Repository); err != nil {
			return fmt.Errorf("invalid repository: %w", err)
		}
	}

	if c.HTTP.Timeout <= 0 {
		return fmt.Errorf("HTTP timeout must be positive")
	}

	if c.Provision.Concurrency < 1 {
		return fmt.Errorf("concurrency must be at least 1")
	}

	if c.Provision.VerifySignature && c.GPG.KeysURL == "" && c.GPG.KeyFile == "" && len(c.GPG.KeyIDs) == 0 {
		return fmt.Errorf("signature verification requires a GPG key source")
	}

	if c.Mirror.Enabled() {
		if c.Mirror.Endpoint != "" {
			if err := validateHTTPURL(c.Mirror.Endpoint); err != nil {
				return fmt.Errorf("invalid S3 endpoint: %w", err)
			}
		}
		if (c.Mirror.AccessKeyID == "") != (c.Mirror.SecretAccessKey == "") {
			return fmt.Errorf("S3 access key ID and secret access key must be set together")
		}
	}

	switch c.Log.Format {
	case "text", "json":
	default:
		return fmt.Errorf("invalid log format: %s (must be 'text' or 'json')", c.Log.Format)
	}

	switch strings.ToLower(c.Log.Level) {
	case "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("invalid log level: %s", c.Log.Level)
	}

	return nil
}

// SplitList splits a comma separated value, dropping empty items
func SplitList(value string) []string {
	var items []string
	for _, item := range strings.Split(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			items = append(items, item)
		}
	}
	return items
}

func validateHTTPURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return err
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("%s: scheme must be http or https", raw)
	}
	if u.Host == "" {
		return fmt.Errorf("%s: missing host", raw)
	}
	return nil
}

func loadBool(name string, target *bool) {
	if value := os.Getenv(name); value != "" {
		if parsed, err := strconv.ParseBool(value); err == nil {
			*target = parsed
		}
	}
}

func firstEnv(names ...string) string {
	for _, name := range names {
		if value := os.Getenv(name); value != "" {
			return value
		}
	}
	return ""
}

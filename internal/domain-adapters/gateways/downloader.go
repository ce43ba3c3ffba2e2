// Package gateways implements the domain gateway interfaces over HTTP and the filesystem.
package gateways

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"
)

// DefaultUserAgent is sent with every repository request
const DefaultUserAgent = "jarfetch/1.0"

// DownloaderConfig holds HTTP settings for the downloader
type DownloaderConfig struct {
	// Timeout bounds a single request including the body transfer
	Timeout   time.Duration
	UserAgent string
}

// Downloader fetches artifacts and their sidecar files from a repository
type Downloader struct {
	httpClient *http.Client
	userAgent  string
}

// NewDownloader creates a new downloader
func NewDownloader(config DownloaderConfig) *Downloader {
	timeout := config.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Minute // Long timeout for large jars
	}

	userAgent := config.UserAgent
	if userAgent == "" {
		userAgent = DefaultUserAgent
	}

	return &Downloader{
		httpClient: &http.Client{Timeout: timeout},
		userAgent:  userAgent,
	}
}

// Fetch streams the body at url into w.
// A body shorter than the announced Content-Length is an error.
func (d *Downloader) Fetch(ctx context.Context, url string, w io.Writer) (int64, error) {
	resp, err := d.get(ctx, url)
	if err != nil {
		return 0, err
	}
	//nolint:errcheck // Defer close on HTTP response body
	defer resp.Body.Close()

	written, err := io.Copy(w, resp.Body)
	if err != nil {
		return written, fmt.Errorf("failed to write file: %w", err)
	}

	if resp.ContentLength >= 0 && written != resp.ContentLength {
		return written, fmt.Errorf("short transfer: got %d of %d bytes: %w", written, resp.ContentLength, io.ErrUnexpectedEOF)
	}

	return written, nil
}

// FetchSmall downloads a small document such as a checksum or signature.
// Bodies larger than limit bytes are rejected.
func (d *Downloader) FetchSmall(ctx context.Context, url string, limit int64) ([]byte, error) {
	resp, err := d.get(ctx, url)
	if err != nil {
		return nil, err
	}
	//nolint:errcheck // Defer close on HTTP response body
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, limit+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", url, err)
	}
	if int64(len(data)) > limit {
		return nil, fmt.Errorf("%s exceeds %d bytes", url, limit)
	}

	return data, nil
}

func (d *Downloader) get(ctx context.Context, url string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", d.userAgent)

	resp, err := d.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("HTTP request failed: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		_ = resp.Body.Close()
		return nil, fmt.Errorf("HTTP %d: %s", resp.StatusCode, resp.Status)
	}

	return resp, nil
}

package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"testing"

	"github.com/ochairo/jarfetch/internal/domain/entities"
	"github.com/ochairo/jarfetch/internal/domain/interfaces/gateways"
)

const testRepo = "https://repo.test/maven2"

// mockFetcher serves artifact bodies keyed by URL
type mockFetcher struct {
	mu       sync.Mutex
	bodies   map[string]string
	failures map[string]error
	// truncate writes half of the body before failing
	truncate map[string]bool
	calls    []string
}

func newMockFetcher() *mockFetcher {
	return &mockFetcher{
		bodies:   make(map[string]string),
		failures: make(map[string]error),
		truncate: make(map[string]bool),
	}
}

func (m *mockFetcher) Fetch(_ context.Context, url string, w io.Writer) (int64, error) {
	m.mu.Lock()
	m.calls = append(m.calls, url)
	body, ok := m.bodies[url]
	failure := m.failures[url]
	truncate := m.truncate[url]
	m.mu.Unlock()

	if failure != nil {
		return 0, failure
	}
	if !ok {
		return 0, fmt.Errorf("HTTP 404: 404 Not Found")
	}
	if truncate {
		n, _ := io.WriteString(w, body[:len(body)/2])
		return int64(n), io.ErrUnexpectedEOF
	}
	n, err := io.WriteString(w, body)
	return int64(n), err
}

func (m *mockFetcher) callCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.calls)
}

type mockVerifier struct {
	err error
}

func (m *mockVerifier) VerifyArtifact(_ context.Context, _ entities.ManifestEntry, _ string) error {
	return m.err
}

func entry(name, version string) entities.ManifestEntry {
	return entities.ManifestEntry{
		Coordinate:        entities.Coordinate{Group: "org.apache.iceberg", Name: name, Version: version},
		RepositoryBaseURL: testRepo,
	}
}

func serve(f *mockFetcher, entries ...entities.ManifestEntry) {
	for _, e := range entries {
		f.bodies[e.URL()] = "jar-bytes:" + e.Coordinate.String()
	}
}

func dirNames(t *testing.T, dir string) []string {
	t.Helper()
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("ReadDir() error = %v", err)
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name())
	}
	sort.Strings(names)
	return names
}

func TestProvision_DownloadsIntoEmptyDestination(t *testing.T) {
	manifest := []entities.ManifestEntry{
		entry("iceberg-runtime", "1.9.1"),
		entry("s3-connector", "1.20.0"),
	}
	fetcher := newMockFetcher()
	serve(fetcher, manifest...)
	dest := t.TempDir()

	p := NewProvisioner(fetcher, nil, nil, ProvisionerConfig{})
	results, err := p.Provision(context.Background(), dest, manifest)
	if err != nil {
		t.Fatalf("Provision() error = %v", err)
	}

	if len(results) != 2 {
		t.Fatalf("Provision() returned %d results, want 2", len(results))
	}
	for i, res := range results {
		if res.Outcome != entities.OutcomeDownloaded {
			t.Errorf("results[%d].Outcome = %v, want downloaded", i, res.Outcome)
		}
		want := int64(len("jar-bytes:" + manifest[i].Coordinate.String()))
		if res.SizeBytes == nil || *res.SizeBytes != want {
			t.Errorf("results[%d].SizeBytes = %v, want %d", i, res.SizeBytes, want)
		}
	}

	want := []string{"iceberg-runtime-1.9.1.jar", "s3-connector-1.20.0.jar"}
	if got := dirNames(t, dest); strings.Join(got, ",") != strings.Join(want, ",") {
		t.Errorf("destination contains %v, want %v", got, want)
	}

	report, err := Summarize("run", dest, results)
	if err != nil {
		t.Fatalf("Summarize() error = %v", err)
	}
	if report.Present() != 2 || report.PresentOnDisk != 2 || !report.Consistent {
		t.Errorf("report present=%d onDisk=%d consistent=%v, want 2/2/true",
			report.Present(), report.PresentOnDisk, report.Consistent)
	}
}

func TestProvision_SecondRunIsIdempotent(t *testing.T) {
	manifest := []entities.ManifestEntry{
		entry("iceberg-runtime", "1.9.1"),
		entry("s3-connector", "1.20.0"),
	}
	fetcher := newMockFetcher()
	serve(fetcher, manifest...)
	dest := t.TempDir()
	p := NewProvisioner(fetcher, nil, nil, ProvisionerConfig{})

	if _, err := p.Provision(context.Background(), dest, manifest); err != nil {
		t.Fatalf("first Provision() error = %v", err)
	}
	callsAfterFirst := fetcher.callCount()

	results, err := p.Provision(context.Background(), dest, manifest)
	if err != nil {
		t.Fatalf("second Provision() error = %v", err)
	}

	if got := fetcher.callCount() - callsAfterFirst; got != 0 {
		t.Errorf("second run made %d fetch calls, want 0", got)
	}
	for i, res := range results {
		if res.Outcome != entities.OutcomeAlreadyPresent {
			t.Errorf("results[%d].Outcome = %v, want already-present", i, res.Outcome)
		}
	}

	report, err := Summarize("run", dest, results)
	if err != nil {
		t.Fatalf("Summarize() error = %v", err)
	}
	if report.BytesTransferred != 0 {
		t.Errorf("BytesTransferred = %d, want 0", report.BytesTransferred)
	}
}

func TestProvision_PartialFailureIsolation(t *testing.T) {
	manifest := []entities.ManifestEntry{
		entry("a", "1.0"),
		entry("b", "1.0"),
		entry("c", "1.0"),
		entry("d", "1.0"),
	}
	fetcher := newMockFetcher()
	serve(fetcher, manifest...)
	fetcher.failures[manifest[2].URL()] = errors.New("dial tcp: connection refused")
	dest := t.TempDir()

	p := NewProvisioner(fetcher, nil, nil, ProvisionerConfig{})
	results, err := p.Provision(context.Background(), dest, manifest)
	if err != nil {
		t.Fatalf("Provision() error = %v", err)
	}

	if len(results) != len(manifest) {
		t.Fatalf("Provision() returned %d results, want %d", len(results), len(manifest))
	}
	for i, res := range results {
		if i == 2 {
			if res.Outcome != entities.OutcomeFailed {
				t.Errorf("results[2].Outcome = %v, want failed", res.Outcome)
			}
			var dlErr *DownloadError
			if !errors.As(res.Err, &dlErr) {
				t.Errorf("results[2].Err = %v, want *DownloadError", res.Err)
			}
			continue
		}
		if res.Outcome == entities.OutcomeFailed {
			t.Errorf("results[%d].Outcome = failed, want success", i)
		}
	}

	if got := len(dirNames(t, dest)); got != len(manifest)-1 {
		t.Errorf("destination holds %d files, want %d", got, len(manifest)-1)
	}
}

func TestProvision_InterruptedTransferLeavesNoFile(t *testing.T) {
	e := entry("iceberg-runtime", "1.9.1")
	fetcher := newMockFetcher()
	serve(fetcher, e)
	fetcher.truncate[e.URL()] = true
	dest := t.TempDir()

	p := NewProvisioner(fetcher, nil, nil, ProvisionerConfig{})
	results, err := p.Provision(context.Background(), dest, []entities.ManifestEntry{e})
	if err != nil {
		t.Fatalf("Provision() error = %v", err)
	}

	if results[0].Outcome != entities.OutcomeFailed {
		t.Errorf("Outcome = %v, want failed", results[0].Outcome)
	}
	if !errors.Is(results[0].Err, io.ErrUnexpectedEOF) {
		t.Errorf("Err = %v, want wrapped io.ErrUnexpectedEOF", results[0].Err)
	}
	if names := dirNames(t, dest); len(names) != 0 {
		t.Errorf("destination contains %v after interrupted transfer, want nothing", names)
	}
}

func TestProvision_OrderPreserved(t *testing.T) {
	for _, concurrency := range []int{1, 3} {
		t.Run(fmt.Sprintf("concurrency=%d", concurrency), func(t *testing.T) {
			a, b, c := entry("a", "1"), entry("b", "1"), entry("c", "1")
			fetcher := newMockFetcher()
			serve(fetcher, a, c)
			dest := t.TempDir()

			// a is cached, b is missing upstream, c downloads
			if err := os.WriteFile(filepath.Join(dest, a.Filename()), []byte("cached"), 0600); err != nil {
				t.Fatal(err)
			}

			p := NewProvisioner(fetcher, nil, nil, ProvisionerConfig{Concurrency: concurrency})
			results, err := p.Provision(context.Background(), dest, []entities.ManifestEntry{a, b, c})
			if err != nil {
				t.Fatalf("Provision() error = %v", err)
			}

			want := []struct {
				name    string
				outcome entities.Outcome
			}{
				{"a", entities.OutcomeAlreadyPresent},
				{"b", entities.OutcomeFailed},
				{"c", entities.OutcomeDownloaded},
			}
			for i, w := range want {
				if results[i].Index != i {
					t.Errorf("results[%d].Index = %d", i, results[i].Index)
				}
				if results[i].Entry.Coordinate.Name != w.name {
					t.Errorf("results[%d] is %s, want %s", i, results[i].Entry.Coordinate.Name, w.name)
				}
				if results[i].Outcome != w.outcome {
					t.Errorf("results[%d].Outcome = %v, want %v", i, results[i].Outcome, w.outcome)
				}
			}
		})
	}
}

func TestProvision_CreatesMissingDestination(t *testing.T) {
	e := entry("a", "1")
	fetcher := newMockFetcher()
	serve(fetcher, e)
	dest := filepath.Join(t.TempDir(), "nested", "jars")

	p := NewProvisioner(fetcher, nil, nil, ProvisionerConfig{})
	results, err := p.Provision(context.Background(), dest, []entities.ManifestEntry{e})
	if err != nil {
		t.Fatalf("Provision() error = %v", err)
	}
	if results[0].Outcome != entities.OutcomeDownloaded {
		t.Errorf("Outcome = %v, want downloaded", results[0].Outcome)
	}
	if _, err := os.Stat(filepath.Join(dest, e.Filename())); err != nil {
		t.Errorf("artifact missing in created destination: %v", err)
	}
}

func TestProvision_DestinationUnavailable(t *testing.T) {
	parent := filepath.Join(t.TempDir(), "not-a-dir")
	if err := os.WriteFile(parent, []byte("x"), 0600); err != nil {
		t.Fatal(err)
	}

	fetcher := newMockFetcher()
	p := NewProvisioner(fetcher, nil, nil, ProvisionerConfig{})
	_, err := p.Provision(context.Background(), filepath.Join(parent, "jars"), []entities.ManifestEntry{entry("a", "1")})

	if !errors.Is(err, ErrDestinationUnavailable) {
		t.Fatalf("Provision() error = %v, want ErrDestinationUnavailable", err)
	}
	if fetcher.callCount() != 0 {
		t.Errorf("fetch calls = %d, want 0", fetcher.callCount())
	}
}

func TestProvision_MissingDestination(t *testing.T) {
	p := NewProvisioner(newMockFetcher(), nil, nil, ProvisionerConfig{})
	_, err := p.Provision(context.Background(), "", []entities.ManifestEntry{entry("a", "1")})
	if !errors.Is(err, ErrMissingArgument) {
		t.Errorf("Provision() error = %v, want ErrMissingArgument", err)
	}
}

func TestProvision_VerifierRejectionRemovesDownload(t *testing.T) {
	e := entry("a", "1")
	fetcher := newMockFetcher()
	serve(fetcher, e)
	dest := t.TempDir()

	verifiers := []gateways.ArtifactVerifier{
		&mockVerifier{},
		&mockVerifier{err: fmt.Errorf("%w: sha1", ErrChecksumMismatch)},
	}
	p := NewProvisioner(fetcher, verifiers, nil, ProvisionerConfig{})
	results, err := p.Provision(context.Background(), dest, []entities.ManifestEntry{e})
	if err != nil {
		t.Fatalf("Provision() error = %v", err)
	}

	if !errors.Is(results[0].Err, ErrChecksumMismatch) {
		t.Errorf("Err = %v, want ErrChecksumMismatch", results[0].Err)
	}
	if names := dirNames(t, dest); len(names) != 0 {
		t.Errorf("destination contains %v, want nothing", names)
	}
}

func TestProvision_RemovesStalePartialDownload(t *testing.T) {
	e := entry("a", "1")
	fetcher := newMockFetcher()
	serve(fetcher, e)
	dest := t.TempDir()
	stale := filepath.Join(dest, e.Filename()+PartSuffix)
	if err := os.WriteFile(stale, []byte("half"), 0600); err != nil {
		t.Fatal(err)
	}

	p := NewProvisioner(fetcher, nil, nil, ProvisionerConfig{})
	results, err := p.Provision(context.Background(), dest, []entities.ManifestEntry{e})
	if err != nil {
		t.Fatalf("Provision() error = %v", err)
	}

	if results[0].Outcome != entities.OutcomeDownloaded {
		t.Errorf("Outcome = %v, want downloaded", results[0].Outcome)
	}
	if _, err := os.Stat(stale); !os.IsNotExist(err) {
		t.Errorf("stale part file still present: %v", err)
	}
}

func TestProvision_CacheValidatorRefetchesInvalidFile(t *testing.T) {
	e := entry("a", "1")
	fetcher := newMockFetcher()
	serve(fetcher, e)
	dest := t.TempDir()
	if err := os.WriteFile(filepath.Join(dest, e.Filename()), []byte("trunc"), 0600); err != nil {
		t.Fatal(err)
	}

	p := NewProvisioner(fetcher, nil, nil, ProvisionerConfig{
		CacheValidator: &mockVerifier{err: ErrChecksumMismatch},
	})
	results, err := p.Provision(context.Background(), dest, []entities.ManifestEntry{e})
	if err != nil {
		t.Fatalf("Provision() error = %v", err)
	}

	if results[0].Outcome != entities.OutcomeDownloaded {
		t.Errorf("Outcome = %v, want downloaded", results[0].Outcome)
	}
	data, err := os.ReadFile(filepath.Join(dest, e.Filename()))
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != fetcher.bodies[e.URL()] {
		t.Errorf("file content = %q, want refetched body", data)
	}
}

func TestProvision_ProgressReportsEveryEntry(t *testing.T) {
	manifest := []entities.ManifestEntry{entry("a", "1"), entry("b", "1"), entry("c", "1")}
	fetcher := newMockFetcher()
	serve(fetcher, manifest...)

	var seen []int
	p := NewProvisioner(fetcher, nil, nil, ProvisionerConfig{
		Progress: func(res entities.ProvisioningResult, total int) {
			if total != 3 {
				t.Errorf("progress total = %d, want 3", total)
			}
			if !res.Outcome.IsTerminal() {
				t.Errorf("progress got non-terminal outcome %v", res.Outcome)
			}
			seen = append(seen, res.Index)
		},
	})

	if _, err := p.Provision(context.Background(), t.TempDir(), manifest); err != nil {
		t.Fatalf("Provision() error = %v", err)
	}
	if fmt.Sprint(seen) != "[0 1 2]" {
		t.Errorf("progress order = %v, want [0 1 2]", seen)
	}
}

func TestProvision_RejectsFilenameOutsideDestination(t *testing.T) {
	root := t.TempDir()
	dest := filepath.Join(root, "jars")

	escaping := entry("escape", "1.0")
	escaping.DestinationFilename = "../escape.jar"
	valid := entry("iceberg-runtime", "1.9.1")
	manifest := []entities.ManifestEntry{escaping, valid}

	fetcher := newMockFetcher()
	serve(fetcher, manifest...)

	p := NewProvisioner(fetcher, nil, nil, ProvisionerConfig{})
	results, err := p.Provision(context.Background(), dest, manifest)
	if err != nil {
		t.Fatalf("Provision() error = %v", err)
	}

	if results[0].Outcome != entities.OutcomeFailed {
		t.Errorf("results[0].Outcome = %v, want failed", results[0].Outcome)
	}
	var downloadErr *DownloadError
	if !errors.As(results[0].Err, &downloadErr) {
		t.Errorf("results[0].Err = %v, want DownloadError", results[0].Err)
	}
	if results[1].Outcome != entities.OutcomeDownloaded {
		t.Errorf("results[1].Outcome = %v, want downloaded", results[1].Outcome)
	}
	if fetcher.callCount() != 1 {
		t.Errorf("fetch calls = %d, want 1", fetcher.callCount())
	}
	if _, err := os.Stat(filepath.Join(root, "escape.jar")); !os.IsNotExist(err) {
		t.Errorf("file written outside destination: %v", err)
	}
}

func TestProvision_RejectsPartSuffixedFilename(t *testing.T) {
	a := entry("a", "1.0")
	a.DestinationFilename = "x.jar"
	b := entry("b", "1.0")
	b.DestinationFilename = "x.jar" + PartSuffix
	manifest := []entities.ManifestEntry{a, b}

	fetcher := newMockFetcher()
	serve(fetcher, manifest...)

	p := NewProvisioner(fetcher, nil, nil, ProvisionerConfig{Concurrency: 2})
	results, err := p.Provision(context.Background(), t.TempDir(), manifest)
	if err != nil {
		t.Fatalf("Provision() error = %v", err)
	}

	if results[0].Outcome != entities.OutcomeDownloaded {
		t.Errorf("results[0].Outcome = %v, want downloaded", results[0].Outcome)
	}
	if results[1].Outcome != entities.OutcomeFailed {
		t.Errorf("results[1].Outcome = %v, want failed", results[1].Outcome)
	}
	if fetcher.callCount() != 1 {
		t.Errorf("fetch calls = %d, want 1", fetcher.callCount())
	}
}

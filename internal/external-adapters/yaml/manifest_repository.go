package yaml

import (
	"context"
	_ "embed"
	"fmt"
	"os"
	"strings"

	"github.com/ochairo/jarfetch/internal/domain/entities"
)

//go:embed default_manifest.yml
var defaultManifest []byte

// ManifestRepository implements repositories.ManifestRepository using YAML files
type ManifestRepository struct {
	manifestPath string
	repository   string
	parser       *ManifestParser
}

// NewManifestRepository creates a new YAML-based manifest repository.
// An empty manifestPath selects the built-in manifest; a non-empty
// repository replaces the base URL of every entry.
func NewManifestRepository(manifestPath, repository string) *ManifestRepository {
	return &ManifestRepository{
		manifestPath: manifestPath,
		repository:   strings.TrimRight(repository, "/"),
		parser:       NewManifestParser(),
	}
}

// GetManifest loads and validates the configured manifest
func (r *ManifestRepository) GetManifest(_ context.Context) (*entities.Manifest, error) {
	data := defaultManifest
	if r.manifestPath != "" {
		//nolint:gosec // G304: manifestPath is the manifest chosen by the user
		fileData, err := os.ReadFile(r.manifestPath)
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("manifest not found: %s", r.manifestPath)
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read file %s: %w", r.manifestPath, err)
		}
		data = fileData
	}

	manifest, err := r.parser.decode(data)
	if err != nil {
		return nil, err
	}

	if r.repository != "" {
		for i := range manifest.Entries {
			manifest.Entries[i].RepositoryBaseURL = r.repository
		}
	}

	if err := manifest.Validate(); err != nil {
		return nil, fmt.Errorf("invalid manifest: %w", err)
	}

	return manifest, nil
}

// DefaultManifest returns the built-in manifest
func DefaultManifest() (*entities.Manifest, error) {
	return NewManifestParser().Parse(defaultManifest)
}

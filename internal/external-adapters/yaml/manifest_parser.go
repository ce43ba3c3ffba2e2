// Package yaml provides YAML-based manifest parsing and repository implementations.
package yaml

import (
	"fmt"
	"strings"

	"github.com/ochairo/jarfetch/internal/domain/entities"
	"gopkg.in/yaml.v3"
)

// yamlManifest represents the raw YAML structure
type yamlManifest struct {
	Name       string         `yaml:"name"`
	Repository string         `yaml:"repository"`
	Artifacts  []yamlArtifact `yaml:"artifacts"`
}

type yamlArtifact struct {
	Group      string `yaml:"group"`
	Name       string `yaml:"name"`
	Version    string `yaml:"version"`
	Repository string `yaml:"repository"`
	Filename   string `yaml:"filename"`
	SHA256     string `yaml:"sha256"`
	Size       int64  `yaml:"size"`
}

// ManifestParser parses YAML manifest files
type ManifestParser struct{}

// NewManifestParser creates a new YAML parser
func NewManifestParser() *ManifestParser {
	return &ManifestParser{}
}

// Parse parses YAML bytes into a validated Manifest entity.
// Artifacts without their own repository inherit the manifest's.
func (p *ManifestParser) Parse(data []byte) (*entities.Manifest, error) {
	manifest, err := p.decode(data)
	if err != nil {
		return nil, err
	}

	if err := manifest.Validate(); err != nil {
		return nil, err
	}

	return manifest, nil
}

func (p *ManifestParser) decode(data []byte) (*entities.Manifest, error) {
	var raw yamlManifest
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	manifest := &entities.Manifest{
		Name:    raw.Name,
		Entries: make([]entities.ManifestEntry, 0, len(raw.Artifacts)),
	}
	for _, a := range raw.Artifacts {
		manifest.Entries = append(manifest.Entries, convertArtifact(a, raw.Repository))
	}

	return manifest, nil
}

func convertArtifact(a yamlArtifact, defaultRepository string) entities.ManifestEntry {
	repository := a.Repository
	if repository == "" {
		repository = defaultRepository
	}

	return entities.ManifestEntry{
		Coordinate: entities.Coordinate{
			Group:   strings.TrimSpace(a.Group),
			Name:    strings.TrimSpace(a.Name),
			Version: strings.TrimSpace(a.Version),
		},
		RepositoryBaseURL:   strings.TrimRight(repository, "/"),
		DestinationFilename: a.Filename,
		SHA256:              strings.ToLower(a.SHA256),
		Size:                a.Size,
	}
}

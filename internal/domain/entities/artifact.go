// Package entities defines core domain models and data structures.
package entities

import (
	"fmt"
	"strings"
)

// Coordinate identifies exactly one artifact in a Maven-style repository
type Coordinate struct {
	Group   string // dotted namespace, e.g. "org.apache.iceberg"
	Name    string
	Version string
}

// Validate checks that every coordinate field is set
func (c Coordinate) Validate() error {
	switch {
	case strings.TrimSpace(c.Group) == "":
		return fmt.Errorf("coordinate %q: group is required", c.String())
	case strings.TrimSpace(c.Name) == "":
		return fmt.Errorf("coordinate %q: name is required", c.String())
	case strings.TrimSpace(c.Version) == "":
		return fmt.Errorf("coordinate %q: version is required", c.String())
	}
	return nil
}

// Path converts the dotted group into a repository path segment
func (c Coordinate) Path() string {
	return strings.ReplaceAll(c.Group, ".", "/")
}

// String renders the coordinate as group:name:version
func (c Coordinate) String() string {
	return c.Group + ":" + c.Name + ":" + c.Version
}

// ManifestEntry is one artifact a provisioning run must ensure is present
type ManifestEntry struct {
	Coordinate          Coordinate
	RepositoryBaseURL   string
	DestinationFilename string

	// Optional expected content, used to validate cached and fetched files
	SHA256 string
	Size   int64
}

// URL resolves the download location of the artifact
func (e ManifestEntry) URL() string {
	return strings.TrimRight(e.RepositoryBaseURL, "/") + "/" + e.RelativePath()
}

// RelativePath is the artifact's location inside a Maven-style repository
func (e ManifestEntry) RelativePath() string {
	c := e.Coordinate
	return c.Path() + "/" + c.Name + "/" + c.Version + "/" + c.Name + "-" + c.Version + ".jar"
}

// Filename returns the local file name, defaulting to name-version.jar
func (e ManifestEntry) Filename() string {
	if e.DestinationFilename != "" {
		return e.DestinationFilename
	}
	return e.Coordinate.Name + "-" + e.Coordinate.Version + ".jar"
}

// PartSuffix marks in-flight downloads next to their final file
const PartSuffix = ".part"

// ValidateFilename checks that Filename names a plain file directly inside
// the destination and cannot collide with another entry's in-flight download.
func (e ManifestEntry) ValidateFilename() error {
	name := e.Filename()
	if strings.ContainsAny(name, `/\`) || name == "." || name == ".." {
		return fmt.Errorf("destination filename %q must not contain a path", name)
	}
	if strings.HasSuffix(name, PartSuffix) {
		return fmt.Errorf("destination filename %q must not end in %s", name, PartSuffix)
	}
	return nil
}

// Manifest is the ordered list of artifacts for a provisioning run
type Manifest struct {
	Name    string
	Entries []ManifestEntry
}

// Validate checks every entry of the manifest
func (m *Manifest) Validate() error {
	if len(m.Entries) == 0 {
		return fmt.Errorf("manifest %q has no entries", m.Name)
	}

	seen := make(map[string]int, len(m.Entries))
	for i, e := range m.Entries {
		if err := e.Coordinate.Validate(); err != nil {
			return fmt.Errorf("entry %d: %w", i+1, err)
		}
		if e.RepositoryBaseURL == "" {
			return fmt.Errorf("entry %d (%s): repository URL is required", i+1, e.Coordinate)
		}
		if err := e.ValidateFilename(); err != nil {
			return fmt.Errorf("entry %d (%s): %w", i+1, e.Coordinate, err)
		}
		name := e.Filename()
		if prev, dup := seen[name]; dup {
			return fmt.Errorf("entry %d (%s): destination filename %q already used by entry %d", i+1, e.Coordinate, name, prev)
		}
		seen[name] = i + 1
	}

	return nil
}

// Filenames returns the set of destination file names in the manifest
func (m *Manifest) Filenames() map[string]struct{} {
	names := make(map[string]struct{}, len(m.Entries))
	for _, e := range m.Entries {
		names[e.Filename()] = struct{}{}
	}
	return names
}

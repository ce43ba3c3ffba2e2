// Package gateways defines interfaces for external service adapters.
package gateways

import (
	"context"
	"io"

	"github.com/ochairo/jarfetch/internal/domain/entities"
)

// Fetcher streams a remote artifact into w and returns the bytes written
type Fetcher interface {
	Fetch(ctx context.Context, url string, w io.Writer) (int64, error)
}

// ArtifactVerifier checks the content of a local artifact file.
// It runs against downloaded files before they are moved into place.
type ArtifactVerifier interface {
	VerifyArtifact(ctx context.Context, entry entities.ManifestEntry, filePath string) error
}

// ArtifactMirror copies a provisioned artifact to secondary storage
type ArtifactMirror interface {
	// MirrorArtifact uploads the file and reports whether an upload happened
	MirrorArtifact(ctx context.Context, entry entities.ManifestEntry, filePath string) (bool, error)
}

// Package repositories defines interfaces for data access layers.
package repositories

import (
	"context"

	"github.com/ochairo/jarfetch/internal/domain/entities"
)

// ManifestRepository defines the interface for loading artifact manifests
type ManifestRepository interface {
	// GetManifest loads the manifest the repository was configured with
	GetManifest(ctx context.Context) (*entities.Manifest, error)
}

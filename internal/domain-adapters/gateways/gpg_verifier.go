package gateways

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/ochairo/jarfetch/internal/domain/entities"
	"github.com/ochairo/jarfetch/internal/domain/services"
	"github.com/ochairo/jarfetch/internal/external-adapters/gpg"
)

// SignatureSuffix is the extension of detached signatures in Maven repositories
const SignatureSuffix = ".asc"

// gpgVerifier wraps the external GPG adapter to implement the domain gateway interface
type gpgVerifier struct {
	verifier     *gpg.Verifier
	signatureDir string
}

// NewGPGVerifier creates a new GPG verifier gateway
//
//nolint:revive // unexported-return: Intentionally returns concrete type for testability
func NewGPGVerifier() *gpgVerifier {
	return &gpgVerifier{
		verifier: gpg.NewVerifier(),
	}
}

// SetSignatureDir makes VerifyArtifact read <filename>.asc from dir.
// An empty dir restores fetching signatures from the repository.
func (g *gpgVerifier) SetSignatureDir(dir string) {
	g.signatureDir = dir
}

// VerifyArtifact checks the artifact against its .asc signature, either the one
// published next to it or the local copy in the signature directory
func (g *gpgVerifier) VerifyArtifact(ctx context.Context, entry entities.ManifestEntry, filePath string) error {
	var err error
	if g.signatureDir != "" {
		err = g.verifier.VerifySignatureFromFile(filePath, filepath.Join(g.signatureDir, entry.Filename()+SignatureSuffix))
	} else {
		err = g.verifier.VerifySignature(ctx, filePath, entry.URL()+SignatureSuffix)
	}
	if err != nil {
		return fmt.Errorf("%w: %v", services.ErrSignatureInvalid, err)
	}
	return nil
}

// ImportGPGKeys imports GPG keys from keyservers
func (g *gpgVerifier) ImportGPGKeys(ctx context.Context, keyIDs []string) error {
	if err := g.verifier.ImportKeys(ctx, keyIDs); err != nil {
		return fmt.Errorf("failed to import GPG keys: %w", err)
	}
	return nil
}

// ImportGPGKeysFromURL imports all GPG keys from a KEYS file URL
func (g *gpgVerifier) ImportGPGKeysFromURL(ctx context.Context, keysURL string) error {
	if err := g.verifier.ImportKeysFromURL(ctx, keysURL); err != nil {
		return fmt.Errorf("failed to import GPG keys from URL: %w", err)
	}
	return nil
}

// ImportGPGKeyFromFile imports a GPG key from a local file
func (g *gpgVerifier) ImportGPGKeyFromFile(keyPath string) error {
	if err := g.verifier.ImportKeyFromFile(keyPath); err != nil {
		return fmt.Errorf("failed to import GPG key from file: %w", err)
	}
	return nil
}

// GetKeyringSize returns the number of keys loaded
func (g *gpgVerifier) GetKeyringSize() int {
	return g.verifier.GetKeyringSize()
}

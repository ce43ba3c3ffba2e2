package gateways

import (
	"context"
	"crypto/sha1" //nolint:gosec // G505: Maven repositories publish SHA-1 sidecars
	"crypto/sha256"
	"crypto/sha512"
	"encoding/hex"
	"fmt"
	"hash"
	"io"
	"os"
	"strings"

	"github.com/ochairo/jarfetch/internal/domain/entities"
	"github.com/ochairo/jarfetch/internal/domain/services"
)

// maxSidecarSize bounds checksum sidecar downloads
const maxSidecarSize = 4 * 1024

// SidecarFetcher downloads small files published next to an artifact
type SidecarFetcher interface {
	FetchSmall(ctx context.Context, url string, limit int64) ([]byte, error)
}

// checksumVerifier implements checksum verification using pure Go
type checksumVerifier struct {
	sidecars SidecarFetcher
}

// NewChecksumVerifier creates a verifier that only checks values carried by the manifest
//
//nolint:revive // unexported-return: Intentionally returns concrete type for testability
func NewChecksumVerifier() *checksumVerifier {
	return &checksumVerifier{}
}

// NewRemoteChecksumVerifier also checks the repository's .sha1 sidecar
//
//nolint:revive // unexported-return: Intentionally returns concrete type for testability
func NewRemoteChecksumVerifier(sidecars SidecarFetcher) *checksumVerifier {
	return &checksumVerifier{sidecars: sidecars}
}

// VerifyArtifact checks size and SHA-256 from the manifest entry and,
// for remote verifiers, the SHA-1 published by the repository.
func (v *checksumVerifier) VerifyArtifact(ctx context.Context, entry entities.ManifestEntry, filePath string) error {
	if entry.Size > 0 {
		info, err := os.Stat(filePath)
		if err != nil {
			return fmt.Errorf("failed to stat file: %w", err)
		}
		if info.Size() != entry.Size {
			return fmt.Errorf("%w: expected %d bytes, got %d", services.ErrChecksumMismatch, entry.Size, info.Size())
		}
	}

	if entry.SHA256 != "" {
		if err := v.VerifyChecksum(ctx, filePath, entry.SHA256); err != nil {
			return err
		}
	}

	if v.sidecars == nil {
		return nil
	}

	data, err := v.sidecars.FetchSmall(ctx, entry.URL()+".sha1", maxSidecarSize)
	if err != nil {
		return fmt.Errorf("failed to fetch sha1 checksum: %w", err)
	}
	expected, err := ParseChecksumFile(data)
	if err != nil {
		return err
	}

	actual, err := v.CalculateDigest(filePath, "sha1")
	if err != nil {
		return err
	}
	if !strings.EqualFold(actual, expected) {
		return fmt.Errorf("%w: sha1 expected %s, got %s", services.ErrChecksumMismatch, expected, actual)
	}

	return nil
}

// VerifyChecksum verifies a file's SHA256 checksum
func (v *checksumVerifier) VerifyChecksum(_ context.Context, filePath, expectedSum string) error {
	actualSum, err := v.CalculateChecksum(filePath)
	if err != nil {
		return err
	}

	if !strings.EqualFold(actualSum, expectedSum) {
		return fmt.Errorf("%w: expected %s, got %s", services.ErrChecksumMismatch, expectedSum, actualSum)
	}

	return nil
}

// CalculateChecksum calculates the SHA256 checksum of a file
func (v *checksumVerifier) CalculateChecksum(filePath string) (string, error) {
	return v.CalculateDigest(filePath, "sha256")
}

// CalculateDigest hashes a file with sha1, sha256 or sha512
func (v *checksumVerifier) CalculateDigest(filePath, algorithm string) (string, error) {
	var h hash.Hash
	switch algorithm {
	case "sha1":
		h = sha1.New() //nolint:gosec // G401: matches the repository's published digest
	case "sha256":
		h = sha256.New()
	case "sha512":
		h = sha512.New()
	default:
		return "", fmt.Errorf("unsupported digest algorithm %q", algorithm)
	}

	//nolint:gosec // G304: File path is the artifact being verified
	f, err := os.Open(filePath)
	if err != nil {
		return "", fmt.Errorf("failed to open file: %w", err)
	}
	//nolint:errcheck // Defer close on read-only file
	defer f.Close()

	if _, err := io.Copy(h, f); err != nil {
		return "", fmt.Errorf("failed to hash file: %w", err)
	}

	return hex.EncodeToString(h.Sum(nil)), nil
}

// ParseChecksumFile extracts the digest from "hash" or "hash  filename" content
func ParseChecksumFile(data []byte) (string, error) {
	parts := strings.Fields(string(data))
	if len(parts) < 1 {
		return "", fmt.Errorf("invalid checksum file format")
	}
	if _, err := hex.DecodeString(parts[0]); err != nil {
		return "", fmt.Errorf("invalid checksum file format: %w", err)
	}
	return strings.ToLower(parts[0]), nil
}

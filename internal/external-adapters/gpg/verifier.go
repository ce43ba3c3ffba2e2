// Package gpg provides GPG signature verification capabilities.
package gpg

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/ProtonMail/go-crypto/openpgp"
)

const (
	// Some projects publish large KEYS files
	maxKeysFileSize = 10 * 1024 * 1024
	// Detached signatures are typically < 1KB
	maxSignatureSize = 10 * 1024

	armoredSignaturePrefix = "-----BEGIN PGP SIGNATURE-----"
)

// DefaultKeyservers are tried in order when importing keys by ID
var DefaultKeyservers = []string{
	"https://keys.openpgp.org",
	"https://keyserver.ubuntu.com",
}

// Verifier implements GPG signature verification using ProtonMail's go-crypto.
// This is in external-adapters to isolate the external dependency.
type Verifier struct {
	keyring    openpgp.EntityList
	keyservers []string
	httpClient *http.Client
}

// NewVerifier creates a new GPG verifier
func NewVerifier() *Verifier {
	return &Verifier{
		keyring:    make(openpgp.EntityList, 0),
		keyservers: DefaultKeyservers,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// SetKeyservers replaces the keyservers used by ImportKeys
func (v *Verifier) SetKeyservers(keyservers []string) {
	v.keyservers = keyservers
}

// ImportKeys imports keys by fingerprint, trying each keyserver in turn
func (v *Verifier) ImportKeys(ctx context.Context, keyIDs []string) error {
	if len(keyIDs) == 0 {
		return fmt.Errorf("no key IDs provided")
	}

	for _, keyID := range keyIDs {
		keyID = strings.ToUpper(strings.TrimPrefix(strings.TrimSpace(keyID), "0x"))
		if keyID == "" {
			continue
		}

		var lastErr error
		imported := false
		for _, keyserver := range v.keyservers {
			urls := []string{
				fmt.Sprintf("%s/vks/v1/by-fingerprint/%s", keyserver, keyID),
				fmt.Sprintf("%s/pks/lookup?op=get&search=0x%s", keyserver, keyID),
			}

			for _, url := range urls {
				entities, err := v.fetchKeyRing(ctx, url)
				if err != nil {
					lastErr = err
					continue
				}

				// Only accept responses that contain the requested key
				if !containsFingerprint(entities, keyID) {
					lastErr = fmt.Errorf("no valid keys found matching fingerprint %s", keyID)
					continue
				}

				v.keyring = append(v.keyring, entities...)
				imported = true
				break
			}

			if imported {
				break
			}
		}

		if !imported {
			if lastErr == nil {
				lastErr = errors.New("no keyservers configured")
			}
			return fmt.Errorf("failed to import key %s from all keyservers: %w", keyID, lastErr)
		}
	}

	return nil
}

// ImportKeysFromURL imports all keys from a KEYS file, as published by Apache projects
func (v *Verifier) ImportKeysFromURL(ctx context.Context, keysURL string) error {
	entities, err := v.fetchKeyRing(ctx, keysURL)
	if err != nil {
		return fmt.Errorf("failed to import KEYS file: %w", err)
	}

	// Signature verification will fail later if a key is expired
	v.keyring = append(v.keyring, entities...)
	return nil
}

// ImportKeyFromFile imports keys from an armored or binary key file
func (v *Verifier) ImportKeyFromFile(keyPath string) error {
	//nolint:gosec // G304: keyPath is user-provided for GPG key import
	f, err := os.Open(keyPath)
	if err != nil {
		return fmt.Errorf("failed to open key file: %w", err)
	}
	//nolint:errcheck // Defer close
	defer f.Close()

	entities, err := openpgp.ReadArmoredKeyRing(f)
	if err != nil {
		if _, seekErr := f.Seek(0, io.SeekStart); seekErr != nil {
			return fmt.Errorf("failed to reset file: %w", seekErr)
		}
		entities, err = openpgp.ReadKeyRing(f)
		if err != nil {
			return fmt.Errorf("failed to read key: %w", err)
		}
	}

	if len(entities) == 0 {
		return fmt.Errorf("no keys found in file")
	}

	v.keyring = append(v.keyring, entities...)
	return nil
}

// VerifySignature downloads a detached signature and verifies filePath against it
func (v *Verifier) VerifySignature(ctx context.Context, filePath, sigURL string) error {
	if len(v.keyring) == 0 {
		return fmt.Errorf("no GPG keys imported, call ImportKeys first")
	}

	sigData, err := v.download(ctx, sigURL, maxSignatureSize)
	if err != nil {
		return fmt.Errorf("failed to download signature: %w", err)
	}
	if len(sigData) < 10 {
		return fmt.Errorf("signature file too small to be valid GPG signature")
	}

	return v.verifyDetached(filePath, sigData)
}

// VerifySignatureFromFile verifies a detached signature stored locally
func (v *Verifier) VerifySignatureFromFile(filePath, sigPath string) error {
	if len(v.keyring) == 0 {
		return fmt.Errorf("no GPG keys imported, call ImportKeys first")
	}

	//nolint:gosec // G304: sigPath is user-provided for GPG verification
	sigData, err := os.ReadFile(sigPath)
	if err != nil {
		return fmt.Errorf("failed to open signature file: %w", err)
	}

	return v.verifyDetached(filePath, sigData)
}

// GetKeyringSize returns the number of keys in the keyring
func (v *Verifier) GetKeyringSize() int {
	return len(v.keyring)
}

func (v *Verifier) verifyDetached(filePath string, sigData []byte) error {
	//nolint:gosec // G304: filePath is the artifact being verified
	f, err := os.Open(filePath)
	if err != nil {
		return fmt.Errorf("failed to open data file: %w", err)
	}
	//nolint:errcheck // Defer close
	defer f.Close()

	sig := bytes.NewReader(sigData)
	if bytes.HasPrefix(bytes.TrimSpace(sigData), []byte(armoredSignaturePrefix)) {
		_, err = openpgp.CheckArmoredDetachedSignature(v.keyring, f, sig, nil)
	} else {
		_, err = openpgp.CheckDetachedSignature(v.keyring, f, sig, nil)
	}
	if err != nil {
		return fmt.Errorf("signature verification failed: %w", err)
	}

	return nil
}

func (v *Verifier) fetchKeyRing(ctx context.Context, url string) (openpgp.EntityList, error) {
	data, err := v.download(ctx, url, maxKeysFileSize)
	if err != nil {
		return nil, err
	}

	entities, err := openpgp.ReadArmoredKeyRing(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to parse keys: %w", err)
	}
	if len(entities) == 0 {
		return nil, fmt.Errorf("no keys found in %s", url)
	}

	return entities, nil
}

func (v *Verifier) download(ctx context.Context, url string, limit int64) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := v.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	//nolint:errcheck // Defer close
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%s returned status %d", url, resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, limit+1))
	if err != nil {
		return nil, err
	}
	if int64(len(data)) > limit {
		return nil, fmt.Errorf("%s exceeds %d bytes", url, limit)
	}

	return data, nil
}

// containsFingerprint matches a full fingerprint or its 16-character long key ID
func containsFingerprint(entities openpgp.EntityList, keyID string) bool {
	for _, entity := range entities {
		fingerprint := fmt.Sprintf("%X", entity.PrimaryKey.Fingerprint)
		if fingerprint == keyID || (len(fingerprint) >= 16 && fingerprint[len(fingerprint)-16:] == keyID) {
			return true
		}
	}
	return false
}

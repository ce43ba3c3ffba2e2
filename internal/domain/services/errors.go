package services

import (
	"errors"
	"fmt"

	"github.com/ochairo/jarfetch/internal/domain/entities"
)

var (
	// ErrMissingArgument is returned when no destination directory is given
	ErrMissingArgument = errors.New("destination directory is required")

	// ErrDestinationUnavailable is returned when the destination cannot be created or written
	ErrDestinationUnavailable = errors.New("destination directory unavailable")

	// ErrChecksumMismatch is returned when artifact content does not match its expected digest
	ErrChecksumMismatch = errors.New("checksum mismatch")

	// ErrSignatureInvalid is returned when a detached signature does not verify
	ErrSignatureInvalid = errors.New("signature verification failed")
)

// DestinationError describes why the destination directory is unusable
type DestinationError struct {
	Path string
	Err  error
}

func (e *DestinationError) Error() string {
	return fmt.Sprintf("%s: %s: %v", ErrDestinationUnavailable, e.Path, e.Err)
}

func (e *DestinationError) Unwrap() error {
	return e.Err
}

// Is makes errors.Is(err, ErrDestinationUnavailable) hold for every DestinationError
func (e *DestinationError) Is(target error) bool {
	return target == ErrDestinationUnavailable
}

// DownloadError is the per-artifact failure recorded in a Failed result
type DownloadError struct {
	Entry entities.ManifestEntry
	Err   error
}

func (e *DownloadError) Error() string {
	return fmt.Sprintf("download %s failed: %v", e.Entry.Coordinate, e.Err)
}

func (e *DownloadError) Unwrap() error {
	return e.Err
}

package entities

import "time"

// Outcome is the provisioning state of a single manifest entry
type Outcome int

const (
	OutcomeUnknown Outcome = iota
	OutcomeAlreadyPresent
	OutcomeDownloading
	OutcomeDownloaded
	OutcomeFailed
)

func (o Outcome) String() string {
	switch o {
	case OutcomeAlreadyPresent:
		return "already-present"
	case OutcomeDownloading:
		return "downloading"
	case OutcomeDownloaded:
		return "downloaded"
	case OutcomeFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// IsTerminal reports whether no further transition can happen
func (o Outcome) IsTerminal() bool {
	return o == OutcomeAlreadyPresent || o == OutcomeDownloaded || o == OutcomeFailed
}

// IsPresent reports whether the outcome leaves a file at the destination
func (o Outcome) IsPresent() bool {
	return o == OutcomeAlreadyPresent || o == OutcomeDownloaded
}

// ProvisioningResult records what happened to one manifest entry during a run
type ProvisioningResult struct {
	Index     int // zero-based manifest position
	Entry     ManifestEntry
	Outcome   Outcome
	SizeBytes *int64
	Path      string
	Duration  time.Duration
	Err       error
}

// Size returns the recorded size, or zero when none was recorded
func (r ProvisioningResult) Size() int64 {
	if r.SizeBytes == nil {
		return 0
	}
	return *r.SizeBytes
}

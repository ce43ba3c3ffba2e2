package entities

// Report summarizes a provisioning run
type Report struct {
	RunID       string
	Destination string
	Results     []ProvisioningResult
	Counts      map[Outcome]int

	// BytesTransferred sums the sizes of Downloaded entries
	BytesTransferred int64

	// PresentOnDisk is counted by scanning the destination, independent of Results
	PresentOnDisk int

	// Consistent is true when PresentOnDisk matches the present outcomes in Results
	Consistent bool
}

// Present returns the number of entries whose outcome left a file behind
func (r *Report) Present() int {
	return r.Counts[OutcomeAlreadyPresent] + r.Counts[OutcomeDownloaded]
}

// Failed returns the failed results in manifest order
func (r *Report) Failed() []ProvisioningResult {
	var failed []ProvisioningResult
	for _, res := range r.Results {
		if res.Outcome == OutcomeFailed {
			failed = append(failed, res)
		}
	}
	return failed
}

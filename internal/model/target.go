package model

// TargetStatus tracks a target through the transfer and verify stages.
type TargetStatus string

// Target statuses.
const (
	Pending        TargetStatus = "pending"
	Transferring   TargetStatus = "transferring"
	Transferred    TargetStatus = "transferred"
	TransferFailed TargetStatus = "transfer-failed"
	Verifying      TargetStatus = "verifying"
	Verified       TargetStatus = "verified"
	VerifyFailed   TargetStatus = "verify-failed"
)

// Target is a destination registered against a source. Its alias only needs
// to be unique among the targets of the same source.
type Target struct {
	Path   string       `json:"path"`
	Alias  string       `json:"alias,omitempty"`
	Verify bool         `json:"verify"`
	Status TargetStatus `json:"status"`
	// Verified holds the outcome of the verify stage once it ran.
	Verified *VerifyStats `json:"verified,omitempty"`
}

// Clone returns a deep copy of the target.
func (t *Target) Clone() *Target {
	dup := *t
	if t.Verified != nil {
		stats := *t.Verified
		dup.Verified = &stats
	}

	return &dup
}

// VerifyStats is the structured result of verifying one target against the
// checksum file transferred alongside the data.
type VerifyStats struct {
	Checked     int    `json:"checked"`
	Missing     int    `json:"missing"`
	CRCMismatch int    `json:"crc_mismatch"`
	LogFile     string `json:"log_file,omitempty"`
}

// Clean reports whether the verification found no missing files and no
// digest mismatches.
func (v *VerifyStats) Clean() bool {
	return v.Missing == 0 && v.CRCMismatch == 0
}

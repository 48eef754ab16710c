package model

import "strings"

type ConflictPolicy string

const (
	ConflictOverwrite ConflictPolicy = "overwrite"
	ConflictSkip      ConflictPolicy = "skip"
	ConflictRename    ConflictPolicy = "rename"
	ConflictFail      ConflictPolicy = "fail"
)

// ParseConflictPolicy accepts the policy names case-insensitively. An empty value
// selects Rename.
func ParseConflictPolicy(raw string) (ConflictPolicy, bool) {
	switch ConflictPolicy(strings.ToLower(strings.TrimSpace(raw))) {
	case "", ConflictRename:
		return ConflictRename, true
	case ConflictOverwrite:
		return ConflictOverwrite, true
	case ConflictSkip:
		return ConflictSkip, true
	case ConflictFail:
		return ConflictFail, true
	default:
		return "", false
	}
}

type TransferRequest struct {
	Source      PathSpec       `json:"source"`
	Destination PathSpec       `json:"destination"`
	Policy      ConflictPolicy `json:"conflict_policy"`
}

// NewTransferRequest builds an unresolved request; the engine resolves both paths.
func NewTransferRequest(source string, destination string, policy ConflictPolicy) TransferRequest {
	return TransferRequest{
		Source:      PathSpec{Path: source},
		Destination: PathSpec{Path: destination},
		Policy:      policy,
	}
}

type TransferResult struct {
	Source      string `json:"source"`
	Destination string `json:"destination"`
	Skipped     bool   `json:"skipped"`
	Renamed     bool   `json:"renamed,omitempty"`
	CrossVolume bool   `json:"cross_volume,omitempty"`
	Bytes       int64  `json:"bytes"`
}

package model

type TransferItem struct {
	Source      string `json:"source"`
	Destination string `json:"destination"`
}

// TransferBatchRequest accepts explicit source/destination pairs, or a list of
// sources plus a destination directory that each source is placed into.
type TransferBatchRequest struct {
	Items          []TransferItem `json:"items"`
	Sources        []string       `json:"sources"`
	Destination    string         `json:"destination"`
	ConflictPolicy string         `json:"conflict_policy"`
}

type PathsRequest struct {
	Paths []string `json:"paths"`
}

type IDsRequest struct {
	IDs []string `json:"ids"`
}

type PathRequest struct {
	Path string `json:"path"`
}

type RestoreByTimeRequest struct {
	Path      string `json:"path"`
	TrashedAt string `json:"trashed_at"`
}

type TimesRequest struct {
	Path       string `json:"path"`
	AccessedMs int64  `json:"accessed_ms"`
	ModifiedMs int64  `json:"modified_ms"`
}

type SymlinkRequest struct {
	Target string `json:"target"`
	Link   string `json:"link"`
}

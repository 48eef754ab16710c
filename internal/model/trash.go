package model

import "time"

// TrashRecord maps a trashed entry back to where it came from. It lives in the
// undelete index until the entry is restored or purged.
type TrashRecord struct {
	ID           string        `json:"id"`
	OriginalPath string        `json:"original_path"`
	Metadata     EntryMetadata `json:"metadata"`
	Store        string        `json:"store"`
	Location     string        `json:"location"`
	TrashedAt    time.Time     `json:"trashed_at"`
	TrashedBy    AuditActor    `json:"trashed_by,omitzero"`
}

type TrashListData struct {
	Items []TrashRecord `json:"items"`
}

type RestoreData struct {
	ID       string   `json:"id"`
	Restored PathSpec `json:"restored"`
}

type EmptyTrashData struct {
	Removed int           `json:"removed"`
	Items   []TrashRecord `json:"items"`
}

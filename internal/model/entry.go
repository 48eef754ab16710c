package model

import (
	"io/fs"
	"time"
)

type EntryType string

const (
	EntryFile      EntryType = "file"
	EntryDirectory EntryType = "directory"
	EntrySymlink   EntryType = "symlink"
	EntryMissing   EntryType = "missing"
)

// PathSpec is an absolute, cleaned path with the entry type observed when it was
// resolved. It is a snapshot and must be re-resolved before every mutation.
type PathSpec struct {
	Path string    `json:"path"`
	Type EntryType `json:"type"`
}

func (p PathSpec) Exists() bool {
	return p.Type != "" && p.Type != EntryMissing
}

func (p PathSpec) IsDir() bool {
	return p.Type == EntryDirectory
}

// EntryMetadata is an immutable snapshot of an entry's attributes. Size is zero for
// directories. CreatedAt and ChangedAt are zero when the platform does not report them.
type EntryMetadata struct {
	Type        EntryType   `json:"type"`
	Size        int64       `json:"size"`
	Mode        fs.FileMode `json:"mode"`
	ModifiedAt  time.Time   `json:"modified_at"`
	AccessedAt  time.Time   `json:"accessed_at"`
	ChangedAt   time.Time   `json:"changed_at,omitzero"`
	CreatedAt   time.Time   `json:"created_at,omitzero"`
	IsReadOnly  bool        `json:"is_read_only"`
	IsHidden    bool        `json:"is_hidden"`
	IsDevice    bool        `json:"is_device"`
	LinkTarget  string      `json:"link_target,omitempty"`
	Permissions string      `json:"permissions"`
}

type DirEntry struct {
	Name     string        `json:"name"`
	Path     string        `json:"path"`
	Metadata EntryMetadata `json:"metadata"`
	MimeType string        `json:"mime_type,omitempty"`
}

type ListOptions struct {
	Recursive    bool
	WithMimeType bool
}

type DirectoryListData struct {
	Path    string     `json:"path"`
	Entries []DirEntry `json:"entries"`
}

type MimeData struct {
	Path     string `json:"path"`
	MimeType string `json:"mime_type"`
}

type Volume struct {
	MountPoint string  `json:"mount_point"`
	Device     string  `json:"device"`
	FSType     string  `json:"fs_type"`
	ReadOnly   bool    `json:"read_only"`
	Total      uint64  `json:"total"`
	Free       uint64  `json:"free"`
	Used       uint64  `json:"used"`
	UsedPct    float64 `json:"used_percent"`
}

type StatData struct {
	Path     string        `json:"path"`
	Metadata EntryMetadata `json:"metadata"`
}

type VolumeListData struct {
	Items []Volume `json:"items"`
}

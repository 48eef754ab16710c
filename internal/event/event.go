// Package event carries progress and change notifications between services and
// websocket clients.
package event

import (
	"time"

	"github.com/google/uuid"
)

type Type string

const (
	TypeEntryMoved    Type = "entry.moved"
	TypeEntryCopied   Type = "entry.copied"
	TypeEntryTrashed  Type = "entry.trashed"
	TypeEntryDeleted  Type = "entry.deleted"
	TypeEntryRestored Type = "entry.restored"
	TypeTrashEmptied  Type = "trash.emptied"
	TypeJobStarted    Type = "job.started"
	TypeJobProgress   Type = "job.progress"
	TypeJobCompleted  Type = "job.completed"
	TypeJobFailed     Type = "job.failed"
	TypeJobCancelled  Type = "job.cancelled"
)

type Event struct {
	ID        string `json:"id"`
	Type      Type   `json:"type"`
	JobID     string `json:"job_id,omitempty"`
	Payload   any    `json:"payload"`
	Timestamp string `json:"timestamp"`
	ActorID   string `json:"actor_id,omitempty"`
}

// New stamps an event with a fresh id and the current UTC time.
func New(eventType Type, jobID string, payload any) Event {
	return Event{
		ID:        uuid.NewString(),
		Type:      eventType,
		JobID:     jobID,
		Payload:   payload,
		Timestamp: time.Now().UTC().Format(time.RFC3339Nano),
	}
}

type Bus interface {
	Publish(e Event)
	Subscribe() (<-chan Event, func())
}

// JobProgress is the payload of job.* events.
type JobProgress struct {
	Status         string `json:"status"`
	Index          int    `json:"index,omitempty"`
	Path           string `json:"path,omitempty"`
	TotalItems     int    `json:"total_items"`
	ProcessedItems int    `json:"processed_items"`
	TotalBytes     int64  `json:"total_bytes,omitempty"`
	ProcessedBytes int64  `json:"processed_bytes,omitempty"`
	Progress       int    `json:"progress"`
	Error          string `json:"error,omitempty"`
}

// EntryChange is the payload of entry.* events.
type EntryChange struct {
	Path        string `json:"path"`
	Destination string `json:"destination,omitempty"`
	RecordID    string `json:"record_id,omitempty"`
}

package model

const (
	JobQueued    = "queued"
	JobRunning   = "running"
	JobCompleted = "completed"
	JobPartial   = "partial"
	JobFailed    = "failed"
	JobCancelled = "cancelled"
)

type JobRequest struct {
	Operation      string         `json:"operation"`
	Items          []TransferItem `json:"items,omitempty"`
	Paths          []string       `json:"paths,omitempty"`
	IDs            []string       `json:"ids,omitempty"`
	ConflictPolicy string         `json:"conflict_policy,omitempty"`
}

type JobData struct {
	JobID          string    `json:"job_id"`
	Operation      string    `json:"operation"`
	Status         string    `json:"status"`
	ConflictPolicy string    `json:"conflict_policy,omitempty"`
	TotalItems     int       `json:"total_items"`
	ProcessedItems int       `json:"processed_items"`
	SuccessItems   int       `json:"success_items"`
	SkippedItems   int       `json:"skipped_items"`
	FailedItems    int       `json:"failed_items"`
	TotalBytes     int64     `json:"total_bytes,omitempty"`
	ProcessedBytes int64     `json:"processed_bytes,omitempty"`
	Progress       int       `json:"progress"`
	Error          string    `json:"error,omitempty"`
	CreatedAt      string    `json:"created_at"`
	StartedAt      string    `json:"started_at,omitempty"`
	FinishedAt     string    `json:"finished_at,omitempty"`
	Items          []Outcome `json:"items,omitempty"`
}

func (j JobData) Finished() bool {
	switch j.Status {
	case JobCompleted, JobPartial, JobFailed, JobCancelled:
		return true
	default:
		return false
	}
}

type JobItemsData struct {
	JobID string    `json:"job_id"`
	Items []Outcome `json:"items"`
}

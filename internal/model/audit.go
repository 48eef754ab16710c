package model

type AuditActor struct {
	UserID   string `json:"user_id,omitempty"`
	Username string `json:"username,omitempty"`
	Role     string `json:"role,omitempty"`
	IP       string `json:"ip,omitempty"`
}

type AuditEntry struct {
	Action      string     `json:"action"`
	OccurredAt  string     `json:"occurred_at"`
	Actor       AuditActor `json:"actor"`
	Status      string     `json:"status"`
	Path        string     `json:"path,omitempty"`
	Destination string     `json:"destination,omitempty"`
	RecordID    string     `json:"record_id,omitempty"`
	Kind        string     `json:"kind,omitempty"`
	Error       string     `json:"error,omitempty"`
}

// AuditQuery filters the journal. Path and Destination match substrings; the
// other filters match whole values.
type AuditQuery struct {
	Action      string
	ActorID     string
	Username    string
	Status      string
	Kind        string
	RecordID    string
	Path        string
	Destination string
	From        string
	To          string
	Page        int
	Limit       int
}

type AuditListData struct {
	Items []AuditEntry `json:"items"`
}

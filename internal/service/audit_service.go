package service

import (
	"bufio"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"time"

	"go-fileops/internal/model"
	"go-fileops/pkg/apierror"
)

const (
	AuditSuccess = "success"
	AuditSkipped = "skipped"
	AuditFailed  = "failed"
)

var (
	auditActions  = []string{OperationMove, OperationCopy, OperationTrash, OperationDelete, OperationUndelete, OperationPurge, OperationEmpty}
	auditStatuses = []string{AuditSuccess, AuditSkipped, AuditFailed}
)

// AuditService appends one JSON line per mutation to a journal file.
type AuditService struct {
	filePath string
	mu       sync.Mutex
	now      func() time.Time
}

func NewAuditService(filePath string) (*AuditService, error) {
	if err := os.MkdirAll(filepath.Dir(filePath), 0o755); err != nil {
		return nil, fmt.Errorf("prepare audit directory: %w", err)
	}

	f, err := os.OpenFile(filePath, os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("initialize audit file: %w", err)
	}
	_ = f.Close()

	return &AuditService{filePath: filePath, now: time.Now}, nil
}

func (s *AuditService) Log(entry model.AuditEntry) {
	if s == nil {
		return
	}
	if entry.OccurredAt == "" {
		entry.OccurredAt = s.now().UTC().Format(time.RFC3339Nano)
	}

	data, err := json.Marshal(entry)
	if err != nil {
		slog.Warn("audit: encode entry", "action", entry.Action, "error", err)
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	f, err := os.OpenFile(s.filePath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		slog.Warn("audit: open journal", "path", s.filePath, "error", err)
		return
	}
	defer f.Close()

	if _, err := f.Write(append(data, '\n')); err != nil {
		slog.Warn("audit: append entry", "path", s.filePath, "error", err)
	}
}

// LogOutcome records one batch item.
func (s *AuditService) LogOutcome(action string, actor model.AuditActor, outcome model.Outcome) {
	status := AuditFailed
	switch {
	case outcome.Success && outcome.Skipped:
		status = AuditSkipped
	case outcome.Success:
		status = AuditSuccess
	}

	s.Log(model.AuditEntry{
		Action:      action,
		Actor:       actor,
		Status:      status,
		Path:        outcome.Path,
		Destination: outcome.Destination,
		RecordID:    outcome.RecordID,
		Kind:        string(outcome.Kind),
		Error:       outcome.Message,
	})
}

func (s *AuditService) Query(query model.AuditQuery) ([]model.AuditEntry, model.Meta, error) {
	if query.Page < 1 {
		query.Page = 1
	}
	if query.Limit <= 0 {
		query.Limit = 50
	}
	if query.Limit > 200 {
		query.Limit = 200
	}

	from, err := parseOptionalAuditTime(query.From)
	if err != nil {
		return nil, model.Meta{}, apierror.BadRequest("invalid 'from' datetime format", query.From)
	}
	to, err := parseOptionalAuditTime(query.To)
	if err != nil {
		return nil, model.Meta{}, apierror.BadRequest("invalid 'to' datetime format", query.To)
	}

	action := strings.ToLower(strings.TrimSpace(query.Action))
	if action != "" && !slices.Contains(auditActions, action) {
		return nil, model.Meta{}, apierror.BadRequest("unknown audit action", query.Action)
	}
	status := strings.ToLower(strings.TrimSpace(query.Status))
	if status != "" && !slices.Contains(auditStatuses, status) {
		return nil, model.Meta{}, apierror.BadRequest("unknown audit status", query.Status)
	}
	actorID := strings.TrimSpace(query.ActorID)
	username := strings.TrimSpace(query.Username)
	kind := strings.ToUpper(strings.TrimSpace(query.Kind))
	recordID := strings.TrimSpace(query.RecordID)
	pathFilter := strings.ToLower(strings.TrimSpace(query.Path))
	destFilter := strings.ToLower(strings.TrimSpace(query.Destination))

	s.mu.Lock()
	defer s.mu.Unlock()

	f, err := os.Open(s.filePath)
	if err != nil {
		return nil, model.Meta{}, fmt.Errorf("open audit journal: %w", err)
	}
	defer f.Close()

	type timedEntry struct {
		at    time.Time
		entry model.AuditEntry
	}
	items := make([]timedEntry, 0, 128)

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		var entry model.AuditEntry
		if json.Unmarshal([]byte(line), &entry) != nil {
			continue
		}

		if action != "" && strings.ToLower(entry.Action) != action {
			continue
		}
		if status != "" && strings.ToLower(entry.Status) != status {
			continue
		}
		if actorID != "" && entry.Actor.UserID != actorID {
			continue
		}
		if username != "" && !strings.EqualFold(entry.Actor.Username, username) {
			continue
		}
		if kind != "" && entry.Kind != kind {
			continue
		}
		if recordID != "" && entry.RecordID != recordID {
			continue
		}
		if destFilter != "" && !strings.Contains(strings.ToLower(entry.Destination), destFilter) {
			continue
		}
		if pathFilter != "" &&
			!strings.Contains(strings.ToLower(entry.Path), pathFilter) &&
			!strings.Contains(strings.ToLower(entry.Destination), pathFilter) {
			continue
		}

		at, timeErr := parseAuditTime(entry.OccurredAt)
		if timeErr != nil {
			continue
		}
		if !from.IsZero() && at.Before(from) {
			continue
		}
		if !to.IsZero() && at.After(to) {
			continue
		}

		items = append(items, timedEntry{at: at, entry: entry})
	}
	if err := scanner.Err(); err != nil {
		return nil, model.Meta{}, fmt.Errorf("read audit journal: %w", err)
	}

	slices.SortStableFunc(items, func(a, b timedEntry) int {
		return b.at.Compare(a.at)
	})

	start, end := model.PageBounds(query.Page, query.Limit, len(items))
	meta := model.NewMeta(query.Page, query.Limit, len(items))
	page := make([]model.AuditEntry, 0, end-start)
	for _, item := range items[start:end] {
		page = append(page, item.entry)
	}
	return page, meta, nil
}

func parseOptionalAuditTime(raw string) (time.Time, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return time.Time{}, nil
	}
	return parseAuditTime(trimmed)
}

func parseAuditTime(raw string) (time.Time, error) {
	value, err := time.Parse(time.RFC3339Nano, raw)
	if err != nil {
		return time.Time{}, err
	}
	return value.UTC(), nil
}

package service

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"

	"go-fileops/internal/event"
	"go-fileops/internal/model"
	"go-fileops/pkg/apierror"
	"go-fileops/pkg/fserr"
)

const DefaultJobQueueSize = 256

// JobService runs batch operations in the background. Every job owns a cancel
// function registered under its id from submission until it finishes.
type JobService struct {
	operations *OperationsService
	entries    *EntryService
	bus        event.Bus

	mu       sync.RWMutex
	jobs     map[string]*model.JobData
	requests map[string]model.JobRequest
	owners   map[string]model.AuditActor
	contexts map[string]context.Context
	cancels  map[string]context.CancelFunc
	queue    chan string
}

func NewJobService(operations *OperationsService, entries *EntryService, bus event.Bus, queueSize int) *JobService {
	if queueSize <= 0 {
		queueSize = DefaultJobQueueSize
	}

	return &JobService{
		operations: operations,
		entries:    entries,
		bus:        bus,
		jobs:       map[string]*model.JobData{},
		requests:   map[string]model.JobRequest{},
		owners:     map[string]model.AuditActor{},
		contexts:   map[string]context.Context{},
		cancels:    map[string]context.CancelFunc{},
		queue:      make(chan string, queueSize),
	}
}

// Run processes queued jobs one at a time until ctx is done. Each job runs its
// items on the batch worker pool.
func (s *JobService) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			s.cancelAll()
			return
		case jobID := <-s.queue:
			s.process(jobID)
		}
	}
}

func (s *JobService) Submit(request model.JobRequest, actor model.AuditActor) (model.JobData, error) {
	operation := strings.ToLower(strings.TrimSpace(request.Operation))
	request.Operation = operation

	total, err := validateJobRequest(request)
	if err != nil {
		return model.JobData{}, err
	}

	policy := ""
	if operation == OperationMove || operation == OperationCopy {
		parsed, ok := model.ParseConflictPolicy(request.ConflictPolicy)
		if !ok {
			return model.JobData{}, apierror.BadRequest("invalid conflict_policy (allowed: overwrite|skip|rename|fail)", request.ConflictPolicy)
		}
		policy = string(parsed)
		request.ConflictPolicy = policy
	}

	job := &model.JobData{
		JobID:          uuid.NewString(),
		Operation:      operation,
		Status:         model.JobQueued,
		ConflictPolicy: policy,
		TotalItems:     total,
		CreatedAt:      time.Now().UTC().Format(time.RFC3339Nano),
	}

	jobCtx, cancel := context.WithCancel(context.Background())

	s.mu.Lock()
	s.jobs[job.JobID] = job
	s.requests[job.JobID] = request
	s.owners[job.JobID] = actor
	s.contexts[job.JobID] = jobCtx
	s.cancels[job.JobID] = cancel
	s.mu.Unlock()

	select {
	case s.queue <- job.JobID:
	default:
		s.forget(job.JobID)
		cancel()
		return model.JobData{}, apierror.New("JOB_QUEUE_FULL", "too many queued jobs, retry later", "", http.StatusServiceUnavailable)
	}

	slog.Info("job queued", "job_id", job.JobID, "operation", operation, "items", total)
	return cloneJob(job), nil
}

func (s *JobService) Get(jobID string, actor model.AuditActor) (model.JobData, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	job, err := s.authorizedJob(jobID, actor)
	if err != nil {
		return model.JobData{}, err
	}
	return cloneJob(job), nil
}

func (s *JobService) Items(jobID string, actor model.AuditActor, page int, limit int) (model.JobItemsData, model.Meta, error) {
	if page < 1 {
		page = 1
	}
	if limit <= 0 {
		limit = 100
	}
	if limit > 500 {
		limit = 500
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	job, err := s.authorizedJob(jobID, actor)
	if err != nil {
		return model.JobItemsData{}, model.Meta{}, err
	}

	start, end := model.PageBounds(page, limit, len(job.Items))
	data := model.JobItemsData{JobID: jobID, Items: append([]model.Outcome{}, job.Items[start:end]...)}
	return data, model.NewMeta(page, limit, len(job.Items)), nil
}

// Cancel stops a job between items. A queued job is cancelled immediately.
func (s *JobService) Cancel(jobID string, actor model.AuditActor) (model.JobData, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	job, err := s.authorizedJob(jobID, actor)
	if err != nil {
		return model.JobData{}, err
	}
	if job.Finished() {
		return model.JobData{}, apierror.New("JOB_FINISHED", model.ErrJobFinished.Error(), jobID, http.StatusConflict)
	}

	if cancel, ok := s.cancels[jobID]; ok {
		cancel()
	}
	if job.Status == model.JobQueued {
		job.Status = model.JobCancelled
		job.FinishedAt = time.Now().UTC().Format(time.RFC3339Nano)
		s.releaseLocked(jobID)
		s.publish(event.TypeJobCancelled, job)
	}

	slog.Info("job cancel requested", "job_id", jobID, "status", job.Status)
	return cloneJob(job), nil
}

func (s *JobService) process(jobID string) {
	s.mu.Lock()
	job, exists := s.jobs[jobID]
	if !exists || job.Status != model.JobQueued {
		s.mu.Unlock()
		return
	}
	request := s.requests[jobID]
	actor := s.owners[jobID]
	ctx := s.contexts[jobID]
	job.Status = model.JobRunning
	job.StartedAt = time.Now().UTC().Format(time.RFC3339Nano)
	s.mu.Unlock()

	totalBytes := s.measure(ctx, request)
	s.mu.Lock()
	job.TotalBytes = totalBytes
	s.publish(event.TypeJobStarted, job)
	s.mu.Unlock()

	observe := func(outcome model.Outcome) {
		s.mu.Lock()
		defer s.mu.Unlock()

		job.ProcessedItems++
		job.ProcessedBytes += outcome.Bytes
		job.Progress = percent(job.ProcessedItems, job.TotalItems)
		s.publishItem(job, outcome)
	}

	var (
		result model.BatchResult
		err    error
	)
	switch request.Operation {
	case OperationMove:
		result, err = s.operations.MvAll(ctx, request.Items, model.ConflictPolicy(request.ConflictPolicy), actor, observe)
	case OperationCopy:
		result, err = s.operations.CopyAll(ctx, request.Items, model.ConflictPolicy(request.ConflictPolicy), actor, observe)
	case OperationTrash:
		result, err = s.operations.TrashAll(ctx, request.Paths, actor, observe)
	case OperationDelete:
		result, err = s.operations.DeleteAll(ctx, request.Paths, actor, observe)
	case OperationUndelete:
		result, err = s.operations.UndeleteAll(ctx, request.IDs, actor, observe)
	}

	s.finalize(jobID, result, err)
}

func (s *JobService) finalize(jobID string, result model.BatchResult, runErr error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	job, exists := s.jobs[jobID]
	if !exists {
		return
	}

	summary := result.Summary
	job.Items = result.Items
	job.ProcessedItems = summary.Succeeded + summary.Failed
	job.SuccessItems = summary.Succeeded - summary.Skipped
	job.SkippedItems = summary.Skipped
	job.FailedItems = summary.Failed + summary.Cancelled
	job.Progress = 100
	job.FinishedAt = time.Now().UTC().Format(time.RFC3339Nano)

	eventType := event.TypeJobCompleted
	switch {
	case fserr.Is(runErr, fserr.Cancelled):
		job.Status = model.JobCancelled
		job.Error = runErr.Error()
		eventType = event.TypeJobCancelled
	case runErr != nil:
		job.Status = model.JobFailed
		job.Error = runErr.Error()
		eventType = event.TypeJobFailed
	case summary.Failed == 0:
		job.Status = model.JobCompleted
	case summary.Succeeded == 0:
		job.Status = model.JobFailed
		eventType = event.TypeJobFailed
	default:
		job.Status = model.JobPartial
	}

	s.releaseLocked(jobID)
	s.publish(eventType, job)

	slog.Info("job finished",
		"job_id", jobID,
		"status", job.Status,
		"succeeded", summary.Succeeded,
		"skipped", summary.Skipped,
		"failed", summary.Failed,
		"cancelled", summary.Cancelled,
		"bytes", humanize.Bytes(uint64(summary.Bytes)))
}

// measure sizes the sources so progress can be reported in bytes.
func (s *JobService) measure(ctx context.Context, request model.JobRequest) int64 {
	if s.entries == nil {
		return 0
	}

	switch request.Operation {
	case OperationMove, OperationCopy:
		sources := make([]string, len(request.Items))
		for i, item := range request.Items {
			sources[i] = item.Source
		}
		return s.entries.Measure(ctx, sources)
	case OperationTrash:
		return s.entries.Measure(ctx, request.Paths)
	default:
		return 0
	}
}

func (s *JobService) authorizedJob(jobID string, actor model.AuditActor) (*model.JobData, error) {
	job, exists := s.jobs[jobID]
	if !exists {
		return nil, apierror.New("NOT_FOUND", model.ErrJobNotFound.Error(), jobID, http.StatusNotFound)
	}

	owner := s.owners[jobID]
	if owner.UserID != "" && actor.Role != "admin" && owner.UserID != actor.UserID {
		return nil, apierror.New("NOT_FOUND", model.ErrJobNotFound.Error(), jobID, http.StatusNotFound)
	}
	return job, nil
}

// releaseLocked drops the per-job bookkeeping once the job is final. Callers hold s.mu.
func (s *JobService) releaseLocked(jobID string) {
	if cancel, ok := s.cancels[jobID]; ok {
		cancel()
	}
	delete(s.cancels, jobID)
	delete(s.contexts, jobID)
	delete(s.requests, jobID)
}

func (s *JobService) forget(jobID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.releaseLocked(jobID)
	delete(s.jobs, jobID)
	delete(s.owners, jobID)
}

func (s *JobService) cancelAll() {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, cancel := range s.cancels {
		cancel()
	}
}

func (s *JobService) publish(eventType event.Type, job *model.JobData) {
	if s.bus == nil {
		return
	}
	s.bus.Publish(event.New(eventType, job.JobID, event.JobProgress{
		Status:         job.Status,
		TotalItems:     job.TotalItems,
		ProcessedItems: job.ProcessedItems,
		TotalBytes:     job.TotalBytes,
		ProcessedBytes: job.ProcessedBytes,
		Progress:       job.Progress,
		Error:          job.Error,
	}))
}

func (s *JobService) publishItem(job *model.JobData, outcome model.Outcome) {
	if s.bus == nil {
		return
	}
	s.bus.Publish(event.New(event.TypeJobProgress, job.JobID, event.JobProgress{
		Status:         job.Status,
		Index:          outcome.Index,
		Path:           outcome.Path,
		TotalItems:     job.TotalItems,
		ProcessedItems: job.ProcessedItems,
		TotalBytes:     job.TotalBytes,
		ProcessedBytes: job.ProcessedBytes,
		Progress:       job.Progress,
		Error:          outcome.Message,
	}))
}

func validateJobRequest(request model.JobRequest) (int, error) {
	switch request.Operation {
	case OperationMove, OperationCopy:
		if len(request.Items) == 0 {
			return 0, apierror.BadRequest("items are required for move/copy", "items")
		}
		for _, item := range request.Items {
			if strings.TrimSpace(item.Source) == "" || strings.TrimSpace(item.Destination) == "" {
				return 0, apierror.BadRequest("every item needs a source and a destination", "items")
			}
		}
		return len(request.Items), nil
	case OperationTrash, OperationDelete:
		if len(request.Paths) == 0 {
			return 0, apierror.BadRequest("paths are required for trash/delete", "paths")
		}
		return len(request.Paths), nil
	case OperationUndelete:
		if len(request.IDs) == 0 {
			return 0, apierror.BadRequest("ids are required for undelete", "ids")
		}
		return len(request.IDs), nil
	default:
		return 0, apierror.BadRequest("operation must be one of: move|copy|trash|delete|undelete", request.Operation)
	}
}

func percent(done int, total int) int {
	if total <= 0 {
		return 100
	}
	return done * 100 / total
}

// cloneJob copies the job without its item list; items are paged separately.
func cloneJob(job *model.JobData) model.JobData {
	clone := *job
	clone.Items = nil
	return clone
}

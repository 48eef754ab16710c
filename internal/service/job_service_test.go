package service

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go-fileops/internal/event"
	"go-fileops/internal/model"
	"go-fileops/pkg/apierror"
)

func waitForJob(t *testing.T, jobs *JobService, jobID string) model.JobData {
	t.Helper()

	var job model.JobData
	require.Eventually(t, func() bool {
		current, err := jobs.Get(jobID, model.AuditActor{})
		if err != nil {
			return false
		}
		job = current
		return job.Finished()
	}, 5*time.Second, 10*time.Millisecond)
	return job
}

func TestJobRunsCopyAndReportsProgress(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	jobs := NewJobService(env.operations, env.entries, env.bus, 4)

	events, unsubscribe := env.bus.Subscribe()
	defer unsubscribe()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go jobs.Run(ctx)

	job, err := jobs.Submit(model.JobRequest{
		Operation: "COPY",
		Items: []model.TransferItem{
			{Source: env.write(t, "a.txt", "aaaa"), Destination: env.path("out", "a.txt")},
			{Source: env.write(t, "b.txt", "bb"), Destination: env.path("out", "b.txt")},
		},
	}, model.AuditActor{UserID: "u1"})
	require.NoError(t, err)
	assert.Equal(t, model.JobQueued, job.Status)
	assert.Equal(t, "rename", job.ConflictPolicy)

	done := waitForJob(t, jobs, job.JobID)
	assert.Equal(t, model.JobCompleted, done.Status)
	assert.Equal(t, 2, done.SuccessItems)
	assert.Equal(t, 100, done.Progress)
	assert.EqualValues(t, 6, done.TotalBytes)
	assert.Nil(t, done.Items)

	items, meta, err := jobs.Items(job.JobID, model.AuditActor{UserID: "u1"}, 1, 1)
	require.NoError(t, err)
	require.Len(t, items.Items, 1)
	assert.Equal(t, 2, meta.Total)
	assert.Equal(t, 0, items.Items[0].Index)

	var types []event.Type
	for len(types) < 4 {
		select {
		case e := <-events:
			if e.JobID == job.JobID {
				types = append(types, e.Type)
			}
		case <-time.After(2 * time.Second):
			t.Fatalf("missing job events, got %v", types)
		}
	}
	assert.Equal(t, event.TypeJobStarted, types[0])
	assert.Equal(t, event.TypeJobProgress, types[1])
	assert.Equal(t, event.TypeJobProgress, types[2])
	assert.Equal(t, event.TypeJobCompleted, types[3])
}

func TestJobCancelWhileQueued(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	jobs := NewJobService(env.operations, env.entries, env.bus, 4)

	job, err := jobs.Submit(model.JobRequest{Operation: "delete", Paths: []string{env.write(t, "x", "x")}}, model.AuditActor{})
	require.NoError(t, err)

	cancelled, err := jobs.Cancel(job.JobID, model.AuditActor{})
	require.NoError(t, err)
	assert.Equal(t, model.JobCancelled, cancelled.Status)

	ctx, stop := context.WithCancel(context.Background())
	defer stop()
	go jobs.Run(ctx)

	time.Sleep(50 * time.Millisecond)
	assert.FileExists(t, env.path("x"))

	_, err = jobs.Cancel(job.JobID, model.AuditActor{})
	apiErr := apierror.FromError(err)
	require.NotNil(t, apiErr)
	assert.Equal(t, http.StatusConflict, apiErr.HTTPStatus)
}

func TestJobValidationAndOwnership(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	jobs := NewJobService(env.operations, env.entries, env.bus, 1)

	cases := []model.JobRequest{
		{Operation: "shred", Paths: []string{"/x"}},
		{Operation: "move"},
		{Operation: "copy", Items: []model.TransferItem{{Source: "a"}}},
		{Operation: "trash"},
		{Operation: "undelete"},
		{Operation: "move", Items: []model.TransferItem{{Source: "a", Destination: "b"}}, ConflictPolicy: "merge"},
	}
	for _, request := range cases {
		_, err := jobs.Submit(request, model.AuditActor{})
		apiErr := apierror.FromError(err)
		require.NotNil(t, apiErr, request.Operation)
		assert.Equal(t, http.StatusBadRequest, apiErr.HTTPStatus)
	}

	job, err := jobs.Submit(model.JobRequest{Operation: "trash", Paths: []string{"a"}}, model.AuditActor{UserID: "owner"})
	require.NoError(t, err)

	_, err = jobs.Get(job.JobID, model.AuditActor{UserID: "intruder", Role: "editor"})
	assert.Equal(t, http.StatusNotFound, apierror.FromError(err).HTTPStatus)
	_, err = jobs.Get(job.JobID, model.AuditActor{UserID: "root", Role: "admin"})
	assert.NoError(t, err)

	_, err = jobs.Submit(model.JobRequest{Operation: "trash", Paths: []string{"b"}}, model.AuditActor{})
	assert.Equal(t, http.StatusServiceUnavailable, apierror.FromError(err).HTTPStatus)
}

package router

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go-fileops/internal/batch"
	"go-fileops/internal/event"
	"go-fileops/internal/handler"
	"go-fileops/internal/middleware"
	"go-fileops/internal/repository"
	"go-fileops/internal/service"
	"go-fileops/internal/storage"
	"go-fileops/internal/trashstore"
	"go-fileops/internal/util"
)

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *struct {
		Code string `json:"code"`
		Path string `json:"path"`
	} `json:"error"`
}

type testServer struct {
	root    string
	handler http.Handler
	jobs    *service.JobService
}

func newTestServer(t *testing.T, secret string) *testServer {
	t.Helper()

	base := t.TempDir()
	root := filepath.Join(base, "data")
	require.NoError(t, os.MkdirAll(root, 0o755))

	resolver, err := storage.NewResolver(root, []string{root})
	require.NoError(t, err)
	store, err := trashstore.NewDirStore(filepath.Join(base, "trash"))
	require.NoError(t, err)
	audit, err := service.NewAuditService(filepath.Join(base, "audit.jsonl"))
	require.NoError(t, err)

	scanner := storage.NewScanner()
	bus := event.NewBus()
	index := service.NewUndeleteIndex(repository.NewMemoryTrashRepository(), store)
	trash := service.NewTrashService(resolver, scanner, store, index)
	transfer := service.NewTransferService(resolver, service.TransferOptions{})
	entries := service.NewEntryService(resolver, scanner, util.NewMimeSniffer(0))
	operations := service.NewOperationsService(resolver, transfer, trash, batch.New(2), audit, bus)
	jobs := service.NewJobService(operations, entries, bus, 8)

	auth := middleware.NewAuthMiddleware(middleware.NewTokenValidator(secret))
	h := New(Options{RequestTimeout: time.Minute}, auth, Handlers{
		Entries:    handler.NewEntriesHandler(entries),
		Operations: handler.NewOperationsHandler(operations),
		Trash:      handler.NewTrashHandler(operations),
		Jobs:       handler.NewJobsHandler(jobs),
		Audit:      handler.NewAuditHandler(audit),
		Health:     handler.NewHealthHandler(nil),
	})

	return &testServer{root: root, handler: h, jobs: jobs}
}

func (s *testServer) write(t *testing.T, rel string, content string) string {
	t.Helper()
	path := filepath.Join(s.root, rel)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func (s *testServer) do(t *testing.T, method string, target string, body any, headers ...string) (int, envelope) {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(payload)
	} else {
		reader = bytes.NewReader(nil)
	}

	r := httptest.NewRequest(method, target, reader)
	r.Header.Set("Content-Type", "application/json")
	for i := 0; i+1 < len(headers); i += 2 {
		r.Header.Set(headers[i], headers[i+1])
	}
	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, r)

	var env envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env), rec.Body.String())
	return rec.Code, env
}

func TestHealth(t *testing.T) {
	t.Parallel()
	s := newTestServer(t, "")

	status, env := s.do(t, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, status)
	assert.True(t, env.Success)
}

func TestStatAndErrors(t *testing.T) {
	t.Parallel()
	s := newTestServer(t, "")
	path := s.write(t, "a.txt", "hello")

	status, env := s.do(t, http.MethodGet, "/api/v1/entries/stat?path="+path, nil)
	require.Equal(t, http.StatusOK, status)
	var stat struct {
		Path     string `json:"path"`
		Metadata struct {
			Type string `json:"type"`
			Size int64  `json:"size"`
		} `json:"metadata"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &stat))
	assert.Equal(t, "file", stat.Metadata.Type)
	assert.EqualValues(t, 5, stat.Metadata.Size)

	missing := filepath.Join(s.root, "missing.txt")
	status, env = s.do(t, http.MethodGet, "/api/v1/entries/stat?path="+missing, nil)
	assert.Equal(t, http.StatusNotFound, status)
	require.NotNil(t, env.Error)
	assert.Equal(t, "NOT_FOUND", env.Error.Code)
	assert.Equal(t, missing, env.Error.Path)

	status, _ = s.do(t, http.MethodGet, "/api/v1/entries/stat", nil)
	assert.Equal(t, http.StatusBadRequest, status)

	status, env = s.do(t, http.MethodGet, "/api/v1/entries/stat?path=/etc/passwd", nil)
	assert.Equal(t, http.StatusForbidden, status)
	assert.Equal(t, "PERMISSION_DENIED", env.Error.Code)
}

func TestCopyBatchEndpoint(t *testing.T) {
	t.Parallel()
	s := newTestServer(t, "")
	src := s.write(t, "src/one.txt", "1")
	s.write(t, "dst/one.txt", "old")

	status, env := s.do(t, http.MethodPost, "/api/v1/operations/copy", map[string]any{
		"sources":         []string{src, filepath.Join(s.root, "src", "none.txt")},
		"destination":     filepath.Join(s.root, "dst"),
		"conflict_policy": "skip",
	})
	require.Equal(t, http.StatusOK, status)
	assert.True(t, env.Success)

	var result struct {
		Items []struct {
			Index   int    `json:"index"`
			Success bool   `json:"success"`
			Skipped bool   `json:"skipped"`
			Kind    string `json:"kind"`
		} `json:"items"`
		Summary struct {
			Succeeded int `json:"succeeded"`
			Failed    int `json:"failed"`
		} `json:"summary"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &result))
	require.Len(t, result.Items, 2)
	assert.True(t, result.Items[0].Skipped)
	assert.Equal(t, "NOT_FOUND", result.Items[1].Kind)
	assert.Equal(t, 1, result.Summary.Succeeded)
	assert.Equal(t, 1, result.Summary.Failed)

	status, env = s.do(t, http.MethodPost, "/api/v1/operations/copy", map[string]any{
		"items":           []map[string]string{{"source": src, "destination": filepath.Join(s.root, "x")}},
		"conflict_policy": "merge",
	})
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "BAD_REQUEST", env.Error.Code)
}

func TestTrashAndRestoreEndpoints(t *testing.T) {
	t.Parallel()
	s := newTestServer(t, "")
	path := s.write(t, "doc.txt", "keep me")

	status, env := s.do(t, http.MethodPost, "/api/v1/operations/trash", map[string]any{"paths": []string{path}})
	require.Equal(t, http.StatusOK, status)
	require.True(t, env.Success)
	assert.NoFileExists(t, path)

	status, env = s.do(t, http.MethodGet, "/api/v1/trash", nil)
	require.Equal(t, http.StatusOK, status)
	var list struct {
		Items []struct {
			ID           string `json:"id"`
			OriginalPath string `json:"original_path"`
		} `json:"items"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &list))
	require.Len(t, list.Items, 1)
	assert.Equal(t, path, list.Items[0].OriginalPath)

	status, _ = s.do(t, http.MethodGet, "/api/v1/trash/store", nil)
	assert.Equal(t, http.StatusOK, status)

	status, _ = s.do(t, http.MethodPost, "/api/v1/trash/"+list.Items[0].ID+"/restore", nil)
	require.Equal(t, http.StatusOK, status)
	assert.FileExists(t, path)

	status, env = s.do(t, http.MethodPost, "/api/v1/trash/"+list.Items[0].ID+"/restore", nil)
	assert.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, "RECORD_NOT_FOUND", env.Error.Code)

	status, _ = s.do(t, http.MethodPost, "/api/v1/operations/trash", map[string]any{"paths": []string{path}})
	require.Equal(t, http.StatusOK, status)
	status, _ = s.do(t, http.MethodPost, "/api/v1/trash/restore-latest", map[string]any{"path": path})
	require.Equal(t, http.StatusOK, status)
	assert.FileExists(t, path)

	status, env = s.do(t, http.MethodDelete, "/api/v1/trash", nil)
	require.Equal(t, http.StatusOK, status)
	assert.True(t, env.Success)
}

func TestJobEndpoints(t *testing.T) {
	t.Parallel()
	s := newTestServer(t, "")
	path := s.write(t, "gone.txt", "x")

	ctx := t.Context()
	go s.jobs.Run(ctx)

	status, env := s.do(t, http.MethodPost, "/api/v1/jobs", map[string]any{"operation": "delete", "paths": []string{path}})
	require.Equal(t, http.StatusAccepted, status)
	var job struct {
		JobID  string `json:"job_id"`
		Status string `json:"status"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &job))

	require.Eventually(t, func() bool {
		_, polled := s.do(t, http.MethodGet, "/api/v1/jobs/"+job.JobID, nil)
		if json.Unmarshal(polled.Data, &job) != nil {
			return false
		}
		return job.Status == "completed"
	}, 5*time.Second, 20*time.Millisecond)
	assert.NoFileExists(t, path)

	status, env = s.do(t, http.MethodGet, "/api/v1/jobs/"+job.JobID+"/items", nil)
	assert.Equal(t, http.StatusOK, status)
	assert.Contains(t, string(env.Data), `"success":true`)

	status, env = s.do(t, http.MethodPost, "/api/v1/jobs/"+job.JobID+"/cancel", nil)
	assert.Equal(t, http.StatusConflict, status)
	assert.Equal(t, "JOB_FINISHED", env.Error.Code)

	status, _ = s.do(t, http.MethodGet, "/api/v1/jobs/nope", nil)
	assert.Equal(t, http.StatusNotFound, status)
}

func TestRolesGuardMutations(t *testing.T) {
	t.Parallel()
	s := newTestServer(t, "router-secret")
	validator := middleware.NewTokenValidator("router-secret")

	viewer, err := validator.IssueToken("v", "viewer", middleware.RoleViewer, time.Hour)
	require.NoError(t, err)
	editor, err := validator.IssueToken("e", "editor", middleware.RoleEditor, time.Hour)
	require.NoError(t, err)

	status, _ := s.do(t, http.MethodGet, "/api/v1/trash", nil)
	assert.Equal(t, http.StatusUnauthorized, status)

	status, _ = s.do(t, http.MethodGet, "/api/v1/trash", nil, "Authorization", "Bearer "+viewer)
	assert.Equal(t, http.StatusOK, status)

	body := map[string]any{"paths": []string{}}
	status, env := s.do(t, http.MethodPost, "/api/v1/operations/delete", body, "Authorization", "Bearer "+viewer)
	assert.Equal(t, http.StatusForbidden, status)
	assert.Equal(t, "FORBIDDEN", env.Error.Code)

	status, _ = s.do(t, http.MethodPost, "/api/v1/operations/delete", body, "Authorization", "Bearer "+editor)
	assert.Equal(t, http.StatusOK, status)

	status, _ = s.do(t, http.MethodGet, "/api/v1/audit", nil, "Authorization", "Bearer "+editor)
	assert.Equal(t, http.StatusForbidden, status)

	status, _ = s.do(t, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, status)
}

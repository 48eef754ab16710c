package service

import (
	"net/http"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go-fileops/internal/model"
	"go-fileops/pkg/apierror"
	"go-fileops/pkg/fserr"
)

func TestAuditQueryFiltersAndPages(t *testing.T) {
	t.Parallel()

	audit, err := NewAuditService(filepath.Join(t.TempDir(), "audit.jsonl"))
	require.NoError(t, err)

	base := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	tick := 0
	audit.now = func() time.Time {
		tick++
		return base.Add(time.Duration(tick) * time.Minute)
	}

	alice := model.AuditActor{UserID: "alice"}
	bob := model.AuditActor{UserID: "bob"}
	audit.LogOutcome(OperationMove, alice, model.Outcome{Path: "/data/a", Destination: "/data/b", Success: true})
	audit.LogOutcome(OperationCopy, bob, model.Outcome{Path: "/data/c", Success: true, Skipped: true})
	audit.LogOutcome(OperationTrash, alice, model.Outcome{Path: "/data/d", Kind: fserr.NotFound, Message: "gone"})
	audit.LogOutcome(OperationMove, alice, model.Outcome{Path: "/data/e", Destination: "/archive/e", Success: true})

	all, meta, err := audit.Query(model.AuditQuery{})
	require.NoError(t, err)
	require.Len(t, all, 4)
	assert.Equal(t, 4, meta.Total)
	assert.Equal(t, "/data/e", all[0].Path)

	moves, _, err := audit.Query(model.AuditQuery{Action: "MOVE", ActorID: "alice"})
	require.NoError(t, err)
	assert.Len(t, moves, 2)

	skipped, _, err := audit.Query(model.AuditQuery{Status: AuditSkipped})
	require.NoError(t, err)
	require.Len(t, skipped, 1)
	assert.Equal(t, "bob", skipped[0].Actor.UserID)

	failed, _, err := audit.Query(model.AuditQuery{Status: AuditFailed})
	require.NoError(t, err)
	require.Len(t, failed, 1)
	assert.Equal(t, string(fserr.NotFound), failed[0].Kind)

	notFound, _, err := audit.Query(model.AuditQuery{Kind: "not_found"})
	require.NoError(t, err)
	assert.Len(t, notFound, 1)

	archived, _, err := audit.Query(model.AuditQuery{Path: "ARCHIVE"})
	require.NoError(t, err)
	assert.Len(t, archived, 1)

	window, _, err := audit.Query(model.AuditQuery{
		From: base.Add(2 * time.Minute).Format(time.RFC3339),
		To:   base.Add(3 * time.Minute).Format(time.RFC3339),
	})
	require.NoError(t, err)
	assert.Len(t, window, 2)

	page, meta, err := audit.Query(model.AuditQuery{Page: 2, Limit: 3})
	require.NoError(t, err)
	require.Len(t, page, 1)
	assert.Equal(t, "/data/a", page[0].Path)
	assert.Equal(t, 2, meta.TotalPages)
}

func TestAuditQueryByRecordDestinationAndUsername(t *testing.T) {
	t.Parallel()

	audit, err := NewAuditService(filepath.Join(t.TempDir(), "audit.jsonl"))
	require.NoError(t, err)

	ana := model.AuditActor{UserID: "u-1", Username: "ana"}
	audit.LogOutcome(OperationTrash, ana, model.Outcome{Path: "/data/report.pdf", RecordID: "rec-7", Success: true})
	audit.LogOutcome(OperationUndelete, model.AuditActor{Username: "ops"}, model.Outcome{Path: "/data/report.pdf", Destination: "/data/report.pdf", RecordID: "rec-7", Success: true})
	audit.LogOutcome(OperationCopy, ana, model.Outcome{Path: "/data/x", Destination: "/backup/x", Success: true})

	history, _, err := audit.Query(model.AuditQuery{RecordID: "rec-7"})
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, OperationUndelete, history[0].Action)

	backups, _, err := audit.Query(model.AuditQuery{Destination: "/BACKUP"})
	require.NoError(t, err)
	require.Len(t, backups, 1)
	assert.Equal(t, OperationCopy, backups[0].Action)

	byAna, _, err := audit.Query(model.AuditQuery{Username: "ANA"})
	require.NoError(t, err)
	assert.Len(t, byAna, 2)
}

func TestAuditQueryRejectsUnknownActionAndStatus(t *testing.T) {
	t.Parallel()

	audit, err := NewAuditService(filepath.Join(t.TempDir(), "audit.jsonl"))
	require.NoError(t, err)

	for _, query := range []model.AuditQuery{{Action: "upload"}, {Status: "pending"}} {
		_, _, err := audit.Query(query)
		apiErr := apierror.FromError(err)
		require.NotNil(t, apiErr)
		assert.Equal(t, http.StatusBadRequest, apiErr.HTTPStatus)
	}

	_, _, err = audit.Query(model.AuditQuery{Action: "Empty_Trash", Status: "FAILED"})
	assert.NoError(t, err)
}

func TestAuditQueryRejectsBadTimes(t *testing.T) {
	t.Parallel()

	audit, err := NewAuditService(filepath.Join(t.TempDir(), "nested", "audit.jsonl"))
	require.NoError(t, err)

	_, _, err = audit.Query(model.AuditQuery{From: "yesterday"})
	apiErr := apierror.FromError(err)
	require.NotNil(t, apiErr)
	assert.Equal(t, http.StatusBadRequest, apiErr.HTTPStatus)
}

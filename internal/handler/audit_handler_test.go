package handler

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go-fileops/internal/model"
	"go-fileops/internal/service"
)

func TestAuditListFiltersByRecord(t *testing.T) {
	t.Parallel()

	journal, err := service.NewAuditService(filepath.Join(t.TempDir(), "audit.jsonl"))
	require.NoError(t, err)
	journal.LogOutcome(service.OperationTrash, model.AuditActor{Username: "ana"}, model.Outcome{Path: "/data/a", RecordID: "rec-1", Success: true})
	journal.LogOutcome(service.OperationTrash, model.AuditActor{Username: "ana"}, model.Outcome{Path: "/data/b", RecordID: "rec-2", Success: true})

	h := NewAuditHandler(journal)

	rec := httptest.NewRecorder()
	h.List(rec, httptest.NewRequest(http.MethodGet, "/api/v1/audit?record_id=rec-2&action=trash", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Success bool                `json:"success"`
		Data    model.AuditListData `json:"data"`
		Meta    model.Meta          `json:"meta"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.True(t, body.Success)
	require.Len(t, body.Data.Items, 1)
	assert.Equal(t, "/data/b", body.Data.Items[0].Path)
	assert.Equal(t, 1, body.Meta.Total)

	rec = httptest.NewRecorder()
	h.List(rec, httptest.NewRequest(http.MethodGet, "/api/v1/audit?status=maybe", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

package handler

import (
	"net/http"
	"net/url"
	"strings"

	"go-fileops/internal/model"
	"go-fileops/internal/service"
)

type AuditHandler struct {
	journal *service.AuditService
}

func NewAuditHandler(journal *service.AuditService) *AuditHandler {
	return &AuditHandler{journal: journal}
}

// List answers GET /audit with the newest journal entries first. Every filter is
// optional; record_id narrows to one trash record across trash, undelete and purge.
func (h *AuditHandler) List(w http.ResponseWriter, r *http.Request) {
	entries, meta, err := h.journal.Query(auditQuery(r.URL.Query()))
	if err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusOK, model.AuditListData{Items: entries}, &meta)
}

func auditQuery(values url.Values) model.AuditQuery {
	get := func(key string) string {
		return strings.TrimSpace(values.Get(key))
	}

	return model.AuditQuery{
		Action:      get("action"),
		ActorID:     get("actor_id"),
		Username:    get("username"),
		Status:      get("status"),
		Kind:        get("kind"),
		RecordID:    get("record_id"),
		Path:        get("path"),
		Destination: get("destination"),
		From:        get("from"),
		To:          get("to"),
		Page:        parseIntOrDefault(get("page"), 1),
		Limit:       parseIntOrDefault(get("limit"), 50),
	}
}

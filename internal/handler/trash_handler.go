package handler

import (
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"go-fileops/internal/model"
	"go-fileops/internal/service"
	"go-fileops/internal/trashstore"
	"go-fileops/pkg/apierror"
)

type TrashHandler struct {
	service *service.OperationsService
}

func NewTrashHandler(service *service.OperationsService) *TrashHandler {
	return &TrashHandler{service: service}
}

type trashStoreData struct {
	Store string             `json:"store"`
	Items []trashstore.Entry `json:"items"`
}

// List returns the undelete index, newest first.
func (h *TrashHandler) List(w http.ResponseWriter, r *http.Request) {
	records, err := h.service.ListTrash(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusOK, model.TrashListData{Items: records}, nil)
}

func (h *TrashHandler) Browse(w http.ResponseWriter, r *http.Request) {
	store, entries, err := h.service.BrowseTrash(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusOK, trashStoreData{Store: store, Items: entries}, nil)
}

func (h *TrashHandler) Restore(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if strings.TrimSpace(id) == "" {
		writeError(w, apierror.BadRequest("trash id is required", "id"))
		return
	}

	restored, err := h.service.Undelete(r.Context(), id, actorFromRequest(r))
	if err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusOK, restored, nil)
}

func (h *TrashHandler) RestoreLatest(w http.ResponseWriter, r *http.Request) {
	var payload model.PathRequest
	if !decodeJSON(w, r, &payload) {
		return
	}
	if strings.TrimSpace(payload.Path) == "" {
		writeError(w, apierror.BadRequest("path is required", "path"))
		return
	}

	restored, err := h.service.UndeleteLatest(r.Context(), payload.Path, actorFromRequest(r))
	if err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusOK, restored, nil)
}

func (h *TrashHandler) RestoreByTime(w http.ResponseWriter, r *http.Request) {
	var payload model.RestoreByTimeRequest
	if !decodeJSON(w, r, &payload) {
		return
	}
	if strings.TrimSpace(payload.Path) == "" {
		writeError(w, apierror.BadRequest("path is required", "path"))
		return
	}

	trashedAt, err := time.Parse(time.RFC3339Nano, strings.TrimSpace(payload.TrashedAt))
	if err != nil {
		writeError(w, apierror.BadRequest("trashed_at must be an RFC 3339 timestamp", payload.TrashedAt))
		return
	}

	restored, err := h.service.UndeleteByTime(r.Context(), payload.Path, trashedAt, actorFromRequest(r))
	if err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusOK, restored, nil)
}

func (h *TrashHandler) Purge(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if strings.TrimSpace(id) == "" {
		writeError(w, apierror.BadRequest("trash id is required", "id"))
		return
	}

	record, err := h.service.PurgeTrash(r.Context(), id, actorFromRequest(r))
	if err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusOK, record, nil)
}

func (h *TrashHandler) Empty(w http.ResponseWriter, r *http.Request) {
	removed, err := h.service.EmptyTrash(r.Context(), actorFromRequest(r))
	if err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusOK, model.EmptyTrashData{Removed: len(removed), Items: removed}, nil)
}

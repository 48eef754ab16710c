package handler

import (
	"net/http"
	"path/filepath"
	"strings"

	"go-fileops/internal/model"
	"go-fileops/internal/service"
	"go-fileops/pkg/apierror"
)

// OperationsHandler runs batches synchronously and answers with the full
// BatchResult. Long batches belong on /jobs.
type OperationsHandler struct {
	service *service.OperationsService
}

func NewOperationsHandler(service *service.OperationsService) *OperationsHandler {
	return &OperationsHandler{service: service}
}

func (h *OperationsHandler) Move(w http.ResponseWriter, r *http.Request) {
	items, policy, ok := decodeTransfer(w, r)
	if !ok {
		return
	}

	result, err := h.service.MvAll(r.Context(), items, policy, actorFromRequest(r), nil)
	writeBatch(w, result, err)
}

func (h *OperationsHandler) Copy(w http.ResponseWriter, r *http.Request) {
	items, policy, ok := decodeTransfer(w, r)
	if !ok {
		return
	}

	result, err := h.service.CopyAll(r.Context(), items, policy, actorFromRequest(r), nil)
	writeBatch(w, result, err)
}

func (h *OperationsHandler) Trash(w http.ResponseWriter, r *http.Request) {
	paths, ok := decodePaths(w, r)
	if !ok {
		return
	}

	result, err := h.service.TrashAll(r.Context(), paths, actorFromRequest(r), nil)
	writeBatch(w, result, err)
}

func (h *OperationsHandler) Delete(w http.ResponseWriter, r *http.Request) {
	paths, ok := decodePaths(w, r)
	if !ok {
		return
	}

	result, err := h.service.DeleteAll(r.Context(), paths, actorFromRequest(r), nil)
	writeBatch(w, result, err)
}

func (h *OperationsHandler) Undelete(w http.ResponseWriter, r *http.Request) {
	var payload model.IDsRequest
	if !decodeJSON(w, r, &payload) {
		return
	}
	if len(payload.IDs) == 0 {
		writeError(w, apierror.BadRequest("ids are required", "ids"))
		return
	}

	result, err := h.service.UndeleteAll(r.Context(), payload.IDs, actorFromRequest(r), nil)
	writeBatch(w, result, err)
}

// decodeTransfer accepts explicit pairs, or sources plus a destination directory
// each source is placed into under its own name.
func decodeTransfer(w http.ResponseWriter, r *http.Request) ([]model.TransferItem, model.ConflictPolicy, bool) {
	var payload model.TransferBatchRequest
	if !decodeJSON(w, r, &payload) {
		return nil, "", false
	}

	policy, valid := model.ParseConflictPolicy(payload.ConflictPolicy)
	if !valid {
		writeError(w, apierror.BadRequest("invalid conflict_policy (allowed: overwrite|skip|rename|fail)", payload.ConflictPolicy))
		return nil, "", false
	}

	items := payload.Items
	if len(payload.Sources) > 0 {
		if strings.TrimSpace(payload.Destination) == "" {
			writeError(w, apierror.BadRequest("destination is required with sources", "destination"))
			return nil, "", false
		}
		for _, source := range payload.Sources {
			items = append(items, model.TransferItem{
				Source:      source,
				Destination: filepath.Join(payload.Destination, filepath.Base(filepath.Clean(source))),
			})
		}
	}

	if items == nil {
		writeError(w, apierror.BadRequest("items or sources are required", "items"))
		return nil, "", false
	}
	return items, policy, true
}

func decodePaths(w http.ResponseWriter, r *http.Request) ([]string, bool) {
	var payload model.PathsRequest
	if !decodeJSON(w, r, &payload) {
		return nil, false
	}
	if payload.Paths == nil {
		writeError(w, apierror.BadRequest("paths are required", "paths"))
		return nil, false
	}
	return payload.Paths, true
}

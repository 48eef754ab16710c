package handler

import (
	"net/http"
	"strings"

	"go-fileops/internal/model"
	"go-fileops/internal/service"
	"go-fileops/pkg/apierror"
)

type EntriesHandler struct {
	service *service.EntryService
}

func NewEntriesHandler(service *service.EntryService) *EntriesHandler {
	return &EntriesHandler{service: service}
}

func (h *EntriesHandler) Stat(w http.ResponseWriter, r *http.Request) {
	path, ok := requiredQuery(w, r, "path")
	if !ok {
		return
	}

	spec, meta, err := h.service.Stat(path)
	if err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusOK, model.StatData{Path: spec.Path, Metadata: meta}, nil)
}

func (h *EntriesHandler) List(w http.ResponseWriter, r *http.Request) {
	path, ok := requiredQuery(w, r, "path")
	if !ok {
		return
	}

	recursive, err := parseBoolQuery(r, "recursive")
	if err != nil {
		writeError(w, err)
		return
	}
	withMime, err := parseBoolQuery(r, "with_mime_type")
	if err != nil {
		writeError(w, err)
		return
	}

	data, err := h.service.List(r.Context(), path, model.ListOptions{Recursive: recursive, WithMimeType: withMime})
	if err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusOK, data, nil)
}

func (h *EntriesHandler) MimeType(w http.ResponseWriter, r *http.Request) {
	path, ok := requiredQuery(w, r, "path")
	if !ok {
		return
	}

	data, err := h.service.MimeType(path)
	if err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusOK, data, nil)
}

func (h *EntriesHandler) SetTimes(w http.ResponseWriter, r *http.Request) {
	var payload model.TimesRequest
	if !decodeJSON(w, r, &payload) {
		return
	}
	if strings.TrimSpace(payload.Path) == "" {
		writeError(w, apierror.BadRequest("path is required", "path"))
		return
	}

	meta, err := h.service.Utimes(payload.Path, payload.AccessedMs, payload.ModifiedMs)
	if err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusOK, model.StatData{Path: payload.Path, Metadata: meta}, nil)
}

func (h *EntriesHandler) Symlink(w http.ResponseWriter, r *http.Request) {
	var payload model.SymlinkRequest
	if !decodeJSON(w, r, &payload) {
		return
	}
	if strings.TrimSpace(payload.Link) == "" || strings.TrimSpace(payload.Target) == "" {
		writeError(w, apierror.BadRequest("target and link are required", ""))
		return
	}

	link, err := h.service.CreateSymlink(payload.Target, payload.Link)
	if err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusCreated, link, nil)
}

func (h *EntriesHandler) Volumes(w http.ResponseWriter, r *http.Request) {
	volumes, err := h.service.Volumes(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusOK, model.VolumeListData{Items: volumes}, nil)
}

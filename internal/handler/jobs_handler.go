package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"go-fileops/internal/model"
	"go-fileops/internal/service"
	"go-fileops/pkg/apierror"
)

type JobsHandler struct {
	service *service.JobService
}

func NewJobsHandler(service *service.JobService) *JobsHandler {
	return &JobsHandler{service: service}
}

func (h *JobsHandler) Create(w http.ResponseWriter, r *http.Request) {
	var payload model.JobRequest
	if !decodeJSON(w, r, &payload) {
		return
	}

	job, err := h.service.Submit(payload, actorFromRequest(r))
	if err != nil {
		writeError(w, err)
		return
	}

	w.Header().Set("Location", "/api/v1/jobs/"+job.JobID)
	writeSuccess(w, http.StatusAccepted, job, nil)
}

func (h *JobsHandler) Get(w http.ResponseWriter, r *http.Request) {
	jobID, ok := jobIDParam(w, r)
	if !ok {
		return
	}

	job, err := h.service.Get(jobID, actorFromRequest(r))
	if err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusOK, job, nil)
}

func (h *JobsHandler) Items(w http.ResponseWriter, r *http.Request) {
	jobID, ok := jobIDParam(w, r)
	if !ok {
		return
	}

	page := parseIntOrDefault(r.URL.Query().Get("page"), 1)
	limit := parseIntOrDefault(r.URL.Query().Get("limit"), 100)

	data, meta, err := h.service.Items(jobID, actorFromRequest(r), page, limit)
	if err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusOK, data, &meta)
}

func (h *JobsHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	jobID, ok := jobIDParam(w, r)
	if !ok {
		return
	}

	job, err := h.service.Cancel(jobID, actorFromRequest(r))
	if err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusAccepted, job, nil)
}

func jobIDParam(w http.ResponseWriter, r *http.Request) (string, bool) {
	jobID := chi.URLParam(r, "job_id")
	if jobID == "" {
		writeError(w, apierror.BadRequest("job_id is required", "job_id"))
		return "", false
	}
	return jobID, true
}

package handler

import (
	"context"
	"net/http"
	"slices"
	"time"

	"go-fileops/internal/model"
	"go-fileops/pkg/apierror"
)

type HealthCheck func(ctx context.Context) error

// HealthHandler reports readiness of the trash store and the undelete index
// backend. Any failing check turns the answer into 503.
type HealthHandler struct {
	checks map[string]HealthCheck
}

func NewHealthHandler(checks map[string]HealthCheck) *HealthHandler {
	return &HealthHandler{checks: checks}
}

type healthData struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}

func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	data := healthData{Status: "ok", Checks: map[string]string{}}
	names := make([]string, 0, len(h.checks))
	for name := range h.checks {
		names = append(names, name)
	}
	slices.Sort(names)

	var failed []string
	for _, name := range names {
		if err := h.checks[name](ctx); err != nil {
			data.Checks[name] = err.Error()
			failed = append(failed, name)
			continue
		}
		data.Checks[name] = "ok"
	}

	if len(failed) > 0 {
		apiErr := apierror.New("UNHEALTHY", "dependency check failed", failed[0], http.StatusServiceUnavailable)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(apiErr.HTTPStatus)
		data.Status = "degraded"
		_ = jsonEncode(w, model.APIResponse{
			Success: false,
			Data:    data,
			Error:   &model.APIError{Code: apiErr.Code, Message: apiErr.Message, Details: apiErr.Details},
		})
		return
	}

	writeSuccess(w, http.StatusOK, data, nil)
}

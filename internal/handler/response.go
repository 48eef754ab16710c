package handler

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"go-fileops/internal/model"
	"go-fileops/pkg/apierror"
)

const maxJSONBody = 4 << 20

func jsonEncode(w http.ResponseWriter, value any) error {
	return json.NewEncoder(w).Encode(value)
}

func writeSuccess(w http.ResponseWriter, status int, data any, meta *model.Meta) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = jsonEncode(w, model.APIResponse{
		Success: true,
		Data:    data,
		Meta:    meta,
	})
}

func writeError(w http.ResponseWriter, err error) {
	apiErr := apierror.FromError(err)
	if apiErr == nil {
		apiErr = apierror.FromError(errors.New("empty error"))
	}

	if apiErr.HTTPStatus >= http.StatusInternalServerError {
		// Log server-side failures so they are visible in container logs.
		slog.Error("request failed", "code", apiErr.Code, "path", apiErr.Path, "error", err)
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(apiErr.HTTPStatus)
	_ = jsonEncode(w, model.APIResponse{
		Success: false,
		Error: &model.APIError{
			Code:    apiErr.Code,
			Message: apiErr.Message,
			Details: apiErr.Details,
			Path:    apiErr.Path,
		},
	})
}

// writeBatch reports a finished batch. A batch always answers 200; per-item
// failures live in the outcomes. Only an aborted batch carries an error.
func writeBatch(w http.ResponseWriter, result model.BatchResult, err error) {
	if err != nil && len(result.Items) == 0 {
		writeError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	response := model.APIResponse{Success: err == nil, Data: result}
	if apiErr := apierror.FromError(err); apiErr != nil {
		response.Error = &model.APIError{Code: apiErr.Code, Message: apiErr.Message, Details: apiErr.Details, Path: apiErr.Path}
	}
	_ = jsonEncode(w, response)
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	defer r.Body.Close()

	body := http.MaxBytesReader(w, r.Body, maxJSONBody)
	if err := json.NewDecoder(body).Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			writeError(w, apierror.BadRequest("request body is required", ""))
			return false
		}
		writeError(w, apierror.BadRequest("invalid JSON body", err.Error()))
		return false
	}
	return true
}

func requiredQuery(w http.ResponseWriter, r *http.Request, name string) (string, bool) {
	value := strings.TrimSpace(r.URL.Query().Get(name))
	if value == "" {
		writeError(w, apierror.BadRequest("query parameter '"+name+"' is required", name))
		return "", false
	}
	return value, true
}

func parseIntOrDefault(raw string, fallback int) int {
	if strings.TrimSpace(raw) == "" {
		return fallback
	}

	v, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}

	return v
}

func parseBoolQuery(r *http.Request, name string) (bool, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(name))
	if raw == "" {
		return false, nil
	}

	value, err := strconv.ParseBool(raw)
	if err != nil {
		return false, apierror.BadRequest(name+" must be true or false", name)
	}
	return value, nil
}

package apierror

import (
	"errors"
	"fmt"
	"net/http"

	"go-fileops/pkg/fserr"
)

type APIError struct {
	Code       string `json:"code"`
	Message    string `json:"message"`
	Details    string `json:"details,omitempty"`
	Path       string `json:"path,omitempty"`
	HTTPStatus int    `json:"-"`
}

func (e *APIError) Error() string {
	if e == nil {
		return ""
	}

	if e.Details != "" {
		return fmt.Sprintf("%s: %s (%s)", e.Code, e.Message, e.Details)
	}

	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func New(code string, message string, details string, status int) *APIError {
	return &APIError{Code: code, Message: message, Details: details, HTTPStatus: status}
}

func BadRequest(message string, details string) *APIError {
	return New("BAD_REQUEST", message, details, http.StatusBadRequest)
}

var kindStatus = map[fserr.Kind]int{
	fserr.NotFound:             http.StatusNotFound,
	fserr.InvalidPath:          http.StatusBadRequest,
	fserr.PermissionDenied:     http.StatusForbidden,
	fserr.IoError:              http.StatusInternalServerError,
	fserr.NotADirectory:        http.StatusBadRequest,
	fserr.ConflictUnresolved:   http.StatusConflict,
	fserr.PartialMove:          http.StatusInternalServerError,
	fserr.TrashUnavailable:     http.StatusServiceUnavailable,
	fserr.RecordNotFound:       http.StatusNotFound,
	fserr.OriginalPathOccupied: http.StatusConflict,
	fserr.TrashEntryMissing:    http.StatusNotFound,
	fserr.Cancelled:            http.StatusConflict,
}

// FromError converts any error into an APIError. Classified filesystem errors keep
// their kind as the code; anything else becomes INTERNAL_ERROR.
func FromError(err error) *APIError {
	if err == nil {
		return nil
	}

	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr
	}

	var classified *fserr.Error
	if errors.As(err, &classified) {
		status, ok := kindStatus[classified.Kind]
		if !ok {
			status = http.StatusInternalServerError
		}
		return &APIError{
			Code:       string(classified.Kind),
			Message:    classified.Kind.Describe(),
			Details:    classified.Error(),
			Path:       classified.Path,
			HTTPStatus: status,
		}
	}

	return &APIError{
		Code:       "INTERNAL_ERROR",
		Message:    "Unexpected server error",
		HTTPStatus: http.StatusInternalServerError,
	}
}

package apierror

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go-fileops/pkg/fserr"
)

func TestFromErrorMapsKinds(t *testing.T) {
	t.Parallel()

	cases := []struct {
		kind   fserr.Kind
		status int
	}{
		{fserr.NotFound, http.StatusNotFound},
		{fserr.InvalidPath, http.StatusBadRequest},
		{fserr.PermissionDenied, http.StatusForbidden},
		{fserr.OriginalPathOccupied, http.StatusConflict},
		{fserr.TrashUnavailable, http.StatusServiceUnavailable},
		{fserr.TrashEntryMissing, http.StatusNotFound},
	}

	for _, tc := range cases {
		t.Run(string(tc.kind), func(t *testing.T) {
			err := fmt.Errorf("handler: %w", fserr.New(tc.kind, "op", "/data/x", ""))
			apiErr := FromError(err)
			require.NotNil(t, apiErr)
			assert.Equal(t, tc.status, apiErr.HTTPStatus)
			assert.Equal(t, string(tc.kind), apiErr.Code)
			assert.Equal(t, "/data/x", apiErr.Path)
		})
	}
}

func TestFromErrorPassesAPIErrorsThrough(t *testing.T) {
	t.Parallel()

	original := BadRequest("paths are required", "paths")
	assert.Same(t, original, FromError(original))
	assert.Equal(t, "BAD_REQUEST: paths are required (paths)", original.Error())
}

func TestFromErrorHidesUnclassifiedErrors(t *testing.T) {
	t.Parallel()

	apiErr := FromError(errors.New("connection reset"))
	assert.Equal(t, "INTERNAL_ERROR", apiErr.Code)
	assert.Equal(t, http.StatusInternalServerError, apiErr.HTTPStatus)
	assert.Empty(t, apiErr.Details)
	assert.Nil(t, FromError(nil))
}

package errors

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestAPIError verifies the error interface and constructors.
func TestAPIError(t *testing.T) {
	t.Run("implements error", func(t *testing.T) {
		err := New(http.StatusBadRequest, "BAD", "something is off")
		assert.Equal(t, "something is off", err.Error())
	})

	t.Run("details are carried", func(t *testing.T) {
		err := NewWithDetails(http.StatusBadRequest, "BAD", "msg", "the detail")
		assert.Equal(t, "the detail", err.Details)
	})

	t.Run("predefined errors have stable codes", func(t *testing.T) {
		assert.Equal(t, "NO_FILES", ErrNoFiles.ErrorCode)
		assert.Equal(t, http.StatusBadRequest, ErrNoFiles.StatusCode)
		assert.Equal(t, http.StatusRequestEntityTooLarge, ErrFileTooLarge.StatusCode)
	})
}

// TestErrorHandler verifies status mapping and the response envelope.
func TestErrorHandler(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(bytes.NewBuffer(nil), nil))
	h := NewErrorHandler(logger)

	do := func(err error) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, "/test", nil)
		rec := httptest.NewRecorder()
		h.HandleError(rec, req, err)
		return rec
	}

	t.Run("api error passes through", func(t *testing.T) {
		rec := do(ErrNoFiles)
		assert.Equal(t, http.StatusBadRequest, rec.Code)

		var resp ErrorResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.False(t, resp.Success)
		assert.Equal(t, "NO_FILES", resp.Error.ErrorCode)
	})

	t.Run("wrapped api error unwraps", func(t *testing.T) {
		rec := do(fmt.Errorf("handling request: %w", ErrTooManyFiles))
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("context deadline maps to gateway timeout", func(t *testing.T) {
		rec := do(context.DeadlineExceeded)
		assert.Equal(t, http.StatusGatewayTimeout, rec.Code)
	})

	t.Run("unknown error maps to 500", func(t *testing.T) {
		rec := do(fmt.Errorf("disk on fire"))
		assert.Equal(t, http.StatusInternalServerError, rec.Code)

		var resp ErrorResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Equal(t, "INTERNAL_SERVER_ERROR", resp.Error.ErrorCode)
		assert.Equal(t, "disk on fire", resp.Error.Details)
	})

	t.Run("nil error writes nothing", func(t *testing.T) {
		rec := do(nil)
		assert.Zero(t, rec.Body.Len())
	})
}

package responses

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"github.com/janhq/room-bridge/internal/domain/room"
	"github.com/janhq/room-bridge/internal/utils/platformerrors"
)

func TestHandleError(t *testing.T) {
	gin.SetMode(gin.TestMode)

	tests := []struct {
		name     string
		err      error
		wantCode int
		wantType string
	}{
		{"not found", room.ErrNotFound, http.StatusNotFound, "not_found_error"},
		{"snapshot not found", fmt.Errorf("get: %w", room.ErrSnapshotNotFound), http.StatusNotFound, "not_found_error"},
		{"auth failure", fmt.Errorf("%w: bad secret", room.ErrAuthFailure), http.StatusInternalServerError, "internal_error"},
		{"registry closed", room.ErrRegistryClosed, http.StatusServiceUnavailable, "unavailable_error"},
		{"session closed", room.ErrSessionClosed, http.StatusConflict, "conflict_error"},
		{"timeout", context.DeadlineExceeded, http.StatusGatewayTimeout, "timeout_error"},
		{"unknown", errors.New("boom"), http.StatusInternalServerError, "internal_error"},
		{
			"platform error kept",
			platformerrors.NewError(context.Background(), platformerrors.LayerDomain, platformerrors.ErrorTypeValidation, "bad input", nil),
			http.StatusBadRequest,
			"validation_error",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			c, _ := gin.CreateTestContext(rec)
			c.Request = httptest.NewRequest(http.MethodGet, "/v1/rooms/r1", nil)

			HandleError(c, tt.err, "request failed")

			require.Equal(t, tt.wantCode, rec.Code)
			var body ErrorResponse
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			require.Equal(t, tt.wantType, body.Error.Type)
			require.NotEmpty(t, body.Error.Message)
		})
	}
}

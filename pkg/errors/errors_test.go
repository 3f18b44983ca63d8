package errors

import (
	"encoding/json"
	stderrors "errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestClassification_ThroughWrapping(t *testing.T) {
	err := fmt.Errorf("command handler failed: %w", NewNotFoundError("Memory"))

	assert.True(t, IsNotFound(err))
	assert.False(t, IsValidation(err))
	assert.Equal(t, "Memory not found", GetAppError(err).Message)
}

func TestPublicMessage_HidesServerFailures(t *testing.T) {
	tests := []struct {
		name string
		err  *AppError
		want string
	}{
		{"validation", NewValidationError("content is required"), "content is required"},
		{"not found", NewNotFoundMessage("Session not found"), "Session not found"},
		{"upstream", NewUpstreamError("completion", stderrors.New("dial tcp")), "Upstream service failure"},
		{"database", NewDatabaseError("insert", stderrors.New("disk full")), "Internal server error"},
		{"internal", NewInternalError("invalid message role: robot"), "Internal server error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.err.PublicMessage())
		})
	}
}

func TestErrorHandler_Handle_RendersEnvelope(t *testing.T) {
	// Arrange
	h := NewErrorHandler(zap.NewNop(), false)
	req := httptest.NewRequest(http.MethodGet, "/memories/x", nil)
	rec := httptest.NewRecorder()

	// Act
	h.Handle(rec, req, fmt.Errorf("query handler failed: %w", NewNotFoundError("Memory")))

	// Assert
	require.Equal(t, http.StatusNotFound, rec.Code)
	var body ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.False(t, body.Success)
	assert.Equal(t, "Memory not found", body.Message)
}

func TestErrorHandler_Handle_UnclassifiedIsInternal(t *testing.T) {
	h := NewErrorHandler(zap.NewNop(), false)
	rec := httptest.NewRecorder()

	h.Handle(rec, httptest.NewRequest(http.MethodGet, "/", nil), stderrors.New("boom"))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, rec.Body.String(), "Internal server error")
	assert.NotContains(t, rec.Body.String(), "boom")
}

func TestWrap_PreservesType(t *testing.T) {
	err := Wrap(NewValidationError("title is required"), "update memory")

	assert.True(t, IsValidation(err))
	assert.Equal(t, "update memory: title is required", GetAppError(err).Message)
	assert.Nil(t, Wrap(nil, "noop"))
}

package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestConstructors(t *testing.T) {
	cause := stderrors.New("connection reset")

	tests := []struct {
		name       string
		err        *AppError
		wantType   ErrorType
		wantStatus int
		wantCode   string
	}{
		{"validation", NewValidationError("bad"), ErrorTypeValidation, http.StatusBadRequest, ""},
		{"not found", NewNotFoundError("profile"), ErrorTypeNotFound, http.StatusNotFound, ""},
		{"identity missing", NewIdentityMissingError("save"), ErrorTypeUnauthorized, http.StatusUnauthorized, CodeIdentityMissing},
		{"remote failure", NewRemoteOperationError("upsert", cause), ErrorTypeExternal, http.StatusBadGateway, CodeRemoteOperationFailed},
		{"database", NewDatabaseError("scan", cause), ErrorTypeDatabase, http.StatusInternalServerError, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.wantType, tt.err.Type)
			assert.Equal(t, tt.wantStatus, tt.err.HTTPStatus)
			assert.Equal(t, tt.wantCode, tt.err.Code)
			assert.NotEmpty(t, tt.err.StackTrace)
		})
	}
}

func TestRemoteOperationError_KeepsCause(t *testing.T) {
	cause := stderrors.New("throttled")
	err := fmt.Errorf("save profile: %w", NewRemoteOperationError("upsert", cause))

	assert.True(t, IsRemoteOperationFailed(err))
	assert.False(t, IsIdentityMissing(err))
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "remote upsert failed", GetAppError(err).Message)
}

func TestWrap(t *testing.T) {
	assert.NoError(t, Wrap(nil, "ignored"))

	wrapped := Wrap(NewNotFoundError("profile"), "select")
	assert.True(t, IsNotFound(wrapped))
	assert.Equal(t, "select: profile not found", GetAppError(wrapped).Message)

	plain := Wrapf(stderrors.New("boom"), "step %d", 2)
	assert.True(t, IsType(plain, ErrorTypeInternal))
	assert.Contains(t, plain.Error(), "step 2")
}

func TestErrorHandler_Handle(t *testing.T) {
	h := NewErrorHandler(zap.NewNop(), false)

	t.Run("app error", func(t *testing.T) {
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/api/v2/profiles", nil)
		req.Header.Set("X-Request-ID", "req-1")

		h.Handle(rec, req, NewIdentityMissingError("save"))

		require.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.Contains(t, rec.Body.String(), `"code":"IDENTITY_MISSING"`)
		assert.Contains(t, rec.Body.String(), `"request_id":"req-1"`)
	})

	t.Run("plain error is hidden", func(t *testing.T) {
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/", nil)

		h.Handle(rec, req, stderrors.New("secret detail"))

		require.Equal(t, http.StatusInternalServerError, rec.Code)
		assert.NotContains(t, rec.Body.String(), "secret detail")
	})

	t.Run("middleware recovers panics", func(t *testing.T) {
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/", nil)

		h.Middleware(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
			panic("kaboom")
		})).ServeHTTP(rec, req)

		assert.Equal(t, http.StatusInternalServerError, rec.Code)
	})
}

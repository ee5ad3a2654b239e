package handlers

import (
	"encoding/json"
	"math"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	pkgerrors "github.com/Widerk/shapesbonding/pkg/errors"
)

func TestRespondJSON(t *testing.T) {
	h := NewProfileHandler(nil, nil, pkgerrors.NewErrorHandler(zap.NewNop(), false), zap.NewNop())

	tests := []struct {
		name       string
		data       interface{}
		wantStatus int
		wantType   string
	}{
		{
			name:       "encodable body keeps status",
			data:       map[string]float64{"mass": 3.2},
			wantStatus: http.StatusCreated,
		},
		{
			name:       "non-finite number becomes internal error",
			data:       map[string]float64{"mass": math.NaN()},
			wantStatus: http.StatusInternalServerError,
			wantType:   string(pkgerrors.ErrorTypeInternal),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			rec := httptest.NewRecorder()

			h.respondJSON(rec, req, http.StatusCreated, tt.data)

			assert.Equal(t, tt.wantStatus, rec.Code)
			require.NotEmpty(t, rec.Body.Bytes())
			var body map[string]interface{}
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			if tt.wantType != "" {
				assert.Equal(t, tt.wantType, body["type"])
			}
		})
	}
}

package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"

	pkgerrors "github.com/Widerk/shapesbonding/pkg/errors"
)

type sample struct {
	UserID string            `validate:"required"`
	Name   string            `validate:"max=5"`
	Params map[string]string `validate:"dive,keys,oneof=A B,endkeys"`
}

func TestValidateStruct(t *testing.T) {
	tests := []struct {
		name    string
		input   sample
		wantErr string
	}{
		{"valid", sample{UserID: "u", Name: "ok", Params: map[string]string{"A": "1"}}, ""},
		{"missing user", sample{}, "userid is required"},
		{"long name", sample{UserID: "u", Name: "toolong"}, "name must be at most 5 characters"},
		{"unknown key", sample{UserID: "u", Params: map[string]string{"Z": "1"}}, "must be one of: A B"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateStruct(tt.input)
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			assert.True(t, pkgerrors.IsValidation(err))
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

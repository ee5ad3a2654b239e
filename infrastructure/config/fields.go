package config

import (
	"fmt"
	"os"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/Widerk/shapesbonding/domain/core/valueobjects"
)

// FieldRangesFile is the on-disk shape of the field range configuration:
//
//	fields:
//	  A: {minValue: 0, maxValue: 300, step: 5}
type FieldRangesFile struct {
	Fields map[string]valueobjects.FieldRange `yaml:"fields" validate:"dive"`
}

var validate = validator.New()

// LoadFieldRanges reads and validates a field range file. An empty path
// yields the defaults.
func LoadFieldRanges(path string) (valueobjects.FieldRanges, error) {
	if path == "" {
		return valueobjects.DefaultFieldRanges(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read field ranges: %w", err)
	}
	return ParseFieldRanges(data)
}

// ParseFieldRanges decodes YAML field ranges and merges them over the defaults
func ParseFieldRanges(data []byte) (valueobjects.FieldRanges, error) {
	var file FieldRangesFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse field ranges: %w", err)
	}
	if err := validate.Struct(file); err != nil {
		return nil, fmt.Errorf("invalid field ranges: %w", err)
	}

	overrides := make(valueobjects.FieldRanges, len(file.Fields))
	for name, rng := range file.Fields {
		key, err := valueobjects.ParseParameterKey(name)
		if err != nil {
			return nil, err
		}
		if !key.IsDimension() {
			return nil, fmt.Errorf("field %s has no range", name)
		}
		if err := rng.Validate(); err != nil {
			return nil, fmt.Errorf("field %s: %w", name, err)
		}
		overrides[key] = rng
	}
	return valueobjects.DefaultFieldRanges().Merge(overrides), nil
}

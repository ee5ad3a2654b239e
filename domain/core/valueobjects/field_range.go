package valueobjects

import (
	"fmt"
	"math"

	pkgerrors "github.com/Widerk/shapesbonding/pkg/errors"
)

// FieldRange bounds the values a dimension may take
type FieldRange struct {
	MinValue float64 `yaml:"minValue" json:"minValue" validate:"gte=0"`
	MaxValue float64 `yaml:"maxValue" json:"maxValue" validate:"gtfield=MinValue"`
	Step     float64 `yaml:"step" json:"step" validate:"gt=0"`
}

// FieldRanges maps a dimension key to its range
type FieldRanges map[ParameterKey]FieldRange

// DefaultFieldRange is used for A through E when nothing is configured
var DefaultFieldRange = FieldRange{MinValue: 0, MaxValue: 250, Step: 1}

// DefaultFieldRanges returns a fresh copy of the default ranges
func DefaultFieldRanges() FieldRanges {
	ranges := make(FieldRanges, len(DimensionKeys))
	for _, k := range DimensionKeys {
		ranges[k] = DefaultFieldRange
	}
	return ranges
}

// Clamp limits v to [MinValue, MaxValue]
func (r FieldRange) Clamp(v float64) float64 {
	return math.Min(math.Max(v, r.MinValue), r.MaxValue)
}

// Snap rounds v to the nearest step counted from MinValue
func (r FieldRange) Snap(v float64) float64 {
	if r.Step <= 0 {
		return v
	}
	return r.MinValue + math.Round((v-r.MinValue)/r.Step)*r.Step
}

// Validate checks the range is usable
func (r FieldRange) Validate() error {
	if r.MinValue < 0 {
		return pkgerrors.NewValidationError("minValue must not be negative")
	}
	if r.MaxValue <= r.MinValue {
		return pkgerrors.NewValidationError(fmt.Sprintf("maxValue %g must exceed minValue %g", r.MaxValue, r.MinValue))
	}
	if r.Step <= 0 {
		return pkgerrors.NewValidationError("step must be positive")
	}
	return nil
}

// Merge overlays configured ranges on top of the defaults
func (fr FieldRanges) Merge(overrides FieldRanges) FieldRanges {
	out := make(FieldRanges, len(fr)+len(overrides))
	for k, v := range fr {
		out[k] = v
	}
	for k, v := range overrides {
		out[k] = v
	}
	return out
}

package geometry

import (
	"fmt"
	"sync/atomic"

	"github.com/Widerk/shapesbonding/domain/core/valueobjects"
)

const (
	mmPerMeter = 1000.0
	mm3PerM3   = 1e9
	mm3PerCm3  = 1000.0
)

// AnalysisResult holds every quantity derived from one parameter set
type AnalysisResult struct {
	Vertices        []Point `json:"vertices"`
	Area            float64 `json:"area"`            // mm²
	Perimeter       float64 `json:"perimeter"`       // mm
	HydraulicRadius float64 `json:"hydraulicRadius"` // mm
	EffectiveLength float64 `json:"effectiveLength"` // m
	Volume          float64 `json:"volume"`          // mm³
	Mass            float64 `json:"mass"`            // kg
	Centroid        Point   `json:"centroid"`        // mm
}

// Analyze computes the analysis for already parsed parameters. It never
// fails: degenerate shapes give zero results, and a quantity that overflows
// or is undefined (an infinite length times zero density) reads as zero, the
// same policy ParseOrZero applies to input.
func Analyze(n valueobjects.NumericParameters) AnalysisResult {
	poly := BuildPolygon(n)
	area := finiteOrZero(poly.Area())
	perimeter := finiteOrZero(poly.Perimeter())

	var rh float64
	if perimeter > 0 {
		rh = finiteOrZero(area / perimeter)
	}

	length := finiteOrZero(n.EffectiveLength())
	volume := finiteOrZero(area * length * mmPerMeter)

	return AnalysisResult{
		Vertices:        poly.Vertices(),
		Area:            area,
		Perimeter:       perimeter,
		HydraulicRadius: rh,
		EffectiveLength: length,
		Volume:          volume,
		Mass:            finiteOrZero(volume / mm3PerM3 * n.Rho),
		Centroid:        poly.Centroid(),
	}
}

// AreaSnapshot is the area text stored with a saved profile
func (r AnalysisResult) AreaSnapshot() string {
	return fmt.Sprintf("%.2f", r.Area)
}

// Summary is the analysis formatted for display
type Summary struct {
	Area            string `json:"area"`
	HydraulicRadius string `json:"hydraulicRadius"`
	VolumeCm3       string `json:"volumeCm3"`
	Mass            string `json:"mass"`
	EffectiveLength string `json:"effectiveLength"`
	Centroid        string `json:"centroid"`
}

// Summary formats the result the way the dashboard shows it
func (r AnalysisResult) Summary() Summary {
	return Summary{
		Area:            fmt.Sprintf("%.1f mm²", r.Area),
		HydraulicRadius: fmt.Sprintf("%.2f mm", r.HydraulicRadius),
		VolumeCm3:       fmt.Sprintf("%.0f cm³", r.Volume/mm3PerCm3),
		Mass:            fmt.Sprintf("%.3f kg", r.Mass),
		EffectiveLength: fmt.Sprintf("%.3f m", r.EffectiveLength),
		Centroid:        fmt.Sprintf("(%.1f, %.1f)", r.Centroid.X, r.Centroid.Y),
	}
}

// Engine analyzes parameter sets against the configured field ranges.
// Ranges may be swapped at runtime when configuration reloads.
type Engine struct {
	ranges atomic.Pointer[valueobjects.FieldRanges]
}

// NewEngine creates an engine; nil ranges means the defaults
func NewEngine(ranges valueobjects.FieldRanges) *Engine {
	e := &Engine{}
	e.SetRanges(ranges)
	return e
}

// SetRanges replaces the field ranges used by later analyses
func (e *Engine) SetRanges(ranges valueobjects.FieldRanges) {
	merged := valueobjects.DefaultFieldRanges().Merge(ranges)
	e.ranges.Store(&merged)
}

// Ranges returns the field ranges currently in effect
func (e *Engine) Ranges() valueobjects.FieldRanges {
	return *e.ranges.Load()
}

// Range returns the range for one key, falling back to the default
func (e *Engine) Range(key valueobjects.ParameterKey) valueobjects.FieldRange {
	if r, ok := e.Ranges()[key]; ok {
		return r
	}
	return valueobjects.DefaultFieldRange
}

// Analyze clamps the dimensions of p to range and analyzes the result
func (e *Engine) Analyze(p valueobjects.ParameterSet) AnalysisResult {
	return Analyze(p.NumericViewWithin(e.Ranges()))
}

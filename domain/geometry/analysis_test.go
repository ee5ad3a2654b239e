package geometry

import (
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Widerk/shapesbonding/domain/core/valueobjects"
)

func referenceParams() valueobjects.NumericParameters {
	return valueobjects.NumericParameters{
		A: 100, B: 40, C: 15, D: 20, E: 50,
		LStart: 0, LEnd: 1, Rho: 1121.7,
	}
}

func TestBuildPolygon_VertexOrder(t *testing.T) {
	poly := BuildPolygon(referenceParams())

	assert.Equal(t, Polygon{
		{0, 0}, {100, 0}, {100, 20}, {50, 40}, {0, 15},
	}, poly)
}

func TestAnalyze_ReferenceProfile(t *testing.T) {
	r := Analyze(referenceParams())

	assert.InDelta(t, 2875.0, r.Area, 1e-9)
	assert.InDelta(t, 244.7533475088398, r.Perimeter, 1e-9)
	assert.InDelta(t, 11.746519625829277, r.HydraulicRadius, 1e-9)
	assert.InDelta(t, 1.0, r.EffectiveLength, 1e-12)
	assert.InDelta(t, 2_875_000.0, r.Volume, 1e-6)
	assert.InDelta(t, 3.2248875, r.Mass, 1e-9)
	assert.InDelta(t, 51.44927536231884, r.Centroid.X, 1e-9)
	assert.InDelta(t, 15.144927536231885, r.Centroid.Y, 1e-9)
	assert.Len(t, r.Vertices, VertexCount)
}

func TestAnalyze_Degenerate(t *testing.T) {
	tests := []struct {
		name          string
		params        valueobjects.NumericParameters
		wantPerimeter float64
	}{
		{"all zero", valueobjects.NumericParameters{}, 0},
		{"flat line", valueobjects.NumericParameters{A: 100}, 200},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := Analyze(tt.params)

			assert.Equal(t, 0.0, r.Area)
			assert.InDelta(t, tt.wantPerimeter, r.Perimeter, 1e-9)
			assert.Equal(t, 0.0, r.HydraulicRadius)
			assert.Equal(t, Point{}, r.Centroid)
			assert.Equal(t, 0.0, r.Volume)
			assert.Equal(t, 0.0, r.Mass)
		})
	}
}

func TestAnalyze_CentroidReportedAsAbsolute(t *testing.T) {
	mirrored := referenceParams()
	mirrored.A = -100
	mirrored.E = -50

	poly := BuildPolygon(mirrored)
	require.Less(t, poly.SignedArea(), 0.0)

	r := Analyze(mirrored)
	assert.InDelta(t, 2875.0, r.Area, 1e-9)
	assert.InDelta(t, 51.44927536231884, r.Centroid.X, 1e-9)
	assert.InDelta(t, 15.144927536231885, r.Centroid.Y, 1e-9)
}

func TestAnalyze_ReversedSpanGivesZeroVolume(t *testing.T) {
	p := referenceParams()
	p.LStart, p.LEnd = 2, 1

	r := Analyze(p)
	assert.Equal(t, 0.0, r.EffectiveLength)
	assert.Equal(t, 0.0, r.Volume)
	assert.Equal(t, 0.0, r.Mass)
	assert.InDelta(t, 2875.0, r.Area, 1e-9)
}

func TestAnalyze_Properties(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	dim := func() float64 {
		switch rng.Intn(4) {
		case 0:
			return 0
		case 1:
			return rng.Float64() * 250
		case 2:
			return float64(rng.Intn(251))
		default:
			return rng.NormFloat64() * 1e6
		}
	}

	for i := 0; i < 2000; i++ {
		p := valueobjects.NumericParameters{
			A: dim(), B: dim(), C: dim(), D: dim(), E: dim(),
			LStart: rng.NormFloat64() * 5, LEnd: rng.NormFloat64() * 5,
			Rho: rng.Float64() * 2000,
		}

		r := Analyze(p)

		require.False(t, math.IsNaN(r.HydraulicRadius) || math.IsInf(r.HydraulicRadius, 0), "params %+v", p)
		require.GreaterOrEqual(t, r.HydraulicRadius, 0.0)
		require.GreaterOrEqual(t, r.EffectiveLength, 0.0)
		require.GreaterOrEqual(t, r.Area, 0.0)
		require.GreaterOrEqual(t, r.Centroid.X, 0.0)
		require.GreaterOrEqual(t, r.Centroid.Y, 0.0)
	}
}

func TestAnalyze_OverflowReadsAsZero(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*valueobjects.NumericParameters)
		length float64
	}{
		{
			name:   "huge length",
			mutate: func(p *valueobjects.NumericParameters) { p.LEnd = 1e306 },
			length: 1e306,
		},
		{
			name: "huge length and zero density",
			mutate: func(p *valueobjects.NumericParameters) {
				p.LEnd = 1e306
				p.Rho = 0
			},
			length: 1e306,
		},
		{
			name: "length span overflows",
			mutate: func(p *valueobjects.NumericParameters) {
				p.LStart = -math.MaxFloat64
				p.LEnd = math.MaxFloat64
			},
			length: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := referenceParams()
			tt.mutate(&p)

			r := Analyze(p)

			assert.Equal(t, tt.length, r.EffectiveLength)
			assert.Equal(t, 0.0, r.Volume)
			assert.Equal(t, 0.0, r.Mass)
			assert.InDelta(t, 2875.0, r.Area, 1e-9)
			for _, v := range []float64{r.Area, r.Perimeter, r.HydraulicRadius, r.EffectiveLength, r.Volume, r.Mass} {
				assert.False(t, math.IsNaN(v) || math.IsInf(v, 0))
			}
			assert.NotContains(t, r.Summary().Mass, "NaN")
			assert.NotContains(t, r.Summary().VolumeCm3, "Inf")
		})
	}
}

func TestAnalysisResult_Formatting(t *testing.T) {
	r := Analyze(referenceParams())

	assert.Equal(t, "2875.00", r.AreaSnapshot())
	assert.Equal(t, Summary{
		Area:            "2875.0 mm²",
		HydraulicRadius: "11.75 mm",
		VolumeCm3:       "2875 cm³",
		Mass:            "3.225 kg",
		EffectiveLength: "1.000 m",
		Centroid:        "(51.4, 15.1)",
	}, r.Summary())
}

func TestEngine_ClampsToRanges(t *testing.T) {
	e := NewEngine(nil)
	p := valueobjects.DefaultParameterSet().WithField(valueobjects.KeyA, "400")

	r := e.Analyze(p)
	assert.Equal(t, 250.0, r.Vertices[1].X)

	e.SetRanges(valueobjects.FieldRanges{
		valueobjects.KeyA: {MinValue: 0, MaxValue: 500, Step: 1},
	})
	r = e.Analyze(p)
	assert.Equal(t, 400.0, r.Vertices[1].X)
	assert.Equal(t, valueobjects.DefaultFieldRange, e.Range(valueobjects.KeyB))
}

func TestEngine_GarbageInputStillAnalyzes(t *testing.T) {
	e := NewEngine(nil)
	p := valueobjects.DefaultParameterSet()
	for _, k := range valueobjects.ParameterKeys {
		p = p.WithField(k, "??")
	}

	r := e.Analyze(p)
	assert.Equal(t, 0.0, r.Area)
	assert.Equal(t, 0.0, r.HydraulicRadius)
}

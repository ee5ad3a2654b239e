package valueobjects

import (
	"math"
	"regexp"
	"strconv"
	"strings"

	pkgerrors "github.com/Widerk/shapesbonding/pkg/errors"
)

// ParameterKey names one field of a ParameterSet
type ParameterKey string

const (
	KeyA      ParameterKey = "A"
	KeyB      ParameterKey = "B"
	KeyC      ParameterKey = "C"
	KeyD      ParameterKey = "D"
	KeyE      ParameterKey = "E"
	KeyLStart ParameterKey = "L_start"
	KeyLEnd   ParameterKey = "L_end"
	KeyRho    ParameterKey = "rho"
)

// ParameterKeys lists every key in display order
var ParameterKeys = []ParameterKey{KeyA, KeyB, KeyC, KeyD, KeyE, KeyLStart, KeyLEnd, KeyRho}

// DimensionKeys are the polygon lengths in millimeters
var DimensionKeys = []ParameterKey{KeyA, KeyB, KeyC, KeyD, KeyE}

// ParseParameterKey validates an externally supplied key
func ParseParameterKey(s string) (ParameterKey, error) {
	for _, k := range ParameterKeys {
		if string(k) == s {
			return k, nil
		}
	}
	return "", pkgerrors.NewValidationError("unknown parameter: " + s).
		WithCode(pkgerrors.CodeUnknownField)
}

// IsDimension reports whether k is one of the range-clamped lengths A through E
func (k ParameterKey) IsDimension() bool {
	switch k {
	case KeyA, KeyB, KeyC, KeyD, KeyE:
		return true
	}
	return false
}

var defaultParameterText = map[ParameterKey]string{
	KeyA:      "100",
	KeyB:      "40",
	KeyC:      "15",
	KeyD:      "20",
	KeyE:      "50",
	KeyLStart: "0.0",
	KeyLEnd:   "1.0",
	KeyRho:    "1121.7",
}

// ParameterSet holds the raw text the user typed for each field.
// It is immutable: every edit returns a new set.
type ParameterSet struct {
	text map[ParameterKey]string
}

// DefaultParameterSet returns the starting values of a fresh workbench
func DefaultParameterSet() ParameterSet {
	return NewParameterSet(nil)
}

// NewParameterSet builds a set from a text view. Missing keys take their
// defaults and unknown keys are ignored.
func NewParameterSet(values map[string]string) ParameterSet {
	text := make(map[ParameterKey]string, len(ParameterKeys))
	for _, k := range ParameterKeys {
		if v, ok := values[string(k)]; ok {
			text[k] = v
		} else {
			text[k] = defaultParameterText[k]
		}
	}
	return ParameterSet{text: text}
}

func (p ParameterSet) clone() map[ParameterKey]string {
	text := make(map[ParameterKey]string, len(ParameterKeys))
	for _, k := range ParameterKeys {
		text[k] = p.Text(k)
	}
	return text
}

// WithField replaces one field's text. The text is not validated.
func (p ParameterSet) WithField(key ParameterKey, text string) ParameterSet {
	if _, ok := defaultParameterText[key]; !ok {
		return p
	}
	next := p.clone()
	next[key] = text
	return ParameterSet{text: next}
}

// WithSlider stores a slider position for key, snapped to the range step and
// clamped to its bounds.
func (p ParameterSet) WithSlider(key ParameterKey, value float64, rng FieldRange) ParameterSet {
	v := rng.Clamp(rng.Snap(value))
	return p.WithField(key, strconv.FormatFloat(v, 'f', -1, 64))
}

// Text returns the raw text of one field
func (p ParameterSet) Text(key ParameterKey) string {
	if p.text == nil {
		return defaultParameterText[key]
	}
	return p.text[key]
}

// TextView returns a copy of the text of every field, keyed by name
func (p ParameterSet) TextView() map[string]string {
	view := make(map[string]string, len(ParameterKeys))
	for _, k := range ParameterKeys {
		view[string(k)] = p.Text(k)
	}
	return view
}

// Equals compares text views byte for byte
func (p ParameterSet) Equals(other ParameterSet) bool {
	for _, k := range ParameterKeys {
		if p.Text(k) != other.Text(k) {
			return false
		}
	}
	return true
}

// NumericParameters is the parsed view of a ParameterSet
type NumericParameters struct {
	A, B, C, D, E float64
	LStart, LEnd  float64
	Rho           float64
}

// EffectiveLength is the span in meters, never negative
func (n NumericParameters) EffectiveLength() float64 {
	return math.Max(n.LEnd-n.LStart, 0)
}

// NumericView parses every field with ParseOrZero
func (p ParameterSet) NumericView() NumericParameters {
	return NumericParameters{
		A:      ParseOrZero(p.Text(KeyA)),
		B:      ParseOrZero(p.Text(KeyB)),
		C:      ParseOrZero(p.Text(KeyC)),
		D:      ParseOrZero(p.Text(KeyD)),
		E:      ParseOrZero(p.Text(KeyE)),
		LStart: ParseOrZero(p.Text(KeyLStart)),
		LEnd:   ParseOrZero(p.Text(KeyLEnd)),
		Rho:    ParseOrZero(p.Text(KeyRho)),
	}
}

// NumericViewWithin parses every field and clamps A through E to their ranges.
// Keys absent from ranges are left unclamped.
func (p ParameterSet) NumericViewWithin(ranges FieldRanges) NumericParameters {
	n := p.NumericView()
	clamp := func(k ParameterKey, v float64) float64 {
		if r, ok := ranges[k]; ok {
			return r.Clamp(v)
		}
		return v
	}
	n.A = clamp(KeyA, n.A)
	n.B = clamp(KeyB, n.B)
	n.C = clamp(KeyC, n.C)
	n.D = clamp(KeyD, n.D)
	n.E = clamp(KeyE, n.E)
	return n
}

var numericPrefix = regexp.MustCompile(`^[+-]?(\d+\.?\d*|\.\d+)([eE][+-]?\d+)?`)

// ParseOrZero reads the longest leading decimal number in text and returns 0
// when there is none. Leading whitespace is skipped and trailing garbage is
// ignored, so "12mm" parses as 12. Results that overflow to infinity are 0.
func ParseOrZero(text string) float64 {
	m := numericPrefix.FindString(strings.TrimLeft(text, " \t\n\r\v\f"))
	if m == "" {
		return 0
	}
	v, err := strconv.ParseFloat(m, 64)
	if err != nil || v == 0 || math.IsInf(v, 0) || math.IsNaN(v) {
		// also folds -0 into 0
		return 0
	}
	return v
}

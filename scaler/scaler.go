// Package scaler implements a reversible min-max transformation. A scaler is fit once on
// training data and is immutable afterwards so the exact same transform can be applied to
// test data and to values generated while forecasting.
package scaler

import (
	"errors"
	"fmt"
	"math"
)

var (
	ErrNoData          = errors.New("no data to fit scaler")
	ErrNonFinite       = errors.New("non-finite value in scaler input")
	ErrDegenerateRange = errors.New("degenerate range where min equals max")
	ErrInvalidState    = errors.New("invalid scaler state")
)

// State is the serializeable representation of a fitted MinMax scaler
type State struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
}

// MinMax maps values into [0, 1] relative to the range of the data it was fit on. Values
// outside of the fitted range extrapolate linearly. A degenerate range maps every input to 0
// and every scaled value back to min.
type MinMax struct {
	min float64
	max float64
}

// Fit computes the range of y
func Fit(y []float64) (*MinMax, error) {
	if len(y) == 0 {
		return nil, ErrNoData
	}
	lo, hi := math.Inf(1), math.Inf(-1)
	for i, v := range y {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return nil, fmt.Errorf("at index %d, %w", i, ErrNonFinite)
		}
		lo = math.Min(lo, v)
		hi = math.Max(hi, v)
	}
	return &MinMax{min: lo, max: hi}, nil
}

// FromState rebuilds a scaler from a previously fitted state
func FromState(s State) (*MinMax, error) {
	if math.IsNaN(s.Min) || math.IsNaN(s.Max) || math.IsInf(s.Min, 0) || math.IsInf(s.Max, 0) {
		return nil, ErrNonFinite
	}
	if s.Max < s.Min {
		return nil, fmt.Errorf("max %.6f is less than min %.6f, %w", s.Max, s.Min, ErrInvalidState)
	}
	return &MinMax{min: s.Min, max: s.Max}, nil
}

func (m *MinMax) Min() float64 {
	return m.min
}

func (m *MinMax) Max() float64 {
	return m.max
}

// State returns a serializeable copy of the fitted range
func (m *MinMax) State() State {
	return State{Min: m.min, Max: m.max}
}

// Degenerate returns true if the fitted data was constant
func (m *MinMax) Degenerate() bool {
	return m.max == m.min
}

// Validate reports a degenerate range so callers can decide how to surface it
func (m *MinMax) Validate() error {
	if m.Degenerate() {
		return fmt.Errorf("min and max are both %.6f, %w", m.min, ErrDegenerateRange)
	}
	return nil
}

func (m *MinMax) Transform(x float64) float64 {
	if m.Degenerate() {
		return 0
	}
	return (x - m.min) / (m.max - m.min)
}

func (m *MinMax) InverseTransform(y float64) float64 {
	return y*(m.max-m.min) + m.min
}

// TransformSlice returns a new slice with every value of x scaled
func (m *MinMax) TransformSlice(x []float64) []float64 {
	out := make([]float64, len(x))
	for i, v := range x {
		out[i] = m.Transform(v)
	}
	return out
}

// InverseTransformSlice returns a new slice with every value of y unscaled
func (m *MinMax) InverseTransformSlice(y []float64) []float64 {
	out := make([]float64, len(y))
	for i, v := range y {
		out[i] = m.InverseTransform(v)
	}
	return out
}

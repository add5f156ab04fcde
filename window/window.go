// Package window slices a series into fixed length input windows each paired with the value
// immediately following it.
package window

import (
	"errors"
	"fmt"
	"time"
)

var (
	ErrInvalidLength  = errors.New("window length must be at least 1")
	ErrSeriesTooShort = errors.New("series too short for window length")
	ErrOutOfRange     = errors.New("window range out of bounds")
)

// Set holds windows and their targets. X[i] covers source positions [i, i+L) and Y[i] is the
// value at position i+L.
type Set struct {
	X [][]float64
	Y []float64
	L int
}

// Make builds len(y)-length windows over y. Windows are copies and do not share memory with y.
func Make(y []float64, length int) (*Set, error) {
	if length < 1 {
		return nil, fmt.Errorf("got %d, %w", length, ErrInvalidLength)
	}
	if len(y) <= length {
		return nil, fmt.Errorf("series has length %d, window length %d requires at least %d, %w",
			len(y), length, length+1, ErrSeriesTooShort)
	}

	n := len(y) - length
	x := make([][]float64, n)
	targets := make([]float64, n)
	for i := 0; i < n; i++ {
		row := make([]float64, length)
		copy(row, y[i:i+length])
		x[i] = row
		targets[i] = y[i+length]
	}
	return &Set{X: x, Y: targets, L: length}, nil
}

// TargetTimes returns the timestamp of every window target, t[i+L]
func TargetTimes(t []time.Time, length int) []time.Time {
	if length < 0 || len(t) <= length {
		return nil
	}
	out := make([]time.Time, len(t)-length)
	copy(out, t[length:])
	return out
}

func (s *Set) Len() int {
	if s == nil {
		return 0
	}
	return len(s.Y)
}

// Slice returns the windows in [start, end). The returned set shares memory with s.
func (s *Set) Slice(start, end int) (*Set, error) {
	if start < 0 || end > s.Len() || start > end {
		return nil, fmt.Errorf("range [%d, %d) with %d windows, %w", start, end, s.Len(), ErrOutOfRange)
	}
	return &Set{X: s.X[start:end], Y: s.Y[start:end], L: s.L}, nil
}

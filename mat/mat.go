// Package mat builds gonum design matrices from row slices and lagged series.
package mat

import (
	"errors"
	"fmt"

	"gonum.org/v1/gonum/mat"
)

var (
	ErrEmptyArray      = errors.New("empty array")
	ErrColMismatch     = errors.New("column size mismatch")
	ErrInvalidLag      = errors.New("lag must be non-negative")
	ErrInsufficientLen = errors.New("series too short for requested lags")
)

// NewDenseFromArray flattens rows into a dense matrix. All rows must have the same, non-zero
// length.
func NewDenseFromArray(x [][]float64) (*mat.Dense, error) {
	m := len(x)
	if m == 0 {
		return nil, fmt.Errorf("no rows, %w", ErrEmptyArray)
	}

	n := len(x[0])
	for i, row := range x {
		if len(row) != n {
			return nil, fmt.Errorf("at row %d, %w", i, ErrColMismatch)
		}
	}
	if n == 0 {
		return nil, fmt.Errorf("no columns, %w", ErrEmptyArray)
	}

	// flatten to row order
	data := make([]float64, 0, m*n)
	for _, row := range x {
		data = append(data, row...)
	}
	return mat.NewDense(m, n, data), nil
}

// Lagged describes one block of lagged columns taken from a series
type Lagged struct {
	Series []float64
	Lags   int
}

// NewLagMatrix builds a design matrix with one row per time index t in [start, end) where each
// block contributes the columns Series[t-1], ..., Series[t-Lags]. Blocks with zero lags are
// skipped.
func NewLagMatrix(start, end int, blocks ...Lagged) (*mat.Dense, error) {
	var cols int
	for _, b := range blocks {
		if b.Lags < 0 {
			return nil, fmt.Errorf("got lag %d, %w", b.Lags, ErrInvalidLag)
		}
		if start-b.Lags < 0 || end > len(b.Series) {
			return nil, fmt.Errorf(
				"rows [%d, %d) with %d lags over %d points, %w",
				start, end, b.Lags, len(b.Series), ErrInsufficientLen,
			)
		}
		cols += b.Lags
	}
	if end <= start || cols == 0 {
		return nil, fmt.Errorf("%d rows and %d columns, %w", end-start, cols, ErrEmptyArray)
	}

	data := make([]float64, 0, (end-start)*cols)
	for t := start; t < end; t++ {
		for _, b := range blocks {
			for lag := 1; lag <= b.Lags; lag++ {
				data = append(data, b.Series[t-lag])
			}
		}
	}
	return mat.NewDense(end-start, cols, data), nil
}

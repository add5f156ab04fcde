// Package stats provides the series statistics used while fitting and reporting forecasts.
package stats

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

var (
	ErrNegativeOrder  = errors.New("differencing order must be non-negative")
	ErrSeriesTooShort = errors.New("series too short for differencing order")
	ErrNoData         = errors.New("no data")
)

// Diff applies the first difference d times. The result has len(y)-d points.
func Diff(y []float64, d int) ([]float64, error) {
	levels, err := DiffLevels(y, d)
	if err != nil {
		return nil, err
	}
	return levels[d], nil
}

// DiffLevels returns every intermediate differencing level where levels[0] is a copy of y and
// levels[k] is y differenced k times.
func DiffLevels(y []float64, d int) ([][]float64, error) {
	if d < 0 {
		return nil, fmt.Errorf("got order %d, %w", d, ErrNegativeOrder)
	}
	if len(y) <= d {
		return nil, fmt.Errorf("%d points for order %d, %w", len(y), d, ErrSeriesTooShort)
	}

	levels := make([][]float64, 0, d+1)
	cur := make([]float64, len(y))
	copy(cur, y)
	levels = append(levels, cur)
	for k := 0; k < d; k++ {
		next := make([]float64, len(cur)-1)
		for i := range next {
			next[i] = cur[i+1] - cur[i]
		}
		levels = append(levels, next)
		cur = next
	}
	return levels, nil
}

// Integrate undoes differencing of a one step ahead value given the last value of every
// lower differencing level.
func Integrate(next float64, levels [][]float64, d int) float64 {
	for k := d - 1; k >= 0; k-- {
		lvl := levels[k]
		next += lvl[len(lvl)-1]
	}
	return next
}

// Summary describes the distribution of a series
type Summary struct {
	N        int     `json:"n"`
	Mean     float64 `json:"mean"`
	StdDev   float64 `json:"std_dev"`
	Min      float64 `json:"min"`
	Max      float64 `json:"max"`
	Outliers int     `json:"outliers"`
}

// Summarize computes the summary of y counting outliers outside the inter-percentile range
// of [0.05, 0.95] widened by a tukey factor of 1.5.
func Summarize(y []float64) (Summary, error) {
	if len(y) == 0 {
		return Summary{}, ErrNoData
	}
	mean, std := stat.MeanStdDev(y, nil)
	if len(y) < 2 {
		std = 0
	}
	return Summary{
		N:        len(y),
		Mean:     mean,
		StdDev:   std,
		Min:      floats.Min(y),
		Max:      floats.Max(y),
		Outliers: len(DetectOutliers(y, 0.05, 0.95, 1.5)),
	}, nil
}

// DetectOutliers returns the indexes of points at or beyond the percentile bounds widened by
// tukeyFactor times the inner range.
func DetectOutliers(y []float64, lowerPerc, upperPerc, tukeyFactor float64) []int {
	if len(y) == 0 {
		return nil
	}
	lowerPerc = math.Max(lowerPerc, 0.0)
	upperPerc = math.Min(upperPerc, 1.0)
	tukeyFactor = math.Max(tukeyFactor, 0.0)

	yCopy := make([]float64, len(y))
	copy(yCopy, y)
	sort.Float64s(yCopy)
	lowerIdx := int(math.Floor(float64(len(yCopy)-1) * lowerPerc))
	upperIdx := int(math.Ceil(float64(len(yCopy)-1) * upperPerc))

	lower := yCopy[lowerIdx]
	upper := yCopy[upperIdx]
	innerRange := upper - lower
	if innerRange == 0 {
		return nil
	}
	lower -= innerRange * tukeyFactor
	upper += innerRange * tukeyFactor

	var outlierIdx []int
	for i := 0; i < len(y); i++ {
		if y[i] >= upper || y[i] <= lower {
			outlierIdx = append(outlierIdx, i)
		}
	}
	return outlierIdx
}

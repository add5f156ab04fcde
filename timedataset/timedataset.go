// Package timedataset holds the univariate time series representation used across the
// forecaster along with the ingestion steps that turn raw sensor records into a uniformly
// spaced, gap free series.
package timedataset

import (
	"errors"
	"fmt"
	"math"
	"time"
)

var (
	ErrNoTrainingData     = errors.New("no training data")
	ErrNonMontonic        = errors.New("time feature is not monotonic")
	ErrDatasetLenMismatch = errors.New("time feature has a different length than observations")
	ErrInvalidSplitRatio  = errors.New("split ratio must be between 0 and 1 exclusive")
)

// TimeDataset represents a time series storing a slice of time points and values.
// Both must be of the same length.
type TimeDataset struct {
	T []time.Time
	Y []float64
}

// NewUnivariateDataset returns an instance of a TimeDataset given a time and value slice.
// Time points must be strictly increasing.
func NewUnivariateDataset(t []time.Time, y []float64) (*TimeDataset, error) {
	if err := (&TimeDataset{T: t, Y: y}).Validate(); err != nil {
		return nil, err
	}

	tSeries := make([]time.Time, len(t))
	ySeries := make([]float64, len(t))
	copy(tSeries, t)
	copy(ySeries, y)
	td := &TimeDataset{
		T: tSeries,
		Y: ySeries,
	}

	return td, nil
}

// Validate checks the dataset is non-empty, has a value for every time point and that time
// points are strictly increasing
func (td *TimeDataset) Validate() error {
	if td == nil || len(td.Y) == 0 {
		return ErrNoTrainingData
	}
	if len(td.T) != len(td.Y) {
		return fmt.Errorf(
			"time feature has length of %d, but values has a length of %d, %w",
			len(td.T), len(td.Y), ErrDatasetLenMismatch,
		)
	}
	for i := 1; i < len(td.T); i++ {
		if !td.T[i].After(td.T[i-1]) {
			return fmt.Errorf("non-monotonic at %d, %w", i, ErrNonMontonic)
		}
	}
	return nil
}

// Len returns the number of points in the dataset
func (td *TimeDataset) Len() int {
	if td == nil {
		return 0
	}
	return len(td.Y)
}

func (td *TimeDataset) Copy() *TimeDataset {
	if td == nil {
		return nil
	}
	tSeries := make([]time.Time, len(td.T))
	ySeries := make([]float64, len(td.T))
	copy(tSeries, td.T)
	copy(ySeries, td.Y)
	return &TimeDataset{
		T: tSeries,
		Y: ySeries,
	}
}

// SplitIndex returns the index of the first point of the suffix when partitioning n points by
// the ratio. Points before the index belong to the prefix.
func SplitIndex(n int, ratio float64) (int, error) {
	if ratio <= 0 || ratio >= 1 || math.IsNaN(ratio) {
		return 0, fmt.Errorf("got ratio %.3f, %w", ratio, ErrInvalidSplitRatio)
	}
	return int(float64(n) * ratio), nil
}

// Split partitions the dataset into a train prefix and test suffix preserving time order.
// Neither returned dataset shares memory with the original.
func (td *TimeDataset) Split(ratio float64) (*TimeDataset, *TimeDataset, error) {
	if td.Len() == 0 {
		return nil, nil, ErrNoTrainingData
	}
	idx, err := SplitIndex(td.Len(), ratio)
	if err != nil {
		return nil, nil, err
	}
	train := &TimeDataset{T: td.T[:idx], Y: td.Y[:idx]}
	test := &TimeDataset{T: td.T[idx:], Y: td.Y[idx:]}
	return train.Copy(), test.Copy(), nil
}

// Tail returns a copy of the last n values of the series
func (td *TimeDataset) Tail(n int) []float64 {
	if td == nil {
		return nil
	}
	if n > len(td.Y) {
		n = len(td.Y)
	}
	out := make([]float64, n)
	copy(out, td.Y[len(td.Y)-n:])
	return out
}

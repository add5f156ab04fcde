package forecaster

import (
	"errors"
	"fmt"
	"math"
)

var (
	ErrLengthMismatch = errors.New("predicted and actual have different lengths")
	ErrNoScoreData    = errors.New("no finite pairs to score")
)

// Scores are error metrics in the units of the original series
type Scores struct {
	MSE  float64 `json:"mse"`  // mean squared error
	MAE  float64 `json:"mae"`  // mean absolute error
	RMSE float64 `json:"rmse"` // root mean squared error
}

// Evaluate scores aligned actual and predicted values. Pairs where either value is NaN are
// skipped.
func Evaluate(actual, predicted []float64) (*Scores, error) {
	if len(actual) != len(predicted) {
		return nil, fmt.Errorf("actual has %d values and predicted has %d, %w", len(actual), len(predicted), ErrLengthMismatch)
	}
	mse, err := MSE(actual, predicted)
	if err != nil {
		return nil, fmt.Errorf("unable to compute mean squared error, %w", err)
	}
	mae, err := MAE(actual, predicted)
	if err != nil {
		return nil, fmt.Errorf("unable to compute mean absolute error, %w", err)
	}
	return &Scores{
		MSE:  mse,
		MAE:  mae,
		RMSE: math.Sqrt(mse),
	}, nil
}

func MSE(actual, predicted []float64) (float64, error) {
	if len(predicted) != len(actual) {
		return 0, ErrLengthMismatch
	}

	var mse float64
	var n int
	for i := 0; i < len(actual); i++ {
		if math.IsNaN(actual[i]) || math.IsNaN(predicted[i]) {
			continue
		}
		mse += math.Pow(actual[i]-predicted[i], 2.0)
		n++
	}
	if n == 0 {
		return 0, ErrNoScoreData
	}
	return mse / float64(n), nil
}

func MAE(actual, predicted []float64) (float64, error) {
	if len(predicted) != len(actual) {
		return 0, ErrLengthMismatch
	}

	var mae float64
	var n int
	for i := 0; i < len(actual); i++ {
		if math.IsNaN(actual[i]) || math.IsNaN(predicted[i]) {
			continue
		}
		mae += math.Abs(actual[i] - predicted[i])
		n++
	}
	if n == 0 {
		return 0, ErrNoScoreData
	}
	return mae / float64(n), nil
}

package forecaster

import (
	"time"

	"github.com/aouyang1/go-sensorcast/models"
	"github.com/aouyang1/go-sensorcast/stats"
)

// Evaluation pairs one step predictions with the observed value at each target timestamp
type Evaluation struct {
	Timestamps []time.Time `json:"timestamps"`
	Actual     []float64   `json:"actual_values"`
	Predicted  []float64   `json:"predicted_values"`
}

// Len returns the number of aligned points
func (e Evaluation) Len() int {
	return len(e.Timestamps)
}

// Future is an iterative forecast beyond the last observed timestamp. Forecast error
// compounds with every step since each prediction is fed back as input.
type Future struct {
	Timestamps []time.Time `json:"future_timestamps"`
	Predicted  []float64   `json:"predicted_values"`
}

// Report is the outcome of training and evaluating a forecaster on a series
type Report struct {
	Backend      models.Kind   `json:"backend"`
	WindowLength int           `json:"window_length"`
	Frequency    time.Duration `json:"frequency"`
	SplitIndex   int           `json:"split_index"`

	// DegenerateRange is set when the training split is constant and scaling maps every
	// value to a single point
	DegenerateRange bool `json:"degenerate_range"`

	Summary stats.Summary `json:"summary"`
	// Stationarity is the unit root test of the raw training split. It is nil when the test
	// cannot be computed, e.g. for a constant split.
	Stationarity *stats.ADFResult `json:"stationarity,omitempty"`

	Train       Evaluation `json:"train"`
	Test        Evaluation `json:"test"`
	TrainScores *Scores    `json:"train_scores"`
	TestScores  *Scores    `json:"test_scores"`

	Order   *models.Order   `json:"order,omitempty"`
	History *models.History `json:"history,omitempty"`
}

// Package forecaster trains a forecasting backend on a univariate sensor series, evaluates one
// step predictions on a held out suffix and iteratively forecasts beyond the last observation.
package forecaster

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/aouyang1/go-sensorcast/models"
	"github.com/aouyang1/go-sensorcast/scaler"
	"github.com/aouyang1/go-sensorcast/stats"
	"github.com/aouyang1/go-sensorcast/timedataset"
	"github.com/aouyang1/go-sensorcast/window"
)

var (
	ErrAlreadyTrained   = errors.New("forecaster has already been trained")
	ErrModelNotTrained  = errors.New("forecaster has not been trained")
	ErrSeedTooShort     = errors.New("seed is shorter than the window length")
	ErrInvalidSteps     = errors.New("number of steps must be positive")
	ErrNoOptionsInModel = errors.New("no options set in model")
	ErrNoBackendParams  = errors.New("no backend parameters in model")
)

// State is the lifecycle stage of a forecaster
type State int

const (
	StateUntrained State = iota
	StateTrained
	StateForecasting
)

func (s State) String() string {
	switch s {
	case StateUntrained:
		return "untrained"
	case StateTrained:
		return "trained"
	case StateForecasting:
		return "forecasting"
	default:
		return "unknown"
	}
}

// Forecaster owns one backend and the scaler it was trained with. It is not safe for
// concurrent use; use one instance per series and backend.
type Forecaster struct {
	opt   *Options
	state State

	model      models.Model
	scaler     *scaler.MinMax
	freq       time.Duration
	lastTime   time.Time
	lastWindow []float64

	report *Report
}

// New creates a new instance of a Forecaster using the provided options. If no options are
// provided a default is used.
func New(opt *Options) (*Forecaster, error) {
	opt, err := opt.Validate()
	if err != nil {
		return nil, err
	}
	return &Forecaster{opt: opt}, nil
}

// State returns the current lifecycle stage
func (f *Forecaster) State() State {
	return f.state
}

// Report returns the report of the last successful training run
func (f *Forecaster) Report() *Report {
	return f.report
}

// Frequency returns the spacing of the trained series
func (f *Forecaster) Frequency() time.Duration {
	return f.freq
}

// Reset discards the trained backend and scaler so the forecaster can be trained again
func (f *Forecaster) Reset() {
	f.state = StateUntrained
	f.model = nil
	f.scaler = nil
	f.freq = 0
	f.lastTime = time.Time{}
	f.lastWindow = nil
	f.report = nil
}

func (f *Forecaster) frequency(td *timedataset.TimeDataset) (time.Duration, error) {
	freq := f.opt.Frequency
	if freq == 0 {
		var err error
		freq, err = timedataset.TimeSlice(td.T).EstimateFreq()
		if err != nil {
			return 0, fmt.Errorf("unable to infer frequency, %w", err)
		}
	}
	if freq <= 0 {
		return 0, fmt.Errorf("frequency %s must be positive, %w", freq, timedataset.ErrInvalidFreq)
	}
	if err := timedataset.TimeSlice(td.T).Uniform(freq); err != nil {
		return 0, err
	}
	return freq, nil
}

// TrainAndEvaluate splits the series into a train prefix and test suffix, fits the scaler on
// the train prefix, trains the backend on windows whose target falls in the train prefix and
// predicts every window one step ahead. Windows targeting the test suffix may look back into
// the train prefix. The forecaster only becomes trained when every step succeeds.
func (f *Forecaster) TrainAndEvaluate(td *timedataset.TimeDataset) (*Report, error) {
	if f.state != StateUntrained {
		return nil, ErrAlreadyTrained
	}
	if td.Len() == 0 {
		return nil, fmt.Errorf("empty series, %w", timedataset.ErrInsufficientData)
	}
	if err := td.Validate(); err != nil {
		return nil, fmt.Errorf("invalid series, %w", err)
	}

	n := td.Len()
	l := f.opt.WindowLength
	split, err := timedataset.SplitIndex(n, f.opt.SplitRatio)
	if err != nil {
		return nil, err
	}
	if split <= l || n-split < 1 {
		return nil, fmt.Errorf(
			"series has length %d with train split of %d, window length %d, %w",
			n, split, l, window.ErrSeriesTooShort,
		)
	}

	freq, err := f.frequency(td)
	if err != nil {
		return nil, err
	}

	model, err := f.opt.newModel()
	if err != nil {
		return nil, fmt.Errorf("unable to initialize %s backend, %w", f.opt.Backend, err)
	}

	series := td.Y
	var sc *scaler.MinMax
	if model.Scaled() {
		sc, err = scaler.Fit(td.Y[:split])
		if err != nil {
			return nil, fmt.Errorf("unable to fit scaler on train split, %w", err)
		}
		if err := sc.Validate(); err != nil {
			slog.Warn("constant training split, scaled values collapse to zero", "value", sc.Min(), "error", err)
		}
		series = sc.TransformSlice(td.Y)
	}

	windows, err := window.Make(series, l)
	if err != nil {
		return nil, fmt.Errorf("unable to build windows, %w", err)
	}
	nTrain := split - l
	trainSet, err := windows.Slice(0, nTrain)
	if err != nil {
		return nil, err
	}
	testSet, err := windows.Slice(nTrain, windows.Len())
	if err != nil {
		return nil, err
	}

	trainSeries := make([]float64, split)
	copy(trainSeries, td.Y[:split])
	if err := model.Fit(models.TrainingData{Series: trainSeries, Windows: trainSet}); err != nil {
		return nil, fmt.Errorf("unable to train %s backend, %w", model.Kind(), err)
	}

	trainPred, err := f.predictWindows(model, sc, trainSet)
	if err != nil {
		return nil, fmt.Errorf("unable to predict train windows, %w", err)
	}
	testPred, err := f.predictWindows(model, sc, testSet)
	if err != nil {
		return nil, fmt.Errorf("unable to predict test windows, %w", err)
	}

	targetTimes := window.TargetTimes(td.T, l)
	report := &Report{
		Backend:         model.Kind(),
		WindowLength:    l,
		Frequency:       freq,
		SplitIndex:      split,
		DegenerateRange: sc != nil && sc.Degenerate(),
		Train: Evaluation{
			Timestamps: targetTimes[:nTrain],
			Actual:     copyFloats(td.Y[l:split]),
			Predicted:  trainPred,
		},
		Test: Evaluation{
			Timestamps: targetTimes[nTrain:],
			Actual:     copyFloats(td.Y[split:]),
			Predicted:  testPred,
		},
	}
	if report.Summary, err = stats.Summarize(td.Y); err != nil {
		return nil, fmt.Errorf("unable to summarize series, %w", err)
	}
	if report.Stationarity, err = stats.ADF(td.Y[:split], -1); err != nil {
		slog.Debug("skipping stationarity test", "error", err)
	}
	if report.TrainScores, err = Evaluate(report.Train.Actual, report.Train.Predicted); err != nil {
		return nil, fmt.Errorf("unable to score train predictions, %w", err)
	}
	if report.TestScores, err = Evaluate(report.Test.Actual, report.Test.Predicted); err != nil {
		return nil, fmt.Errorf("unable to score test predictions, %w", err)
	}
	switch m := model.(type) {
	case *models.ARIMA:
		params, err := m.Params()
		if err != nil {
			return nil, err
		}
		report.Order = &params.Order
	case *models.Recurrent:
		history := m.History()
		report.History = &history
	}

	slog.Debug("trained forecaster",
		"backend", model.Kind(),
		"train_windows", trainSet.Len(),
		"test_windows", testSet.Len(),
		"test_rmse", report.TestScores.RMSE,
	)

	f.model = model
	f.scaler = sc
	f.freq = freq
	f.lastTime = td.T[n-1]
	f.lastWindow = td.Tail(l)
	f.report = report
	f.state = StateTrained
	return report, nil
}

func (f *Forecaster) predictWindows(model models.Model, sc *scaler.MinMax, set *window.Set) ([]float64, error) {
	pred, err := model.Predict(set.X)
	if err != nil {
		return nil, err
	}
	if sc != nil {
		pred = sc.InverseTransformSlice(pred)
	}
	return pred, nil
}

// PredictFuture iteratively predicts steps values following the seed. Each prediction is
// appended to a sliding buffer of the last window length raw values which becomes the input
// of the next step, so errors compound with the number of steps.
func (f *Forecaster) PredictFuture(seed []float64, steps int) ([]float64, error) {
	if f.state == StateUntrained || f.model == nil {
		return nil, ErrModelNotTrained
	}
	if steps < 1 {
		return nil, fmt.Errorf("got %d steps, %w", steps, ErrInvalidSteps)
	}
	l := f.opt.WindowLength
	if len(seed) < l {
		return nil, fmt.Errorf("seed has length %d, window length %d, %w", len(seed), l, ErrSeedTooShort)
	}

	f.state = StateForecasting
	defer func() {
		f.state = StateTrained
	}()

	buf := make([]float64, l)
	copy(buf, seed[len(seed)-l:])
	input := make([]float64, l)

	out := make([]float64, 0, steps)
	for step := 0; step < steps; step++ {
		copy(input, buf)
		if f.scaler != nil {
			for i, v := range input {
				input[i] = f.scaler.Transform(v)
			}
		}
		yhat, err := f.model.PredictOne(input)
		if err != nil {
			return nil, fmt.Errorf("unable to predict step %d, %w", step+1, err)
		}
		if f.scaler != nil {
			yhat = f.scaler.InverseTransform(yhat)
		}
		out = append(out, yhat)

		copy(buf, buf[1:])
		buf[l-1] = yhat
	}
	return out, nil
}

// Forecast predicts steps values beyond the last observed timestamp seeded with the last
// window of observed values. A non-positive steps uses the configured horizon.
func (f *Forecaster) Forecast(steps int) (*Future, error) {
	if f.state == StateUntrained {
		return nil, ErrModelNotTrained
	}
	if steps < 1 {
		steps = f.opt.Horizon
	}
	pred, err := f.PredictFuture(f.lastWindow, steps)
	if err != nil {
		return nil, err
	}
	return &Future{
		Timestamps: timedataset.TimeSlice{f.lastTime}.Horizon(steps, f.freq),
		Predicted:  pred,
	}, nil
}

func copyFloats(x []float64) []float64 {
	out := make([]float64, len(x))
	copy(out, x)
	return out
}

package forecaster

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/aouyang1/go-sensorcast/models"
	"github.com/aouyang1/go-sensorcast/scaler"
)

// Model is a serializeable representation of a trained forecaster. It carries everything
// required to forecast beyond the training series without retraining.
type Model struct {
	Options     *Options                `json:"options"`
	Scaler      *scaler.State           `json:"scaler,omitempty"`
	Recurrent   *models.RecurrentParams `json:"recurrent,omitempty"`
	ARIMA       *models.ARIMAParams     `json:"arima,omitempty"`
	LastWindow  []float64               `json:"last_window"`
	LastTime    time.Time               `json:"last_time"`
	Frequency   time.Duration           `json:"frequency"`
	TrainScores *Scores                 `json:"train_scores,omitempty"`
	TestScores  *Scores                 `json:"test_scores,omitempty"`
}

// Model exports the trained state of the forecaster
func (f *Forecaster) Model() (Model, error) {
	if f.state == StateUntrained || f.model == nil {
		return Model{}, ErrModelNotTrained
	}
	opt := *f.opt
	m := Model{
		Options:    &opt,
		LastWindow: copyFloats(f.lastWindow),
		LastTime:   f.lastTime,
		Frequency:  f.freq,
	}
	if f.scaler != nil {
		state := f.scaler.State()
		m.Scaler = &state
	}
	if f.report != nil {
		m.TrainScores = f.report.TrainScores
		m.TestScores = f.report.TestScores
	}

	switch backend := f.model.(type) {
	case *models.Recurrent:
		params, err := backend.Params()
		if err != nil {
			return Model{}, fmt.Errorf("unable to export recurrent parameters, %w", err)
		}
		m.Recurrent = params
	case *models.ARIMA:
		params, err := backend.Params()
		if err != nil {
			return Model{}, fmt.Errorf("unable to export arima parameters, %w", err)
		}
		m.ARIMA = params
	}
	return m, nil
}

// NewFromModel creates a trained Forecaster from a pre-existing model. This should be generated
// from a previous forecaster call to Model().
func NewFromModel(model Model) (*Forecaster, error) {
	if model.Options == nil {
		return nil, ErrNoOptionsInModel
	}
	opt, err := model.Options.Validate()
	if err != nil {
		return nil, err
	}
	if len(model.LastWindow) < opt.WindowLength {
		return nil, fmt.Errorf("last window has length %d, window length %d, %w", len(model.LastWindow), opt.WindowLength, ErrSeedTooShort)
	}
	if model.Frequency <= 0 {
		return nil, fmt.Errorf("frequency %s must be positive, %w", model.Frequency, ErrInvalidOptions)
	}

	f := &Forecaster{
		opt:        opt,
		state:      StateTrained,
		freq:       model.Frequency,
		lastTime:   model.LastTime,
		lastWindow: copyFloats(model.LastWindow),
	}

	switch opt.Backend {
	case models.KindARIMA:
		if model.ARIMA == nil {
			return nil, fmt.Errorf("%s backend, %w", opt.Backend, ErrNoBackendParams)
		}
		if f.model, err = models.NewARIMAFromParams(model.ARIMA); err != nil {
			return nil, fmt.Errorf("unable to load arima model, %w", err)
		}
	default:
		if model.Recurrent == nil {
			return nil, fmt.Errorf("%s backend, %w", opt.Backend, ErrNoBackendParams)
		}
		if f.model, err = models.NewRecurrentFromParams(model.Recurrent); err != nil {
			return nil, fmt.Errorf("unable to load recurrent model, %w", err)
		}
	}

	if f.model.Scaled() {
		if model.Scaler == nil {
			return nil, fmt.Errorf("scaled backend without scaler state, %w", ErrNoBackendParams)
		}
		if f.scaler, err = scaler.FromState(*model.Scaler); err != nil {
			return nil, fmt.Errorf("unable to load scaler, %w", err)
		}
	}
	return f, nil
}

// TablePrint writes a human readable summary of the model
func (m Model) TablePrint(w io.Writer, prefix, indent string) error {
	ind := func(n int) string {
		return prefix + strings.Repeat(indent, n)
	}

	backend := models.Kind("unknown")
	if m.Options != nil {
		backend = m.Options.Backend
	}
	if _, err := fmt.Fprintf(w, "%sForecaster:\n", ind(0)); err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "%sBackend: %s\n", ind(1), backend); err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "%sLast Time: %s    Frequency: %s\n", ind(1), m.LastTime, m.Frequency); err != nil {
		return err
	}
	if m.Scaler != nil {
		if _, err := fmt.Fprintf(w, "%sScaler: min %.3f    max %.3f\n", ind(1), m.Scaler.Min, m.Scaler.Max); err != nil {
			return err
		}
	}
	if m.ARIMA != nil {
		if _, err := fmt.Fprintf(w, "%sOrder: %s    AIC: %.3f    Variance: %.3f\n",
			ind(1), m.ARIMA.Order, m.ARIMA.AIC, m.ARIMA.Variance); err != nil {
			return err
		}
	}

	if m.TrainScores == nil && m.TestScores == nil {
		return nil
	}
	if _, err := fmt.Fprintf(w, "%sScores:\n", ind(0)); err != nil {
		return err
	}
	tbl := tabwriter.NewWriter(w, 0, 0, 1, ' ', tabwriter.AlignRight)
	if _, err := fmt.Fprintf(tbl, "%sSplit\tMSE\tMAE\tRMSE\t\n", ind(1)); err != nil {
		return err
	}
	for _, row := range []struct {
		name   string
		scores *Scores
	}{
		{"train", m.TrainScores},
		{"test", m.TestScores},
	} {
		if row.scores == nil {
			continue
		}
		if _, err := fmt.Fprintf(tbl, "%s%s\t%.3f\t%.3f\t%.3f\t\n",
			ind(1), row.name, row.scores.MSE, row.scores.MAE, row.scores.RMSE); err != nil {
			return err
		}
	}
	return tbl.Flush()
}

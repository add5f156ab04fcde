package forecaster

import (
	"errors"
	"fmt"
	"time"

	"github.com/aouyang1/go-sensorcast/models"
)

var ErrInvalidOptions = errors.New("invalid forecaster options")

const (
	DefaultWindowLength = 24
	DefaultSplitRatio   = 0.8
	DefaultHorizon      = 24
)

// Options configures the forecaster. A zero Frequency is inferred from the most common spacing
// of the training series.
type Options struct {
	Backend      models.Kind   `json:"backend" mapstructure:"backend"`
	WindowLength int           `json:"window_length" mapstructure:"window_length"`
	SplitRatio   float64       `json:"split_ratio" mapstructure:"split_ratio"`
	Frequency    time.Duration `json:"frequency" mapstructure:"frequency"`
	Horizon      int           `json:"horizon" mapstructure:"horizon"`

	RecurrentOptions *models.RecurrentOptions `json:"recurrent_options,omitempty" mapstructure:"recurrent"`
	ARIMAOptions     *models.ARIMAOptions     `json:"arima_options,omitempty" mapstructure:"arima"`
}

// NewDefaultOptions returns a recurrent backend over 24 point windows with an 80/20 split and
// a 24 step horizon
func NewDefaultOptions() *Options {
	return &Options{
		Backend:          models.KindRecurrent,
		WindowLength:     DefaultWindowLength,
		SplitRatio:       DefaultSplitRatio,
		Horizon:          DefaultHorizon,
		RecurrentOptions: models.NewDefaultRecurrentOptions(),
		ARIMAOptions:     models.NewDefaultARIMAOptions(),
	}
}

// Validate returns a copy of the options with defaults populated for any unset backend options
func (o *Options) Validate() (*Options, error) {
	if o == nil {
		return NewDefaultOptions(), nil
	}
	opt := *o
	switch opt.Backend {
	case "":
		opt.Backend = models.KindRecurrent
	case models.KindRecurrent, models.KindARIMA:
	default:
		return nil, fmt.Errorf("unknown backend %q, %w", opt.Backend, ErrInvalidOptions)
	}
	if opt.WindowLength < 1 {
		return nil, fmt.Errorf("window length %d must be positive, %w", opt.WindowLength, ErrInvalidOptions)
	}
	if opt.SplitRatio <= 0 || opt.SplitRatio >= 1 {
		return nil, fmt.Errorf("split ratio %.3f must be between 0 and 1 exclusive, %w", opt.SplitRatio, ErrInvalidOptions)
	}
	if opt.Frequency < 0 {
		return nil, fmt.Errorf("frequency %s must be non-negative, %w", opt.Frequency, ErrInvalidOptions)
	}
	if opt.Horizon < 0 {
		return nil, fmt.Errorf("horizon %d must be non-negative, %w", opt.Horizon, ErrInvalidOptions)
	}

	var err error
	if opt.RecurrentOptions, err = opt.RecurrentOptions.Validate(); err != nil {
		return nil, fmt.Errorf("unable to validate recurrent options, %w", err)
	}
	if opt.ARIMAOptions, err = opt.ARIMAOptions.Validate(); err != nil {
		return nil, fmt.Errorf("unable to validate arima options, %w", err)
	}
	if order := opt.ARIMAOptions.Order; opt.Backend == models.KindARIMA && order != nil && order.MinContext() > opt.WindowLength {
		return nil, fmt.Errorf(
			"order %s needs %d points of context, window length %d, %w",
			order, order.MinContext(), opt.WindowLength, ErrInvalidOptions,
		)
	}
	return &opt, nil
}

func (o *Options) newModel() (models.Model, error) {
	switch o.Backend {
	case models.KindARIMA:
		return models.NewARIMA(o.ARIMAOptions)
	default:
		return models.NewRecurrent(o.RecurrentOptions)
	}
}

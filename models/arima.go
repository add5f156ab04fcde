package models

import (
	"fmt"
	"log/slog"
	"math"

	"github.com/aouyang1/go-sensorcast/floatsunrolled"
	mat_ "github.com/aouyang1/go-sensorcast/mat"
	"github.com/aouyang1/go-sensorcast/stats"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

// minimum number of regression rows beyond the number of coefficients
const minDegreesOfFreedom = 2

// aic values within this relative tolerance are considered equal
const aicTieTol = 1e-9

// variances are floored to keep the log likelihood finite on perfectly fit series
const minVariance = 1e-12

// Order is the (p, d, q) order of an autoregressive integrated moving average model
type Order struct {
	P int `json:"p" mapstructure:"p"`
	D int `json:"d" mapstructure:"d"`
	Q int `json:"q" mapstructure:"q"`
}

// MinContext is the number of raw points needed to predict the next value
func (o Order) MinContext() int {
	return o.P + o.D + 1
}

func (o Order) String() string {
	return fmt.Sprintf("(%d,%d,%d)", o.P, o.D, o.Q)
}

// ARIMAOptions bounds the order grid search. A non-nil Order skips the search and fits only
// that order.
type ARIMAOptions struct {
	MaxP  int    `json:"max_p" mapstructure:"max_p"`
	MaxD  int    `json:"max_d" mapstructure:"max_d"`
	MaxQ  int    `json:"max_q" mapstructure:"max_q"`
	Order *Order `json:"order,omitempty" mapstructure:"order"`
}

func NewDefaultARIMAOptions() *ARIMAOptions {
	return &ARIMAOptions{
		MaxP: 3,
		MaxD: 2,
		MaxQ: 3,
	}
}

// Validate returns the default options when nil and checks all orders are non-negative
func (o *ARIMAOptions) Validate() (*ARIMAOptions, error) {
	if o == nil {
		return NewDefaultARIMAOptions(), nil
	}
	if o.MaxP < 0 || o.MaxD < 0 || o.MaxQ < 0 {
		return nil, fmt.Errorf("max order (%d,%d,%d) must be non-negative, %w", o.MaxP, o.MaxD, o.MaxQ, ErrInvalidOptions)
	}
	if o.Order != nil && (o.Order.P < 0 || o.Order.D < 0 || o.Order.Q < 0) {
		return nil, fmt.Errorf("order %s must be non-negative, %w", o.Order, ErrInvalidOptions)
	}
	return o, nil
}

// Candidates returns every order considered by the options in search order
func (o *ARIMAOptions) Candidates() []Order {
	if o.Order != nil {
		return []Order{*o.Order}
	}
	orders := make([]Order, 0, (o.MaxP+1)*(o.MaxD+1)*(o.MaxQ+1))
	for d := 0; d <= o.MaxD; d++ {
		for p := 0; p <= o.MaxP; p++ {
			for q := 0; q <= o.MaxQ; q++ {
				orders = append(orders, Order{P: p, D: d, Q: q})
			}
		}
	}
	return orders
}

// ARIMAParams fully describe a fitted model. The intercept is only estimated when the order
// has no differencing.
type ARIMAParams struct {
	Order     Order     `json:"order"`
	AR        []float64 `json:"ar"`
	MA        []float64 `json:"ma"`
	Intercept float64   `json:"intercept"`
	Variance  float64   `json:"variance"`
	AIC       float64   `json:"aic"`
	NObs      int       `json:"n_obs"`
}

func (p ARIMAParams) numParams() int {
	k := p.Order.P + p.Order.Q + 1
	if p.Order.D == 0 {
		k++
	}
	return k
}

// Candidate is the outcome of fitting a single order during the search
type Candidate struct {
	Order Order   `json:"order"`
	AIC   float64 `json:"aic"`
}

// ARIMA is an autoregressive integrated moving average model fit by least squares on the
// raw series with the order selected by the lowest AIC
type ARIMA struct {
	opt        *ARIMAOptions
	params     ARIMAParams
	candidates []Candidate
	trained    bool
}

func NewARIMA(opt *ARIMAOptions) (*ARIMA, error) {
	opt, err := opt.Validate()
	if err != nil {
		return nil, err
	}
	return &ARIMA{opt: opt}, nil
}

func (a *ARIMA) Kind() Kind {
	return KindARIMA
}

func (a *ARIMA) Trained() bool {
	return a.trained
}

func (a *ARIMA) Scaled() bool {
	return false
}

// Fit evaluates every candidate order on the raw training series and keeps the one with the
// lowest AIC. Ties prefer fewer ARMA terms, then less differencing, then fewer AR terms.
func (a *ARIMA) Fit(data TrainingData) error {
	if a.trained {
		return ErrAlreadyTrained
	}
	if a.opt == nil {
		return ErrNoOptions
	}
	if len(data.Series) == 0 {
		return ErrNoTrainingSeries
	}

	// orders must be predictable from the contexts the model will be given
	maxContext := 0
	if data.Windows != nil {
		maxContext = data.Windows.L
	}

	var best *ARIMAParams
	var candidates []Candidate
	for _, order := range a.opt.Candidates() {
		if maxContext > 0 && order.MinContext() > maxContext {
			slog.Debug("skipping arima order", "order", order.String(), "window_length", maxContext)
			continue
		}
		params, err := fitOrder(data.Series, order)
		if err != nil {
			slog.Debug("skipping arima order", "order", order.String(), "error", err)
			continue
		}
		candidates = append(candidates, Candidate{Order: order, AIC: params.AIC})
		if best == nil || betterFit(params, *best) {
			best = &params
		}
	}
	if best == nil {
		return fmt.Errorf("evaluated %d orders over %d points, %w", len(a.opt.Candidates()), len(data.Series), ErrNoConvergingOrder)
	}

	slog.Debug("selected arima order", "order", best.Order.String(), "aic", best.AIC, "candidates", len(candidates))
	a.params = *best
	a.candidates = candidates
	a.trained = true
	return nil
}

func betterFit(a, b ARIMAParams) bool {
	if diff := a.AIC - b.AIC; math.Abs(diff) > aicTieTol*math.Max(1, math.Abs(b.AIC)) {
		return diff < 0
	}
	if ta, tb := a.Order.P+a.Order.Q, b.Order.P+b.Order.Q; ta != tb {
		return ta < tb
	}
	if a.Order.D != b.Order.D {
		return a.Order.D < b.Order.D
	}
	return a.Order.P < b.Order.P
}

// longAROrder is the order of the preliminary autoregression used to estimate innovations
func longAROrder(p, q, n int) int {
	m := max(2*(p+q), 8)
	return min(m, n/4)
}

// fitOrder estimates a single order with the Hannan-Rissanen procedure. A long autoregression
// provides innovation estimates that become regressors for the moving average terms. The
// conditional sum of squares of the re-filtered residuals yields the likelihood.
func fitOrder(y []float64, order Order) (ARIMAParams, error) {
	w, err := stats.Diff(y, order.D)
	if err != nil {
		return ARIMAParams{}, err
	}
	n := len(w)
	p, q := order.P, order.Q
	withIntercept := order.D == 0

	params := ARIMAParams{
		Order: order,
		AR:    make([]float64, p),
		MA:    make([]float64, q),
	}

	switch {
	case p == 0 && q == 0:
		if withIntercept {
			params.Intercept = stat.Mean(w, nil)
		}
	default:
		innov := make([]float64, n)
		start := p
		if q > 0 {
			m := longAROrder(p, q, n)
			if m < 1 {
				return ARIMAParams{}, fmt.Errorf("%d observations for order %s, %w", n, order, ErrInsufficientObs)
			}
			long, err := regressLags(w, m, 0, nil, 0, true)
			if err != nil {
				return ARIMAParams{}, fmt.Errorf("unable to fit long autoregression of order %d, %w", m, err)
			}
			copy(innov[m:], long.resid)
			start = max(p, m+q)
		}

		reg, err := regressLags(w, p, start, innov, q, withIntercept)
		if err != nil {
			return ARIMAParams{}, fmt.Errorf("unable to regress order %s, %w", order, err)
		}
		slog.Debug("regressed arima order", "order", order.String(), "r2", reg.r2)
		copy(params.AR, reg.coef[:p])
		copy(params.MA, reg.coef[p:])
		params.Intercept = reg.intercept
	}

	nEff := n - p
	if nEff < 1 {
		return ARIMAParams{}, fmt.Errorf("%d observations for order %s, %w", n, order, ErrInsufficientObs)
	}
	resid := filterResiduals(w, params)
	var sse float64
	for _, e := range resid[p:] {
		sse += e * e
	}
	if math.IsNaN(sse) || math.IsInf(sse, 0) {
		return ARIMAParams{}, fmt.Errorf("residuals of order %s, %w", order, ErrDiverged)
	}

	params.Variance = math.Max(sse/float64(nEff), minVariance)
	params.NObs = nEff
	// the likelihood is scaled to the raw series length so orders conditioning on a different
	// number of points remain comparable
	logLik := -0.5 * float64(len(y)) * (math.Log(2*math.Pi*params.Variance) + 1)
	params.AIC = -2*logLik + 2*float64(params.numParams())
	return params, nil
}

// lagRegression holds the coefficients of a lag regression, p lags of the series followed by
// q lags of the innovations, along with the in-sample residuals from the first regressed index
type lagRegression struct {
	coef      []float64
	intercept float64
	resid     []float64
	r2        float64
}

// regressLags regresses w[t] on p lags of w and q lags of innov for t in [start, len(w)).
// A start of zero begins at the first index with all lags available.
func regressLags(w []float64, p, start int, innov []float64, q int, withIntercept bool) (lagRegression, error) {
	n := len(w)
	if start == 0 {
		start = max(p, q)
	}
	if p+q == 0 {
		return lagRegression{}, fmt.Errorf("no lagged regressors, %w", ErrInsufficientObs)
	}
	k := p + q
	if withIntercept {
		k++
	}
	if n-start < k+minDegreesOfFreedom {
		return lagRegression{}, fmt.Errorf("%d rows for %d coefficients, %w", n-start, k, ErrInsufficientObs)
	}

	blocks := []mat_.Lagged{{Series: w, Lags: p}}
	if q > 0 {
		blocks = append(blocks, mat_.Lagged{Series: innov, Lags: q})
	}
	x, err := mat_.NewLagMatrix(start, n, blocks...)
	if err != nil {
		return lagRegression{}, err
	}
	var reg Regressor
	if reg, err = NewOLSRegression(&OLSOptions{FitIntercept: withIntercept}); err != nil {
		return lagRegression{}, err
	}
	observed := append([]float64(nil), w[start:]...)
	target := mat.NewDense(n-start, 1, observed)
	if err := reg.Fit(x, target); err != nil {
		return lagRegression{}, err
	}

	fitted, err := reg.Predict(x)
	if err != nil {
		return lagRegression{}, err
	}
	r2, err := reg.Score(x, target)
	if err != nil {
		return lagRegression{}, err
	}
	return lagRegression{
		coef:      reg.Coef(),
		intercept: reg.Intercept(),
		resid:     floatsunrolled.SubTo(nil, observed, fitted),
		r2:        r2,
	}, nil
}

// filterResiduals computes the one step ahead residuals of the differenced series assuming
// zero residuals before the first p points
func filterResiduals(w []float64, params ARIMAParams) []float64 {
	p, q := len(params.AR), len(params.MA)
	e := make([]float64, len(w))
	for t := p; t < len(w); t++ {
		yhat := params.Intercept
		for i := 1; i <= p; i++ {
			yhat += params.AR[i-1] * w[t-i]
		}
		for j := 1; j <= q && t-j >= 0; j++ {
			yhat += params.MA[j-1] * e[t-j]
		}
		e[t] = w[t] - yhat
	}
	return e
}

func (a *ARIMA) Predict(contexts [][]float64) ([]float64, error) {
	return predictAll(a, contexts)
}

// PredictOne differences the raw context, re-filters its residuals and returns the
// integrated one step ahead value
func (a *ARIMA) PredictOne(context []float64) (float64, error) {
	if !a.trained {
		return 0, ErrUntrainedModel
	}
	if len(context) == 0 {
		return 0, ErrEmptyContext
	}
	order := a.params.Order
	if len(context) < order.MinContext() {
		return 0, fmt.Errorf("%d points for order %s, %w", len(context), order, ErrContextTooShort)
	}

	levels, err := stats.DiffLevels(context, order.D)
	if err != nil {
		return 0, err
	}
	w := levels[order.D]
	e := filterResiduals(w, a.params)

	n := len(w)
	next := a.params.Intercept
	for i := 1; i <= order.P; i++ {
		next += a.params.AR[i-1] * w[n-i]
	}
	for j := 1; j <= order.Q && n-j >= 0; j++ {
		next += a.params.MA[j-1] * e[n-j]
	}
	return stats.Integrate(next, levels, order.D), nil
}

// Params returns a copy of the fitted parameters
func (a *ARIMA) Params() (*ARIMAParams, error) {
	if !a.trained {
		return nil, ErrUntrainedModel
	}
	p := a.params
	p.AR = copyFloats(a.params.AR)
	p.MA = copyFloats(a.params.MA)
	return &p, nil
}

// Candidates returns every order that fit successfully along with its AIC
func (a *ARIMA) Candidates() []Candidate {
	return append([]Candidate(nil), a.candidates...)
}

// NewARIMAFromParams rebuilds a trained model from fitted parameters
func NewARIMAFromParams(p *ARIMAParams) (*ARIMA, error) {
	if p == nil {
		return nil, ErrNoOptions
	}
	if p.Order.P < 0 || p.Order.D < 0 || p.Order.Q < 0 {
		return nil, fmt.Errorf("order %s, %w", p.Order, ErrInvalidOptions)
	}
	if len(p.AR) != p.Order.P || len(p.MA) != p.Order.Q {
		return nil, fmt.Errorf(
			"order %s with %d ar and %d ma coefficients, %w",
			p.Order, len(p.AR), len(p.MA), ErrParamShapeMismatch,
		)
	}
	order := p.Order
	params := *p
	params.AR = copyFloats(p.AR)
	params.MA = copyFloats(p.MA)
	return &ARIMA{
		opt:     &ARIMAOptions{Order: &order},
		params:  params,
		trained: true,
	}, nil
}

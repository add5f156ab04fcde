package stats

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat/distuv"
)

var ErrSingularRegression = errors.New("singular unit root regression")

const (
	adfMinObs       = 10
	adfSignificance = 0.05
	maxCondition    = 1e12
)

// MacKinnon (2010) response surface coefficients for the constant only regression
var adfCritSurface = map[string][4]float64{
	"1%":  {-3.43035, -6.5393, -16.786, -79.433},
	"5%":  {-2.86154, -2.8903, -4.234, -40.04},
	"10%": {-2.56677, -1.5384, -2.809, 0},
}

// MacKinnon (1994) approximate p-value polynomials for the constant only regression
var (
	adfTauMax    = 2.74
	adfTauMin    = -18.83
	adfTauStar   = -1.61
	adfTauSmallP = []float64{2.1659, 1.4412, 0.038269}
	adfTauLargeP = []float64{1.7339, 0.93202, -0.12745, -0.010368}
)

// ADFResult is the outcome of an augmented Dickey-Fuller unit root test. The null hypothesis
// is a unit root, so a small p-value indicates a stationary series.
type ADFResult struct {
	Statistic      float64            `json:"statistic"`
	PValue         float64            `json:"p_value"`
	Lags           int                `json:"lags"`
	NObs           int                `json:"n_obs"`
	CriticalValues map[string]float64 `json:"critical_values"`
	Stationary     bool               `json:"stationary"`
}

// ADF runs the augmented Dickey-Fuller test with a constant. A negative maxLag selects the
// number of lagged differences by AIC up to 12*(n/100)^(1/4).
func ADF(y []float64, maxLag int) (*ADFResult, error) {
	n := len(y)
	if n < adfMinObs {
		return nil, fmt.Errorf("%d points, need at least %d, %w", n, adfMinObs, ErrSeriesTooShort)
	}
	for i, v := range y {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return nil, fmt.Errorf("non-finite value at %d, %w", i, ErrNoData)
		}
	}

	d, err := Diff(y, 1)
	if err != nil {
		return nil, err
	}

	autoLag := maxLag < 0
	if autoLag {
		maxLag = int(math.Ceil(12 * math.Pow(float64(n)/100, 0.25)))
	}
	// leave enough rows for the lagged differences, level and constant
	maxLag = min(maxLag, n/2-2)
	if maxLag < 0 {
		maxLag = 0
	}

	lags := maxLag
	if autoLag {
		bestAIC := math.Inf(1)
		for k := 0; k <= maxLag; k++ {
			fit, err := unitRootRegression(y, d, k, maxLag)
			if err != nil {
				continue
			}
			if fit.aic < bestAIC {
				bestAIC = fit.aic
				lags = k
			}
		}
		if math.IsInf(bestAIC, 1) {
			return nil, fmt.Errorf("no lag up to %d could be fit, %w", maxLag, ErrSingularRegression)
		}
	}

	fit, err := unitRootRegression(y, d, lags, lags)
	if err != nil {
		return nil, err
	}

	crit := make(map[string]float64, len(adfCritSurface))
	nObs := float64(fit.nObs)
	for level, b := range adfCritSurface {
		crit[level] = b[0] + b[1]/nObs + b[2]/(nObs*nObs) + b[3]/(nObs*nObs*nObs)
	}

	pValue := adfPValue(fit.stat)
	return &ADFResult{
		Statistic:      fit.stat,
		PValue:         pValue,
		Lags:           lags,
		NObs:           fit.nObs,
		CriticalValues: crit,
		Stationary:     pValue < adfSignificance,
	}, nil
}

type unitRootFit struct {
	stat float64
	aic  float64
	nObs int
}

// unitRootRegression regresses d[t] on a constant, y[t] and d[t-1], ..., d[t-k] for t starting
// at start so that fits with different k can share a sample
func unitRootRegression(y, d []float64, k, start int) (unitRootFit, error) {
	rows := len(d) - start
	cols := 2 + k
	if rows <= cols {
		return unitRootFit{}, fmt.Errorf("%d rows for %d regressors, %w", rows, cols, ErrSeriesTooShort)
	}

	x := mat.NewDense(rows, cols, nil)
	target := make([]float64, rows)
	for i := 0; i < rows; i++ {
		t := start + i
		target[i] = d[t]
		x.Set(i, 0, 1)
		x.Set(i, 1, y[t])
		for j := 1; j <= k; j++ {
			x.Set(i, 1+j, d[t-j])
		}
	}

	var xtx mat.SymDense
	xtx.SymOuterK(1, x.T())
	var chol mat.Cholesky
	if ok := chol.Factorize(&xtx); !ok || chol.Cond() > maxCondition {
		return unitRootFit{}, ErrSingularRegression
	}

	var xty, beta mat.VecDense
	xty.MulVec(x.T(), mat.NewVecDense(rows, target))
	if err := chol.SolveVecTo(&beta, &xty); err != nil {
		return unitRootFit{}, fmt.Errorf("unable to solve unit root regression, %w", ErrSingularRegression)
	}
	var inv mat.SymDense
	if err := chol.InverseTo(&inv); err != nil {
		return unitRootFit{}, fmt.Errorf("unable to invert unit root regression, %w", ErrSingularRegression)
	}

	var fitted mat.VecDense
	fitted.MulVec(x, &beta)
	resid := make([]float64, rows)
	floats.SubTo(resid, target, fitted.RawVector().Data)
	sse := floats.Dot(resid, resid)

	se := math.Sqrt(sse / float64(rows-cols) * inv.At(1, 1))
	if se == 0 || math.IsNaN(se) || math.IsInf(se, 0) {
		return unitRootFit{}, fmt.Errorf("zero residual variance, %w", ErrSingularRegression)
	}

	nf := float64(rows)
	logLik := -0.5 * nf * (math.Log(2*math.Pi*sse/nf) + 1)
	return unitRootFit{
		stat: beta.AtVec(1) / se,
		aic:  -2*logLik + 2*float64(cols),
		nObs: rows,
	}, nil
}

func adfPValue(stat float64) float64 {
	switch {
	case stat > adfTauMax:
		return 1
	case stat < adfTauMin:
		return 0
	}
	coef := adfTauLargeP
	if stat <= adfTauStar {
		coef = adfTauSmallP
	}
	z, pow := 0.0, 1.0
	for _, c := range coef {
		z += c * pow
		pow *= stat
	}
	return distuv.UnitNormal.CDF(z)
}

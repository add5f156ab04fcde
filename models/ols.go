package models

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

// designs worse conditioned than this produce meaningless coefficients
const maxConditionNumber = 1e12

type OLSOptions struct {
	FitIntercept bool
}

func NewDefaultOLSOptions() *OLSOptions {
	return &OLSOptions{
		FitIntercept: true,
	}
}

// Validate returns the default options when nil
func (o *OLSOptions) Validate() (*OLSOptions, error) {
	if o == nil {
		return NewDefaultOLSOptions(), nil
	}
	return o, nil
}

// OLSRegression computes ordinary least squares using QR factorization
type OLSRegression struct {
	opt       *OLSOptions
	coef      []float64
	intercept float64
}

func NewOLSRegression(opt *OLSOptions) (*OLSRegression, error) {
	opt, err := opt.Validate()
	if err != nil {
		return nil, err
	}
	return &OLSRegression{
		opt: opt,
	}, nil
}

func withOnes(x mat.Matrix) mat.Matrix {
	m, _ := x.Dims()
	ones := make([]float64, m)
	floats.AddConst(1.0, ones)
	onesMx := mat.NewDense(1, m, ones)

	var xWithOnes mat.Dense
	xWithOnes.Stack(onesMx, x.T())
	return xWithOnes.T()
}

func (o *OLSRegression) Fit(x, y mat.Matrix) error {
	if o.opt == nil {
		return ErrNoOptions
	}
	if x == nil {
		return ErrNoTrainingMatrix
	}
	if y == nil {
		return ErrNoTargetMatrix
	}
	m, _ := x.Dims()

	ym, _ := y.Dims()
	if ym != m {
		return fmt.Errorf("training data has %d rows and target has %d row, %w", m, ym, ErrTargetLenMismatch)
	}

	if o.opt.FitIntercept {
		x = withOnes(x)
	}
	_, n := x.Dims()
	if m < n {
		return fmt.Errorf("%d observations for %d features, %w", m, n, ErrUnderdetermined)
	}

	qr := new(mat.QR)
	qr.Factorize(x)
	if cond := qr.Cond(); cond > maxConditionNumber {
		return fmt.Errorf("condition number %.3g, %w", cond, ErrSingularDesign)
	}

	var c mat.Dense
	if err := qr.SolveTo(&c, false, y); err != nil {
		var cond mat.Condition
		if errors.As(err, &cond) {
			return fmt.Errorf("condition number %.3g, %w", float64(cond), ErrSingularDesign)
		}
		return fmt.Errorf("unable to solve least squares, %w", err)
	}

	coef := mat.Col(nil, 0, &c)
	for i, v := range coef {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("non-finite coefficient at %d, %w", i, ErrSingularDesign)
		}
	}

	if o.opt.FitIntercept {
		o.intercept = coef[0]
		o.coef = coef[1:]
	} else {
		o.intercept = 0
		o.coef = coef
	}

	return nil
}

func (o *OLSRegression) Predict(x mat.Matrix) ([]float64, error) {
	if o.opt == nil {
		return nil, ErrNoOptions
	}
	if x == nil {
		return nil, ErrNoDesignMatrix
	}
	if o.coef == nil {
		return nil, ErrUntrainedModel
	}

	coef := o.coef
	if o.opt.FitIntercept {
		coef = append([]float64{o.intercept}, o.coef...)
		x = withOnes(x)
	}
	n := len(coef)

	xT := x.T()
	xn, _ := xT.Dims()
	if xn != n {
		return nil, fmt.Errorf("got %d features in design matrix, but expected %d, %w", xn, n, ErrFeatureLenMismatch)
	}
	coefMx := mat.NewDense(1, n, coef)

	var res mat.Dense
	res.Mul(coefMx, xT)
	return res.RawRowView(0), nil
}

// Score returns the coefficient of determination of the predictions
func (o *OLSRegression) Score(x, y mat.Matrix) (float64, error) {
	if o.opt == nil {
		return 0.0, ErrNoOptions
	}
	if x == nil {
		return 0.0, ErrNoDesignMatrix
	}
	if y == nil {
		return 0.0, ErrNoTargetMatrix
	}

	m, _ := x.Dims()

	ym, _ := y.Dims()
	if m != ym {
		return 0.0, fmt.Errorf("design matrix has %d rows and target has %d rows, %w", m, ym, ErrTargetLenMismatch)
	}

	res, err := o.Predict(x)
	if err != nil {
		return 0.0, err
	}

	ySlice := mat.Col(nil, 0, y)

	return stat.RSquaredFrom(res, ySlice, nil), nil
}

func (o *OLSRegression) Intercept() float64 {
	return o.intercept
}

func (o *OLSRegression) Coef() []float64 {
	c := make([]float64, len(o.coef))
	copy(c, o.coef)
	return c
}

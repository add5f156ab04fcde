// Package models contains the forecasting backends used by the forecaster along with the
// linear regression solvers they are built on. Every backend predicts the next value of a
// series from a trailing context of observations.
package models

import (
	"github.com/aouyang1/go-sensorcast/window"
	"gonum.org/v1/gonum/mat"
)

// Kind identifies a forecasting backend
type Kind string

const (
	KindRecurrent Kind = "recurrent"
	KindARIMA     Kind = "arima"
)

// TrainingData carries both representations of the training split. The recurrent backend
// trains on the scaled windows while the autoregressive backend trains on the raw series.
type TrainingData struct {
	Series  []float64
	Windows *window.Set
}

// Model is a one step ahead forecasting backend. A model is trained exactly once and is then
// used read-only for predictions.
type Model interface {
	Kind() Kind
	Fit(data TrainingData) error
	// Predict returns one prediction per context
	Predict(contexts [][]float64) ([]float64, error)
	PredictOne(context []float64) (float64, error)
	Trained() bool
	// Scaled reports whether contexts and predictions are in scaled space
	Scaled() bool
}

// Regressor is a linear regression solver
type Regressor interface {
	Fit(x, y mat.Matrix) error
	Predict(x mat.Matrix) ([]float64, error)
	Score(x, y mat.Matrix) (float64, error)
	Intercept() float64
	Coef() []float64
}

func predictAll(m Model, contexts [][]float64) ([]float64, error) {
	res := make([]float64, 0, len(contexts))
	for _, c := range contexts {
		yhat, err := m.PredictOne(c)
		if err != nil {
			return nil, err
		}
		res = append(res, yhat)
	}
	return res, nil
}

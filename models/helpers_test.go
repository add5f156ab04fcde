package models

import (
	"math/rand/v2"
	"testing"

	mat_ "github.com/aouyang1/go-sensorcast/mat"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

func testRegressor(t *testing.T, model Regressor, x, y mat.Matrix, intercept float64, coef []float64, tol float64) {
	err := model.Fit(x, y)
	require.Nil(t, err)

	assert.InDelta(t, intercept, model.Intercept(), tol)

	c := model.Coef()
	assert.InDeltaSlice(t, coef, c, tol)

	r2, err := model.Score(x, y)
	require.Nil(t, err)
	assert.InDelta(t, 1.0, r2, tol)
}

func generateBenchData(nObs, nFeat int) (mat.Matrix, mat.Matrix, error) {
	rng := rand.New(rand.NewPCG(1, 2))
	data := make([][]float64, nObs)
	for i := 0; i < nObs; i++ {
		data[i] = make([]float64, nFeat)
		for j := 0; j < nFeat; j++ {
			val := rng.NormFloat64()
			if j == 0 {
				val = 1.0
			}
			data[i][j] = val
		}
	}

	data2 := make([]float64, 0, nObs)
	for i := 0; i < cap(data2); i++ {
		data2 = append(data2, float64(i))
	}

	x, err := mat_.NewDenseFromArray(data)
	if err != nil {
		return nil, nil, err
	}

	y := mat.NewDense(nObs, 1, data2)
	return x, y, nil
}

// ar1Series returns a deterministic AR(1) series with gaussian innovations
func ar1Series(n int, phi, c float64, seed uint64) []float64 {
	rng := rand.New(rand.NewPCG(seed, seed))
	y := make([]float64, n)
	prev := c / (1 - phi)
	for i := range y {
		prev = c + phi*prev + rng.NormFloat64()
		y[i] = prev
	}
	return y
}

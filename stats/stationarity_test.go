package stats

import (
	"math"
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// arSeries returns y[t] = drift + phi*y[t-1] + e[t] with standard normal innovations
func arSeries(n int, phi, drift float64, seed uint64) []float64 {
	rng := rand.New(rand.NewPCG(seed, seed))
	y := make([]float64, n)
	var prev float64
	for i := range y {
		prev = drift + phi*prev + rng.NormFloat64()
		y[i] = prev
	}
	return y
}

func TestADF(t *testing.T) {
	testData := map[string]struct {
		y          []float64
		maxLag     int
		stationary bool
	}{
		"mean reverting": {
			y:          arSeries(400, 0.3, 5, 1),
			maxLag:     -1,
			stationary: true,
		},
		"mean reverting fixed lag": {
			y:          arSeries(400, 0.5, 0, 2),
			maxLag:     2,
			stationary: true,
		},
		"random walk with drift": {
			y:          arSeries(400, 1, 1, 3),
			maxLag:     -1,
			stationary: false,
		},
	}

	for name, td := range testData {
		t.Run(name, func(t *testing.T) {
			res, err := ADF(td.y, td.maxLag)
			require.NoError(t, err)

			assert.Equal(t, td.stationary, res.Stationary)
			if td.stationary {
				assert.Less(t, res.Statistic, res.CriticalValues["1%"])
				assert.Less(t, res.PValue, 0.01)
			} else {
				assert.Greater(t, res.Statistic, res.CriticalValues["5%"])
				assert.Greater(t, res.PValue, 0.05)
			}
			if td.maxLag >= 0 {
				assert.Equal(t, td.maxLag, res.Lags)
			}
			assert.Equal(t, len(td.y)-1-res.Lags, res.NObs)

			require.Len(t, res.CriticalValues, 3)
			assert.Less(t, res.CriticalValues["1%"], res.CriticalValues["5%"])
			assert.Less(t, res.CriticalValues["5%"], res.CriticalValues["10%"])
			assert.InDelta(t, -2.87, res.CriticalValues["5%"], 0.01)
		})
	}
}

func TestADFPValue(t *testing.T) {
	testData := map[string]struct {
		stat     float64
		expected float64
		tol      float64
	}{
		"beyond upper bound": {stat: 3, expected: 1},
		"beyond lower bound": {stat: -20, expected: 0},
		"five percent":       {stat: -2.86, expected: 0.05, tol: 0.005},
		"one percent":        {stat: -3.43, expected: 0.01, tol: 0.002},
		"ten percent":        {stat: -2.57, expected: 0.10, tol: 0.01},
	}

	for name, td := range testData {
		t.Run(name, func(t *testing.T) {
			assert.InDelta(t, td.expected, adfPValue(td.stat), td.tol)
		})
	}
}

func TestADFErrors(t *testing.T) {
	testData := map[string]struct {
		y   []float64
		err error
	}{
		"too short": {
			y:   []float64{1, 2, 3},
			err: ErrSeriesTooShort,
		},
		"non-finite": {
			y:   []float64{1, 2, 3, 4, 5, math.NaN(), 7, 8, 9, 10, 11},
			err: ErrNoData,
		},
		"constant": {
			y:   []float64{4, 4, 4, 4, 4, 4, 4, 4, 4, 4, 4, 4, 4, 4, 4, 4, 4, 4, 4, 4},
			err: ErrSingularRegression,
		},
	}

	for name, td := range testData {
		t.Run(name, func(t *testing.T) {
			_, err := ADF(td.y, -1)
			assert.ErrorIs(t, err, td.err)
		})
	}
}

package scaler

import (
	"math"
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFit(t *testing.T) {
	testData := map[string]struct {
		y        []float64
		expected State
		err      error
	}{
		"no data": {
			err: ErrNoData,
		},
		"nan": {
			y:   []float64{1, math.NaN()},
			err: ErrNonFinite,
		},
		"inf": {
			y:   []float64{math.Inf(-1), 1},
			err: ErrNonFinite,
		},
		"valid": {
			y:        []float64{3, -2, 7.5, 0},
			expected: State{Min: -2, Max: 7.5},
		},
	}

	for name, td := range testData {
		t.Run(name, func(t *testing.T) {
			s, err := Fit(td.y)
			if td.err != nil {
				assert.ErrorIs(t, err, td.err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, td.expected, s.State())
			assert.NoError(t, s.Validate())
		})
	}
}

func TestTransform(t *testing.T) {
	s, err := Fit([]float64{10, 20, 30})
	require.NoError(t, err)

	assert.InDeltaSlice(t, []float64{0, 0.5, 1, -0.5, 1.5}, s.TransformSlice([]float64{10, 20, 30, 5, 35}), 1e-12)
	assert.InDeltaSlice(t, []float64{10, 20, 30, 5, 35}, s.InverseTransformSlice([]float64{0, 0.5, 1, -0.5, 1.5}), 1e-12)
}

func TestRoundTrip(t *testing.T) {
	rng := rand.New(rand.NewPCG(7, 11))
	s, err := Fit([]float64{-40.3, 12.1, 1013.25, 0.5})
	require.NoError(t, err)

	for i := 0; i < 1000; i++ {
		x := (rng.Float64() - 0.5) * 1e4
		res := s.InverseTransform(s.Transform(x))
		tol := 1e-9 * math.Max(math.Abs(x), 1)
		assert.InDelta(t, x, res, tol)
	}
}

func TestDegenerate(t *testing.T) {
	s, err := Fit([]float64{4.2, 4.2, 4.2})
	require.NoError(t, err)

	assert.True(t, s.Degenerate())
	assert.ErrorIs(t, s.Validate(), ErrDegenerateRange)

	scaled := s.TransformSlice([]float64{4.2, 100, -3})
	assert.Equal(t, []float64{0, 0, 0}, scaled)
	for _, v := range scaled {
		assert.False(t, math.IsNaN(v))
	}
	assert.Equal(t, 4.2, s.InverseTransform(0.7))
}

func TestFromState(t *testing.T) {
	s, err := FromState(State{Min: 1, Max: 3})
	require.NoError(t, err)
	assert.Equal(t, 0.5, s.Transform(2))

	testData := map[string]struct {
		state State
		err   error
	}{
		"max below min": {state: State{Min: 3, Max: 1}, err: ErrInvalidState},
		"nan min":       {state: State{Min: math.NaN(), Max: 1}, err: ErrNonFinite},
		"inf max":       {state: State{Min: 0, Max: math.Inf(1)}, err: ErrNonFinite},
	}

	for name, td := range testData {
		t.Run(name, func(t *testing.T) {
			_, err := FromState(td.state)
			assert.ErrorIs(t, err, td.err)
			if td.err == ErrInvalidState {
				assert.NotErrorIs(t, err, ErrNonFinite)
			}
		})
	}
}

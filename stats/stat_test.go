package stats

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDiff(t *testing.T) {
	testData := map[string]struct {
		y        []float64
		d        int
		expected []float64
		err      error
	}{
		"order zero copies": {
			y:        []float64{1, 2, 4},
			d:        0,
			expected: []float64{1, 2, 4},
		},
		"first difference": {
			y:        []float64{1, 2, 4, 7},
			d:        1,
			expected: []float64{1, 2, 3},
		},
		"second difference": {
			y:        []float64{1, 2, 4, 7},
			d:        2,
			expected: []float64{1, 1},
		},
		"negative order": {
			y:   []float64{1, 2},
			d:   -1,
			err: ErrNegativeOrder,
		},
		"too short": {
			y:   []float64{1, 2},
			d:   2,
			err: ErrSeriesTooShort,
		},
	}

	for name, td := range testData {
		t.Run(name, func(t *testing.T) {
			res, err := Diff(td.y, td.d)
			if td.err != nil {
				assert.ErrorIs(t, err, td.err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, td.expected, res)
		})
	}
}

func TestIntegrate(t *testing.T) {
	y := []float64{1, 2, 4, 7, 11}
	for d := 0; d <= 3; d++ {
		levels, err := DiffLevels(y[:4], d)
		require.NoError(t, err)

		// the true next value of every level is its continuation of y
		full, err := DiffLevels(y, d)
		require.NoError(t, err)
		next := full[d][len(full[d])-1]

		assert.InDelta(t, 11.0, Integrate(next, levels, d), 1e-12, "order %d", d)
	}
}

func TestSummarize(t *testing.T) {
	_, err := Summarize(nil)
	assert.ErrorIs(t, err, ErrNoData)

	y := make([]float64, 0, 101)
	for i := 0; i < 100; i++ {
		y = append(y, float64(i%10))
	}
	y = append(y, 1000)

	s, err := Summarize(y)
	require.NoError(t, err)
	assert.Equal(t, 101, s.N)
	assert.Equal(t, 0.0, s.Min)
	assert.Equal(t, 1000.0, s.Max)
	assert.Equal(t, 1, s.Outliers)
}

func TestDetectOutliers(t *testing.T) {
	testData := map[string]struct {
		y        []float64
		expected []int
	}{
		"empty": {},
		"constant": {
			y: []float64{2, 2, 2, 2},
		},
		"single spike": {
			y:        []float64{1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 100, 2, 3},
			expected: []int{10},
		},
	}

	for name, td := range testData {
		t.Run(name, func(t *testing.T) {
			assert.Equal(t, td.expected, DetectOutliers(td.y, 0.1, 0.9, 1.5))
		})
	}
}

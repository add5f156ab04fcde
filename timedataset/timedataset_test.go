package timedataset

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var epoch = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

// hours returns hourly timestamps from epoch at the given offsets
func hours(offsets ...int) []time.Time {
	ts := make([]time.Time, len(offsets))
	for i, h := range offsets {
		ts[i] = epoch.Add(time.Duration(h) * time.Hour)
	}
	return ts
}

func TestNewUnivariateDataset(t *testing.T) {
	testData := map[string]struct {
		t        []time.Time
		y        []float64
		expected *TimeDataset
		err      error
	}{
		"empty": {
			err: ErrNoTrainingData,
		},
		"values without timestamps": {
			y:   []float64{21.5},
			err: ErrDatasetLenMismatch,
		},
		"decreasing time": {
			t:   hours(1, 0),
			y:   []float64{21.5, 21.7},
			err: ErrNonMontonic,
		},
		"repeated time": {
			t:   hours(0, 1, 1),
			y:   []float64{21.5, 21.7, 21.9},
			err: ErrNonMontonic,
		},
		"hourly readings": {
			t:        hours(0, 1, 2),
			y:        []float64{21.5, 21.7, 21.9},
			expected: &TimeDataset{T: hours(0, 1, 2), Y: []float64{21.5, 21.7, 21.9}},
		},
	}

	for name, td := range testData {
		t.Run(name, func(t *testing.T) {
			ds, err := NewUnivariateDataset(td.t, td.y)
			if td.err != nil {
				assert.ErrorIs(t, err, td.err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, td.expected, ds)
		})
	}
}

func TestCopy(t *testing.T) {
	ds, err := NewUnivariateDataset(hours(0, 1), []float64{40.1, 40.3})
	require.NoError(t, err)

	cp := ds.Copy()
	require.Equal(t, ds, cp)

	ds.Y[0] = 55
	ds.T[1] = epoch.Add(3 * time.Hour)
	assert.Equal(t, []float64{40.1, 40.3}, cp.Y)
	assert.Equal(t, hours(0, 1), cp.T)
}

func TestValidate(t *testing.T) {
	testData := map[string]struct {
		td  *TimeDataset
		err error
	}{
		"nil":             {err: ErrNoTrainingData},
		"fewer times":     {td: &TimeDataset{T: hours(0, 1), Y: []float64{1, 2, 3}}, err: ErrDatasetLenMismatch},
		"reverse ordered": {td: &TimeDataset{T: hours(2, 1, 0), Y: []float64{1, 2, 3}}, err: ErrNonMontonic},
		"valid":           {td: &TimeDataset{T: hours(0, 1, 2), Y: []float64{1, 2, 3}}},
	}

	for name, td := range testData {
		t.Run(name, func(t *testing.T) {
			err := td.td.Validate()
			if td.err != nil {
				assert.ErrorIs(t, err, td.err)
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestSplit(t *testing.T) {
	tSeries := GenerateTFrom(epoch, 10, time.Hour)
	ds, err := NewUnivariateDataset(tSeries, []float64{0, 1, 2, 3, 4, 5, 6, 7, 8, 9})
	require.NoError(t, err)

	train, test, err := ds.Split(0.8)
	require.NoError(t, err)
	assert.Equal(t, []float64{0, 1, 2, 3, 4, 5, 6, 7}, train.Y)
	assert.Equal(t, []float64{8, 9}, test.Y)
	assert.Equal(t, tSeries[:8], train.T)
	assert.Equal(t, tSeries[8:], test.T)

	// splits do not share memory with the source
	train.Y[0] = 100
	assert.Equal(t, 0.0, ds.Y[0])

	_, _, err = ds.Split(1.0)
	assert.ErrorIs(t, err, ErrInvalidSplitRatio)

	_, _, err = (&TimeDataset{}).Split(0.5)
	assert.ErrorIs(t, err, ErrNoTrainingData)
}

func TestTail(t *testing.T) {
	ds := &TimeDataset{Y: []float64{1, 2, 3, 4}}
	assert.Equal(t, []float64{3, 4}, ds.Tail(2))
	assert.Equal(t, []float64{1, 2, 3, 4}, ds.Tail(10))

	var nilDs *TimeDataset
	assert.Nil(t, nilDs.Tail(2))
}

package store

import (
	"context"
	"math/rand/v2"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	forecaster "github.com/aouyang1/go-sensorcast"
	"github.com/aouyang1/go-sensorcast/models"
	"github.com/aouyang1/go-sensorcast/timedataset"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupStore(t *testing.T, ttl time.Duration) (*Redis, *miniredis.Miniredis) {
	t.Helper()
	s := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: s.Addr()})
	t.Cleanup(func() { client.Close() })
	return NewRedis(client, ttl), s
}

func trainedForecaster(t *testing.T) *forecaster.Forecaster {
	t.Helper()
	n := 120
	rng := rand.New(rand.NewPCG(3, 3))
	ts := timedataset.GenerateTFrom(time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC), n, time.Hour)
	y := timedataset.GenerateConstY(n, 40).Add(timedataset.GenerateAR(n, []float64{0.6}, 1.0, rng))
	td, err := timedataset.NewUnivariateDataset(ts, y)
	require.NoError(t, err)

	opt := forecaster.NewDefaultOptions()
	opt.Backend = models.KindARIMA
	opt.WindowLength = 8
	opt.Horizon = 6
	opt.ARIMAOptions = &models.ARIMAOptions{Order: &models.Order{P: 1}}

	f, err := forecaster.New(opt)
	require.NoError(t, err)
	_, err = f.TrainAndEvaluate(td)
	require.NoError(t, err)
	return f
}

func TestRedisRoundTrip(t *testing.T) {
	ctx := context.Background()
	st, s := setupStore(t, time.Hour)
	f := trainedForecaster(t)

	report := f.Report()
	require.NoError(t, st.SaveReport(ctx, "boiler-1", report))

	future, err := f.Forecast(0)
	require.NoError(t, err)
	require.NoError(t, st.SaveFuture(ctx, "boiler-1", future))

	model, err := f.Model()
	require.NoError(t, err)
	require.NoError(t, st.SaveModel(ctx, "boiler-1", model))

	assert.True(t, s.Exists("sensorcast:boiler-1:report"))
	assert.Equal(t, time.Hour, s.TTL("sensorcast:boiler-1:model"))

	gotReport, err := st.LoadReport(ctx, "boiler-1")
	require.NoError(t, err)
	assert.Equal(t, report.SplitIndex, gotReport.SplitIndex)
	assert.Equal(t, report.Test.Len(), gotReport.Test.Len())
	assert.InDelta(t, report.TestScores.MSE, gotReport.TestScores.MSE, 1e-12)

	gotFuture, err := st.LoadFuture(ctx, "boiler-1")
	require.NoError(t, err)
	assert.Equal(t, future.Predicted, gotFuture.Predicted)
	require.Len(t, gotFuture.Timestamps, len(future.Timestamps))
	for i := range future.Timestamps {
		assert.True(t, future.Timestamps[i].Equal(gotFuture.Timestamps[i]))
	}

	gotModel, err := st.LoadModel(ctx, "boiler-1")
	require.NoError(t, err)
	reloaded, err := forecaster.NewFromModel(gotModel)
	require.NoError(t, err)
	reloadedFuture, err := reloaded.Forecast(0)
	require.NoError(t, err)
	assert.InDeltaSlice(t, future.Predicted, reloadedFuture.Predicted, 1e-9)
}

func TestRedisNotFound(t *testing.T) {
	ctx := context.Background()
	st, _ := setupStore(t, 0)

	_, err := st.LoadReport(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = st.LoadFuture(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = st.LoadModel(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)

	assert.ErrorIs(t, st.SaveReport(ctx, "", &forecaster.Report{}), ErrEmptySeriesID)
	_, err = st.LoadReport(ctx, "")
	assert.ErrorIs(t, err, ErrEmptySeriesID)
}

func TestRedisExpiry(t *testing.T) {
	ctx := context.Background()
	st, s := setupStore(t, time.Minute)

	future := &forecaster.Future{
		Timestamps: []time.Time{time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)},
		Predicted:  []float64{1.5},
	}
	require.NoError(t, st.SaveFuture(ctx, "tank", future))
	_, err := st.LoadFuture(ctx, "tank")
	require.NoError(t, err)

	s.FastForward(2 * time.Minute)
	_, err = st.LoadFuture(ctx, "tank")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRedisDelete(t *testing.T) {
	ctx := context.Background()
	st, s := setupStore(t, 0)

	require.NoError(t, st.SaveReport(ctx, "pump", &forecaster.Report{SplitIndex: 3}))
	require.NoError(t, st.SaveFuture(ctx, "pump", &forecaster.Future{}))
	assert.Equal(t, time.Duration(0), s.TTL("sensorcast:pump:report"))

	require.NoError(t, st.Delete(ctx, "pump"))
	assert.False(t, s.Exists("sensorcast:pump:report"))
	assert.False(t, s.Exists("sensorcast:pump:future"))
}

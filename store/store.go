// Package store persists forecaster reports, forecasts and models in redis so downstream
// consumers can read the latest results per series.
package store

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	forecaster "github.com/aouyang1/go-sensorcast"
	"github.com/goccy/go-json"
	"github.com/redis/go-redis/v9"
)

const keyPrefix = "sensorcast"

var (
	ErrNotFound      = errors.New("no stored value for series")
	ErrEmptySeriesID = errors.New("empty series id")
)

type kind string

const (
	kindReport kind = "report"
	kindFuture kind = "future"
	kindModel  kind = "model"
)

// Redis stores results under sensorcast:<series>:<kind> keys. A zero ttl keeps keys
// until they are overwritten.
type Redis struct {
	client redis.Cmdable
	ttl    time.Duration
}

func NewRedis(client redis.Cmdable, ttl time.Duration) *Redis {
	return &Redis{client: client, ttl: ttl}
}

// Key returns the redis key holding the given kind of value for a series
func Key(series, k string) string {
	return fmt.Sprintf("%s:%s:%s", keyPrefix, series, k)
}

func (r *Redis) set(ctx context.Context, series string, k kind, v any) error {
	if series == "" {
		return ErrEmptySeriesID
	}
	payload, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("unable to marshal %s for %s, %w", k, series, err)
	}
	key := Key(series, string(k))
	if err := r.client.Set(ctx, key, payload, r.ttl).Err(); err != nil {
		return fmt.Errorf("unable to store %s, %w", key, err)
	}
	slog.Debug("stored forecaster result", "key", key, "bytes", len(payload))
	return nil
}

func (r *Redis) get(ctx context.Context, series string, k kind, v any) error {
	if series == "" {
		return ErrEmptySeriesID
	}
	key := Key(series, string(k))
	payload, err := r.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return fmt.Errorf("%s, %w", key, ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("unable to load %s, %w", key, err)
	}
	if err := json.Unmarshal(payload, v); err != nil {
		return fmt.Errorf("unable to unmarshal %s, %w", key, err)
	}
	return nil
}

func (r *Redis) SaveReport(ctx context.Context, series string, report *forecaster.Report) error {
	return r.set(ctx, series, kindReport, report)
}

func (r *Redis) LoadReport(ctx context.Context, series string) (*forecaster.Report, error) {
	var report forecaster.Report
	if err := r.get(ctx, series, kindReport, &report); err != nil {
		return nil, err
	}
	return &report, nil
}

func (r *Redis) SaveFuture(ctx context.Context, series string, future *forecaster.Future) error {
	return r.set(ctx, series, kindFuture, future)
}

func (r *Redis) LoadFuture(ctx context.Context, series string) (*forecaster.Future, error) {
	var future forecaster.Future
	if err := r.get(ctx, series, kindFuture, &future); err != nil {
		return nil, err
	}
	return &future, nil
}

func (r *Redis) SaveModel(ctx context.Context, series string, model forecaster.Model) error {
	return r.set(ctx, series, kindModel, model)
}

func (r *Redis) LoadModel(ctx context.Context, series string) (forecaster.Model, error) {
	var model forecaster.Model
	err := r.get(ctx, series, kindModel, &model)
	return model, err
}

// Delete removes every stored value for a series
func (r *Redis) Delete(ctx context.Context, series string) error {
	if series == "" {
		return ErrEmptySeriesID
	}
	keys := []string{
		Key(series, string(kindReport)),
		Key(series, string(kindFuture)),
		Key(series, string(kindModel)),
	}
	if err := r.client.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("unable to delete %s, %w", series, err)
	}
	return nil
}

// Command sensorcast trains a forecaster per JSON-lines sensor file, evaluates it on the
// held out tail and writes the test results, future predictions, report and model.
package main

import (
	"context"
	"encoding/csv"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"syscall"
	"time"

	forecaster "github.com/aouyang1/go-sensorcast"
	"github.com/aouyang1/go-sensorcast/config"
	"github.com/aouyang1/go-sensorcast/store"
	"github.com/aouyang1/go-sensorcast/timedataset"
	"github.com/goccy/go-json"
	"github.com/pkg/profile"
	"github.com/redis/go-redis/v9"
)

var ErrNoInputs = errors.New("no input files")

const timeLayout = "2006-01-02T15:04:05"

func main() {
	configPath := flag.String("config", "", "path to a sensorcast yaml config")
	profiling := flag.Bool("profile", false, "write a cpu profile to the working directory")
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "usage: %s [flags] <series.jsonl>...\n", os.Args[0])
		flag.PrintDefaults()
	}
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	logger, err := newLogger(cfg, os.Stderr)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	slog.SetDefault(logger)

	if *profiling {
		defer profile.Start(profile.CPUProfile, profile.ProfilePath(".")).Stop()
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var st *store.Redis
	if cfg.Redis.Enabled {
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer client.Close()
		if err := client.Ping(ctx).Err(); err != nil {
			slog.Error("unable to connect to redis", "addr", cfg.Redis.Addr, "error", err)
			os.Exit(1)
		}
		st = store.NewRedis(client, cfg.Redis.TTL)
	}

	if err := run(ctx, cfg, st, flag.Args()); err != nil {
		slog.Error("sensorcast failed", "error", err)
		os.Exit(1)
	}
}

func newLogger(cfg *config.Config, w io.Writer) (*slog.Logger, error) {
	level, err := cfg.Level()
	if err != nil {
		return nil, err
	}
	return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level})), nil
}

// run forecasts every input file with at most cfg.Parallelism series in flight. Each series
// gets its own Forecaster.
func run(ctx context.Context, cfg *config.Config, st *store.Redis, paths []string) error {
	if len(paths) == 0 {
		return ErrNoInputs
	}
	if err := os.MkdirAll(cfg.OutputDir, 0o755); err != nil {
		return fmt.Errorf("unable to create output directory, %w", err)
	}

	sem := make(chan struct{}, cfg.Parallelism)
	errs := make([]error, len(paths))
	var wg sync.WaitGroup
	for i, path := range paths {
		wg.Add(1)
		go func() {
			defer wg.Done()
			select {
			case sem <- struct{}{}:
			case <-ctx.Done():
				errs[i] = ctx.Err()
				return
			}
			defer func() { <-sem }()

			name := seriesName(path)
			start := time.Now()
			if err := runSeries(ctx, cfg, st, name, path); err != nil {
				errs[i] = fmt.Errorf("%s, %w", name, err)
				return
			}
			slog.Info("forecasted series", "series", name, "elapsed", time.Since(start))
		}()
	}
	wg.Wait()
	return errors.Join(errs...)
}

func seriesName(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

func runSeries(ctx context.Context, cfg *config.Config, st *store.Redis, name, path string) error {
	td, err := readSeries(path, cfg.Resample)
	if err != nil {
		return err
	}

	f, err := forecaster.New(&cfg.Forecaster)
	if err != nil {
		return fmt.Errorf("unable to create forecaster, %w", err)
	}
	report, err := f.TrainAndEvaluate(td)
	if err != nil {
		return fmt.Errorf("unable to train forecaster, %w", err)
	}
	future, err := f.Forecast(cfg.Forecaster.Horizon)
	if err != nil {
		return fmt.Errorf("unable to forecast, %w", err)
	}
	model, err := f.Model()
	if err != nil {
		return fmt.Errorf("unable to export model, %w", err)
	}
	slog.Debug("evaluated series", "series", name, "split_index", report.SplitIndex,
		"test_mse", report.TestScores.MSE, "test_mae", report.TestScores.MAE)

	out := func(suffix string) string {
		return filepath.Join(cfg.OutputDir, name+suffix)
	}
	if err := writeEvaluationCSV(out("_test_results.csv"), name, report.Test); err != nil {
		return err
	}
	if err := writeFutureCSV(out("_future_predictions.csv"), name, future); err != nil {
		return err
	}
	if err := writeJSON(out("_report.json"), report); err != nil {
		return err
	}
	if err := writeJSON(out("_model.json"), model); err != nil {
		return err
	}
	if cfg.Plot {
		if err := writePlot(out(".html"), f, future); err != nil {
			return err
		}
	}

	if st == nil {
		return nil
	}
	if err := st.SaveReport(ctx, name, report); err != nil {
		return err
	}
	if err := st.SaveFuture(ctx, name, future); err != nil {
		return err
	}
	return st.SaveModel(ctx, name, model)
}

func readSeries(path string, freq time.Duration) (*timedataset.TimeDataset, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("unable to open series, %w", err)
	}
	defer file.Close()

	records, skipped, err := timedataset.ReadJSONLines(file)
	if err != nil {
		return nil, err
	}
	if skipped > 0 {
		slog.Warn("skipped invalid json lines", "path", path, "skipped", skipped)
	}
	return timedataset.Normalize(records, freq)
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func writeCSV(path string, header []string, rows [][]string) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("unable to create %s, %w", path, err)
	}
	defer file.Close()

	w := csv.NewWriter(file)
	if err := w.Write(header); err != nil {
		return fmt.Errorf("unable to write %s, %w", path, err)
	}
	if err := w.WriteAll(rows); err != nil {
		return fmt.Errorf("unable to write %s, %w", path, err)
	}
	return file.Close()
}

// columns are suffixed with the series name so results from several series can be joined
// on timestamp
func writeEvaluationCSV(path, name string, eval forecaster.Evaluation) error {
	rows := make([][]string, eval.Len())
	for i := range rows {
		rows[i] = []string{
			eval.Timestamps[i].Format(timeLayout),
			formatFloat(eval.Actual[i]),
			formatFloat(eval.Predicted[i]),
		}
	}
	return writeCSV(path, []string{"timestamp", "actual_" + name, "predicted_" + name}, rows)
}

func writeFutureCSV(path, name string, future *forecaster.Future) error {
	rows := make([][]string, len(future.Timestamps))
	for i := range rows {
		rows[i] = []string{
			future.Timestamps[i].Format(timeLayout),
			formatFloat(future.Predicted[i]),
		}
	}
	return writeCSV(path, []string{"timestamp", "predicted_" + name}, rows)
}

func writeJSON(path string, v any) error {
	payload, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("unable to marshal %s, %w", path, err)
	}
	if err := os.WriteFile(path, payload, 0o644); err != nil {
		return fmt.Errorf("unable to write %s, %w", path, err)
	}
	return nil
}

func writePlot(path string, f *forecaster.Forecaster, future *forecaster.Future) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("unable to create %s, %w", path, err)
	}
	defer file.Close()

	if err := f.PlotFit(file, future); err != nil {
		return fmt.Errorf("unable to plot %s, %w", path, err)
	}
	return file.Close()
}

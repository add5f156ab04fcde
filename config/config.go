// Package config loads the sensorcast command configuration from a yaml file with
// SENSORCAST_ prefixed environment overrides.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	forecaster "github.com/aouyang1/go-sensorcast"
	"github.com/aouyang1/go-sensorcast/models"
	"github.com/spf13/viper"
)

var ErrInvalidConfig = errors.New("invalid configuration")

const EnvPrefix = "SENSORCAST"

type Config struct {
	LogLevel    string        `mapstructure:"log_level"`
	OutputDir   string        `mapstructure:"output_dir"`
	Plot        bool          `mapstructure:"plot"`
	Parallelism int           `mapstructure:"parallelism"`
	Resample    time.Duration `mapstructure:"resample"`

	Forecaster forecaster.Options `mapstructure:"forecaster"`
	Redis      RedisConfig        `mapstructure:"redis"`
}

type RedisConfig struct {
	Enabled  bool          `mapstructure:"enabled"`
	Addr     string        `mapstructure:"addr"`
	Password string        `mapstructure:"password"`
	DB       int           `mapstructure:"db"`
	TTL      time.Duration `mapstructure:"ttl"`
}

// Load reads the configuration file at path. An empty path searches for sensorcast.yaml in
// ./configs and the working directory and falls back to defaults when none exists.
func Load(path string) (*Config, error) {
	v := viper.New()
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("sensorcast")
		v.SetConfigType("yaml")
		v.AddConfigPath("./configs")
		v.AddConfigPath(".")
	}

	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("unable to read config, %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unable to decode config, %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("log_level", "info")
	v.SetDefault("output_dir", ".")
	v.SetDefault("plot", false)
	v.SetDefault("parallelism", 4)
	v.SetDefault("resample", time.Hour)

	opt := forecaster.NewDefaultOptions()
	v.SetDefault("forecaster.backend", string(opt.Backend))
	v.SetDefault("forecaster.window_length", opt.WindowLength)
	v.SetDefault("forecaster.split_ratio", opt.SplitRatio)
	v.SetDefault("forecaster.frequency", opt.Frequency)
	v.SetDefault("forecaster.horizon", opt.Horizon)

	rec := models.NewDefaultRecurrentOptions()
	v.SetDefault("forecaster.recurrent.hidden_1", rec.Hidden1)
	v.SetDefault("forecaster.recurrent.hidden_2", rec.Hidden2)
	v.SetDefault("forecaster.recurrent.dense", rec.Dense)
	v.SetDefault("forecaster.recurrent.epochs", rec.Epochs)
	v.SetDefault("forecaster.recurrent.batch_size", rec.BatchSize)
	v.SetDefault("forecaster.recurrent.learning_rate", rec.LearningRate)
	v.SetDefault("forecaster.recurrent.clip_norm", rec.ClipNorm)
	v.SetDefault("forecaster.recurrent.validation_split", rec.ValidationSplit)
	v.SetDefault("forecaster.recurrent.seed", rec.Seed)

	arima := models.NewDefaultARIMAOptions()
	v.SetDefault("forecaster.arima.max_p", arima.MaxP)
	v.SetDefault("forecaster.arima.max_d", arima.MaxD)
	v.SetDefault("forecaster.arima.max_q", arima.MaxQ)

	v.SetDefault("redis.enabled", false)
	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.ttl", 24*time.Hour)
}

// Validate checks the command settings and populates forecaster defaults
func (c *Config) Validate() error {
	if _, err := c.Level(); err != nil {
		return err
	}
	if c.Parallelism < 1 {
		return fmt.Errorf("parallelism %d must be positive, %w", c.Parallelism, ErrInvalidConfig)
	}
	if c.Resample <= 0 {
		return fmt.Errorf("resample frequency %s must be positive, %w", c.Resample, ErrInvalidConfig)
	}
	if c.Redis.Enabled && c.Redis.Addr == "" {
		return fmt.Errorf("redis enabled without an address, %w", ErrInvalidConfig)
	}
	if c.Redis.TTL < 0 {
		return fmt.Errorf("redis ttl %s must be non-negative, %w", c.Redis.TTL, ErrInvalidConfig)
	}

	opt, err := c.Forecaster.Validate()
	if err != nil {
		return fmt.Errorf("unable to validate forecaster options, %w", err)
	}
	c.Forecaster = *opt
	return nil
}

// Level parses the configured log level
func (c *Config) Level() (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return level, fmt.Errorf("log level %q, %w", c.LogLevel, ErrInvalidConfig)
	}
	return level, nil
}

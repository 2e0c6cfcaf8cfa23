// Package config loads and validates lineindex configuration from an optional
// YAML file and LINEINDEX_ environment variables.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/spf13/viper"

	"github.com/Sumatoshi-tech/lineindex/pkg/lineindex"
	"github.com/Sumatoshi-tech/lineindex/pkg/observability"
)

// Sentinel validation errors.
var (
	ErrInvalidLineHeight  = errors.New("estimated line height must be positive")
	ErrInvalidLogLevel    = errors.New("invalid log level")
	ErrInvalidLogFormat   = errors.New("invalid log format")
	ErrInvalidSampleRatio = errors.New("sample ratio must be within [0, 1]")
	ErrInvalidOperations  = errors.New("bench operations must be positive")
	ErrInvalidMaxInsert   = errors.New("bench max insert must be positive")
	ErrInvalidLines       = errors.New("bench lines must be positive")
)

// Log formats.
const (
	FormatText = "text"
	FormatJSON = "json"
)

const envPrefix = "LINEINDEX"

// Config holds all lineindex configuration.
type Config struct {
	Index     IndexConfig     `mapstructure:"index"`
	Logging   LoggingConfig   `mapstructure:"logging"`
	Telemetry TelemetryConfig `mapstructure:"telemetry"`
	Bench     BenchConfig     `mapstructure:"bench"`
}

// IndexConfig configures every index the binary builds.
type IndexConfig struct {
	EstimatedLineHeight float64 `mapstructure:"estimated_line_height"`
	CheckInvariants     bool    `mapstructure:"check_invariants"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// TelemetryConfig holds OTLP export and metrics endpoint settings.
type TelemetryConfig struct {
	OTLPEndpoint string  `mapstructure:"otlp_endpoint"`
	OTLPHeaders  string  `mapstructure:"otlp_headers"`
	MetricsAddr  string  `mapstructure:"metrics_addr"`
	SampleRatio  float64 `mapstructure:"sample_ratio"`
	OTLPInsecure bool    `mapstructure:"otlp_insecure"`
}

// BenchConfig shapes the random edit workload of the bench command.
type BenchConfig struct {
	Operations int   `mapstructure:"operations"`
	Seed       int64 `mapstructure:"seed"`
	MaxInsert  int   `mapstructure:"max_insert"`
	Lines      int   `mapstructure:"lines"`
}

// LoadConfig loads configuration from configPath, or from lineindex.yaml in
// the working directory, ./config or /etc/lineindex when configPath is empty.
// A missing default file is not an error.
func LoadConfig(configPath string) (*Config, error) {
	viperCfg := viper.New()

	setDefaults(viperCfg)

	if configPath != "" {
		viperCfg.SetConfigFile(configPath)
	} else {
		viperCfg.SetConfigName("lineindex")
		viperCfg.SetConfigType("yaml")
		viperCfg.AddConfigPath(".")
		viperCfg.AddConfigPath("./config")
		viperCfg.AddConfigPath("/etc/lineindex")
	}

	viperCfg.SetEnvPrefix(envPrefix)
	viperCfg.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viperCfg.AutomaticEnv()

	readErr := viperCfg.ReadInConfig()
	if readErr != nil {
		var notFoundErr viper.ConfigFileNotFoundError
		if !errors.As(readErr, &notFoundErr) {
			return nil, fmt.Errorf("read config file: %w", readErr)
		}
	}

	var config Config

	unmarshalErr := viperCfg.Unmarshal(&config)
	if unmarshalErr != nil {
		return nil, fmt.Errorf("unmarshal config: %w", unmarshalErr)
	}

	validateErr := config.Validate()
	if validateErr != nil {
		return nil, fmt.Errorf("invalid configuration: %w", validateErr)
	}

	return &config, nil
}

func setDefaults(viperCfg *viper.Viper) {
	viperCfg.SetDefault("index.estimated_line_height", DefaultEstimatedLineHeight)
	viperCfg.SetDefault("index.check_invariants", DefaultCheckInvariants)

	viperCfg.SetDefault("logging.level", DefaultLogLevel)
	viperCfg.SetDefault("logging.format", DefaultLogFormat)

	viperCfg.SetDefault("telemetry.otlp_endpoint", DefaultOTLPEndpoint)
	viperCfg.SetDefault("telemetry.otlp_headers", "")
	viperCfg.SetDefault("telemetry.otlp_insecure", DefaultOTLPInsecure)
	viperCfg.SetDefault("telemetry.sample_ratio", DefaultSampleRatio)
	viperCfg.SetDefault("telemetry.metrics_addr", DefaultMetricsAddr)

	viperCfg.SetDefault("bench.operations", DefaultBenchOperations)
	viperCfg.SetDefault("bench.seed", DefaultBenchSeed)
	viperCfg.SetDefault("bench.max_insert", DefaultBenchMaxInsert)
	viperCfg.SetDefault("bench.lines", DefaultBenchLines)
}

// Validate reports the first invalid setting.
func (c *Config) Validate() error {
	if c.Index.EstimatedLineHeight <= 0 {
		return fmt.Errorf("%w: %v", ErrInvalidLineHeight, c.Index.EstimatedLineHeight)
	}

	if _, err := c.Logging.slogLevel(); err != nil {
		return err
	}

	if c.Logging.Format != FormatText && c.Logging.Format != FormatJSON {
		return fmt.Errorf("%w: %q", ErrInvalidLogFormat, c.Logging.Format)
	}

	if c.Telemetry.SampleRatio < 0 || c.Telemetry.SampleRatio > 1 {
		return fmt.Errorf("%w: %v", ErrInvalidSampleRatio, c.Telemetry.SampleRatio)
	}

	if c.Bench.Operations <= 0 {
		return fmt.Errorf("%w: %d", ErrInvalidOperations, c.Bench.Operations)
	}

	if c.Bench.MaxInsert <= 0 {
		return fmt.Errorf("%w: %d", ErrInvalidMaxInsert, c.Bench.MaxInsert)
	}

	if c.Bench.Lines <= 0 {
		return fmt.Errorf("%w: %d", ErrInvalidLines, c.Bench.Lines)
	}

	return nil
}

func (l LoggingConfig) slogLevel() (slog.Level, error) {
	var level slog.Level

	err := level.UnmarshalText([]byte(l.Level))
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidLogLevel, l.Level)
	}

	return level, nil
}

// IndexOptions returns index options for the configured height and checks.
func (c *Config) IndexOptions(logger *slog.Logger, recorder lineindex.Recorder) lineindex.Options {
	return lineindex.Options{
		EstimatedLineHeight: c.Index.EstimatedLineHeight,
		CheckInvariants:     c.Index.CheckInvariants,
		Logger:              logger,
		Recorder:            recorder,
	}
}

// Observability returns the telemetry configuration for a binary run in mode.
func (c *Config) Observability(version string, mode observability.AppMode) observability.Config {
	obs := observability.DefaultConfig()
	obs.ServiceVersion = version
	obs.Mode = mode
	obs.OTLPEndpoint = c.Telemetry.OTLPEndpoint
	obs.OTLPHeaders = observability.ParseOTLPHeaders(c.Telemetry.OTLPHeaders)
	obs.OTLPInsecure = c.Telemetry.OTLPInsecure
	obs.SampleRatio = c.Telemetry.SampleRatio
	obs.Prometheus = c.Telemetry.MetricsAddr != ""
	obs.LogJSON = c.Logging.Format == FormatJSON

	// Validate has already rejected unknown levels.
	obs.LogLevel, _ = c.Logging.slogLevel()

	return obs
}

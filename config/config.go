// Package config loads and validates run configuration from YAML or
// JSON files and converts it into the typed configs of the align,
// backtest, and optimize packages.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/hubdemarcel/ClimateTrade-sub002/align"
	"github.com/hubdemarcel/ClimateTrade-sub002/backtest"
	"github.com/hubdemarcel/ClimateTrade-sub002/metrics"
	"github.com/hubdemarcel/ClimateTrade-sub002/optimize"
	"github.com/hubdemarcel/ClimateTrade-sub002/risk"
	"github.com/hubdemarcel/ClimateTrade-sub002/strategies"
)

// Config is the complete file-level configuration for a backtest or an
// optimization.
type Config struct {
	Data      DataConfig      `json:"data" yaml:"data"`
	Backtest  BacktestConfig  `json:"backtest" yaml:"backtest"`
	Strategy  StrategyConfig  `json:"strategy" yaml:"strategy"`
	Optimizer OptimizerConfig `json:"optimizer,omitempty" yaml:"optimizer,omitempty"`
	Journal   JournalConfig   `json:"journal,omitempty" yaml:"journal,omitempty"`
	Logging   LoggingConfig   `json:"logging,omitempty" yaml:"logging,omitempty"`
}

// DataConfig locates the input streams.
type DataConfig struct {
	WeatherCSV string `json:"weather_csv" yaml:"weather_csv"`
	MarketCSV  string `json:"market_csv" yaml:"market_csv"`
	// SourcePriority ranks weather providers for same-timestamp
	// collisions; a source later in the list wins.
	SourcePriority []string `json:"source_priority,omitempty" yaml:"source_priority,omitempty"`
}

// BacktestConfig parameterizes the run window and the ledger.
type BacktestConfig struct {
	Start time.Time `json:"start" yaml:"start"`
	End   time.Time `json:"end" yaml:"end"`
	// TickInterval is a Go duration string, e.g. "1h" or "30m".
	TickInterval string `json:"tick_interval" yaml:"tick_interval"`

	InitialCapital  float64 `json:"initial_capital" yaml:"initial_capital"`
	CommissionRate  float64 `json:"commission_rate,omitempty" yaml:"commission_rate,omitempty"`
	MaxPositionFrac float64 `json:"max_position_frac,omitempty" yaml:"max_position_frac,omitempty"`
	MaxConcurrent   int     `json:"max_concurrent,omitempty" yaml:"max_concurrent,omitempty"`
	RiskFreeRate    float64 `json:"risk_free_rate,omitempty" yaml:"risk_free_rate,omitempty"`

	Metrics MetricsConfig `json:"metrics,omitempty" yaml:"metrics,omitempty"`
	Risk    RiskConfig    `json:"risk,omitempty" yaml:"risk,omitempty"`
}

// MetricsConfig overrides derived metrics inputs. Zero fields fall
// back to the run-level risk-free rate and the tick interval.
type MetricsConfig struct {
	RiskFreeRate float64 `json:"risk_free_rate,omitempty" yaml:"risk_free_rate,omitempty"`
	TicksPerYear float64 `json:"ticks_per_year,omitempty" yaml:"ticks_per_year,omitempty"`
}

// RiskConfig parameterizes the risk block of the result.
type RiskConfig struct {
	Confidence   float64   `json:"confidence,omitempty" yaml:"confidence,omitempty"`
	StressWindow int       `json:"stress_window,omitempty" yaml:"stress_window,omitempty"`
	Benchmark    []float64 `json:"benchmark,omitempty" yaml:"benchmark,omitempty"`
}

// StrategyConfig names the strategy and its parameter binding.
type StrategyConfig struct {
	Name   string         `json:"name" yaml:"name"`
	Params map[string]any `json:"params,omitempty" yaml:"params,omitempty"`
}

// OptimizerConfig parameterizes a search. Only consulted by the
// optimize command.
type OptimizerConfig struct {
	Method         string  `json:"method,omitempty" yaml:"method,omitempty"`
	MaxEvaluations int     `json:"max_evaluations,omitempty" yaml:"max_evaluations,omitempty"`
	Seed           int64   `json:"seed,omitempty" yaml:"seed,omitempty"`
	Workers        int     `json:"workers,omitempty" yaml:"workers,omitempty"`
	Timeout        string  `json:"timeout,omitempty" yaml:"timeout,omitempty"`
	Score          string  `json:"score,omitempty" yaml:"score,omitempty"`
	Population     int     `json:"population,omitempty" yaml:"population,omitempty"`
	EliteFrac      float64 `json:"elite_frac,omitempty" yaml:"elite_frac,omitempty"`
	MutationRate   float64 `json:"mutation_rate,omitempty" yaml:"mutation_rate,omitempty"`

	Parameters []ParameterConfig `json:"parameters,omitempty" yaml:"parameters,omitempty"`
}

// ParameterConfig declares one searchable dimension.
type ParameterConfig struct {
	Name    string   `json:"name" yaml:"name"`
	Kind    string   `json:"kind" yaml:"kind"`
	Min     float64  `json:"min,omitempty" yaml:"min,omitempty"`
	Max     float64  `json:"max,omitempty" yaml:"max,omitempty"`
	Step    float64  `json:"step,omitempty" yaml:"step,omitempty"`
	Choices []string `json:"choices,omitempty" yaml:"choices,omitempty"`
}

// JournalConfig selects the run sink. An empty type disables
// journaling.
type JournalConfig struct {
	Type   string `json:"type,omitempty" yaml:"type,omitempty"`
	DBPath string `json:"db_path,omitempty" yaml:"db_path,omitempty"`
	CSVDir string `json:"csv_dir,omitempty" yaml:"csv_dir,omitempty"`
}

type LoggingConfig struct {
	Level string `json:"level,omitempty" yaml:"level,omitempty"`
}

// LoadFromFile loads configuration from a YAML or JSON file and
// validates it.
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	cfg := &Config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		if jerr := json.Unmarshal(data, cfg); jerr != nil {
			return nil, fmt.Errorf("parse config (tried YAML and JSON): %w", err)
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// SaveToFile writes the configuration, YAML for .yaml/.yml paths and
// indented JSON otherwise.
func (c *Config) SaveToFile(path string) error {
	var (
		data []byte
		err  error
	)
	if strings.HasSuffix(path, ".yaml") || strings.HasSuffix(path, ".yml") {
		data, err = yaml.Marshal(c)
	} else {
		data, err = json.MarshalIndent(c, "", "  ")
	}
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write config file: %w", err)
	}
	return nil
}

// Validate checks file-level well-formedness. Semantic checks live
// with the packages the sections convert into.
func (c *Config) Validate() error {
	if c.Data.WeatherCSV == "" {
		return fmt.Errorf("data.weather_csv is required")
	}
	if c.Data.MarketCSV == "" {
		return fmt.Errorf("data.market_csv is required")
	}
	if c.Backtest.Start.IsZero() || c.Backtest.End.IsZero() {
		return fmt.Errorf("backtest.start and backtest.end are required")
	}
	if c.Backtest.TickInterval == "" {
		return fmt.Errorf("backtest.tick_interval is required")
	}
	if _, err := time.ParseDuration(c.Backtest.TickInterval); err != nil {
		return fmt.Errorf("backtest.tick_interval: %w", err)
	}
	if c.Backtest.InitialCapital <= 0 {
		return fmt.Errorf("backtest.initial_capital must be positive")
	}
	if c.Strategy.Name == "" {
		return fmt.Errorf("strategy.name is required")
	}

	switch c.Journal.Type {
	case "", "csv", "sqlite":
	default:
		return fmt.Errorf("journal.type must be 'csv' or 'sqlite'")
	}
	if c.Journal.Type == "csv" && c.Journal.CSVDir == "" {
		return fmt.Errorf("journal.csv_dir required for CSV journaling")
	}
	if c.Journal.Type == "sqlite" && c.Journal.DBPath == "" {
		return fmt.Errorf("journal.db_path required for SQLite journaling")
	}

	switch c.Logging.Level {
	case "", "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level must be one of debug, info, warn, error")
	}

	if c.Optimizer.Timeout != "" {
		if _, err := time.ParseDuration(c.Optimizer.Timeout); err != nil {
			return fmt.Errorf("optimizer.timeout: %w", err)
		}
	}
	for i, p := range c.Optimizer.Parameters {
		if p.Name == "" {
			return fmt.Errorf("optimizer.parameters[%d].name is required", i)
		}
		switch p.Kind {
		case "continuous", "discrete", "categorical":
		default:
			return fmt.Errorf("optimizer.parameters[%d].kind must be continuous, discrete, or categorical", i)
		}
	}
	return nil
}

// Default returns a runnable configuration over a sample July window.
func Default() *Config {
	return &Config{
		Data: DataConfig{
			WeatherCSV: "./data/weather.csv",
			MarketCSV:  "./data/markets.csv",
		},
		Backtest: BacktestConfig{
			Start:          time.Date(2024, 7, 1, 0, 0, 0, 0, time.UTC),
			End:            time.Date(2024, 7, 31, 23, 0, 0, 0, time.UTC),
			TickInterval:   "1h",
			InitialCapital: 10000,
			Risk:           RiskConfig{Confidence: 0.95, StressWindow: 24},
		},
		Strategy: StrategyConfig{
			Name: "threshold",
			Params: map[string]any{
				"location":  "lhr",
				"threshold": 30.0,
				"market":    "kx-highs-lhr-30c",
			},
		},
		Journal: JournalConfig{Type: "csv", CSVDir: "./journal"},
		Logging: LoggingConfig{Level: "info"},
	}
}

// TickDuration returns the parsed tick interval.
func (c *Config) TickDuration() (time.Duration, error) {
	d, err := time.ParseDuration(c.Backtest.TickInterval)
	if err != nil {
		return 0, fmt.Errorf("backtest.tick_interval: %w", err)
	}
	return d, nil
}

// AlignConfig converts the data and window sections for the aligner.
func (c *Config) AlignConfig() (align.Config, error) {
	interval, err := c.TickDuration()
	if err != nil {
		return align.Config{}, err
	}
	return align.Config{
		Start:          c.Backtest.Start,
		End:            c.Backtest.End,
		TickInterval:   interval,
		SourcePriority: c.Data.SourcePriority,
	}, nil
}

// BacktestConfig converts the backtest section into the engine's
// config.
func (c *Config) BacktestConfig() (backtest.Config, error) {
	interval, err := c.TickDuration()
	if err != nil {
		return backtest.Config{}, err
	}
	return backtest.Config{
		Start:           c.Backtest.Start,
		End:             c.Backtest.End,
		InitialCapital:  c.Backtest.InitialCapital,
		CommissionRate:  c.Backtest.CommissionRate,
		MaxPositionFrac: c.Backtest.MaxPositionFrac,
		MaxConcurrent:   c.Backtest.MaxConcurrent,
		TickInterval:    interval,
		RiskFreeRate:    c.Backtest.RiskFreeRate,
		Metrics: metrics.Config{
			RiskFreeRate: c.Backtest.Metrics.RiskFreeRate,
			TicksPerYear: c.Backtest.Metrics.TicksPerYear,
		},
		Risk: risk.Config{
			Confidence:   c.Backtest.Risk.Confidence,
			StressWindow: c.Backtest.Risk.StressWindow,
			Benchmark:    c.Backtest.Risk.Benchmark,
		},
	}, nil
}

// StrategyParams returns the strategy parameter binding.
func (c *Config) StrategyParams() strategies.Params {
	return strategies.Params(c.Strategy.Params)
}

// OptimizeConfig converts the optimizer section.
func (c *Config) OptimizeConfig() (optimize.Config, error) {
	var timeout time.Duration
	if c.Optimizer.Timeout != "" {
		d, err := time.ParseDuration(c.Optimizer.Timeout)
		if err != nil {
			return optimize.Config{}, fmt.Errorf("optimizer.timeout: %w", err)
		}
		timeout = d
	}
	score, err := optimize.ScoreFunc(c.Optimizer.Score)
	if err != nil {
		return optimize.Config{}, err
	}
	return optimize.Config{
		Method:         optimize.Method(c.Optimizer.Method),
		MaxEvaluations: c.Optimizer.MaxEvaluations,
		Seed:           c.Optimizer.Seed,
		Workers:        c.Optimizer.Workers,
		Timeout:        timeout,
		Score:          score,
		Population:     c.Optimizer.Population,
		EliteFrac:      c.Optimizer.EliteFrac,
		MutationRate:   c.Optimizer.MutationRate,
	}, nil
}

// OptimizeSpace converts the declared parameters, preserving order.
func (c *Config) OptimizeSpace() (optimize.Space, error) {
	if len(c.Optimizer.Parameters) == 0 {
		return nil, fmt.Errorf("optimizer.parameters is empty")
	}
	space := make(optimize.Space, 0, len(c.Optimizer.Parameters))
	for i, p := range c.Optimizer.Parameters {
		var kind optimize.Kind
		switch p.Kind {
		case "continuous":
			kind = optimize.Continuous
		case "discrete":
			kind = optimize.Discrete
		case "categorical":
			kind = optimize.Categorical
		default:
			return nil, fmt.Errorf("optimizer.parameters[%d]: unknown kind %q", i, p.Kind)
		}
		space = append(space, optimize.Parameter{
			Name:    p.Name,
			Kind:    kind,
			Min:     p.Min,
			Max:     p.Max,
			Step:    p.Step,
			Choices: p.Choices,
		})
	}
	return space, space.Validate()
}

package backtest

import (
	"errors"
	"fmt"
	"time"

	"github.com/hubdemarcel/ClimateTrade-sub002/metrics"
	"github.com/hubdemarcel/ClimateTrade-sub002/risk"
)

// ErrBadConfig wraps every config validation failure so callers can
// errors.Is against one sentinel.
var ErrBadConfig = errors.New("backtest: invalid config")

// Config fixes everything about a run except the strategy and the
// observations. Two runs with equal Config, strategy parameters, and
// observations produce identical equity curves and trade logs.
type Config struct {
	Start time.Time `yaml:"start" json:"start"`
	End   time.Time `yaml:"end" json:"end"`

	InitialCapital float64 `yaml:"initial_capital" json:"initial_capital"`

	// CommissionRate is charged per fill on |quantity|*price.
	CommissionRate float64 `yaml:"commission_rate" json:"commission_rate"`

	// MaxPositionFrac caps a single position's notional as a fraction
	// of current equity. 0 disables the cap.
	MaxPositionFrac float64 `yaml:"max_position_frac" json:"max_position_frac"`

	// MaxConcurrent caps the number of simultaneously open contracts.
	// 0 disables the cap.
	MaxConcurrent int `yaml:"max_concurrent" json:"max_concurrent"`

	TickInterval time.Duration `yaml:"tick_interval" json:"tick_interval"`

	// RiskFreeRate is the annual rate used by Sharpe/Sortino; it also
	// fills Metrics.RiskFreeRate when that is zero.
	RiskFreeRate float64 `yaml:"risk_free_rate" json:"risk_free_rate"`

	Metrics metrics.Config `yaml:"metrics" json:"metrics"`
	Risk    risk.Config    `yaml:"risk" json:"risk"`
}

func (c Config) Validate() error {
	if c.Start.IsZero() || c.End.IsZero() {
		return fmt.Errorf("%w: start and end are required", ErrBadConfig)
	}
	if !c.End.After(c.Start) {
		return fmt.Errorf("%w: end %s is not after start %s",
			ErrBadConfig, c.End.Format(time.RFC3339), c.Start.Format(time.RFC3339))
	}
	if c.InitialCapital <= 0 {
		return fmt.Errorf("%w: initial capital must be positive, got %v", ErrBadConfig, c.InitialCapital)
	}
	if c.CommissionRate < 0 || c.CommissionRate >= 1 {
		return fmt.Errorf("%w: commission rate must be in [0,1), got %v", ErrBadConfig, c.CommissionRate)
	}
	if c.MaxPositionFrac < 0 {
		return fmt.Errorf("%w: max position fraction must be >= 0, got %v", ErrBadConfig, c.MaxPositionFrac)
	}
	if c.MaxConcurrent < 0 {
		return fmt.Errorf("%w: max concurrent positions must be >= 0, got %d", ErrBadConfig, c.MaxConcurrent)
	}
	if c.TickInterval <= 0 {
		return fmt.Errorf("%w: tick interval must be positive, got %s", ErrBadConfig, c.TickInterval)
	}
	if c.RiskFreeRate < 0 {
		return fmt.Errorf("%w: risk-free rate must be >= 0, got %v", ErrBadConfig, c.RiskFreeRate)
	}
	return nil
}

// metricsConfig resolves the effective metrics configuration: the
// run-level risk-free rate and tick interval fill any zero fields.
func (c Config) metricsConfig() metrics.Config {
	m := c.Metrics
	if m.RiskFreeRate == 0 {
		m.RiskFreeRate = c.RiskFreeRate
	}
	if m.TicksPerYear == 0 {
		m.TicksPerYear = metrics.DeriveTicksPerYear(c.TickInterval)
	}
	return m
}

package backtest

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hubdemarcel/ClimateTrade-sub002/metrics"
)

func validConfig() Config {
	return Config{
		Start:          time.Date(2024, 7, 1, 0, 0, 0, 0, time.UTC),
		End:            time.Date(2024, 7, 2, 0, 0, 0, 0, time.UTC),
		InitialCapital: 10000,
		CommissionRate: 0.001,
		TickInterval:   time.Hour,
	}
}

func TestConfigValidate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		mutate func(*Config)
		valid  bool
	}{
		{"valid", func(c *Config) {}, true},
		{"zero commission valid", func(c *Config) { c.CommissionRate = 0 }, true},
		{"missing start", func(c *Config) { c.Start = time.Time{} }, false},
		{"missing end", func(c *Config) { c.End = time.Time{} }, false},
		{"end before start", func(c *Config) { c.End = c.Start.Add(-time.Hour) }, false},
		{"end equals start", func(c *Config) { c.End = c.Start }, false},
		{"zero capital", func(c *Config) { c.InitialCapital = 0 }, false},
		{"negative capital", func(c *Config) { c.InitialCapital = -1 }, false},
		{"negative commission", func(c *Config) { c.CommissionRate = -0.01 }, false},
		{"commission of one", func(c *Config) { c.CommissionRate = 1 }, false},
		{"negative position frac", func(c *Config) { c.MaxPositionFrac = -0.5 }, false},
		{"negative concurrent", func(c *Config) { c.MaxConcurrent = -1 }, false},
		{"zero interval", func(c *Config) { c.TickInterval = 0 }, false},
		{"negative risk-free rate", func(c *Config) { c.RiskFreeRate = -0.01 }, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(tst *testing.T) {
			cfg := validConfig()
			tt.mutate(&cfg)

			err := cfg.Validate()
			if tt.valid {
				assert.NoError(tst, err)
			} else {
				require.Error(tst, err)
				assert.ErrorIs(tst, err, ErrBadConfig)
			}
		})
	}
}

func TestMetricsConfigFallbacks(t *testing.T) {
	t.Parallel()

	t.Run("derives ticks per year from interval", func(t *testing.T) {
		cfg := validConfig()
		cfg.RiskFreeRate = 0.05

		m := cfg.metricsConfig()
		assert.Equal(t, metrics.DeriveTicksPerYear(time.Hour), m.TicksPerYear)
		assert.Equal(t, 0.05, m.RiskFreeRate)
	})

	t.Run("explicit metrics config wins", func(t *testing.T) {
		cfg := validConfig()
		cfg.RiskFreeRate = 0.05
		cfg.Metrics = metrics.Config{RiskFreeRate: 0.02, TicksPerYear: 365}

		m := cfg.metricsConfig()
		assert.Equal(t, 365.0, m.TicksPerYear)
		assert.Equal(t, 0.02, m.RiskFreeRate)
	})
}

// Package indicators provides streaming lookback statistics over scalar
// series (weather fields, market probabilities). Every indicator
// follows the same protocol: feed values with Update, check Ready once
// Warmup values have arrived, read Value, and Reset between runs.
package indicators

import (
	"fmt"
	"math"
)

// SimpleMA is a streaming simple moving average.
type SimpleMA struct {
	period int
	window []float64
}

// NewMA creates a simple moving average over the given period.
func NewMA(period int) *SimpleMA {
	return &SimpleMA{
		period: period,
		window: make([]float64, 0, period),
	}
}

func (m *SimpleMA) Name() string {
	return fmt.Sprintf("MA(%d)", m.period)
}

func (m *SimpleMA) Warmup() int {
	return m.period
}

func (m *SimpleMA) Reset() {
	m.window = m.window[:0]
}

func (m *SimpleMA) Update(v float64) {
	m.window = append(m.window, v)
	// Keep only the last 'period' values
	if len(m.window) > m.period {
		m.window = m.window[1:]
	}
}

func (m *SimpleMA) Ready() bool {
	return len(m.window) >= m.period
}

func (m *SimpleMA) Value() float64 {
	if !m.Ready() {
		return 0
	}

	sum := 0.0
	for _, v := range m.window {
		sum += v
	}
	return sum / float64(len(m.window))
}

// ExponentialMA is a streaming exponential moving average, seeded with
// the simple average of the first period values.
type ExponentialMA struct {
	period     int
	multiplier float64
	ema        float64
	count      int
	warmupSum  float64
}

// NewEMA creates an exponential moving average over the given period.
func NewEMA(period int) *ExponentialMA {
	return &ExponentialMA{
		period:     period,
		multiplier: 2.0 / float64(period+1),
	}
}

func (e *ExponentialMA) Name() string {
	return fmt.Sprintf("EMA(%d)", e.period)
}

func (e *ExponentialMA) Warmup() int {
	return e.period
}

func (e *ExponentialMA) Reset() {
	e.ema = 0
	e.count = 0
	e.warmupSum = 0
}

func (e *ExponentialMA) Update(v float64) {
	if e.count < e.period {
		e.warmupSum += v
		e.count++
		if e.count == e.period {
			// Initialize EMA with the warmup SMA
			e.ema = e.warmupSum / float64(e.period)
		}
	} else {
		e.ema = (v-e.ema)*e.multiplier + e.ema
	}
}

func (e *ExponentialMA) Ready() bool {
	return e.count >= e.period
}

func (e *ExponentialMA) Value() float64 {
	if !e.Ready() {
		return 0
	}
	return e.ema
}

// StdDev is a streaming sample standard deviation over a fixed window.
type StdDev struct {
	period int
	window []float64
}

// NewStdDev creates a standard deviation indicator over the given period.
func NewStdDev(period int) *StdDev {
	return &StdDev{
		period: period,
		window: make([]float64, 0, period),
	}
}

func (s *StdDev) Name() string {
	return fmt.Sprintf("StdDev(%d)", s.period)
}

func (s *StdDev) Warmup() int {
	return s.period
}

func (s *StdDev) Reset() {
	s.window = s.window[:0]
}

func (s *StdDev) Update(v float64) {
	s.window = append(s.window, v)
	if len(s.window) > s.period {
		s.window = s.window[1:]
	}
}

func (s *StdDev) Ready() bool {
	return len(s.window) >= s.period
}

func (s *StdDev) Value() float64 {
	n := len(s.window)
	if !s.Ready() || n < 2 {
		return 0
	}

	mean := 0.0
	for _, v := range s.window {
		mean += v
	}
	mean /= float64(n)

	var ss float64
	for _, v := range s.window {
		d := v - mean
		ss += d * d
	}
	return math.Sqrt(ss / float64(n-1))
}

// Change reports the difference between the newest value and the value
// lookback updates ago. Ready after lookback+1 values.
type Change struct {
	lookback int
	window   []float64
}

// NewChange creates a change-over-lookback indicator.
func NewChange(lookback int) *Change {
	return &Change{
		lookback: lookback,
		window:   make([]float64, 0, lookback+1),
	}
}

func (c *Change) Name() string {
	return fmt.Sprintf("Change(%d)", c.lookback)
}

func (c *Change) Warmup() int {
	return c.lookback + 1
}

func (c *Change) Reset() {
	c.window = c.window[:0]
}

func (c *Change) Update(v float64) {
	c.window = append(c.window, v)
	if len(c.window) > c.lookback+1 {
		c.window = c.window[1:]
	}
}

func (c *Change) Ready() bool {
	return len(c.window) >= c.lookback+1
}

func (c *Change) Value() float64 {
	if !c.Ready() {
		return 0
	}
	return c.window[len(c.window)-1] - c.window[0]
}

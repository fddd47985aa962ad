package risk

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHistoricalVaR(t *testing.T) {
	t.Parallel()

	returns := []float64{-0.10, -0.05, -0.02, 0.01, 0.03, 0.04, 0.06, 0.02, -0.01, 0.00}

	t.Run("quantile and tail mean", func(t *testing.T) {
		m := Compute(returns, Config{Confidence: 0.75, StressWindow: 2})

		// Sorted, the 25% quantile of 10 ticks lands on index 2
		// (-0.02); the two ticks beyond it average -0.075.
		assert.InDelta(t, 0.02, m.ValueAtRisk, 1e-12)
		assert.InDelta(t, 0.075, m.ExpectedShortfall, 1e-12)
	})

	t.Run("cutoff at the worst tick", func(t *testing.T) {
		m := Compute(returns, Config{Confidence: 0.99, StressWindow: 2})

		assert.InDelta(t, 0.10, m.ValueAtRisk, 1e-12)
		// Nothing beyond the cutoff: shortfall equals VaR.
		assert.InDelta(t, 0.10, m.ExpectedShortfall, 1e-12)
	})

	t.Run("profitable series floors at zero", func(t *testing.T) {
		m := Compute([]float64{0.01, 0.02, 0.03, 0.04}, Config{Confidence: 0.5, StressWindow: 2})

		assert.Zero(t, m.ValueAtRisk)
		assert.Zero(t, m.ExpectedShortfall)
	})

	t.Run("input order preserved", func(t *testing.T) {
		in := []float64{0.05, -0.10, 0.02}
		Compute(in, Config{Confidence: 0.9, StressWindow: 1})
		assert.Equal(t, []float64{0.05, -0.10, 0.02}, in)
	})
}

func TestUlcerIndex(t *testing.T) {
	t.Parallel()

	t.Run("single drawdown", func(t *testing.T) {
		// One tick, equity halves: 50% drawdown for the whole series.
		m := Compute([]float64{-0.5}, Config{Confidence: 0.95, StressWindow: 1})
		assert.InDelta(t, 50.0, m.UlcerIndex, 1e-9)
	})

	t.Run("drawdown after a new peak", func(t *testing.T) {
		// Doubles, then halves back: drawdowns 0% and 50%.
		m := Compute([]float64{1.0, -0.5}, Config{Confidence: 0.95, StressWindow: 1})
		assert.InDelta(t, math.Sqrt(1250), m.UlcerIndex, 1e-9)
	})

	t.Run("monotonic growth is painless", func(t *testing.T) {
		m := Compute([]float64{0.1, 0.1, 0.1}, Config{Confidence: 0.95, StressWindow: 1})
		assert.Zero(t, m.UlcerIndex)
	})
}

func TestStressTest(t *testing.T) {
	t.Parallel()

	t.Run("locates the worst window", func(t *testing.T) {
		returns := []float64{0.01, -0.10, -0.20, 0.05, -0.15, -0.05, 0.02}
		m := Compute(returns, Config{Confidence: 0.95, StressWindow: 2})

		require.Equal(t, 1, m.Stress.WindowStart)
		assert.Equal(t, 2, m.Stress.WindowLen)
		assert.InDelta(t, -0.28, m.Stress.CumulativeReturn, 1e-12)
		assert.InDelta(t, 0.72, m.Stress.EquityFraction, 1e-12)
	})

	t.Run("earliest of tied windows wins", func(t *testing.T) {
		m := Compute([]float64{-0.1, 0.0, -0.1, 0.0}, Config{Confidence: 0.95, StressWindow: 1})
		assert.Equal(t, 0, m.Stress.WindowStart)
	})

	t.Run("series shorter than window", func(t *testing.T) {
		m := Compute([]float64{0.01, -0.02}, Config{Confidence: 0.95, StressWindow: 5})

		assert.Equal(t, -1, m.Stress.WindowStart)
		assert.Zero(t, m.Stress.WindowLen)
		assert.Equal(t, 1.0, m.Stress.EquityFraction)
	})

	t.Run("zero window", func(t *testing.T) {
		m := Compute([]float64{0.01, -0.02}, Config{Confidence: 0.95})
		assert.Equal(t, -1, m.Stress.WindowStart)
	})
}

func TestBeta(t *testing.T) {
	t.Parallel()

	bench := []float64{0.01, -0.02, 0.03, 0.00, -0.01}

	t.Run("identical series", func(t *testing.T) {
		m := Compute(bench, Config{Confidence: 0.95, StressWindow: 2, Benchmark: bench})
		assert.InDelta(t, 1.0, m.Beta, 1e-12)
	})

	t.Run("levered series", func(t *testing.T) {
		levered := make([]float64, len(bench))
		for i, b := range bench {
			levered[i] = 2*b + 0.001
		}
		m := Compute(levered, Config{Confidence: 0.95, StressWindow: 2, Benchmark: bench})
		assert.InDelta(t, 2.0, m.Beta, 1e-12)
	})

	t.Run("longer benchmark is truncated", func(t *testing.T) {
		longBench := append(append([]float64{}, bench...), 0.5, -0.5)
		m := Compute(bench, Config{Confidence: 0.95, StressWindow: 2, Benchmark: longBench})
		assert.InDelta(t, 1.0, m.Beta, 1e-12)
	})

	t.Run("missing benchmark", func(t *testing.T) {
		m := Compute(bench, Config{Confidence: 0.95, StressWindow: 2})
		assert.True(t, math.IsNaN(m.Beta))
	})

	t.Run("short benchmark", func(t *testing.T) {
		m := Compute(bench, Config{Confidence: 0.95, StressWindow: 2, Benchmark: bench[:2]})
		assert.True(t, math.IsNaN(m.Beta))
	})

	t.Run("flat benchmark has no variance", func(t *testing.T) {
		m := Compute(bench, Config{Confidence: 0.95, StressWindow: 2, Benchmark: []float64{0.01, 0.01, 0.01, 0.01, 0.01}})
		assert.True(t, math.IsNaN(m.Beta))
	})
}

func TestComputeEmptySeries(t *testing.T) {
	t.Parallel()

	m := Compute(nil, Config{Confidence: 0.95, StressWindow: 24})

	assert.Zero(t, m.ValueAtRisk)
	assert.Zero(t, m.ExpectedShortfall)
	assert.Zero(t, m.UlcerIndex)
	assert.Equal(t, -1, m.Stress.WindowStart)
	assert.True(t, math.IsNaN(m.Beta))
}

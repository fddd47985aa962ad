// Package risk computes downside statistics over a run's per-tick
// return series. Compute is pure and never mutates its inputs; every
// threshold comes from Config, nothing is hardcoded.
package risk

import (
	"math"
	"sort"
)

type Config struct {
	// Confidence is the VaR/ES confidence level. 0.95
	Confidence float64

	// StressWindow is the length in ticks of the worst contiguous
	// window located by the stress test. 24
	StressWindow int

	// Benchmark is an optional per-tick benchmark return series for
	// beta. It must cover at least as many ticks as the run; extra
	// trailing ticks are ignored. Beta is NaN when the benchmark is
	// absent or too short.
	Benchmark []float64
}

// StressResult replays the worst StressWindow-length stretch of the
// return series.
type StressResult struct {
	// WindowStart is the index of the first return in the worst
	// window, -1 when the series is shorter than the window.
	WindowStart int `json:"window_start"`
	WindowLen   int `json:"window_len"`
	// CumulativeReturn is the compounded return across the window.
	CumulativeReturn float64 `json:"cumulative_return"`
	// EquityFraction is what remains of one unit of equity after the
	// window, 1 + CumulativeReturn.
	EquityFraction float64 `json:"equity_fraction"`
}

type Metrics struct {
	// ValueAtRisk is the per-tick loss at the configured confidence,
	// as a non-negative fraction.
	ValueAtRisk float64 `json:"value_at_risk"`
	// ExpectedShortfall is the mean loss of the ticks beyond VaR, VaR
	// itself when no tick lies beyond the cutoff.
	ExpectedShortfall float64 `json:"expected_shortfall"`
	// UlcerIndex is the root-mean-square percent drawdown of the
	// return-implied equity path (Martin's definition).
	UlcerIndex float64      `json:"ulcer_index"`
	Stress     StressResult `json:"stress"`
	Beta       float64      `json:"beta"`
}

// Compute evaluates the full risk block over per-tick returns.
func Compute(returns []float64, cfg Config) Metrics {
	m := Metrics{
		Stress: stressTest(returns, cfg.StressWindow),
		Beta:   beta(returns, cfg.Benchmark),
	}
	m.ValueAtRisk, m.ExpectedShortfall = historicalVaR(returns, cfg.Confidence)
	m.UlcerIndex = ulcerIndex(returns)
	return m
}

// historicalVaR sorts a copy of the returns and reads the loss at the
// 1-confidence quantile, floored at zero.
func historicalVaR(returns []float64, confidence float64) (valueAtRisk, expectedShortfall float64) {
	n := len(returns)
	if n == 0 {
		return 0, 0
	}

	sorted := make([]float64, n)
	copy(sorted, returns)
	sort.Float64s(sorted)

	pos := int((1 - confidence) * float64(n))
	if pos < 0 {
		pos = 0
	}
	if pos > n-1 {
		pos = n - 1
	}

	valueAtRisk = math.Max(0, -sorted[pos])

	// Mean of the ticks strictly beyond the cutoff.
	if pos == 0 {
		return valueAtRisk, valueAtRisk
	}
	var sum float64
	for _, r := range sorted[:pos] {
		sum += r
	}
	expectedShortfall = math.Max(0, -sum/float64(pos))
	return valueAtRisk, expectedShortfall
}

func ulcerIndex(returns []float64) float64 {
	if len(returns) == 0 {
		return 0
	}

	equity := 1.0
	peak := 1.0
	var ss float64
	for _, r := range returns {
		equity *= 1 + r
		if equity > peak {
			peak = equity
		}
		if peak > 0 {
			ddPct := 100 * (peak - equity) / peak
			ss += ddPct * ddPct
		}
	}
	return math.Sqrt(ss / float64(len(returns)))
}

// stressTest scans for the contiguous window with the smallest
// compounded equity product. Earlier windows win ties so the result is
// deterministic.
func stressTest(returns []float64, window int) StressResult {
	if window <= 0 || len(returns) < window {
		return StressResult{WindowStart: -1, EquityFraction: 1}
	}

	worstStart := 0
	worst := math.Inf(1)
	for start := 0; start+window <= len(returns); start++ {
		product := 1.0
		for _, r := range returns[start : start+window] {
			product *= 1 + r
		}
		if product < worst {
			worst = product
			worstStart = start
		}
	}

	return StressResult{
		WindowStart:      worstStart,
		WindowLen:        window,
		CumulativeReturn: worst - 1,
		EquityFraction:   worst,
	}
}

// beta regresses the run's returns on the benchmark: cov/var over the
// overlapping ticks.
func beta(returns, benchmark []float64) float64 {
	n := len(returns)
	if n < 2 || len(benchmark) < n {
		return math.NaN()
	}
	bench := benchmark[:n]

	meanR := mean(returns)
	meanB := mean(bench)

	var cov, varB float64
	for i := 0; i < n; i++ {
		db := bench[i] - meanB
		cov += (returns[i] - meanR) * db
		varB += db * db
	}
	if varB == 0 {
		return math.NaN()
	}
	return cov / varB
}

func mean(xs []float64) float64 {
	sum := 0.0
	for _, x := range xs {
		sum += x
	}
	return sum / float64(len(xs))
}

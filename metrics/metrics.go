// Package metrics computes performance statistics over a completed
// run's equity curve and trade log. Compute is a pure function: same
// inputs give the same Performance, nothing is sampled or truncated.
//
// Ratios with a zero denominator are reported as NaN, never as a
// divide-by-zero panic and never silently zeroed.
package metrics

import (
	"math"
	"time"

	"github.com/hubdemarcel/ClimateTrade-sub002/market"
)

// Config carries the annualization inputs.
type Config struct {
	// RiskFreeRate is the annual risk-free rate, e.g. 0.04.
	RiskFreeRate float64
	// TicksPerYear converts per-tick statistics onto an annual basis.
	// Values <= 0 disable annualization (factor 1).
	TicksPerYear float64
}

// DeriveTicksPerYear computes the annualization factor for a tick
// interval, counting a year as 365 days.
func DeriveTicksPerYear(interval time.Duration) float64 {
	if interval <= 0 {
		return 0
	}
	return 365 * 24 * 3600 / interval.Seconds()
}

// Performance is the metric block of a backtest result.
type Performance struct {
	TotalReturn      float64 `json:"total_return"`
	AnnualizedReturn float64 `json:"annualized_return"`
	Volatility       float64 `json:"volatility"`
	SharpeRatio      float64 `json:"sharpe_ratio"`
	SortinoRatio     float64 `json:"sortino_ratio"`
	MaxDrawdown      float64 `json:"max_drawdown"`
	WinRate          float64 `json:"win_rate"`
	ProfitFactor     float64 `json:"profit_factor"`
	Expectancy       float64 `json:"expectancy"`

	Trades int `json:"trades"`
	Wins   int `json:"wins"`
	Losses int `json:"losses"`
}

// Compute evaluates the full metric block.
func Compute(curve market.EquityCurve, log market.TradeLog, cfg Config) Performance {
	tpy := cfg.TicksPerYear
	if tpy <= 0 {
		tpy = 1
	}

	perf := tradeStats(log)

	if len(curve) == 0 || curve[0].TotalEquity <= 0 {
		perf.SharpeRatio = math.NaN()
		perf.SortinoRatio = math.NaN()
		return perf
	}

	returns := curve.Returns()

	perf.TotalReturn = (curve[len(curve)-1].TotalEquity - curve[0].TotalEquity) / curve[0].TotalEquity
	perf.AnnualizedReturn = annualize(perf.TotalReturn, float64(len(returns)), tpy)
	perf.Volatility = sampleStd(returns) * math.Sqrt(tpy)
	perf.MaxDrawdown = maxDrawdown(curve)

	if perf.Volatility == 0 {
		perf.SharpeRatio = math.NaN()
	} else {
		perf.SharpeRatio = (perf.AnnualizedReturn - cfg.RiskFreeRate) / perf.Volatility
	}

	downside := downsideDeviation(returns, cfg.RiskFreeRate/tpy) * math.Sqrt(tpy)
	if downside == 0 {
		perf.SortinoRatio = math.NaN()
	} else {
		perf.SortinoRatio = (perf.AnnualizedReturn - cfg.RiskFreeRate) / downside
	}

	return perf
}

// annualize compounds a total return observed over periods ticks onto
// a yearly basis.
func annualize(total, periods, tpy float64) float64 {
	if periods <= 0 {
		return 0
	}
	return math.Pow(1+total, tpy/periods) - 1
}

// maxDrawdown is the largest peak-to-trough equity decline as a
// fraction of the peak.
func maxDrawdown(curve market.EquityCurve) float64 {
	peak := curve[0].TotalEquity
	maxDD := 0.0
	for _, pt := range curve {
		if pt.TotalEquity > peak {
			peak = pt.TotalEquity
		}
		if peak <= 0 {
			continue
		}
		dd := (peak - pt.TotalEquity) / peak
		if dd > maxDD {
			maxDD = dd
		}
	}
	return maxDD
}

// tradeStats fills the trade-derived fields. A trade closes when a
// fill reduces or flips a position; only those fills carry realized
// P&L and only those count toward the win rate.
func tradeStats(log market.TradeLog) Performance {
	var (
		perf        Performance
		grossProfit float64
		grossLoss   float64
		realized    float64
	)

	for _, f := range log.Fills {
		if !f.Closing {
			continue
		}
		perf.Trades++
		realized += f.RealizedPnL
		switch {
		case f.RealizedPnL > 0:
			perf.Wins++
			grossProfit += f.RealizedPnL
		case f.RealizedPnL < 0:
			perf.Losses++
			grossLoss += -f.RealizedPnL
		}
	}

	if perf.Trades > 0 {
		perf.WinRate = float64(perf.Wins) / float64(perf.Trades)
		perf.Expectancy = realized / float64(perf.Trades)
	}

	if grossLoss == 0 {
		perf.ProfitFactor = math.NaN()
	} else {
		perf.ProfitFactor = grossProfit / grossLoss
	}

	return perf
}

func mean(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	sum := 0.0
	for _, x := range xs {
		sum += x
	}
	return sum / float64(len(xs))
}

// sampleStd is the n-1 standard deviation; 0 for fewer than two values.
func sampleStd(xs []float64) float64 {
	n := len(xs)
	if n < 2 {
		return 0
	}
	m := mean(xs)
	var ss float64
	for _, x := range xs {
		d := x - m
		ss += d * d
	}
	return math.Sqrt(ss / float64(n-1))
}

// downsideDeviation measures dispersion of returns below target,
// dividing by the full period count (Sortino convention).
func downsideDeviation(xs []float64, target float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	var ss float64
	for _, x := range xs {
		if d := x - target; d < 0 {
			ss += d * d
		}
	}
	return math.Sqrt(ss / float64(len(xs)))
}

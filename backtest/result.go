package backtest

import (
	"fmt"
	"io"
	"math"
	"time"

	"github.com/hubdemarcel/ClimateTrade-sub002/market"
	"github.com/hubdemarcel/ClimateTrade-sub002/metrics"
	"github.com/hubdemarcel/ClimateTrade-sub002/risk"
)

// Result is the complete record of one run. Curve and log are never
// truncated or sampled; every tick of the run is present.
type Result struct {
	RunID        string `json:"run_id"`
	Config       Config `json:"config"`
	StrategyName string `json:"strategy"`

	EquityCurve market.EquityCurve `json:"equity_curve"`
	TradeLog    market.TradeLog    `json:"trade_log"`

	Performance metrics.Performance `json:"performance"`
	Risk        risk.Metrics        `json:"risk"`

	Started  time.Time     `json:"started"`
	Duration time.Duration `json:"duration"`
}

// FinalEquity is the last point's total equity, the initial capital
// for an empty curve.
func (r *Result) FinalEquity() float64 {
	if pt, ok := r.EquityCurve.Final(); ok {
		return pt.TotalEquity
	}
	return r.Config.InitialCapital
}

// WriteReport prints the fixed-width run summary.
func (r *Result) WriteReport(w io.Writer) {
	fmt.Fprintln(w, "==================================================")
	fmt.Fprintln(w, " Backtest Result")
	fmt.Fprintln(w, "==================================================")

	fmt.Fprintf(w, "Run ID:        %s\n", r.RunID)
	fmt.Fprintf(w, "Strategy:      %s\n", r.StrategyName)
	fmt.Fprintf(w, "Started:       %s\n", r.Started.Format(time.RFC3339))
	fmt.Fprintf(w, "Duration:      %s\n", r.Duration)

	fmt.Fprintln(w)
	fmt.Fprintln(w, "Period")
	fmt.Fprintln(w, "--------------------------------------------------")
	fmt.Fprintf(w, "Start:         %s\n", r.Config.Start.Format(time.RFC3339))
	fmt.Fprintf(w, "End:           %s\n", r.Config.End.Format(time.RFC3339))
	fmt.Fprintf(w, "Ticks:         %d\n", len(r.EquityCurve))

	fmt.Fprintln(w)
	fmt.Fprintln(w, "Performance")
	fmt.Fprintln(w, "--------------------------------------------------")
	fmt.Fprintf(w, "Start Equity:  %.2f\n", r.Config.InitialCapital)
	fmt.Fprintf(w, "Final Equity:  %.2f\n", r.FinalEquity())
	fmt.Fprintf(w, "Total Return:  %.2f%%\n", 100*r.Performance.TotalReturn)
	fmt.Fprintf(w, "Annualized:    %.2f%%\n", 100*r.Performance.AnnualizedReturn)
	fmt.Fprintf(w, "Volatility:    %.2f%%\n", 100*r.Performance.Volatility)
	fmt.Fprintf(w, "Sharpe:        %s\n", ratio(r.Performance.SharpeRatio))
	fmt.Fprintf(w, "Sortino:       %s\n", ratio(r.Performance.SortinoRatio))
	fmt.Fprintf(w, "Max Drawdown:  %.2f%%\n", 100*r.Performance.MaxDrawdown)

	fmt.Fprintln(w)
	fmt.Fprintln(w, "Trade Statistics")
	fmt.Fprintln(w, "--------------------------------------------------")
	fmt.Fprintf(w, "Fills:         %d\n", len(r.TradeLog.Fills))
	fmt.Fprintf(w, "Rejections:    %d\n", len(r.TradeLog.Rejections))
	fmt.Fprintf(w, "Closed Trades: %d\n", r.Performance.Trades)
	fmt.Fprintf(w, "Wins:          %d\n", r.Performance.Wins)
	fmt.Fprintf(w, "Losses:        %d\n", r.Performance.Losses)
	fmt.Fprintf(w, "Win Rate:      %.2f%%\n", 100*r.Performance.WinRate)
	fmt.Fprintf(w, "Profit Factor: %s\n", ratio(r.Performance.ProfitFactor))
	fmt.Fprintf(w, "Expectancy:    %.4f\n", r.Performance.Expectancy)

	fmt.Fprintln(w)
	fmt.Fprintln(w, "Risk")
	fmt.Fprintln(w, "--------------------------------------------------")
	fmt.Fprintf(w, "VaR:           %.4f\n", r.Risk.ValueAtRisk)
	fmt.Fprintf(w, "Shortfall:     %.4f\n", r.Risk.ExpectedShortfall)
	fmt.Fprintf(w, "Ulcer Index:   %.4f\n", r.Risk.UlcerIndex)
	fmt.Fprintf(w, "Beta:          %s\n", ratio(r.Risk.Beta))
	if r.Risk.Stress.WindowStart >= 0 {
		fmt.Fprintf(w, "Worst Window:  tick %d, %d ticks, %.2f%% (equity x%.4f)\n",
			r.Risk.Stress.WindowStart,
			r.Risk.Stress.WindowLen,
			100*r.Risk.Stress.CumulativeReturn,
			r.Risk.Stress.EquityFraction)
	} else {
		fmt.Fprintln(w, "Worst Window:  insufficient data")
	}
}

func ratio(v float64) string {
	if math.IsNaN(v) {
		return "n/a"
	}
	return fmt.Sprintf("%.4f", v)
}

// Package journal persists completed backtest runs: a summary row per
// run plus row-per-tick fills, equity points, and rejections, keyed by
// run ID. Two sinks are provided, SQLite for querying and CSV for
// spreadsheet work.
package journal

import (
	"fmt"
	"time"

	"github.com/hubdemarcel/ClimateTrade-sub002/backtest"
	"github.com/hubdemarcel/ClimateTrade-sub002/market"
)

// RunRecord is the stored summary of one run. The full curve and log
// live in their own tables keyed by RunID.
type RunRecord struct {
	RunID    string
	Created  time.Time
	Strategy string

	Start          time.Time
	End            time.Time
	TickInterval   time.Duration
	InitialCapital float64

	FinalEquity float64
	TotalReturn float64
	// SharpeRatio is NaN when the run had zero volatility. Sinks must
	// preserve that, not flatten it to zero.
	SharpeRatio float64
	MaxDrawdown float64

	Trades     int
	Wins       int
	Losses     int
	Rejections int
}

// NewRunRecord flattens a result into its stored summary.
func NewRunRecord(res *backtest.Result) RunRecord {
	return RunRecord{
		RunID:          res.RunID,
		Created:        res.Started,
		Strategy:       res.StrategyName,
		Start:          res.Config.Start,
		End:            res.Config.End,
		TickInterval:   res.Config.TickInterval,
		InitialCapital: res.Config.InitialCapital,
		FinalEquity:    res.FinalEquity(),
		TotalReturn:    res.Performance.TotalReturn,
		SharpeRatio:    res.Performance.SharpeRatio,
		MaxDrawdown:    res.Performance.MaxDrawdown,
		Trades:         res.Performance.Trades,
		Wins:           res.Performance.Wins,
		Losses:         res.Performance.Losses,
		Rejections:     len(res.TradeLog.Rejections),
	}
}

// Journal is a run sink. Implementations append; nothing here updates
// or deletes.
type Journal interface {
	RecordRun(RunRecord) error
	RecordFill(runID string, f market.Fill) error
	RecordEquity(runID string, p market.EquityPoint) error
	RecordRejection(runID string, r market.RejectedSignal) error
	Close() error
}

// Record writes a whole result: the summary row, then every fill,
// equity point, and rejection in log order.
func Record(j Journal, res *backtest.Result) error {
	if err := j.RecordRun(NewRunRecord(res)); err != nil {
		return fmt.Errorf("journal: run %s: %w", res.RunID, err)
	}
	for _, f := range res.TradeLog.Fills {
		if err := j.RecordFill(res.RunID, f); err != nil {
			return fmt.Errorf("journal: fill %s: %w", f.ID, err)
		}
	}
	for _, p := range res.EquityCurve {
		if err := j.RecordEquity(res.RunID, p); err != nil {
			return fmt.Errorf("journal: equity %s: %w", p.Time.Format(time.RFC3339), err)
		}
	}
	for _, r := range res.TradeLog.Rejections {
		if err := j.RecordRejection(res.RunID, r); err != nil {
			return fmt.Errorf("journal: rejection %s: %w", r.Code, err)
		}
	}
	return nil
}

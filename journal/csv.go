package journal

import (
	"encoding/csv"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/hubdemarcel/ClimateTrade-sub002/market"
)

var (
	runsHeader = []string{"run_id", "created", "strategy", "start_time", "end_time",
		"tick_interval_secs", "initial_capital", "final_equity", "total_return",
		"sharpe", "max_drawdown", "trades", "wins", "losses", "rejections"}
	fillsHeader = []string{"run_id", "fill_id", "time", "market_id", "outcome",
		"quantity", "price", "fee", "realized_pnl", "closing"}
	equityHeader     = []string{"run_id", "time", "cash", "market_value", "total_equity"}
	rejectionsHeader = []string{"run_id", "time", "market_id", "outcome", "side", "code", "reason"}
)

// CSVJournal writes one file per table into a directory: runs.csv,
// fills.csv, equity.csv, rejections.csv. Every row is flushed as it is
// written, so an interrupted process still leaves readable files. An
// undefined Sharpe lands as the literal "NaN".
type CSVJournal struct {
	runs       *csv.Writer
	fills      *csv.Writer
	equity     *csv.Writer
	rejections *csv.Writer
	files      []*os.File
}

func NewCSV(dir string) (*CSVJournal, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}

	j := &CSVJournal{}
	open := func(name string, header []string) (*csv.Writer, error) {
		f, err := os.Create(filepath.Join(dir, name))
		if err != nil {
			return nil, err
		}
		j.files = append(j.files, f)
		w := csv.NewWriter(f)
		if err := w.Write(header); err != nil {
			return nil, err
		}
		w.Flush()
		return w, w.Error()
	}

	var err error
	if j.runs, err = open("runs.csv", runsHeader); err != nil {
		return nil, j.closeFiles(err)
	}
	if j.fills, err = open("fills.csv", fillsHeader); err != nil {
		return nil, j.closeFiles(err)
	}
	if j.equity, err = open("equity.csv", equityHeader); err != nil {
		return nil, j.closeFiles(err)
	}
	if j.rejections, err = open("rejections.csv", rejectionsHeader); err != nil {
		return nil, j.closeFiles(err)
	}
	return j, nil
}

func (j *CSVJournal) RecordRun(r RunRecord) error {
	return writeRow(j.runs, []string{
		r.RunID,
		r.Created.Format(time.RFC3339),
		r.Strategy,
		r.Start.Format(time.RFC3339),
		r.End.Format(time.RFC3339),
		f(r.TickInterval.Seconds()),
		f(r.InitialCapital),
		f(r.FinalEquity),
		f(r.TotalReturn),
		f(r.SharpeRatio),
		f(r.MaxDrawdown),
		strconv.Itoa(r.Trades),
		strconv.Itoa(r.Wins),
		strconv.Itoa(r.Losses),
		strconv.Itoa(r.Rejections),
	})
}

func (j *CSVJournal) RecordFill(runID string, fl market.Fill) error {
	return writeRow(j.fills, []string{
		runID,
		fl.ID,
		fl.Time.Format(time.RFC3339),
		fl.Market.MarketID,
		string(fl.Market.Outcome),
		f(fl.Quantity),
		f(fl.Price),
		f(fl.Fee),
		f(fl.RealizedPnL),
		strconv.FormatBool(fl.Closing),
	})
}

func (j *CSVJournal) RecordEquity(runID string, p market.EquityPoint) error {
	return writeRow(j.equity, []string{
		runID,
		p.Time.Format(time.RFC3339),
		f(p.Cash),
		f(p.MarketValue),
		f(p.TotalEquity),
	})
}

func (j *CSVJournal) RecordRejection(runID string, r market.RejectedSignal) error {
	return writeRow(j.rejections, []string{
		runID,
		r.Time.Format(time.RFC3339),
		r.Signal.Market.MarketID,
		string(r.Signal.Market.Outcome),
		r.Signal.Side.String(),
		r.Code,
		r.Reason,
	})
}

func (j *CSVJournal) Close() error {
	for _, w := range []*csv.Writer{j.runs, j.fills, j.equity, j.rejections} {
		if w == nil {
			continue
		}
		w.Flush()
		if err := w.Error(); err != nil {
			j.closeFiles(nil)
			return err
		}
	}
	return j.closeFiles(nil)
}

func (j *CSVJournal) closeFiles(err error) error {
	for _, f := range j.files {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}
	j.files = nil
	return err
}

func writeRow(w *csv.Writer, row []string) error {
	if err := w.Write(row); err != nil {
		return err
	}
	w.Flush()
	return w.Error()
}

func f(x float64) string {
	return strconv.FormatFloat(x, 'f', 6, 64)
}

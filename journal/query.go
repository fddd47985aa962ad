package journal

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/hubdemarcel/ClimateTrade-sub002/market"
)

// RejectionRecord is a stored rejection. The journal keeps the
// rejected signal's contract and side, not its sizing fields.
type RejectionRecord struct {
	Time   time.Time
	Market market.Key
	Side   string
	Code   string
	Reason string
}

// GetRun returns a single run summary by ID.
func (j *SQLite) GetRun(runID string) (RunRecord, error) {
	row := j.db.QueryRow(`
		SELECT run_id, created, strategy, start_time, end_time, tick_interval_secs,
		       initial_capital, final_equity, total_return, sharpe, max_drawdown,
		       trades, wins, losses, rejections
		FROM runs
		WHERE run_id = ?`, runID)

	rec, err := scanRun(row)
	if err == sql.ErrNoRows {
		return RunRecord{}, fmt.Errorf("journal: run %q not found", runID)
	}
	return rec, err
}

// ListRuns returns every run summary, oldest first. Run IDs are ULIDs,
// so lexical order is creation order.
func (j *SQLite) ListRuns() ([]RunRecord, error) {
	rows, err := j.db.Query(`
		SELECT run_id, created, strategy, start_time, end_time, tick_interval_secs,
		       initial_capital, final_equity, total_return, sharpe, max_drawdown,
		       trades, wins, losses, rejections
		FROM runs
		ORDER BY run_id ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []RunRecord
	for rows.Next() {
		rec, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// ListFillsByRun returns a run's fills in execution order.
func (j *SQLite) ListFillsByRun(runID string) ([]market.Fill, error) {
	rows, err := j.db.Query(`
		SELECT fill_id, time, market_id, outcome, quantity, price, fee, realized_pnl, closing
		FROM fills
		WHERE run_id = ?
		ORDER BY fill_id ASC`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []market.Fill
	for rows.Next() {
		var (
			f       market.Fill
			outcome string
		)
		if err := rows.Scan(&f.ID, &f.Time, &f.Market.MarketID, &outcome,
			&f.Quantity, &f.Price, &f.Fee, &f.RealizedPnL, &f.Closing); err != nil {
			return nil, err
		}
		f.Market.Outcome = market.Outcome(outcome)
		out = append(out, f)
	}
	return out, rows.Err()
}

// ListEquityByRun returns a run's equity curve in tick order.
func (j *SQLite) ListEquityByRun(runID string) (market.EquityCurve, error) {
	rows, err := j.db.Query(`
		SELECT time, cash, market_value, total_equity
		FROM equity
		WHERE run_id = ?
		ORDER BY time ASC`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out market.EquityCurve
	for rows.Next() {
		var p market.EquityPoint
		if err := rows.Scan(&p.Time, &p.Cash, &p.MarketValue, &p.TotalEquity); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// ListRejectionsByRun returns a run's rejections in log order. Ties on
// time keep insertion order.
func (j *SQLite) ListRejectionsByRun(runID string) ([]RejectionRecord, error) {
	rows, err := j.db.Query(`
		SELECT time, market_id, outcome, side, code, reason
		FROM rejections
		WHERE run_id = ?
		ORDER BY time ASC, rowid ASC`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []RejectionRecord
	for rows.Next() {
		var (
			r       RejectionRecord
			outcome string
		)
		if err := rows.Scan(&r.Time, &r.Market.MarketID, &outcome, &r.Side, &r.Code, &r.Reason); err != nil {
			return nil, err
		}
		r.Market.Outcome = market.Outcome(outcome)
		out = append(out, r)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(row rowScanner) (RunRecord, error) {
	var (
		rec    RunRecord
		secs   float64
		sharpe sql.NullFloat64
	)
	err := row.Scan(
		&rec.RunID, &rec.Created, &rec.Strategy, &rec.Start, &rec.End, &secs,
		&rec.InitialCapital, &rec.FinalEquity, &rec.TotalReturn, &sharpe,
		&rec.MaxDrawdown, &rec.Trades, &rec.Wins, &rec.Losses, &rec.Rejections,
	)
	if err != nil {
		return RunRecord{}, err
	}
	rec.TickInterval = time.Duration(secs * float64(time.Second))
	rec.SharpeRatio = fromNullable(sharpe)
	return rec, nil
}

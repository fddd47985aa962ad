package journal

import (
	"database/sql"
	"math"

	_ "github.com/mattn/go-sqlite3"

	"github.com/hubdemarcel/ClimateTrade-sub002/market"
)

// SQLite journals runs into a single database file, creating the
// schema on open.
type SQLite struct {
	db *sql.DB
}

func NewSQLite(path string) (*SQLite, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, err
	}
	if _, err := db.Exec(Schema); err != nil {
		db.Close()
		return nil, err
	}
	return &SQLite{db: db}, nil
}

func (j *SQLite) RecordRun(r RunRecord) error {
	_, err := j.db.Exec(`
		INSERT INTO runs
		(run_id, created, strategy, start_time, end_time, tick_interval_secs,
		 initial_capital, final_equity, total_return, sharpe, max_drawdown,
		 trades, wins, losses, rejections)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.RunID, r.Created, r.Strategy, r.Start, r.End, r.TickInterval.Seconds(),
		r.InitialCapital, r.FinalEquity, r.TotalReturn, nullable(r.SharpeRatio),
		r.MaxDrawdown, r.Trades, r.Wins, r.Losses, r.Rejections,
	)
	return err
}

func (j *SQLite) RecordFill(runID string, f market.Fill) error {
	_, err := j.db.Exec(`
		INSERT INTO fills
		(run_id, fill_id, time, market_id, outcome, quantity, price, fee, realized_pnl, closing)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		runID, f.ID, f.Time, f.Market.MarketID, string(f.Market.Outcome),
		f.Quantity, f.Price, f.Fee, f.RealizedPnL, f.Closing,
	)
	return err
}

func (j *SQLite) RecordEquity(runID string, p market.EquityPoint) error {
	_, err := j.db.Exec(`
		INSERT INTO equity (run_id, time, cash, market_value, total_equity)
		VALUES (?, ?, ?, ?, ?)`,
		runID, p.Time, p.Cash, p.MarketValue, p.TotalEquity,
	)
	return err
}

func (j *SQLite) RecordRejection(runID string, r market.RejectedSignal) error {
	_, err := j.db.Exec(`
		INSERT INTO rejections (run_id, time, market_id, outcome, side, code, reason)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		runID, r.Time, r.Signal.Market.MarketID, string(r.Signal.Market.Outcome),
		r.Signal.Side.String(), r.Code, r.Reason,
	)
	return err
}

func (j *SQLite) Close() error {
	return j.db.Close()
}

// nullable maps NaN to NULL. SQLite has no NaN, and scanning a silent
// NULL into a float64 would error on the way back out.
func nullable(x float64) sql.NullFloat64 {
	return sql.NullFloat64{Float64: x, Valid: !math.IsNaN(x)}
}

func fromNullable(x sql.NullFloat64) float64 {
	if !x.Valid {
		return math.NaN()
	}
	return x.Float64
}

package journal

const Schema = `
CREATE TABLE IF NOT EXISTS runs (
	run_id TEXT PRIMARY KEY,
	created DATETIME NOT NULL,
	strategy TEXT NOT NULL,
	start_time DATETIME NOT NULL,
	end_time DATETIME NOT NULL,
	tick_interval_secs REAL NOT NULL,
	initial_capital REAL NOT NULL,
	final_equity REAL NOT NULL,
	total_return REAL NOT NULL,
	sharpe REAL,
	max_drawdown REAL NOT NULL,
	trades INTEGER NOT NULL,
	wins INTEGER NOT NULL,
	losses INTEGER NOT NULL,
	rejections INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS fills (
	run_id TEXT NOT NULL,
	fill_id TEXT NOT NULL,
	time DATETIME NOT NULL,
	market_id TEXT NOT NULL,
	outcome TEXT NOT NULL,
	quantity REAL NOT NULL,
	price REAL NOT NULL,
	fee REAL NOT NULL,
	realized_pnl REAL NOT NULL,
	closing INTEGER NOT NULL,
	PRIMARY KEY (run_id, fill_id)
);

CREATE TABLE IF NOT EXISTS equity (
	run_id TEXT NOT NULL,
	time DATETIME NOT NULL,
	cash REAL NOT NULL,
	market_value REAL NOT NULL,
	total_equity REAL NOT NULL
);

CREATE TABLE IF NOT EXISTS rejections (
	run_id TEXT NOT NULL,
	time DATETIME NOT NULL,
	market_id TEXT NOT NULL,
	outcome TEXT NOT NULL,
	side TEXT NOT NULL,
	code TEXT NOT NULL,
	reason TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_fills_run ON fills(run_id);
CREATE INDEX IF NOT EXISTS idx_equity_run ON equity(run_id, time);
CREATE INDEX IF NOT EXISTS idx_rejections_run ON rejections(run_id);
`

package journal

// Decimal columns are TEXT so values read back exactly as written.
const Schema = `
CREATE TABLE IF NOT EXISTS closes (
	run_id TEXT NOT NULL,
	position_id TEXT NOT NULL,
	seq INTEGER NOT NULL,
	order_id TEXT NOT NULL,
	instrument TEXT NOT NULL,
	side TEXT NOT NULL,
	entry_price TEXT NOT NULL,
	quantity TEXT NOT NULL,
	close_price TEXT NOT NULL,
	close_quantity TEXT NOT NULL,
	reason TEXT NOT NULL,
	pnl TEXT NOT NULL,
	remaining TEXT NOT NULL,
	realized_pnl TEXT NOT NULL,
	status TEXT NOT NULL,
	open_time DATETIME NOT NULL,
	close_time DATETIME NOT NULL,
	PRIMARY KEY (run_id, position_id, seq)
);

CREATE INDEX IF NOT EXISTS idx_closes_close_time ON closes(close_time);

CREATE TABLE IF NOT EXISTS equity (
	run_id TEXT NOT NULL,
	time DATETIME NOT NULL,
	balance TEXT NOT NULL,
	unrealized_pnl TEXT NOT NULL,
	equity TEXT NOT NULL,
	margin_used TEXT NOT NULL,
	free_margin TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_equity_run_time ON equity(run_id, time);
`

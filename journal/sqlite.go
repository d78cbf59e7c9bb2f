package journal

import (
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

type SQLite struct {
	db *sql.DB
}

// NewSQLite opens (or creates) the journal database at path.
func NewSQLite(path string) (*SQLite, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open journal %s: %w", path, err)
	}

	if _, err := db.Exec(Schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create journal schema: %w", err)
	}

	return &SQLite{db: db}, nil
}

func (j *SQLite) RecordClose(r CloseRecord) error {
	_, err := j.db.Exec(`
		INSERT INTO closes
		(run_id, position_id, seq, order_id, instrument, side, entry_price, quantity,
		 close_price, close_quantity, reason, pnl, remaining, realized_pnl, status,
		 open_time, close_time)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.RunID, r.PositionID, int64(r.Seq), r.OrderID, r.Instrument, r.Side,
		r.EntryPrice.String(), r.Quantity.String(),
		r.ClosePrice.String(), r.CloseQuantity.String(), r.Reason, r.PnL.String(),
		r.Remaining.String(), r.RealizedPnL.String(), r.Status,
		r.OpenTime.UTC(), r.CloseTime.UTC(),
	)
	if err != nil {
		return fmt.Errorf("record close %s %s/%d: %w", r.RunID, r.PositionID, r.Seq, err)
	}
	return nil
}

func (j *SQLite) RecordEquity(e EquitySnapshot) error {
	_, err := j.db.Exec(`
		INSERT INTO equity
		(run_id, time, balance, unrealized_pnl, equity, margin_used, free_margin)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		e.RunID, e.Time.UTC(), e.Balance.String(), e.UnrealizedPnL.String(), e.Equity.String(),
		e.MarginUsed.String(), e.FreeMargin.String(),
	)
	if err != nil {
		return fmt.Errorf("record equity: %w", err)
	}
	return nil
}

func (j *SQLite) Close() error {
	return j.db.Close()
}

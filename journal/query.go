package journal

import (
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// ErrNotFound is returned when a query matches no rows.
var ErrNotFound = errors.New("not found")

const closeColumns = `run_id, position_id, seq, order_id, instrument, side, entry_price, quantity,
	close_price, close_quantity, reason, pnl, remaining, realized_pnl, status,
	open_time, close_time`

// Queries take a run ID; an empty one matches every run.
const runFilter = `(? = '' OR run_id = ?)`

// Runs returns the distinct run IDs in the journal, oldest first.
func (j *SQLite) Runs() ([]string, error) {
	rows, err := j.db.Query(`
		SELECT run_id FROM (
			SELECT run_id, MIN(time) AS started FROM equity GROUP BY run_id
			UNION ALL
			SELECT run_id, MIN(close_time) AS started FROM closes GROUP BY run_id
		)
		GROUP BY run_id
		ORDER BY MIN(started) ASC, run_id ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		out = append(out, id)
	}
	return out, rows.Err()
}

// PositionCloses returns the close rows of one position in sequence order.
func (j *SQLite) PositionCloses(runID, positionID string) ([]CloseRecord, error) {
	rows, err := j.db.Query(`
		SELECT `+closeColumns+`
		FROM closes
		WHERE position_id = ? AND `+runFilter+`
		ORDER BY run_id ASC, seq ASC`, positionID, runID, runID)
	if err != nil {
		return nil, err
	}
	out, err := scanCloses(rows)
	if err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("position %q: %w", positionID, ErrNotFound)
	}
	return out, nil
}

// ListCloses returns every close row of a run in close order.
func (j *SQLite) ListCloses(runID string) ([]CloseRecord, error) {
	rows, err := j.db.Query(`
		SELECT `+closeColumns+`
		FROM closes
		WHERE `+runFilter+`
		ORDER BY close_time ASC, seq ASC, run_id ASC`, runID, runID)
	if err != nil {
		return nil, err
	}
	return scanCloses(rows)
}

// ListClosesBetween returns close rows whose close_time is within [start, end).
func (j *SQLite) ListClosesBetween(runID string, start, end time.Time) ([]CloseRecord, error) {
	rows, err := j.db.Query(`
		SELECT `+closeColumns+`
		FROM closes
		WHERE close_time >= ? AND close_time < ? AND `+runFilter+`
		ORDER BY close_time ASC, seq ASC, run_id ASC`, start.UTC(), end.UTC(), runID, runID)
	if err != nil {
		return nil, err
	}
	return scanCloses(rows)
}

// ListEquityBetween returns snapshots whose time is within [start, end).
func (j *SQLite) ListEquityBetween(runID string, start, end time.Time) ([]EquitySnapshot, error) {
	rows, err := j.db.Query(`
		SELECT run_id, time, balance, unrealized_pnl, equity, margin_used, free_margin
		FROM equity
		WHERE time >= ? AND time < ? AND `+runFilter+`
		ORDER BY time ASC, rowid ASC`, start.UTC(), end.UTC(), runID, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []EquitySnapshot
	for rows.Next() {
		var s EquitySnapshot
		if err := rows.Scan(
			&s.RunID,
			&s.Time,
			&s.Balance,
			&s.UnrealizedPnL,
			&s.Equity,
			&s.MarginUsed,
			&s.FreeMargin,
		); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

func scanCloses(rows *sql.Rows) ([]CloseRecord, error) {
	defer rows.Close()

	var out []CloseRecord
	for rows.Next() {
		var (
			r   CloseRecord
			seq int64
		)
		if err := rows.Scan(
			&r.RunID,
			&r.PositionID,
			&seq,
			&r.OrderID,
			&r.Instrument,
			&r.Side,
			&r.EntryPrice,
			&r.Quantity,
			&r.ClosePrice,
			&r.CloseQuantity,
			&r.Reason,
			&r.PnL,
			&r.Remaining,
			&r.RealizedPnL,
			&r.Status,
			&r.OpenTime,
			&r.CloseTime,
		); err != nil {
			return nil, err
		}
		r.Seq = uint64(seq)
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

package journal

import (
	"encoding/csv"
	"fmt"
	"os"
	"strconv"
	"time"
)

var (
	closeHeader  = []string{"run_id", "position_id", "seq", "order_id", "instrument", "side", "entry_price", "quantity", "close_price", "close_quantity", "reason", "pnl", "remaining", "realized_pnl", "status", "open_time", "close_time"}
	equityHeader = []string{"run_id", "time", "balance", "unrealized_pnl", "equity", "margin_used", "free_margin"}
)

// CSV writes closes and equity snapshots to two files. Decimals are
// written exactly as the ledger holds them.
type CSV struct {
	closes *csv.Writer
	equity *csv.Writer
	cf, ef *os.File
}

func NewCSV(closesPath, equityPath string) (*CSV, error) {
	cf, err := os.Create(closesPath)
	if err != nil {
		return nil, err
	}
	ef, err := os.Create(equityPath)
	if err != nil {
		_ = cf.Close()
		return nil, err
	}

	j := &CSV{closes: csv.NewWriter(cf), equity: csv.NewWriter(ef), cf: cf, ef: ef}
	if err := j.write(j.closes, closeHeader); err != nil {
		_ = j.Close()
		return nil, err
	}
	if err := j.write(j.equity, equityHeader); err != nil {
		_ = j.Close()
		return nil, err
	}
	return j, nil
}

func (j *CSV) RecordClose(r CloseRecord) error {
	return j.write(j.closes, []string{
		r.RunID,
		r.PositionID,
		strconv.FormatUint(r.Seq, 10),
		r.OrderID,
		r.Instrument,
		r.Side,
		r.EntryPrice.String(),
		r.Quantity.String(),
		r.ClosePrice.String(),
		r.CloseQuantity.String(),
		r.Reason,
		r.PnL.String(),
		r.Remaining.String(),
		r.RealizedPnL.String(),
		r.Status,
		r.OpenTime.UTC().Format(time.RFC3339),
		r.CloseTime.UTC().Format(time.RFC3339),
	})
}

func (j *CSV) RecordEquity(e EquitySnapshot) error {
	return j.write(j.equity, []string{
		e.RunID,
		e.Time.UTC().Format(time.RFC3339),
		e.Balance.String(),
		e.UnrealizedPnL.String(),
		e.Equity.String(),
		e.MarginUsed.String(),
		e.FreeMargin.String(),
	})
}

func (j *CSV) Close() error {
	j.closes.Flush()
	if err := j.closes.Error(); err != nil {
		return err
	}
	j.equity.Flush()
	if err := j.equity.Error(); err != nil {
		return err
	}

	if err := j.cf.Close(); err != nil {
		return err
	}
	return j.ef.Close()
}

func (j *CSV) write(w *csv.Writer, row []string) error {
	if err := w.Write(row); err != nil {
		return fmt.Errorf("write csv row: %w", err)
	}
	w.Flush()
	return w.Error()
}

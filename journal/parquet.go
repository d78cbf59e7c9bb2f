package journal

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/parquet-go/parquet-go"
	"github.com/shopspring/decimal"
)

// CloseRow is the Parquet schema of the closed-position table. Analysis
// tools want numeric columns, so decimals become float64 here.
type CloseRow struct {
	RunID         string  `parquet:"run_id"`
	PositionID    string  `parquet:"position_id"`
	Seq           int64   `parquet:"seq"`
	OrderID       string  `parquet:"order_id"`
	Instrument    string  `parquet:"instrument"`
	Side          string  `parquet:"side"`
	EntryPrice    float64 `parquet:"entry_price"`
	Quantity      float64 `parquet:"quantity"`
	ClosePrice    float64 `parquet:"close_price"`
	CloseQuantity float64 `parquet:"close_quantity"`
	Reason        string  `parquet:"reason"`
	PnL           float64 `parquet:"pnl"`
	Remaining     float64 `parquet:"remaining"`
	RealizedPnL   float64 `parquet:"realized_pnl"`
	Status        string  `parquet:"status"`
	OpenTime      int64   `parquet:"open_time,timestamp(millisecond)"`
	CloseTime     int64   `parquet:"close_time,timestamp(millisecond)"`
}

// WriteParquet writes recs to path, creating parent directories.
func WriteParquet(path string, recs []CloseRecord) error {
	rows := make([]CloseRow, 0, len(recs))
	for _, r := range recs {
		rows = append(rows, CloseRow{
			RunID:         r.RunID,
			PositionID:    r.PositionID,
			Seq:           int64(r.Seq),
			OrderID:       r.OrderID,
			Instrument:    r.Instrument,
			Side:          r.Side,
			EntryPrice:    r.EntryPrice.InexactFloat64(),
			Quantity:      r.Quantity.InexactFloat64(),
			ClosePrice:    r.ClosePrice.InexactFloat64(),
			CloseQuantity: r.CloseQuantity.InexactFloat64(),
			Reason:        r.Reason,
			PnL:           r.PnL.InexactFloat64(),
			Remaining:     r.Remaining.InexactFloat64(),
			RealizedPnL:   r.RealizedPnL.InexactFloat64(),
			Status:        r.Status,
			OpenTime:      r.OpenTime.UnixMilli(),
			CloseTime:     r.CloseTime.UnixMilli(),
		})
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	if err := parquet.WriteFile(path, rows); err != nil {
		return fmt.Errorf("write parquet %s: %w", path, err)
	}
	return nil
}

// ReadParquet loads a table written by WriteParquet.
func ReadParquet(path string) ([]CloseRecord, error) {
	rows, err := parquet.ReadFile[CloseRow](path)
	if err != nil {
		return nil, fmt.Errorf("read parquet %s: %w", path, err)
	}
	out := make([]CloseRecord, 0, len(rows))
	for _, r := range rows {
		out = append(out, CloseRecord{
			RunID:         r.RunID,
			PositionID:    r.PositionID,
			Seq:           uint64(r.Seq),
			OrderID:       r.OrderID,
			Instrument:    r.Instrument,
			Side:          r.Side,
			EntryPrice:    decimal.NewFromFloat(r.EntryPrice),
			Quantity:      decimal.NewFromFloat(r.Quantity),
			ClosePrice:    decimal.NewFromFloat(r.ClosePrice),
			CloseQuantity: decimal.NewFromFloat(r.CloseQuantity),
			Reason:        r.Reason,
			PnL:           decimal.NewFromFloat(r.PnL),
			Remaining:     decimal.NewFromFloat(r.Remaining),
			RealizedPnL:   decimal.NewFromFloat(r.RealizedPnL),
			Status:        r.Status,
			OpenTime:      time.UnixMilli(r.OpenTime).UTC(),
			CloseTime:     time.UnixMilli(r.CloseTime).UTC(),
		})
	}
	return out, nil
}

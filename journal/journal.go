// Package journal persists what the ledger produced: one row per partial
// close and one equity snapshot per bar.
package journal

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/rustyeddy/tradeledger/sim"
)

// CloseRecord is one row of the closed-position table. The Close* fields
// describe a single PartialClose; the rest summarise the position as it
// stood right after that close. RunID tells apart rows of different runs
// sharing one journal; replays with the same seed reuse position IDs.
type CloseRecord struct {
	RunID      string
	PositionID string
	OrderID    string
	Instrument string
	Side       string
	EntryPrice decimal.Decimal
	Quantity   decimal.Decimal

	Seq           uint64
	ClosePrice    decimal.Decimal
	CloseQuantity decimal.Decimal
	Reason        string
	PnL           decimal.Decimal

	Remaining   decimal.Decimal
	RealizedPnL decimal.Decimal
	Status      string
	OpenTime    time.Time
	CloseTime   time.Time
}

type EquitySnapshot struct {
	RunID         string
	Time          time.Time
	Balance       decimal.Decimal
	UnrealizedPnL decimal.Decimal
	Equity        decimal.Decimal
	MarginUsed    decimal.Decimal
	FreeMargin    decimal.Decimal
}

type Journal interface {
	RecordClose(CloseRecord) error
	RecordEquity(EquitySnapshot) error
	Close() error
}

// FromClose flattens one close event of p.
func FromClose(p sim.Position, c sim.PartialClose) CloseRecord {
	return CloseRecord{
		PositionID:    p.ID,
		OrderID:       p.OrderID,
		Instrument:    p.Instrument,
		Side:          p.Side.String(),
		EntryPrice:    p.EntryPrice,
		Quantity:      p.Quantity,
		Seq:           c.Seq,
		ClosePrice:    c.Price,
		CloseQuantity: c.Quantity,
		Reason:        c.Reason,
		PnL:           c.PnL,
		Remaining:     p.Remaining,
		RealizedPnL:   p.RealizedPnL,
		Status:        p.Status.String(),
		OpenTime:      p.OpenTime,
		CloseTime:     c.Time,
	}
}

// Rows flattens positions into one CloseRecord per PartialClose, in
// position order and then close order. Summary columns reflect each
// position as passed in.
func Rows(positions []sim.Position) []CloseRecord {
	var out []CloseRecord
	for _, p := range positions {
		for _, c := range p.Closes {
			out = append(out, FromClose(p, c))
		}
	}
	return out
}

func FromEquity(s sim.EquitySnapshot) EquitySnapshot {
	return EquitySnapshot{
		Time:          s.Time,
		Balance:       s.Balance,
		UnrealizedPnL: s.UnrealizedPnL,
		Equity:        s.Equity,
		MarginUsed:    s.MarginUsed,
		FreeMargin:    s.FreeMargin,
	}
}

// Nop discards everything.
type Nop struct{}

func (Nop) RecordClose(CloseRecord) error     { return nil }
func (Nop) RecordEquity(EquitySnapshot) error { return nil }
func (Nop) Close() error                      { return nil }

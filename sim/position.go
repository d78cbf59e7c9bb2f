package sim

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

type PositionStatus int8

const (
	PositionOpen PositionStatus = iota
	PositionPartiallyClosed
	PositionClosed
)

func (s PositionStatus) String() string {
	switch s {
	case PositionOpen:
		return "OPEN"
	case PositionPartiallyClosed:
		return "PARTIALLY_CLOSED"
	case PositionClosed:
		return "CLOSED"
	default:
		return fmt.Sprintf("PositionStatus(%d)", int8(s))
	}
}

// Close reasons recorded on PartialClose.Reason and Order.Reason.
const (
	ReasonManual     = "manual"
	ReasonSignal     = "signal"
	ReasonStopLoss   = "sl_hit"
	ReasonTakeProfit = "tp_hit"
	ReasonNetted     = "netted"
	ReasonEndOfRun   = "end_of_run"
	ReasonStopOut    = "stop_out"
	ReasonTimeout    = "timeout"
	ReasonRejected   = "rejected"
)

// PartialClose records one reduction of a position. A full close is just
// the last PartialClose, the one that takes Remaining to zero.
type PartialClose struct {
	Price    decimal.Decimal
	Quantity decimal.Decimal
	Reason   string
	PnL      decimal.Decimal

	// Seq orders close events across the whole engine.
	Seq  uint64
	Time time.Time
}

// Position is open exposure created by an executed order.
//
// Quantity is the original size (it only grows when a netting engine adds
// same-side fills). Remaining shrinks with every close, so that
// sum(Closes[i].Quantity) + Remaining == Quantity at all times.
type Position struct {
	ID         string
	OrderID    string
	Instrument string
	Side       Side
	EntryPrice decimal.Decimal
	Quantity   decimal.Decimal
	Remaining  decimal.Decimal
	StopLoss   *decimal.Decimal
	TakeProfit *decimal.Decimal
	Status     PositionStatus

	Closes      []PartialClose
	RealizedPnL decimal.Decimal

	OpenTime  time.Time
	CloseTime time.Time
}

// ClosedQuantity is the sum of all partial close quantities.
func (p Position) ClosedQuantity() decimal.Decimal {
	sum := decimal.Zero
	for _, c := range p.Closes {
		sum = sum.Add(c.Quantity)
	}
	return sum
}

// UnrealizedPnL marks the remaining quantity to mark.
func (p Position) UnrealizedPnL(mark decimal.Decimal) decimal.Decimal {
	return PnL(p.Side, p.EntryPrice, mark, p.Remaining)
}

// IsOpen reports whether the position still carries exposure.
func (p Position) IsOpen() bool { return p.Status != PositionClosed }

func (p *Position) clone() Position {
	c := *p
	c.StopLoss = cloneDec(p.StopLoss)
	c.TakeProfit = cloneDec(p.TakeProfit)
	if p.Closes != nil {
		c.Closes = make([]PartialClose, len(p.Closes))
		copy(c.Closes, p.Closes)
	}
	return c
}

func (p *Position) updateStatus() {
	switch {
	case p.Remaining.IsZero():
		p.Status = PositionClosed
	case len(p.Closes) == 0:
		p.Status = PositionOpen
	default:
		p.Status = PositionPartiallyClosed
	}
}

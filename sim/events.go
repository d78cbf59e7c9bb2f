package sim

import (
	"context"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"
)

// EquitySnapshot is emitted at the end of every Step.
type EquitySnapshot struct {
	Time          time.Time
	Balance       decimal.Decimal
	UnrealizedPnL decimal.Decimal
	Equity        decimal.Decimal
	MarginUsed    decimal.Decimal
	FreeMargin    decimal.Decimal
}

// Listener receives ledger events. Calls happen after the engine has
// released its lock, in the order the events occurred, so a listener may
// call back into the engine.
type Listener interface {
	OnOrderCreated(o Order)
	OnOrderExecuted(o Order, p Position)
	OnOrderCancelled(o Order)
	// OnPositionClosed fires once per close event, full or partial.
	// p is the position state right after the close.
	OnPositionClosed(p Position, c PartialClose)
	// OnMarginCall fires at the end of a Step whose margin level is
	// below Config.MarginCallLevel.
	OnMarginCall(a Account)
	OnEquity(s EquitySnapshot)
}

// NopListener ignores every event. Embed it to implement only some hooks.
type NopListener struct{}

func (NopListener) OnOrderCreated(Order)                    {}
func (NopListener) OnOrderExecuted(Order, Position)         {}
func (NopListener) OnOrderCancelled(Order)                  {}
func (NopListener) OnPositionClosed(Position, PartialClose) {}
func (NopListener) OnMarginCall(Account)                    {}
func (NopListener) OnEquity(EquitySnapshot)                 {}

// Listeners fans every event out to each listener in turn.
type Listeners []Listener

func (ls Listeners) OnOrderCreated(o Order) {
	for _, l := range ls {
		l.OnOrderCreated(o)
	}
}

func (ls Listeners) OnOrderExecuted(o Order, p Position) {
	for _, l := range ls {
		l.OnOrderExecuted(o, p)
	}
}

func (ls Listeners) OnOrderCancelled(o Order) {
	for _, l := range ls {
		l.OnOrderCancelled(o)
	}
}

func (ls Listeners) OnPositionClosed(p Position, c PartialClose) {
	for _, l := range ls {
		l.OnPositionClosed(p, c)
	}
}

func (ls Listeners) OnMarginCall(a Account) {
	for _, l := range ls {
		l.OnMarginCall(a)
	}
}

func (ls Listeners) OnEquity(s EquitySnapshot) {
	for _, l := range ls {
		l.OnEquity(s)
	}
}

// LogListener writes ledger events as structured records. Equity
// snapshots are logged at debug level since there is one per bar.
func LogListener(l *slog.Logger) Listener {
	if l == nil {
		l = slog.Default()
	}
	return &logListener{log: l}
}

type logListener struct {
	log *slog.Logger
}

func (l *logListener) OnOrderCreated(o Order) {
	l.log.Info("order created",
		"order_id", o.ID,
		"instrument", o.Instrument,
		"side", o.Side.String(),
		"price", o.Price.String(),
		"quantity", o.Quantity.String(),
	)
}

func (l *logListener) OnOrderExecuted(o Order, p Position) {
	l.log.Info("order executed",
		"order_id", o.ID,
		"position_id", p.ID,
		"side", p.Side.String(),
		"entry_price", p.EntryPrice.String(),
		"remaining", p.Remaining.String(),
		"status", p.Status.String(),
	)
}

func (l *logListener) OnOrderCancelled(o Order) {
	l.log.Warn("order cancelled", "order_id", o.ID, "reason", o.Reason)
}

func (l *logListener) OnPositionClosed(p Position, c PartialClose) {
	l.log.Info("position closed",
		"position_id", p.ID,
		"reason", c.Reason,
		"price", c.Price.String(),
		"quantity", c.Quantity.String(),
		"pnl", c.PnL.String(),
		"remaining", p.Remaining.String(),
		"status", p.Status.String(),
	)
}

func (l *logListener) OnMarginCall(a Account) {
	l.log.Warn("margin call",
		"margin_level", a.MarginLevel.StringFixed(2),
		"equity", a.Equity.String(),
		"margin_used", a.MarginUsed.String(),
	)
}

func (l *logListener) OnEquity(s EquitySnapshot) {
	l.log.Log(context.Background(), slog.LevelDebug, "equity",
		"time", s.Time,
		"balance", s.Balance.String(),
		"equity", s.Equity.String(),
	)
}

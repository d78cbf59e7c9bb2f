package sim

import (
	"time"

	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// requiredMargin is the margin needed to carry qty at price.
func (e *Engine) requiredMargin(price, qty decimal.Decimal) decimal.Decimal {
	return price.Mul(qty).Div(e.cfg.leverage())
}

// marginUsedLocked sums the margin held by open positions at entry price.
func (e *Engine) marginUsedLocked() decimal.Decimal {
	used := decimal.Zero
	for _, p := range e.open {
		used = used.Add(e.requiredMargin(p.EntryPrice, p.Remaining))
	}
	return used
}

// checkMarginLocked runs the stop-out and margin call checks. Stop-outs
// close at each instrument's latest close, so equity is unchanged by them
// and the margin level only rises.
func (e *Engine) checkMarginLocked(at time.Time) {
	if e.cfg.StopOutLevel.IsPositive() {
		for {
			a := e.accountLocked()
			if !a.MarginUsed.IsPositive() || a.MarginLevel.GreaterThanOrEqual(e.cfg.StopOutLevel) {
				break
			}
			p := e.worstOpenLocked()
			e.closeLocked(p, e.markLocked(p), p.Remaining, ReasonStopOut, at)
		}
	}

	if e.cfg.MarginCallLevel.IsPositive() {
		a := e.accountLocked()
		if a.MarginUsed.IsPositive() && a.MarginLevel.LessThan(e.cfg.MarginCallLevel) {
			e.emit(func(l Listener) { l.OnMarginCall(a) })
		}
	}
}

// worstOpenLocked is the open position with the lowest unrealized PnL.
// Ties go to the older position.
func (e *Engine) worstOpenLocked() *Position {
	var (
		worst *Position
		low   decimal.Decimal
	)
	for _, p := range e.open {
		pnl := p.UnrealizedPnL(e.markLocked(p))
		if worst == nil || pnl.LessThan(low) {
			worst, low = p, pnl
		}
	}
	return worst
}

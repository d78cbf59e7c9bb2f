package sim

import (
	"github.com/shopspring/decimal"

	"github.com/rustyeddy/tradeledger/market"
)

func hitStopLoss(p *Position, bar market.Bar) bool {
	if p.StopLoss == nil {
		return false
	}
	if p.Side == Buy {
		return bar.Low.LessThanOrEqual(*p.StopLoss)
	}
	return bar.High.GreaterThanOrEqual(*p.StopLoss)
}

func hitTakeProfit(p *Position, bar market.Bar) bool {
	if p.TakeProfit == nil {
		return false
	}
	if p.Side == Buy {
		return bar.High.GreaterThanOrEqual(*p.TakeProfit)
	}
	return bar.Low.LessThanOrEqual(*p.TakeProfit)
}

// trigger reports the level and reason at which bar closes p, if any.
func (e *Engine) trigger(p *Position, bar market.Bar) (decimal.Decimal, string, bool) {
	sl, tp := hitStopLoss(p, bar), hitTakeProfit(p, bar)
	switch {
	case sl && tp && e.cfg.TieBreak == TakeFirst:
		return *p.TakeProfit, ReasonTakeProfit, true
	case sl:
		return *p.StopLoss, ReasonStopLoss, true
	case tp:
		return *p.TakeProfit, ReasonTakeProfit, true
	}
	return decimal.Zero, "", false
}

// checkTriggersLocked closes the full remaining quantity of every open
// position on the bar's instrument whose stop-loss or take-profit lies in
// the bar's range. The fill is at the level itself. Positions in skip are
// left alone.
func (e *Engine) checkTriggersLocked(bar market.Bar, skip map[string]bool) []PartialClose {
	var fired []PartialClose
	open := append([]*Position(nil), e.open...)
	for _, p := range open {
		if p.Instrument != bar.Instrument || skip[p.ID] {
			continue
		}
		price, reason, ok := e.trigger(p, bar)
		if !ok {
			continue
		}
		fired = append(fired, e.closeLocked(p, price, p.Remaining, reason, bar.Time))
	}
	return fired
}

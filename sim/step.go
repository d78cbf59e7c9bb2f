package sim

import (
	"errors"
	"fmt"
	"time"

	"github.com/rustyeddy/tradeledger/market"
)

// Step advances the engine by one bar. In order it records the bar as the
// latest price of its instrument, applies entry signals as market orders
// at the bar close, applies exit signals at the bar close, expires or
// fills pending orders against the bar, closes positions whose stop-loss
// or take-profit lies in the bar's range, runs the stop-out and margin call
// checks when they are configured, and emits an equity snapshot.
// Positions opened by an entry signal on this bar skip the range check:
// their fill is at the close, after the bar's high and low traded.
//
// A bar that fails validation, or is not later than the previous bar of
// its instrument, is rejected before anything changes. Otherwise every
// signal and order is handled on its own: one failure does not stop the
// rest of the bar, and all failures come back joined.
func (e *Engine) Step(bar market.Bar, entries []EntrySignal, exits []ExitSignal) error {
	e.mu.Lock()
	defer e.unlock()

	if err := bar.Validate(); err != nil {
		return fmt.Errorf("step: %w: %w", ErrValidation, err)
	}
	if prev, ok := e.prices.Get(bar.Instrument); ok && !bar.Time.After(prev.Time) {
		return fmt.Errorf("step: %w: %s bar at %s is not after %s", ErrValidation,
			bar.Instrument, bar.Time.Format(time.RFC3339), prev.Time.Format(time.RFC3339))
	}

	e.prices.Set(bar)
	if bar.Time.After(e.now) {
		e.now = bar.Time
	}

	var errs []error
	atClose := make(map[string]bool)
	for i, s := range entries {
		p, err := e.applyEntryLocked(bar, s)
		if err != nil {
			errs = append(errs, fmt.Errorf("step: entry %d: %w", i, err))
			continue
		}
		if p != nil && p.OpenTime.Equal(bar.Time) {
			atClose[p.ID] = true
		}
	}
	for i, s := range exits {
		if err := e.applyExitLocked(bar, s); err != nil {
			errs = append(errs, fmt.Errorf("step: exit %d: %w", i, err))
		}
	}
	errs = append(errs, e.processPendingLocked(bar)...)
	e.checkTriggersLocked(bar, atClose)
	e.checkMarginLocked(bar.Time)
	e.emitEquityLocked()

	return errors.Join(errs...)
}

// applyEntryLocked turns an entry signal into a market order at the bar
// close and executes it at once. An order that cannot execute is
// cancelled as rejected so it never lingers in the queue.
func (e *Engine) applyEntryLocked(bar market.Bar, s EntrySignal) (*Position, error) {
	if err := s.validate(); err != nil {
		return nil, err
	}
	o, err := e.createOrderLocked(OrderRequest{
		Instrument: bar.Instrument,
		Side:       s.Side,
		Price:      bar.Close,
		Quantity:   s.Quantity,
		StopLoss:   s.StopLoss,
		TakeProfit: s.TakeProfit,
		Time:       bar.Time,
	})
	if err != nil {
		return nil, err
	}
	p, err := e.executeLocked(o)
	if err != nil {
		e.cancelLocked(o, ReasonRejected)
		return nil, err
	}
	return p, nil
}

func (e *Engine) applyExitLocked(bar market.Bar, s ExitSignal) error {
	if err := s.validate(); err != nil {
		return err
	}

	var p *Position
	if s.PositionID == "" {
		p = e.oldestOpenLocked(bar.Instrument)
		if p == nil {
			return fmt.Errorf("exit: %w: no open position on %s", ErrPositionNotFound, bar.Instrument)
		}
	} else {
		var err error
		if p, err = e.openPositionLocked("exit", s.PositionID); err != nil {
			return err
		}
	}

	price := bar.Close
	if p.Instrument != bar.Instrument {
		last, ok := e.prices.Get(p.Instrument)
		if !ok {
			return fmt.Errorf("exit: %w: no price for %s", ErrValidation, p.Instrument)
		}
		price = last.Close
	}
	if err := checkClose(p, price, s.Quantity); err != nil {
		return fmt.Errorf("exit %q: %w", p.ID, err)
	}

	reason := s.Reason
	if reason == "" {
		reason = ReasonSignal
	}
	e.closeLocked(p, price, s.Quantity, reason, bar.Time)
	return nil
}

// processPendingLocked expires stale orders on the bar's instrument and
// fills the rest whose price the bar reached. A fill that fails leaves the
// order pending for the next bar.
func (e *Engine) processPendingLocked(bar market.Bar) []error {
	var errs []error
	pending := append([]*Order(nil), e.pending...)
	for _, o := range pending {
		if o.Instrument != bar.Instrument {
			continue
		}
		if o.MaxActive > 0 && bar.Time.Sub(o.Created) > o.MaxActive {
			e.cancelLocked(o, ReasonTimeout)
			continue
		}
		if !reached(o, bar) {
			continue
		}
		if _, err := e.executeLocked(o); err != nil {
			errs = append(errs, fmt.Errorf("step: order %q: %w", o.ID, err))
		}
	}
	return errs
}

// reached reports whether the bar traded through a limit order's price.
func reached(o *Order, bar market.Bar) bool {
	if o.Side == Buy {
		return bar.Low.LessThanOrEqual(o.Price)
	}
	return bar.High.GreaterThanOrEqual(o.Price)
}

func (e *Engine) oldestOpenLocked(instrument string) *Position {
	for _, p := range e.open {
		if p.Instrument == instrument {
			return p
		}
	}
	return nil
}

func (e *Engine) emitEquityLocked() {
	a := e.accountLocked()
	snap := EquitySnapshot{
		Time:          e.now,
		Balance:       a.Balance,
		UnrealizedPnL: a.UnrealizedPnL,
		Equity:        a.Equity,
		MarginUsed:    a.MarginUsed,
		FreeMargin:    a.FreeMargin,
	}
	e.emit(func(l Listener) { l.OnEquity(snap) })
}

package sim

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// ClosePosition closes quantity of an open position at price. A full close
// is a close of the whole Remaining. On error nothing changes.
func (e *Engine) ClosePosition(positionID string, price, quantity decimal.Decimal, reason string) (Position, error) {
	e.mu.Lock()
	defer e.unlock()

	p, err := e.openPositionLocked("close position", positionID)
	if err != nil {
		return Position{}, err
	}
	if err := checkClose(p, price, quantity); err != nil {
		return Position{}, fmt.Errorf("close position %q: %w", positionID, err)
	}
	if reason == "" {
		reason = ReasonManual
	}
	e.closeLocked(p, price, quantity, reason, e.now)
	return p.clone(), nil
}

// CloseAll closes the remaining quantity of every open position at the
// latest close of its instrument. It fails without closing anything if
// any instrument has no price yet.
func (e *Engine) CloseAll(reason string) ([]Position, error) {
	e.mu.Lock()
	defer e.unlock()

	for _, p := range e.open {
		if _, ok := e.prices.Get(p.Instrument); !ok {
			return nil, fmt.Errorf("close all: %w: no price for %s", ErrValidation, p.Instrument)
		}
	}
	if reason == "" {
		reason = ReasonEndOfRun
	}

	open := append([]*Position(nil), e.open...)
	out := make([]Position, 0, len(open))
	for _, p := range open {
		bar, _ := e.prices.Get(p.Instrument)
		e.closeLocked(p, bar.Close, p.Remaining, reason, e.now)
		out = append(out, p.clone())
	}
	e.emitEquityLocked()
	return out, nil
}

// ModifyPosition moves the stop-loss and take-profit of an open position.
// A nil level is left as it is.
func (e *Engine) ModifyPosition(positionID string, sl, tp *decimal.Decimal) (Position, error) {
	e.mu.Lock()
	defer e.unlock()

	p, err := e.openPositionLocked("modify position", positionID)
	if err != nil {
		return Position{}, err
	}

	nextSL, nextTP := p.StopLoss, p.TakeProfit
	if sl != nil {
		nextSL = sl
	}
	if tp != nil {
		nextTP = tp
	}
	if err := checkBracket(p.Side, nextSL, nextTP); err != nil {
		return Position{}, fmt.Errorf("modify position %q: %w", positionID, err)
	}

	p.StopLoss = cloneDec(nextSL)
	p.TakeProfit = cloneDec(nextTP)
	return p.clone(), nil
}

func (e *Engine) openPositionLocked(op, positionID string) (*Position, error) {
	p, ok := e.positions[positionID]
	if !ok {
		return nil, fmt.Errorf("%s: %w: %q", op, ErrPositionNotFound, positionID)
	}
	if p.Status == PositionClosed {
		return nil, fmt.Errorf("%s: %w: position %q is %s", op, ErrInvalidState, positionID, p.Status)
	}
	return p, nil
}

func checkClose(p *Position, price, quantity decimal.Decimal) error {
	if !price.IsPositive() {
		return fmt.Errorf("%w: price must be > 0, got %s", ErrValidation, price)
	}
	if !quantity.IsPositive() {
		return fmt.Errorf("%w: quantity must be > 0, got %s", ErrValidation, quantity)
	}
	if quantity.GreaterThan(p.Remaining) {
		return fmt.Errorf("%w: quantity %s exceeds remaining %s", ErrValidation, quantity, p.Remaining)
	}
	return nil
}

func checkBracket(side Side, sl, tp *decimal.Decimal) error {
	if sl != nil && !sl.IsPositive() {
		return fmt.Errorf("%w: stop-loss must be > 0, got %s", ErrValidation, sl)
	}
	if tp != nil && !tp.IsPositive() {
		return fmt.Errorf("%w: take-profit must be > 0, got %s", ErrValidation, tp)
	}
	if sl == nil || tp == nil {
		return nil
	}
	if side == Buy && !sl.LessThan(*tp) {
		return fmt.Errorf("%w: stop-loss %s must be below take-profit %s", ErrValidation, sl, tp)
	}
	if side == Sell && !sl.GreaterThan(*tp) {
		return fmt.Errorf("%w: stop-loss %s must be above take-profit %s", ErrValidation, sl, tp)
	}
	return nil
}

// closeLocked is the only place that reduces a position or moves the
// balance. Callers have already validated quantity against Remaining.
func (e *Engine) closeLocked(p *Position, price, quantity decimal.Decimal, reason string, at time.Time) PartialClose {
	e.seq++
	c := PartialClose{
		Price:    price,
		Quantity: quantity,
		Reason:   reason,
		PnL:      PnL(p.Side, p.EntryPrice, price, quantity),
		Seq:      e.seq,
		Time:     at,
	}

	p.Closes = append(p.Closes, c)
	p.Remaining = p.Remaining.Sub(quantity)
	p.RealizedPnL = p.RealizedPnL.Add(c.PnL)
	e.balance = e.balance.Add(c.PnL)
	p.updateStatus()

	if p.Status == PositionClosed {
		p.CloseTime = at
		e.removeOpenLocked(p)
		e.closed = append(e.closed, p)
	}

	snap := p.clone()
	e.emit(func(l Listener) { l.OnPositionClosed(snap, c) })
	return c
}

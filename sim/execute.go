package sim

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// CreateOrder validates req and appends a PENDING order to the queue.
// It has no effect on the balance.
func (e *Engine) CreateOrder(req OrderRequest) (Order, error) {
	e.mu.Lock()
	defer e.unlock()

	o, err := e.createOrderLocked(req)
	if err != nil {
		return Order{}, err
	}
	return o.clone(), nil
}

func (e *Engine) createOrderLocked(req OrderRequest) (*Order, error) {
	created := req.Time
	if created.IsZero() {
		created = e.now
	}
	o := &Order{
		Instrument: req.Instrument,
		Side:       req.Side,
		Price:      req.Price,
		Quantity:   req.Quantity,
		StopLoss:   cloneDec(req.StopLoss),
		TakeProfit: cloneDec(req.TakeProfit),
		Status:     OrderPending,
		Created:    created,
		MaxActive:  req.MaxActive,
	}
	if err := o.validate(); err != nil {
		return nil, fmt.Errorf("create order: %w", err)
	}

	o.ID = e.ids.New(created)
	e.pending = append(e.pending, o)
	e.orders[o.ID] = o

	snap := o.clone()
	e.emit(func(l Listener) { l.OnOrderCreated(snap) })
	return o, nil
}

// ModifyOrder edits a pending order. The edit is validated as a whole and
// either fully applies or leaves the order untouched.
func (e *Engine) ModifyOrder(orderID string, upd OrderUpdate) (Order, error) {
	e.mu.Lock()
	defer e.unlock()

	o, err := e.pendingOrderLocked("modify order", orderID)
	if err != nil {
		return Order{}, err
	}

	next := o.clone()
	if upd.Price != nil {
		next.Price = *upd.Price
	}
	if upd.Quantity != nil {
		next.Quantity = *upd.Quantity
	}
	if upd.StopLoss != nil {
		next.StopLoss = cloneDec(upd.StopLoss)
	}
	if upd.TakeProfit != nil {
		next.TakeProfit = cloneDec(upd.TakeProfit)
	}
	if upd.MaxActive != nil {
		next.MaxActive = *upd.MaxActive
	}
	if err := next.validate(); err != nil {
		return Order{}, fmt.Errorf("modify order %q: %w", orderID, err)
	}

	*o = next
	return o.clone(), nil
}

// CancelOrder moves a pending order to the history as CANCELLED.
func (e *Engine) CancelOrder(orderID, reason string) (Order, error) {
	e.mu.Lock()
	defer e.unlock()

	o, err := e.pendingOrderLocked("cancel order", orderID)
	if err != nil {
		return Order{}, err
	}
	if reason == "" {
		reason = ReasonManual
	}
	e.cancelLocked(o, reason)
	return o.clone(), nil
}

func (e *Engine) cancelLocked(o *Order, reason string) {
	o.Status = OrderCancelled
	o.Reason = reason
	e.removePendingLocked(o)
	e.history = append(e.history, o)

	snap := o.clone()
	e.emit(func(l Listener) { l.OnOrderCancelled(snap) })
}

// Execute fills a pending order at its price and returns the resulting
// position for the instrument. With hedging that is always a new
// position. With netting it is the existing position grown or reduced,
// a new one when the order flips the exposure, or the flattened (CLOSED)
// one when the order exactly offsets it.
func (e *Engine) Execute(orderID string) (Position, error) {
	e.mu.Lock()
	defer e.unlock()

	o, ok := e.orders[orderID]
	if !ok {
		return Position{}, fmt.Errorf("execute: %w: %q", ErrOrderNotFound, orderID)
	}
	p, err := e.executeLocked(o)
	if err != nil {
		return Position{}, err
	}
	return p.clone(), nil
}

func (e *Engine) pendingOrderLocked(op, orderID string) (*Order, error) {
	o, ok := e.orders[orderID]
	if !ok {
		return nil, fmt.Errorf("%s: %w: %q", op, ErrOrderNotFound, orderID)
	}
	if o.Status != OrderPending {
		return nil, fmt.Errorf("%s: %w: order %q is %s", op, ErrInvalidState, orderID, o.Status)
	}
	return o, nil
}

// executeLocked checks everything that can fail before touching any
// state, so a failed execution leaves the ledger as it was.
func (e *Engine) executeLocked(o *Order) (*Position, error) {
	if o.Status != OrderPending {
		return nil, fmt.Errorf("execute: %w: order %q is %s", ErrInvalidState, o.ID, o.Status)
	}

	var existing *Position
	if e.cfg.Mode == Netting {
		existing = e.oldestOpenLocked(o.Instrument)
	}

	reduce := decimal.Zero
	add := o.Quantity
	released := decimal.Zero
	realized := decimal.Zero
	if existing != nil && existing.Side != o.Side {
		reduce = decimal.Min(o.Quantity, existing.Remaining)
		add = o.Quantity.Sub(reduce)
		released = e.requiredMargin(existing.EntryPrice, reduce)
		realized = PnL(existing.Side, existing.EntryPrice, o.Price, reduce)
	}

	required := e.requiredMargin(o.Price, add)
	free := e.balance.Add(realized).Sub(e.marginUsedLocked().Sub(released))
	if required.GreaterThan(free) {
		return nil, fmt.Errorf("execute: %w: order %q needs margin %s, free %s",
			ErrInsufficientFunds, o.ID, required.StringFixed(2), free.StringFixed(2))
	}

	o.Status = OrderExecuted
	e.removePendingLocked(o)
	e.history = append(e.history, o)

	at := e.orderTime(o)
	var result *Position
	if reduce.IsPositive() {
		e.closeLocked(existing, o.Price, reduce, ReasonNetted, at)
		result = existing
	}
	if add.IsPositive() {
		if existing != nil && existing.Side == o.Side {
			e.increaseLocked(existing, o)
			result = existing
		} else {
			result = e.openLocked(o, add, at)
		}
	}

	o.PositionID = result.ID
	osnap, psnap := o.clone(), result.clone()
	e.emit(func(l Listener) { l.OnOrderExecuted(osnap, psnap) })
	return result, nil
}

func (e *Engine) openLocked(o *Order, qty decimal.Decimal, at time.Time) *Position {
	p := &Position{
		ID:          e.ids.New(at),
		OrderID:     o.ID,
		Instrument:  o.Instrument,
		Side:        o.Side,
		EntryPrice:  o.Price,
		Quantity:    qty,
		Remaining:   qty,
		StopLoss:    cloneDec(o.StopLoss),
		TakeProfit:  cloneDec(o.TakeProfit),
		Status:      PositionOpen,
		RealizedPnL: decimal.Zero,
		OpenTime:    at,
	}
	e.open = append(e.open, p)
	e.positions[p.ID] = p
	return p
}

// increaseLocked adds a same-side fill to a netted position. Entry price
// becomes the quantity-weighted average of the remaining exposure and the
// fill; Quantity and Remaining grow together so closed quantities still
// add up.
func (e *Engine) increaseLocked(p *Position, o *Order) {
	total := p.Remaining.Add(o.Quantity)
	p.EntryPrice = p.EntryPrice.Mul(p.Remaining).Add(o.Price.Mul(o.Quantity)).Div(total)
	p.Quantity = p.Quantity.Add(o.Quantity)
	p.Remaining = total
	if o.StopLoss != nil {
		p.StopLoss = cloneDec(o.StopLoss)
	}
	if o.TakeProfit != nil {
		p.TakeProfit = cloneDec(o.TakeProfit)
	}
}

// orderTime is the time stamped on events produced while handling o.
func (e *Engine) orderTime(o *Order) time.Time {
	if o.Created.After(e.now) {
		return o.Created
	}
	return e.now
}

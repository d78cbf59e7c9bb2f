package sim

import "fmt"

// OpenPositions returns copies of the open and partially closed positions
// in the order they were opened.
func (e *Engine) OpenPositions() []Position {
	e.mu.Lock()
	defer e.unlock()
	return clonePositions(e.open)
}

// ClosedPositions returns copies of the archived positions in the order
// they were closed.
func (e *Engine) ClosedPositions() []Position {
	e.mu.Lock()
	defer e.unlock()
	return clonePositions(e.closed)
}

// PendingOrders returns copies of the queued orders in creation order.
func (e *Engine) PendingOrders() []Order {
	e.mu.Lock()
	defer e.unlock()
	return cloneOrders(e.pending)
}

// OrderHistory returns copies of executed and cancelled orders in the
// order they left the queue.
func (e *Engine) OrderHistory() []Order {
	e.mu.Lock()
	defer e.unlock()
	return cloneOrders(e.history)
}

// Position looks up one position, open or closed.
func (e *Engine) Position(positionID string) (Position, error) {
	e.mu.Lock()
	defer e.unlock()

	p, ok := e.positions[positionID]
	if !ok {
		return Position{}, fmt.Errorf("position: %w: %q", ErrPositionNotFound, positionID)
	}
	return p.clone(), nil
}

// Order looks up one order in any state.
func (e *Engine) Order(orderID string) (Order, error) {
	e.mu.Lock()
	defer e.unlock()

	o, ok := e.orders[orderID]
	if !ok {
		return Order{}, fmt.Errorf("order: %w: %q", ErrOrderNotFound, orderID)
	}
	return o.clone(), nil
}

func clonePositions(ps []*Position) []Position {
	out := make([]Position, 0, len(ps))
	for _, p := range ps {
		out = append(out, p.clone())
	}
	return out
}

func cloneOrders(orders []*Order) []Order {
	out := make([]Order, 0, len(orders))
	for _, o := range orders {
		out = append(out, o.clone())
	}
	return out
}

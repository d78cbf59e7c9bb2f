package sim

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Side is the direction of an order or position.
type Side int8

const (
	Buy  Side = +1
	Sell Side = -1
)

func (s Side) String() string {
	switch s {
	case Buy:
		return "buy"
	case Sell:
		return "sell"
	default:
		return fmt.Sprintf("Side(%d)", int8(s))
	}
}

// Opposite returns the other side.
func (s Side) Opposite() Side { return -s }

func (s Side) valid() bool { return s == Buy || s == Sell }

// ParseSide accepts "buy"/"long" and "sell"/"short".
func ParseSide(s string) (Side, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "buy", "long":
		return Buy, nil
	case "sell", "short":
		return Sell, nil
	default:
		return 0, fmt.Errorf("%w: unknown side %q", ErrValidation, s)
	}
}

type OrderStatus int8

const (
	OrderPending OrderStatus = iota
	OrderExecuted
	OrderCancelled
)

func (s OrderStatus) String() string {
	switch s {
	case OrderPending:
		return "PENDING"
	case OrderExecuted:
		return "EXECUTED"
	case OrderCancelled:
		return "CANCELLED"
	default:
		return fmt.Sprintf("OrderStatus(%d)", int8(s))
	}
}

// Order is a requested trade. Everything but Status (and the bookkeeping
// fields set alongside it) is fixed once the order leaves the queue.
type Order struct {
	ID         string
	Instrument string
	Side       Side
	Price      decimal.Decimal
	Quantity   decimal.Decimal
	StopLoss   *decimal.Decimal
	TakeProfit *decimal.Decimal
	Status     OrderStatus

	Created time.Time

	// MaxActive cancels a pending order once this much bar time has
	// elapsed since Created. Zero never expires.
	MaxActive time.Duration

	// Reason is set when the order is cancelled.
	Reason string

	// PositionID is the position the order produced or adjusted.
	PositionID string
}

// OrderRequest carries the parameters of CreateOrder.
type OrderRequest struct {
	Instrument string
	Side       Side
	Price      decimal.Decimal
	Quantity   decimal.Decimal
	StopLoss   *decimal.Decimal
	TakeProfit *decimal.Decimal
	MaxActive  time.Duration

	// Time stamps the order. Zero uses the time of the latest bar.
	Time time.Time
}

// OrderUpdate edits a pending order. Nil fields are left unchanged.
type OrderUpdate struct {
	Price      *decimal.Decimal
	Quantity   *decimal.Decimal
	StopLoss   *decimal.Decimal
	TakeProfit *decimal.Decimal
	MaxActive  *time.Duration
}

func (o *Order) clone() Order {
	c := *o
	c.StopLoss = cloneDec(o.StopLoss)
	c.TakeProfit = cloneDec(o.TakeProfit)
	return c
}

func (o *Order) validate() error {
	if o.Instrument == "" {
		return fmt.Errorf("%w: missing instrument", ErrValidation)
	}
	if !o.Side.valid() {
		return fmt.Errorf("%w: unknown side %d", ErrValidation, o.Side)
	}
	if !o.Price.IsPositive() {
		return fmt.Errorf("%w: price must be > 0, got %s", ErrValidation, o.Price)
	}
	if !o.Quantity.IsPositive() {
		return fmt.Errorf("%w: quantity must be > 0, got %s", ErrValidation, o.Quantity)
	}
	if o.MaxActive < 0 {
		return fmt.Errorf("%w: max active must be >= 0, got %s", ErrValidation, o.MaxActive)
	}
	return validateLevels(o.Side, o.Price, o.StopLoss, o.TakeProfit)
}

// validateLevels checks that the stop sits on the losing side of ref and
// the take-profit on the winning side.
func validateLevels(side Side, ref decimal.Decimal, sl, tp *decimal.Decimal) error {
	if sl != nil {
		if !sl.IsPositive() {
			return fmt.Errorf("%w: stop-loss must be > 0, got %s", ErrValidation, sl)
		}
		if side == Buy && !sl.LessThan(ref) {
			return fmt.Errorf("%w: stop-loss %s for a buy must be below %s", ErrValidation, sl, ref)
		}
		if side == Sell && !sl.GreaterThan(ref) {
			return fmt.Errorf("%w: stop-loss %s for a sell must be above %s", ErrValidation, sl, ref)
		}
	}
	if tp != nil {
		if !tp.IsPositive() {
			return fmt.Errorf("%w: take-profit must be > 0, got %s", ErrValidation, tp)
		}
		if side == Buy && !tp.GreaterThan(ref) {
			return fmt.Errorf("%w: take-profit %s for a buy must be above %s", ErrValidation, tp, ref)
		}
		if side == Sell && !tp.LessThan(ref) {
			return fmt.Errorf("%w: take-profit %s for a sell must be below %s", ErrValidation, tp, ref)
		}
	}
	return nil
}

func cloneDec(d *decimal.Decimal) *decimal.Decimal {
	if d == nil {
		return nil
	}
	c := *d
	return &c
}

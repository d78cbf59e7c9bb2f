package sim

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// EntrySignal asks the engine to open exposure at the bar close.
type EntrySignal struct {
	Side       Side
	Quantity   decimal.Decimal
	StopLoss   *decimal.Decimal
	TakeProfit *decimal.Decimal
}

// NewEntrySignal validates a {action: buy|sell, quantity, sl?, tp?}
// descriptor. SL/TP sides are checked against the fill price later, when
// the bar close is known.
func NewEntrySignal(action string, quantity decimal.Decimal, sl, tp *decimal.Decimal) (EntrySignal, error) {
	side, err := ParseSide(action)
	if err != nil {
		return EntrySignal{}, fmt.Errorf("entry signal: %w", err)
	}
	s := EntrySignal{Side: side, Quantity: quantity, StopLoss: cloneDec(sl), TakeProfit: cloneDec(tp)}
	if err := s.validate(); err != nil {
		return EntrySignal{}, err
	}
	return s, nil
}

func (s EntrySignal) validate() error {
	if !s.Side.valid() {
		return fmt.Errorf("entry signal: %w: unknown side %d", ErrValidation, s.Side)
	}
	if !s.Quantity.IsPositive() {
		return fmt.Errorf("entry signal: %w: quantity must be > 0, got %s", ErrValidation, s.Quantity)
	}
	if s.StopLoss != nil && !s.StopLoss.IsPositive() {
		return fmt.Errorf("entry signal: %w: stop-loss must be > 0", ErrValidation)
	}
	if s.TakeProfit != nil && !s.TakeProfit.IsPositive() {
		return fmt.Errorf("entry signal: %w: take-profit must be > 0", ErrValidation)
	}
	return nil
}

// ExitSignal asks the engine to close Quantity of a position at the bar
// close. An empty PositionID targets the oldest open position on the
// bar's instrument.
type ExitSignal struct {
	Quantity   decimal.Decimal
	PositionID string
	Reason     string
}

// NewExitSignal validates a {action: close, quantity, position_id?}
// descriptor.
func NewExitSignal(action string, quantity decimal.Decimal, positionID string) (ExitSignal, error) {
	if strings.ToLower(strings.TrimSpace(action)) != "close" {
		return ExitSignal{}, fmt.Errorf("exit signal: %w: unknown action %q", ErrValidation, action)
	}
	s := ExitSignal{Quantity: quantity, PositionID: positionID}
	if err := s.validate(); err != nil {
		return ExitSignal{}, err
	}
	return s, nil
}

func (s ExitSignal) validate() error {
	if !s.Quantity.IsPositive() {
		return fmt.Errorf("exit signal: %w: quantity must be > 0, got %s", ErrValidation, s.Quantity)
	}
	return nil
}

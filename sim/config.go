package sim

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// PositionMode decides what happens when an order executes on an
// instrument that already has open exposure.
type PositionMode int8

const (
	// Netting keeps at most one open position per instrument. Same-side
	// executions add to it, opposite-side executions reduce or flip it.
	Netting PositionMode = iota
	// Hedging opens an independent position for every execution.
	Hedging
)

func (m PositionMode) String() string {
	switch m {
	case Netting:
		return "netting"
	case Hedging:
		return "hedging"
	default:
		return fmt.Sprintf("PositionMode(%d)", int8(m))
	}
}

// ParsePositionMode accepts "netting" or "hedging" (case-insensitive).
func ParsePositionMode(s string) (PositionMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "netting", "":
		return Netting, nil
	case "hedging":
		return Hedging, nil
	default:
		return 0, fmt.Errorf("unknown position mode %q (want netting or hedging)", s)
	}
}

// TieBreak decides which level wins when a single bar's range crosses
// both the stop-loss and the take-profit of a position. A lone OHLC bar
// cannot say which was touched first.
type TieBreak int8

const (
	// StopFirst assumes the worst case for the holder.
	StopFirst TieBreak = iota
	// TakeFirst assumes the best case for the holder.
	TakeFirst
)

func (t TieBreak) String() string {
	switch t {
	case StopFirst:
		return "stop_first"
	case TakeFirst:
		return "take_first"
	default:
		return fmt.Sprintf("TieBreak(%d)", int8(t))
	}
}

// ParseTieBreak accepts "stop_first" or "take_first".
func ParseTieBreak(s string) (TieBreak, error) {
	switch strings.ToLower(strings.ReplaceAll(strings.TrimSpace(s), "-", "_")) {
	case "stop_first", "":
		return StopFirst, nil
	case "take_first":
		return TakeFirst, nil
	default:
		return 0, fmt.Errorf("unknown tie break %q (want stop_first or take_first)", s)
	}
}

// Config is everything an Engine needs at construction. Engines never
// read global state, so two engines with different configs can run side
// by side.
type Config struct {
	InitialBalance decimal.Decimal

	// Leverage divides the notional to get the required margin.
	// Zero means 1 (no leverage).
	Leverage decimal.Decimal

	Mode     PositionMode
	TieBreak TieBreak

	// MarginCallLevel and StopOutLevel are margin levels in percent
	// (equity / margin used * 100). Below MarginCallLevel the listener
	// is warned after each Step; below StopOutLevel open positions are
	// closed, biggest loser first, until the level recovers. Zero
	// disables either check.
	MarginCallLevel decimal.Decimal
	StopOutLevel    decimal.Decimal

	// Seed drives ID generation; equal seeds give equal IDs for equal runs.
	Seed int64
}

// Validate checks the config before an engine is built from it.
func (c Config) Validate() error {
	if c.InitialBalance.IsNegative() {
		return fmt.Errorf("%w: initial balance %s is negative", ErrValidation, c.InitialBalance)
	}
	if c.Leverage.IsNegative() {
		return fmt.Errorf("%w: leverage %s is negative", ErrValidation, c.Leverage)
	}
	if c.Mode != Netting && c.Mode != Hedging {
		return fmt.Errorf("%w: unknown position mode %d", ErrValidation, c.Mode)
	}
	if c.TieBreak != StopFirst && c.TieBreak != TakeFirst {
		return fmt.Errorf("%w: unknown tie break %d", ErrValidation, c.TieBreak)
	}
	if c.MarginCallLevel.IsNegative() || c.StopOutLevel.IsNegative() {
		return fmt.Errorf("%w: margin call and stop-out levels must not be negative", ErrValidation)
	}
	if c.MarginCallLevel.IsPositive() && c.StopOutLevel.GreaterThan(c.MarginCallLevel) {
		return fmt.Errorf("%w: stop-out level %s is above margin call level %s",
			ErrValidation, c.StopOutLevel, c.MarginCallLevel)
	}
	return nil
}

func (c Config) leverage() decimal.Decimal {
	if c.Leverage.IsZero() {
		return decimal.NewFromInt(1)
	}
	return c.Leverage
}

// Package indicators provides streaming technical indicators fed one
// closed bar at a time.
package indicators

import (
	"github.com/shopspring/decimal"

	"github.com/rustyeddy/tradeledger/market"
)

// Indicator computes a single streaming value from bars.
// It is deterministic, so replaying the same bars gives the same values.
type Indicator interface {
	// Name returns a stable identifier like "EMA(20)".
	Name() string

	// Warmup returns how many updates are needed before Ready() can be true.
	Warmup() int

	// Reset clears all internal state.
	Reset()

	// Update consumes the next closed bar.
	Update(b market.Bar)

	// Ready reports whether Value() is meaningful (warmup completed).
	Ready() bool

	// Value returns the current value, or zero before Ready.
	Value() decimal.Decimal
}

var (
	_ Indicator = (*SimpleMA)(nil)
	_ Indicator = (*ExponentialMA)(nil)
	_ Indicator = (*ATR)(nil)
	_ Indicator = (*ADX)(nil)
)

// Package market holds the price data types the ledger consumes.
package market

import (
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// ErrBadBar is returned by Bar.Validate for malformed OHLC data.
var ErrBadBar = errors.New("bad bar")

// Bar is an OHLC summary for one time interval of one instrument.
type Bar struct {
	Instrument string
	Time       time.Time

	Open   decimal.Decimal
	High   decimal.Decimal
	Low    decimal.Decimal
	Close  decimal.Decimal
	Volume decimal.Decimal
}

// NewBar builds a Bar from float prices, the way feeds read them.
func NewBar(instrument string, t time.Time, open, high, low, close, volume float64) Bar {
	return Bar{
		Instrument: instrument,
		Time:       t,
		Open:       decimal.NewFromFloat(open),
		High:       decimal.NewFromFloat(high),
		Low:        decimal.NewFromFloat(low),
		Close:      decimal.NewFromFloat(close),
		Volume:     decimal.NewFromFloat(volume),
	}
}

// Validate checks that prices are positive and high/low bound open/close.
func (b Bar) Validate() error {
	if b.Instrument == "" {
		return fmt.Errorf("%w: missing instrument", ErrBadBar)
	}
	for _, p := range []decimal.Decimal{b.Open, b.High, b.Low, b.Close} {
		if !p.IsPositive() {
			return fmt.Errorf("%w: %s %s non-positive price %s", ErrBadBar, b.Instrument, b.Time.Format(time.RFC3339), p)
		}
	}
	if b.Volume.IsNegative() {
		return fmt.Errorf("%w: %s negative volume", ErrBadBar, b.Instrument)
	}
	if b.High.LessThan(decimal.Max(b.Open, b.Close)) || b.Low.GreaterThan(decimal.Min(b.Open, b.Close)) {
		return fmt.Errorf("%w: %s %s high/low do not bound open/close", ErrBadBar, b.Instrument, b.Time.Format(time.RFC3339))
	}
	return nil
}
